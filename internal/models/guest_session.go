package models

import "time"

// GuestSession is the non-adaptive quiz flow kept in the session store only.
// Questions are drawn up front and asked in order.
type GuestSession struct {
	ID          string        `json:"id"`
	QuizID      uint          `json:"quiz_id"`
	QuestionIDs []uint        `json:"question_ids"`
	Cursor      int           `json:"cursor"`
	Answers     []Answer      `json:"answers"`
	Status      AttemptStatus `json:"status"`
	EndReason   string        `json:"end_reason,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	ExpiresAt   time.Time     `json:"expires_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// CurrentQuestionID returns the id waiting for an answer, false once every question is answered.
func (s *GuestSession) CurrentQuestionID() (uint, bool) {
	if s.Cursor < 0 || s.Cursor >= len(s.QuestionIDs) {
		return 0, false
	}
	return s.QuestionIDs[s.Cursor], true
}

func (s *GuestSession) HasAnswered(questionID uint) bool {
	for _, answer := range s.Answers {
		if answer.QuestionID == questionID {
			return true
		}
	}
	return false
}
