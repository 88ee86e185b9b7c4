package models

import (
	"time"

	"gorm.io/gorm"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
)

const (
	EndReasonCompleted     = "completed"
	EndReasonQuestionLimit = "question_limit"
	EndReasonPoolExhausted = "pool_exhausted"
	EndReasonTimeout       = "time_out"
)

type Attempt struct {
	ID        uint          `json:"id" gorm:"primaryKey"`
	QuizID    uint          `json:"quiz_id" gorm:"not null;index;uniqueIndex:idx_attempt_student_quiz,where:deleted_at IS NULL"`
	ClassID   uint          `json:"class_id" gorm:"not null;index"`
	StudentID string        `json:"student_id" gorm:"not null;size:255;index;uniqueIndex:idx_attempt_student_quiz,where:deleted_at IS NULL"`
	Status    AttemptStatus `json:"status" gorm:"default:in_progress;size:32;index"`

	// Adaptive cursor
	CurrentDifficulty DifficultyLevel `json:"current_difficulty" gorm:"size:16"`
	CurrentQuestionID *uint           `json:"current_question_id"`
	QuestionsAsked    int             `json:"questions_asked"`
	TotalQuestions    int             `json:"total_questions"`

	// Timing
	StartedAt   time.Time  `json:"started_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
	CompletedAt *time.Time `json:"completed_at"`

	// Scoring, null until completed
	CorrectCount *int     `json:"correct_count"`
	TotalCount   *int     `json:"total_count"`
	Percentage   *float64 `json:"percentage"`
	EarnedPoints int      `json:"earned_points"`
	MaxPoints    int      `json:"max_points"`
	EndReason    *string  `json:"end_reason" gorm:"size:32"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Answers []Answer `json:"answers,omitempty" gorm:"foreignKey:AttemptID"`
}

func (Attempt) TableName() string {
	return "attempts"
}

func (a *Attempt) IsCompleted() bool {
	return a.Status == AttemptCompleted
}

func (a *Attempt) IsExpired(now time.Time) bool {
	return a.ExpiresAt != nil && !now.Before(*a.ExpiresAt)
}

// AskedQuestionIDs returns every question already answered plus the one currently asked.
func (a *Attempt) AskedQuestionIDs() []uint {
	ids := make([]uint, 0, len(a.Answers)+1)
	for _, answer := range a.Answers {
		ids = append(ids, answer.QuestionID)
	}
	if a.CurrentQuestionID != nil && !a.HasAnswered(*a.CurrentQuestionID) {
		ids = append(ids, *a.CurrentQuestionID)
	}
	return ids
}

func (a *Attempt) HasAnswered(questionID uint) bool {
	for _, answer := range a.Answers {
		if answer.QuestionID == questionID {
			return true
		}
	}
	return false
}

type Answer struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	AttemptID      uint            `json:"attempt_id" gorm:"not null;uniqueIndex:idx_answer_attempt_question"`
	QuestionID     uint            `json:"question_id" gorm:"not null;uniqueIndex:idx_answer_attempt_question;index"`
	Difficulty     DifficultyLevel `json:"difficulty" gorm:"size:16"`
	SubmittedValue string          `json:"submitted_value" gorm:"type:text"`
	IsCorrect      bool            `json:"is_correct"`
	Points         int             `json:"points"`     // earned
	MaxPoints      int             `json:"max_points"` // question weight
	AnsweredAt     time.Time       `json:"answered_at"`
}

func (Answer) TableName() string {
	return "attempt_answers"
}
