package models

import "time"

const DefaultPassingScore = 60

type Quiz struct {
	ID                 uint            `json:"id" gorm:"primaryKey"`
	ClassID            uint            `json:"class_id" gorm:"not null;index" validate:"required"`
	Title              string          `json:"title" gorm:"not null;size:200" validate:"required,max=200"`
	Subject            string          `json:"subject" gorm:"size:100" validate:"max=100"`
	QuestionCount      int             `json:"question_count" gorm:"not null;default:10" validate:"min=1,max=200"`
	StartingDifficulty DifficultyLevel `json:"starting_difficulty" gorm:"size:16;default:easy" validate:"omitempty,difficulty_level"`
	PassingScore       int             `json:"passing_score" gorm:"default:60" validate:"min=0,max=100"`
	TimeLimitMinutes   int             `json:"time_limit_minutes" gorm:"default:0" validate:"min=0,max=600"` // 0 means no limit

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// StartDifficulty returns the configured first-question level, easy when unset.
func (q *Quiz) StartDifficulty() DifficultyLevel {
	if q.StartingDifficulty.Valid() {
		return q.StartingDifficulty
	}
	return DifficultyEasy
}

func (q *Quiz) PassThreshold() float64 {
	if q.PassingScore <= 0 || q.PassingScore > 100 {
		return DefaultPassingScore
	}
	return float64(q.PassingScore)
}

// Deadline returns when an attempt started at startedAt expires, nil without a time limit.
func (q *Quiz) Deadline(startedAt time.Time) *time.Time {
	if q.TimeLimitMinutes <= 0 {
		return nil
	}
	deadline := startedAt.Add(time.Duration(q.TimeLimitMinutes) * time.Minute)
	return &deadline
}
