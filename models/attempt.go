package models

import (
	"time"

	"gorm.io/gorm"
)

// QuizAttempt is the immutable record of one finalized attempt. The score is
// always recomputed server-side from the answer map and the quiz's answer key
// before this row is created; it is never taken from the client. Rows are
// never updated after creation, a retried submission produces a new row.
type QuizAttempt struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	UserID      uint           `json:"user_id" gorm:"not null;index"`
	QuizID      uint           `json:"quiz_id" gorm:"not null;index"`
	Answers     AnswerMap      `json:"answers" gorm:"type:jsonb;not null"`
	Score       int            `json:"score" gorm:"not null"` // 0-100
	IsPassed    bool           `json:"is_passed" gorm:"not null;default:false"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt time.Time      `json:"completed_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	User User `json:"user,omitempty"`
	Quiz Quiz `json:"quiz,omitempty"`
}
