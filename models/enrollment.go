package models

import (
	"time"

	"gorm.io/gorm"
)

type Enrollment struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	UserID      uint           `json:"user_id" gorm:"not null;index:idx_enrollment_user_course,unique"`
	CourseID    uint           `json:"course_id" gorm:"not null;index:idx_enrollment_user_course,unique"`
	EnrolledAt  time.Time      `json:"enrolled_at"`
	CompletedAt *time.Time     `json:"completed_at"`
	Progress    int            `json:"progress" gorm:"not null;default:0"` // percentage, recomputed
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	User   User   `json:"user,omitempty"`
	Course Course `json:"course,omitempty"`
}

type LessonProgress struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	UserID      uint           `json:"user_id" gorm:"not null;index:idx_progress_user_lesson,unique"`
	LessonID    uint           `json:"lesson_id" gorm:"not null;index:idx_progress_user_lesson,unique"`
	IsCompleted bool           `json:"is_completed" gorm:"not null;default:false"`
	WatchTime   int            `json:"watch_time" gorm:"not null;default:0"` // seconds
	CompletedAt *time.Time     `json:"completed_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	User   User   `json:"user,omitempty"`
	Lesson Lesson `json:"lesson,omitempty"`
}
