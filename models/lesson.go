package models

import (
	"time"

	"gorm.io/gorm"
)

type Lesson struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	CourseID    uint           `json:"course_id" gorm:"not null"`
	Title       string         `json:"title" gorm:"not null"`
	Description string         `json:"description"`
	VideoURL    string         `json:"video_url"`
	Duration    int            `json:"duration"` // minutes
	Order       int            `json:"order" gorm:"not null"`
	Content     string         `json:"content"` // lesson materials
	IsActive    bool           `json:"is_active" gorm:"not null;default:true"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Course  Course `json:"course,omitempty"`
	Quizzes []Quiz `json:"quizzes,omitempty" gorm:"foreignKey:LessonID"`
}
