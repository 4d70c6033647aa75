package models

import (
	"time"

	"gorm.io/gorm"
)

type Course struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	Title        string         `json:"title" gorm:"not null"`
	Description  string         `json:"description"`
	Subject      string         `json:"subject" gorm:"not null"`
	Level        string         `json:"level" gorm:"not null"` // beginner, intermediate, advanced
	Price        float64        `json:"price" gorm:"not null"`
	ThumbnailURL string         `json:"thumbnail_url"`
	Duration     int            `json:"duration"` // hours
	TeacherID    uint           `json:"teacher_id" gorm:"not null"`
	IsActive     bool           `json:"is_active" gorm:"not null;default:true"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Teacher     User         `json:"teacher,omitempty" gorm:"foreignKey:TeacherID"`
	Lessons     []Lesson     `json:"lessons,omitempty" gorm:"foreignKey:CourseID"`
	Enrollments []Enrollment `json:"enrollments,omitempty" gorm:"foreignKey:CourseID"`
}
