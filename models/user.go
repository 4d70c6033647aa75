package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

type User struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	Email           string         `json:"email" gorm:"uniqueIndex;not null"`
	Password        string         `json:"-" gorm:"not null"`
	FirstName       string         `json:"first_name"`
	LastName        string         `json:"last_name"`
	Role            string         `json:"role" gorm:"not null;default:'student'"` // student, teacher, admin
	ProfileImageURL string         `json:"profile_image_url"`
	IsActive        bool           `json:"is_active" gorm:"not null;default:true"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Courses     []Course     `json:"courses,omitempty" gorm:"foreignKey:TeacherID"`
	Enrollments []Enrollment `json:"enrollments,omitempty" gorm:"foreignKey:UserID"`
}
