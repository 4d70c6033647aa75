package services

import (
	"learnhub/models"

	"gorm.io/gorm"
)

type AdminService struct {
	db *gorm.DB
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db}
}

type PlatformStats struct {
	TotalUsers       int64         `json:"total_users"`
	TotalCourses     int64         `json:"total_courses"`
	TotalLessons     int64         `json:"total_lessons"`
	TotalEnrollments int64         `json:"total_enrollments"`
	TotalAttempts    int64         `json:"total_attempts"`
	RecentLeads      []models.Lead `json:"recent_leads"`
}

func (s *AdminService) GetStats() (*PlatformStats, error) {
	stats := &PlatformStats{}

	counts := []struct {
		model interface{}
		dest  *int64
	}{
		{&models.User{}, &stats.TotalUsers},
		{&models.Course{}, &stats.TotalCourses},
		{&models.Lesson{}, &stats.TotalLessons},
		{&models.Enrollment{}, &stats.TotalEnrollments},
		{&models.QuizAttempt{}, &stats.TotalAttempts},
	}
	for _, c := range counts {
		if err := s.db.Model(c.model).Count(c.dest).Error; err != nil {
			return nil, err
		}
	}

	if err := s.db.Order("created_at DESC").Limit(10).Find(&stats.RecentLeads).Error; err != nil {
		return nil, err
	}

	return stats, nil
}
