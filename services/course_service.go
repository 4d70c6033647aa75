package services

import (
	"errors"

	"learnhub/models"

	"gorm.io/gorm"
)

type CourseService struct {
	db *gorm.DB
}

func NewCourseService(db *gorm.DB) *CourseService {
	return &CourseService{db: db}
}

type CreateCourseRequest struct {
	Title        string  `json:"title" binding:"required"`
	Description  string  `json:"description"`
	Subject      string  `json:"subject" binding:"required"`
	Level        string  `json:"level" binding:"required,oneof=beginner intermediate advanced"`
	Price        float64 `json:"price"`
	ThumbnailURL string  `json:"thumbnail_url"`
	Duration     int     `json:"duration"`
}

type CreateLessonRequest struct {
	CourseID    uint   `json:"-"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	VideoURL    string `json:"video_url"`
	Duration    int    `json:"duration"`
	Order       int    `json:"order" binding:"required"`
	Content     string `json:"content"`
}

func (s *CourseService) GetCourses() ([]models.Course, error) {
	var courses []models.Course
	err := s.db.Where("is_active = ?", true).
		Preload("Teacher").
		Order("created_at DESC").
		Find(&courses).Error
	return courses, err
}

func (s *CourseService) GetCourseByID(courseID uint) (*models.Course, error) {
	var course models.Course
	err := s.db.Where("id = ? AND is_active = ?", courseID, true).
		Preload("Teacher").
		Preload("Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order(`lessons."order"`)
		}).
		First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (s *CourseService) CreateCourse(teacherID uint, req *CreateCourseRequest) (*models.Course, error) {
	course := models.Course{
		Title:        req.Title,
		Description:  req.Description,
		Subject:      req.Subject,
		Level:        req.Level,
		Price:        req.Price,
		ThumbnailURL: req.ThumbnailURL,
		Duration:     req.Duration,
		TeacherID:    teacherID,
		IsActive:     true,
	}

	if err := s.db.Create(&course).Error; err != nil {
		return nil, err
	}

	return &course, nil
}

func (s *CourseService) GetLessonsByCourse(courseID uint) ([]models.Lesson, error) {
	var lessons []models.Lesson
	err := s.db.Where("course_id = ? AND is_active = ?", courseID, true).
		Order(`lessons."order"`).
		Find(&lessons).Error
	return lessons, err
}

func (s *CourseService) GetLessonByID(lessonID uint) (*models.Lesson, error) {
	var lesson models.Lesson
	err := s.db.Where("id = ? AND is_active = ?", lessonID, true).First(&lesson).Error
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (s *CourseService) CreateLesson(req *CreateLessonRequest) (*models.Lesson, error) {
	var course models.Course
	if err := s.db.First(&course, req.CourseID).Error; err != nil {
		return nil, errors.New("course not found")
	}

	lesson := models.Lesson{
		CourseID:    req.CourseID,
		Title:       req.Title,
		Description: req.Description,
		VideoURL:    req.VideoURL,
		Duration:    req.Duration,
		Order:       req.Order,
		Content:     req.Content,
		IsActive:    true,
	}

	if err := s.db.Create(&lesson).Error; err != nil {
		return nil, err
	}

	return &lesson, nil
}
