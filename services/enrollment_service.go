package services

import (
	"errors"
	"time"

	"learnhub/models"

	"gorm.io/gorm"
)

type EnrollmentService struct {
	db *gorm.DB
}

func NewEnrollmentService(db *gorm.DB) *EnrollmentService {
	return &EnrollmentService{db: db}
}

type EnrollRequest struct {
	CourseID uint `json:"course_id" binding:"required"`
}

type LessonProgressRequest struct {
	WatchTime   int  `json:"watch_time"`
	IsCompleted bool `json:"is_completed"`
}

func (s *EnrollmentService) GetEnrollmentsByUser(userID uint) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	err := s.db.Where("user_id = ?", userID).
		Preload("Course").
		Preload("Course.Teacher").
		Order("enrolled_at DESC").
		Find(&enrollments).Error
	return enrollments, err
}

func (s *EnrollmentService) Enroll(userID uint, req *EnrollRequest) (*models.Enrollment, error) {
	var course models.Course
	if err := s.db.Where("id = ? AND is_active = ?", req.CourseID, true).First(&course).Error; err != nil {
		return nil, errors.New("course not found")
	}

	var existing models.Enrollment
	if err := s.db.Where("user_id = ? AND course_id = ?", userID, req.CourseID).First(&existing).Error; err == nil {
		return nil, errors.New("already enrolled in this course")
	}

	enrollment := models.Enrollment{
		UserID:     userID,
		CourseID:   req.CourseID,
		EnrolledAt: time.Now(),
		Progress:   0,
	}

	if err := s.db.Create(&enrollment).Error; err != nil {
		return nil, err
	}

	return &enrollment, nil
}

// UpdateLessonProgress upserts a user's progress on one lesson. Completion is
// sticky: once a lesson is completed it stays completed, and watch time only
// ever grows.
func (s *EnrollmentService) UpdateLessonProgress(userID, lessonID uint, req *LessonProgressRequest) (*models.LessonProgress, error) {
	var lesson models.Lesson
	if err := s.db.First(&lesson, lessonID).Error; err != nil {
		return nil, errors.New("lesson not found")
	}

	var progress models.LessonProgress
	err := s.db.Where("user_id = ? AND lesson_id = ?", userID, lessonID).First(&progress).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		progress = models.LessonProgress{
			UserID:   userID,
			LessonID: lessonID,
		}
	}

	if req.WatchTime > progress.WatchTime {
		progress.WatchTime = req.WatchTime
	}
	if req.IsCompleted && !progress.IsCompleted {
		progress.IsCompleted = true
		now := time.Now()
		progress.CompletedAt = &now
	}

	if err := s.db.Save(&progress).Error; err != nil {
		return nil, err
	}

	if progress.IsCompleted {
		if err := s.RecomputeCourseProgress(userID, lesson.CourseID); err != nil {
			return nil, err
		}
	}

	return &progress, nil
}

// RecomputeCourseProgress recalculates an enrollment's aggregate progress as
// completed-lessons / total-lessons. It is a full recomputation rather than
// an increment, so retried completions cannot inflate the percentage.
func (s *EnrollmentService) RecomputeCourseProgress(userID, courseID uint) error {
	var enrollment models.Enrollment
	err := s.db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&enrollment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Progress on a course the user never enrolled in is not an error,
			// there is simply nothing to aggregate.
			return nil
		}
		return err
	}

	var total int64
	if err := s.db.Model(&models.Lesson{}).
		Where("course_id = ? AND is_active = ?", courseID, true).
		Count(&total).Error; err != nil {
		return err
	}
	if total == 0 {
		return nil
	}

	var completed int64
	if err := s.db.Model(&models.LessonProgress{}).
		Joins("JOIN lessons ON lessons.id = lesson_progresses.lesson_id").
		Where("lesson_progresses.user_id = ? AND lessons.course_id = ? AND lesson_progresses.is_completed = ?",
			userID, courseID, true).
		Count(&completed).Error; err != nil {
		return err
	}

	enrollment.Progress = int(100 * completed / total)
	if enrollment.Progress >= 100 && enrollment.CompletedAt == nil {
		now := time.Now()
		enrollment.CompletedAt = &now
	}

	return s.db.Save(&enrollment).Error
}

// GetProgressStats aggregates a user's progress across a course for the AI
// progress analysis endpoint.
func (s *EnrollmentService) GetProgressStats(userID, courseID uint) (completed, total int64, quizScores []int, err error) {
	if err = s.db.Model(&models.Lesson{}).
		Where("course_id = ? AND is_active = ?", courseID, true).
		Count(&total).Error; err != nil {
		return
	}

	if err = s.db.Model(&models.LessonProgress{}).
		Joins("JOIN lessons ON lessons.id = lesson_progresses.lesson_id").
		Where("lesson_progresses.user_id = ? AND lessons.course_id = ? AND lesson_progresses.is_completed = ?",
			userID, courseID, true).
		Count(&completed).Error; err != nil {
		return
	}

	var attempts []models.QuizAttempt
	if err = s.db.Model(&models.QuizAttempt{}).
		Joins("JOIN quizzes ON quizzes.id = quiz_attempts.quiz_id").
		Joins("JOIN lessons ON lessons.id = quizzes.lesson_id").
		Where("quiz_attempts.user_id = ? AND lessons.course_id = ?", userID, courseID).
		Find(&attempts).Error; err != nil {
		return
	}
	for _, attempt := range attempts {
		quizScores = append(quizScores, attempt.Score)
	}

	return
}
