package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"learnhub/events"
	"learnhub/models"
	"learnhub/session"

	"gorm.io/gorm"
)

// AttemptService is the progress recorder: it turns a finished attempt into
// the durable QuizAttempt row and folds it into enrollment-level progress.
type AttemptService struct {
	db          *gorm.DB
	enrollments *EnrollmentService
	publisher   events.Publisher
}

func NewAttemptService(db *gorm.DB, enrollments *EnrollmentService, publisher events.Publisher) *AttemptService {
	return &AttemptService{
		db:          db,
		enrollments: enrollments,
		publisher:   publisher,
	}
}

// RecordAttempt durably stores one finalized attempt. The score is always
// recomputed here from the submitted answers and the quiz's answer key; a
// client- or session-computed score is advisory only and never persisted
// as-is. Each call creates a new immutable row, so a retried call after a
// partial failure cannot corrupt an existing record.
func (s *AttemptService) RecordAttempt(userID, quizID uint, answers models.AnswerMap, startedAt time.Time) (*models.QuizAttempt, error) {
	var quiz models.Quiz
	if err := s.db.Where("id = ? AND is_active = ?", quizID, true).First(&quiz).Error; err != nil {
		return nil, errors.New("quiz not found")
	}

	attempt, err := buildAttempt(userID, &quiz, answers, startedAt, time.Now())
	if err != nil {
		return nil, err
	}

	if err := s.db.Create(attempt).Error; err != nil {
		return nil, err
	}

	if attempt.IsPassed {
		if err := s.completeLessonForQuiz(userID, &quiz); err != nil {
			// The attempt itself is durable; a failed aggregate update is
			// recoverable on the next recompute, so log and carry on.
			log.Printf("Failed to update course progress for user %d, quiz %d: %v", userID, quizID, err)
		}
	}

	if s.publisher != nil {
		// Fire and forget: a broker outage never fails the submission.
		if err := s.publisher.Publish(events.AttemptCompletedKey, events.AttemptCompleted{
			AttemptID:   attempt.ID,
			UserID:      userID,
			QuizID:      quizID,
			Score:       attempt.Score,
			Passed:      attempt.IsPassed,
			CompletedAt: attempt.CompletedAt,
		}); err != nil {
			log.Printf("Failed to publish %s for attempt %d: %v", events.AttemptCompletedKey, attempt.ID, err)
		}
	}

	return attempt, nil
}

// buildAttempt validates the answer map against the quiz and assembles the
// row with a score computed from the quiz's own answer key. Nothing the
// client sends beyond the answer map influences the stored score.
func buildAttempt(userID uint, quiz *models.Quiz, answers models.AnswerMap, startedAt, completedAt time.Time) (*models.QuizAttempt, error) {
	if answers == nil {
		answers = models.AnswerMap{}
	}
	if err := validateAnswers(quiz.Questions, answers); err != nil {
		return nil, err
	}

	result := session.Score(quiz.Questions, quiz.PassingScore, answers)

	if startedAt.IsZero() {
		startedAt = completedAt
	}

	return &models.QuizAttempt{
		UserID:      userID,
		QuizID:      quiz.ID,
		Answers:     answers,
		Score:       result.ScorePercent,
		IsPassed:    result.Passed,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
	}, nil
}

func (s *AttemptService) GetAttemptsByUser(userID uint) ([]models.QuizAttempt, error) {
	var attempts []models.QuizAttempt
	err := s.db.Where("user_id = ?", userID).
		Order("completed_at DESC").
		Find(&attempts).Error
	return attempts, err
}

// completeLessonForQuiz marks the quiz's lesson as completed for the user and
// recomputes the enrollment aggregate. Both steps are idempotent.
func (s *AttemptService) completeLessonForQuiz(userID uint, quiz *models.Quiz) error {
	var lesson models.Lesson
	if err := s.db.First(&lesson, quiz.LessonID).Error; err != nil {
		return err
	}

	var progress models.LessonProgress
	err := s.db.Where("user_id = ? AND lesson_id = ?", userID, lesson.ID).First(&progress).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		progress = models.LessonProgress{
			UserID:   userID,
			LessonID: lesson.ID,
		}
	}

	if !progress.IsCompleted {
		progress.IsCompleted = true
		now := time.Now()
		progress.CompletedAt = &now
		if err := s.db.Save(&progress).Error; err != nil {
			return err
		}
	}

	return s.enrollments.RecomputeCourseProgress(userID, lesson.CourseID)
}

// validateAnswers rejects answer maps referencing unknown questions or
// out-of-range options before anything is persisted.
func validateAnswers(questions models.QuestionList, answers models.AnswerMap) error {
	byID := make(map[string]*models.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}
	for questionID, selected := range answers {
		q, ok := byID[questionID]
		if !ok {
			return fmt.Errorf("answer references unknown question %q", questionID)
		}
		if selected < 0 || selected >= len(q.Options) {
			return fmt.Errorf("answer for question %q: option index %d out of range", questionID, selected)
		}
	}
	return nil
}
