package services

import (
	"errors"

	"learnhub/models"

	"gorm.io/gorm"
)

type QuizService struct {
	db *gorm.DB
}

func NewQuizService(db *gorm.DB) *QuizService {
	return &QuizService{db: db}
}

type CreateQuizRequest struct {
	LessonID     uint                `json:"lesson_id" binding:"required"`
	Title        string              `json:"title" binding:"required"`
	Questions    models.QuestionList `json:"questions" binding:"required"`
	TimeLimit    int                 `json:"time_limit"` // seconds, 0 = unbounded
	PassingScore int                 `json:"passing_score"`
}

// QuizView is the student-facing shape of a quiz. Correct indices and
// explanations never leave the server while a quiz can still be attempted.
type QuizView struct {
	ID           uint                `json:"id"`
	LessonID     uint                `json:"lesson_id"`
	Title        string              `json:"title"`
	Questions    []SanitizedQuestion `json:"questions"`
	TimeLimit    int                 `json:"time_limit"`
	PassingScore int                 `json:"passing_score"`
}

type SanitizedQuestion struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

func (s *QuizService) CreateQuiz(req *CreateQuizRequest) (*models.Quiz, error) {
	if err := req.Questions.Validate(); err != nil {
		return nil, err
	}

	var lesson models.Lesson
	if err := s.db.First(&lesson, req.LessonID).Error; err != nil {
		return nil, errors.New("lesson not found")
	}

	passingScore := req.PassingScore
	if passingScore <= 0 || passingScore > 100 {
		passingScore = 70
	}
	if req.TimeLimit < 0 {
		return nil, errors.New("time limit cannot be negative")
	}

	quiz := models.Quiz{
		LessonID:     req.LessonID,
		Title:        req.Title,
		Questions:    req.Questions,
		TimeLimit:    req.TimeLimit,
		PassingScore: passingScore,
		IsActive:     true,
	}

	if err := s.db.Create(&quiz).Error; err != nil {
		return nil, err
	}

	return &quiz, nil
}

func (s *QuizService) GetQuizzesByLesson(lessonID uint) ([]QuizView, error) {
	var quizzes []models.Quiz
	err := s.db.Where("lesson_id = ? AND is_active = ?", lessonID, true).
		Order("created_at").
		Find(&quizzes).Error
	if err != nil {
		return nil, err
	}

	views := make([]QuizView, len(quizzes))
	for i := range quizzes {
		views[i] = sanitizeQuiz(&quizzes[i])
	}
	return views, nil
}

func (s *QuizService) GetQuizByID(quizID uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := s.db.Where("id = ? AND is_active = ?", quizID, true).First(&quiz).Error
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

func sanitizeQuiz(quiz *models.Quiz) QuizView {
	view := QuizView{
		ID:           quiz.ID,
		LessonID:     quiz.LessonID,
		Title:        quiz.Title,
		TimeLimit:    quiz.TimeLimit,
		PassingScore: quiz.PassingScore,
		Questions:    make([]SanitizedQuestion, len(quiz.Questions)),
	}
	for i, q := range quiz.Questions {
		// Correct and Explanation are intentionally omitted
		view.Questions[i] = SanitizedQuestion{
			ID:      q.ID,
			Prompt:  q.Prompt,
			Options: q.Options,
		}
	}
	return view
}
