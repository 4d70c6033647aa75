package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Question is one entry of a quiz's question blob. Questions live inside the
// quiz row as jsonb; the typed list below validates the blob at the
// persistence boundary so malformed payloads never reach the database.
type Question struct {
	ID          string   `json:"id"`
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options"`
	Correct     int      `json:"correct"`
	Explanation string   `json:"explanation,omitempty"`
}

type QuestionList []Question

func (ql QuestionList) Validate() error {
	if len(ql) == 0 {
		return errors.New("quiz must have at least one question")
	}
	seen := make(map[string]bool, len(ql))
	for i, q := range ql {
		if q.ID == "" {
			return fmt.Errorf("question %d: missing id", i)
		}
		if seen[q.ID] {
			return fmt.Errorf("question %d: duplicate id %q", i, q.ID)
		}
		seen[q.ID] = true
		if q.Prompt == "" {
			return fmt.Errorf("question %d: missing prompt", i)
		}
		if len(q.Options) < 2 {
			return fmt.Errorf("question %d: needs at least 2 options", i)
		}
		if q.Correct < 0 || q.Correct >= len(q.Options) {
			return fmt.Errorf("question %d: correct index %d out of range", i, q.Correct)
		}
	}
	return nil
}

func (ql QuestionList) Value() (driver.Value, error) {
	if err := ql.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(ql)
}

func (ql *QuestionList) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for QuestionList: %T", value)
	}
	return json.Unmarshal(data, ql)
}

// AnswerMap maps question IDs to selected option indices. Unanswered
// questions are simply absent.
type AnswerMap map[string]int

func (am AnswerMap) Value() (driver.Value, error) {
	if am == nil {
		am = AnswerMap{}
	}
	return json.Marshal(am)
}

func (am *AnswerMap) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for AnswerMap: %T", value)
	}
	return json.Unmarshal(data, am)
}

type Quiz struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	LessonID     uint           `json:"lesson_id" gorm:"not null"`
	Title        string         `json:"title" gorm:"not null"`
	Questions    QuestionList   `json:"questions" gorm:"type:jsonb;not null"`
	TimeLimit    int            `json:"time_limit"` // seconds, 0 = unbounded
	PassingScore int            `json:"passing_score" gorm:"not null;default:70"`
	IsActive     bool           `json:"is_active" gorm:"not null;default:true"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Lesson   Lesson        `json:"lesson,omitempty"`
	Attempts []QuizAttempt `json:"attempts,omitempty" gorm:"foreignKey:QuizID"`
}
