package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type ChatMessage struct {
	Role      string    `json:"role"` // user, assistant
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type ChatMessageList []ChatMessage

func (cl ChatMessageList) Value() (driver.Value, error) {
	if cl == nil {
		cl = ChatMessageList{}
	}
	return json.Marshal(cl)
}

func (cl *ChatMessageList) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for ChatMessageList: %T", value)
	}
	return json.Unmarshal(data, cl)
}

type ChatSession struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	UserID    uint            `json:"user_id" gorm:"not null;index"`
	Messages  ChatMessageList `json:"messages" gorm:"type:jsonb;not null"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt gorm.DeletedAt  `json:"-" gorm:"index"`

	// Relationships
	User User `json:"user,omitempty"`
}
