package conversation

import (
	"time"

	"gorm.io/gorm"
)

// Categories narrow the analysis rubric. Mirrors the values accepted by the
// client UI.
var validCategories = map[string]bool{
	"dating":        true,
	"conversations": true,
	"jobs":          true,
	"housing":       true,
	"marketplace":   true,
	"general":       true,
}

func ValidCategory(c string) bool { return validCategories[c] }

// Conversation is one analyzed exchange, owned by exactly one user.
// RedFlagScore is filled once the first analysis job completes and is
// refreshed by later runs. DeletedAt hides the row from every normal read.
type Conversation struct {
	ID           string   `gorm:"type:char(36);primaryKey" json:"id"`
	UserID       uint64   `gorm:"not null;index:idx_conversations_user_id" json:"-"`
	Title        string   `gorm:"type:varchar(255);not null" json:"title"`
	Category     *string  `gorm:"type:varchar(32)" json:"category,omitempty"`
	RedFlagScore *float64 `json:"red_flag_score,omitempty"`

	CreatedAt time.Time      `gorm:"index:idx_conversations_created_at" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Conversation) TableName() string { return "conversations" }

// Message is a single utterance inside a conversation. Assistant messages
// carry the structured analysis payload in RedFlagData as raw JSON.
type Message struct {
	ID             string  `gorm:"type:char(36);primaryKey" json:"id"`
	ConversationID string  `gorm:"type:char(36);not null;index:idx_red_flag_messages_conversation_id" json:"conversation_id"`
	Role           string  `gorm:"type:varchar(16);not null" json:"role"` // user | assistant | system
	Content        string  `gorm:"type:text;not null" json:"content"`
	RedFlagData    *string `gorm:"type:json" json:"red_flag_data,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Message) TableName() string { return "red_flag_messages" }
