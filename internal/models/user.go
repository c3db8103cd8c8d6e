package models

import "time"

// User is the root of the ownership tree. Guests are regular rows whose
// Email carries the reserved guest label and whose PasswordHash is nil.
type User struct {
	ID           uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string  `gorm:"type:varchar(64);uniqueIndex;not null" json:"email"`
	PasswordHash *string `gorm:"type:varchar(128)" json:"-"`

	Name              *string    `gorm:"type:varchar(128)" json:"name,omitempty"`
	Image             *string    `gorm:"type:text" json:"image,omitempty"`
	EmailVerifiedAt   *time.Time `json:"email_verified_at,omitempty"`
	VerificationToken *string    `gorm:"type:varchar(128)" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }
