package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a community member. TrustScore drives the screening multiplier and
// is only mutated through the trust provider.
type User struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email      string         `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password   string         `gorm:"not null" json:"-"`
	Role       string         `gorm:"size:20;default:'user'" json:"role"` // user, moderator, admin
	TrustScore int            `gorm:"not null;default:0" json:"trust_score"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsModerator reports whether the user may act on the moderation queue.
func (u *User) IsModerator() bool {
	return u.Role == RoleModerator || u.Role == RoleAdmin
}

const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)
