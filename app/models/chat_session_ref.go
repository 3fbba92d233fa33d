package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	CHAT_SENDER_USER  = "USER"
	CHAT_SENDER_ADMIN = "ADMIN"
)

// ChatSessionRef binds a support chat session owned by the commerce core to
// the web session (or guest identity) that opened it. When the core reports
// the session inactive or rejects it, the ref is released.
type ChatSessionRef struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	SessionID     string         `gorm:"uniqueIndex;type:varchar(64)" json:"session_id"`
	WebSessionKey string         `gorm:"index;type:varchar(80)" json:"-"`
	UserID        string         `gorm:"index;type:varchar(64)" json:"user_id"`
	GuestName     string         `gorm:"type:varchar(120)" json:"guest_name"`
	GuestEmail    string         `gorm:"type:varchar(200)" json:"guest_email"`
	Active        bool           `gorm:"default:true;index" json:"active"`
	ClosedAt      *time.Time     `gorm:"type:timestamp;default:null" json:"closed_at"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// Close marks the ref inactive exactly once.
func (r *ChatSessionRef) Close(db *gorm.DB) error {
	if !r.Active {
		return nil
	}
	now := time.Now()
	r.Active = false
	r.ClosedAt = &now
	return db.Model(r).Updates(map[string]interface{}{
		"active":    false,
		"closed_at": now,
	}).Error
}
