package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/grimstore/grimstore/app/models"
)

// GormChatSessionRefRepository implements ChatSessionRefRepository using GORM
type GormChatSessionRefRepository struct {
	db *gorm.DB
}

// NewChatSessionRefRepository creates a new chat session binding repository
func NewChatSessionRefRepository(db *gorm.DB) ChatSessionRefRepository {
	return &GormChatSessionRefRepository{db: db}
}

func (r *GormChatSessionRefRepository) Create(ref *models.ChatSessionRef) error {
	return r.db.Create(ref).Error
}

func (r *GormChatSessionRefRepository) GetBySessionID(sessionID string) (*models.ChatSessionRef, error) {
	var ref models.ChatSessionRef
	err := r.db.Where("session_id = ?", sessionID).First(&ref).Error
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

func (r *GormChatSessionRefRepository) GetActiveByWebSessionKey(key string) (*models.ChatSessionRef, error) {
	var ref models.ChatSessionRef
	err := r.db.Where("web_session_key = ? AND active = ?", key, true).
		Order("created_at DESC").
		First(&ref).Error
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

func (r *GormChatSessionRefRepository) Close(sessionID string) error {
	now := time.Now()
	return r.db.Model(&models.ChatSessionRef{}).
		Where("session_id = ? AND active = ?", sessionID, true).
		Updates(map[string]interface{}{
			"active":    false,
			"closed_at": now,
		}).Error
}

func (r *GormChatSessionRefRepository) ListActive(offset, limit int) ([]models.ChatSessionRef, error) {
	var refs []models.ChatSessionRef
	err := r.db.Where("active = ?", true).
		Order("updated_at DESC").
		Offset(offset).Limit(limit).
		Find(&refs).Error
	return refs, err
}
