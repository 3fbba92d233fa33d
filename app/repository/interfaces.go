package repository

import (
	"time"

	"github.com/grimstore/grimstore/app/models"
	"gorm.io/gorm"
)

// OrderRefRepository defines the interface for the local order ledger.
type OrderRefRepository interface {
	Create(ref *models.OrderRef) error
	GetByTrxID(trxID string) (*models.OrderRef, error)
	GetByInvoice(invoice string) (*models.OrderRef, error)
	ListByUserID(userID string, offset, limit int) ([]models.OrderRef, error)
	ListByGuestContact(contact string, offset, limit int) ([]models.OrderRef, error)
	List(offset, limit int) ([]models.OrderRef, error)
	Count() (int64, error)
	SearchByInvoice(query string, offset, limit int) ([]models.OrderRef, error)
	RecordStatus(trxID, status string) error
	RecordSerialNumber(trxID, sn string) error
	CountByStatusSince(status string, since time.Time) (int64, error)
}

// ChatSessionRefRepository defines the interface for chat session bindings.
type ChatSessionRefRepository interface {
	Create(ref *models.ChatSessionRef) error
	GetBySessionID(sessionID string) (*models.ChatSessionRef, error)
	GetActiveByWebSessionKey(key string) (*models.ChatSessionRef, error)
	Close(sessionID string) error
	ListActive(offset, limit int) ([]models.ChatSessionRef, error)
}

// StatsRepository defines the interface for the daily stats rows.
type StatsRepository interface {
	GetDay(day time.Time) (*models.StoreStats, error)
	AddToDay(day time.Time, delta map[string]int64) error
	Range(from, to time.Time) ([]models.StoreStats, error)
}

// Repositories holds all repository instances
type Repositories struct {
	Order OrderRefRepository
	Chat  ChatSessionRefRepository
	Stats StatsRepository
}

// NewRepositories creates all repositories backed by the given database.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Order: NewOrderRefRepository(db),
		Chat:  NewChatSessionRefRepository(db),
		Stats: NewStatsRepository(db),
	}
}
