package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/grimstore/grimstore/app/models"
)

// GormOrderRefRepository implements OrderRefRepository using GORM
type GormOrderRefRepository struct {
	db *gorm.DB
}

// NewOrderRefRepository creates a new order ledger repository
func NewOrderRefRepository(db *gorm.DB) OrderRefRepository {
	return &GormOrderRefRepository{db: db}
}

func (r *GormOrderRefRepository) Create(ref *models.OrderRef) error {
	return r.db.Create(ref).Error
}

func (r *GormOrderRefRepository) GetByTrxID(trxID string) (*models.OrderRef, error) {
	var ref models.OrderRef
	err := r.db.Where("trx_id = ?", trxID).First(&ref).Error
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

func (r *GormOrderRefRepository) GetByInvoice(invoice string) (*models.OrderRef, error) {
	var ref models.OrderRef
	err := r.db.Where("invoice = ?", invoice).First(&ref).Error
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

func (r *GormOrderRefRepository) ListByUserID(userID string, offset, limit int) ([]models.OrderRef, error) {
	var refs []models.OrderRef
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&refs).Error
	return refs, err
}

func (r *GormOrderRefRepository) ListByGuestContact(contact string, offset, limit int) ([]models.OrderRef, error) {
	var refs []models.OrderRef
	err := r.db.Where("guest_contact = ?", contact).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&refs).Error
	return refs, err
}

func (r *GormOrderRefRepository) List(offset, limit int) ([]models.OrderRef, error) {
	var refs []models.OrderRef
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&refs).Error
	return refs, err
}

func (r *GormOrderRefRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.OrderRef{}).Count(&count).Error
	return count, err
}

func (r *GormOrderRefRepository) SearchByInvoice(query string, offset, limit int) ([]models.OrderRef, error) {
	var refs []models.OrderRef
	err := r.db.Where("invoice LIKE ?", "%"+query+"%").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&refs).Error
	return refs, err
}

func (r *GormOrderRefRepository) RecordStatus(trxID, status string) error {
	now := time.Now()
	return r.db.Model(&models.OrderRef{}).
		Where("trx_id = ?", trxID).
		Updates(map[string]interface{}{
			"last_status":    status,
			"status_seen_at": now,
		}).Error
}

func (r *GormOrderRefRepository) RecordSerialNumber(trxID, sn string) error {
	return r.db.Model(&models.OrderRef{}).
		Where("trx_id = ?", trxID).
		Update("serial_number", sn).Error
}

func (r *GormOrderRefRepository) CountByStatusSince(status string, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.OrderRef{}).
		Where("last_status = ? AND created_at >= ?", status, since).
		Count(&count).Error
	return count, err
}
