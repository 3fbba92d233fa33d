package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Transaction status vocabulary as reported by the commerce core.
// SUCCESS and FAILED are terminal; nothing moves out of them.
const (
	ORDER_STATUS_PENDING    = "PENDING"
	ORDER_STATUS_PROCESSING = "PROCESSING"
	ORDER_STATUS_SUCCESS    = "SUCCESS"
	ORDER_STATUS_FAILED     = "FAILED"
)

const (
	ORDER_TYPE_TOPUP   = "TOPUP"
	ORDER_TYPE_DEPOSIT = "DEPOSIT"
)

// OrderRef is the gateway-local mirror of a transaction that was created or
// watched through this gateway. The commerce core owns the transaction; this
// row only records what we last saw, so guest receipts and admin debugging
// keep working when the core is unreachable.
type OrderRef struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	TrxID         string         `gorm:"uniqueIndex;type:varchar(64)" json:"trx_id" validate:"required,max=64"`
	Invoice       string         `gorm:"index;type:varchar(64)" json:"invoice" validate:"max=64"`
	Type          string         `gorm:"type:varchar(20);default:'TOPUP'" json:"type" validate:"oneof=TOPUP DEPOSIT"`
	ProductID     string         `gorm:"type:varchar(64)" json:"product_id"`
	ProductName   string         `gorm:"type:varchar(200)" json:"product_name"`
	Amount        int64          `json:"amount" validate:"gte=0"`
	TargetID      string         `gorm:"type:varchar(64)" json:"target_id"`
	ZoneID        string         `gorm:"type:varchar(32)" json:"zone_id"`
	PaymentMethod string         `gorm:"type:varchar(32)" json:"payment_method"`
	PaymentCode   string         `gorm:"type:varchar(32)" json:"payment_channel"`
	VoucherCode   string         `gorm:"type:varchar(40)" json:"voucher_code"`
	UserID        string         `gorm:"index;type:varchar(64)" json:"user_id"`
	GuestContact  string         `gorm:"index;type:varchar(32)" json:"guest_contact"`
	LastStatus    string         `gorm:"type:varchar(20);default:'PENDING';index" json:"last_status" validate:"oneof=PENDING PROCESSING SUCCESS FAILED"`
	SerialNumber  string         `gorm:"type:varchar(120)" json:"serial_number"`
	StatusSeenAt  *time.Time     `gorm:"type:timestamp;default:null" json:"status_seen_at"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (o *OrderRef) Validate() error {
	v := validator.New()

	return v.Struct(o)
}

// IsTerminal reports whether the last seen status is an end state.
func (o *OrderRef) IsTerminal() bool {
	return IsTerminalStatus(o.LastStatus)
}

// IsTerminalStatus reports whether the given status stops reconciliation.
func IsTerminalStatus(status string) bool {
	return status == ORDER_STATUS_SUCCESS || status == ORDER_STATUS_FAILED
}

// IsKnownStatus reports whether the core sent a status we understand.
func IsKnownStatus(status string) bool {
	switch status {
	case ORDER_STATUS_PENDING, ORDER_STATUS_PROCESSING, ORDER_STATUS_SUCCESS, ORDER_STATUS_FAILED:
		return true
	}
	return false
}

// RecordStatus updates the last seen status and its timestamp.
func (o *OrderRef) RecordStatus(db *gorm.DB, status string) error {
	now := time.Now()
	o.LastStatus = status
	o.StatusSeenAt = &now
	return db.Model(o).Updates(map[string]interface{}{
		"last_status":    status,
		"status_seen_at": now,
	}).Error
}
