package models

import (
	"time"
)

// StoreStats is a per-day counter row fed from the Redis counters by the
// orderwatch manager flush worker and read by the admin dashboard.
type StoreStats struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Day            time.Time `gorm:"uniqueIndex;type:date" json:"day"`
	OrdersCreated  int64     `gorm:"default:0" json:"orders_created"`
	OrdersSuccess  int64     `gorm:"default:0" json:"orders_success"`
	OrdersFailed   int64     `gorm:"default:0" json:"orders_failed"`
	ChatMessages   int64     `gorm:"default:0" json:"chat_messages"`
	DepositsAmount int64     `gorm:"default:0" json:"deposits_amount"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
