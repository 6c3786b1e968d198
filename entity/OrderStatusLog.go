package entity

import (
	"time"

	"gorm.io/gorm"
)

// OrderStatusLog records one applied transition on either axis.
type OrderStatusLog struct {
	gorm.Model
	OrderID   string    `gorm:"size:32;index;not null" json:"orderId"`
	Field     string    `gorm:"size:16" json:"field"` // "status" | "paymentStatus"
	FromValue string    `gorm:"size:16" json:"from"`
	ToValue   string    `gorm:"size:16" json:"to"`
	Actor     string    `gorm:"size:32" json:"actor"`
	ChangedAt time.Time `json:"changedAt"`
}
