package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Voucher struct {
	gorm.Model
	Code string `gorm:"size:50;uniqueIndex;not null" json:"code"`
	Name string `json:"name"`

	DiscountKind  DiscountKind    `gorm:"size:16;not null" json:"discountKind"`
	DiscountValue decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"discountValue"`

	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`

	// 0 = unlimited
	MaxUsageCount     int  `json:"maxUsageCount"`
	CurrentUsageCount int  `json:"currentUsageCount"`
	IsActive          bool `json:"isActive"`

	Orders []Order `json:"-"`
}
