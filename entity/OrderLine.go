package entity

import (
	"gorm.io/gorm"
)

// OrderLine is a priced snapshot of one cart line. Never updated after insert.
type OrderLine struct {
	gorm.Model
	OrderID string `gorm:"size:32;index;not null" json:"orderId"`

	ProductID uint    `json:"productId"`
	Product   Product `json:"-"`
	SizeID    uint    `json:"sizeId"`
	Size      Size    `json:"-"`

	Quantity     int   `json:"quantity"`
	BasePrice    int64 `json:"basePrice"`
	SizeDelta    int64 `json:"sizeDelta"`
	ToppingTotal int64 `json:"toppingTotal"`
	UnitPrice    int64 `json:"unitPrice"`
	LineTotal    int64 `json:"lineTotal"`
	Custom       bool  `json:"custom"`

	Toppings []OrderLineTopping `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"toppings"`
}
