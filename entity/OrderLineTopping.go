package entity

import (
	"gorm.io/gorm"
)

type OrderLineTopping struct {
	gorm.Model
	OrderLineID uint      `gorm:"index" json:"orderLineId"`
	OrderLine   OrderLine `json:"-"`

	ToppingID uint    `json:"toppingId"`
	Topping   Topping `json:"-"`

	Price int64 `json:"price"`
}
