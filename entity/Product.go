package entity

import (
	"gorm.io/gorm"
)

// Product is a menu pizza. Catalog CRUD lives elsewhere; the order core only reads prices.
type Product struct {
	gorm.Model
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	IsCustom    bool   `json:"isCustom"` // built by the customer from toppings
	IsAvailable bool   `gorm:"default:true" json:"isAvailable"`
}
