package entity

import (
	"gorm.io/gorm"
)

type Topping struct {
	gorm.Model
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	IsAvailable bool   `gorm:"default:true" json:"isAvailable"`
}
