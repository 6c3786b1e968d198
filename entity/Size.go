package entity

import (
	"gorm.io/gorm"
)

type Size struct {
	gorm.Model
	Name       string `json:"name"`
	PriceDelta int64  `json:"priceDelta"`
}
