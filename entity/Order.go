package entity

import (
	"time"
)

// Order ids are 32 lowercase hex chars so they survive inside a bank transfer note.
type Order struct {
	ID string `gorm:"primaryKey;size:32" json:"id"`

	UserID    *uint  `gorm:"index" json:"userId,omitempty"`
	User      *User  `json:"-"`
	GuestName string `json:"guestName,omitempty"`

	PhoneNumber     string       `gorm:"not null" json:"phoneNumber"`
	DeliveryType    DeliveryType `gorm:"size:16;not null" json:"deliveryType"`
	DeliveryAddress string       `json:"deliveryAddress,omitempty"`

	TotalPrice    int64 `json:"totalPrice"`
	DiscountPrice int64 `json:"discountPrice"`
	FinalPrice    int64 `json:"finalPrice"`

	VoucherID *uint    `json:"appliedVoucherId,omitempty"`
	Voucher   *Voucher `json:"-"`

	Status        OrderStatus   `gorm:"size:16;not null;index" json:"status"`
	PaymentStatus PaymentStatus `gorm:"size:16;not null;index:idx_orders_payment,priority:2" json:"paymentStatus"`
	PaymentMethod PaymentMethod `gorm:"size:16;not null;index:idx_orders_payment,priority:1" json:"paymentMethod"`
	PaidAt        *time.Time    `json:"paidAt,omitempty"`

	// admin metadata, editable after creation
	Note string `json:"note,omitempty"`

	Lines []OrderLine `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"lines"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
