package entity

import (
	"time"

	"gorm.io/gorm"
)

// BankTransaction is one payment-gateway webhook delivery, keyed by the gateway's id.
type BankTransaction struct {
	gorm.Model
	GatewayTxID     int64      `gorm:"uniqueIndex;not null" json:"gatewayTxId"`
	Gateway         string     `json:"gateway"`
	TransactionDate string     `json:"transactionDate"`
	AccountNumber   string     `json:"accountNumber"`
	Content         string     `json:"content"`
	TransferType    string     `json:"transferType"`
	TransferAmount  int64      `json:"transferAmount"`
	ReferenceCode   string     `json:"referenceCode"`
	Description     string     `json:"description"`
	Deliveries      int        `gorm:"default:1" json:"deliveries"`
	MatchedOrders   string     `json:"matchedOrders"` // comma separated order ids
	ProcessedAt     *time.Time `json:"processedAt,omitempty"`
}
