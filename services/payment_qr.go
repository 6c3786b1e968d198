package services

import (
	"net/url"
	"strconv"
)

const sepayQRBase = "https://qr.sepay.vn/img"

// PaymentQR builds the transfer QR image link printed at checkout. The order id is
// the transfer description so the bank notification carries it back.
type PaymentQR struct {
	BankCode      string
	AccountNumber string
	Template      string
}

// URL returns "" when no receiving account is configured.
func (q PaymentQR) URL(orderID string, amount int64) string {
	if q.AccountNumber == "" {
		return ""
	}
	v := url.Values{}
	v.Set("acc", q.AccountNumber)
	v.Set("bank", q.BankCode)
	v.Set("amount", strconv.FormatInt(amount, 10))
	v.Set("des", orderID)
	if q.Template != "" {
		v.Set("template", q.Template)
	}
	return sepayQRBase + "?" + v.Encode()
}
