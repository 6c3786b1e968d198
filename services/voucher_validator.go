package services

import (
	"time"

	"brunopizza/entity"
)

type VoucherReason string

const (
	VoucherNotFound   VoucherReason = "not_found"
	VoucherInactive   VoucherReason = "inactive"
	VoucherNotStarted VoucherReason = "not_started"
	VoucherExpired    VoucherReason = "expired"
	VoucherExhausted  VoucherReason = "exhausted"
)

type VoucherVerdict struct {
	Accepted bool          `json:"accepted"`
	Reason   VoucherReason `json:"reason,omitempty"`
	// Expired asks the caller to persist the freeze (inactive, end date = now).
	Expired bool `json:"-"`
}

// ValidateVoucher applies the rules in order; the first failure wins.
// The validity window is inclusive on both ends.
func ValidateVoucher(v *entity.Voucher, now time.Time) VoucherVerdict {
	if v == nil {
		return VoucherVerdict{Reason: VoucherNotFound}
	}
	if !v.IsActive {
		return VoucherVerdict{Reason: VoucherInactive}
	}
	if now.Before(v.StartDate) {
		return VoucherVerdict{Reason: VoucherNotStarted}
	}
	if now.After(v.EndDate) {
		return VoucherVerdict{Reason: VoucherExpired, Expired: true}
	}
	if v.MaxUsageCount > 0 && v.CurrentUsageCount >= v.MaxUsageCount {
		return VoucherVerdict{Reason: VoucherExhausted}
	}
	return VoucherVerdict{Accepted: true}
}
