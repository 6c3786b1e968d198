// Package pricing computes order totals in the smallest currency unit.
//
// All amounts are int64 with no implied decimal scale. Nothing in here performs I/O,
// so the same lines and voucher decision always produce the same Quote.
package pricing

import (
	"errors"
	"fmt"
	"math"

	"brunopizza/entity"

	"github.com/shopspring/decimal"
)

// Money is an amount in the smallest currency unit.
type Money = int64

const (
	// DefaultCustomBasePrice is the base of a customer-built pizza before toppings.
	DefaultCustomBasePrice Money = 150000
	// MaxCustomToppings caps the toppings of a customer-built pizza.
	MaxCustomToppings = 5
	// MaxQuantity caps the quantity of one cart line.
	MaxQuantity = 999
)

var (
	ErrEmptyCart        = errors.New("cart has no lines")
	ErrBadQuantity      = fmt.Errorf("quantity must be between 1 and %d", MaxQuantity)
	ErrOverflow         = errors.New("amount out of range")
	ErrNegativePrice    = errors.New("price component is negative")
	ErrTooManyToppings  = fmt.Errorf("custom pizza accepts at most %d toppings", MaxCustomToppings)
	ErrDuplicateTopping = errors.New("topping selected twice")
)

var hundred = decimal.NewFromInt(100)

// Line is one priced cart line.
type Line struct {
	BasePrice     Money
	SizeDelta     Money
	ToppingPrices []Money
	Quantity      int
}

// ToppingTotal sums the selected toppings, each counted once per selection.
func (l Line) ToppingTotal() Money {
	var sum Money
	for _, p := range l.ToppingPrices {
		sum += p
	}
	return sum
}

// UnitPrice = base + size delta + toppings.
func (l Line) UnitPrice() Money {
	return l.BasePrice + l.SizeDelta + l.ToppingTotal()
}

func (l Line) Total() Money {
	return l.UnitPrice() * Money(l.Quantity)
}

// Validate rejects lines that can never be priced. A valid line's UnitPrice and
// Total fit in Money.
func (l Line) Validate() error {
	if l.Quantity < 1 || l.Quantity > MaxQuantity {
		return ErrBadQuantity
	}
	if l.BasePrice < 0 || l.SizeDelta < 0 {
		return ErrNegativePrice
	}
	unit, ok := addMoney(l.BasePrice, l.SizeDelta)
	for _, p := range l.ToppingPrices {
		if p < 0 {
			return ErrNegativePrice
		}
		if ok {
			unit, ok = addMoney(unit, p)
		}
	}
	if !ok {
		return ErrOverflow
	}
	if _, ok := mulMoney(unit, l.Quantity); !ok {
		return ErrOverflow
	}
	return nil
}

// addMoney and mulMoney take non-negative operands and report overflow.
func addMoney(a, b Money) (Money, bool) {
	if a > math.MaxInt64-b {
		return 0, false
	}
	return a + b, true
}

func mulMoney(a Money, n int) (Money, bool) {
	if n != 0 && a > math.MaxInt64/Money(n) {
		return 0, false
	}
	return a * Money(n), true
}

// Decision is the outcome of voucher validation as seen by pricing.
type Decision struct {
	Accepted bool
	Kind     entity.DiscountKind
	Value    decimal.Decimal
}

// NoVoucher is the decision used when no code was supplied or it was refused.
func NoVoucher() Decision { return Decision{} }

// Accept builds an accepted decision from a voucher row.
func Accept(v *entity.Voucher) Decision {
	return Decision{Accepted: true, Kind: v.DiscountKind, Value: v.DiscountValue}
}

// Quote is the price chain stored on an order.
type Quote struct {
	TotalPrice    Money `json:"totalPrice"`
	DiscountPrice Money `json:"discountPrice"`
	FinalPrice    Money `json:"finalPrice"`
}

// Subtotal sums line totals. Lines are validated first.
func Subtotal(lines []Line) (Money, error) {
	var total Money
	for _, l := range lines {
		if err := l.Validate(); err != nil {
			return 0, err
		}
		var ok bool
		if total, ok = addMoney(total, l.Total()); !ok {
			return 0, ErrOverflow
		}
	}
	return total, nil
}

// Discount returns the discount for total under d, always within [0, total].
// Percentage discounts are truncated to whole units.
func Discount(total Money, d Decision) Money {
	if !d.Accepted || total <= 0 || d.Value.IsNegative() {
		return 0
	}
	var off decimal.Decimal
	switch d.Kind {
	case entity.DiscountPercentage:
		off = decimal.NewFromInt(total).Mul(d.Value).Div(hundred).Truncate(0)
	case entity.DiscountFixed:
		off = d.Value.Truncate(0)
	default:
		return 0
	}
	if off.GreaterThan(decimal.NewFromInt(total)) {
		return total
	}
	return off.IntPart()
}

// Price computes the full chain for lines under d. It fails when a line is invalid
// or the total does not fit in Money.
func Price(lines []Line, d Decision) (Quote, error) {
	total, err := Subtotal(lines)
	if err != nil {
		return Quote{}, err
	}
	discount := Discount(total, d)
	final := total - discount
	if final < 0 {
		final = 0
	}
	return Quote{TotalPrice: total, DiscountPrice: discount, FinalPrice: final}, nil
}
