package entity

type DiscountKind string

const (
	DiscountPercentage DiscountKind = "PERCENTAGE"
	DiscountFixed      DiscountKind = "FIXED"
)

func (k DiscountKind) Valid() bool { return k == DiscountPercentage || k == DiscountFixed }
