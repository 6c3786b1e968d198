package pricing

// CustomLine prices a customer-built pizza. The base is the custom constant, not the
// product's list price, and more than MaxCustomToppings toppings is an error rather
// than a silent truncation.
func CustomLine(base, sizeDelta Money, toppingPrices []Money, quantity int) (Line, error) {
	if len(toppingPrices) > MaxCustomToppings {
		return Line{}, ErrTooManyToppings
	}
	l := Line{BasePrice: base, SizeDelta: sizeDelta, ToppingPrices: toppingPrices, Quantity: quantity}
	if err := l.Validate(); err != nil {
		return Line{}, err
	}
	return l, nil
}

// CheckToppingSet rejects a selection that names the same topping twice.
func CheckToppingSet(ids []uint) error {
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return ErrDuplicateTopping
		}
		seen[id] = struct{}{}
	}
	return nil
}
