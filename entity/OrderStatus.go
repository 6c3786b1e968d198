package entity

// OrderStatus is the kitchen/delivery axis of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusMaking     OrderStatus = "MAKING"
	OrderStatusDelivering OrderStatus = "DELIVERING"
	OrderStatusRejected   OrderStatus = "REJECTED"
	OrderStatusCanceled   OrderStatus = "CANCELED"
	OrderStatusDone       OrderStatus = "DONE"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusMaking, OrderStatusDelivering,
		OrderStatusRejected, OrderStatusCanceled, OrderStatusDone:
		return true
	}
	return false
}

// IsTerminal reports whether no further status change is allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusRejected || s == OrderStatusCanceled || s == OrderStatusDone
}
