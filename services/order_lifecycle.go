package services

import (
	"time"

	"brunopizza/entity"
)

var statusEdges = map[entity.OrderStatus][]entity.OrderStatus{
	entity.OrderStatusPending:    {entity.OrderStatusMaking, entity.OrderStatusRejected, entity.OrderStatusCanceled},
	entity.OrderStatusMaking:     {entity.OrderStatusDelivering},
	entity.OrderStatusDelivering: {entity.OrderStatusDone},
}

var paymentEdges = map[entity.PaymentStatus][]entity.PaymentStatus{
	entity.PaymentStatusUnpaid: {entity.PaymentStatusPaid},
	entity.PaymentStatusPaid:   {entity.PaymentStatusRefunded},
}

func CanTransitionStatus(from, to entity.OrderStatus) bool {
	for _, s := range statusEdges[from] {
		if s == to {
			return true
		}
	}
	return false
}

func CanTransitionPayment(from, to entity.PaymentStatus) bool {
	for _, s := range paymentEdges[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ApplyStatusTransition moves o.Status in memory. Only admins move the status axis.
func ApplyStatusTransition(o *entity.Order, to entity.OrderStatus, actor Actor, now time.Time) error {
	if !to.Valid() {
		return validationf("unknown status %q", to)
	}
	if actor.Kind != ActorAdmin {
		return ErrForbidden
	}
	if o.Status.IsTerminal() {
		return transitionf("order %s is %s", o.ID, o.Status)
	}
	if !CanTransitionStatus(o.Status, to) {
		return transitionf("%s -> %s", o.Status, to)
	}
	o.Status = to
	o.UpdatedAt = now
	return nil
}

// ApplyPaymentTransition moves o.PaymentStatus in memory.
//
// PAID may come from an admin, or from the reconciler for bank transfers only.
// REFUNDED is admin only. Customers and guests never move the payment axis.
// The order status axis does not gate payment: a delivered or canceled order can
// still be paid or refunded.
func ApplyPaymentTransition(o *entity.Order, to entity.PaymentStatus, actor Actor, now time.Time) error {
	if !to.Valid() {
		return validationf("unknown payment status %q", to)
	}
	if o.PaymentStatus.IsTerminal() {
		return transitionf("order %s payment is %s", o.ID, o.PaymentStatus)
	}
	if !CanTransitionPayment(o.PaymentStatus, to) {
		return transitionf("payment %s -> %s", o.PaymentStatus, to)
	}

	switch actor.Kind {
	case ActorAdmin:
	case ActorReconciler:
		if to != entity.PaymentStatusPaid || o.PaymentMethod != entity.PaymentMethodBankTransfer {
			return transitionf("reconciler cannot set %s on a %s order", to, o.PaymentMethod)
		}
	default:
		return transitionf("%s cannot change payment status", actor.Kind)
	}

	o.PaymentStatus = to
	o.UpdatedAt = now
	if to == entity.PaymentStatusPaid {
		paidAt := now
		o.PaidAt = &paidAt
	}
	return nil
}
