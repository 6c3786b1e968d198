package services

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"brunopizza/entity"
	"brunopizza/pkg/events"
	"brunopizza/pkg/pricing"
	"brunopizza/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrder_GuestCash(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := env.guestReq(entity.PaymentMethodCash, CartLineIn{
		ProductID: env.fx.margherita.ID, SizeID: env.fx.medium.ID, Quantity: 2,
		ToppingIDs: []uint{env.topping(0)},
	})
	out, err := env.orders.Create(ctx, Actor{Kind: ActorGuest}, req)
	require.NoError(t, err)

	o := out.Order
	assert.Len(t, o.ID, 32)
	assert.Equal(t, strings.ToLower(o.ID), o.ID)
	assert.Equal(t, int64(580000), o.TotalPrice) // (250000 + 30000 + 10000) * 2
	assert.Equal(t, int64(0), o.DiscountPrice)
	assert.Equal(t, int64(580000), o.FinalPrice)
	assert.Equal(t, entity.OrderStatusPending, o.Status)
	assert.Equal(t, entity.PaymentStatusUnpaid, o.PaymentStatus)
	assert.Nil(t, o.UserID)
	assert.Equal(t, "Linh", o.GuestName)
	assert.Empty(t, out.PaymentQRURL)

	stored, err := env.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	line := stored.Lines[0]
	assert.Equal(t, int64(290000), line.UnitPrice)
	assert.Equal(t, int64(580000), line.LineTotal)
	assert.Equal(t, int64(10000), line.ToppingTotal)
	require.Len(t, line.Toppings, 1)
	assert.Equal(t, env.topping(0), line.Toppings[0].ToppingID)

	assert.Equal(t, []string{events.OrderCreated}, env.pub.types())

	history, err := env.orders.History(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "PENDING", history[0].ToValue)
	assert.Equal(t, "guest", history[0].Actor)
}

func TestCreateOrder_BankTransferWithPercentageVoucher(t *testing.T) {
	env := newTestEnv(t)
	v := env.createVoucher(t, percentVoucher("TENOFF", 10))

	req := env.guestReq(entity.PaymentMethodBankTransfer, env.margheritaLine(2))
	req.VoucherCode = "TENOFF"
	out, err := env.orders.Create(context.Background(), Actor{Kind: ActorGuest}, req)
	require.NoError(t, err)

	assert.Equal(t, int64(500000), out.Order.TotalPrice)
	assert.Equal(t, int64(50000), out.Order.DiscountPrice)
	assert.Equal(t, int64(450000), out.Order.FinalPrice)
	require.NotNil(t, out.Order.VoucherID)
	assert.Equal(t, v.ID, *out.Order.VoucherID)
	assert.Contains(t, out.PaymentQRURL, "amount=450000")
	assert.Contains(t, out.PaymentQRURL, "des="+out.Order.ID)

	var reloaded entity.Voucher
	require.NoError(t, env.db.First(&reloaded, v.ID).Error)
	assert.Equal(t, 1, reloaded.CurrentUsageCount)
}

func TestCreateOrder_FixedVoucherClampsFinalPrice(t *testing.T) {
	env := newTestEnv(t)
	env.createVoucher(t, fixedVoucher("BIG", 400000))

	req := env.guestReq(entity.PaymentMethodCash, CartLineIn{ProductID: env.fx.custom.ID, SizeID: env.fx.small.ID, Quantity: 2})
	req.VoucherCode = "BIG"
	out, err := env.orders.Create(context.Background(), Actor{Kind: ActorGuest}, req)
	require.NoError(t, err)

	assert.Equal(t, int64(300000), out.Order.TotalPrice)
	assert.Equal(t, int64(300000), out.Order.DiscountPrice)
	assert.Equal(t, int64(0), out.Order.FinalPrice)
}

func TestCreateOrder_CustomPizza(t *testing.T) {
	env := newTestEnv(t)

	req := env.guestReq(entity.PaymentMethodCash, CartLineIn{
		ProductID: env.fx.custom.ID, SizeID: env.fx.small.ID, Quantity: 1,
		ToppingIDs: []uint{env.topping(0), env.topping(1), env.topping(2)},
	})
	out, err := env.orders.Create(context.Background(), Actor{Kind: ActorGuest}, req)
	require.NoError(t, err)

	// custom base replaces the product's list price
	assert.Equal(t, int64(150000+10000+20000+15000), out.Order.TotalPrice)
	assert.True(t, out.Order.Lines[0].Custom)
}

func TestCreateOrder_CustomPizzaRejectsSixthTopping(t *testing.T) {
	env := newTestEnv(t)

	ids := make([]uint, 0, 6)
	for i := range env.fx.toppings {
		ids = append(ids, env.topping(i))
	}
	req := env.guestReq(entity.PaymentMethodCash, CartLineIn{
		ProductID: env.fx.custom.ID, SizeID: env.fx.small.ID, Quantity: 1, ToppingIDs: ids,
	})
	_, err := env.orders.Create(context.Background(), Actor{Kind: ActorGuest}, req)
	assert.ErrorIs(t, err, ErrValidation)

	var n int64
	require.NoError(t, env.db.Model(&entity.Order{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestCreateOrder_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(r *CreateOrderReq)
	}{
		{"empty cart", func(r *CreateOrderReq) { r.Lines = nil }},
		{"missing phone", func(r *CreateOrderReq) { r.PhoneNumber = "  " }},
		{"ship without address", func(r *CreateOrderReq) { r.DeliveryType = entity.DeliveryShip }},
		{"unknown delivery type", func(r *CreateOrderReq) { r.DeliveryType = "DRONE" }},
		{"unknown payment method", func(r *CreateOrderReq) { r.PaymentMethod = "CRYPTO" }},
		{"guest without name", func(r *CreateOrderReq) { r.GuestName = "" }},
		{"zero quantity", func(r *CreateOrderReq) { r.Lines[0].Quantity = 0 }},
		{"quantity above cap", func(r *CreateOrderReq) { r.Lines[0].Quantity = pricing.MaxQuantity + 1 }},
		{"duplicate topping", func(r *CreateOrderReq) { r.Lines[0].ToppingIDs = []uint{env.topping(0), env.topping(0)} }},
		{"unknown product", func(r *CreateOrderReq) { r.Lines[0].ProductID = 9999 }},
		{"unknown size", func(r *CreateOrderReq) { r.Lines[0].SizeID = 9999 }},
		{"unknown topping", func(r *CreateOrderReq) { r.Lines[0].ToppingIDs = []uint{9999} }},
		{"unknown voucher", func(r *CreateOrderReq) { r.VoucherCode = "NOPE" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := env.guestReq(entity.PaymentMethodCash, env.margheritaLine(1))
			tc.mutate(req)
			_, err := env.orders.Create(ctx, Actor{Kind: ActorGuest}, req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	var n int64
	require.NoError(t, env.db.Model(&entity.Order{}).Count(&n).Error)
	assert.Zero(t, n)
	assert.Empty(t, env.pub.types())
}

func TestCreateOrder_HugeQuantityIsRejectedNotFree(t *testing.T) {
	env := newTestEnv(t)
	line := CartLineIn{ProductID: env.fx.custom.ID, SizeID: env.fx.small.ID, Quantity: 1 << 60}

	_, err := env.orders.Create(context.Background(), Actor{Kind: ActorGuest}, env.guestReq(entity.PaymentMethodCash, line))
	require.ErrorIs(t, err, ErrValidation)

	var n int64
	require.NoError(t, env.db.Model(&entity.Order{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestCreateOrder_OverflowingCatalogPriceIsRejected(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.db.Model(&env.fx.margherita).Update("price", int64(math.MaxInt64/2)).Error)

	_, err := env.orders.Create(context.Background(), Actor{Kind: ActorGuest}, env.guestReq(entity.PaymentMethodCash, env.margheritaLine(3)))
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), pricing.ErrOverflow.Error())

	var n int64
	require.NoError(t, env.db.Model(&entity.Order{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestCreateOrder_UnavailableProduct(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.db.Model(&env.fx.margherita).Update("is_available", false).Error)

	_, err := env.orders.Create(context.Background(), Actor{Kind: ActorGuest}, env.guestReq(entity.PaymentMethodCash, env.margheritaLine(1)))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateOrder_ExhaustedVoucherRejected(t *testing.T) {
	env := newTestEnv(t)
	v := percentVoucher("ONCE", 10)
	v.MaxUsageCount = 1
	v.CurrentUsageCount = 1
	v = env.createVoucher(t, v)

	req := env.guestReq(entity.PaymentMethodCash, env.margheritaLine(1))
	req.VoucherCode = "ONCE"
	_, err := env.orders.Create(context.Background(), Actor{Kind: ActorGuest}, req)
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), string(VoucherExhausted))

	var reloaded entity.Voucher
	require.NoError(t, env.db.First(&reloaded, v.ID).Error)
	assert.Equal(t, 1, reloaded.CurrentUsageCount)
}

func TestCreateOrder_VoucherCapHoldsAcrossOrders(t *testing.T) {
	env := newTestEnv(t)
	v := fixedVoucher("LAST", 10000)
	v.MaxUsageCount = 1
	v = env.createVoucher(t, v)
	ctx := context.Background()

	req := env.guestReq(entity.PaymentMethodCash, env.margheritaLine(1))
	req.VoucherCode = "LAST"
	_, err := env.orders.Create(ctx, Actor{Kind: ActorGuest}, req)
	require.NoError(t, err)

	_, err = env.orders.Create(ctx, Actor{Kind: ActorGuest}, req)
	assert.ErrorIs(t, err, ErrValidation)

	var reloaded entity.Voucher
	require.NoError(t, env.db.First(&reloaded, v.ID).Error)
	assert.Equal(t, 1, reloaded.CurrentUsageCount)
}

func TestCreateOrder_UsageGuardFailureWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	v := env.createVoucher(t, fixedVoucher("EDGE", 10000))

	// the voucher is still valid when checked but has expired by the time the
	// order is written, so the guarded increment matches no row
	env.orders.Now = func() time.Time { return env.clock().Add(48 * time.Hour) }

	req := env.guestReq(entity.PaymentMethodCash, env.margheritaLine(1))
	req.VoucherCode = "EDGE"
	_, err := env.orders.Create(context.Background(), Actor{Kind: ActorGuest}, req)
	require.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "no longer usable")

	var n int64
	require.NoError(t, env.db.Model(&entity.Order{}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, env.db.Model(&entity.OrderLine{}).Count(&n).Error)
	assert.Zero(t, n)

	var reloaded entity.Voucher
	require.NoError(t, env.db.First(&reloaded, v.ID).Error)
	assert.Zero(t, reloaded.CurrentUsageCount)
	assert.Empty(t, env.pub.types())
}

func TestCreateOrder_SignedInCustomer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer := Actor{Kind: ActorCustomer, UserID: 7}

	req := env.guestReq(entity.PaymentMethodCash, env.margheritaLine(1))
	req.GuestName = ""
	out, err := env.orders.Create(ctx, customer, req)
	require.NoError(t, err)
	require.NotNil(t, out.Order.UserID)
	assert.Equal(t, uint(7), *out.Order.UserID)

	page, err := env.orders.ListForUser(ctx, 7, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, out.Order.ID, page.Items[0].ID)

	page, err = env.orders.ListForUser(ctx, 8, 1, 20)
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestTransitionStatus_HappyPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	out, err := env.orders.Create(ctx, Actor{Kind: ActorGuest}, env.guestReq(entity.PaymentMethodCash, env.margheritaLine(1)))
	require.NoError(t, err)
	id := out.Order.ID

	for _, to := range []entity.OrderStatus{entity.OrderStatusMaking, entity.OrderStatusDelivering, entity.OrderStatusDone} {
		env.advance(time.Minute)
		o, err := env.orders.TransitionStatus(ctx, id, to, admin)
		require.NoError(t, err)
		assert.Equal(t, to, o.Status)
	}

	stored := env.reload(t, id)
	assert.Equal(t, entity.OrderStatusDone, stored.Status)
	assert.True(t, stored.UpdatedAt.Equal(env.clock()))
	assert.Equal(t, int64(250000), stored.FinalPrice)

	_, err = env.orders.TransitionStatus(ctx, id, entity.OrderStatusMaking, admin)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	history, err := env.orders.History(ctx, id)
	require.NoError(t, err)
	assert.Len(t, history, 4)
	assert.Equal(t, "DELIVERING", history[3].FromValue)
	assert.Equal(t, "admin:1", history[3].Actor)

	assert.Equal(t, []string{
		events.OrderCreated, events.OrderStatusChanged, events.OrderStatusChanged, events.OrderStatusChanged,
	}, env.pub.types())
}

func TestTransitionStatus_CustomerForbidden(t *testing.T) {
	env := newTestEnv(t)
	o := env.insertOrder(t, "a1b2c3", entity.PaymentMethodCash, entity.PaymentStatusUnpaid, 1000)

	_, err := env.orders.TransitionStatus(context.Background(), o.ID, entity.OrderStatusCanceled, Actor{Kind: ActorCustomer, UserID: 3})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, entity.OrderStatusPending, env.reload(t, o.ID).Status)
}

func TestTransitionStatus_NotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.orders.TransitionStatus(context.Background(), "missing", entity.OrderStatusMaking, admin)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransitionPayment_AdminCashFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	o := env.insertOrder(t, "cash01", entity.PaymentMethodCash, entity.PaymentStatusUnpaid, 1000)

	_, err := env.orders.TransitionPayment(ctx, o.ID, entity.PaymentStatusPaid, Actor{Kind: ActorCustomer, UserID: 2})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	paid, err := env.orders.TransitionPayment(ctx, o.ID, entity.PaymentStatusPaid, admin)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusPaid, paid.PaymentStatus)
	stored := env.reload(t, o.ID)
	require.NotNil(t, stored.PaidAt)
	assert.True(t, stored.PaidAt.Equal(env.clock()))

	_, err = env.orders.TransitionPayment(ctx, o.ID, entity.PaymentStatusUnpaid, admin)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = env.orders.TransitionPayment(ctx, o.ID, entity.PaymentStatusRefunded, admin)
	require.NoError(t, err)
	_, err = env.orders.TransitionPayment(ctx, o.ID, entity.PaymentStatusPaid, admin)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	assert.Equal(t, int64(2), env.paymentLogs(t, o.ID))
}

func TestTransitionPayment_StaleReadIsConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	o := env.insertOrder(t, "stale1", entity.PaymentMethodBankTransfer, entity.PaymentStatusUnpaid, 1000)

	stale, err := env.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	_, err = env.orders.TransitionPayment(ctx, o.ID, entity.PaymentStatusPaid, Reconciler)
	require.NoError(t, err)

	err = env.orders.applyPayment(ctx, stale, entity.PaymentStatusPaid, admin)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, int64(1), env.paymentLogs(t, o.ID))
}

func TestUpdateNote(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	o := env.insertOrder(t, "note01", entity.PaymentMethodCash, entity.PaymentStatusUnpaid, 1000)

	require.NoError(t, env.orders.UpdateNote(ctx, o.ID, " ring twice "))
	stored := env.reload(t, o.ID)
	assert.Equal(t, "ring twice", stored.Note)
	assert.Equal(t, int64(1000), stored.FinalPrice)

	assert.ErrorIs(t, env.orders.UpdateNote(ctx, "missing", "x"), ErrNotFound)
}

func TestListOrders_Filters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.insertOrder(t, "o1", entity.PaymentMethodCash, entity.PaymentStatusUnpaid, 1000)
	env.insertOrder(t, "o2", entity.PaymentMethodBankTransfer, entity.PaymentStatusUnpaid, 1000)
	env.insertOrder(t, "o3", entity.PaymentMethodBankTransfer, entity.PaymentStatusPaid, 1000)

	page, err := env.orders.List(ctx, repository.OrderFilter{PaymentMethod: entity.PaymentMethodBankTransfer}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	page, err = env.orders.List(ctx, repository.OrderFilter{
		PaymentMethod: entity.PaymentMethodBankTransfer, PaymentStatus: entity.PaymentStatusUnpaid,
	}, 1, 20)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "o2", page.Items[0].ID)

	page, err = env.orders.List(ctx, repository.OrderFilter{}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Items, 1)

	_, err = env.orders.List(ctx, repository.OrderFilter{Status: "LOST"}, 1, 20)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetOrder_NotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.orders.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
