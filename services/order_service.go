package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"brunopizza/entity"
	"brunopizza/pkg/events"
	"brunopizza/pkg/metrics"
	"brunopizza/pkg/pricing"
	"brunopizza/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const publishTimeout = 5 * time.Second

type OrderService struct {
	DB       *gorm.DB
	Repo     *repository.OrderRepository
	Catalog  *repository.CatalogRepository
	Vouchers *VoucherService

	Publisher events.Publisher
	Metrics   *metrics.ServerMetrics
	Log       *zap.Logger

	CustomBasePrice int64
	QR              PaymentQR

	Now   func() time.Time
	NewID func() string
}

func NewOrderService(
	db *gorm.DB,
	repo *repository.OrderRepository,
	catalog *repository.CatalogRepository,
	vouchers *VoucherService,
	publisher events.Publisher,
	m *metrics.ServerMetrics,
	log *zap.Logger,
) *OrderService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &OrderService{
		DB: db, Repo: repo, Catalog: catalog, Vouchers: vouchers,
		Publisher: publisher, Metrics: m, Log: log,
		CustomBasePrice: pricing.DefaultCustomBasePrice,
		Now:             utcNow,
		NewID:           NewOrderID,
	}
}

// NewOrderID returns 32 lowercase hex chars. No hyphens, so banks keep it intact
// in the transfer note.
func NewOrderID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ----- DTOs from Controller -----

type CartLineIn struct {
	ProductID  uint   `json:"productId" binding:"required"`
	SizeID     uint   `json:"sizeId" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required,min=1,max=999"`
	ToppingIDs []uint `json:"toppingIds"`
}

type CreateOrderReq struct {
	GuestName       string               `json:"guestName"`
	PhoneNumber     string               `json:"phoneNumber" binding:"required"`
	DeliveryType    entity.DeliveryType  `json:"deliveryType" binding:"required,oneof=TAKE_AWAY SHIP"`
	DeliveryAddress string               `json:"deliveryAddress"`
	PaymentMethod   entity.PaymentMethod `json:"paymentMethod" binding:"required,oneof=CASH BANK_TRANSFER"`
	VoucherCode     string               `json:"voucherCode"`
	Note            string               `json:"note"`
	Lines           []CartLineIn         `json:"lines" binding:"required,min=1,dive"`
}

type CreateOrderRes struct {
	Order        *entity.Order `json:"order"`
	PaymentQRURL string        `json:"paymentQrUrl,omitempty"`
}

func (req *CreateOrderReq) validate(actor Actor) error {
	if len(req.Lines) == 0 {
		return validationf("%v", pricing.ErrEmptyCart)
	}
	if strings.TrimSpace(req.PhoneNumber) == "" {
		return validationf("phoneNumber is required")
	}
	if !req.DeliveryType.Valid() {
		return validationf("deliveryType must be TAKE_AWAY or SHIP")
	}
	if req.DeliveryType == entity.DeliveryShip && strings.TrimSpace(req.DeliveryAddress) == "" {
		return validationf("deliveryAddress is required for SHIP")
	}
	if !req.PaymentMethod.Valid() {
		return validationf("paymentMethod must be CASH or BANK_TRANSFER")
	}
	if actor.Kind != ActorCustomer && actor.Kind != ActorAdmin && strings.TrimSpace(req.GuestName) == "" {
		return validationf("guestName is required when not signed in")
	}
	for i, l := range req.Lines {
		if l.Quantity < 1 || l.Quantity > pricing.MaxQuantity {
			return validationf("line %d: %v", i, pricing.ErrBadQuantity)
		}
		if err := pricing.CheckToppingSet(l.ToppingIDs); err != nil {
			return validationf("line %d: %v", i, err)
		}
	}
	return nil
}

// priceLines resolves catalog prices server side and snapshots them into order lines.
func (s *OrderService) priceLines(ctx context.Context, in []CartLineIn) ([]pricing.Line, []entity.OrderLine, error) {
	var productIDs, sizeIDs, toppingIDs []uint
	for _, l := range in {
		productIDs = append(productIDs, l.ProductID)
		sizeIDs = append(sizeIDs, l.SizeID)
		toppingIDs = append(toppingIDs, l.ToppingIDs...)
	}

	products, err := s.Catalog.ProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, nil, storeErr(err)
	}
	sizes, err := s.Catalog.SizesByIDs(ctx, sizeIDs)
	if err != nil {
		return nil, nil, storeErr(err)
	}
	toppings, err := s.Catalog.ToppingsByIDs(ctx, toppingIDs)
	if err != nil {
		return nil, nil, storeErr(err)
	}

	lines := make([]pricing.Line, 0, len(in))
	rows := make([]entity.OrderLine, 0, len(in))
	for i, l := range in {
		p, ok := products[l.ProductID]
		if !ok || !p.IsAvailable {
			return nil, nil, validationf("line %d: product %d not available", i, l.ProductID)
		}
		sz, ok := sizes[l.SizeID]
		if !ok {
			return nil, nil, validationf("line %d: size %d not found", i, l.SizeID)
		}

		prices := make([]pricing.Money, 0, len(l.ToppingIDs))
		tops := make([]entity.OrderLineTopping, 0, len(l.ToppingIDs))
		for _, tid := range l.ToppingIDs {
			t, ok := toppings[tid]
			if !ok || !t.IsAvailable {
				return nil, nil, validationf("line %d: topping %d not available", i, tid)
			}
			prices = append(prices, t.Price)
			tops = append(tops, entity.OrderLineTopping{ToppingID: t.ID, Price: t.Price})
		}

		var line pricing.Line
		if p.IsCustom {
			line, err = pricing.CustomLine(s.CustomBasePrice, sz.PriceDelta, prices, l.Quantity)
		} else {
			line = pricing.Line{BasePrice: p.Price, SizeDelta: sz.PriceDelta, ToppingPrices: prices, Quantity: l.Quantity}
			err = line.Validate()
		}
		if err != nil {
			return nil, nil, validationf("line %d: %v", i, err)
		}

		lines = append(lines, line)
		rows = append(rows, entity.OrderLine{
			ProductID:    p.ID,
			SizeID:       sz.ID,
			Quantity:     l.Quantity,
			BasePrice:    line.BasePrice,
			SizeDelta:    line.SizeDelta,
			ToppingTotal: line.ToppingTotal(),
			UnitPrice:    line.UnitPrice(),
			LineTotal:    line.Total(),
			Custom:       p.IsCustom,
			Toppings:     tops,
		})
	}
	return lines, rows, nil
}

// ----- Create -----

// Create prices the cart and persists the order, its lines and the voucher usage
// in one transaction. Nothing is published until the commit succeeds.
func (s *OrderService) Create(ctx context.Context, actor Actor, req *CreateOrderReq) (*CreateOrderRes, error) {
	if err := req.validate(actor); err != nil {
		return nil, err
	}

	lines, rows, err := s.priceLines(ctx, req.Lines)
	if err != nil {
		return nil, err
	}

	decision := pricing.NoVoucher()
	var voucher *entity.Voucher
	if code := strings.TrimSpace(req.VoucherCode); code != "" {
		v, verdict, err := s.Vouchers.Check(ctx, code)
		if err != nil {
			return nil, err
		}
		if !verdict.Accepted {
			return nil, validationf("voucher %s: %s", code, verdict.Reason)
		}
		voucher = v
		decision = pricing.Accept(v)
	}
	quote, err := pricing.Price(lines, decision)
	if err != nil {
		return nil, validationf("%v", err)
	}

	now := s.Now()
	order := entity.Order{
		ID:              s.NewID(),
		PhoneNumber:     strings.TrimSpace(req.PhoneNumber),
		DeliveryType:    req.DeliveryType,
		DeliveryAddress: strings.TrimSpace(req.DeliveryAddress),
		TotalPrice:      quote.TotalPrice,
		DiscountPrice:   quote.DiscountPrice,
		FinalPrice:      quote.FinalPrice,
		Status:          entity.OrderStatusPending,
		PaymentStatus:   entity.PaymentStatusUnpaid,
		PaymentMethod:   req.PaymentMethod,
		Note:            strings.TrimSpace(req.Note),
		Lines:           rows,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if actor.Kind == ActorCustomer || actor.Kind == ActorAdmin {
		uid := actor.UserID
		order.UserID = &uid
	}
	order.GuestName = strings.TrimSpace(req.GuestName)
	if voucher != nil {
		order.VoucherID = &voucher.ID
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if voucher != nil {
			n, err := s.Vouchers.Repo.IncrementUsageGuard(tx, voucher.ID, now)
			if err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("%w: voucher %s is no longer usable", ErrConflict, voucher.Code)
			}
		}
		if err := s.Repo.CreateOrder(tx, &order); err != nil {
			return err
		}
		return s.Repo.CreateStatusLog(tx, &entity.OrderStatusLog{
			OrderID:   order.ID,
			Field:     "status",
			ToValue:   string(entity.OrderStatusPending),
			Actor:     actor.String(),
			ChangedAt: now,
		})
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, err
		}
		return nil, storeErr(err)
	}

	s.Metrics.OrderCreated(string(order.PaymentMethod))
	s.Log.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("payment_method", string(order.PaymentMethod)),
		zap.Int64("final_price", order.FinalPrice),
		zap.String("actor", actor.String()))
	s.publish(ctx, events.New(events.OrderCreated, order.ID, map[string]any{
		"finalPrice":    order.FinalPrice,
		"paymentMethod": order.PaymentMethod,
		"status":        order.Status,
		"paymentStatus": order.PaymentStatus,
	}))

	res := &CreateOrderRes{Order: &order}
	if order.PaymentMethod == entity.PaymentMethodBankTransfer {
		res.PaymentQRURL = s.QR.URL(order.ID, order.FinalPrice)
	}
	return res, nil
}

// ----- Transitions -----

func (s *OrderService) TransitionStatus(ctx context.Context, orderID string, to entity.OrderStatus, actor Actor) (*entity.Order, error) {
	o, err := s.Repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, storeErr(err)
	}
	from := o.Status
	now := s.Now()
	if err := ApplyStatusTransition(o, to, actor, now); err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := s.Repo.UpdateStatusGuard(tx, o.ID, from, to, now)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: order %s is no longer %s", ErrConflict, o.ID, from)
		}
		return s.Repo.CreateStatusLog(tx, &entity.OrderStatusLog{
			OrderID: o.ID, Field: "status",
			FromValue: string(from), ToValue: string(to),
			Actor: actor.String(), ChangedAt: now,
		})
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, err
		}
		return nil, storeErr(err)
	}

	s.Log.Info("order status changed",
		zap.String("order_id", o.ID), zap.String("from", string(from)), zap.String("to", string(to)),
		zap.String("actor", actor.String()))
	s.publish(ctx, events.New(events.OrderStatusChanged, o.ID, map[string]any{
		"from": from, "to": to, "actor": actor.String(),
	}))
	return o, nil
}

func (s *OrderService) TransitionPayment(ctx context.Context, orderID string, to entity.PaymentStatus, actor Actor) (*entity.Order, error) {
	o, err := s.Repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, storeErr(err)
	}
	if err := s.applyPayment(ctx, o, to, actor); err != nil {
		return nil, err
	}
	return o, nil
}

// applyPayment validates against o as read, then writes with a compare-and-swap on
// the payment status it was read with. A lost race is ErrConflict and leaves the
// row untouched.
func (s *OrderService) applyPayment(ctx context.Context, o *entity.Order, to entity.PaymentStatus, actor Actor) error {
	from := o.PaymentStatus
	now := s.Now()
	if err := ApplyPaymentTransition(o, to, actor, now); err != nil {
		return err
	}
	var paidAt *time.Time
	if to == entity.PaymentStatusPaid {
		paidAt = o.PaidAt
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := s.Repo.UpdatePaymentStatusGuard(tx, o.ID, from, to, now, paidAt)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: order %s payment is no longer %s", ErrConflict, o.ID, from)
		}
		return s.Repo.CreateStatusLog(tx, &entity.OrderStatusLog{
			OrderID: o.ID, Field: "paymentStatus",
			FromValue: string(from), ToValue: string(to),
			Actor: actor.String(), ChangedAt: now,
		})
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return err
		}
		return storeErr(err)
	}

	s.Log.Info("order payment status changed",
		zap.String("order_id", o.ID), zap.String("from", string(from)), zap.String("to", string(to)),
		zap.String("actor", actor.String()))
	s.publish(ctx, events.New(events.OrderPaymentStatusChanged, o.ID, map[string]any{
		"from": from, "to": to, "actor": actor.String(),
	}))
	return nil
}

// UpdateNote edits admin metadata only.
func (s *OrderService) UpdateNote(ctx context.Context, orderID, note string) error {
	n, err := s.Repo.UpdateNote(ctx, orderID, strings.TrimSpace(note), s.Now())
	if err != nil {
		return storeErr(err)
	}
	if n == 0 {
		return fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	return nil
}

// ----- Queries -----

func (s *OrderService) Get(ctx context.Context, orderID string) (*entity.Order, error) {
	o, err := s.Repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, storeErr(err)
	}
	return o, nil
}

type OrderPage struct {
	Items []entity.Order `json:"items"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

func (s *OrderService) List(ctx context.Context, f repository.OrderFilter, page, limit int) (*OrderPage, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, validationf("unknown status %q", f.Status)
	}
	if f.PaymentStatus != "" && !f.PaymentStatus.Valid() {
		return nil, validationf("unknown payment status %q", f.PaymentStatus)
	}
	if f.PaymentMethod != "" && !f.PaymentMethod.Valid() {
		return nil, validationf("unknown payment method %q", f.PaymentMethod)
	}
	page, limit = normalizePage(page, limit)
	items, total, err := s.Repo.ListOrders(ctx, f, page, limit)
	if err != nil {
		return nil, storeErr(err)
	}
	return &OrderPage{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func normalizePage(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	return page, limit
}

func (s *OrderService) ListForUser(ctx context.Context, userID uint, page, limit int) (*OrderPage, error) {
	return s.List(ctx, repository.OrderFilter{UserID: &userID}, page, limit)
}

func (s *OrderService) History(ctx context.Context, orderID string) ([]entity.OrderStatusLog, error) {
	if _, err := s.Get(ctx, orderID); err != nil {
		return nil, err
	}
	logs, err := s.Repo.ListStatusLogs(ctx, orderID)
	return logs, storeErr(err)
}

// publish runs after commit. It outlives request cancellation and its failures are
// only logged.
func (s *OrderService) publish(ctx context.Context, ev events.Event) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.Publisher.Publish(pctx, ev); err != nil {
		s.Log.Warn("publish order event failed",
			zap.String("type", ev.Type), zap.String("order_id", ev.OrderID), zap.Error(err))
	}
}
