package repository

import (
	"context"
	"time"

	"brunopizza/entity"

	"gorm.io/gorm"
)

type OrderRepository struct {
	DB *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{DB: db}
}

// ---------------- Orders ----------------

// CreateOrder inserts the order together with its lines and toppings.
func (r *OrderRepository) CreateOrder(tx *gorm.DB, o *entity.Order) error {
	return tx.Create(o).Error
}

// GetOrder loads an order with its lines. Returns gorm.ErrRecordNotFound when missing.
func (r *OrderRepository) GetOrder(ctx context.Context, orderID string) (*entity.Order, error) {
	var o entity.Order
	err := r.DB.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Lines.Toppings").
		Where("id = ?", orderID).
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ListByPayment returns every order with the given payment method and status,
// without lines. This is the reconciliation candidate query.
func (r *OrderRepository) ListByPayment(ctx context.Context, method entity.PaymentMethod, status entity.PaymentStatus) ([]entity.Order, error) {
	var out []entity.Order
	err := r.DB.WithContext(ctx).
		Where("payment_method = ? AND payment_status = ?", method, status).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

type OrderFilter struct {
	Status        entity.OrderStatus
	PaymentStatus entity.PaymentStatus
	PaymentMethod entity.PaymentMethod
	UserID        *uint
}

// ListOrders pages through orders newest first, filtered by equality on set fields.
func (r *OrderRepository) ListOrders(ctx context.Context, f OrderFilter, page, limit int) ([]entity.Order, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	offset := (page - 1) * limit

	q := r.DB.WithContext(ctx).Model(&entity.Order{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.PaymentStatus != "" {
		q = q.Where("payment_status = ?", f.PaymentStatus)
	}
	if f.PaymentMethod != "" {
		q = q.Where("payment_method = ?", f.PaymentMethod)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []entity.Order
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// UpdateStatusGuard moves status from -> to only if the row still holds from.
// RowsAffected == 0 means the guard failed (missing order or lost race).
func (r *OrderRepository) UpdateStatusGuard(tx *gorm.DB, orderID string, from, to entity.OrderStatus, now time.Time) (int64, error) {
	res := tx.Model(&entity.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(map[string]any{"status": to, "updated_at": now})
	return res.RowsAffected, res.Error
}

// UpdatePaymentStatusGuard is the payment-axis compare-and-swap. paidAt is written
// only when non-nil.
func (r *OrderRepository) UpdatePaymentStatusGuard(tx *gorm.DB, orderID string, from, to entity.PaymentStatus, now time.Time, paidAt *time.Time) (int64, error) {
	updates := map[string]any{
		"payment_status": to,
		"updated_at":     now,
	}
	if paidAt != nil {
		updates["paid_at"] = paidAt
	}
	res := tx.Model(&entity.Order{}).
		Where("id = ? AND payment_status = ?", orderID, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// UpdateNote edits admin metadata; lines and prices are never touched.
func (r *OrderRepository) UpdateNote(ctx context.Context, orderID, note string, now time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&entity.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{"note": note, "updated_at": now})
	return res.RowsAffected, res.Error
}

// ---------------- Status log ----------------

func (r *OrderRepository) CreateStatusLog(tx *gorm.DB, l *entity.OrderStatusLog) error {
	return tx.Create(l).Error
}

func (r *OrderRepository) ListStatusLogs(ctx context.Context, orderID string) ([]entity.OrderStatusLog, error) {
	var out []entity.OrderStatusLog
	err := r.DB.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}
