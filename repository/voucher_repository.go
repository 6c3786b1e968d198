package repository

import (
	"context"
	"time"

	"brunopizza/entity"

	"gorm.io/gorm"
)

type VoucherRepository struct {
	DB *gorm.DB
}

func NewVoucherRepository(db *gorm.DB) *VoucherRepository {
	return &VoucherRepository{DB: db}
}

// GetByCode matches the code exactly (case-sensitive).
func (r *VoucherRepository) GetByCode(ctx context.Context, code string) (*entity.Voucher, error) {
	var v entity.Voucher
	if err := r.DB.WithContext(ctx).Where("code = ?", code).First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *VoucherRepository) GetByID(ctx context.Context, id uint) (*entity.Voucher, error) {
	var v entity.Voucher
	if err := r.DB.WithContext(ctx).First(&v, id).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *VoucherRepository) List(ctx context.Context) ([]entity.Voucher, error) {
	var out []entity.Voucher
	err := r.DB.WithContext(ctx).Order("id DESC").Find(&out).Error
	return out, err
}

// Voucher windows are stored in UTC. SQLite keeps times as offset-bearing text and
// compares them as strings, so mixed offsets would break the window guards.

func (r *VoucherRepository) Create(ctx context.Context, v *entity.Voucher) error {
	v.StartDate = v.StartDate.UTC()
	v.EndDate = v.EndDate.UTC()
	return r.DB.WithContext(ctx).Create(v).Error
}

func (r *VoucherRepository) Update(ctx context.Context, id uint, updates map[string]any) error {
	for k, val := range updates {
		if t, ok := val.(time.Time); ok {
			updates[k] = t.UTC()
		}
	}
	return r.DB.WithContext(ctx).Model(&entity.Voucher{}).Where("id = ?", id).Updates(updates).Error
}

// FreezeExpired deactivates an expired voucher and pins end_date to now. The guard
// makes it a no-op once frozen, so concurrent callers converge on the first write.
func (r *VoucherRepository) FreezeExpired(ctx context.Context, id uint, now time.Time) (int64, error) {
	now = now.UTC()
	res := r.DB.WithContext(ctx).Model(&entity.Voucher{}).
		Where("id = ? AND is_active = ? AND end_date < ?", id, true, now).
		Updates(map[string]any{"is_active": false, "end_date": now})
	return res.RowsAffected, res.Error
}

// IncrementUsageGuard consumes one use inside tx only while the voucher is active,
// inside its window and under its cap (0 = unlimited).
func (r *VoucherRepository) IncrementUsageGuard(tx *gorm.DB, id uint, now time.Time) (int64, error) {
	now = now.UTC()
	res := tx.Model(&entity.Voucher{}).
		Where("id = ? AND is_active = ? AND start_date <= ? AND end_date >= ?", id, true, now, now).
		Where("max_usage_count = 0 OR current_usage_count < max_usage_count").
		UpdateColumn("current_usage_count", gorm.Expr("current_usage_count + ?", 1))
	return res.RowsAffected, res.Error
}
