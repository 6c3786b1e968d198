package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"brunopizza/entity"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type BankTransactionRepository struct {
	DB *gorm.DB
}

func NewBankTransactionRepository(db *gorm.DB) *BankTransactionRepository {
	return &BankTransactionRepository{DB: db}
}

// Record stores a delivery. When the gateway id was already seen it bumps the
// delivery counter instead and reports redelivered = true.
func (r *BankTransactionRepository) Record(ctx context.Context, t *entity.BankTransaction) (redelivered bool, err error) {
	err = r.DB.WithContext(ctx).Create(t).Error
	if err == nil {
		return false, nil
	}
	if !isUniqueViolation(err) {
		return false, err
	}
	err = r.DB.WithContext(ctx).Model(&entity.BankTransaction{}).
		Where("gateway_tx_id = ?", t.GatewayTxID).
		UpdateColumn("deliveries", gorm.Expr("deliveries + ?", 1)).Error
	return true, err
}

// MarkProcessed stamps processed_at and appends matched order ids. Deliveries that
// matched nothing leave matched_orders alone.
func (r *BankTransactionRepository) MarkProcessed(ctx context.Context, gatewayTxID int64, matched []string, now time.Time) error {
	updates := map[string]any{"processed_at": now}
	if len(matched) > 0 {
		var t entity.BankTransaction
		if err := r.DB.WithContext(ctx).Where("gateway_tx_id = ?", gatewayTxID).First(&t).Error; err != nil {
			return err
		}
		ids := splitIDs(t.MatchedOrders)
		for _, id := range matched {
			if !contains(ids, id) {
				ids = append(ids, id)
			}
		}
		updates["matched_orders"] = strings.Join(ids, ",")
	}
	return r.DB.WithContext(ctx).Model(&entity.BankTransaction{}).
		Where("gateway_tx_id = ?", gatewayTxID).
		Updates(updates).Error
}

func (r *BankTransactionRepository) GetByGatewayID(ctx context.Context, gatewayTxID int64) (*entity.BankTransaction, error) {
	var t entity.BankTransaction
	if err := r.DB.WithContext(ctx).Where("gateway_tx_id = ?", gatewayTxID).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// isUniqueViolation covers gorm's translated error and raw postgres errors.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
