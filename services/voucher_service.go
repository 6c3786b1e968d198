package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"brunopizza/entity"
	"brunopizza/pkg/pricing"
	"brunopizza/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func utcNow() time.Time { return time.Now().UTC() }

type VoucherService struct {
	Repo *repository.VoucherRepository
	Log  *zap.Logger
	Now  func() time.Time
}

func NewVoucherService(repo *repository.VoucherRepository, log *zap.Logger) *VoucherService {
	return &VoucherService{Repo: repo, Log: log, Now: utcNow}
}

// Check looks the code up and validates it. An unknown code is a verdict, not an
// error. An expired voucher is frozen before the verdict is returned.
func (s *VoucherService) Check(ctx context.Context, code string) (*entity.Voucher, VoucherVerdict, error) {
	v, err := s.Repo.GetByCode(ctx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ValidateVoucher(nil, s.Now()), nil
	}
	if err != nil {
		return nil, VoucherVerdict{}, storeErr(err)
	}

	now := s.Now()
	verdict := ValidateVoucher(v, now)
	if verdict.Expired {
		n, err := s.Repo.FreezeExpired(ctx, v.ID, now)
		if err != nil {
			// the verdict stands; the next check retries the freeze
			s.Log.Warn("voucher freeze failed", zap.String("code", code), zap.Error(err))
		} else if n > 0 {
			v.IsActive = false
			v.EndDate = now
			s.Log.Info("voucher expired", zap.String("code", code), zap.Uint("voucher_id", v.ID))
		}
	}
	return v, verdict, nil
}

type VoucherQuote struct {
	Code    string         `json:"code"`
	Verdict VoucherVerdict `json:"verdict"`
	pricing.Quote
}

// Quote is the storefront's "check voucher" preview for a subtotal.
func (s *VoucherService) Quote(ctx context.Context, code string, subtotal int64) (*VoucherQuote, error) {
	if subtotal < 0 {
		return nil, validationf("subtotal must be >= 0")
	}
	v, verdict, err := s.Check(ctx, code)
	if err != nil {
		return nil, err
	}
	decision := pricing.NoVoucher()
	if verdict.Accepted {
		decision = pricing.Accept(v)
	}
	q, err := pricing.Price([]pricing.Line{{BasePrice: subtotal, Quantity: 1}}, decision)
	if err != nil {
		return nil, validationf("%v", err)
	}
	return &VoucherQuote{Code: code, Verdict: verdict, Quote: q}, nil
}

// ---------------- Admin ----------------

type CreateVoucherReq struct {
	Code          string              `json:"code" binding:"required"`
	Name          string              `json:"name"`
	DiscountKind  entity.DiscountKind `json:"discountKind" binding:"required"`
	DiscountValue decimal.Decimal     `json:"discountValue"`
	StartDate     time.Time           `json:"startDate" binding:"required"`
	EndDate       time.Time           `json:"endDate" binding:"required"`
	MaxUsageCount int                 `json:"maxUsageCount"`
	IsActive      *bool               `json:"isActive"`
}

type UpdateVoucherReq struct {
	Name          *string              `json:"name"`
	DiscountKind  *entity.DiscountKind `json:"discountKind"`
	DiscountValue *decimal.Decimal     `json:"discountValue"`
	StartDate     *time.Time           `json:"startDate"`
	EndDate       *time.Time           `json:"endDate"`
	MaxUsageCount *int                 `json:"maxUsageCount"`
	IsActive      *bool                `json:"isActive"`
}

var hundred = decimal.NewFromInt(100)

func validateVoucherFields(v *entity.Voucher) error {
	if strings.TrimSpace(v.Code) == "" {
		return validationf("code is required")
	}
	if !v.DiscountKind.Valid() {
		return validationf("discountKind must be PERCENTAGE or FIXED")
	}
	if v.DiscountValue.IsNegative() {
		return validationf("discountValue must be >= 0")
	}
	if v.DiscountKind == entity.DiscountPercentage && v.DiscountValue.GreaterThan(hundred) {
		return validationf("percentage discount must be within 0-100")
	}
	if v.EndDate.Before(v.StartDate) {
		return validationf("endDate is before startDate")
	}
	if v.MaxUsageCount < 0 {
		return validationf("maxUsageCount must be >= 0")
	}
	if v.MaxUsageCount > 0 && v.CurrentUsageCount > v.MaxUsageCount {
		return validationf("maxUsageCount is below current usage %d", v.CurrentUsageCount)
	}
	return nil
}

func (s *VoucherService) Create(ctx context.Context, req *CreateVoucherReq) (*entity.Voucher, error) {
	v := &entity.Voucher{
		Code:          strings.TrimSpace(req.Code),
		Name:          strings.TrimSpace(req.Name),
		DiscountKind:  req.DiscountKind,
		DiscountValue: req.DiscountValue,
		StartDate:     req.StartDate.UTC(),
		EndDate:       req.EndDate.UTC(),
		MaxUsageCount: req.MaxUsageCount,
		IsActive:      true,
	}
	if req.IsActive != nil {
		v.IsActive = *req.IsActive
	}
	if err := validateVoucherFields(v); err != nil {
		return nil, err
	}
	if err := s.Repo.Create(ctx, v); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: voucher code %q already exists", ErrConflict, v.Code)
		}
		return nil, storeErr(err)
	}
	return v, nil
}

func (s *VoucherService) List(ctx context.Context) ([]entity.Voucher, error) {
	out, err := s.Repo.List(ctx)
	return out, storeErr(err)
}

// Update edits voucher settings. Usage count is owned by order creation and is not
// editable here.
func (s *VoucherService) Update(ctx context.Context, id uint, req *UpdateVoucherReq) (*entity.Voucher, error) {
	v, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}

	updates := map[string]any{}
	if req.Name != nil {
		v.Name = strings.TrimSpace(*req.Name)
		updates["name"] = v.Name
	}
	if req.DiscountKind != nil {
		v.DiscountKind = *req.DiscountKind
		updates["discount_kind"] = v.DiscountKind
	}
	if req.DiscountValue != nil {
		v.DiscountValue = *req.DiscountValue
		updates["discount_value"] = v.DiscountValue
	}
	if req.StartDate != nil {
		v.StartDate = req.StartDate.UTC()
		updates["start_date"] = v.StartDate
	}
	if req.EndDate != nil {
		v.EndDate = req.EndDate.UTC()
		updates["end_date"] = v.EndDate
	}
	if req.MaxUsageCount != nil {
		v.MaxUsageCount = *req.MaxUsageCount
		updates["max_usage_count"] = v.MaxUsageCount
	}
	if req.IsActive != nil {
		v.IsActive = *req.IsActive
		updates["is_active"] = v.IsActive
	}
	if len(updates) == 0 {
		return v, nil
	}
	if err := validateVoucherFields(v); err != nil {
		return nil, err
	}
	if err := s.Repo.Update(ctx, id, updates); err != nil {
		return nil, storeErr(err)
	}
	return v, nil
}
