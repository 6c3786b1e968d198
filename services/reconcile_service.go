package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"brunopizza/entity"
	"brunopizza/pkg/metrics"
	"brunopizza/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BankEvent is one payment-gateway notification (Sepay webhook body).
type BankEvent struct {
	ID              int64   `json:"id"`
	Gateway         string  `json:"gateway"`
	TransactionDate string  `json:"transactionDate"`
	AccountNumber   string  `json:"accountNumber"`
	Code            *string `json:"code"`
	Content         string  `json:"content"`
	TransferType    string  `json:"transferType"`
	TransferAmount  int64   `json:"transferAmount"`
	Accumulated     int64   `json:"accumulated"`
	SubAccount      *string `json:"subAccount"`
	ReferenceCode   string  `json:"referenceCode"`
	Description     string  `json:"description"`
}

const transferOut = "out"

type ReconcileResult struct {
	Matched     []string `json:"matched"`
	Skipped     []string `json:"skipped,omitempty"`
	Failed      []string `json:"failed,omitempty"`
	Redelivered bool     `json:"redelivered"`
}

type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

type ReconcileService struct {
	Orders *OrderService
	Repo   *repository.OrderRepository
	Ledger *repository.BankTransactionRepository

	Metrics *metrics.ServerMetrics
	Log     *zap.Logger

	// Timeout bounds one event; 0 leaves the caller's deadline alone.
	Timeout     time.Duration
	Retry       RetryPolicy
	Parallelism int
}

func NewReconcileService(
	orders *OrderService,
	ledger *repository.BankTransactionRepository,
	m *metrics.ServerMetrics,
	log *zap.Logger,
	timeout time.Duration,
) *ReconcileService {
	return &ReconcileService{
		Orders:      orders,
		Repo:        orders.Repo,
		Ledger:      ledger,
		Metrics:     m,
		Log:         log,
		Timeout:     timeout,
		Retry:       RetryPolicy{Attempts: 3, Backoff: 100 * time.Millisecond},
		Parallelism: 4,
	}
}

// Matches reports whether ev pays o: the transfer content contains the order id
// (case-sensitive) and the amount equals the final price exactly.
func Matches(ev BankEvent, o *entity.Order) bool {
	return o.ID != "" && strings.Contains(ev.Content, o.ID) && ev.TransferAmount == o.FinalPrice
}

// Reconcile marks every unpaid bank-transfer order that ev pays as PAID.
//
// Each candidate is written with a compare-and-swap, so redelivery and concurrent
// deliveries converge: a candidate that is already PAID is skipped, never paid twice.
// Per-candidate failures are logged and do not fail the event. The returned error is
// ErrUnavailable when the event could not be processed at all (store down, deadline
// hit) and the gateway should redeliver.
func (s *ReconcileService) Reconcile(ctx context.Context, ev BankEvent) (*ReconcileResult, error) {
	if ev.ID <= 0 {
		return nil, validationf("transaction id is required")
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	log := s.Log.With(zap.Int64("transaction_id", ev.ID), zap.String("reference_code", ev.ReferenceCode))
	res := &ReconcileResult{Matched: []string{}}

	redelivered, err := s.Ledger.Record(ctx, &entity.BankTransaction{
		GatewayTxID:     ev.ID,
		Gateway:         ev.Gateway,
		TransactionDate: ev.TransactionDate,
		AccountNumber:   ev.AccountNumber,
		Content:         ev.Content,
		TransferType:    ev.TransferType,
		TransferAmount:  ev.TransferAmount,
		ReferenceCode:   ev.ReferenceCode,
		Description:     ev.Description,
	})
	if err != nil {
		s.Metrics.ReconcileEvent("error")
		return nil, storeErr(err)
	}
	res.Redelivered = redelivered
	if redelivered {
		log.Info("bank transaction redelivered")
	}

	if strings.EqualFold(ev.TransferType, transferOut) {
		s.Metrics.ReconcileEvent("ignored")
		log.Info("outgoing transfer ignored")
		return res, nil
	}

	candidates, err := s.Repo.ListByPayment(ctx, entity.PaymentMethodBankTransfer, entity.PaymentStatusUnpaid)
	if err != nil {
		s.Metrics.ReconcileEvent("error")
		return nil, storeErr(err)
	}

	var matched []*entity.Order
	for i := range candidates {
		if Matches(ev, &candidates[i]) {
			matched = append(matched, &candidates[i])
		}
	}
	if len(matched) > 1 {
		log.Warn("transfer matches several orders", zap.Int("count", len(matched)))
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	if s.Parallelism > 0 {
		g.SetLimit(s.Parallelism)
	}
	for _, o := range matched {
		g.Go(func() error {
			outcome := s.settle(ctx, o)
			olog := log.With(zap.String("order_id", o.ID))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case outcome == nil:
				res.Matched = append(res.Matched, o.ID)
				s.Metrics.ReconcileCandidate("paid")
				olog.Info("order paid by bank transfer", zap.Int64("amount", ev.TransferAmount))
			case errors.Is(outcome, ErrConflict), errors.Is(outcome, ErrInvalidTransition):
				res.Skipped = append(res.Skipped, o.ID)
				s.Metrics.ReconcileCandidate("conflict")
				olog.Info("order already settled, skipped", zap.Error(outcome))
			default:
				res.Failed = append(res.Failed, o.ID)
				s.Metrics.ReconcileCandidate("failed")
				olog.Error("mark order paid failed", zap.Error(outcome))
			}
			return nil
		})
	}
	_ = g.Wait()
	sort.Strings(res.Matched)
	sort.Strings(res.Skipped)
	sort.Strings(res.Failed)

	if err := ctx.Err(); err != nil {
		s.Metrics.ReconcileEvent("error")
		return nil, fmt.Errorf("%w: reconcile interrupted: %w", ErrUnavailable, err)
	}

	if err := s.Ledger.MarkProcessed(ctx, ev.ID, res.Matched, s.Orders.Now()); err != nil {
		log.Warn("mark bank transaction processed failed", zap.Error(err))
	}

	if len(res.Matched) > 0 {
		s.Metrics.ReconcileEvent("matched")
	} else {
		s.Metrics.ReconcileEvent("unmatched")
	}
	log.Info("bank transaction reconciled",
		zap.Int("candidates", len(candidates)),
		zap.Strings("matched", res.Matched),
		zap.Int("skipped", len(res.Skipped)),
		zap.Int("failed", len(res.Failed)))
	return res, nil
}

// settle marks one candidate paid, retrying only while the store is unavailable.
func (s *ReconcileService) settle(ctx context.Context, o *entity.Order) error {
	attempts := s.Retry.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		// each attempt validates against a fresh copy of the candidate as listed
		cand := *o
		err = s.Orders.applyPayment(ctx, &cand, entity.PaymentStatusPaid, Reconciler)
		if err == nil || !errors.Is(err, ErrUnavailable) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
		case <-time.After(s.Retry.Backoff * time.Duration(i+1)):
		}
	}
	return err
}
