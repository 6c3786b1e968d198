package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"brunopizza/configs"
	"brunopizza/entity"
	"brunopizza/pkg/events"
	"brunopizza/pkg/metrics"
	"brunopizza/repository"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	margherita entity.Product
	custom     entity.Product
	small      entity.Size
	medium     entity.Size
	toppings   []entity.Topping // cheese, ham, olives, mushroom, pepper, onion
}

type testEnv struct {
	db         *gorm.DB
	orders     *OrderService
	vouchers   *VoucherService
	reconciler *ReconcileService
	pub        *recordingPublisher
	fx         fixture

	mu  sync.Mutex
	now time.Time
}

func (e *testEnv) clock() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

func (e *testEnv) advance(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = e.now.Add(d)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps the in-memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, configs.SetupDatabase(db))
	return db
}

func seedFixture(t *testing.T, db *gorm.DB) fixture {
	t.Helper()
	fx := fixture{
		margherita: entity.Product{Name: "Margherita", Price: 250000, IsAvailable: true},
		custom:     entity.Product{Name: "Custom Pizza", Price: 999999, IsCustom: true, IsAvailable: true},
		small:      entity.Size{Name: "S", PriceDelta: 0},
		medium:     entity.Size{Name: "M", PriceDelta: 30000},
		toppings: []entity.Topping{
			{Name: "Cheese", Price: 10000, IsAvailable: true},
			{Name: "Ham", Price: 20000, IsAvailable: true},
			{Name: "Olives", Price: 15000, IsAvailable: true},
			{Name: "Mushroom", Price: 12000, IsAvailable: true},
			{Name: "Pepper", Price: 8000, IsAvailable: true},
			{Name: "Onion", Price: 5000, IsAvailable: true},
		},
	}
	require.NoError(t, db.Create(&fx.margherita).Error)
	require.NoError(t, db.Create(&fx.custom).Error)
	require.NoError(t, db.Create(&fx.small).Error)
	require.NoError(t, db.Create(&fx.medium).Error)
	require.NoError(t, db.Create(&fx.toppings).Error)
	return fx
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	env := &testEnv{
		db:  db,
		pub: &recordingPublisher{},
		fx:  seedFixture(t, db),
		now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	log := zap.NewNop()
	m := metrics.NewServerMetrics(prometheus.NewRegistry())

	env.vouchers = NewVoucherService(repository.NewVoucherRepository(db), log)
	env.vouchers.Now = env.clock
	env.orders = NewOrderService(db, repository.NewOrderRepository(db), repository.NewCatalogRepository(db), env.vouchers, env.pub, m, log)
	env.orders.Now = env.clock
	env.orders.QR = PaymentQR{BankCode: "MB", AccountNumber: "0123456789", Template: "compact"}
	env.reconciler = NewReconcileService(env.orders, repository.NewBankTransactionRepository(db), m, log, 0)
	env.reconciler.Retry = RetryPolicy{Attempts: 2, Backoff: time.Millisecond}
	return env
}

func (e *testEnv) topping(i int) uint { return e.fx.toppings[i].ID }

func (e *testEnv) guestReq(method entity.PaymentMethod, lines ...CartLineIn) *CreateOrderReq {
	return &CreateOrderReq{
		GuestName:     "Linh",
		PhoneNumber:   "0901234567",
		DeliveryType:  entity.DeliveryTakeAway,
		PaymentMethod: method,
		Lines:         lines,
	}
}

func (e *testEnv) margheritaLine(qty int) CartLineIn {
	return CartLineIn{ProductID: e.fx.margherita.ID, SizeID: e.fx.small.ID, Quantity: qty}
}

func (e *testEnv) createVoucher(t *testing.T, v entity.Voucher) entity.Voucher {
	t.Helper()
	if v.StartDate.IsZero() {
		v.StartDate = e.clock().Add(-24 * time.Hour)
	}
	if v.EndDate.IsZero() {
		v.EndDate = e.clock().Add(24 * time.Hour)
	}
	require.NoError(t, e.db.Create(&v).Error)
	return v
}

func percentVoucher(code string, pct int64) entity.Voucher {
	return entity.Voucher{Code: code, DiscountKind: entity.DiscountPercentage, DiscountValue: decimal.NewFromInt(pct), IsActive: true}
}

func fixedVoucher(code string, amount int64) entity.Voucher {
	return entity.Voucher{Code: code, DiscountKind: entity.DiscountFixed, DiscountValue: decimal.NewFromInt(amount), IsActive: true}
}

// insertOrder writes an order row directly, bypassing pricing.
func (e *testEnv) insertOrder(t *testing.T, id string, method entity.PaymentMethod, status entity.PaymentStatus, finalPrice int64) *entity.Order {
	t.Helper()
	o := &entity.Order{
		ID:            id,
		GuestName:     "Linh",
		PhoneNumber:   "0901234567",
		DeliveryType:  entity.DeliveryTakeAway,
		TotalPrice:    finalPrice,
		FinalPrice:    finalPrice,
		Status:        entity.OrderStatusPending,
		PaymentStatus: status,
		PaymentMethod: method,
		CreatedAt:     e.clock(),
		UpdatedAt:     e.clock(),
	}
	require.NoError(t, e.db.Create(o).Error)
	return o
}

func (e *testEnv) reload(t *testing.T, id string) *entity.Order {
	t.Helper()
	var o entity.Order
	require.NoError(t, e.db.First(&o, "id = ?", id).Error)
	return &o
}

func (e *testEnv) paymentLogs(t *testing.T, id string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&entity.OrderStatusLog{}).
		Where("order_id = ? AND field = ?", id, "paymentStatus").Count(&n).Error)
	return n
}

var admin = Actor{Kind: ActorAdmin, UserID: 1}
