package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"brunopizza/configs"
	"brunopizza/pkg/events"
	"brunopizza/pkg/logger"
	"brunopizza/pkg/metrics"
	"brunopizza/repository"
	"brunopizza/routes"
	"brunopizza/services"
	"brunopizza/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := configs.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zl, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *configs.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// DB
	db, err := configs.ConnectionDB(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if err := configs.SetupDatabase(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := configs.SeedAdmin(db, zl); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if err := configs.SeedCatalog(db, cfg.CustomPizzaPrice); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}

	// Events
	hub := ws.NewOrderHub(zl.Named("ws"))
	broker, err := newBrokerPublisher(cfg)
	if err != nil {
		return fmt.Errorf("event broker: %w", err)
	}
	publisher := events.Multi{hub, broker}
	defer func() {
		if err := publisher.Close(); err != nil {
			zl.Warn("close publishers", zap.Error(err))
		}
	}()

	m := metrics.NewServerMetrics(prometheus.DefaultRegisterer)

	// Services
	orderRepo := repository.NewOrderRepository(db)
	voucherSvc := services.NewVoucherService(repository.NewVoucherRepository(db), zl.Named("vouchers"))
	orderSvc := services.NewOrderService(db, orderRepo, repository.NewCatalogRepository(db), voucherSvc, publisher, m, zl.Named("orders"))
	orderSvc.CustomBasePrice = cfg.CustomPizzaPrice
	orderSvc.QR = services.PaymentQR{
		BankCode:      cfg.Bank.BankCode,
		AccountNumber: cfg.Bank.AccountNumber,
		Template:      cfg.Bank.Template,
	}
	reconcileSvc := services.NewReconcileService(orderSvc, repository.NewBankTransactionRepository(db), m, zl.Named("reconcile"), cfg.ReconcileTimeout)
	authSvc := services.NewAuthService(repository.NewUserRepository(db), cfg.JWTSecret, cfg.JWTTTL)

	// HTTP
	if cfg.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	routes.RegisterRoutes(r, routes.Deps{
		DB: db, Config: cfg, Log: zl, Metrics: m,
		Auth: authSvc, Orders: orderSvc, Vouchers: voucherSvc, Reconciler: reconcileSvc, Hub: hub,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error {
		zl.Info("server listening", zap.String("addr", srv.Addr), zap.String("event_broker", cfg.EventBroker))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		zl.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newBrokerPublisher(cfg *configs.Config) (events.Publisher, error) {
	switch cfg.EventBroker {
	case "", "none":
		return events.Nop{}, nil
	case "kafka":
		brokers := events.ParseBrokers(cfg.KafkaBrokers)
		if len(brokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is empty")
		}
		return events.NewKafkaPublisher(brokers, cfg.KafkaTopic), nil
	case "rabbitmq":
		p, err := events.NewRabbitPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported EVENT_BROKER %q", cfg.EventBroker)
	}
}
