package routes

import (
	"net/http"

	"brunopizza/configs"
	"brunopizza/controllers"
	"brunopizza/entity"
	"brunopizza/middlewares"
	"brunopizza/pkg/metrics"
	"brunopizza/services"
	"brunopizza/ws"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Deps struct {
	DB      *gorm.DB
	Config  *configs.Config
	Log     *zap.Logger
	Metrics *metrics.ServerMetrics

	Auth       *services.AuthService
	Orders     *services.OrderService
	Vouchers   *services.VoucherService
	Reconciler *services.ReconcileService
	Hub        *ws.OrderHub
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	cfg := d.Config
	r.Use(middlewares.RequestLogger(d.Log))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
	}
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))

	r.GET("/health", health(d.DB))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Controllers
	authCtrl := controllers.NewAuthController(d.Auth)
	orderCtrl := controllers.NewOrderController(d.Orders)
	adminOrderCtrl := controllers.NewAdminOrderController(d.Orders)
	voucherCtrl := controllers.NewVoucherController(d.Vouchers)
	bankingCtrl := controllers.NewBankingController(d.Reconciler)

	// Auth (public)
	r.POST("/auth/login", authCtrl.Login)
	r.GET("/auth/me", middlewares.AuthMiddleware(cfg.JWTSecret), authCtrl.Me)

	// Orders (guest or customer)
	r.POST("/orders", middlewares.OptionalAuth(cfg.JWTSecret), orderCtrl.Create)
	r.GET("/orders/:id", orderCtrl.Detail)
	r.POST("/vouchers/check", voucherCtrl.Check)

	// Profile
	profile := r.Group("/profile", middlewares.AuthMiddleware(cfg.JWTSecret))
	{
		profile.GET("/orders", orderCtrl.ListForMe)
	}

	// Admin (admin only)
	admin := r.Group("/admin", middlewares.AuthMiddleware(cfg.JWTSecret, entity.RoleAdmin))
	{
		admin.GET("/orders", adminOrderCtrl.List)
		admin.GET("/orders/:id/history", adminOrderCtrl.History)
		admin.PATCH("/orders/:id/status", adminOrderCtrl.UpdateStatus)
		admin.PATCH("/orders/:id/payment-status", adminOrderCtrl.UpdatePaymentStatus)
		admin.PATCH("/orders/:id/note", adminOrderCtrl.UpdateNote)

		admin.GET("/vouchers", voucherCtrl.List)
		admin.POST("/vouchers", voucherCtrl.Create)
		admin.PATCH("/vouchers/:id", voucherCtrl.Update)
	}

	// Payment gateway
	r.POST("/banking/webhook", middlewares.WebhookAuth(cfg.WebhookAPIKey), bankingCtrl.Webhook)

	// Live order updates
	if d.Hub != nil {
		r.GET("/ws/orders/:id", d.Hub.HandleWebSocket(d.Orders))
	}
}

func health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "database unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
