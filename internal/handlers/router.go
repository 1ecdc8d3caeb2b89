package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-bakery-orderflow/internal/validation"
)

// Config groups dependencies for the HTTP API.
type Config struct {
	Workflow Workflow
	Orders   OrderStore
	Settings SettingsStore
	Auth     Authenticator
	Logger   *zap.Logger
	// Registry receives the HTTP collectors and backs GET /metrics.
	// A fresh registry is used when nil.
	Registry *prometheus.Registry
}

type api struct {
	cfg Config
	v   *validatorv10.Validate
}

// NewRouter builds the gin engine with middleware and every route registered.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(cfg.Logger))
	r.Use(NewHTTPMetrics(cfg.Registry).Middleware())

	a := &api{cfg: cfg, v: validation.New()}

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})))

	r.GET("/products", a.listProducts)
	r.POST("/orders", a.createOrder)
	r.GET("/orders/:id", a.getOrder)
	r.POST("/payments/intents", a.createPaymentIntent)
	r.POST("/payments/confirm", a.confirmPayment)
	r.GET("/settings/:key", a.getSetting)
	r.POST("/admin/login", a.login)

	admin := r.Group("/admin", RequireAdmin(cfg.Auth))
	admin.GET("/orders", a.adminListOrders)
	admin.GET("/orders/:id", a.getOrder)
	admin.PUT("/orders/:id/payment-status", a.adminSetPaymentStatus)
	admin.PUT("/orders/:id/fulfillment", a.adminSetFulfillment)
	admin.GET("/reports/weekly", a.adminWeeklyReport)
	admin.PUT("/settings/:key", a.adminSetSetting)
	admin.POST("/settings/:key/toggle", a.adminToggleSetting)

	return r
}
