package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/config"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/http/handlers"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/http/middleware"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/modules/gateway"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/modules/orders"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/modules/webhook"
)

type RouterDeps struct {
	Cfg       config.Config
	DB        *gorm.DB
	Svc       *orders.Service
	Repo      *orders.Repo
	Gateways  *gateway.Registry
	Processor *webhook.Processor
	Logger    *slog.Logger
}

// NewRouter wires middleware and routes. Webhook endpoints sit outside the
// session middleware chain; gateways authenticate with signatures, not
// cookies.
func NewRouter(d RouterDeps) *gin.Engine {
	if d.Cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.ErrorHandler(d.Logger))

	checkout := handlers.NewCheckoutHandler(d.Svc, d.Logger)
	payments := handlers.NewPaymentHandler(d.Svc, d.Repo, d.Gateways, d.Logger)
	webhooks := handlers.NewWebhookHandler(d.Gateways, d.Processor, d.Logger)
	orderH := handlers.NewOrderHandler(d.Svc, d.Repo, d.Logger)
	adminH := handlers.NewAdminOrderHandler(d.Svc, d.Logger)

	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	r.POST("/webhooks/:gateway", webhooks.Receive)

	session := middleware.SessionMiddleware(middleware.SessionCfg{
		DB:         d.DB,
		CookieName: "session",
		Secure:     d.Cfg.Env == "prod",
	})

	authed := r.Group("/", session, middleware.RequireAuth())
	{
		authed.POST("/checkout", checkout.Create)
		authed.POST("/checkout/:gateway/init", payments.Init)
		authed.POST("/checkout/:gateway/verify", payments.Verify)

		authed.GET("/orders", orderH.List)
		authed.GET("/orders/:id", orderH.Get)
		authed.PUT("/orders/:id/cancel", orderH.Cancel)
	}

	admin := r.Group("/admin", session, middleware.RequireAuth(), middleware.RequireAdmin())
	{
		admin.PUT("/orders/:id/status", adminH.UpdateStatus)
	}

	return r
}
