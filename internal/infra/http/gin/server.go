package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"skirent/internal/infra/config"
	"skirent/internal/infra/obs"
)

type Handlers struct {
	Catalog        CatalogHTTP
	Cart           CartHTTP
	Checkout       CheckoutHTTP
	Refund         RefundHTTP
	Webhook        WebhookHTTP
	Admin          AdminHTTP
	Auth           AuthHTTP
	Me             MeHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Auth != nil {
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/login", h.Auth.Login)
		api.POST("/auth/logout", h.Auth.Logout)
		api.GET("/auth/me", h.Auth.Me)
	}
	if h.Catalog != nil {
		api.GET("/products", h.Catalog.List)
		api.GET("/products/:id", h.Catalog.Get)
	}
	if h.Cart != nil {
		api.POST("/cart/items", h.Cart.AddItem)
		api.PATCH("/cart/items/:id", h.Cart.UpdateItem)
	}
	if h.Checkout != nil {
		api.POST("/checkout", h.Checkout.Begin)
		api.GET("/bookings/:id/payment-status", h.Checkout.Status)
	}
	if h.Refund != nil {
		api.POST("/bookings/:id/refund", h.Refund.Request)
	}
	if h.Me != nil {
		meGroup := api.Group("/me")
		meGroup.GET("/bookings", h.Me.ListBookings)
	}
	if h.Webhook != nil {
		// The gateway authenticates with its signature header, not a
		// bearer token.
		api.POST("/webhooks/payment", h.Webhook.Handle)
	}
	if h.Admin != nil {
		admin := api.Group("/admin")
		admin.POST("/products", h.Admin.CreateProduct)
		admin.PATCH("/products/:id", h.Admin.UpdateProduct)
		admin.POST("/products/:id/image", h.Admin.UploadProductImage)
		admin.POST("/products/:id/variants", h.Admin.CreateVariant)
		admin.POST("/variants/:id/units", h.Admin.CreateUnit)
		admin.PATCH("/units/:id/status", h.Admin.UpdateUnitStatus)
		admin.POST("/periods", h.Admin.CreatePeriod)
		admin.PUT("/prices", h.Admin.SetPrice)
		admin.DELETE("/prices", h.Admin.DeletePrice)
		admin.GET("/settings", h.Admin.GetSettings)
		admin.PUT("/settings", h.Admin.UpdateSettings)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
