// internal/app/router.go
package app

import (
	adminHandler "paywall-service/internal/handlers/admin"
	blogHandler "paywall-service/internal/handlers/blog"
	checkoutHandler "paywall-service/internal/handlers/checkout"
	meHandler "paywall-service/internal/handlers/me"
	pricingHandler "paywall-service/internal/handlers/pricing"
	wsHandler "paywall-service/internal/handlers/websocket"
	"paywall-service/internal/middleware"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	PricingHandler  *pricingHandler.PricingHandler
	CheckoutHandler *checkoutHandler.CheckoutHandler
	MeHandler       *meHandler.MeHandler
	BlogHandler     *blogHandler.BlogHandler
	FinanceHandler  *adminHandler.FinanceHandler
	WSHandler       *wsHandler.WebSocketHandler
	AuthMiddleware  *middleware.AuthMiddleware
	CheckoutLimit   gin.HandlerFunc
	Health          gin.HandlerFunc
}

func SetupRouter(r *gin.Engine, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", h.Health)

	// ==================== WebSocket ====================
	api.GET("/ws", h.WSHandler.HandleConnection)

	// ==================== Public ====================
	api.GET("/pricing", h.PricingHandler.GetPricing)
	api.GET("/blogs/:slug", h.AuthMiddleware.OptionalAuth(), h.BlogHandler.GetBlog)

	// Signed by the gateway, not by a user.
	api.POST("/webhooks/razorpay", h.CheckoutHandler.Webhook)

	// ==================== Checkout ====================
	checkout := api.Group("/checkout")
	checkout.Use(h.AuthMiddleware.Auth())
	{
		checkout.POST("/orders", h.CheckoutLimit, h.CheckoutHandler.CreateOrder)
		checkout.POST("/verify", h.CheckoutHandler.Verify)
	}

	// ==================== Reader ====================
	me := api.Group("/me")
	me.Use(h.AuthMiddleware.Auth())
	{
		me.GET("/entitlements", h.MeHandler.ListEntitlements)
		me.GET("/access", h.MeHandler.CheckAccess)
	}

	// ==================== Admin ====================
	admin := api.Group("/admin")
	admin.Use(h.AuthMiddleware.AdminOnly()...)
	{
		admin.POST("/blogs/:id/publish", h.BlogHandler.PublishBlog)

		finance := admin.Group("/finance")
		finance.GET("/payments", h.FinanceHandler.ListPayments)
		finance.GET("/payments/:id", h.FinanceHandler.GetPayment)
		finance.GET("/entitlements", h.FinanceHandler.ListEntitlements)
		finance.GET("/entitlements/:id", h.FinanceHandler.GetEntitlement)

		admin.GET("/ws/stats", h.WSHandler.GetStats)
	}
}
