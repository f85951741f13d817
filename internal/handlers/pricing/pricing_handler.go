// internal/handlers/pricing/pricing_handler.go
package pricing

import (
	"net/http"

	"paywall-service/internal/pkg/response"
	service "paywall-service/internal/service/pricing"

	"github.com/gin-gonic/gin"
)

type PricingHandler struct {
	table service.Table
}

// NewPricingHandler renders the price list once; prices are fixed for the
// life of the process.
func NewPricingHandler(engine *service.Engine, currency string) *PricingHandler {
	return &PricingHandler{table: engine.Table(currency)}
}

// GetPricing returns the public price list
func (h *PricingHandler) GetPricing(c *gin.Context) {
	response.Success(c, http.StatusOK, "pricing retrieved", h.table)
}
