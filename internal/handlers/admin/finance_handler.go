// internal/handlers/admin/finance_handler.go
package admin

import (
	"context"
	"net/http"
	"strconv"

	"paywall-service/internal/domain/entitlement"
	"paywall-service/internal/domain/payment"
	"paywall-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type PaymentLister interface {
	List(ctx context.Context, filters *payment.ListFilters) (*payment.ListResponse, error)
	Get(ctx context.Context, id int64) (*payment.Payment, error)
}

type EntitlementLister interface {
	List(ctx context.Context, filters *entitlement.ListFilters) (*entitlement.ListResponse, error)
	Get(ctx context.Context, id int64) (*entitlement.Entitlement, error)
}

// FinanceHandler is the read-only admin view of payments and entitlements.
type FinanceHandler struct {
	payments     PaymentLister
	entitlements EntitlementLister
}

func NewFinanceHandler(payments PaymentLister, entitlements EntitlementLister) *FinanceHandler {
	return &FinanceHandler{payments: payments, entitlements: entitlements}
}

// ========== Payments ==========

func (h *FinanceHandler) ListPayments(c *gin.Context) {
	var filters payment.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.ValidationError(c, "invalid query parameters", err)
		return
	}

	result, err := h.payments.List(c.Request.Context(), &filters)
	if err != nil {
		response.FromError(c, "failed to list payments", err)
		return
	}

	response.Success(c, http.StatusOK, "payments retrieved", result)
}

func (h *FinanceHandler) GetPayment(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ValidationError(c, "invalid payment ID", err)
		return
	}

	result, err := h.payments.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, "payment not found", err)
		return
	}

	response.Success(c, http.StatusOK, "payment retrieved", result)
}

// ========== Entitlements ==========

func (h *FinanceHandler) ListEntitlements(c *gin.Context) {
	var filters entitlement.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.ValidationError(c, "invalid query parameters", err)
		return
	}

	result, err := h.entitlements.List(c.Request.Context(), &filters)
	if err != nil {
		response.FromError(c, "failed to list entitlements", err)
		return
	}

	response.Success(c, http.StatusOK, "entitlements retrieved", result)
}

func (h *FinanceHandler) GetEntitlement(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ValidationError(c, "invalid entitlement ID", err)
		return
	}

	result, err := h.entitlements.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, "entitlement not found", err)
		return
	}

	response.Success(c, http.StatusOK, "entitlement retrieved", result)
}
