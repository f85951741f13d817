// internal/handlers/checkout/checkout_handler.go
package checkout

import (
	"context"
	"errors"
	"net/http"

	"paywall-service/internal/domain/payment"
	"paywall-service/internal/middleware"
	xerrors "paywall-service/internal/pkg/errors"
	"paywall-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SignatureHeader carries the webhook body signature.
const SignatureHeader = "X-Razorpay-Signature"

// maxWebhookBody bounds what is read from the gateway before verification.
const maxWebhookBody = 1 << 20

type PaymentService interface {
	CreateOrder(ctx context.Context, userID int64, req *payment.CreateOrderRequest) (*payment.CreateOrderResponse, error)
	VerifyAndGrant(ctx context.Context, userID int64, orderID, providerPaymentID, signature string) (*payment.Payment, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) error
}

type CheckoutHandler struct {
	payments PaymentService
	logger   *zap.Logger
}

func NewCheckoutHandler(payments PaymentService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{payments: payments, logger: logger}
}

// CreateOrder opens a gateway order for the requested plan
func (h *CheckoutHandler) CreateOrder(c *gin.Context) {
	userID := middleware.MustGetUserID(c)

	var req payment.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	result, err := h.payments.CreateOrder(c.Request.Context(), userID, &req)
	if err != nil {
		response.FromError(c, "failed to create order", err)
		return
	}

	response.Success(c, http.StatusCreated, "order created", result)
}

// Verify confirms the checkout callback and grants the entitlement
func (h *CheckoutHandler) Verify(c *gin.Context) {
	userID := middleware.MustGetUserID(c)

	var req payment.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	result, err := h.payments.VerifyAndGrant(c.Request.Context(), userID, req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature)
	if err != nil {
		response.FromError(c, "payment verification failed", err)
		return
	}

	response.Success(c, http.StatusOK, "payment verified", result)
}

// Webhook applies a gateway event. Events that can never succeed on retry are
// acknowledged so the gateway stops redelivering them.
func (h *CheckoutHandler) Webhook(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		response.ValidationError(c, "unreadable body", err)
		return
	}

	err = h.payments.HandleWebhook(c.Request.Context(), body, c.GetHeader(SignatureHeader))
	switch {
	case err == nil:
		response.Success(c, http.StatusOK, "webhook processed", nil)
	case errors.Is(err, xerrors.ErrNotFound), errors.Is(err, xerrors.ErrConflict):
		h.logger.Warn("webhook acknowledged without effect", zap.Error(err))
		response.Success(c, http.StatusOK, "webhook ignored", nil)
	default:
		if response.StatusFor(err) >= http.StatusInternalServerError {
			h.logger.Error("webhook processing failed", zap.Error(err))
		}
		response.FromError(c, "webhook rejected", err)
	}
}

func readBody(c *gin.Context) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	return c.GetRawData()
}
