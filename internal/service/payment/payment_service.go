// internal/service/payment/payment_service.go
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"paywall-service/internal/domain/entitlement"
	"paywall-service/internal/domain/payment"
	xerrors "paywall-service/internal/pkg/errors"
	"paywall-service/internal/pkg/razorpay"
	"paywall-service/internal/service/pricing"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

type Repository interface {
	Create(ctx context.Context, p *payment.Payment) error
	FindByID(ctx context.Context, id int64) (*payment.Payment, error)
	FindByProviderOrderID(ctx context.Context, orderID string) (*payment.Payment, error)
	TransitionStatus(ctx context.Context, orderID string, from, to payment.Status, providerPaymentID *string, at time.Time) (*payment.Payment, error)
	List(ctx context.Context, filters *payment.ListFilters) ([]payment.Payment, int64, error)
}

// Transactor runs fn in a database transaction carried by ctx.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Gateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string) (*razorpay.Order, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	VerifyWebhookSignature(body []byte, signature string) bool
}

type EntitlementGranter interface {
	Grant(ctx context.Context, params entitlement.GrantParams) (*entitlement.Entitlement, error)
	Invalidate(ctx context.Context, userID int64)
}

// Notifier tells a user's open connections about a new entitlement.
type Notifier interface {
	NotifyEntitlementGranted(ctx context.Context, userID int64, ent *entitlement.Entitlement)
}

type PaymentService struct {
	repo         Repository
	tx           Transactor
	gateway      Gateway
	entitlements EntitlementGranter
	notifier     Notifier
	pricing      *pricing.Engine
	currency     string
	logger       *zap.Logger
	now          func() time.Time
}

type Option func(*PaymentService)

func WithClock(now func() time.Time) Option {
	return func(s *PaymentService) { s.now = now }
}

// WithNotifier enables entitlement push notifications.
func WithNotifier(n Notifier) Option {
	return func(s *PaymentService) { s.notifier = n }
}

func NewPaymentService(
	repo Repository,
	tx Transactor,
	gateway Gateway,
	entitlements EntitlementGranter,
	pricingEngine *pricing.Engine,
	currency string,
	logger *zap.Logger,
	opts ...Option,
) *PaymentService {
	s := &PaymentService{
		repo:         repo,
		tx:           tx,
		gateway:      gateway,
		entitlements: entitlements,
		pricing:      pricingEngine,
		currency:     strings.ToUpper(currency),
		logger:       logger,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrder prices the requested plan, opens a gateway order for it and
// records the payment as CREATED. Nothing is stored when the gateway fails.
func (s *PaymentService) CreateOrder(ctx context.Context, userID int64, req *payment.CreateOrderRequest) (*payment.CreateOrderResponse, error) {
	planType, err := entitlement.ParsePlanType(req.PlanType)
	if err != nil {
		return nil, err
	}
	scope, err := entitlement.NewScope(planType, req.ScopeID, req.BlogID)
	if err != nil {
		return nil, err
	}

	var duration *string
	if planType.IsSubscription() {
		d := strings.ToUpper(strings.TrimSpace(req.Duration))
		if d == "" {
			d = pricing.Duration1M
		}
		duration = &d
	}

	amount, err := s.pricing.CalculatePrice(planType, deref(duration))
	if err != nil {
		return nil, err
	}

	receipt := "rcpt_" + ulid.Make().String()

	order, err := s.gateway.CreateOrder(ctx, amount, s.currency, receipt)
	if err != nil {
		if !errors.Is(err, xerrors.ErrUpstream) {
			err = fmt.Errorf("%w: %v", xerrors.ErrUpstream, err)
		}
		s.logger.Error("gateway order creation failed",
			zap.Int64("user_id", userID),
			zap.String("receipt", receipt),
			zap.Error(err))
		return nil, err
	}

	p := &payment.Payment{
		UserID:          userID,
		Provider:        payment.ProviderRazorpay,
		ProviderOrderID: order.ID,
		Receipt:         receipt,
		AmountPaise:     amount,
		Currency:        s.currency,
		Status:          payment.StatusCreated,
		PlanType:        planType,
		PlanDuration:    duration,
		ScopeID:         scope.ScopeID,
		BlogID:          scope.BlogID,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	s.logger.Info("payment order created",
		zap.Int64("payment_id", p.ID),
		zap.Int64("user_id", userID),
		zap.String("order_id", p.ProviderOrderID),
		zap.String("plan_type", string(planType)),
		zap.Int64("amount_paise", amount))

	return &payment.CreateOrderResponse{Payment: p, KeyID: s.gateway.KeyID()}, nil
}

// VerifyAndGrant confirms a checkout callback for userID's order. A bad
// signature leaves the payment untouched. Replaying a confirmed payment
// returns the stored record without granting again.
func (s *PaymentService) VerifyAndGrant(ctx context.Context, userID int64, orderID, providerPaymentID, signature string) (*payment.Payment, error) {
	p, err := s.repo.FindByProviderOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("payment for order %s: %w", orderID, err)
	}
	if p.UserID != userID {
		return nil, fmt.Errorf("payment for order %s: %w", orderID, xerrors.ErrNotFound)
	}

	if !s.gateway.VerifyPaymentSignature(orderID, providerPaymentID, signature) {
		s.logger.Warn("payment signature mismatch",
			zap.Int64("payment_id", p.ID),
			zap.Int64("user_id", userID),
			zap.String("order_id", orderID))
		return nil, xerrors.ErrSignatureMismatch
	}

	return s.confirm(ctx, p, providerPaymentID)
}

// HandleWebhook applies a signed gateway event. Captures and paid orders go
// through the same exactly-once grant as checkout verification; failures move
// a still-CREATED payment to FAILED. Other events are ignored.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !s.gateway.VerifyWebhookSignature(body, signature) {
		s.logger.Warn("webhook signature mismatch")
		return xerrors.ErrSignatureMismatch
	}

	ev, err := razorpay.ParseWebhook(body)
	if err != nil {
		return err
	}

	switch ev.Event {
	case razorpay.EventPaymentCaptured, razorpay.EventOrderPaid, razorpay.EventPaymentFailed:
	default:
		s.logger.Debug("ignoring webhook event", zap.String("event", ev.Event))
		return nil
	}

	orderID := ev.OrderID()
	if orderID == "" {
		return xerrors.Invalid("%s event carries no order id", ev.Event)
	}
	p, err := s.repo.FindByProviderOrderID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("payment for order %s: %w", orderID, err)
	}

	s.logger.Info("webhook received", zap.String("event", ev.String()), zap.Int64("payment_id", p.ID))

	if ev.Event == razorpay.EventPaymentFailed {
		return s.markFailed(ctx, p, ev.PaymentID())
	}
	_, err = s.confirm(ctx, p, ev.PaymentID())
	return err
}

// confirm performs the CREATED to SUCCESS transition and the grant in one
// transaction. Exactly one caller wins the conditional update; the others
// return the winner's record.
func (s *PaymentService) confirm(ctx context.Context, p *payment.Payment, providerPaymentID string) (*payment.Payment, error) {
	if p.Status == payment.StatusSuccess {
		return p, nil
	}
	if p.Status.IsTerminal() {
		return nil, fmt.Errorf("payment %d is %s: %w", p.ID, p.Status, xerrors.ErrConflict)
	}

	var (
		updated *payment.Payment
		granted *entitlement.Entitlement
		lost    bool
	)
	now := s.now()
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		u, err := s.repo.TransitionStatus(ctx, p.ProviderOrderID, payment.StatusCreated, payment.StatusSuccess, optional(providerPaymentID), now)
		if errors.Is(err, xerrors.ErrConflict) {
			lost = true
			return nil
		}
		if err != nil {
			return err
		}

		ent, err := s.entitlements.Grant(ctx, grantFor(u, now))
		if err != nil {
			return err
		}
		updated, granted = u, ent
		return nil
	})
	if err != nil {
		s.logger.Error("payment confirmation failed", zap.Int64("payment_id", p.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to confirm payment: %w", err)
	}

	if lost {
		current, err := s.repo.FindByProviderOrderID(ctx, p.ProviderOrderID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload payment: %w", err)
		}
		if current.Status != payment.StatusSuccess {
			return nil, fmt.Errorf("payment %d is %s: %w", current.ID, current.Status, xerrors.ErrConflict)
		}
		return current, nil
	}

	s.entitlements.Invalidate(ctx, updated.UserID)
	if s.notifier != nil {
		s.notifier.NotifyEntitlementGranted(ctx, updated.UserID, granted)
	}

	s.logger.Info("payment confirmed",
		zap.Int64("payment_id", updated.ID),
		zap.Int64("user_id", updated.UserID),
		zap.Int64("entitlement_id", granted.ID))

	return updated, nil
}

func (s *PaymentService) markFailed(ctx context.Context, p *payment.Payment, providerPaymentID string) error {
	if p.Status.IsTerminal() {
		return nil
	}
	_, err := s.repo.TransitionStatus(ctx, p.ProviderOrderID, payment.StatusCreated, payment.StatusFailed, optional(providerPaymentID), s.now())
	if errors.Is(err, xerrors.ErrConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to mark payment failed: %w", err)
	}
	s.logger.Info("payment failed", zap.Int64("payment_id", p.ID), zap.Int64("user_id", p.UserID))
	return nil
}

// grantFor derives the entitlement a confirmed payment buys, starting at now.
func grantFor(p *payment.Payment, now time.Time) entitlement.GrantParams {
	params := entitlement.GrantParams{
		UserID:    p.UserID,
		Type:      p.PlanType,
		Scope:     p.Scope(),
		PaymentID: p.ID,
		StartAt:   now,
	}
	if p.PlanType.IsSubscription() {
		end := now.AddDate(0, pricing.MonthsFor(deref(p.PlanDuration)), 0)
		params.EndAt = &end
	}
	return params
}

// List serves the admin finance listing.
func (s *PaymentService) List(ctx context.Context, filters *payment.ListFilters) (*payment.ListResponse, error) {
	if filters.Status != nil && !filters.Status.Valid() {
		return nil, xerrors.Invalid("unknown payment status %q", *filters.Status)
	}

	payments, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	pages := 0
	if filters.PageSize > 0 {
		pages = int((total + int64(filters.PageSize) - 1) / int64(filters.PageSize))
	}
	return &payment.ListResponse{
		Payments:   payments,
		Total:      total,
		Page:       filters.Page,
		PageSize:   filters.PageSize,
		TotalPages: pages,
	}, nil
}

func (s *PaymentService) Get(ctx context.Context, id int64) (*payment.Payment, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
