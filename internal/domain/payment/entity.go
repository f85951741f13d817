// internal/domain/payment/entity.go
package payment

import (
	"time"

	"paywall-service/internal/domain/entitlement"
)

type Status string

const (
	StatusCreated Status = "CREATED"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
	// StatusRefunded is only ever set by an operator; no code path in this
	// service moves a payment into it.
	StatusRefunded Status = "REFUNDED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusSuccess, StatusFailed, StatusRefunded:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further lifecycle transition is allowed.
func (s Status) IsTerminal() bool {
	return s != StatusCreated
}

const ProviderRazorpay = "razorpay"

// Payment records one checkout attempt. The plan parameters are stored with it
// so the entitlement can be granted on confirmation without asking the gateway
// what was bought.
type Payment struct {
	ID                int64                `json:"id"`
	UserID            int64                `json:"user_id"`
	Provider          string               `json:"provider"`
	ProviderOrderID   string               `json:"provider_order_id"`
	ProviderPaymentID *string              `json:"provider_payment_id,omitempty"`
	Receipt           string               `json:"receipt"`
	AmountPaise       int64                `json:"amount_paise"`
	Currency          string               `json:"currency"`
	Status            Status               `json:"status"`
	PlanType          entitlement.PlanType `json:"plan_type"`
	PlanDuration      *string              `json:"plan_duration,omitempty"`
	ScopeID           *string              `json:"scope_id,omitempty"`
	BlogID            *string              `json:"blog_id,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// Scope returns the plan scope recorded at order time.
func (p *Payment) Scope() entitlement.Scope {
	return entitlement.Scope{ScopeID: p.ScopeID, BlogID: p.BlogID}
}
