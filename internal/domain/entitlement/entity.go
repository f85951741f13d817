// internal/domain/entitlement/entity.go
package entitlement

import (
	"strings"
	"time"

	xerrors "paywall-service/internal/pkg/errors"
)

// PlanType is the closed set of things a payment can buy. The same values
// label the entitlement the payment grants.
type PlanType string

const (
	PlanPerBlog                PlanType = "PER_BLOG"
	PlanSubscriptionSubsection PlanType = "SUBSCRIPTION_SUBSECTION"
	PlanSubscriptionSection    PlanType = "SUBSCRIPTION_SECTION"
	PlanSubscriptionAll        PlanType = "SUBSCRIPTION_ALL"
)

// PlanTypes lists every plan type in access-precedence order, broadest first.
var PlanTypes = []PlanType{
	PlanSubscriptionAll,
	PlanSubscriptionSection,
	PlanSubscriptionSubsection,
	PlanPerBlog,
}

// ParsePlanType accepts any casing and surrounding whitespace.
func ParsePlanType(raw string) (PlanType, error) {
	t := PlanType(strings.ToUpper(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", xerrors.Invalid("unknown plan type %q", raw)
	}
	return t, nil
}

func (t PlanType) Valid() bool {
	switch t {
	case PlanPerBlog, PlanSubscriptionSubsection, PlanSubscriptionSection, PlanSubscriptionAll:
		return true
	default:
		return false
	}
}

// IsSubscription reports whether the plan is time-bounded.
func (t PlanType) IsSubscription() bool {
	return t.Valid() && t != PlanPerBlog
}

// Entitlement is an immutable grant created from exactly one successful payment.
type Entitlement struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Type      PlanType   `json:"type"`
	ScopeID   *string    `json:"scope_id,omitempty"`
	BlogID    *string    `json:"blog_id,omitempty"`
	StartAt   time.Time  `json:"start_at"`
	EndAt     *time.Time `json:"end_at,omitempty"` // nil means perpetual
	PaymentID int64      `json:"payment_id"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsActive reports whether the entitlement is perpetual or ends strictly after now.
func (e *Entitlement) IsActive(now time.Time) bool {
	return e.EndAt == nil || e.EndAt.After(now)
}

// Covers reports whether this entitlement, on its own, opens the target.
// It does not look at expiry.
func (e *Entitlement) Covers(t Target) bool {
	switch e.Type {
	case PlanSubscriptionAll:
		return true
	case PlanSubscriptionSection:
		return t.SectionID != "" && e.ScopeID != nil && *e.ScopeID == t.SectionID
	case PlanSubscriptionSubsection:
		return t.SubsectionID != "" && e.ScopeID != nil && *e.ScopeID == t.SubsectionID
	case PlanPerBlog:
		return t.BlogID != "" && e.BlogID != nil && *e.BlogID == t.BlogID
	default:
		return false
	}
}

// Target identifies a piece of gated content by every scope it belongs to.
// Empty fields mean the content has no such scope.
type Target struct {
	BlogID       string `form:"blog_id" json:"blog_id"`
	SectionID    string `form:"section_id" json:"section_id,omitempty"`
	SubsectionID string `form:"subsection_id" json:"subsection_id,omitempty"`
}

// Scope is the validated pair of identifiers a plan type carries.
// PER_BLOG carries only BlogID, section and subsection plans carry only
// ScopeID, and SUBSCRIPTION_ALL carries neither.
type Scope struct {
	ScopeID *string
	BlogID  *string
}

// NewScope checks that the identifiers required by t are present and drops
// the ones t does not use.
func NewScope(t PlanType, scopeID, blogID string) (Scope, error) {
	scopeID = strings.TrimSpace(scopeID)
	blogID = strings.TrimSpace(blogID)

	switch t {
	case PlanPerBlog:
		if blogID == "" {
			return Scope{}, xerrors.Invalid("blog_id is required for %s", t)
		}
		return Scope{BlogID: &blogID}, nil
	case PlanSubscriptionSubsection, PlanSubscriptionSection:
		if scopeID == "" {
			return Scope{}, xerrors.Invalid("scope_id is required for %s", t)
		}
		return Scope{ScopeID: &scopeID}, nil
	case PlanSubscriptionAll:
		return Scope{}, nil
	default:
		return Scope{}, xerrors.Invalid("unknown plan type %q", t)
	}
}
