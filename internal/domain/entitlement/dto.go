package entitlement

import "time"

// GrantParams carries everything needed to insert a new entitlement.
type GrantParams struct {
	UserID    int64
	Type      PlanType
	Scope     Scope
	PaymentID int64
	StartAt   time.Time
	EndAt     *time.Time
}

// StatusFilter selects entitlements by their state at query time.
type StatusFilter string

const (
	FilterAll     StatusFilter = "all"
	FilterActive  StatusFilter = "active"
	FilterExpired StatusFilter = "expired"
)

type ListFilters struct {
	Status   StatusFilter `form:"status" binding:"omitempty,oneof=all active expired"`
	Types    []PlanType   `form:"type"`
	UserID   *int64       `form:"user_id"`
	Page     int          `form:"page" binding:"omitempty,min=1"`
	PageSize int          `form:"page_size" binding:"omitempty,min=1,max=100"`
}

type ListResponse struct {
	Entitlements []Entitlement `json:"entitlements"`
	Total        int64         `json:"total"`
	Page         int           `json:"page"`
	PageSize     int           `json:"page_size"`
	TotalPages   int           `json:"total_pages"`
}

type AccessResponse struct {
	Target    Target `json:"target"`
	HasAccess bool   `json:"has_access"`
}
