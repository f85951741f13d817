// internal/handlers/me/me_handler.go
package me

import (
	"context"
	"net/http"

	"paywall-service/internal/domain/entitlement"
	"paywall-service/internal/middleware"
	"paywall-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type EntitlementService interface {
	ActiveEntitlements(ctx context.Context, userID int64) ([]entitlement.Entitlement, error)
	HasAccess(ctx context.Context, userID *int64, target entitlement.Target) (bool, error)
}

// MeHandler serves the signed-in reader's own entitlements.
type MeHandler struct {
	entitlements EntitlementService
}

func NewMeHandler(entitlements EntitlementService) *MeHandler {
	return &MeHandler{entitlements: entitlements}
}

func (h *MeHandler) ListEntitlements(c *gin.Context) {
	userID := middleware.MustGetUserID(c)

	ents, err := h.entitlements.ActiveEntitlements(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, "failed to get entitlements", err)
		return
	}

	response.Success(c, http.StatusOK, "entitlements retrieved", gin.H{
		"entitlements": ents,
		"count":        len(ents),
	})
}

// CheckAccess answers whether the reader may open the target in full.
func (h *MeHandler) CheckAccess(c *gin.Context) {
	userID := middleware.MustGetUserID(c)

	var target entitlement.Target
	if err := c.ShouldBindQuery(&target); err != nil {
		response.ValidationError(c, "invalid query parameters", err)
		return
	}
	if target.BlogID == "" && target.SectionID == "" && target.SubsectionID == "" {
		response.ValidationError(c, "blog_id, section_id or subsection_id is required", nil)
		return
	}

	ok, err := h.entitlements.HasAccess(c.Request.Context(), &userID, target)
	if err != nil {
		response.FromError(c, "failed to check access", err)
		return
	}

	response.Success(c, http.StatusOK, "access checked", entitlement.AccessResponse{
		Target:    target,
		HasAccess: ok,
	})
}
