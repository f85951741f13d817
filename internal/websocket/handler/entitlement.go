// internal/websocket/handler/entitlement.go
package handler

import (
	"context"
	"fmt"

	"paywall-service/internal/domain/entitlement"
	wstypes "paywall-service/internal/domain/websocket"
	ws "paywall-service/internal/websocket"
)

type EntitlementLister interface {
	ActiveEntitlements(ctx context.Context, userID int64) ([]entitlement.Entitlement, error)
}

// EntitlementHandler lets a connected reader ask for their active
// entitlements over the socket, typically right after connecting.
type EntitlementHandler struct {
	entitlements EntitlementLister
}

func NewEntitlementHandler(entitlements EntitlementLister) *EntitlementHandler {
	return &EntitlementHandler{entitlements: entitlements}
}

func (h *EntitlementHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{wstypes.EventTypeEntitlementList}
}

func (h *EntitlementHandler) HandleMessage(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	switch msg.Type {
	case wstypes.EventTypeEntitlementList:
		ents, err := h.entitlements.ActiveEntitlements(ctx, client.UserID())
		if err != nil {
			return fmt.Errorf("failed to load entitlements: %w", err)
		}
		reply := wstypes.NewMessage(wstypes.EventTypeEntitlementList, map[string]interface{}{
			"entitlements": ents,
			"count":        len(ents),
		})
		reply.Metadata = map[string]interface{}{"request_id": msg.ID}
		client.SendMessage(reply)
		return nil

	default:
		return fmt.Errorf("unsupported event type: %s", msg.Type)
	}
}
