// internal/websocket/handler.go
package websocket

import (
	"context"
	"fmt"

	wstypes "paywall-service/internal/domain/websocket"
)

// MessageHandler answers client-initiated events beyond the built-in ones.
type MessageHandler interface {
	HandleMessage(ctx context.Context, client *Client, msg *wstypes.WSMessage) error
	SupportedEvents() []wstypes.EventType
}

// Events the client loop answers itself.
var builtinEvents = map[wstypes.EventType]bool{
	wstypes.EventTypePing:        true,
	wstypes.EventTypeSubscribe:   true,
	wstypes.EventTypeUnsubscribe: true,
}

// HandlerRegistry routes event types to handlers. It is filled before the
// hub starts and only read afterwards.
type HandlerRegistry struct {
	handlers map[wstypes.EventType]MessageHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		handlers: make(map[wstypes.EventType]MessageHandler),
	}
}

// Register claims every event the handler supports. Nothing is registered
// if one of them is built in or already claimed.
func (r *HandlerRegistry) Register(handler MessageHandler) error {
	events := handler.SupportedEvents()
	for _, eventType := range events {
		if builtinEvents[eventType] {
			return fmt.Errorf("event %q is handled by the client loop", eventType)
		}
		if _, taken := r.handlers[eventType]; taken {
			return fmt.Errorf("event %q already has a handler", eventType)
		}
	}
	for _, eventType := range events {
		r.handlers[eventType] = handler
	}
	return nil
}

func (r *HandlerRegistry) lookup(eventType wstypes.EventType) (MessageHandler, bool) {
	handler, exists := r.handlers[eventType]
	return handler, exists
}
