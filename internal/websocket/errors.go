// internal/websocket/errors.go
package websocket

import "errors"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrHubClosed    = errors.New("websocket hub is closed")
)
