// internal/websocket/utils.go
package websocket

import (
	"encoding/json"
	"errors"

	wstypes "paywall-service/internal/domain/websocket"
)

var errMissingChannels = errors.New("channels must not be empty")

// decodeChannels reads the channel list of a subscribe or unsubscribe
// request. Data arrives as a generic map after ParseMessage.
func decodeChannels(data interface{}) ([]wstypes.ChannelType, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var req wstypes.SubscribeRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	if len(req.Channels) == 0 {
		return nil, errMissingChannels
	}
	return req.Channels, nil
}
