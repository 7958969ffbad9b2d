package inspector

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/gorilla/websocket"
	"github.com/mminspector/inspector/internal/models"
)

// StreamStatus subscribes to the backend's per-media websocket. The returned
// channel is closed when ctx ends or the backend closes the socket.
func (c *Client) StreamStatus(ctx context.Context, mediaID string) (<-chan models.StatusEvent, error) {
	wsURL, err := c.websocketURL("/ws/" + mediaID)
	if err != nil {
		return nil, err
	}

	conn, _, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial status stream: %w", err)
	}

	events := make(chan models.StatusEvent, 16)
	done := make(chan struct{})

	// ReadJSON does not observe ctx; closing the conn unblocks it.
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		conn.Close()
	}()

	go func() {
		defer close(events)
		defer close(done)

		for {
			var event models.StatusEvent
			if err := conn.ReadJSON(&event); err != nil {
				if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					slog.Debug("Status stream ended", "media_id", mediaID, "err", err)
				}
				return
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

func (c *Client) websocketURL(path string) (string, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported base url scheme %q", u.Scheme)
	}
	u.Path = u.Path + path
	u.RawPath = ""
	return u.String(), nil
}
