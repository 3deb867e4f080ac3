// Package wschannel is the reference channel.MessageChannel implementation,
// carrying frames over a WebSocket connection (nhooyr.io/websocket). It is
// one of several interchangeable transport adapters (spec §9) the core
// never imports directly; QR/NFC/BLE adapters follow the same shape against
// their own byte pipes.
package wschannel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"tokenmesh/channel"
)

const writeTimeout = 10 * time.Second

// Channel adapts an open *websocket.Conn to channel.MessageChannel.
type Channel struct {
	conn *websocket.Conn
}

// New wraps an already-established WebSocket connection.
func New(conn *websocket.Conn) *Channel {
	return &Channel{conn: conn}
}

// Dial opens a client-side WebSocket connection to url and wraps it.
func Dial(ctx context.Context, url string) (*Channel, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("wschannel: dial: %w", err)
	}
	conn.SetReadLimit(32 << 20)
	return New(conn), nil
}

// Accept upgrades an inbound HTTP request to a WebSocket and wraps it.
// originPatterns follows websocket.AcceptOptions.OriginPatterns; pass nil
// to accept only same-origin requests.
func Accept(w http.ResponseWriter, r *http.Request, originPatterns []string) (*Channel, error) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: originPatterns})
	if err != nil {
		return nil, fmt.Errorf("wschannel: accept: %w", err)
	}
	conn.SetReadLimit(32 << 20)
	return New(conn), nil
}

// Send marshals frame as JSON and writes it as a single WebSocket text message.
func (c *Channel) Send(ctx context.Context, frame channel.Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("wschannel: encode frame: %w", err)
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(writeCtx, websocket.MessageText, data)
}

// Receive blocks for the next WebSocket message and decodes it as a Frame.
func (c *Channel) Receive(ctx context.Context) (channel.Frame, error) {
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		return channel.Frame{}, fmt.Errorf("wschannel: read: %w", err)
	}
	var frame channel.Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return channel.Frame{}, fmt.Errorf("wschannel: decode frame: %w", err)
	}
	return frame, nil
}

// Close closes the underlying connection with a normal closure status.
func (c *Channel) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "channel closed")
}
