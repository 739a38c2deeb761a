package scenelink

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocketChannel carries envelopes over a WebSocket connection, one JSON
// envelope per text message. It suits a host and runtime in separate
// processes or a browser frame.
type WebSocketChannel struct {
	conn *websocket.Conn
	log  *zap.Logger
	in   chan Envelope

	writeMu sync.Mutex
	once    sync.Once
	done    chan struct{}
}

// NewWebSocketChannel wraps an established connection and starts its reader.
func NewWebSocketChannel(conn *websocket.Conn, log *zap.Logger) *WebSocketChannel {
	if log == nil {
		log = zap.NewNop()
	}
	c := &WebSocketChannel{
		conn: conn,
		log:  log,
		in:   make(chan Envelope, pipeBuffer),
		done: make(chan struct{}),
	}
	go c.read()
	return c
}

// DialWebSocket connects to a bridge endpoint such as ws://127.0.0.1:8742/bridge.
func DialWebSocket(ctx context.Context, url string, log *zap.Logger) (*WebSocketChannel, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return NewWebSocketChannel(conn, log), nil
}

var upgrader = websocket.Upgrader{
	// The bridge serves a local editor; origin checks are left to the host.
	CheckOrigin: func(*http.Request) bool { return true },
}

// UpgradeWebSocket upgrades an HTTP request into a WebSocketChannel.
func UpgradeWebSocket(w http.ResponseWriter, r *http.Request, log *zap.Logger) (*WebSocketChannel, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return NewWebSocketChannel(conn, log), nil
}

func (c *WebSocketChannel) read() {
	defer close(c.in)
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug("websocket read ended", zap.Error(err))
			}
			return
		}
		var env Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			c.log.Warn("dropping malformed envelope", zap.Error(err))
			continue
		}
		select {
		case c.in <- env:
		case <-c.done:
			return
		}
	}
}

// Post writes env as one text message. Writes are serialized.
func (c *WebSocketChannel) Post(ctx context.Context, env Envelope) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	msg, err := json.Marshal(env)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
		defer func() { _ = c.conn.SetWriteDeadline(time.Time{}) }()
	}
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// Inbox returns the inbound envelope stream. It closes when the connection does.
func (c *WebSocketChannel) Inbox() <-chan Envelope {
	return c.in
}

// Close sends a close frame and closes the connection.
func (c *WebSocketChannel) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}
