package remote

import (
	"context"
	"strings"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/matheus3301/inbox/internal/errs"
)

// PushConn is an open push channel.
type PushConn interface {
	// Next blocks until the next known event arrives. Malformed and unknown
	// frames are skipped. Any error means the connection is gone.
	Next(ctx context.Context) (Event, error)
	Ping(ctx context.Context) error
	Close() error
}

// Dialer opens push channel connections.
type Dialer struct {
	url    string
	logger *zap.Logger
}

// NewDialer derives the WebSocket URL from the backend base URL.
func NewDialer(baseURL, pushPath string, logger *zap.Logger) *Dialer {
	u := strings.TrimRight(baseURL, "/")
	u = strings.Replace(u, "https://", "wss://", 1)
	u = strings.Replace(u, "http://", "ws://", 1)
	return &Dialer{url: u + pushPath, logger: logger}
}

// URL returns the address the dialer connects to.
func (d *Dialer) URL() string { return d.url }

// Dial connects to the push channel.
func (d *Dialer) Dial(ctx context.Context) (PushConn, error) {
	conn, _, err := websocket.Dial(ctx, d.url, nil)
	if err != nil {
		return nil, errs.Lifecycle("dial push channel", err)
	}
	conn.SetReadLimit(1 << 20)
	return &wsConn{conn: conn, logger: d.logger}, nil
}

type wsConn struct {
	conn   *websocket.Conn
	logger *zap.Logger
}

func (c *wsConn) Next(ctx context.Context) (Event, error) {
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			return Event{}, errs.Lifecycle("read push channel", err)
		}
		if typ != websocket.MessageText {
			continue
		}
		ev, err := DecodeEvent(data, time.Now().UnixMilli())
		if err != nil {
			c.logger.Warn("push frame discarded", zap.Error(err))
			continue
		}
		if ev.Kind == "" {
			c.logger.Debug("unknown push event ignored", zap.ByteString("frame", data))
			continue
		}
		return ev, nil
	}
}

func (c *wsConn) Ping(ctx context.Context) error {
	if err := c.conn.Ping(ctx); err != nil {
		return errs.Lifecycle("push heartbeat", err)
	}
	return nil
}

func (c *wsConn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}
