package transport

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"runtime/debug"
	"sync"
	"time"

	"github.com/camerarecorder/cloud-agent-go/internal/config"
	"github.com/camerarecorder/cloud-agent-go/internal/logging"
	"github.com/gorilla/websocket"
	"golang.org/x/net/proxy"
)

// MessageHandler is invoked with each inbound frame, off the read
// goroutine's own stack so a slow handler only delays that one channel.
type MessageHandler func(data []byte)

// ControlChannel is the persistent message-oriented connection to the
// cloud control endpoint (spec.md §4.2 "Control channel"). It is grounded
// on the teacher's WebSocket server connection handling
// (internal/websocket/server.go handleClientConnection), inverted from a
// server accepting connections to a client dialing out, keeping the same
// ping-ticker / pong-deadline keepalive discipline and panic-recovered
// read loop.
type ControlChannel struct {
	cfg    *config.TransportConfig
	logger *logging.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	writeMu  sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup

	OnMessage    MessageHandler
	OnDisconnect func(err error)
}

// NewControlChannel builds a channel that has not yet dialed anywhere.
func NewControlChannel(cfg *config.TransportConfig, logger *logging.Logger) *ControlChannel {
	if logger == nil {
		logger = logging.GetLogger("control-channel")
	}
	return &ControlChannel{cfg: cfg, logger: logger}
}

// Dial connects to target, optionally through the SOCKS5 proxy named in
// cfg.ProxyURL (socks5://[user:pass@]host[:port]), completes the
// WebSocket handshake, and starts the read/keepalive goroutine. A socks4://
// proxy URL is not dialed: Dial returns an error for it. Only one
// connection is live per ControlChannel; Dial after a prior Dial replaces
// it.
func (c *ControlChannel) Dial(ctx context.Context, target string) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}

	if c.cfg.ProxyURL != "" {
		netDialer, err := newProxyDialer(c.cfg.ProxyURL)
		if err != nil {
			return fmt.Errorf("control channel: building proxy dialer: %w", err)
		}
		dialer.NetDialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return netDialer.Dial(network, addr)
		}
	}

	conn, _, err := dialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("control channel: dial %s: %w", target, err)
	}

	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = conn
	c.stopChan = make(chan struct{})
	stopChan := c.stopChan
	c.mu.Unlock()

	conn.SetReadLimit(c.cfg.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	c.wg.Add(1)
	go c.readLoop(conn, stopChan)

	return nil
}

// readLoop mirrors handleClientConnection's select over a ping ticker and
// blocking reads, recovering from panics so one malformed frame never
// takes the whole agent down.
func (c *ControlChannel) readLoop(conn *websocket.Conn, stopChan chan struct{}) {
	defer c.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			c.logger.WithFields(logging.Fields{
				"panic": r,
				"stack": string(debug.Stack()),
			}).Error("recovered from panic in control channel read loop")
		}
	}()

	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				c.handleDisconnect(err)
				return
			}
			if c.OnMessage != nil {
				c.OnMessage(data)
			}
		}
	}()

	for {
		select {
		case <-stopChan:
			return
		case <-done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			c.writeMu.Unlock()
			if err != nil {
				c.handleDisconnect(err)
				return
			}
		}
	}
}

func (c *ControlChannel) handleDisconnect(err error) {
	if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.logger.WithFields(logging.Fields{"error": err}).Warn("control channel closed unexpectedly")
	}
	if c.OnDisconnect != nil {
		c.OnDisconnect(err)
	}
}

// Send writes one frame as a text message. Safe for concurrent use.
func (c *ControlChannel) Send(data []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("control channel: not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Close tears down the active connection, if any, and waits for the read
// loop to exit.
func (c *ControlChannel) Close() error {
	c.mu.Lock()
	conn := c.conn
	stopChan := c.stopChan
	c.conn = nil
	c.mu.Unlock()

	if stopChan != nil {
		close(stopChan)
	}
	var err error
	if conn != nil {
		err = conn.Close()
	}
	c.wg.Wait()
	return err
}

// newProxyDialer builds a proxy.Dialer from a socks5:// URL (spec.md §4.2)
// using golang.org/x/net/proxy, the only SOCKS implementation in the
// example ecosystem. x/net/proxy has no SOCKS4 dialer; socks4:// is
// rejected rather than silently downgraded to a different wire protocol
// (see DESIGN.md).
func newProxyDialer(rawURL string) (proxy.Dialer, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing proxy url: %w", err)
	}

	switch u.Scheme {
	case "socks5":
		return proxy.FromURL(u, proxy.Direct)
	case "socks4":
		return nil, fmt.Errorf("proxy scheme socks4 is not supported: no SOCKS4 dialer available")
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
}
