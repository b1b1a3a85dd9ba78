package detector

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"PollinatorTracker/internal/entity"
	"PollinatorTracker/pkg/log"

	"github.com/gorilla/websocket"
)

type WebSocketConfig struct {
	// URL is the ws:// or wss:// endpoint. Each binary message sent is one
	// image; each text reply is a Response.
	URL string
	// HealthURL, when set, is polled over HTTP instead of dialing.
	HealthURL    string
	Timeout      time.Duration
	PingInterval time.Duration
	Names        ClassNames
}

// webSocketClient keeps a single connection to the detector. One request
// owns the connection from write to read, so replies can never be handed to
// the wrong caller.
type webSocketClient struct {
	cfg          WebSocketConfig
	conn         *websocket.Conn
	mu           sync.Mutex
	readTimeout  time.Duration
	writeTimeout time.Duration
	httpClient   *http.Client
	done         chan struct{}
	closeOnce    sync.Once
	wg           sync.WaitGroup
}

func NewWebSocket(cfg WebSocketConfig) (IDetector, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("detector url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}

	c := &webSocketClient{
		cfg:          cfg,
		readTimeout:  cfg.Timeout,
		writeTimeout: 5 * time.Second,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		done:         make(chan struct{}),
	}

	c.wg.Add(1)
	go c.keepAlive()

	return c, nil
}

func (c *webSocketClient) Name() string {
	return "ws"
}

// connect must be called with c.mu held.
func (c *webSocketClient) connect(ctx context.Context) (*websocket.Conn, error) {
	if c.conn != nil {
		return c.conn, nil
	}

	log.Info(log.Fields{"url": c.cfg.URL}, "[detector.ws] connecting to detector")

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", c.cfg.URL, err)
	}

	c.conn = conn
	return conn, nil
}

// drop must be called with c.mu held.
func (c *webSocketClient) drop() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func (c *webSocketClient) Detect(ctx context.Context, imagePath string) ([]entity.Detection, error) {
	frame, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return nil, ErrUnavailable
	default:
	}

	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	_ = conn.SetWriteDeadline(deadline(ctx, c.writeTimeout))
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		c.drop()
		return nil, fmt.Errorf("error sending frame: %w", err)
	}

	_ = conn.SetReadDeadline(deadline(ctx, c.readTimeout))
	_, message, err := conn.ReadMessage()
	if err != nil {
		c.drop()
		return nil, fmt.Errorf("error reading detector message: %w", err)
	}

	_ = conn.SetReadDeadline(time.Time{})
	_ = conn.SetWriteDeadline(time.Time{})

	return decodeResponse(message, c.cfg.Names)
}

func (c *webSocketClient) CheckHealth(ctx context.Context) error {
	if c.cfg.HealthURL != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.HealthURL, nil)
		if err != nil {
			return err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("detector unhealthy: %d", resp.StatusCode)
		}
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.connect(ctx)
	return err
}

func (c *webSocketClient) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	c.wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.drop()

	return nil
}

func (c *webSocketClient) keepAlive() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		if c.conn != nil {
			err := c.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(c.writeTimeout))
			if err != nil {
				log.Warn(log.Fields{"error": err.Error()}, "[detector.ws] ping failed, dropping connection")
				c.drop()
			}
		}
		c.mu.Unlock()
	}
}

// deadline is now+d, or the context deadline when that comes first.
func deadline(ctx context.Context, d time.Duration) time.Time {
	t := time.Now().Add(d)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(t) {
		return ctxDeadline
	}
	return t
}
