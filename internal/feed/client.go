// Package feed is a WebSocket client for live station price quotes.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"fuel-price-lab/internal/domain"
)

// ErrClosed is returned by operations on a closed client.
var ErrClosed = errors.New("feed client closed")

// Quote is one live price update.
type Quote struct {
	Station     string
	Fuel        domain.FuelType
	TimestampMs int64
	Price       float32
}

// Config configures client behavior.
type Config struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// SubscribeTimeout bounds the wait for a subscription confirmation.
	SubscribeTimeout time.Duration
	// Buffer is the capacity of each quote channel.
	Buffer int
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       90 * time.Second,
		WriteTimeout:      10 * time.Second,
		SubscribeTimeout:  15 * time.Second,
		Buffer:            1024,
	}
}

type subscription struct {
	stations []string
	ch       chan Quote
}

// pendingCall is a subscribe request waiting for its confirmation. The read
// loop registers sub under the confirmed id before any notification for it
// is read.
type pendingCall struct {
	sub   *subscription
	oldID int64 // previous id when renewing after a reconnect, else 0
	resp  chan rpcResponse
}

// Client keeps one WebSocket connection to the feed, reconnecting with
// exponential backoff and renewing subscriptions after a reconnect.
type Client struct {
	endpoint string
	config   Config
	logger   *log.Logger

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// keyed by server subscription id
	subs   map[int64]*subscription
	subsMu sync.RWMutex

	pending   map[uint64]*pendingCall
	pendingMu sync.Mutex

	done         chan struct{}
	wg           sync.WaitGroup
	reconnecting atomic.Bool
	reconnects   atomic.Int64
}

// Dial connects to endpoint and starts the read and ping loops.
func Dial(ctx context.Context, endpoint string, config *Config, logger *log.Logger) (*Client, error) {
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.Default()
	}

	c := &Client{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger,
		subs:     make(map[int64]*subscription),
		pending:  make(map[uint64]*pendingCall),
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()

	return c, nil
}

func (c *Client) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

// Reconnects returns how often the connection was re-established.
func (c *Client) Reconnects() int64 {
	return c.reconnects.Load()
}

// Subscribe asks the feed for quotes of the given stations (URLs or names);
// no stations means every station. The returned channel is closed by Close.
func (c *Client) Subscribe(ctx context.Context, stations []string) (<-chan Quote, error) {
	sub := &subscription{
		stations: append([]string(nil), stations...),
		ch:       make(chan Quote, c.config.Buffer),
	}
	if _, err := c.subscribe(ctx, sub, 0); err != nil {
		return nil, err
	}
	return sub.ch, nil
}

// subscribe sends the request and waits for the subscription id.
func (c *Client) subscribe(ctx context.Context, sub *subscription, oldID int64) (int64, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}

	reqID := c.requestID.Add(1)
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  methodSubscribe,
		Params:  []any{subscribeParams{Stations: sub.stations}},
	}

	respCh := make(chan rpcResponse, 1)
	c.pendingMu.Lock()
	c.pending[reqID] = &pendingCall{sub: sub, oldID: oldID, resp: respCh}
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, reqID)
		c.pendingMu.Unlock()
	}()

	if err := c.write(req); err != nil {
		return 0, err
	}

	timer := time.NewTimer(c.config.SubscribeTimeout)
	defer timer.Stop()

	select {
	case resp, ok := <-respCh:
		if !ok {
			return 0, ErrClosed
		}
		if resp.Error != nil {
			return 0, fmt.Errorf("subscribe: %d %s", resp.Error.Code, resp.Error.Message)
		}
		var id int64
		if err := json.Unmarshal(resp.Result, &id); err != nil {
			return 0, fmt.Errorf("subscribe: decode id: %w", err)
		}
		return id, nil
	case <-timer.C:
		return 0, fmt.Errorf("subscription timeout after %s", c.config.SubscribeTimeout)
	case <-c.done:
		return 0, ErrClosed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (c *Client) write(v any) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := c.conn.WriteJSON(v); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Close closes the connection and every quote channel. It is safe to call
// more than once.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()

	c.subsMu.Lock()
	for id, sub := range c.subs {
		close(sub.ch)
		delete(c.subs, id)
	}
	c.subsMu.Unlock()

	c.pendingMu.Lock()
	for id, call := range c.pending {
		close(call.resp)
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()

	return nil
}

func (c *Client) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			if !c.reconnecting.Swap(true) {
				c.logger.Printf("feed read failed, reconnecting in %s: %v", reconnectDelay, err)
				c.wg.Add(1)
				go c.reconnect(conn, reconnectDelay)
			}

			reconnectDelay = min(reconnectDelay*2, c.config.MaxReconnectDelay)

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = c.config.ReconnectDelay
		c.handleMessage(message)
	}
}

// reconnect replaces the broken connection and renews all subscriptions.
func (c *Client) reconnect(broken *websocket.Conn, delay time.Duration) {
	defer c.wg.Done()
	defer c.reconnecting.Store(false)

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	c.connMu.Lock()
	if c.conn == broken && c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		// next read error retries
		c.logger.Printf("feed reconnect failed: %v", err)
		return
	}
	c.reconnects.Add(1)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.resubscribeAll()
	}()
}

func (c *Client) resubscribeAll() {
	c.subsMu.RLock()
	old := make(map[int64]*subscription, len(c.subs))
	for id, sub := range c.subs {
		old[id] = sub
	}
	c.subsMu.RUnlock()

	for oldID, sub := range old {
		if c.closed.Load() {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), c.config.SubscribeTimeout)
		_, err := c.subscribe(ctx, sub, oldID)
		cancel()
		if errors.Is(err, ErrClosed) {
			return
		}
		if err != nil {
			c.logger.Printf("feed resubscribe %d: %v", oldID, err)
		}
	}
}

func (c *Client) handleMessage(message []byte) {
	var notif rpcNotification
	if err := json.Unmarshal(message, &notif); err == nil && notif.Method == methodNotification {
		c.handleNotification(&notif)
		return
	}

	var resp rpcResponse
	if err := json.Unmarshal(message, &resp); err != nil || resp.ID == 0 {
		c.logger.Printf("feed: ignoring message: %.120s", message)
		return
	}

	c.pendingMu.Lock()
	call, ok := c.pending[resp.ID]
	c.pendingMu.Unlock()
	if !ok {
		return
	}

	if resp.Error == nil {
		var id int64
		if err := json.Unmarshal(resp.Result, &id); err == nil {
			c.subsMu.Lock()
			if call.oldID != 0 {
				delete(c.subs, call.oldID)
			}
			c.subs[id] = call.sub
			c.subsMu.Unlock()
		}
	}

	select {
	case call.resp <- resp:
	default:
	}
}

func (c *Client) handleNotification(notif *rpcNotification) {
	if notif.Params == nil {
		return
	}

	msg := notif.Params.Result
	fuel, err := domain.ParseFuelType(msg.Fuel)
	if err != nil {
		c.logger.Printf("feed: %s: %v", msg.Station, err)
		return
	}

	c.subsMu.RLock()
	sub, ok := c.subs[notif.Params.Subscription]
	c.subsMu.RUnlock()
	if !ok {
		return
	}

	q := Quote{
		Station:     msg.Station,
		Fuel:        fuel,
		TimestampMs: msg.Timestamp,
		Price:       msg.Price,
	}
	select {
	case sub.ch <- q:
	case <-c.done:
	}
}

func (c *Client) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				// a dead connection surfaces as a read error
				_ = c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}
