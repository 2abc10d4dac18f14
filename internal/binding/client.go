package binding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/ordercast-server/internal/proto"
)

// ErrNotConnected is returned by sends while the client has no live connection.
// Bound stores are still re-joined once the connection comes back.
var ErrNotConnected = errors.New("not connected")

// Handler receives a server frame whose event name it was registered for.
type Handler func(proto.Frame)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithOrigin sets the Origin header sent on the handshake.
func WithOrigin(origin string) ClientOption {
	return func(c *Client) { c.origin = origin }
}

// WithBackoff bounds the reconnect delay.
func WithBackoff(minDelay, maxDelay time.Duration) ClientOption {
	return func(c *Client) {
		c.backoffMin = minDelay
		c.backoffMax = maxDelay
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *zerolog.Logger) ClientOption {
	return func(c *Client) { c.log = logger }
}

// Client is a reconnecting websocket connection to the order channel.
// Stores joined through it are reference counted and re-joined on every reconnect.
type Client struct {
	url        string
	token      string
	origin     string
	backoffMin time.Duration
	backoffMax time.Duration
	log        *zerolog.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	stores   map[string]int
	handlers map[string]map[uint64]Handler
	nextID   uint64
}

// NewClient creates a client for the /ws endpoint at rawURL, authenticating with token.
func NewClient(rawURL, token string, opts ...ClientOption) *Client {
	nop := zerolog.Nop()
	c := &Client{
		url:        rawURL,
		token:      token,
		backoffMin: 500 * time.Millisecond,
		backoffMax: 30 * time.Second,
		log:        &nop,
		stores:     make(map[string]int),
		handlers:   make(map[string]map[uint64]Handler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// On registers h for frames carrying the given event name. Error frames are
// dispatched under proto.OutboundTypeError. The returned func removes h.
func (c *Client) On(event string, h Handler) (release func()) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	if c.handlers[event] == nil {
		c.handlers[event] = make(map[uint64]Handler)
	}
	c.handlers[event][id] = h
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.handlers[event], id)
			if len(c.handlers[event]) == 0 {
				delete(c.handlers, event)
			}
			c.mu.Unlock()
		})
	}
}

// OnNewOrder registers a typed handler for new-order events.
func (c *Client) OnNewOrder(h func(proto.EventNewOrder)) (release func()) {
	return c.On(proto.EventNewOrderName, func(frame proto.Frame) {
		var ev proto.EventNewOrder
		if err := json.Unmarshal(frame.Data, &ev); err != nil {
			c.log.Warn().Err(err).Msg("decode new-order event")
			return
		}
		h(ev)
	})
}

// JoinStore subscribes to the store room. Only the first reference sends join_store.
func (c *Client) JoinStore(ctx context.Context, storeID string) error {
	c.mu.Lock()
	c.stores[storeID]++
	first := c.stores[storeID] == 1
	conn := c.conn
	c.mu.Unlock()

	if !first || conn == nil {
		return nil
	}
	return send(ctx, conn, proto.InboundTypeJoinStore, storeID)
}

// LeaveStore drops one reference; the last one sends leave_store.
func (c *Client) LeaveStore(ctx context.Context, storeID string) error {
	c.mu.Lock()
	n, ok := c.stores[storeID]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	if n > 1 {
		c.stores[storeID] = n - 1
		c.mu.Unlock()
		return nil
	}
	delete(c.stores, storeID)
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return send(ctx, conn, proto.InboundTypeLeaveStore, storeID)
}

// Stores returns the ids currently joined through this client.
func (c *Client) Stores() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.stores))
	for id := range c.stores {
		ids = append(ids, id)
	}
	return ids
}

// Run keeps a connection open until ctx is done, reconnecting with exponential
// backoff. The delay starts over after every session that got connected.
// A rejected handshake (401/403) is permanent and returned.
func (c *Client) Run(ctx context.Context) error {
	delay := c.backoffMin
	for {
		connected, err := c.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			delay = c.backoffMin
		}
		var rejected *handshakeError
		if errors.As(err, &rejected) {
			return err
		}
		if err != nil {
			c.log.Warn().Err(err).Dur("retry_in", delay).Msg("order channel disconnected")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay *= 2
		if delay > c.backoffMax {
			delay = c.backoffMax
		}
	}
}

type handshakeError struct {
	status int
}

func (e *handshakeError) Error() string {
	return fmt.Sprintf("handshake rejected: %s", http.StatusText(e.status))
}

// session runs one connection; connected is false when the dial failed.
func (c *Client) session(ctx context.Context) (connected bool, err error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return false, err
	}
	defer conn.CloseNow()

	c.mu.Lock()
	c.conn = conn
	stores := make([]string, 0, len(c.stores))
	for id := range c.stores {
		stores = append(stores, id)
	}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
	}()

	c.log.Info().Strs("stores", stores).Msg("order channel connected")
	for _, id := range stores {
		if err := send(ctx, conn, proto.InboundTypeJoinStore, id); err != nil {
			return true, fmt.Errorf("rejoin %s: %w", id, err)
		}
	}

	err = c.readLoop(ctx, conn)
	conn.Close(websocket.StatusNormalClosure, "bye")
	return true, err
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	if c.origin != "" {
		header.Set("Origin", c.origin)
	}

	conn, resp, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, &handshakeError{status: resp.StatusCode}
		}
		return nil, fmt.Errorf("dial: %w", err)
	}
	return conn, nil
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		var frame proto.Frame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure:
				return nil
			}
			return err
		}

		name := frame.Event
		if frame.Type == proto.OutboundTypeError {
			name = proto.OutboundTypeError
			if frame.Error != nil {
				c.log.Warn().Str("code", frame.Error.Code).Str("msg", frame.Error.Msg).Msg("order channel error")
			}
		}
		c.dispatch(name, frame)
	}
}

func (c *Client) dispatch(name string, frame proto.Frame) {
	c.mu.Lock()
	handlers := make([]Handler, 0, len(c.handlers[name]))
	for _, h := range c.handlers[name] {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()

	for _, h := range handlers {
		h(frame)
	}
}

func send(ctx context.Context, conn *websocket.Conn, kind, storeID string) error {
	data, err := json.Marshal(proto.StoreData{StoreID: storeID})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", kind, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: kind, Data: data}); err != nil {
		return fmt.Errorf("send %s: %w", kind, err)
	}
	return nil
}
