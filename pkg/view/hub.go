package view

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/reactor/pkg/reactive"
)

// MessageType identifies a hub message.
type MessageType string

const (
	// MessageSubscribe is sent by clients to choose the keys they receive.
	MessageSubscribe MessageType = "subscribe"
	// MessageUpdate carries one effective write.
	MessageUpdate MessageType = "update"
	// MessageSnapshot carries the whole store.
	MessageSnapshot MessageType = "snapshot"
)

// Message is exchanged with browsers over the WebSocket.
type Message struct {
	Type      MessageType    `json:"type"`
	Key       string         `json:"key,omitempty"`
	Value     any            `json:"value,omitempty"`
	Text      string         `json:"text,omitempty"`
	Selectors []string       `json:"selectors,omitempty"`
	State     map[string]any `json:"state,omitempty"`
	Keys      []string       `json:"keys,omitempty"`
}

// Hub pushes store updates to connected WebSocket clients.
//
// A client receives every update until it sends a subscribe message, after
// which it only receives updates for the keys it named. Hub implements
// reactive.ViewSink and reactive.KeySource.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader

	format       Formatter
	snapshot     func() map[string]any
	writeTimeout time.Duration
	logger       *slog.Logger
}

type client struct {
	id   string
	conn *websocket.Conn

	// writeMu serializes writes; gorilla connections allow one writer.
	writeMu sync.Mutex

	// keys is nil until the client subscribes.
	keys map[string]bool
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithHubFormatter sets the formatter used for the text field of updates.
func WithHubFormatter(f Formatter) HubOption {
	return func(h *Hub) {
		h.format = f
	}
}

// WithSnapshot makes the hub greet every new client with the state
// returned by fn.
func WithSnapshot(fn func() map[string]any) HubOption {
	return func(h *Hub) {
		h.snapshot = fn
	}
}

// WithWriteTimeout bounds each write to a client. Defaults to 5s.
func WithWriteTimeout(d time.Duration) HubOption {
	return func(h *Hub) {
		if d > 0 {
			h.writeTimeout = d
		}
	}
}

// WithHubLogger sets the logger. Defaults to slog.Default().
func WithHubLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger.With("component", "hub")
		}
	}
}

// NewHub creates a hub with no clients.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		format:       NewFormatter(),
		writeTimeout: 5 * time.Second,
		logger:       slog.Default().With("component", "hub"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP upgrades the request and serves the client until it
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{id: uuid.NewString(), conn: conn}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("client connected", "client", c.id, "remote", r.RemoteAddr)

	if h.snapshot != nil {
		h.send(c, Message{Type: MessageSnapshot, State: h.snapshot()})
	}

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		if msg.Type == MessageSubscribe {
			h.subscribe(c, msg.Keys)
		}
	}

	h.drop(c)
	h.logger.Debug("client disconnected", "client", c.id)
}

func (h *Hub) subscribe(c *client, keys []string) {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	h.mu.Lock()
	c.keys = set
	h.mu.Unlock()
}

// UpdateView implements reactive.ViewSink.
func (h *Hub) UpdateView(u reactive.ViewUpdate) {
	msg := Message{
		Type:      MessageUpdate,
		Key:       u.Key,
		Value:     u.Value,
		Text:      h.format.Format(u.Key, u.Value),
		Selectors: u.Selectors,
	}
	for _, c := range h.targets(u.Key) {
		h.send(c, msg)
	}
}

// SendSnapshot sends the whole state to every client.
func (h *Hub) SendSnapshot(state map[string]any) {
	msg := Message{Type: MessageSnapshot, State: state}
	for _, c := range h.targets("") {
		h.send(c, msg)
	}
}

// ReactiveKeys implements reactive.KeySource. It returns the sorted union
// of the keys clients subscribed to.
func (h *Hub) ReactiveKeys() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := make(map[string]bool)
	for c := range h.clients {
		for k := range c.keys {
			set[k] = true
		}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		c.conn.Close()
		delete(h.clients, c)
	}
}

// targets returns the clients that should receive key. An empty key
// selects every client.
func (h *Hub) targets(key string) []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		if key == "" || c.keys == nil || c.keys[key] {
			out = append(out, c)
		}
	}
	return out
}

func (h *Hub) send(c *client, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		// Values JSON cannot represent still reach the client as text.
		msg.Value = nil
		msg.State = textState(msg.State)
		if data, err = json.Marshal(msg); err != nil {
			h.logger.Warn("message dropped", "type", msg.Type, "key", msg.Key, "error", err)
			return
		}
	}

	c.writeMu.Lock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	err = c.conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()

	if err != nil {
		h.logger.Debug("write failed, dropping client", "client", c.id, "error", err)
		h.drop(c)
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.conn.Close()
	}
}

func textState(state map[string]any) map[string]any {
	if state == nil {
		return nil
	}
	out := make(map[string]any, len(state))
	for k, v := range state {
		if _, err := json.Marshal(v); err != nil {
			out[k] = Text(v)
			continue
		}
		out[k] = v
	}
	return out
}
