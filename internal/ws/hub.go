// Package ws fans live resource updates out to websocket subscribers.
// Each update is addressed to one resource (kind + id); clients pick what
// they hear with subscribe/unsubscribe messages.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/marcoraddatz/komodo/internal/api"
)

// Update is one published event. Payload is a JSON snapshot of whatever
// changed (stats, logs, resource config).
type Update struct {
	Kind    api.ResourceKind `json:"kind"`
	ID      string           `json:"id"`
	Event   string           `json:"event"`
	Payload json.RawMessage  `json:"payload,omitempty"`
}

type subscriptionKey struct {
	kind api.ResourceKind
	id   string
}

type clientMessage struct {
	Type string `json:"type"`
	Resource struct {
		Kind api.ResourceKind `json:"kind"`
		ID   string           `json:"id"`
	} `json:"resource"`
}

// AuthFn resolves the upgrade request to a user.
type AuthFn func(r *http.Request) (api.RequestUser, error)

// AuthorizeFn reports whether the user may watch the given resource.
type AuthorizeFn func(ctx context.Context, user api.RequestUser, kind api.ResourceKind, id string) bool

const clientBuffer = 32

type client struct {
	conn          *websocket.Conn
	user          api.RequestUser
	send          chan Update
	subscriptions map[subscriptionKey]struct{}
	mu            sync.Mutex
}

func (c *client) subscribed(key subscriptionKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.subscriptions[key]
	return ok
}

func (c *client) setSubscribed(key subscriptionKey, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if on {
		c.subscriptions[key] = struct{}{}
	} else {
		delete(c.subscriptions, key)
	}
}

// Hub owns the subscriber set. A single run goroutine performs all
// publishes, so each subscriber observes updates for a resource in
// publish order. Subscribers that cannot keep up are dropped.
type Hub struct {
	auth      AuthFn
	authorize AuthorizeFn
	logger    *slog.Logger

	publish    chan Update
	register   chan *client
	unregister chan *client

	upgrader websocket.Upgrader
}

func NewHub(auth AuthFn, authorize AuthorizeFn, logger *slog.Logger) *Hub {
	return &Hub{
		auth:       auth,
		authorize:  authorize,
		logger:     logger,
		publish:    make(chan Update, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run processes registrations and publishes until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	clients := make(map[*client]struct{})
	for {
		select {
		case <-ctx.Done():
			for c := range clients {
				c.conn.Close()
			}
			return
		case c := <-h.register:
			clients[c] = struct{}{}
		case c := <-h.unregister:
			if _, ok := clients[c]; ok {
				delete(clients, c)
				close(c.send)
			}
		case update := <-h.publish:
			key := subscriptionKey{kind: update.Kind, id: update.ID}
			for c := range clients {
				if !c.subscribed(key) {
					continue
				}
				select {
				case c.send <- update:
				default:
					// Slow subscriber. Drop it rather than stall the hub.
					delete(clients, c)
					close(c.send)
					h.logger.Warn("dropping slow websocket subscriber", "user_id", c.user.ID)
				}
			}
		}
	}
}

// Publish queues an update for fan-out. Never blocks the caller beyond
// the hub's inbound buffer.
func (h *Hub) Publish(update Update) {
	select {
	case h.publish <- update:
	default:
		h.logger.Warn("websocket hub backlogged, dropping update", "kind", update.Kind, "id", update.ID)
	}
}

// PublishJSON marshals payload and publishes it.
func (h *Hub) PublishJSON(kind api.ResourceKind, id, event string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to encode websocket payload", "error", err)
		return
	}
	h.Publish(Update{Kind: kind, ID: id, Event: event, Payload: raw})
}

// ServeHTTP upgrades the connection after authenticating the caller.
// Tokens may arrive in the Authorization header or a token query param,
// since browsers cannot set headers on websocket upgrades.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") == "" {
		if token := r.URL.Query().Get("token"); token != "" {
			r.Header.Set("Authorization", "Bearer "+strings.TrimPrefix(token, "Bearer "))
		}
	}
	user, err := h.auth(r)
	if err != nil {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		conn:          conn,
		user:          user,
		send:          make(chan Update, clientBuffer),
		subscriptions: make(map[subscriptionKey]struct{}),
	}
	h.register <- c

	go h.writeLoop(c)
	h.readLoop(r.Context(), c)
}

func (h *Hub) writeLoop(c *client) {
	for update := range c.send {
		if err := c.conn.WriteJSON(update); err != nil {
			break
		}
	}
	c.conn.Close()
}

func (h *Hub) readLoop(ctx context.Context, c *client) {
	defer func() { h.unregister <- c }()
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error", "error", err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		key := subscriptionKey{kind: msg.Resource.Kind, id: msg.Resource.ID}
		switch msg.Type {
		case "subscribe":
			if h.authorize(ctx, c.user, key.kind, key.id) {
				c.setSubscribed(key, true)
			}
		case "unsubscribe":
			c.setSubscribed(key, false)
		}
	}
}
