// Package websocket provides the live push channel for clinic assistants.
// Authenticated assistants hold one open connection each; the registry maps
// their identity to the connection so workflow events can be delivered with
// low latency. Durable notification records remain the source of truth --
// delivery here is best effort.
package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/spineclinic/intake/internal/platform/auth"
)

// Event is a push message delivered to a connected assistant.
type Event struct {
	Type      string    `json:"type"`
	PatientID string    `json:"patientId,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one registered connection with its outbound buffer.
type Client struct {
	identity uuid.UUID
	send     chan []byte
	conn     Conn
}

// Registry maps assistant identities to open connections. All operations are
// safe for concurrent use. One connection per identity: registering a new
// connection for an identity closes and replaces the previous one.
type Registry struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*Client
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[uuid.UUID]*Client)}
}

// Register adds a connection for the identity, replacing any existing one.
// The replaced connection's buffer is closed under the write lock so no
// concurrent Send can hit a closed channel.
func (r *Registry) Register(identity uuid.UUID, conn Conn) *Client {
	c := &Client{identity: identity, send: make(chan []byte, 64), conn: conn}

	r.mu.Lock()
	prev := r.clients[identity]
	r.clients[identity] = c
	if prev != nil {
		close(prev.send)
	}
	r.mu.Unlock()

	if prev != nil {
		prev.conn.Close()
	}
	return c
}

// Unregister removes the connection for the identity. A stale unregister
// (after the identity already reconnected) is a no-op. Closing the buffer
// happens under the write lock, mutually exclusive with Send.
func (r *Registry) Unregister(identity uuid.UUID, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.clients[identity]
	if !ok || current != c {
		return
	}
	delete(r.clients, identity)
	close(c.send)
}

// Send delivers an event to the identity's connection if one is open.
// Returns false when the assistant is not connected or the buffer is full.
func (r *Registry) Send(identity uuid.UUID, event Event) bool {
	data, err := json.Marshal(event)
	if err != nil {
		return false
	}

	// Hold the read lock across the channel send: the buffer is only ever
	// closed under the write lock, so the send cannot race the close. The
	// select never blocks, so the lock is held only briefly.
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[identity]
	if !ok {
		return false
	}

	select {
	case c.send <- data:
		return true
	default:
		// Buffer full; drop rather than block the caller.
		return false
	}
}

// Connected reports whether the identity has an open connection.
func (r *Registry) Connected(identity uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[identity]
	return ok
}

// Count returns the number of open connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// ---------------------------------------------------------------------------
// Handler — Echo HTTP handler for WebSocket connections
// ---------------------------------------------------------------------------

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; tighten in production.
	},
}

// Handler upgrades HTTP connections to WebSocket after validating the
// bearer token passed as a query parameter.
type Handler struct {
	registry *Registry
	secret   string
	logger   zerolog.Logger
}

// NewHandler creates a handler bound to the given registry.
func NewHandler(registry *Registry, secret string, logger zerolog.Logger) *Handler {
	return &Handler{registry: registry, secret: secret, logger: logger}
}

// RegisterRoutes registers the WebSocket endpoint.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.HandleConnect)
}

// HandleConnect validates the token, rejects non-assistant roles, upgrades
// the connection, and starts the read/write pumps. An invalid or absent
// token terminates the handshake immediately.
func (h *Handler) HandleConnect(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}
	claims, err := auth.ParseToken(h.secret, token)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	ident, err := auth.IdentityFromClaims(claims)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	if ident.Role != auth.RoleAssistant {
		return echo.NewHTTPError(http.StatusForbidden, "live push is available to assistants only")
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	conn := &gorillaConnAdapter{ws}
	cl := h.registry.Register(ident.ID, conn)
	h.logger.Info().Str("assistant", ident.ID.String()).Msg("websocket connected")

	go h.writePump(cl)
	go h.readPump(ident.ID, cl)

	return nil
}

// readPump drains inbound frames until the connection drops, then removes
// the registry entry.
func (h *Handler) readPump(identity uuid.UUID, cl *Client) {
	defer func() {
		h.registry.Unregister(identity, cl)
		cl.conn.Close()
		h.logger.Info().Str("assistant", identity.String()).Msg("websocket disconnected")
	}()

	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump writes queued events to the connection.
func (h *Handler) writePump(cl *Client) {
	defer cl.conn.Close()

	for message := range cl.send {
		if err := cl.conn.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			return
		}
	}
}

// gorillaConnAdapter wraps a gorilla/websocket.Conn to satisfy the Conn interface.
type gorillaConnAdapter struct {
	conn *gorillawebsocket.Conn
}

func (a *gorillaConnAdapter) ReadMessage() (int, []byte, error) {
	return a.conn.ReadMessage()
}

func (a *gorillaConnAdapter) WriteMessage(messageType int, data []byte) error {
	return a.conn.WriteMessage(messageType, data)
}

func (a *gorillaConnAdapter) Close() error {
	return a.conn.Close()
}
