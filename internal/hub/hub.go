// Package hub is the push delivery channel: it maps logical users to their
// live connections and fans events out to them, best-effort. Delivery is
// at-most-once with no acknowledgment or retry; the notification outbox is
// the durability backstop for anything dropped here.
package hub

import (
	"encoding/json"
	"sync"

	"sociogram/backend/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Event names understood by clients.
const (
	EventUpdate  = "update"
	EventWarning = "warning"
	EventError   = "error"
)

// Event is a named, structured payload sent to clients.
type Event struct {
	Name    string `json:"name"`
	Payload any    `json:"payload"`
}

// Client is one live connection of a user. The transport handler reads
// serialized events from C until it is closed by Unbind.
type Client struct {
	ID     uuid.UUID
	UserID uint
	C      chan []byte
}

// Hub keeps the binding registry. Connections are transient process state,
// never persisted; a user may hold several at once (multiple tabs).
type Hub struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]*Client
	users map[uint]map[uuid.UUID]*Client
}

// GlobalHub is the singleton instance of our Hub.
var GlobalHub = NewHub()

func NewHub() *Hub {
	return &Hub{
		conns: make(map[uuid.UUID]*Client),
		users: make(map[uint]map[uuid.UUID]*Client),
	}
}

// Bind registers a new connection for a user and returns it.
func (h *Hub) Bind(userID uint) *Client {
	client := &Client{
		ID:     uuid.New(),
		UserID: userID,
		// Buffered so one slow consumer cannot block the sender.
		C: make(chan []byte, 16),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[client.ID] = client
	if _, ok := h.users[userID]; !ok {
		h.users[userID] = make(map[uuid.UUID]*Client)
	}
	h.users[userID][client.ID] = client

	return client
}

// Unbind removes a connection and closes its channel. Unknown ids are a
// no-op, so transport handlers can defer it unconditionally.
func (h *Hub) Unbind(connID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.conns[connID]
	if !ok {
		return
	}
	delete(h.conns, connID)

	if clients, ok := h.users[client.UserID]; ok {
		delete(clients, connID)
		if len(clients) == 0 {
			delete(h.users, client.UserID)
		}
	}
	close(client.C)
}

// Send fans an event out to every live connection of the given users.
// Fire-and-forget: users without connections and clients with full buffers
// are logged and counted, never surfaced as errors.
func (h *Hub) Send(event string, payload any, userIDs ...uint) {
	data, err := json.Marshal(Event{Name: event, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("push payload not serializable")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, userID := range userIDs {
		clients, ok := h.users[userID]
		if !ok {
			log.Debug().Uint("user", userID).Str("event", event).
				Msg("push dropped, no live connection")
			metrics.PushDropped.Inc()
			continue
		}
		for _, client := range clients {
			select {
			case client.C <- data:
				metrics.PushDelivered.Inc()
			default:
				// Buffer full; the client is slow or gone. The outbox
				// still holds whatever state this event described.
				log.Warn().Uint("user", userID).Str("conn", client.ID.String()).
					Msg("push dropped, client buffer full")
				metrics.PushDropped.Inc()
			}
		}
	}
}

// Connections reports the number of live connections for a user.
func (h *Hub) Connections(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}
