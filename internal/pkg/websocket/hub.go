package websocket

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
	"github.com/yigit/coursemarket/internal/app/models"
)

type delivery struct {
	userID string
	data   []byte
}

// Hub maintains the set of active clients and pushes notifications to them
type Hub struct {
	// Registered clients organized by user ID
	clients map[string]map[*Client]bool

	// Notifications waiting to be written to a user's clients
	deliver chan delivery

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed by Stop
	done     chan struct{}
	stopOnce sync.Once

	// Guards clients for readers outside Run
	mu sync.RWMutex

	// Logger for Hub operations
	logger zerolog.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		deliver:    make(chan delivery, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run handles client registrations and deliveries until Stop is called
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case d := <-h.deliver:
			h.deliverMessage(d)

		case <-h.done:
			h.closeAll()
			return
		}
	}
}

// Stop disconnects every client and ends Run
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// registerClient registers a new client to the hub
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true

	h.logger.Info().
		Str("userID", client.userID).
		Str("addr", client.remoteAddr()).
		Msg("Client registered")
}

// unregisterClient unregisters a client from the hub
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

// removeLocked drops client and closes its send channel. Caller holds mu.
func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, client.userID)
	}

	h.logger.Info().
		Str("userID", client.userID).
		Str("addr", client.remoteAddr()).
		Msg("Client unregistered")
}

// deliverMessage writes one notification to every client of a user
func (h *Hub) deliverMessage(d delivery) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[d.userID]
	if !ok {
		h.logger.Debug().Str("userID", d.userID).Msg("No clients connected for notification")
		return
	}

	for client := range clients {
		select {
		case client.send <- d.data:
		default:
			// Slow consumer
			h.removeLocked(client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			h.removeLocked(client)
		}
	}
}

// Notify queues a notification for the connected clients of userID.
// Users without a live connection miss it.
func (h *Hub) Notify(userID string, notification models.Notification) {
	data, err := json.Marshal(notification)
	if err != nil {
		h.logger.Error().Err(err).Str("userID", userID).Msg("Failed to marshal notification")
		return
	}

	select {
	case h.deliver <- delivery{userID: userID, data: data}:
	case <-h.done:
	}
}

// ClientCount returns the number of live connections of a user
func (h *Hub) ClientCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
