package hub

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/wemet/relay-server-go/internal/metrics"
	"github.com/wemet/relay-server-go/internal/protocol"
)

const SendBufferSize = 256

// Client is the outbound side of one live transport. The transport drains
// Events until Done is closed.
type Client struct {
	ID     string
	Events chan protocol.Outbound
	Done   chan struct{}
}

// Hub tracks live transports by connection id and delivers outbound
// messages to them without blocking the caller.
type Hub struct {
	clients map[string]*Client
	mu      sync.RWMutex
	metrics *metrics.Metrics
}

func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		metrics: m,
	}
}

func (h *Hub) Subscribe(connID string) *Client {
	client := &Client{
		ID:     connID,
		Events: make(chan protocol.Outbound, SendBufferSize),
		Done:   make(chan struct{}),
	}

	h.mu.Lock()
	if old, ok := h.clients[connID]; ok {
		close(old.Done)
	}
	h.clients[connID] = client
	clientCount := len(h.clients)
	h.mu.Unlock()

	log.Debug().
		Str("connectionId", connID).
		Int("clientCount", clientCount).
		Msg("transport subscribed")

	return client
}

func (h *Hub) Unsubscribe(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.clients[client.ID]; ok && current == client {
		delete(h.clients, client.ID)
		close(client.Done)

		log.Debug().
			Str("connectionId", client.ID).
			Int("clientCount", len(h.clients)).
			Msg("transport unsubscribed")
	}
}

// Send queues msg for connID. It reports false when the connection is not
// live or its queue is full; the message is lost in both cases.
func (h *Hub) Send(connID string, msg protocol.Outbound) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[connID]
	if !ok {
		h.metrics.IncDropped(metrics.DropReasonNotLive)
		return false
	}

	select {
	case client.Events <- msg:
		return true
	default:
		log.Warn().
			Str("connectionId", connID).
			Str("event", string(msg.OutboundEvent())).
			Msg("client event buffer full, dropping event")
		h.metrics.IncDropped(metrics.DropReasonBufferFull)
		return false
	}
}

func (h *Hub) IsLive(connID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[connID]
	return ok
}

func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		close(client.Done)
	}
	h.clients = make(map[string]*Client)
}

func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
