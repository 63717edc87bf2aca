package websocket

import (
	"encoding/json"
	"sync"

	"arena/internal/models"

	"go.uber.org/zap"
)

const (
	EventBalance = "balance"
	EventSeats   = "seats"
)

// Envelope is the frame every live update is sent in.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub fans committed updates out to connected clients. Balance updates go
// to the owning account only; seat counts go to everyone. Slow clients
// miss frames rather than block the sender.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(accountID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[accountID] == nil {
		h.clients[accountID] = make(map[*Client]struct{})
	}
	h.clients[accountID][client] = struct{}{}
}

func (h *Hub) Unregister(accountID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[accountID] == nil {
		return
	}
	delete(h.clients[accountID], client)
	if len(h.clients[accountID]) == 0 {
		delete(h.clients, accountID)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

func (h *Hub) BroadcastBalance(accountID string, update models.BalanceUpdate) {
	payload, ok := h.encode(EventBalance, update)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[accountID] {
		client.offer(payload)
	}
}

func (h *Hub) BroadcastSeats(update models.SeatUpdate) {
	payload, ok := h.encode(EventSeats, update)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, set := range h.clients {
		for client := range set {
			client.offer(payload)
		}
	}
}

func (h *Hub) encode(kind string, data any) ([]byte, bool) {
	payload, err := json.Marshal(Envelope{Type: kind, Data: data})
	if err != nil {
		h.logger.Error("encode live update", zap.String("type", kind), zap.Error(err))
		return nil, false
	}
	return payload, true
}
