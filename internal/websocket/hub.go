package websocket

import (
	"encoding/json"
	"sync"
)

// BalanceUpdate is pushed to subscribers after each committed posting for
// every account the posting touched. Amounts are formatted strings; the
// engine never puts floats on the wire.
type BalanceUpdate struct {
	AccountCode   string `json:"account_code"`
	DebitBalance  string `json:"debit_balance"`
	CreditBalance string `json:"credit_balance"`
	NetBalance    string `json:"net_balance"`
}

// Hub fans balance updates out to clients subscribed by account code. An
// empty code subscribes to everything.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(accountCode string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[accountCode] == nil {
		h.clients[accountCode] = make(map[*Client]struct{})
	}
	h.clients[accountCode][client] = struct{}{}
}

func (h *Hub) Unregister(accountCode string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[accountCode] == nil {
		return
	}
	delete(h.clients[accountCode], client)
	if len(h.clients[accountCode]) == 0 {
		delete(h.clients, accountCode)
	}
}

func (h *Hub) BroadcastBalance(accountCode string, update BalanceUpdate) {
	payload, _ := json.Marshal(update)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, code := range []string{accountCode, ""} {
		for client := range h.clients[code] {
			select {
			case client.send <- payload:
			default:
			}
		}
	}
}
