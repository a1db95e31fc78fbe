package ws

import (
	"encoding/json"
	"sync"

	"github.com/ignatzorin/arbitration-backend/internal/logger"
)

// Hub рассылает события арбитража по WebSocket. Клиенты подписываются
// на конкретные споры; событие спора получают все его подписчики.
// События отправляются после фиксации перехода в базе, поэтому клиент
// никогда не видит событие отменённой транзакции.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	subs       map[int64]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
}

type message struct {
	disputeID int64
	payload   []byte
}

// NewHub создаёт новый хаб.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		subs:       make(map[int64]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 32),
	}
}

// Run запускает главный цикл хаба.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.send(msg.disputeID, msg.payload)
		}
	}
}

// Register добавляет клиента.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister удаляет клиента.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// NotifyDispute отправляет событие спора всем его подписчикам.
// Сообщение строго следует контракту WebSocket API: поле "type"
// содержит имя события, "dispute_id" — спор, "data" — полезную нагрузку.
func (h *Hub) NotifyDispute(disputeID int64, event string, data any) {
	payload := map[string]any{
		"type":       event,
		"dispute_id": disputeID,
		"data":       data,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Log.WithError(err).Error("ws: не удалось сериализовать событие")
		return
	}

	h.broadcast <- message{disputeID: disputeID, payload: raw}
}

// Subscribe подписывает клиента на события спора.
func (h *Hub) Subscribe(client *Client, disputeID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	if _, ok := h.subs[disputeID]; !ok {
		h.subs[disputeID] = make(map[*Client]struct{})
	}
	h.subs[disputeID][client] = struct{}{}
}

// Unsubscribe снимает подписку клиента на спор.
func (h *Hub) Unsubscribe(client *Client, disputeID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.subs[disputeID]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.subs, disputeID)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = struct{}{}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.clients, client)
	for disputeID, subs := range h.subs {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.subs, disputeID)
		}
	}
}

func (h *Hub) send(disputeID int64, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.subs[disputeID] {
		select {
		case client.send <- payload:
		default:
			// Медленный клиент отключается, остальные не ждут.
			go client.Close()
		}
	}
}
