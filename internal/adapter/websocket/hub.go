// Package websocket fans live metering payloads out to the sessions
// subscribed under each account's channel. The hub doubles as the
// explicit active-session registry queried by the periodic scheduler.
package websocket

import (
	"sync"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/homewatt/homewatt/internal/observability/telemetry"
)

type broadcastMsg struct {
	accountID int64
	payload   []byte
}

type Hub struct {
	// Sessions grouped by account channel.
	sessions map[int64]map[*Client]bool

	broadcast  chan broadcastMsg
	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex
}

type Client struct {
	hub *Hub
	// The websocket connection.
	conn *websocket.Conn
	// Buffered channel of outbound messages.
	send chan []byte

	sessionID string
	accountID int64
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan broadcastMsg),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		sessions:   make(map[int64]map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.sessions[client.accountID] == nil {
				h.sessions[client.accountID] = make(map[*Client]bool)
			}
			h.sessions[client.accountID][client] = true
			h.mu.Unlock()
			telemetry.ActiveSessions.Inc()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.sessions[client.accountID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
					telemetry.ActiveSessions.Dec()
				}
				if len(clients) == 0 {
					delete(h.sessions, client.accountID)
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.sessions[msg.accountID] {
				select {
				case client.send <- msg.payload:
				default:
					// A session that cannot keep up is dropped so it
					// never blocks its siblings.
					close(client.send)
					delete(h.sessions[msg.accountID], client)
					telemetry.ActiveSessions.Dec()
				}
			}
			if len(h.sessions[msg.accountID]) == 0 {
				delete(h.sessions, msg.accountID)
			}
			h.mu.Unlock()
			telemetry.BroadcastsSent.Inc()
		}
	}
}

// Broadcast delivers the payload to every session subscribed under the
// account's channel.
func (h *Hub) Broadcast(accountID int64, payload []byte) {
	h.broadcast <- broadcastMsg{accountID: accountID, payload: payload}
}

// ActiveAccounts returns the accounts with at least one live session.
func (h *Hub) ActiveAccounts() []int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	accounts := make([]int64, 0, len(h.sessions))
	for accountID := range h.sessions {
		accounts = append(accounts, accountID)
	}
	return accounts
}

func (h *Hub) AddClient(conn *websocket.Conn, accountID int64) {
	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 256),
		sessionID: uuid.NewString(),
		accountID: accountID,
	}
	client.hub.register <- client

	// writePump runs in its own goroutine; the read loop keeps the
	// caller's goroutine alive until the peer goes away.
	go client.writePump()
	client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		// The live channel is push-only; reads exist to process control
		// frames and to notice the peer closing.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) writePump() {
	defer func() {
		c.conn.Close()
	}()
	for message := range c.send {
		w, err := c.conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		w.Write(message)

		// Fold any queued payloads into the same frame flush.
		n := len(c.send)
		for i := 0; i < n; i++ {
			w.Write(<-c.send)
		}

		if err := w.Close(); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
