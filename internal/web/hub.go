package web

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/blockedby/finlog/internal/logger"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
)

// Hub fans out messages to connected websocket clients. A message goes
// either to every client or to the connections of one owner.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	upgrader   websocket.Upgrader
}

type outbound struct {
	// owner is empty for messages meant for everyone
	owner string
	data  []byte
}

// Client is one websocket connection.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	owner string
}

// NewHub creates a hub. Call Run to start it. Upgrades are accepted from
// the server's own origin and from allowedOrigins.
func NewHub(allowedOrigins ...string) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker accepts requests without an Origin header, from the host
// serving the request, or from one of allowed.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(strings.ToLower(o), "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host) || set[strings.ToLower(origin)]
	}
}

// Run processes registrations and broadcasts until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				if message.owner != "" && client.owner != message.owner {
					continue
				}
				select {
				case client.send <- message.data:
				default:
					// slow consumer
					close(client.send)
					delete(h.clients, client)
				}
			}
		case <-h.done:
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return
		}
	}
}

// Stop terminates Run and closes every client.
func (h *Hub) Stop() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

// Broadcast sends message to all clients. Byte slices are sent as is,
// anything else is JSON encoded. It never blocks the caller; when the
// queue is full the message is dropped.
func (h *Hub) Broadcast(message interface{}) {
	h.enqueue("", message)
}

// SendTo sends message to the connections of owner only.
func (h *Hub) SendTo(owner string, message interface{}) {
	if owner == "" {
		return
	}
	h.enqueue(owner, message)
}

func (h *Hub) enqueue(owner string, message interface{}) {
	var data []byte
	switch m := message.(type) {
	case []byte:
		data = m
	case string:
		data = []byte(m)
	default:
		b, err := json.Marshal(m)
		if err != nil {
			logger.Get().Component("hub").Warn().Err(err).Msg("encode broadcast")
			return
		}
		data = b
	}

	select {
	case h.broadcast <- outbound{owner: owner, data: data}:
	default:
		logger.Get().Component("hub").Warn().Msg("broadcast queue full, message dropped")
	}
}

// ServeWs upgrades the request and attaches the connection to hub on behalf
// of owner. Connections without an owner only receive broadcasts.
func ServeWs(hub *Hub, owner string, w http.ResponseWriter, r *http.Request) {
	conn, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Get().Component("hub").Debug().Err(err).Msg("websocket upgrade")
		return
	}

	client := &Client{hub: hub, conn: conn, send: make(chan []byte, sendBuffer), owner: owner}
	select {
	case hub.register <- client:
	case <-hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump drains inbound frames so pongs and close frames are processed.
// Clients never send application messages.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
