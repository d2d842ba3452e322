package websocket

import (
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Default pump tuning. Keepalive is off by default because the game
// engine keeps its connection open for the whole match without pinging;
// Options can turn it on per deployment.
const (
	defaultWriteWait = 10 * time.Second
	sendQueueSize    = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Engine and control clients connect from arbitrary local origins.
		return true
	},
}

// MessageHandler receives each inbound text message from a connection,
// in arrival order. A returned error drops only that message.
type MessageHandler func(data []byte) error

// Options tunes connection keepalive and limits. Zero values disable
// the corresponding deadline or limit.
type Options struct {
	// WriteWait bounds a single write to a peer.
	WriteWait time.Duration
	// PongWait closes connections that miss pongs. Requires PingInterval.
	PongWait time.Duration
	// PingInterval is the period between pings to each peer.
	PingInterval time.Duration
	// MaxMessageSize caps inbound message size in bytes.
	MaxMessageSize int64
}

// Client is one connected peer, engine or spectator alike.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string
}

// Hub maintains the set of open connections and fans broadcasts out to
// all of them. The connection map is owned by the Run loop; register,
// unregister, and broadcast requests arrive over channels.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	handler MessageHandler
	opts    Options
	count   atomic.Int64
}

// NewHub creates a hub with the given options.
func NewHub(opts Options) *Hub {
	if opts.WriteWait <= 0 {
		opts.WriteWait = defaultWriteWait
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		opts:       opts,
	}
}

// OnMessage installs the inbound message handler. Must be called before
// the first connection is accepted.
func (h *Hub) OnMessage(handler MessageHandler) {
	h.handler = handler
}

// Run starts the hub's event loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// ServeWS upgrades an HTTP request and starts the client pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		id:   uuid.NewString(),
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// Broadcast sends message to every connection open at the time the hub
// loop picks it up. Dead or stalled connections are dropped, never
// retried, and never fail the fan-out.
func (h *Hub) Broadcast(message []byte) {
	h.broadcast <- message
}

// Count reports the number of open connections.
func (h *Hub) Count() int {
	return int(h.count.Load())
}

func (h *Hub) registerClient(client *Client) {
	h.clients[client] = true
	h.count.Store(int64(len(h.clients)))
	log.Printf("Client %s connected (total clients: %d)", client.id, len(h.clients))
}

func (h *Hub) unregisterClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	h.count.Store(int64(len(h.clients)))
	log.Printf("Client %s disconnected (remaining clients: %d)", client.id, len(h.clients))
}

func (h *Hub) broadcastMessage(message []byte) {
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			// Send queue full or receiver gone; drop the client and
			// keep delivering to the rest.
			h.unregisterClient(client)
		}
	}
}

// readPump pumps messages from the connection to the hub's handler.
// Messages are handled one at a time, so a connection's stream is
// processed strictly in arrival order. Handler errors are the
// per-message error boundary: logged, message discarded, loop continues.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	if c.hub.opts.MaxMessageSize > 0 {
		c.conn.SetReadLimit(c.hub.opts.MaxMessageSize)
	}
	if c.hub.opts.PongWait > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.hub.opts.PongWait))
		c.conn.SetPongHandler(func(string) error {
			c.conn.SetReadDeadline(time.Now().Add(c.hub.opts.PongWait))
			return nil
		})
	}

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error on client %s: %v", c.id, err)
			}
			break
		}

		if c.hub.handler == nil {
			continue
		}
		if err := c.hub.handler(data); err != nil {
			log.Printf("Client %s: message dropped: %v", c.id, err)
		}
	}
}

// writePump pumps messages from the hub to the connection.
func (c *Client) writePump() {
	var ping <-chan time.Time
	if c.hub.opts.PingInterval > 0 {
		ticker := time.NewTicker(c.hub.opts.PingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}
	defer c.conn.Close()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ping:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
