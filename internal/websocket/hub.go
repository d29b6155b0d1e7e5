package websocket

import (
	"encoding/json"
	"time"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"

	"github.com/makeasinger/fabricator/internal/model"
)

// Client control messages
const (
	MessageTypePing = "ping"
	MessageTypePong = "pong"
)

type controlMessage struct {
	Type string `json:"type"`
}

// Client represents a WebSocket client. Send is closed by the hub; replies
// to the client's own pings go through pong, which is never closed.
type Client struct {
	ChainID string
	Conn    *websocket.Conn
	Send    chan []byte
	pong    chan struct{}
}

func NewClient(chainID string, conn *websocket.Conn) *Client {
	return &Client{
		ChainID: chainID,
		Conn:    conn,
		Send:    make(chan []byte, 256),
		pong:    make(chan struct{}, 1),
	}
}

// Pong asks the writer to answer a ping. It never blocks and is safe after
// the hub has closed Send.
func (c *Client) Pong() {
	select {
	case c.pong <- struct{}{}:
	default:
	}
}

type frameWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// writePump owns every write to the connection until Send is closed or a
// write fails.
func (c *Client) writePump(w frameWriter, keepAlive time.Duration) {
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.Send:
			if !ok {
				w.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := w.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-c.pong:
			data, _ := json.Marshal(controlMessage{Type: MessageTypePong})
			if err := w.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			if err := w.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Hub fans segment events out to the subscribers of each chain
type Hub struct {
	// Clients grouped by chain ID
	clients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	done       chan struct{}

	log *zap.Logger
}

// BroadcastMessage represents a message to broadcast
type BroadcastMessage struct {
	ChainID string
	Message []byte
}

// NewHub creates a new Hub
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
		done:       make(chan struct{}),
		log:        log.Named("hub"),
	}
}

// Run starts the hub's main loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			if h.clients[client.ChainID] == nil {
				h.clients[client.ChainID] = make(map[*Client]bool)
			}
			h.clients[client.ChainID][client] = true
			h.log.Debug("client registered", zap.String("chain_id", client.ChainID))

		case client := <-h.unregister:
			h.remove(client)
			h.log.Debug("client unregistered", zap.String("chain_id", client.ChainID))

		case msg := <-h.broadcast:
			for client := range h.clients[msg.ChainID] {
				select {
				case client.Send <- msg.Message:
				default:
					h.remove(client)
				}
			}

		case <-h.done:
			return
		}
	}
}

// remove must only be called from Run.
func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.ChainID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.Send)
	if len(clients) == 0 {
		delete(h.clients, client.ChainID)
	}
}

func (h *Hub) Stop() {
	close(h.done)
}

// Register adds a new client
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister removes a client
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// BroadcastSegment sends a segment event to the chain's subscribers. Events
// are dropped rather than blocking fabrication when the hub is backed up.
func (h *Hub) BroadcastSegment(event model.SegmentEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Warn("failed to marshal segment event", zap.Error(err))
		return
	}

	select {
	case h.broadcast <- &BroadcastMessage{ChainID: event.ChainID.String(), Message: data}:
	default:
		h.log.Warn("dropped segment event", zap.String("chain_id", event.ChainID.String()), zap.String("type", event.Type))
	}
}

// HandleConnection handles a WebSocket connection
func (h *Hub) HandleConnection(c *websocket.Conn, chainID string) {
	client := NewClient(chainID, c)

	h.Register(client)
	defer h.Unregister(client)

	go client.writePump(c, 30*time.Second)

	// Reader loop
	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn("websocket error", zap.Error(err))
			}
			break
		}

		var msg controlMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		if msg.Type == MessageTypePing {
			client.Pong()
		}
	}
}
