package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"equity-share-calculator/internal/events"
	"equity-share-calculator/internal/logging"
	"equity-share-calculator/internal/preview"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS middleware guards the HTTP surface; the preview channel
		// accepts any origin so the page can reconnect across hosts.
		return true
	},
}

// WSClient represents one preview connection. Each client owns a
// preview session; inputs it sends are debounced and superseded there.
type WSClient struct {
	conn      *websocket.Conn
	send      chan []byte
	hub       *WSHub
	session   *preview.Session
	server    *Server
	log       *logging.Logger
	closeChan chan struct{}
	closeOnce sync.Once
}

// WSHub manages all WebSocket clients
type WSHub struct {
	clients    map[*WSClient]bool
	broadcast  chan []byte
	register   chan *WSClient
	unregister chan *WSClient
	mu         sync.RWMutex
}

// NewWSHub creates a new WebSocket hub
func NewWSHub() *WSHub {
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan []byte, 4096),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
	}
}

// Run starts the WebSocket hub
func (h *WSHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client's send channel is full, unregister it.
					// Don't close or delete here - let unregister handle it
					go func(c *WSClient) {
						h.unregister <- c
					}(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastEvent broadcasts an event to all connected clients
func (h *WSHub) BroadcastEvent(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	select {
	case h.broadcast <- data:
	default:
		// Broadcast channel full, drop the message
	}
}

// GetClientCount returns the number of connected clients
func (h *WSHub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// writePump pumps messages from the hub to the websocket connection
func (c *WSClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Debug("preview write failed", "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.closeChan:
			return
		}
	}
}

// readPump consumes calculate payloads from the connection and feeds
// them into the preview session. The session decides which trigger
// actually recalculates; stale ones are superseded, not queued.
func (c *WSClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
		c.closeOnce.Do(func() { close(c.closeChan) })
		c.server.previews.Remove(c.session.ID())
		if c.server.eventBus != nil {
			c.server.eventBus.Publish(events.Event{
				Type:      events.EventClientDisconnected,
				Timestamp: time.Now(),
				Data:      map[string]interface{}{"session_id": c.session.ID()},
			})
		}
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Debug("preview read failed", "error", err)
			}
			break
		}

		var req CalculateRequest
		if err := json.Unmarshal(data, &req); err != nil {
			c.sendJSON(map[string]interface{}{
				"type":   "CALCULATION_FAILED",
				"detail": "malformed payload: " + err.Error(),
			})
			continue
		}

		c.session.Submit(req.ToInput())
	}
}

// forwardUpdates pushes session results to this client until the
// session or the connection goes away.
func (c *WSClient) forwardUpdates() {
	for {
		select {
		case u, ok := <-c.session.Updates():
			if !ok {
				return
			}
			if u.Err != nil {
				c.sendJSON(map[string]interface{}{
					"type":   "CALCULATION_FAILED",
					"seq":    u.Seq,
					"detail": u.Err.Error(),
				})
				continue
			}
			c.sendJSON(map[string]interface{}{
				"type":   "CALCULATION_RESULT",
				"seq":    u.Seq,
				"result": toResponse(u.Result),
			})

		case <-c.closeChan:
			return
		}
	}
}

// sendJSON marshals v onto the client's send queue, dropping the
// message when the queue is full.
func (c *WSClient) sendJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// handlePreviewWS upgrades the connection and binds it to a fresh
// preview session
// GET /ws/preview
func (s *Server) handlePreviewWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	session := s.previews.NewSession()

	client := &WSClient{
		conn:      conn,
		send:      make(chan []byte, 256),
		hub:       s.hub,
		session:   session,
		server:    s,
		log:       s.logger.WithComponent("preview-ws"),
		closeChan: make(chan struct{}),
	}

	client.hub.register <- client

	if s.eventBus != nil {
		s.eventBus.Publish(events.Event{
			Type:      events.EventClientConnected,
			Timestamp: time.Now(),
			Data:      map[string]interface{}{"session_id": session.ID()},
		})
	}

	go client.writePump()
	go client.forwardUpdates()
	go client.readPump()

	client.sendJSON(map[string]interface{}{
		"type":       "CONNECTED",
		"session_id": session.ID(),
		"timestamp":  time.Now(),
	})
}
