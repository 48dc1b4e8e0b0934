package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"code-reveal-backend/internal/logger"
	"code-reveal-backend/internal/models"
)

const (
	MessageState           = "state"
	MessageMarketUpdate    = "marketUpdate"
	MessageCharacterReveal = "characterReveal"
	MessageNewWinner       = "newWinner"
	MessagePing            = "ping"
	MessagePong            = "pong"

	clientSendBuffer = 32
	hubBroadcastSize = 256
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type Client struct {
	ID   string
	Conn *websocket.Conn
	send chan []byte
}

// WebSocketHub fans game events out to every connected client. It is the
// process's broadcaster: publishing never blocks the caller, and events are
// dropped with a warning when the queue or a client's buffer is full.
type WebSocketHub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	log        *logger.Logger
}

func NewWebSocketHub(log *logger.Logger) *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, hubBroadcastSize),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run owns the client registry until ctx is done. A client's send channel is
// closed only when its read loop unregisters it.
func (hub *WebSocketHub) Run(ctx context.Context) {
	defer close(hub.done)

	for {
		select {
		case client := <-hub.register:
			hub.clients[client.ID] = client
			hub.log.Debugf("Client registered: %s", client.ID)

		case client := <-hub.unregister:
			delete(hub.clients, client.ID)
			close(client.send)
			hub.log.Debugf("Client unregistered: %s", client.ID)

		case payload := <-hub.broadcast:
			for id, client := range hub.clients {
				select {
				case client.send <- payload:
				default:
					hub.log.Warnf("Dropping slow client %s", id)
					delete(hub.clients, id)
					client.Conn.Close()
				}
			}

		case <-ctx.Done():
			for id, client := range hub.clients {
				delete(hub.clients, id)
				client.Conn.Close()
			}
			return
		}
	}
}

func (hub *WebSocketHub) join(client *Client) bool {
	select {
	case hub.register <- client:
		return true
	case <-hub.done:
		return false
	}
}

func (hub *WebSocketHub) leave(client *Client) {
	select {
	case hub.unregister <- client:
	case <-hub.done:
	}
}

func (hub *WebSocketHub) publish(msgType string, data any) {
	payload, err := json.Marshal(Message{Type: msgType, Data: data})
	if err != nil {
		hub.log.Errorf("Failed to encode %s message: %v", msgType, err)
		return
	}

	select {
	case hub.broadcast <- payload:
	default:
		hub.log.Warnf("Broadcast queue full, dropping %s message", msgType)
	}
}

func (hub *WebSocketHub) BroadcastMarketUpdate(update models.MarketUpdate) {
	hub.publish(MessageMarketUpdate, update)
}

func (hub *WebSocketHub) BroadcastCharacterReveal(event *models.RevealEvent) {
	hub.publish(MessageCharacterReveal, event)
}

func (hub *WebSocketHub) BroadcastNewWinner(event *models.WinnerEvent) {
	hub.publish(MessageNewWinner, event)
}

type StateProvider interface {
	GetState(ctx context.Context) (*models.GameStateResponse, error)
}

type WebSocketHandler struct {
	hub   *WebSocketHub
	state StateProvider
	log   *logger.Logger
}

func NewWebSocketHandler(hub *WebSocketHub, state StateProvider, log *logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:   hub,
		state: state,
		log:   log,
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warnf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	client := &Client{
		ID:   models.GenerateClientID(),
		Conn: conn,
		send: make(chan []byte, clientSendBuffer),
	}

	h.sendState(c.Request.Context(), client)
	if !h.hub.join(client) {
		conn.Close()
		return
	}

	go h.writePump(client)
	h.readPump(client)
}

func (h *WebSocketHandler) readPump(client *Client) {
	defer func() {
		h.hub.leave(client)
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(4096)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := client.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warnf("WebSocket error: %v", err)
			}
			return
		}

		switch msg.Type {
		case MessagePing:
			h.enqueue(client, MessagePong, gin.H{"timestamp": time.Now().Unix()})
		}
	}
}

func (h *WebSocketHandler) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case payload, ok := <-client.send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *WebSocketHandler) sendState(ctx context.Context, client *Client) {
	state, err := h.state.GetState(ctx)
	if err != nil {
		h.log.Warnf("Failed to load state for %s: %v", client.ID, err)
		return
	}
	h.enqueue(client, MessageState, state)
}

// enqueue must only run before registration or from the client's read loop.
func (h *WebSocketHandler) enqueue(client *Client, msgType string, data any) {
	payload, err := json.Marshal(Message{Type: msgType, Data: data})
	if err != nil {
		h.log.Errorf("Failed to encode %s message: %v", msgType, err)
		return
	}

	select {
	case client.send <- payload:
	default:
		h.log.Warnf("Send buffer full for %s, dropping %s", client.ID, msgType)
	}
}
