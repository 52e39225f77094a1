package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"micro-casino/internal/middleware"
	"micro-casino/internal/models"
	"micro-casino/internal/services"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientSendSize = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Message struct {
	Type    string      `json:"type"`
	UserID  int64       `json:"user_id,omitempty"`
	RoundID string      `json:"round_id,omitempty"`
	Data    interface{} `json:"data"`

	to *Client
}

type Client struct {
	UserID int64
	Conn   *websocket.Conn
	send   chan *Message
}

// WebSocketHub fans round results out to every open connection of the
// owning user. It implements services.Broadcaster.
type WebSocketHub struct {
	clients    map[int64]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	done       chan struct{}
}

var _ services.Broadcaster = (*WebSocketHub)(nil)

func NewWebSocketHub() *WebSocketHub {
	hub := &WebSocketHub{
		clients:    make(map[int64]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 100),
		done:       make(chan struct{}),
	}
	go hub.run()
	return hub
}

func (hub *WebSocketHub) Close() {
	close(hub.done)
}

func (hub *WebSocketHub) run() {
	for {
		select {
		case client := <-hub.register:
			conns, ok := hub.clients[client.UserID]
			if !ok {
				conns = make(map[*Client]struct{})
				hub.clients[client.UserID] = conns
			}
			conns[client] = struct{}{}
			log.WithField("user_id", client.UserID).Debug("websocket client registered")

		case client := <-hub.unregister:
			if conns, ok := hub.clients[client.UserID]; ok {
				if _, ok := conns[client]; ok {
					delete(conns, client)
					close(client.send)
				}
				if len(conns) == 0 {
					delete(hub.clients, client.UserID)
				}
				log.WithField("user_id", client.UserID).Debug("websocket client unregistered")
			}

		case message := <-hub.broadcast:
			hub.deliver(message)

		case <-hub.done:
			for _, conns := range hub.clients {
				for client := range conns {
					close(client.send)
				}
			}
			hub.clients = nil
			return
		}
	}
}

// deliver drops messages for clients whose buffer is full rather than
// stalling the hub.
func (hub *WebSocketHub) deliver(message *Message) {
	targets := hub.clients[message.UserID]
	if message.to != nil {
		if _, ok := targets[message.to]; !ok {
			return
		}
		targets = map[*Client]struct{}{message.to: {}}
	} else if message.UserID == 0 {
		targets = make(map[*Client]struct{})
		for _, conns := range hub.clients {
			for client := range conns {
				targets[client] = struct{}{}
			}
		}
	}
	for client := range targets {
		select {
		case client.send <- message:
		default:
			log.WithField("user_id", client.UserID).Warn("websocket send buffer full, dropping message")
		}
	}
}

func (hub *WebSocketHub) BroadcastRoundResult(rec *models.RoundRecord) {
	msg := &Message{
		Type:    "ROUND_RESULT",
		UserID:  rec.UserID,
		RoundID: rec.ID,
		Data:    rec,
	}
	select {
	case hub.broadcast <- msg:
	default:
		log.WithField("round_id", rec.ID).Warn("websocket broadcast queue full")
	}
}

type WebSocketHandler struct {
	hub     *WebSocketHub
	wallets services.WalletStore
}

func NewWebSocketHandler(hub *WebSocketHub, wallets services.WalletStore) *WebSocketHandler {
	return &WebSocketHandler{
		hub:     hub,
		wallets: wallets,
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := c.GetInt64(middleware.ContextUserID)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("failed to upgrade to websocket")
		return
	}

	client := &Client{
		UserID: userID,
		Conn:   conn,
		send:   make(chan *Message, clientSendSize),
	}
	select {
	case h.hub.register <- client:
	case <-h.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	h.sendBalance(c, client)
	h.readPump(client)
}

func (h *WebSocketHandler) readPump(client *Client) {
	defer func() {
		select {
		case h.hub.unregister <- client:
		case <-h.hub.done:
		}
		client.Conn.Close()
	}()

	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := client.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithError(err).WithField("user_id", client.UserID).Warn("websocket error")
			}
			return
		}

		if msg.Type == "PING" {
			h.enqueue(client, &Message{
				Type: "PONG",
				Data: gin.H{"timestamp": time.Now().Unix()},
			})
		}
	}
}

func (client *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteJSON(msg); err != nil {
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

// enqueue replies to a single connection through the hub, which owns the send channels.
func (h *WebSocketHandler) enqueue(client *Client, msg *Message) {
	msg.UserID = client.UserID
	msg.to = client
	select {
	case h.hub.broadcast <- msg:
	case <-h.hub.done:
	}
}

func (h *WebSocketHandler) sendBalance(c *gin.Context, client *Client) {
	wallet, err := h.wallets.GetWallet(c.Request.Context(), client.UserID)
	if err != nil {
		log.WithError(err).WithField("user_id", client.UserID).Warn("failed to get wallet for websocket")
		return
	}

	h.enqueue(client, &Message{
		Type: "BALANCE_UPDATE",
		Data: wallet.Response(),
	})
}
