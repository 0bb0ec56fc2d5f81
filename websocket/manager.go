package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"zenly/middleware"

	"github.com/gorilla/websocket"
)

// RoomResources is the shared broadcast group for resource engagement
// counters. Clients join it while a resource list is on screen.
const RoomResources = "resources"

type Manager struct {
	clients    map[*Client]bool
	broadcast  chan roomMessage
	register   chan *Client
	unregister chan *Client
	join       chan subscription
	leave      chan subscription
	mu         sync.RWMutex
}

type Client struct {
	conn    *websocket.Conn
	userID  string
	send    chan []byte
	rooms   map[string]bool
	manager *Manager
}

type subscription struct {
	client *Client
	room   string
}

type roomMessage struct {
	room string
	data []byte
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan roomMessage),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan subscription),
		leave:      make(chan subscription),
	}
}

func (m *Manager) Start() {
	for {
		select {
		case client := <-m.register:
			m.mu.Lock()
			m.clients[client] = true
			m.mu.Unlock()
			log.Printf("WebSocket client registered (user %s). Total clients: %d", client.userID, m.ClientCount())

		case client := <-m.unregister:
			m.mu.Lock()
			if _, ok := m.clients[client]; ok {
				delete(m.clients, client)
				close(client.send)
			}
			m.mu.Unlock()
			log.Printf("WebSocket client unregistered. Total clients: %d", m.ClientCount())

		case sub := <-m.join:
			m.mu.Lock()
			sub.client.rooms[sub.room] = true
			m.mu.Unlock()

		case sub := <-m.leave:
			m.mu.Lock()
			delete(sub.client.rooms, sub.room)
			m.mu.Unlock()

		case msg := <-m.broadcast:
			m.mu.Lock()
			for client := range m.clients {
				if !client.rooms[msg.room] {
					continue
				}
				select {
				case client.send <- msg.data:
				default:
					close(client.send)
					delete(m.clients, client)
				}
			}
			m.mu.Unlock()
		}
	}
}

// BroadcastViewUpdate pushes the current view count of a resource to every
// client in the resources room. The payload is a snapshot, not a delta, so
// out-of-order delivery self-corrects on the next event.
func (m *Manager) BroadcastViewUpdate(resourceID string, viewCount int64) {
	m.broadcastToRoom(RoomResources, "resource:viewUpdate", map[string]interface{}{
		"resourceId": resourceID,
		"viewCount":  viewCount,
	})
}

// BroadcastLikeUpdate pushes the current helpful count of a resource to
// every client in the resources room.
func (m *Manager) BroadcastLikeUpdate(resourceID string, helpfulCount int64) {
	m.broadcastToRoom(RoomResources, "resource:likeUpdate", map[string]interface{}{
		"resourceId":   resourceID,
		"helpfulCount": helpfulCount,
	})
}

func (m *Manager) broadcastToRoom(room, event string, payload map[string]interface{}) {
	data := map[string]interface{}{
		"type":    event,
		"payload": payload,
	}

	msg, err := json.Marshal(data)
	if err != nil {
		log.Printf("Error marshaling WebSocket message: %v", err)
		return
	}

	m.broadcast <- roomMessage{room: room, data: msg}
}

func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// RoomCount reports how many clients currently subscribe to a room.
func (m *Manager) RoomCount(room string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for client := range m.clients {
		if client.rooms[room] {
			n++
		}
	}
	return n
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func WebSocketHandler(manager *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			log.Printf("WebSocket connection rejected: no token provided")
			http.Error(w, "Token required", http.StatusUnauthorized)
			return
		}

		claims, err := middleware.ParseToken(token)
		if err != nil {
			log.Printf("WebSocket connection rejected: %v", err)
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed: %v", err)
			return
		}

		client := &Client{
			conn:    conn,
			userID:  claims.UserID,
			send:    make(chan []byte, 256),
			rooms:   make(map[string]bool),
			manager: manager,
		}

		manager.register <- client

		welcomeMsg := map[string]interface{}{
			"type": "connected",
			"payload": map[string]interface{}{
				"userId": claims.UserID,
				"time":   time.Now().Unix(),
			},
		}
		msg, _ := json.Marshal(welcomeMsg)
		client.send <- msg

		go client.writePump()
		go client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.manager.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}

		var data map[string]interface{}
		if err := json.Unmarshal(message, &data); err != nil {
			log.Printf("WebSocket message unmarshal error: %v", err)
			continue
		}

		switch data["type"] {
		case "resources:join":
			c.manager.join <- subscription{client: c, room: RoomResources}
			c.acknowledge("resources:joined")
		case "resources:leave":
			c.manager.leave <- subscription{client: c, room: RoomResources}
			c.acknowledge("resources:left")
		case "ping":
			c.sendPong()
		}
	}
}

func (c *Client) writePump() {
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
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) acknowledge(event string) {
	response := map[string]interface{}{
		"type": event,
		"payload": map[string]interface{}{
			"userId": c.userID,
			"time":   time.Now().Unix(),
		},
	}

	msg, err := json.Marshal(response)
	if err != nil {
		log.Printf("Error marshaling acknowledgement: %v", err)
		return
	}

	c.send <- msg
}

func (c *Client) sendPong() {
	response := map[string]interface{}{
		"type": "pong",
		"payload": map[string]interface{}{
			"time": time.Now().Unix(),
		},
	}

	msg, err := json.Marshal(response)
	if err != nil {
		log.Printf("Error marshaling pong: %v", err)
		return
	}

	c.send <- msg
}
