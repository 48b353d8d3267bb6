package web

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// WSMessage WebSocket消息结构 (进度广播)
type WSMessage struct {
	Type   string      `json:"type"`
	GameID string      `json:"game_id,omitempty"`
	Status string      `json:"status,omitempty"`
	Data   interface{} `json:"data,omitempty"`
}

// Client WebSocket客户端
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// 过滤器由 readPump 写、Hub.Run 读，必须加锁
	filterMu sync.Mutex
	types    map[string]bool // 消息类型过滤器
	gameIDs  map[string]bool // 比赛ID过滤器
}

// Hub WebSocket Hub
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan *WSMessage
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub 创建新的Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *WSMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run 运行Hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("Client registered. Total clients: %d", len(h.clients))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("Client unregistered. Total clients: %d", len(h.clients))

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				if !client.shouldReceive(message) {
					continue
				}

				select {
				case client.send <- h.marshalMessage(message):
				default:
					h.mu.RUnlock()
					h.mu.Lock()
					close(client.send)
					delete(h.clients, client)
					h.mu.Unlock()
					h.mu.RLock()
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast 广播消息（实现ProgressNotifier接口）
func (h *Hub) Broadcast(message interface{}) {
	if wsMsg, ok := message.(*WSMessage); ok {
		h.broadcast <- wsMsg
		return
	}

	if msgMap, ok := message.(map[string]interface{}); ok {
		wsMsg := &WSMessage{}

		if v, ok := msgMap["type"].(string); ok {
			wsMsg.Type = v
		}
		if v, ok := msgMap["game_id"].(string); ok {
			wsMsg.GameID = v
		}
		if v, ok := msgMap["status"].(string); ok {
			wsMsg.Status = v
		}
		if v, ok := msgMap["data"]; ok {
			wsMsg.Data = v
		}

		h.broadcast <- wsMsg
	}
}

// marshalMessage 序列化消息
func (h *Hub) marshalMessage(message *WSMessage) []byte {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Failed to marshal message: %v", err)
		return []byte("{}")
	}
	return data
}

// shouldReceive 检查客户端是否应该接收消息
func (c *Client) shouldReceive(message *WSMessage) bool {
	c.filterMu.Lock()
	defer c.filterMu.Unlock()

	// 如果没有设置过滤器,接收所有消息
	if len(c.types) == 0 && len(c.gameIDs) == 0 {
		return true
	}

	if len(c.types) > 0 {
		if _, ok := c.types[message.Type]; !ok {
			return false
		}
	}

	if len(c.gameIDs) > 0 {
		if message.GameID == "" {
			return false
		}
		if _, ok := c.gameIDs[message.GameID]; !ok {
			return false
		}
	}

	return true
}

// readPump 读取客户端消息
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump 向客户端写入消息
func (c *Client) writePump() {
	defer func() {
		c.conn.Close()
	}()

	for {
		message, ok := <-c.send
		if !ok {
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

// handleMessage 处理客户端发送的消息 (设置过滤器)
func (c *Client) handleMessage(message []byte) {
	var msg map[string]interface{}
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Printf("Failed to unmarshal client message: %v", err)
		return
	}

	msgType, ok := msg["type"].(string)
	if !ok {
		return
	}

	switch msgType {
	case "subscribe":
		if types, ok := msg["types"].([]interface{}); ok {
			newTypes := make(map[string]bool)
			for _, t := range types {
				if name, ok := t.(string); ok {
					newTypes[name] = true
				}
			}
			c.filterMu.Lock()
			c.types = newTypes
			c.filterMu.Unlock()
		}

		if gameIDs, ok := msg["game_ids"].([]interface{}); ok {
			newGameIDs := make(map[string]bool)
			for _, g := range gameIDs {
				if gameID, ok := g.(string); ok {
					newGameIDs[gameID] = true
				}
			}
			c.filterMu.Lock()
			c.gameIDs = newGameIDs
			c.filterMu.Unlock()
		}

		log.Println("Client subscription filters updated")

	case "unsubscribe":
		c.filterMu.Lock()
		c.types = make(map[string]bool)
		c.gameIDs = make(map[string]bool)
		c.filterMu.Unlock()
		log.Println("Client unsubscribed")
	}
}
