package practice

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub fans events out to every WebSocket subscribed to a room and routes
// inbound intents (human_move, bot_move, room_created) to the manager.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*websocket.Conn]struct{}
	manager *Manager
	log     *zap.Logger

	botDelay time.Duration
}

func NewHub(manager *Manager, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		rooms:    make(map[string]map[*websocket.Conn]struct{}),
		manager:  manager,
		log:      log,
		botDelay: time.Second,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (h *Hub) HandleWS(c *gin.Context) {
	roomCode := c.Query("room_code")
	if roomCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing room_code"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	h.log.Info("websocket client connected", zap.String("roomCode", roomCode))

	h.mu.Lock()
	if _, ok := h.rooms[roomCode]; !ok {
		h.rooms[roomCode] = make(map[*websocket.Conn]struct{})
	}
	h.rooms[roomCode][conn] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.rooms[roomCode], conn)
		h.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		var msg struct {
			Action string          `json:"action"`
			Data   json.RawMessage `json:"data"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			h.log.Debug("websocket read ended", zap.Error(err))
			return
		}
		switch msg.Action {
		case "human_move":
			h.handleHumanMove(roomCode, msg.Data)
		case "bot_move":
			h.handleBotMove(roomCode)
		case "room_created":
			h.handleRoomCreated(roomCode, msg.Data)
		default:
			h.log.Warn("unknown action", zap.String("action", msg.Action))
		}
	}
}

// Broadcast sends one framed event to every connection in the room. A failed
// write evicts the connection.
func (h *Hub) Broadcast(roomCode, action string, data any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.rooms[roomCode]
	if !ok {
		return
	}
	message := map[string]any{"action": action, "data": data}
	for conn := range clients {
		if err := conn.WriteJSON(message); err != nil {
			h.log.Warn("broadcast write failed", zap.Error(err))
			conn.Close()
			delete(clients, conn)
		}
	}
}

func (h *Hub) handleHumanMove(roomCode string, raw json.RawMessage) {
	var move struct {
		PlayerID string `json:"player_id"`
		X        int    `json:"x"`
		Y        int    `json:"y"`
		Card     int    `json:"card"`
	}
	if err := json.Unmarshal(raw, &move); err != nil {
		h.log.Warn("invalid move payload", zap.Error(err))
		return
	}

	room, ok := h.manager.Get(roomCode)
	if !ok {
		h.sendError(roomCode, "room not found")
		return
	}
	if err := h.manager.ApplyMove(room, move.PlayerID, move.X, move.Y, move.Card); err != nil {
		h.log.Warn("move rejected",
			zap.String("player", move.PlayerID),
			zap.Error(err))
		h.sendError(roomCode, err.Error())
		return
	}
	h.scheduleBotIfDue(roomCode)
}

func (h *Hub) handleBotMove(roomCode string) {
	room, ok := h.manager.Get(roomCode)
	if !ok {
		h.sendError(roomCode, "room not found")
		return
	}
	cp := h.manager.currentPlayer(room)
	if cp == nil || !cp.IsBot {
		return
	}
	if _, err := h.manager.BotMove(room, cp.ID); err != nil {
		h.log.Warn("bot move failed", zap.Error(err))
		h.sendError(roomCode, err.Error())
	}
}

func (h *Hub) handleRoomCreated(roomCode string, raw json.RawMessage) {
	var req struct {
		RoomCode   string `json:"room_code"`
		PlayerName string `json:"player_name"`
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		h.log.Warn("invalid room_created payload", zap.Error(err))
		return
	}
	h.Broadcast(roomCode, "room_created", map[string]any{
		"room_code": roomCode,
		"status":    "lobby",
	})
}

// scheduleBotIfDue chains bot turns after a human move so hot-seat practice
// flows without client prompting.
func (h *Hub) scheduleBotIfDue(roomCode string) {
	room, ok := h.manager.Get(roomCode)
	if !ok || room.WinnerID != nil {
		return
	}
	cp := h.manager.currentPlayer(room)
	if cp == nil || !cp.IsBot {
		return
	}
	id := cp.ID
	time.AfterFunc(h.botDelay, func() {
		if _, err := h.manager.BotMoveByCode(roomCode, id); err != nil {
			h.log.Warn("chained bot move failed", zap.Error(err))
		}
	})
}

func (h *Hub) sendError(roomCode, message string) {
	h.Broadcast(roomCode, "error", map[string]any{"message": message})
}
