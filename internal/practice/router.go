package practice

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"javanese-chess-client/internal/weights"
)

// NewRouter wires the practice authority's HTTP surface: the REST endpoints
// the api client consumes, the WebSocket endpoint, and Prometheus metrics.
func NewRouter(rm *Manager, hub *Hub, reg *prometheus.Registry, log *zap.Logger) *gin.Engine {
	r := gin.Default()

	r.GET("/ws", hub.HandleWS)

	r.POST("/api/play", PlayHandler(rm, log))
	r.POST("/api/join", JoinHandler(rm))
	r.POST("/create-room", CreateRoomHandler(rm))

	r.GET("/possible-moves", PossibleMovesHandler(rm))
	r.POST("/move", MoveHandler(rm))
	r.POST("/move-bot", MoveBotHandler(rm))

	r.GET("/api/config/weights/default", DefaultWeightsHandler())
	r.GET("/api/config/weights/room", RoomWeightsHandler(rm))

	if reg != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}
	return r
}

// @Summary Start a practice game
// @Description Create a room with the requested humans and bots and start it
// @Tags Game
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/play [post]
func PlayHandler(rm *Manager, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			NumberBot    int          `json:"number_bot"`
			NumberPlayer int          `json:"number_player"`
			PlayerName   []string     `json:"player_name"`
			RoomID       string       `json:"room_id"`
			Weights      weights.Wire `json:"weights"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid payload"})
			return
		}
		room := rm.StartGame(StartGameParams{
			PlayerNames:     req.PlayerName,
			RoomID:          req.RoomID,
			NumberOfBots:    req.NumberBot,
			NumberOfPlayers: req.NumberPlayer,
			Weights:         weights.FromWire(req.Weights),
		})
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"board":      room.Board,
				"players":    room.Players,
				"room_code":  room.Code,
				"status":     room.Status,
				"turn_order": room.TurnOrder,
			},
		})
	}
}

// @Summary Join an existing room
// @Tags Room
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/join [post]
func JoinHandler(rm *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			RoomCode   string `json:"room_code"`
			PlayerName string `json:"player_name"`
		}
		if err := c.BindJSON(&req); err != nil || req.RoomCode == "" || req.PlayerName == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "room_code and player_name required"})
			return
		}
		p, err := rm.Join(req.RoomCode, req.PlayerName)
		if err != nil {
			status := http.StatusBadRequest
			if err == ErrRoomNotFound {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"success": false, "error": err.Error()})
			return
		}
		room, _ := rm.Get(req.RoomCode)
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"room_code": req.RoomCode,
				"player_id": p.ID,
				"status":    room.Status,
			},
		})
	}
}

// @Summary Create a new lobby
// @Description Create a room with a single human player
// @Tags Room
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /create-room [post]
func CreateRoomHandler(rm *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			PlayerName string `json:"playerName"`
		}
		if err := c.BindJSON(&req); err != nil || req.PlayerName == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "playerName required"})
			return
		}
		room := rm.CreateRoom(req.PlayerName)
		c.JSON(http.StatusOK, gin.H{"roomCode": room.Code, "room": room})
	}
}

// @Summary Get possible placements for a player
// @Description Returns all cells where the player may place or replace
// @Tags Game
// @Produce json
// @Param roomCode query string true "Room Code"
// @Param playerId query string true "Player ID"
// @Success 200 {object} map[string]interface{}
// @Router /possible-moves [get]
func PossibleMovesHandler(rm *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		roomCode := c.Query("roomCode")
		playerID := c.Query("playerId")
		room, ok := rm.Get(roomCode)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		var hand []int
		found := false
		for _, p := range room.Players {
			if p.ID == playerID {
				hand = p.Hand
				found = true
				break
			}
		}
		if !found {
			c.JSON(http.StatusBadRequest, gin.H{"error": "player not found"})
			return
		}

		type Box struct {
			X    int    `json:"x"`
			Y    int    `json:"y"`
			Mode string `json:"mode"`
		}
		seen := map[[2]int]string{}
		for _, m := range LegalPlacements(room.Board, hand, playerID) {
			mode := "place"
			if cell := room.Board.Cell(m.X, m.Y); cell != nil && cell.OwnerID != "" && cell.OwnerID != playerID {
				mode = "replace"
			}
			key := [2]int{m.X, m.Y}
			if prev, ok := seen[key]; !ok || (prev != "replace" && mode == "replace") {
				seen[key] = mode
			}
		}
		out := make([]Box, 0, len(seen))
		for k, v := range seen {
			out = append(out, Box{X: k[0], Y: k[1], Mode: v})
		}
		c.JSON(http.StatusOK, gin.H{"boxes": out})
	}
}

// @Summary Player makes a move
// @Description Submit coordinates (x, y) and card value for the player's move
// @Tags Game
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /move [post]
func MoveHandler(rm *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			RoomCode string `json:"roomCode"`
			X        int    `json:"x"`
			Y        int    `json:"y"`
			Value    int    `json:"value"`
			PlayerID string `json:"playerId"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
		room, ok := rm.Get(req.RoomCode)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		if err := rm.ApplyMove(room, req.PlayerID, req.X, req.Y, req.Value); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"ok":     true,
			"room":   room,
			"winner": room.WinnerID,
			"draw":   room.Draw,
			"rank":   rm.Rank(room),
		})
	}
}

// @Summary Let the bot make its move
// @Description Bot picks the best placement using heuristic evaluation
// @Tags Game
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /move-bot [post]
func MoveBotHandler(rm *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			RoomCode string `json:"roomCode"`
			BotID    string `json:"botId"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
		room, ok := rm.Get(req.RoomCode)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		mv, err := rm.BotMove(room, req.BotID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"x": mv.X, "y": mv.Y, "value": mv.Card,
			"lastState": gin.H{"winner": room.WinnerID, "draw": room.Draw},
			"rank":      rm.Rank(room),
			"room":      room,
		})
	}
}

// @Summary Get default heuristic weights
// @Tags Config
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/config/weights/default [get]
func DefaultWeightsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"weights": weights.Default().ToWire()})
	}
}

// @Summary Get room heuristic weights
// @Tags Config
// @Produce json
// @Param roomCode query string true "Room Code"
// @Success 200 {object} map[string]interface{}
// @Router /api/config/weights/room [get]
func RoomWeightsHandler(rm *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		roomCode := c.Query("roomCode")
		if roomCode == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "roomCode is required"})
			return
		}
		room, ok := rm.Get(roomCode)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"room_code": roomCode,
			"weights":   room.Weights.ToWire(),
		})
	}
}
