// Package practice embeds a self-contained game authority so the client can
// run offline games against the bot heuristic. It speaks the same HTTP and
// WebSocket surface the remote authority does, which also makes it the test
// double for the projection engine.
package practice

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"javanese-chess-client/internal/game"
	"javanese-chess-client/internal/protocol"
	"javanese-chess-client/internal/weights"
)

// Room is the authoritative per-game record. Its JSON shape is the
// state-updated payload as-is.
type Room struct {
	Code      string            `json:"code"`
	Board     protocol.Board    `json:"board"`
	Players   []protocol.Player `json:"players"`
	TurnIdx   int               `json:"turn_idx"`
	TurnOrder []string          `json:"turn_order"`
	WinnerID  *string           `json:"winner_id,omitempty"`
	Draw      bool              `json:"draw"`
	Status    string            `json:"status"`
	CreatedAt time.Time         `json:"createdAt"`

	Weights weights.Weights `json:"-"`
}

// Broadcaster pushes an event to every connection subscribed to a room.
type Broadcaster interface {
	Broadcast(roomCode, action string, data any)
}

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrNotYourTurn  = errors.New("not your turn or player invalid")
	ErrCardNotHeld  = errors.New("card not in hand")
	ErrIllegalMove  = errors.New("illegal move")
	ErrGameOver     = errors.New("game already finished")
	ErrGameStarted  = errors.New("game already started")
)

type Manager struct {
	store Store
	hub   Broadcaster
	log   *zap.Logger
	rng   *rand.Rand
}

func NewManager(s Store, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		store: s,
		log:   log,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetHub breaks the construction cycle between the manager and the hub.
func (m *Manager) SetHub(hub Broadcaster) { m.hub = hub }

// GenerateDeck creates a shuffled deck of 18 cards, two sets of 1-9.
func (m *Manager) GenerateDeck() []int {
	deck := make([]int, 2*game.CardMax)
	for i := 0; i < game.CardMax; i++ {
		deck[i] = i + 1
		deck[i+game.CardMax] = i + 1
	}
	m.rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	return deck
}

// StartGameParams configures a new practice game.
type StartGameParams struct {
	PlayerNames     []string
	RoomID          string
	NumberOfBots    int
	NumberOfPlayers int
	Weights         weights.Weights
}

// StartGame builds a room with the requested humans and bots, shuffles the
// seating, and broadcasts game_started. If a bot opens, its move is
// scheduled here; clients suppress their own trigger for the opening turn.
func (m *Manager) StartGame(p StartGameParams) *Room {
	code := p.RoomID
	if code == "" {
		code = m.randCode(6)
	}
	r := &Room{
		Code:      code,
		Board:     protocol.NewBoard(game.BoardSize),
		Status:    protocol.StatusPlaying,
		CreatedAt: time.Now(),
		Weights:   p.Weights,
	}

	names := p.PlayerNames
	if len(names) == 0 {
		names = []string{"Player"}
	}
	for i := len(names); i < p.NumberOfPlayers; i++ {
		names = append(names, fmt.Sprintf("Player %d", i+1))
	}
	for _, name := range names {
		r.Players = append(r.Players, m.newPlayer(name, false))
	}
	bots := p.NumberOfBots
	if bots <= 0 && len(r.Players) < 2 {
		bots = 1
	}
	for i := 0; i < bots; i++ {
		r.Players = append(r.Players, m.newPlayer("Bot", true))
	}

	m.rng.Shuffle(len(r.Players), func(i, j int) {
		r.Players[i], r.Players[j] = r.Players[j], r.Players[i]
	})
	r.TurnOrder = make([]string, len(r.Players))
	for i := range r.Players {
		r.Players[i].Color = string(game.DefaultColors[i%len(game.DefaultColors)])
		r.TurnOrder[i] = r.Players[i].ID
	}

	m.store.SaveRoom(r)
	m.broadcast(r.Code, "game_started", map[string]any{
		"board":      r.Board,
		"players":    r.Players,
		"room_code":  r.Code,
		"status":     r.Status,
		"turn_order": r.TurnOrder,
	})
	m.log.Info("practice game started",
		zap.String("roomCode", r.Code),
		zap.Int("players", len(r.Players)))

	if cp := m.currentPlayer(r); cp != nil && cp.IsBot {
		id := cp.ID
		time.AfterFunc(time.Second, func() {
			if _, err := m.BotMoveByCode(r.Code, id); err != nil {
				m.log.Warn("opening bot move failed", zap.Error(err))
			}
		})
	}
	return r
}

// CreateRoom opens a lobby with a single human; the game starts later via
// AddBots or Join.
func (m *Manager) CreateRoom(creatorName string) *Room {
	r := &Room{
		Code:      m.randCode(6),
		Board:     protocol.NewBoard(game.BoardSize),
		Status:    protocol.StatusWaiting,
		CreatedAt: time.Now(),
		Weights:   weights.Default(),
	}
	r.Players = append(r.Players, m.newPlayer(creatorName, false))
	r.TurnOrder = []string{r.Players[0].ID}
	m.store.SaveRoom(r)
	return r
}

// Join adds a named human to a waiting room and announces them.
func (m *Manager) Join(roomCode, playerName string) (*protocol.Player, error) {
	r, ok := m.store.GetRoom(roomCode)
	if !ok {
		return nil, ErrRoomNotFound
	}
	if r.Status == protocol.StatusFinished {
		return nil, ErrGameOver
	}
	if r.Status == protocol.StatusPlaying {
		return nil, ErrGameStarted
	}
	p := m.newPlayer(playerName, false)
	p.Color = string(game.DefaultColors[len(r.Players)%len(game.DefaultColors)])
	r.Players = append(r.Players, p)
	r.TurnOrder = append(r.TurnOrder, p.ID)
	m.store.SaveRoom(r)
	m.broadcast(roomCode, "new_player_joined", map[string]any{
		"player_name": p.Name,
	})
	cp := p.Clone()
	return &cp, nil
}

// AddBots fills the room with bot players.
func (m *Manager) AddBots(r *Room, n int) {
	for i := 0; i < n; i++ {
		p := m.newPlayer("Bot", true)
		p.Color = string(game.DefaultColors[len(r.Players)%len(game.DefaultColors)])
		r.Players = append(r.Players, p)
		r.TurnOrder = append(r.TurnOrder, p.ID)
	}
	m.store.SaveRoom(r)
}

func (m *Manager) Get(code string) (*Room, bool) {
	return m.store.GetRoom(code)
}

func (m *Manager) newPlayer(name string, bot bool) protocol.Player {
	deck := m.GenerateDeck()
	id := uuid.NewString()
	if bot {
		id = "bot-" + id
	}
	return protocol.Player{
		ID:    id,
		Name:  name,
		IsBot: bot,
		Hand:  deck[:game.MaxHandSize],
		Deck:  deck[game.MaxHandSize:],
	}
}

func (m *Manager) currentPlayer(r *Room) *protocol.Player {
	if len(r.Players) == 0 {
		return nil
	}
	return &r.Players[r.TurnIdx%len(r.Players)]
}

// ApplyMove validates and executes one placement for the player whose turn
// it is, then broadcasts either the move or the game_over that ended it.
func (m *Manager) ApplyMove(r *Room, playerID string, x, y, card int) error {
	if r.WinnerID != nil || r.Status == protocol.StatusFinished {
		return ErrGameOver
	}
	cp := m.currentPlayer(r)
	if cp == nil || cp.ID != playerID {
		return ErrNotYourTurn
	}
	if !contains(cp.Hand, card) {
		m.log.Warn("card not in hand",
			zap.String("player", cp.Name),
			zap.Int("card", card),
			zap.Ints("hand", cp.Hand))
		return ErrCardNotHeld
	}

	local := game.FromWire(r.Board)
	firstMove := boardEmpty(r.Board)
	mv := game.Card{Value: card, OwnerID: playerID}
	if !game.IsValidMove(local, game.Position{X: x, Y: y}, mv, firstMove) {
		return ErrIllegalMove
	}

	cell := r.Board.Cell(x, y)
	cell.Value = card
	cell.OwnerID = playerID

	removeFirst(&cp.Hand, card)
	drawnCard := 0
	if len(cp.Deck) > 0 {
		drawnCard = cp.Deck[0]
		cp.Hand = append(cp.Hand, drawnCard)
		cp.Deck = cp.Deck[1:]
	}

	if cond := game.CheckWinCondition(game.FromWire(r.Board), playerID); cond.IsWin {
		winner := playerID
		r.WinnerID = &winner
		r.Status = protocol.StatusFinished
		m.store.SaveRoom(r)
		m.broadcast(r.Code, "game_over", map[string]any{
			"winner": playerID,
			"board":  r.Board,
		})
		m.log.Info("practice game won",
			zap.String("roomCode", r.Code),
			zap.String("winner", playerID))
		return nil
	}

	r.TurnIdx = (r.TurnIdx + 1) % len(r.Players)
	m.broadcast(r.Code, "move", map[string]any{
		"playerID":  playerID,
		"x":         x,
		"y":         y,
		"card":      card,
		"board":     r.Board,
		"players":   r.Players,
		"nextTurn":  r.Players[r.TurnIdx].ID,
		"drawnCard": drawnCard,
	})

	m.CheckEndgame(r)
	m.store.SaveRoom(r)
	return nil
}

// BotMove picks the heuristically best placement for the bot whose turn it
// is and applies it.
func (m *Manager) BotMove(r *Room, botID string) (BotPlacement, error) {
	cp := m.currentPlayer(r)
	if cp == nil || cp.ID != botID {
		return BotPlacement{}, ErrNotYourTurn
	}

	cands := LegalPlacements(r.Board, cp.Hand, botID)
	if len(cands) == 0 {
		return BotPlacement{}, errors.New("no legal moves available")
	}

	best := cands[0]
	bestScore := EvaluateMove(r.Board, best.X, best.Y, best.Card, botID, r.Weights)
	for _, c := range cands[1:] {
		if s := EvaluateMove(r.Board, c.X, c.Y, c.Card, botID, r.Weights); s > bestScore {
			best, bestScore = c, s
		}
	}

	if err := m.ApplyMove(r, botID, best.X, best.Y, best.Card); err != nil {
		return BotPlacement{}, err
	}
	m.broadcast(r.Code, "bot_move", map[string]any{
		"bot_id": botID,
		"x":      best.X,
		"y":      best.Y,
		"card":   best.Card,
		"board":  r.Board,
	})
	return best, nil
}

// BotMoveByCode is the timer-friendly entry point.
func (m *Manager) BotMoveByCode(roomCode, botID string) (BotPlacement, error) {
	r, ok := m.store.GetRoom(roomCode)
	if !ok {
		return BotPlacement{}, ErrRoomNotFound
	}
	return m.BotMove(r, botID)
}

// CheckEndgame declares a stalemate outcome when no player has a legal
// placement left. The best-positioned player wins the tie-break.
func (m *Manager) CheckEndgame(r *Room) {
	if r.WinnerID != nil {
		return
	}
	for _, p := range r.Players {
		if len(LegalPlacements(r.Board, p.Hand, p.ID)) > 0 {
			return
		}
	}

	rank := m.Rank(r)
	if len(rank) > 0 {
		winner := rank[0].PlayerID
		if len(rank) > 1 && rank[0].LineSum == rank[1].LineSum && rank[0].TotalSum == rank[1].TotalSum {
			r.Draw = true
		} else {
			r.WinnerID = &winner
		}
	}
	r.Status = protocol.StatusFinished
	m.store.SaveRoom(r)
	m.broadcast(r.Code, "state-updated", map[string]any{"room": r})
	m.log.Info("practice game exhausted",
		zap.String("roomCode", r.Code),
		zap.Bool("draw", r.Draw))
}

// RankRow orders players by longest owned line sum, then total owned value.
type RankRow struct {
	PlayerID string `json:"playerId"`
	LineSum  int    `json:"tieBreakerLineSum"`
	TotalSum int    `json:"totalCellsSum"`
}

func (m *Manager) Rank(r *Room) []RankRow {
	out := make([]RankRow, 0, len(r.Players))
	for _, p := range r.Players {
		out = append(out, RankRow{
			PlayerID: p.ID,
			LineSum:  lineSum(r.Board, p.ID),
			TotalSum: ownedSum(r.Board, p.ID),
		})
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].LineSum > out[i].LineSum ||
				(out[j].LineSum == out[i].LineSum && out[j].TotalSum > out[i].TotalSum) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

func (m *Manager) broadcast(roomCode, action string, data any) {
	if m.hub == nil {
		return
	}
	m.hub.Broadcast(roomCode, action, data)
}

const roomCodeLetters = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func (m *Manager) randCode(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = roomCodeLetters[m.rng.Intn(len(roomCodeLetters))]
	}
	return string(b)
}

func contains(hand []int, card int) bool {
	for _, c := range hand {
		if c == card {
			return true
		}
	}
	return false
}

func removeFirst(hand *[]int, card int) {
	for i, c := range *hand {
		if c == card {
			*hand = append((*hand)[:i], (*hand)[i+1:]...)
			return
		}
	}
}

func boardEmpty(b protocol.Board) bool {
	for y := range b.Cells {
		for x := range b.Cells[y] {
			if b.Cells[y][x].Value > 0 {
				return false
			}
		}
	}
	return true
}

// lineSum is the best contiguous same-owner line sum through any owned cell.
func lineSum(b protocol.Board, playerID string) int {
	maxSum := 0
	dirs := [4][2]int{{1, 0}, {0, 1}, {1, 1}, {1, -1}}
	for y := 0; y < b.Size; y++ {
		for x := 0; x < b.Size; x++ {
			if b.Cells[y][x].OwnerID != playerID {
				continue
			}
			for _, d := range dirs {
				sum := b.Cells[y][x].Value
				px, py := x+d[0], y+d[1]
				for px >= 0 && py >= 0 && px < b.Size && py < b.Size && b.Cells[py][px].OwnerID == playerID {
					sum += b.Cells[py][px].Value
					px += d[0]
					py += d[1]
				}
				if sum > maxSum {
					maxSum = sum
				}
			}
		}
	}
	return maxSum
}

func ownedSum(b protocol.Board, playerID string) int {
	sum := 0
	for y := 0; y < b.Size; y++ {
		for x := 0; x < b.Size; x++ {
			if b.Cells[y][x].OwnerID == playerID {
				sum += b.Cells[y][x].Value
			}
		}
	}
	return sum
}
