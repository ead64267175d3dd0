// Package projection reconstructs authoritative game state from the server's
// asynchronous event stream. The authority is trusted over local prediction;
// everything here reconciles, dedups, and falls back rather than rejects.
package projection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"javanese-chess-client/internal/api"
	"javanese-chess-client/internal/game"
	"javanese-chess-client/internal/protocol"
	"javanese-chess-client/internal/snapshot"
	"javanese-chess-client/internal/ws"
)

const (
	// DefaultBotTriggerDelay paces UI animation before asking the
	// authority for the next bot move.
	DefaultBotTriggerDelay = 1500 * time.Millisecond
	// DefaultNoticeTTL is how long a last-move notification stays visible.
	DefaultNoticeTTL = 3 * time.Second
)

var (
	ErrNotYourTurn  = errors.New("not your turn")
	ErrNotConnected = errors.New("not connected to server")
	ErrNoRoom       = errors.New("no room code to reconnect")
	ErrJoinPending  = errors.New("join already in progress")
)

// Transport is the duplex channel to the authority.
type Transport interface {
	Connect(ctx context.Context, roomCode string) error
	Disconnect()
	On(ws.EventType, ws.Callback)
	IsConnected() bool
	SendRoomCreated(roomCode, playerName string) error
	SendHumanMove(playerID string, x, y, card int) error
	SendBotMove(roomCode string) error
}

// Authority is the HTTP surface used to start and join games.
type Authority interface {
	StartGame(ctx context.Context, p api.StartGameParams) (*api.StartGameResult, error)
	JoinRoom(ctx context.Context, roomCode, playerName string) (*api.JoinRoomResult, error)
}

// Winner describes the finished game's victor as far as the client knows.
type Winner struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	IsBot       bool   `json:"isBot"`
	Color       string `json:"color,omitempty"`
	CardsInHand []int  `json:"cardsInHand,omitempty"`
}

// MoveNotice is the cosmetic last-move notification; it expires on its own
// and never affects game state.
type MoveNotice struct {
	PlayerName     string `json:"playerName"`
	PlayerID       string `json:"playerId"`
	X              int    `json:"x"`
	Y              int    `json:"y"`
	Card           int    `json:"card"`
	WasReplacement bool   `json:"wasReplacement"`
	ReplacedValue  int    `json:"replacedValue,omitempty"`
}

// Engine is the remote projection engine. All mutation happens inside
// event-handler invocations serialized by mu; the UI layer only reads copies
// and issues intents.
type Engine struct {
	log       *zap.Logger
	transport Transport
	authority Authority
	snaps     *snapshot.Store
	metrics   *Metrics

	botDelay  time.Duration
	noticeTTL time.Duration

	mu sync.Mutex

	roomCode         string
	status           string
	board            protocol.Board
	turnOrder        []protocol.Player
	currentTurnIndex int
	myPlayerID       string
	myPlayerName     string
	connected        bool

	winner           *Winner
	winType          string
	winningPositions []game.Position
	lastError        string

	joining      bool
	lobbyPlayers []string
	lobbyStatus  string

	moveCount         int
	gameJustStarted   bool
	lastProcessedMove string
	lastMove          *MoveNotice

	listenersSet bool
	botTimer     *time.Timer
	noticeTimer  *time.Timer
	closed       bool
}

// Option tweaks engine construction.
type Option func(*Engine)

func WithBotTriggerDelay(d time.Duration) Option {
	return func(e *Engine) { e.botDelay = d }
}

func WithNoticeTTL(d time.Duration) Option {
	return func(e *Engine) { e.noticeTTL = d }
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithPlayerName caches the local player's name, used to resolve the local
// id on game start in the guest flow.
func WithPlayerName(name string) Option {
	return func(e *Engine) { e.myPlayerName = name }
}

func NewEngine(transport Transport, authority Authority, snaps *snapshot.Store, log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		log:             log,
		transport:       transport,
		authority:       authority,
		snaps:           snaps,
		botDelay:        DefaultBotTriggerDelay,
		noticeTTL:       DefaultNoticeTTL,
		status:          protocol.StatusWaiting,
		board:           protocol.NewBoard(game.BoardSize),
		lobbyStatus:     protocol.LobbyOpen,
		gameJustStarted: true,
	}
	for _, o := range opts {
		o(e)
	}
	if e.metrics == nil {
		e.metrics = NewMetrics(nil)
	}
	return e
}

// InitializeGame starts a game on the authority and begins projecting it.
func (e *Engine) InitializeGame(ctx context.Context, p api.StartGameParams) error {
	res, err := e.authority.StartGame(ctx, p)
	if err != nil {
		return fmt.Errorf("initialize game: %w", err)
	}

	e.mu.Lock()
	e.roomCode = res.RoomCode
	e.status = res.Status
	e.board = res.Board.Clone()
	e.turnOrder = orderPlayers(res.Players, res.TurnOrder)
	for _, p := range res.Players {
		if !p.IsBot {
			e.myPlayerID = p.ID
			break
		}
	}
	e.currentTurnIndex = 0
	e.saveSnapshotLocked()
	room := e.roomCode
	e.mu.Unlock()

	if err := e.transport.Connect(ctx, room); err != nil {
		return fmt.Errorf("connect to room %s: %w", room, err)
	}
	e.mu.Lock()
	e.connected = true
	e.mu.Unlock()
	e.setupListeners()

	e.log.Info("game initialized",
		zap.String("roomCode", res.RoomCode),
		zap.String("status", res.Status),
		zap.Int("players", len(res.Players)))
	return nil
}

// RestoreFromSnapshot applies the persisted snapshot if one exists and is
// fresh. Returns whether anything was restored.
func (e *Engine) RestoreFromSnapshot() bool {
	if e.snaps == nil {
		return false
	}
	snap, ok := e.snaps.Load()
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.roomCode = snap.RoomCode
	e.status = snap.GameStatus
	e.board = snap.Board.Clone()
	e.turnOrder = protocol.ClonePlayers(snap.TurnOrder)
	e.currentTurnIndex = snap.CurrentTurnIndex
	e.myPlayerID = snap.MyPlayerID
	e.log.Info("state restored from snapshot",
		zap.String("roomCode", snap.RoomCode),
		zap.Int("players", len(snap.TurnOrder)))
	return true
}

// ReconnectWebSocket re-attaches the transport after a restore.
func (e *Engine) ReconnectWebSocket(ctx context.Context) error {
	e.mu.Lock()
	room := e.roomCode
	e.mu.Unlock()
	if room == "" {
		return ErrNoRoom
	}
	if err := e.transport.Connect(ctx, room); err != nil {
		return fmt.Errorf("reconnect to room %s: %w", room, err)
	}
	e.mu.Lock()
	e.connected = true
	e.mu.Unlock()
	e.setupListeners()
	return nil
}

// CreateLobby opens a lobby for a new multiplayer room.
func (e *Engine) CreateLobby(ctx context.Context, roomCode, creatorName string) error {
	if err := e.transport.Connect(ctx, roomCode); err != nil {
		return fmt.Errorf("create lobby: %w", err)
	}
	e.mu.Lock()
	e.connected = true
	e.roomCode = roomCode
	e.myPlayerName = creatorName
	e.lobbyPlayers = []string{creatorName}
	e.lobbyStatus = protocol.LobbyOpen
	e.mu.Unlock()
	e.setupListeners()
	return e.transport.SendRoomCreated(roomCode, creatorName)
}

// JoinLobby joins an existing lobby as a guest. Concurrent joins are
// rejected while one is in flight.
func (e *Engine) JoinLobby(ctx context.Context, roomCode, playerName string) error {
	e.mu.Lock()
	if e.joining {
		e.mu.Unlock()
		e.log.Warn("join lobby already in progress, skipping duplicate call")
		return ErrJoinPending
	}
	e.joining = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.joining = false
		e.mu.Unlock()
	}()

	if err := e.transport.Connect(ctx, roomCode); err != nil {
		return fmt.Errorf("join lobby: %w", err)
	}
	e.mu.Lock()
	e.connected = true
	e.roomCode = roomCode
	e.myPlayerName = playerName
	e.lobbyStatus = protocol.LobbyOpen
	e.mu.Unlock()
	e.setupListeners()

	res, err := e.authority.JoinRoom(ctx, roomCode, playerName)
	if err != nil {
		return fmt.Errorf("join room %s: %w", roomCode, err)
	}
	e.mu.Lock()
	if res.PlayerID != "" {
		e.myPlayerID = res.PlayerID
	}
	e.mu.Unlock()
	e.log.Info("joined lobby", zap.String("roomCode", roomCode), zap.String("playerId", res.PlayerID))
	return nil
}

// MakeMove validates and submits a place-card intent for the local player.
// Illegal requests are rejected synchronously and never sent.
func (e *Engine) MakeMove(x, y, card int) error {
	e.mu.Lock()
	if !e.connected {
		e.mu.Unlock()
		return ErrNotConnected
	}
	cur := e.currentPlayerLocked()
	if cur == nil || cur.ID != e.myPlayerID {
		e.mu.Unlock()
		return ErrNotYourTurn
	}
	board := game.FromWire(e.board)
	firstMove := e.moveCount == 0 && boardEmpty(e.board)
	playerID := e.myPlayerID
	e.mu.Unlock()

	mv := game.Card{Value: card, OwnerID: playerID}
	if !game.IsValidMove(board, game.Position{X: x, Y: y}, mv, firstMove) {
		return game.ErrIllegalMove
	}
	return e.transport.SendHumanMove(playerID, x, y, card)
}

// setupListeners registers event handlers exactly once for the engine's
// lifetime.
func (e *Engine) setupListeners() {
	e.mu.Lock()
	if e.listenersSet {
		e.mu.Unlock()
		return
	}
	e.listenersSet = true
	e.mu.Unlock()

	e.transport.On(ws.EventRoomCreated, e.guard("room_created", e.handleRoomCreated))
	e.transport.On(ws.EventNewPlayerJoined, e.guard("new_player_joined", e.handleNewPlayerJoined))
	e.transport.On(ws.EventGameStarted, e.guard("game_started", e.handleGameStarted))
	e.transport.On(ws.EventMove, e.guard("move", e.handleMoveEvent))
	e.transport.On(ws.EventBotMove, e.guard("bot_move", e.handleMoveEvent))
	e.transport.On(ws.EventStateUpdated, e.guard("state-updated", e.handleStateUpdated))
	e.transport.On(ws.EventGameEnd, e.guard("game_end", e.handleGameEnd))
	e.transport.On(ws.EventGameOver, e.guard("game_over", e.handleGameOver))
	e.transport.On(ws.EventError, e.guard("error", e.handleError))
	e.transport.On(ws.EventDisconnect, e.guard("disconnect", e.handleDisconnect))
}

// guard keeps handler failures from escaping the event boundary: a panic is
// logged and the event treated as a no-op.
func (e *Engine) guard(name string, fn func(ws.Event)) ws.Callback {
	return func(ev ws.Event) {
		defer func() {
			if r := recover(); r != nil {
				e.log.Error("event handler failed",
					zap.String("event", name),
					zap.Any("panic", r))
			}
		}()
		fn(ev)
	}
}

func (e *Engine) handleRoomCreated(ev ws.Event) {
	if ev.RoomCreated == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if ev.RoomCreated.Status == protocol.LobbyOpen {
		e.lobbyStatus = protocol.LobbyOpen
	}
	e.log.Debug("room created confirmed", zap.String("roomCode", ev.RoomCreated.RoomCode))
}

func (e *Engine) handleNewPlayerJoined(ev ws.Event) {
	if ev.PlayerJoined == nil || ev.PlayerJoined.PlayerName == "" {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	name := ev.PlayerJoined.PlayerName
	for _, n := range e.lobbyPlayers {
		if n == name {
			return
		}
	}
	e.lobbyPlayers = append(e.lobbyPlayers, name)
	e.log.Info("player joined lobby",
		zap.String("player", name),
		zap.Int("lobbySize", len(e.lobbyPlayers)))
}

func (e *Engine) handleGameStarted(ev ws.Event) {
	data := ev.GameStarted
	if data == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lobbyStatus = protocol.LobbyPlaying
	e.status = protocol.StatusPlaying
	if data.Board != nil {
		e.board = data.Board.Clone()
	}
	if len(data.Players) > 0 {
		e.turnOrder = orderPlayers(data.Players, data.TurnOrder)
		// Guest flow: resolve the local id by matching the cached name
		// against non-bot roster entries. Failure is user-visible but
		// recoverable; the game stays watchable for this client.
		if e.myPlayerID == "" {
			if p := findByName(e.turnOrder, e.myPlayerName); p != nil {
				e.myPlayerID = p.ID
				e.log.Info("resolved local player id", zap.String("playerId", p.ID))
			} else {
				e.log.Error("local player not found in roster",
					zap.String("name", e.myPlayerName),
					zap.Strings("roster", playerNames(e.turnOrder)))
			}
		}
	}
	if data.RoomCode != "" {
		e.roomCode = data.RoomCode
	}
	e.currentTurnIndex = 0
	e.saveSnapshotLocked()
	e.log.Info("game started",
		zap.String("roomCode", e.roomCode),
		zap.Int("players", len(e.turnOrder)))
}

func (e *Engine) handleMoveEvent(ev ws.Event) {
	data := ev.Move
	if data == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	// The authority emits both a move and a bot_move event for the same
	// logical bot move; the composite key makes the second a no-op.
	signature := fmt.Sprintf("%s-%d-%d-%d", data.PlayerID, data.X, data.Y, data.Card)
	if e.lastProcessedMove == signature {
		e.metrics.DuplicatesDropped.Inc()
		e.log.Debug("skipping duplicate move event", zap.String("signature", signature))
		return
	}
	e.lastProcessedMove = signature
	e.moveCount++
	e.metrics.MovesApplied.Inc()

	// Replacement detection against the pre-update cell, cosmetic only.
	wasReplacement := false
	replacedValue := 0
	if old := e.board.Cell(data.X, data.Y); old != nil && old.Value > 0 && old.Value != data.Card {
		wasReplacement = true
		replacedValue = old.Value
	}

	if data.Board != nil {
		e.board = data.Board.Clone()
	}
	if len(data.Players) > 0 {
		e.mergeRosterLocked(data.Players)
	} else {
		e.applyHandDeltaLocked(data)
	}

	if p := e.findByIDLocked(data.PlayerID); p != nil {
		e.setNoticeLocked(&MoveNotice{
			PlayerName:     p.Name,
			PlayerID:       p.ID,
			X:              data.X,
			Y:              data.Y,
			Card:           data.Card,
			WasReplacement: wasReplacement,
			ReplacedValue:  replacedValue,
		})
	}

	e.resolveTurnLocked(data.PlayerID, data.NextTurn)
	e.maybeTriggerBotLocked(true)
	e.saveSnapshotLocked()
}

// applyHandDeltaLocked is the manual fallback when the authority sends only
// the played/drawn delta without a roster. A drawn value of exactly zero is
// the valid "no card drawn" signal.
func (e *Engine) applyHandDeltaLocked(data *ws.MoveData) {
	p := e.findByIDLocked(data.PlayerID)
	if p == nil {
		return
	}
	removed := false
	for i, v := range p.Hand {
		if v == data.Card {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		e.log.Warn("played card not found in hand",
			zap.String("player", p.Name),
			zap.Int("card", data.Card),
			zap.Ints("hand", p.Hand))
	}
	switch {
	case data.DrawnCard == nil:
		e.log.Warn("no drawn card provided by server", zap.String("player", p.Name))
	case *data.DrawnCard > 0:
		p.Hand = append(p.Hand, *data.DrawnCard)
	default:
		e.log.Debug("no card drawn", zap.String("player", p.Name))
	}
}

// resolveTurnLocked applies the fallback ladder: authority-supplied id
// (accepted even against expected rotation), then round-robin.
func (e *Engine) resolveTurnLocked(moverID, nextTurnID string) {
	n := len(e.turnOrder)
	if n == 0 {
		return
	}

	if nextTurnID == "" {
		// Compute from the mover's seat when we know it.
		if idx := e.indexByIDLocked(moverID); idx >= 0 {
			e.currentTurnIndex = (idx + 1) % n
		} else {
			e.currentTurnIndex = (e.currentTurnIndex + 1) % n
		}
		e.log.Debug("no next turn from server, using round-robin",
			zap.Int("index", e.currentTurnIndex))
		return
	}

	idx := e.indexByIDLocked(nextTurnID)
	if idx < 0 {
		// Tolerated desync: the declared player is unknown locally.
		e.log.Warn("next turn id unknown, using round-robin fallback",
			zap.String("nextTurn", nextTurnID))
		e.currentTurnIndex = (e.currentTurnIndex + 1) % n
		return
	}
	expected := (e.currentTurnIndex + 1) % n
	if idx != expected {
		// The authority wins over local prediction; record the
		// discrepancy but follow it.
		e.metrics.TurnDesyncs.Inc()
		e.log.Warn("server next turn contradicts expected rotation",
			zap.Int("expected", expected),
			zap.Int("server", idx))
	}
	e.currentTurnIndex = idx
}

// maybeTriggerBotLocked requests a bot move after a fixed delay when the
// player now due is a bot and the game is live. The very first turn
// transition after game start is suppressed once: the authority triggers the
// opening bot move itself.
func (e *Engine) maybeTriggerBotLocked(honorStartSuppression bool) {
	cur := e.currentPlayerLocked()
	if cur == nil || !cur.IsBot || e.status != protocol.StatusPlaying {
		return
	}
	if honorStartSuppression && e.gameJustStarted {
		e.gameJustStarted = false
		e.log.Debug("skipping bot trigger, authority handles the opening bot move")
		return
	}
	room := e.roomCode
	if e.botTimer != nil {
		e.botTimer.Stop()
	}
	e.botTimer = time.AfterFunc(e.botDelay, func() {
		e.mu.Lock()
		ok := !e.closed && e.status == protocol.StatusPlaying
		if ok {
			if cur := e.currentPlayerLocked(); cur == nil || !cur.IsBot {
				ok = false
			}
		}
		e.mu.Unlock()
		if !ok {
			return
		}
		if err := e.transport.SendBotMove(room); err != nil {
			e.log.Warn("bot move request failed", zap.Error(err))
		}
	})
}

func (e *Engine) handleStateUpdated(ev ws.Event) {
	data := ev.StateUpdated
	if data == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	room := data.Room
	if room.Board != nil {
		e.board = room.Board.Clone()
	}
	e.currentTurnIndex = room.TurnIdx
	if len(room.Players) > 0 {
		e.turnOrder = orderPlayers(room.Players, room.TurnOrder)
	}

	// End-of-game detection is independent of the move stream.
	if room.WinnerID != nil && *room.WinnerID != "" {
		e.status = protocol.StatusFinished
		if p := e.findByIDLocked(*room.WinnerID); p != nil {
			e.winner = &Winner{ID: p.ID, Name: p.Name, IsBot: p.IsBot}
			e.log.Info("game ended", zap.String("winner", p.Name))
		}
	} else if room.Draw {
		e.status = protocol.StatusFinished
		e.winType = "draw"
		e.log.Info("game ended in draw")
	}

	e.maybeTriggerBotLocked(false)
	e.saveSnapshotLocked()
}

func (e *Engine) handleGameEnd(ev ws.Event) {
	data := ev.GameEnd
	if data == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.status = protocol.StatusFinished
	if data.Winner != nil {
		e.winner = &Winner{
			ID:    data.Winner.ID,
			Name:  data.Winner.Name,
			IsBot: data.Winner.IsBot,
		}
	}
	if data.WinType != "" {
		e.winType = data.WinType
	}
	if len(data.WinningPositions) > 0 {
		e.winningPositions = append([]game.Position(nil), data.WinningPositions...)
	}
	e.saveSnapshotLocked()
}

func (e *Engine) handleGameOver(ev ws.Event) {
	data := ev.GameOver
	if data == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	// The frozen board may still receive this final snapshot.
	if data.Board != nil {
		e.board = data.Board.Clone()
	}
	if data.WinnerID != "" {
		if p := e.findByIDLocked(data.WinnerID); p != nil {
			e.winner = &Winner{
				ID:          p.ID,
				Name:        p.Name,
				IsBot:       p.IsBot,
				Color:       p.Color,
				CardsInHand: append([]int(nil), p.Hand...),
			}
		}
	}

	// The authority omitted the line here; recompute it locally so the UI
	// can still highlight the win.
	e.recomputeWinLocked(data.WinnerID)
	e.status = protocol.StatusFinished
	e.saveSnapshotLocked()
	e.log.Info("game over",
		zap.String("winner", data.WinnerID),
		zap.String("winType", e.winType))
}

// recomputeWinLocked runs the shared win-detection over the projected board.
// When the winner is unknown it probes every rostered player in turn order.
func (e *Engine) recomputeWinLocked(winnerID string) {
	board := game.FromWire(e.board)
	candidates := make([]string, 0, len(e.turnOrder))
	if winnerID != "" {
		candidates = append(candidates, winnerID)
	} else {
		for _, p := range e.turnOrder {
			candidates = append(candidates, p.ID)
		}
	}
	for _, id := range candidates {
		if cond := game.CheckWinCondition(board, id); cond.IsWin {
			e.winningPositions = cond.WinningPositions
			e.winType = string(cond.WinType)
			return
		}
	}
}

func (e *Engine) handleError(ev ws.Event) {
	if ev.Err == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastError = ev.Err.Message
	e.log.Warn("server error",
		zap.String("message", ev.Err.Message),
		zap.String("code", ev.Err.Code))
}

// handleDisconnect flags connectivity but keeps game state so a reconnect
// can resume.
func (e *Engine) handleDisconnect(ws.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connected = false
	e.metrics.Disconnects.Inc()
	e.log.Info("disconnected from server")
}

// Reset tears everything down, including timers and the persisted snapshot.
func (e *Engine) Reset() {
	e.mu.Lock()
	if e.botTimer != nil {
		e.botTimer.Stop()
		e.botTimer = nil
	}
	if e.noticeTimer != nil {
		e.noticeTimer.Stop()
		e.noticeTimer = nil
	}
	e.roomCode = ""
	e.status = protocol.StatusWaiting
	e.board = protocol.NewBoard(game.BoardSize)
	e.turnOrder = nil
	e.currentTurnIndex = 0
	e.myPlayerID = ""
	e.connected = false
	e.winner = nil
	e.winType = ""
	e.winningPositions = nil
	e.lastError = ""
	e.moveCount = 0
	e.gameJustStarted = true
	e.lastProcessedMove = ""
	e.lastMove = nil
	e.lobbyPlayers = nil
	e.lobbyStatus = protocol.LobbyOpen
	e.mu.Unlock()

	if e.snaps != nil {
		e.snaps.Clear()
	}
	e.transport.Disconnect()
}

// Close cancels pending timers and detaches the transport without clearing
// persisted state.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	if e.botTimer != nil {
		e.botTimer.Stop()
		e.botTimer = nil
	}
	if e.noticeTimer != nil {
		e.noticeTimer.Stop()
		e.noticeTimer = nil
	}
	e.mu.Unlock()
	e.transport.Disconnect()
}

// ----- read-side accessors; everything returned is a copy -----

// View is the engine's externally visible state.
type View struct {
	RoomCode         string
	Status           string
	Board            protocol.Board
	TurnOrder        []protocol.Player
	CurrentTurnIndex int
	MyPlayerID       string
	Connected        bool
	Winner           *Winner
	WinType          string
	WinningPositions []game.Position
	LastError        string
	LobbyPlayers     []string
	LobbyStatus      string
	MoveCount        int
}

func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	v := View{
		RoomCode:         e.roomCode,
		Status:           e.status,
		Board:            e.board.Clone(),
		TurnOrder:        protocol.ClonePlayers(e.turnOrder),
		CurrentTurnIndex: e.currentTurnIndex,
		MyPlayerID:       e.myPlayerID,
		Connected:        e.connected,
		WinType:          e.winType,
		WinningPositions: append([]game.Position(nil), e.winningPositions...),
		LastError:        e.lastError,
		LobbyPlayers:     append([]string(nil), e.lobbyPlayers...),
		LobbyStatus:      e.lobbyStatus,
		MoveCount:        e.moveCount,
	}
	if e.winner != nil {
		w := *e.winner
		w.CardsInHand = append([]int(nil), e.winner.CardsInHand...)
		v.Winner = &w
	}
	return v
}

// CurrentPlayer returns a copy of the player whose turn it is.
func (e *Engine) CurrentPlayer() *protocol.Player {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.currentPlayerLocked()
	if p == nil {
		return nil
	}
	cp := p.Clone()
	return &cp
}

// MyPlayer returns a copy of the local player's roster entry.
func (e *Engine) MyPlayer() *protocol.Player {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.findByIDLocked(e.myPlayerID)
	if p == nil {
		return nil
	}
	cp := p.Clone()
	return &cp
}

func (e *Engine) IsMyTurn() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.currentPlayerLocked()
	return p != nil && e.myPlayerID != "" && p.ID == e.myPlayerID
}

// MyHand returns a copy of the local player's hand.
func (e *Engine) MyHand() []int {
	if p := e.MyPlayer(); p != nil {
		return p.Hand
	}
	return nil
}

// LastMove returns the active move notification, if it has not expired.
func (e *Engine) LastMove() *MoveNotice {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastMove == nil {
		return nil
	}
	n := *e.lastMove
	return &n
}

// ----- internals -----

func (e *Engine) currentPlayerLocked() *protocol.Player {
	if len(e.turnOrder) == 0 || e.currentTurnIndex < 0 || e.currentTurnIndex >= len(e.turnOrder) {
		return nil
	}
	return &e.turnOrder[e.currentTurnIndex]
}

func (e *Engine) findByIDLocked(id string) *protocol.Player {
	if idx := e.indexByIDLocked(id); idx >= 0 {
		return &e.turnOrder[idx]
	}
	return nil
}

func (e *Engine) indexByIDLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := range e.turnOrder {
		if e.turnOrder[i].ID == id {
			return i
		}
	}
	return -1
}

// mergeRosterLocked refreshes known players from an authoritative roster,
// keeping local entries the payload did not mention.
func (e *Engine) mergeRosterLocked(fresh []protocol.Player) {
	byID := make(map[string]protocol.Player, len(fresh))
	for _, p := range fresh {
		byID[p.ID] = p
	}
	for i := range e.turnOrder {
		if p, ok := byID[e.turnOrder[i].ID]; ok {
			e.turnOrder[i] = p.Clone()
		}
	}
}

func (e *Engine) setNoticeLocked(n *MoveNotice) {
	e.lastMove = n
	if e.noticeTimer != nil {
		e.noticeTimer.Stop()
	}
	e.noticeTimer = time.AfterFunc(e.noticeTTL, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.lastMove = nil
	})
}

func (e *Engine) saveSnapshotLocked() {
	if e.snaps == nil {
		return
	}
	_ = e.snaps.Save(snapshot.Snapshot{
		RoomCode:         e.roomCode,
		GameStatus:       e.status,
		Board:            e.board.Clone(),
		TurnOrder:        protocol.ClonePlayers(e.turnOrder),
		CurrentTurnIndex: e.currentTurnIndex,
		MyPlayerID:       e.myPlayerID,
	})
}

// orderPlayers arranges the roster according to the declared turn order,
// skipping ids that match no player.
func orderPlayers(players []protocol.Player, turnOrder []string) []protocol.Player {
	if len(turnOrder) == 0 {
		return protocol.ClonePlayers(players)
	}
	byID := make(map[string]protocol.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}
	out := make([]protocol.Player, 0, len(turnOrder))
	for _, id := range turnOrder {
		if p, ok := byID[id]; ok {
			out = append(out, p.Clone())
		}
	}
	return out
}

func findByName(players []protocol.Player, name string) *protocol.Player {
	if name == "" {
		return nil
	}
	for i := range players {
		if players[i].Name == name && !players[i].IsBot {
			return &players[i]
		}
	}
	return nil
}

func playerNames(players []protocol.Player) []string {
	out := make([]string, len(players))
	for i, p := range players {
		out[i] = p.Name
	}
	return out
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
