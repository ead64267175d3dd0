package game

import (
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrGameFinished  = errors.New("game already finished")
	ErrIllegalMove   = errors.New("illegal move")
	ErrNotYourTurn   = errors.New("not this player's turn")
	ErrUnknownPlayer = errors.New("unknown player")
)

// Engine runs the complete game end-to-end with no server: move legality,
// win detection and turn advancement are all decided locally. The engine
// exclusively owns its board and roster; every accessor returns copies.
type Engine struct {
	log *zap.Logger

	roomCode     string
	status       Status
	board        Board
	players      []Player
	current      int
	history      []Move
	winner       *Player
	winCondition *WinCondition
	firstMove    bool
	selected     *Card
}

func NewEngine(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		log:       log,
		status:    StatusWaiting,
		board:     NewBoard(),
		firstMove: true,
	}
}

// GenerateDeck creates a shuffled deck of 18 cards, two sets of 1..9.
func GenerateDeck(r *rand.Rand) []int {
	deck := make([]int, 0, 2*CardMax)
	for v := CardMin; v <= CardMax; v++ {
		deck = append(deck, v, v)
	}
	r.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	return deck
}

// InitGame resets everything and installs the roster in turn order. Players
// keep whatever hand/deck they arrive with; empty-handed players are dealt a
// fresh shuffled deck.
func (e *Engine) InitGame(roomCode string, players []Player) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	e.roomCode = roomCode
	e.board = NewBoard()
	e.players = make([]Player, len(players))
	for i, p := range players {
		cp := p.Clone()
		if len(cp.Hand) == 0 && len(cp.Deck) == 0 {
			cp.Deck = GenerateDeck(r)
		}
		if cp.Color == "" {
			cp.Color = DefaultColors[i%len(DefaultColors)]
		}
		e.players[i] = cp
		e.drawToHand(i)
	}
	e.history = nil
	e.winner = nil
	e.winCondition = nil
	e.firstMove = true
	e.current = 0
	e.selected = nil
	e.status = StatusWaiting
	e.log.Info("game initialized",
		zap.String("roomCode", roomCode),
		zap.Int("players", len(players)))
}

// SetFirstPlayer picks the starting player and moves the game into
// in_progress.
func (e *Engine) SetFirstPlayer(playerID string) error {
	idx := e.indexOf(playerID)
	if idx < 0 {
		return ErrUnknownPlayer
	}
	e.current = idx
	e.status = StatusInProgress
	return nil
}

// SelectCard stages a card for placement and refreshes highlighting.
func (e *Engine) SelectCard(card *Card) {
	e.selected = card
	HighlightValidMoves(e.board, card, e.firstMove)
}

func (e *Engine) SelectedCard() *Card {
	if e.selected == nil {
		return nil
	}
	cp := *e.selected
	return &cp
}

// PlaceCard applies a move for the card's owner. On any rule violation the
// call fails with no mutation. A successful placement discards any replaced
// card, records the move, flips the one-shot firstMove flag, clears the
// selection and runs win detection for the mover.
func (e *Engine) PlaceCard(card Card, pos Position) error {
	if e.status == StatusFinished {
		return ErrGameFinished
	}
	cell := e.board.Cell(pos)
	if cell == nil {
		return ErrIllegalMove
	}
	if !IsValidMove(e.board, pos, card, e.firstMove) {
		return ErrIllegalMove
	}

	if cell.Card != nil {
		e.log.Debug("card replaced",
			zap.Int("old", cell.Card.Value),
			zap.Int("new", card.Value),
			zap.Int("x", pos.X), zap.Int("y", pos.Y))
	}
	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	placed := card
	cell.Card = &placed
	cell.IsValid = false

	e.history = append(e.history, Move{
		PlayerID:  card.OwnerID,
		Card:      card,
		Position:  pos,
		Timestamp: time.Now(),
	})
	if e.firstMove {
		e.firstMove = false
	}
	e.selected = nil
	HighlightValidMoves(e.board, nil, e.firstMove)

	// Hand bookkeeping for rosters that track cards. Tolerated to be a
	// no-op when the caller manages hands elsewhere.
	if idx := e.indexOf(card.OwnerID); idx >= 0 {
		e.consumeCard(idx, card.Value)
	}

	if cond := CheckWinCondition(e.board, card.OwnerID); cond.IsWin {
		e.SetWinner(card.OwnerID, cond)
	}
	return nil
}

// NextTurn advances round-robin. Callers invoke it explicitly after a
// successful placement; win detection never advances the turn itself.
func (e *Engine) NextTurn() {
	if e.status == StatusFinished || len(e.players) == 0 {
		return
	}
	e.current = (e.current + 1) % len(e.players)
}

// UpdateBoard replaces the board wholesale, bridging state that arrived from
// elsewhere. Frozen games ignore it.
func (e *Engine) UpdateBoard(b Board) {
	if e.status == StatusFinished {
		return
	}
	e.board = b.Clone()
}

// SetWinner freezes the game. No transition ever leaves finished.
func (e *Engine) SetWinner(playerID string, cond WinCondition) {
	idx := e.indexOf(playerID)
	if idx < 0 {
		return
	}
	w := e.players[idx].Clone()
	e.winner = &w
	c := cond
	e.winCondition = &c
	e.status = StatusFinished
	e.log.Info("game finished",
		zap.String("winner", w.Name),
		zap.String("winType", string(cond.WinType)))
}

// Reset tears the game down to a blank waiting state.
func (e *Engine) Reset() {
	e.roomCode = ""
	e.status = StatusWaiting
	e.board = NewBoard()
	e.players = nil
	e.current = 0
	e.history = nil
	e.winner = nil
	e.winCondition = nil
	e.firstMove = true
	e.selected = nil
}

// CurrentPlayer returns a copy of the player whose turn it is.
func (e *Engine) CurrentPlayer() *Player {
	if len(e.players) == 0 {
		return nil
	}
	p := e.players[e.current].Clone()
	return &p
}

func (e *Engine) Status() Status  { return e.status }
func (e *Engine) FirstMove() bool { return e.firstMove }

// ValidMoves returns the legal positions for card given current state.
func (e *Engine) ValidMoves(card Card) []Position {
	return CalculateValidMoves(e.board, card, e.firstMove)
}

// State snapshots the aggregate; every field is a copy.
func (e *Engine) State() GameState {
	players := make([]Player, len(e.players))
	for i, p := range e.players {
		players[i] = p.Clone()
	}
	st := GameState{
		RoomCode:           e.roomCode,
		Status:             e.status,
		Board:              e.board.Clone(),
		Players:            players,
		CurrentPlayerIndex: e.current,
		MoveHistory:        append([]Move(nil), e.history...),
		FirstMove:          e.firstMove,
	}
	if e.winner != nil {
		w := e.winner.Clone()
		st.Winner = &w
	}
	if e.winCondition != nil {
		c := *e.winCondition
		st.WinCondition = &c
	}
	return st
}

func (e *Engine) indexOf(playerID string) int {
	for i := range e.players {
		if e.players[i].ID == playerID {
			return i
		}
	}
	return -1
}

// consumeCard removes the first matching value from the player's hand and
// draws back up from their deck.
func (e *Engine) consumeCard(idx, value int) {
	p := &e.players[idx]
	for i, v := range p.Hand {
		if v == value {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			break
		}
	}
	e.drawToHand(idx)
}

func (e *Engine) drawToHand(idx int) {
	p := &e.players[idx]
	for len(p.Hand) < MaxHandSize && len(p.Deck) > 0 {
		p.Hand = append(p.Hand, p.Deck[0])
		p.Deck = p.Deck[1:]
	}
}
