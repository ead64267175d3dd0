package game

import (
	"time"

	"javanese-chess-client/internal/protocol"
)

const (
	BoardSize   = 9
	MaxHandSize = 3
	CardMin     = 1
	CardMax     = 9
	WinLength   = 4
)

// Center is the forced position of the opening move.
var Center = Position{X: BoardSize / 2, Y: BoardSize / 2}

type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
)

type Color string

const (
	ColorGreen  Color = "green"
	ColorRed    Color = "red"
	ColorBlue   Color = "blue"
	ColorPurple Color = "purple"
)

// DefaultColors is the assignment order for up to four players.
var DefaultColors = []Color{ColorGreen, ColorRed, ColorBlue, ColorPurple}

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Card struct {
	ID      string `json:"id"`
	Value   int    `json:"value"` // 1..9
	Color   Color  `json:"color"`
	OwnerID string `json:"ownerId"`
}

// Cell holds at most one card. IsValid is a transient highlight flag for the
// UI and never participates in game logic.
type Cell struct {
	Position Position `json:"position"`
	Card     *Card    `json:"card"`
	IsValid  bool     `json:"isValid"`
}

// Board is a 9x9 grid indexed [y][x].
type Board [][]Cell

func NewBoard() Board {
	b := make(Board, BoardSize)
	for y := range b {
		b[y] = make([]Cell, BoardSize)
		for x := range b[y] {
			b[y][x] = Cell{Position: Position{X: x, Y: y}}
		}
	}
	return b
}

// Cell returns the cell at pos, or nil when out of bounds.
func (b Board) Cell(pos Position) *Cell {
	if pos.Y < 0 || pos.Y >= len(b) || pos.X < 0 || pos.X >= len(b[pos.Y]) {
		return nil
	}
	return &b[pos.Y][pos.X]
}

// Clone deep-copies the board including placed cards.
func (b Board) Clone() Board {
	out := make(Board, len(b))
	for y := range b {
		out[y] = append([]Cell(nil), b[y]...)
		for x := range out[y] {
			if c := out[y][x].Card; c != nil {
				cc := *c
				out[y][x].Card = &cc
			}
		}
	}
	return out
}

// FromWire converts an authority board into the local model. VState is
// deliberately dropped; the client recomputes validity itself.
func FromWire(wb protocol.Board) Board {
	b := NewBoard()
	for y := 0; y < len(wb.Cells) && y < BoardSize; y++ {
		for x := 0; x < len(wb.Cells[y]) && x < BoardSize; x++ {
			wc := wb.Cells[y][x]
			if wc.Value > 0 {
				b[y][x].Card = &Card{Value: wc.Value, OwnerID: wc.OwnerID}
			}
		}
	}
	return b
}

type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color Color  `json:"color"`
	IsBot bool   `json:"isBot"`
	Hand  []int  `json:"hand"` // card values, at most MaxHandSize
	Deck  []int  `json:"deck"` // remaining card values
	Score int    `json:"score"`
}

// Clone copies the player including hand and deck; the engine holds the only
// mutable copy.
func (p Player) Clone() Player {
	cp := p
	cp.Hand = append([]int(nil), p.Hand...)
	cp.Deck = append([]int(nil), p.Deck...)
	return cp
}

// Move is an append-only history entry; immutable once recorded.
type Move struct {
	PlayerID  string    `json:"playerId"`
	Card      Card      `json:"card"`
	Position  Position  `json:"position"`
	Timestamp time.Time `json:"timestamp"`
}

type WinType string

const (
	WinHorizontal WinType = "horizontal"
	WinVertical   WinType = "vertical"
	WinDiagonal   WinType = "diagonal"
)

type WinCondition struct {
	IsWin            bool       `json:"isWin"`
	WinnerID         string     `json:"winnerId,omitempty"`
	WinningPositions []Position `json:"winningPositions,omitempty"` // exactly 4 when IsWin
	WinType          WinType    `json:"winType,omitempty"`
}

// GameState is the aggregate view exposed by the local engine. Everything in
// it is a copy; mutation happens only through engine methods.
type GameState struct {
	RoomCode           string        `json:"roomCode"`
	Status             Status        `json:"status"`
	Board              Board         `json:"board"`
	Players            []Player      `json:"players"`
	CurrentPlayerIndex int           `json:"currentPlayerIndex"`
	MoveHistory        []Move        `json:"moveHistory"`
	Winner             *Player       `json:"winner,omitempty"`
	WinCondition       *WinCondition `json:"winCondition,omitempty"`
	FirstMove          bool          `json:"firstMove"`
}
