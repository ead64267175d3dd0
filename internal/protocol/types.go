package protocol

// Wire-level shapes exchanged with the game authority. Both the HTTP client
// and the WebSocket event decoder produce these; the projection engine and
// the embedded practice server consume them.

type BoardCell struct {
	Value   int    `json:"value"`   // card value, 0 if empty
	VState  int    `json:"vState"`  // server-side placement state, informational only
	OwnerID string `json:"ownerId"` // owning player ID, "" if empty
}

type Board struct {
	Size  int           `json:"size"`
	Cells [][]BoardCell `json:"cells"` // indexed [y][x]
}

func NewBoard(size int) Board {
	if size <= 0 {
		size = 9
	}
	cells := make([][]BoardCell, size)
	for y := range cells {
		cells[y] = make([]BoardCell, size)
	}
	return Board{Size: size, Cells: cells}
}

// Cell returns the cell at (x,y), or nil when out of bounds.
func (b *Board) Cell(x, y int) *BoardCell {
	if y < 0 || y >= len(b.Cells) || x < 0 || x >= len(b.Cells[y]) {
		return nil
	}
	return &b.Cells[y][x]
}

// Clone deep-copies the board so callers can hold a snapshot without
// aliasing the engine's copy.
func (b Board) Clone() Board {
	out := Board{Size: b.Size, Cells: make([][]BoardCell, len(b.Cells))}
	for y := range b.Cells {
		out.Cells[y] = append([]BoardCell(nil), b.Cells[y]...)
	}
	return out
}

type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	IsBot bool   `json:"isBot"`
	Hand  []int  `json:"hand"`
	Deck  []int  `json:"deck"`
	Color string `json:"color,omitempty"`
}

// Clone copies the player including hand and deck. The projection engine
// owns the authoritative roster; external reads go through copies.
func (p Player) Clone() Player {
	cp := p
	cp.Hand = append([]int(nil), p.Hand...)
	cp.Deck = append([]int(nil), p.Deck...)
	return cp
}

func ClonePlayers(ps []Player) []Player {
	out := make([]Player, len(ps))
	for i, p := range ps {
		out[i] = p.Clone()
	}
	return out
}

// Game lifecycle statuses as spoken on the wire.
const (
	StatusWaiting  = "waiting"
	StatusPlaying  = "playing"
	StatusFinished = "finished"
)

// Lobby statuses.
const (
	LobbyOpen     = "lobby"
	LobbyStarting = "starting"
	LobbyPlaying  = "playing"
)
