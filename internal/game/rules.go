package game

// Moore neighborhood offsets.
var neighborDirs = [8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// IsValidMove reports whether placing card at pos is legal.
//
// The opening move must land on the center cell regardless of card. Every
// later move must be 8-adjacent to at least one occupied cell and may target
// an occupied cell only when the new card's value is strictly greater than
// the occupant's.
func IsValidMove(b Board, pos Position, card Card, firstMove bool) bool {
	cell := b.Cell(pos)
	if cell == nil {
		return false
	}
	if firstMove {
		return pos == Center
	}
	if !IsAdjacentToOccupied(b, pos) {
		return false
	}
	if cell.Card == nil {
		return true
	}
	return card.Value > cell.Card.Value
}

// IsAdjacentToOccupied reports whether any of the 8 neighbors of pos holds a
// card.
func IsAdjacentToOccupied(b Board, pos Position) bool {
	for _, d := range neighborDirs {
		if c := b.Cell(Position{X: pos.X + d[1], Y: pos.Y + d[0]}); c != nil && c.Card != nil {
			return true
		}
	}
	return false
}

// CalculateValidMoves returns every position where card may legally be
// placed. Drives UI highlighting; not authoritative in remote mode.
func CalculateValidMoves(b Board, card Card, firstMove bool) []Position {
	if firstMove {
		return []Position{Center}
	}
	var out []Position
	for y := 0; y < BoardSize; y++ {
		for x := 0; x < BoardSize; x++ {
			pos := Position{X: x, Y: y}
			if IsValidMove(b, pos, card, firstMove) {
				out = append(out, pos)
			}
		}
	}
	return out
}

// HighlightValidMoves resets every cell's IsValid flag and, when card is
// non-nil, marks the cells where it may be placed.
func HighlightValidMoves(b Board, card *Card, firstMove bool) {
	for y := range b {
		for x := range b[y] {
			b[y][x].IsValid = false
		}
	}
	if card == nil {
		return
	}
	for _, pos := range CalculateValidMoves(b, *card, firstMove) {
		b[pos.Y][pos.X].IsValid = true
	}
}
