package game

// Probe directions, in tie-break order. The bounds guard keeps every run of
// four on the board: right needs x<=5, down needs y<=5, down-right both,
// down-left x>=3 and y<=5.
var winDirs = []struct {
	dx, dy int
	typ    WinType
}{
	{1, 0, WinHorizontal},
	{0, 1, WinVertical},
	{1, 1, WinDiagonal},
	{-1, 1, WinDiagonal},
}

// CheckWinCondition scans for four same-owner cells in an unbroken line.
// Cells are visited y ascending then x ascending, directions in winDirs
// order; the first match wins. Pure; the single source of truth for win
// detection in both the local and the projection engine.
func CheckWinCondition(b Board, playerID string) WinCondition {
	for y := 0; y < BoardSize; y++ {
		for x := 0; x < BoardSize; x++ {
			cell := b[y][x]
			if cell.Card == nil || cell.Card.OwnerID != playerID {
				continue
			}
			for _, d := range winDirs {
				ex, ey := x+(WinLength-1)*d.dx, y+(WinLength-1)*d.dy
				if ex < 0 || ex >= BoardSize || ey >= BoardSize {
					continue
				}
				positions := make([]Position, 0, WinLength)
				run := true
				for i := 0; i < WinLength; i++ {
					c := b[y+i*d.dy][x+i*d.dx]
					if c.Card == nil || c.Card.OwnerID != playerID {
						run = false
						break
					}
					positions = append(positions, Position{X: x + i*d.dx, Y: y + i*d.dy})
				}
				if run {
					return WinCondition{
						IsWin:            true,
						WinnerID:         playerID,
						WinningPositions: positions,
						WinType:          d.typ,
					}
				}
			}
		}
	}
	return WinCondition{}
}
