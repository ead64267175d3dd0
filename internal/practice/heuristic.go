package practice

import (
	"javanese-chess-client/internal/game"
	"javanese-chess-client/internal/protocol"
	"javanese-chess-client/internal/weights"
)

// BotPlacement is one candidate placement for the bot.
type BotPlacement struct {
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Card     int    `json:"card"`
	PlayerID string `json:"playerId"`
}

// LegalPlacements enumerates every (cell, card) pair the player may play
// under the placement rules.
func LegalPlacements(b protocol.Board, hand []int, playerID string) []BotPlacement {
	local := game.FromWire(b)
	firstMove := boardEmpty(b)
	var out []BotPlacement
	for y := 0; y < b.Size; y++ {
		for x := 0; x < b.Size; x++ {
			for _, card := range hand {
				mv := game.Card{Value: card, OwnerID: playerID}
				if game.IsValidMove(local, game.Position{X: x, Y: y}, mv, firstMove) {
					out = append(out, BotPlacement{X: x, Y: y, Card: card, PlayerID: playerID})
				}
			}
		}
	}
	return out
}

// EvaluateMove scores one candidate placement. An immediate win dominates;
// otherwise the score accumulates replacement value, threat blocking, own
// alignment building, and card economy terms from the weight set.
func EvaluateMove(b protocol.Board, x, y, card int, playerID string, w weights.Weights) int {
	after := b.Clone()
	cell := after.Cell(x, y)
	occupied := cell.Value > 0 && cell.OwnerID != playerID
	occupantValue := cell.Value
	cell.Value = card
	cell.OwnerID = playerID

	if game.CheckWinCondition(game.FromWire(after), playerID).IsWin {
		return w.Win
	}

	score := w.LegalMove

	own := longestLineThrough(after, x, y, playerID)
	switch {
	case own >= 3:
		score += w.Create3InRow
	case own == 2:
		score += w.Create2InRow
	}

	if occupied {
		run := opponentRunThrough(b, x, y)
		if run >= 3 {
			score += w.OverwriteThreat + w.ThreatCardValue[occupantValue]
		} else {
			score += w.OverwritePotentialThreat + w.PotentialThreatCardValue[occupantValue]
		}
	}

	blocked := longestBlockedRun(b, x, y, playerID)
	switch {
	case blocked >= 3:
		score += w.DetectThreat3 + w.BlockOpponentPath
		if isMiddleZone(x, y, b.Size) {
			score += w.BlockThreatMiddle
		} else {
			score += w.BlockThreatEdge
		}
	case blocked == 2:
		score += w.DetectPotentialThreat + w.BlockPotentialPath
	}

	// Conserve high cards unless the move is doing real work.
	score += (game.CardMax + 1 - card) * w.PlaySmallestCard / game.CardMax

	if adjacentOwned(b, x, y, playerID) {
		score += w.PlaceNearOwnCard
	}
	return score
}

var lineDirs = [4][2]int{{1, 0}, {0, 1}, {1, 1}, {-1, 1}}

// longestLineThrough counts the longest contiguous run of playerID's cells
// through (x,y) across the four axes, the placed cell included.
func longestLineThrough(b protocol.Board, x, y int, playerID string) int {
	best := 1
	for _, d := range lineDirs {
		n := 1 + runLength(b, x, y, d[0], d[1], playerID) + runLength(b, x, y, -d[0], -d[1], playerID)
		if n > best {
			best = n
		}
	}
	return best
}

// opponentRunThrough measures the run of the occupant's own cells through
// (x,y) before a replacement, i.e. how much of an alignment the overwrite
// destroys.
func opponentRunThrough(b protocol.Board, x, y int) int {
	owner := b.Cells[y][x].OwnerID
	if owner == "" {
		return 0
	}
	best := 1
	for _, d := range lineDirs {
		n := 1 + runLength(b, x, y, d[0], d[1], owner) + runLength(b, x, y, -d[0], -d[1], owner)
		if n > best {
			best = n
		}
	}
	return best
}

// longestBlockedRun measures the largest single-opponent run that placing at
// (x,y) would cap. Runs on opposite sides only combine when the same
// opponent owns both.
func longestBlockedRun(b protocol.Board, x, y int, playerID string) int {
	best := 0
	for _, d := range lineDirs {
		fwdOwner := ownerAt(b, x+d[0], y+d[1])
		bwdOwner := ownerAt(b, x-d[0], y-d[1])
		fwd, bwd := 0, 0
		if fwdOwner != "" && fwdOwner != playerID {
			fwd = runLength(b, x, y, d[0], d[1], fwdOwner)
		}
		if bwdOwner != "" && bwdOwner != playerID {
			bwd = runLength(b, x, y, -d[0], -d[1], bwdOwner)
		}
		total := max(fwd, bwd)
		if fwdOwner != "" && fwdOwner == bwdOwner {
			total = fwd + bwd
		}
		if total > best {
			best = total
		}
	}
	return best
}

// runLength counts contiguous cells owned by owner starting one step from
// (x,y) in direction (dx,dy).
func runLength(b protocol.Board, x, y, dx, dy int, owner string) int {
	n := 0
	px, py := x+dx, y+dy
	for px >= 0 && py >= 0 && px < b.Size && py < b.Size && b.Cells[py][px].OwnerID == owner {
		n++
		px += dx
		py += dy
	}
	return n
}

func ownerAt(b protocol.Board, x, y int) string {
	if c := b.Cell(x, y); c != nil {
		return c.OwnerID
	}
	return ""
}

func adjacentOwned(b protocol.Board, x, y int, playerID string) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if ownerAt(b, x+dx, y+dy) == playerID {
				return true
			}
		}
	}
	return false
}

// isMiddleZone splits the board into a 3x3-quadrant middle versus the rim.
func isMiddleZone(x, y, size int) bool {
	third := size / 3
	return x >= third && x < size-third && y >= third && y < size-third
}
