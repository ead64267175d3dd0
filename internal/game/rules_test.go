package game

import "testing"

func place(b Board, x, y, value int, owner string) {
	b[y][x].Card = &Card{Value: value, OwnerID: owner}
}

func TestFirstMoveMustBeCenter(t *testing.T) {
	b := NewBoard()
	card := Card{Value: 5, OwnerID: "p1"}

	if !IsValidMove(b, Center, card, true) {
		t.Fatalf("expected center to be legal on the first move")
	}
	for _, pos := range []Position{{0, 0}, {4, 3}, {8, 8}, {3, 4}} {
		if IsValidMove(b, pos, card, true) {
			t.Fatalf("expected %+v to be illegal on the first move", pos)
		}
	}
}

func TestFirstMoveValidMovesIsCenterOnly(t *testing.T) {
	b := NewBoard()
	moves := CalculateValidMoves(b, Card{Value: 1, OwnerID: "p1"}, true)
	if len(moves) != 1 || moves[0] != Center {
		t.Fatalf("expected exactly the center, got %v", moves)
	}
}

func TestLaterMovesRequireAdjacency(t *testing.T) {
	b := NewBoard()
	place(b, 4, 4, 5, "p1")
	card := Card{Value: 3, OwnerID: "p2"}

	cases := []struct {
		pos   Position
		legal bool
	}{
		{Position{X: 4, Y: 5}, true},  // orthogonal neighbor
		{Position{X: 5, Y: 5}, true},  // diagonal neighbor
		{Position{X: 3, Y: 3}, true},  // diagonal neighbor
		{Position{X: 0, Y: 0}, false}, // far corner
		{Position{X: 4, Y: 6}, false}, // one gap away
		{Position{X: 6, Y: 4}, false},
	}
	for _, tc := range cases {
		if got := IsValidMove(b, tc.pos, card, false); got != tc.legal {
			t.Errorf("IsValidMove(%+v) = %v, want %v", tc.pos, got, tc.legal)
		}
	}
}

func TestReplacementRequiresStrictlyGreaterValue(t *testing.T) {
	b := NewBoard()
	place(b, 4, 4, 5, "p1")
	place(b, 4, 5, 2, "p1") // keeps (4,4) adjacent to something occupied

	target := Position{X: 4, Y: 4}
	if IsValidMove(b, target, Card{Value: 4, OwnerID: "p2"}, false) {
		t.Fatalf("lower card must not replace")
	}
	if IsValidMove(b, target, Card{Value: 5, OwnerID: "p2"}, false) {
		t.Fatalf("equal card must not replace")
	}
	if !IsValidMove(b, target, Card{Value: 6, OwnerID: "p2"}, false) {
		t.Fatalf("higher card must replace")
	}
}

func TestOwnCardReplacementFollowsSameRule(t *testing.T) {
	b := NewBoard()
	place(b, 4, 4, 5, "p1")
	place(b, 4, 5, 2, "p1")

	// The value rule applies regardless of who owns the occupant.
	if IsValidMove(b, Position{X: 4, Y: 5}, Card{Value: 2, OwnerID: "p1"}, false) {
		t.Fatalf("equal value must not replace even on own card")
	}
	if !IsValidMove(b, Position{X: 4, Y: 5}, Card{Value: 9, OwnerID: "p1"}, false) {
		t.Fatalf("higher value replaces own card")
	}
}

func TestOutOfBoundsIsIllegal(t *testing.T) {
	b := NewBoard()
	card := Card{Value: 5, OwnerID: "p1"}
	for _, pos := range []Position{{-1, 0}, {0, -1}, {9, 4}, {4, 9}} {
		if IsValidMove(b, pos, card, false) {
			t.Errorf("expected %+v out of bounds to be illegal", pos)
		}
	}
}

func TestHighlightValidMoves(t *testing.T) {
	b := NewBoard()
	place(b, 4, 4, 5, "p1")

	card := Card{Value: 3, OwnerID: "p2"}
	HighlightValidMoves(b, &card, false)
	if !b[5][4].IsValid {
		t.Fatalf("adjacent empty cell should be highlighted")
	}
	if b[0][0].IsValid {
		t.Fatalf("distant cell must not be highlighted")
	}

	HighlightValidMoves(b, nil, false)
	for y := range b {
		for x := range b[y] {
			if b[y][x].IsValid {
				t.Fatalf("clearing with nil card left (%d,%d) highlighted", x, y)
			}
		}
	}
}
