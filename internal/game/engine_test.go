package game

import (
	"errors"
	"math/rand"
	"testing"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine(nil)
	e.InitGame("test-room", []Player{
		{ID: "p1", Name: "Alice", Color: ColorGreen, Hand: []int{5, 6, 7}, Deck: []int{1, 2}},
		{ID: "p2", Name: "Bob", Color: ColorRed, Hand: []int{3, 6, 9}, Deck: []int{4}},
	})
	if err := e.SetFirstPlayer("p1"); err != nil {
		t.Fatalf("SetFirstPlayer: %v", err)
	}
	return e
}

func TestGenerateDeckHasTwoOfEachValue(t *testing.T) {
	deck := GenerateDeck(rand.New(rand.NewSource(1)))
	if len(deck) != 18 {
		t.Fatalf("expected 18 cards, got %d", len(deck))
	}
	counts := map[int]int{}
	for _, v := range deck {
		counts[v]++
	}
	for v := CardMin; v <= CardMax; v++ {
		if counts[v] != 2 {
			t.Fatalf("value %d appears %d times, want 2", v, counts[v])
		}
	}
}

func TestOpeningSequence(t *testing.T) {
	e := newTestEngine(t)

	// P1 opens with a 5; anywhere but center is rejected without mutation.
	err := e.PlaceCard(Card{Value: 5, OwnerID: "p1"}, Position{X: 0, Y: 0})
	if !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove off-center, got %v", err)
	}
	if !e.FirstMove() {
		t.Fatalf("rejected move must not consume the opening")
	}

	if err := e.PlaceCard(Card{Value: 5, OwnerID: "p1"}, Center); err != nil {
		t.Fatalf("opening on center: %v", err)
	}
	if e.FirstMove() {
		t.Fatalf("firstMove flag should flip after the opening")
	}
	e.NextTurn()

	// P2 at a detached corner is rejected.
	err = e.PlaceCard(Card{Value: 3, OwnerID: "p2"}, Position{X: 0, Y: 0})
	if !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove at detached cell, got %v", err)
	}

	// P2 adjacent to the opening succeeds.
	if err := e.PlaceCard(Card{Value: 6, OwnerID: "p2"}, Position{X: 4, Y: 5}); err != nil {
		t.Fatalf("adjacent placement: %v", err)
	}

	st := e.State()
	if len(st.MoveHistory) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(st.MoveHistory))
	}
	if st.Board[5][4].Card == nil || st.Board[5][4].Card.Value != 6 {
		t.Fatalf("board does not reflect the second move")
	}
}

func TestHandConsumedAndRefilled(t *testing.T) {
	e := newTestEngine(t)
	if err := e.PlaceCard(Card{Value: 5, OwnerID: "p1"}, Center); err != nil {
		t.Fatalf("place: %v", err)
	}
	st := e.State()
	p1 := st.Players[0]
	if len(p1.Hand) != MaxHandSize {
		t.Fatalf("hand should refill to %d, got %v", MaxHandSize, p1.Hand)
	}
	for _, v := range p1.Hand {
		if v == 5 {
			// A second 5 was not in hand or deck, so seeing one means the
			// played card was not consumed.
			t.Fatalf("played card still in hand: %v", p1.Hand)
		}
	}
	if len(p1.Deck) != 1 {
		t.Fatalf("deck should shrink by one, got %v", p1.Deck)
	}
}

func TestTurnRotation(t *testing.T) {
	e := newTestEngine(t)
	if e.CurrentPlayer().ID != "p1" {
		t.Fatalf("expected p1 to start")
	}
	e.NextTurn()
	if e.CurrentPlayer().ID != "p2" {
		t.Fatalf("expected p2 after one advance")
	}
	e.NextTurn()
	if e.CurrentPlayer().ID != "p1" {
		t.Fatalf("expected wraparound to p1")
	}
}

func TestWinFreezesTheGame(t *testing.T) {
	e := NewEngine(nil)
	e.InitGame("test-room", []Player{
		{ID: "p1", Name: "Alice", Hand: []int{5, 5, 5}, Deck: []int{5, 5, 5}},
		{ID: "p2", Name: "Bob", Hand: []int{1, 1, 1}, Deck: []int{1, 1, 1}},
	})
	if err := e.SetFirstPlayer("p1"); err != nil {
		t.Fatalf("SetFirstPlayer: %v", err)
	}

	// P1 builds a vertical line down from center; P2 trails far away on
	// cells adjacent to p1's growing line.
	p1Moves := []Position{{4, 4}, {4, 5}, {4, 6}, {4, 7}}
	p2Moves := []Position{{5, 4}, {5, 5}, {5, 6}}
	for i, pos := range p1Moves {
		if err := e.PlaceCard(Card{Value: 5, OwnerID: "p1"}, pos); err != nil {
			t.Fatalf("p1 move %d: %v", i, err)
		}
		if e.Status() == StatusFinished {
			break
		}
		e.NextTurn()
		if err := e.PlaceCard(Card{Value: 1, OwnerID: "p2"}, p2Moves[i]); err != nil {
			t.Fatalf("p2 move %d: %v", i, err)
		}
		e.NextTurn()
	}

	if e.Status() != StatusFinished {
		t.Fatalf("expected finished after four in a column")
	}
	st := e.State()
	if st.Winner == nil || st.Winner.ID != "p1" {
		t.Fatalf("expected p1 to win, got %+v", st.Winner)
	}
	if st.WinCondition == nil || st.WinCondition.WinType != WinVertical {
		t.Fatalf("expected vertical win condition, got %+v", st.WinCondition)
	}

	// Frozen: no placement, no turn advance, no board update.
	if err := e.PlaceCard(Card{Value: 9, OwnerID: "p2"}, Position{X: 5, Y: 7}); !errors.Is(err, ErrGameFinished) {
		t.Fatalf("expected ErrGameFinished, got %v", err)
	}
	before := e.State().CurrentPlayerIndex
	e.NextTurn()
	if e.State().CurrentPlayerIndex != before {
		t.Fatalf("NextTurn must be a no-op on a finished game")
	}
	e.UpdateBoard(NewBoard())
	if e.State().Board[4][4].Card == nil {
		t.Fatalf("UpdateBoard must be ignored on a finished game")
	}
}

func TestReplacementDiscardsOldCard(t *testing.T) {
	e := newTestEngine(t)
	if err := e.PlaceCard(Card{Value: 5, OwnerID: "p1"}, Center); err != nil {
		t.Fatalf("open: %v", err)
	}
	e.NextTurn()
	if err := e.PlaceCard(Card{Value: 9, OwnerID: "p2"}, Center); err != nil {
		t.Fatalf("replace: %v", err)
	}
	cell := e.State().Board[Center.Y][Center.X]
	if cell.Card == nil || cell.Card.Value != 9 || cell.Card.OwnerID != "p2" {
		t.Fatalf("replacement not applied: %+v", cell.Card)
	}
}

func TestResetReturnsToBlankState(t *testing.T) {
	e := newTestEngine(t)
	if err := e.PlaceCard(Card{Value: 5, OwnerID: "p1"}, Center); err != nil {
		t.Fatalf("place: %v", err)
	}
	e.Reset()
	if e.Status() != StatusWaiting || !e.FirstMove() {
		t.Fatalf("reset must restore waiting state with the opening pending")
	}
	if e.CurrentPlayer() != nil {
		t.Fatalf("reset must clear the roster")
	}
}
