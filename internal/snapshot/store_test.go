package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"javanese-chess-client/internal/protocol"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "session.json"), nil)
}

func sample() Snapshot {
	b := protocol.NewBoard(9)
	b.Cells[4][4] = protocol.BoardCell{Value: 5, OwnerID: "p1"}
	return Snapshot{
		RoomCode:   "ABC123",
		GameStatus: protocol.StatusPlaying,
		Board:      b,
		TurnOrder: []protocol.Player{
			{ID: "p1", Name: "Alice", Hand: []int{1, 2, 3}},
			{ID: "bot-1", Name: "Bot", IsBot: true, Hand: []int{4, 5, 6}},
		},
		CurrentTurnIndex: 1,
		MyPlayerID:       "p1",
	}
}

func TestSaveAndLoadIntact(t *testing.T) {
	s := newTestStore(t)
	if err := s.Save(sample()); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok := s.Load()
	if !ok {
		t.Fatalf("expected snapshot to load")
	}
	if got.RoomCode != "ABC123" || got.MyPlayerID != "p1" || got.CurrentTurnIndex != 1 {
		t.Fatalf("fields lost: %+v", got)
	}
	if got.Board.Cells[4][4].Value != 5 || got.Board.Cells[4][4].OwnerID != "p1" {
		t.Fatalf("board lost: %+v", got.Board.Cells[4][4])
	}
	if len(got.TurnOrder) != 2 || got.TurnOrder[1].ID != "bot-1" {
		t.Fatalf("roster lost: %+v", got.TurnOrder)
	}
	if got.Timestamp == 0 {
		t.Fatalf("save must stamp the snapshot")
	}
}

func TestLoadWithinFreshnessWindow(t *testing.T) {
	s := newTestStore(t)
	base := time.Now()
	s.now = func() time.Time { return base }
	if err := s.Save(sample()); err != nil {
		t.Fatalf("save: %v", err)
	}

	s.now = func() time.Time { return base.Add(10 * time.Minute) }
	if _, ok := s.Load(); !ok {
		t.Fatalf("10-minute-old snapshot must load")
	}
}

func TestExpiredSnapshotIsDiscarded(t *testing.T) {
	s := newTestStore(t)
	base := time.Now()
	s.now = func() time.Time { return base }
	if err := s.Save(sample()); err != nil {
		t.Fatalf("save: %v", err)
	}

	s.now = func() time.Time { return base.Add(Freshness + time.Minute) }
	if _, ok := s.Load(); ok {
		t.Fatalf("expired snapshot must not load")
	}
	// The stale file is removed, not just skipped.
	if _, err := os.Stat(s.path); !os.IsNotExist(err) {
		t.Fatalf("expired snapshot file should be deleted")
	}
}

func TestCorruptSnapshotIsDiscarded(t *testing.T) {
	s := newTestStore(t)
	if err := os.WriteFile(s.path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, ok := s.Load(); ok {
		t.Fatalf("corrupt snapshot must not load")
	}
	if _, err := os.Stat(s.path); !os.IsNotExist(err) {
		t.Fatalf("corrupt snapshot file should be deleted")
	}
}

func TestLoadMissingFile(t *testing.T) {
	s := newTestStore(t)
	if _, ok := s.Load(); ok {
		t.Fatalf("missing file must report absent")
	}
}

func TestClearIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.Save(sample()); err != nil {
		t.Fatalf("save: %v", err)
	}
	s.Clear()
	s.Clear()
	if _, ok := s.Load(); ok {
		t.Fatalf("cleared snapshot must not load")
	}
}
