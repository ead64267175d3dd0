// Package snapshot persists the projection engine's visible state so a
// reload can resume an in-flight game.
package snapshot

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"javanese-chess-client/internal/protocol"
)

// Freshness is the validity window enforced at load time; older snapshots
// are discarded rather than applied.
const Freshness = time.Hour

// Snapshot is the JSON blob written after every state-affecting event.
type Snapshot struct {
	RoomCode         string            `json:"roomCode"`
	GameStatus       string            `json:"gameStatus"`
	Board            protocol.Board    `json:"board"`
	TurnOrder        []protocol.Player `json:"turnOrder"`
	CurrentTurnIndex int               `json:"currentTurnIndex"`
	MyPlayerID       string            `json:"myPlayerId"`
	Timestamp        int64             `json:"timestamp"` // unix milliseconds
}

// Store reads and writes a single snapshot at a fixed path.
type Store struct {
	path string
	log  *zap.Logger
	now  func() time.Time
}

func NewStore(path string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{path: path, log: log, now: time.Now}
}

// Save stamps and writes the snapshot. A write failure is logged and
// reported but never fatal to the caller.
func (s *Store) Save(snap Snapshot) error {
	snap.Timestamp = s.now().UnixMilli()
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			s.log.Warn("snapshot dir create failed", zap.Error(err))
			return err
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		s.log.Warn("snapshot write failed", zap.Error(err))
		return err
	}
	return nil
}

// Load returns the persisted snapshot if one exists, parses, and is no older
// than Freshness. Corrupt or expired snapshots are cleared and reported as
// absent; the caller proceeds as if nothing was saved.
func (s *Store) Load() (Snapshot, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("snapshot read failed", zap.Error(err))
		}
		return Snapshot{}, false
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.log.Warn("snapshot corrupt, discarding", zap.Error(err))
		s.Clear()
		return Snapshot{}, false
	}
	age := s.now().Sub(time.UnixMilli(snap.Timestamp))
	if age > Freshness {
		s.log.Info("snapshot expired, discarding", zap.Duration("age", age))
		s.Clear()
		return Snapshot{}, false
	}
	return snap, true
}

// Clear removes any persisted snapshot.
func (s *Store) Clear() {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Warn("snapshot remove failed", zap.Error(err))
	}
}
