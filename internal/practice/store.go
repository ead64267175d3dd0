package practice

import "sync"

// Store abstracts room persistence so the manager stays testable.
type Store interface {
	GetRoom(code string) (*Room, bool)
	SaveRoom(r *Room)
}

type MemoryStore struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rooms: map[string]*Room{}}
}

func (m *MemoryStore) GetRoom(code string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[code]
	return r, ok
}

func (m *MemoryStore) SaveRoom(r *Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[r.Code] = r
}
