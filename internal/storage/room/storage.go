package storage_room

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nar3s/flickpick/internal/model"
)

var ErrCodeConflict = errors.New("code conflict")

// Storage owns every live room. Callers never hold a room across events
// without going back through lookup-by-code, which keeps the registry the
// single place rooms are created and destroyed.
type Storage struct {
	mu     sync.RWMutex
	rooms  map[model.RoomCode]*model.Room
	timers map[model.RoomCode]*time.Timer

	grace  time.Duration
	logger *slog.Logger
}

type StorageOption func(*Storage)

func WithLogger(logger *slog.Logger) StorageOption {
	return func(s *Storage) {
		s.logger = logger
	}
}

func New(grace time.Duration, opts ...StorageOption) *Storage {
	s := &Storage{
		rooms:  make(map[model.RoomCode]*model.Room),
		timers: make(map[model.RoomCode]*time.Timer),
		grace:  grace,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put registers a freshly created room. Codes are expected to be unique;
// a collision is reported so the caller can regenerate.
func (s *Storage) Put(room *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rooms[room.Code]; exists {
		return ErrCodeConflict
	}
	s.rooms[room.Code] = room
	return nil
}

func (s *Storage) Get(code model.RoomCode) (*model.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[code]
	return room, ok
}

// Visit looks a room up and runs fn under the room lock without
// releasing the registry lock in between. An eviction firing
// concurrently either wins the registry lock first, in which case the
// lookup misses, or waits and re-checks emptiness after fn has run.
// Mutations that seat a member therefore cannot land in a room the
// registry no longer knows.
func (s *Storage) Visit(code model.RoomCode, fn func(room *model.Room)) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[code]
	if !ok {
		return false
	}

	room.Lock()
	defer room.Unlock()
	fn(room)
	return true
}

func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.rooms)
}

// ScheduleEviction arms the grace timer for a room that just went empty.
// The timer re-checks emptiness when it fires, so a rejoin inside the
// grace window makes the eviction a no-op even if the timer was not
// stopped in time.
func (s *Storage) ScheduleEviction(code model.RoomCode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[code]; ok {
		t.Stop()
	}
	s.timers[code] = time.AfterFunc(s.grace, func() {
		s.evict(code)
	})
}

// CancelEviction disarms a pending eviction, typically on rejoin.
func (s *Storage) CancelEviction(code model.RoomCode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[code]; ok {
		t.Stop()
		delete(s.timers, code)
	}
}

func (s *Storage) evict(code model.RoomCode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.timers, code)

	room, ok := s.rooms[code]
	if !ok {
		return
	}

	room.Lock()
	empty := len(room.Members) == 0
	room.Unlock()
	if !empty {
		return
	}

	delete(s.rooms, code)
	s.logger.Info("room evicted", "room", code)
}
