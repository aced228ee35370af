package model

import (
	"sync"
	"time"
)

// Member is one participant inside a room: a transient connection ID,
// a durable identity that survives reconnects, and the swipe ledger.
type Member struct {
	ConnID   string
	Identity string

	// Swipes maps movie ID to approval. Entries are overwritten on
	// repeated swipes and never cleared for the lifetime of the member.
	Swipes map[int]bool
}

func NewMember(connID, identity string) *Member {
	return &Member{
		ConnID:   connID,
		Identity: identity,
		Swipes:   make(map[int]bool),
	}
}

// Proposal is a filter change awaiting the host's decision.
type Proposal struct {
	Filters      Filters `json:"filters"`
	ProposerConn string  `json:"proposerId"`
}

// Room is the whole state of one session. All fields are guarded by the
// room's own mutex; callers never touch two rooms at once, so there is
// no lock ordering between rooms.
type Room struct {
	mu sync.Mutex

	Code RoomCode

	// HostConn is the connection currently holding host authority.
	// HostIdentity is the durable identity it is bound to; a reconnect
	// presenting the same identity reclaims HostConn.
	HostConn     string
	HostIdentity string

	// Members by connection ID.
	Members map[string]*Member

	Filters Filters
	Pending *Proposal

	// Feed state for the current filter epoch. History is the
	// authoritative dedup set and must survive queue bookkeeping;
	// a movie ID never re-enters Queue once it is in History.
	Page    int
	Queue   []Movie
	SeenIDs map[int]struct{}
	History map[int]struct{}

	// MatchedIDs is append-only and survives filter changes.
	MatchedIDs []int

	FetchInFlight bool

	CreatedAt time.Time
}

func NewRoom(code RoomCode, hostIdentity string) *Room {
	return &Room{
		Code:         code,
		HostIdentity: hostIdentity,
		Members:      make(map[string]*Member),
		Filters:      DefaultFilters(),
		Page:         1,
		Queue:        []Movie{},
		SeenIDs:      make(map[int]struct{}),
		History:      make(map[int]struct{}),
		MatchedIDs:   []int{},
		CreatedAt:    time.Now(),
	}
}

func (r *Room) Lock()   { r.mu.Lock() }
func (r *Room) Unlock() { r.mu.Unlock() }

// AcceptMovies appends movies to the queue and marks them seen for the
// current epoch. Caller holds the lock.
func (r *Room) AcceptMovies(movies []Movie) {
	for _, m := range movies {
		r.Queue = append(r.Queue, m)
		r.SeenIDs[m.ID] = struct{}{}
		r.History[m.ID] = struct{}{}
	}
}

// ResetFeed starts a new filter epoch: queue, dedup sets and the page
// counter go back to their initial state. Matches and member swipe
// ledgers are left alone. Caller holds the lock.
func (r *Room) ResetFeed() {
	r.Page = 1
	r.Queue = []Movie{}
	r.SeenIDs = make(map[int]struct{})
	r.History = make(map[int]struct{})
}

// IsMatched reports whether the movie already entered the match list.
// Caller holds the lock.
func (r *Room) IsMatched(movieID int) bool {
	for _, id := range r.MatchedIDs {
		if id == movieID {
			return true
		}
	}
	return false
}
