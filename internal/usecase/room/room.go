package usecase_room

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/nar3s/flickpick/internal/model"
	storage_room "github.com/nar3s/flickpick/internal/storage/room"
)

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrMemberNotFound   = errors.New("member not in room")
	ErrRoomsUnavailable = errors.New("no available room codes")
	ErrInternal         = errors.New("internal error")
)

type RoomStorage interface {
	Put(room *model.Room) error
	Get(code model.RoomCode) (*model.Room, bool)
	Visit(code model.RoomCode, fn func(room *model.Room)) bool
	Len() int
	ScheduleEviction(code model.RoomCode)
	CancelEviction(code model.RoomCode)
}

// FeedPrimer loads the first page of the feed into a freshly created or
// freshly reset room.
type FeedPrimer interface {
	Prime(ctx context.Context, room *model.Room)
}

type Usecase struct {
	storage RoomStorage
	feed    FeedPrimer
	logger  *slog.Logger
}

type UsecaseOption func(*Usecase)

func WithLogger(logger *slog.Logger) UsecaseOption {
	return func(u *Usecase) {
		u.logger = logger
	}
}

func New(storage RoomStorage, feed FeedPrimer, opts ...UsecaseOption) *Usecase {
	u := &Usecase{
		storage: storage,
		feed:    feed,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

type CreateResult struct {
	RoomCode model.RoomCode
	Filters  model.Filters
	Movies   []model.Movie
}

// Create allocates a room with a fresh code, seats the creator as host
// and pre-populates the queue from the feed.
func (u *Usecase) Create(ctx context.Context, connID, identity string) (*CreateResult, error) {
	identity = resolveIdentity(connID, identity)

	room, err := u.allocateRoom(identity)
	if err != nil {
		return nil, err
	}

	room.Lock()
	room.HostConn = connID
	room.Members[connID] = model.NewMember(connID, identity)
	room.Unlock()

	u.feed.Prime(ctx, room)

	u.logger.Info("room created", "room", room.Code, "host_identity", identity)

	room.Lock()
	defer room.Unlock()
	return &CreateResult{
		RoomCode: room.Code,
		Filters:  room.Filters,
		Movies:   append([]model.Movie{}, room.Queue...),
	}, nil
}

// Assuming that codes can conflict.
// Retrying...
func (u *Usecase) allocateRoom(hostIdentity string) (*model.Room, error) {
	var retries = 3
	for retries > 0 {
		code := buildRoomCode()
		room := model.NewRoom(code, hostIdentity)
		if err := u.storage.Put(room); err != nil {
			if errors.Is(err, storage_room.ErrCodeConflict) {
				retries--
				continue
			}
			return nil, errors.Join(ErrInternal, err)
		}
		return room, nil
	}
	return nil, ErrRoomsUnavailable
}

const roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func buildRoomCode() model.RoomCode {
	const codeLen = 6
	var builder strings.Builder
	builder.Grow(codeLen)

	for i := 0; i < codeLen; i++ {
		builder.WriteByte(roomCodeAlphabet[rand.Intn(len(roomCodeAlphabet))])
	}

	return builder.String()
}

type MemberSummary struct {
	ID         string `json:"id"`
	SwipeCount int    `json:"swipeCount"`
}

type JoinResult struct {
	MemberID  string
	IsHost    bool
	UserCount int
	Matches   []int
	Filters   model.Filters
	Pending   *model.Proposal
	Others    []MemberSummary
	Movies    []model.Movie
}

// Join seats a connection in the room. A connection presenting the host's
// durable identity reclaims host authority, which is what keeps the host
// role alive across reconnects. Seating goes through storage.Visit so a
// grace timer firing mid-join either evicts before the lookup or sees
// the new member and backs off.
func (u *Usecase) Join(ctx context.Context, code model.RoomCode, connID, identity string) (*JoinResult, error) {
	identity = resolveIdentity(connID, identity)

	var result *JoinResult
	seated := u.storage.Visit(code, func(room *model.Room) {
		isHost := false
		if room.HostIdentity == identity {
			room.HostConn = connID
			isHost = true
			u.logger.Info("host reclaimed room", "room", code, "identity", identity)
		}

		room.Members[connID] = model.NewMember(connID, identity)
		userCount := len(room.Members)

		others := make([]MemberSummary, 0, userCount-1)
		for id, m := range room.Members {
			if id == connID {
				continue
			}
			others = append(others, MemberSummary{ID: id, SwipeCount: len(m.Swipes)})
		}

		result = &JoinResult{
			MemberID:  connID,
			IsHost:    isHost,
			UserCount: userCount,
			Matches:   append([]int{}, room.MatchedIDs...),
			Filters:   room.Filters,
			Pending:   room.Pending,
			Others:    others,
			Movies:    append([]model.Movie{}, room.Queue...),
		}
	})
	if !seated {
		return nil, ErrRoomNotFound
	}

	u.storage.CancelEviction(code)

	u.logger.Info("member joined", "room", code, "conn", connID, "users", result.UserCount)

	return result, nil
}

type LeaveResult struct {
	UserCount int
}

// Leave unseats a connection. The member's swipes go with it; the host
// identity stays so a later rejoin can reclaim the role. The last member
// out arms the eviction timer.
func (u *Usecase) Leave(ctx context.Context, code model.RoomCode, connID string) (*LeaveResult, error) {
	room, ok := u.storage.Get(code)
	if !ok {
		return nil, ErrRoomNotFound
	}

	room.Lock()
	if _, ok := room.Members[connID]; !ok {
		room.Unlock()
		return nil, ErrMemberNotFound
	}
	delete(room.Members, connID)
	if room.HostConn == connID {
		// The identity keeps the claim; the dead connection does not.
		room.HostConn = ""
	}
	userCount := len(room.Members)
	room.Unlock()

	if userCount == 0 {
		u.storage.ScheduleEviction(code)
	}

	u.logger.Info("member left", "room", code, "conn", connID, "users", userCount)

	return &LeaveResult{UserCount: userCount}, nil
}

type StatusResult struct {
	UserCount   int
	Matches     []int
	Filters     model.Filters
	Pending     *model.Proposal
	CurrentPage int
	IsHost      bool
}

func (u *Usecase) Status(ctx context.Context, code model.RoomCode, connID string) (*StatusResult, error) {
	room, ok := u.storage.Get(code)
	if !ok {
		return nil, ErrRoomNotFound
	}

	room.Lock()
	defer room.Unlock()

	return &StatusResult{
		UserCount:   len(room.Members),
		Matches:     append([]int{}, room.MatchedIDs...),
		Filters:     room.Filters,
		Pending:     room.Pending,
		CurrentPage: room.Page,
		IsHost:      connID == room.HostConn,
	}, nil
}

// ActiveRooms reports how many rooms are live, for the liveness probe.
func (u *Usecase) ActiveRooms() int {
	return u.storage.Len()
}

func resolveIdentity(connID, identity string) string {
	if identity != "" {
		return identity
	}
	return "user_" + connID
}
