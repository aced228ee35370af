package usecase_filters

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nar3s/flickpick/internal/model"
)

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrNotHost           = errors.New("only host can resolve filter proposals")
	ErrNoPendingProposal = errors.New("no pending filter proposal")
)

type RoomStorage interface {
	Get(code model.RoomCode) (*model.Room, bool)
}

// FeedPrimer reloads page 1 after a filter change.
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

type ProposeResult struct {
	Applied bool
	Pending bool
	// Set on the applied path.
	Filters model.Filters
	Movies  []model.Movie
	// Set on the pending path, for routing the proposal to the host.
	HostConn string
	Proposal *model.Proposal
}

// Propose either applies filters outright (host) or parks them as the
// room's single pending proposal (anyone else). A newer proposal simply
// replaces an older one; there is no queue.
func (u *Usecase) Propose(ctx context.Context, code model.RoomCode, connID string, filters model.Filters) (*ProposeResult, error) {
	room, ok := u.storage.Get(code)
	if !ok {
		return nil, ErrRoomNotFound
	}

	room.Lock()
	if connID != room.HostConn {
		room.Pending = &model.Proposal{Filters: filters, ProposerConn: connID}
		result := &ProposeResult{
			Pending:  true,
			HostConn: room.HostConn,
			Proposal: room.Pending,
		}
		room.Unlock()

		u.logger.Info("filters proposed", "room", code, "proposer", connID)
		return result, nil
	}

	room.Filters = filters
	room.Pending = nil
	room.ResetFeed()
	room.Unlock()

	u.feed.Prime(ctx, room)

	u.logger.Info("filters applied by host", "room", code, "host", connID)

	room.Lock()
	defer room.Unlock()
	return &ProposeResult{
		Applied: true,
		Filters: room.Filters,
		Movies:  append([]model.Movie{}, room.Queue...),
	}, nil
}

type ApproveResult struct {
	Filters model.Filters
	Movies  []model.Movie
}

// Approve applies the pending proposal. Host only; valid only while a
// proposal is pending.
func (u *Usecase) Approve(ctx context.Context, code model.RoomCode, connID string) (*ApproveResult, error) {
	room, ok := u.storage.Get(code)
	if !ok {
		return nil, ErrRoomNotFound
	}

	room.Lock()
	if connID != room.HostConn {
		room.Unlock()
		return nil, ErrNotHost
	}
	if room.Pending == nil {
		room.Unlock()
		return nil, ErrNoPendingProposal
	}

	room.Filters = room.Pending.Filters
	room.Pending = nil
	room.ResetFeed()
	room.Unlock()

	u.feed.Prime(ctx, room)

	u.logger.Info("filters approved", "room", code, "host", connID)

	room.Lock()
	defer room.Unlock()
	return &ApproveResult{
		Filters: room.Filters,
		Movies:  append([]model.Movie{}, room.Queue...),
	}, nil
}

type RejectResult struct {
	// The proposer to notify; nobody else hears about the rejection.
	ProposerConn string
}

// Reject discards the pending proposal without touching the active
// filters. Host only.
func (u *Usecase) Reject(ctx context.Context, code model.RoomCode, connID string) (*RejectResult, error) {
	room, ok := u.storage.Get(code)
	if !ok {
		return nil, ErrRoomNotFound
	}

	room.Lock()
	defer room.Unlock()

	if connID != room.HostConn {
		return nil, ErrNotHost
	}
	if room.Pending == nil {
		return nil, ErrNoPendingProposal
	}

	proposer := room.Pending.ProposerConn
	room.Pending = nil

	u.logger.Info("filters rejected", "room", code, "host", connID, "proposer", proposer)

	return &RejectResult{ProposerConn: proposer}, nil
}
