package usecase_feed

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nar3s/flickpick/internal/model"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrFetchInProgress = errors.New("fetch already in progress")
)

const (
	// minBatch is the number of previously unseen movies a NextPage call
	// tries to accumulate before returning.
	minBatch = 5
	// maxAttempts bounds how many upstream pages one call may walk.
	maxAttempts = 5
	// maxPage is the upstream's hard pagination ceiling.
	maxPage = 500
)

// Gateway is the external catalog. It never fails: a broken upstream
// shows up as an empty page.
type Gateway interface {
	FetchPage(ctx context.Context, page int, filters model.Filters) model.MoviePage
}

type RoomStorage interface {
	Get(code model.RoomCode) (*model.Room, bool)
}

type Usecase struct {
	storage RoomStorage
	gateway Gateway
	logger  *slog.Logger
}

type UsecaseOption func(*Usecase)

func WithLogger(logger *slog.Logger) UsecaseOption {
	return func(u *Usecase) {
		u.logger = logger
	}
}

func New(storage RoomStorage, gateway Gateway, opts ...UsecaseOption) *Usecase {
	u := &Usecase{
		storage: storage,
		gateway: gateway,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Prime fetches page 1 under the room's current filters into the queue.
// Used right after room creation and after a filter change; the caller
// must have reset the feed state already.
func (u *Usecase) Prime(ctx context.Context, room *model.Room) {
	room.Lock()
	filters := room.Filters
	room.Unlock()

	page := u.gateway.FetchPage(ctx, 1, filters)

	room.Lock()
	room.AcceptMovies(page.Movies)
	room.Page = 1
	room.Unlock()
}

type NextPageResult struct {
	Page  int
	New   []model.Movie
	Queue []model.Movie
}

// NextPage walks upstream pages until it has minBatch movies the room has
// never seen this epoch, or runs out of budget. Exhaustion is success
// with an empty batch, not an error; only an overlapping call fails.
func (u *Usecase) NextPage(ctx context.Context, code model.RoomCode) (*NextPageResult, error) {
	room, ok := u.storage.Get(code)
	if !ok {
		return nil, ErrRoomNotFound
	}

	room.Lock()
	if room.FetchInFlight {
		room.Unlock()
		return nil, ErrFetchInProgress
	}
	room.FetchInFlight = true
	room.Unlock()

	defer func() {
		room.Lock()
		room.FetchInFlight = false
		room.Unlock()
	}()

	batch := []model.Movie{}
	for attempt := 0; attempt < maxAttempts && len(batch) < minBatch; attempt++ {
		room.Lock()
		if room.Page >= maxPage {
			room.Unlock()
			break
		}
		room.Page++
		page := room.Page
		filters := room.Filters
		room.Unlock()

		u.logger.Info("fetching feed page", "room", code, "page", page, "attempt", attempt+1)

		fetched := u.gateway.FetchPage(ctx, page, filters)

		// Accept only movies this epoch has never surfaced, marking them
		// immediately so overlapping upstream pages within this same call
		// cannot sneak in duplicates.
		room.Lock()
		fresh := make([]model.Movie, 0, len(fetched.Movies))
		for _, m := range fetched.Movies {
			if _, seen := room.History[m.ID]; seen {
				continue
			}
			fresh = append(fresh, m)
		}
		room.AcceptMovies(fresh)
		batch = append(batch, fresh...)
		room.Unlock()

		// No raw results at all means the provider is exhausted.
		if len(fetched.Movies) == 0 {
			break
		}
	}

	room.Lock()
	defer room.Unlock()
	return &NextPageResult{
		Page:  room.Page,
		New:   batch,
		Queue: append([]model.Movie{}, room.Queue...),
	}, nil
}
