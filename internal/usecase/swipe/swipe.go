package usecase_swipe

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nar3s/flickpick/internal/model"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrMemberNotFound = errors.New("member not in room")
)

type RoomStorage interface {
	Get(code model.RoomCode) (*model.Room, bool)
}

// MatchRecorder archives confirmed matches. Optional: a nil recorder
// disables archiving, and a failing one only costs a log line.
type MatchRecorder interface {
	Record(ctx context.Context, code model.RoomCode, movie model.Movie) error
}

type Usecase struct {
	storage  RoomStorage
	recorder MatchRecorder
	logger   *slog.Logger
}

type UsecaseOption func(*Usecase)

func WithLogger(logger *slog.Logger) UsecaseOption {
	return func(u *Usecase) {
		u.logger = logger
	}
}

func WithMatchRecorder(r MatchRecorder) UsecaseOption {
	return func(u *Usecase) {
		u.recorder = r
	}
}

func New(storage RoomStorage, opts ...UsecaseOption) *Usecase {
	u := &Usecase{
		storage: storage,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

type Result struct {
	IsMatch      bool
	TotalMatches int
	SwipeCount   int
}

// Record stores or overwrites the member's verdict on a movie. An
// approval triggers match detection over the members connected right
// now: everyone has to be present and approving at this instant, so a
// departed member's old approval never completes a match. A movie
// already matched stays matched and never fires again.
func (u *Usecase) Record(ctx context.Context, code model.RoomCode, connID string, movieID int, approved bool) (*Result, error) {
	room, ok := u.storage.Get(code)
	if !ok {
		return nil, ErrRoomNotFound
	}

	room.Lock()
	member, ok := room.Members[connID]
	if !ok {
		room.Unlock()
		return nil, ErrMemberNotFound
	}

	member.Swipes[movieID] = approved

	isMatch := false
	if approved {
		isMatch = u.detectMatch(room, movieID)
	}

	result := &Result{
		IsMatch:      isMatch,
		TotalMatches: len(room.MatchedIDs),
		SwipeCount:   len(member.Swipes),
	}

	var matched model.Movie
	if isMatch {
		matched = findInQueue(room, movieID)
	}
	room.Unlock()

	u.logger.Info("swipe recorded",
		"room", code, "conn", connID, "movie", movieID, "approved", approved, "match", isMatch)

	if isMatch && u.recorder != nil {
		if err := u.recorder.Record(ctx, code, matched); err != nil {
			u.logger.Error("match archive failed", "room", code, "movie", movieID, "error", err)
		}
	}

	return result, nil
}

// detectMatch runs the unanimity check. Caller holds the room lock.
func (u *Usecase) detectMatch(room *model.Room, movieID int) bool {
	if len(room.Members) < 2 {
		return false
	}

	for _, m := range room.Members {
		// Absence of an entry counts as non-approval.
		if !m.Swipes[movieID] {
			return false
		}
	}

	if room.IsMatched(movieID) {
		return false
	}

	room.MatchedIDs = append(room.MatchedIDs, movieID)
	return true
}

// findInQueue recovers the full movie record for archiving. The queue may
// have been reset since the movie was surfaced; then only the ID is known.
func findInQueue(room *model.Room, movieID int) model.Movie {
	for _, m := range room.Queue {
		if m.ID == movieID {
			return m
		}
	}
	return model.Movie{ID: movieID}
}
