package usecase_swipe

import (
	"context"
	"testing"
	"time"

	"github.com/ozontech/allure-go/pkg/framework/provider"
	"github.com/ozontech/allure-go/pkg/framework/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nar3s/flickpick/internal/model"
	storage_room "github.com/nar3s/flickpick/internal/storage/room"
)

type UsecaseSwipeUnitSuite struct {
	suite.Suite
}

type resources struct {
	storage *storage_room.Storage
	usecase *Usecase
	room    *model.Room
	ctx     context.Context
}

func initResources(t provider.T) *resources {
	storage := storage_room.New(time.Minute)
	room := model.NewRoom("ABC123", "host-identity")
	require.NoError(t, storage.Put(room))

	return &resources{
		storage: storage,
		usecase: New(storage),
		room:    room,
		ctx:     context.Background(),
	}
}

func seatMember(r *resources, connID, identity string) {
	r.room.Lock()
	r.room.Members[connID] = model.NewMember(connID, identity)
	r.room.Unlock()
}

func unseatMember(r *resources, connID string) {
	r.room.Lock()
	delete(r.room.Members, connID)
	r.room.Unlock()
}

func (s *UsecaseSwipeUnitSuite) TestUnanimousMatch(t provider.T) {
	t.Run("Second approval of both members fires the match", func(t provider.T) {
		r := initResources(t)
		seatMember(r, "conn-a", "ida")
		seatMember(r, "conn-b", "idb")

		first, err := r.usecase.Record(r.ctx, r.room.Code, "conn-a", 42, true)
		require.NoError(t, err)
		assert.False(t, first.IsMatch)
		assert.Equal(t, 0, first.TotalMatches)

		second, err := r.usecase.Record(r.ctx, r.room.Code, "conn-b", 42, true)
		require.NoError(t, err)
		assert.True(t, second.IsMatch)
		assert.Equal(t, 1, second.TotalMatches)
	})

	t.Run("Re-approving a matched movie does not fire again", func(t provider.T) {
		r := initResources(t)
		seatMember(r, "conn-a", "ida")
		seatMember(r, "conn-b", "idb")

		_, err := r.usecase.Record(r.ctx, r.room.Code, "conn-a", 42, true)
		require.NoError(t, err)
		_, err = r.usecase.Record(r.ctx, r.room.Code, "conn-b", 42, true)
		require.NoError(t, err)

		third, err := r.usecase.Record(r.ctx, r.room.Code, "conn-a", 42, true)
		require.NoError(t, err)
		assert.False(t, third.IsMatch)
		assert.Equal(t, 1, third.TotalMatches)
	})

	t.Run("Absence of an entry counts as non-approval", func(t provider.T) {
		r := initResources(t)
		seatMember(r, "conn-a", "ida")
		seatMember(r, "conn-b", "idb")

		result, err := r.usecase.Record(r.ctx, r.room.Code, "conn-a", 7, true)
		require.NoError(t, err)
		assert.False(t, result.IsMatch)
	})

	t.Run("Rejection never matches even when everyone else approved", func(t provider.T) {
		r := initResources(t)
		seatMember(r, "conn-a", "ida")
		seatMember(r, "conn-b", "idb")

		_, err := r.usecase.Record(r.ctx, r.room.Code, "conn-a", 7, true)
		require.NoError(t, err)
		result, err := r.usecase.Record(r.ctx, r.room.Code, "conn-b", 7, false)
		require.NoError(t, err)
		assert.False(t, result.IsMatch)

		// Flipping the rejection to an approval completes the match.
		result, err = r.usecase.Record(r.ctx, r.room.Code, "conn-b", 7, true)
		require.NoError(t, err)
		assert.True(t, result.IsMatch)
	})
}

func (s *UsecaseSwipeUnitSuite) TestMembershipChanges(t provider.T) {
	t.Run("Departed member's old approval cannot complete a match", func(t provider.T) {
		r := initResources(t)
		seatMember(r, "conn-a", "ida")
		seatMember(r, "conn-b", "idb")

		_, err := r.usecase.Record(r.ctx, r.room.Code, "conn-b", 77, true)
		require.NoError(t, err)

		unseatMember(r, "conn-b")

		result, err := r.usecase.Record(r.ctx, r.room.Code, "conn-a", 77, true)
		require.NoError(t, err)
		assert.False(t, result.IsMatch, "unanimity only counts members connected right now")
	})

	t.Run("Disconnect before approving prevents the match", func(t provider.T) {
		r := initResources(t)
		seatMember(r, "conn-a", "ida")
		seatMember(r, "conn-b", "idb")

		unseatMember(r, "conn-b")

		result, err := r.usecase.Record(r.ctx, r.room.Code, "conn-a", 77, true)
		require.NoError(t, err)
		assert.False(t, result.IsMatch)
	})

	t.Run("A lone member never matches", func(t provider.T) {
		r := initResources(t)
		seatMember(r, "conn-a", "ida")

		result, err := r.usecase.Record(r.ctx, r.room.Code, "conn-a", 1, true)
		require.NoError(t, err)
		assert.False(t, result.IsMatch)
	})
}

func (s *UsecaseSwipeUnitSuite) TestErrors(t provider.T) {
	t.Run("Unknown room", func(t provider.T) {
		r := initResources(t)

		_, err := r.usecase.Record(r.ctx, "NOPE42", "conn-a", 1, true)
		assert.ErrorIs(t, err, ErrRoomNotFound)
	})

	t.Run("Connection not seated in the room", func(t provider.T) {
		r := initResources(t)

		_, err := r.usecase.Record(r.ctx, r.room.Code, "ghost", 1, true)
		assert.ErrorIs(t, err, ErrMemberNotFound)
	})
}

type recorderStub struct {
	records []model.Movie
	fail    error
}

func (s *recorderStub) Record(_ context.Context, _ model.RoomCode, movie model.Movie) error {
	s.records = append(s.records, movie)
	return s.fail
}

func (s *UsecaseSwipeUnitSuite) TestMatchArchive(t provider.T) {
	t.Run("Confirmed match is archived with its queue record", func(t provider.T) {
		r := initResources(t)
		rec := &recorderStub{}
		r.usecase = New(r.storage, WithMatchRecorder(rec))
		seatMember(r, "conn-a", "ida")
		seatMember(r, "conn-b", "idb")

		r.room.Lock()
		r.room.AcceptMovies([]model.Movie{{ID: 42, Title: "Heat"}})
		r.room.Unlock()

		_, err := r.usecase.Record(r.ctx, r.room.Code, "conn-a", 42, true)
		require.NoError(t, err)
		_, err = r.usecase.Record(r.ctx, r.room.Code, "conn-b", 42, true)
		require.NoError(t, err)

		require.Len(t, rec.records, 1)
		assert.Equal(t, "Heat", rec.records[0].Title)
	})

	t.Run("Archive failure does not fail the swipe", func(t provider.T) {
		r := initResources(t)
		rec := &recorderStub{fail: assert.AnError}
		r.usecase = New(r.storage, WithMatchRecorder(rec))
		seatMember(r, "conn-a", "ida")
		seatMember(r, "conn-b", "idb")

		_, err := r.usecase.Record(r.ctx, r.room.Code, "conn-a", 9, true)
		require.NoError(t, err)
		result, err := r.usecase.Record(r.ctx, r.room.Code, "conn-b", 9, true)
		require.NoError(t, err)
		assert.True(t, result.IsMatch)
	})
}

func TestUnitSuite(t *testing.T) {
	suite.RunSuite(t, new(UsecaseSwipeUnitSuite))
}
