package ws_session

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nar3s/flickpick/internal/model"
	storage_room "github.com/nar3s/flickpick/internal/storage/room"
	usecase_feed "github.com/nar3s/flickpick/internal/usecase/feed"
	usecase_filters "github.com/nar3s/flickpick/internal/usecase/filters"
	usecase_room "github.com/nar3s/flickpick/internal/usecase/room"
	usecase_swipe "github.com/nar3s/flickpick/internal/usecase/swipe"
)

type feedStub struct {
	pages map[int][]model.Movie
}

func (f *feedStub) FetchPage(_ context.Context, page int, _ model.Filters) model.MoviePage {
	return model.MoviePage{Page: page, Movies: f.pages[page], TotalPages: len(f.pages)}
}

func moviesRange(from, n int) []model.Movie {
	movies := make([]model.Movie, 0, n)
	for i := 0; i < n; i++ {
		movies = append(movies, model.Movie{ID: from + i, Title: "Movie"})
	}
	return movies
}

func newSessionServer(t *testing.T) *httptest.Server {
	gin.SetMode(gin.TestMode)

	storage := storage_room.New(time.Minute)
	gateway := &feedStub{pages: map[int][]model.Movie{
		1: moviesRange(1, 6),
		2: moviesRange(11, 6),
	}}
	feedUC := usecase_feed.New(storage, gateway)
	roomUC := usecase_room.New(storage, feedUC)
	filtersUC := usecase_filters.New(storage, feedUC)
	swipeUC := usecase_swipe.New(storage)

	controller := New(NewHub(), roomUC, swipeUC, filtersUC, feedUC)

	engine := gin.New()
	controller.RegisterRoutes(engine.Group("/api/v1"))

	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return srv
}

func dialSession(t *testing.T, srv *httptest.Server) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, eventType string, payload any) {
	require.NoError(t, conn.WriteJSON(Event{Type: eventType, Payload: payload}))
}

func readEvent(t *testing.T, conn *websocket.Conn) envelope {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

// waitFor discards events until the wanted type arrives. Earlier events
// are consumed, so callers must wait in stream order.
func waitFor(t *testing.T, conn *websocket.Conn, eventType string) json.RawMessage {
	for i := 0; i < 10; i++ {
		env := readEvent(t, conn)
		if env.Type == eventType {
			return env.Payload
		}
	}
	t.Fatalf("no %q event arrived", eventType)
	return nil
}

func openRoom(t *testing.T, srv *httptest.Server) (host, guest *websocket.Conn, code model.RoomCode) {
	host = dialSession(t, srv)
	guest = dialSession(t, srv)

	sendEvent(t, host, EventCreateRoom, createRoomRequest{Identity: "alice"})
	var created roomCreatedPayload
	require.NoError(t, json.Unmarshal(waitFor(t, host, EventRoomCreated), &created))

	sendEvent(t, guest, EventJoinRoom, joinRoomRequest{RoomID: created.RoomID, Identity: "bob"})
	waitFor(t, guest, EventRoomJoined)
	waitFor(t, host, EventMemberJoined)

	return host, guest, created.RoomID
}

func TestNextPageBroadcastReachesRequester(t *testing.T) {
	srv := newSessionServer(t)
	host, guest, _ := openRoom(t, srv)

	sendEvent(t, guest, EventRequestNextPage, nil)

	var loaded itemsLoadedPayload
	require.NoError(t, json.Unmarshal(waitFor(t, guest, EventItemsLoaded), &loaded))
	assert.Equal(t, 2, loaded.Page)
	assert.Len(t, loaded.Items, 12)

	var reply nextPagePayload
	require.NoError(t, json.Unmarshal(waitFor(t, guest, EventNextPage), &reply))
	assert.Equal(t, 2, reply.Page)

	var hostView itemsLoadedPayload
	require.NoError(t, json.Unmarshal(waitFor(t, host, EventItemsLoaded), &hostView))
	assert.Equal(t, 2, hostView.Page)
}

func TestFiltersUpdatedReachesHostWhoApplied(t *testing.T) {
	srv := newSessionServer(t)
	host, guest, _ := openRoom(t, srv)

	sendEvent(t, host, EventProposeFilters, proposeFiltersRequest{
		Filters: model.Filters{Language: "fr"},
	})

	var hostUpdate filtersUpdatedPayload
	require.NoError(t, json.Unmarshal(waitFor(t, host, EventFiltersUpdated), &hostUpdate))
	assert.Equal(t, "fr", hostUpdate.Filters.Language)

	var result filtersResultPayload
	require.NoError(t, json.Unmarshal(waitFor(t, host, EventFiltersResult), &result))
	assert.True(t, result.Applied)

	var guestUpdate filtersUpdatedPayload
	require.NoError(t, json.Unmarshal(waitFor(t, guest, EventFiltersUpdated), &guestUpdate))
	assert.Equal(t, "fr", guestUpdate.Filters.Language)
}

func TestFiltersUpdatedOnApproveReachesHost(t *testing.T) {
	srv := newSessionServer(t)
	host, guest, _ := openRoom(t, srv)

	sendEvent(t, guest, EventProposeFilters, proposeFiltersRequest{
		Filters: model.Filters{Year: 1999},
	})
	waitFor(t, guest, EventFiltersResult)
	waitFor(t, host, EventFilterProposal)

	sendEvent(t, host, EventApproveFilters, nil)

	var hostUpdate filtersUpdatedPayload
	require.NoError(t, json.Unmarshal(waitFor(t, host, EventFiltersUpdated), &hostUpdate))
	assert.Equal(t, 1999, hostUpdate.Filters.Year)

	var guestUpdate filtersUpdatedPayload
	require.NoError(t, json.Unmarshal(waitFor(t, guest, EventFiltersUpdated), &guestUpdate))
	assert.Equal(t, 1999, guestUpdate.Filters.Year)
}

func TestMemberSwipedSkipsTheSwiper(t *testing.T) {
	srv := newSessionServer(t)
	host, guest, _ := openRoom(t, srv)

	sendEvent(t, guest, EventSwipe, swipeRequest{ItemID: 1, Approved: true})

	// The swiper's own stream carries only the result.
	env := readEvent(t, guest)
	assert.Equal(t, EventSwipeResult, env.Type)

	var swiped memberSwipedPayload
	require.NoError(t, json.Unmarshal(waitFor(t, host, EventMemberSwiped), &swiped))
	assert.Equal(t, 1, swiped.ItemID)
	assert.Equal(t, 1, swiped.SwipeCount)
}
