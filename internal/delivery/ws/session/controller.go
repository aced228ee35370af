package ws_session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	usecase_feed "github.com/nar3s/flickpick/internal/usecase/feed"
	usecase_filters "github.com/nar3s/flickpick/internal/usecase/filters"
	usecase_room "github.com/nar3s/flickpick/internal/usecase/room"
	usecase_swipe "github.com/nar3s/flickpick/internal/usecase/swipe"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = time.Minute
	pingPeriod     = 54 * time.Second
	maxMessageSize = 8192
	sendBufferSize = 64
)

// Controller owns the session protocol: it upgrades connections, reads
// events off each socket and dispatches them to the usecases. Each
// connection's events are handled serially in its own read loop;
// broadcasts to room-mates go out before the caller's reply is queued.
type Controller struct {
	hub     *Hub
	rooms   *usecase_room.Usecase
	swipes  *usecase_swipe.Usecase
	filters *usecase_filters.Usecase
	feed    *usecase_feed.Usecase

	upgrader websocket.Upgrader
	logger   *slog.Logger
}

type ControllerOption func(*Controller)

func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

func New(
	hub *Hub,
	rooms *usecase_room.Usecase,
	swipes *usecase_swipe.Usecase,
	filters *usecase_filters.Usecase,
	feed *usecase_feed.Usecase,
	opts ...ControllerOption,
) *Controller {
	c := &Controller{
		hub:     hub,
		rooms:   rooms,
		swipes:  swipes,
		filters: filters,
		feed:    feed,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/ws", c.serve)
}

func (c *Controller) serve(ctx *gin.Context) {
	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		ID:   uuid.NewString(),
		conn: conn,
		send: make(chan Event, sendBufferSize),
	}

	c.logger.Info("connection opened", "conn", client.ID)

	go c.writePump(client)
	c.readPump(client)
}

func (c *Controller) readPump(client *Client) {
	defer func() {
		c.disconnect(client)
		close(client.send)
		client.conn.Close()
	}()

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := client.conn.ReadMessage()
		if err != nil {
			break
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.reply(client, Event{Type: EventError, Payload: errorPayload{Error: "Malformed event"}})
			continue
		}

		c.dispatch(client, env)
	}
}

func (c *Controller) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case event, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteJSON(event); err != nil {
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Controller) dispatch(client *Client, env envelope) {
	ctx := context.Background()

	switch env.Type {
	case EventCreateRoom:
		c.handleCreateRoom(ctx, client, env.Payload)
	case EventJoinRoom:
		c.handleJoinRoom(ctx, client, env.Payload)
	case EventSwipe:
		c.handleSwipe(ctx, client, env.Payload)
	case EventProposeFilters:
		c.handleProposeFilters(ctx, client, env.Payload)
	case EventApproveFilters:
		c.handleApproveFilters(ctx, client)
	case EventRejectFilters:
		c.handleRejectFilters(ctx, client)
	case EventRequestNextPage:
		c.handleNextPage(ctx, client)
	case EventGetRoomStatus:
		c.handleRoomStatus(ctx, client)
	default:
		c.reply(client, Event{Type: EventError, Payload: errorPayload{Error: "Unknown event"}})
	}
}

func (c *Controller) handleCreateRoom(ctx context.Context, client *Client, raw json.RawMessage) {
	var req createRoomRequest
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &req); err != nil {
			c.reply(client, Event{Type: EventError, Payload: errorPayload{Error: "Malformed payload"}})
			return
		}
	}

	result, err := c.rooms.Create(ctx, client.ID, req.Identity)
	if err != nil {
		c.replyError(client, err)
		return
	}

	client.RoomCode = result.RoomCode
	c.hub.Join(result.RoomCode, client)

	c.reply(client, Event{Type: EventRoomCreated, Payload: roomCreatedPayload{
		RoomID:    result.RoomCode,
		IsHost:    true,
		UserCount: 1,
		Filters:   result.Filters,
		Items:     result.Movies,
	}})
}

func (c *Controller) handleJoinRoom(ctx context.Context, client *Client, raw json.RawMessage) {
	var req joinRoomRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		c.reply(client, Event{Type: EventError, Payload: errorPayload{Error: "Malformed payload"}})
		return
	}

	result, err := c.rooms.Join(ctx, req.RoomID, client.ID, req.Identity)
	if err != nil {
		c.replyError(client, err)
		return
	}

	client.RoomCode = req.RoomID
	c.hub.Join(req.RoomID, client)

	c.hub.BroadcastToRoom(req.RoomID, Event{Type: EventMemberJoined, Payload: memberJoinedPayload{
		MemberID:  client.ID,
		UserCount: result.UserCount,
	}}, client)

	c.reply(client, Event{Type: EventRoomJoined, Payload: roomJoinedPayload{
		RoomID:         req.RoomID,
		IsHost:         result.IsHost,
		UserCount:      result.UserCount,
		Matches:        result.Matches,
		Filters:        result.Filters,
		PendingFilters: result.Pending,
		OtherMembers:   result.Others,
		Items:          result.Movies,
	}})
}

func (c *Controller) handleSwipe(ctx context.Context, client *Client, raw json.RawMessage) {
	var req swipeRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		c.reply(client, Event{Type: EventError, Payload: errorPayload{Error: "Malformed payload"}})
		return
	}

	result, err := c.swipes.Record(ctx, client.RoomCode, client.ID, req.ItemID, req.Approved)
	if err != nil {
		c.replyError(client, err)
		return
	}

	c.hub.BroadcastToRoom(client.RoomCode, Event{Type: EventMemberSwiped, Payload: memberSwipedPayload{
		MemberID:   client.ID,
		ItemID:     req.ItemID,
		SwipeCount: result.SwipeCount,
	}}, client)

	if result.IsMatch {
		// The match announcement goes to everyone, the swiper included.
		c.hub.BroadcastToRoom(client.RoomCode, Event{Type: EventMatch, Payload: matchPayload{
			ItemID: req.ItemID,
		}}, nil)
	}

	c.reply(client, Event{Type: EventSwipeResult, Payload: swipeResultPayload{
		IsMatch:      result.IsMatch,
		TotalMatches: result.TotalMatches,
	}})
}

func (c *Controller) handleProposeFilters(ctx context.Context, client *Client, raw json.RawMessage) {
	var req proposeFiltersRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		c.reply(client, Event{Type: EventError, Payload: errorPayload{Error: "Malformed payload"}})
		return
	}

	result, err := c.filters.Propose(ctx, client.RoomCode, client.ID, req.Filters)
	if err != nil {
		c.replyError(client, err)
		return
	}

	if result.Applied {
		// The new canon goes to every member, the proposer included.
		c.hub.BroadcastToRoom(client.RoomCode, Event{Type: EventFiltersUpdated, Payload: filtersUpdatedPayload{
			Filters: result.Filters,
			Items:   result.Movies,
		}}, nil)

		c.reply(client, Event{Type: EventFiltersResult, Payload: filtersResultPayload{
			Applied: true,
			Items:   result.Movies,
		}})
		return
	}

	// Pending: only the host hears about the proposal.
	c.hub.SendToConn(result.HostConn, Event{Type: EventFilterProposal, Payload: filterProposalPayload{
		Filters:    result.Proposal.Filters,
		ProposerID: client.ID,
	}})

	c.reply(client, Event{Type: EventFiltersResult, Payload: filtersResultPayload{
		Applied: false,
		Pending: true,
	}})
}

func (c *Controller) handleApproveFilters(ctx context.Context, client *Client) {
	result, err := c.filters.Approve(ctx, client.RoomCode, client.ID)
	if err != nil {
		c.replyError(client, err)
		return
	}

	c.hub.BroadcastToRoom(client.RoomCode, Event{Type: EventFiltersUpdated, Payload: filtersUpdatedPayload{
		Filters: result.Filters,
		Items:   result.Movies,
	}}, nil)

	c.reply(client, Event{Type: EventFiltersResult, Payload: filtersResultPayload{
		Applied: true,
		Items:   result.Movies,
	}})
}

func (c *Controller) handleRejectFilters(ctx context.Context, client *Client) {
	result, err := c.filters.Reject(ctx, client.RoomCode, client.ID)
	if err != nil {
		c.replyError(client, err)
		return
	}

	// Only the original proposer is told.
	c.hub.SendToConn(result.ProposerConn, Event{Type: EventFilterProposalRejected})

	c.reply(client, Event{Type: EventFiltersResult, Payload: filtersResultPayload{
		Applied: false,
	}})
}

func (c *Controller) handleNextPage(ctx context.Context, client *Client) {
	result, err := c.feed.NextPage(ctx, client.RoomCode)
	if err != nil {
		c.replyError(client, err)
		return
	}

	if len(result.New) > 0 {
		// Everyone shares one queue, so the requester hears this too.
		c.hub.BroadcastToRoom(client.RoomCode, Event{Type: EventItemsLoaded, Payload: itemsLoadedPayload{
			Items: result.Queue,
			Page:  result.Page,
		}}, nil)
	}

	c.reply(client, Event{Type: EventNextPage, Payload: nextPagePayload{
		Page:  result.Page,
		Items: result.Queue,
	}})
}

func (c *Controller) handleRoomStatus(ctx context.Context, client *Client) {
	result, err := c.rooms.Status(ctx, client.RoomCode, client.ID)
	if err != nil {
		c.replyError(client, err)
		return
	}

	c.reply(client, Event{Type: EventRoomStatus, Payload: roomStatusPayload{
		UserCount:      result.UserCount,
		Matches:        result.Matches,
		Filters:        result.Filters,
		PendingFilters: result.Pending,
		CurrentPage:    result.CurrentPage,
		IsHost:         result.IsHost,
	}})
}

func (c *Controller) disconnect(client *Client) {
	c.logger.Info("connection closed", "conn", client.ID)

	if client.RoomCode == "" {
		return
	}

	c.hub.Leave(client.RoomCode, client)

	result, err := c.rooms.Leave(context.Background(), client.RoomCode, client.ID)
	if err != nil {
		return
	}

	c.hub.BroadcastToRoom(client.RoomCode, Event{Type: EventMemberLeft, Payload: memberLeftPayload{
		MemberID:  client.ID,
		UserCount: result.UserCount,
	}}, nil)
}

func (c *Controller) reply(client *Client, event Event) {
	select {
	case client.send <- event:
	default:
		c.logger.Warn("dropping reply for slow client", "conn", client.ID)
	}
}

func (c *Controller) replyError(client *Client, err error) {
	c.reply(client, Event{Type: EventError, Payload: errorPayload{Error: protocolMessage(err)}})
}

// protocolMessage maps usecase sentinels onto the messages clients key on.
func protocolMessage(err error) string {
	switch {
	case errors.Is(err, usecase_room.ErrRoomNotFound),
		errors.Is(err, usecase_swipe.ErrRoomNotFound),
		errors.Is(err, usecase_filters.ErrRoomNotFound),
		errors.Is(err, usecase_feed.ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, usecase_room.ErrMemberNotFound),
		errors.Is(err, usecase_swipe.ErrMemberNotFound):
		return "User not in room"
	case errors.Is(err, usecase_filters.ErrNotHost):
		return "Only host can resolve filter proposals"
	case errors.Is(err, usecase_filters.ErrNoPendingProposal):
		return "No pending filters"
	case errors.Is(err, usecase_feed.ErrFetchInProgress):
		return "Already loading items"
	case errors.Is(err, usecase_room.ErrRoomsUnavailable):
		return "No rooms available"
	default:
		return "Internal error"
	}
}
