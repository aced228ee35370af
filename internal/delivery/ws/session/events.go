package ws_session

import (
	"encoding/json"

	"github.com/nar3s/flickpick/internal/model"
	usecase_room "github.com/nar3s/flickpick/internal/usecase/room"
)

// Client-to-server event types.
const (
	EventCreateRoom      = "create-room"
	EventJoinRoom        = "join-room"
	EventSwipe           = "swipe"
	EventProposeFilters  = "propose-filters"
	EventApproveFilters  = "approve-filters"
	EventRejectFilters   = "reject-filters"
	EventRequestNextPage = "request-next-page"
	EventGetRoomStatus   = "get-room-status"
)

// Server-to-caller reply types.
const (
	EventRoomCreated   = "room-created"
	EventRoomJoined    = "room-joined"
	EventSwipeResult   = "swipe-result"
	EventFiltersResult = "filters-result"
	EventNextPage      = "next-page"
	EventRoomStatus    = "room-status"
	EventError         = "error"
)

// Broadcast types.
const (
	EventMemberJoined           = "member-joined"
	EventMemberLeft             = "member-left"
	EventMemberSwiped           = "member-swiped"
	EventMatch                  = "match"
	EventFiltersUpdated         = "filters-updated"
	EventFilterProposal         = "filter-proposal"
	EventFilterProposalRejected = "filter-proposal-rejected"
	EventItemsLoaded            = "items-loaded"
)

type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type errorPayload struct {
	Error string `json:"error"`
}

type createRoomRequest struct {
	Identity string `json:"identity"`
}

type roomCreatedPayload struct {
	RoomID    model.RoomCode `json:"roomId"`
	IsHost    bool           `json:"isHost"`
	UserCount int            `json:"userCount"`
	Filters   model.Filters  `json:"filters"`
	Items     []model.Movie  `json:"items"`
}

type joinRoomRequest struct {
	RoomID   model.RoomCode `json:"roomId"`
	Identity string         `json:"identity"`
}

type roomJoinedPayload struct {
	RoomID         model.RoomCode               `json:"roomId"`
	IsHost         bool                         `json:"isHost"`
	UserCount      int                          `json:"userCount"`
	Matches        []int                        `json:"matches"`
	Filters        model.Filters                `json:"filters"`
	PendingFilters *model.Proposal              `json:"pendingFilters"`
	OtherMembers   []usecase_room.MemberSummary `json:"otherMembers"`
	Items          []model.Movie                `json:"items"`
}

type memberJoinedPayload struct {
	MemberID  string `json:"memberId"`
	UserCount int    `json:"userCount"`
}

type memberLeftPayload struct {
	MemberID  string `json:"memberId"`
	UserCount int    `json:"userCount"`
}

type swipeRequest struct {
	ItemID   int  `json:"itemId"`
	Approved bool `json:"approved"`
}

type swipeResultPayload struct {
	IsMatch      bool `json:"isMatch"`
	TotalMatches int  `json:"totalMatches"`
}

type memberSwipedPayload struct {
	MemberID   string `json:"memberId"`
	ItemID     int    `json:"itemId"`
	SwipeCount int    `json:"swipeCount"`
}

type matchPayload struct {
	ItemID int `json:"itemId"`
}

type proposeFiltersRequest struct {
	Filters model.Filters `json:"filters"`
}

type filtersResultPayload struct {
	Applied bool          `json:"applied"`
	Pending bool          `json:"pending,omitempty"`
	Items   []model.Movie `json:"items,omitempty"`
}

type filtersUpdatedPayload struct {
	Filters model.Filters `json:"filters"`
	Items   []model.Movie `json:"items"`
}

type filterProposalPayload struct {
	Filters    model.Filters `json:"filters"`
	ProposerID string        `json:"proposerId"`
}

type nextPagePayload struct {
	Page  int           `json:"page"`
	Items []model.Movie `json:"items"`
}

type itemsLoadedPayload struct {
	Items []model.Movie `json:"items"`
	Page  int           `json:"page"`
}

type roomStatusPayload struct {
	UserCount      int             `json:"userCount"`
	Matches        []int           `json:"matches"`
	Filters        model.Filters   `json:"filters"`
	PendingFilters *model.Proposal `json:"pendingFilters"`
	CurrentPage    int             `json:"currentPage"`
	IsHost         bool            `json:"isHost"`
}
