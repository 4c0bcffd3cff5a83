package http

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// RoomClient wraps the room endpoints of the call-control API.
type RoomClient struct {
	*Client
}

func NewRoomClient(c *Client) *RoomClient {
	return &RoomClient{Client: c}
}

// Room is the room resource as the API returns it.
type Room struct {
	RoomID       string            `json:"roomId"`
	CustomRoomID string            `json:"customRoomId,omitempty"`
	UserID       string            `json:"userId,omitempty"`
	Disabled     bool              `json:"disabled,omitempty"`
	CreatedAt    string            `json:"createdAt,omitempty"`
	UpdatedAt    string            `json:"updatedAt,omitempty"`
	Links        map[string]string `json:"links,omitempty"`
}

// RoomsPage is the paginated room listing.
type RoomsPage struct {
	PageInfo PageInfo `json:"pageInfo"`
	Data     []Room   `json:"data"`
}

// CreateRoom provisions a fresh room and returns its id.
func (rc *RoomClient) CreateRoom(ctx context.Context) (string, error) {
	var room Room
	if err := rc.doJSON(ctx, http.MethodPost, "/rooms", nil, map[string]interface{}{}, &room); err != nil {
		return "", err
	}
	if room.RoomID == "" {
		return "", fmt.Errorf("room service returned no roomId")
	}
	return room.RoomID, nil
}

// ValidateRoom checks that a room exists and is joinable.
func (rc *RoomClient) ValidateRoom(ctx context.Context, roomID string) (*Room, error) {
	var room Room
	if err := rc.doJSON(ctx, http.MethodGet, "/rooms/validate/"+roomID, nil, nil, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// FetchRoom retrieves a single room.
func (rc *RoomClient) FetchRoom(ctx context.Context, roomID string) (*Room, error) {
	var room Room
	if err := rc.doJSON(ctx, http.MethodGet, "/rooms/"+roomID, nil, nil, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// FetchRooms lists rooms with pagination.
func (rc *RoomClient) FetchRooms(ctx context.Context, page, perPage int) (*RoomsPage, error) {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		query.Set("perPage", strconv.Itoa(perPage))
	}

	var out RoomsPage
	if err := rc.doJSON(ctx, http.MethodGet, "/rooms", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeactivateRoom disables a room so no further participants can join.
func (rc *RoomClient) DeactivateRoom(ctx context.Context, roomID string) error {
	payload := map[string]string{"roomId": roomID}
	return rc.doJSON(ctx, http.MethodPost, "/rooms/deactivate", nil, payload, nil)
}
