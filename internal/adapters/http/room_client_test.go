package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomClient_CreateRoom(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rooms", r.URL.Path)
		w.Write([]byte(`{"roomId":"abcd-efgh-ijkl"}`))
	}))
	defer server.Close()

	client := NewRoomClient(NewClient(server.URL, "token"))
	roomID, err := client.CreateRoom(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abcd-efgh-ijkl", roomID)
}

func TestRoomClient_CreateRoom_NoRoomID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewRoomClient(NewClient(server.URL, "token"))
	_, err := client.CreateRoom(context.Background())
	assert.Error(t, err)
}

func TestRoomClient_ValidateRoom(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rooms/validate/abcd-efgh-ijkl", r.URL.Path)
		w.Write([]byte(`{"roomId":"abcd-efgh-ijkl","disabled":false}`))
	}))
	defer server.Close()

	client := NewRoomClient(NewClient(server.URL, "token"))
	room, err := client.ValidateRoom(context.Background(), "abcd-efgh-ijkl")
	require.NoError(t, err)
	assert.Equal(t, "abcd-efgh-ijkl", room.RoomID)
	assert.False(t, room.Disabled)
}

func TestRoomClient_DeactivateRoom(t *testing.T) {
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rooms/deactivate", r.URL.Path)
		data, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(data, &gotBody))
		w.Write([]byte(`{"roomId":"abcd-efgh-ijkl","disabled":true}`))
	}))
	defer server.Close()

	client := NewRoomClient(NewClient(server.URL, "token"))
	require.NoError(t, client.DeactivateRoom(context.Background(), "abcd-efgh-ijkl"))
	assert.Equal(t, map[string]string{"roomId": "abcd-efgh-ijkl"}, gotBody)
}

func TestRoomClient_FetchRooms(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "10", r.URL.Query().Get("perPage"))
		w.Write([]byte(`{"pageInfo":{"currentPage":2,"perPage":10,"total":11},"data":[{"roomId":"room-11"}]}`))
	}))
	defer server.Close()

	client := NewRoomClient(NewClient(server.URL, "token"))
	page, err := client.FetchRooms(context.Background(), 2, 10)
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "room-11", page.Data[0].RoomID)
	assert.Equal(t, 11, page.PageInfo.Total)
}
