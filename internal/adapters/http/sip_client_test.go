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

func TestSIPClient_TriggerCall(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(data, &gotBody))
		w.Write([]byte(`{"message":"Call initiated","data":{"callId":"call-9","gatewayId":"gw-1","roomId":"room-1","status":"ringing"}}`))
	}))
	defer server.Close()

	client := NewSIPClient(NewClient(server.URL, "token"))
	call, err := client.TriggerCall(context.Background(), TriggerCallParams{
		GatewayID:         "gw-1",
		DestinationNumber: "+6591234567",
		DestinationRoomID: "room-1",
		ParticipantName:   "Concierge",
		WaitUntilAnswered: true,
		RingingTimeoutS:   30,
		MaxDurationS:      300,
	})
	require.NoError(t, err)
	assert.Equal(t, "call-9", call.CallID)
	assert.Equal(t, "/sip/call", gotPath)

	// Booleans and durations go over the wire as strings.
	assert.Equal(t, "gw-1", gotBody["gatewayId"])
	assert.Equal(t, "+6591234567", gotBody["sipCallTo"])
	assert.Equal(t, "room-1", gotBody["destinationRoomId"])
	assert.Equal(t, "true", gotBody["waitUntilAnswered"])
	assert.Equal(t, "30", gotBody["ringingTimeout"])
	assert.Equal(t, "300", gotBody["maxCallDuration"])
	assert.Equal(t, map[string]interface{}{"name": "Concierge"}, gotBody["participant"])
}

func TestSIPClient_TriggerCall_OmitsOptionalFields(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(data, &gotBody))
		w.Write([]byte(`{"message":"ok","data":{"callId":"call-9"}}`))
	}))
	defer server.Close()

	client := NewSIPClient(NewClient(server.URL, "token"))
	_, err := client.TriggerCall(context.Background(), TriggerCallParams{
		GatewayID:         "gw-1",
		DestinationNumber: "+6591234567",
		DestinationRoomID: "room-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "false", gotBody["waitUntilAnswered"])
	assert.NotContains(t, gotBody, "participant")
	assert.NotContains(t, gotBody, "ringingTimeout")
	assert.NotContains(t, gotBody, "maxCallDuration")
}

func TestSIPClient_TriggerCall_MissingCallID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"ok","data":{}}`))
	}))
	defer server.Close()

	client := NewSIPClient(NewClient(server.URL, "token"))
	_, err := client.TriggerCall(context.Background(), TriggerCallParams{
		GatewayID:         "gw-1",
		DestinationNumber: "+6591234567",
		DestinationRoomID: "room-1",
	})
	assert.Error(t, err)
}

func TestSIPClient_FetchCalls(t *testing.T) {
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(`{"pageInfo":{"currentPage":1,"perPage":20,"total":1},"data":[{"callId":"call-1","status":"ended"}]}`))
	}))
	defer server.Close()

	client := NewSIPClient(NewClient(server.URL, "token"))
	page, err := client.FetchCalls(context.Background(), CallListFilter{
		RoomID:  "room-1",
		Page:    1,
		PerPage: 20,
	})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "call-1", page.Data[0].CallID)
	assert.Equal(t, []string{"room-1"}, gotQuery["roomId"])
	assert.Equal(t, []string{"1"}, gotQuery["page"])
	assert.Equal(t, []string{"20"}, gotQuery["perPage"])
}

func TestSIPClient_FetchGateways(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sip/outbound-gateways", r.URL.Path)
		w.Write([]byte(`{"pageInfo":{"total":1},"data":[{"id":"gw-1","name":"SG Trunk","numbers":["+6560000000"],"address":"sip.example.com","transport":"udp"}]}`))
	}))
	defer server.Close()

	client := NewSIPClient(NewClient(server.URL, "token"))
	page, err := client.FetchGateways(context.Background(), "", 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "gw-1", page.Data[0].ID)
	assert.Equal(t, "SG Trunk", page.Data[0].Name)
}
