package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookClient_CreateWebhook_IDNormalization(t *testing.T) {
	// Different registry endpoints disagree on the id field name.
	tests := []struct {
		name     string
		response string
		wantID   string
	}{
		{"plain id", `{"id":"wh-1","url":"https://cb","events":["call-started"]}`, "wh-1"},
		{"mongo underscore id", `{"_id":"wh-2","url":"https://cb","events":["call-started"]}`, "wh-2"},
		{"webhookId field", `{"webhookId":"wh-3","url":"https://cb","events":["call-started"]}`, "wh-3"},
		{"id wins over the alternates", `{"id":"wh-4","_id":"other","webhookId":"other","url":"https://cb"}`, "wh-4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.response))
			}))
			defer server.Close()

			client := NewWebhookClient(NewClient(server.URL, "token"))
			hook, err := client.CreateWebhook(context.Background(), "https://cb", []string{"call-started"})
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, hook.ID)
		})
	}
}

func TestWebhookClient_CreateWebhook_NoID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"url":"https://cb","events":["call-started"]}`))
	}))
	defer server.Close()

	client := NewWebhookClient(NewClient(server.URL, "token"))
	_, err := client.CreateWebhook(context.Background(), "https://cb", []string{"call-started"})
	assert.Error(t, err)
}

func TestWebhookClient_CreateWebhook_Payload(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/sip/webhooks", r.URL.Path)
		data, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(data, &gotBody))
		w.Write([]byte(`{"id":"wh-1"}`))
	}))
	defer server.Close()

	client := NewWebhookClient(NewClient(server.URL, "token"))
	_, err := client.CreateWebhook(context.Background(), "https://dialer.example.com/webhooks/call-events", []string{"call-started", "call-ended"})
	require.NoError(t, err)

	assert.Equal(t, "https://dialer.example.com/webhooks/call-events", gotBody["url"])
	assert.Equal(t, []interface{}{"call-started", "call-ended"}, gotBody["events"])
}

func TestWebhookClient_FetchWebhooks_MixedIDFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pageInfo":{"total":2},"data":[{"id":"wh-1","url":"https://a"},{"_id":"wh-2","url":"https://b"}]}`))
	}))
	defer server.Close()

	client := NewWebhookClient(NewClient(server.URL, "token"))
	page, err := client.FetchWebhooks(context.Background(), "", 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "wh-1", page.Data[0].ID)
	assert.Equal(t, "wh-2", page.Data[1].ID)
}

func TestWebhookClient_DeleteWebhook(t *testing.T) {
	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewWebhookClient(NewClient(server.URL, "token"))
	require.NoError(t, client.DeleteWebhook(context.Background(), "wh-1"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/sip/webhooks/wh-1", gotPath)
}

func TestWebhookClient_DeleteWebhook_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, "webhook not found")
	}))
	defer server.Close()

	client := NewWebhookClient(NewClient(server.URL, "token"))
	err := client.DeleteWebhook(context.Background(), "wh-1")
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}
