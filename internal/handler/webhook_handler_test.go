package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ClareAI/astra-dialer-service/internal/config"
	"github.com/ClareAI/astra-dialer-service/internal/services/call"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
)

func newWebhookTestRouter() *mux.Router {
	dialer := call.NewDialerService(&config.DialerConfig{}, call.Deps{})
	h := NewCallEventsWebhookHandler(dialer)
	router := mux.NewRouter()
	h.SetupWebhookRoutes(router)
	return router
}

func TestHandleCallEvent_AcknowledgesValidPayload(t *testing.T) {
	router := newWebhookTestRouter()

	body := `{"event":"call-answered","roomId":"room-1","callId":"call-1"}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/call-events", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// Events for unknown rooms still return 200: the delivery itself
	// succeeded, and the platform must not retry stale events.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandleCallEvent_RejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"missing event", `{"roomId":"room-1"}`},
		{"missing room id", `{"event":"call-answered"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newWebhookTestRouter()
			req := httptest.NewRequest(http.MethodPost, "/webhooks/call-events", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandleCallEvent_MethodNotAllowed(t *testing.T) {
	router := newWebhookTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/webhooks/call-events", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
