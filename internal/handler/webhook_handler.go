package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/ClareAI/astra-dialer-service/internal/domain"
	"github.com/ClareAI/astra-dialer-service/internal/services/call"
	"github.com/ClareAI/astra-dialer-service/pkg/logger"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// CallEventsWebhookHandler receives call lifecycle events from the
// call-control platform.
type CallEventsWebhookHandler struct {
	dialer *call.DialerService
}

func NewCallEventsWebhookHandler(dialer *call.DialerService) *CallEventsWebhookHandler {
	return &CallEventsWebhookHandler{dialer: dialer}
}

// SetupWebhookRoutes registers the inbound webhook endpoints
func (h *CallEventsWebhookHandler) SetupWebhookRoutes(router *mux.Router) {
	router.HandleFunc("/webhooks/call-events", h.HandleCallEvent).Methods("POST")
}

// HandleCallEvent acknowledges the delivery immediately and dispatches the
// event off the request goroutine, so a slow greeting or cleanup never makes
// the platform retry the webhook.
func (h *CallEventsWebhookHandler) HandleCallEvent(w http.ResponseWriter, r *http.Request) {
	bodyBytes, ok := h.readRequestBody(w, r)
	if !ok {
		return
	}

	var payload domain.CallEventPayload
	if !h.parseJSON(w, bodyBytes, &payload) {
		return
	}

	if payload.Event == "" || payload.RoomID == "" {
		logger.Base().Warn("Call event missing required fields",
			zap.String("event", payload.Event),
			zap.String("room_id", payload.RoomID))
		http.Error(w, "event and roomId are required", http.StatusBadRequest)
		return
	}

	logger.Base().Info("Call event received",
		zap.String("event", payload.Event),
		zap.String("room_id", payload.RoomID),
		zap.String("call_id", payload.CallID))

	go h.dialer.HandleCallEvent(payload)

	h.sendOKResponse(w)
}

// readRequestBody reads and validates the request body
func (h *CallEventsWebhookHandler) readRequestBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Base().Error("Failed to read webhook body", zap.Error(err))
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return nil, false
	}
	return bodyBytes, true
}

// parseJSON unmarshals the body into target
func (h *CallEventsWebhookHandler) parseJSON(w http.ResponseWriter, bodyBytes []byte, target interface{}) bool {
	if err := json.Unmarshal(bodyBytes, target); err != nil {
		logger.Base().Error("Failed to parse webhook body", zap.Error(err), zap.ByteString("body", bodyBytes))
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

// sendOKResponse sends a standard OK response
func (h *CallEventsWebhookHandler) sendOKResponse(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
