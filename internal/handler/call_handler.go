package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	adapterhttp "github.com/ClareAI/astra-dialer-service/internal/adapters/http"
	"github.com/ClareAI/astra-dialer-service/internal/repository"
	"github.com/ClareAI/astra-dialer-service/internal/services/call"
	"github.com/ClareAI/astra-dialer-service/pkg/logger"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// CallHandler exposes the operator API for placing and managing outbound
// calls.
type CallHandler struct {
	dialer      *call.DialerService
	sipClient   *adapterhttp.SIPClient
	repoManager repository.RepositoryManager
}

func NewCallHandler(dialer *call.DialerService, sipClient *adapterhttp.SIPClient, repoManager repository.RepositoryManager) *CallHandler {
	return &CallHandler{
		dialer:      dialer,
		sipClient:   sipClient,
		repoManager: repoManager,
	}
}

// SetupCallRoutes registers the call management endpoints
func (h *CallHandler) SetupCallRoutes(router *mux.Router) {
	router.HandleFunc("/calls/dial", h.HandleDial).Methods("POST")
	router.HandleFunc("/calls", h.HandleListSessions).Methods("GET")
	router.HandleFunc("/calls/records", h.HandleListRecords).Methods("GET")
	router.HandleFunc("/calls/platform", h.HandleListPlatformCalls).Methods("GET")
	router.HandleFunc("/calls/{roomId}", h.HandleGetSession).Methods("GET")
	router.HandleFunc("/calls/{roomId}/hangup", h.HandleHangup).Methods("POST")
	router.HandleFunc("/calls/{roomId}/callback", h.HandleScheduleCallback).Methods("POST")
	router.HandleFunc("/gateways", h.HandleListGateways).Methods("GET")
}

// HandleDial places an outbound call
func (h *CallHandler) HandleDial(w http.ResponseWriter, r *http.Request) {
	var params call.DialParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	view, err := h.dialer.Dial(r.Context(), params)
	if err != nil {
		var stageErr *call.StageError
		if errors.As(err, &stageErr) {
			logger.Base().Error("Dial failed",
				zap.String("stage", stageErr.Stage),
				zap.String("room_id", stageErr.RoomID),
				zap.Error(stageErr.Err))
			writeJSON(w, http.StatusBadGateway, map[string]interface{}{
				"error": stageErr.Error(),
				"stage": stageErr.Stage,
			})
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, view)
}

// HandleListSessions returns all live sessions
func (h *CallHandler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.dialer.ActiveSessions()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

// HandleGetSession returns one live session
func (h *CallHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]
	view, ok := h.dialer.SessionView(roomID)
	if !ok {
		writeError(w, http.StatusNotFound, "no active session for room "+roomID)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleHangup ends a live session
func (h *CallHandler) HandleHangup(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]
	if err := h.dialer.Hangup(r.Context(), roomID); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "hangup requested", "room_id": roomID})
}

type scheduleCallbackRequest struct {
	ContactName string    `json:"contact_name"`
	PreferredAt time.Time `json:"preferred_at"`
}

// HandleScheduleCallback records a callback request for a session
func (h *CallHandler) HandleScheduleCallback(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]

	var req scheduleCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.dialer.ScheduleCallback(r.Context(), roomID, req.ContactName, req.PreferredAt); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "callback scheduled", "room_id": roomID})
}

// HandleListRecords returns recent persisted call records
func (h *CallHandler) HandleListRecords(w http.ResponseWriter, r *http.Request) {
	if h.repoManager == nil {
		writeError(w, http.StatusNotImplemented, "call record persistence is not configured")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := h.repoManager.CallRecord().ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(records),
		"records": records,
	})
}

// HandleListPlatformCalls proxies the platform call listing, useful for
// reconciling local records against the platform's view.
func (h *CallHandler) HandleListPlatformCalls(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, _ := strconv.Atoi(query.Get("page"))
	perPage, _ := strconv.Atoi(query.Get("perPage"))

	calls, err := h.sipClient.FetchCalls(r.Context(), adapterhttp.CallListFilter{
		RoomID:    query.Get("roomId"),
		GatewayID: query.Get("gatewayId"),
		Search:    query.Get("search"),
		Page:      page,
		PerPage:   perPage,
	})
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, calls)
}

// HandleListGateways lists the configured outbound SIP gateways
func (h *CallHandler) HandleListGateways(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, _ := strconv.Atoi(query.Get("page"))
	perPage, _ := strconv.Atoi(query.Get("perPage"))

	gateways, err := h.sipClient.FetchGateways(r.Context(), query.Get("search"), page, perPage)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, gateways)
}

// writeJSON writes a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Base().Error("Failed to encode response", zap.Error(err))
	}
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
