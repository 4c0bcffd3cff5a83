package http

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// SIPClient wraps the SIP call and outbound-gateway endpoints.
type SIPClient struct {
	*Client
}

func NewSIPClient(c *Client) *SIPClient {
	return &SIPClient{Client: c}
}

// TriggerCallParams describes one outbound call placement.
type TriggerCallParams struct {
	GatewayID         string
	DestinationNumber string
	DestinationRoomID string
	ParticipantName   string
	WaitUntilAnswered bool
	RingingTimeoutS   int
	MaxDurationS      int
}

// TimeLog is a status transition recorded by the platform for a call.
type TimeLog struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// CallData is the call resource as the API returns it.
type CallData struct {
	CallID      string            `json:"callId"`
	Type        string            `json:"type,omitempty"`
	GatewayID   string            `json:"gatewayId"`
	GatewayName string            `json:"gatewayName,omitempty"`
	RoomID      string            `json:"roomId"`
	To          string            `json:"to,omitempty"`
	From        string            `json:"from,omitempty"`
	SIPCallTo   string            `json:"sipCallTo,omitempty"`
	Status      string            `json:"status"`
	TimeLog     []TimeLog         `json:"timelog,omitempty"`
	Start       string            `json:"start,omitempty"`
	End         string            `json:"end,omitempty"`
	SessionID   string            `json:"sessionId,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// CallsPage is the paginated call listing.
type CallsPage struct {
	PageInfo PageInfo   `json:"pageInfo"`
	Data     []CallData `json:"data"`
}

// CallListFilter narrows a call listing.
type CallListFilter struct {
	RoomID    string
	GatewayID string
	CallID    string
	Search    string
	Page      int
	PerPage   int
}

type triggerCallResponse struct {
	Message string   `json:"message"`
	Data    CallData `json:"data"`
}

// TriggerCall places an outbound SIP call into the destination room.
// The platform expects booleans and durations as strings in this payload.
func (sc *SIPClient) TriggerCall(ctx context.Context, params TriggerCallParams) (*CallData, error) {
	payload := map[string]interface{}{
		"gatewayId":         params.GatewayID,
		"sipCallTo":         params.DestinationNumber,
		"destinationRoomId": params.DestinationRoomID,
		"waitUntilAnswered": strconv.FormatBool(params.WaitUntilAnswered),
	}
	if params.ParticipantName != "" {
		payload["participant"] = map[string]string{"name": params.ParticipantName}
	}
	if params.RingingTimeoutS > 0 {
		payload["ringingTimeout"] = strconv.Itoa(params.RingingTimeoutS)
	}
	if params.MaxDurationS > 0 {
		payload["maxCallDuration"] = strconv.Itoa(params.MaxDurationS)
	}

	var resp triggerCallResponse
	if err := sc.doJSON(ctx, http.MethodPost, "/sip/call", nil, payload, &resp); err != nil {
		return nil, err
	}
	if resp.Data.CallID == "" {
		return nil, fmt.Errorf("call trigger returned no callId")
	}
	return &resp.Data, nil
}

// FetchCalls lists calls matching the filter.
func (sc *SIPClient) FetchCalls(ctx context.Context, filter CallListFilter) (*CallsPage, error) {
	query := url.Values{}
	if filter.RoomID != "" {
		query.Set("roomId", filter.RoomID)
	}
	if filter.GatewayID != "" {
		query.Set("gatewayId", filter.GatewayID)
	}
	if filter.CallID != "" {
		query.Set("id", filter.CallID)
	}
	if filter.Search != "" {
		query.Set("search", filter.Search)
	}
	if filter.Page > 0 {
		query.Set("page", strconv.Itoa(filter.Page))
	}
	if filter.PerPage > 0 {
		query.Set("perPage", strconv.Itoa(filter.PerPage))
	}

	var out CallsPage
	if err := sc.doJSON(ctx, http.MethodGet, "/sip/call", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GatewayAuth carries SIP credentials for a gateway.
type GatewayAuth struct {
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
}

// OutboundGateway is an outbound SIP gateway resource.
type OutboundGateway struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Numbers         []string          `json:"numbers"`
	Address         string            `json:"address"`
	Transport       string            `json:"transport"`
	Auth            GatewayAuth       `json:"auth"`
	GeoRegion       string            `json:"geoRegion,omitempty"`
	MediaEncryption string            `json:"mediaEncryption,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	Tags            []string          `json:"tags,omitempty"`
}

// GatewaysPage is the paginated gateway listing.
type GatewaysPage struct {
	PageInfo PageInfo          `json:"pageInfo"`
	Data     []OutboundGateway `json:"data"`
}

// FetchGateways lists outbound SIP gateways.
func (sc *SIPClient) FetchGateways(ctx context.Context, search string, page, perPage int) (*GatewaysPage, error) {
	query := url.Values{}
	if search != "" {
		query.Set("search", search)
	}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		query.Set("perPage", strconv.Itoa(perPage))
	}

	var out GatewaysPage
	if err := sc.doJSON(ctx, http.MethodGet, "/sip/outbound-gateways", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchGateway retrieves a single outbound gateway.
func (sc *SIPClient) FetchGateway(ctx context.Context, gatewayID string) (*OutboundGateway, error) {
	var gw OutboundGateway
	if err := sc.doJSON(ctx, http.MethodGet, "/sip/outbound-gateways/"+gatewayID, nil, nil, &gw); err != nil {
		return nil, err
	}
	return &gw, nil
}
