package call

import (
	"context"
	"fmt"
	"sync"
	"time"

	adapterhttp "github.com/ClareAI/astra-dialer-service/internal/adapters/http"
	"github.com/ClareAI/astra-dialer-service/internal/config"
	"github.com/ClareAI/astra-dialer-service/internal/core/event"
	"github.com/ClareAI/astra-dialer-service/internal/core/session"
	"github.com/ClareAI/astra-dialer-service/internal/domain"
	"github.com/ClareAI/astra-dialer-service/internal/services/agent"
	"github.com/ClareAI/astra-dialer-service/pkg/logger"
	"github.com/ClareAI/astra-dialer-service/pkg/redis"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const transcriptTTL = 24 * time.Hour

// DialerService orchestrates the full lifecycle of outbound calls: room
// provisioning, webhook registration, agent startup, SIP triggering with
// retries, event handling and teardown.
type DialerService struct {
	cfg      *config.DialerConfig
	rooms    RoomAPI
	hooks    *WebhookLifecycle
	calls    CallAPI
	registry *SessionRegistry
	retry    RetryPolicy
	limiter  *rate.Limiter
	agents   agent.Factory
	bus      event.EventBus

	// Optional collaborators; nil disables the feature.
	records     RecordStore
	monitor     Monitor
	transcripts Transcripts

	shutdown  chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Deps bundles the collaborators for NewDialerService.
type Deps struct {
	Rooms       RoomAPI
	Hooks       *WebhookLifecycle
	Calls       CallAPI
	Agents      agent.Factory
	Bus         event.EventBus
	Records     RecordStore
	Monitor     Monitor
	Transcripts Transcripts
}

func NewDialerService(cfg *config.DialerConfig, deps Deps) *DialerService {
	retry := DefaultRetryPolicy()
	if cfg.MaxDialAttempts > 0 {
		retry.MaxAttempts = cfg.MaxDialAttempts
	}
	if cfg.BackoffUnit > 0 {
		retry.BackoffUnit = cfg.BackoffUnit
	}

	var limiter *rate.Limiter
	if cfg.DialRateLimit > 0 {
		burst := cfg.DialRateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.DialRateLimit), burst)
	}

	return &DialerService{
		cfg:         cfg,
		rooms:       deps.Rooms,
		hooks:       deps.Hooks,
		calls:       deps.Calls,
		registry:    NewSessionRegistry(),
		retry:       retry,
		limiter:     limiter,
		agents:      deps.Agents,
		bus:         deps.Bus,
		records:     deps.Records,
		monitor:     deps.Monitor,
		transcripts: deps.Transcripts,
		shutdown:    make(chan struct{}),
	}
}

// Registry exposes the session registry for handlers and tests.
func (d *DialerService) Registry() *SessionRegistry {
	return d.registry
}

// Dial places one outbound call end to end and returns once the SIP call is
// triggered. The session then lives on its own goroutine until a terminal
// event arrives.
func (d *DialerService) Dial(ctx context.Context, params DialParams) (domain.CallSessionView, error) {
	if params.Destination == "" {
		return domain.CallSessionView{}, fmt.Errorf("destination number is required")
	}

	gatewayID := params.GatewayID
	if gatewayID == "" {
		gatewayID = d.cfg.GatewayID
	}
	if gatewayID == "" {
		return domain.CallSessionView{}, fmt.Errorf("no outbound gateway configured")
	}
	greeting := params.Greeting
	if greeting == "" {
		greeting = d.cfg.GreetingText
	}
	agentName := params.AgentName
	if agentName == "" {
		agentName = "Voice Agent"
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return domain.CallSessionView{}, fmt.Errorf("dial rate limit wait: %w", err)
		}
	}

	roomID, err := d.rooms.CreateRoom(ctx)
	if err != nil {
		return domain.CallSessionView{}, &StageError{Stage: StageRoomCreate, Err: err}
	}
	logger.Base().Info("Room created", zap.String("room_id", roomID))

	webhookID := d.hooks.Register(ctx, roomID)
	if webhookID == "" {
		d.publish(event.SessionDegraded, &event.SessionEventData{RoomID: roomID})
	}

	sess := domain.NewCallSession(roomID, webhookID, gatewayID, params.Destination, agentName)
	sess.Agent = d.agents(roomID, agentName)
	sess.Greeting = greeting
	d.registry.Add(sess)
	d.publish(event.SessionCreated, &event.SessionEventData{
		RoomID:      roomID,
		GatewayID:   gatewayID,
		Destination: params.Destination,
		AgentName:   agentName,
		Status:      domain.CallStatusRinging,
	})

	ready := agent.NewReadySignal(d.cfg.ReadyMarkerDir, roomID)

	if err := sess.Agent.Start(roomID); err != nil {
		d.publish(event.CallFailed, &event.SessionEventData{RoomID: roomID, Stage: StageAgentStart})
		d.cleanupSession(sess, ready, domain.CallStatusFailed)
		return domain.CallSessionView{}, &StageError{Stage: StageAgentStart, RoomID: roomID, Err: err}
	}
	d.publish(event.AgentStarted, &event.SessionEventData{RoomID: roomID, AgentName: agentName})

	if d.cfg.ReadyTimeout > 0 {
		if err := ready.Wait(ctx, d.cfg.ReadyTimeout); err != nil {
			// The agent may still join late; proceed and let the call ring.
			logger.Base().Warn("Agent readiness not confirmed before dialing",
				zap.String("room_id", roomID), zap.Error(err))
		}
	}

	triggerParams := adapterhttp.TriggerCallParams{
		GatewayID:         gatewayID,
		DestinationNumber: params.Destination,
		DestinationRoomID: roomID,
		ParticipantName:   agentName,
		WaitUntilAnswered: d.cfg.WaitUntilAnswered,
		RingingTimeoutS:   d.cfg.RingingTimeoutS,
		MaxDurationS:      d.cfg.MaxCallDurationS,
	}

	var callData *adapterhttp.CallData
	err = d.retry.Do(ctx, "trigger_call", func() error {
		var triggerErr error
		callData, triggerErr = d.calls.TriggerCall(ctx, triggerParams)
		return triggerErr
	})
	if err != nil {
		d.publish(event.CallFailed, &event.SessionEventData{RoomID: roomID, Stage: StageCallTrigger})
		d.cleanupSession(sess, ready, domain.CallStatusFailed)
		return domain.CallSessionView{}, &StageError{Stage: StageCallTrigger, RoomID: roomID, Err: err}
	}

	sess.SetCallID(callData.CallID)
	if d.monitor != nil {
		if merr := d.monitor.Register(ctx, session.SessionInfo{
			RoomID:    roomID,
			CallID:    callData.CallID,
			GatewayID: gatewayID,
			AgentName: agentName,
		}); merr != nil {
			logger.Base().Warn("Session monitor registration failed", zap.String("room_id", roomID), zap.Error(merr))
		}
	}

	d.publish(event.CallTriggered, &event.SessionEventData{
		RoomID:      roomID,
		CallID:      callData.CallID,
		GatewayID:   gatewayID,
		Destination: params.Destination,
		Status:      domain.CallStatusRinging,
	})
	logger.Base().Info("Outbound call triggered",
		zap.String("room_id", roomID),
		zap.String("call_id", callData.CallID),
		zap.String("destination", params.Destination))

	if webhookID == "" {
		d.startDegradedGreeting(sess)
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.waitForEnd(sess, ready)
	}()

	return sess.Snapshot(), nil
}

// waitForEnd blocks until the session reaches a terminal event or the
// service shuts down, whichever comes first, then runs cleanup.
func (d *DialerService) waitForEnd(sess *domain.CallSession, ready *agent.ReadySignal) {
	select {
	case <-sess.Ended:
	case <-d.shutdown:
		sess.MarkEnded(domain.CallStatusEnded)
	}

	status := sess.Snapshot().Status
	d.cleanupSession(sess, ready, status)
}

// startDegradedGreeting arms the optimistic greeting timer used when no
// webhook could be registered. MarkAnswered keeps the dispatch idempotent if
// a late webhook event arrives anyway.
func (d *DialerService) startDegradedGreeting(sess *domain.CallSession) {
	delay := d.cfg.DegradedGreetingDelay
	if delay <= 0 {
		delay = 10 * time.Second
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
			logger.Base().Info("Degraded mode: assuming call answered after fixed delay",
				zap.String("room_id", sess.RoomID), zap.Duration("delay", delay))
			d.handleAnswered(sess, "")
		case <-sess.Ended:
		case <-d.shutdown:
		}
	}()
}

// HandleCallEvent reacts to an inbound platform event. Unknown rooms are
// reported so the webhook endpoint can distinguish stale deliveries.
func (d *DialerService) HandleCallEvent(payload domain.CallEventPayload) bool {
	sess, ok := d.registry.Get(payload.RoomID)
	if !ok {
		logger.Base().Warn("Call event for unknown session",
			zap.String("event", payload.Event),
			zap.String("room_id", payload.RoomID))
		return false
	}

	switch payload.Event {
	case domain.EventCallStarted, domain.EventCallRinging:
		if payload.CallID != "" {
			sess.SetCallID(payload.CallID)
		}
		d.publish(event.CallStarted, &event.SessionEventData{RoomID: sess.RoomID, CallID: payload.CallID})
	case domain.EventCallAnswered:
		d.handleAnswered(sess, payload.CallID)
	case domain.EventCallEnded:
		sess.MarkEnded(domain.CallStatusEnded)
		d.publish(event.CallEnded, &event.SessionEventData{RoomID: sess.RoomID, CallID: payload.CallID})
	case domain.EventCallMissed:
		sess.MarkEnded(domain.CallStatusMissed)
		d.publish(event.CallMissed, &event.SessionEventData{RoomID: sess.RoomID, CallID: payload.CallID})
	default:
		logger.Base().Warn("Unhandled call event",
			zap.String("event", payload.Event),
			zap.String("room_id", payload.RoomID))
	}
	return true
}

// handleAnswered transitions the session to active and dispatches the
// greeting exactly once, whether it was the webhook or the degraded timer
// that got here first.
func (d *DialerService) handleAnswered(sess *domain.CallSession, callID string) {
	if !sess.MarkAnswered(callID) {
		return
	}

	view := sess.Snapshot()
	d.publish(event.CallAnswered, &event.SessionEventData{
		RoomID: view.RoomID,
		CallID: view.CallID,
		Status: view.Status,
	})

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.dispatchGreeting(sess)
	}()
}

func (d *DialerService) dispatchGreeting(sess *domain.CallSession) {
	if sess.Greeting == "" {
		return
	}

	if err := sess.Agent.Say(sess.Greeting); err != nil {
		logger.Base().Error("Greeting dispatch failed",
			zap.String("room_id", sess.RoomID), zap.Error(err))
		return
	}

	view := sess.Snapshot()
	d.publish(event.AgentGreeting, &event.SessionEventData{RoomID: view.RoomID, CallID: view.CallID})

	if d.transcripts != nil && view.CallID != "" {
		line := redis.TranscriptLine{Role: "agent", Content: sess.Greeting, At: time.Now().UnixMilli()}
		if err := d.transcripts.AppendTranscript(context.Background(), view.CallID, []redis.TranscriptLine{line}, transcriptTTL); err != nil {
			logger.Base().Warn("Transcript append failed", zap.String("call_id", view.CallID), zap.Error(err))
		}
	}
}

// cleanupSession tears a session down. Every step is individually guarded:
// one failing step never blocks the rest, and nothing here returns an error.
func (d *DialerService) cleanupSession(sess *domain.CallSession, ready *agent.ReadySignal, finalStatus string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	view := sess.Snapshot()

	webhookID, existed := d.registry.Remove(sess.RoomID)
	if !existed {
		// Another path already cleaned this session up.
		return
	}

	d.hooks.Unregister(ctx, webhookID)

	if sess.Agent != nil {
		if err := sess.Agent.Close(); err != nil {
			logger.Base().Warn("Agent close failed", zap.String("room_id", sess.RoomID), zap.Error(err))
		}
		d.publish(event.AgentStopped, &event.SessionEventData{RoomID: sess.RoomID, AgentName: view.AgentName})
	}

	if err := d.rooms.DeactivateRoom(ctx, sess.RoomID); err != nil {
		logger.Base().Warn("Room deactivation failed", zap.String("room_id", sess.RoomID), zap.Error(err))
	}

	if ready != nil {
		ready.Clear()
	}

	if d.monitor != nil {
		if err := d.monitor.Unregister(ctx, sess.RoomID); err != nil {
			logger.Base().Warn("Session monitor unregister failed", zap.String("room_id", sess.RoomID), zap.Error(err))
		}
	}

	if d.transcripts != nil && view.CallID != "" {
		if err := d.transcripts.ClearTranscript(ctx, view.CallID); err != nil {
			logger.Base().Warn("Transcript clear failed", zap.String("call_id", view.CallID), zap.Error(err))
		}
	}

	d.saveDisposition(ctx, view, finalStatus)

	d.publish(event.SessionCleaned, &event.SessionEventData{
		RoomID: view.RoomID,
		CallID: view.CallID,
		Status: finalStatus,
	})
	logger.Base().Info("Session cleaned up",
		zap.String("room_id", view.RoomID),
		zap.String("final_status", finalStatus))
}

func (d *DialerService) saveDisposition(ctx context.Context, view domain.CallSessionView, finalStatus string) {
	if d.records == nil {
		return
	}

	disposition := domain.DispositionCompleted
	switch finalStatus {
	case domain.CallStatusFailed:
		disposition = domain.DispositionFailed
	case domain.CallStatusMissed, domain.CallStatusCanceled:
		disposition = domain.DispositionMissed
	case domain.CallStatusEnded:
		if view.AnsweredAt.IsZero() {
			disposition = domain.DispositionMissed
		}
	}

	record := &domain.CallRecord{
		ID:          uuid.NewString(),
		RoomID:      view.RoomID,
		CallID:      view.CallID,
		GatewayID:   view.GatewayID,
		Destination: view.Destination,
		AgentName:   view.AgentName,
		Disposition: disposition,
		Detail:      domain.JSONB{"final_status": finalStatus},
		StartedAt:   view.StartedAt,
		EndedAt:     time.Now(),
	}
	if err := d.records.SaveCallRecord(ctx, record); err != nil {
		logger.Base().Warn("Call record save failed", zap.String("room_id", view.RoomID), zap.Error(err))
	}
}

// Hangup ends a session. Sessions owned by another pod are reached through
// the hangup broadcast.
func (d *DialerService) Hangup(ctx context.Context, roomID string) error {
	if d.HangupLocal(roomID) {
		return nil
	}
	if d.monitor != nil {
		return d.monitor.NotifyHangup(ctx, roomID)
	}
	return fmt.Errorf("no active session for room %s", roomID)
}

// HangupLocal ends a locally owned session, reporting whether one existed.
func (d *DialerService) HangupLocal(roomID string) bool {
	sess, ok := d.registry.Get(roomID)
	if !ok {
		return false
	}

	view := sess.Snapshot()
	if view.Status == domain.CallStatusActive {
		sess.MarkEnded(domain.CallStatusEnded)
	} else {
		sess.MarkEnded(domain.CallStatusCanceled)
	}
	return true
}

// ScheduleCallback stores a callback request captured during a call.
func (d *DialerService) ScheduleCallback(ctx context.Context, roomID, contactName string, preferredAt time.Time) error {
	if d.records == nil {
		return fmt.Errorf("callback scheduling requires record persistence")
	}

	destination := ""
	if sess, ok := d.registry.Get(roomID); ok {
		destination = sess.Snapshot().Destination
	}

	request := &domain.CallbackRequest{
		ID:          uuid.NewString(),
		RoomID:      roomID,
		Destination: destination,
		ContactName: contactName,
		RequestedAt: time.Now(),
		PreferredAt: preferredAt,
	}
	return d.records.SaveCallbackRequest(ctx, request)
}

// ActiveSessions returns snapshots of every live session.
func (d *DialerService) ActiveSessions() []domain.CallSessionView {
	return d.registry.All()
}

// SessionView returns the snapshot for one room.
func (d *DialerService) SessionView(roomID string) (domain.CallSessionView, bool) {
	sess, ok := d.registry.Get(roomID)
	if !ok {
		return domain.CallSessionView{}, false
	}
	return sess.Snapshot(), true
}

// SessionCount returns the number of live sessions.
func (d *DialerService) SessionCount() int {
	return d.registry.Count()
}

// Shutdown ends every live session and waits for their cleanups, bounded by
// ctx.
func (d *DialerService) Shutdown(ctx context.Context) error {
	d.closeOnce.Do(func() {
		close(d.shutdown)
	})

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *DialerService) publish(eventType event.EventType, data *event.SessionEventData) {
	if d.bus == nil {
		return
	}
	if err := d.bus.Publish(eventType, data); err != nil {
		logger.Base().Debug("Event publish skipped", zap.String("type", string(eventType)), zap.Error(err))
	}
}
