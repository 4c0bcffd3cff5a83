package handler

import (
	"context"
	"net/http"
	"time"

	adapterhttp "github.com/ClareAI/astra-dialer-service/internal/adapters/http"
	"github.com/ClareAI/astra-dialer-service/internal/config"
	"github.com/ClareAI/astra-dialer-service/internal/core/event"
	"github.com/ClareAI/astra-dialer-service/internal/core/session"
	"github.com/ClareAI/astra-dialer-service/internal/repository"
	"github.com/ClareAI/astra-dialer-service/internal/services/agent"
	"github.com/ClareAI/astra-dialer-service/internal/services/call"
	"github.com/ClareAI/astra-dialer-service/pkg/logger"
	"github.com/ClareAI/astra-dialer-service/pkg/redis"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ShutdownTimeout bounds graceful shutdown, covering both in-flight HTTP
// requests and per-session cleanup.
const ShutdownTimeout = 30 * time.Second

// HandlerManager wires all handlers and the services behind them.
type HandlerManager struct {
	config      *config.DialerConfig
	dialer      *call.DialerService
	bus         event.EventBus
	repoManager repository.RepositoryManager
	monitor     *session.Manager

	callHandler    *CallHandler
	webhookHandler *CallEventsWebhookHandler
	streamHandler  *EventStreamHandler
}

// NewHandlerManager creates and initializes all handlers and services.
func NewHandlerManager(cfg *config.DialerConfig) (*HandlerManager, error) {
	apiClient := adapterhttp.NewClient(cfg.APIBaseURL, cfg.AuthToken)
	roomClient := adapterhttp.NewRoomClient(apiClient)
	webhookClient := adapterhttp.NewWebhookClient(apiClient)
	sipClient := adapterhttp.NewSIPClient(apiClient)

	bus := event.NewEventBus()
	bus.Use(event.LoggingMiddleware)

	// Redis session monitoring is optional; the service still places calls
	// without it, but cross-pod hangup routing is unavailable.
	var monitor *session.Manager
	var transcripts call.Transcripts
	if cfg.RedisEnabled {
		redisSvc, err := redis.NewRedisService(&redis.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			logger.Base().Warn("failed to initialize redis service, running without session monitoring", zap.Error(err))
		} else {
			monitor = session.NewManager(redisSvc, cfg.InstanceID)
			transcripts = redisSvc
			logger.Base().Info("session monitor initialized", zap.String("pod_id", cfg.InstanceID))
		}
	}

	var repoManager repository.RepositoryManager
	if cfg.DatabaseEnabled {
		rm, err := repository.NewRepositoryManager()
		if err != nil {
			logger.Base().Warn("failed to connect to database, running without call records", zap.Error(err))
		} else {
			repoManager = rm
		}
	}

	deps := call.Deps{
		Rooms:       roomClient,
		Hooks:       call.NewWebhookLifecycle(webhookClient, cfg.CallbackBaseURL),
		Calls:       sipClient,
		Agents:      agent.NewProcessFactory(cfg.AgentCommand, cfg.AgentArgs),
		Bus:         bus,
		Transcripts: transcripts,
	}
	if monitor != nil {
		deps.Monitor = monitor
	}
	if repoManager != nil {
		deps.Records = repoManager
	}

	dialer := call.NewDialerService(cfg, deps)

	// Hangup requests published by other pods are delivered over Redis and
	// applied only when the session is hosted locally.
	if monitor != nil {
		if err := monitor.SubscribeToHangup(context.Background(), func(roomID string) {
			if dialer.HangupLocal(roomID) {
				logger.Base().Info("hangup applied from session monitor", zap.String("room_id", roomID))
			}
		}); err != nil {
			logger.Base().Warn("failed to subscribe to hangup channel", zap.Error(err))
		}
	}

	hm := &HandlerManager{
		config:         cfg,
		dialer:         dialer,
		bus:            bus,
		repoManager:    repoManager,
		monitor:        monitor,
		callHandler:    NewCallHandler(dialer, sipClient, repoManager),
		webhookHandler: NewCallEventsWebhookHandler(dialer),
		streamHandler:  NewEventStreamHandler(bus),
	}
	return hm, nil
}

// SetupAllRoutes sets up all routes with middleware.
func (hm *HandlerManager) SetupAllRoutes(router *mux.Router) {
	router.Use(CORSMiddleware)

	router.HandleFunc("/health", hm.HandleHealth).Methods("GET")

	// Platform callbacks cannot present operator credentials, so the
	// webhook route stays outside the authenticated subrouter.
	hm.webhookHandler.SetupWebhookRoutes(router)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(LoggingMiddleware)
	api.Use(ValidationMiddleware)
	api.Use(APIKeyMiddleware(hm.config.JWTSecret))

	hm.callHandler.SetupCallRoutes(api)
	hm.streamHandler.SetupStreamRoutes(api)

	logger.Base().Info("all application routes registered")
}

// HandleHealth reports service liveness and basic session stats.
func (hm *HandlerManager) HandleHealth(w http.ResponseWriter, r *http.Request) {
	stats := hm.bus.GetStats()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"instance_id":     hm.config.InstanceID,
		"active_sessions": hm.dialer.SessionCount(),
		"stream_clients":  hm.streamHandler.ClientCount(),
		"events_total":    stats.TotalEvents,
	})
}

// GetDialer returns the dialer service.
func (hm *HandlerManager) GetDialer() *call.DialerService {
	return hm.dialer
}

// Shutdown stops background workers and releases shared resources.
func (hm *HandlerManager) Shutdown(ctx context.Context) {
	if err := hm.dialer.Shutdown(ctx); err != nil {
		logger.Base().Warn("dialer shutdown incomplete", zap.Error(err))
	}
	hm.bus.Close()
	if hm.repoManager != nil {
		if err := hm.repoManager.Close(); err != nil {
			logger.Base().Warn("failed to close database", zap.Error(err))
		}
	}
}
