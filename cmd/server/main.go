package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	adapterhttp "github.com/ClareAI/astra-dialer-service/internal/adapters/http"
	"github.com/ClareAI/astra-dialer-service/internal/config"
	"github.com/ClareAI/astra-dialer-service/internal/handler"
	"github.com/ClareAI/astra-dialer-service/pkg/logger"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Server represents the outbound call dialer server
type Server struct {
	config         *config.DialerConfig
	router         *mux.Router
	handlerManager *handler.HandlerManager
	httpServer     *http.Server
}

// NewServer creates a new dialer server
func NewServer(cfg *config.DialerConfig) *Server {
	// Initialize zap logger and redirect stdlib log to it
	if _, err := logger.Init(os.Getenv("LOG_ENV")); err != nil {
		logger.Base().Error("Failed to initialize zap logger, falling back to std log")
	}

	router := mux.NewRouter()

	// Initialize handler manager - it will create all services internally
	handlerManager, err := handler.NewHandlerManager(cfg)
	if err != nil {
		logger.Base().Error("Failed to initialize handler manager", zap.Error(err))
		return nil
	}

	handlerManager.SetupAllRoutes(router)

	return &Server{
		config:         cfg,
		router:         router,
		handlerManager: handlerManager,
	}
}

// Start starts the dialer server and blocks until it stops
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Base().Info("Starting server", zap.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

// Stop drains in-flight requests and active call sessions.
func (s *Server) Stop(ctx context.Context) {
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			logger.Base().Warn("http server shutdown incomplete", zap.Error(err))
		}
	}
	s.handlerManager.Shutdown(ctx)
}

// LoadConfigFromEnv loads dialer configuration from environment
func LoadConfigFromEnv() *config.DialerConfig {
	cfg := &config.DialerConfig{
		Port: getEnvOrDefault("DIALER_PORT", "8082"),

		// Call-control platform
		APIBaseURL: getEnvOrDefault("VIDEOSDK_API_BASE_URL", adapterhttp.DefaultBaseURL),
		AuthToken:  getEnvOrDefault("VIDEOSDK_AUTH_TOKEN", ""),
		GatewayID:  getEnvOrDefault("SIP_GATEWAY_ID", ""),

		// Public URL the platform calls back on
		CallbackBaseURL: getEnvOrDefault("CALLBACK_BASE_URL", ""),

		// Call trigger behavior
		MaxDialAttempts:   getEnvAsIntOrDefault("MAX_DIAL_ATTEMPTS", 3),
		BackoffUnit:       getEnvAsDurationOrDefault("DIAL_BACKOFF_UNIT", time.Second),
		RingingTimeoutS:   getEnvAsIntOrDefault("RINGING_TIMEOUT_SECONDS", 30),
		MaxCallDurationS:  getEnvAsIntOrDefault("MAX_CALL_DURATION_SECONDS", 300),
		WaitUntilAnswered: getEnvAsBoolOrDefault("WAIT_UNTIL_ANSWERED", true),

		// Greeting behavior
		DegradedGreetingDelay: getEnvAsDurationOrDefault("DEGRADED_GREETING_DELAY", 10*time.Second),
		GreetingText:          getEnvOrDefault("GREETING_TEXT", "Hello! This is your voice assistant."),

		// Agent runtime process
		AgentCommand:   getEnvOrDefault("AGENT_COMMAND", ""),
		AgentArgs:      splitAndTrimStrings(os.Getenv("AGENT_ARGS"), ","),
		ReadyMarkerDir: getEnvOrDefault("AGENT_READY_DIR", os.TempDir()),
		ReadyTimeout:   getEnvAsDurationOrDefault("AGENT_READY_TIMEOUT", 20*time.Second),

		// Dial rate limiting
		DialRateLimit: getEnvAsFloatOrDefault("DIAL_RATE_LIMIT", 0),
		DialRateBurst: getEnvAsIntOrDefault("DIAL_RATE_BURST", 1),

		// Operator endpoint auth
		JWTSecret: getEnvOrDefault("SECRET_KEY", ""),

		// Instance identifier for multi-pod monitoring and routing
		InstanceID: getDynamicInstanceID(),

		// Redis session monitoring
		RedisEnabled:  getEnvAsBoolOrDefault("REDIS_ENABLED", false),
		RedisHost:     getEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsIntOrDefault("REDIS_DB", 0),

		// Postgres call-record persistence
		DatabaseEnabled: getEnvAsBoolOrDefault("DATABASE_ENABLED", false),
	}

	return cfg
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBoolOrDefault gets environment variable as bool or returns default
func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsFloatOrDefault gets environment variable as float64 or returns default
func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsDurationOrDefault gets environment variable as duration or returns default
func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// splitAndTrimStrings splits a string by delimiter and trims whitespace from each part
func splitAndTrimStrings(s, delimiter string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, delimiter)
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// getDynamicInstanceID generates a unique identifier for this service instance.
// It first tries the system hostname (pod name in K8s), then falls back to a
// timestamp-based ID.
func getDynamicInstanceID() string {
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return hostname
	}
	return fmt.Sprintf("dialer-service-%d", time.Now().UnixNano())
}

func main() {
	// Load .env file for local development if it exists.
	// This will not override environment variables set by Helm/Docker.
	if err := godotenv.Load(); err != nil {
		log.Printf("Info: .env file not found or skipped (expected in production): %v", err)
	}

	cfg := LoadConfigFromEnv()
	fmt.Printf("Starting Astra Dialer Service (Instance: %s)\n", cfg.InstanceID)

	server := NewServer(cfg)
	if server == nil {
		log.Fatal("Failed to create server")
	}
	logger.Base().Info("Server initialized successfully",
		zap.String("port", cfg.Port),
		zap.String("instance_id", cfg.InstanceID))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	case sig := <-stop:
		logger.Base().Info("Shutdown signal received", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), handler.ShutdownTimeout)
		defer cancel()
		server.Stop(ctx)
		logger.Base().Info("Server stopped")
	}

	logger.Sync()
}
