package config

import "time"

// DialerConfig holds all settings for the outbound call dialer service
type DialerConfig struct {
	Port string

	// Call-control platform
	APIBaseURL string
	AuthToken  string

	// Default outbound SIP gateway used when a dial request names none
	GatewayID string

	// Public base URL of this service, used to build webhook callback URLs
	CallbackBaseURL string

	// Call trigger behavior
	MaxDialAttempts   int
	BackoffUnit       time.Duration
	RingingTimeoutS   int
	MaxCallDurationS  int
	WaitUntilAnswered bool

	// Fallback greeting delay when no webhook could be registered
	DegradedGreetingDelay time.Duration

	// Greeting line spoken when the callee answers
	GreetingText string

	// Agent runtime process launched per call
	AgentCommand string
	AgentArgs    []string

	// Directory for agent-ready marker files
	ReadyMarkerDir string
	ReadyTimeout   time.Duration

	// Dial rate limiting (requests per second, burst)
	DialRateLimit float64
	DialRateBurst int

	// JWT secret protecting operator endpoints; empty disables auth
	JWTSecret string

	// Instance identifier for multi-pod monitoring and routing
	InstanceID string

	// Redis session monitoring
	RedisEnabled  bool
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Postgres call-record persistence; connection details come from the
	// DB_* environment variables read by the repository layer
	DatabaseEnabled bool
}
