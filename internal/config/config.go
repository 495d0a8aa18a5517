package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all client and stub-server configuration.
type Config struct {
	// ─── Transport ─────────────────────────────────────────────────────
	APIBaseURL     string
	SocketURL      string // Derived from APIBaseURL when unset.
	RequestTimeout time.Duration

	// ─── Cold-start wake sequence ──────────────────────────────────────
	WakeBudget       time.Duration // Hard wall-clock limit for the whole sequence.
	WakeProbeTimeout time.Duration // Per-attempt health probe timeout.
	WakeInitialDelay time.Duration // First retry delay, doubled per attempt.

	// ─── Socket ────────────────────────────────────────────────────────
	SocketMaxReconnects  int
	SocketReconnectDelay time.Duration
	NoticeMinInterval    time.Duration // Minimum gap between connection-error notices.

	// ─── Autosave ──────────────────────────────────────────────────────
	AutosaveDebounce time.Duration
	AutosaveInterval time.Duration
	TypingThrottle   time.Duration

	// SubmitMinScore is the lowest score accepted by session.Client.Submit.
	// Product default is 1 (reject zero-score submissions locally);
	// set to 0 to allow submitting failing solutions for review.
	SubmitMinScore int

	// ─── Logging ───────────────────────────────────────────────────────
	LogLevel  string
	LogFormat string

	// ─── Stub server ───────────────────────────────────────────────────
	ServerPort string
	GinMode    string
	JWTSecret  string
	JWTExpiry  time.Duration
	// AllowedOrigins controls HTTP CORS and WebSocket origin validation.
	// Empty slice means all origins are permitted (dev default).
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // Ignore error — .env is optional

	apiBase := getEnv("API_BASE_URL", "http://localhost:8080/api/v1")
	socketURL := getEnv("SOCKET_URL", "")
	if socketURL == "" {
		socketURL = DeriveSocketURL(apiBase)
	}

	return &Config{
		APIBaseURL:     apiBase,
		SocketURL:      socketURL,
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 15)) * time.Second,

		WakeBudget:       time.Duration(getEnvInt("WAKE_BUDGET_SECONDS", 90)) * time.Second,
		WakeProbeTimeout: time.Duration(getEnvInt("WAKE_PROBE_TIMEOUT_SECONDS", 5)) * time.Second,
		WakeInitialDelay: time.Duration(getEnvInt("WAKE_INITIAL_DELAY_MS", 2000)) * time.Millisecond,

		SocketMaxReconnects:  getEnvInt("SOCKET_MAX_RECONNECTS", 5),
		SocketReconnectDelay: time.Duration(getEnvInt("SOCKET_RECONNECT_DELAY_MS", 1000)) * time.Millisecond,
		NoticeMinInterval:    time.Duration(getEnvInt("NOTICE_MIN_INTERVAL_SECONDS", 30)) * time.Second,

		AutosaveDebounce: time.Duration(getEnvInt("AUTOSAVE_DEBOUNCE_MS", 2000)) * time.Millisecond,
		AutosaveInterval: time.Duration(getEnvInt("AUTOSAVE_INTERVAL_SECONDS", 30)) * time.Second,
		TypingThrottle:   time.Duration(getEnvInt("TYPING_THROTTLE_MS", 1500)) * time.Millisecond,

		SubmitMinScore: getEnvInt("SUBMIT_MIN_SCORE", 1),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "pretty"),

		ServerPort:     getEnv("SERVER_PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		JWTSecret:      getEnv("JWT_SECRET", "change-this-to-a-secure-random-string"),
		JWTExpiry:      time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 24)) * time.Hour,
		AllowedOrigins: parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
	}
}

// DeriveSocketURL converts a REST base URL into the socket endpoint URL.
// The socket server is not namespaced under the API path prefix, so the
// path is stripped and the scheme swapped to ws/wss.
func DeriveSocketURL(apiBase string) string {
	u, err := url.Parse(apiBase)
	if err != nil || u.Host == "" {
		return "ws://localhost:8080"
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
