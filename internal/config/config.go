package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr     string // API bind address, e.g., "127.0.0.1:8080" (Windows) or ":8080" (Docker)
	LogDir   string // logs directory
	LogLevel string // debug, info, warn, error
	LogToStd bool   // also write logs to stderr

	CatalogFile   string        // optional replacement for the embedded platform catalog
	ProbeTimeout  time.Duration // overrides every platform's timeout when > 0
	MaxConcurrent int           // probes in flight per request (0 = all at once)
	MaxBodyBytes  int64         // body read cap for content probes
	UserAgent     string

	GitHubToken string // enables the GitHub REST API probe

	SessionLogin    string // account for platforms that need a login
	SessionPassword string
	LoginTimeout    time.Duration // 0 = catalog's login flow timeout
	ChromePath      string        // empty = let chromedp find Chrome
	ChromeHeadless  bool

	PublicAPIKeys  []string
	AdminAPIKeys   []string
	AllowedOrigins []string // CORS; empty = allow all
	PublicRPM      int
	PublicBurst    int

	SlackWebhookURL string
	AlertCooldown   time.Duration
}

// FromEnv reads configuration from the environment. A .env file in the
// working directory, if present, fills in variables that are not already set.
func FromEnv() Config {
	_ = godotenv.Load()

	// Bind address (Windows-friendly default)
	addr := os.Getenv("API_ADDR")
	if addr == "" {
		addr = "127.0.0.1:8080"
	}

	// Logs
	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "logs"
	}
	logLevel := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if logLevel == "" {
		logLevel = "info"
	}

	return Config{
		Addr:     addr,
		LogDir:   logDir,
		LogLevel: logLevel,
		LogToStd: envBool("LOG_STDERR", false),

		CatalogFile:   os.Getenv("CATALOG_FILE"),
		ProbeTimeout:  envMillis("PROBE_TIMEOUT_MS", 0),
		MaxConcurrent: envInt("MAX_CONCURRENT_PROBES", 0),
		MaxBodyBytes:  int64(envInt("MAX_BODY_BYTES", 2<<20)),
		UserAgent:     os.Getenv("USER_AGENT"),

		GitHubToken: os.Getenv("GITHUB_TOKEN"),

		SessionLogin:    os.Getenv("SESSION_LOGIN"),
		SessionPassword: os.Getenv("SESSION_PASSWORD"),
		LoginTimeout:    envMillis("LOGIN_TIMEOUT_MS", 0),
		ChromePath:      os.Getenv("CHROME_PATH"),
		ChromeHeadless:  envBool("CHROME_HEADLESS", true),

		PublicAPIKeys:  splitList(os.Getenv("PUBLIC_API_KEYS")),
		AdminAPIKeys:   splitList(os.Getenv("ADMIN_API_KEYS")),
		AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),
		PublicRPM:      envInt("PUBLIC_RPM", 60),
		PublicBurst:    envInt("PUBLIC_BURST", 10),

		SlackWebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),
		AlertCooldown:   envMillis("ALERT_COOLDOWN_MS", 15*time.Minute),
	}
}

// envInt returns a non-negative integer or def.
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func envMillis(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
