package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	// gateway
	DBDriver        string
	DBDSN           string
	AuthHMACSecret  string
	CORSOrigins     []string
	SeedUsers       bool
	SampleQuizzes   string // path to a JSON array of quizzes loaded at startup
	EnableLocalAuth bool

	// quizctl
	BackendURL    string
	AuthToken     string
	OutboxDriver  string // file|sqlite|postgres|redis|memory
	OutboxPath    string // file outbox location
	OutboxDSN     string // sqlite/postgres dsn
	RedisURL      string
	ProbeInterval time.Duration
	HTTPTimeout   time.Duration
}

// FromEnv reads configuration from the environment, after loading .env when present.
func FromEnv() Config {
	_ = godotenv.Load()

	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	return Config{
		Mode:            mode,
		HTTPAddr:        envOr("HTTP_ADDR", ":8080"),
		DBDriver:        envOr("DB_DRIVER", "sqlite"),
		DBDSN:           envOr("DB_DSN", ""),
		AuthHMACSecret:  envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		CORSOrigins:     csvOr("CORS_ORIGINS", "http://localhost:3000"),
		SeedUsers:       envBool("SEED_USERS", mode == ModeOffline),
		SampleQuizzes:   os.Getenv("SAMPLE_QUIZZES"),
		EnableLocalAuth: envBool("ENABLE_LOCAL_AUTH", true),

		BackendURL:    strings.TrimSuffix(envOr("BACKEND_URL", "http://localhost:8080"), "/"),
		AuthToken:     os.Getenv("AUTH_TOKEN"),
		OutboxDriver:  envOr("OUTBOX_DRIVER", "file"),
		OutboxPath:    envOr("OUTBOX_PATH", defaultOutboxPath()),
		OutboxDSN:     envOr("OUTBOX_DSN", ""),
		RedisURL:      envOr("REDIS_URL", "redis://localhost:6379/0"),
		ProbeInterval: envDuration("PROBE_INTERVAL", 5*time.Second),
		HTTPTimeout:   envDuration("HTTP_TIMEOUT", 15*time.Second),
	}
}

func defaultOutboxPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "./data/offline_quiz_results.json"
	}
	return dir + "/drivequiz/offline_quiz_results.json"
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

// envDuration accepts Go durations ("5s") or a bare number of seconds.
func envDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
