package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds shared runtime configuration for all agents.
type Config struct {
	Env         string
	LedgerPath  string
	MetricsAddr string
	APIPort     string

	FeedURL      string
	FetchLimit   int
	FetchTimeout time.Duration

	ScoutInterval  time.Duration
	ReportInterval time.Duration
	CaseworkerWait time.Duration
	SweepInterval  time.Duration
	StaleAfter     time.Duration
	MaxSweepBatch  int
	RulesPath      string
	TriggerPhrases []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	HandoffList   string

	PublishBearerToken string
	PublishAPIURL      string
	PublishTimeout     time.Duration
	PublishMaxLen      int
	PublishRateCap     int
	PublishRateRefill  float64

	ArchiveDir      string
	ArchiveS3Bucket string
	OutboxDir       string
	ContactEmail    string
}

// Load reads configuration from environment variables with sane defaults
// for local development. A .env file in the working directory is honored
// when present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Env:         getEnv("APP_ENV", "dev"),
		LedgerPath:  getEnv("LEDGER_PATH", "shared_state.jsonl"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
		APIPort:     getEnv("API_PORT", "8080"),

		FeedURL: getEnv("FEED_URL",
			"https://news.google.com/rss/search?q=site:linkedin.com/posts+%22laid+off%22&hl=en-US&gl=US&ceid=US:en"),
		FetchLimit:   getEnvInt("FETCH_LIMIT", 10),
		FetchTimeout: getEnvDuration("FETCH_TIMEOUT", 30*time.Second),

		ScoutInterval:  getEnvDuration("SCOUT_INTERVAL", 30*time.Minute),
		ReportInterval: getEnvDuration("REPORT_INTERVAL", 24*time.Hour),
		CaseworkerWait: getEnvDuration("CASEWORKER_WAIT", 5*time.Second),
		SweepInterval:  getEnvDuration("SWEEP_INTERVAL", 10*time.Minute),
		StaleAfter:     getEnvDuration("STALE_AFTER", time.Hour),
		MaxSweepBatch:  getEnvInt("MAX_SWEEP_BATCH", 100),
		RulesPath:      getEnv("ELIGIBILITY_RULES_PATH", ""),
		TriggerPhrases: getEnvList("TRIGGER_PHRASES", nil),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		HandoffList:   getEnv("HANDOFF_LIST", "handoff:enrich"),

		PublishBearerToken: getEnv("PUBLISH_BEARER_TOKEN", ""),
		PublishAPIURL:      getEnv("PUBLISH_API_URL", "https://api.twitter.com/2/tweets"),
		PublishTimeout:     getEnvDuration("PUBLISH_TIMEOUT", 15*time.Second),
		PublishMaxLen:      getEnvInt("PUBLISH_MAX_LEN", 280),
		PublishRateCap:     getEnvInt("PUBLISH_RATE_CAPACITY", 10),
		PublishRateRefill:  getEnvFloat("PUBLISH_RATE_REFILL_PER_SEC", 0.01),

		ArchiveDir:      getEnv("ARCHIVE_DIR", "./cases"),
		ArchiveS3Bucket: getEnv("ARCHIVE_S3_BUCKET", ""),
		OutboxDir:       getEnv("OUTBOX_DIR", ""),
		ContactEmail:    getEnv("CONTACT_EMAIL", ""),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getEnvList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}
