package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds shared runtime configuration for the API and worker services.
type Config struct {
	Env         string
	HTTPPort    string
	MetricsAddr string

	// Worker-side settings.
	APIBaseURL         string
	WorkerPollInterval time.Duration
	WorkerHTTPTimeout  time.Duration

	// Payload storage backend: "memory", "redis", or "s3".
	PayloadBackend string
	PayloadTTL     time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3Prefix    string
	S3PathStyle bool

	// Optional Postgres DSN for archiving terminal jobs. Empty disables it.
	ArchiveDSN string

	// Submission rate limiting; capacity 0 disables it.
	RateLimitCapacity int
	RateLimitRefill   float64

	// Reject out-of-order status transitions instead of accepting any write.
	StrictLifecycle bool
}

// Load reads configuration from environment variables with sane defaults for
// local development.
func Load() Config {
	return Config{
		Env:                getEnv("APP_ENV", "dev"),
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		MetricsAddr:        getEnv("METRICS_ADDR", ":9090"),
		APIBaseURL:         getEnv("API_BASE_URL", "http://localhost:8080"),
		WorkerPollInterval: getEnvDuration("WORKER_POLL_INTERVAL", 2*time.Second),
		WorkerHTTPTimeout:  getEnvDuration("WORKER_HTTP_TIMEOUT", 30*time.Second),
		PayloadBackend:     getEnv("PAYLOAD_BACKEND", "memory"),
		PayloadTTL:         getEnvDuration("PAYLOAD_TTL", 0),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		S3Bucket:           getEnv("S3_BUCKET", ""),
		S3Region:           getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:         getEnv("S3_ENDPOINT", ""),
		S3Prefix:           getEnv("S3_PREFIX", "payloads/"),
		S3PathStyle:        getEnvBool("S3_PATH_STYLE", false),
		ArchiveDSN:         getEnv("ARCHIVE_DSN", ""),
		RateLimitCapacity:  getEnvInt("RATE_LIMIT_CAPACITY", 0),
		RateLimitRefill:    getEnvFloat("RATE_LIMIT_REFILL_PER_SEC", 5),
		StrictLifecycle:    getEnvBool("STRICT_LIFECYCLE", false),
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

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
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
