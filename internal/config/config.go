package config // package config loads application configuration from environment variables

import (
	"errors"
	"log"
	"time"
)

// Config holds all runtime configuration values. It is built once at startup
// and passed by value; nothing below cmd/ reads the environment directly.
type Config struct {
	Env    string // application environment (e.g. "dev", "prod")
	Port   string // HTTP port to listen on
	DBUser string
	DBPass string // empty allowed
	DBHost string
	DBPort string
	DBName string

	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenSecret string
	RefreshTokenExpiry time.Duration
	BcryptCost         int

	CORSOrigin   string
	CookieSecure bool
	UploadTmpDir string
	MaxUploadMB  int

	LogLevel  string
	LogFormat string

	RabbitURL        string
	ActivityConsumer bool
	ActivityLogPath  string

	Media     MediaConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
}

// MediaConfig points the media store at an S3-compatible bucket. Endpoint is
// optional and only needed for MinIO or other non-AWS providers.
type MediaConfig struct {
	Bucket        string
	Region        string
	Endpoint      string
	PublicBaseURL string
	Prefix        string
}

// ErrSharedSecret is returned when both token classes would be signed with
// the same key, which would let a refresh token pass as an access token.
var ErrSharedSecret = errors.New("config: ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")

// Load reads configuration from the process environment. Missing required
// variables cause the program to exit with a fatal log message.
func Load() Config {
	cfg, err := Parse(nil)
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

// Parse builds a Config from lookup (os.LookupEnv when nil).
func Parse(lookup func(string) (string, bool)) (Config, error) {
	e := newEnv(lookup)
	cfg := Config{
		Env:    e.str("APP_ENV", "dev"),
		Port:   e.str("APP_PORT", "8000"),
		DBUser: e.must("DB_USER"),
		DBPass: e.get("DB_PASS"),
		DBHost: e.must("DB_HOST"),
		DBPort: e.str("DB_PORT", "3306"),
		DBName: e.must("DB_NAME"),

		AccessTokenSecret:  e.must("ACCESS_TOKEN_SECRET"),
		AccessTokenExpiry:  e.mustDuration("ACCESS_TOKEN_EXPIRY"),
		RefreshTokenSecret: e.must("REFRESH_TOKEN_SECRET"),
		RefreshTokenExpiry: e.mustDuration("REFRESH_TOKEN_EXPIRY"),
		BcryptCost:         e.integer("BCRYPT_COST", 10),

		CORSOrigin:   e.str("CORS_ORIGIN", "*"),
		CookieSecure: e.boolean("COOKIE_SECURE", true),
		UploadTmpDir: e.str("UPLOAD_TMP_DIR", "./public/temp"),
		MaxUploadMB:  e.integer("MAX_UPLOAD_MB", 512),

		LogLevel:  e.str("LOG_LEVEL", "info"),
		LogFormat: e.str("LOG_FORMAT", "json"),

		RabbitURL:        e.str("RABBITMQ_URL", e.get("AMQP_URL")),
		ActivityConsumer: e.boolean("ACTIVITY_CONSUMER", false),
		ActivityLogPath:  e.str("ACTIVITY_LOG_PATH", "logs/activity.log"),

		Media: MediaConfig{
			Bucket:        e.must("MEDIA_BUCKET"),
			Region:        e.str("MEDIA_REGION", "us-east-1"),
			Endpoint:      e.get("MEDIA_ENDPOINT"),
			PublicBaseURL: e.get("MEDIA_PUBLIC_BASE_URL"),
			Prefix:        e.str("MEDIA_PREFIX", "uploads"),
		},
		Redis:     loadRedisConfig(e),
		RateLimit: loadRateLimitConfig(e),
		Cache:     loadCacheConfig(e),
	}
	if err := e.err(); err != nil {
		return Config{}, err
	}
	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		return Config{}, ErrSharedSecret
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		cfg.BcryptCost = 10
	}
	// Plain-HTTP session cookies are a local development convenience only.
	if cfg.Env != "dev" {
		cfg.CookieSecure = true
	}
	return cfg, nil
}
