// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const hoursPerDay = 24

// Config holds all environment-driven settings for the navigator service.
type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"local"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	PostgresDSN string `env:"POSTGRES_DSN,required"`
	HealthPort  int    `env:"HEALTH_PORT" envDefault:"8080"`
	APIPort     int    `env:"API_PORT" envDefault:"8081"`

	// Crunchbase-style source
	CrunchbaseBaseURL  string `env:"CRUNCHBASE_BASE_URL" envDefault:"https://www.crunchbase.com"`
	CrunchbaseEmail    string `env:"CRUNCHBASE_EMAIL"`
	CrunchbasePassword string `env:"CRUNCHBASE_PASSWORD"`

	// Tracxn-style source
	TracxnBaseURL  string `env:"TRACXN_BASE_URL" envDefault:"https://tracxn.com"`
	TracxnEmail    string `env:"TRACXN_EMAIL"`
	TracxnPassword string `env:"TRACXN_PASSWORD"`

	// Session behavior
	SessionRPS       float64       `env:"SESSION_RPS" envDefault:"1"`
	SessionTimeout   time.Duration `env:"SESSION_TIMEOUT" envDefault:"30s"`
	LoginMaxAttempts int           `env:"LOGIN_MAX_ATTEMPTS" envDefault:"3"`
	LoginRetryDelay  time.Duration `env:"LOGIN_RETRY_DELAY" envDefault:"2s"`

	// Keyword collection
	NumPerKeyword      int `env:"NUM_PER_KEYWORD" envDefault:"20"`
	EmptyPageStopCount int `env:"EMPTY_PAGE_STOP_COUNT" envDefault:"3"`
	MaxSearchPages     int `env:"MAX_SEARCH_PAGES" envDefault:"20"`

	// Detail fetching
	FetcherPoolSize  int           `env:"FETCHER_POOL_SIZE" envDefault:"4"`
	FetcherChunkSize int           `env:"FETCHER_CHUNK_SIZE" envDefault:"4"`
	WebFetchRPS      float64       `env:"WEB_FETCH_RPS" envDefault:"2"`
	WebFetchTimeout  time.Duration `env:"WEB_FETCH_TIMEOUT" envDefault:"30s"`

	// Cache retention, 0 disables the cleanup loop
	CacheRetentionDays int `env:"CACHE_RETENTION_DAYS" envDefault:"30"`

	// Ranking defaults (callers may override per job)
	DefaultTopCount         int     `env:"DEFAULT_TOP_COUNT" envDefault:"10"`
	DefaultFreshnessDays    int     `env:"DEFAULT_FRESHNESS_DAYS" envDefault:"7"`
	DefaultSimilarityWeight float64 `env:"DEFAULT_SIMILARITY_WEIGHT" envDefault:"0.75"`
	DefaultSecondaryWeight  float64 `env:"DEFAULT_SECONDARY_WEIGHT" envDefault:"0.25"`

	// Embeddings (similarity service)
	EmbeddingAPIKey     string `env:"EMBEDDING_API_KEY"`
	EmbeddingModel      string `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	EmbeddingDimensions int    `env:"EMBEDDING_DIMENSIONS" envDefault:"1536"`
	EmbeddingRateLimit  int    `env:"EMBEDDING_RATE_LIMIT" envDefault:"5"`

	// Progress notifications
	StatusBufferSize int    `env:"STATUS_BUFFER_SIZE" envDefault:"64"`
	NotifyBotToken   string `env:"NOTIFY_BOT_TOKEN"`
	NotifyChatID     int64  `env:"NOTIFY_CHAT_ID"`
}

// Load reads configuration from the environment, optionally seeded by a
// .env file.
func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	return cfg, nil
}

// DefaultFreshnessWindow converts the configured freshness days into a
// duration.
func (c *Config) DefaultFreshnessWindow() time.Duration {
	return time.Duration(c.DefaultFreshnessDays) * hoursPerDay * time.Hour
}
