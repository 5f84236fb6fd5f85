package config

import (
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/Fachryxyf/felisa-userside/pkg/config"
)

// Session store backends.
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// Config holds all configuration for the review service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort       int           `env:"REVIEW_HTTP_PORT" envDefault:"8021"`
	RequestTimeout time.Duration `env:"REVIEW_REQUEST_TIMEOUT" envDefault:"60s"`

	// Review storage API
	ReviewAPIBaseURL string        `env:"REVIEW_API_BASE_URL" envDefault:"http://localhost:3000/api"`
	ReviewAPITimeout time.Duration `env:"REVIEW_API_TIMEOUT" envDefault:"15s"`

	// Media host. Without a cloud name avatars go to the local uploader.
	CloudinaryAPIBase      string        `env:"CLOUDINARY_API_BASE" envDefault:"https://api.cloudinary.com/v1_1"`
	CloudinaryCloudName    string        `env:"CLOUDINARY_CLOUD_NAME" envDefault:""`
	CloudinaryUploadPreset string        `env:"CLOUDINARY_UPLOAD_PRESET" envDefault:""`
	AvatarFolder           string        `env:"AVATAR_FOLDER" envDefault:"ayudcraft/avatars"`
	UploadTimeout          time.Duration `env:"UPLOAD_TIMEOUT" envDefault:"30s"`
	MediaBaseURL           string        `env:"MEDIA_BASE_URL" envDefault:"http://localhost:8021"`

	// Sessions
	SessionStore      string `env:"SESSION_STORE" envDefault:"memory"`
	RedisAddr         string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass         string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB           int    `env:"REDIS_DB" envDefault:"0"`
	SessionTTLMinutes int    `env:"SESSION_TTL_MINUTES" envDefault:"120"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Edge
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	PprofAllowedCIDRs  []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.1/32" envSeparator:","`
	FeedCacheSeconds   int      `env:"FEED_CACHE_SECONDS" envDefault:"60"`

	// Tracing
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load review config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SessionTTL returns the idle lifetime of a review session.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// UseCloudinary reports whether avatars are sent to the external media host.
func (c *Config) UseCloudinary() bool {
	return c.CloudinaryCloudName != ""
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if err := checkBaseURL("REVIEW_API_BASE_URL", c.ReviewAPIBaseURL); err != nil {
		return err
	}
	if c.ReviewAPITimeout <= 0 {
		return fmt.Errorf("REVIEW_API_TIMEOUT must be positive")
	}
	if c.UploadTimeout <= 0 {
		return fmt.Errorf("UPLOAD_TIMEOUT must be positive")
	}
	if c.RequestTimeout < c.UploadTimeout+c.ReviewAPITimeout {
		return fmt.Errorf("REVIEW_REQUEST_TIMEOUT (%s) must cover UPLOAD_TIMEOUT plus REVIEW_API_TIMEOUT", c.RequestTimeout)
	}
	if c.UseCloudinary() {
		if c.CloudinaryUploadPreset == "" {
			return fmt.Errorf("CLOUDINARY_UPLOAD_PRESET is required when CLOUDINARY_CLOUD_NAME is set")
		}
		if err := checkBaseURL("CLOUDINARY_API_BASE", c.CloudinaryAPIBase); err != nil {
			return err
		}
	} else {
		// The local uploader keeps avatars in process memory only.
		if c.Environment != "development" {
			return fmt.Errorf("CLOUDINARY_CLOUD_NAME is required when ENVIRONMENT is %q", c.Environment)
		}
		if err := checkBaseURL("MEDIA_BASE_URL", c.MediaBaseURL); err != nil {
			return err
		}
	}
	switch c.SessionStore {
	case SessionStoreMemory, SessionStoreRedis:
	default:
		return fmt.Errorf("SESSION_STORE must be %q or %q, got %q", SessionStoreMemory, SessionStoreRedis, c.SessionStore)
	}
	if c.SessionTTLMinutes < 1 {
		return fmt.Errorf("SESSION_TTL_MINUTES must be at least 1, got %d", c.SessionTTLMinutes)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	if c.FeedCacheSeconds < 0 {
		return fmt.Errorf("FEED_CACHE_SECONDS must not be negative")
	}
	if c.OTELSampleRate < 0.0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

func checkBaseURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
	}
	return nil
}
