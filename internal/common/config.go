package common

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment     string                `toml:"environment"` // "development" or "production"
	Server          ServerConfig          `toml:"server"`
	Database        DatabaseConfig        `toml:"database"`
	Crawler         CrawlerConfig         `toml:"crawler"`
	ScanFrequencies ScanFrequenciesConfig `toml:"scan_frequencies"`
	Notifier        NotifierConfig        `toml:"notifier"`
	Queue           SharedQueueConfig     `toml:"queue"`
	Logging         LoggingConfig         `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gt=0,lte=65535"`
	Host string `toml:"host"`
}

// DatabaseConfig holds the Postgres connection settings
type DatabaseConfig struct {
	URL             string        `toml:"url" validate:"required"`
	ServiceKey      string        `toml:"service_key"` // Optional auth token for hosted stores
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}

// CrawlerConfig contains the crawl engine settings
type CrawlerConfig struct {
	Concurrency     int           `toml:"concurrency" validate:"gt=0"`      // Workers per scan
	Timeout         time.Duration `toml:"timeout" validate:"gt=0"`          // Per-request timeout
	Delay           time.Duration `toml:"delay"`                            // Default per-domain delay
	MaxPages        int           `toml:"max_pages" validate:"gt=0"`        // Default page budget per scan
	RespectRobots   bool          `toml:"respect_robots_txt"`               // Honor robots.txt rules
	UserAgent       string        `toml:"user_agent" validate:"required"`   // Outbound user agent
	SitemapDiscover bool          `toml:"sitemap_discovery"`                // Prime the queue from sitemaps
}

// ScanFrequenciesConfig holds the cron expressions driving recurring scans
type ScanFrequenciesConfig struct {
	Daily   string `toml:"daily"`
	Weekly  string `toml:"weekly"`
	Monthly string `toml:"monthly"`
}

// NotifierConfig configures the scan-completion email notifier
type NotifierConfig struct {
	Enabled   bool   `toml:"enabled"`
	APIKey    string `toml:"api_key"`
	Endpoint  string `toml:"endpoint"`
	FromEmail string `toml:"from_email"`
}

// SharedQueueConfig holds the optional shared queue back-end settings.
// The reference deployment is single-process; these are recognized but unused
// unless a distributed queue is plugged in.
type SharedQueueConfig struct {
	URL   string `toml:"url"`
	Token string `toml:"token"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Crawler: CrawlerConfig{
			Concurrency:     3,
			Timeout:         30 * time.Second,
			Delay:           1 * time.Second,
			MaxPages:        100,
			RespectRobots:   true,
			UserAgent:       "RankRiot Crawler/1.0 (+https://rankriot.app/bot)",
			SitemapDiscover: true,
		},
		ScanFrequencies: ScanFrequenciesConfig{
			Daily:   "0 0 * * *",
			Weekly:  "0 0 * * 0",
			Monthly: "0 0 1 * *",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files; environment variables override everything.
// Unknown TOML keys are rejected.
func LoadFromFiles(paths ...string) (*Config, error) {
	// Pick up a .env file when present (no error if missing)
	_ = godotenv.Load()

	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := unmarshalStrict(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := Validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// unmarshalStrict decodes TOML rejecting unrecognized keys
func unmarshalStrict(data []byte, config *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(config)
}

// Validate checks the configuration for required fields and sane values
func Validate(config *Config) error {
	v := validator.New()
	if err := v.Struct(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("NODE_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("RANKRIOT_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("RANKRIOT_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		config.Database.URL = url
	}
	if key := os.Getenv("DATABASE_SERVICE_KEY"); key != "" {
		config.Database.ServiceKey = key
	}

	if url := os.Getenv("QUEUE_URL"); url != "" {
		config.Queue.URL = url
	}
	if token := os.Getenv("QUEUE_TOKEN"); token != "" {
		config.Queue.Token = token
	}

	if apiKey := os.Getenv("NOTIFIER_API_KEY"); apiKey != "" {
		config.Notifier.APIKey = apiKey
	}
	if enabled := os.Getenv("NOTIFIER_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.Notifier.Enabled = b
		}
	}

	if concurrency := os.Getenv("RANKRIOT_CRAWLER_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil && c > 0 {
			config.Crawler.Concurrency = c
		}
	}
	if timeout := os.Getenv("RANKRIOT_CRAWLER_TIMEOUT"); timeout != "" {
		if t, err := time.ParseDuration(timeout); err == nil {
			config.Crawler.Timeout = t
		}
	}
	if delay := os.Getenv("RANKRIOT_CRAWLER_DELAY"); delay != "" {
		if d, err := time.ParseDuration(delay); err == nil {
			config.Crawler.Delay = d
		}
	}
	if maxPages := os.Getenv("RANKRIOT_CRAWLER_MAX_PAGES"); maxPages != "" {
		if m, err := strconv.Atoi(maxPages); err == nil && m > 0 {
			config.Crawler.MaxPages = m
		}
	}
	if respectRobots := os.Getenv("RANKRIOT_CRAWLER_RESPECT_ROBOTS_TXT"); respectRobots != "" {
		if b, err := strconv.ParseBool(respectRobots); err == nil {
			config.Crawler.RespectRobots = b
		}
	}
	if userAgent := os.Getenv("RANKRIOT_CRAWLER_USER_AGENT"); userAgent != "" {
		config.Crawler.UserAgent = userAgent
	}

	if level := os.Getenv("RANKRIOT_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}
