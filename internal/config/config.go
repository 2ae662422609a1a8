package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config struct for environment variables.
type Config struct {
	RecordsPath string `envconfig:"RECORDS_PATH" required:"true"`
	ResultPath  string `envconfig:"RESULT_PATH" default:"records_out.json"`
	OutputDir   string `envconfig:"OUTPUT_DIR" required:"true"`

	VerifyChecksums bool   `envconfig:"VERIFY_CHECKSUMS" default:"true"`
	Force           bool   `envconfig:"FORCE" default:"false"`
	AsGeotable      bool   `envconfig:"AS_GEOTABLE" default:"false"`
	HubSelector     string `envconfig:"HUB_SELECTOR" default:"auto"`

	MaxParallel    int           `envconfig:"MAX_PARALLEL" default:"4"`
	MaxAttempts    int           `envconfig:"MAX_ATTEMPTS" default:"3"`
	RetryDelay     time.Duration `envconfig:"RETRY_DELAY" default:"5s"`
	AttemptTimeout time.Duration `envconfig:"ATTEMPT_TIMEOUT" default:"15m"`

	DBPath     string `envconfig:"DB_PATH" default:"downloads.db"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"INFO"`
	WebhookURL string `envconfig:"WEBHOOK_URL"`

	EspaBaseURL         string `envconfig:"ESPA_BASE_URL" default:"https://espa.cr.usgs.gov/api/v1"`
	AvailabilityBaseURL string `envconfig:"AVAILABILITY_BASE_URL"`

	Copernicus struct {
		Username string `split_words:"true"`
		Password string `split_words:"true"`
	}

	Earthdata struct {
		Username string `split_words:"true"`
		Password string `split_words:"true"`
	}

	Web struct {
		BindAddress     string        `split_words:"true" default:"0.0.0.0:9090"`
		ReadTimeout     time.Duration `split_words:"true" default:"30s"`
		WriteTimeout    time.Duration `split_words:"true" default:"30s"`
		IdleTimeout     time.Duration `split_words:"true" default:"5s"`
		ShutdownTimeout time.Duration `split_words:"true" default:"30s"`
	}
}

// LoadConfig reads environment variables and populates the Config struct.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env: %w", err)
	}

	return &cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
