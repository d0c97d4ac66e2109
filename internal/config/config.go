package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"energy-surplus/internal/ingestion/entsoe"
	surplus "energy-surplus/internal/surplus/domain"
)

// EnvPrefix prefixes every environment variable, e.g. SURPLUS_HTTP_ADDR.
const EnvPrefix = "SURPLUS"

var (
	ErrJWTSecretRequired   = errors.New("config: SURPLUS_JWT_SECRET is required")
	ErrEntsoeTokenRequired = errors.New("config: SURPLUS_ENTSOE_TOKEN is required")
)

// Config holds service and tool settings.
type Config struct {
	DatabaseURL      string        `envconfig:"DATABASE_URL"`
	TablePrefix      string        `envconfig:"TABLE_PREFIX" default:"surplus" validate:"required,alphanum"`
	HTTPAddr         string        `envconfig:"HTTP_ADDR" default:":8080" validate:"required"`
	JWTSecret        string        `envconfig:"JWT_SECRET"`
	EntsoeURL        string        `envconfig:"ENTSOE_URL" default:"https://web-api.tp.entsoe.eu/api" validate:"required,url"`
	EntsoeToken      string        `envconfig:"ENTSOE_TOKEN"`
	RateLimit        float64       `envconfig:"ENTSOE_RATE_LIMIT" default:"5" validate:"gte=0"`
	FetchWindow      time.Duration `envconfig:"FETCH_WINDOW" default:"720h" validate:"gt=0"`
	CorpusDir        string        `envconfig:"CORPUS_DIR" default:"data" validate:"required"`
	StorageRoot      string        `envconfig:"STORAGE_ROOT" default:"var/reports/surplus" validate:"required"`
	WebhookURL       string        `envconfig:"WEBHOOK_URL" validate:"omitempty,url"`
	PublicBaseURL    string        `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:8080" validate:"omitempty,url"`
	DailyAt          string        `envconfig:"DAILY_AT" default:"02:00" validate:"omitempty,datetime=15:04"`
	RunOnStartup     bool          `envconfig:"RUN_ON_STARTUP"`
	Workers          int           `envconfig:"WORKERS" default:"4" validate:"gte=1,lte=64"`
	NotifyThreshold  int           `envconfig:"NOTIFY_THRESHOLD" default:"1" validate:"gte=0"`
	TraceExporter    string        `envconfig:"TRACE_EXPORTER" default:"none" validate:"oneof=none stdout"`
	TraceSampleRatio float64       `envconfig:"TRACE_SAMPLE_RATIO" default:"1" validate:"gte=0,lte=1"`
	PolicyFile       string        `envconfig:"POLICY_FILE"`

	Policy  surplus.Policy  `ignored:"true"`
	Regions []entsoe.Region `ignored:"true" validate:"dive"`
}

// Load reads an optional .env file, the environment and the policy file.
// An empty envFile loads ./.env when present.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return Config{}, fmt.Errorf("config: load .env: %w", err)
		}
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.Policy = surplus.DefaultPolicy()
	cfg.Regions = entsoe.DefaultRegions()

	if cfg.PolicyFile != "" {
		file, err := ReadPolicyFile(cfg.PolicyFile)
		if err != nil {
			return Config{}, err
		}
		if err := file.Apply(&cfg); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// RequireServer checks settings only the HTTP service needs.
func (c Config) RequireServer() error {
	if c.JWTSecret == "" {
		return ErrJWTSecretRequired
	}
	return nil
}

// RequireEntsoe checks settings only the fetch tool needs.
func (c Config) RequireEntsoe() error {
	if c.EntsoeToken == "" {
		return ErrEntsoeTokenRequired
	}
	return nil
}
