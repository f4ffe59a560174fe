package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// insecureJWTSecret is the built-in default; it is only accepted when
// TM_ENV=development.
const insecureJWTSecret = "supersecretkey"

// Config is read from defaults, then the YAML file, then TM_* environment
// variables, each layer overriding the previous one.
type Config struct {
	Addr            string        `yaml:"addr" env:"ADDR"`
	JWTSecret       string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	APIKeyHash      string        `yaml:"api_key_hash" env:"API_KEY_HASH"`
	APITimeout      time.Duration `yaml:"timeout" env:"TIMEOUT"`
	TokenDuration   time.Duration `yaml:"token_duration" env:"TOKEN_DURATION"`
	PersistenceMode string        `yaml:"persistence_mode" env:"PERSISTENCE_MODE"`

	Store     StoreConfig     `yaml:"store" envPrefix:"STORE_"`
	PubSub    PubSubConfig    `yaml:"pubsub" envPrefix:"PUBSUB_"`
	Worker    WorkerConfig    `yaml:"worker" envPrefix:"WORKER_"`
	Janitor   JanitorConfig   `yaml:"janitor" envPrefix:"JANITOR_"`
	Telemetry TelemetryConfig `yaml:"telemetry" envPrefix:"TELEMETRY_"`
}

// StoreConfig selects where seekers, listings and the job queue live. The
// queue is always in the SQLite file at DatabasePath.
type StoreConfig struct {
	Driver       string `yaml:"driver" env:"DRIVER"`
	DatabasePath string `yaml:"database_path" env:"DATABASE_PATH"`
	DatabaseURL  string `yaml:"database_url" env:"DATABASE_URL"`
}

type PubSubConfig struct {
	Driver string `yaml:"driver" env:"DRIVER"`
	URL    string `yaml:"url" env:"URL"`
}

type WorkerConfig struct {
	Count        int           `yaml:"count" env:"COUNT"`
	BatchSize    int           `yaml:"batch_size" env:"BATCH_SIZE"`
	MaxAttempts  int           `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	PollInterval time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
}

type JanitorConfig struct {
	Schedule  string        `yaml:"schedule" env:"SCHEDULE"`
	Retention time.Duration `yaml:"retention" env:"RETENTION"`
}

type TelemetryConfig struct {
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`
}

func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Addr:            ":8080",
		JWTSecret:       insecureJWTSecret,
		APITimeout:      15 * time.Second,
		TokenDuration:   1 * time.Hour,
		PersistenceMode: "DIRECT",
		Store: StoreConfig{
			Driver:       "sqlite",
			DatabasePath: "talentmatch.db",
		},
		PubSub: PubSubConfig{Driver: "log"},
		Worker: WorkerConfig{
			Count:        1,
			BatchSize:    10,
			MaxAttempts:  5,
			PollInterval: 500 * time.Millisecond,
		},
		Janitor: JanitorConfig{
			Schedule:  "@every 1h",
			Retention: 24 * time.Hour,
		},
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ParseEnv applies TM_* environment variables to target.
func ParseEnv(target any) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: "TM_"}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks the settings the processes cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_secret is required"))
	} else if c.JWTSecret == insecureJWTSecret && !isDevelopment() {
		errs = append(errs, errors.New("jwt_secret uses the insecure default; set TM_JWT_SECRET or TM_ENV=development"))
	}
	if c.TokenDuration <= 0 {
		errs = append(errs, errors.New("token_duration must be positive"))
	}

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.DatabasePath == "" {
			errs = append(errs, errors.New("store.database_path is required"))
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("store.database_url is required for the postgres driver"))
		}
		if c.Store.DatabasePath == "" {
			errs = append(errs, errors.New("store.database_path is required for the job queue"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}

	switch c.PubSub.Driver {
	case "redis", "nats":
		if c.PubSub.URL == "" {
			errs = append(errs, fmt.Errorf("pubsub.url is required for the %s driver", c.PubSub.Driver))
		}
	case "log":
	default:
		errs = append(errs, fmt.Errorf("unknown pubsub.driver %q", c.PubSub.Driver))
	}

	if c.Worker.Count < 1 {
		errs = append(errs, errors.New("worker.count must be at least 1"))
	}
	if c.Worker.MaxAttempts < 1 {
		errs = append(errs, errors.New("worker.max_attempts must be at least 1"))
	}
	return errors.Join(errs...)
}

func isDevelopment() bool {
	return strings.EqualFold(getEnv("TM_ENV", "production"), "development")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}
