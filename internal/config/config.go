package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/garnizeh/pqrs/pkg/gateway"
	"gopkg.in/yaml.v3"
)

// insecureJWTSecret is the built-in default, accepted only in development.
const insecureJWTSecret = "supersecretkey"

type Config struct {
	Addr          string        `yaml:"addr"`
	JWTSecret     string        `yaml:"jwt_secret"`
	APITimeout    time.Duration `yaml:"timeout"`
	DatabasePath  string        `yaml:"database_path"`
	TokenDuration time.Duration `yaml:"token_duration"`

	// MigrateOnStart applies pending migrations before serving.
	MigrateOnStart bool       `yaml:"migrate_on_start"`
	Sync           SyncConfig `yaml:"sync"`
}

// SyncConfig covers the sync engine, its gateway and the connectivity probe.
type SyncConfig struct {
	Endpoint                string        `yaml:"endpoint"`
	Secret                  string        `yaml:"secret"`
	Timeout                 time.Duration `yaml:"timeout"`
	TokenTTL                time.Duration `yaml:"token_ttl"`
	Interval                time.Duration `yaml:"interval"`
	ProbeInterval           time.Duration `yaml:"probe_interval"`
	MaxAttempts             int           `yaml:"max_attempts"`
	CircuitFailureThreshold int           `yaml:"circuit_failure_threshold"`
	CircuitReset            time.Duration `yaml:"circuit_reset"`
}

// Gateway returns the client settings for pkg/gateway.
func (s SyncConfig) Gateway() gateway.Config {
	return gateway.Config{
		Endpoint:                s.Endpoint,
		Secret:                  s.Secret,
		Timeout:                 s.Timeout,
		TokenTTL:                s.TokenTTL,
		CircuitFailureThreshold: s.CircuitFailureThreshold,
		CircuitReset:            s.CircuitReset,
	}
}

func LoadConfig(path string) (*Config, error) {
	apiTimeout := 15 * time.Second
	tokenDuration := 1 * time.Hour

	cfg := &Config{
		Addr:           getEnv("PQRS_ADDR", ":8080"),
		JWTSecret:      getEnv("PQRS_JWT_SECRET", insecureJWTSecret),
		APITimeout:     apiTimeout,
		DatabasePath:   getEnv("PQRS_DATABASE_PATH", "pqrs.db"),
		TokenDuration:  tokenDuration,
		MigrateOnStart: getEnv("PQRS_MIGRATE_ON_START", "true") != "false",
		Sync: SyncConfig{
			Endpoint: os.Getenv("PQRS_SYNC_ENDPOINT"),
			Secret:   os.Getenv("PQRS_SYNC_SECRET"),
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

	return cfg, nil
}

// Development reports whether PQRS_ENV relaxes the secret checks.
func Development() bool {
	return strings.EqualFold(os.Getenv("PQRS_ENV"), "development")
}

// Validate checks required settings and fills sync defaults.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		errs = append(errs, errors.New("database_path is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_secret is required"))
	} else if c.JWTSecret == insecureJWTSecret && !Development() {
		errs = append(errs, errors.New("jwt_secret uses the insecure default; set PQRS_JWT_SECRET or PQRS_ENV=development"))
	}
	if c.APITimeout <= 0 {
		c.APITimeout = 15 * time.Second
	}
	if c.TokenDuration <= 0 {
		c.TokenDuration = time.Hour
	}

	if err := c.Sync.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Validate checks the sync settings and fills their defaults. It is split
// from Config.Validate for tools that only talk to the endpoint.
func (s *SyncConfig) Validate() error {
	var errs []error
	def := gateway.DefaultConfig()

	if s.Endpoint == "" {
		s.Endpoint = def.Endpoint
	}
	if u, err := url.ParseRequestURI(s.Endpoint); err != nil || u.Host == "" {
		errs = append(errs, fmt.Errorf("sync.endpoint %q is not an absolute URL", s.Endpoint))
	}
	if s.Secret == "" && !Development() {
		errs = append(errs, errors.New("sync.secret is required; set PQRS_SYNC_SECRET or PQRS_ENV=development"))
	}
	if s.Timeout <= 0 {
		s.Timeout = def.Timeout
	}
	if s.TokenTTL <= 0 {
		s.TokenTTL = def.TokenTTL
	}
	if s.Interval <= 0 {
		s.Interval = 30 * time.Second
	}
	if s.ProbeInterval <= 0 {
		s.ProbeInterval = 15 * time.Second
	}
	if s.MaxAttempts <= 0 {
		s.MaxAttempts = 5
	}
	if s.CircuitFailureThreshold <= 0 {
		s.CircuitFailureThreshold = def.CircuitFailureThreshold
	}
	if s.CircuitReset <= 0 {
		s.CircuitReset = def.CircuitReset
	}

	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}
