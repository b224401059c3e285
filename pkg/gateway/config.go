package gateway

import "time"

// Config holds settings for the remote submission endpoint.
type Config struct {
	// Endpoint is the submission URL, e.g. https://pqrs.example.gov.co/api/pqrs/sync
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	// Secret signs the bearer token sent with every request. Empty disables auth.
	Secret string `yaml:"secret" json:"-"`
	// Timeout is the per-request timeout
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// TokenTTL is the lifetime of each signed bearer token
	TokenTTL time.Duration `yaml:"token_ttl" json:"token_ttl"`
	// CircuitFailureThreshold opens circuit after this many consecutive failures
	CircuitFailureThreshold int `yaml:"circuit_failure_threshold" json:"circuit_failure_threshold"`
	// CircuitReset is the duration after which the circuit attempts to half-open
	CircuitReset time.Duration `yaml:"circuit_reset" json:"circuit_reset"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Endpoint:                "http://localhost:8080/api/pqrs/sync",
		Timeout:                 15 * time.Second,
		TokenTTL:                5 * time.Minute,
		CircuitFailureThreshold: 5,
		CircuitReset:            30 * time.Second,
	}
}
