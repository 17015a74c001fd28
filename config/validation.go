package config

import (
	"strings"
	"time"

	"github.com/entropix/entropy-certify/internal/domain/chunker"
	"github.com/entropix/entropy-certify/internal/domain/model"
)

// ValidationConfig groups admission, worker pool, chunking, and executor settings.
type ValidationConfig struct {
	// AdmissionLimit caps non-terminal jobs per submitter.
	AdmissionLimit int `env:"VALIDATION_ADMISSION_LIMIT" envDefault:"3"`

	// Workers is the number of concurrent validation workers.
	Workers int `env:"VALIDATION_WORKERS" envDefault:"2"`

	// QueueCapacity bounds accepted-but-unstarted jobs across all submitters.
	QueueCapacity int `env:"VALIDATION_QUEUE_CAPACITY" envDefault:"10"`

	// ChunkTimeout bounds one executor call.
	ChunkTimeout time.Duration `env:"VALIDATION_CHUNK_TIMEOUT" envDefault:"10m"`

	SuiteA ChunkPolicyConfig `envPrefix:"VALIDATION_SUITE_A_"`
	SuiteB ChunkPolicyConfig `envPrefix:"VALIDATION_SUITE_B_"`

	Executors ExecutorConfig `envPrefix:"EXECUTOR_"`
}

// ChunkPolicyConfig is the env-facing shape of one suite's chunk policy.
type ChunkPolicyConfig struct {
	MaxChunkBytes int `env:"MAX_CHUNK_BYTES"`
	MinChunkBytes int `env:"MIN_CHUNK_BYTES"`
	MinBits       int `env:"MIN_BITS"`
}

// Policy converts the config into the domain policy.
func (c ChunkPolicyConfig) Policy() chunker.Policy {
	return chunker.Policy{
		MaxChunkBytes: c.MaxChunkBytes,
		MinChunkBytes: c.MinChunkBytes,
		MinBits:       c.MinBits,
	}
}

// ExecutorConfig holds the endpoints and credentials of the external test engines.
type ExecutorConfig struct {
	SuiteAURL string `env:"SUITE_A_URL" envDefault:"http://localhost:9401"`
	SuiteBURL string `env:"SUITE_B_URL" envDefault:"http://localhost:9402"`

	// StaticToken short-circuits OAuth for local development.
	StaticToken string `env:"STATIC_TOKEN"`

	Auth ExecutorAuthConfig `envPrefix:"AUTH_"`
}

// ExecutorAuthConfig drives the client-credentials token supplier. When
// IssuerURL is set the token endpoint is resolved through OIDC discovery;
// otherwise TokenURL is used directly.
type ExecutorAuthConfig struct {
	IssuerURL    string   `env:"ISSUER_URL"`
	TokenURL     string   `env:"TOKEN_URL"`
	ClientID     string   `env:"CLIENT_ID"`
	ClientSecret string   `env:"CLIENT_SECRET"`
	Scopes       []string `env:"SCOPES" envSeparator:","`
}

// Enabled reports whether client-credentials auth is configured.
func (c ExecutorAuthConfig) Enabled() bool {
	return c.ClientID != "" && (c.IssuerURL != "" || c.TokenURL != "")
}

// Defaults for the two suites: suite_a runs a statistical battery over
// 125 KB blocks with a 1 Mbit floor; suite_b estimates min-entropy over
// 1 MB blocks with an 8 Mbit floor.
const (
	defaultSuiteAMaxChunkBytes = 125000
	defaultSuiteAMinChunkBytes = 31250
	defaultSuiteAMinBits       = 1000000

	defaultSuiteBMaxChunkBytes = 1000000
	defaultSuiteBMinChunkBytes = 100000
	defaultSuiteBMinBits       = 8000000
)

// Sanitize applies guardrails to validation configuration values.
func (c *ValidationConfig) Sanitize() {
	if c.AdmissionLimit <= 0 {
		c.AdmissionLimit = 3
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 10
	}
	if c.ChunkTimeout <= 0 {
		c.ChunkTimeout = 10 * time.Minute
	}

	if c.SuiteA.MaxChunkBytes <= 0 {
		c.SuiteA = ChunkPolicyConfig{
			MaxChunkBytes: defaultSuiteAMaxChunkBytes,
			MinChunkBytes: defaultSuiteAMinChunkBytes,
			MinBits:       defaultSuiteAMinBits,
		}
	}
	if c.SuiteB.MaxChunkBytes <= 0 {
		c.SuiteB = ChunkPolicyConfig{
			MaxChunkBytes: defaultSuiteBMaxChunkBytes,
			MinChunkBytes: defaultSuiteBMinChunkBytes,
			MinBits:       defaultSuiteBMinBits,
		}
	}

	c.Executors.SuiteAURL = strings.TrimRight(strings.TrimSpace(c.Executors.SuiteAURL), "/")
	c.Executors.SuiteBURL = strings.TrimRight(strings.TrimSpace(c.Executors.SuiteBURL), "/")
}

// Policies returns the per-suite chunk policies keyed by validation type.
func (c *ValidationConfig) Policies() map[model.ValidationType]chunker.Policy {
	return map[model.ValidationType]chunker.Policy{
		model.ValidationTypeSuiteA: c.SuiteA.Policy(),
		model.ValidationTypeSuiteB: c.SuiteB.Policy(),
	}
}
