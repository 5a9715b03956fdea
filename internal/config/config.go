// Package config implements the correlator's process-wide configuration
// (spec §6 Configuration), grounded on the teacher's three-layer priority
// from core/config.go: defaults, then environment variables, then
// functional options — each layer strictly overriding the one before it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sec-correlate/correlator/internal/predicate"
	"github.com/sec-correlate/correlator/internal/rule"
)

// Config holds every process-wide option named in spec §6.
type Config struct {
	// RetentionWindow bounds how long an admitted event is kept in the
	// window store after ingest, regardless of any rule's own window
	// (spec §6 retention_window, default 3600s).
	RetentionWindow time.Duration `env:"CORRELATOR_RETENTION_WINDOW" default:"3600s"`

	// MaxDecisionGraphs bounds the decision graph recorder's ring buffer
	// (spec §6 max_decision_graphs, default 512).
	MaxDecisionGraphs int `env:"CORRELATOR_MAX_DECISION_GRAPHS" default:"512"`

	// MaxAlertsInMemory bounds the alert generator's ring buffer (spec §6
	// max_alerts_in_memory, default 500).
	MaxAlertsInMemory int `env:"CORRELATOR_MAX_ALERTS_IN_MEMORY" default:"500"`

	// DefaultCount and DefaultWindow are projected by RuleDefaults() into
	// the rule.Defaults used for any condition that omits its own
	// count/window (spec §6 default_count ">=1", default_window 60s). They
	// have no environment variable.
	DefaultCount  rule.Count
	DefaultWindow int

	// DefaultConfidence is used when neither a rule's action nor the rule
	// itself sets a confidence value (spec §6 default_confidence, default
	// 0.75).
	DefaultConfidence float64 `env:"CORRELATOR_DEFAULT_CONFIDENCE" default:"0.75"`

	// InputQueueSize bounds the single-writer input queue (spec §5).
	InputQueueSize int `env:"CORRELATOR_INPUT_QUEUE_SIZE" default:"1024"`

	// DrainDeadline bounds how long stop() waits for the input queue to
	// drain before abandoning remaining events (spec §5, default 5s).
	DrainDeadline time.Duration `env:"CORRELATOR_DRAIN_DEADLINE" default:"5s"`

	// ServiceName and OTLPEndpoint configure the telemetry provider.
	// OTLPEndpoint empty means "export spans to stdout" (local/dev
	// default), matching SPEC_FULL.md §2's dual-exporter rationale.
	ServiceName  string `env:"CORRELATOR_SERVICE_NAME" default:"correlator"`
	OTLPEndpoint string `env:"CORRELATOR_OTLP_ENDPOINT,OTEL_EXPORTER_OTLP_ENDPOINT"`

	// RedisURL configures the optional RedisStreamSink (SPEC_FULL.md §2).
	// Empty means the sink is not registered.
	RedisURL    string `env:"CORRELATOR_REDIS_URL,REDIS_URL"`
	RedisStream string `env:"CORRELATOR_REDIS_STREAM" default:"correlator:alerts"`

	// LogLevel and LogFormat configure internal/logging.NewProductionLogger.
	LogLevel  string `env:"CORRELATOR_LOG_LEVEL" default:"info"`
	LogFormat string `env:"CORRELATOR_LOG_FORMAT" default:"json"`
}

// Option is a functional option, applied after environment variables and
// before validation — the highest-priority layer (spec §6, teacher's
// core/config.go three-layer model).
type Option func(*Config) error

// DefaultConfig returns the spec §6 defaults.
func DefaultConfig() *Config {
	return &Config{
		RetentionWindow:   3600 * time.Second,
		MaxDecisionGraphs: 512,
		MaxAlertsInMemory: 500,
		DefaultCount:      rule.Count{Op: predicate.CmpGE, Value: 1},
		DefaultWindow:     60,
		DefaultConfidence: 0.75,
		InputQueueSize:    1024,
		DrainDeadline:     5 * time.Second,
		ServiceName:       "correlator",
		RedisStream:       "correlator:alerts",
		LogLevel:          "info",
		LogFormat:         "json",
	}
}

// LoadFromEnv overlays environment variables onto c, following the
// GOMIND-style env-var precedence pattern from the teacher: a
// framework-specific variable wins over a generic fallback when both are
// set.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("CORRELATOR_RETENTION_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: CORRELATOR_RETENTION_WINDOW: %w", err)
		}
		c.RetentionWindow = d
	}
	if v := os.Getenv("CORRELATOR_MAX_DECISION_GRAPHS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: CORRELATOR_MAX_DECISION_GRAPHS: %w", err)
		}
		c.MaxDecisionGraphs = n
	}
	if v := os.Getenv("CORRELATOR_MAX_ALERTS_IN_MEMORY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: CORRELATOR_MAX_ALERTS_IN_MEMORY: %w", err)
		}
		c.MaxAlertsInMemory = n
	}
	if v := os.Getenv("CORRELATOR_DEFAULT_CONFIDENCE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: CORRELATOR_DEFAULT_CONFIDENCE: %w", err)
		}
		c.DefaultConfidence = f
	}
	if v := os.Getenv("CORRELATOR_INPUT_QUEUE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: CORRELATOR_INPUT_QUEUE_SIZE: %w", err)
		}
		c.InputQueueSize = n
	}
	if v := os.Getenv("CORRELATOR_DRAIN_DEADLINE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: CORRELATOR_DRAIN_DEADLINE: %w", err)
		}
		c.DrainDeadline = d
	}
	if v := os.Getenv("CORRELATOR_SERVICE_NAME"); v != "" {
		c.ServiceName = v
	}
	if v := os.Getenv("CORRELATOR_OTLP_ENDPOINT"); v != "" {
		c.OTLPEndpoint = v
	} else if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.OTLPEndpoint = v
	}
	if v := os.Getenv("CORRELATOR_REDIS_URL"); v != "" {
		c.RedisURL = v
	} else if v := os.Getenv("REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	if v := os.Getenv("CORRELATOR_REDIS_STREAM"); v != "" {
		c.RedisStream = v
	}
	if v := os.Getenv("CORRELATOR_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("CORRELATOR_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	return nil
}

// Validate checks invariants the core requires before it will start.
func (c *Config) Validate() error {
	if c.RetentionWindow <= 0 {
		return fmt.Errorf("config: retention_window must be positive")
	}
	if c.MaxDecisionGraphs <= 0 {
		return fmt.Errorf("config: max_decision_graphs must be positive")
	}
	if c.MaxAlertsInMemory <= 0 {
		return fmt.Errorf("config: max_alerts_in_memory must be positive")
	}
	if c.DefaultWindow <= 0 {
		return fmt.Errorf("config: default_window must be positive")
	}
	if c.DefaultConfidence < 0 || c.DefaultConfidence > 1 {
		return fmt.Errorf("config: default_confidence must be within [0,1]")
	}
	if c.InputQueueSize <= 0 {
		return fmt.Errorf("config: input_queue_size must be positive")
	}
	if c.DrainDeadline <= 0 {
		return fmt.Errorf("config: drain_deadline must be positive")
	}
	return nil
}

// New applies opts over the environment-overlaid defaults and validates
// the result, mirroring the teacher's NewConfig layering order.
func New(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("config: apply option: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// WithRetentionWindow overrides the retention window.
func WithRetentionWindow(d time.Duration) Option {
	return func(c *Config) error {
		if d <= 0 {
			return fmt.Errorf("retention window must be positive")
		}
		c.RetentionWindow = d
		return nil
	}
}

// WithMaxDecisionGraphs overrides the decision graph ring capacity.
func WithMaxDecisionGraphs(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return fmt.Errorf("max decision graphs must be positive")
		}
		c.MaxDecisionGraphs = n
		return nil
	}
}

// WithMaxAlertsInMemory overrides the alert ring capacity.
func WithMaxAlertsInMemory(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return fmt.Errorf("max alerts in memory must be positive")
		}
		c.MaxAlertsInMemory = n
		return nil
	}
}

// WithDefaultCount overrides the fallback count predicate for conditions
// that omit one.
func WithDefaultCount(count rule.Count) Option {
	return func(c *Config) error {
		c.DefaultCount = count
		return nil
	}
}

// WithDefaultWindow overrides the fallback window, in seconds, for
// conditions that omit one.
func WithDefaultWindow(seconds int) Option {
	return func(c *Config) error {
		if seconds <= 0 {
			return fmt.Errorf("default window must be positive")
		}
		c.DefaultWindow = seconds
		return nil
	}
}

// WithDefaultConfidence overrides the fallback alert confidence.
func WithDefaultConfidence(confidence float64) Option {
	return func(c *Config) error {
		if confidence < 0 || confidence > 1 {
			return fmt.Errorf("default confidence must be within [0,1]")
		}
		c.DefaultConfidence = confidence
		return nil
	}
}

// WithInputQueueSize overrides the input queue capacity.
func WithInputQueueSize(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return fmt.Errorf("input queue size must be positive")
		}
		c.InputQueueSize = n
		return nil
	}
}

// WithDrainDeadline overrides how long stop() waits for a graceful drain.
func WithDrainDeadline(d time.Duration) Option {
	return func(c *Config) error {
		if d <= 0 {
			return fmt.Errorf("drain deadline must be positive")
		}
		c.DrainDeadline = d
		return nil
	}
}

// WithTelemetry configures the service name and OTLP endpoint.
func WithTelemetry(serviceName, otlpEndpoint string) Option {
	return func(c *Config) error {
		if serviceName != "" {
			c.ServiceName = serviceName
		}
		c.OTLPEndpoint = otlpEndpoint
		return nil
	}
}

// WithRedisSink configures the optional Redis alert sink.
func WithRedisSink(url, stream string) Option {
	return func(c *Config) error {
		c.RedisURL = url
		if stream != "" {
			c.RedisStream = stream
		}
		return nil
	}
}

// WithLogging overrides the logger's level and format.
func WithLogging(level, format string) Option {
	return func(c *Config) error {
		if level != "" {
			c.LogLevel = level
		}
		if format != "" {
			c.LogFormat = format
		}
		return nil
	}
}

// RuleDefaults projects the relevant fields into a rule.Defaults value
// for rule.ParseDocument.
func (c *Config) RuleDefaults() rule.Defaults {
	return rule.Defaults{
		Count:  c.DefaultCount,
		Window: c.DefaultWindow,
	}
}
