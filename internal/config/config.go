// Package config loads the quiz engine configuration.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/einsum/internal/check"
	"github.com/born-ml/einsum/internal/einsum"
	"github.com/born-ml/einsum/internal/parallel"
	"github.com/born-ml/einsum/internal/progress"
	"github.com/born-ml/einsum/internal/quiz"
)

// Config holds all engine configuration.
type Config struct {
	Check     CheckConfig         `yaml:"check"`
	Progress  progress.Thresholds `yaml:"progress"`
	Generator GeneratorConfig     `yaml:"generator"`
	Bank      BankConfig          `yaml:"bank"`
	Server    ServerConfig        `yaml:"server"`
	Engine    EngineConfig        `yaml:"engine"`
	Parallel  ParallelConfig      `yaml:"parallel"`
	Logging   LoggingConfig       `yaml:"logging"`
}

// CheckConfig configures the equivalence checker.
type CheckConfig struct {
	Tolerance float64 `yaml:"tolerance"`
}

// GeneratorConfig configures randomized test cases for code questions.
type GeneratorConfig struct {
	Seed     int64 `yaml:"seed"`  // negative: seed from the clock
	Cases    int   `yaml:"cases"` // zero disables generated cases
	MinDim   int   `yaml:"min_dim"`
	MaxDim   int   `yaml:"max_dim"`
	MaxValue int   `yaml:"max_value"`
}

// BankConfig locates the question bank.
type BankConfig struct {
	Path  string `yaml:"path"`  // empty: embedded default bank
	Watch bool   `yaml:"watch"` // reload Path on change while serving
}

// ServerConfig configures the HTTP adapter.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	ReadTimeout     string `yaml:"read_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64  `yaml:"max_body_bytes"` // zero disables the limit
	SessionTTL      string `yaml:"session_ttl"`    // idle time before a session expires
	MaxSessions     int    `yaml:"max_sessions"`   // zero: unlimited
}

// EngineConfig bounds the work of one evaluation. Zero selects the engine
// default; negative disables the limit.
type EngineConfig struct {
	MaxElements int `yaml:"max_elements"` // output elements
	MaxTerms    int `yaml:"max_terms"`    // multiply-adds across the output
}

// ParallelConfig configures evaluator fan-out.
type ParallelConfig struct {
	Enabled      bool `yaml:"enabled"`
	Workers      int  `yaml:"workers"` // zero: one per CPU
	MinChunkSize int  `yaml:"min_chunk_size"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	par := parallel.DefaultConfig()
	th := progress.DefaultThresholds()
	return &Config{
		Check:    CheckConfig{Tolerance: check.DefaultTolerance},
		Progress: th,
		Generator: GeneratorConfig{
			Seed:     -1,
			Cases:    3,
			MinDim:   2,
			MaxDim:   5,
			MaxValue: 9,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     "10s",
			ShutdownTimeout: "5s",
			MaxBodyBytes:    1 << 20,
			SessionTTL:      "30m",
			MaxSessions:     10000,
		},
		Engine: EngineConfig{
			MaxElements: einsum.DefaultMaxElements,
			MaxTerms:    einsum.DefaultMaxTerms,
		},
		Parallel: ParallelConfig{
			Enabled:      par.Enabled,
			MinChunkSize: par.MinChunkSize,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file over the defaults. A missing
// file yields the defaults. Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // Config is not secret
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("EINSUM_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid EINSUM_SEED %q: %w", v, err)
		}
		c.Generator.Seed = seed
	}
	if v := os.Getenv("EINSUM_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("EINSUM_BANK"); v != "" {
		c.Bank.Path = v
	}
	if v := os.Getenv("EINSUM_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Check.Tolerance < 0 || math.IsNaN(c.Check.Tolerance) || math.IsInf(c.Check.Tolerance, 0) {
		return fmt.Errorf("invalid check.tolerance: %v", c.Check.Tolerance)
	}
	if c.Progress.Promote < 0 || c.Progress.Demote < 0 {
		return fmt.Errorf("invalid progress thresholds: promote=%d demote=%d", c.Progress.Promote, c.Progress.Demote)
	}

	g := c.Generator
	if g.Cases < 0 {
		return fmt.Errorf("invalid generator.cases: %d", g.Cases)
	}
	if g.MinDim < 1 || g.MaxDim < g.MinDim {
		return fmt.Errorf("invalid generator dimension range [%d, %d]", g.MinDim, g.MaxDim)
	}
	if g.MaxValue < 0 {
		return fmt.Errorf("invalid generator.max_value: %d", g.MaxValue)
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is empty")
	}
	for name, d := range map[string]string{
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"server.session_ttl":      c.Server.SessionTTL,
	} {
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	if c.GetSessionTTL() <= 0 {
		return fmt.Errorf("invalid server.session_ttl: %s (must be positive)", c.Server.SessionTTL)
	}
	if c.Server.MaxBodyBytes < 0 || c.Server.MaxSessions < 0 {
		return fmt.Errorf("invalid server limits: max_body_bytes=%d max_sessions=%d", c.Server.MaxBodyBytes, c.Server.MaxSessions)
	}

	if c.Parallel.Workers < 0 || c.Parallel.MinChunkSize < 0 {
		return fmt.Errorf("invalid parallel settings: workers=%d min_chunk_size=%d", c.Parallel.Workers, c.Parallel.MinChunkSize)
	}

	if !slices.Contains(ValidLogLevels, c.Logging.Level) {
		return fmt.Errorf("invalid logging.level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}
	if !slices.Contains(ValidLogFormats, c.Logging.Format) {
		return fmt.Errorf("invalid logging.format: %s (valid: %v)", c.Logging.Format, ValidLogFormats)
	}
	return nil
}

// Valid logging settings.
var (
	ValidLogLevels  = []string{"debug", "info", "warn", "error"}
	ValidLogFormats = []string{"json", "console"}
)

// GetReadTimeout returns the server read timeout as a duration.
func (c *Config) GetReadTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ReadTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetShutdownTimeout returns the graceful shutdown timeout as a duration.
func (c *Config) GetShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// GetSessionTTL returns the idle session lifetime as a duration.
func (c *Config) GetSessionTTL() time.Duration {
	d, err := time.ParseDuration(c.Server.SessionTTL)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}

// ResolveSeed returns the configured seed, or a clock-derived one when the
// seed is negative.
func (c *Config) ResolveSeed() int64 {
	if c.Generator.Seed >= 0 {
		return c.Generator.Seed
	}
	return time.Now().UnixNano()
}

// Evaluator builds an evaluator with the configured parallelism and limits.
func (c *Config) Evaluator() *einsum.Evaluator {
	cfg := parallel.DefaultConfig()
	cfg.Enabled = c.Parallel.Enabled
	if c.Parallel.Workers > 0 {
		cfg.NumWorkers = c.Parallel.Workers
	}
	cfg.MinChunkSize = c.Parallel.MinChunkSize
	return &einsum.Evaluator{
		Parallel:    cfg,
		MaxElements: c.Engine.MaxElements,
		MaxTerms:    c.Engine.MaxTerms,
	}
}

// Checker builds the equivalence checker.
func (c *Config) Checker() check.Checker {
	return check.Checker{Tolerance: c.Check.Tolerance}
}

// NewGenerator builds a test-case generator seeded with seed, or nil when
// generated cases are disabled.
func (c *Config) NewGenerator(seed int64) *quiz.Generator {
	if c.Generator.Cases == 0 {
		return nil
	}
	g := quiz.NewGenerator(seed, c.Generator.Cases)
	g.MinDim = c.Generator.MinDim
	g.MaxDim = c.Generator.MaxDim
	g.MaxValue = c.Generator.MaxValue
	return g
}

// Runner builds a test-case runner. The runner owns its generator and must
// not be shared between goroutines when generated cases are enabled.
func (c *Config) Runner(seed int64) *quiz.Runner {
	return &quiz.Runner{
		Evaluator: c.Evaluator(),
		Checker:   c.Checker(),
		Generator: c.NewGenerator(seed),
	}
}
