// Package config handles configuration loading for the as4d daemon.
//
// Configuration is loaded from a YAML file with support for environment
// variable expansion (${VAR} or $VAR syntax), so credentials such as the
// MongoDB URI can be injected at runtime.
//
// # Configuration Sections
//
//   - server: HTTP server settings (port, path, TLS)
//   - profile: AS4 profile the P-Modes are validated against
//   - pmodes: P-Mode sources (YAML files and/or MongoDB)
//   - reliability: retry backoff and duplicate detection tuning
//   - logging: slog level and handler format
//
// # Example Configuration
//
//	server:
//	  port: 8443
//	  path: /as4
//	  tls:
//	    enabled: true
//	    certFile: /etc/ssl/server.crt
//	    keyFile: /etc/ssl/server.key
//
//	profile: esens
//
//	pmodes:
//	  files:
//	    - /etc/as4d/pmodes.yaml
//	  mongodb:
//	    uri: ${MONGODB_URI}
//	    database: as4
//
//	reliability:
//	  increaseFactor: 2
//	  duplicateDisposal: 10m
//
// See [Load] for loading configuration from a file.
package config

import (
	"fmt"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Defaults applied by [Load] to unset fields
const (
	DefaultPort              = 8443
	DefaultPath              = "/as4"
	DefaultProfile           = "esens"
	DefaultDatabase          = "as4"
	DefaultCollection        = "pmodes"
	DefaultIncreaseFactor    = 1.0
	DefaultDuplicateDisposal = 10 * time.Minute
	DefaultSweepInterval     = time.Minute
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

// Config is the root configuration structure
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Profile     string            `yaml:"profile"`
	PModes      PModeConfig       `yaml:"pmodes"`
	Reliability ReliabilityConfig `yaml:"reliability"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port         int       `yaml:"port"`
	Path         string    `yaml:"path"`
	MaxBodyBytes int64     `yaml:"maxBodyBytes"`
	TLS          TLSConfig `yaml:"tls"`
}

// TLSConfig holds the server certificate
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"certFile"`
	KeyFile  string `yaml:"keyFile"`
}

// PModeConfig lists where processing modes are loaded from
type PModeConfig struct {
	Files   []string       `yaml:"files"`
	MongoDB *MongoDBConfig `yaml:"mongodb"`
}

// MongoDBConfig holds MongoDB connection settings
type MongoDBConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// ReliabilityConfig tunes retries and duplicate detection
type ReliabilityConfig struct {
	// IncreaseFactor multiplies the retry wait after the second attempt
	IncreaseFactor float64 `yaml:"increaseFactor"`
	// DuplicateDisposal is how long received message IDs are remembered.
	// A negative value disables disposal.
	DuplicateDisposal time.Duration `yaml:"duplicateDisposal"`
	SweepInterval     time.Duration `yaml:"sweepInterval"`
	// ReplayReceipts answers duplicates with the original receipt
	ReplayReceipts bool `yaml:"replayReceipts"`
	// DumpDir, if set, receives a copy of every outgoing request
	DumpDir string `yaml:"dumpDir"`
}

// DisposalWindow returns the window handed to the duplicate store; zero
// means records are never disposed.
func (r ReliabilityConfig) DisposalWindow() time.Duration {
	if r.DuplicateDisposal < 0 {
		return 0
	}
	return r.DuplicateDisposal
}

// LoggingConfig selects the slog handler
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse expands, decodes, defaults and validates a YAML document
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.Path == "" {
		c.Server.Path = DefaultPath
	}
	if c.Profile == "" {
		c.Profile = DefaultProfile
	}
	if m := c.PModes.MongoDB; m != nil {
		if m.Database == "" {
			m.Database = DefaultDatabase
		}
		if m.Collection == "" {
			m.Collection = DefaultCollection
		}
	}
	if c.Reliability.IncreaseFactor == 0 {
		c.Reliability.IncreaseFactor = DefaultIncreaseFactor
	}
	if c.Reliability.DuplicateDisposal == 0 {
		c.Reliability.DuplicateDisposal = DefaultDuplicateDisposal
	}
	if c.Reliability.SweepInterval == 0 {
		c.Reliability.SweepInterval = DefaultSweepInterval
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server),
		validation.Field(&c.Profile, validation.Required),
		validation.Field(&c.PModes),
		validation.Field(&c.Reliability),
		validation.Field(&c.Logging),
	)
}

// Validate checks the server section
func (s ServerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&s.Path, validation.Required),
		validation.Field(&s.MaxBodyBytes, validation.Min(int64(0))),
		validation.Field(&s.TLS),
	)
}

// Validate requires the key pair when TLS is enabled
func (t TLSConfig) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.CertFile, validation.When(t.Enabled, validation.Required)),
		validation.Field(&t.KeyFile, validation.When(t.Enabled, validation.Required)),
	)
}

// Validate requires at least one P-Mode source
func (p PModeConfig) Validate() error {
	if len(p.Files) == 0 && p.MongoDB == nil {
		return fmt.Errorf("at least one of files or mongodb is required")
	}
	return validation.ValidateStruct(&p,
		validation.Field(&p.Files, validation.Each(validation.Required)),
		validation.Field(&p.MongoDB),
	)
}

// Validate checks the MongoDB connection settings
func (m MongoDBConfig) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.URI, validation.Required),
		validation.Field(&m.Database, validation.Required),
		validation.Field(&m.Collection, validation.Required),
	)
}

// Validate checks the reliability tuning
func (r ReliabilityConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IncreaseFactor, validation.Min(0.0).Exclusive()),
		validation.Field(&r.SweepInterval, validation.Min(time.Duration(0)).Exclusive()),
	)
}

// Validate checks the logging section
func (l LoggingConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "error")),
		validation.Field(&l.Format, validation.In("text", "json")),
	)
}
