// Package config loads the tracker configuration from an optional YAML file
// and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"vessel-track-lab/internal/aisstream"
	"vessel-track-lab/internal/domain"
)

// Environment variables recognized by ApplyEnv.
const (
	EnvOutputFile  = "AIS_OUTPUT_FILE"
	EnvAPIKey      = "AISSTREAM_API_KEY"
	EnvBoundingBox = "AIS_BBOX"
	EnvSinkKind    = "AIS_SINK_KIND"
	EnvSinkDSN     = "AIS_SINK_DSN"
)

// Sink kinds.
const (
	SinkFile       = "file"
	SinkPostgres   = "postgres"
	SinkClickhouse = "clickhouse"
	SinkSQLite     = "sqlite"
)

// FeedConfig configures the upstream subscription.
type FeedConfig struct {
	Endpoint string `yaml:"endpoint" validate:"required,url"`
	APIKey   string `yaml:"api_key" validate:"required"`
	// BoundingBoxes is a list of [[lat, lon], [lat, lon]] boxes.
	// Empty means domain.DefaultBoundingBox.
	BoundingBoxes    [][][]float64 `yaml:"bounding_boxes"`
	ShipMMSI         []string      `yaml:"ship_mmsi" validate:"dive,numeric"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" validate:"gte=0"`
	ReadTimeout      time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout     time.Duration `yaml:"write_timeout" validate:"gte=0"`
	PingInterval     time.Duration `yaml:"ping_interval" validate:"gte=0"`
}

// SinkConfig selects where snapshots are written.
type SinkConfig struct {
	Kind string `yaml:"kind" validate:"oneof=file postgres clickhouse sqlite"`
	// Path is the output file (file sink) or database file (sqlite sink).
	Path string `yaml:"path" validate:"required_if=Kind file,required_if=Kind sqlite"`
	DSN  string `yaml:"dsn" validate:"required_if=Kind postgres,required_if=Kind clickhouse"`
	// Name keys the snapshot row in database sinks.
	Name string `yaml:"name" validate:"required"`
	// BoundaryPath overrides where the bounding box artifact is written.
	BoundaryPath string `yaml:"boundary_path"`
}

// SnapshotConfig tunes the snapshot writer and track retention.
type SnapshotConfig struct {
	Interval     time.Duration `yaml:"interval" validate:"gte=0"`
	MaxPositions int           `yaml:"max_positions" validate:"gte=0"`
}

// ReconnectConfig is the feed reconnection policy.
type ReconnectConfig struct {
	Enabled      bool          `yaml:"enabled"`
	InitialDelay time.Duration `yaml:"initial_delay" validate:"gte=0"`
	MaxDelay     time.Duration `yaml:"max_delay" validate:"gte=0"`
	MaxRetries   int           `yaml:"max_retries" validate:"gte=0"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format" validate:"omitempty,oneof=console json"`
}

// Config is the root configuration structure.
type Config struct {
	Feed        FeedConfig      `yaml:"feed"`
	Sink        SinkConfig      `yaml:"sink"`
	Snapshot    SnapshotConfig  `yaml:"snapshot"`
	Reconnect   ReconnectConfig `yaml:"reconnect"`
	Log         LogConfig       `yaml:"log"`
	MetricsAddr string          `yaml:"metrics_addr"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Feed: FeedConfig{
			Endpoint:         aisstream.DefaultEndpoint,
			HandshakeTimeout: 10 * time.Second,
			ReadTimeout:      60 * time.Second,
			WriteTimeout:     10 * time.Second,
			PingInterval:     30 * time.Second,
		},
		Sink: SinkConfig{
			Kind: SinkFile,
			Path: "./output.json",
			Name: "vessels",
		},
		Reconnect: ReconnectConfig{
			Enabled:      true,
			InitialDelay: 1 * time.Second,
			MaxDelay:     30 * time.Second,
			MaxRetries:   10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		MetricsAddr: ":9090",
	}
}

// Read layers the YAML file at path over the defaults (an empty path skips
// the file) and applies environment overrides. The result is not validated,
// so callers can apply further overrides before calling Validate.
func Read(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Load is Read followed by Validate.
func Load(path string) (Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvOutputFile); ok && v != "" {
		c.Sink.Path = v
	}
	if v, ok := lookup(EnvAPIKey); ok && v != "" {
		c.Feed.APIKey = v
	}
	if v, ok := lookup(EnvSinkKind); ok && v != "" {
		c.Sink.Kind = v
	}
	if v, ok := lookup(EnvSinkDSN); ok && v != "" {
		c.Sink.DSN = v
	}
	if v, ok := lookup(EnvBoundingBox); ok && v != "" {
		box, err := domain.ParseBoundingBox(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvBoundingBox, err)
		}
		c.Feed.BoundingBoxes = [][][]float64{{
			{box.SouthWest.Lat, box.SouthWest.Lon},
			{box.NorthEast.Lat, box.NorthEast.Lon},
		}}
	}
	return nil
}

// Validate checks struct constraints and bounding boxes.
func (c Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid config: %s failed %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if _, err := c.BoundingBoxes(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// BoundingBoxes returns the configured subscription boxes, or the default
// region when none are set.
func (c Config) BoundingBoxes() ([]domain.BoundingBox, error) {
	if len(c.Feed.BoundingBoxes) == 0 {
		return []domain.BoundingBox{domain.DefaultBoundingBox}, nil
	}

	boxes := make([]domain.BoundingBox, 0, len(c.Feed.BoundingBoxes))
	for _, pairs := range c.Feed.BoundingBoxes {
		box, err := domain.BoundingBoxFromPairs(pairs)
		if err != nil {
			return nil, err
		}
		boxes = append(boxes, box)
	}
	return boxes, nil
}

// BoundaryPath returns where the boundary artifact is written. File and
// sqlite sinks default to "<path>_bbox.json"; database sinks default to
// "<name>_bbox.json" in the working directory.
func (c Config) BoundaryPath() string {
	if c.Sink.BoundaryPath != "" {
		return c.Sink.BoundaryPath
	}
	switch c.Sink.Kind {
	case SinkFile, SinkSQLite:
		if c.Sink.Path != "" {
			return c.Sink.Path + "_bbox.json"
		}
	case SinkPostgres, SinkClickhouse:
		if c.Sink.Name != "" {
			return c.Sink.Name + "_bbox.json"
		}
	}
	return ""
}
