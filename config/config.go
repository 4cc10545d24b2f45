package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jasonwadsworth/aws-account-name/pkg/retry"
)

// Storage mode constants
const (
	StorageModeMemory = "memory" // In-memory only, lost on restart
	StorageModeKV     = "kv"     // NATS JetStream key-value bucket
	StorageModeDynamo = "dynamo" // DynamoDB table
)

// Config is the complete resolver configuration.
type Config struct {
	Version string        `json:"version" yaml:"version"`
	Service ServiceConfig `json:"service" yaml:"service"`
	Logging LoggingConfig `json:"logging,omitempty" yaml:"logging,omitempty"`
	NATS    NATSConfig    `json:"nats,omitempty" yaml:"nats,omitempty"`
	Storage StorageConfig `json:"storage" yaml:"storage"`
	Portal  PortalConfig  `json:"portal,omitempty" yaml:"portal,omitempty"`
	Console ConsoleConfig `json:"console,omitempty" yaml:"console,omitempty"`
	Gateway GatewayConfig `json:"gateway,omitempty" yaml:"gateway,omitempty"`
	Metrics MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// ServiceConfig identifies this deployment.
type ServiceConfig struct {
	Name        string `json:"name" yaml:"name"`
	Environment string `json:"environment,omitempty" yaml:"environment,omitempty"` // "prod", "dev", "test"
}

// LoggingConfig controls local log output and the NATS log mirror.
type LoggingConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`   // debug, info, warn, error
	Format string `json:"format,omitempty" yaml:"format,omitempty"` // json or text
	Mirror bool   `json:"mirror,omitempty" yaml:"mirror,omitempty"` // publish entries to NATS
}

// NATSConfig defines NATS connection settings.
type NATSConfig struct {
	URLs           []string      `json:"urls,omitempty" yaml:"urls,omitempty"`
	MaxReconnects  int           `json:"max_reconnects,omitempty" yaml:"max_reconnects,omitempty"`
	ReconnectWait  Duration      `json:"reconnect_wait,omitempty" yaml:"reconnect_wait,omitempty"`
	ConnectTimeout Duration      `json:"connect_timeout,omitempty" yaml:"connect_timeout,omitempty"`
	Username       string        `json:"username,omitempty" yaml:"username,omitempty"`
	Password       string        `json:"password,omitempty" yaml:"password,omitempty"`
	Token          string        `json:"token,omitempty" yaml:"token,omitempty"`
	TLS            NATSTLSConfig `json:"tls,omitempty" yaml:"tls,omitempty"`
	Subject        string        `json:"subject,omitempty" yaml:"subject,omitempty"` // storage request subject
}

// NATSTLSConfig for secure NATS connections.
type NATSTLSConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	CertFile string `json:"cert_file,omitempty" yaml:"cert_file,omitempty"`
	KeyFile  string `json:"key_file,omitempty" yaml:"key_file,omitempty"`
	CAFile   string `json:"ca_file,omitempty" yaml:"ca_file,omitempty"`
}

// StorageConfig selects and parameterizes the account store backend.
type StorageConfig struct {
	Mode string `json:"mode" yaml:"mode"` // memory, kv, dynamo

	// KV mode
	Bucket string `json:"bucket,omitempty" yaml:"bucket,omitempty"`

	// Dynamo mode
	Table    string `json:"table,omitempty" yaml:"table,omitempty"`
	Region   string `json:"region,omitempty" yaml:"region,omitempty"`
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"` // local override
}

// RetrySettings is the wire form of a retry configuration.
type RetrySettings struct {
	MaxAttempts  int      `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	InitialDelay Duration `json:"initial_delay,omitempty" yaml:"initial_delay,omitempty"`
	MaxDelay     Duration `json:"max_delay,omitempty" yaml:"max_delay,omitempty"`
	Multiplier   float64  `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
	Backoff      string   `json:"backoff,omitempty" yaml:"backoff,omitempty"` // exponential or linear
}

// ToRetryConfig converts the settings, falling back to fallback for any
// invalid combination.
func (r RetrySettings) ToRetryConfig(fallback retry.Config) retry.Config {
	cfg := retry.Config{
		MaxAttempts:  r.MaxAttempts,
		InitialDelay: time.Duration(r.InitialDelay),
		MaxDelay:     time.Duration(r.MaxDelay),
		Multiplier:   r.Multiplier,
		Backoff:      retry.BackoffType(r.Backoff),
	}
	if !cfg.Validate() {
		return fallback
	}
	return cfg
}

// PortalConfig parameterizes the portal extraction pipeline. When enabled,
// the pipeline scrapes a document fed by snapshots on Subject.
type PortalConfig struct {
	Enabled  bool          `json:"enabled" yaml:"enabled"`
	Subject  string        `json:"subject,omitempty" yaml:"subject,omitempty"` // snapshot feed subject
	Retry    RetrySettings `json:"retry,omitempty" yaml:"retry,omitempty"`
	Debounce Duration      `json:"debounce,omitempty" yaml:"debounce,omitempty"`
}

// ConsoleConfig parameterizes the console display pipeline. When enabled,
// the pipeline observes a document fed by snapshots on Subject.
type ConsoleConfig struct {
	Enabled bool          `json:"enabled" yaml:"enabled"`
	Subject string        `json:"subject,omitempty" yaml:"subject,omitempty"` // snapshot feed subject
	Retry   RetrySettings `json:"retry,omitempty" yaml:"retry,omitempty"`
	NavPoll Duration      `json:"nav_poll,omitempty" yaml:"nav_poll,omitempty"`
}

// GatewayConfig controls the websocket display-update gateway.
type GatewayConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr,omitempty" yaml:"addr,omitempty"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// Default returns a configuration that runs fully in-process: memory
// storage, no NATS, gateway and metrics disabled.
func Default() *Config {
	return &Config{
		Version: "1.0.0",
		Service: ServiceConfig{
			Name:        "aws-account-name",
			Environment: "dev",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		NATS: NATSConfig{
			MaxReconnects:  10,
			ReconnectWait:  Duration(2 * time.Second),
			ConnectTimeout: Duration(5 * time.Second),
		},
		Storage: StorageConfig{
			Mode:   StorageModeMemory,
			Bucket: "aws-account-names",
		},
		Gateway: GatewayConfig{
			Addr: ":8090",
			Path: "/updates",
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
	}
}

// Clone deep copies the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}
	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}
	return &clone
}

// Duration wraps time.Duration so config files can write "500ms" or "5s" in
// both JSON and YAML. Bare numbers are read as nanoseconds.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	return d.decode(v)
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	return d.decode(v)
}

func (d *Duration) decode(v any) error {
	switch val := v.(type) {
	case string:
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", val, err)
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(time.Duration(val))
	case int:
		*d = Duration(time.Duration(val))
	case int64:
		*d = Duration(time.Duration(val))
	default:
		return fmt.Errorf("invalid duration type %T", v)
	}
	return nil
}

// String renders the duration in time.Duration notation.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// storageModes is the set of accepted storage mode values.
func storageModes() []string {
	return []string{StorageModeMemory, StorageModeKV, StorageModeDynamo}
}

func validStorageMode(mode string) bool {
	for _, m := range storageModes() {
		if mode == m {
			return true
		}
	}
	return false
}

// normalizeMode lowercases and trims a mode value for comparison.
func normalizeMode(mode string) string {
	return strings.ToLower(strings.TrimSpace(mode))
}
