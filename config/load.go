package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads a configuration file, layering it over the defaults. The format
// is chosen by extension: .yaml/.yml parse as YAML, everything else as JSON.
// Environment overrides apply after the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse yaml config %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse json config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// FromEnv builds a configuration from defaults plus environment overrides,
// for deployments that ship no config file.
func FromEnv() (*Config, error) {
	cfg := Default()
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// applyEnv layers environment variables over cfg. Only variables that are
// set override; empty values are ignored.
func applyEnv(cfg *Config) {
	setString(&cfg.Service.Environment, "AAN_ENVIRONMENT")
	setString(&cfg.Logging.Level, "AAN_LOG_LEVEL")
	setString(&cfg.Logging.Format, "AAN_LOG_FORMAT")
	setBool(&cfg.Logging.Mirror, "AAN_LOG_MIRROR")

	if urls := os.Getenv("NATS_URL"); urls != "" {
		cfg.NATS.URLs = strings.Split(urls, ",")
	}
	setString(&cfg.NATS.Username, "NATS_USERNAME")
	setString(&cfg.NATS.Password, "NATS_PASSWORD")
	setString(&cfg.NATS.Token, "NATS_TOKEN")
	setString(&cfg.NATS.Subject, "AAN_SUBJECT")

	setString(&cfg.Storage.Mode, "AAN_STORAGE_MODE")
	setString(&cfg.Storage.Bucket, "AAN_STORAGE_BUCKET")
	setString(&cfg.Storage.Table, "AAN_DYNAMO_TABLE")
	setString(&cfg.Storage.Region, "AWS_REGION")
	setString(&cfg.Storage.Endpoint, "DYNAMO_ENDPOINT")

	setBool(&cfg.Gateway.Enabled, "AAN_GATEWAY_ENABLED")
	setString(&cfg.Gateway.Addr, "AAN_GATEWAY_ADDR")
	setBool(&cfg.Metrics.Enabled, "AAN_METRICS_ENABLED")
	setString(&cfg.Metrics.Addr, "AAN_METRICS_ADDR")

	setBool(&cfg.Portal.Enabled, "AAN_PORTAL_ENABLED")
	setString(&cfg.Portal.Subject, "AAN_PORTAL_SUBJECT")
	setDuration(&cfg.Portal.Debounce, "AAN_PORTAL_DEBOUNCE")
	setBool(&cfg.Console.Enabled, "AAN_CONSOLE_ENABLED")
	setString(&cfg.Console.Subject, "AAN_CONSOLE_SUBJECT")
	setDuration(&cfg.Console.NavPoll, "AAN_CONSOLE_NAV_POLL")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			*dst = parsed
		}
	}
}

func setDuration(dst *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = Duration(parsed)
		}
	}
}
