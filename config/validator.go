package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration and normalizes enum-valued fields in
// place. It fails on the first problem found.
func (c *Config) Validate() error {
	if c.Service.Name == "" {
		return errors.New("service.name is required")
	}

	if err := c.validateLogging(); err != nil {
		return fmt.Errorf("logging configuration: %w", err)
	}
	if err := c.validateStorage(); err != nil {
		return fmt.Errorf("storage configuration: %w", err)
	}
	if err := c.validateRetry("portal", c.Portal.Retry); err != nil {
		return err
	}
	if err := c.validateRetry("console", c.Console.Retry); err != nil {
		return err
	}

	if c.Portal.Enabled && len(c.NATS.URLs) == 0 {
		return errors.New("the portal pipeline requires a NATS connection for its snapshot feed (nats.urls)")
	}
	if c.Console.Enabled && len(c.NATS.URLs) == 0 {
		return errors.New("the console pipeline requires a NATS connection for its snapshot feed (nats.urls)")
	}

	if c.Gateway.Enabled && c.Gateway.Addr == "" {
		return errors.New("gateway.addr is required when the gateway is enabled")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return errors.New("metrics.addr is required when metrics are enabled")
	}

	return nil
}

func (c *Config) validateLogging() error {
	c.Logging.Level = normalizeMode(c.Logging.Level)
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}

	c.Logging.Format = normalizeMode(c.Logging.Format)
	switch c.Logging.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}

	if c.Logging.Mirror && len(c.NATS.URLs) == 0 {
		return errors.New("log mirroring requires a NATS connection (nats.urls)")
	}
	return nil
}

func (c *Config) validateStorage() error {
	c.Storage.Mode = normalizeMode(c.Storage.Mode)
	if !validStorageMode(c.Storage.Mode) {
		return fmt.Errorf("unknown storage mode %q (valid: %s)",
			c.Storage.Mode, strings.Join(storageModes(), ", "))
	}

	switch c.Storage.Mode {
	case StorageModeKV:
		if len(c.NATS.URLs) == 0 {
			return errors.New("kv storage requires a NATS connection (nats.urls)")
		}
		if c.Storage.Bucket == "" {
			return errors.New("kv storage requires storage.bucket")
		}
	case StorageModeDynamo:
		if c.Storage.Table == "" {
			return errors.New("dynamo storage requires storage.table")
		}
	}
	return nil
}

// validateRetry rejects partially-specified retry settings. All-zero means
// "use the pipeline preset" and is fine; anything else must stand alone as a
// valid configuration.
func (c *Config) validateRetry(pipeline string, r RetrySettings) error {
	zero := RetrySettings{}
	if r == zero {
		return nil
	}
	if r.MaxAttempts <= 0 {
		return fmt.Errorf("%s.retry.max_attempts must be positive", pipeline)
	}
	if r.InitialDelay < 0 || r.MaxDelay < 0 {
		return fmt.Errorf("%s.retry delays must not be negative", pipeline)
	}
	if r.MaxDelay < r.InitialDelay {
		return fmt.Errorf("%s.retry.max_delay must be >= initial_delay", pipeline)
	}
	if r.Multiplier <= 0 {
		return fmt.Errorf("%s.retry.multiplier must be positive", pipeline)
	}
	switch r.Backoff {
	case "", "exponential", "linear":
	default:
		return fmt.Errorf("%s.retry.backoff must be exponential or linear, got %q", pipeline, r.Backoff)
	}
	return nil
}
