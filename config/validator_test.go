package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := Default()
	cfg.Service.Name = "resolver"
	return cfg
}

func TestValidateRequiresServiceName(t *testing.T) {
	cfg := validConfig()
	cfg.Service.Name = ""
	assert.ErrorContains(t, cfg.Validate(), "service.name")
}

func TestValidateNormalizesStorageMode(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Mode = "  MEMORY "
	require.NoError(t, cfg.Validate())
	assert.Equal(t, StorageModeMemory, cfg.Storage.Mode)
}

func TestValidateRejectsUnknownStorageMode(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Mode = "redis"
	assert.ErrorContains(t, cfg.Validate(), "unknown storage mode")
}

func TestValidateKVNeedsNATS(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Mode = StorageModeKV

	assert.ErrorContains(t, cfg.Validate(), "kv storage requires a NATS connection")

	cfg.NATS.URLs = []string{"nats://localhost:4222"}
	assert.NoError(t, cfg.Validate())
}

func TestValidateDynamoNeedsTable(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Mode = StorageModeDynamo
	assert.ErrorContains(t, cfg.Validate(), "storage.table")
}

func TestValidateRejectsPartialRetry(t *testing.T) {
	cfg := validConfig()
	cfg.Portal.Retry.MaxAttempts = 0
	cfg.Portal.Retry.Multiplier = 2.0
	assert.ErrorContains(t, cfg.Validate(), "portal.retry.max_attempts")
}

func TestValidateRejectsInvertedDelays(t *testing.T) {
	cfg := validConfig()
	cfg.Console.Retry = RetrySettings{
		MaxAttempts:  3,
		InitialDelay: Duration(5000),
		MaxDelay:     Duration(1000),
		Multiplier:   2.0,
	}
	assert.ErrorContains(t, cfg.Validate(), "max_delay")
}

func TestValidateRejectsUnknownBackoff(t *testing.T) {
	cfg := validConfig()
	cfg.Console.Retry = RetrySettings{
		MaxAttempts:  3,
		InitialDelay: Duration(1000),
		MaxDelay:     Duration(5000),
		Multiplier:   2.0,
		Backoff:      "fibonacci",
	}
	assert.ErrorContains(t, cfg.Validate(), "backoff")
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "verbose"
	assert.ErrorContains(t, cfg.Validate(), "log level")
}

func TestValidateMirrorNeedsNATS(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Mirror = true
	assert.ErrorContains(t, cfg.Validate(), "log mirroring")

	cfg.NATS.URLs = []string{"nats://localhost:4222"}
	assert.NoError(t, cfg.Validate())
}

func TestValidateGatewayNeedsAddr(t *testing.T) {
	cfg := validConfig()
	cfg.Gateway.Enabled = true
	cfg.Gateway.Addr = ""
	assert.ErrorContains(t, cfg.Validate(), "gateway.addr")
}

func TestValidatePipelinesNeedNATS(t *testing.T) {
	cfg := validConfig()
	cfg.Portal.Enabled = true
	assert.ErrorContains(t, cfg.Validate(), "portal pipeline")

	cfg = validConfig()
	cfg.Console.Enabled = true
	assert.ErrorContains(t, cfg.Validate(), "console pipeline")

	cfg.NATS.URLs = []string{"nats://localhost:4222"}
	assert.NoError(t, cfg.Validate())
}
