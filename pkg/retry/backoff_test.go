package retry

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDelay_ExponentialLaw(t *testing.T) {
	cfg := Config{
		MaxAttempts:  10,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
		Backoff:      BackoffExponential,
	}

	for i := 0; i < 10; i++ {
		want := time.Duration(math.Min(
			float64(cfg.InitialDelay)*math.Pow(cfg.Multiplier, float64(i)),
			float64(cfg.MaxDelay),
		))
		assert.Equal(t, want, Delay(i, cfg), "attempt %d", i)
	}

	assert.Equal(t, 200*time.Millisecond, Delay(0, cfg))
	assert.Equal(t, 400*time.Millisecond, Delay(1, cfg))
	assert.Equal(t, 800*time.Millisecond, Delay(2, cfg))
	assert.Equal(t, 1600*time.Millisecond, Delay(3, cfg))
	assert.Equal(t, 2*time.Second, Delay(4, cfg), "capped at MaxDelay")
	assert.Equal(t, 2*time.Second, Delay(100, cfg), "stays capped")
}

func TestDelay_LinearLaw(t *testing.T) {
	cfg := Config{
		MaxAttempts:  10,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     3 * time.Second,
		Multiplier:   500, // +500ms per attempt
		Backoff:      BackoffLinear,
	}

	for i := 0; i < 12; i++ {
		want := cfg.InitialDelay + time.Duration(cfg.Multiplier*float64(i))*time.Millisecond
		if want > cfg.MaxDelay {
			want = cfg.MaxDelay
		}
		assert.Equal(t, want, Delay(i, cfg), "attempt %d", i)
	}

	assert.Equal(t, 500*time.Millisecond, Delay(0, cfg))
	assert.Equal(t, 1000*time.Millisecond, Delay(1, cfg))
	assert.Equal(t, 3*time.Second, Delay(5, cfg), "capped at MaxDelay")
}

func TestDelay_UnknownBackoffBehavesAsExponential(t *testing.T) {
	cfg := Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		Backoff:      BackoffType("fibonacci"),
	}

	assert.Equal(t, 200*time.Millisecond, Delay(1, cfg))
}

func TestDelay_HugeMultiplierStaysCapped(t *testing.T) {
	cfg := Config{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   1e12,
		Backoff:      BackoffExponential,
	}

	assert.Equal(t, time.Second, Delay(50, cfg))
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		Backoff:      BackoffExponential,
	}
	assert.True(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max attempts", func(c *Config) { c.MaxAttempts = 0 }},
		{"negative max attempts", func(c *Config) { c.MaxAttempts = -1 }},
		{"negative initial delay", func(c *Config) { c.InitialDelay = -time.Second }},
		{"negative max delay", func(c *Config) { c.MaxDelay = -time.Second; c.InitialDelay = -2 * time.Second }},
		{"zero multiplier", func(c *Config) { c.Multiplier = 0 }},
		{"negative multiplier", func(c *Config) { c.Multiplier = -2 }},
		{"max delay below initial", func(c *Config) { c.MaxDelay = 50 * time.Millisecond }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.False(t, cfg.Validate())
		})
	}

	zeroDelays := valid
	zeroDelays.InitialDelay = 0
	zeroDelays.MaxDelay = 0
	assert.True(t, zeroDelays.Validate(), "zero delays are allowed")
}

func TestPresets_AreValid(t *testing.T) {
	assert.True(t, DefaultConfig().Validate())
	assert.True(t, PortalConfig().Validate())
	assert.True(t, ConsoleConfig().Validate())
	assert.Equal(t, BackoffLinear, ConsoleConfig().Backoff)
	assert.Equal(t, BackoffExponential, PortalConfig().Backoff)
}
