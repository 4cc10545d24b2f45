// Package retry provides backoff retry logic for flaky, best-effort probes.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"time"
)

// BackoffType selects the delay growth strategy between attempts.
type BackoffType string

const (
	// BackoffExponential grows the delay multiplicatively per attempt
	BackoffExponential BackoffType = "exponential"
	// BackoffLinear grows the delay additively per attempt
	BackoffLinear BackoffType = "linear"
)

// Config provides retry configuration. Configs are value objects: construct
// one per call site (or use a preset) and pass it by value, never share a
// mutable default.
type Config struct {
	MaxAttempts  int           // Maximum number of attempts (must be >= 1)
	InitialDelay time.Duration // Delay after the first failed attempt
	MaxDelay     time.Duration // Cap on any computed delay
	Multiplier   float64       // Exponential: growth factor. Linear: additive step in ms per attempt.
	Backoff      BackoffType   // Delay growth strategy; unknown values behave as exponential
}

// Validate reports whether the config satisfies its structural invariants:
// MaxAttempts > 0, InitialDelay >= 0, MaxDelay >= 0, Multiplier > 0, and
// MaxDelay >= InitialDelay.
func (c Config) Validate() bool {
	return c.MaxAttempts > 0 &&
		c.InitialDelay >= 0 &&
		c.MaxDelay >= 0 &&
		c.Multiplier > 0 &&
		c.MaxDelay >= c.InitialDelay
}

// DefaultConfig returns the built-in fallback used when a caller supplies an
// invalid config.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Backoff:      BackoffExponential,
	}
}

// PortalConfig returns the preset for portal account extraction, where the
// page renders slowly and each miss is cheap.
func PortalConfig() Config {
	return Config{
		MaxAttempts:  5,
		InitialDelay: 1 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Backoff:      BackoffExponential,
	}
}

// ConsoleConfig returns the preset for console element probing: more
// attempts on a gentler, linear cadence.
func ConsoleConfig() Config {
	return Config{
		MaxAttempts:  10,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     3 * time.Second,
		Multiplier:   500, // +500ms per attempt
		Backoff:      BackoffLinear,
	}
}

// Delay computes the delay to take after a failed attempt. It is pure and
// total over any valid config and non-negative attempt index:
//
//	exponential: min(InitialDelay * Multiplier^attempt, MaxDelay)
//	linear:      min(InitialDelay + Multiplier*attempt milliseconds, MaxDelay)
//
// Malformed configs must be rejected by Validate before calling Delay.
func Delay(attempt int, cfg Config) time.Duration {
	var d float64
	switch cfg.Backoff {
	case BackoffLinear:
		d = float64(cfg.InitialDelay) + cfg.Multiplier*float64(attempt)*float64(time.Millisecond)
	default:
		d = float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt))
	}
	if d > float64(cfg.MaxDelay) || math.IsInf(d, 1) {
		return cfg.MaxDelay
	}
	return time.Duration(d)
}

// Probe is any zero-argument operation whose non-zero result means success.
// A zero result or an error is a failed attempt, never a fatal condition.
type Probe[T any] func() (T, error)

// Option customizes a single Execute invocation.
type Option func(*options)

type options struct {
	name   string
	logger *slog.Logger
}

// WithName labels log entries for this invocation (e.g. "portal-extract").
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger routes attempt logging to the given logger instead of the
// process default.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Execute drives probe to completion or exhaustion. Attempts are strictly
// sequential; a probe error or panic counts as a failed attempt and is never
// propagated. The first non-zero result is returned immediately. When all
// attempts are exhausted, Execute returns the zero value of T. Callers must
// treat that as "not found", not as a crash signal.
//
// Every attempt, success, and exhaustion logs one line with a 1-based attempt
// counter and, where applicable, the delay about to be taken. Context
// cancellation during a delay abandons the remaining attempts and returns the
// zero value.
func Execute[T any](ctx context.Context, cfg Config, probe Probe[T], opts ...Option) T {
	o := options{name: "probe", logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	if !cfg.Validate() {
		o.logger.Warn("invalid retry config, substituting defaults",
			"name", o.name,
			"max_attempts", cfg.MaxAttempts,
			"initial_delay", cfg.InitialDelay,
			"max_delay", cfg.MaxDelay,
			"multiplier", cfg.Multiplier)
		cfg = DefaultConfig()
	}

	var zero T
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err := attemptProbe(probe)
		if err == nil && !isZero(result) {
			o.logger.Info("probe succeeded",
				"name", o.name,
				"attempt", attempt+1,
				"max_attempts", cfg.MaxAttempts)
			return result
		}

		// The last failed attempt gets its own log line: no delay follows it.
		if attempt == cfg.MaxAttempts-1 {
			o.logger.Info("probe attempt failed",
				"name", o.name,
				"attempt", attempt+1,
				"max_attempts", cfg.MaxAttempts,
				"error", errString(err))
			break
		}

		delay := Delay(attempt, cfg)
		o.logger.Info("probe attempt failed, retrying",
			"name", o.name,
			"attempt", attempt+1,
			"max_attempts", cfg.MaxAttempts,
			"delay", delay,
			"error", errString(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			o.logger.Warn("retry abandoned, context cancelled",
				"name", o.name,
				"attempt", attempt+1,
				"reason", ctx.Err())
			return zero
		case <-timer.C:
		}
	}

	o.logger.Warn("probe attempts exhausted",
		"name", o.name,
		"max_attempts", cfg.MaxAttempts)
	return zero
}

// attemptProbe invokes the probe, converting a panic into a failed attempt.
func attemptProbe[T any](probe Probe[T]) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("probe panicked: %v", r)
		}
	}()
	return probe()
}

// isZero reports whether v is the zero value of T. A nil slice, nil pointer,
// nil interface, empty string, or zero struct all count as "not found".
func isZero[T any](v T) bool {
	return reflect.ValueOf(&v).Elem().IsZero()
}

func errString(err error) string {
	if err == nil {
		return "empty result"
	}
	return err.Error()
}
