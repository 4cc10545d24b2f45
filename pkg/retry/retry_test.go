package retry

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastConfig keeps test runtimes low while preserving real delays.
func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:  attempts,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
		Backoff:      BackoffExponential,
	}
}

func TestExecute_AlwaysFailingProbeInvokedExactlyMaxAttempts(t *testing.T) {
	ctx := context.Background()

	for _, m := range []int{1, 2, 5} {
		calls := 0
		result := Execute(ctx, fastConfig(m), func() (string, error) {
			calls++
			return "", errors.New("not yet")
		})

		assert.Equal(t, m, calls, "maxAttempts=%d", m)
		assert.Empty(t, result)
	}
}

func TestExecute_EarlyTermination(t *testing.T) {
	ctx := context.Background()

	calls := 0
	result := Execute(ctx, fastConfig(5), func() (string, error) {
		calls++
		if calls < 3 {
			return "", nil
		}
		return "found", nil
	})

	assert.Equal(t, 3, calls)
	assert.Equal(t, "found", result)
}

func TestExecute_SuccessOnFirstAttemptTakesNoDelay(t *testing.T) {
	cfg := Config{
		MaxAttempts:  3,
		InitialDelay: 5 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Backoff:      BackoffExponential,
	}

	start := time.Now()
	result := Execute(context.Background(), cfg, func() (int, error) {
		return 42, nil
	})

	assert.Equal(t, 42, result)
	assert.Less(t, time.Since(start), time.Second)
}

func TestExecute_ScenarioProbeFailsTwiceThenSucceeds(t *testing.T) {
	type payload struct{ Data string }

	calls := 0
	result := Execute(context.Background(), fastConfig(5), func() (*payload, error) {
		calls++
		if calls <= 2 {
			return nil, nil
		}
		return &payload{Data: "x"}, nil
	})

	require.NotNil(t, result)
	assert.Equal(t, "x", result.Data)
	assert.Equal(t, 3, calls)
}

func TestExecute_ScenarioExhaustionObservesExponentialDelays(t *testing.T) {
	cfg := Config{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     2000 * time.Millisecond,
		Multiplier:   2.0,
		Backoff:      BackoffExponential,
	}

	calls := 0
	start := time.Now()
	result := Execute(context.Background(), cfg, func() (*struct{}, error) {
		calls++
		return nil, nil
	})
	elapsed := time.Since(start)

	assert.Nil(t, result)
	assert.Equal(t, 3, calls)
	// Delays: 200ms after attempt 1, 400ms after attempt 2, none after the last.
	assert.GreaterOrEqual(t, elapsed, 600*time.Millisecond)
	assert.Less(t, elapsed, 1200*time.Millisecond)
}

func TestExecute_MinimumFirstDelay(t *testing.T) {
	cfg := fastConfig(2)
	cfg.InitialDelay = 50 * time.Millisecond
	cfg.MaxDelay = 200 * time.Millisecond

	var stamps []time.Time
	Execute(context.Background(), cfg, func() (string, error) {
		stamps = append(stamps, time.Now())
		return "", nil
	})

	require.Len(t, stamps, 2)
	assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), 50*time.Millisecond)
}

func TestExecute_ProbePanicIsAFailedAttempt(t *testing.T) {
	calls := 0
	result := Execute(context.Background(), fastConfig(3), func() (string, error) {
		calls++
		if calls < 2 {
			panic("selector blew up")
		}
		return "recovered", nil
	})

	assert.Equal(t, "recovered", result)
	assert.Equal(t, 2, calls)
}

func TestExecute_AllPanicsReturnZeroValue(t *testing.T) {
	calls := 0
	result := Execute(context.Background(), fastConfig(3), func() ([]string, error) {
		calls++
		panic("every time")
	})

	assert.Nil(t, result)
	assert.Equal(t, 3, calls)
}

func TestExecute_InvalidConfigSubstitutesDefaults(t *testing.T) {
	// MaxDelay < InitialDelay is invalid; Execute must fall back to the
	// 3-attempt default rather than fail.
	bad := Config{
		MaxAttempts:  7,
		InitialDelay: time.Second,
		MaxDelay:     time.Millisecond,
		Multiplier:   2.0,
		Backoff:      BackoffExponential,
	}

	calls := 0
	result := Execute(context.Background(), bad, func() (string, error) {
		calls++
		return "ok", nil
	})

	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestExecute_ContextCancellationAbandonsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := Config{
		MaxAttempts:  10,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		Backoff:      BackoffExponential,
	}

	calls := 0
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	result := Execute(ctx, cfg, func() (string, error) {
		calls++
		return "", nil
	})

	assert.Empty(t, result)
	assert.Less(t, calls, 10)
}

func TestExecute_EveryAttemptLogsItsCounter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	Execute(context.Background(), fastConfig(3), func() (string, error) {
		return "", errors.New("not yet")
	}, WithLogger(logger))

	// Three failed attempts produce three per-attempt lines (the final one
	// without a delay) plus the exhaustion warning.
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	for i := 0; i < 3; i++ {
		assert.Contains(t, lines[i], `"attempt":`+strconv.Itoa(i+1))
		assert.Contains(t, lines[i], "probe attempt failed")
	}
	assert.NotContains(t, lines[2], `"delay"`)
	assert.Contains(t, lines[3], "probe attempts exhausted")
}

func TestExecute_EmptySliceIsNotFound(t *testing.T) {
	// A nil slice result is "not found"; the executor keeps trying.
	calls := 0
	result := Execute(context.Background(), fastConfig(3), func() ([]int, error) {
		calls++
		if calls < 2 {
			return nil, nil
		}
		return []int{1}, nil
	})

	assert.Equal(t, []int{1}, result)
	assert.Equal(t, 2, calls)
}
