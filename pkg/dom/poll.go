package dom

import (
	"context"
	"log/slog"
	"time"
)

// Poll defaults, used when a caller passes non-positive values.
const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultPollTimeout  = 10 * time.Second
)

// PollElement repeatedly invokes locate at a fixed interval until it yields
// an element or timeout elapses. It is the simpler sibling of retry.Execute,
// for "does this single element exist yet" checks where a fixed cadence beats
// growing backoff.
//
// A locate error or panic counts as "not found yet"; no failure escapes.
// Returns nil on timeout or context cancellation, never an error.
func PollElement(ctx context.Context, locate Locator, timeout, interval time.Duration) *Element {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}

	start := time.Now()
	for {
		if el := tryLocate(locate); el != nil {
			return el
		}

		elapsed := time.Since(start)
		if elapsed+interval > timeout {
			slog.Debug("element poll timed out",
				"timeout", timeout,
				"elapsed", elapsed)
			return nil
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// PollSelector polls doc for the first element matching selector.
func PollSelector(ctx context.Context, doc Document, selector string, timeout, interval time.Duration) *Element {
	return PollElement(ctx, func() (*Element, error) {
		return doc.Query(selector), nil
	}, timeout, interval)
}

func tryLocate(locate Locator) (el *Element) {
	defer func() {
		if r := recover(); r != nil {
			el = nil
		}
	}()
	el, err := locate()
	if err != nil {
		return nil
	}
	return el
}
