package dom

import "context"

// WaitReady blocks until the document readiness reaches interactive or
// complete. It resolves exactly once per call: immediately when the
// precondition already holds, otherwise after a single listener registration
// on the document's ready channel. There is no retry and no timeout: document
// readiness is a guaranteed one-time lifecycle event, not a flaky probe.
//
// The only error case is context cancellation while still pending.
func WaitReady(ctx context.Context, doc Document) error {
	if doc.ReadyState().Settled() {
		return nil
	}

	select {
	case <-doc.Ready():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
