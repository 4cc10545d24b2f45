// Package retry provides bounded retry-with-backoff execution for flaky,
// best-effort probes such as DOM scraping against slowly rendering pages.
//
// # Overview
//
// The package is built from three small pieces:
//
//   - Delay: pure backoff calculator (exponential or linear, capped)
//   - Config.Validate: structural invariant check for retry configs
//   - Execute: the generic attempt/delay/retry state machine
//
// # Configuration Presets
//
//   - DefaultConfig(): 3 attempts, 1s-5s exponential (safe fallback)
//   - PortalConfig():  5 attempts, 1s-10s exponential (portal extraction)
//   - ConsoleConfig(): 10 attempts, 500ms-3s linear (console element probing)
//
// # Usage
//
// A probe is any zero-argument operation whose non-zero result means success:
//
//	accounts := retry.Execute(ctx, retry.PortalConfig(), func() ([]types.AccountMapping, error) {
//	    return extractor.Extract()
//	}, retry.WithName("portal-extract"))
//	if accounts == nil {
//	    // exhausted: degrade, don't crash
//	}
//
// # Design Philosophy
//
// Execute never returns an error and never lets a probe error or panic
// escape. Exhaustion yields the zero value plus a warning log; the calling
// pipeline decides how to degrade. Invalid configs are replaced by
// DefaultConfig with a warning rather than failing the caller. Metrics are
// deliberately left to call sites.
//
// # Concurrency
//
// Each Execute invocation owns its attempt sequence exclusively; attempts are
// strictly sequential within one invocation. Concurrent invocations share
// nothing. Delays are timer-scheduled, never spun.
package retry
