// Package portal implements the identity portal extraction pipeline: wait
// for document readiness, scrape account mappings, and forward them to the
// storage service. A mutation watcher re-extracts when the page re-renders.
package portal

import (
	"context"
	"sync"
	"time"

	"github.com/jasonwadsworth/aws-account-name/component"
	"github.com/jasonwadsworth/aws-account-name/errors"
	"github.com/jasonwadsworth/aws-account-name/extract"
	"github.com/jasonwadsworth/aws-account-name/message"
	"github.com/jasonwadsworth/aws-account-name/metric"
	"github.com/jasonwadsworth/aws-account-name/pkg/dom"
	"github.com/jasonwadsworth/aws-account-name/pkg/retry"
	"github.com/jasonwadsworth/aws-account-name/transport"
	"github.com/jasonwadsworth/aws-account-name/types"
)

const pipelineName = "portal"

// Config wires a portal pipeline.
type Config struct {
	Doc       dom.Document
	Extract   extract.AccountsExtractor
	Requester transport.Requester
	Retry     retry.Config  // zero value selects retry.PortalConfig()
	Debounce  time.Duration // mutation re-extraction debounce
	Logger    *component.Logger
	Registry  *metric.MetricsRegistry
}

// Pipeline is the portal extraction component. Safe to restart; every
// invocation carries fresh retry state.
type Pipeline struct {
	doc       dom.Document
	extract   extract.AccountsExtractor
	requester transport.Requester
	retryCfg  retry.Config
	debounce  time.Duration
	logger    *component.Logger
	registry  *metric.MetricsRegistry

	watcher *dom.MutationWatcher
	cancel  context.CancelFunc
	done    chan struct{}

	mu    sync.Mutex
	state component.State
}

// New creates the pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Doc == nil || cfg.Extract == nil || cfg.Requester == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Pipeline", "New", "portal pipeline wiring")
	}
	if !cfg.Retry.Validate() {
		cfg.Retry = retry.PortalConfig()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = component.NewLogger(pipelineName, nil, nil)
	}
	return &Pipeline{
		doc:       cfg.Doc,
		extract:   cfg.Extract,
		requester: cfg.Requester,
		retryCfg:  cfg.Retry,
		debounce:  cfg.Debounce,
		logger:    cfg.Logger,
		registry:  cfg.Registry,
		state:     component.StateCreated,
	}, nil
}

// Name implements component.Component.
func (p *Pipeline) Name() string { return pipelineName + "-pipeline" }

// Initialize implements component.LifecycleComponent.
func (p *Pipeline) Initialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = component.StateInitialized
	return nil
}

// Start implements component.LifecycleComponent. It runs the initial
// extraction pass in the background and arms the mutation watcher.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == component.StateStarted {
		return errors.ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	// Mutation-driven re-extraction is independent of the retry cycle: it
	// keeps working even after a retry cycle gives up.
	p.watcher = dom.NewMutationWatcher(p.doc, p.debounce, func() {
		p.extractOnce(runCtx)
	}, p.logger.Slog())
	p.watcher.Start(runCtx)

	go func() {
		defer close(p.done)
		p.run(runCtx)
	}()

	p.state = component.StateStarted
	return nil
}

// Stop implements component.LifecycleComponent.
func (p *Pipeline) Stop(timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != component.StateStarted {
		return nil
	}

	p.cancel()
	p.watcher.Stop()

	select {
	case <-p.done:
	case <-time.After(timeout):
		p.state = component.StateFailed
		return errors.Wrap(errors.ErrConnectionTimeout, "Pipeline", "Stop", "await run loop")
	}
	p.state = component.StateStopped
	return nil
}

// run performs the load-time extraction pass: readiness gate, one direct
// extraction, then the retry variant only when the first call found nothing.
func (p *Pipeline) run(ctx context.Context) {
	if err := dom.WaitReady(ctx, p.doc); err != nil {
		p.logger.Warn("readiness wait aborted", "error", err)
		return
	}

	accounts, err := p.ExtractAccounts()
	if err != nil || len(accounts) == 0 {
		accounts = p.ExtractAccountsWithRetry(ctx)
	}

	if len(accounts) == 0 {
		// Exhaustion is not fatal: the mutation watcher keeps observing.
		p.logger.Warn("no accounts found after retries")
		return
	}
	p.forward(ctx, accounts)
}

// ExtractAccounts invokes the extractor directly, once.
func (p *Pipeline) ExtractAccounts() ([]types.AccountMapping, error) {
	return p.extract()
}

// ExtractAccountsWithRetry drives the extractor through the retry executor
// with this pipeline's preset. Returns nil when attempts are exhausted.
func (p *Pipeline) ExtractAccountsWithRetry(ctx context.Context) []types.AccountMapping {
	accounts := retry.Execute(ctx, p.retryCfg, func() ([]types.AccountMapping, error) {
		found, err := p.extract()
		p.countAttempt(err == nil && len(found) > 0)
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, nil
		}
		return found, nil
	}, retry.WithName("portal-extract"), retry.WithLogger(p.logger.Slog()))

	if accounts == nil && p.registry != nil {
		p.registry.Metrics.RetryExhaustions.WithLabelValues(pipelineName).Inc()
	}
	return accounts
}

// extractOnce is the mutation watcher's callback: one direct extraction,
// forwarded when non-empty. No retry wrapping; the watcher will fire again
// on the next render.
func (p *Pipeline) extractOnce(ctx context.Context) {
	accounts, err := p.ExtractAccounts()
	if err != nil {
		p.logger.Warn("re-extraction failed", "error", err)
		return
	}
	if len(accounts) == 0 {
		return
	}
	p.forward(ctx, accounts)
}

// forward ships a non-empty batch to the storage service. Transport or
// service failures are logged and absorbed; the pipeline never crashes over
// downstream trouble.
func (p *Pipeline) forward(ctx context.Context, accounts []types.AccountMapping) {
	if p.registry != nil {
		p.registry.Metrics.AccountsExtracted.Observe(float64(len(accounts)))
	}

	resp, err := p.requester.Request(ctx, message.NewStoreAccounts(accounts))
	if err != nil {
		p.logger.Warn("store request failed", "count", len(accounts), "error", err)
		return
	}
	if !resp.Success {
		p.logger.Warn("store request rejected", "count", len(accounts), "error", resp.Error)
		return
	}
	p.logger.Info("forwarded account mappings", "count", len(accounts))
}

func (p *Pipeline) countAttempt(success bool) {
	if p.registry == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	p.registry.Metrics.RetryAttempts.WithLabelValues(pipelineName, outcome).Inc()
}
