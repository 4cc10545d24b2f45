// Package console implements the console display pipeline: gate on document
// readiness, probe for the account menu with linear backoff, resolve the
// account's name, and render exactly one display update. A navigation watcher
// restarts the pipeline from scratch on single-page-application transitions.
package console

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jasonwadsworth/aws-account-name/component"
	"github.com/jasonwadsworth/aws-account-name/errors"
	"github.com/jasonwadsworth/aws-account-name/extract"
	"github.com/jasonwadsworth/aws-account-name/message"
	"github.com/jasonwadsworth/aws-account-name/metric"
	"github.com/jasonwadsworth/aws-account-name/pkg/cache"
	"github.com/jasonwadsworth/aws-account-name/pkg/dom"
	"github.com/jasonwadsworth/aws-account-name/pkg/retry"
	"github.com/jasonwadsworth/aws-account-name/transport"
)

const pipelineName = "console"

// Config wires a console pipeline.
type Config struct {
	Doc       dom.Document
	Reader    *extract.ConsoleReader
	Requester transport.Requester
	Renderer  DisplayRenderer
	Retry     retry.Config  // zero value selects retry.ConsoleConfig()
	NavPoll   time.Duration // navigation watcher poll interval
	CacheTTL  time.Duration // resolved-name cache lifetime, zero selects 5m
	Logger    *component.Logger
	Registry  *metric.MetricsRegistry
}

// Pipeline is the console display component.
type Pipeline struct {
	doc       dom.Document
	reader    *extract.ConsoleReader
	requester transport.Requester
	renderer  DisplayRenderer
	retryCfg  retry.Config
	navPoll   time.Duration
	logger    *component.Logger
	registry  *metric.MetricsRegistry

	names *cache.LRU[string] // account ID -> resolved name

	watcher *dom.NavigationWatcher
	cancel  context.CancelFunc

	mu         sync.Mutex
	state      component.State
	generation atomic.Int64 // counts invocations, for log correlation only
	wg         sync.WaitGroup
}

// New creates the pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Doc == nil || cfg.Reader == nil || cfg.Requester == nil || cfg.Renderer == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Pipeline", "New", "console pipeline wiring")
	}
	if !cfg.Retry.Validate() {
		cfg.Retry = retry.ConsoleConfig()
	}
	if cfg.NavPoll <= 0 {
		cfg.NavPoll = time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = component.NewLogger(pipelineName, nil, nil)
	}
	return &Pipeline{
		doc:       cfg.Doc,
		reader:    cfg.Reader,
		requester: cfg.Requester,
		renderer:  cfg.Renderer,
		retryCfg:  cfg.Retry,
		navPoll:   cfg.NavPoll,
		names:     cache.NewLRU[string](256, cfg.CacheTTL),
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

// Start implements component.LifecycleComponent. The first invocation runs
// in the background; the navigation watcher restarts the pipeline with fresh
// retry state whenever the location changes.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == component.StateStarted {
		return errors.ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	// A restart does not cancel the previous invocation: its in-flight
	// probes re-read live document state and settle harmlessly, and the
	// renderer is idempotent. See the navigation watcher contract.
	p.watcher = dom.NewNavigationWatcher(p.doc, p.navPoll, func(url string) {
		p.launch(runCtx, url)
	}, p.logger.Slog())
	p.watcher.Start(runCtx)

	p.launch(runCtx, p.doc.URL())

	p.state = component.StateStarted
	return nil
}

// Stop implements component.LifecycleComponent. The watcher is stopped
// outside the component mutex: its loop may be inside the navigation
// callback, and waiting for it under the lock would wedge both sides.
func (p *Pipeline) Stop(timeout time.Duration) error {
	p.mu.Lock()
	if p.state != component.StateStarted {
		p.mu.Unlock()
		return nil
	}
	cancel, watcher := p.cancel, p.watcher
	p.mu.Unlock()

	cancel()
	watcher.Stop()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		p.setState(component.StateFailed)
		return errors.Wrap(errors.ErrConnectionTimeout, "Pipeline", "Stop", "await invocations")
	}
	p.setState(component.StateStopped)
	return nil
}

func (p *Pipeline) setState(s component.State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// launch starts one full pipeline invocation: fresh readiness wait, fresh
// retry executor, fresh attempt counter. Called from Start and from the
// navigation watcher goroutine, so it must not take the component mutex.
func (p *Pipeline) launch(ctx context.Context, url string) {
	gen := p.generation.Add(1)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runInvocation(ctx, gen, url)
	}()
}

func (p *Pipeline) runInvocation(ctx context.Context, gen int64, url string) {
	p.logger.Info("console pipeline invocation starting", "generation", gen, "url", url)

	if err := dom.WaitReady(ctx, p.doc); err != nil {
		p.logger.Warn("readiness wait aborted", "generation", gen, "error", err)
		return
	}

	menu := p.probeAccountMenu(ctx)
	if menu == nil {
		// Exhaustion degrades to "element not found"; nothing is rendered
		// and no error escapes.
		p.logger.Warn("account menu not found, giving up", "generation", gen, "url", url)
		return
	}

	update := p.resolve(ctx, url)
	if err := p.renderer.Render(update); err != nil {
		p.logger.Warn("display render failed", "generation", gen, "error", err)
		return
	}
	if p.registry != nil {
		p.registry.Metrics.DisplayUpdates.Inc()
	}
	p.logger.Info("display updated",
		"generation", gen,
		"account_id", update.AccountID,
		"account_name", update.AccountName)
}

// probeAccountMenu drives the account-menu DOM lookup through the retry
// executor with the console preset.
func (p *Pipeline) probeAccountMenu(ctx context.Context) *dom.Element {
	locate := p.reader.AccountMenuLocator()
	menu := retry.Execute(ctx, p.retryCfg, func() (*dom.Element, error) {
		el, err := locate()
		p.countAttempt(err == nil && el != nil)
		return el, err
	}, retry.WithName("console-menu"), retry.WithLogger(p.logger.Slog()))

	if menu == nil && p.registry != nil {
		p.registry.Metrics.RetryExhaustions.WithLabelValues(pipelineName).Inc()
	}
	return menu
}

// resolve determines the account ID and name: direct page reads first, then
// storage lookups by ID or by name. Every failure path degrades to the
// placeholder name rather than surfacing an error.
func (p *Pipeline) resolve(ctx context.Context, url string) DisplayUpdate {
	id, _ := p.reader.ReadAccountID()
	name, _ := p.reader.ReadAccountName()

	if name == "" && id != "" {
		name = p.lookupName(ctx, id)
	}
	if id == "" && name != "" {
		id = p.lookupID(ctx, name)
	}
	if name == "" {
		name = PlaceholderName
	}

	return DisplayUpdate{AccountID: id, AccountName: name, URL: url, At: time.Now()}
}

// lookupName resolves an account ID to its stored name, consulting the
// local cache first so navigation restarts skip the round trip.
func (p *Pipeline) lookupName(ctx context.Context, accountID string) string {
	if name, ok := p.names.Get(accountID); ok {
		return name
	}

	resp, err := p.requester.Request(ctx, message.NewGetAccountName(accountID))
	if err != nil {
		p.logger.Warn("name lookup failed", "account_id", accountID, "error", err)
		return ""
	}
	if !resp.Success {
		p.logger.Warn("name lookup rejected", "account_id", accountID, "error", resp.Error)
		return ""
	}
	if resp.AccountName != "" {
		p.names.Set(accountID, resp.AccountName)
	}
	return resp.AccountName
}

func (p *Pipeline) lookupID(ctx context.Context, accountName string) string {
	resp, err := p.requester.Request(ctx, message.NewGetAccountByName(accountName))
	if err != nil {
		p.logger.Warn("id lookup failed", "account_name", accountName, "error", err)
		return ""
	}
	if !resp.Success {
		p.logger.Warn("id lookup rejected", "account_name", accountName, "error", resp.Error)
		return ""
	}
	return resp.AccountID
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
