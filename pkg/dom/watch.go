package dom

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MutationWatcher invokes a callback when document content changes, debounced
// so a burst of mutations triggers one callback rather than a re-entrant
// storm. Navigation mutations are ignored here; NavigationWatcher owns those.
type MutationWatcher struct {
	doc      Document
	debounce time.Duration
	onChange func()
	logger   *slog.Logger

	mu      sync.Mutex
	cancel  func()
	done    chan struct{}
	started bool
}

// NewMutationWatcher creates a watcher. A non-positive debounce defaults to
// 500ms.
func NewMutationWatcher(doc Document, debounce time.Duration, onChange func(), logger *slog.Logger) *MutationWatcher {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MutationWatcher{
		doc:      doc,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
	}
}

// Start subscribes to the document and begins watching. The watcher runs
// until Stop is called or ctx is cancelled.
func (w *MutationWatcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	w.started = true

	mutations, cancel := w.doc.Subscribe()
	w.cancel = cancel
	w.done = make(chan struct{})

	go w.run(ctx, mutations, w.done)
}

// Stop unsubscribes and waits for the watch loop to exit.
func (w *MutationWatcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.started = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done
}

func (w *MutationWatcher) run(ctx context.Context, mutations <-chan Mutation, done chan struct{}) {
	defer close(done)

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case m, ok := <-mutations:
			if !ok {
				return
			}
			if m.Kind == MutationNavigation {
				continue
			}
			// Restart the debounce window on every content mutation.
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.logger.Debug("content mutation settled, re-extracting")
			w.onChange()

		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// NavigationWatcher detects location changes by combining mutation signals
// with a steady URL poll (covering history API transitions that produce no
// mutation) and invokes a restart callback with the new URL.
type NavigationWatcher struct {
	doc        Document
	interval   time.Duration
	onNavigate func(url string)
	logger     *slog.Logger

	mu      sync.Mutex
	cancel  func()
	done    chan struct{}
	started bool
}

// NewNavigationWatcher creates a watcher. A non-positive interval defaults to
// one second.
func NewNavigationWatcher(doc Document, interval time.Duration, onNavigate func(url string), logger *slog.Logger) *NavigationWatcher {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NavigationWatcher{
		doc:        doc,
		interval:   interval,
		onNavigate: onNavigate,
		logger:     logger,
	}
}

// Start begins watching. The watcher runs until Stop or ctx cancellation.
func (w *NavigationWatcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	w.started = true

	mutations, cancel := w.doc.Subscribe()
	w.cancel = cancel
	w.done = make(chan struct{})

	go w.run(ctx, mutations, w.done)
}

// Stop unsubscribes and waits for the watch loop to exit.
func (w *NavigationWatcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.started = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done
}

func (w *NavigationWatcher) run(ctx context.Context, mutations <-chan Mutation, done chan struct{}) {
	defer close(done)

	lastURL := w.doc.URL()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	check := func() {
		current := w.doc.URL()
		if current == lastURL {
			return
		}
		w.logger.Info("navigation detected",
			"from", lastURL,
			"to", current)
		lastURL = current
		w.onNavigate(current)
	}

	for {
		select {
		case _, ok := <-mutations:
			if !ok {
				return
			}
			check()
		case <-ticker.C:
			check()
		case <-ctx.Done():
			return
		}
	}
}
