// Package component defines the lifecycle contract shared by the extraction
// pipelines and the account service, plus the structured logger they emit
// through.
package component

import (
	"context"
	"time"
)

// State represents the current lifecycle state of a component
type State int

const (
	// StateCreated indicates component was created but not initialized
	StateCreated State = iota
	// StateInitialized indicates component was initialized but not started
	StateInitialized
	// StateStarted indicates component is running
	StateStarted
	// StateStopped indicates component was stopped
	StateStopped
	// StateFailed indicates component failed during a lifecycle operation
	StateFailed
)

// String returns a string representation of the component state
func (cs State) String() string {
	switch cs {
	case StateCreated:
		return "created"
	case StateInitialized:
		return "initialized"
	case StateStarted:
		return "started"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Component is anything the runner can name.
type Component interface {
	Name() string
}

// LifecycleComponent is the unified lifecycle pattern:
//   - Initialize() error                 // setup only, no context
//   - Start(ctx context.Context) error   // begin work, context passed through
//   - Stop(timeout time.Duration) error  // graceful shutdown bound by timeout
type LifecycleComponent interface {
	Component
	Initialize() error
	Start(ctx context.Context) error
	Stop(timeout time.Duration) error
}

// Runner starts a set of components in order and stops them in reverse.
type Runner struct {
	components []LifecycleComponent
	logger     *Logger
}

// NewRunner creates a runner over the given components.
func NewRunner(logger *Logger, components ...LifecycleComponent) *Runner {
	return &Runner{components: components, logger: logger}
}

// Start initializes and starts every component. On failure the already
// started components are stopped in reverse before the error returns.
func (r *Runner) Start(ctx context.Context) error {
	var started []LifecycleComponent
	for _, c := range r.components {
		if err := c.Initialize(); err != nil {
			r.stopAll(started, 5*time.Second)
			return err
		}
		if err := c.Start(ctx); err != nil {
			r.stopAll(started, 5*time.Second)
			return err
		}
		r.logger.Info("component started: " + c.Name())
		started = append(started, c)
	}
	return nil
}

// Stop stops every component in reverse start order.
func (r *Runner) Stop(timeout time.Duration) {
	r.stopAll(r.components, timeout)
}

func (r *Runner) stopAll(components []LifecycleComponent, timeout time.Duration) {
	for i := len(components) - 1; i >= 0; i-- {
		c := components[i]
		if err := c.Stop(timeout); err != nil {
			r.logger.Error("component stop failed: "+c.Name(), err)
			continue
		}
		r.logger.Info("component stopped: " + c.Name())
	}
}
