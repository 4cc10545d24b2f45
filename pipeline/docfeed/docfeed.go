// Package docfeed bridges captured page state into the extraction pipelines.
// A capture client publishes document snapshots on a NATS subject; the feed
// applies each snapshot to a scriptable document that a pipeline observes,
// so readiness gates, element probes, and watchers all fire off live data.
package docfeed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/jasonwadsworth/aws-account-name/component"
	"github.com/jasonwadsworth/aws-account-name/errors"
	"github.com/jasonwadsworth/aws-account-name/pkg/dom"
)

// Default snapshot subjects, one per observed page.
const (
	PortalSubject  = "aws-account-name.dom.portal"
	ConsoleSubject = "aws-account-name.dom.console"
)

// ElementSnapshot is one captured document node.
type ElementSnapshot struct {
	Tag   string            `json:"tag,omitempty"`
	Text  string            `json:"text"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

// Snapshot is one observed page state. Every field is optional; a snapshot
// carries only what changed since the last one. Readiness is applied last so
// a pipeline released by the readiness gate sees the snapshot's content.
type Snapshot struct {
	URL        string                       `json:"url,omitempty"`
	ReadyState string                       `json:"readyState,omitempty"`
	Text       string                       `json:"text,omitempty"`
	Elements   map[string][]ElementSnapshot `json:"elements,omitempty"`
	Removed    []string                     `json:"removed,omitempty"`
}

// Apply replays a snapshot onto the document.
func Apply(doc *dom.StaticDocument, s Snapshot) {
	if s.URL != "" && s.URL != doc.URL() {
		doc.Navigate(s.URL)
	}
	if s.Text != "" {
		doc.SetText(s.Text)
	}
	for selector, els := range s.Elements {
		nodes := make([]*dom.Element, 0, len(els))
		for _, e := range els {
			nodes = append(nodes, &dom.Element{Tag: e.Tag, Text: e.Text, Attrs: e.Attrs})
		}
		doc.SetElement(selector, nodes...)
	}
	for _, selector := range s.Removed {
		doc.RemoveElement(selector)
	}
	if rs, ok := parseReadyState(s.ReadyState); ok {
		doc.SetReadyState(rs)
	}
}

func parseReadyState(s string) (dom.ReadyState, bool) {
	switch dom.ReadyState(s) {
	case dom.ReadyStateLoading, dom.ReadyStateInteractive, dom.ReadyStateComplete:
		return dom.ReadyState(s), true
	}
	return "", false
}

// Config wires a feed.
type Config struct {
	Name    string // component name, defaults to "doc-feed"
	Doc     *dom.StaticDocument
	Conn    *nats.Conn
	Subject string
	Logger  *component.Logger
}

// Feed is the lifecycle component subscribing for snapshots.
type Feed struct {
	name    string
	doc     *dom.StaticDocument
	conn    *nats.Conn
	subject string
	logger  *component.Logger

	sub   *nats.Subscription
	state component.State
}

// New creates the feed.
func New(cfg Config) (*Feed, error) {
	if cfg.Doc == nil || cfg.Conn == nil || cfg.Subject == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Feed", "New", "document feed wiring")
	}
	if cfg.Name == "" {
		cfg.Name = "doc-feed"
	}
	if cfg.Logger == nil {
		cfg.Logger = component.NewLogger(cfg.Name, nil, nil)
	}
	return &Feed{
		name:    cfg.Name,
		doc:     cfg.Doc,
		conn:    cfg.Conn,
		subject: cfg.Subject,
		logger:  cfg.Logger,
		state:   component.StateCreated,
	}, nil
}

// Name implements component.Component.
func (f *Feed) Name() string { return f.name }

// Initialize implements component.LifecycleComponent.
func (f *Feed) Initialize() error {
	f.state = component.StateInitialized
	return nil
}

// Start implements component.LifecycleComponent.
func (f *Feed) Start(_ context.Context) error {
	if f.state == component.StateStarted {
		return errors.ErrAlreadyStarted
	}

	sub, err := f.conn.Subscribe(f.subject, func(msg *nats.Msg) {
		f.handle(msg.Data)
	})
	if err != nil {
		f.state = component.StateFailed
		return errors.WrapTransient(err, "Feed", "Start", "subscribe "+f.subject)
	}
	f.sub = sub
	f.state = component.StateStarted
	f.logger.Info("document feed started", "subject", f.subject)
	return nil
}

// Stop implements component.LifecycleComponent.
func (f *Feed) Stop(_ time.Duration) error {
	if f.sub != nil {
		if err := f.sub.Unsubscribe(); err != nil {
			return errors.Wrap(err, "Feed", "Stop", "unsubscribe")
		}
		f.sub = nil
	}
	f.state = component.StateStopped
	return nil
}

// handle decodes and applies one published snapshot.
func (f *Feed) handle(data []byte) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		f.logger.Warn("malformed document snapshot", "error", err)
		return
	}
	Apply(f.doc, snap)
	f.logger.Slog().Debug("document snapshot applied",
		"url", f.doc.URL(),
		"ready_state", string(f.doc.ReadyState()))
}
