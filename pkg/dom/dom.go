// Package dom abstracts the page document the extraction pipelines scrape.
// The document is an untrusted, slowly-arriving data source: content shows up
// at unpredictable times, selectors miss, and navigation can swap the whole
// page out underneath a running pipeline.
package dom

import "time"

// ReadyState mirrors the document readiness lifecycle.
type ReadyState string

const (
	// ReadyStateLoading means the document is still being assembled
	ReadyStateLoading ReadyState = "loading"
	// ReadyStateInteractive means the document has been parsed but
	// sub-resources may still be loading
	ReadyStateInteractive ReadyState = "interactive"
	// ReadyStateComplete means the document and sub-resources have loaded
	ReadyStateComplete ReadyState = "complete"
)

// Settled reports whether the readiness precondition is already satisfied.
func (rs ReadyState) Settled() bool {
	return rs == ReadyStateInteractive || rs == ReadyStateComplete
}

// Element is a snapshot of a single document node.
type Element struct {
	Tag     string
	ID      string
	Classes []string
	Attrs   map[string]string
	Text    string
}

// Attr returns the named attribute or "".
func (e *Element) Attr(name string) string {
	if e == nil || e.Attrs == nil {
		return ""
	}
	return e.Attrs[name]
}

// MutationKind discriminates document change notifications.
type MutationKind string

const (
	// MutationContent signals document content changed under an observed node
	MutationContent MutationKind = "content"
	// MutationNavigation signals the document location changed
	MutationNavigation MutationKind = "navigation"
)

// Mutation is one document change notification.
type Mutation struct {
	Kind   MutationKind
	Target string
	URL    string
	At     time.Time
}

// Document is the read side of a page. Implementations must be safe for
// concurrent use; all methods observe live state at call time.
type Document interface {
	// URL returns the current document location.
	URL() string

	// ReadyState returns the current readiness.
	ReadyState() ReadyState

	// Ready returns a channel closed once readiness reaches interactive or
	// complete. The channel is shared: it serves every waiter with a single
	// underlying listener registration.
	Ready() <-chan struct{}

	// Query returns the first element matching selector, or nil.
	Query(selector string) *Element

	// QueryAll returns every element matching selector.
	QueryAll(selector string) []*Element

	// Text returns the document's visible text content.
	Text() string

	// Subscribe registers a mutation listener. The returned cancel func
	// releases it. Slow subscribers may miss notifications; mutations are
	// hints to re-read live state, not a change log.
	Subscribe() (<-chan Mutation, func())
}

// Locator is a zero-argument element query. A nil result or an error means
// "not found yet", never a fatal condition.
type Locator func() (*Element, error)
