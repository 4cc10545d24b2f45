package dom

import (
	"sync"
	"time"
)

// StaticDocument is an in-memory Document whose readiness, content, and
// location can be scripted. It backs unit tests and the single-process mode
// where page snapshots are fed in from a remote feed.
type StaticDocument struct {
	mu        sync.RWMutex
	url       string
	state     ReadyState
	text      string
	elements  map[string][]*Element
	readyCh   chan struct{}
	readyOnce sync.Once
	subs      map[int]chan Mutation
	nextSub   int
}

// NewStaticDocument creates a loading document at the given URL.
func NewStaticDocument(url string) *StaticDocument {
	return &StaticDocument{
		url:      url,
		state:    ReadyStateLoading,
		elements: make(map[string][]*Element),
		readyCh:  make(chan struct{}),
		subs:     make(map[int]chan Mutation),
	}
}

// URL implements Document.
func (d *StaticDocument) URL() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.url
}

// ReadyState implements Document.
func (d *StaticDocument) ReadyState() ReadyState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// Ready implements Document.
func (d *StaticDocument) Ready() <-chan struct{} {
	return d.readyCh
}

// Text implements Document.
func (d *StaticDocument) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.text
}

// Query implements Document.
func (d *StaticDocument) Query(selector string) *Element {
	d.mu.RLock()
	defer d.mu.RUnlock()
	els := d.elements[selector]
	if len(els) == 0 {
		return nil
	}
	return els[0]
}

// QueryAll implements Document.
func (d *StaticDocument) QueryAll(selector string) []*Element {
	d.mu.RLock()
	defer d.mu.RUnlock()
	els := d.elements[selector]
	out := make([]*Element, len(els))
	copy(out, els)
	return out
}

// Subscribe implements Document.
func (d *StaticDocument) Subscribe() (<-chan Mutation, func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextSub
	d.nextSub++
	ch := make(chan Mutation, 16)
	d.subs[id] = ch

	cancel := func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if sub, ok := d.subs[id]; ok {
			delete(d.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// SetReadyState advances readiness. Reaching interactive or complete closes
// the ready channel; readiness never regresses an already-closed channel.
func (d *StaticDocument) SetReadyState(state ReadyState) {
	d.mu.Lock()
	d.state = state
	d.mu.Unlock()

	if state.Settled() {
		d.readyOnce.Do(func() { close(d.readyCh) })
	}
}

// SetText replaces the document text and notifies subscribers.
func (d *StaticDocument) SetText(text string) {
	d.mu.Lock()
	d.text = text
	d.mu.Unlock()
	d.notify(Mutation{Kind: MutationContent, Target: "body", At: time.Now()})
}

// SetElement installs el as the match for selector and notifies subscribers.
func (d *StaticDocument) SetElement(selector string, els ...*Element) {
	d.mu.Lock()
	d.elements[selector] = els
	d.mu.Unlock()
	d.notify(Mutation{Kind: MutationContent, Target: selector, At: time.Now()})
}

// RemoveElement drops all matches for selector.
func (d *StaticDocument) RemoveElement(selector string) {
	d.mu.Lock()
	delete(d.elements, selector)
	d.mu.Unlock()
	d.notify(Mutation{Kind: MutationContent, Target: selector, At: time.Now()})
}

// Navigate changes the document location in place, as a single-page app
// would, and notifies subscribers with a navigation mutation.
func (d *StaticDocument) Navigate(url string) {
	d.mu.Lock()
	d.url = url
	d.mu.Unlock()
	d.notify(Mutation{Kind: MutationNavigation, URL: url, At: time.Now()})
}

// notify fans a mutation out to subscribers, dropping it for any subscriber
// whose buffer is full. Mutations are hints, not a change log.
func (d *StaticDocument) notify(m Mutation) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, ch := range d.subs {
		select {
		case ch <- m:
		default:
		}
	}
}
