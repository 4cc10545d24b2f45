package transport

import (
	"context"
	"sync"

	"github.com/jasonwadsworth/aws-account-name/errors"
	"github.com/jasonwadsworth/aws-account-name/message"
)

// MemoryBus is the in-process Requester: requests dispatch synchronously to
// a registered handler. Used in tests and in single-binary deployments where
// pipelines and the storage service share one process.
type MemoryBus struct {
	mu      sync.RWMutex
	handler HandlerFunc
}

// NewMemoryBus creates a bus with no handler attached.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

// Register attaches the serving handler. The last registration wins.
func (b *MemoryBus) Register(handler HandlerFunc) {
	b.mu.Lock()
	b.handler = handler
	b.mu.Unlock()
}

// Request implements Requester.
func (b *MemoryBus) Request(ctx context.Context, req message.Request) (message.Response, error) {
	b.mu.RLock()
	handler := b.handler
	b.mu.RUnlock()

	if handler == nil {
		return message.Response{}, errors.WrapTransient(errors.ErrNoConnection, "MemoryBus", "Request", "dispatch")
	}
	return handler(ctx, req), nil
}
