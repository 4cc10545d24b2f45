// Package transport carries typed request/response envelopes between the
// extraction pipelines and the account storage service. Two implementations:
// NATS request/reply for split deployments, and an in-process bus for tests
// and single-binary mode.
package transport

import (
	"context"

	"github.com/jasonwadsworth/aws-account-name/message"
)

// DefaultSubject is the NATS subject the account service answers on.
const DefaultSubject = "aws-account-name.accounts.request"

// Requester sends one typed request and awaits its response. Failures are
// recoverable by design: callers log and continue, they never crash a
// pipeline over a transport error.
type Requester interface {
	Request(ctx context.Context, req message.Request) (message.Response, error)
}

// HandlerFunc processes one request on the serving side.
type HandlerFunc func(ctx context.Context, req message.Request) message.Response
