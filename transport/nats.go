package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/jasonwadsworth/aws-account-name/errors"
	"github.com/jasonwadsworth/aws-account-name/message"
)

// NATSRequester sends requests over NATS request/reply.
type NATSRequester struct {
	conn    *nats.Conn
	subject string
	timeout time.Duration
	logger  *slog.Logger
}

// NewNATSRequester creates a requester on the given subject. Empty subject
// uses DefaultSubject; non-positive timeout defaults to 5s.
func NewNATSRequester(conn *nats.Conn, subject string, timeout time.Duration, logger *slog.Logger) *NATSRequester {
	if subject == "" {
		subject = DefaultSubject
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSRequester{conn: conn, subject: subject, timeout: timeout, logger: logger}
}

// Request implements Requester. A failed call gets one immediate retry.
// Transport failures never enter the backoff machinery, that is reserved for
// DOM probes.
func (t *NATSRequester) Request(ctx context.Context, req message.Request) (message.Response, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return message.Response{}, errors.WrapInvalid(err, "NATSRequester", "Request", "encode request")
	}

	reply, err := t.send(ctx, data)
	if err != nil {
		t.logger.Warn("transport request failed, retrying once",
			"type", req.Type,
			"request_id", req.RequestID,
			"error", err)
		reply, err = t.send(ctx, data)
	}
	if err != nil {
		return message.Response{}, errors.WrapTransient(err, "NATSRequester", "Request", string(req.Type))
	}

	var resp message.Response
	if err := json.Unmarshal(reply.Data, &resp); err != nil {
		return message.Response{}, errors.WrapInvalid(err, "NATSRequester", "Request", "decode response")
	}
	return resp, nil
}

func (t *NATSRequester) send(ctx context.Context, data []byte) (*nats.Msg, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.conn.RequestWithContext(ctx, t.subject, data)
}

// Serve subscribes handler to the subject with a queue group so multiple
// service replicas share the load. Returns the subscription for teardown.
func Serve(conn *nats.Conn, subject string, handler HandlerFunc, logger *slog.Logger) (*nats.Subscription, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = slog.Default()
	}

	sub, err := conn.QueueSubscribe(subject, "account-service", func(msg *nats.Msg) {
		var req message.Request
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			logger.Warn("dropping undecodable request", "error", err)
			respond(msg, message.Response{Success: false, Error: "malformed request"}, logger)
			return
		}

		resp := handler(context.Background(), req)
		respond(msg, resp, logger)
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "transport", "Serve", "queue subscribe")
	}
	return sub, nil
}

func respond(msg *nats.Msg, resp message.Response, logger *slog.Logger) {
	data, err := json.Marshal(resp)
	if err != nil {
		logger.Error("encode response", "error", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		logger.Warn("respond failed", "error", err)
	}
}
