// Package natsclient manages the NATS connection shared by the transport and
// the KV storage backend.
package natsclient

import (
	"context"
	"crypto/tls"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/jasonwadsworth/aws-account-name/errors"
	"github.com/jasonwadsworth/aws-account-name/pkg/retry"
)

// ConnectionStatus represents the state of the NATS connection
type ConnectionStatus int

// Possible connection statuses
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
)

// String returns the string representation of ConnectionStatus
func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Client wraps a NATS connection plus its JetStream context.
type Client struct {
	url    string
	status atomic.Value // ConnectionStatus
	logger *slog.Logger

	conn *nats.Conn
	js   jetstream.JetStream

	clientName    string
	maxReconnects int
	reconnectWait time.Duration
	timeout       time.Duration
	connectRetry  retry.Config
	tlsConfig     *tls.Config
	username      string
	password      string
	token         string
}

// NewClient creates an unconnected client for the given URL.
func NewClient(url string, opts ...ClientOption) (*Client, error) {
	if url == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Client", "New", "nats url")
	}

	c := &Client{
		url:           url,
		logger:        slog.Default(),
		clientName:    "aws-account-name",
		maxReconnects: -1,
		reconnectWait: 2 * time.Second,
		timeout:       5 * time.Second,
		connectRetry: retry.Config{
			MaxAttempts:  10,
			InitialDelay: 250 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			Multiplier:   2.0,
			Backoff:      retry.BackoffExponential,
		},
	}
	c.status.Store(StatusDisconnected)

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Connect establishes the connection, retrying with backoff so the resolver
// survives starting before its NATS server does.
func (c *Client) Connect(ctx context.Context) error {
	c.status.Store(StatusConnecting)

	natsOpts := []nats.Option{
		nats.Name(c.clientName),
		nats.Timeout(c.timeout),
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			c.status.Store(StatusReconnecting)
			c.logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			c.status.Store(StatusConnected)
			c.logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	}
	if c.tlsConfig != nil {
		natsOpts = append(natsOpts, nats.Secure(c.tlsConfig))
	}
	if c.username != "" {
		natsOpts = append(natsOpts, nats.UserInfo(c.username, c.password))
	}
	if c.token != "" {
		natsOpts = append(natsOpts, nats.Token(c.token))
	}

	conn := retry.Execute(ctx, c.connectRetry, func() (*nats.Conn, error) {
		return nats.Connect(c.url, natsOpts...)
	}, retry.WithName("nats-connect"), retry.WithLogger(c.logger))

	if conn == nil {
		c.status.Store(StatusDisconnected)
		return errors.WrapTransient(errors.ErrNoConnection, "Client", "Connect", "nats connect")
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		c.status.Store(StatusDisconnected)
		return errors.Wrap(err, "Client", "Connect", "jetstream init")
	}

	c.conn = conn
	c.js = js
	c.status.Store(StatusConnected)
	c.logger.Info("nats connected", "url", conn.ConnectedUrl())
	return nil
}

// Conn returns the underlying connection, nil before Connect.
func (c *Client) Conn() *nats.Conn {
	return c.conn
}

// JetStream returns the JetStream context, nil before Connect.
func (c *Client) JetStream() jetstream.JetStream {
	return c.js
}

// Status returns the current connection status.
func (c *Client) Status() ConnectionStatus {
	return c.status.Load().(ConnectionStatus)
}

// IsHealthy reports whether the connection is established and usable.
func (c *Client) IsHealthy() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// Close drains and closes the connection.
func (c *Client) Close(_ context.Context) error {
	if c.conn == nil {
		return nil
	}
	c.status.Store(StatusDisconnected)
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
		return errors.Wrap(err, "Client", "Close", "drain")
	}
	return nil
}
