// Package accounts implements the storage service answering typed account
// mapping requests from the extraction pipelines.
package accounts

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/jasonwadsworth/aws-account-name/component"
	"github.com/jasonwadsworth/aws-account-name/errors"
	"github.com/jasonwadsworth/aws-account-name/message"
	"github.com/jasonwadsworth/aws-account-name/metric"
	"github.com/jasonwadsworth/aws-account-name/storage"
	"github.com/jasonwadsworth/aws-account-name/transport"
	"github.com/jasonwadsworth/aws-account-name/types"
)

// Service answers STORE_ACCOUNTS, GET_ACCOUNT_NAME, GET_ACCOUNT_BY_NAME, and
// CLEAR_DATA requests against an AccountStore. It serves over NATS when a
// connection is supplied, and can additionally register on an in-process bus.
type Service struct {
	store    storage.AccountStore
	conn     *nats.Conn // nil in single-process mode
	subject  string
	logger   *component.Logger
	registry *metric.MetricsRegistry

	sub   *nats.Subscription
	state component.State
}

// Config carries the service wiring.
type Config struct {
	Store    storage.AccountStore
	Conn     *nats.Conn
	Subject  string
	Logger   *component.Logger
	Registry *metric.MetricsRegistry
}

// New creates the service.
func New(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Service", "New", "account store")
	}
	if cfg.Logger == nil {
		cfg.Logger = component.NewLogger("account-service", cfg.Conn, nil)
	}
	return &Service{
		store:    cfg.Store,
		conn:     cfg.Conn,
		subject:  cfg.Subject,
		logger:   cfg.Logger,
		registry: cfg.Registry,
		state:    component.StateCreated,
	}, nil
}

// Name implements component.Component.
func (s *Service) Name() string { return "account-service" }

// Initialize implements component.LifecycleComponent.
func (s *Service) Initialize() error {
	s.state = component.StateInitialized
	return nil
}

// Start implements component.LifecycleComponent. With a NATS connection the
// service subscribes for requests; without one it only serves via Handle.
func (s *Service) Start(_ context.Context) error {
	if s.state == component.StateStarted {
		return errors.ErrAlreadyStarted
	}

	if s.conn != nil {
		sub, err := transport.Serve(s.conn, s.subject, s.Handle, s.logger.Slog())
		if err != nil {
			s.state = component.StateFailed
			return err
		}
		s.sub = sub
	}

	s.state = component.StateStarted
	s.logger.Info("account service started")
	return nil
}

// Stop implements component.LifecycleComponent.
func (s *Service) Stop(_ time.Duration) error {
	if s.sub != nil {
		if err := s.sub.Unsubscribe(); err != nil {
			return errors.Wrap(err, "Service", "Stop", "unsubscribe")
		}
		s.sub = nil
	}
	s.state = component.StateStopped
	return nil
}

// Handle processes one request. It implements transport.HandlerFunc and is
// the single dispatch point for both serving modes.
func (s *Service) Handle(ctx context.Context, req message.Request) message.Response {
	if err := req.Validate(); err != nil {
		s.count(req.Type, "invalid")
		return message.Fail(req, err)
	}

	var resp message.Response
	switch req.Type {
	case message.TypeStoreAccounts:
		resp = s.handleStore(ctx, req)
	case message.TypeGetAccountName:
		resp = s.handleGetName(ctx, req)
	case message.TypeGetAccountByName:
		resp = s.handleGetByName(ctx, req)
	case message.TypeClearData:
		resp = s.handleClear(ctx, req)
	}

	outcome := "success"
	if !resp.Success {
		outcome = "failure"
	}
	s.count(req.Type, outcome)
	return resp
}

func (s *Service) handleStore(ctx context.Context, req message.Request) message.Response {
	valid, dropped := types.FilterValid(req.Accounts)
	for _, d := range dropped {
		s.logger.Warn("dropping malformed account mapping",
			"account_id", d.AccountID)
	}
	if len(valid) == 0 {
		// Storing an all-invalid batch would wipe the mirror; refuse instead.
		return message.Fail(req, errors.ErrInvalidData)
	}

	if err := s.store.Store(ctx, valid); err != nil {
		s.logger.Error("store failed", err, "count", len(valid))
		return message.Fail(req, err)
	}
	s.logger.Info("stored account mappings", "count", len(valid), "dropped", len(dropped))
	return message.OK(req)
}

func (s *Service) handleGetName(ctx context.Context, req message.Request) message.Response {
	name, err := s.store.GetByAccountID(ctx, req.AccountID)
	if err != nil {
		s.logger.Error("lookup by id failed", err, "account_id", req.AccountID)
		return message.Fail(req, err)
	}
	resp := message.OK(req)
	resp.AccountID = req.AccountID
	resp.AccountName = name // empty means not found
	return resp
}

// handleGetByName resolves exactly first, then falls back to the fuzzy
// substring match.
func (s *Service) handleGetByName(ctx context.Context, req message.Request) message.Response {
	id, err := s.store.GetByAccountName(ctx, req.AccountName)
	if err != nil {
		s.logger.Error("lookup by name failed", err, "account_name", req.AccountName)
		return message.Fail(req, err)
	}
	if id == "" {
		if id, err = s.store.FuzzyLookup(ctx, req.AccountName); err != nil {
			s.logger.Error("fuzzy lookup failed", err, "account_name", req.AccountName)
			return message.Fail(req, err)
		}
	}

	resp := message.OK(req)
	resp.AccountName = req.AccountName
	resp.AccountID = id
	return resp
}

func (s *Service) handleClear(ctx context.Context, req message.Request) message.Response {
	if err := s.store.Clear(ctx); err != nil {
		s.logger.Error("clear failed", err)
		return message.Fail(req, err)
	}
	s.logger.Info("cleared account mappings")
	return message.OK(req)
}

func (s *Service) count(t message.Type, outcome string) {
	if s.registry == nil {
		return
	}
	s.registry.Metrics.StorageRequests.WithLabelValues(string(t), outcome).Inc()
}
