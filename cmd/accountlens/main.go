// Package main implements the accountlens daemon: the storage service side
// of the AWS account-name resolver. It answers account mapping requests over
// NATS, optionally fans resolved display updates out over WebSocket, and
// exposes Prometheus metrics.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/jasonwadsworth/aws-account-name/component"
	"github.com/jasonwadsworth/aws-account-name/config"
	"github.com/jasonwadsworth/aws-account-name/extract"
	"github.com/jasonwadsworth/aws-account-name/gateway/ws"
	"github.com/jasonwadsworth/aws-account-name/health"
	"github.com/jasonwadsworth/aws-account-name/metric"
	"github.com/jasonwadsworth/aws-account-name/natsclient"
	"github.com/jasonwadsworth/aws-account-name/pipeline/console"
	"github.com/jasonwadsworth/aws-account-name/pipeline/docfeed"
	"github.com/jasonwadsworth/aws-account-name/pipeline/portal"
	"github.com/jasonwadsworth/aws-account-name/pkg/dom"
	"github.com/jasonwadsworth/aws-account-name/pkg/retry"
	"github.com/jasonwadsworth/aws-account-name/pkg/tlsutil"
	"github.com/jasonwadsworth/aws-account-name/service/accounts"
	"github.com/jasonwadsworth/aws-account-name/storage"
	"github.com/jasonwadsworth/aws-account-name/transport"
)

const (
	Version = "1.0.0"
	appName = "accountlens"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; absence is the normal case outside development.
	_ = godotenv.Load()

	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}

	cfg, err := loadConfig(cliCfg)
	if err != nil {
		return err
	}
	if cliCfg.Validate {
		slog.Info("configuration is valid")
		return nil
	}

	logger := setupLogger(pick(cliCfg.LogLevel, cfg.Logging.Level), pick(cliCfg.LogFormat, cfg.Logging.Format))
	slog.SetDefault(logger)
	slog.Info("starting accountlens",
		"version", Version,
		"storage_mode", cfg.Storage.Mode,
		"environment", cfg.Service.Environment)

	ctx := context.Background()
	registry := metric.NewMetricsRegistry()

	natsClient, err := connectNATS(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if natsClient != nil {
		defer natsClient.Close(ctx)
	}

	store, err := buildStore(ctx, cfg, natsClient, logger)
	if err != nil {
		return fmt.Errorf("build store: %w", err)
	}

	components, err := buildComponents(cfg, natsClient, store, registry, logger)
	if err != nil {
		return err
	}

	monitor := health.NewMonitor(appName)
	metricsSrv := startMetricsServer(cfg, registry, monitor, logger)

	runner := component.NewRunner(component.NewLogger(appName, loggerMirror(cfg, natsConn(natsClient)), logger), components...)
	return runWithSignalHandling(ctx, runner, components, natsClient, monitor, metricsSrv, cliCfg.ShutdownTimeout)
}

// loadConfig reads the config file when one was named, otherwise builds the
// configuration from defaults plus environment.
func loadConfig(cliCfg *CLIConfig) (*config.Config, error) {
	if cliCfg.ConfigPath != "" {
		cfg, err := config.Load(cliCfg.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		return cfg, nil
	}
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("load config from environment: %w", err)
	}
	return cfg, nil
}

// connectNATS connects when URLs are configured; nil means single-process
// mode with no NATS anywhere.
func connectNATS(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*natsclient.Client, error) {
	if len(cfg.NATS.URLs) == 0 {
		slog.Info("no NATS URLs configured, running without NATS")
		return nil, nil
	}

	opts := []natsclient.ClientOption{
		natsclient.WithClientName(appName),
		natsclient.WithLogger(logger),
		natsclient.WithMaxReconnects(cfg.NATS.MaxReconnects),
		natsclient.WithReconnectWait(time.Duration(cfg.NATS.ReconnectWait)),
		natsclient.WithConnectTimeout(time.Duration(cfg.NATS.ConnectTimeout)),
	}
	if cfg.NATS.TLS.Enabled {
		tlsCfg, err := tlsutil.LoadClientTLSConfig(tlsutil.ClientConfig{
			CertFile: cfg.NATS.TLS.CertFile,
			KeyFile:  cfg.NATS.TLS.KeyFile,
			CAFile:   cfg.NATS.TLS.CAFile,
		})
		if err != nil {
			return nil, fmt.Errorf("load NATS TLS config: %w", err)
		}
		opts = append(opts, natsclient.WithTLSConfig(tlsCfg))
	}
	if cfg.NATS.Username != "" {
		opts = append(opts, natsclient.WithUserInfo(cfg.NATS.Username, cfg.NATS.Password))
	}
	if cfg.NATS.Token != "" {
		opts = append(opts, natsclient.WithToken(cfg.NATS.Token))
	}

	client, err := natsclient.NewClient(cfg.NATS.URLs[0], opts...)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	slog.Info("connecting to NATS", "url", cfg.NATS.URLs[0])
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return client, nil
}

// buildStore selects the storage backend from configuration.
func buildStore(ctx context.Context, cfg *config.Config, natsClient *natsclient.Client, logger *slog.Logger) (storage.AccountStore, error) {
	switch cfg.Storage.Mode {
	case config.StorageModeMemory:
		return storage.NewMemoryStore(), nil

	case config.StorageModeKV:
		if natsClient == nil {
			return nil, fmt.Errorf("kv storage mode requires a NATS connection")
		}
		bucket, err := storage.EnsureBucket(ctx, natsClient.JetStream(), cfg.Storage.Bucket)
		if err != nil {
			return nil, fmt.Errorf("ensure kv bucket %s: %w", cfg.Storage.Bucket, err)
		}
		return storage.NewKVStore(bucket, logger), nil

	case config.StorageModeDynamo:
		return storage.NewDynamoStore(ctx, cfg.Storage.Table, logger)

	default:
		return nil, fmt.Errorf("unknown storage mode %q", cfg.Storage.Mode)
	}
}

// buildComponents assembles the lifecycle components in start order.
func buildComponents(
	cfg *config.Config,
	natsClient *natsclient.Client,
	store storage.AccountStore,
	registry *metric.MetricsRegistry,
	logger *slog.Logger,
) ([]component.LifecycleComponent, error) {
	var components []component.LifecycleComponent

	subject := cfg.NATS.Subject
	if subject == "" {
		subject = transport.DefaultSubject
	}

	mirrorConn := natsConn(natsClient)
	svcLogger := component.NewLogger("account-service", loggerMirror(cfg, mirrorConn), logger)

	svc, err := accounts.New(accounts.Config{
		Store:    store,
		Conn:     mirrorConn,
		Subject:  subject,
		Logger:   svcLogger,
		Registry: registry,
	})
	if err != nil {
		return nil, fmt.Errorf("create account service: %w", err)
	}
	components = append(components, svc)

	var hub *ws.Hub
	if cfg.Gateway.Enabled {
		hub = ws.NewHub(ws.Config{
			Addr:     cfg.Gateway.Addr,
			Path:     cfg.Gateway.Path,
			Logger:   component.NewLogger("ws-gateway", loggerMirror(cfg, mirrorConn), logger),
			Registry: registry,
		})
		components = append(components, hub)
	}

	// The pipelines talk to the account service in-process; NATS is only the
	// snapshot feed and, when configured, the storage backend.
	bus := transport.NewMemoryBus()
	bus.Register(svc.Handle)

	if cfg.Portal.Enabled {
		portalComponents, err := buildPortalPipeline(cfg, mirrorConn, bus, registry, logger)
		if err != nil {
			return nil, err
		}
		components = append(components, portalComponents...)
	}

	if cfg.Console.Enabled {
		consoleComponents, err := buildConsolePipeline(cfg, mirrorConn, bus, hub, registry, logger)
		if err != nil {
			return nil, err
		}
		components = append(components, consoleComponents...)
	}

	return components, nil
}

// buildPortalPipeline assembles the portal document feed and the extraction
// pipeline observing it. The feed precedes the pipeline in start order so no
// snapshot is dropped while the pipeline spins up.
func buildPortalPipeline(
	cfg *config.Config,
	conn *nats.Conn,
	bus transport.Requester,
	registry *metric.MetricsRegistry,
	logger *slog.Logger,
) ([]component.LifecycleComponent, error) {
	doc := dom.NewStaticDocument("")

	subject := cfg.Portal.Subject
	if subject == "" {
		subject = docfeed.PortalSubject
	}
	feed, err := docfeed.New(docfeed.Config{
		Name:    "portal-doc-feed",
		Doc:     doc,
		Conn:    conn,
		Subject: subject,
		Logger:  component.NewLogger("portal-doc-feed", loggerMirror(cfg, conn), logger),
	})
	if err != nil {
		return nil, fmt.Errorf("create portal document feed: %w", err)
	}

	extractor := extract.NewPortalExtractor(doc, extract.DefaultPortalSelectors(), logger)
	pipe, err := portal.New(portal.Config{
		Doc:       doc,
		Extract:   extractor.Extract,
		Requester: bus,
		Retry:     cfg.Portal.Retry.ToRetryConfig(retry.PortalConfig()),
		Debounce:  time.Duration(cfg.Portal.Debounce),
		Logger:    component.NewLogger("portal-pipeline", loggerMirror(cfg, conn), logger),
		Registry:  registry,
	})
	if err != nil {
		return nil, fmt.Errorf("create portal pipeline: %w", err)
	}
	return []component.LifecycleComponent{feed, pipe}, nil
}

// buildConsolePipeline assembles the console document feed and the display
// pipeline. Display updates go to the websocket hub when the gateway is
// enabled, otherwise to an in-document badge.
func buildConsolePipeline(
	cfg *config.Config,
	conn *nats.Conn,
	bus transport.Requester,
	hub *ws.Hub,
	registry *metric.MetricsRegistry,
	logger *slog.Logger,
) ([]component.LifecycleComponent, error) {
	doc := dom.NewStaticDocument("")

	subject := cfg.Console.Subject
	if subject == "" {
		subject = docfeed.ConsoleSubject
	}
	feed, err := docfeed.New(docfeed.Config{
		Name:    "console-doc-feed",
		Doc:     doc,
		Conn:    conn,
		Subject: subject,
		Logger:  component.NewLogger("console-doc-feed", loggerMirror(cfg, conn), logger),
	})
	if err != nil {
		return nil, fmt.Errorf("create console document feed: %w", err)
	}

	var renderer console.DisplayRenderer = console.NewBadgeRenderer(doc)
	if hub != nil {
		renderer = hub
	}
	pipe, err := console.New(console.Config{
		Doc:       doc,
		Reader:    extract.NewConsoleReader(doc, extract.DefaultConsoleSelectors()),
		Requester: bus,
		Renderer:  renderer,
		Retry:     cfg.Console.Retry.ToRetryConfig(retry.ConsoleConfig()),
		NavPoll:   time.Duration(cfg.Console.NavPoll),
		Logger:    component.NewLogger("console-pipeline", loggerMirror(cfg, conn), logger),
		Registry:  registry,
	})
	if err != nil {
		return nil, fmt.Errorf("create console pipeline: %w", err)
	}
	return []component.LifecycleComponent{feed, pipe}, nil
}

// startMetricsServer exposes /metrics and /healthz when enabled. Returns nil
// otherwise.
func startMetricsServer(cfg *config.Config, registry *metric.MetricsRegistry, monitor *health.Monitor, logger *slog.Logger) *http.Server {
	if !cfg.Metrics.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", registry.Handler())
	mux.Handle("/healthz", monitor.Handler())

	srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
	go func() {
		logger.Info("metrics server listening", "addr", cfg.Metrics.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}

// runWithSignalHandling starts everything and blocks until SIGINT/SIGTERM.
func runWithSignalHandling(
	ctx context.Context,
	runner *component.Runner,
	components []component.LifecycleComponent,
	natsClient *natsclient.Client,
	monitor *health.Monitor,
	metricsSrv *http.Server,
	shutdownTimeout time.Duration,
) error {
	signalCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := runner.Start(signalCtx); err != nil {
		return fmt.Errorf("start components: %w", err)
	}
	for _, c := range components {
		monitor.Update(health.Healthy(c.Name(), "running"))
	}
	go watchHealth(signalCtx, natsClient, monitor)
	slog.Info("accountlens started")

	<-signalCtx.Done()
	slog.Info("received shutdown signal")

	runner.Stop(shutdownTimeout)

	if metricsSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("metrics server shutdown error", "error", err)
		}
	}

	slog.Info("accountlens shutdown complete")
	return nil
}

// watchHealth keeps the NATS connection status reflected in the monitor.
func watchHealth(ctx context.Context, natsClient *natsclient.Client, monitor *health.Monitor) {
	if natsClient == nil {
		return
	}

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if natsClient.IsHealthy() {
				monitor.Update(health.Healthy("nats", "connected"))
			} else {
				monitor.Update(health.Degraded("nats", natsClient.Status().String()))
			}
		}
	}
}

func pick(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return configValue
}
