package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"docnexus/internal/adapter/api"
	"docnexus/internal/adapter/session"
	"docnexus/internal/domain"
	"docnexus/internal/infra/config"
	"docnexus/internal/infra/logger"
	"docnexus/internal/infra/tracer"
	chatuc "docnexus/internal/usecase/chat"
	"docnexus/internal/usecase/eventbus"
	"docnexus/internal/usecase/ingest"
	"docnexus/internal/usecase/stream"
)

// app holds the wired components for one command invocation.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *session.Store
	client  *api.Client
	bus     *eventbus.Bus
	chat    *chatuc.Service
	threads *chatuc.ThreadList
	files   *ingest.Service
	poller  *ingest.Poller

	closers []func() error
}

// sessionTokens prefers a configured token over the stored login.
type sessionTokens struct {
	override string
	store    domain.TokenStore
}

func (t sessionTokens) Token(ctx context.Context) (string, error) {
	if t.override != "" {
		return t.override, nil
	}
	if t.store == nil {
		return "", nil
	}
	return t.store.Token(ctx)
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	path := opts.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Logger.Level = opts.logLevel
	}
	return cfg, nil
}

// newApp loads config and wires every component. With tui set, logs and
// traces go to the log file instead of the terminal.
func newApp(ctx context.Context, opts *rootOptions, tui bool) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}

	if err := a.initLogger(tui); err != nil {
		return nil, err
	}
	if err := a.initTracer(ctx, tui); err != nil {
		a.Close()
		return nil, err
	}

	store, err := session.Open(cfg.Session.Path)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, store.Close)

	client, err := api.New(cfg.API, a.logger, api.WithTokenSource(sessionTokens{override: cfg.Auth.Token, store: store}))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.client = client

	a.bus = eventbus.New(a.logger)
	a.closers = append(a.closers, func() error { a.bus.Close(); return nil })
	a.bus.SubscribeAll(func(_ context.Context, ev domain.Event) {
		a.logger.Debug("event", "type", ev.Type, "thread_id", ev.ThreadID)
	})

	a.chat = chatuc.NewService(client, a.bus, stream.Options{
		FlushTrailing: cfg.Stream.FlushTrailing,
		MaxLineBytes:  cfg.Stream.MaxLineBytes,
	}, a.logger)
	a.threads = chatuc.NewThreadList(client, store, a.logger)
	a.files = ingest.NewService(client, a.bus, a.logger)
	a.poller = ingest.NewPoller(client, a.bus, ingest.PollOptions{
		Interval: cfg.Ingest.PollInterval,
		Burst:    cfg.Ingest.PollBurst,
	}, a.logger)
	return a, nil
}

func (a *app) initLogger(tui bool) error {
	var (
		log    *slog.Logger
		closer func() error
		err    error
	)
	if tui {
		log, closer, err = logger.ForTerminalUI(a.cfg.Logger, config.DefaultLogFile())
	} else {
		log, closer, err = logger.New(a.cfg.Logger)
	}
	if err != nil {
		return domain.NewDomainError("app.logger", domain.ErrConfigLoad, err.Error())
	}
	a.logger = log
	a.closers = append(a.closers, closer)
	return nil
}

func (a *app) initTracer(ctx context.Context, tui bool) error {
	var w io.Writer = os.Stderr
	if tui && a.cfg.Tracer.Enabled {
		path := config.DefaultLogFile()
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open trace output: %w", err)
		}
		w = f
		a.closers = append(a.closers, f.Close)
	}
	shutdown, err := tracer.Setup(ctx, a.cfg.Tracer, tracer.WithWriter(w))
	if err != nil {
		return domain.NewDomainError("app.tracer", domain.ErrConfigLoad, err.Error())
	}
	// Registered after the writer so spans flush before it is closed.
	a.closers = append(a.closers, func() error { return shutdown(context.Background()) })
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && a.logger != nil {
			a.logger.Debug("close", "error", err)
		}
	}
	a.closers = nil
}

// username returns the configured user, else the stored login.
func (a *app) username(ctx context.Context) string {
	if a.cfg.Auth.Username != "" {
		return a.cfg.Auth.Username
	}
	name, err := a.store.Username(ctx)
	if err != nil {
		a.logger.Warn("read username", "error", err)
	}
	return name
}
