// Package ashmirror mirrors remote resources into in-process caches and owns
// their shared lifecycle: the request session, background workers and shutdown.
package ashmirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"

	platformerrors "github.com/jmgilman/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/Borislavv/go-ash-mirror/cache"
	"github.com/Borislavv/go-ash-mirror/config"
	"github.com/Borislavv/go-ash-mirror/internal/purger"
	"github.com/Borislavv/go-ash-mirror/internal/shared/cachedtime"
	"github.com/Borislavv/go-ash-mirror/internal/telemetry"
	"github.com/Borislavv/go-ash-mirror/resources"
	"github.com/Borislavv/go-ash-mirror/rest"
)

var ErrInvalidConfig = platformerrors.New(platformerrors.CodeInvalidConfig, "invalid mirror configuration")

// Hook is run once on shutdown, before the request session is closed.
type Hook func(ctx context.Context) error

type Option func(*Manager)

// WithRequester replaces the HTTP session with r. The manager does not close r.
func WithRequester(r rest.Requester) Option {
	return func(m *Manager) { m.requester = r }
}

// WithHTTPClient sets the client of the HTTP session.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.client = c }
}

type Manager struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *config.Mirror
	logger *slog.Logger

	requester rest.Requester
	session   *rest.Session
	client    *http.Client

	users    *resources.UserCache
	channels *resources.ChannelCache
	guilds   *resources.GuildCache
	invites  *resources.InviteCache
	trackers []cache.Tracker

	purger    purger.Purger
	telemetry telemetry.Logger

	mu          sync.Mutex
	hooks       []Hook
	closing     atomic.Bool
	once        sync.Once
	shutdownErr error
}

var _ resources.Coordinator = (*Manager)(nil)

// New provisions one cache per resource kind and starts the background workers
// the configuration enables. A nil cfg means config.Default().
func New(ctx context.Context, cfg *config.Mirror, logger *slog.Logger, opts ...Option) (*Manager, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	cfg.AdjustConfig()
	if err := validate(cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(ctx)
	m := &Manager{ctx: ctx, cancel: cancel, cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(m)
	}

	cachedtime.RunIfEnabled(ctx, cfg)

	if m.requester == nil {
		m.session = rest.NewSession(ctx, cfg.Rest, logger, m.client)
		m.requester = m.session
	}

	env := resources.Env{
		Owner:        m,
		Recycle:      cfg.Recycle,
		KeepExisting: cfg.Cache.KeepExisting,
		Logger:       logger,
	}
	m.users = resources.NewUserCache(env)
	m.channels = resources.NewChannelCache(env)
	m.guilds = resources.NewGuildCache(env)
	m.invites = resources.NewInviteCache(env)
	m.trackers = []cache.Tracker{m.users, m.channels, m.guilds, m.invites}

	m.purger = purger.New(ctx, cfg, logger, m.Caches)
	m.telemetry = telemetry.New(ctx, cfg.Telemetry, logger, m.Caches, m.purger)

	return m, nil
}

func validate(cfg *config.Mirror) error {
	if cfg.Recycle.Enabled() && (cfg.Recycle.Capacity < 0 || cfg.Recycle.TTL < 0) {
		return platformerrors.Wrapf(ErrInvalidConfig, platformerrors.CodeInvalidConfig,
			"recycle capacity and ttl must not be negative (capacity=%d, ttl=%s)", cfg.Recycle.Capacity, cfg.Recycle.TTL)
	}
	return nil
}

func (m *Manager) Rest() rest.Requester              { return m.requester }
func (m *Manager) Users() *resources.UserCache       { return m.users }
func (m *Manager) Channels() *resources.ChannelCache { return m.channels }
func (m *Manager) Guilds() *resources.GuildCache     { return m.guilds }
func (m *Manager) Invites() *resources.InviteCache   { return m.invites }
func (m *Manager) Config() *config.Mirror            { return m.cfg }
func (m *Manager) Purger() purger.Purger             { return m.purger }
func (m *Manager) Closing() bool                     { return m.closing.Load() }
func (m *Manager) Done() <-chan struct{}             { return m.ctx.Done() }
func (m *Manager) Caches() []cache.Tracker           { return slices.Clone(m.trackers) }

// OnShutdown registers a hook. Hooks registered once shutdown started never run.
func (m *Manager) OnShutdown(hook Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, hook)
}

// Run blocks until ctx is done or Shutdown is called elsewhere, then shuts the manager down.
func (m *Manager) Run(ctx context.Context) error {
	m.logger.Info("ashmirror is running", "caches", len(m.trackers))

	select {
	case <-ctx.Done():
	case <-m.ctx.Done():
	}
	return m.Shutdown(context.WithoutCancel(ctx))
}

// Shutdown runs the registered hooks concurrently, closes the request session and
// stops background workers. It is bounded by the configured shutdown timeout.
// Only the first call does the work; every call returns its result.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.once.Do(func() {
		m.shutdownErr = m.shutdown(ctx)
	})
	return m.shutdownErr
}

func (m *Manager) Close() error {
	return m.Shutdown(context.Background())
}

func (m *Manager) shutdown(ctx context.Context) error {
	m.closing.Store(true)
	m.logger.Info("ashmirror is shutting down")
	defer m.logger.Info("ashmirror is stopped")

	ctx, cancel := context.WithTimeout(ctx, m.cfg.ShutdownTimeout)
	defer cancel()

	m.mu.Lock()
	hooks := slices.Clone(m.hooks)
	m.mu.Unlock()

	var errs []error
	if err := runHooks(ctx, hooks); err != nil {
		errs = append(errs, err)
	}
	if m.session != nil {
		if err := m.session.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close rest session: %w", err))
		}
	}
	errs = append(errs, m.purger.Close(), m.telemetry.Close())
	m.cancel()

	return errors.Join(errs...)
}

func runHooks(ctx context.Context, hooks []Hook) error {
	if len(hooks) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, hook := range hooks {
		g.Go(func() error { return hook(gctx) })
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("shutdown hook: %w", err)
		}
		return nil
	case <-ctx.Done():
		return platformerrors.Wrap(ctx.Err(), platformerrors.CodeTimeout, "shutdown hooks did not finish in time")
	}
}
