// Package runtime assembles the service from its parts and manages the
// lifecycle: configuration, module registry, router, transport, storage,
// and the config watcher. It can run standalone or embedded.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oxproject/oxweb/internal/config"
	"github.com/oxproject/oxweb/internal/core/ports"
	"github.com/oxproject/oxweb/internal/module"
	"github.com/oxproject/oxweb/internal/pipeline"
	"github.com/oxproject/oxweb/internal/registration"
	"github.com/oxproject/oxweb/internal/router"
	"github.com/oxproject/oxweb/internal/server"
	"github.com/oxproject/oxweb/internal/storage/accesslog"
	"github.com/oxproject/oxweb/internal/storage/sqlite"
)

// Service is the assembled web service.
type Service struct {
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
	store      accesslog.Store
	metrics    *pipeline.Metrics
	registrars []func(*module.Registry)

	registry *module.Registry
	router   *router.Router
	server   *server.Server
	watcher  *config.Watcher

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
}

// New creates a service with the given options. Configuration comes from
// WithConfig or WithConfigFile; without either, defaults and environment
// variables apply.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}
	return s, nil
}

// Start loads configuration, builds the route table, and starts serving.
// It returns once the listener goroutine is running.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ctx, s.cancel = context.WithCancel(ctx)

	cfg := s.cfg
	if cfg == nil {
		loaded, err := config.Load(s.configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
		s.cfg = cfg
	}

	if err := s.initStorage(cfg); err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	phases, err := cfg.PhaseOrder()
	if err != nil {
		return fmt.Errorf("phase order: %w", err)
	}
	if s.metrics == nil {
		s.metrics = pipeline.NewMetrics(phases)
	}

	s.registry = module.NewRegistry()
	registration.RegisterBuiltins(s.registry, registration.Options{
		Store:   s.store,
		Metrics: s.metrics,
	})
	for _, reg := range s.registrars {
		reg(s.registry)
	}

	specs, err := cfg.BuildRoutes(s.registry, s.logger)
	if err != nil {
		return fmt.Errorf("build routes: %w", err)
	}
	table, err := router.NewTable(specs)
	if err != nil {
		return fmt.Errorf("compile route table: %w", err)
	}

	arenaOpts, err := cfg.ArenaOptions()
	if err != nil {
		return fmt.Errorf("arena options: %w", err)
	}

	exec := pipeline.NewExecutor(s.logger, s.metrics)
	s.router = router.New(table, exec, pipeline.StateOptions{Arena: arenaOpts}, s.logger)

	timeout, err := requestTimeout(cfg)
	if err != nil {
		return err
	}
	s.server = server.New(server.Options{
		Bind:           cfg.Server.Bind,
		Port:           cfg.Server.Port,
		RequestTimeout: timeout,
	}, server.NewHandler(s.router, s.logger), s.logger)

	go func() {
		if err := s.server.Start(); err != nil {
			s.logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	if s.configPath != "" {
		if err := s.watchConfig(); err != nil {
			s.logger.Warn("config watch unavailable", slog.String("error", err.Error()))
		}
	}

	s.logger.Info("service started",
		slog.String("addr", s.server.Addr()),
		slog.Int("routes", len(specs)),
		slog.Int("modules", len(s.registry.Names())))
	return nil
}

// Shutdown drains the server and closes storage and the watcher.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("shutting down service")

	if s.cancel != nil {
		s.cancel()
	}
	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			s.logger.Error("failed to close config watcher", slog.String("error", err.Error()))
		}
	}

	var firstErr error
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.Error("failed to shutdown server", slog.String("error", err.Error()))
			firstErr = err
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("failed to close storage", slog.String("error", err.Error()))
		}
	}

	s.logger.Info("service shutdown complete")
	return firstErr
}

// Router exposes the compiled router, mostly for embedding and tests.
func (s *Service) Router() *router.Router { return s.router }

// Metrics exposes the pipeline metrics registry.
func (s *Service) Metrics() *pipeline.Metrics { return s.metrics }

func (s *Service) initStorage(cfg *config.Config) error {
	if s.store != nil {
		return nil
	}
	switch cfg.Storage.Type {
	case "", "none":
		return nil
	case "sqlite":
		path := cfg.Storage.SQLite.Path
		if path == "" {
			return fmt.Errorf("storage.sqlite.path required for sqlite storage")
		}
		store, err := sqlite.New(path)
		if err != nil {
			return err
		}
		s.store = store
		return nil
	default:
		return fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}

func (s *Service) watchConfig() error {
	w, err := config.NewWatcher(s.configPath, s.logger)
	if err != nil {
		return err
	}
	s.watcher = w
	return w.Watch(s.ctx, nil)
}

func requestTimeout(cfg *config.Config) (time.Duration, error) {
	if cfg.Server.RequestTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(cfg.Server.RequestTimeout)
	if err != nil {
		return 0, fmt.Errorf("server.request_timeout: %w", err)
	}
	return d, nil
}

// DefaultPhases is re-exported for embedders wiring custom plans.
func DefaultPhases() []ports.Phase { return ports.DefaultPhases() }
