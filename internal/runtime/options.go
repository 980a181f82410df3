package runtime

import (
	"fmt"
	"log/slog"

	"github.com/oxproject/oxweb/internal/config"
	"github.com/oxproject/oxweb/internal/module"
	"github.com/oxproject/oxweb/internal/pipeline"
	"github.com/oxproject/oxweb/internal/storage/accesslog"
	"github.com/oxproject/oxweb/internal/storage/sqlite"
)

// Option is a functional option for configuring a Service.
type Option func(*Service) error

// WithConfigFile loads configuration from path and watches it for
// changes. Changes are surfaced in the log; the running route table is
// immutable until restart.
func WithConfigFile(path string) Option {
	return func(s *Service) error {
		if path == "" {
			return fmt.Errorf("config path cannot be empty")
		}
		s.configPath = path
		return nil
	}
}

// WithConfig injects an already-loaded configuration, bypassing file and
// environment loading. Useful for embedding and tests.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) error {
		if cfg == nil {
			return fmt.Errorf("config cannot be nil")
		}
		s.cfg = cfg
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		s.logger = logger
		return nil
	}
}

// WithSQLite opens SQLite-backed accounting storage at path, overriding
// the storage section of the configuration.
func WithSQLite(path string) Option {
	return func(s *Service) error {
		store, err := sqlite.New(path)
		if err != nil {
			return fmt.Errorf("create sqlite storage: %w", err)
		}
		s.store = store
		return nil
	}
}

// WithStore injects a custom accounting store.
func WithStore(store accesslog.Store) Option {
	return func(s *Service) error {
		s.store = store
		return nil
	}
}

// WithMetrics injects a shared metrics registry.
func WithMetrics(m *pipeline.Metrics) Option {
	return func(s *Service) error {
		s.metrics = m
		return nil
	}
}

// WithModules registers additional module factories before routes are
// built; embedders use this to add their own modules next to the
// built-ins.
func WithModules(register func(*module.Registry)) Option {
	return func(s *Service) error {
		if register == nil {
			return fmt.Errorf("module registrar cannot be nil")
		}
		s.registrars = append(s.registrars, register)
		return nil
	}
}
