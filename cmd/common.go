package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vtable/vtable/internal/config"
	"github.com/vtable/vtable/internal/engine"
	"github.com/vtable/vtable/internal/logging"
	"github.com/vtable/vtable/internal/store"
	"github.com/vtable/vtable/internal/types"
)

// session bundles what every database-backed command needs.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	pg     *store.Postgres
	eng    *engine.Engine
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.Setup(cfg.Logging.Level, cfg.Logging.Directory)
	if err != nil {
		return nil, fmt.Errorf("setting up logging: %w", err)
	}
	if n, err := logging.Prune(cfg.Logging.Directory, cfg.Logging.RetentionDays, time.Now()); err != nil {
		logger.Warn("pruning old logs", "error", err)
	} else if n > 0 {
		logger.Debug("pruned old logs", "count", n)
	}
	return logger, nil
}

// openSession loads the config, connects to PostgreSQL and builds the engine.
// The caller must call close.
func openSession(ctx context.Context, opts ...engine.Option) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	sess, err := openSessionWith(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	sess.eng = sess.engineWith(opts...)
	return sess, nil
}

func openSessionWith(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*session, error) {
	pg, err := store.NewPostgres(ctx, cfg.Store.DSN, cfg.Store.MaxConnections)
	if err != nil {
		return nil, fmt.Errorf("connecting to store: %w", err)
	}
	return &session{cfg: cfg, logger: logger, pg: pg}, nil
}

// engineWith builds an engine over the session's store. The config page size
// applies unless opts override it.
func (s *session) engineWith(opts ...engine.Option) *engine.Engine {
	opts = append([]engine.Option{engine.WithPageSize(s.cfg.Store.PageSize)}, opts...)
	return engine.New(s.pg, types.NewDefaultRegistry(), s.logger, opts...)
}

func (s *session) close() {
	s.pg.Close()
}
