// Package daemon wires configuration, storage and services into the
// speakflowd HTTP server and queue workers.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/speakflow/internal/api"
	"github.com/felixgeelhaar/speakflow/internal/auth"
	"github.com/felixgeelhaar/speakflow/internal/config"
	"github.com/felixgeelhaar/speakflow/internal/credits"
	"github.com/felixgeelhaar/speakflow/internal/grading"
	"github.com/felixgeelhaar/speakflow/internal/llm"
	"github.com/felixgeelhaar/speakflow/internal/observe"
	"github.com/felixgeelhaar/speakflow/internal/practice"
	"github.com/felixgeelhaar/speakflow/internal/profile"
	"github.com/felixgeelhaar/speakflow/internal/queue"
	"github.com/felixgeelhaar/speakflow/internal/storage/postgres"
	"github.com/felixgeelhaar/speakflow/internal/storage/sqlite"
	"github.com/felixgeelhaar/speakflow/internal/voice"
)

const (
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout = 30 * time.Second

	sessionCleanupInterval = time.Hour
	creditsCacheKey        = "speakflow:credits"
)

// Server represents the speakflow daemon
type Server struct {
	cfg    *config.Config
	server *http.Server
	app    *api.App
	logger *slog.Logger

	llmRegistry *llm.Registry
	consumer    *queue.Consumer
	results     *queue.ResultConsumer

	closers []func() error
}

// ServerConfig holds configuration for creating a new server
type ServerConfig struct {
	Config  *config.Config
	Version string

	// Telemetry is optional; without it /metrics is not mounted.
	Telemetry *observe.Telemetry
	Logger    *slog.Logger
}

// stores is what a storage driver provides.
type stores struct {
	auth     auth.Repository
	practice practice.Store
	ping     api.Pinger
	close    func() error
}

// NewServer opens storage, builds every service and mounts the API.
// Close releases what NewServer opened if Run is never called.
func NewServer(ctx context.Context, cfg ServerConfig) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{cfg: cfg.Config, logger: logger}
	ok := false
	defer func() {
		if !ok {
			s.Close()
		}
	}()

	var metrics *observe.Metrics
	var metricsHandler http.Handler
	if cfg.Telemetry != nil {
		metrics = observe.DefaultMetrics()
		metricsHandler = cfg.Telemetry.Handler
	}

	st, err := openStores(ctx, cfg.Config, logger)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, st.close)

	// Initialize LLM registry
	s.llmRegistry, err = api.NewLLMRegistry(ctx, cfg.Config, logger)
	if err != nil {
		return nil, fmt.Errorf("setup llm providers: %w", err)
	}
	s.closers = append(s.closers, s.llmRegistry.Close)

	grader := grading.NewGrader(s.llmRegistry,
		grading.WithMetrics(metrics),
		grading.WithTemperature(cfg.Config.LLMTemperature),
	)

	practiceOpts := []practice.Option{
		practice.WithMetrics(metrics),
		practice.WithLogger(logger),
	}

	var conn *queue.Connection
	if cfg.Config.QueueEnabled {
		conn, err = queue.NewConnection(cfg.Config.RabbitMQURL)
		if err != nil {
			return nil, fmt.Errorf("connect queue: %w", err)
		}
		s.closers = append(s.closers, conn.Close)
		practiceOpts = append(practiceOpts, practice.WithPublisher(queue.NewProducer(conn)))
	}

	practiceSvc := practice.NewService(st.practice, grader, practice.Limits{
		MaxAssessments: cfg.Config.MaxAssessmentsPerUser,
		MaxPractice:    cfg.Config.MaxPracticePerUser,
	}, practiceOpts...)

	if conn != nil {
		s.consumer = queue.NewConsumer(conn, practiceSvc.ProcessJob, queue.ConsumerConfig{
			Workers: cfg.Config.QueueWorkers,
		}, metrics)
		s.results = queue.NewResultConsumer(conn)
	}

	creditsSvc, err := s.newCreditsService(ctx, metrics)
	if err != nil {
		return nil, err
	}

	s.app = &api.App{
		Config:         cfg.Config,
		Store:          st.ping,
		Auth:           auth.NewService(st.auth, cfg.Config.SessionTTL()),
		Practice:       practiceSvc,
		Profile:        profile.NewService(st.practice, practiceSvc),
		Grader:         grader,
		Voice:          voice.NewDirectory(cfg.Config.Agents),
		Credits:        creditsSvc,
		Metrics:        metrics,
		MetricsHandler: metricsHandler,
	}
	if s.results != nil {
		s.app.Results = s.results
	}

	handler, err := api.NewServer(s.app)
	if err != nil {
		return nil, fmt.Errorf("create api: %w", err)
	}

	s.server = &http.Server{
		Addr:              cfg.Config.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      4 * time.Minute, // inline grading of long recordings
		IdleTimeout:       120 * time.Second,
	}

	ok = true
	return s, nil
}

func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		if err := postgres.Migrate(ctx, cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		logger.Info("using postgres storage")
		return &stores{
			auth:     postgres.NewAuthStore(pool),
			practice: postgres.NewPracticeStore(pool),
			ping:     api.PingFunc(pool.Ping),
			close: func() error {
				pool.Close()
				return nil
			},
		}, nil

	default:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		logger.Info("using sqlite storage", "path", cfg.SQLitePath)
		return &stores{
			auth:     sqlite.NewAuthStore(db),
			practice: sqlite.NewPracticeStore(db),
			ping:     api.PingFunc(db.PingContext),
			close:    db.Close,
		}, nil
	}
}

// newCreditsService shares the quota through Redis when REDIS_URL is set.
// An unreachable Redis falls back to the in-process cache.
func (s *Server) newCreditsService(ctx context.Context, metrics *observe.Metrics) (*credits.Service, error) {
	fetcher := credits.NewClient(credits.ClientConfig{
		APIKey:  s.cfg.ElevenLabsAPIKey,
		BaseURL: s.cfg.ElevenLabsBaseURL,
	})

	var cell credits.Cell[credits.Info]
	if s.cfg.RedisURL != "" {
		client, err := credits.OpenRedis(ctx, s.cfg.RedisURL)
		if err != nil {
			s.logger.Warn("redis unavailable, caching credits in memory", "error", err)
		} else {
			s.closers = append(s.closers, client.Close)
			cell = credits.NewRedisCell[credits.Info](client, creditsCacheKey)
		}
	}

	return credits.NewService(fetcher, cell, metrics, s.logger), nil
}

// Handler returns the API handler
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Run serves HTTP and, when enabled, the queue workers until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	s.logger.Info("starting speakflow daemon",
		"addr", s.server.Addr,
		"llm_providers", s.llmRegistry.List(),
		"storage", s.cfg.StorageDriver,
		"queue", s.consumer != nil,
	)

	g.Go(func() error {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if s.consumer != nil {
		g.Go(func() error {
			if err := s.consumer.Start(ctx); err != nil {
				return fmt.Errorf("start consumer: %w", err)
			}
			if err := s.results.Start(ctx); err != nil {
				return fmt.Errorf("start result consumer: %w", err)
			}
			<-ctx.Done()
			return nil
		})
	}

	g.Go(func() error {
		s.cleanupSessions(ctx)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// cleanupSessions drops expired auth sessions until ctx is done.
func (s *Server) cleanupSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.app.Auth.PurgeExpiredSessions(ctx); err != nil {
				s.logger.Warn("session cleanup failed", "error", err)
			}
		}
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down daemon...")

	err := s.server.Shutdown(ctx)

	if s.consumer != nil {
		s.consumer.Stop()
		s.results.Stop()
	}

	return errors.Join(err, s.Close())
}

// Close releases storage, queue, cache and provider resources in reverse
// order of acquisition. It is safe to call more than once.
func (s *Server) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
