package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventqa-service/internal/app"
	"eventqa-service/internal/auth"
	"eventqa-service/internal/config"
	"eventqa-service/internal/domain"
	"eventqa-service/internal/infra/jsonstore"
	"eventqa-service/internal/infra/memory"
	"eventqa-service/internal/infra/postgres"
	infraredis "eventqa-service/internal/infra/redis"
	transport "eventqa-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the event Q&A server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	store, cleanup, err := newRecordStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	limits := limitsFromConfig(cfg)
	var limiter app.RateLimiter
	if redisClient != nil {
		limiter = infraredis.NewRateLimiter(redisClient, limits)
	} else {
		memLimiter := memory.NewRateLimiter(limits)
		limiter = memLimiter
		go cleanupLoop(ctx, memLimiter)
	}

	questionTTL := config.TTLDuration(cfg.Questions.CacheTTL, 10*time.Minute)
	questionCache := memory.NewQuestionCache(app.NewStoreQuestions(store), questionTTL)

	events := app.NewEventService(store)
	aggregates := app.NewAggregateService(store, questionCache)
	hub := app.NewResultsHub(func(ctx context.Context, eventID string) (domain.EventStats, error) {
		event, err := events.Get(ctx, eventID)
		if err != nil {
			return domain.EventStats{}, err
		}
		return aggregates.EventStats(ctx, event)
	})
	answers := app.NewAnswerService(store, questionCache, hub, logger)
	exports := app.NewExportService(store, questionCache)
	generator := app.NewGenerateService(store, questionCache)
	authSvc := auth.NewService(mockUser(cfg))

	apiHandler := transport.NewAPIHandler(events, answers, aggregates, exports, generator, questionCache, authSvc, limiter, questionCache, logger)
	wsHandler := transport.NewWSHandler(events, hub, authSvc, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	apiHandler.Register(mux)
	wsHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting event Q&A service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server...")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.Server.Mode == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// newRecordStore picks postgres when configured, otherwise the JSON-file
// store. The returned cleanup closes any held pool.
func newRecordStore(ctx context.Context, cfg config.Config) (app.RecordStore, func(), error) {
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewRecordStore(pool), pool.Close, nil
	}

	dir := cfg.Store.Dir
	if dir == "" {
		dir = "data"
	}
	store, err := jsonstore.New(dir)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {}, nil
}

func limitsFromConfig(cfg config.Config) map[app.Operation]app.Limit {
	limits := app.DefaultLimits()
	apply := func(op app.Operation, lc config.LimitConfig) {
		if lc.Requests <= 0 {
			return
		}
		limits[op] = app.Limit{
			Requests: lc.Requests,
			Window:   config.TTLDuration(lc.Window, limits[op].Window),
		}
	}
	apply(app.OpAIGeneration, cfg.RateLimits.AIGeneration)
	apply(app.OpAnswerSubmission, cfg.RateLimits.AnswerSubmission)
	apply(app.OpAPICall, cfg.RateLimits.APICalls)
	return limits
}

func mockUser(cfg config.Config) *domain.User {
	mu := cfg.Auth.MockUser
	if mu.ID == "" {
		// Stubbed auth defaults to an admin so the admin surface is usable
		// out of the box.
		return &domain.User{ID: "admin-001", Name: "Admin", Email: "admin@example.com", Role: domain.RoleAdmin}
	}
	role := domain.Role(mu.Role)
	if role != domain.RoleAdmin && role != domain.RoleUser {
		role = domain.RoleUser
	}
	return &domain.User{ID: mu.ID, Name: mu.Name, Email: mu.Email, Role: role}
}

func cleanupLoop(ctx context.Context, limiter *memory.RateLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			limiter.Cleanup()
		case <-ctx.Done():
			return
		}
	}
}
