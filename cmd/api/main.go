// Package main is the entry point for the recipebox API server.
//
// It loads configuration, opens the remote store (PostgreSQL or in-memory),
// wires the domain services behind the core HTTP chassis and serves until
// SIGINT or SIGTERM, then shuts down gracefully.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"recipebox/internal/api/handlers"
	"recipebox/internal/auth"
	"recipebox/internal/config"
	"recipebox/internal/content"
	"recipebox/internal/core"
	"recipebox/internal/db"
	"recipebox/internal/external"
	"recipebox/internal/generation"
	"recipebox/internal/ledger"
	"recipebox/internal/memstore"
	"recipebox/internal/subscription"
	"recipebox/internal/telemetry"
	"recipebox/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig(secretProvider())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("recipebox API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
		"store", cfg.Database.Backend,
	)

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	srv, err := buildServer(startCtx, cfg, logger)
	if err != nil {
		return err
	}
	return runHTTPServer(srv, cfg, logger)
}

// secretProvider picks Parameter Store outside local development. The AWS
// settings are read before configuration is loaded because they decide how
// the rest of it is resolved.
func secretProvider() config.SecretProvider {
	if os.Getenv("APP_ENV") == "local" {
		return config.NewEnvVarProvider()
	}
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-1"
	}
	return config.NewSSMProvider(region, os.Getenv("AWS_ENDPOINT_URL"))
}

// repositories is the remote store as seen by the services.
type repositories struct {
	usage         ledger.UsageRepository
	subscriptions subscription.Repository
	recipes       content.RecipeRepository
	mealPlans     content.MealPlanRepository
	preferences   handlers.PreferencesRepo
	calendars     handlers.CalendarRepo
	sessions      auth.SessionRepo

	ping  func(ctx context.Context) error
	close func()
}

// openStore opens the configured backend.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*repositories, error) {
	if cfg.Database.Backend == config.StoreBackendMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		s := memstore.New()
		return &repositories{
			usage:         s.Usage,
			subscriptions: s.Subscriptions,
			recipes:       s.Recipes,
			mealPlans:     s.MealPlans,
			preferences:   s.Preferences,
			calendars:     s.Calendars,
			sessions:      s.Sessions,
			ping:          s.Ping,
			close:         func() {},
		}, nil
	}

	pool, err := db.NewPool(ctx, cfg.Database.URL.Unmask(), db.PoolOptions{
		MaxConns:          cfg.Database.MaxConns,
		MinConns:          cfg.Database.MinConns,
		MaxConnLifetime:   cfg.Database.MaxConnLifetime,
		HealthCheckPeriod: cfg.Database.HealthCheckPeriod,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
		logger.Info("database migrations applied")
	}

	s := db.NewStore(pool)
	return &repositories{
		usage:         s.Usage,
		subscriptions: s.Subscriptions,
		recipes:       s.Recipes,
		mealPlans:     s.MealPlans,
		preferences:   s.Preferences,
		calendars:     s.Calendars,
		sessions:      s.Sessions,
		ping:          s.Ping,
		close:         s.Close,
	}, nil
}

// collector is what both the HTTP chassis and the generation flow report to.
type collector interface {
	core.MetricsCollector
	generation.QuotaMetrics
}

func newCollector(ctx context.Context, cfg *config.Config, logger *slog.Logger) (collector, error) {
	if !cfg.Observability.EnableMetrics {
		return telemetry.Noop{}, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for CloudWatch: %w", err)
	}
	client := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
		}
	})
	return telemetry.NewCloudWatchCollector(client, cfg.Observability.MetricNamespace, logger), nil
}

// buildServer wires every dependency and mounts the routes.
func buildServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*core.Server, error) {
	repos, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	metrics, err := newCollector(ctx, cfg, logger)
	if err != nil {
		repos.close()
		return nil, err
	}

	clock := types.RealClock{}
	subs := subscription.NewService(repos.subscriptions, clock, logger)
	usage := ledger.NewService(repos.usage, clock, logger)
	contentSvc := content.NewService(repos.recipes, repos.mealPlans, logger)

	authenticator := auth.NewAuthenticator(repos.sessions, clock, logger)
	if len(cfg.Auth.DevSessions) > 0 {
		if cfg.Environment != "local" {
			repos.close()
			return nil, fmt.Errorf("DEV_SESSIONS is only allowed with APP_ENV=local")
		}
		seeded, err := auth.SeedSessions(ctx, repos.sessions, cfg.Auth.DevSessions, cfg.Auth.SessionTTL, clock)
		if err != nil {
			repos.close()
			return nil, fmt.Errorf("seeding dev sessions: %w", err)
		}
		for userID, token := range seeded {
			logger.Info("dev session ready", "user_id", userID, "token", token)
		}
	}

	gateway := external.NewLLMClient(&http.Client{Timeout: cfg.Generator.Timeout}, external.GeneratorConfig{
		APIKey:    cfg.Generator.APIKey,
		BaseURL:   cfg.Generator.BaseURL,
		Model:     cfg.Generator.Model,
		MaxTokens: cfg.Generator.MaxTokens,
		Logger:    logger,
	})
	flow := generation.NewFlow(gateway, metrics, logger)
	account := func(userID string) generation.Account {
		return &generation.UserAccount{
			UserID:        userID,
			Subscriptions: subs,
			Ledger:        usage,
			Content:       contentSvc,
		}
	}

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		repos.close()
		return nil, fmt.Errorf("creating server: %w", err)
	}
	srv.Authenticator = authenticator
	srv.Metrics = metrics
	srv.PreviewLimiter = core.NewMemoryRateLimiter(clock)
	srv.HealthProbes = append(srv.HealthProbes, core.ProbeFunc{ProbeName: "store", Fn: repos.ping})
	srv.OnShutdown = append(srv.OnShutdown, func(context.Context) error {
		repos.close()
		return nil
	})

	recipeHandler := handlers.NewRecipeHandler(contentSvc, subs, srv.Validator, logger)
	mealPlanHandler := handlers.NewMealPlanHandler(contentSvc, subs, srv.Validator, logger)
	accountHandler := handlers.NewAccountHandler(subs, usage, logger)
	householdHandler := handlers.NewHouseholdHandler(repos.preferences, repos.calendars, srv.Validator, clock, logger)
	generateHandler := handlers.NewGenerateHandler(flow, account, repos.preferences, srv.Validator, logger)

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		recipeHandler.RegisterRoutes,
		mealPlanHandler.RegisterRoutes,
		accountHandler.RegisterRoutes,
		householdHandler.RegisterRoutes,
		generateHandler.RegisterRoutes,
	)

	srv.MountRoutes()
	return srv, nil
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	// WriteTimeout leaves room for a slow generation after the request
	// deadline fires.
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a JSON slog.Logger on stdout at the given level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
