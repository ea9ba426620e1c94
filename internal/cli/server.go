package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"couplegame-service/internal/app"
	"couplegame-service/internal/config"
	"couplegame-service/internal/infra/memory"
	"couplegame-service/internal/infra/postgres"
	redisinfra "couplegame-service/internal/infra/redis"
	"couplegame-service/internal/logging"
	"couplegame-service/internal/telemetry"
	transport "couplegame-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const appName = "couplegame"

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the game server",
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
	logger := logging.New(appName, cfg.Log.Level, cfg.Log.Pretty)

	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwtSecret not configured")
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := wire(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	service := app.NewGameService(deps.sessions, deps.bank, deps.partners, deps.feed,
		app.WithLogger(logger),
		app.WithMetrics(telemetry.NewMetrics(registry)),
	)
	auth := transport.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	handler := transport.NewRouter(service, auth, logger, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info().Str("addr", server.Addr).Str("store", deps.storeName).Msg("starting game service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info().Msg("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

type dependencies struct {
	sessions  app.SessionRepository
	bank      app.QuestionBank
	partners  app.PartnerDirectory
	feed      app.Feed
	storeName string
}

// wire picks the backends: Postgres for sessions, catalog and couples when configured, Redis for
// sessions when Postgres is absent and for the catalog cache and live feed, memory otherwise.
func wire(ctx context.Context, cfg config.Config, logger zerolog.Logger) (dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		redisClient.AddHook(telemetry.RedisLogHook(logger))
		closers = append(closers, func() { _ = redisClient.Close() })
		if err := redisClient.Ping(ctx).Err(); err != nil {
			cleanup()
			return dependencies{}, nil, fmt.Errorf("connect redis: %w", err)
		}
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, logger); err != nil {
			cleanup()
			return dependencies{}, nil, fmt.Errorf("migrate: %w", err)
		}
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			cleanup()
			return dependencies{}, nil, fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, pool.Close)
	}

	deps := dependencies{}

	var loader memory.QuestionLoader = memory.NewStaticQuestionBank(memory.DefaultCatalog())
	if pool != nil {
		pgLoader := postgres.NewQuestionBankLoader(pool)
		if err := pgLoader.Seed(ctx, memory.DefaultCatalog()); err != nil {
			cleanup()
			return dependencies{}, nil, err
		}
		loader = pgLoader
	}
	bankTTL := config.TTLDuration(cfg.QuestionBank.TTL, 10*time.Minute)
	if redisClient != nil {
		deps.bank = redisinfra.NewQuestionBank(redisClient, loader, bankTTL)
	} else {
		deps.bank = memory.NewQuestionBank(loader, bankTTL)
	}

	if pool != nil {
		directory := postgres.NewPartnerDirectory(pool)
		for _, couple := range cfg.Couples {
			if err := directory.Pair(ctx, couple.A, couple.B); err != nil {
				cleanup()
				return dependencies{}, nil, fmt.Errorf("seed couple %s/%s: %w", couple.A, couple.B, err)
			}
		}
		deps.partners = directory
	} else {
		deps.partners = memory.NewStaticPartners(cfg.Partners())
	}

	switch {
	case pool != nil:
		deps.sessions, deps.storeName = postgres.NewSessionStore(pool), "postgres"
	case redisClient != nil:
		deps.sessions, deps.storeName = redisinfra.NewSessionStore(redisClient), "redis"
	default:
		deps.sessions, deps.storeName = memory.NewSessionStore(), "memory"
	}

	if redisClient != nil {
		deps.feed = redisinfra.NewFeed(redisClient)
	} else {
		deps.feed = memory.NewFeed()
	}
	return deps, cleanup, nil
}
