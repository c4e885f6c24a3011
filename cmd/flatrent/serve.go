// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/flatrent/flatrent/internal/auth"
	authpg "github.com/flatrent/flatrent/internal/auth/postgres"
	authredis "github.com/flatrent/flatrent/internal/auth/redis"
	"github.com/flatrent/flatrent/internal/config"
	"github.com/flatrent/flatrent/internal/events"
	"github.com/flatrent/flatrent/internal/httpapi"
	"github.com/flatrent/flatrent/internal/logging"
	"github.com/flatrent/flatrent/internal/observability"
	"github.com/flatrent/flatrent/internal/store"
	"github.com/flatrent/flatrent/pkg/errutil"
)

// serviceName identifies this process in logs.
const serviceName = "flatrent"

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the authentication API",
		Long: `Run the HTTP authentication API together with the metrics and health
server. Stops gracefully on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, nil)
		},
	}
	config.BindFlags(cmd.Flags())
	return cmd
}

// runServeWithDeps starts the server with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	deps = deps.withDefaults()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := logging.SetDefault(serviceName, version, cfg.Log.Format, level)

	logger.Info("starting flatrent",
		"addr", cfg.Server.Addr,
		"refresh_store", cfg.Auth.RefreshStore,
		"database", cfg.Redacted().Database.URL)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool, err := deps.DatabaseConnector(ctx, cfg.Database.URL, store.PoolConfig{
		MaxConns:       cfg.Database.MaxConns,
		ConnectRetries: cfg.Database.ConnectRetries,
		RetryBase:      store.DefaultPoolConfig().RetryBase,
	})
	if err != nil {
		return oops.With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()
	logger.Info("connected to database")

	refreshStore, err := deps.RefreshStoreFactory(ctx, cfg, pool)
	if err != nil {
		return oops.With("operation", "open refresh token store").Wrap(err)
	}
	if refreshStore.Close != nil {
		defer func() {
			if closeErr := refreshStore.Close(); closeErr != nil {
				logger.Warn("error closing refresh token store", "error", closeErr)
			}
		}()
	}

	publisher, err := deps.PublisherFactory(ctx, cfg.Events, logger)
	if err != nil {
		return oops.With("operation", "open event publisher").Wrap(err)
	}
	defer func() {
		if closeErr := publisher.Close(); closeErr != nil {
			logger.Warn("error closing event publisher", "error", closeErr)
		}
	}()

	svc, err := newAuthService(cfg, pool, refreshStore.Repo, publisher, logger)
	if err != nil {
		return err
	}

	shutdownCtx := func() (context.Context, context.CancelFunc) {
		return context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	}

	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		checks := map[string]observability.Pinger{"postgres": pool}
		if refreshStore.Ping != nil {
			checks["refresh_store"] = refreshStore.Ping
		}
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, observability.PingReadiness(checks), logger)
		obsErrCh, err := obsServer.Start()
		if err != nil {
			return oops.With("operation", "start observability server").Wrap(err)
		}
		defer func() {
			sctx, scancel := shutdownCtx()
			defer scancel()
			if stopErr := obsServer.Stop(sctx); stopErr != nil {
				logger.Warn("error stopping observability server", "error", stopErr)
			}
		}()
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability", logger)
		metrics = obsServer.Metrics()
	}

	apiServer, err := deps.APIServerFactory(svc, httpapi.Config{
		Addr:             cfg.Server.Addr,
		AllowOrigins:     cfg.CORS.AllowOrigins,
		ExposeResetToken: cfg.Auth.ExposeResetToken,
	}, logger, metrics)
	if err != nil {
		return oops.With("operation", "create api server").Wrap(err)
	}
	apiErrCh, err := apiServer.Start()
	if err != nil {
		return oops.With("operation", "start api server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, apiErrCh, "api", logger)

	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		runSweeper(ctx, cfg.Server.SweepInterval.Std(), svc, logger)
	}()

	if cfg.Auth.ExposeResetToken {
		logger.Warn("reset tokens are returned in forgot-password responses; do not enable in production")
	}

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("flatrent started on " + apiServer.Addr())
	logger.Info("flatrent ready", "addr", apiServer.Addr())

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")
	cancel()
	<-sweepDone

	sctx, scancel := shutdownCtx()
	defer scancel()
	if err := apiServer.Stop(sctx); err != nil {
		errutil.LogError(logger, "error stopping api server", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// newAuthService wires the auth services onto the database.
func newAuthService(
	cfg *config.Config,
	pool *pgxpool.Pool,
	refreshRepo auth.RefreshTokenRepository,
	publisher auth.EventPublisher,
	logger *slog.Logger,
) (*auth.Service, error) {
	signer, err := auth.NewJWTSigner([]byte(cfg.Auth.JWTSecret), cfg.Auth.AccessTTL.Std(), auth.WithIssuer(cfg.Auth.Issuer))
	if err != nil {
		return nil, oops.With("operation", "create token signer").Wrap(err)
	}

	users := authpg.NewUserRepository(pool)
	tx := authpg.NewTransactor(pool)
	hasher := auth.NewMultiHasher()

	refreshSvc, err := auth.NewRefreshTokenService(refreshRepo, cfg.Auth.RefreshTTL.Std(),
		auth.WithRefreshLogger(logger))
	if err != nil {
		return nil, oops.With("operation", "create refresh token service").Wrap(err)
	}

	resetSvc, err := auth.NewPasswordResetService(users, authpg.NewPasswordResetRepository(pool), hasher, tx,
		auth.WithResetTTL(cfg.Auth.ResetTTL.Std()),
		auth.WithResetLogger(logger))
	if err != nil {
		return nil, oops.With("operation", "create password reset service").Wrap(err)
	}

	svc, err := auth.NewAuthService(users, hasher, signer, refreshSvc, resetSvc, tx,
		auth.WithLogger(logger),
		auth.WithEventPublisher(publisher))
	if err != nil {
		return nil, oops.With("operation", "create auth service").Wrap(err)
	}
	return svc, nil
}

// newRefreshStore opens the refresh token backend named by auth.refresh_store.
func newRefreshStore(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (RefreshStore, error) {
	switch cfg.Auth.RefreshStore {
	case config.RefreshStoreRedis:
		client, err := authredis.Connect(ctx, cfg.Redis.URL, cfg.Database.ConnectRetries)
		if err != nil {
			return RefreshStore{}, err
		}
		return RefreshStore{
			Repo: authredis.NewRefreshTokenRepository(client,
				authredis.WithExpiredRetention(cfg.Redis.ExpiredRetention.Std())),
			Ping: observability.PingFunc(func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			}),
			Close: client.Close,
		}, nil
	default:
		return RefreshStore{Repo: authpg.NewRefreshTokenRepository(pool)}, nil
	}
}

// newPublisher returns an AMQP publisher when events.amqp_url is set and a
// logging publisher otherwise.
func newPublisher(ctx context.Context, cfg config.EventsConfig, logger *slog.Logger) (Publisher, error) {
	if cfg.AMQPURL == "" {
		return nopCloser{events.NewLogPublisher(logger)}, nil
	}
	return events.DialAMQP(ctx, events.DialConfig{
		URL:     cfg.AMQPURL,
		Retries: cfg.ConnectRetries,
	}, logger)
}

type nopCloser struct {
	auth.EventPublisher
}

func (nopCloser) Close() error { return nil }

// monitorServerErrors monitors a server's error channel and cancels the context on error.
// It exits when either an error is received, the channel is closed, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
