// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentUMA Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/rentuma/authcore/internal/auth"
	authpg "github.com/rentuma/authcore/internal/auth/postgres"
	"github.com/rentuma/authcore/internal/config"
	"github.com/rentuma/authcore/internal/httpapi"
	"github.com/rentuma/authcore/internal/logging"
	"github.com/rentuma/authcore/internal/observability"
	"github.com/rentuma/authcore/internal/store"
	"github.com/rentuma/authcore/pkg/errutil"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var skipMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the authentication service",
		Long: `Start the authentication HTTP API together with the metrics and
health endpoints. Database migrations run on startup unless disabled.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd, skipMigrations)
		},
	}

	// Flag defaults mirror config.Default so unset flags never override
	// values from the config file.
	defaults := config.Default()
	cmd.Flags().String("listen_addr", defaults.ListenAddr, "HTTP API listen address")
	cmd.Flags().String("observability_addr", defaults.ObservabilityAddr, "metrics/health HTTP address")
	cmd.Flags().String("log_format", defaults.LogFormat, "log format (json or text)")
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not run database migrations on startup")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, skipMigrations bool) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	logging.SetDefault("authcore", version, cfg.LogFormat, slog.LevelInfo)
	logger := slog.Default()

	if cfg.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").
			Errorf("%s environment variable is required", config.EnvDatabaseURL)
	}
	if cfg.TokenSecret == "" {
		return oops.Code("CONFIG_INVALID").
			Errorf("%s environment variable is required", config.EnvTokenSecret)
	}

	if !skipMigrations {
		if err := migrateUp(cfg.DatabaseURL); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	pool, err := store.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("connected to database")

	accounts := authpg.NewAccountRepository(pool)
	hasher := auth.NewArgon2idHasher(auth.Argon2Params{
		Time:    cfg.Argon2Time,
		Memory:  cfg.Argon2Memory,
		Threads: cfg.Argon2Threads,
	})
	tokens, err := auth.NewTokenIssuer([]byte(cfg.TokenSecret), cfg.TokenTTL)
	if err != nil {
		return err
	}
	lockout := auth.NewLockoutPolicy(cfg.LockoutThreshold, cfg.LockoutDuration)

	svc, err := auth.NewServiceWithLogger(accounts, hasher, tokens, lockout, logger)
	if err != nil {
		return err
	}

	apiServer, err := httpapi.NewServer(cfg.ListenAddr, svc, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	obsServer := observability.NewServer(cfg.ObservabilityAddr, func() bool {
		pingCtx, pingCancel := context.WithTimeout(context.Background(), time.Second)
		defer pingCancel()
		return pool.Ping(pingCtx) == nil
	})
	obsErrCh, err := obsServer.Start()
	if err != nil {
		return oops.With("operation", "start observability server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, obsErrCh, "observability")

	apiErrCh, err := apiServer.Start()
	if err != nil {
		stopServer(obsServer.Stop, "observability", logger)
		return oops.With("operation", "start api server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, apiErrCh, "api")

	logger.Info("authcore ready",
		"api_addr", apiServer.Addr(),
		"observability_addr", obsServer.Addr(),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	stopServer(apiServer.Stop, "api", logger)
	stopServer(obsServer.Stop, "observability", logger)

	logger.Info("shutdown complete")
	return nil
}

func stopServer(stop func(context.Context) error, name string, logger *slog.Logger) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := stop(shutdownCtx); err != nil {
		errutil.LogError(logger, "error stopping "+name+" server", err)
	}
}

// monitorServerErrors watches a server error channel and cancels the main
// context if an error occurs, triggering shutdown of the whole process.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, name string) {
	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			slog.Error("server failed", "server", name, "error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
