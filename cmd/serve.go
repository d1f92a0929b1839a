// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cmd

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/grazios/oshijiku/cliparse"
	"github.com/grazios/oshijiku/db"
	"github.com/grazios/oshijiku/ratelimit"
	"github.com/grazios/oshijiku/router"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [flags]",
		Short: "Run the share server",
		Long: `Runs the share server that stores chart snapshots.

Flags and environment variables are documented in the cliparse package;
run "oshijiku serve -h" to list the flags.`,
		Example: `  # SQLite file, default port 3318
  oshijiku serve -d ./shares.db

  # PostgreSQL with limits shared through Redis
  DATABASE_TYPE=postgres REDIS_URL=redis://localhost:6379 oshijiku serve -d "$DATABASE_URL"`,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cliparse.ParseFlags(args)
			if errors.Is(err, flag.ErrHelp) {
				return nil
			}
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	return cmd
}

func serve(ctx context.Context, cfg cliparse.Config) error {
	conn, err := db.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := db.CreateSchema(conn); err != nil {
		return err
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	limiter, closeLimiter, err := newLimiter(cfg)
	if err != nil {
		return err
	}
	defer closeLimiter()

	addr := ":" + strconv.Itoa(cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router.NewRouter(conn, cfg, limiter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Listening", "addr", addr, "public_url", cfg.PublicBaseURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown failed", "err", err)
			return err
		}
		slog.Info("Server stopped")
		return nil
	case err := <-serverErr:
		return err
	}
}

// newLimiter uses Redis when configured so several instances share budgets.
func newLimiter(cfg cliparse.Config) (*ratelimit.Limiter, func(), error) {
	opts := []ratelimit.Option{
		ratelimit.WithSalt(cfg.IPHashSalt),
		ratelimit.WithLockTimeout(cfg.LockTimeout),
	}

	if cfg.RedisURL == "" {
		slog.Info("Rate limits kept in memory")
		return ratelimit.NewMemory(cfg.Budgets(), opts...), func() {}, nil
	}

	client, err := ratelimit.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("Rate limits kept in redis")
	return ratelimit.NewRedis(client, cfg.Budgets(), opts...), func() { client.Close() }, nil
}
