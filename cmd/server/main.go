package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eternalApril/moonkv/internal/config"
	"github.com/eternalApril/moonkv/internal/logger"
	"github.com/eternalApril/moonkv/internal/server"
	"github.com/eternalApril/moonkv/internal/storage"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func main() {
	app := &cli.App{
		Name:  "moonkv",
		Usage: "in-memory key-value server speaking RESP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   ".",
				Usage:   "directory holding config.yaml",
			},
			&cli.StringFlag{
				Name:  "port",
				Usage: "override server.port",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "override log.level (debug, info, warn, error)",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.IsSet("port") {
		cfg.Server.Port = c.String("port")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	log.Info("moonkv starting",
		zap.String("port", cfg.Server.Port),
		zap.Uint("shards", cfg.Storage.Shards),
	)

	db, err := storage.NewShardedMapStorage(cfg.Storage.Shards)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	engine := server.NewEngine(db, cfg, log)
	defer engine.Shutdown()

	srv := server.NewServer(engine, log.Named("server"))

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	address := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	g.Go(func() error {
		return srv.ListenAndServe(address)
	})

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		metricsSrv = &http.Server{
			Addr:              cfg.Metrics.Address,
			Handler:           metricsMux(engine),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Info("metrics listening", zap.String("address", cfg.Metrics.Address))
			if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if metricsSrv != nil {
			metricsSrv.Shutdown(shutdownCtx) //nolint:errcheck
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("shutdown timed out, forcing exit", zap.Duration("timeout", shutdownTimeout))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("moonkv stopped")
	return nil
}

func metricsMux(engine *server.Engine) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", engine.Metrics().Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
