package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/d60-Lab/ideagraph/internal/api/handler"
	"github.com/d60-Lab/ideagraph/internal/api/router"
	"github.com/d60-Lab/ideagraph/pkg/database"
	"github.com/d60-Lab/ideagraph/pkg/logger"
	"github.com/d60-Lab/ideagraph/pkg/tracing"
)

func serveCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background workers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "run migrations before serving")
	return cmd
}

func serve(parent context.Context, migrate bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, cfg.Log.Env)
	if err != nil {
		return err
	}
	sentryOn := cfg.Sentry.DSN != ""
	if sentryOn {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN, Environment: cfg.Sentry.Environment}); err != nil {
			return err
		}
		defer sentry.Flush(2 * time.Second)
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()
	if migrate {
		if err := database.Migrate(a.db); err != nil {
			return err
		}
	}

	stopReplicator := a.replicator.Start(cfg.Worker.ReplicatorWorkers)
	stopDispatcher := a.dispatcher.Start(cfg.Worker.DispatchWorkers)
	stopFanout := a.fanout.Start()

	engine := router.New(handler.New(a.services), router.Options{
		Mode:        cfg.Server.Mode,
		ServiceName: cfg.Tracing.ServiceName,
		Tokens:      a.tokens,
		RateLimit:   cfg.RateLimit,
		Sentry:      sentryOn,
		Health:      a.ping,
	})
	srv := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     engine,
		ReadTimeout: cfg.Server.ReadTimeout,
		// SSE 连接长期保持，不设 WriteTimeout
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	// 先停生产者再停消费者
	for name, stopFn := range map[string]func(context.Context) error{
		"fanout":     stopFanout,
		"replicator": stopReplicator,
	} {
		if err := stopFn(shutdownCtx); err != nil {
			logger.Warn("stop worker", zap.String("worker", name), zap.Error(err))
		}
	}
	if err := stopDispatcher(shutdownCtx); err != nil {
		logger.Warn("stop worker", zap.String("worker", "dispatcher"), zap.Error(err))
	}
	return shutdownTracing(shutdownCtx)
}
