package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpadapter "github.com/ivgusev/queryrouter/internal/adapters/http"
	"github.com/ivgusev/queryrouter/internal/bootstrap"
	"github.com/ivgusev/queryrouter/internal/config"
	"github.com/ivgusev/queryrouter/internal/observability/logging"
	"github.com/ivgusev/queryrouter/internal/observability/metrics"
)

const service = "api"

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics(service)
	pipelineMetrics := metrics.NewPipelineMetrics(service)
	httpMetrics.Register(pipelineMetrics.Collectors()...)

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Logger:        logger,
		Service:       service,
		QueryObserver: pipelineMetrics,
		OnIndexDemote: pipelineMetrics.ObserveIndexDemotion,
	})
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	router := httpadapter.NewRouter(app.Queries, app.UploadUC, app.Repo, app.Index, httpadapter.RouterOptions{
		Service: service,
		Metrics: httpMetrics,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", httpMetrics.Handler())
	mux.Handle("/", router.Handler())

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("api server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown failed", "error", err)
	}
}
