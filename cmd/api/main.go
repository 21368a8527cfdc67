package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"med-adherence-tracker/internal/adapters/storage"
	"med-adherence-tracker/internal/platform/config"
	"med-adherence-tracker/internal/platform/logger"
	"med-adherence-tracker/internal/platform/observability"
	"med-adherence-tracker/internal/router"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// @title med-adherence-tracker API
// @version 1.0
// @description Registro de tomas diarias y control del intervalo del medicamento de rescate.
// @BasePath /
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	level := logger.ParseLevel(cfg.LogLevel)
	lg := logger.New(logger.Options{
		Level:  level,
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    cfg.AppName,
	})

	loc, _ := cfg.Location()
	catalog, _ := cfg.Catalog()

	ctx := context.Background()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName: cfg.AppName,
		Endpoint:    cfg.OTelEndpoint,
		Insecure:    cfg.OTelInsecure,
		SampleRatio: cfg.OTelSampleRatio,
	})
	if err != nil {
		lg.Warn("tracing disabled", map[string]any{"err": err})
		shutdownTracer = func(context.Context) error { return nil }
	}

	store, closeStore, err := storage.Open(ctx, cfg, loc, lg)
	if err != nil {
		lg.Error("store init failed", map[string]any{"err": err})
		os.Exit(1)
	}

	var handler http.Handler = router.NewRouter(router.Options{
		Store:    store,
		Catalog:  &catalog,
		Location: loc,
		Logger:   lg,
	})
	handler = otelhttp.NewHandler(handler, "http")

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("starting server", map[string]any{
			"addr":      srv.Addr,
			"store":     string(cfg.Store),
			"log_level": level.String(),
			"time_zone": loc.String(),
			"medicines": len(catalog.Medicines()),
		})
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		lg.Info("shutdown signal", map[string]any{"signal": sig.String()})
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			lg.Error("server error", map[string]any{"err": err})
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("shutdown failed", map[string]any{"err": err})
	}
	if err := closeStore(); err != nil {
		lg.Warn("store close failed", map[string]any{"err": err})
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		lg.Warn("tracer shutdown failed", map[string]any{"err": err})
	}
}
