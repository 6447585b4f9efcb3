package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/appraisal/internal/adapters/filestore"
	"github.com/okian/appraisal/internal/adapters/geocoder"
	"github.com/okian/appraisal/internal/adapters/http/api"
	"github.com/okian/appraisal/internal/adapters/http/site"
	"github.com/okian/appraisal/internal/adapters/http/swagger"
	"github.com/okian/appraisal/internal/adapters/valuation"
	app "github.com/okian/appraisal/internal/app"
	"github.com/okian/appraisal/internal/config"
	"github.com/okian/appraisal/pkg/logger"
	"github.com/okian/appraisal/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
	// A valuation runs up to three stages and an export has its own budget;
	// the write timeout has to cover the slower of the two.
	writeTimeoutSlack = 5 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.InitWith(os.Stdout, cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()

	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, err := newService(ctx, cfg, loggerInstance)
	if err != nil {
		loggerInstance.Error(ctx, "failed to build service", logger.Error(err))
		return
	}

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout(cfg),
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.Bool("export_enabled", svc.ExportEnabled()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// newService builds the adapters from cfg and wires them into the service.
// Export stays disabled when no Drive service account is configured.
func newService(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Service, error) {
	hc := &http.Client{Timeout: cfg.HTTPTimeout}

	opts := []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithStageTimeout(cfg.StageTimeout),
		app.WithExportTimeout(cfg.ExportTimeout),
		app.WithGeocoder(geocoder.New(
			geocoder.WithBaseURL(cfg.Geocoder.BaseURL),
			geocoder.WithAPIKey(cfg.Geocoder.APIKey),
			geocoder.WithReferer(cfg.Geocoder.Referer),
			geocoder.WithHTTPClient(hc),
			geocoder.WithLogger(log.Named("geocoder")),
		)),
		app.WithValuationProvider(valuation.New(
			valuation.WithBaseURL(cfg.Valuation.BaseURL),
			valuation.WithCredentials(cfg.Valuation.Email, cfg.Valuation.Password),
			valuation.WithHTTPClient(hc),
			valuation.WithLogger(log.Named("valuation")),
		)),
	}

	if cfg.DriveConfigured() {
		store, err := filestore.NewDriveStore(ctx,
			filestore.WithServiceAccount(cfg.Drive.ClientEmail, cfg.Drive.PrivateKey),
			filestore.WithFolderID(cfg.Drive.FolderID),
			filestore.WithEndpoint(cfg.Drive.Endpoint),
			filestore.WithLogger(log.Named("filestore")),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, app.WithFileStore(store))
	} else {
		log.Warn(ctx, "drive credentials not set; /excel will answer 503")
	}

	return app.New(opts...), nil
}

// newHandler registers every route and wraps the mux with the cross-cutting
// middleware.
func newHandler(ctx context.Context, svc *app.Service) http.Handler {
	mux := http.NewServeMux()

	swagger.Register(ctx, mux)
	site.Register(ctx, mux)

	apiServer := api.NewServer(svc, svc)
	apiServer.Register(ctx, mux)

	return api.CORSMiddleware(api.RequestIDMiddleware(mux))
}

func writeTimeout(cfg *config.Config) time.Duration {
	run := 3 * cfg.StageTimeout
	if cfg.ExportTimeout > run {
		run = cfg.ExportTimeout
	}
	return run + writeTimeoutSlack
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
