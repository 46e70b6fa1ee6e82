package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/multierr"

	api "github.com/oshokin/alarm-scheduler/internal/api/http/alarm"
	"github.com/oshokin/alarm-scheduler/internal/config"
	"github.com/oshokin/alarm-scheduler/internal/logger"
	"github.com/oshokin/alarm-scheduler/internal/notifier"
	repository "github.com/oshokin/alarm-scheduler/internal/repository/alarm"
	"github.com/oshokin/alarm-scheduler/internal/scheduler"
	service "github.com/oshokin/alarm-scheduler/internal/service/alarm"
	"github.com/oshokin/alarm-scheduler/internal/telemetry"
)

// Options controls the alarm-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the HTTP server.
	ListenAddress string
	// DatabaseFile provides an optional path override for the SQLite database.
	DatabaseFile string
}

const (
	// shutdownTimeout bounds the drain of in-flight HTTP requests.
	shutdownTimeout = 10 * time.Second
	// readHeaderTimeout guards against slowloris-style clients.
	readHeaderTimeout = 5 * time.Second
)

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// Run starts the alarm daemon and blocks until the context is canceled.
// Recovery of persisted alarms happens before the listener accepts requests,
// so no API call can observe a partially rebuilt schedule.
//
//nolint:funlen // Linear bootstrap sequence reads better unsplit.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alarm-server")

	// Load configuration first to get server settings.
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if level, ok := logger.ParseLogLevel(settings.LogLevel); ok {
		logger.SetLevel(level)
	}

	listenAddress := settings.ServerAddress
	if opts.ListenAddress != "" {
		listenAddress = opts.ListenAddress
	}

	if listenAddress == "" {
		return ErrNoServerAddress
	}

	databaseFile := settings.DatabaseFile
	if opts.DatabaseFile != "" {
		databaseFile = opts.DatabaseFile
	}

	// Open durable storage for alarm rows.
	repo, err := repository.NewSQLiteRepository(ctx, databaseFile)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	metrics := telemetry.NewMetrics()

	svc := service.NewService(ctx, service.Config{
		Repository:    repo,
		Notifier:      selectNotifier(settings.Notifier),
		OverduePolicy: overduePolicy(settings.OverduePolicy),
		MaxAttempts:   settings.DeliveryMaxAttempts,
		RetryBackoff:  settings.DeliveryRetryBackoff,
		Metrics:       metrics,
	})

	// Rebuild the in-memory schedule from persisted rows before serving.
	if err := svc.Recover(ctx); err != nil {
		closeErr := repo.Close()

		return multierr.Append(fmt.Errorf("recover alarms: %w", err), closeErr)
	}

	httpServer := &http.Server{
		Addr:              listenAddress,
		Handler:           newRouter(svc, metrics, settings.CORSAllowedOrigins),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	logger.InfoKV(ctx, "Alarm server listening",
		"listen_address", listenAddress,
		"database_file", databaseFile,
		"notifier", settings.Notifier,
		"pending_waits", svc.PendingWaits(),
	)

	// Done channel is closed after shutdown finishes to ensure we block
	// until in-flight requests and deliveries drain before returning.
	done := make(chan struct{})

	var shutdownErr error

	go func() {
		defer close(done)

		<-ctx.Done()
		logger.Info(ctx, "Shutting down HTTP server")

		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		shutdownErr = multierr.Combine(
			httpServer.Shutdown(drainCtx),
			svc.Shutdown(drainCtx),
			repo.Close(),
		)
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve HTTP: %w", err)
	}

	<-done
	logger.Info(ctx, "HTTP server stopped")

	return shutdownErr
}

// newRouter assembles the full HTTP surface: the versioned API, the health
// probe and the prometheus endpoint.
func newRouter(svc *service.Service, metrics *telemetry.Metrics, corsOrigins []string) http.Handler {
	router := chi.NewRouter()

	router.Use(api.RequestID)
	router.Use(api.RequestLogger)
	router.Use(chimiddleware.Recoverer)

	if len(corsOrigins) > 0 {
		router.Use(cors.New(cors.Options{
			AllowedOrigins: corsOrigins,
			AllowedMethods: []string{
				http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete,
			},
			AllowedHeaders: []string{"Content-Type"},
		}).Handler)
	}

	router.Mount("/api/v1", api.NewHandler(svc).Routes())

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Method(http.MethodGet, "/metrics", metrics.Handler())

	return router
}

// selectNotifier maps the configured notifier name to an implementation.
// Validate has already rejected unknown names, so the default only covers
// a hand-edited in-memory config.
func selectNotifier(name string) notifier.Notifier {
	switch name {
	case config.NotifierLog:
		return notifier.NewLog()
	default:
		return notifier.NewDesktop("Alarm Scheduler")
	}
}

// overduePolicy maps the configured policy name to the scheduler constant.
func overduePolicy(name string) scheduler.OverduePolicy {
	if name == config.OverdueReject {
		return scheduler.Reject
	}

	return scheduler.FireImmediately
}
