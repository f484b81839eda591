package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/logger"
	"gorm.io/gorm"

	"github.com/simp-lee/vaultfeed/internal/config"
	"github.com/simp-lee/vaultfeed/internal/domain"
	"github.com/simp-lee/vaultfeed/internal/metrics"
	"github.com/simp-lee/vaultfeed/internal/middleware"
	"github.com/simp-lee/vaultfeed/internal/module/activity"
	"github.com/simp-lee/vaultfeed/internal/module/view"
	walletmod "github.com/simp-lee/vaultfeed/internal/module/wallet"
	"github.com/simp-lee/vaultfeed/internal/source"
	"github.com/simp-lee/vaultfeed/internal/wallet"
)

// shutdownTimeout bounds both the HTTP drain and the wait for background
// workers.
const shutdownTimeout = 5 * time.Second

// App holds the core application dependencies and the HTTP server.
type App struct {
	engine    *gin.Engine
	db        *gorm.DB
	logger    *logger.Logger
	cfg       *config.Config
	source    *source.Source
	refresher *source.Refresher
	views     *view.Registry
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

var newHTTPServer = func(addr string, handler http.Handler) httpServer {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

var notifyContext = func(parent context.Context, signals ...os.Signal) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}

// New creates and wires a fully configured App from a validated Config.
//
// Wiring order: logger, database, metrics, activity repository, snapshot
// source, view registry, wallet connectors, refresher, HTTP modules and
// middleware. Nothing runs in the background until Run.
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := validateGinMode(cfg.Server.Mode); err != nil {
		return nil, err
	}

	success := false

	// 1. Logger.
	log, err := config.SetupLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}
	defer func() {
		if success {
			return
		}
		if err := log.Close(); err != nil {
			slog.Error("logger close error", slog.Any("error", err))
		}
	}()

	if cfg.Server.Mode == gin.DebugMode && cfg.Server.Host == "0.0.0.0" {
		log.Warn("insecure server config: debug mode on 0.0.0.0 may expose debug behavior and permissive CORS")
	}

	// 2. Database, migrated when auto_migrate is set.
	db, err := config.SetupDatabase(&cfg.Database, log.Logger, &domain.Activity{})
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}
	defer func() {
		if success {
			return
		}
		closeDatabase(db, log.Logger)
	}()

	// 3. Metrics. Collection always runs; exposure follows metrics.enabled.
	registry, err := metrics.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("setup metrics: %w", err)
	}
	feedMetrics, err := metrics.NewFeed(registry)
	if err != nil {
		return nil, fmt.Errorf("setup feed metrics: %w", err)
	}
	httpMetrics, err := metrics.NewHTTP(registry)
	if err != nil {
		return nil, fmt.Errorf("setup http metrics: %w", err)
	}

	// 4. Activity storage and the snapshot source built on it.
	repo := activity.NewRepository(db)
	src := source.New(repo,
		source.WithLogger(log.Logger),
		source.WithRecorder(feedMetrics),
		source.WithFetchTimeout(cfg.Feed.RefreshTimeoutDuration()),
	)

	refresher, err := source.NewRefresher(
		cfg.Feed.RefreshSchedule,
		src,
		repo,
		cfg.Feed.Vaults,
		cfg.Feed.RefreshTimeoutDuration(),
		log.Logger,
	)
	if err != nil {
		return nil, fmt.Errorf("setup refresher: %w", err)
	}

	// 5. Views and wallet connectors.
	views := view.NewRegistry(src,
		view.WithHooks(feedMetrics.Hooks()),
		view.WithTTL(cfg.Feed.ViewTTLDuration()),
		view.WithLogger(log.Logger),
	)
	connectors := wallet.New(wallet.Config{
		Development: cfg.Wallet.Development(),
		TestnetURI:  cfg.Wallet.TestnetURI,
		MainnetURI:  cfg.Wallet.MainnetURI,
		AppName:     cfg.Wallet.AppName,
	})

	// 6. Manual dependency injection: repository -> service -> handler -> module.
	breakpoint := cfg.Feed.DesktopBreakpoint
	modules := []Module{
		activity.NewModule(activity.NewHandler(activity.NewService(repo, src, log.Logger), breakpoint)),
		view.NewModule(view.NewHandler(views, breakpoint)),
		walletmod.NewModule(walletmod.NewHandler(connectors)),
	}

	// 7. Gin engine with custom middleware (not gin.Default()).
	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}

	engine.Use(
		middleware.Recovery(log.Logger),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{
			TrustUpstream: false,
		}),
		middleware.Logger(log.Logger, "/health", metricsPath),
		middleware.Metrics(httpMetrics),
		middleware.CORSWithConfig(resolveCORSConfig(cfg.Server.Mode, cfg.Server.CORS)),
		middleware.Timeout(cfg.Server.TimeoutDuration()),
	)

	// 8. Routes.
	deps := &RouteDeps{
		Modules: modules,
		DB:      db,
		Source:  src,
	}
	if metricsPath != "" {
		deps.MetricsPath = metricsPath
		deps.MetricsHandler = registry.Handler()
	}
	if err := RegisterRoutes(engine, deps); err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}

	success = true
	return &App{
		engine:    engine,
		db:        db,
		logger:    log,
		cfg:       cfg,
		source:    src,
		refresher: refresher,
		views:     views,
	}, nil
}

// resolveCORSConfig layers the configured CORS settings over the defaults.
// In release mode with no allowlist, cross-origin requests are denied.
func resolveCORSConfig(mode string, settings config.CORSConfig) middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()

	switch {
	case len(settings.AllowOrigins) > 0:
		cors.AllowOrigins = settings.AllowOrigins
	case mode == gin.ReleaseMode:
		cors.AllowOrigins = nil
	}
	if len(settings.AllowMethods) > 0 {
		cors.AllowMethods = settings.AllowMethods
	}
	if len(settings.AllowHeaders) > 0 {
		cors.AllowHeaders = settings.AllowHeaders
	}
	cors.AllowCredentials = settings.AllowCredentials
	if d := settings.MaxAgeDuration(); d > 0 {
		cors.MaxAge = strconv.Itoa(int(d.Seconds()))
	}

	return cors
}

func validateGinMode(mode string) error {
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		return nil
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}
}

// Run starts the background workers and the HTTP server, then blocks until a
// shutdown signal is received or the server fails. Shutdown drains HTTP,
// stops the workers and closes the database and logger.
func (a *App) Run() error {
	if a == nil {
		return errors.New("app is nil")
	}
	if a.cfg == nil {
		return errors.New("app config is nil")
	}
	if a.engine == nil {
		return errors.New("app engine is nil")
	}
	log := a.slogger()

	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	srv := newHTTPServer(addr, a.engine)

	// Listen for SIGINT / SIGTERM.
	ctx, stop := notifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	workers := a.startWorkers(workerCtx)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if runErr == nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", slog.Any("error", err))
		}
	}

	stopWorkers()
	for _, done := range workers {
		select {
		case <-done:
		case <-shutdownCtx.Done():
			log.Warn("background worker did not stop in time")
		}
	}

	if a.db != nil {
		closeDatabase(a.db, log)
	}

	log.Info("server stopped")
	if a.logger != nil {
		if err := a.logger.Close(); err != nil {
			slog.Error("logger close error", slog.Any("error", err))
		}
	}

	return runErr
}

// startWorkers launches the snapshot refresher and the idle-view janitor and
// returns their done channels.
func (a *App) startWorkers(ctx context.Context) []<-chan struct{} {
	var done []<-chan struct{}
	if a.refresher != nil {
		a.refresher.Start(ctx)
		done = append(done, a.refresher.Done())
		a.slogger().Info("activity refresher started", slog.Time("next_run", a.refresher.NextRun()))
	}
	if a.views != nil && a.cfg != nil {
		done = append(done, a.views.RunJanitor(ctx, janitorInterval(a.cfg.Feed.ViewTTLDuration())))
	}
	return done
}

// janitorInterval sweeps four times per TTL, but no more than once a second.
func janitorInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	return max(ttl/4, time.Second)
}

func (a *App) slogger() *slog.Logger {
	if a.logger != nil {
		return a.logger.Logger
	}
	return slog.Default()
}

func closeDatabase(db *gorm.DB, log *slog.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Error("database close error", slog.Any("error", err))
		return
	}
	log.Info("database connection closed")
}
