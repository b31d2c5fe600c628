// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lumennodes/portal/internal/admin"
	"github.com/lumennodes/portal/internal/auth"
	"github.com/lumennodes/portal/internal/catalog"
	"github.com/lumennodes/portal/internal/config"
	"github.com/lumennodes/portal/internal/core"
	"github.com/lumennodes/portal/internal/gameserver"
	"github.com/lumennodes/portal/internal/health"
	"github.com/lumennodes/portal/internal/invoice"
	"github.com/lumennodes/portal/internal/middleware"
	"github.com/lumennodes/portal/internal/notify"
	"github.com/lumennodes/portal/internal/order"
	"github.com/lumennodes/portal/internal/panel"
	"github.com/lumennodes/portal/internal/payment"
	"github.com/lumennodes/portal/internal/provision"
	"github.com/lumennodes/portal/internal/server"
	"github.com/lumennodes/portal/internal/user"
	"github.com/lumennodes/portal/migrations"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to optional YAML config file")
	keygen := flag.Bool("keygen", false, "write a session key pair to <private.pem> <public.pem> and exit")
	flag.Parse()

	if *keygen {
		if flag.NArg() != 2 {
			slog.Error("usage: api -keygen <private.pem> <public.pem>")
			os.Exit(2)
		}
		if err := auth.WriteKeyPair(flag.Arg(0), flag.Arg(1)); err != nil {
			slog.Error("keygen failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	if cfg.Database.AutoMigrate {
		if err := core.Migrate(ctx, db.DB, migrations.FS); err != nil {
			return err
		}
		logger.Info("database migrations applied")
	}

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	signer, err := auth.NewSessionSigner(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("session signer ready",
		"algorithm", "ES256",
		"key_id", signer.KeyID(),
	)

	userSvc := user.NewService(user.NewRepository(db.DB))
	userHandler := user.NewHandler(userSvc)

	authSvc := auth.NewService(
		signer,
		userSvc,
		auth.NewRevocationStore(redis.Client),
		logger,
	)
	authHandler := auth.NewHandler(authSvc, cfg.Session, cfg.IsProduction())

	catalogSvc := catalog.NewService(
		catalog.NewRepository(db.DB),
		cfg.Catalog.AllowAdHocPlans,
		logger,
	)
	catalogHandler := catalog.NewHandler(catalogSvc)

	serverRepo := gameserver.NewRepository(db.DB)
	invoiceRepo := invoice.NewRepository(db.DB)
	intents := payment.NewGenerator(cfg.Payment)

	dispatcher := notify.NewDispatcher(
		notify.NewSender(cfg.Notify),
		cfg.Notify.Timeout,
		logger,
	)
	if cfg.Notify.DiscordWebhookURL == "" {
		logger.Warn("discord webhook not configured, order notifications disabled")
	}

	orderSvc := order.NewService(order.ServiceConfig{
		Orders:   order.NewRepository(db.DB),
		Plans:    catalogSvc,
		Servers:  serverRepo,
		Invoices: invoiceRepo,
		Intents:  intents,
		Notifier: dispatcher,
		Logger:   logger,
	})
	orderHandler := order.NewHandler(orderSvc)

	panelClient := panel.NewClient(cfg.Panel, logger)

	provisioner := provision.NewService(provision.ServiceConfig{
		Store:    provision.NewStore(db.DB),
		Panel:    panelClient,
		Accounts: userSvc,
		Products: catalogSvc,
		Defaults: cfg.Panel,
		Logger:   logger,
	})

	healthHandler := health.NewHandler(
		health.Dependency{Name: "database", Checker: db, Critical: true},
		health.Dependency{Name: "redis", Checker: redis, Critical: true},
		health.Dependency{Name: "panel", Checker: panelClient},
	)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		Orders:       orderSvc,
		Provisioner:  provisioner,
		CountUsers:   userSvc.CountUsers,
		ServerCounts: serverRepo.CountByStatus,
		DBStats:      db.Stats,
		RedisStats:   redis.PoolStats,
		DBPing:       db.Ping,
		RedisPing:    redis.Ping,
		PanelPing:    panelClient.Ping,
		NotifyStats:  dispatcher.Stats,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	budgets := cfg.RateLimit
	router.Use(middleware.ClientRateLimiter(
		redis.Client,
		middleware.Per(budgets.Window, budgets.Requests, budgets.Burst),
	).Handler)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", signer.JWKSHandler())

	userLimiter := middleware.UserRateLimiter(
		redis.Client,
		middleware.Per(budgets.Window, budgets.UserRequests, budgets.UserBurst),
	)
	authenticate := middleware.Authenticator(authSvc, cfg.Session.CookieName)
	authenticator := func(next http.Handler) http.Handler {
		return authenticate(userLimiter.Handler(next))
	}
	authLimiter := middleware.AuthRateLimiter(
		redis.Client,
		middleware.Per(budgets.Window, budgets.AuthRequests, budgets.AuthBurst),
	).Handler
	orderWrites := middleware.OrderWriteLimiter(
		redis.Client,
		middleware.Per(budgets.Window, budgets.OrderRequests, budgets.OrderBurst),
	).Handler
	adminOnly := middleware.RequireAdmin
	staffOnly := middleware.RequireStaff

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r, authenticator, authLimiter)

		userHandler.RegisterRoutes(r, authenticator)
		userHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

		catalogHandler.RegisterRoutes(r)
		catalogHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

		orderHandler.RegisterRoutes(r, authenticator, orderWrites)
		orderHandler.RegisterStaffRoutes(r, authenticator, staffOnly)

		gameserver.NewHandler(serverRepo).RegisterRoutes(r, authenticator)
		invoice.NewHandler(invoiceRepo).RegisterRoutes(r, authenticator)
		payment.NewHandler(intents).RegisterRoutes(r, authenticator)

		adminHandler.RegisterRoutes(r, authenticator, adminOnly)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Error("notification drain error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
