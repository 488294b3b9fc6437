package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anditama/inventory-management/internal"
	"github.com/anditama/inventory-management/internal/asset"
	assetpg "github.com/anditama/inventory-management/internal/asset/postgres"
	"github.com/anditama/inventory-management/internal/audit"
	auditpg "github.com/anditama/inventory-management/internal/audit/postgres"
	"github.com/anditama/inventory-management/internal/auth"
	authpg "github.com/anditama/inventory-management/internal/auth/postgres"
	"github.com/anditama/inventory-management/internal/core/events"
	"github.com/anditama/inventory-management/internal/obs"
	"github.com/anditama/inventory-management/internal/transport/middleware"
	"github.com/anditama/inventory-management/internal/transport/rest"
	"github.com/anditama/inventory-management/internal/user"
	userpg "github.com/anditama/inventory-management/internal/user/postgres"
	"github.com/anditama/inventory-management/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	ConfigStore *internal.ConfigStore
	DB          *sqlx.DB
	Router      *chi.Mux
	Logger      *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	cfg := deps.ConfigStore.Active()
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	store, err := internal.NewConfigStore(config)
	if err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	obs.Init()

	// repositories
	sessionRepo := authpg.NewSessionRepository(gormDB)
	directoryRepo := authpg.NewDirectoryRepository(gormDB)
	userRepo := userpg.NewUserRepository(gormDB)
	assetRepo := assetpg.NewAssetRepository(gormDB)
	auditRepo := auditpg.NewAuditRepository(gormDB)

	// notification fan-out
	bus := events.NewBus(lg)
	notifier := events.NewNotifier(bus)
	registerNotificationHandlers(bus, lg)

	// auth plumbing
	codec := auth.NewCodec(config.Security.TokenSecret)
	aggregator := auth.NewAggregator(directoryRepo, lg)
	guard := auth.NewGuard(codec, sessionRepo, directoryRepo, aggregator, lg)
	policy := auth.NewPolicy()

	// services
	authService := auth.NewService(directoryRepo, sessionRepo, codec,
		config.Security.SessionDuration, config.Security.BCryptCost, lg)
	userService := user.NewService(userRepo, directoryRepo, sessionRepo, aggregator, policy, authService, lg)
	assetService := asset.NewService(assetRepo, notifier, lg)
	auditService := audit.NewService(auditRepo, assetService, notifier, lg)

	// handlers
	authHandler := auth.NewHandler(authService, guard, aggregator)
	userHandler := user.NewHandler(userService)
	assetHandler := asset.NewHandler(assetService)
	auditHandler := audit.NewHandler(auditService)

	var loginLimiter *middleware.RateLimiter
	if config.Security.LoginRateLimit > 0 {
		loginLimiter = middleware.NewRateLimiter(config.Security.LoginRateLimit, config.Security.LoginRateBurst)
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.RouterDeps{
		DB:           db.DB,
		AuthHandler:  authHandler,
		UserHandler:  userHandler,
		AssetHandler: assetHandler,
		AuditHandler: auditHandler,
		LoginLimiter: loginLimiter,
		Logger:       lg,
	})

	return &Dependencies{
		ConfigStore: store,
		Logger:      lg,
		DB:          db,
		Router:      router,
	}, nil
}

// registerNotificationHandlers hooks delivery for domain events. Delivery is
// a log line for now; a real channel (email, chat webhook) subscribes here.
func registerNotificationHandlers(bus *events.Bus, lg *slog.Logger) {
	deliver := func(ctx context.Context, event events.Event) error {
		lg.Info("notification",
			"event_type", event.EventType(),
			"event_id", event.EventID(),
			"payload", event.Payload())
		return nil
	}
	bus.Subscribe(events.TypeAuditImportCompleted, deliver)
	bus.Subscribe(events.TypeAssetStatusChanged, deliver)
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
