package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"codegate/internal/api"
	"codegate/internal/auth"
	"codegate/internal/config"
	"codegate/internal/dispatch"
	"codegate/internal/logging"
	"codegate/internal/mcp"
	"codegate/internal/metrics"
	"codegate/internal/notify"
	"codegate/internal/registry"
	"codegate/internal/repository"
	"codegate/internal/services"
	"codegate/internal/tls"
	"codegate/internal/workflows"
)

const version = "1.0.0"

func main() {
	ctx := context.Background()

	// Initialize logging
	logger := logging.NewLogger()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load configuration: %v", err)
		log.Fatalf("Configuration loading failed: %v", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid timezone %q: %v", cfg.Auth.Timezone, err)
		log.Fatalf("Configuration loading failed: %v", err)
	}

	logger.Info("Starting Codegate Workflow Service")

	// Initialize database connection
	dbPool, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize database: %v", err)
		log.Fatalf("Database initialization failed: %v", err)
	}
	defer dbPool.Close()

	logger.Info("Database connected")

	// Initialize repository layer
	store := repository.NewPostgresStore(dbPool)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("Failed to ensure database schema: %v", err)
		log.Fatalf("Database initialization failed: %v", err)
	}

	// Account table and metrics
	accounts, err := auth.NewAccounts(cfg.Accounts)
	if err != nil {
		logger.Error("Invalid account configuration: %v", err)
		log.Fatalf("Configuration loading failed: %v", err)
	}

	meters, err := metrics.New()
	if err != nil {
		logger.Error("Failed to register metrics: %v", err)
		log.Fatalf("Metrics initialization failed: %v", err)
	}

	// Daily code service and session tokens
	var notifier notify.Notifier
	if cfg.SMTP.Host != "" {
		notifier = notify.NewSMTPNotifier(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
	} else {
		notifier = notify.NewLogNotifier(logger)
	}

	codes := auth.NewCodeService(store, notifier, accounts, logger, meters, cfg.Auth.CodeLength, loc)
	if _, err := codes.Current(ctx); err != nil {
		logger.Error("Failed to ensure today's code: %v", err)
		log.Fatalf("Code initialization failed: %v", err)
	}
	go rotateDaily(ctx, codes, loc, logger)

	tokens := auth.NewTokenIssuer([]byte(cfg.Auth.SigningSecret), cfg.Auth.TokenTTL, accounts)

	// Workflow catalog and dispatcher
	generation := services.NewHTTPGenerationClient(cfg.Generation.BaseURL, cfg.Generation.APIKey, cfg.Generation.Model, cfg.Generation.Timeout)
	reg := registry.New()
	if err := workflows.RegisterAll(reg, generation); err != nil {
		logger.Error("Failed to register workflows: %v", err)
		log.Fatalf("Workflow registration failed: %v", err)
	}
	dispatcher := dispatch.New(reg, store, logger, meters, cfg.Dispatch.ExecutionTimeout, cfg.Dispatch.StrictInput)

	logger.Info("Service layer initialized", "workflows", reg.Len())

	// Create Echo server
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware("codegate"))

	// Mount REST API handlers
	handler := api.NewHandler(codes, tokens, accounts, reg, dispatcher, store, logger, version)
	handler.RegisterRoutes(e)

	logger.Info("REST API handlers mounted")

	// Mount MCP protocol handlers
	mcpServer := mcp.NewServer(tokens, reg, dispatcher, version)
	mcpHandlers := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpHandlers, mcpServer.GetMCPServer())
	e.Any("/mcp/*", echo.WrapHandler(mcpHandlers))

	logger.Info("MCP protocol handlers mounted")

	// Create HTTP server
	addr := cfg.Server.Addr
	if cfg.TLS.Enable {
		// use TLS port 8443
		addr = ":8443"
	}
	server := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", addr, "tls", cfg.TLS.Enable)
		if cfg.TLS.Enable {
			if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
				logger.Error("TLS enabled but cert/key file not provided")
				serverErrors <- server.ListenAndServe()
				return
			}
			// generate if missing and hostnames provided
			if _, err := os.Stat(cfg.TLS.CertFile); os.IsNotExist(err) {
				if len(cfg.TLS.Hostnames) > 0 {
					if err := tls.GenerateSelfSignedCert(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.Hostnames); err != nil {
						logger.Error("failed to generate self-signed cert", "error", err)
					}
				}
			}
			serverErrors <- server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			serverErrors <- server.ListenAndServe()
		}
	}()

	// Wait for shutdown signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			logger.Error("Server error: %v", err)
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-shutdown:
		logger.Info("Shutdown signal received: %v", sig)

		// Create shutdown context with timeout
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				logger.Error("Server close error: %v", err)
			}
		}

		logger.Info("Server stopped gracefully")
	}
}

// rotateDaily mints the next code shortly after each local midnight so
// the first login of the day does not pay the generation cost.
func rotateDaily(ctx context.Context, codes *auth.CodeService, loc *time.Location, logger *logging.Logger) {
	for {
		now := time.Now().In(loc)
		next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 5, 0, loc).AddDate(0, 0, 1)
		select {
		case <-ctx.Done():
			return
		case <-time.After(next.Sub(now)):
		}
		if _, err := codes.Current(ctx); err != nil {
			logger.Error("Daily code rotation failed: %v", err)
		}
	}
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*pgxpool.Pool, error) {
	logger.Debug("Initializing database connection")

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
