package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/afero"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"binderflow/backend/internal/api"
	"binderflow/backend/internal/auth"
	"binderflow/backend/internal/config"
	"binderflow/backend/internal/logging"
	"binderflow/backend/internal/mcp"
	"binderflow/backend/internal/repository"
	"binderflow/backend/internal/services"
	"binderflow/backend/internal/tls"
)

func main() {
	ctx := context.Background()

	// Parse command line flags
	configFile := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Configuration loading failed: %v", err)
	}

	// Initialize logging
	logger := logging.NewLogger(cfg.Log.Level, cfg.Log.Format, nil)
	logger.SetDefault()
	logger.Info("Configuration loaded",
		"environment", cfg.Environment,
		"db_driver", cfg.DB.Driver,
		"okta_domain", cfg.Auth.OktaDomain,
		"prediction_key_set", cfg.Prediction.APIKey != "",
		"output_dir", cfg.Server.OutputDir,
	)

	if cfg.Prediction.APIKey == "" {
		logger.Warn("No prediction API key configured; hosted model calls will be rejected")
	}

	logger.Info("Starting binder design service")

	// Initialize persistence
	repo, err := repository.Open(ctx, cfg.DB.Driver, cfg.DSN())
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	logger.Info("Database connected", "driver", cfg.DB.Driver)

	// Initialize service layer
	client := services.NewNIMClient(cfg.Prediction.Endpoints, cfg.Prediction.APIKey, cfg.Prediction.Timeout)
	sessions := services.NewSessionService(repo)

	apiServer := api.NewServer(api.Options{
		Sessions:  sessions,
		Client:    client,
		Pipeline:  cfg.Pipeline,
		OutputDir: cfg.Server.OutputDir,
		Fs:        afero.NewOsFs(),
		DB:        repo,
		Logger:    logger,
	})

	logger.Info("Service layer initialized")

	// Create Echo server
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.ErrorHandler(logger)

	// Middleware
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware("binderflow"))
	e.Use(requestLogger(logger))

	// Initialize authentication
	authz, err := auth.New(ctx, cfg, repo, logger.Component("auth"))
	if err != nil {
		logger.Error("Failed to initialize auth", "error", err)
		os.Exit(1)
	}
	if authz.Bypassed() {
		logger.Warn("Authentication bypass enabled; all requests use the local tenant")
	}

	// Register auth handlers
	e.GET("/login", echo.WrapHandler(http.HandlerFunc(authz.LoginHandler)))
	e.GET("/auth/callback", echo.WrapHandler(http.HandlerFunc(authz.CallbackHandler)))
	e.GET("/logout", echo.WrapHandler(http.HandlerFunc(authz.LogoutHandler)))
	e.GET("/health", apiServer.HandleHealth)

	// Mount REST API handlers
	apiGroup := e.Group("/api/v1")
	apiGroup.Use(echo.WrapMiddleware(authz.RequireAuth))
	api.RegisterHandlers(apiGroup, apiServer)

	logger.Info("REST API handlers mounted")

	// Mount MCP protocol handlers
	mcpServer := mcp.NewServer(api.Version, cfg.Pipeline.InterfaceCutoff)
	mcpHandlers := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpHandlers, mcpServer.GetMCPServer())
	e.Any("/mcp", echo.WrapHandler(mcpHandlers))
	e.Any("/mcp/*", echo.WrapHandler(mcpHandlers))

	logger.Info("MCP protocol handlers mounted")

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      e,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	if cfg.TLS.Enable {
		if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
			logger.Error("TLS enabled but cert/key file not provided")
			os.Exit(1)
		}
		if len(cfg.TLS.Hostnames) > 0 {
			created, err := tls.EnsureCert(afero.NewOsFs(), cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.Hostnames)
			if err != nil {
				logger.Error("Failed to generate self-signed cert", "error", err)
				os.Exit(1)
			}
			if created {
				logger.Info("Generated self-signed certificate", "cert", cfg.TLS.CertFile, "hosts", cfg.TLS.Hostnames)
			}
		}
	}

	// Graceful shutdown handling
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", cfg.Server.Addr, "tls", cfg.TLS.Enable)
		if cfg.TLS.Enable {
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
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	case sig := <-shutdown:
		logger.Info("Shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			if err := server.Close(); err != nil {
				logger.Error("Server close error", "error", err)
			}
		}

		logger.Info("Server stopped gracefully")
	}
}

func requestLogger(logger *logging.Logger) echo.MiddlewareFunc {
	httpLog := logger.Component("http")
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			httpLog.LogAttrs(c.Request().Context(), level, "request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			)
			return nil
		},
	})
}
