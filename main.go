package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-grid/pkg/adapters/datasource"
	_ "github.com/ekaya-inc/ekaya-grid/pkg/adapters/datasource/mssql" // registers the mssql datasource
	"github.com/ekaya-inc/ekaya-grid/pkg/config"
	"github.com/ekaya-inc/ekaya-grid/pkg/handlers"
	"github.com/ekaya-inc/ekaya-grid/pkg/logging"
	"github.com/ekaya-inc/ekaya-grid/pkg/middleware"
	"github.com/ekaya-inc/ekaya-grid/pkg/querybuilder"
	"github.com/ekaya-inc/ekaya-grid/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := newLogger(cfg.Env)
	defer logger.Sync()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("datasource", cfg.Database.Type),
		zap.String("database", cfg.Database.Database),
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("auth_method", cfg.Database.AuthMethod))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ds, err := datasource.Open(ctx, cfg.Database.Type, cfg.Database.DatasourceMap(), logger.Named("datasource"))
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.String("error", logging.SanitizeError(err)))
	}
	defer ds.Close()

	gridService, err := services.NewGridService(ds, ds, services.GridOptions{
		Statements: querybuilder.Options{
			ValuePrefix:  cfg.Grid.ValuePrefix,
			HoldingTable: cfg.Grid.HoldingTable,
		},
		RejectSuspiciousValues: cfg.Grid.RejectSuspiciousValues,
		SchemaCacheTTL:         cfg.Grid.SchemaCacheTTL,
	}, logger.Named("grid"))
	if err != nil {
		logger.Fatal("Failed to create grid service", zap.Error(err))
	}

	mux := http.NewServeMux()

	// Register handlers
	handlers.NewHealthHandler(cfg, ds, logger).RegisterRoutes(mux)
	handlers.NewGridHandler(gridService, logger.Named("http")).RegisterRoutes(mux)

	var handler http.Handler = mux
	handler = middleware.ClientIP(handler)
	handler = middleware.RequestLogger(logger)(handler)
	handler = middleware.Recoverer(logger)(handler)

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting ekaya-grid",
			zap.String("addr", server.Addr),
			zap.Bool("tls", cfg.TLSCertPath != ""))
		if cfg.TLSCertPath != "" {
			serverErr <- server.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			serverErr <- server.ListenAndServe()
		}
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown failed", zap.Error(err))
		}
	}
}

// newLogger returns a development logger for local runs and a production
// JSON logger everywhere else.
func newLogger(env string) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if env == "local" || env == "dev" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	return logger
}
