package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/garnizeh/pqrs/api"
	dbfs "github.com/garnizeh/pqrs/db"
	"github.com/garnizeh/pqrs/internal/config"
	"github.com/garnizeh/pqrs/internal/connectivity"
	"github.com/garnizeh/pqrs/internal/db"
	"github.com/garnizeh/pqrs/internal/records"
	"github.com/garnizeh/pqrs/internal/repository/sqlite"
	"github.com/garnizeh/pqrs/internal/schemas"
	"github.com/garnizeh/pqrs/internal/syncengine"
	"github.com/garnizeh/pqrs/pkg/gateway"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	api.SetLogger(logger)
	gateway.SetLogger(logger)

	log.Printf("Starting PQRS server version %s (built at %s)", version, buildTime)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Open database connection
	database, err := db.New(ctx, cfg.DatabasePath, logger)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, database, dbfs.Migrations, dbfs.SeedFiles); err != nil {
			log.Fatalf("Failed to migrate DB: %v", err)
		}
	}

	repo := sqlite.New(database, logger)

	gw, err := gateway.NewDefaultClient(cfg.Sync.Gateway())
	if err != nil {
		log.Fatalf("Failed to create gateway client: %v", err)
	}

	monitor := connectivity.NewMonitor(gw, cfg.Sync.ProbeInterval, logger)
	engine := syncengine.New(repo, repo, gw, monitor, syncengine.Config{
		Interval:    cfg.Sync.Interval,
		MaxAttempts: cfg.Sync.MaxAttempts,
	}, logger)
	monitor.OnReconnect(engine.Trigger)

	loader, err := schemas.NewLoader(ctx, repo)
	if err != nil {
		log.Fatalf("Failed to load payload schemas: %v", err)
	}

	handler := api.SetupRoutes(cfg, version, buildTime, api.Deps{
		DB:        database,
		Agents:    repo,
		Records:   records.NewService(repo, engine, logger),
		Engine:    engine,
		Queue:     repo,
		Monitor:   monitor,
		Receipts:  repo,
		Validator: loader,
	})

	monitor.Start(ctx)
	engine.Start(ctx)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// Stop background work before closing the database
	stop()
	monitor.Stop()
	engine.Stop()
	_ = gw.Close()

	if err := database.Close(); err != nil {
		log.Printf("Error closing DB: %v", err)
	}

	log.Println("Server exited")
}
