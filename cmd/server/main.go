/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the fuel brokerage platform server. Handles
  configuration, dependency injection, admin bootstrap and graceful
  shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags, load configuration
  2. Open the SQLite store (ledger + directory share one database)
  3. Ensure the bootstrap super admin exists
  4. Wire the ledger service, auth service and metrics into the router
  5. Start the server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML configuration path (optional; env vars also work)
  -addr    listen address override
  -db      SQLite database path override (":memory:" for ephemeral)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting connections, wait up to 30s for
  in-flight requests, close the database, exit.

SEE ALSO:
  - config/config.go: configuration precedence
  - api/server.go: routing
*/
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frotagov/fuel-ledger/api"
	"github.com/frotagov/fuel-ledger/auth"
	"github.com/frotagov/fuel-ledger/config"
	"github.com/frotagov/fuel-ledger/directory"
	"github.com/frotagov/fuel-ledger/ledger"
	"github.com/frotagov/fuel-ledger/metrics"
	"github.com/frotagov/fuel-ledger/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration path")
	addr := flag.String("addr", "", "listen address override")
	dbPath := flag.String("db", "", "SQLite database path override")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	created, err := auth.Bootstrap(ctx, store, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword)
	if err != nil {
		log.Fatalf("Failed to bootstrap admin: %v", err)
	}
	if created {
		log.Printf("Bootstrap admin %q created", cfg.Auth.AdminUsername)
	}

	svc := ledger.NewService(store, directory.LedgerView{Dir: store})
	authSvc := auth.NewService(store, []byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	m := metrics.New()

	handler := api.NewHandler(svc, store, authSvc, m)
	router := api.NewRouter(handler, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		log.Printf("Fuel ledger listening on %s (db %s)", cfg.Server.Addr, cfg.Database.Path)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
