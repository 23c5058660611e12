package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	LoadDotEnv()
	cfg, err := ParseConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	if db != nil {
		defer db.Close()
	}

	ledger, err := NewLedger(store)
	if err != nil {
		log.Fatalf("ledger: %v", err)
	}

	analytics := NewAnalytics(db)
	matches := NewMatchManager(cfg.Rules(), cfg.MaxMatches, cfg.Seed, log.Default())
	auth := NewAuth(cfg.JWTSecret, cfg.AdminHash, db)
	if !auth.AdminEnabled() {
		log.Printf("HORDE_ADMIN_HASH not set, highscore reset disabled")
	}

	hub := NewHub(matches, ledger, auth, db, analytics, cfg.PublicURL)
	go matches.RunReaper(time.Minute, SessionIdleTimeout)

	router := SetupRoutes(hub, cfg.ClientDir)

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{Addr: cfg.Addr, Handler: router}

	go func() {
		log.Printf("Server starting on %s (store: %s)", cfg.Addr, cfg.Store)
		if cfg.ClientDir != "" {
			log.Printf("Serving client files from %s", cfg.ClientDir)
		}
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down...")
	server.Close()
	matches.Shutdown()
	analytics.Stop()
}

// openStore picks the highscore store. db is nil for the flat-file store.
func openStore(cfg Config) (*DB, LedgerStore, error) {
	switch cfg.Store {
	case StoreSQLite:
		db, err := OpenDB(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		return db, db, nil
	case StorePostgres:
		db, err := OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		return db, db, nil
	default:
		return nil, NewFileStore(cfg.HighscoreFile), nil
	}
}
