package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store backends selectable with HORDE_STORE
const (
	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config holds the server settings. Flags override the environment, which
// overrides the built-in defaults.
type Config struct {
	Addr          string
	ClientDir     string
	Store         string
	HighscoreFile string
	SQLitePath    string
	DatabaseURL   string
	JWTSecret     string
	AdminHash     string
	PublicURL     string
	MaxMatches    int
	TickInterval  time.Duration
	Seed          int64
}

// LoadDotEnv loads .env files into the environment; a missing file is not an error
func LoadDotEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return
		}
		log.Printf("warning: could not load .env: %v", err)
		return
	}
	log.Println("Loaded environment variables from .env")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("warning: %s=%q is not a number, using %d", key, v, fallback)
		return fallback
	}
	return n
}

// ParseConfig reads the environment and then the command-line flags in args
func ParseConfig(args []string) (Config, error) {
	fset := flag.NewFlagSet("horde-server", flag.ContinueOnError)

	var cfg Config
	var tickMs int
	fset.StringVar(&cfg.Addr, "addr", getEnv("HORDE_ADDR", ":8080"), "HTTP listen address")
	fset.StringVar(&cfg.ClientDir, "client", getEnv("HORDE_CLIENT_DIR", ""), "Path to browser client directory (empty: API only)")
	fset.StringVar(&cfg.Store, "store", getEnv("HORDE_STORE", StoreFile), "Highscore store: file, sqlite or postgres")
	fset.StringVar(&cfg.HighscoreFile, "highscores", getEnv("HORDE_HIGHSCORE_FILE", "highscores.json"), "Highscore file for the file store")
	fset.StringVar(&cfg.SQLitePath, "db", getEnv("HORDE_SQLITE_PATH", "horde.db"), "SQLite database path")
	fset.StringVar(&cfg.DatabaseURL, "database-url", getEnv("DATABASE_URL", ""), "Postgres connection string")
	fset.StringVar(&cfg.PublicURL, "public-url", getEnv("HORDE_PUBLIC_URL", ""), "Base URL encoded in controller QR codes")
	fset.IntVar(&cfg.MaxMatches, "max-matches", getEnvInt("HORDE_MAX_MATCHES", 50), "Maximum concurrent matches (0: unlimited)")
	fset.IntVar(&tickMs, "tick-ms", getEnvInt("HORDE_TICK_MS", int(TickDuration/time.Millisecond)), "Tick interval in milliseconds")
	fset.Int64Var(&cfg.Seed, "seed", 0, "Random seed (0: seed from the clock)")
	if err := fset.Parse(args); err != nil {
		return Config{}, err
	}

	// Secrets only come from the environment
	cfg.JWTSecret = os.Getenv("HORDE_JWT_SECRET")
	cfg.AdminHash = os.Getenv("HORDE_ADMIN_HASH")

	if tickMs <= 0 {
		return Config{}, fmt.Errorf("tick interval must be positive, got %d", tickMs)
	}
	cfg.TickInterval = time.Duration(tickMs) * time.Millisecond

	switch cfg.Store {
	case StoreFile, StoreSQLite:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, errors.New("postgres store needs DATABASE_URL")
		}
	default:
		return Config{}, fmt.Errorf("unknown store %q", cfg.Store)
	}
	return cfg, nil
}

// Rules returns the round tuning for this config
func (c Config) Rules() Rules {
	rules := DefaultRules()
	rules.TickInterval = c.TickInterval
	return rules
}
