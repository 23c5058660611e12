package main

import (
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Orderings accepted by RecentMatches
const (
	orderRecent = "id DESC"
	orderBest   = "horde_kills + boss_kills DESC, id"
)

// SQL dialects the store can speak
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// DB wraps the SQL connection used for highscores, match history and analytics
type DB struct {
	conn    *sql.DB
	dialect string
}

// MatchRow represents a finished round
type MatchRow struct {
	ID         int64  `json:"id"`
	MatchID    string `json:"matchId"`
	HordeKills int    `json:"hordeKills"`
	BossKills  int    `json:"bossKills"`
	DurationMs int64  `json:"durationMs"`
	Cause      string `json:"cause"`
	EndedAt    string `json:"endedAt"`
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	// One writer at a time; avoids SQLITE_BUSY between the ledger and the analytics writer
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn, dialect: DialectSQLite}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// OpenPostgres connects to Postgres with a connection string (e.g. DATABASE_URL)
func OpenPostgres(connStr string) (*DB, error) {
	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}
	db := &DB{conn: conn, dialect: DialectPostgres}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS highscores (
		rank INTEGER PRIMARY KEY,
		player_name TEXT NOT NULL,
		created_at TEXT NOT NULL,
		total_kills INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS matches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		match_id TEXT NOT NULL,
		horde_kills INTEGER NOT NULL DEFAULT 0,
		boss_kills INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		cause TEXT NOT NULL DEFAULT '',
		ended_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS analytics_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		match_id TEXT,
		data TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_matches_match_id ON matches(match_id);
	CREATE INDEX IF NOT EXISTS idx_events_type ON analytics_events(event_type);
	`

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS highscores (
		rank INTEGER PRIMARY KEY,
		player_name TEXT NOT NULL,
		created_at TEXT NOT NULL,
		total_kills INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS matches (
		id BIGSERIAL PRIMARY KEY,
		match_id TEXT NOT NULL,
		horde_kills INTEGER NOT NULL DEFAULT 0,
		boss_kills INTEGER NOT NULL DEFAULT 0,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		cause TEXT NOT NULL DEFAULT '',
		ended_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS analytics_events (
		id BIGSERIAL PRIMARY KEY,
		event_type TEXT NOT NULL,
		match_id TEXT,
		data TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_matches_match_id ON matches(match_id);
	CREATE INDEX IF NOT EXISTS idx_events_type ON analytics_events(event_type);
	`

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := sqliteSchema
	if db.dialect == DialectPostgres {
		schema = postgresSchema
	}
	_, err := db.conn.Exec(schema)
	if err != nil {
		log.Printf("DB migration error: %v", err)
	}
	return err
}

// rebind rewrites ? placeholders to $1, $2, ... for Postgres
func (db *DB) rebind(query string) string {
	if db.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// LoadHighscores returns the stored list in rank order
func (db *DB) LoadHighscores() ([]Highscore, error) {
	rows, err := db.conn.Query("SELECT player_name, created_at, total_kills FROM highscores ORDER BY rank")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []Highscore{}
	for rows.Next() {
		var h Highscore
		if err := rows.Scan(&h.PlayerName, &h.CreatedAt, &h.TotalKills); err != nil {
			return nil, err
		}
		list = append(list, h)
	}
	return list, rows.Err()
}

// SaveHighscores replaces the stored list in one transaction
func (db *DB) SaveHighscores(list []Highscore) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM highscores"); err != nil {
		return err
	}
	stmt, err := tx.Prepare(db.rebind("INSERT INTO highscores (rank, player_name, created_at, total_kills) VALUES (?, ?, ?, ?)"))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, h := range list {
		if _, err := stmt.Exec(i+1, h.PlayerName, h.CreatedAt, h.TotalKills); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RecordMatch stores a finished round
func (db *DB) RecordMatch(r MatchResult) error {
	_, err := db.conn.Exec(
		db.rebind("INSERT INTO matches (match_id, horde_kills, boss_kills, duration_ms, cause, ended_at) VALUES (?, ?, ?, ?, ?, ?)"),
		r.MatchID, r.HordeKills, r.BossKills, r.Duration.Milliseconds(), r.Cause, r.EndedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// MatchSummary returns rounds played, kills over all rounds and the best round
func (db *DB) MatchSummary() (played int, totalKills int, best *MatchRow, err error) {
	err = db.conn.QueryRow(
		"SELECT COUNT(*), COALESCE(SUM(horde_kills + boss_kills), 0) FROM matches",
	).Scan(&played, &totalKills)
	if err != nil {
		return 0, 0, nil, err
	}
	if played == 0 {
		return 0, 0, nil, nil
	}
	rows, err := db.RecentMatches(orderBest, 1)
	if err != nil {
		return 0, 0, nil, err
	}
	if len(rows) > 0 {
		best = &rows[0]
	}
	return played, totalKills, best, nil
}

// RecentMatches returns finished rounds in the given order
func (db *DB) RecentMatches(orderBy string, limit int) ([]MatchRow, error) {
	// Whitelist valid orderings
	switch orderBy {
	case orderRecent, orderBest:
	default:
		orderBy = orderRecent
	}
	rows, err := db.conn.Query(db.rebind(`
		SELECT id, match_id, horde_kills, boss_kills, duration_ms, cause, ended_at
		FROM matches
		ORDER BY `+orderBy+`
		LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []MatchRow
	for rows.Next() {
		var r MatchRow
		if err := rows.Scan(&r.ID, &r.MatchID, &r.HordeKills, &r.BossKills, &r.DurationMs, &r.Cause, &r.EndedAt); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// GetSetting returns a stored setting, or "" when unset
func (db *DB) GetSetting(key string) string {
	var v string
	err := db.conn.QueryRow(db.rebind("SELECT value FROM settings WHERE key = ?"), key).Scan(&v)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Printf("settings: read %s: %v", key, err)
		}
		return ""
	}
	return v
}

// SetSetting stores a setting
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		db.rebind("INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value"),
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// InsertEvents appends a batch to analytics_events in one transaction
func (db *DB) InsertEvents(events []Event) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(db.rebind(`INSERT INTO analytics_events (event_type, match_id, data, created_at) VALUES (?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		mid := sql.NullString{String: ev.MatchID, Valid: ev.MatchID != ""}
		payload := sql.NullString{String: ev.Payload, Valid: ev.Payload != ""}
		if _, err := stmt.Exec(ev.Kind, mid, payload, ev.At.Format(time.RFC3339)); err != nil {
			return fmt.Errorf("insert %s: %w", ev.Kind, err)
		}
	}
	return tx.Commit()
}

// CountEvents returns how many events of a kind were stored
func (db *DB) CountEvents(kind string) (int, error) {
	var n int
	err := db.conn.QueryRow(db.rebind("SELECT COUNT(*) FROM analytics_events WHERE event_type = ?"), kind).Scan(&n)
	return n, err
}
