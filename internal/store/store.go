// Package store provides SQLite-backed persistence for stashsweep.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fentz26/stashsweep/internal/models"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store provides access to the stashsweep SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer at a time
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		simulate INTEGER NOT NULL DEFAULT 0,
		profit INTEGER NOT NULL DEFAULT 0,
		replans INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS pdr (
		id TEXT PRIMARY KEY,
		run_id TEXT,
		action TEXT NOT NULL,
		inputs_hash TEXT NOT NULL,
		outcome TEXT NOT NULL,
		item_id INTEGER,
		details TEXT,
		timestamp DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS prefs (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS game_state (
		name TEXT PRIMARY KEY,
		document BLOB NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_pdr_run_id ON pdr(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// --- Run Operations ---

// CreateRun inserts a new run record in the running state.
func (s *Store) CreateRun(simulate bool) (*models.Run, error) {
	run := &models.Run{
		ID:        uuid.New().String(),
		Status:    models.RunStatusRunning,
		Simulate:  simulate,
		StartedAt: time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO runs (id, status, simulate, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Status, run.Simulate, run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// FinishRun records the outcome of a run.
func (s *Store) FinishRun(id string, status models.RunStatus, profit int64, replans int, runErr error) error {
	var errText sql.NullString
	if runErr != nil {
		errText = sql.NullString{String: runErr.Error(), Valid: true}
	}
	result, err := s.db.Exec(
		`UPDATE runs SET status = ?, profit = ?, replans = ?, error = ?, finished_at = ? WHERE id = ?`,
		status, profit, replans, errText, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

const runColumns = `id, status, simulate, profit, replans, error, started_at, finished_at`

func scanRun(row interface{ Scan(...any) error }) (*models.Run, error) {
	run := &models.Run{}
	var errText sql.NullString
	var finishedAt sql.NullTime
	if err := row.Scan(&run.ID, &run.Status, &run.Simulate, &run.Profit, &run.Replans, &errText, &run.StartedAt, &finishedAt); err != nil {
		return nil, err
	}
	run.Error = errText.String
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}
	return run, nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(id string) (*models.Run, error) {
	run, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A limit of 0 returns all runs.
func (s *Store) ListRuns(limit int) ([]models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// --- PDR Operations ---

// WritePDR writes a Process Decision Record.
func (s *Store) WritePDR(runID, action, inputsHash, outcome string, itemID int, details string) (*models.PDREntry, error) {
	entry := &models.PDREntry{
		ID:         uuid.New().String(),
		RunID:      runID,
		Action:     action,
		InputsHash: inputsHash,
		Outcome:    outcome,
		ItemID:     itemID,
		Details:    details,
		Timestamp:  time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO pdr (id, run_id, action, inputs_hash, outcome, item_id, details, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, nullIfEmpty(entry.RunID), entry.Action, entry.InputsHash, entry.Outcome, entry.ItemID, entry.Details, entry.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert pdr: %w", err)
	}
	return entry, nil
}

// GetPDRForRun returns the audit records of a run in the order they were written.
func (s *Store) GetPDRForRun(runID string) ([]models.PDREntry, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, action, inputs_hash, outcome, item_id, details, timestamp
		 FROM pdr WHERE run_id = ? ORDER BY timestamp ASC, rowid ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query pdr: %w", err)
	}
	defer rows.Close()

	var entries []models.PDREntry
	for rows.Next() {
		var e models.PDREntry
		var rid, details sql.NullString
		var itemID sql.NullInt64
		if err := rows.Scan(&e.ID, &rid, &e.Action, &e.InputsHash, &e.Outcome, &itemID, &details, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan pdr: %w", err)
		}
		e.RunID = rid.String
		e.ItemID = int(itemID.Int64)
		e.Details = details.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// --- Preference Operations ---

// SetPref stores a named configuration value.
func (s *Store) SetPref(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO prefs (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set pref: %w", err)
	}
	return nil
}

// GetPref returns a named configuration value.
func (s *Store) GetPref(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM prefs WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query pref: %w", err)
	}
	return value, true, nil
}

// DeletePref removes a named configuration value.
func (s *Store) DeletePref(key string) error {
	_, err := s.db.Exec(`DELETE FROM prefs WHERE key = ?`, key)
	return err
}

// Prefs returns every stored configuration value.
func (s *Store) Prefs() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM prefs`)
	if err != nil {
		return nil, fmt.Errorf("query prefs: %w", err)
	}
	defer rows.Close()

	prefs := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan pref: %w", err)
		}
		prefs[k] = v
	}
	return prefs, rows.Err()
}

// --- Game State Operations ---

// SaveGameState stores a serialised game state under name, replacing any
// previous document.
func (s *Store) SaveGameState(name string, document []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO game_state (name, document, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
		name, document, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save game state: %w", err)
	}
	return nil
}

// LoadGameState returns the serialised game state stored under name.
func (s *Store) LoadGameState(name string) ([]byte, error) {
	var doc []byte
	err := s.db.QueryRow(`SELECT document FROM game_state WHERE name = ?`, name).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("game state %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query game state: %w", err)
	}
	return doc, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
