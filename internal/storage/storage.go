package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"heredity/internal/heredity"
	"heredity/internal/run"
)

// ErrRunNotFound is returned when a run id has no stored record.
var ErrRunNotFound = errors.New("run not found")

// Storage defines the interface for inference run persistence.
type Storage interface {
	// Run operations
	SaveRun(r *RunRecord) error
	LoadRun(runID string) (*RunRecord, error)
	ListRuns(limit int) ([]*RunRecord, error)
	UpdateRunStatus(runID string, status run.Status, lastError string) error
	DeleteRun(runID string) error

	// Pedigree operations
	SaveIndividuals(runID string, individuals []heredity.Individual) error
	LoadIndividuals(runID string) ([]heredity.Individual, error)

	// Result operations
	SavePosteriors(runID string, posteriors map[string]heredity.Posterior) error
	LoadPosteriors(runID string) (map[string]heredity.Posterior, error)

	// Recovery
	RecoverInterruptedRuns() (int, error)

	// Transaction support
	BeginTx() (Transaction, error)

	// Lifecycle
	Close() error
}

// Transaction provides transactional storage operations.
type Transaction interface {
	SaveRun(r *RunRecord) error
	SaveIndividuals(runID string, individuals []heredity.Individual) error
	SavePosteriors(runID string, posteriors map[string]heredity.Posterior) error
	Commit() error
	Rollback() error
}

// RunRecord represents persisted run metadata.
type RunRecord struct {
	ID          string
	Status      run.Status
	Individuals int
	Worlds      int64
	CPT         heredity.CPT
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// queryer is the subset of *sql.DB and *sql.Tx the statements below need.
type queryer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (creating if needed) the database at dbPath.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dbPath == "" {
		dbPath = "./data/heredity.db"
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// WAL journal for concurrent readers, foreign keys for cascading deletes
	db, err := sql.Open("sqlite3", dbPath+"?mode=rwc&_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := InitSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Printf("[Storage] SQLite storage initialized at %s", dbPath)
	return &SQLiteStorage{db: db}, nil
}

// SaveRun persists a run's metadata.
func (s *SQLiteStorage) SaveRun(r *RunRecord) error {
	return saveRun(s.db, r)
}

// LoadRun retrieves a run's metadata.
func (s *SQLiteStorage) LoadRun(runID string) (*RunRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, status, individual_count, worlds, cpt, last_error, created_at, updated_at
		FROM runs
		WHERE id = ?
	`, runID)

	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return r, err
}

// ListRuns returns the most recent runs first. A non-positive limit returns all runs.
func (s *SQLiteStorage) ListRuns(limit int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.db.Query(`
		SELECT id, status, individual_count, worlds, cpt, last_error, created_at, updated_at
		FROM runs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// UpdateRunStatus moves a run to status, enforcing the run lifecycle.
func (s *SQLiteStorage) UpdateRunStatus(runID string, status run.Status, lastError string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current run.Status
	if err := tx.QueryRow("SELECT status FROM runs WHERE id = ?", runID).Scan(&current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return err
	}

	if !run.CanTransition(current, status) {
		return fmt.Errorf("invalid status transition for run %s: %s -> %s", runID, current, status)
	}

	if _, err := tx.Exec(`
		UPDATE runs
		SET status = ?, last_error = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, status, nullString(lastError), runID); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteRun removes a run and all related data (cascading).
func (s *SQLiteStorage) DeleteRun(runID string) error {
	res, err := s.db.Exec("DELETE FROM runs WHERE id = ?", runID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// SaveIndividuals persists the pedigree of a run, replacing any previous one.
func (s *SQLiteStorage) SaveIndividuals(runID string, individuals []heredity.Individual) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := saveIndividuals(tx, runID, individuals); err != nil {
		return err
	}
	return tx.Commit()
}

// LoadIndividuals retrieves a run's pedigree in input order.
func (s *SQLiteStorage) LoadIndividuals(runID string) ([]heredity.Individual, error) {
	rows, err := s.db.Query(`
		SELECT individual_id, mother, father, trait
		FROM individuals
		WHERE run_id = ?
		ORDER BY position
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var individuals []heredity.Individual
	for rows.Next() {
		var ind heredity.Individual
		var mother, father sql.NullString
		var trait sql.NullBool

		if err := rows.Scan(&ind.ID, &mother, &father, &trait); err != nil {
			return nil, err
		}

		ind.Mother = mother.String
		ind.Father = father.String
		if trait.Valid {
			ind.Trait = heredity.Observe(trait.Bool)
		}
		individuals = append(individuals, ind)
	}

	return individuals, rows.Err()
}

// SavePosteriors persists the normalized distributions of a run, replacing
// any stored before.
func (s *SQLiteStorage) SavePosteriors(runID string, posteriors map[string]heredity.Posterior) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := savePosteriors(tx, runID, posteriors); err != nil {
		return err
	}
	return tx.Commit()
}

// LoadPosteriors retrieves the distributions of a run keyed by individual id.
func (s *SQLiteStorage) LoadPosteriors(runID string) (map[string]heredity.Posterior, error) {
	rows, err := s.db.Query(`
		SELECT individual_id, gene_zero, gene_one, gene_two, trait_false, trait_true
		FROM posteriors
		WHERE run_id = ?
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posteriors := make(map[string]heredity.Posterior)
	for rows.Next() {
		var id string
		var p heredity.Posterior
		if err := rows.Scan(&id, &p.Gene[heredity.GeneZero], &p.Gene[heredity.GeneOne], &p.Gene[heredity.GeneTwo],
			&p.Trait[0], &p.Trait[1]); err != nil {
			return nil, err
		}
		posteriors[id] = p
	}

	return posteriors, rows.Err()
}

// RecoverInterruptedRuns marks runs left CREATED or RUNNING by a previous
// process as FAILED. It returns the number of runs updated.
func (s *SQLiteStorage) RecoverInterruptedRuns() (int, error) {
	res, err := s.db.Exec(`
		UPDATE runs
		SET status = ?, last_error = ?, updated_at = CURRENT_TIMESTAMP
		WHERE status IN (?, ?)
	`, run.StatusFailed, "interrupted before completion", run.StatusCreated, run.StatusRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to recover interrupted runs: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("[Storage] Marked %d interrupted runs as %s", n, run.StatusFailed)
	}
	return int(n), nil
}

// BeginTx starts a new transaction.
func (s *SQLiteStorage) BeginTx() (Transaction, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// sqliteTx implements Transaction.
type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) SaveRun(r *RunRecord) error {
	return saveRun(t.tx, r)
}

func (t *sqliteTx) SaveIndividuals(runID string, individuals []heredity.Individual) error {
	return saveIndividuals(t.tx, runID, individuals)
}

func (t *sqliteTx) SavePosteriors(runID string, posteriors map[string]heredity.Posterior) error {
	return savePosteriors(t.tx, runID, posteriors)
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

func saveRun(q queryer, r *RunRecord) error {
	if r == nil || r.ID == "" {
		return fmt.Errorf("run record must have an id")
	}
	if !r.Status.Valid() {
		return fmt.Errorf("unknown run status %q", r.Status)
	}

	cptJSON, err := json.Marshal(r.CPT)
	if err != nil {
		return fmt.Errorf("failed to encode cpt: %w", err)
	}

	_, err = q.Exec(`
		INSERT INTO runs (id, status, individual_count, worlds, cpt, last_error)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			individual_count = excluded.individual_count,
			worlds = excluded.worlds,
			cpt = excluded.cpt,
			last_error = excluded.last_error,
			updated_at = CURRENT_TIMESTAMP
	`, r.ID, r.Status, r.Individuals, r.Worlds, string(cptJSON), nullString(r.LastError))

	return err
}

func saveIndividuals(q queryer, runID string, individuals []heredity.Individual) error {
	if _, err := q.Exec("DELETE FROM individuals WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("failed to clear individuals: %w", err)
	}

	for i, ind := range individuals {
		var trait sql.NullBool
		if v, ok := ind.Trait.Known(); ok {
			trait = sql.NullBool{Bool: v, Valid: true}
		}

		if _, err := q.Exec(`
			INSERT INTO individuals (run_id, individual_id, position, mother, father, trait)
			VALUES (?, ?, ?, ?, ?, ?)
		`, runID, ind.ID, i, nullString(ind.Mother), nullString(ind.Father), trait); err != nil {
			return fmt.Errorf("failed to save individual %s: %w", ind.ID, err)
		}
	}
	return nil
}

func savePosteriors(q queryer, runID string, posteriors map[string]heredity.Posterior) error {
	if _, err := q.Exec("DELETE FROM posteriors WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("failed to clear posteriors: %w", err)
	}

	for id, p := range posteriors {
		if _, err := q.Exec(`
			INSERT INTO posteriors (run_id, individual_id, gene_zero, gene_one, gene_two, trait_false, trait_true)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, runID, id, p.Gene[heredity.GeneZero], p.Gene[heredity.GeneOne], p.Gene[heredity.GeneTwo],
			p.Trait[0], p.Trait[1]); err != nil {
			return fmt.Errorf("failed to save posterior for %s: %w", id, err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var r RunRecord
	var cptJSON, lastError sql.NullString

	if err := row.Scan(&r.ID, &r.Status, &r.Individuals, &r.Worlds, &cptJSON, &lastError,
		&r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}

	if cptJSON.Valid && cptJSON.String != "" {
		if err := json.Unmarshal([]byte(cptJSON.String), &r.CPT); err != nil {
			return nil, fmt.Errorf("failed to decode cpt for run %s: %w", r.ID, err)
		}
	}
	r.LastError = lastError.String
	return &r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
