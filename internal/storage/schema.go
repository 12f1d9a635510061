package storage

import (
	"database/sql"
	"fmt"
	"log"
)

const currentSchemaVersion = 1

// InitSchema creates all required tables and indexes.
// It's idempotent - safe to call multiple times.
func InitSchema(db *sql.DB) error {
	version, err := getSchemaVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	if version >= currentSchemaVersion {
		log.Printf("[Storage] Schema already at version %d, skipping initialization", version)
		return nil
	}

	log.Printf("[Storage] Initializing schema from version %d to %d", version, currentSchemaVersion)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := createTables(tx); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	if err := createIndexes(tx); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema initialization: %w", err)
	}

	log.Printf("[Storage] Schema initialized successfully to version %d", currentSchemaVersion)
	return nil
}

func createTables(tx *sql.Tx) error {
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	// Runs table - one row per inference request
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			individual_count INTEGER NOT NULL DEFAULT 0,
			worlds INTEGER NOT NULL DEFAULT 0,
			cpt TEXT,  -- JSON encoded heredity.CPT
			last_error TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}

	// Individuals table - the pedigree a run was computed over, in input order
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS individuals (
			run_id TEXT NOT NULL,
			individual_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			mother TEXT,
			father TEXT,
			trait INTEGER,  -- NULL unobserved, 0 absent, 1 present
			PRIMARY KEY (run_id, individual_id),
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		)
	`); err != nil {
		return fmt.Errorf("failed to create individuals table: %w", err)
	}

	// Posteriors table - normalized distributions per individual
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS posteriors (
			run_id TEXT NOT NULL,
			individual_id TEXT NOT NULL,
			gene_zero REAL NOT NULL,
			gene_one REAL NOT NULL,
			gene_two REAL NOT NULL,
			trait_false REAL NOT NULL,
			trait_true REAL NOT NULL,
			PRIMARY KEY (run_id, individual_id),
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		)
	`); err != nil {
		return fmt.Errorf("failed to create posteriors table: %w", err)
	}

	return nil
}

func createIndexes(tx *sql.Tx) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_individuals_run_position ON individuals(run_id, position)`,
	}

	for _, idx := range indexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

func getSchemaVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		// Table might not exist yet
		return 0, nil
	}
	return version, nil
}

func setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}
