package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/calderae/atalaya/internal/common"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Catalog and attendance schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS tracks (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL UNIQUE
				)`,

				`CREATE TABLE IF NOT EXISTS terms (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL UNIQUE
				)`,

				`CREATE TABLE IF NOT EXISTS cohort_groups (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL,
					track_id INTEGER NOT NULL REFERENCES tracks(id),
					term_id INTEGER REFERENCES terms(id)
				)`,

				`CREATE TABLE IF NOT EXISTS students (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					code TEXT NOT NULL UNIQUE,
					first_name TEXT NOT NULL,
					last_name TEXT NOT NULL,
					cohort_group_id INTEGER NOT NULL REFERENCES cohort_groups(id),
					birth_date DATETIME,
					gender TEXT,
					grade TEXT,
					socio_stratum TEXT,
					work_occupation TEXT,
					lives_with TEXT,
					financial_support TEXT,
					admission_mode TEXT,
					high_school_type TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_students_cohort ON students(cohort_group_id)`,

				`CREATE TABLE IF NOT EXISTS subjects (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					code TEXT NOT NULL UNIQUE,
					name TEXT NOT NULL
				)`,

				`CREATE TABLE IF NOT EXISTS attendance_marks (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					student_id INTEGER NOT NULL REFERENCES students(id),
					subject_id INTEGER NOT NULL REFERENCES subjects(id),
					date DATETIME NOT NULL,
					status TEXT NOT NULL,
					note TEXT,
					recorded_by TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(student_id, subject_id, date)
				)`,
				`CREATE INDEX idx_attendance_pair_date ON attendance_marks(student_id, subject_id, date DESC)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Risk scores and batches",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS score_batches (
					id TEXT PRIMARY KEY,
					file_name TEXT NOT NULL,
					requested_by TEXT,
					status TEXT NOT NULL,
					total_rows INTEGER DEFAULT 0,
					total_scored INTEGER DEFAULT 0,
					total_low INTEGER DEFAULT 0,
					total_medium INTEGER DEFAULT 0,
					total_high INTEGER DEFAULT 0,
					total_critical INTEGER DEFAULT 0,
					error_summary TEXT,
					model_version TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS risk_scores (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					student_id INTEGER NOT NULL REFERENCES students(id),
					probability REAL NOT NULL,
					band TEXT NOT NULL,
					label TEXT NOT NULL,
					score_date DATETIME NOT NULL,
					kind TEXT NOT NULL,
					batch_id TEXT REFERENCES score_batches(id),
					features TEXT NOT NULL,
					model_version TEXT NOT NULL,
					variant_tag TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_risk_scores_student_date ON risk_scores(student_id, score_date DESC, id DESC)`,
				`CREATE INDEX idx_risk_scores_batch ON risk_scores(batch_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Alerts",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS alerts (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					type TEXT NOT NULL,
					band TEXT NOT NULL,
					state TEXT NOT NULL DEFAULT 'ACTIVE',
					student_id INTEGER NOT NULL REFERENCES students(id),
					risk_score_id INTEGER REFERENCES risk_scores(id),
					subject_id INTEGER REFERENCES subjects(id),
					title TEXT NOT NULL,
					description TEXT NOT NULL,
					absence_streak INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME NOT NULL,
					resolved_at DATETIME,
					resolved_by TEXT,
					resolution_note TEXT
				)`,
				`CREATE INDEX idx_alerts_student_state ON alerts(student_id, state)`,
				`CREATE INDEX idx_alerts_created ON alerts(created_at DESC)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     4,
		Description: "Follow-up actions",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS actions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					risk_score_id INTEGER NOT NULL REFERENCES risk_scores(id),
					description TEXT NOT NULL,
					date DATETIME NOT NULL,
					recorded_by TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_actions_score ON actions(risk_score_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// Get current version
	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}
	if currentVersion > ExpectedSchemaVersion {
		return fmt.Errorf("%w: schema version %d is newer than this build supports (%d)",
			common.ErrDatabaseCorrupted, currentVersion, ExpectedSchemaVersion)
	}

	// Apply migrations
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		// Update version
		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	// Verify we're at the expected schema version
	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("%w: schema version mismatch: expected %d, got %d",
			common.ErrDatabaseCorrupted, ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
