package store

import (
	"context"
	"database/sql"
	"fmt"
)

// baseStatements create the schema as it existed before photo and
// topic support. All statements are idempotent so an interrupted
// migration can simply be re-run.
var baseStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL CHECK (role IN ('admin', 'teacher', 'student')),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS classes (
		id         UUID PRIMARY KEY,
		name       TEXT NOT NULL,
		teacher_id UUID NOT NULL REFERENCES users (id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS topics (
		id         UUID PRIMARY KEY,
		class_id   UUID NOT NULL REFERENCES classes (id),
		name       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS students (
		id         UUID PRIMARY KEY,
		name       TEXT NOT NULL,
		user_id    UUID REFERENCES users (id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS enrollments (
		student_id UUID NOT NULL REFERENCES students (id),
		class_id   UUID NOT NULL REFERENCES classes (id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (student_id, class_id)
	)`,
	`CREATE TABLE IF NOT EXISTS attendance_records (
		id           UUID PRIMARY KEY,
		student_id   UUID NOT NULL REFERENCES students (id),
		class_id     UUID NOT NULL REFERENCES classes (id),
		session_date DATE NOT NULL,
		status       TEXT NOT NULL CHECK (status IN ('present', 'absent', 'late')),
		recorded_by  UUID NOT NULL REFERENCES users (id),
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	// One mark per (student, class, date). Concurrent inserts race on
	// this index, not on an application-level existence check.
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_attendance_session_key
		ON attendance_records (student_id, class_id, session_date)`,
	`CREATE INDEX IF NOT EXISTS ix_attendance_class_date
		ON attendance_records (class_id, session_date)`,
}

// columnAdditions are later schema additions. Each is guarded by
// information_schema introspection rather than by matching
// "duplicate column" error text, so re-applying is a clean no-op.
var columnAdditions = []struct {
	table, column, ddl string
}{
	{"attendance_records", "photo", `ALTER TABLE attendance_records ADD COLUMN photo TEXT`},
	{"attendance_records", "topic_id", `ALTER TABLE attendance_records ADD COLUMN topic_id UUID REFERENCES topics (id)`},
}

// execer is the slice of *sql.DB the column additions need.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Migrate brings the schema up to date. Safe to call on every startup
// and safe to re-run after a partial application.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range baseStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return applyColumnAdditions(ctx, db, func(table, column string) (bool, error) {
		return columnExists(ctx, db, table, column)
	})
}

// applyColumnAdditions issues each ALTER only when the introspection
// reports the column missing, so re-applying is a clean no-op.
func applyColumnAdditions(ctx context.Context, db execer, exists func(table, column string) (bool, error)) error {
	for _, add := range columnAdditions {
		present, err := exists(add.table, add.column)
		if err != nil {
			return fmt.Errorf("migrate: inspect %s.%s: %w", add.table, add.column, err)
		}
		if present {
			continue
		}
		if _, err := db.ExecContext(ctx, add.ddl); err != nil {
			return fmt.Errorf("migrate: add %s.%s: %w", add.table, add.column, err)
		}
	}
	return nil
}

func columnExists(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM information_schema.columns
		WHERE table_name = $1 AND column_name = $2
	`, table, column).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
