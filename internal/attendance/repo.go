package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/LaythSaleem/student-attendance-system-sub003/internal/apperr"
	"github.com/LaythSaleem/student-attendance-system-sub003/internal/store"
)

const recordColumns = `id, student_id, class_id, topic_id, photo, status, session_date, recorded_by, created_at`

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes a new record. The unique index on (student_id,
// class_id, session_date) decides races between concurrent inserts of
// the same session key; exactly one wins, the rest get Conflict.
func (r *Repository) Insert(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records (id, student_id, class_id, topic_id, photo, status, session_date, recorded_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at
	`, rec.ID, rec.StudentID, rec.ClassID, rec.TopicID, rec.Photo, rec.Status, rec.SessionDate, rec.RecordedBy)
	if err := row.Scan(&rec.CreatedAt); err != nil {
		if store.IsUniqueViolation(err) {
			return Record{}, apperr.Conflict("attendance already recorded for this student, class and date")
		}
		if store.IsForeignKeyViolation(err) {
			return Record{}, apperr.NotFound("referenced student, class or topic not found")
		}
		return Record{}, apperr.Internal("insert attendance", err)
	}
	return rec, nil
}

// Get returns a single record by id.
func (r *Repository) Get(ctx context.Context, id string) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+` FROM attendance_records WHERE id = $1
	`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, apperr.NotFound("attendance record not found")
	}
	if err != nil {
		return Record{}, apperr.Internal("get attendance", err)
	}
	return rec, nil
}

// List returns records matching the filter, ordered by session date
// ascending then creation order for stable pagination.
func (r *Repository) List(ctx context.Context, f Filter) ([]Record, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	where, args := WhereClause(f)
	query := `SELECT ` + recordColumns + ` FROM attendance_records` + where
	query += fmt.Sprintf(" ORDER BY session_date ASC, created_at ASC, id ASC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Internal("list attendance", err)
	}
	defer rows.Close()

	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, apperr.Internal("scan attendance", err)
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// Replace overwrites the mutable fields of an existing record. The
// identity fields (student, class, date) never change; corrections
// replace the mark, they do not move it.
func (r *Repository) Replace(ctx context.Context, id string, c Correction) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE attendance_records
		SET status = $2, topic_id = $3, photo = $4
		WHERE id = $1
		RETURNING `+recordColumns+`
	`, id, c.Status, c.TopicID, c.Photo)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, apperr.NotFound("attendance record not found")
	}
	if err != nil {
		if store.IsForeignKeyViolation(err) {
			return Record{}, apperr.NotFound("topic not found")
		}
		return Record{}, apperr.Internal("correct attendance", err)
	}
	return rec, nil
}

// Delete removes a record by id.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendance_records WHERE id = $1`, id)
	if err != nil {
		return apperr.Internal("delete attendance", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Internal("delete attendance", err)
	}
	if n == 0 {
		return apperr.NotFound("attendance record not found")
	}
	return nil
}

// WhereClause builds the WHERE fragment and args for a filter. Shared
// with the report aggregator so both read paths filter identically.
func WhereClause(f Filter) (string, []any) {
	args := []any{}
	clauses := []string{}
	add := func(clause string, val any) {
		clauses = append(clauses, fmt.Sprintf(clause, len(args)+1))
		args = append(args, val)
	}

	if f.ClassID != "" {
		add("class_id = $%d", f.ClassID)
	} else if len(f.ClassIDs) > 0 {
		add("class_id::text = ANY($%d)", f.ClassIDs)
	}
	if f.StudentID != "" {
		add("student_id = $%d", f.StudentID)
	}
	if f.TopicID != "" {
		add("topic_id = $%d", f.TopicID)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if !f.From.IsZero() {
		add("session_date >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("session_date <= $%d", f.To)
	}

	if len(clauses) == 0 {
		return "", args
	}
	out := " WHERE " + clauses[0]
	for i := 1; i < len(clauses); i++ {
		out += " AND " + clauses[i]
	}
	return out, args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (Record, error) {
	var rec Record
	var sessionDate time.Time
	err := s.Scan(&rec.ID, &rec.StudentID, &rec.ClassID, &rec.TopicID, &rec.Photo,
		&rec.Status, &sessionDate, &rec.RecordedBy, &rec.CreatedAt)
	if err != nil {
		return Record{}, err
	}
	rec.SessionDate = sessionDate
	return rec, nil
}
