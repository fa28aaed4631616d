package report

import (
	"context"
	"database/sql"

	"github.com/LaythSaleem/student-attendance-system-sub003/internal/apperr"
	"github.com/LaythSaleem/student-attendance-system-sub003/internal/attendance"
)

// groupExprs maps a dimension to its SQL group key. Topic uses
// COALESCE so records without a topic fall into one group instead of
// one group per NULL.
var groupExprs = map[GroupBy]string{
	GroupByClass:   `class_id::text`,
	GroupByStudent: `student_id::text`,
	GroupByTopic:   `COALESCE(topic_id::text, '')`,
	GroupByDate:    `to_char(session_date, 'YYYY-MM-DD')`,
}

// Repository reads aggregated counts from Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// StatusCounts tallies records per group and status in one query,
// using the same filter semantics as the attendance list.
func (r *Repository) StatusCounts(ctx context.Context, f attendance.Filter, g GroupBy) ([]Counts, error) {
	expr, ok := groupExprs[g]
	if !ok {
		return nil, apperr.Validation("unknown group_by")
	}

	where, args := attendance.WhereClause(f)
	query := `
		SELECT ` + expr + ` AS grp,
			COUNT(*) FILTER (WHERE status = 'present'),
			COUNT(*) FILTER (WHERE status = 'absent'),
			COUNT(*) FILTER (WHERE status = 'late')
		FROM attendance_records` + where + `
		GROUP BY grp
		ORDER BY grp`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Internal("report query", err)
	}
	defer rows.Close()

	var res []Counts
	for rows.Next() {
		var c Counts
		if err := rows.Scan(&c.Key, &c.Present, &c.Absent, &c.Late); err != nil {
			return nil, apperr.Internal("report scan", err)
		}
		res = append(res, c)
	}
	return res, rows.Err()
}
