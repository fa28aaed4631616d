package report

import (
	"context"
	"math"

	"github.com/LaythSaleem/student-attendance-system-sub003/internal/apperr"
	"github.com/LaythSaleem/student-attendance-system-sub003/internal/attendance"
	"github.com/LaythSaleem/student-attendance-system-sub003/internal/auth"
)

// GroupBy is the dimension a report is grouped on.
type GroupBy string

const (
	GroupByClass   GroupBy = "class"
	GroupByStudent GroupBy = "student"
	GroupByTopic   GroupBy = "topic"
	GroupByDate    GroupBy = "date"
)

// Valid reports whether g is a known dimension.
func (g GroupBy) Valid() bool {
	return g == GroupByClass || g == GroupByStudent || g == GroupByTopic || g == GroupByDate
}

// Counts is one group's raw per-status tally.
type Counts struct {
	Key     string
	Present int
	Absent  int
	Late    int
}

// Row is one group in a finished report. PercentPresent is nil when
// the group has no records at all, never a division by zero.
type Row struct {
	Key            string   `json:"key"`
	Present        int      `json:"present"`
	Absent         int      `json:"absent"`
	Late           int      `json:"late"`
	Total          int      `json:"total"`
	PercentPresent *float64 `json:"percent_present"`
}

// Source produces per-group status counts for a filter.
type Source interface {
	StatusCounts(ctx context.Context, f attendance.Filter, g GroupBy) ([]Counts, error)
}

// Scoper narrows a filter to what the caller's claims allow.
type Scoper interface {
	Scope(ctx context.Context, claims auth.Claims, f attendance.Filter) (attendance.Filter, error)
}

// Aggregator computes role-scoped attendance summaries.
type Aggregator struct {
	src    Source
	scoper Scoper
	guard  *auth.Guard
}

// NewAggregator creates an aggregator.
func NewAggregator(src Source, scoper Scoper, guard *auth.Guard) *Aggregator {
	return &Aggregator{src: src, scoper: scoper, guard: guard}
}

// Summarize groups attendance rows by the requested dimension and
// computes per-status counts plus a percent-present metric. The filter
// is scoped through the guard before aggregation; out-of-scope
// requests are denied, never silently emptied.
func (a *Aggregator) Summarize(ctx context.Context, claims auth.Claims, f attendance.Filter, g GroupBy) ([]Row, error) {
	if err := a.guard.Can(claims, auth.CapReadReports); err != nil {
		return nil, err
	}
	if !g.Valid() {
		return nil, apperr.Validation("group_by must be class, student, topic or date")
	}
	scoped, err := a.scoper.Scope(ctx, claims, f)
	if err != nil {
		return nil, err
	}
	counts, err := a.src.StatusCounts(ctx, scoped, g)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, buildRow(c))
	}
	return rows, nil
}

func buildRow(c Counts) Row {
	row := Row{
		Key:     c.Key,
		Present: c.Present,
		Absent:  c.Absent,
		Late:    c.Late,
		Total:   c.Present + c.Absent + c.Late,
	}
	if row.Key == "" {
		row.Key = "(none)"
	}
	if row.Total > 0 {
		pct := roundTwo(float64(row.Present) / float64(row.Total) * 100)
		row.PercentPresent = &pct
	}
	return row
}

func roundTwo(v float64) float64 {
	return math.Round(v*100) / 100
}
