// Package repository runs the reporting aggregates. Grouping columns are
// whitelisted; the groupBy parameter never reaches SQL as raw text.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"callops_backend/internal/reporting/ems"
	"callops_backend/platform/apperr"
)

// Progress is the summary view of engine throughput.
type Progress struct {
	ActivitiesByStatus map[string]int `json:"activitiesByStatus"`
	TasksByStatus      map[string]int `json:"tasksByStatus"`
	FarmerCount        int            `json:"farmerCount"`
	CompletionRate     float64        `json:"completionRate"`
}

// ProgressRow is one drilldown group.
type ProgressRow struct {
	Group          string  `json:"group"`
	Activities     int     `json:"activities"`
	Tasks          int     `json:"tasks"`
	Completed      int     `json:"completed"`
	Unassigned     int     `json:"unassigned"`
	CompletionRate float64 `json:"completionRate"`
}

// EMSRow is one group's outcome counts, scored by the service layer.
type EMSRow struct {
	Group  string
	Counts ems.Counts
}

// TrendRow is one time bucket's outcome counts.
type TrendRow struct {
	Bucket time.Time
	Counts ems.Counts
}

var groupColumns = map[string]string{
	"territory":     "a.territory",
	"zone":          "a.zone",
	"business_unit": "a.business_unit",
	"state":         "a.state",
	"type":          "a.type",
}

var trendBuckets = map[string]string{
	"daily":   "day",
	"weekly":  "week",
	"monthly": "month",
}

// Repo runs the reporting queries against PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new reporting repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Progress returns the overall summary.
func (r *Repo) Progress(ctx context.Context) (Progress, error) {
	p := Progress{
		ActivitiesByStatus: make(map[string]int),
		TasksByStatus:      make(map[string]int),
	}

	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM activities GROUP BY status`)
	if err != nil {
		return Progress{}, fmt.Errorf("count activities by status: %w", err)
	}
	if err := collectStatusCounts(rows, p.ActivitiesByStatus); err != nil {
		return Progress{}, err
	}

	rows, err = r.pool.Query(ctx, `SELECT status, COUNT(*) FROM call_tasks GROUP BY status`)
	if err != nil {
		return Progress{}, fmt.Errorf("count tasks by status: %w", err)
	}
	if err := collectStatusCounts(rows, p.TasksByStatus); err != nil {
		return Progress{}, err
	}

	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM farmers`).Scan(&p.FarmerCount); err != nil {
		return Progress{}, fmt.Errorf("count farmers: %w", err)
	}

	totalTasks := 0
	for _, n := range p.TasksByStatus {
		totalTasks += n
	}
	if totalTasks > 0 {
		p.CompletionRate = float64(p.TasksByStatus["completed"]) / float64(totalTasks)
	}
	return p, nil
}

// Drilldown returns the progress metrics grouped by an activity attribute.
func (r *Repo) Drilldown(ctx context.Context, groupBy string) ([]ProgressRow, error) {
	column, ok := groupColumns[groupBy]
	if !ok {
		return nil, apperr.BadRequest("unsupported groupBy: " + groupBy)
	}

	query := fmt.Sprintf(`
		SELECT %s,
			COUNT(DISTINCT a.id),
			COUNT(t.id),
			COUNT(t.id) FILTER (WHERE t.status = 'completed'),
			COUNT(t.id) FILTER (WHERE t.status = 'unassigned')
		FROM activities a
		LEFT JOIN call_tasks t ON t.activity_id = a.id
		GROUP BY %s
		ORDER BY %s`, column, column, column)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("progress drilldown: %w", err)
	}
	defer rows.Close()

	var result []ProgressRow
	for rows.Next() {
		var row ProgressRow
		if err := rows.Scan(&row.Group, &row.Activities, &row.Tasks, &row.Completed, &row.Unassigned); err != nil {
			return nil, fmt.Errorf("scan drilldown row: %w", err)
		}
		if row.Tasks > 0 {
			row.CompletionRate = float64(row.Completed) / float64(row.Tasks)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drilldown rows: %w", err)
	}
	return result, nil
}

const emsCountColumns = `
	COUNT(t.id) FILTER (WHERE t.status IN ('completed', 'not_reachable', 'invalid_number')),
	COUNT(t.id) FILTER (WHERE t.status = 'invalid_number'),
	COUNT(o.id) FILTER (WHERE o.connected),
	COUNT(o.id) FILTER (WHERE o.identity_wrong),
	COUNT(o.id) FILTER (WHERE o.not_a_farmer),
	COUNT(o.id) FILTER (WHERE o.attended_meeting),
	COUNT(o.id) FILTER (WHERE o.purchased),
	COUNT(o.id) FILTER (WHERE o.willingness = 'yes'),
	COALESCE(SUM(o.activity_quality), 0),
	COUNT(o.activity_quality)`

// EMSByGroup returns outcome counts grouped by an activity attribute.
func (r *Repo) EMSByGroup(ctx context.Context, groupBy string) ([]EMSRow, error) {
	column, ok := groupColumns[groupBy]
	if !ok {
		return nil, apperr.BadRequest("unsupported groupBy: " + groupBy)
	}

	query := fmt.Sprintf(`
		SELECT %s, %s
		FROM activities a
		JOIN call_tasks t ON t.activity_id = a.id
		LEFT JOIN call_outcomes o ON o.task_id = t.id
		GROUP BY %s
		ORDER BY %s`, column, emsCountColumns, column, column)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ems by group: %w", err)
	}
	defer rows.Close()

	var result []EMSRow
	for rows.Next() {
		var row EMSRow
		if err := rows.Scan(&row.Group,
			&row.Counts.Attempted, &row.Counts.Invalid, &row.Counts.Connected,
			&row.Counts.IdentityWrong, &row.Counts.NotAFarmer, &row.Counts.YesAttended,
			&row.Counts.Purchased, &row.Counts.WillingYes,
			&row.Counts.QualitySum, &row.Counts.QualityCount,
		); err != nil {
			return nil, fmt.Errorf("scan ems row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ems rows: %w", err)
	}
	return result, nil
}

// EMSTrend returns outcome counts bucketed by time.
func (r *Repo) EMSTrend(ctx context.Context, bucket string) ([]TrendRow, error) {
	unit, ok := trendBuckets[bucket]
	if !ok {
		return nil, apperr.BadRequest("unsupported bucket: " + bucket)
	}

	query := fmt.Sprintf(`
		SELECT date_trunc('%s', t.updated_at), %s
		FROM call_tasks t
		LEFT JOIN call_outcomes o ON o.task_id = t.id
		WHERE t.status IN ('completed', 'not_reachable', 'invalid_number')
		GROUP BY 1
		ORDER BY 1`, unit, emsCountColumns)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ems trend: %w", err)
	}
	defer rows.Close()

	var result []TrendRow
	for rows.Next() {
		var row TrendRow
		if err := rows.Scan(&row.Bucket,
			&row.Counts.Attempted, &row.Counts.Invalid, &row.Counts.Connected,
			&row.Counts.IdentityWrong, &row.Counts.NotAFarmer, &row.Counts.YesAttended,
			&row.Counts.Purchased, &row.Counts.WillingYes,
			&row.Counts.QualitySum, &row.Counts.QualityCount,
		); err != nil {
			return nil, fmt.Errorf("scan trend row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trend rows: %w", err)
	}
	return result, nil
}

func collectStatusCounts(rows pgx.Rows, into map[string]int) error {
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return fmt.Errorf("scan status count: %w", err)
		}
		into[status] = count
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate status counts: %w", err)
	}
	return nil
}
