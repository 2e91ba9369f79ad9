package service

import (
	"context"
	"time"

	"callops_backend/internal/reporting/ems"
	"callops_backend/internal/reporting/repository"
	"callops_backend/platform/logger"
)

// ScoredRow is one group's counts with the derived metrics.
type ScoredRow struct {
	Group     string    `json:"group"`
	Attempted int       `json:"attempted"`
	Connected int       `json:"connected"`
	Score     ems.Score `json:"score"`
}

// EMSReport is the grouped metric rows plus the totals row.
type EMSReport struct {
	GroupBy string      `json:"groupBy"`
	Rows    []ScoredRow `json:"rows"`
	Total   ems.Score   `json:"total"`
}

// TrendPoint is one time bucket's score.
type TrendPoint struct {
	Bucket    time.Time `json:"bucket"`
	Attempted int       `json:"attempted"`
	Score     ems.Score `json:"score"`
}

// TrendReport is the time-bucketed EMS view.
type TrendReport struct {
	Bucket string       `json:"bucket"`
	Points []TrendPoint `json:"points"`
}

// Store is the reporting query contract.
type Store interface {
	Progress(ctx context.Context) (repository.Progress, error)
	Drilldown(ctx context.Context, groupBy string) ([]repository.ProgressRow, error)
	EMSByGroup(ctx context.Context, groupBy string) ([]repository.EMSRow, error)
	EMSTrend(ctx context.Context, bucket string) ([]repository.TrendRow, error)
}

// Service provides the reporting read models.
type Service struct {
	store Store
	log   *logger.Logger
}

// New creates a new reporting service.
func New(store Store, log *logger.Logger) *Service {
	return &Service{store: store, log: log}
}

// Progress returns the overall summary.
func (s *Service) Progress(ctx context.Context) (repository.Progress, error) {
	return s.store.Progress(ctx)
}

// Drilldown returns progress metrics grouped by an activity attribute.
func (s *Service) Drilldown(ctx context.Context, groupBy string) ([]repository.ProgressRow, error) {
	return s.store.Drilldown(ctx, groupBy)
}

// EMS returns the scored metric rows for each group plus a totals row built
// from the summed counts.
func (s *Service) EMS(ctx context.Context, groupBy string) (EMSReport, error) {
	rows, err := s.store.EMSByGroup(ctx, groupBy)
	if err != nil {
		return EMSReport{}, err
	}

	report := EMSReport{GroupBy: groupBy, Rows: make([]ScoredRow, len(rows))}
	counts := make([]ems.Counts, len(rows))
	for i, row := range rows {
		counts[i] = row.Counts
		report.Rows[i] = ScoredRow{
			Group:     row.Group,
			Attempted: row.Counts.Attempted,
			Connected: row.Counts.Connected,
			Score:     ems.Compute(row.Counts),
		}
	}
	report.Total = ems.Total(counts)
	return report, nil
}

// Trend returns the time-bucketed EMS view.
func (s *Service) Trend(ctx context.Context, bucket string) (TrendReport, error) {
	rows, err := s.store.EMSTrend(ctx, bucket)
	if err != nil {
		return TrendReport{}, err
	}

	report := TrendReport{Bucket: bucket, Points: make([]TrendPoint, len(rows))}
	for i, row := range rows {
		report.Points[i] = TrendPoint{
			Bucket:    row.Bucket,
			Attempted: row.Counts.Attempted,
			Score:     ems.Compute(row.Counts),
		}
	}
	return report, nil
}
