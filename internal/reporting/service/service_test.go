package service

import (
	"context"
	"math"
	"testing"

	"callops_backend/internal/reporting/ems"
	"callops_backend/internal/reporting/repository"
	"callops_backend/platform/logger"
)

type fakeStore struct {
	emsRows []repository.EMSRow
}

func (f *fakeStore) Progress(_ context.Context) (repository.Progress, error) {
	return repository.Progress{}, nil
}

func (f *fakeStore) Drilldown(_ context.Context, _ string) ([]repository.ProgressRow, error) {
	return nil, nil
}

func (f *fakeStore) EMSByGroup(_ context.Context, _ string) ([]repository.EMSRow, error) {
	return f.emsRows, nil
}

func (f *fakeStore) EMSTrend(_ context.Context, _ string) ([]repository.TrendRow, error) {
	return nil, nil
}

func TestEMS_TotalFromSummedCounts(t *testing.T) {
	store := &fakeStore{emsRows: []repository.EMSRow{
		{Group: "nashik", Counts: ems.Counts{Connected: 2, Purchased: 2}},
		{Group: "pune", Counts: ems.Counts{Connected: 98, Purchased: 0}},
	}}
	svc := New(store, logger.New("test"))

	report, err := svc.EMS(context.Background(), "territory")
	if err != nil {
		t.Fatalf("EMS() error = %v", err)
	}
	if len(report.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(report.Rows))
	}

	want := 2.0 / 100.0
	if math.Abs(report.Total.MeetingConversionPct-want) > 1e-9 {
		t.Fatalf("total meetingConversionPct = %v, want %v", report.Total.MeetingConversionPct, want)
	}

	average := (report.Rows[0].Score.MeetingConversionPct + report.Rows[1].Score.MeetingConversionPct) / 2
	if math.Abs(report.Total.MeetingConversionPct-average) < 1e-9 {
		t.Fatal("total must not equal the average of per-group percentages")
	}
}
