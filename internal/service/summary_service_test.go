package service

import (
	"context"
	"testing"
	"time"

	"vitalink-data/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestLatestSummary_RequiresPatientID(t *testing.T) {
	f := newFixture(t)
	_, err := f.summary.LatestSummary(context.Background(), SummaryRequest{})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestLatestSummary_EmptyPatient(t *testing.T) {
	f := newFixture(t)
	resp, err := f.summary.LatestSummary(context.Background(), SummaryRequest{PatientID: "p1"})
	require.NoError(t, err)
	require.Equal(t, "p1", resp.PatientID)
	require.Nil(t, resp.Steps)
	require.Nil(t, resp.Hr)
	require.Nil(t, resp.LastSync)
}

func TestLatestSummary_RestingFallsBackToDayMin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Daytime-only samples: no qualifying night window, resting = day min.
	base := time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)
	items := make([]domain.HrSample, 0, 12)
	for i := 0; i < 12; i++ {
		items = append(items, hrItem(base.Add(time.Duration(i)*time.Minute), int64(70+i), 0))
	}
	_, err := f.ingest.IngestHr(ctx, IngestHrRequest{
		UserID: "p1", Patient: domain.Patient{PatientID: "p1"}, Items: items,
	})
	require.NoError(t, err)

	resp, err := f.summary.LatestSummary(ctx, SummaryRequest{PatientID: "p1"})
	require.NoError(t, err)
	require.NotNil(t, resp.Hr)
	require.Equal(t, 70, resp.Hr.Resting)
	require.Equal(t, resp.Hr.Min, resp.Hr.Resting)
}

func TestLatestSummary_RestingFromNightWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Dense samples in local hours 1-3 qualify for the nocturnal estimate;
	// a high daytime hour must not drag the resting value up.
	var items []domain.HrSample
	for hour, bpm := range map[int]int64{1: 52, 2: 50, 3: 54} {
		start := time.Date(2024, 3, 1, hour, 0, 0, 0, time.UTC)
		for i := 0; i < 10; i++ {
			items = append(items, hrItem(start.Add(time.Duration(i)*time.Minute), bpm, 0))
		}
	}
	for i := 0; i < 10; i++ {
		items = append(items, hrItem(time.Date(2024, 3, 1, 15, i, 0, 0, time.UTC), 95, 0))
	}
	_, err := f.ingest.IngestHr(ctx, IngestHrRequest{
		UserID: "p1", Patient: domain.Patient{PatientID: "p1"}, Items: items,
	})
	require.NoError(t, err)

	resp, err := f.summary.LatestSummary(ctx, SummaryRequest{PatientID: "p1"})
	require.NoError(t, err)
	require.NotNil(t, resp.Hr)
	require.Equal(t, 52, resp.Hr.Resting)
}

func TestLatestSummary_LastSyncFallsBackToRawTimestamp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	end := time.Date(2024, 3, 1, 10, 2, 0, 0, time.UTC)

	// Write raw samples directly, bypassing the sync-status bookkeeping.
	_, err := f.samples.UpsertSteps(ctx, []domain.StepsEvent{
		{PatientID: "p1", RecordUID: "r1", StartTs: end.Add(-time.Minute), EndTs: end, Count: 5},
	})
	require.NoError(t, err)

	resp, err := f.summary.LatestSummary(ctx, SummaryRequest{PatientID: "p1"})
	require.NoError(t, err)
	require.NotNil(t, resp.LastSync)
	require.True(t, resp.LastSync.Equal(end))
}

func TestLatestSummary_ServesCachedCopy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.summary.LatestSummary(ctx, SummaryRequest{PatientID: "p1"})
	require.NoError(t, err)
	require.Nil(t, first.Steps)

	// A write that bypasses the service does not invalidate the cache; the
	// stale copy is served until the TTL or the next ingest.
	require.NoError(t, f.aggregates.UpsertStepsDay(ctx, domain.StepsDay{
		PatientID: "p1", Date: "2024-03-01", Total: 100,
	}))
	second, err := f.summary.LatestSummary(ctx, SummaryRequest{PatientID: "p1"})
	require.NoError(t, err)
	require.Nil(t, second.Steps)
}

func TestVitalsSeries_DayRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ingest.IngestSteps(ctx, IngestStepsRequest{
		UserID: "p1", Patient: domain.Patient{PatientID: "p1"},
		Items: []domain.StepsEvent{
			stepsItem(time.Date(2024, 3, 1, 10, 2, 0, 0, time.UTC), 50, 0),
			stepsItem(time.Date(2024, 3, 1, 11, 5, 0, 0, time.UTC), 20, 0),
			stepsItem(time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC), 99, 0),
		},
	})
	require.NoError(t, err)

	resp, err := f.summary.VitalsSeries(ctx, SeriesRequest{
		PatientID: "p1", Range: "day", Date: "2024-03-01",
	})
	require.NoError(t, err)
	require.Equal(t, "day", resp.Range)
	require.Len(t, resp.Steps, 2)
	require.Equal(t, "2024-03-01T10:00:00.000Z", resp.Steps[0].T)
	require.Equal(t, 50.0, resp.Steps[0].V)
	require.Empty(t, resp.Hr)
}

func TestVitalsSeries_WeekRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var items []domain.StepsEvent
	for d := 1; d <= 8; d++ {
		items = append(items, stepsItem(time.Date(2024, 3, d, 12, 0, 0, 0, time.UTC), int64(d*10), 0))
	}
	_, err := f.ingest.IngestSteps(ctx, IngestStepsRequest{
		UserID: "p1", Patient: domain.Patient{PatientID: "p1"}, Items: items,
	})
	require.NoError(t, err)

	resp, err := f.summary.VitalsSeries(ctx, SeriesRequest{
		PatientID: "p1", Range: "week", Date: "2024-03-08",
	})
	require.NoError(t, err)
	require.Equal(t, domain.DayKey("2024-03-02"), resp.From)
	require.Equal(t, domain.DayKey("2024-03-08"), resp.To)
	require.Len(t, resp.Steps, 7)
	require.Equal(t, "2024-03-02", resp.Steps[0].T)
}

func TestVitalsSeries_WeeklyHrCarriesRestingPerDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// March 1: qualifying night hours, resting comes from the nocturnal
	// window. March 2: daytime only, resting falls back to the day minimum.
	var items []domain.HrSample
	for hour, bpm := range map[int]int64{1: 52, 2: 50, 3: 54} {
		start := time.Date(2024, 3, 1, hour, 0, 0, 0, time.UTC)
		for i := 0; i < 10; i++ {
			items = append(items, hrItem(start.Add(time.Duration(i)*time.Minute), bpm, 0))
		}
	}
	for i := 0; i < 10; i++ {
		items = append(items, hrItem(time.Date(2024, 3, 1, 15, i, 0, 0, time.UTC), 95, 0))
		items = append(items, hrItem(time.Date(2024, 3, 2, 14, i, 0, 0, time.UTC), int64(70+i), 0))
	}
	_, err := f.ingest.IngestHr(ctx, IngestHrRequest{
		UserID: "p1", Patient: domain.Patient{PatientID: "p1"}, Items: items,
	})
	require.NoError(t, err)

	resp, err := f.summary.VitalsSeries(ctx, SeriesRequest{
		PatientID: "p1", Range: "week", Date: "2024-03-07",
	})
	require.NoError(t, err)
	require.Len(t, resp.Hr, 2)

	require.Equal(t, "2024-03-01", resp.Hr[0].T)
	require.NotNil(t, resp.Hr[0].Resting)
	require.Equal(t, 52, *resp.Hr[0].Resting)

	require.Equal(t, "2024-03-02", resp.Hr[1].T)
	require.NotNil(t, resp.Hr[1].Resting)
	require.Equal(t, 70, *resp.Hr[1].Resting)

	require.Empty(t, resp.Spo2)
}

func TestVitalsSeries_MonthRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ingest.IngestSteps(ctx, IngestStepsRequest{
		UserID: "p1", Patient: domain.Patient{PatientID: "p1"},
		Items: []domain.StepsEvent{
			stepsItem(time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC), 10, 0),
			stepsItem(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC), 20, 0),
		},
	})
	require.NoError(t, err)

	resp, err := f.summary.VitalsSeries(ctx, SeriesRequest{
		PatientID: "p1", Range: "month", Date: "2024-03-15",
	})
	require.NoError(t, err)
	require.Equal(t, domain.DayKey("2024-03-01"), resp.From)
	require.Equal(t, domain.DayKey("2024-03-31"), resp.To)
	require.Len(t, resp.Steps, 1)
	require.Equal(t, "2024-03-15", resp.Steps[0].T)
}

func TestVitalsSeries_DefaultsToLocalToday(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 23:30Z at UTC+8 is already March 2 locally.
	now := time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)
	resp, err := f.summary.VitalsSeries(ctx, SeriesRequest{
		PatientID: "p1", TzOffsetMin: 480, Now: now,
	})
	require.NoError(t, err)
	require.Equal(t, "day", resp.Range)
	require.Equal(t, domain.DayKey("2024-03-02"), resp.From)
}

func TestVitalsSeries_RejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var vErr *ValidationError

	_, err := f.summary.VitalsSeries(ctx, SeriesRequest{Range: "day", Date: "2024-03-01"})
	require.ErrorAs(t, err, &vErr)

	_, err = f.summary.VitalsSeries(ctx, SeriesRequest{PatientID: "p1", Range: "year", Date: "2024-03-01"})
	require.ErrorAs(t, err, &vErr)

	_, err = f.summary.VitalsSeries(ctx, SeriesRequest{PatientID: "p1", Range: "day", Date: "not-a-date"})
	require.ErrorAs(t, err, &vErr)
}
