package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newEventService(f *fixture) HealthEventService {
	return NewHealthEventService(f.bp, f.cache, zap.NewNop())
}

func TestAddManualEvent_Validation(t *testing.T) {
	f := newFixture(t)
	svc := newEventService(f)
	ctx := context.Background()
	var vErr *ValidationError

	cases := []AddManualEventRequest{
		{Date: "2024-03-01", Time: "08:00:00", Systolic: 120, Diastolic: 80},
		{PatientID: "p1", Time: "08:00:00", Systolic: 120, Diastolic: 80},
		{PatientID: "p1", Date: "bad-date", Time: "08:00:00", Systolic: 120, Diastolic: 80},
		{PatientID: "p1", Date: "2024-03-01", Time: "08:00:00", Systolic: 0, Diastolic: 80},
		{PatientID: "p1", Date: "2024-03-01", Time: "08:00:00", Systolic: 80, Diastolic: 120},
	}
	for _, req := range cases {
		_, err := svc.AddManualEvent(ctx, req)
		require.ErrorAs(t, err, &vErr)
	}
}

func TestAddManualEvent_DropsNearDuplicate(t *testing.T) {
	f := newFixture(t)
	svc := newEventService(f)
	ctx := context.Background()
	base := AddManualEventRequest{
		PatientID: "p1", Date: "2024-03-01", Time: "08:00:00",
		Systolic: 120, Diastolic: 80, Pulse: 70,
	}

	first, err := svc.AddManualEvent(ctx, base)
	require.NoError(t, err)
	require.True(t, first.Added)

	// Seconds apart with near-identical values: a double tap, not a reading.
	dup := base
	dup.Time = "08:00:05"
	dup.Systolic = 122
	second, err := svc.AddManualEvent(ctx, dup)
	require.NoError(t, err)
	require.False(t, second.Added)

	// A genuinely different reading the same day goes through.
	evening := base
	evening.Time = "20:15:00"
	evening.Systolic = 135
	evening.Diastolic = 88
	third, err := svc.AddManualEvent(ctx, evening)
	require.NoError(t, err)
	require.True(t, third.Added)
}

func TestListHealthEvents_ExplicitWindow(t *testing.T) {
	f := newFixture(t)
	svc := newEventService(f)
	ctx := context.Background()

	for _, req := range []AddManualEventRequest{
		{PatientID: "p1", Date: "2024-02-28", Time: "08:00:00", Systolic: 118, Diastolic: 78},
		{PatientID: "p1", Date: "2024-03-01", Time: "08:00:00", Systolic: 121, Diastolic: 81},
		{PatientID: "p1", Date: "2024-03-05", Time: "08:00:00", Systolic: 125, Diastolic: 83},
	} {
		_, err := svc.AddManualEvent(ctx, req)
		require.NoError(t, err)
	}

	resp, err := svc.ListHealthEvents(ctx, ListHealthEventsRequest{
		PatientID: "p1", From: "2024-03-01", To: "2024-03-31",
	})
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	require.Equal(t, "2024-03-01", resp.Items[0].Date)
	require.Equal(t, "2024-03-05", resp.Items[1].Date)
}

func TestLatestSummary_IncludesLatestBP(t *testing.T) {
	f := newFixture(t)
	svc := newEventService(f)
	ctx := context.Background()

	_, err := svc.AddManualEvent(ctx, AddManualEventRequest{
		PatientID: "p1", Date: "2024-03-01", Time: "08:00:00",
		Systolic: 121, Diastolic: 81, Pulse: 68,
	})
	require.NoError(t, err)
	_, err = svc.AddManualEvent(ctx, AddManualEventRequest{
		PatientID: "p1", Date: "2024-03-02", Time: "07:45:00",
		Systolic: 118, Diastolic: 79,
	})
	require.NoError(t, err)

	resp, err := f.summary.LatestSummary(ctx, SummaryRequest{PatientID: "p1"})
	require.NoError(t, err)
	require.NotNil(t, resp.Bp)
	require.Equal(t, "2024-03-02", resp.Bp.Date)
	require.Equal(t, 118, resp.Bp.Systolic)
}
