package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"vitalink-data/internal/domain"
	"vitalink-data/internal/repository"
	"vitalink-data/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	samples    *repository.MemorySamplesRepository
	aggregates *repository.MemoryAggregatesRepository
	patients   *repository.MemoryPatientsRepository
	bp         *repository.MemoryBPRepository
	roles      *repository.MemoryRoleLookup
	cache      store.KV
	ingest     IngestService
	summary    SummaryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	samples := repository.NewMemorySamplesRepository()
	aggregates := repository.NewMemoryAggregatesRepository()
	bp := repository.NewMemoryBPRepository()
	patients := repository.NewMemoryPatientsRepository(samples, aggregates, bp)
	roles := repository.NewMemoryRoleLookup(map[string]string{"p1": "patient"})
	cache := store.NewMemoryKV()
	logger := zap.NewNop()
	return &fixture{
		samples:    samples,
		aggregates: aggregates,
		patients:   patients,
		bp:         bp,
		roles:      roles,
		cache:      cache,
		ingest:     NewIngestService(samples, aggregates, patients, roles, cache, logger),
		summary:    NewSummaryService(aggregates, samples, patients, bp, cache, logger),
	}
}

func stepsItem(end time.Time, count int64, offset int) domain.StepsEvent {
	return domain.StepsEvent{
		PatientID:   "p1",
		OriginID:    "android_health_connect",
		DeviceID:    "dev1",
		StartTs:     end.Add(-5 * time.Minute),
		EndTs:       end,
		Count:       count,
		TzOffsetMin: offset,
	}
}

func hrItem(ts time.Time, bpm int64, offset int) domain.HrSample {
	return domain.HrSample{
		PatientID:   "p1",
		OriginID:    "android_health_connect",
		DeviceID:    "dev1",
		TimeTs:      ts,
		Bpm:         bpm,
		TzOffsetMin: offset,
	}
}

func TestIngestSteps_AggregatesAndCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.ingest.IngestSteps(ctx, IngestStepsRequest{
		UserID:  "p1",
		Patient: domain.Patient{PatientID: "p1", FirstName: "Ada"},
		Items: []domain.StepsEvent{
			stepsItem(time.Date(2024, 3, 1, 10, 2, 0, 0, time.UTC), 50, 0),
			stepsItem(time.Date(2024, 3, 1, 10, 40, 0, 0, time.UTC), 30, 0),
			stepsItem(time.Date(2024, 3, 1, 11, 5, 0, 0, time.UTC), 20, 0),
		},
	})
	require.NoError(t, err)
	require.Equal(t, 3, resp.Inserted)
	require.Equal(t, 2, resp.UpsertedHour)
	require.Equal(t, 1, resp.UpsertedDay)
	require.Equal(t, 0, resp.Skipped)

	day, err := f.aggregates.LatestStepsDay(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, day)
	require.Equal(t, domain.DayKey("2024-03-01"), day.Date)
	require.Equal(t, int64(100), day.Total)
}

func TestIngestSteps_ReplayIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	items := []domain.StepsEvent{
		stepsItem(time.Date(2024, 3, 1, 10, 2, 0, 0, time.UTC), 50, 0),
	}

	first, err := f.ingest.IngestSteps(ctx, IngestStepsRequest{
		UserID: "p1", Patient: domain.Patient{PatientID: "p1"},
		Items: append([]domain.StepsEvent{}, items...),
	})
	require.NoError(t, err)
	require.Equal(t, 1, first.Inserted)

	second, err := f.ingest.IngestSteps(ctx, IngestStepsRequest{
		UserID: "p1", Patient: domain.Patient{PatientID: "p1"},
		Items: append([]domain.StepsEvent{}, items...),
	})
	require.NoError(t, err)
	require.Equal(t, 0, second.Inserted)

	day, err := f.aggregates.LatestStepsDay(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, int64(50), day.Total)
}

func TestIngestSteps_LateArrivalExtendsBucket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ingest.IngestSteps(ctx, IngestStepsRequest{
		UserID: "p1", Patient: domain.Patient{PatientID: "p1"},
		Items: []domain.StepsEvent{
			stepsItem(time.Date(2024, 3, 1, 10, 2, 0, 0, time.UTC), 50, 0),
		},
	})
	require.NoError(t, err)

	_, err = f.ingest.IngestSteps(ctx, IngestStepsRequest{
		UserID: "p1", Patient: domain.Patient{PatientID: "p1"},
		Items: []domain.StepsEvent{
			stepsItem(time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC), 25, 0),
		},
	})
	require.NoError(t, err)

	day, err := f.aggregates.LatestStepsDay(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, int64(75), day.Total)
}

func TestIngestSteps_MixedPatientBatchRejected(t *testing.T) {
	f := newFixture(t)
	other := stepsItem(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), 10, 0)
	other.PatientID = "p2"

	_, err := f.ingest.IngestSteps(context.Background(), IngestStepsRequest{
		UserID: "p1", Patient: domain.Patient{PatientID: "p1"},
		Items: []domain.StepsEvent{
			stepsItem(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), 5, 0),
			other,
		},
	})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestIngest_AuthorizationRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	items := []domain.StepsEvent{
		stepsItem(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), 5, 0),
	}

	// Unknown principal.
	_, err := f.ingest.IngestSteps(ctx, IngestStepsRequest{
		UserID: "stranger", Patient: domain.Patient{PatientID: "p1"}, Items: items,
	})
	var aErr *AuthorizationError
	require.ErrorAs(t, err, &aErr)

	// Clinician role cannot upload.
	f.roles.SetRole("doc1", "clinician")
	_, err = f.ingest.IngestSteps(ctx, IngestStepsRequest{
		UserID: "doc1", Patient: domain.Patient{PatientID: "p1"}, Items: items,
	})
	require.ErrorAs(t, err, &aErr)

	// Patient cannot upload into another patient's record.
	f.roles.SetRole("p2", "patient")
	_, err = f.ingest.IngestSteps(ctx, IngestStepsRequest{
		UserID: "p2", Patient: domain.Patient{PatientID: "p1"}, Items: items,
	})
	require.ErrorAs(t, err, &aErr)

	// Missing patient id is a validation error, not authorization.
	var vErr *ValidationError
	_, err = f.ingest.IngestSteps(ctx, IngestStepsRequest{
		UserID: "p1", Patient: domain.Patient{}, Items: items,
	})
	require.ErrorAs(t, err, &vErr)
}

func TestIngestSteps_EmptyBatchIsNoop(t *testing.T) {
	f := newFixture(t)
	resp, err := f.ingest.IngestSteps(context.Background(), IngestStepsRequest{
		UserID: "p1", Patient: domain.Patient{PatientID: "p1"},
	})
	require.NoError(t, err)
	require.Equal(t, &IngestResponse{}, resp)
}

func TestIngest_EmptyBatchWithoutIdentitySucceeds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Devices sync unconditionally; an empty poll carries no patient id and
	// must still come back as zero-count success, not a validation error.
	stepsResp, err := f.ingest.IngestSteps(ctx, IngestStepsRequest{})
	require.NoError(t, err)
	require.Equal(t, &IngestResponse{}, stepsResp)

	distResp, err := f.ingest.IngestDistance(ctx, IngestDistanceRequest{})
	require.NoError(t, err)
	require.Equal(t, &IngestResponse{}, distResp)

	hrResp, err := f.ingest.IngestHr(ctx, IngestHrRequest{})
	require.NoError(t, err)
	require.Equal(t, &IngestResponse{}, hrResp)

	spo2Resp, err := f.ingest.IngestSpo2(ctx, IngestSpo2Request{})
	require.NoError(t, err)
	require.Equal(t, &IngestResponse{}, spo2Resp)
}

func TestIngestSteps_ZeroTimestampSkippedButStored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bad := domain.StepsEvent{PatientID: "p1", OriginID: "o", DeviceID: "d", Count: 10}

	resp, err := f.ingest.IngestSteps(ctx, IngestStepsRequest{
		UserID: "p1", Patient: domain.Patient{PatientID: "p1"},
		Items: []domain.StepsEvent{
			bad,
			stepsItem(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), 5, 0),
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, resp.Skipped)
	require.Equal(t, 1, resp.UpsertedHour)
}

func TestIngestHr_RecomputesStatsFromRaw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := f.ingest.IngestHr(ctx, IngestHrRequest{
		UserID: "p1", Patient: domain.Patient{PatientID: "p1"},
		Items: []domain.HrSample{
			hrItem(base, 62, 0),
			hrItem(base.Add(10*time.Minute), 58, 0),
		},
	})
	require.NoError(t, err)

	// Second batch in the same hour: bucket stats cover both batches.
	_, err = f.ingest.IngestHr(ctx, IngestHrRequest{
		UserID: "p1", Patient: domain.Patient{PatientID: "p1"},
		Items:  []domain.HrSample{hrItem(base.Add(20*time.Minute), 71, 0)},
	})
	require.NoError(t, err)

	day, err := f.aggregates.LatestHrDay(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, day)
	require.Equal(t, 58, day.Min)
	require.Equal(t, 71, day.Max)
	require.Equal(t, 3, day.Count)
	require.InDelta(t, (62.0+58.0+71.0)/3.0, day.Avg, 1e-9)
}

func TestIngestHr_OffsetLandsInLocalDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 23:30Z at UTC+8 is 07:30 local the next day.
	_, err := f.ingest.IngestHr(ctx, IngestHrRequest{
		UserID: "p1", Patient: domain.Patient{PatientID: "p1"},
		Items:  []domain.HrSample{hrItem(time.Date(2024, 2, 29, 23, 30, 0, 0, time.UTC), 60, 480)},
	})
	require.NoError(t, err)

	day, err := f.aggregates.LatestHrDay(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, domain.DayKey("2024-03-01"), day.Date)
}

func TestIngest_UpdatesSyncStatusAndInvalidatesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	latest := time.Date(2024, 3, 1, 11, 5, 0, 0, time.UTC)

	// Seed a cached summary, then ingest; the next read must see new data.
	before, err := f.summary.LatestSummary(ctx, SummaryRequest{PatientID: "p1"})
	require.NoError(t, err)
	require.Nil(t, before.Steps)

	_, err = f.ingest.IngestSteps(ctx, IngestStepsRequest{
		UserID: "p1", Patient: domain.Patient{PatientID: "p1"},
		Items: []domain.StepsEvent{
			stepsItem(time.Date(2024, 3, 1, 10, 2, 0, 0, time.UTC), 50, 0),
			stepsItem(latest, 20, 0),
		},
	})
	require.NoError(t, err)

	after, err := f.summary.LatestSummary(ctx, SummaryRequest{PatientID: "p1"})
	require.NoError(t, err)
	require.NotNil(t, after.Steps)
	require.Equal(t, int64(70), after.Steps.Total)
	require.NotNil(t, after.LastSync)
	require.True(t, after.LastSync.Equal(latest))
}

func TestIngestSpo2_KeepsFractionalBounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := f.ingest.IngestSpo2(ctx, IngestSpo2Request{
		UserID: "p1", Patient: domain.Patient{PatientID: "p1"},
		Items: []domain.Spo2Sample{
			{PatientID: "p1", OriginID: "o", DeviceID: "d", TimeTs: ts, Pct: 96.5},
			{PatientID: "p1", OriginID: "o", DeviceID: "d", TimeTs: ts.Add(time.Minute), Pct: 97.25},
		},
	})
	require.NoError(t, err)

	day, err := f.aggregates.LatestSpo2Day(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, 96.5, day.Min)
	require.Equal(t, 97.25, day.Max)
	require.InDelta(t, 96.875, day.Avg, 1e-9)
}

func TestIngestDistance_SumsAcrossBatches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	end := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)
	mk := func(e time.Time, m float64) domain.DistanceEvent {
		return domain.DistanceEvent{
			PatientID: "p1", OriginID: "o", DeviceID: "d",
			StartTs: e.Add(-5 * time.Minute), EndTs: e, Meters: m,
		}
	}

	_, err := f.ingest.IngestDistance(ctx, IngestDistanceRequest{
		UserID: "p1", Patient: domain.Patient{PatientID: "p1"},
		Items:  []domain.DistanceEvent{mk(end, 120.5)},
	})
	require.NoError(t, err)
	_, err = f.ingest.IngestDistance(ctx, IngestDistanceRequest{
		UserID: "p1", Patient: domain.Patient{PatientID: "p1"},
		Items:  []domain.DistanceEvent{mk(end.Add(time.Hour), 80.25)},
	})
	require.NoError(t, err)

	day, err := f.aggregates.LatestDistanceDay(ctx, "p1")
	require.NoError(t, err)
	require.InDelta(t, 200.75, day.Meters, 1e-9)
}

func TestServiceErrors_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := storageError("failed to do thing", inner)
	require.ErrorIs(t, err, inner)
	var sErr *StorageError
	require.ErrorAs(t, err, &sErr)
}
