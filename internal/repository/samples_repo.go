package repository

import (
	"context"
	"time"

	"vitalink-data/internal/domain"
)

// SamplesRepository raw sample storage. Upserts are idempotent on record_uid:
// a record that already exists is silently skipped and the returned count
// covers only rows actually written. List* methods select the rows belonging
// to one local bucket, honoring each row's own stored timezone offset, so an
// aggregate can always be rebuilt from scratch for any bucket.
type SamplesRepository interface {
	UpsertSteps(ctx context.Context, items []domain.StepsEvent) (int, error)
	UpsertDistance(ctx context.Context, items []domain.DistanceEvent) (int, error)
	UpsertHr(ctx context.Context, items []domain.HrSample) (int, error)
	UpsertSpo2(ctx context.Context, items []domain.Spo2Sample) (int, error)

	// Interval metrics bucket on end_ts, instant metrics on time_ts.
	ListStepsForHour(ctx context.Context, patientID string, hour domain.HourKey) ([]domain.StepsEvent, error)
	ListStepsForDay(ctx context.Context, patientID string, day domain.DayKey) ([]domain.StepsEvent, error)
	ListDistanceForHour(ctx context.Context, patientID string, hour domain.HourKey) ([]domain.DistanceEvent, error)
	ListDistanceForDay(ctx context.Context, patientID string, day domain.DayKey) ([]domain.DistanceEvent, error)
	ListHrForHour(ctx context.Context, patientID string, hour domain.HourKey) ([]domain.HrSample, error)
	ListHrForDay(ctx context.Context, patientID string, day domain.DayKey) ([]domain.HrSample, error)
	ListSpo2ForHour(ctx context.Context, patientID string, hour domain.HourKey) ([]domain.Spo2Sample, error)
	ListSpo2ForDay(ctx context.Context, patientID string, day domain.DayKey) ([]domain.Spo2Sample, error)

	// LatestRawTimestamp returns the newest sample instant across all four
	// raw tables for a patient, zero time when the patient has no samples.
	LatestRawTimestamp(ctx context.Context, patientID string) (time.Time, error)
}
