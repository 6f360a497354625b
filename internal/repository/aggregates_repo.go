package repository

import (
	"context"

	"vitalink-data/internal/domain"
)

// AggregatesRepository materialized hour/day rollups. Upserts replace the
// whole row for the bucket key; the writer always recomputes a bucket from
// raw samples before calling upsert, so last-write-wins is safe.
type AggregatesRepository interface {
	UpsertStepsHour(ctx context.Context, row domain.StepsHour) error
	UpsertStepsDay(ctx context.Context, row domain.StepsDay) error
	UpsertDistanceHour(ctx context.Context, row domain.DistanceHour) error
	UpsertDistanceDay(ctx context.Context, row domain.DistanceDay) error
	UpsertHrHour(ctx context.Context, row domain.HrHour) error
	UpsertHrDay(ctx context.Context, row domain.HrDay) error
	UpsertSpo2Hour(ctx context.Context, row domain.Spo2Hour) error
	UpsertSpo2Day(ctx context.Context, row domain.Spo2Day) error

	// Latest*Day return the most recent day row, nil when none exists.
	LatestStepsDay(ctx context.Context, patientID string) (*domain.StepsDay, error)
	LatestDistanceDay(ctx context.Context, patientID string) (*domain.DistanceDay, error)
	LatestHrDay(ctx context.Context, patientID string) (*domain.HrDay, error)
	LatestSpo2Day(ctx context.Context, patientID string) (*domain.Spo2Day, error)

	// List*HourForDay return a day's hour rows ordered by hour_ts.
	ListStepsHourForDay(ctx context.Context, patientID string, day domain.DayKey) ([]domain.StepsHour, error)
	ListDistanceHourForDay(ctx context.Context, patientID string, day domain.DayKey) ([]domain.DistanceHour, error)
	ListHrHourForDay(ctx context.Context, patientID string, day domain.DayKey) ([]domain.HrHour, error)
	ListSpo2HourForDay(ctx context.Context, patientID string, day domain.DayKey) ([]domain.Spo2Hour, error)

	// List*DayRange return day rows in [from, to] ordered by date.
	ListStepsDayRange(ctx context.Context, patientID string, from, to domain.DayKey) ([]domain.StepsDay, error)
	ListDistanceDayRange(ctx context.Context, patientID string, from, to domain.DayKey) ([]domain.DistanceDay, error)
	ListHrDayRange(ctx context.Context, patientID string, from, to domain.DayKey) ([]domain.HrDay, error)
	ListSpo2DayRange(ctx context.Context, patientID string, from, to domain.DayKey) ([]domain.Spo2Day, error)
}
