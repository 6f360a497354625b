package repository

import (
	"context"

	"vitalink-data/internal/domain"
)

// BPRepository manually entered blood-pressure readings. Manual entry means
// double-taps happen: AddReading drops a reading that lands within 10 seconds
// of an existing one with systolic and diastolic both within 5 units.
type BPRepository interface {
	// AddReading returns false when the reading was dropped as a near
	// duplicate.
	AddReading(ctx context.Context, r domain.BPReading) (bool, error)
	// LatestReading returns nil when the patient has no readings.
	LatestReading(ctx context.Context, patientID string) (*domain.BPReading, error)
	ListReadings(ctx context.Context, patientID string, from, to domain.DayKey) ([]domain.BPReading, error)
}
