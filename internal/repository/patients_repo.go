package repository

import (
	"context"
	"time"

	"vitalink-data/internal/domain"
)

// PatientsRepository patient identity, sample provenance (origins/devices)
// and the per-patient sync marker.
type PatientsRepository interface {
	// EnsurePatient creates the row if missing. Profile fields only overwrite
	// when the incoming value is non-empty, so a bare ingest never blanks a
	// profile the admin API filled in earlier.
	EnsurePatient(ctx context.Context, p domain.Patient) error
	GetPatient(ctx context.Context, patientID string) (*domain.Patient, error)

	// DeletePatient removes the patient and everything keyed to it: raw
	// samples, aggregates, sync status, blood-pressure readings.
	DeletePatient(ctx context.Context, patientID string) error

	EnsureOrigins(ctx context.Context, originIDs []string) error
	EnsureDevices(ctx context.Context, devices []domain.Device) error

	UpsertSyncStatus(ctx context.Context, patientID string, ts time.Time) error
	// GetSyncStatus returns nil when no sync has been recorded yet.
	GetSyncStatus(ctx context.Context, patientID string) (*domain.SyncStatus, error)

	Counts(ctx context.Context) (AdminCounts, error)
}

// AdminCounts row counts surfaced by the admin summary endpoint.
type AdminCounts struct {
	Patients       int64 `json:"patients"`
	StepsEvents    int64 `json:"steps_events"`
	DistanceEvents int64 `json:"distance_events"`
	HrSamples      int64 `json:"hr_samples"`
	Spo2Samples    int64 `json:"spo2_samples"`
	BPReadings     int64 `json:"bp_readings"`
}
