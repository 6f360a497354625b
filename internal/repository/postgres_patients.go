package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"vitalink-data/internal/domain"
)

type PostgresPatientsRepository struct {
	db *sql.DB
}

func NewPostgresPatientsRepository(db *sql.DB) *PostgresPatientsRepository {
	return &PostgresPatientsRepository{db: db}
}

var _ PatientsRepository = (*PostgresPatientsRepository)(nil)

// EnsurePatient upserts the identity row. COALESCE(NULLIF(...)) keeps an
// existing profile field when the incoming value is empty.
func (r *PostgresPatientsRepository) EnsurePatient(ctx context.Context, p domain.Patient) error {
	if p.PatientID == "" {
		return fmt.Errorf("patient_id is required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO patients (patient_id, first_name, last_name, date_of_birth, created_at)
		VALUES ($1, $2, $3, NULLIF($4, '')::date, now())
		ON CONFLICT (patient_id) DO UPDATE SET
			first_name    = COALESCE(NULLIF(EXCLUDED.first_name, ''), patients.first_name),
			last_name     = COALESCE(NULLIF(EXCLUDED.last_name, ''), patients.last_name),
			date_of_birth = COALESCE(EXCLUDED.date_of_birth, patients.date_of_birth)
	`, p.PatientID, p.FirstName, p.LastName, p.DateOfBirth)
	if err != nil {
		return fmt.Errorf("failed to ensure patient: %w", err)
	}
	return nil
}

func (r *PostgresPatientsRepository) GetPatient(ctx context.Context, patientID string) (*domain.Patient, error) {
	if patientID == "" {
		return nil, nil
	}
	var p domain.Patient
	var dob sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT patient_id, COALESCE(first_name, ''), COALESCE(last_name, ''), date_of_birth, created_at
		FROM patients WHERE patient_id = $1
	`, patientID).Scan(&p.PatientID, &p.FirstName, &p.LastName, &dob, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	if dob.Valid {
		p.DateOfBirth = dob.Time.UTC().Format(domain.DayKeyLayout)
	}
	return &p, nil
}

func (r *PostgresPatientsRepository) DeletePatient(ctx context.Context, patientID string) error {
	if patientID == "" {
		return fmt.Errorf("patient_id is required")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	tables := []string{
		"steps_event", "distance_event", "hr_sample", "spo2_sample",
		"steps_hour", "steps_day", "distance_hour", "distance_day",
		"hr_hour", "hr_day", "spo2_hour", "spo2_day",
		"device_sync_status", "bp_readings", "devices", "patients",
	}
	for _, t := range tables {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE patient_id = $1`, t), patientID); err != nil {
			return fmt.Errorf("failed to delete from %s: %w", t, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit patient delete: %w", err)
	}
	return nil
}

func (r *PostgresPatientsRepository) EnsureOrigins(ctx context.Context, originIDs []string) error {
	for _, id := range originIDs {
		if id == "" {
			continue
		}
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO data_origin (origin_id) VALUES ($1)
			ON CONFLICT (origin_id) DO NOTHING
		`, id)
		if err != nil {
			return fmt.Errorf("failed to ensure origin %s: %w", id, err)
		}
	}
	return nil
}

func (r *PostgresPatientsRepository) EnsureDevices(ctx context.Context, devices []domain.Device) error {
	for _, d := range devices {
		if d.DeviceID == "" {
			continue
		}
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO devices (device_id, patient_id, model)
			VALUES ($1, $2, NULLIF($3, ''))
			ON CONFLICT (device_id) DO UPDATE SET
				patient_id = EXCLUDED.patient_id,
				model      = COALESCE(EXCLUDED.model, devices.model)
		`, d.DeviceID, d.PatientID, d.Model)
		if err != nil {
			return fmt.Errorf("failed to ensure device %s: %w", d.DeviceID, err)
		}
	}
	return nil
}

func (r *PostgresPatientsRepository) UpsertSyncStatus(ctx context.Context, patientID string, ts time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO device_sync_status (patient_id, last_sync_ts, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (patient_id) DO UPDATE SET
			last_sync_ts = EXCLUDED.last_sync_ts,
			updated_at   = now()
	`, patientID, ts)
	if err != nil {
		return fmt.Errorf("failed to upsert sync status: %w", err)
	}
	return nil
}

func (r *PostgresPatientsRepository) GetSyncStatus(ctx context.Context, patientID string) (*domain.SyncStatus, error) {
	var s domain.SyncStatus
	err := r.db.QueryRowContext(ctx, `
		SELECT patient_id, last_sync_ts, updated_at
		FROM device_sync_status WHERE patient_id = $1
	`, patientID).Scan(&s.PatientID, &s.LastSyncTs, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync status: %w", err)
	}
	s.LastSyncTs = s.LastSyncTs.UTC()
	return &s, nil
}

func (r *PostgresPatientsRepository) Counts(ctx context.Context) (AdminCounts, error) {
	var c AdminCounts
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT count(*) FROM patients),
			(SELECT count(*) FROM steps_event),
			(SELECT count(*) FROM distance_event),
			(SELECT count(*) FROM hr_sample),
			(SELECT count(*) FROM spo2_sample),
			(SELECT count(*) FROM bp_readings)
	`).Scan(&c.Patients, &c.StepsEvents, &c.DistanceEvents, &c.HrSamples, &c.Spo2Samples, &c.BPReadings)
	if err != nil {
		return AdminCounts{}, fmt.Errorf("failed to count tables: %w", err)
	}
	return c, nil
}
