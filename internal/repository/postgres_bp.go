package repository

import (
	"context"
	"database/sql"
	"fmt"

	"vitalink-data/internal/domain"
)

type PostgresBPRepository struct {
	db *sql.DB
}

func NewPostgresBPRepository(db *sql.DB) *PostgresBPRepository {
	return &PostgresBPRepository{db: db}
}

var _ BPRepository = (*PostgresBPRepository)(nil)

func (r *PostgresBPRepository) AddReading(ctx context.Context, bp domain.BPReading) (bool, error) {
	if bp.PatientID == "" {
		return false, fmt.Errorf("patient_id is required")
	}

	// Near-duplicate guard for manual double entry: same date, within 10
	// seconds, systolic and diastolic each within 5 units.
	var dupes int
	err := r.db.QueryRowContext(ctx, `
		SELECT count(*)
		FROM bp_readings
		WHERE patient_id = $1
		  AND reading_date = $2::date
		  AND abs(extract(epoch FROM (reading_time - $3::time))) <= 10
		  AND abs(systolic - $4) <= 5
		  AND abs(diastolic - $5) <= 5
	`, bp.PatientID, bp.ReadingDate, bp.ReadingTime, bp.Systolic, bp.Diastolic).Scan(&dupes)
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate reading: %w", err)
	}
	if dupes > 0 {
		return false, nil
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO bp_readings (patient_id, reading_date, reading_time, systolic, diastolic, pulse, created_at)
		VALUES ($1, $2::date, $3::time, $4, $5, $6, now())
	`, bp.PatientID, bp.ReadingDate, bp.ReadingTime, bp.Systolic, bp.Diastolic, bp.Pulse)
	if err != nil {
		return false, fmt.Errorf("failed to insert bp reading: %w", err)
	}
	return true, nil
}

func (r *PostgresBPRepository) LatestReading(ctx context.Context, patientID string) (*domain.BPReading, error) {
	var bp domain.BPReading
	err := r.db.QueryRowContext(ctx, `
		SELECT id, patient_id, reading_date::text, reading_time::text, systolic, diastolic, pulse, created_at
		FROM bp_readings
		WHERE patient_id = $1
		ORDER BY reading_date DESC, reading_time DESC
		LIMIT 1
	`, patientID).Scan(&bp.ID, &bp.PatientID, &bp.ReadingDate, &bp.ReadingTime,
		&bp.Systolic, &bp.Diastolic, &bp.Pulse, &bp.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest bp reading: %w", err)
	}
	return &bp, nil
}

func (r *PostgresBPRepository) ListReadings(ctx context.Context, patientID string, from, to domain.DayKey) ([]domain.BPReading, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, patient_id, reading_date::text, reading_time::text, systolic, diastolic, pulse, created_at
		FROM bp_readings
		WHERE patient_id = $1 AND reading_date >= $2::date AND reading_date <= $3::date
		ORDER BY reading_date, reading_time
	`, patientID, string(from), string(to))
	if err != nil {
		return nil, fmt.Errorf("failed to list bp readings: %w", err)
	}
	defer rows.Close()

	out := []domain.BPReading{}
	for rows.Next() {
		var bp domain.BPReading
		if err := rows.Scan(&bp.ID, &bp.PatientID, &bp.ReadingDate, &bp.ReadingTime,
			&bp.Systolic, &bp.Diastolic, &bp.Pulse, &bp.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bp reading: %w", err)
		}
		out = append(out, bp)
	}
	return out, rows.Err()
}
