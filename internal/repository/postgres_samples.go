package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"vitalink-data/internal/domain"
)

// PostgresSamplesRepository raw sample storage over the four sample tables.
// Idempotency rides on the record_uid unique constraint: ON CONFLICT DO
// NOTHING, so re-sent batches are free.
//
// Bucket-window queries shift each row by its own stored offset in SQL:
//
//	end_ts + make_interval(mins => tz_offset_min)
//
// which is the exact SQL counterpart of the key derivation in the aggregation
// code, so a recomputed bucket always sees the same rows the original write
// folded.
type PostgresSamplesRepository struct {
	db *sql.DB
}

func NewPostgresSamplesRepository(db *sql.DB) *PostgresSamplesRepository {
	return &PostgresSamplesRepository{db: db}
}

var _ SamplesRepository = (*PostgresSamplesRepository)(nil)

func (r *PostgresSamplesRepository) UpsertSteps(ctx context.Context, items []domain.StepsEvent) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO steps_event (patient_id, origin_id, device_id, start_ts, end_ts, count, record_uid, tz_offset_min)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (record_uid) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare steps insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, it := range items {
		res, err := stmt.ExecContext(ctx, it.PatientID, it.OriginID, it.DeviceID,
			it.StartTs, it.EndTs, it.Count, it.RecordUID, it.TzOffsetMin)
		if err != nil {
			return 0, fmt.Errorf("failed to insert steps event: %w", err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit steps insert: %w", err)
	}
	return inserted, nil
}

func (r *PostgresSamplesRepository) UpsertDistance(ctx context.Context, items []domain.DistanceEvent) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO distance_event (patient_id, origin_id, device_id, start_ts, end_ts, meters, record_uid, tz_offset_min)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (record_uid) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare distance insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, it := range items {
		res, err := stmt.ExecContext(ctx, it.PatientID, it.OriginID, it.DeviceID,
			it.StartTs, it.EndTs, it.Meters, it.RecordUID, it.TzOffsetMin)
		if err != nil {
			return 0, fmt.Errorf("failed to insert distance event: %w", err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit distance insert: %w", err)
	}
	return inserted, nil
}

func (r *PostgresSamplesRepository) UpsertHr(ctx context.Context, items []domain.HrSample) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO hr_sample (patient_id, origin_id, device_id, time_ts, bpm, record_uid, tz_offset_min)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (record_uid) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare hr insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, it := range items {
		res, err := stmt.ExecContext(ctx, it.PatientID, it.OriginID, it.DeviceID,
			it.TimeTs, it.Bpm, it.RecordUID, it.TzOffsetMin)
		if err != nil {
			return 0, fmt.Errorf("failed to insert hr sample: %w", err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit hr insert: %w", err)
	}
	return inserted, nil
}

func (r *PostgresSamplesRepository) UpsertSpo2(ctx context.Context, items []domain.Spo2Sample) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO spo2_sample (patient_id, origin_id, device_id, time_ts, spo2_pct, record_uid, tz_offset_min)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (record_uid) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare spo2 insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, it := range items {
		res, err := stmt.ExecContext(ctx, it.PatientID, it.OriginID, it.DeviceID,
			it.TimeTs, it.Pct, it.RecordUID, it.TzOffsetMin)
		if err != nil {
			return 0, fmt.Errorf("failed to insert spo2 sample: %w", err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit spo2 insert: %w", err)
	}
	return inserted, nil
}

func hourWindow(hour domain.HourKey) (time.Time, time.Time, error) {
	from, err := hour.Time()
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid hour key %q: %w", hour, err)
	}
	return from, from.Add(time.Hour), nil
}

func dayWindow(day domain.DayKey) (time.Time, time.Time, error) {
	from, err := day.Time()
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid day key %q: %w", day, err)
	}
	return from, from.AddDate(0, 0, 1), nil
}

func (r *PostgresSamplesRepository) listSteps(ctx context.Context, patientID string, from, to time.Time) ([]domain.StepsEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT patient_id, origin_id, device_id, start_ts, end_ts, count, record_uid, tz_offset_min
		FROM steps_event
		WHERE patient_id = $1
		  AND end_ts + make_interval(mins => tz_offset_min) >= $2
		  AND end_ts + make_interval(mins => tz_offset_min) < $3
		ORDER BY end_ts
	`, patientID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list steps events: %w", err)
	}
	defer rows.Close()

	out := []domain.StepsEvent{}
	for rows.Next() {
		var it domain.StepsEvent
		if err := rows.Scan(&it.PatientID, &it.OriginID, &it.DeviceID,
			&it.StartTs, &it.EndTs, &it.Count, &it.RecordUID, &it.TzOffsetMin); err != nil {
			return nil, fmt.Errorf("failed to scan steps event: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *PostgresSamplesRepository) ListStepsForHour(ctx context.Context, patientID string, hour domain.HourKey) ([]domain.StepsEvent, error) {
	from, to, err := hourWindow(hour)
	if err != nil {
		return nil, err
	}
	return r.listSteps(ctx, patientID, from, to)
}

func (r *PostgresSamplesRepository) ListStepsForDay(ctx context.Context, patientID string, day domain.DayKey) ([]domain.StepsEvent, error) {
	from, to, err := dayWindow(day)
	if err != nil {
		return nil, err
	}
	return r.listSteps(ctx, patientID, from, to)
}

func (r *PostgresSamplesRepository) listDistance(ctx context.Context, patientID string, from, to time.Time) ([]domain.DistanceEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT patient_id, origin_id, device_id, start_ts, end_ts, meters, record_uid, tz_offset_min
		FROM distance_event
		WHERE patient_id = $1
		  AND end_ts + make_interval(mins => tz_offset_min) >= $2
		  AND end_ts + make_interval(mins => tz_offset_min) < $3
		ORDER BY end_ts
	`, patientID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list distance events: %w", err)
	}
	defer rows.Close()

	out := []domain.DistanceEvent{}
	for rows.Next() {
		var it domain.DistanceEvent
		if err := rows.Scan(&it.PatientID, &it.OriginID, &it.DeviceID,
			&it.StartTs, &it.EndTs, &it.Meters, &it.RecordUID, &it.TzOffsetMin); err != nil {
			return nil, fmt.Errorf("failed to scan distance event: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *PostgresSamplesRepository) ListDistanceForHour(ctx context.Context, patientID string, hour domain.HourKey) ([]domain.DistanceEvent, error) {
	from, to, err := hourWindow(hour)
	if err != nil {
		return nil, err
	}
	return r.listDistance(ctx, patientID, from, to)
}

func (r *PostgresSamplesRepository) ListDistanceForDay(ctx context.Context, patientID string, day domain.DayKey) ([]domain.DistanceEvent, error) {
	from, to, err := dayWindow(day)
	if err != nil {
		return nil, err
	}
	return r.listDistance(ctx, patientID, from, to)
}

func (r *PostgresSamplesRepository) listHr(ctx context.Context, patientID string, from, to time.Time) ([]domain.HrSample, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT patient_id, origin_id, device_id, time_ts, bpm, record_uid, tz_offset_min
		FROM hr_sample
		WHERE patient_id = $1
		  AND time_ts + make_interval(mins => tz_offset_min) >= $2
		  AND time_ts + make_interval(mins => tz_offset_min) < $3
		ORDER BY time_ts
	`, patientID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list hr samples: %w", err)
	}
	defer rows.Close()

	out := []domain.HrSample{}
	for rows.Next() {
		var it domain.HrSample
		if err := rows.Scan(&it.PatientID, &it.OriginID, &it.DeviceID,
			&it.TimeTs, &it.Bpm, &it.RecordUID, &it.TzOffsetMin); err != nil {
			return nil, fmt.Errorf("failed to scan hr sample: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *PostgresSamplesRepository) ListHrForHour(ctx context.Context, patientID string, hour domain.HourKey) ([]domain.HrSample, error) {
	from, to, err := hourWindow(hour)
	if err != nil {
		return nil, err
	}
	return r.listHr(ctx, patientID, from, to)
}

func (r *PostgresSamplesRepository) ListHrForDay(ctx context.Context, patientID string, day domain.DayKey) ([]domain.HrSample, error) {
	from, to, err := dayWindow(day)
	if err != nil {
		return nil, err
	}
	return r.listHr(ctx, patientID, from, to)
}

func (r *PostgresSamplesRepository) listSpo2(ctx context.Context, patientID string, from, to time.Time) ([]domain.Spo2Sample, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT patient_id, origin_id, device_id, time_ts, spo2_pct, record_uid, tz_offset_min
		FROM spo2_sample
		WHERE patient_id = $1
		  AND time_ts + make_interval(mins => tz_offset_min) >= $2
		  AND time_ts + make_interval(mins => tz_offset_min) < $3
		ORDER BY time_ts
	`, patientID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list spo2 samples: %w", err)
	}
	defer rows.Close()

	out := []domain.Spo2Sample{}
	for rows.Next() {
		var it domain.Spo2Sample
		if err := rows.Scan(&it.PatientID, &it.OriginID, &it.DeviceID,
			&it.TimeTs, &it.Pct, &it.RecordUID, &it.TzOffsetMin); err != nil {
			return nil, fmt.Errorf("failed to scan spo2 sample: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *PostgresSamplesRepository) ListSpo2ForHour(ctx context.Context, patientID string, hour domain.HourKey) ([]domain.Spo2Sample, error) {
	from, to, err := hourWindow(hour)
	if err != nil {
		return nil, err
	}
	return r.listSpo2(ctx, patientID, from, to)
}

func (r *PostgresSamplesRepository) ListSpo2ForDay(ctx context.Context, patientID string, day domain.DayKey) ([]domain.Spo2Sample, error) {
	from, to, err := dayWindow(day)
	if err != nil {
		return nil, err
	}
	return r.listSpo2(ctx, patientID, from, to)
}

func (r *PostgresSamplesRepository) LatestRawTimestamp(ctx context.Context, patientID string) (time.Time, error) {
	var latest sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT GREATEST(
			(SELECT max(end_ts)  FROM steps_event    WHERE patient_id = $1),
			(SELECT max(end_ts)  FROM distance_event WHERE patient_id = $1),
			(SELECT max(time_ts) FROM hr_sample      WHERE patient_id = $1),
			(SELECT max(time_ts) FROM spo2_sample    WHERE patient_id = $1))
	`, patientID).Scan(&latest)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get latest raw timestamp: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, nil
	}
	return latest.Time.UTC(), nil
}
