package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"vitalink-data/internal/domain"
)

// PostgresAggregatesRepository hour/day rollup storage. hour_ts columns are
// timestamptz holding the local-shifted bucket instant, date columns are
// plain dates; both arrive here as validated bucket keys.
type PostgresAggregatesRepository struct {
	db *sql.DB
}

func NewPostgresAggregatesRepository(db *sql.DB) *PostgresAggregatesRepository {
	return &PostgresAggregatesRepository{db: db}
}

var _ AggregatesRepository = (*PostgresAggregatesRepository)(nil)

func hourArg(k domain.HourKey) (time.Time, error) {
	t, err := k.Time()
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid hour key %q: %w", k, err)
	}
	return t, nil
}

func (r *PostgresAggregatesRepository) UpsertStepsHour(ctx context.Context, row domain.StepsHour) error {
	ts, err := hourArg(row.HourTs)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO steps_hour (patient_id, hour_ts, steps_total)
		VALUES ($1, $2, $3)
		ON CONFLICT (patient_id, hour_ts) DO UPDATE SET steps_total = EXCLUDED.steps_total
	`, row.PatientID, ts, row.Total)
	if err != nil {
		return fmt.Errorf("failed to upsert steps hour: %w", err)
	}
	return nil
}

func (r *PostgresAggregatesRepository) UpsertStepsDay(ctx context.Context, row domain.StepsDay) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO steps_day (patient_id, date, steps_total)
		VALUES ($1, $2, $3)
		ON CONFLICT (patient_id, date) DO UPDATE SET steps_total = EXCLUDED.steps_total
	`, row.PatientID, string(row.Date), row.Total)
	if err != nil {
		return fmt.Errorf("failed to upsert steps day: %w", err)
	}
	return nil
}

func (r *PostgresAggregatesRepository) UpsertDistanceHour(ctx context.Context, row domain.DistanceHour) error {
	ts, err := hourArg(row.HourTs)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO distance_hour (patient_id, hour_ts, meters_total)
		VALUES ($1, $2, $3)
		ON CONFLICT (patient_id, hour_ts) DO UPDATE SET meters_total = EXCLUDED.meters_total
	`, row.PatientID, ts, row.Meters)
	if err != nil {
		return fmt.Errorf("failed to upsert distance hour: %w", err)
	}
	return nil
}

func (r *PostgresAggregatesRepository) UpsertDistanceDay(ctx context.Context, row domain.DistanceDay) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO distance_day (patient_id, date, meters_total)
		VALUES ($1, $2, $3)
		ON CONFLICT (patient_id, date) DO UPDATE SET meters_total = EXCLUDED.meters_total
	`, row.PatientID, string(row.Date), row.Meters)
	if err != nil {
		return fmt.Errorf("failed to upsert distance day: %w", err)
	}
	return nil
}

func (r *PostgresAggregatesRepository) UpsertHrHour(ctx context.Context, row domain.HrHour) error {
	ts, err := hourArg(row.HourTs)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO hr_hour (patient_id, hour_ts, hr_min, hr_max, hr_avg, hr_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (patient_id, hour_ts) DO UPDATE SET
			hr_min = EXCLUDED.hr_min,
			hr_max = EXCLUDED.hr_max,
			hr_avg = EXCLUDED.hr_avg,
			hr_count = EXCLUDED.hr_count
	`, row.PatientID, ts, row.Min, row.Max, row.Avg, row.Count)
	if err != nil {
		return fmt.Errorf("failed to upsert hr hour: %w", err)
	}
	return nil
}

func (r *PostgresAggregatesRepository) UpsertHrDay(ctx context.Context, row domain.HrDay) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO hr_day (patient_id, date, hr_min, hr_max, hr_avg, hr_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (patient_id, date) DO UPDATE SET
			hr_min = EXCLUDED.hr_min,
			hr_max = EXCLUDED.hr_max,
			hr_avg = EXCLUDED.hr_avg,
			hr_count = EXCLUDED.hr_count
	`, row.PatientID, string(row.Date), row.Min, row.Max, row.Avg, row.Count)
	if err != nil {
		return fmt.Errorf("failed to upsert hr day: %w", err)
	}
	return nil
}

func (r *PostgresAggregatesRepository) UpsertSpo2Hour(ctx context.Context, row domain.Spo2Hour) error {
	ts, err := hourArg(row.HourTs)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO spo2_hour (patient_id, hour_ts, spo2_min, spo2_max, spo2_avg, spo2_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (patient_id, hour_ts) DO UPDATE SET
			spo2_min = EXCLUDED.spo2_min,
			spo2_max = EXCLUDED.spo2_max,
			spo2_avg = EXCLUDED.spo2_avg,
			spo2_count = EXCLUDED.spo2_count
	`, row.PatientID, ts, row.Min, row.Max, row.Avg, row.Count)
	if err != nil {
		return fmt.Errorf("failed to upsert spo2 hour: %w", err)
	}
	return nil
}

func (r *PostgresAggregatesRepository) UpsertSpo2Day(ctx context.Context, row domain.Spo2Day) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO spo2_day (patient_id, date, spo2_min, spo2_max, spo2_avg, spo2_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (patient_id, date) DO UPDATE SET
			spo2_min = EXCLUDED.spo2_min,
			spo2_max = EXCLUDED.spo2_max,
			spo2_avg = EXCLUDED.spo2_avg,
			spo2_count = EXCLUDED.spo2_count
	`, row.PatientID, string(row.Date), row.Min, row.Max, row.Avg, row.Count)
	if err != nil {
		return fmt.Errorf("failed to upsert spo2 day: %w", err)
	}
	return nil
}

func (r *PostgresAggregatesRepository) LatestStepsDay(ctx context.Context, patientID string) (*domain.StepsDay, error) {
	var row domain.StepsDay
	var date time.Time
	err := r.db.QueryRowContext(ctx, `
		SELECT patient_id, date, steps_total
		FROM steps_day WHERE patient_id = $1
		ORDER BY date DESC LIMIT 1
	`, patientID).Scan(&row.PatientID, &date, &row.Total)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest steps day: %w", err)
	}
	row.Date = domain.DayKeyAt(date)
	return &row, nil
}

func (r *PostgresAggregatesRepository) LatestDistanceDay(ctx context.Context, patientID string) (*domain.DistanceDay, error) {
	var row domain.DistanceDay
	var date time.Time
	err := r.db.QueryRowContext(ctx, `
		SELECT patient_id, date, meters_total
		FROM distance_day WHERE patient_id = $1
		ORDER BY date DESC LIMIT 1
	`, patientID).Scan(&row.PatientID, &date, &row.Meters)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest distance day: %w", err)
	}
	row.Date = domain.DayKeyAt(date)
	return &row, nil
}

func (r *PostgresAggregatesRepository) LatestHrDay(ctx context.Context, patientID string) (*domain.HrDay, error) {
	var row domain.HrDay
	var date time.Time
	err := r.db.QueryRowContext(ctx, `
		SELECT patient_id, date, hr_min, hr_max, hr_avg, hr_count
		FROM hr_day WHERE patient_id = $1
		ORDER BY date DESC LIMIT 1
	`, patientID).Scan(&row.PatientID, &date, &row.Min, &row.Max, &row.Avg, &row.Count)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest hr day: %w", err)
	}
	row.Date = domain.DayKeyAt(date)
	return &row, nil
}

func (r *PostgresAggregatesRepository) LatestSpo2Day(ctx context.Context, patientID string) (*domain.Spo2Day, error) {
	var row domain.Spo2Day
	var date time.Time
	err := r.db.QueryRowContext(ctx, `
		SELECT patient_id, date, spo2_min, spo2_max, spo2_avg, spo2_count
		FROM spo2_day WHERE patient_id = $1
		ORDER BY date DESC LIMIT 1
	`, patientID).Scan(&row.PatientID, &date, &row.Min, &row.Max, &row.Avg, &row.Count)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest spo2 day: %w", err)
	}
	row.Date = domain.DayKeyAt(date)
	return &row, nil
}

func (r *PostgresAggregatesRepository) ListStepsHourForDay(ctx context.Context, patientID string, day domain.DayKey) ([]domain.StepsHour, error) {
	from, to, err := dayWindow(day)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT patient_id, hour_ts, steps_total
		FROM steps_hour
		WHERE patient_id = $1 AND hour_ts >= $2 AND hour_ts < $3
		ORDER BY hour_ts
	`, patientID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list steps hours: %w", err)
	}
	defer rows.Close()

	out := []domain.StepsHour{}
	for rows.Next() {
		var row domain.StepsHour
		var ts time.Time
		if err := rows.Scan(&row.PatientID, &ts, &row.Total); err != nil {
			return nil, fmt.Errorf("failed to scan steps hour: %w", err)
		}
		row.HourTs = domain.HourKeyAt(ts)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *PostgresAggregatesRepository) ListDistanceHourForDay(ctx context.Context, patientID string, day domain.DayKey) ([]domain.DistanceHour, error) {
	from, to, err := dayWindow(day)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT patient_id, hour_ts, meters_total
		FROM distance_hour
		WHERE patient_id = $1 AND hour_ts >= $2 AND hour_ts < $3
		ORDER BY hour_ts
	`, patientID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list distance hours: %w", err)
	}
	defer rows.Close()

	out := []domain.DistanceHour{}
	for rows.Next() {
		var row domain.DistanceHour
		var ts time.Time
		if err := rows.Scan(&row.PatientID, &ts, &row.Meters); err != nil {
			return nil, fmt.Errorf("failed to scan distance hour: %w", err)
		}
		row.HourTs = domain.HourKeyAt(ts)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *PostgresAggregatesRepository) ListHrHourForDay(ctx context.Context, patientID string, day domain.DayKey) ([]domain.HrHour, error) {
	from, to, err := dayWindow(day)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT patient_id, hour_ts, hr_min, hr_max, hr_avg, hr_count
		FROM hr_hour
		WHERE patient_id = $1 AND hour_ts >= $2 AND hour_ts < $3
		ORDER BY hour_ts
	`, patientID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list hr hours: %w", err)
	}
	defer rows.Close()

	out := []domain.HrHour{}
	for rows.Next() {
		var row domain.HrHour
		var ts time.Time
		if err := rows.Scan(&row.PatientID, &ts, &row.Min, &row.Max, &row.Avg, &row.Count); err != nil {
			return nil, fmt.Errorf("failed to scan hr hour: %w", err)
		}
		row.HourTs = domain.HourKeyAt(ts)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *PostgresAggregatesRepository) ListSpo2HourForDay(ctx context.Context, patientID string, day domain.DayKey) ([]domain.Spo2Hour, error) {
	from, to, err := dayWindow(day)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT patient_id, hour_ts, spo2_min, spo2_max, spo2_avg, spo2_count
		FROM spo2_hour
		WHERE patient_id = $1 AND hour_ts >= $2 AND hour_ts < $3
		ORDER BY hour_ts
	`, patientID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list spo2 hours: %w", err)
	}
	defer rows.Close()

	out := []domain.Spo2Hour{}
	for rows.Next() {
		var row domain.Spo2Hour
		var ts time.Time
		if err := rows.Scan(&row.PatientID, &ts, &row.Min, &row.Max, &row.Avg, &row.Count); err != nil {
			return nil, fmt.Errorf("failed to scan spo2 hour: %w", err)
		}
		row.HourTs = domain.HourKeyAt(ts)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *PostgresAggregatesRepository) ListStepsDayRange(ctx context.Context, patientID string, from, to domain.DayKey) ([]domain.StepsDay, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT patient_id, date, steps_total
		FROM steps_day
		WHERE patient_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date
	`, patientID, string(from), string(to))
	if err != nil {
		return nil, fmt.Errorf("failed to list steps days: %w", err)
	}
	defer rows.Close()

	out := []domain.StepsDay{}
	for rows.Next() {
		var row domain.StepsDay
		var date time.Time
		if err := rows.Scan(&row.PatientID, &date, &row.Total); err != nil {
			return nil, fmt.Errorf("failed to scan steps day: %w", err)
		}
		row.Date = domain.DayKeyAt(date)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *PostgresAggregatesRepository) ListDistanceDayRange(ctx context.Context, patientID string, from, to domain.DayKey) ([]domain.DistanceDay, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT patient_id, date, meters_total
		FROM distance_day
		WHERE patient_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date
	`, patientID, string(from), string(to))
	if err != nil {
		return nil, fmt.Errorf("failed to list distance days: %w", err)
	}
	defer rows.Close()

	out := []domain.DistanceDay{}
	for rows.Next() {
		var row domain.DistanceDay
		var date time.Time
		if err := rows.Scan(&row.PatientID, &date, &row.Meters); err != nil {
			return nil, fmt.Errorf("failed to scan distance day: %w", err)
		}
		row.Date = domain.DayKeyAt(date)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *PostgresAggregatesRepository) ListHrDayRange(ctx context.Context, patientID string, from, to domain.DayKey) ([]domain.HrDay, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT patient_id, date, hr_min, hr_max, hr_avg, hr_count
		FROM hr_day
		WHERE patient_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date
	`, patientID, string(from), string(to))
	if err != nil {
		return nil, fmt.Errorf("failed to list hr days: %w", err)
	}
	defer rows.Close()

	out := []domain.HrDay{}
	for rows.Next() {
		var row domain.HrDay
		var date time.Time
		if err := rows.Scan(&row.PatientID, &date, &row.Min, &row.Max, &row.Avg, &row.Count); err != nil {
			return nil, fmt.Errorf("failed to scan hr day: %w", err)
		}
		row.Date = domain.DayKeyAt(date)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *PostgresAggregatesRepository) ListSpo2DayRange(ctx context.Context, patientID string, from, to domain.DayKey) ([]domain.Spo2Day, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT patient_id, date, spo2_min, spo2_max, spo2_avg, spo2_count
		FROM spo2_day
		WHERE patient_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date
	`, patientID, string(from), string(to))
	if err != nil {
		return nil, fmt.Errorf("failed to list spo2 days: %w", err)
	}
	defer rows.Close()

	out := []domain.Spo2Day{}
	for rows.Next() {
		var row domain.Spo2Day
		var date time.Time
		if err := rows.Scan(&row.PatientID, &date, &row.Min, &row.Max, &row.Avg, &row.Count); err != nil {
			return nil, fmt.Errorf("failed to scan spo2 day: %w", err)
		}
		row.Date = domain.DayKeyAt(date)
		out = append(out, row)
	}
	return out, rows.Err()
}
