package domain

// Aggregate rows are materialized views over the raw sample tables, upserted
// on (patient_id, bucket key). Averages are stored alongside the count they
// were derived from so a reader can always recompute avg == sum/count.

type StepsHour struct {
	PatientID string  `db:"patient_id"`
	HourTs    HourKey `db:"hour_ts"`
	Total     int64   `db:"steps_total"`
}

type StepsDay struct {
	PatientID string `db:"patient_id"`
	Date      DayKey `db:"date"`
	Total     int64  `db:"steps_total"`
}

type DistanceHour struct {
	PatientID string  `db:"patient_id"`
	HourTs    HourKey `db:"hour_ts"`
	Meters    float64 `db:"meters_total"`
}

type DistanceDay struct {
	PatientID string  `db:"patient_id"`
	Date      DayKey  `db:"date"`
	Meters    float64 `db:"meters_total"`
}

// HrHour heart-rate bpm is conventionally integral, so min/max/avg are
// rounded at this boundary; Count preserves the derivation of Avg.
type HrHour struct {
	PatientID string  `db:"patient_id"`
	HourTs    HourKey `db:"hour_ts"`
	Min       int     `db:"hr_min"`
	Max       int     `db:"hr_max"`
	Avg       float64 `db:"hr_avg"`
	Count     int     `db:"hr_count"`
}

type HrDay struct {
	PatientID string  `db:"patient_id"`
	Date      DayKey  `db:"date"`
	Min       int     `db:"hr_min"`
	Max       int     `db:"hr_max"`
	Avg       float64 `db:"hr_avg"`
	Count     int     `db:"hr_count"`
}

// Spo2Hour min/max are kept as received: fractional saturation percentages
// are clinically meaningful and must not be masked by rounding.
type Spo2Hour struct {
	PatientID string  `db:"patient_id"`
	HourTs    HourKey `db:"hour_ts"`
	Min       float64 `db:"spo2_min"`
	Max       float64 `db:"spo2_max"`
	Avg       float64 `db:"spo2_avg"`
	Count     int     `db:"spo2_count"`
}

type Spo2Day struct {
	PatientID string  `db:"patient_id"`
	Date      DayKey  `db:"date"`
	Min       float64 `db:"spo2_min"`
	Max       float64 `db:"spo2_max"`
	Avg       float64 `db:"spo2_avg"`
	Count     int     `db:"spo2_count"`
}
