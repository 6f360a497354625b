package domain

import "time"

// Patient identity for whom samples are collected. The id is issued by the
// authentication system and is never generated here.
type Patient struct {
	PatientID   string    `db:"patient_id"`
	FirstName   string    `db:"first_name"`
	LastName    string    `db:"last_name"`
	DateOfBirth string    `db:"date_of_birth"` // YYYY-MM-DD, empty when unknown
	CreatedAt   time.Time `db:"created_at"`
}

// Origin identifies the data source platform, e.g. "android_health_connect".
type Origin struct {
	OriginID string `db:"origin_id"`
}

// Device the physical device a sample came from.
type Device struct {
	DeviceID  string `db:"device_id"`
	PatientID string `db:"patient_id"`
	Model     string `db:"model"`
}

// SyncStatus last-successful-sync marker per patient, used by the dashboard
// to show staleness.
type SyncStatus struct {
	PatientID  string    `db:"patient_id"`
	LastSyncTs time.Time `db:"last_sync_ts"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// StepsEvent an interval sample: steps counted between StartTs and EndTs.
// RecordUID is the natural dedup key; TzOffsetMin is the offset the device
// reported for this record (0 is a valid offset, not "missing").
type StepsEvent struct {
	PatientID   string    `db:"patient_id"`
	OriginID    string    `db:"origin_id"`
	DeviceID    string    `db:"device_id"`
	StartTs     time.Time `db:"start_ts"`
	EndTs       time.Time `db:"end_ts"`
	Count       int64     `db:"count"`
	RecordUID   string    `db:"record_uid"`
	TzOffsetMin int       `db:"tz_offset_min"`
}

// DistanceEvent an interval sample: meters covered between StartTs and EndTs.
type DistanceEvent struct {
	PatientID   string    `db:"patient_id"`
	OriginID    string    `db:"origin_id"`
	DeviceID    string    `db:"device_id"`
	StartTs     time.Time `db:"start_ts"`
	EndTs       time.Time `db:"end_ts"`
	Meters      float64   `db:"meters"`
	RecordUID   string    `db:"record_uid"`
	TzOffsetMin int       `db:"tz_offset_min"`
}

// HrSample an instant heart-rate measurement.
type HrSample struct {
	PatientID   string    `db:"patient_id"`
	OriginID    string    `db:"origin_id"`
	DeviceID    string    `db:"device_id"`
	TimeTs      time.Time `db:"time_ts"`
	Bpm         int64     `db:"bpm"`
	RecordUID   string    `db:"record_uid"`
	TzOffsetMin int       `db:"tz_offset_min"`
}

// Spo2Sample an instant oxygen-saturation measurement. Pct keeps whatever
// precision the device reported.
type Spo2Sample struct {
	PatientID   string    `db:"patient_id"`
	OriginID    string    `db:"origin_id"`
	DeviceID    string    `db:"device_id"`
	TimeTs      time.Time `db:"time_ts"`
	Pct         float64   `db:"spo2_pct"`
	RecordUID   string    `db:"record_uid"`
	TzOffsetMin int       `db:"tz_offset_min"`
}

// BPReading a manually entered blood-pressure reading. Written outside the
// aggregation core but read by the summary endpoints.
type BPReading struct {
	ID          int64     `db:"id"`
	PatientID   string    `db:"patient_id"`
	ReadingDate string    `db:"reading_date"` // YYYY-MM-DD
	ReadingTime string    `db:"reading_time"` // HH:MM:SS
	Systolic    int       `db:"systolic"`
	Diastolic   int       `db:"diastolic"`
	Pulse       int       `db:"pulse"`
	CreatedAt   time.Time `db:"created_at"`
}
