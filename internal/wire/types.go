// Package wire defines the JSON contract between devices, the sync agent and
// the ingest endpoints. Timestamps travel as ISO-8601 UTC with millisecond
// precision; both sides derive record identity from the same serialized
// fields, so the formats here are part of the dedup contract and must not
// drift.
package wire

import (
	"fmt"
	"time"

	"vitalink-data/internal/domain"
	"vitalink-data/internal/vitals"
)

// TimeLayout the canonical outbound timestamp format.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// ParseTime accepts RFC3339 with or without fractional seconds. Empty input
// parses to the zero time; the fold stage skips and counts such records.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// FormatTime renders the canonical outbound form.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

// StepsEvent one steps interval on the wire.
type StepsEvent struct {
	PatientID   string `json:"patientId,omitempty"`
	OriginID    string `json:"originId"`
	DeviceID    string `json:"deviceId"`
	StartTs     string `json:"startTs"`
	EndTs       string `json:"endTs"`
	Count       int64  `json:"count"`
	RecordUID   string `json:"recordUid,omitempty"`
	TzOffsetMin int    `json:"tzOffsetMin"`
}

func (w StepsEvent) Domain() (domain.StepsEvent, error) {
	start, err := ParseTime(w.StartTs)
	if err != nil {
		return domain.StepsEvent{}, err
	}
	end, err := ParseTime(w.EndTs)
	if err != nil {
		return domain.StepsEvent{}, err
	}
	return domain.StepsEvent{
		PatientID:   w.PatientID,
		OriginID:    w.OriginID,
		DeviceID:    w.DeviceID,
		StartTs:     start,
		EndTs:       end,
		Count:       w.Count,
		RecordUID:   w.RecordUID,
		TzOffsetMin: w.TzOffsetMin,
	}, nil
}

func StepsEventFrom(d domain.StepsEvent) StepsEvent {
	uid := d.RecordUID
	if uid == "" {
		uid = vitals.StepsRecordUID(d.PatientID, d.OriginID, d.DeviceID, d.StartTs, d.EndTs, d.Count)
	}
	return StepsEvent{
		PatientID:   d.PatientID,
		OriginID:    d.OriginID,
		DeviceID:    d.DeviceID,
		StartTs:     FormatTime(d.StartTs),
		EndTs:       FormatTime(d.EndTs),
		Count:       d.Count,
		RecordUID:   uid,
		TzOffsetMin: d.TzOffsetMin,
	}
}

// DistanceEvent one distance interval on the wire.
type DistanceEvent struct {
	PatientID   string  `json:"patientId,omitempty"`
	OriginID    string  `json:"originId"`
	DeviceID    string  `json:"deviceId"`
	StartTs     string  `json:"startTs"`
	EndTs       string  `json:"endTs"`
	Meters      float64 `json:"meters"`
	RecordUID   string  `json:"recordUid,omitempty"`
	TzOffsetMin int     `json:"tzOffsetMin"`
}

func (w DistanceEvent) Domain() (domain.DistanceEvent, error) {
	start, err := ParseTime(w.StartTs)
	if err != nil {
		return domain.DistanceEvent{}, err
	}
	end, err := ParseTime(w.EndTs)
	if err != nil {
		return domain.DistanceEvent{}, err
	}
	return domain.DistanceEvent{
		PatientID:   w.PatientID,
		OriginID:    w.OriginID,
		DeviceID:    w.DeviceID,
		StartTs:     start,
		EndTs:       end,
		Meters:      w.Meters,
		RecordUID:   w.RecordUID,
		TzOffsetMin: w.TzOffsetMin,
	}, nil
}

func DistanceEventFrom(d domain.DistanceEvent) DistanceEvent {
	uid := d.RecordUID
	if uid == "" {
		uid = vitals.DistanceRecordUID(d.PatientID, d.OriginID, d.DeviceID, d.StartTs, d.EndTs, d.Meters)
	}
	return DistanceEvent{
		PatientID:   d.PatientID,
		OriginID:    d.OriginID,
		DeviceID:    d.DeviceID,
		StartTs:     FormatTime(d.StartTs),
		EndTs:       FormatTime(d.EndTs),
		Meters:      d.Meters,
		RecordUID:   uid,
		TzOffsetMin: d.TzOffsetMin,
	}
}

// HrSample one instant heart-rate sample on the wire.
type HrSample struct {
	PatientID   string `json:"patientId,omitempty"`
	OriginID    string `json:"originId"`
	DeviceID    string `json:"deviceId"`
	TimeTs      string `json:"timeTs"`
	Bpm         int64  `json:"bpm"`
	RecordUID   string `json:"recordUid,omitempty"`
	TzOffsetMin int    `json:"tzOffsetMin"`
}

func (w HrSample) Domain() (domain.HrSample, error) {
	ts, err := ParseTime(w.TimeTs)
	if err != nil {
		return domain.HrSample{}, err
	}
	return domain.HrSample{
		PatientID:   w.PatientID,
		OriginID:    w.OriginID,
		DeviceID:    w.DeviceID,
		TimeTs:      ts,
		Bpm:         w.Bpm,
		RecordUID:   w.RecordUID,
		TzOffsetMin: w.TzOffsetMin,
	}, nil
}

func HrSampleFrom(d domain.HrSample) HrSample {
	uid := d.RecordUID
	if uid == "" {
		uid = vitals.HrRecordUID(d.PatientID, d.OriginID, d.DeviceID, d.TimeTs, d.Bpm)
	}
	return HrSample{
		PatientID:   d.PatientID,
		OriginID:    d.OriginID,
		DeviceID:    d.DeviceID,
		TimeTs:      FormatTime(d.TimeTs),
		Bpm:         d.Bpm,
		RecordUID:   uid,
		TzOffsetMin: d.TzOffsetMin,
	}
}

// Spo2Sample one instant oxygen-saturation sample on the wire.
type Spo2Sample struct {
	PatientID   string  `json:"patientId,omitempty"`
	OriginID    string  `json:"originId"`
	DeviceID    string  `json:"deviceId"`
	TimeTs      string  `json:"timeTs"`
	Pct         float64 `json:"pct"`
	RecordUID   string  `json:"recordUid,omitempty"`
	TzOffsetMin int     `json:"tzOffsetMin"`
}

func (w Spo2Sample) Domain() (domain.Spo2Sample, error) {
	ts, err := ParseTime(w.TimeTs)
	if err != nil {
		return domain.Spo2Sample{}, err
	}
	return domain.Spo2Sample{
		PatientID:   w.PatientID,
		OriginID:    w.OriginID,
		DeviceID:    w.DeviceID,
		TimeTs:      ts,
		Pct:         w.Pct,
		RecordUID:   w.RecordUID,
		TzOffsetMin: w.TzOffsetMin,
	}, nil
}

func Spo2SampleFrom(d domain.Spo2Sample) Spo2Sample {
	uid := d.RecordUID
	if uid == "" {
		uid = vitals.Spo2RecordUID(d.PatientID, d.OriginID, d.DeviceID, d.TimeTs, d.Pct)
	}
	return Spo2Sample{
		PatientID:   d.PatientID,
		OriginID:    d.OriginID,
		DeviceID:    d.DeviceID,
		TimeTs:      FormatTime(d.TimeTs),
		Pct:         d.Pct,
		RecordUID:   uid,
		TzOffsetMin: d.TzOffsetMin,
	}
}

// Batch envelopes. The optional profile fields let a first upload provision
// the patient row in the same request.

type StepsBatch struct {
	PatientID   string       `json:"patientId"`
	FirstName   string       `json:"firstName,omitempty"`
	LastName    string       `json:"lastName,omitempty"`
	DateOfBirth string       `json:"dateOfBirth,omitempty"`
	Records     []StepsEvent `json:"records"`
}

type DistanceBatch struct {
	PatientID   string          `json:"patientId"`
	FirstName   string          `json:"firstName,omitempty"`
	LastName    string          `json:"lastName,omitempty"`
	DateOfBirth string          `json:"dateOfBirth,omitempty"`
	Records     []DistanceEvent `json:"records"`
}

type HrBatch struct {
	PatientID   string     `json:"patientId"`
	FirstName   string     `json:"firstName,omitempty"`
	LastName    string     `json:"lastName,omitempty"`
	DateOfBirth string     `json:"dateOfBirth,omitempty"`
	Records     []HrSample `json:"records"`
}

type Spo2Batch struct {
	PatientID   string       `json:"patientId"`
	FirstName   string       `json:"firstName,omitempty"`
	LastName    string       `json:"lastName,omitempty"`
	DateOfBirth string       `json:"dateOfBirth,omitempty"`
	Records     []Spo2Sample `json:"records"`
}

// IngestResult mirror of the ingest response counts.
type IngestResult struct {
	Inserted     int `json:"inserted"`
	UpsertedHour int `json:"upserted_hour"`
	UpsertedDay  int `json:"upserted_day"`
	Skipped      int `json:"skipped,omitempty"`
}
