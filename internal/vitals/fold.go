package vitals

import (
	"errors"
	"math"
	"time"

	"vitalink-data/internal/domain"
)

// ErrMissingPatient rejects a whole batch: every bucket key depends on a
// valid patient association.
var ErrMissingPatient = errors.New("sample batch contains record without patient id")

// HourRef / DayRef identify one aggregate bucket.
type HourRef struct {
	PatientID string
	Hour      domain.HourKey
}

type DayRef struct {
	PatientID string
	Day       domain.DayKey
}

// RateAcc running accumulator for instant metrics (heart rate, SpO2).
// The average is always derived from Sum/Count at read time; it is never
// stored pre-divided inside the accumulator.
type RateAcc struct {
	Min   float64
	Max   float64
	Sum   float64
	Count int
}

func (a *RateAcc) Add(v float64) {
	if a.Count == 0 {
		a.Min = v
		a.Max = v
	} else {
		a.Min = math.Min(a.Min, v)
		a.Max = math.Max(a.Max, v)
	}
	a.Sum += v
	a.Count++
}

func (a *RateAcc) Avg() float64 {
	if a.Count == 0 {
		return 0
	}
	return a.Sum / float64(a.Count)
}

// StepsFold per-bucket step totals for one batch.
type StepsFold struct {
	Hours   map[HourRef]int64
	Days    map[DayRef]int64
	Skipped int
}

// DistanceFold per-bucket meter totals for one batch.
type DistanceFold struct {
	Hours   map[HourRef]float64
	Days    map[DayRef]float64
	Skipped int
}

// RateFold per-bucket accumulators for one batch of instant samples.
type RateFold struct {
	Hours   map[HourRef]*RateAcc
	Days    map[DayRef]*RateAcc
	Skipped int
}

// FoldSteps buckets a batch of step intervals. The end timestamp decides
// bucket membership; records with a zero end timestamp are skipped and
// counted, a record without a patient id fails the whole batch.
func FoldSteps(items []domain.StepsEvent) (StepsFold, error) {
	out := StepsFold{Hours: map[HourRef]int64{}, Days: map[DayRef]int64{}}
	for _, it := range items {
		if it.PatientID == "" {
			return StepsFold{}, ErrMissingPatient
		}
		if it.EndTs.IsZero() {
			out.Skipped++
			continue
		}
		h := HourRef{it.PatientID, HourKeyFor(it.EndTs, it.TzOffsetMin)}
		d := DayRef{it.PatientID, DayKeyFor(it.EndTs, it.TzOffsetMin)}
		out.Hours[h] += it.Count
		out.Days[d] += it.Count
	}
	return out, nil
}

// FoldDistance buckets a batch of distance intervals by end timestamp.
func FoldDistance(items []domain.DistanceEvent) (DistanceFold, error) {
	out := DistanceFold{Hours: map[HourRef]float64{}, Days: map[DayRef]float64{}}
	for _, it := range items {
		if it.PatientID == "" {
			return DistanceFold{}, ErrMissingPatient
		}
		if it.EndTs.IsZero() {
			out.Skipped++
			continue
		}
		h := HourRef{it.PatientID, HourKeyFor(it.EndTs, it.TzOffsetMin)}
		d := DayRef{it.PatientID, DayKeyFor(it.EndTs, it.TzOffsetMin)}
		out.Hours[h] += it.Meters
		out.Days[d] += it.Meters
	}
	return out, nil
}

// FoldHeartRate buckets a batch of instant heart-rate samples.
func FoldHeartRate(items []domain.HrSample) (RateFold, error) {
	out := RateFold{Hours: map[HourRef]*RateAcc{}, Days: map[DayRef]*RateAcc{}}
	for _, it := range items {
		if it.PatientID == "" {
			return RateFold{}, ErrMissingPatient
		}
		if it.TimeTs.IsZero() {
			out.Skipped++
			continue
		}
		out.add(it.PatientID, it.TimeTs, it.TzOffsetMin, float64(it.Bpm))
	}
	return out, nil
}

// FoldSpo2 buckets a batch of instant SpO2 samples.
func FoldSpo2(items []domain.Spo2Sample) (RateFold, error) {
	out := RateFold{Hours: map[HourRef]*RateAcc{}, Days: map[DayRef]*RateAcc{}}
	for _, it := range items {
		if it.PatientID == "" {
			return RateFold{}, ErrMissingPatient
		}
		if it.TimeTs.IsZero() {
			out.Skipped++
			continue
		}
		out.add(it.PatientID, it.TimeTs, it.TzOffsetMin, it.Pct)
	}
	return out, nil
}

func (f *RateFold) add(patientID string, ts time.Time, offsetMin int, v float64) {
	h := HourRef{patientID, HourKeyFor(ts, offsetMin)}
	d := DayRef{patientID, DayKeyFor(ts, offsetMin)}
	ha := f.Hours[h]
	if ha == nil {
		ha = &RateAcc{}
		f.Hours[h] = ha
	}
	ha.Add(v)
	da := f.Days[d]
	if da == nil {
		da = &RateAcc{}
		f.Days[d] = da
	}
	da.Add(v)
}
