package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"vitalink-data/internal/domain"
	"vitalink-data/internal/vitals"
)

// MemorySamplesRepository supports dev mode and tests when DB is disabled.
// Bucket filtering goes through the same key derivation the aggregation code
// uses, so memory and Postgres agree on bucket membership.
type MemorySamplesRepository struct {
	mu       sync.RWMutex
	steps    map[string]domain.StepsEvent
	distance map[string]domain.DistanceEvent
	hr       map[string]domain.HrSample
	spo2     map[string]domain.Spo2Sample
}

func NewMemorySamplesRepository() *MemorySamplesRepository {
	return &MemorySamplesRepository{
		steps:    map[string]domain.StepsEvent{},
		distance: map[string]domain.DistanceEvent{},
		hr:       map[string]domain.HrSample{},
		spo2:     map[string]domain.Spo2Sample{},
	}
}

var _ SamplesRepository = (*MemorySamplesRepository)(nil)

func (r *MemorySamplesRepository) UpsertSteps(_ context.Context, items []domain.StepsEvent) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inserted := 0
	for _, it := range items {
		if _, ok := r.steps[it.RecordUID]; ok {
			continue
		}
		r.steps[it.RecordUID] = it
		inserted++
	}
	return inserted, nil
}

func (r *MemorySamplesRepository) UpsertDistance(_ context.Context, items []domain.DistanceEvent) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inserted := 0
	for _, it := range items {
		if _, ok := r.distance[it.RecordUID]; ok {
			continue
		}
		r.distance[it.RecordUID] = it
		inserted++
	}
	return inserted, nil
}

func (r *MemorySamplesRepository) UpsertHr(_ context.Context, items []domain.HrSample) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inserted := 0
	for _, it := range items {
		if _, ok := r.hr[it.RecordUID]; ok {
			continue
		}
		r.hr[it.RecordUID] = it
		inserted++
	}
	return inserted, nil
}

func (r *MemorySamplesRepository) UpsertSpo2(_ context.Context, items []domain.Spo2Sample) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inserted := 0
	for _, it := range items {
		if _, ok := r.spo2[it.RecordUID]; ok {
			continue
		}
		r.spo2[it.RecordUID] = it
		inserted++
	}
	return inserted, nil
}

func (r *MemorySamplesRepository) ListStepsForHour(_ context.Context, patientID string, hour domain.HourKey) ([]domain.StepsEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.StepsEvent{}
	for _, it := range r.steps {
		if it.PatientID == patientID && vitals.HourKeyFor(it.EndTs, it.TzOffsetMin) == hour {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndTs.Before(out[j].EndTs) })
	return out, nil
}

func (r *MemorySamplesRepository) ListStepsForDay(_ context.Context, patientID string, day domain.DayKey) ([]domain.StepsEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.StepsEvent{}
	for _, it := range r.steps {
		if it.PatientID == patientID && vitals.DayKeyFor(it.EndTs, it.TzOffsetMin) == day {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndTs.Before(out[j].EndTs) })
	return out, nil
}

func (r *MemorySamplesRepository) ListDistanceForHour(_ context.Context, patientID string, hour domain.HourKey) ([]domain.DistanceEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.DistanceEvent{}
	for _, it := range r.distance {
		if it.PatientID == patientID && vitals.HourKeyFor(it.EndTs, it.TzOffsetMin) == hour {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndTs.Before(out[j].EndTs) })
	return out, nil
}

func (r *MemorySamplesRepository) ListDistanceForDay(_ context.Context, patientID string, day domain.DayKey) ([]domain.DistanceEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.DistanceEvent{}
	for _, it := range r.distance {
		if it.PatientID == patientID && vitals.DayKeyFor(it.EndTs, it.TzOffsetMin) == day {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndTs.Before(out[j].EndTs) })
	return out, nil
}

func (r *MemorySamplesRepository) ListHrForHour(_ context.Context, patientID string, hour domain.HourKey) ([]domain.HrSample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.HrSample{}
	for _, it := range r.hr {
		if it.PatientID == patientID && vitals.HourKeyFor(it.TimeTs, it.TzOffsetMin) == hour {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TimeTs.Before(out[j].TimeTs) })
	return out, nil
}

func (r *MemorySamplesRepository) ListHrForDay(_ context.Context, patientID string, day domain.DayKey) ([]domain.HrSample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.HrSample{}
	for _, it := range r.hr {
		if it.PatientID == patientID && vitals.DayKeyFor(it.TimeTs, it.TzOffsetMin) == day {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TimeTs.Before(out[j].TimeTs) })
	return out, nil
}

func (r *MemorySamplesRepository) ListSpo2ForHour(_ context.Context, patientID string, hour domain.HourKey) ([]domain.Spo2Sample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.Spo2Sample{}
	for _, it := range r.spo2 {
		if it.PatientID == patientID && vitals.HourKeyFor(it.TimeTs, it.TzOffsetMin) == hour {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TimeTs.Before(out[j].TimeTs) })
	return out, nil
}

func (r *MemorySamplesRepository) ListSpo2ForDay(_ context.Context, patientID string, day domain.DayKey) ([]domain.Spo2Sample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.Spo2Sample{}
	for _, it := range r.spo2 {
		if it.PatientID == patientID && vitals.DayKeyFor(it.TimeTs, it.TzOffsetMin) == day {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TimeTs.Before(out[j].TimeTs) })
	return out, nil
}

func (r *MemorySamplesRepository) LatestRawTimestamp(_ context.Context, patientID string) (time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest time.Time
	for _, it := range r.steps {
		if it.PatientID == patientID && it.EndTs.After(latest) {
			latest = it.EndTs
		}
	}
	for _, it := range r.distance {
		if it.PatientID == patientID && it.EndTs.After(latest) {
			latest = it.EndTs
		}
	}
	for _, it := range r.hr {
		if it.PatientID == patientID && it.TimeTs.After(latest) {
			latest = it.TimeTs
		}
	}
	for _, it := range r.spo2 {
		if it.PatientID == patientID && it.TimeTs.After(latest) {
			latest = it.TimeTs
		}
	}
	return latest, nil
}

func (r *MemorySamplesRepository) deletePatient(patientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, it := range r.steps {
		if it.PatientID == patientID {
			delete(r.steps, k)
		}
	}
	for k, it := range r.distance {
		if it.PatientID == patientID {
			delete(r.distance, k)
		}
	}
	for k, it := range r.hr {
		if it.PatientID == patientID {
			delete(r.hr, k)
		}
	}
	for k, it := range r.spo2 {
		if it.PatientID == patientID {
			delete(r.spo2, k)
		}
	}
}
