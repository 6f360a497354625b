package repository

import (
	"context"
	"sort"
	"sync"

	"vitalink-data/internal/domain"
)

type hourKeyRef struct {
	patientID string
	hour      domain.HourKey
}

type dayKeyRef struct {
	patientID string
	day       domain.DayKey
}

type MemoryAggregatesRepository struct {
	mu           sync.RWMutex
	stepsHour    map[hourKeyRef]domain.StepsHour
	stepsDay     map[dayKeyRef]domain.StepsDay
	distanceHour map[hourKeyRef]domain.DistanceHour
	distanceDay  map[dayKeyRef]domain.DistanceDay
	hrHour       map[hourKeyRef]domain.HrHour
	hrDay        map[dayKeyRef]domain.HrDay
	spo2Hour     map[hourKeyRef]domain.Spo2Hour
	spo2Day      map[dayKeyRef]domain.Spo2Day
}

func NewMemoryAggregatesRepository() *MemoryAggregatesRepository {
	return &MemoryAggregatesRepository{
		stepsHour:    map[hourKeyRef]domain.StepsHour{},
		stepsDay:     map[dayKeyRef]domain.StepsDay{},
		distanceHour: map[hourKeyRef]domain.DistanceHour{},
		distanceDay:  map[dayKeyRef]domain.DistanceDay{},
		hrHour:       map[hourKeyRef]domain.HrHour{},
		hrDay:        map[dayKeyRef]domain.HrDay{},
		spo2Hour:     map[hourKeyRef]domain.Spo2Hour{},
		spo2Day:      map[dayKeyRef]domain.Spo2Day{},
	}
}

var _ AggregatesRepository = (*MemoryAggregatesRepository)(nil)

func (r *MemoryAggregatesRepository) UpsertStepsHour(_ context.Context, row domain.StepsHour) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stepsHour[hourKeyRef{row.PatientID, row.HourTs}] = row
	return nil
}

func (r *MemoryAggregatesRepository) UpsertStepsDay(_ context.Context, row domain.StepsDay) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stepsDay[dayKeyRef{row.PatientID, row.Date}] = row
	return nil
}

func (r *MemoryAggregatesRepository) UpsertDistanceHour(_ context.Context, row domain.DistanceHour) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.distanceHour[hourKeyRef{row.PatientID, row.HourTs}] = row
	return nil
}

func (r *MemoryAggregatesRepository) UpsertDistanceDay(_ context.Context, row domain.DistanceDay) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.distanceDay[dayKeyRef{row.PatientID, row.Date}] = row
	return nil
}

func (r *MemoryAggregatesRepository) UpsertHrHour(_ context.Context, row domain.HrHour) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hrHour[hourKeyRef{row.PatientID, row.HourTs}] = row
	return nil
}

func (r *MemoryAggregatesRepository) UpsertHrDay(_ context.Context, row domain.HrDay) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hrDay[dayKeyRef{row.PatientID, row.Date}] = row
	return nil
}

func (r *MemoryAggregatesRepository) UpsertSpo2Hour(_ context.Context, row domain.Spo2Hour) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spo2Hour[hourKeyRef{row.PatientID, row.HourTs}] = row
	return nil
}

func (r *MemoryAggregatesRepository) UpsertSpo2Day(_ context.Context, row domain.Spo2Day) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spo2Day[dayKeyRef{row.PatientID, row.Date}] = row
	return nil
}

func (r *MemoryAggregatesRepository) LatestStepsDay(_ context.Context, patientID string) (*domain.StepsDay, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best *domain.StepsDay
	for k, row := range r.stepsDay {
		if k.patientID != patientID {
			continue
		}
		if best == nil || row.Date > best.Date {
			cp := row
			best = &cp
		}
	}
	return best, nil
}

func (r *MemoryAggregatesRepository) LatestDistanceDay(_ context.Context, patientID string) (*domain.DistanceDay, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best *domain.DistanceDay
	for k, row := range r.distanceDay {
		if k.patientID != patientID {
			continue
		}
		if best == nil || row.Date > best.Date {
			cp := row
			best = &cp
		}
	}
	return best, nil
}

func (r *MemoryAggregatesRepository) LatestHrDay(_ context.Context, patientID string) (*domain.HrDay, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best *domain.HrDay
	for k, row := range r.hrDay {
		if k.patientID != patientID {
			continue
		}
		if best == nil || row.Date > best.Date {
			cp := row
			best = &cp
		}
	}
	return best, nil
}

func (r *MemoryAggregatesRepository) LatestSpo2Day(_ context.Context, patientID string) (*domain.Spo2Day, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best *domain.Spo2Day
	for k, row := range r.spo2Day {
		if k.patientID != patientID {
			continue
		}
		if best == nil || row.Date > best.Date {
			cp := row
			best = &cp
		}
	}
	return best, nil
}

func (r *MemoryAggregatesRepository) ListStepsHourForDay(_ context.Context, patientID string, day domain.DayKey) ([]domain.StepsHour, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.StepsHour{}
	for k, row := range r.stepsHour {
		if k.patientID == patientID && row.HourTs.Day() == day {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HourTs < out[j].HourTs })
	return out, nil
}

func (r *MemoryAggregatesRepository) ListDistanceHourForDay(_ context.Context, patientID string, day domain.DayKey) ([]domain.DistanceHour, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.DistanceHour{}
	for k, row := range r.distanceHour {
		if k.patientID == patientID && row.HourTs.Day() == day {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HourTs < out[j].HourTs })
	return out, nil
}

func (r *MemoryAggregatesRepository) ListHrHourForDay(_ context.Context, patientID string, day domain.DayKey) ([]domain.HrHour, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.HrHour{}
	for k, row := range r.hrHour {
		if k.patientID == patientID && row.HourTs.Day() == day {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HourTs < out[j].HourTs })
	return out, nil
}

func (r *MemoryAggregatesRepository) ListSpo2HourForDay(_ context.Context, patientID string, day domain.DayKey) ([]domain.Spo2Hour, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.Spo2Hour{}
	for k, row := range r.spo2Hour {
		if k.patientID == patientID && row.HourTs.Day() == day {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HourTs < out[j].HourTs })
	return out, nil
}

func (r *MemoryAggregatesRepository) ListStepsDayRange(_ context.Context, patientID string, from, to domain.DayKey) ([]domain.StepsDay, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.StepsDay{}
	for k, row := range r.stepsDay {
		if k.patientID == patientID && row.Date >= from && row.Date <= to {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (r *MemoryAggregatesRepository) ListDistanceDayRange(_ context.Context, patientID string, from, to domain.DayKey) ([]domain.DistanceDay, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.DistanceDay{}
	for k, row := range r.distanceDay {
		if k.patientID == patientID && row.Date >= from && row.Date <= to {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (r *MemoryAggregatesRepository) ListHrDayRange(_ context.Context, patientID string, from, to domain.DayKey) ([]domain.HrDay, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.HrDay{}
	for k, row := range r.hrDay {
		if k.patientID == patientID && row.Date >= from && row.Date <= to {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (r *MemoryAggregatesRepository) ListSpo2DayRange(_ context.Context, patientID string, from, to domain.DayKey) ([]domain.Spo2Day, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.Spo2Day{}
	for k, row := range r.spo2Day {
		if k.patientID == patientID && row.Date >= from && row.Date <= to {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (r *MemoryAggregatesRepository) deletePatient(patientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.stepsHour {
		if k.patientID == patientID {
			delete(r.stepsHour, k)
		}
	}
	for k := range r.stepsDay {
		if k.patientID == patientID {
			delete(r.stepsDay, k)
		}
	}
	for k := range r.distanceHour {
		if k.patientID == patientID {
			delete(r.distanceHour, k)
		}
	}
	for k := range r.distanceDay {
		if k.patientID == patientID {
			delete(r.distanceDay, k)
		}
	}
	for k := range r.hrHour {
		if k.patientID == patientID {
			delete(r.hrHour, k)
		}
	}
	for k := range r.hrDay {
		if k.patientID == patientID {
			delete(r.hrDay, k)
		}
	}
	for k := range r.spo2Hour {
		if k.patientID == patientID {
			delete(r.spo2Hour, k)
		}
	}
	for k := range r.spo2Day {
		if k.patientID == patientID {
			delete(r.spo2Day, k)
		}
	}
}
