package repository

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"vitalink-data/internal/domain"
)

type MemoryBPRepository struct {
	mu       sync.RWMutex
	nextID   int64
	readings map[int64]domain.BPReading
}

func NewMemoryBPRepository() *MemoryBPRepository {
	return &MemoryBPRepository{nextID: 1, readings: map[int64]domain.BPReading{}}
}

var _ BPRepository = (*MemoryBPRepository)(nil)

func readingInstant(bp domain.BPReading) (time.Time, error) {
	return time.Parse("2006-01-02 15:04:05", bp.ReadingDate+" "+bp.ReadingTime)
}

func (r *MemoryBPRepository) AddReading(_ context.Context, bp domain.BPReading) (bool, error) {
	if bp.PatientID == "" {
		return false, fmt.Errorf("patient_id is required")
	}
	at, err := readingInstant(bp)
	if err != nil {
		return false, fmt.Errorf("invalid reading timestamp: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ex := range r.readings {
		if ex.PatientID != bp.PatientID || ex.ReadingDate != bp.ReadingDate {
			continue
		}
		exAt, err := readingInstant(ex)
		if err != nil {
			continue
		}
		if math.Abs(at.Sub(exAt).Seconds()) <= 10 &&
			abs(ex.Systolic-bp.Systolic) <= 5 &&
			abs(ex.Diastolic-bp.Diastolic) <= 5 {
			return false, nil
		}
	}

	bp.ID = r.nextID
	bp.CreatedAt = time.Now().UTC()
	r.nextID++
	r.readings[bp.ID] = bp
	return true, nil
}

func (r *MemoryBPRepository) LatestReading(_ context.Context, patientID string) (*domain.BPReading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best *domain.BPReading
	for _, bp := range r.readings {
		if bp.PatientID != patientID {
			continue
		}
		if best == nil ||
			bp.ReadingDate > best.ReadingDate ||
			(bp.ReadingDate == best.ReadingDate && bp.ReadingTime > best.ReadingTime) {
			cp := bp
			best = &cp
		}
	}
	return best, nil
}

func (r *MemoryBPRepository) ListReadings(_ context.Context, patientID string, from, to domain.DayKey) ([]domain.BPReading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.BPReading{}
	for _, bp := range r.readings {
		if bp.PatientID == patientID && domain.DayKey(bp.ReadingDate) >= from && domain.DayKey(bp.ReadingDate) <= to {
			out = append(out, bp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ReadingDate != out[j].ReadingDate {
			return out[i].ReadingDate < out[j].ReadingDate
		}
		return out[i].ReadingTime < out[j].ReadingTime
	})
	return out, nil
}

func (r *MemoryBPRepository) deletePatient(patientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, bp := range r.readings {
		if bp.PatientID == patientID {
			delete(r.readings, id)
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
