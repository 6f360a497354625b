package agent

import (
	"context"
	"sync"

	"vitalink-data/internal/wire"

	"go.uber.org/zap"
)

// PendingStore the device-side offline queue. Records are keyed by their
// recordUid so a sampler that re-reads an interval enqueues it once; entries
// survive until the server acknowledges them. Add* reports how many records
// were actually queued, so a caller can see drops when the queue is at
// capacity.
type PendingStore interface {
	AddSteps(ctx context.Context, items []wire.StepsEvent) (int, error)
	AddDistance(ctx context.Context, items []wire.DistanceEvent) (int, error)
	AddHr(ctx context.Context, items []wire.HrSample) (int, error)
	AddSpo2(ctx context.Context, items []wire.Spo2Sample) (int, error)

	PendingSteps(ctx context.Context) ([]wire.StepsEvent, error)
	PendingDistance(ctx context.Context) ([]wire.DistanceEvent, error)
	PendingHr(ctx context.Context) ([]wire.HrSample, error)
	PendingSpo2(ctx context.Context) ([]wire.Spo2Sample, error)

	RemoveSteps(ctx context.Context, uids []string) error
	RemoveDistance(ctx context.Context, uids []string) error
	RemoveHr(ctx context.Context, uids []string) error
	RemoveSpo2(ctx context.Context, uids []string) error

	// Size is the total entries queued across all metrics.
	Size(ctx context.Context) (int, error)
}

// warnFraction logs once the queue crosses this share of its capacity.
const warnFraction = 0.8

// MemoryPendingStore in-process queue, the default backend. Capacity is
// shared across metrics; at capacity new records are dropped, never queued
// ones, because queued records are older and closer to being acknowledged.
type MemoryPendingStore struct {
	mu       sync.Mutex
	cap      int
	warned   bool
	steps    map[string]wire.StepsEvent
	distance map[string]wire.DistanceEvent
	hr       map[string]wire.HrSample
	spo2     map[string]wire.Spo2Sample
	logger   *zap.Logger
}

func NewMemoryPendingStore(capacity int, logger *zap.Logger) *MemoryPendingStore {
	return &MemoryPendingStore{
		cap:      capacity,
		steps:    map[string]wire.StepsEvent{},
		distance: map[string]wire.DistanceEvent{},
		hr:       map[string]wire.HrSample{},
		spo2:     map[string]wire.Spo2Sample{},
		logger:   logger,
	}
}

var _ PendingStore = (*MemoryPendingStore)(nil)

func (s *MemoryPendingStore) size() int {
	return len(s.steps) + len(s.distance) + len(s.hr) + len(s.spo2)
}

// room checks capacity and emits the high-water warning. Caller holds the
// lock.
func (s *MemoryPendingStore) room() bool {
	n := s.size()
	if s.cap > 0 && !s.warned && float64(n) >= warnFraction*float64(s.cap) {
		s.warned = true
		s.logger.Warn("pending queue nearing capacity",
			zap.Int("size", n), zap.Int("cap", s.cap))
	}
	if s.cap > 0 && n >= s.cap {
		return false
	}
	if s.cap > 0 && float64(n) < warnFraction*float64(s.cap) {
		s.warned = false
	}
	return true
}

func (s *MemoryPendingStore) AddSteps(_ context.Context, items []wire.StepsEvent) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, it := range items {
		if it.RecordUID == "" {
			continue
		}
		if _, ok := s.steps[it.RecordUID]; ok {
			continue
		}
		if !s.room() {
			s.logger.Warn("pending queue full, dropping steps record", zap.String("record_uid", it.RecordUID))
			continue
		}
		s.steps[it.RecordUID] = it
		added++
	}
	return added, nil
}

func (s *MemoryPendingStore) AddDistance(_ context.Context, items []wire.DistanceEvent) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, it := range items {
		if it.RecordUID == "" {
			continue
		}
		if _, ok := s.distance[it.RecordUID]; ok {
			continue
		}
		if !s.room() {
			s.logger.Warn("pending queue full, dropping distance record", zap.String("record_uid", it.RecordUID))
			continue
		}
		s.distance[it.RecordUID] = it
		added++
	}
	return added, nil
}

func (s *MemoryPendingStore) AddHr(_ context.Context, items []wire.HrSample) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, it := range items {
		if it.RecordUID == "" {
			continue
		}
		if _, ok := s.hr[it.RecordUID]; ok {
			continue
		}
		if !s.room() {
			s.logger.Warn("pending queue full, dropping hr record", zap.String("record_uid", it.RecordUID))
			continue
		}
		s.hr[it.RecordUID] = it
		added++
	}
	return added, nil
}

func (s *MemoryPendingStore) AddSpo2(_ context.Context, items []wire.Spo2Sample) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, it := range items {
		if it.RecordUID == "" {
			continue
		}
		if _, ok := s.spo2[it.RecordUID]; ok {
			continue
		}
		if !s.room() {
			s.logger.Warn("pending queue full, dropping spo2 record", zap.String("record_uid", it.RecordUID))
			continue
		}
		s.spo2[it.RecordUID] = it
		added++
	}
	return added, nil
}

func (s *MemoryPendingStore) PendingSteps(_ context.Context) ([]wire.StepsEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]wire.StepsEvent, 0, len(s.steps))
	for _, it := range s.steps {
		out = append(out, it)
	}
	sortByEndTs(out)
	return out, nil
}

func (s *MemoryPendingStore) PendingDistance(_ context.Context) ([]wire.DistanceEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]wire.DistanceEvent, 0, len(s.distance))
	for _, it := range s.distance {
		out = append(out, it)
	}
	sortDistanceByEndTs(out)
	return out, nil
}

func (s *MemoryPendingStore) PendingHr(_ context.Context) ([]wire.HrSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]wire.HrSample, 0, len(s.hr))
	for _, it := range s.hr {
		out = append(out, it)
	}
	sortHrByTimeTs(out)
	return out, nil
}

func (s *MemoryPendingStore) PendingSpo2(_ context.Context) ([]wire.Spo2Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]wire.Spo2Sample, 0, len(s.spo2))
	for _, it := range s.spo2 {
		out = append(out, it)
	}
	sortSpo2ByTimeTs(out)
	return out, nil
}

func (s *MemoryPendingStore) RemoveSteps(_ context.Context, uids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, uid := range uids {
		delete(s.steps, uid)
	}
	return nil
}

func (s *MemoryPendingStore) RemoveDistance(_ context.Context, uids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, uid := range uids {
		delete(s.distance, uid)
	}
	return nil
}

func (s *MemoryPendingStore) RemoveHr(_ context.Context, uids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, uid := range uids {
		delete(s.hr, uid)
	}
	return nil
}

func (s *MemoryPendingStore) RemoveSpo2(_ context.Context, uids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, uid := range uids {
		delete(s.spo2, uid)
	}
	return nil
}

func (s *MemoryPendingStore) Size(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size(), nil
}
