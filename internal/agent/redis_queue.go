package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"vitalink-data/internal/wire"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisPendingStore queue backend that survives agent restarts. Each metric
// is one hash keyed by recordUid; HSETNX gives the same insert-or-ignore
// semantics as the memory backend.
type RedisPendingStore struct {
	c      *redis.Client
	prefix string
	cap    int
	logger *zap.Logger
}

func NewRedisPendingStore(c *redis.Client, prefix string, capacity int, logger *zap.Logger) *RedisPendingStore {
	if prefix == "" {
		prefix = "vitalink:agent:pending"
	}
	return &RedisPendingStore{c: c, prefix: prefix, cap: capacity, logger: logger}
}

var _ PendingStore = (*RedisPendingStore)(nil)

func (s *RedisPendingStore) key(metric string) string {
	return s.prefix + ":" + metric
}

func (s *RedisPendingStore) add(ctx context.Context, metric, uid string, v any) (bool, error) {
	if uid == "" {
		return false, nil
	}
	total, err := s.Size(ctx)
	if err != nil {
		return false, err
	}
	if s.cap > 0 && float64(total) >= warnFraction*float64(s.cap) {
		s.logger.Warn("pending queue nearing capacity",
			zap.Int("size", total), zap.Int("cap", s.cap))
	}
	if s.cap > 0 && total >= s.cap {
		s.logger.Warn("pending queue full, dropping record",
			zap.String("metric", metric), zap.String("record_uid", uid))
		return false, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("failed to marshal pending record: %w", err)
	}
	added, err := s.c.HSetNX(ctx, s.key(metric), uid, raw).Result()
	if err != nil {
		return false, fmt.Errorf("failed to enqueue record: %w", err)
	}
	return added, nil
}

func (s *RedisPendingStore) AddSteps(ctx context.Context, items []wire.StepsEvent) (int, error) {
	added := 0
	for _, it := range items {
		ok, err := s.add(ctx, "steps", it.RecordUID, it)
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
	return added, nil
}

func (s *RedisPendingStore) AddDistance(ctx context.Context, items []wire.DistanceEvent) (int, error) {
	added := 0
	for _, it := range items {
		ok, err := s.add(ctx, "distance", it.RecordUID, it)
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
	return added, nil
}

func (s *RedisPendingStore) AddHr(ctx context.Context, items []wire.HrSample) (int, error) {
	added := 0
	for _, it := range items {
		ok, err := s.add(ctx, "hr", it.RecordUID, it)
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
	return added, nil
}

func (s *RedisPendingStore) AddSpo2(ctx context.Context, items []wire.Spo2Sample) (int, error) {
	added := 0
	for _, it := range items {
		ok, err := s.add(ctx, "spo2", it.RecordUID, it)
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
	return added, nil
}

func (s *RedisPendingStore) PendingSteps(ctx context.Context) ([]wire.StepsEvent, error) {
	vals, err := s.c.HGetAll(ctx, s.key("steps")).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read pending steps: %w", err)
	}
	out := make([]wire.StepsEvent, 0, len(vals))
	for _, raw := range vals {
		var it wire.StepsEvent
		if err := json.Unmarshal([]byte(raw), &it); err != nil {
			s.logger.Warn("skipping corrupt pending record", zap.Error(err))
			continue
		}
		out = append(out, it)
	}
	sortByEndTs(out)
	return out, nil
}

func (s *RedisPendingStore) PendingDistance(ctx context.Context) ([]wire.DistanceEvent, error) {
	vals, err := s.c.HGetAll(ctx, s.key("distance")).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read pending distance: %w", err)
	}
	out := make([]wire.DistanceEvent, 0, len(vals))
	for _, raw := range vals {
		var it wire.DistanceEvent
		if err := json.Unmarshal([]byte(raw), &it); err != nil {
			s.logger.Warn("skipping corrupt pending record", zap.Error(err))
			continue
		}
		out = append(out, it)
	}
	sortDistanceByEndTs(out)
	return out, nil
}

func (s *RedisPendingStore) PendingHr(ctx context.Context) ([]wire.HrSample, error) {
	vals, err := s.c.HGetAll(ctx, s.key("hr")).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read pending hr: %w", err)
	}
	out := make([]wire.HrSample, 0, len(vals))
	for _, raw := range vals {
		var it wire.HrSample
		if err := json.Unmarshal([]byte(raw), &it); err != nil {
			s.logger.Warn("skipping corrupt pending record", zap.Error(err))
			continue
		}
		out = append(out, it)
	}
	sortHrByTimeTs(out)
	return out, nil
}

func (s *RedisPendingStore) PendingSpo2(ctx context.Context) ([]wire.Spo2Sample, error) {
	vals, err := s.c.HGetAll(ctx, s.key("spo2")).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read pending spo2: %w", err)
	}
	out := make([]wire.Spo2Sample, 0, len(vals))
	for _, raw := range vals {
		var it wire.Spo2Sample
		if err := json.Unmarshal([]byte(raw), &it); err != nil {
			s.logger.Warn("skipping corrupt pending record", zap.Error(err))
			continue
		}
		out = append(out, it)
	}
	sortSpo2ByTimeTs(out)
	return out, nil
}

func (s *RedisPendingStore) remove(ctx context.Context, metric string, uids []string) error {
	if len(uids) == 0 {
		return nil
	}
	if err := s.c.HDel(ctx, s.key(metric), uids...).Err(); err != nil {
		return fmt.Errorf("failed to remove pending records: %w", err)
	}
	return nil
}

func (s *RedisPendingStore) RemoveSteps(ctx context.Context, uids []string) error {
	return s.remove(ctx, "steps", uids)
}

func (s *RedisPendingStore) RemoveDistance(ctx context.Context, uids []string) error {
	return s.remove(ctx, "distance", uids)
}

func (s *RedisPendingStore) RemoveHr(ctx context.Context, uids []string) error {
	return s.remove(ctx, "hr", uids)
}

func (s *RedisPendingStore) RemoveSpo2(ctx context.Context, uids []string) error {
	return s.remove(ctx, "spo2", uids)
}

func (s *RedisPendingStore) Size(ctx context.Context) (int, error) {
	total := 0
	for _, metric := range []string{"steps", "distance", "hr", "spo2"} {
		n, err := s.c.HLen(ctx, s.key(metric)).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to measure pending queue: %w", err)
		}
		total += int(n)
	}
	return total, nil
}
