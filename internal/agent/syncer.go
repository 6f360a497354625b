package agent

import (
	"context"
	"errors"
	"sync"

	"vitalink-data/internal/config"
	"vitalink-data/internal/wire"

	"go.uber.org/zap"
)

// ErrSyncInProgress a drain is already running; the trigger is dropped, not
// queued, because the running drain will pick up everything pending anyway.
var ErrSyncInProgress = errors.New("sync already in progress")

// uploader is what the Syncer needs from the HTTP side (interface for tests).
type uploader interface {
	UploadSteps(ctx context.Context, userID string, batch wire.StepsBatch) (*wire.IngestResult, error)
	UploadDistance(ctx context.Context, userID string, batch wire.DistanceBatch) (*wire.IngestResult, error)
	UploadHr(ctx context.Context, userID string, batch wire.HrBatch) (*wire.IngestResult, error)
	UploadSpo2(ctx context.Context, userID string, batch wire.Spo2Batch) (*wire.IngestResult, error)
}

// DrainStats what one drain accomplished. Remaining counts records still
// queued afterwards, nonzero when an upload leg failed mid-way.
type DrainStats struct {
	Uploaded  int
	Inserted  int
	Remaining int
}

// Syncer drains the pending queue to the server. Queue entries are removed
// chunk by chunk, only after the server acknowledged that chunk, so a crash
// or network loss mid-drain re-sends at most one chunk, which the server
// deduplicates by recordUid. Drains are single-flight.
type Syncer struct {
	store  PendingStore
	up     uploader
	cfg    *config.AgentConfig
	logger *zap.Logger
	mu     sync.Mutex
}

func NewSyncer(store PendingStore, up uploader, cfg *config.AgentConfig, logger *zap.Logger) *Syncer {
	return &Syncer{store: store, up: up, cfg: cfg, logger: logger}
}

func (s *Syncer) Drain(ctx context.Context) (*DrainStats, error) {
	if !s.mu.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer s.mu.Unlock()

	stats := &DrainStats{}
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	record(s.drainSteps(ctx, stats))
	record(s.drainDistance(ctx, stats))
	record(s.drainHr(ctx, stats))
	record(s.drainSpo2(ctx, stats))

	remaining, err := s.store.Size(ctx)
	if err == nil {
		stats.Remaining = remaining
	}
	if firstErr != nil {
		s.logger.Warn("drain finished with errors",
			zap.Int("uploaded", stats.Uploaded),
			zap.Int("remaining", stats.Remaining),
			zap.Error(firstErr))
	} else {
		s.logger.Info("drain finished",
			zap.Int("uploaded", stats.Uploaded),
			zap.Int("inserted", stats.Inserted))
	}
	return stats, firstErr
}

func (s *Syncer) chunkSize() int {
	if s.cfg.BatchSize > 0 {
		return s.cfg.BatchSize
	}
	return 500
}

func (s *Syncer) hrChunkSize() int {
	if s.cfg.HRChunkSize > 0 {
		return s.cfg.HRChunkSize
	}
	return 500
}

func (s *Syncer) drainSteps(ctx context.Context, stats *DrainStats) error {
	items, err := s.store.PendingSteps(ctx)
	if err != nil {
		return err
	}
	size := s.chunkSize()
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunk := items[start:end]
		res, err := s.up.UploadSteps(ctx, s.cfg.PatientID, wire.StepsBatch{
			PatientID: s.cfg.PatientID,
			Records:   chunk,
		})
		if err != nil {
			return err
		}
		uids := make([]string, 0, len(chunk))
		for _, it := range chunk {
			uids = append(uids, it.RecordUID)
		}
		if err := s.store.RemoveSteps(ctx, uids); err != nil {
			return err
		}
		stats.Uploaded += len(chunk)
		stats.Inserted += res.Inserted
	}
	return nil
}

func (s *Syncer) drainDistance(ctx context.Context, stats *DrainStats) error {
	items, err := s.store.PendingDistance(ctx)
	if err != nil {
		return err
	}
	size := s.chunkSize()
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunk := items[start:end]
		res, err := s.up.UploadDistance(ctx, s.cfg.PatientID, wire.DistanceBatch{
			PatientID: s.cfg.PatientID,
			Records:   chunk,
		})
		if err != nil {
			return err
		}
		uids := make([]string, 0, len(chunk))
		for _, it := range chunk {
			uids = append(uids, it.RecordUID)
		}
		if err := s.store.RemoveDistance(ctx, uids); err != nil {
			return err
		}
		stats.Uploaded += len(chunk)
		stats.Inserted += res.Inserted
	}
	return nil
}

func (s *Syncer) drainHr(ctx context.Context, stats *DrainStats) error {
	items, err := s.store.PendingHr(ctx)
	if err != nil {
		return err
	}
	size := s.hrChunkSize()
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunk := items[start:end]
		res, err := s.up.UploadHr(ctx, s.cfg.PatientID, wire.HrBatch{
			PatientID: s.cfg.PatientID,
			Records:   chunk,
		})
		if err != nil {
			return err
		}
		uids := make([]string, 0, len(chunk))
		for _, it := range chunk {
			uids = append(uids, it.RecordUID)
		}
		if err := s.store.RemoveHr(ctx, uids); err != nil {
			return err
		}
		stats.Uploaded += len(chunk)
		stats.Inserted += res.Inserted
	}
	return nil
}

func (s *Syncer) drainSpo2(ctx context.Context, stats *DrainStats) error {
	items, err := s.store.PendingSpo2(ctx)
	if err != nil {
		return err
	}
	size := s.chunkSize()
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunk := items[start:end]
		res, err := s.up.UploadSpo2(ctx, s.cfg.PatientID, wire.Spo2Batch{
			PatientID: s.cfg.PatientID,
			Records:   chunk,
		})
		if err != nil {
			return err
		}
		uids := make([]string, 0, len(chunk))
		for _, it := range chunk {
			uids = append(uids, it.RecordUID)
		}
		if err := s.store.RemoveSpo2(ctx, uids); err != nil {
			return err
		}
		stats.Uploaded += len(chunk)
		stats.Inserted += res.Inserted
	}
	return nil
}
