package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"vitalink-data/internal/config"
	"vitalink-data/internal/wire"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeUploader records batches and can fail per metric.
type fakeUploader struct {
	mu           sync.Mutex
	stepsBatches []wire.StepsBatch
	hrBatches    []wire.HrBatch
	failSteps    bool
	failHr       bool
	hrOKBefore   int // when >0, UploadHr succeeds this many times then fails
	hrCalls      int
	block        chan struct{}
}

func (f *fakeUploader) UploadSteps(_ context.Context, _ string, b wire.StepsBatch) (*wire.IngestResult, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSteps {
		return nil, errors.New("network down")
	}
	f.stepsBatches = append(f.stepsBatches, b)
	return &wire.IngestResult{Inserted: len(b.Records)}, nil
}

func (f *fakeUploader) UploadDistance(_ context.Context, _ string, b wire.DistanceBatch) (*wire.IngestResult, error) {
	return &wire.IngestResult{Inserted: len(b.Records)}, nil
}

func (f *fakeUploader) UploadHr(_ context.Context, _ string, b wire.HrBatch) (*wire.IngestResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hrCalls++
	if f.failHr || (f.hrOKBefore > 0 && f.hrCalls > f.hrOKBefore) {
		return nil, errors.New("network down")
	}
	f.hrBatches = append(f.hrBatches, b)
	return &wire.IngestResult{Inserted: len(b.Records)}, nil
}

func (f *fakeUploader) UploadSpo2(_ context.Context, _ string, b wire.Spo2Batch) (*wire.IngestResult, error) {
	return &wire.IngestResult{Inserted: len(b.Records)}, nil
}

func agentCfg() *config.AgentConfig {
	return &config.AgentConfig{
		PatientID:   "p1",
		BatchSize:   100,
		HRChunkSize: 3,
		QueueCap:    1000,
	}
}

func stepsRecord(i int) wire.StepsEvent {
	end := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC).Add(time.Duration(i) * 5 * time.Minute)
	return wire.StepsEvent{
		OriginID:    "o",
		DeviceID:    "d",
		StartTs:     wire.FormatTime(end.Add(-5 * time.Minute)),
		EndTs:       wire.FormatTime(end),
		Count:       int64(10 + i),
		RecordUID:   fmt.Sprintf("steps-%03d", i),
		TzOffsetMin: 0,
	}
}

func hrRecord(i int) wire.HrSample {
	ts := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute)
	return wire.HrSample{
		OriginID:    "o",
		DeviceID:    "d",
		TimeTs:      wire.FormatTime(ts),
		Bpm:         int64(60 + i),
		RecordUID:   fmt.Sprintf("hr-%03d", i),
		TzOffsetMin: 0,
	}
}

func TestDrain_RemovesAcknowledgedRecords(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPendingStore(1000, zap.NewNop())
	up := &fakeUploader{}
	syncer := NewSyncer(store, up, agentCfg(), zap.NewNop())

	_, err := store.AddSteps(ctx, []wire.StepsEvent{stepsRecord(0), stepsRecord(1)})
	require.NoError(t, err)

	stats, err := syncer.Drain(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Uploaded)
	require.Equal(t, 2, stats.Inserted)
	require.Equal(t, 0, stats.Remaining)

	size, err := store.Size(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, size)
}

func TestDrain_ChunksHeartRate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPendingStore(1000, zap.NewNop())
	up := &fakeUploader{}
	syncer := NewSyncer(store, up, agentCfg(), zap.NewNop())

	var items []wire.HrSample
	for i := 0; i < 7; i++ {
		items = append(items, hrRecord(i))
	}
	_, err := store.AddHr(ctx, items)
	require.NoError(t, err)

	stats, err := syncer.Drain(ctx)
	require.NoError(t, err)
	require.Equal(t, 7, stats.Uploaded)
	require.Len(t, up.hrBatches, 3)
	require.Len(t, up.hrBatches[0].Records, 3)
	require.Len(t, up.hrBatches[2].Records, 1)
	// Chunks drain oldest first.
	require.Equal(t, "hr-000", up.hrBatches[0].Records[0].RecordUID)
}

func TestDrain_FailedMetricKeepsQueueAndContinues(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPendingStore(1000, zap.NewNop())
	up := &fakeUploader{failSteps: true}
	syncer := NewSyncer(store, up, agentCfg(), zap.NewNop())

	_, err := store.AddSteps(ctx, []wire.StepsEvent{stepsRecord(0)})
	require.NoError(t, err)
	_, err = store.AddHr(ctx, []wire.HrSample{hrRecord(0)})
	require.NoError(t, err)

	stats, err := syncer.Drain(ctx)
	require.Error(t, err)
	// Heart rate still drained despite the steps failure.
	require.Equal(t, 1, stats.Uploaded)
	require.Equal(t, 1, stats.Remaining)

	pending, err := store.PendingSteps(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func TestDrain_SingleFlight(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPendingStore(1000, zap.NewNop())
	up := &fakeUploader{block: make(chan struct{})}
	syncer := NewSyncer(store, up, agentCfg(), zap.NewNop())

	_, err := store.AddSteps(ctx, []wire.StepsEvent{stepsRecord(0)})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = syncer.Drain(ctx)
	}()

	// Wait for the first drain to reach the blocked upload, then a second
	// trigger must bounce instead of queueing.
	require.Eventually(t, func() bool {
		_, err := syncer.Drain(ctx)
		return errors.Is(err, ErrSyncInProgress)
	}, time.Second, 5*time.Millisecond)

	close(up.block)
	<-done
}

func TestDrain_PartialChunkFailureKeepsRemainder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPendingStore(1000, zap.NewNop())
	up := &fakeUploader{hrOKBefore: 1}
	syncer := NewSyncer(store, up, agentCfg(), zap.NewNop())

	var items []wire.HrSample
	for i := 0; i < 5; i++ {
		items = append(items, hrRecord(i))
	}
	_, err := store.AddHr(ctx, items)
	require.NoError(t, err)

	// First chunk of 3 goes through, then the link drops: the acknowledged
	// chunk is gone, the remainder stays for the next drain.
	stats, err := syncer.Drain(ctx)
	require.Error(t, err)
	require.Equal(t, 3, stats.Uploaded)

	pending, err := store.PendingHr(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, "hr-003", pending[0].RecordUID)
}

func TestMemoryPendingStore_DedupsAndCaps(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPendingStore(3, zap.NewNop())

	added, err := store.AddSteps(ctx, []wire.StepsEvent{stepsRecord(0), stepsRecord(0)})
	require.NoError(t, err)
	require.Equal(t, 1, added)

	added, err = store.AddSteps(ctx, []wire.StepsEvent{stepsRecord(1), stepsRecord(2), stepsRecord(3)})
	require.NoError(t, err)
	require.Equal(t, 2, added)

	// Queue is full: new records drop, queued ones stay.
	size, err := store.Size(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, size)

	pending, err := store.PendingSteps(ctx)
	require.NoError(t, err)
	require.Equal(t, "steps-000", pending[0].RecordUID)
}

func TestMemoryPendingStore_SkipsEmptyUID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPendingStore(10, zap.NewNop())

	rec := stepsRecord(0)
	rec.RecordUID = ""
	added, err := store.AddSteps(ctx, []wire.StepsEvent{rec})
	require.NoError(t, err)
	require.Equal(t, 0, added)
}
