package agent

import (
	"context"
	"math"
	"math/rand"
	"time"

	"vitalink-data/internal/config"
	"vitalink-data/internal/domain"
	"vitalink-data/internal/wire"

	"go.uber.org/zap"
)

// HealthSource reads vitals recorded on the device between two instants.
// Implementations wrap whatever the platform exposes; records come back in
// wire form with recordUid already set.
type HealthSource interface {
	ReadSteps(ctx context.Context, from, to time.Time) ([]wire.StepsEvent, error)
	ReadDistance(ctx context.Context, from, to time.Time) ([]wire.DistanceEvent, error)
	ReadHr(ctx context.Context, from, to time.Time) ([]wire.HrSample, error)
	ReadSpo2(ctx context.Context, from, to time.Time) ([]wire.Spo2Sample, error)
}

// Collector polls a HealthSource and feeds the pending queue. It tracks the
// last collected instant so each cycle only reads the new window; the queue
// dedups by recordUid, so overlapping windows are harmless.
type Collector struct {
	source HealthSource
	store  PendingStore
	logger *zap.Logger
	last   time.Time
}

func NewCollector(source HealthSource, store PendingStore, logger *zap.Logger) *Collector {
	return &Collector{
		source: source,
		store:  store,
		logger: logger,
		last:   time.Now().Add(-24 * time.Hour),
	}
}

// Collect reads the window since the previous collection and enqueues
// everything. A failed metric leaves the window open so the next cycle
// re-reads it.
func (c *Collector) Collect(ctx context.Context) error {
	now := time.Now()
	from, to := c.last, now

	steps, err := c.source.ReadSteps(ctx, from, to)
	if err != nil {
		return err
	}
	distance, err := c.source.ReadDistance(ctx, from, to)
	if err != nil {
		return err
	}
	hr, err := c.source.ReadHr(ctx, from, to)
	if err != nil {
		return err
	}
	spo2, err := c.source.ReadSpo2(ctx, from, to)
	if err != nil {
		return err
	}

	queued := 0
	for _, add := range []func() (int, error){
		func() (int, error) { return c.store.AddSteps(ctx, steps) },
		func() (int, error) { return c.store.AddDistance(ctx, distance) },
		func() (int, error) { return c.store.AddHr(ctx, hr) },
		func() (int, error) { return c.store.AddSpo2(ctx, spo2) },
	} {
		n, err := add()
		if err != nil {
			return err
		}
		queued += n
	}
	c.last = now
	c.logger.Debug("collected vitals",
		zap.Time("from", from), zap.Time("to", to), zap.Int("queued", queued))
	return nil
}

// DemoSource synthesizes plausible vitals for development without a wearable.
// Steps and distance come in 5-minute intervals, heart rate once a minute
// with a mild circadian swing, SpO2 every 5 minutes.
type DemoSource struct {
	cfg *config.AgentConfig
	rnd *rand.Rand
}

func NewDemoSource(cfg *config.AgentConfig) *DemoSource {
	return &DemoSource{cfg: cfg, rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

var _ HealthSource = (*DemoSource)(nil)

func (s *DemoSource) tzOffsetMin(t time.Time) int {
	_, off := t.Local().Zone()
	return off / 60
}

// active is a crude day curve: near zero overnight, peaking mid-afternoon.
func active(t time.Time) float64 {
	h := float64(t.Local().Hour())
	if h < 7 || h > 22 {
		return 0.05
	}
	return 0.3 + 0.7*math.Sin((h-7)/15*math.Pi)
}

func (s *DemoSource) ReadSteps(_ context.Context, from, to time.Time) ([]wire.StepsEvent, error) {
	var out []wire.StepsEvent
	for start := from.Truncate(5 * time.Minute); start.Before(to); start = start.Add(5 * time.Minute) {
		end := start.Add(5 * time.Minute)
		if end.After(to) {
			break
		}
		count := int64(active(start) * float64(50+s.rnd.Intn(400)))
		if count == 0 {
			continue
		}
		out = append(out, wire.StepsEventFrom(domain.StepsEvent{
			PatientID:   s.cfg.PatientID,
			OriginID:    s.cfg.OriginID,
			DeviceID:    s.cfg.DeviceID,
			StartTs:     start,
			EndTs:       end,
			Count:       count,
			TzOffsetMin: s.tzOffsetMin(end),
		}))
	}
	return out, nil
}

func (s *DemoSource) ReadDistance(_ context.Context, from, to time.Time) ([]wire.DistanceEvent, error) {
	var out []wire.DistanceEvent
	for start := from.Truncate(5 * time.Minute); start.Before(to); start = start.Add(5 * time.Minute) {
		end := start.Add(5 * time.Minute)
		if end.After(to) {
			break
		}
		meters := active(start) * (30 + s.rnd.Float64()*300)
		if meters < 1 {
			continue
		}
		out = append(out, wire.DistanceEventFrom(domain.DistanceEvent{
			PatientID:   s.cfg.PatientID,
			OriginID:    s.cfg.OriginID,
			DeviceID:    s.cfg.DeviceID,
			StartTs:     start,
			EndTs:       end,
			Meters:      math.Round(meters*10) / 10,
			TzOffsetMin: s.tzOffsetMin(end),
		}))
	}
	return out, nil
}

func (s *DemoSource) ReadHr(_ context.Context, from, to time.Time) ([]wire.HrSample, error) {
	var out []wire.HrSample
	for ts := from.Truncate(time.Minute); ts.Before(to); ts = ts.Add(time.Minute) {
		bpm := int64(58 + active(ts)*35 + float64(s.rnd.Intn(8)))
		out = append(out, wire.HrSampleFrom(domain.HrSample{
			PatientID:   s.cfg.PatientID,
			OriginID:    s.cfg.OriginID,
			DeviceID:    s.cfg.DeviceID,
			TimeTs:      ts,
			Bpm:         bpm,
			TzOffsetMin: s.tzOffsetMin(ts),
		}))
	}
	return out, nil
}

func (s *DemoSource) ReadSpo2(_ context.Context, from, to time.Time) ([]wire.Spo2Sample, error) {
	var out []wire.Spo2Sample
	for ts := from.Truncate(5 * time.Minute); ts.Before(to); ts = ts.Add(5 * time.Minute) {
		pct := 95.0 + s.rnd.Float64()*4
		out = append(out, wire.Spo2SampleFrom(domain.Spo2Sample{
			PatientID:   s.cfg.PatientID,
			OriginID:    s.cfg.OriginID,
			DeviceID:    s.cfg.DeviceID,
			TimeTs:      ts,
			Pct:         math.Round(pct*10) / 10,
			TzOffsetMin: s.tzOffsetMin(ts),
		}))
	}
	return out, nil
}
