package service

import (
	"context"
	"encoding/json"
	"time"

	"vitalink-data/internal/domain"
	"vitalink-data/internal/repository"
	"vitalink-data/internal/store"
	"vitalink-data/internal/vitals"

	"go.uber.org/zap"
)

// SummaryService read side of the pipeline: the dashboard card (latest day
// per metric plus resting heart rate) and the chart series (hourly for one
// day, daily for a week or a calendar month).
type SummaryService interface {
	LatestSummary(ctx context.Context, req SummaryRequest) (*SummaryResponse, error)
	VitalsSeries(ctx context.Context, req SeriesRequest) (*SeriesResponse, error)
}

type SummaryRequest struct {
	PatientID string
}

type SummaryResponse struct {
	PatientID string          `json:"patientId"`
	Steps     *StepsDayDTO    `json:"steps,omitempty"`
	Distance  *DistanceDayDTO `json:"distance,omitempty"`
	Hr        *HrSummaryDTO   `json:"hr,omitempty"`
	Spo2      *Spo2DayDTO     `json:"spo2,omitempty"`
	Bp        *BPReadingDTO   `json:"bp,omitempty"`
	LastSync  *time.Time      `json:"lastSync,omitempty"`
}

type StepsDayDTO struct {
	Date  domain.DayKey `json:"date"`
	Total int64         `json:"total"`
}

type DistanceDayDTO struct {
	Date   domain.DayKey `json:"date"`
	Meters float64       `json:"meters"`
}

// HrSummaryDTO Resting comes from the nocturnal window estimate when the day
// has qualifying night hours, the day minimum otherwise.
type HrSummaryDTO struct {
	Date    domain.DayKey `json:"date"`
	Min     int           `json:"min"`
	Max     int           `json:"max"`
	Avg     float64       `json:"avg"`
	Count   int           `json:"count"`
	Resting int           `json:"resting"`
}

type Spo2DayDTO struct {
	Date  domain.DayKey `json:"date"`
	Min   float64       `json:"min"`
	Max   float64       `json:"max"`
	Avg   float64       `json:"avg"`
	Count int           `json:"count"`
}

type BPReadingDTO struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	Systolic  int    `json:"systolic"`
	Diastolic int    `json:"diastolic"`
	Pulse     int    `json:"pulse,omitempty"`
}

// SeriesRequest Date anchors the window; when empty the caller's local today
// is derived from TzOffsetMin. Now is injectable for tests, zero means wall
// clock.
type SeriesRequest struct {
	PatientID   string
	Range       string // "day", "week" or "month"
	Date        domain.DayKey
	TzOffsetMin int
	Now         time.Time
}

type SeriesResponse struct {
	PatientID string         `json:"patientId"`
	Range     string         `json:"range"`
	From      domain.DayKey  `json:"from"`
	To        domain.DayKey  `json:"to"`
	Steps     []ValuePoint   `json:"steps"`
	Distance  []ValuePoint   `json:"distance"`
	Hr        []StatPoint    `json:"hr"`
	Spo2      []StatPoint    `json:"spo2"`
	RestingHr *int           `json:"restingHr,omitempty"`
}

// ValuePoint T is an hour key in day range, a day key otherwise.
type ValuePoint struct {
	T string  `json:"t"`
	V float64 `json:"v"`
}

// StatPoint Resting is set on daily heart-rate points only; hourly points and
// SpO2 leave it empty.
type StatPoint struct {
	T       string  `json:"t"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Avg     float64 `json:"avg"`
	Count   int     `json:"count"`
	Resting *int    `json:"resting,omitempty"`
}

type summaryService struct {
	aggregates repository.AggregatesRepository
	samples    repository.SamplesRepository
	patients   repository.PatientsRepository
	bp         repository.BPRepository
	cache      store.KV
	logger     *zap.Logger
}

func NewSummaryService(
	aggregates repository.AggregatesRepository,
	samples repository.SamplesRepository,
	patients repository.PatientsRepository,
	bp repository.BPRepository,
	cache store.KV,
	logger *zap.Logger,
) SummaryService {
	return &summaryService{
		aggregates: aggregates,
		samples:    samples,
		patients:   patients,
		bp:         bp,
		cache:      cache,
		logger:     logger,
	}
}

var _ SummaryService = (*summaryService)(nil)

func (s *summaryService) LatestSummary(ctx context.Context, req SummaryRequest) (*SummaryResponse, error) {
	if req.PatientID == "" {
		return nil, validationErrorf("patient id is required")
	}

	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, summaryCacheKey(req.PatientID)); err == nil {
			var cached SummaryResponse
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return &cached, nil
			}
		} else if err != store.ErrMiss {
			s.logger.Warn("summary cache read failed",
				zap.String("patient_id", req.PatientID), zap.Error(err))
		}
	}

	out := &SummaryResponse{PatientID: req.PatientID}

	stepsDay, err := s.aggregates.LatestStepsDay(ctx, req.PatientID)
	if err != nil {
		return nil, storageError("failed to load latest steps day", err)
	}
	if stepsDay != nil {
		out.Steps = &StepsDayDTO{Date: stepsDay.Date, Total: stepsDay.Total}
	}

	distDay, err := s.aggregates.LatestDistanceDay(ctx, req.PatientID)
	if err != nil {
		return nil, storageError("failed to load latest distance day", err)
	}
	if distDay != nil {
		out.Distance = &DistanceDayDTO{Date: distDay.Date, Meters: distDay.Meters}
	}

	hrDay, err := s.aggregates.LatestHrDay(ctx, req.PatientID)
	if err != nil {
		return nil, storageError("failed to load latest hr day", err)
	}
	if hrDay != nil {
		resting, err := s.restingForDay(ctx, req.PatientID, hrDay)
		if err != nil {
			return nil, err
		}
		out.Hr = &HrSummaryDTO{
			Date:    hrDay.Date,
			Min:     hrDay.Min,
			Max:     hrDay.Max,
			Avg:     hrDay.Avg,
			Count:   hrDay.Count,
			Resting: resting,
		}
	}

	spo2Day, err := s.aggregates.LatestSpo2Day(ctx, req.PatientID)
	if err != nil {
		return nil, storageError("failed to load latest spo2 day", err)
	}
	if spo2Day != nil {
		out.Spo2 = &Spo2DayDTO{
			Date: spo2Day.Date, Min: spo2Day.Min, Max: spo2Day.Max,
			Avg: spo2Day.Avg, Count: spo2Day.Count,
		}
	}

	bp, err := s.bp.LatestReading(ctx, req.PatientID)
	if err != nil {
		return nil, storageError("failed to load latest bp reading", err)
	}
	if bp != nil {
		out.Bp = &BPReadingDTO{
			Date: bp.ReadingDate, Time: bp.ReadingTime,
			Systolic: bp.Systolic, Diastolic: bp.Diastolic, Pulse: bp.Pulse,
		}
	}

	sync, err := s.patients.GetSyncStatus(ctx, req.PatientID)
	if err != nil {
		return nil, storageError("failed to load sync status", err)
	}
	if sync != nil {
		ts := sync.LastSyncTs.UTC()
		out.LastSync = &ts
	} else {
		latest, err := s.samples.LatestRawTimestamp(ctx, req.PatientID)
		if err != nil {
			return nil, storageError("failed to load latest raw timestamp", err)
		}
		if !latest.IsZero() {
			latest = latest.UTC()
			out.LastSync = &latest
		}
	}

	if s.cache != nil {
		if raw, err := json.Marshal(out); err == nil {
			if err := s.cache.Set(ctx, summaryCacheKey(req.PatientID), string(raw),
				summaryCacheTTLSeconds*time.Second); err != nil {
				s.logger.Warn("summary cache write failed",
					zap.String("patient_id", req.PatientID), zap.Error(err))
			}
		}
	}
	return out, nil
}

// restingForDay recomputes the nocturnal estimate from the day's hour rows on
// every read: hour rows may have changed since the day row was written.
func (s *summaryService) restingForDay(ctx context.Context, patientID string, day *domain.HrDay) (int, error) {
	hours, err := s.aggregates.ListHrHourForDay(ctx, patientID, day.Date)
	if err != nil {
		return 0, storageError("failed to load hr hours", err)
	}
	stats := make([]vitals.HourStat, 0, len(hours))
	for _, h := range hours {
		stats = append(stats, vitals.HourStat{Hour: h.HourTs.LocalHour(), Avg: h.Avg, Count: h.Count})
	}
	if bpm, ok := vitals.RestingHeartRate(stats); ok {
		return bpm, nil
	}
	return day.Min, nil
}

func (s *summaryService) VitalsSeries(ctx context.Context, req SeriesRequest) (*SeriesResponse, error) {
	if req.PatientID == "" {
		return nil, validationErrorf("patient id is required")
	}

	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	anchor := req.Date
	if anchor == "" {
		anchor = vitals.LocalToday(now, req.TzOffsetMin)
	}
	if _, err := anchor.Time(); err != nil {
		return nil, validationErrorf("invalid date %q", anchor)
	}

	switch req.Range {
	case "", "day":
		return s.hourlySeries(ctx, req.PatientID, anchor)
	case "week":
		from, to, err := vitals.DayRange(anchor, 7)
		if err != nil {
			return nil, validationErrorf("invalid date %q", anchor)
		}
		return s.dailySeries(ctx, req.PatientID, "week", from, to)
	case "month":
		from, to, err := vitals.MonthRange(anchor)
		if err != nil {
			return nil, validationErrorf("invalid date %q", anchor)
		}
		return s.dailySeries(ctx, req.PatientID, "month", from, to)
	default:
		return nil, validationErrorf("invalid range %q", req.Range)
	}
}

func (s *summaryService) hourlySeries(ctx context.Context, patientID string, day domain.DayKey) (*SeriesResponse, error) {
	out := &SeriesResponse{
		PatientID: patientID, Range: "day", From: day, To: day,
		Steps: []ValuePoint{}, Distance: []ValuePoint{}, Hr: []StatPoint{}, Spo2: []StatPoint{},
	}

	steps, err := s.aggregates.ListStepsHourForDay(ctx, patientID, day)
	if err != nil {
		return nil, storageError("failed to load steps hours", err)
	}
	for _, row := range steps {
		out.Steps = append(out.Steps, ValuePoint{T: string(row.HourTs), V: float64(row.Total)})
	}

	dist, err := s.aggregates.ListDistanceHourForDay(ctx, patientID, day)
	if err != nil {
		return nil, storageError("failed to load distance hours", err)
	}
	for _, row := range dist {
		out.Distance = append(out.Distance, ValuePoint{T: string(row.HourTs), V: row.Meters})
	}

	hr, err := s.aggregates.ListHrHourForDay(ctx, patientID, day)
	if err != nil {
		return nil, storageError("failed to load hr hours", err)
	}
	stats := make([]vitals.HourStat, 0, len(hr))
	for _, row := range hr {
		out.Hr = append(out.Hr, StatPoint{
			T: string(row.HourTs), Min: float64(row.Min), Max: float64(row.Max),
			Avg: row.Avg, Count: row.Count,
		})
		stats = append(stats, vitals.HourStat{Hour: row.HourTs.LocalHour(), Avg: row.Avg, Count: row.Count})
	}
	if bpm, ok := vitals.RestingHeartRate(stats); ok {
		out.RestingHr = &bpm
	}

	spo2, err := s.aggregates.ListSpo2HourForDay(ctx, patientID, day)
	if err != nil {
		return nil, storageError("failed to load spo2 hours", err)
	}
	for _, row := range spo2 {
		out.Spo2 = append(out.Spo2, StatPoint{
			T: string(row.HourTs), Min: row.Min, Max: row.Max, Avg: row.Avg, Count: row.Count,
		})
	}
	return out, nil
}

func (s *summaryService) dailySeries(ctx context.Context, patientID, rng string, from, to domain.DayKey) (*SeriesResponse, error) {
	out := &SeriesResponse{
		PatientID: patientID, Range: rng, From: from, To: to,
		Steps: []ValuePoint{}, Distance: []ValuePoint{}, Hr: []StatPoint{}, Spo2: []StatPoint{},
	}

	steps, err := s.aggregates.ListStepsDayRange(ctx, patientID, from, to)
	if err != nil {
		return nil, storageError("failed to load steps days", err)
	}
	for _, row := range steps {
		out.Steps = append(out.Steps, ValuePoint{T: string(row.Date), V: float64(row.Total)})
	}

	dist, err := s.aggregates.ListDistanceDayRange(ctx, patientID, from, to)
	if err != nil {
		return nil, storageError("failed to load distance days", err)
	}
	for _, row := range dist {
		out.Distance = append(out.Distance, ValuePoint{T: string(row.Date), V: row.Meters})
	}

	hr, err := s.aggregates.ListHrDayRange(ctx, patientID, from, to)
	if err != nil {
		return nil, storageError("failed to load hr days", err)
	}
	for _, row := range hr {
		resting, err := s.restingForDay(ctx, patientID, &row)
		if err != nil {
			return nil, err
		}
		out.Hr = append(out.Hr, StatPoint{
			T: string(row.Date), Min: float64(row.Min), Max: float64(row.Max),
			Avg: row.Avg, Count: row.Count, Resting: &resting,
		})
	}

	spo2, err := s.aggregates.ListSpo2DayRange(ctx, patientID, from, to)
	if err != nil {
		return nil, storageError("failed to load spo2 days", err)
	}
	for _, row := range spo2 {
		out.Spo2 = append(out.Spo2, StatPoint{
			T: string(row.Date), Min: row.Min, Max: row.Max, Avg: row.Avg, Count: row.Count,
		})
	}
	return out, nil
}
