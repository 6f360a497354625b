package service

import (
	"context"

	"vitalink-data/internal/domain"
	"vitalink-data/internal/repository"
	"vitalink-data/internal/store"
	"vitalink-data/internal/vitals"

	"go.uber.org/zap"
)

// HealthEventService manual entries that live outside the device pipeline,
// currently blood-pressure readings.
type HealthEventService interface {
	AddManualEvent(ctx context.Context, req AddManualEventRequest) (*AddManualEventResponse, error)
	ListHealthEvents(ctx context.Context, req ListHealthEventsRequest) (*ListHealthEventsResponse, error)
}

type AddManualEventRequest struct {
	PatientID string
	Date      string // YYYY-MM-DD
	Time      string // HH:MM:SS
	Systolic  int
	Diastolic int
	Pulse     int
}

// AddManualEventResponse Added is false when the reading was dropped as a
// double entry.
type AddManualEventResponse struct {
	Added bool `json:"added"`
}

type ListHealthEventsRequest struct {
	PatientID string
	From      domain.DayKey
	To        domain.DayKey
}

type ListHealthEventsResponse struct {
	Items []BPReadingDTO `json:"items"`
}

type healthEventService struct {
	bp     repository.BPRepository
	cache  store.KV
	logger *zap.Logger
}

func NewHealthEventService(bp repository.BPRepository, cache store.KV, logger *zap.Logger) HealthEventService {
	return &healthEventService{bp: bp, cache: cache, logger: logger}
}

var _ HealthEventService = (*healthEventService)(nil)

func (s *healthEventService) AddManualEvent(ctx context.Context, req AddManualEventRequest) (*AddManualEventResponse, error) {
	if req.PatientID == "" {
		return nil, validationErrorf("patient id is required")
	}
	if req.Date == "" || req.Time == "" {
		return nil, validationErrorf("date and time are required")
	}
	if _, err := domain.DayKey(req.Date).Time(); err != nil {
		return nil, validationErrorf("invalid date %q", req.Date)
	}
	if req.Systolic <= 0 || req.Diastolic <= 0 {
		return nil, validationErrorf("systolic and diastolic must be positive")
	}
	if req.Systolic <= req.Diastolic {
		return nil, validationErrorf("systolic must exceed diastolic")
	}

	added, err := s.bp.AddReading(ctx, domain.BPReading{
		PatientID:   req.PatientID,
		ReadingDate: req.Date,
		ReadingTime: req.Time,
		Systolic:    req.Systolic,
		Diastolic:   req.Diastolic,
		Pulse:       req.Pulse,
	})
	if err != nil {
		return nil, storageError("failed to add bp reading", err)
	}
	if added {
		invalidateSummary(ctx, s.cache, s.logger, req.PatientID)
	} else {
		s.logger.Info("dropped near-duplicate bp reading",
			zap.String("patient_id", req.PatientID),
			zap.String("date", req.Date), zap.String("time", req.Time))
	}
	return &AddManualEventResponse{Added: added}, nil
}

func (s *healthEventService) ListHealthEvents(ctx context.Context, req ListHealthEventsRequest) (*ListHealthEventsResponse, error) {
	if req.PatientID == "" {
		return nil, validationErrorf("patient id is required")
	}
	from, to := req.From, req.To
	if from == "" || to == "" {
		// Default to the anchor month, matching the chart views.
		anchor := to
		if anchor == "" {
			anchor = vitals.LocalToday(timeNow(), 0)
		}
		var err error
		from, to, err = vitals.MonthRange(anchor)
		if err != nil {
			return nil, validationErrorf("invalid date %q", anchor)
		}
	}
	if _, err := from.Time(); err != nil {
		return nil, validationErrorf("invalid from date %q", from)
	}
	if _, err := to.Time(); err != nil {
		return nil, validationErrorf("invalid to date %q", to)
	}

	rows, err := s.bp.ListReadings(ctx, req.PatientID, from, to)
	if err != nil {
		return nil, storageError("failed to list bp readings", err)
	}
	out := &ListHealthEventsResponse{Items: []BPReadingDTO{}}
	for _, row := range rows {
		out.Items = append(out.Items, BPReadingDTO{
			Date: row.ReadingDate, Time: row.ReadingTime,
			Systolic: row.Systolic, Diastolic: row.Diastolic, Pulse: row.Pulse,
		})
	}
	return out, nil
}
