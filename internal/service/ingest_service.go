package service

import (
	"context"
	"math"
	"time"

	"vitalink-data/internal/domain"
	"vitalink-data/internal/repository"
	"vitalink-data/internal/store"
	"vitalink-data/internal/vitals"

	"go.uber.org/zap"
)

// IngestService accepts sample batches from patient devices. Every operation
// runs the same pipeline: authorize, normalize the batch to one patient,
// ensure identity rows, upsert raw samples, then rebuild every hour and day
// bucket the batch touched from the raw table. Rebuilding from raw (instead
// of merging deltas into the stored row) keeps aggregates correct when a
// batch is replayed or arrives late.
type IngestService interface {
	IngestSteps(ctx context.Context, req IngestStepsRequest) (*IngestResponse, error)
	IngestDistance(ctx context.Context, req IngestDistanceRequest) (*IngestResponse, error)
	IngestHr(ctx context.Context, req IngestHrRequest) (*IngestResponse, error)
	IngestSpo2(ctx context.Context, req IngestSpo2Request) (*IngestResponse, error)
}

type IngestStepsRequest struct {
	UserID  string
	Patient domain.Patient
	Items   []domain.StepsEvent
}

type IngestDistanceRequest struct {
	UserID  string
	Patient domain.Patient
	Items   []domain.DistanceEvent
}

type IngestHrRequest struct {
	UserID  string
	Patient domain.Patient
	Items   []domain.HrSample
}

type IngestSpo2Request struct {
	UserID  string
	Patient domain.Patient
	Items   []domain.Spo2Sample
}

// IngestResponse counts for the caller: raw rows actually written (replays
// come back as 0) and buckets rebuilt.
type IngestResponse struct {
	Inserted     int `json:"inserted"`
	UpsertedHour int `json:"upserted_hour"`
	UpsertedDay  int `json:"upserted_day"`
	Skipped      int `json:"skipped,omitempty"`
}

type ingestService struct {
	samples    repository.SamplesRepository
	aggregates repository.AggregatesRepository
	patients   repository.PatientsRepository
	roles      repository.RoleLookup
	cache      store.KV
	logger     *zap.Logger
}

func NewIngestService(
	samples repository.SamplesRepository,
	aggregates repository.AggregatesRepository,
	patients repository.PatientsRepository,
	roles repository.RoleLookup,
	cache store.KV,
	logger *zap.Logger,
) IngestService {
	return &ingestService{
		samples:    samples,
		aggregates: aggregates,
		patients:   patients,
		roles:      roles,
		cache:      cache,
		logger:     logger,
	}
}

var _ IngestService = (*ingestService)(nil)

// authorize only principals with the patient role may ingest, and only into
// their own record.
func (s *ingestService) authorize(ctx context.Context, userID, patientID string) error {
	if patientID == "" {
		return validationErrorf("patient id is required")
	}
	role, err := s.roles.RoleFor(ctx, userID)
	if err != nil {
		return storageError("failed to resolve role", err)
	}
	if role != "patient" {
		return authorizationErrorf("only patients may upload samples")
	}
	if userID != patientID {
		return authorizationErrorf("patients may only upload their own samples")
	}
	return nil
}

// ensureIdentity creates the patient, origin and device rows a batch refers
// to before any raw row lands, so foreign keys never race the samples.
func (s *ingestService) ensureIdentity(ctx context.Context, patient domain.Patient, originIDs []string, deviceIDs []string) error {
	if err := s.patients.EnsurePatient(ctx, patient); err != nil {
		return storageError("failed to ensure patient", err)
	}
	if err := s.patients.EnsureOrigins(ctx, originIDs); err != nil {
		return storageError("failed to ensure origins", err)
	}
	devices := make([]domain.Device, 0, len(deviceIDs))
	for _, id := range deviceIDs {
		devices = append(devices, domain.Device{DeviceID: id, PatientID: patient.PatientID})
	}
	if err := s.patients.EnsureDevices(ctx, devices); err != nil {
		return storageError("failed to ensure devices", err)
	}
	return nil
}

func (s *ingestService) finish(ctx context.Context, patientID string, latest time.Time) {
	if !latest.IsZero() {
		if err := s.patients.UpsertSyncStatus(ctx, patientID, latest); err != nil {
			s.logger.Warn("failed to update sync status",
				zap.String("patient_id", patientID), zap.Error(err))
		}
	}
	invalidateSummary(ctx, s.cache, s.logger, patientID)
}

func uniqueStrings(in []string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func (s *ingestService) IngestSteps(ctx context.Context, req IngestStepsRequest) (*IngestResponse, error) {
	// Empty batches are a no-op success before any identity checks run;
	// devices sync unconditionally and often have nothing to send.
	if len(req.Items) == 0 {
		return &IngestResponse{}, nil
	}
	pid := req.Patient.PatientID
	if err := s.authorize(ctx, req.UserID, pid); err != nil {
		return nil, err
	}

	origins := make([]string, 0, len(req.Items))
	devices := make([]string, 0, len(req.Items))
	for i := range req.Items {
		it := &req.Items[i]
		if it.PatientID == "" {
			it.PatientID = pid
		}
		if it.PatientID != pid {
			return nil, validationErrorf("batch contains records for more than one patient")
		}
		if it.RecordUID == "" {
			it.RecordUID = vitals.StepsRecordUID(it.PatientID, it.OriginID, it.DeviceID, it.StartTs, it.EndTs, it.Count)
		}
		origins = append(origins, it.OriginID)
		devices = append(devices, it.DeviceID)
	}

	fold, err := vitals.FoldSteps(req.Items)
	if err != nil {
		return nil, validationErrorf("%v", err)
	}

	if err := s.ensureIdentity(ctx, req.Patient, uniqueStrings(origins), uniqueStrings(devices)); err != nil {
		return nil, err
	}

	inserted, err := s.samples.UpsertSteps(ctx, req.Items)
	if err != nil {
		return nil, storageError("failed to upsert steps events", err)
	}

	var latest time.Time
	for _, it := range req.Items {
		if it.EndTs.After(latest) {
			latest = it.EndTs
		}
	}

	for ref := range fold.Hours {
		rows, err := s.samples.ListStepsForHour(ctx, ref.PatientID, ref.Hour)
		if err != nil {
			return nil, storageError("failed to reload steps hour", err)
		}
		var total int64
		for _, row := range rows {
			total += row.Count
		}
		if err := s.aggregates.UpsertStepsHour(ctx, domain.StepsHour{
			PatientID: ref.PatientID, HourTs: ref.Hour, Total: total,
		}); err != nil {
			return nil, storageError("failed to upsert steps hour", err)
		}
	}
	for ref := range fold.Days {
		rows, err := s.samples.ListStepsForDay(ctx, ref.PatientID, ref.Day)
		if err != nil {
			return nil, storageError("failed to reload steps day", err)
		}
		var total int64
		for _, row := range rows {
			total += row.Count
		}
		if err := s.aggregates.UpsertStepsDay(ctx, domain.StepsDay{
			PatientID: ref.PatientID, Date: ref.Day, Total: total,
		}); err != nil {
			return nil, storageError("failed to upsert steps day", err)
		}
	}

	s.finish(ctx, pid, latest)
	return &IngestResponse{
		Inserted:     inserted,
		UpsertedHour: len(fold.Hours),
		UpsertedDay:  len(fold.Days),
		Skipped:      fold.Skipped,
	}, nil
}

func (s *ingestService) IngestDistance(ctx context.Context, req IngestDistanceRequest) (*IngestResponse, error) {
	if len(req.Items) == 0 {
		return &IngestResponse{}, nil
	}
	pid := req.Patient.PatientID
	if err := s.authorize(ctx, req.UserID, pid); err != nil {
		return nil, err
	}

	origins := make([]string, 0, len(req.Items))
	devices := make([]string, 0, len(req.Items))
	for i := range req.Items {
		it := &req.Items[i]
		if it.PatientID == "" {
			it.PatientID = pid
		}
		if it.PatientID != pid {
			return nil, validationErrorf("batch contains records for more than one patient")
		}
		if it.RecordUID == "" {
			it.RecordUID = vitals.DistanceRecordUID(it.PatientID, it.OriginID, it.DeviceID, it.StartTs, it.EndTs, it.Meters)
		}
		origins = append(origins, it.OriginID)
		devices = append(devices, it.DeviceID)
	}

	fold, err := vitals.FoldDistance(req.Items)
	if err != nil {
		return nil, validationErrorf("%v", err)
	}

	if err := s.ensureIdentity(ctx, req.Patient, uniqueStrings(origins), uniqueStrings(devices)); err != nil {
		return nil, err
	}

	inserted, err := s.samples.UpsertDistance(ctx, req.Items)
	if err != nil {
		return nil, storageError("failed to upsert distance events", err)
	}

	var latest time.Time
	for _, it := range req.Items {
		if it.EndTs.After(latest) {
			latest = it.EndTs
		}
	}

	for ref := range fold.Hours {
		rows, err := s.samples.ListDistanceForHour(ctx, ref.PatientID, ref.Hour)
		if err != nil {
			return nil, storageError("failed to reload distance hour", err)
		}
		var total float64
		for _, row := range rows {
			total += row.Meters
		}
		if err := s.aggregates.UpsertDistanceHour(ctx, domain.DistanceHour{
			PatientID: ref.PatientID, HourTs: ref.Hour, Meters: total,
		}); err != nil {
			return nil, storageError("failed to upsert distance hour", err)
		}
	}
	for ref := range fold.Days {
		rows, err := s.samples.ListDistanceForDay(ctx, ref.PatientID, ref.Day)
		if err != nil {
			return nil, storageError("failed to reload distance day", err)
		}
		var total float64
		for _, row := range rows {
			total += row.Meters
		}
		if err := s.aggregates.UpsertDistanceDay(ctx, domain.DistanceDay{
			PatientID: ref.PatientID, Date: ref.Day, Meters: total,
		}); err != nil {
			return nil, storageError("failed to upsert distance day", err)
		}
	}

	s.finish(ctx, pid, latest)
	return &IngestResponse{
		Inserted:     inserted,
		UpsertedHour: len(fold.Hours),
		UpsertedDay:  len(fold.Days),
		Skipped:      fold.Skipped,
	}, nil
}

func (s *ingestService) IngestHr(ctx context.Context, req IngestHrRequest) (*IngestResponse, error) {
	if len(req.Items) == 0 {
		return &IngestResponse{}, nil
	}
	pid := req.Patient.PatientID
	if err := s.authorize(ctx, req.UserID, pid); err != nil {
		return nil, err
	}

	origins := make([]string, 0, len(req.Items))
	devices := make([]string, 0, len(req.Items))
	for i := range req.Items {
		it := &req.Items[i]
		if it.PatientID == "" {
			it.PatientID = pid
		}
		if it.PatientID != pid {
			return nil, validationErrorf("batch contains records for more than one patient")
		}
		if it.RecordUID == "" {
			it.RecordUID = vitals.HrRecordUID(it.PatientID, it.OriginID, it.DeviceID, it.TimeTs, it.Bpm)
		}
		origins = append(origins, it.OriginID)
		devices = append(devices, it.DeviceID)
	}

	fold, err := vitals.FoldHeartRate(req.Items)
	if err != nil {
		return nil, validationErrorf("%v", err)
	}

	if err := s.ensureIdentity(ctx, req.Patient, uniqueStrings(origins), uniqueStrings(devices)); err != nil {
		return nil, err
	}

	inserted, err := s.samples.UpsertHr(ctx, req.Items)
	if err != nil {
		return nil, storageError("failed to upsert hr samples", err)
	}

	var latest time.Time
	for _, it := range req.Items {
		if it.TimeTs.After(latest) {
			latest = it.TimeTs
		}
	}

	for ref := range fold.Hours {
		rows, err := s.samples.ListHrForHour(ctx, ref.PatientID, ref.Hour)
		if err != nil {
			return nil, storageError("failed to reload hr hour", err)
		}
		acc := vitals.RateAcc{}
		for _, row := range rows {
			acc.Add(float64(row.Bpm))
		}
		if err := s.aggregates.UpsertHrHour(ctx, hrHourFromAcc(ref, acc)); err != nil {
			return nil, storageError("failed to upsert hr hour", err)
		}
	}
	for ref := range fold.Days {
		rows, err := s.samples.ListHrForDay(ctx, ref.PatientID, ref.Day)
		if err != nil {
			return nil, storageError("failed to reload hr day", err)
		}
		acc := vitals.RateAcc{}
		for _, row := range rows {
			acc.Add(float64(row.Bpm))
		}
		if err := s.aggregates.UpsertHrDay(ctx, hrDayFromAcc(ref, acc)); err != nil {
			return nil, storageError("failed to upsert hr day", err)
		}
	}

	s.finish(ctx, pid, latest)
	return &IngestResponse{
		Inserted:     inserted,
		UpsertedHour: len(fold.Hours),
		UpsertedDay:  len(fold.Days),
		Skipped:      fold.Skipped,
	}, nil
}

func (s *ingestService) IngestSpo2(ctx context.Context, req IngestSpo2Request) (*IngestResponse, error) {
	if len(req.Items) == 0 {
		return &IngestResponse{}, nil
	}
	pid := req.Patient.PatientID
	if err := s.authorize(ctx, req.UserID, pid); err != nil {
		return nil, err
	}

	origins := make([]string, 0, len(req.Items))
	devices := make([]string, 0, len(req.Items))
	for i := range req.Items {
		it := &req.Items[i]
		if it.PatientID == "" {
			it.PatientID = pid
		}
		if it.PatientID != pid {
			return nil, validationErrorf("batch contains records for more than one patient")
		}
		if it.RecordUID == "" {
			it.RecordUID = vitals.Spo2RecordUID(it.PatientID, it.OriginID, it.DeviceID, it.TimeTs, it.Pct)
		}
		origins = append(origins, it.OriginID)
		devices = append(devices, it.DeviceID)
	}

	fold, err := vitals.FoldSpo2(req.Items)
	if err != nil {
		return nil, validationErrorf("%v", err)
	}

	if err := s.ensureIdentity(ctx, req.Patient, uniqueStrings(origins), uniqueStrings(devices)); err != nil {
		return nil, err
	}

	inserted, err := s.samples.UpsertSpo2(ctx, req.Items)
	if err != nil {
		return nil, storageError("failed to upsert spo2 samples", err)
	}

	var latest time.Time
	for _, it := range req.Items {
		if it.TimeTs.After(latest) {
			latest = it.TimeTs
		}
	}

	for ref := range fold.Hours {
		rows, err := s.samples.ListSpo2ForHour(ctx, ref.PatientID, ref.Hour)
		if err != nil {
			return nil, storageError("failed to reload spo2 hour", err)
		}
		acc := vitals.RateAcc{}
		for _, row := range rows {
			acc.Add(row.Pct)
		}
		if err := s.aggregates.UpsertSpo2Hour(ctx, domain.Spo2Hour{
			PatientID: ref.PatientID, HourTs: ref.Hour,
			Min: acc.Min, Max: acc.Max, Avg: acc.Avg(), Count: acc.Count,
		}); err != nil {
			return nil, storageError("failed to upsert spo2 hour", err)
		}
	}
	for ref := range fold.Days {
		rows, err := s.samples.ListSpo2ForDay(ctx, ref.PatientID, ref.Day)
		if err != nil {
			return nil, storageError("failed to reload spo2 day", err)
		}
		acc := vitals.RateAcc{}
		for _, row := range rows {
			acc.Add(row.Pct)
		}
		if err := s.aggregates.UpsertSpo2Day(ctx, domain.Spo2Day{
			PatientID: ref.PatientID, Date: ref.Day,
			Min: acc.Min, Max: acc.Max, Avg: acc.Avg(), Count: acc.Count,
		}); err != nil {
			return nil, storageError("failed to upsert spo2 day", err)
		}
	}

	s.finish(ctx, pid, latest)
	return &IngestResponse{
		Inserted:     inserted,
		UpsertedHour: len(fold.Hours),
		UpsertedDay:  len(fold.Days),
		Skipped:      fold.Skipped,
	}, nil
}

// Heart-rate bounds round to whole bpm at the aggregate boundary; the stored
// average keeps full precision.
func hrHourFromAcc(ref vitals.HourRef, acc vitals.RateAcc) domain.HrHour {
	return domain.HrHour{
		PatientID: ref.PatientID,
		HourTs:    ref.Hour,
		Min:       int(math.Round(acc.Min)),
		Max:       int(math.Round(acc.Max)),
		Avg:       acc.Avg(),
		Count:     acc.Count,
	}
}

func hrDayFromAcc(ref vitals.DayRef, acc vitals.RateAcc) domain.HrDay {
	return domain.HrDay{
		PatientID: ref.PatientID,
		Date:      ref.Day,
		Min:       int(math.Round(acc.Min)),
		Max:       int(math.Round(acc.Max)),
		Avg:       acc.Avg(),
		Count:     acc.Count,
	}
}
