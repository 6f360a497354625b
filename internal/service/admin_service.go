package service

import (
	"context"
	"time"

	"vitalink-data/internal/domain"
	"vitalink-data/internal/repository"
	"vitalink-data/internal/store"

	"go.uber.org/zap"
)

// timeNow swapped in tests.
var timeNow = time.Now

// AdminService operator endpoints: provisioning patients, removing them with
// all their data, and a row-count overview.
type AdminService interface {
	EnsurePatient(ctx context.Context, req EnsurePatientRequest) error
	DeletePatient(ctx context.Context, req DeletePatientRequest) error
	Summary(ctx context.Context) (*repository.AdminCounts, error)
}

type EnsurePatientRequest struct {
	PatientID   string
	FirstName   string
	LastName    string
	DateOfBirth string
}

type DeletePatientRequest struct {
	PatientID string
}

type adminService struct {
	patients repository.PatientsRepository
	cache    store.KV
	logger   *zap.Logger
}

func NewAdminService(patients repository.PatientsRepository, cache store.KV, logger *zap.Logger) AdminService {
	return &adminService{patients: patients, cache: cache, logger: logger}
}

var _ AdminService = (*adminService)(nil)

func (s *adminService) EnsurePatient(ctx context.Context, req EnsurePatientRequest) error {
	if req.PatientID == "" {
		return validationErrorf("patient id is required")
	}
	if req.DateOfBirth != "" {
		if _, err := domain.DayKey(req.DateOfBirth).Time(); err != nil {
			return validationErrorf("invalid date of birth %q", req.DateOfBirth)
		}
	}
	err := s.patients.EnsurePatient(ctx, domain.Patient{
		PatientID:   req.PatientID,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DateOfBirth: req.DateOfBirth,
	})
	if err != nil {
		return storageError("failed to ensure patient", err)
	}
	return nil
}

func (s *adminService) DeletePatient(ctx context.Context, req DeletePatientRequest) error {
	if req.PatientID == "" {
		return validationErrorf("patient id is required")
	}
	if err := s.patients.DeletePatient(ctx, req.PatientID); err != nil {
		return storageError("failed to delete patient", err)
	}
	s.logger.Info("deleted patient and all associated data", zap.String("patient_id", req.PatientID))
	invalidateSummary(ctx, s.cache, s.logger, req.PatientID)
	return nil
}

func (s *adminService) Summary(ctx context.Context) (*repository.AdminCounts, error) {
	counts, err := s.patients.Counts(ctx)
	if err != nil {
		return nil, storageError("failed to count tables", err)
	}
	return &counts, nil
}
