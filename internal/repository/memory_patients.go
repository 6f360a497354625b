package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vitalink-data/internal/domain"
)

// MemoryPatientsRepository holds identity and provenance rows when DB is
// disabled. It cascades deletes into the sibling memory repos, mirroring the
// transactional delete of the Postgres implementation.
type MemoryPatientsRepository struct {
	mu       sync.RWMutex
	patients map[string]domain.Patient
	origins  map[string]struct{}
	devices  map[string]domain.Device
	statuses map[string]domain.SyncStatus

	samples    *MemorySamplesRepository
	aggregates *MemoryAggregatesRepository
	bp         *MemoryBPRepository
}

func NewMemoryPatientsRepository(samples *MemorySamplesRepository, aggregates *MemoryAggregatesRepository, bp *MemoryBPRepository) *MemoryPatientsRepository {
	return &MemoryPatientsRepository{
		patients:   map[string]domain.Patient{},
		origins:    map[string]struct{}{},
		devices:    map[string]domain.Device{},
		statuses:   map[string]domain.SyncStatus{},
		samples:    samples,
		aggregates: aggregates,
		bp:         bp,
	}
}

var _ PatientsRepository = (*MemoryPatientsRepository)(nil)

func (r *MemoryPatientsRepository) EnsurePatient(_ context.Context, p domain.Patient) error {
	if p.PatientID == "" {
		return fmt.Errorf("patient_id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.patients[p.PatientID]
	if !ok {
		p.CreatedAt = time.Now().UTC()
		r.patients[p.PatientID] = p
		return nil
	}
	if p.FirstName != "" {
		existing.FirstName = p.FirstName
	}
	if p.LastName != "" {
		existing.LastName = p.LastName
	}
	if p.DateOfBirth != "" {
		existing.DateOfBirth = p.DateOfBirth
	}
	r.patients[p.PatientID] = existing
	return nil
}

func (r *MemoryPatientsRepository) GetPatient(_ context.Context, patientID string) (*domain.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.patients[patientID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *MemoryPatientsRepository) DeletePatient(_ context.Context, patientID string) error {
	if patientID == "" {
		return fmt.Errorf("patient_id is required")
	}
	r.mu.Lock()
	delete(r.patients, patientID)
	delete(r.statuses, patientID)
	for id, d := range r.devices {
		if d.PatientID == patientID {
			delete(r.devices, id)
		}
	}
	r.mu.Unlock()

	if r.samples != nil {
		r.samples.deletePatient(patientID)
	}
	if r.aggregates != nil {
		r.aggregates.deletePatient(patientID)
	}
	if r.bp != nil {
		r.bp.deletePatient(patientID)
	}
	return nil
}

func (r *MemoryPatientsRepository) EnsureOrigins(_ context.Context, originIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range originIDs {
		if id != "" {
			r.origins[id] = struct{}{}
		}
	}
	return nil
}

func (r *MemoryPatientsRepository) EnsureDevices(_ context.Context, devices []domain.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range devices {
		if d.DeviceID == "" {
			continue
		}
		existing, ok := r.devices[d.DeviceID]
		if ok && d.Model == "" {
			d.Model = existing.Model
		}
		r.devices[d.DeviceID] = d
	}
	return nil
}

func (r *MemoryPatientsRepository) UpsertSyncStatus(_ context.Context, patientID string, ts time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[patientID] = domain.SyncStatus{
		PatientID:  patientID,
		LastSyncTs: ts,
		UpdatedAt:  time.Now().UTC(),
	}
	return nil
}

func (r *MemoryPatientsRepository) GetSyncStatus(_ context.Context, patientID string) (*domain.SyncStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.statuses[patientID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *MemoryPatientsRepository) Counts(_ context.Context) (AdminCounts, error) {
	r.mu.RLock()
	patients := int64(len(r.patients))
	r.mu.RUnlock()

	c := AdminCounts{Patients: patients}
	if r.samples != nil {
		r.samples.mu.RLock()
		c.StepsEvents = int64(len(r.samples.steps))
		c.DistanceEvents = int64(len(r.samples.distance))
		c.HrSamples = int64(len(r.samples.hr))
		c.Spo2Samples = int64(len(r.samples.spo2))
		r.samples.mu.RUnlock()
	}
	if r.bp != nil {
		r.bp.mu.RLock()
		c.BPReadings = int64(len(r.bp.readings))
		r.bp.mu.RUnlock()
	}
	return c, nil
}
