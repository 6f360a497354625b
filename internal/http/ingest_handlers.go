package httpapi

import (
	"net/http"

	"vitalink-data/internal/domain"
	"vitalink-data/internal/service"
	"vitalink-data/internal/wire"

	"go.uber.org/zap"
)

// IngestHandler device-facing upload endpoints. The authenticated principal
// arrives in X-User-Id; real deployments put an auth proxy in front that
// verifies the token and injects this header.
type IngestHandler struct {
	svc    service.IngestService
	logger *zap.Logger
}

func NewIngestHandler(svc service.IngestService, logger *zap.Logger) *IngestHandler {
	return &IngestHandler{svc: svc, logger: logger}
}

func batchPatient(patientID, firstName, lastName, dateOfBirth string) domain.Patient {
	return domain.Patient{
		PatientID:   patientID,
		FirstName:   firstName,
		LastName:    lastName,
		DateOfBirth: dateOfBirth,
	}
}

func (h *IngestHandler) PostSteps(w http.ResponseWriter, r *http.Request) {
	var batch wire.StepsBatch
	if err := readBodyJSON(r, maxBodyBytes, &batch); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	items := make([]domain.StepsEvent, 0, len(batch.Records))
	for _, rec := range batch.Records {
		d, err := rec.Domain()
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		items = append(items, d)
	}
	resp, err := h.svc.IngestSteps(r.Context(), service.IngestStepsRequest{
		UserID:  r.Header.Get("X-User-Id"),
		Patient: batchPatient(batch.PatientID, batch.FirstName, batch.LastName, batch.DateOfBirth),
		Items:   items,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *IngestHandler) PostDistance(w http.ResponseWriter, r *http.Request) {
	var batch wire.DistanceBatch
	if err := readBodyJSON(r, maxBodyBytes, &batch); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	items := make([]domain.DistanceEvent, 0, len(batch.Records))
	for _, rec := range batch.Records {
		d, err := rec.Domain()
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		items = append(items, d)
	}
	resp, err := h.svc.IngestDistance(r.Context(), service.IngestDistanceRequest{
		UserID:  r.Header.Get("X-User-Id"),
		Patient: batchPatient(batch.PatientID, batch.FirstName, batch.LastName, batch.DateOfBirth),
		Items:   items,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *IngestHandler) PostHr(w http.ResponseWriter, r *http.Request) {
	var batch wire.HrBatch
	if err := readBodyJSON(r, maxBodyBytes, &batch); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	items := make([]domain.HrSample, 0, len(batch.Records))
	for _, rec := range batch.Records {
		d, err := rec.Domain()
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		items = append(items, d)
	}
	resp, err := h.svc.IngestHr(r.Context(), service.IngestHrRequest{
		UserID:  r.Header.Get("X-User-Id"),
		Patient: batchPatient(batch.PatientID, batch.FirstName, batch.LastName, batch.DateOfBirth),
		Items:   items,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *IngestHandler) PostSpo2(w http.ResponseWriter, r *http.Request) {
	var batch wire.Spo2Batch
	if err := readBodyJSON(r, maxBodyBytes, &batch); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	items := make([]domain.Spo2Sample, 0, len(batch.Records))
	for _, rec := range batch.Records {
		d, err := rec.Domain()
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		items = append(items, d)
	}
	resp, err := h.svc.IngestSpo2(r.Context(), service.IngestSpo2Request{
		UserID:  r.Header.Get("X-User-Id"),
		Patient: batchPatient(batch.PatientID, batch.FirstName, batch.LastName, batch.DateOfBirth),
		Items:   items,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
