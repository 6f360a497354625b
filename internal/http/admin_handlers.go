package httpapi

import (
	"net/http"

	"vitalink-data/internal/service"

	"go.uber.org/zap"
)

// AdminHandler operator endpoints, expected to sit behind the internal
// gateway rather than the device-facing edge.
type AdminHandler struct {
	svc    service.AdminService
	logger *zap.Logger
}

func NewAdminHandler(svc service.AdminService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, logger: logger}
}

func (h *AdminHandler) PostEnsurePatient(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PatientID   string `json:"patientId"`
		FirstName   string `json:"firstName"`
		LastName    string `json:"lastName"`
		DateOfBirth string `json:"dateOfBirth"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	err := h.svc.EnsurePatient(r.Context(), service.EnsurePatientRequest{
		PatientID:   body.PatientID,
		FirstName:   body.FirstName,
		LastName:    body.LastName,
		DateOfBirth: body.DateOfBirth,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AdminHandler) PostDeletePatient(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PatientID string `json:"patientId"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if err := h.svc.DeletePatient(r.Context(), service.DeletePatientRequest{PatientID: body.PatientID}); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AdminHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.Summary(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}
