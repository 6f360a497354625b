package httpapi

import (
	"fmt"
	"net/http"

	"vitalink-data/internal/domain"
	"vitalink-data/internal/service"

	"go.uber.org/zap"
)

// PatientHandler dashboard and chart endpoints.
type PatientHandler struct {
	summary service.SummaryService
	export  service.ExportService
	events  service.HealthEventService
	logger  *zap.Logger
}

func NewPatientHandler(
	summary service.SummaryService,
	export service.ExportService,
	events service.HealthEventService,
	logger *zap.Logger,
) *PatientHandler {
	return &PatientHandler{summary: summary, export: export, events: events, logger: logger}
}

func (h *PatientHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	patientID := r.URL.Query().Get("patientId")
	resp, err := h.summary.LatestSummary(r.Context(), service.SummaryRequest{PatientID: patientID})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *PatientHandler) GetVitals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.summary.VitalsSeries(r.Context(), service.SeriesRequest{
		PatientID:   q.Get("patientId"),
		Range:       q.Get("range"),
		Date:        domain.DayKey(q.Get("date")),
		TzOffsetMin: parseInt(q.Get("tzOffsetMin"), 0),
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *PatientHandler) GetVitalsExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.export.ExportVitals(r.Context(), service.ExportRequest{
		PatientID: q.Get("patientId"),
		From:      domain.DayKey(q.Get("from")),
		To:        domain.DayKey(q.Get("to")),
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", resp.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(resp.Content)
}

func (h *PatientHandler) PostManualEvent(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PatientID string `json:"patientId"`
		Date      string `json:"date"`
		Time      string `json:"time"`
		Systolic  int    `json:"systolic"`
		Diastolic int    `json:"diastolic"`
		Pulse     int    `json:"pulse"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	resp, err := h.events.AddManualEvent(r.Context(), service.AddManualEventRequest{
		PatientID: body.PatientID,
		Date:      body.Date,
		Time:      body.Time,
		Systolic:  body.Systolic,
		Diastolic: body.Diastolic,
		Pulse:     body.Pulse,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *PatientHandler) GetHealthEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.events.ListHealthEvents(r.Context(), service.ListHealthEventsRequest{
		PatientID: q.Get("patientId"),
		From:      domain.DayKey(q.Get("from")),
		To:        domain.DayKey(q.Get("to")),
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
