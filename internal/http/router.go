package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Router uses the standard library http.ServeMux to avoid third-party router
// dependencies. Every request gets a generated id carried through the access
// log so device uploads can be traced end to end.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-User-Id")
	if req.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	reqID := uuid.NewString()
	w.Header().Set("X-Request-Id", reqID)
	start := time.Now()
	r.mux.ServeHTTP(w, req)
	r.logger.Debug("http request",
		zap.String("request_id", reqID),
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Duration("elapsed", time.Since(start)))
}

func (r *Router) RegisterHealthRoute() {
	r.Handle("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

func (r *Router) RegisterIngestRoutes(h *IngestHandler) {
	post := func(pattern string, fn http.HandlerFunc) {
		r.Handle(pattern, func(w http.ResponseWriter, req *http.Request) {
			if req.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			fn(w, req)
		})
	}
	post("/ingest/steps-events", h.PostSteps)
	post("/ingest/distance-events", h.PostDistance)
	post("/ingest/hr-samples", h.PostHr)
	post("/ingest/spo2-samples", h.PostSpo2)
}

func (r *Router) RegisterPatientRoutes(h *PatientHandler) {
	get := func(pattern string, fn http.HandlerFunc) {
		r.Handle(pattern, func(w http.ResponseWriter, req *http.Request) {
			if req.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			fn(w, req)
		})
	}
	get("/patient/summary", h.GetSummary)
	get("/patient/vitals", h.GetVitals)
	get("/patient/vitals/export", h.GetVitalsExport)
	get("/api/health-events", h.GetHealthEvents)
	r.Handle("/api/add-manual-event", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.PostManualEvent(w, req)
	})
}

func (r *Router) RegisterAdminRoutes(h *AdminHandler) {
	r.Handle("/admin/ensure-patient", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.PostEnsurePatient(w, req)
	})
	r.Handle("/admin/delete-patient", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.PostDeletePatient(w, req)
	})
	r.Handle("/admin/summary", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.GetSummary(w, req)
	})
}
