package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"vitalink-data/internal/service"

	"go.uber.org/zap"
)

// maxBodyBytes batches from a backlogged device can be large but bounded.
const maxBodyBytes = 5 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

// writeServiceError maps the service error taxonomy onto status codes.
// Storage failures keep the underlying message in the body so an operator
// can see which upstream write broke without pulling server logs.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var ve *service.ValidationError
	var ae *service.AuthorizationError
	var se *service.StorageError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": ve.Msg})
	case errors.As(err, &ae):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": ae.Msg})
	case errors.As(err, &se):
		logger.Error("storage failure", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": se.Error()})
	default:
		logger.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
