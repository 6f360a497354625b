package httpapi

import (
	"errors"
	"net/http/httptest"
	"testing"

	"vitalink-data/internal/service"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWriteServiceError_StorageErrorSurfacesMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	writeServiceError(rec, zap.NewNop(), &service.StorageError{
		Op:  "failed to upsert steps events",
		Err: errors.New("pq: connection refused"),
	})

	require.Equal(t, 500, rec.Code)
	require.JSONEq(t,
		`{"error":"failed to upsert steps events: pq: connection refused"}`,
		rec.Body.String())
}

func TestWriteServiceError_UnknownErrorStaysOpaque(t *testing.T) {
	rec := httptest.NewRecorder()
	writeServiceError(rec, zap.NewNop(), errors.New("something else"))

	require.Equal(t, 500, rec.Code)
	require.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}
