package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"vitalink-data/internal/config"
	"vitalink-data/internal/wire"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func ingestOK(t *testing.T, inserted int) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "p1", r.Header.Get("X-User-Id"))
		var batch wire.StepsBatch
		require.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(wire.IngestResult{Inserted: inserted})
	}
}

func TestUploader_UsesPrimary(t *testing.T) {
	srv := httptest.NewServer(ingestOK(t, 2))
	defer srv.Close()

	up := NewUploader(&config.AgentConfig{BaseURL: srv.URL}, zap.NewNop())
	res, err := up.UploadSteps(context.Background(), "p1", wire.StepsBatch{
		PatientID: "p1",
		Records:   []wire.StepsEvent{stepsRecord(0), stepsRecord(1)},
	})
	require.NoError(t, err)
	require.Equal(t, 2, res.Inserted)
}

func TestUploader_FallsBackWhenPrimaryDown(t *testing.T) {
	fallback := httptest.NewServer(ingestOK(t, 1))
	defer fallback.Close()

	up := NewUploader(&config.AgentConfig{
		BaseURL:      "http://127.0.0.1:1", // nothing listens here
		FallbackURLs: []string{fallback.URL},
	}, zap.NewNop())
	res, err := up.UploadSteps(context.Background(), "p1", wire.StepsBatch{
		PatientID: "p1",
		Records:   []wire.StepsEvent{stepsRecord(0)},
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Inserted)
}

func TestUploader_ClientErrorIsFinal(t *testing.T) {
	rejecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"only patients may upload samples"}`, http.StatusForbidden)
	}))
	defer rejecting.Close()
	fallbackHits := 0
	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fallbackHits++
	}))
	defer fallback.Close()

	up := NewUploader(&config.AgentConfig{
		BaseURL:      rejecting.URL,
		FallbackURLs: []string{fallback.URL},
	}, zap.NewNop())
	_, err := up.UploadSteps(context.Background(), "p1", wire.StepsBatch{PatientID: "p1"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "server rejected batch")
	require.Equal(t, 0, fallbackHits)
}

func TestUploader_ServerErrorTriesNext(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer failing.Close()
	fallback := httptest.NewServer(ingestOK(t, 1))
	defer fallback.Close()

	up := NewUploader(&config.AgentConfig{
		BaseURL:      failing.URL,
		FallbackURLs: []string{fallback.URL},
	}, zap.NewNop())
	res, err := up.UploadSteps(context.Background(), "p1", wire.StepsBatch{
		PatientID: "p1",
		Records:   []wire.StepsEvent{stepsRecord(0)},
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Inserted)
}
