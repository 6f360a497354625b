package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"vitalink-data/internal/domain"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func TestExportVitals_Workbook(t *testing.T) {
	f := newFixture(t)
	svc := NewExportService(f.aggregates, f.bp, zap.NewNop())
	ctx := context.Background()

	_, err := f.ingest.IngestSteps(ctx, IngestStepsRequest{
		UserID: "p1", Patient: domain.Patient{PatientID: "p1"},
		Items: []domain.StepsEvent{
			stepsItem(time.Date(2024, 3, 1, 10, 2, 0, 0, time.UTC), 50, 0),
			stepsItem(time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC), 80, 0),
		},
	})
	require.NoError(t, err)

	resp, err := svc.ExportVitals(ctx, ExportRequest{
		PatientID: "p1", From: "2024-03-01", To: "2024-03-31",
	})
	require.NoError(t, err)
	require.Equal(t, "vitals_p1_2024-03-01_2024-03-31.xlsx", resp.Filename)

	wb, err := excelize.OpenReader(bytes.NewReader(resp.Content))
	require.NoError(t, err)
	defer wb.Close()

	require.ElementsMatch(t,
		[]string{"Steps", "Distance", "Heart Rate", "SpO2", "Blood Pressure"},
		wb.GetSheetList())

	rows, err := wb.GetRows("Steps")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, []string{"Date", "Steps"}, rows[0])
	require.Equal(t, "2024-03-01", rows[1][0])
	require.Equal(t, "50", rows[1][1])
}

func TestExportVitals_Validation(t *testing.T) {
	f := newFixture(t)
	svc := NewExportService(f.aggregates, f.bp, zap.NewNop())
	ctx := context.Background()
	var vErr *ValidationError

	_, err := svc.ExportVitals(ctx, ExportRequest{From: "2024-03-01", To: "2024-03-31"})
	require.ErrorAs(t, err, &vErr)

	_, err = svc.ExportVitals(ctx, ExportRequest{PatientID: "p1", From: "2024-03-31", To: "2024-03-01"})
	require.ErrorAs(t, err, &vErr)

	_, err = svc.ExportVitals(ctx, ExportRequest{PatientID: "p1", From: "bad", To: "2024-03-31"})
	require.ErrorAs(t, err, &vErr)
}
