package service

import (
	"context"
	"testing"
	"time"

	"vitalink-data/internal/domain"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAdminService(f *fixture) AdminService {
	return NewAdminService(f.patients, f.cache, zap.NewNop())
}

func TestAdmin_EnsurePatientValidation(t *testing.T) {
	f := newFixture(t)
	svc := newAdminService(f)
	ctx := context.Background()
	var vErr *ValidationError

	require.ErrorAs(t, svc.EnsurePatient(ctx, EnsurePatientRequest{}), &vErr)
	require.ErrorAs(t, svc.EnsurePatient(ctx, EnsurePatientRequest{
		PatientID: "p1", DateOfBirth: "01/02/1950",
	}), &vErr)
	require.NoError(t, svc.EnsurePatient(ctx, EnsurePatientRequest{
		PatientID: "p1", FirstName: "Ada", DateOfBirth: "1950-02-01",
	}))
}

func TestAdmin_DeletePatientRemovesAllData(t *testing.T) {
	f := newFixture(t)
	svc := newAdminService(f)
	ctx := context.Background()

	_, err := f.ingest.IngestSteps(ctx, IngestStepsRequest{
		UserID: "p1", Patient: domain.Patient{PatientID: "p1"},
		Items: []domain.StepsEvent{
			stepsItem(time.Date(2024, 3, 1, 10, 2, 0, 0, time.UTC), 50, 0),
		},
	})
	require.NoError(t, err)

	before, err := svc.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), before.Patients)
	require.Equal(t, int64(1), before.StepsEvents)

	require.NoError(t, svc.DeletePatient(ctx, DeletePatientRequest{PatientID: "p1"}))

	after, err := svc.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(0), after.Patients)
	require.Equal(t, int64(0), after.StepsEvents)

	day, err := f.aggregates.LatestStepsDay(ctx, "p1")
	require.NoError(t, err)
	require.Nil(t, day)
}
