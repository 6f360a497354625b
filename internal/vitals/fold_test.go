package vitals

import (
	"testing"
	"time"

	"vitalink-data/internal/domain"

	"github.com/stretchr/testify/require"
)

func stepsEvent(end time.Time, count int64, offset int) domain.StepsEvent {
	return domain.StepsEvent{
		PatientID:   "p1",
		OriginID:    "android_health_connect",
		DeviceID:    "dev1",
		StartTs:     end.Add(-5 * time.Minute),
		EndTs:       end,
		Count:       count,
		TzOffsetMin: offset,
	}
}

func TestFoldSteps_BucketsOnEndTimestamp(t *testing.T) {
	// start 09:58Z, end 10:02Z: the interval's contribution lands in the
	// 10:00 hour, not the 09:00 hour.
	ev := stepsEvent(time.Date(2024, 3, 1, 10, 2, 0, 0, time.UTC), 50, 0)
	f, err := FoldSteps([]domain.StepsEvent{ev})
	require.NoError(t, err)
	require.Len(t, f.Hours, 1)
	require.Equal(t, int64(50), f.Hours[HourRef{"p1", "2024-03-01T10:00:00.000Z"}])
	require.Equal(t, int64(50), f.Days[DayRef{"p1", "2024-03-01"}])
}

func TestFoldSteps_SumsWithinBucket(t *testing.T) {
	f, err := FoldSteps([]domain.StepsEvent{
		stepsEvent(time.Date(2024, 3, 1, 10, 2, 0, 0, time.UTC), 50, 480),
		stepsEvent(time.Date(2024, 3, 1, 10, 40, 0, 0, time.UTC), 30, 480),
		stepsEvent(time.Date(2024, 3, 1, 11, 5, 0, 0, time.UTC), 20, 480),
	})
	require.NoError(t, err)
	require.Equal(t, int64(80), f.Hours[HourRef{"p1", "2024-03-01T18:00:00.000Z"}])
	require.Equal(t, int64(20), f.Hours[HourRef{"p1", "2024-03-01T19:00:00.000Z"}])
	require.Equal(t, int64(100), f.Days[DayRef{"p1", "2024-03-01"}])
}

func TestFoldSteps_MissingPatientFailsBatch(t *testing.T) {
	bad := stepsEvent(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), 10, 0)
	bad.PatientID = ""
	_, err := FoldSteps([]domain.StepsEvent{bad})
	require.ErrorIs(t, err, ErrMissingPatient)
}

func TestFoldSteps_SkipsZeroTimestamp(t *testing.T) {
	bad := domain.StepsEvent{PatientID: "p1", Count: 10}
	good := stepsEvent(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), 5, 0)
	f, err := FoldSteps([]domain.StepsEvent{bad, good})
	require.NoError(t, err)
	require.Equal(t, 1, f.Skipped)
	require.Len(t, f.Hours, 1)
}

func TestFoldHeartRate_TracksMinMaxSumCount(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	mk := func(bpm int64, min int) domain.HrSample {
		return domain.HrSample{PatientID: "p1", TimeTs: ts.Add(time.Duration(min) * time.Minute), Bpm: bpm}
	}
	f, err := FoldHeartRate([]domain.HrSample{mk(62, 0), mk(58, 10), mk(71, 20)})
	require.NoError(t, err)
	acc := f.Hours[HourRef{"p1", "2024-03-01T10:00:00.000Z"}]
	require.NotNil(t, acc)
	require.Equal(t, 58.0, acc.Min)
	require.Equal(t, 71.0, acc.Max)
	require.Equal(t, 191.0, acc.Sum)
	require.Equal(t, 3, acc.Count)
	require.InDelta(t, 191.0/3.0, acc.Avg(), 1e-9)
}

func TestFoldHeartRate_CrossesUTCMidnightSameLocalDay(t *testing.T) {
	// 23:30Z and 00:10Z next UTC day, both UTC+8: same local day bucket.
	f, err := FoldHeartRate([]domain.HrSample{
		{PatientID: "p1", TimeTs: time.Date(2024, 2, 29, 23, 30, 0, 0, time.UTC), Bpm: 60, TzOffsetMin: 480},
		{PatientID: "p1", TimeTs: time.Date(2024, 3, 1, 0, 10, 0, 0, time.UTC), Bpm: 64, TzOffsetMin: 480},
	})
	require.NoError(t, err)
	require.Len(t, f.Days, 1)
	acc := f.Days[DayRef{"p1", "2024-03-01"}]
	require.Equal(t, 2, acc.Count)
	require.Equal(t, 60.0, acc.Min)
	require.Equal(t, 64.0, acc.Max)
}

func TestFoldSpo2_KeepsFractionalValues(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	f, err := FoldSpo2([]domain.Spo2Sample{
		{PatientID: "p1", TimeTs: ts, Pct: 96.5},
		{PatientID: "p1", TimeTs: ts.Add(time.Minute), Pct: 97.25},
	})
	require.NoError(t, err)
	acc := f.Hours[HourRef{"p1", "2024-03-01T10:00:00.000Z"}]
	require.Equal(t, 96.5, acc.Min)
	require.Equal(t, 97.25, acc.Max)
	require.InDelta(t, 96.875, acc.Avg(), 1e-9)
}

func TestFoldDistance_SumsMeters(t *testing.T) {
	end := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)
	f, err := FoldDistance([]domain.DistanceEvent{
		{PatientID: "p1", StartTs: end.Add(-time.Minute), EndTs: end, Meters: 120.5},
		{PatientID: "p1", StartTs: end, EndTs: end.Add(time.Minute), Meters: 80.25},
	})
	require.NoError(t, err)
	require.InDelta(t, 200.75, f.Days[DayRef{"p1", "2024-03-01"}], 1e-9)
}
