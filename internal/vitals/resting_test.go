package vitals

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRestingHeartRate_MedianOfLowestWindow(t *testing.T) {
	// Local hours 2,3,4 averaging 60,62,58: only one window, result is the
	// median (60), not the global minimum (58).
	hours := []HourStat{
		{Hour: 2, Avg: 60, Count: 12},
		{Hour: 3, Avg: 62, Count: 15},
		{Hour: 4, Avg: 58, Count: 11},
	}
	bpm, ok := RestingHeartRate(hours)
	require.True(t, ok)
	require.Equal(t, 60, bpm)
}

func TestRestingHeartRate_PicksLowestScoringWindow(t *testing.T) {
	hours := []HourStat{
		{Hour: 0, Avg: 70, Count: 20},
		{Hour: 1, Avg: 68, Count: 20},
		{Hour: 2, Avg: 55, Count: 20},
		{Hour: 3, Avg: 54, Count: 20},
		{Hour: 4, Avg: 56, Count: 20},
		{Hour: 5, Avg: 72, Count: 20},
	}
	// window (2,3,4) scores 55; its median is 55.
	bpm, ok := RestingHeartRate(hours)
	require.True(t, ok)
	require.Equal(t, 55, bpm)
}

func TestRestingHeartRate_IgnoresSparseAndDaytimeHours(t *testing.T) {
	hours := []HourStat{
		{Hour: 2, Avg: 40, Count: 3},   // too few samples
		{Hour: 14, Avg: 50, Count: 30}, // daytime
		{Hour: 3, Avg: 61, Count: 12},
	}
	bpm, ok := RestingHeartRate(hours)
	require.True(t, ok)
	require.Equal(t, 61, bpm)
}

func TestRestingHeartRate_NoQualifyingHours(t *testing.T) {
	_, ok := RestingHeartRate([]HourStat{{Hour: 12, Avg: 80, Count: 40}})
	require.False(t, ok)
	_, ok = RestingHeartRate(nil)
	require.False(t, ok)
}

func TestRestingHeartRate_ShortTrailingWindow(t *testing.T) {
	// A trailing window shorter than 3 hours still competes.
	hours := []HourStat{
		{Hour: 4, Avg: 70, Count: 12},
		{Hour: 5, Avg: 66, Count: 12},
		{Hour: 6, Avg: 50, Count: 12},
	}
	// windows: (4,5,6)=62, (5,6)=58, (6)=50 -> best is the single hour 6.
	bpm, ok := RestingHeartRate(hours)
	require.True(t, ok)
	require.Equal(t, 50, bpm)
}

func TestMedian_EvenCount(t *testing.T) {
	require.Equal(t, 60.5, median([]float64{62, 59, 60, 61}))
}
