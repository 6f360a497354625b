package vitals

import (
	"testing"
	"time"

	"vitalink-data/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestHourKeyFor_ShiftsByRecordOffset(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 17, 42, 0, time.UTC)

	// UTC+8: 10:17Z is 18:17 local
	require.Equal(t, domain.HourKey("2024-03-01T18:00:00.000Z"), HourKeyFor(ts, 480))
	// UTC-5: 10:17Z is 05:17 local
	require.Equal(t, domain.HourKey("2024-03-01T05:00:00.000Z"), HourKeyFor(ts, -300))
	// offset 0 is a real offset, not "missing"
	require.Equal(t, domain.HourKey("2024-03-01T10:00:00.000Z"), HourKeyFor(ts, 0))
}

func TestHourKeyFor_IsPure(t *testing.T) {
	ts := time.Date(2024, 3, 1, 23, 59, 59, 999000000, time.UTC)
	for i := 0; i < 5; i++ {
		require.Equal(t, HourKeyFor(ts, 330), HourKeyFor(ts, 330))
		require.Equal(t, DayKeyFor(ts, 330), DayKeyFor(ts, 330))
	}
}

func TestHourKeyFor_SameLocalHourDifferentInstants(t *testing.T) {
	// 07:30 local in UTC+8 and 07:30 local in UTC+0 are different instants
	// but the same local wall-clock hour.
	a := HourKeyFor(time.Date(2024, 2, 29, 23, 30, 0, 0, time.UTC), 480)
	b := HourKeyFor(time.Date(2024, 3, 1, 7, 30, 0, 0, time.UTC), 0)
	require.Equal(t, a, b)
	require.Equal(t, domain.HourKey("2024-03-01T07:00:00.000Z"), a)
}

func TestDayKeyFor_CrossesUTCMidnight(t *testing.T) {
	// 23:30Z and 00:10Z next UTC day, both UTC+8, land in the same local day.
	a := DayKeyFor(time.Date(2024, 2, 29, 23, 30, 0, 0, time.UTC), 480)
	b := DayKeyFor(time.Date(2024, 3, 1, 0, 10, 0, 0, time.UTC), 480)
	require.Equal(t, a, b)
	require.Equal(t, domain.DayKey("2024-03-01"), a)
}

func TestDayKeyFor_NegativeOffsetMovesBack(t *testing.T) {
	d := DayKeyFor(time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC), -120)
	require.Equal(t, domain.DayKey("2024-02-29"), d)
}

func TestHourWindowForDay(t *testing.T) {
	from, to, err := HourWindowForDay("2024-03-01")
	require.NoError(t, err)
	require.Equal(t, domain.HourKey("2024-03-01T00:00:00.000Z"), from)
	require.Equal(t, domain.HourKey("2024-03-02T00:00:00.000Z"), to)
}

func TestDayRange(t *testing.T) {
	from, to, err := DayRange("2024-03-01", 7)
	require.NoError(t, err)
	require.Equal(t, domain.DayKey("2024-02-24"), from)
	require.Equal(t, domain.DayKey("2024-03-01"), to)
}

func TestMonthRange(t *testing.T) {
	from, to, err := MonthRange("2024-02-14")
	require.NoError(t, err)
	require.Equal(t, domain.DayKey("2024-02-01"), from)
	require.Equal(t, domain.DayKey("2024-02-29"), to)
}

func TestLocalToday(t *testing.T) {
	now := time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC)
	require.Equal(t, domain.DayKey("2024-03-02"), LocalToday(now, 480))
	require.Equal(t, domain.DayKey("2024-03-01"), LocalToday(now, 0))
}

func TestHourKey_DayAndLocalHour(t *testing.T) {
	k := domain.HourKey("2024-03-01T05:00:00.000Z")
	require.Equal(t, domain.DayKey("2024-03-01"), k.Day())
	require.Equal(t, 5, k.LocalHour())
}
