package vitals

import (
	"time"

	"vitalink-data/internal/domain"
)

// Bucket membership follows the record's own reported timezone offset: the
// UTC instant is shifted by offsetMin minutes and then truncated. The writer
// (fold) and the reader (series queries) both go through these functions so
// the shift is applied exactly once.

// HourKeyFor returns the hour bucket for a UTC instant and an offset in
// minutes (may be negative, zero is valid).
func HourKeyFor(ts time.Time, offsetMin int) domain.HourKey {
	shifted := ts.UTC().Add(time.Duration(offsetMin) * time.Minute)
	return domain.HourKey(shifted.Truncate(time.Hour).Format(domain.HourKeyLayout))
}

// DayKeyFor returns the calendar-day bucket for a UTC instant and an offset
// in minutes.
func DayKeyFor(ts time.Time, offsetMin int) domain.DayKey {
	shifted := ts.UTC().Add(time.Duration(offsetMin) * time.Minute)
	return domain.DayKey(shifted.Format(domain.DayKeyLayout))
}

// LocalToday derives the caller's current calendar day from its offset.
// Used by the hourly read path when no anchor date is supplied.
func LocalToday(now time.Time, offsetMin int) domain.DayKey {
	return DayKeyFor(now, offsetMin)
}

// HourWindowForDay returns the [from, to) hour-key range covering one local
// day. Stored hour keys are already local-shifted, so the window is simply
// the day's 24 hours rendered as UTC; no further offset is applied.
func HourWindowForDay(day domain.DayKey) (domain.HourKey, domain.HourKey, error) {
	t, err := day.Time()
	if err != nil {
		return "", "", err
	}
	from := domain.HourKey(t.Format(domain.HourKeyLayout))
	to := domain.HourKey(t.AddDate(0, 0, 1).Format(domain.HourKeyLayout))
	return from, to, nil
}

// DayRange returns the [from, to] day keys covering n days ending at anchor.
func DayRange(anchor domain.DayKey, n int) (domain.DayKey, domain.DayKey, error) {
	t, err := anchor.Time()
	if err != nil {
		return "", "", err
	}
	from := t.AddDate(0, 0, -(n - 1))
	return domain.DayKey(from.Format(domain.DayKeyLayout)), anchor, nil
}

// MonthRange returns the first and last day keys of anchor's calendar month.
func MonthRange(anchor domain.DayKey) (domain.DayKey, domain.DayKey, error) {
	t, err := anchor.Time()
	if err != nil {
		return "", "", err
	}
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return domain.DayKey(first.Format(domain.DayKeyLayout)), domain.DayKey(last.Format(domain.DayKeyLayout)), nil
}
