package domain

import "time"

// Aggregate buckets are keyed by the sample's local wall-clock time rendered
// as if it were UTC: the raw UTC instant is shifted by the record's own
// timezone offset before truncating. The distinct key types exist so that a
// bucket timestamp is never mistaken for a real UTC instant and shifted a
// second time on the read path.

// HourKey start of a local hour, serialized "2006-01-02T15:04:05.000Z".
type HourKey string

// DayKey a local calendar day, serialized "2006-01-02".
type DayKey string

// HourKeyLayout matches the ISO-8601 millisecond form the mobile clients and
// the stored hour_ts columns use.
const HourKeyLayout = "2006-01-02T15:04:05.000Z"

const DayKeyLayout = "2006-01-02"

// Time parses the key back into the instant it renders. The result is the
// shifted wall-clock value, not a true UTC instant.
func (k HourKey) Time() (time.Time, error) {
	return time.Parse(HourKeyLayout, string(k))
}

// Day returns the calendar-day portion of the hour key.
func (k HourKey) Day() DayKey {
	if len(k) < len(DayKeyLayout) {
		return ""
	}
	return DayKey(k[:len(DayKeyLayout)])
}

// LocalHour returns the hour-of-day (0-23) the key falls in, or -1 when the
// key is malformed.
func (k HourKey) LocalHour() int {
	t, err := k.Time()
	if err != nil {
		return -1
	}
	return t.Hour()
}

func (d DayKey) Time() (time.Time, error) {
	return time.Parse(DayKeyLayout, string(d))
}

// HourKeyAt renders an already-shifted instant as an hour key. Used when
// scanning stored bucket timestamps back out of the database.
func HourKeyAt(t time.Time) HourKey {
	return HourKey(t.UTC().Format(HourKeyLayout))
}

// DayKeyAt renders an already-shifted instant as a day key.
func DayKeyAt(t time.Time) DayKey {
	return DayKey(t.UTC().Format(DayKeyLayout))
}
