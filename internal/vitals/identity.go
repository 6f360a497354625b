package vitals

import (
	"strconv"
	"strings"
	"time"

	"vitalink-data/internal/domain"
)

// Record identities are the natural dedup keys shared by the agent and the
// server: field order, timestamp layout and number formatting are part of
// the wire contract and must stay bit-exact on both sides.

func identityTs(t time.Time) string {
	return t.UTC().Format(domain.HourKeyLayout)
}

func StepsRecordUID(patientID, originID, deviceID string, startTs, endTs time.Time, count int64) string {
	return strings.Join([]string{
		patientID, originID, deviceID,
		identityTs(startTs), identityTs(endTs),
		strconv.FormatInt(count, 10),
	}, "|")
}

func DistanceRecordUID(patientID, originID, deviceID string, startTs, endTs time.Time, meters float64) string {
	return strings.Join([]string{
		patientID, originID, deviceID,
		identityTs(startTs), identityTs(endTs),
		strconv.FormatFloat(meters, 'f', -1, 64),
	}, "|")
}

func HrRecordUID(patientID, originID, deviceID string, timeTs time.Time, bpm int64) string {
	return strings.Join([]string{
		patientID, originID, deviceID,
		identityTs(timeTs),
		strconv.FormatInt(bpm, 10),
	}, "|")
}

func Spo2RecordUID(patientID, originID, deviceID string, timeTs time.Time, pct float64) string {
	return strings.Join([]string{
		patientID, originID, deviceID,
		identityTs(timeTs),
		strconv.FormatFloat(pct, 'f', -1, 64),
	}, "|")
}
