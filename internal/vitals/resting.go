package vitals

import (
	"math"
	"sort"
)

// HourStat one hour-aggregate row reduced to what the resting estimate needs.
// Hour is the local hour of day (0-23) taken from the bucket key.
type HourStat struct {
	Hour  int
	Avg   float64
	Count int
}

const (
	restingNightEndHour = 6
	restingMinSamples   = 10
	restingWindowSize   = 3
)

// RestingHeartRate estimates a nocturnal baseline from one day's hour
// aggregates. Qualifying hours are local 0-6 with at least 10 samples; a
// window of up to 3 qualifying hours slides across them, scored by its mean
// average; the result is the median of the lowest-scoring window. The median
// resists a single noisy low hour that a global minimum would latch onto.
// ok is false when no night hours qualify; callers fall back to the day's
// stored minimum.
func RestingHeartRate(hours []HourStat) (bpm int, ok bool) {
	night := make([]HourStat, 0, len(hours))
	for _, h := range hours {
		if h.Hour >= 0 && h.Hour <= restingNightEndHour && h.Count >= restingMinSamples {
			night = append(night, h)
		}
	}
	if len(night) == 0 {
		return 0, false
	}
	sort.Slice(night, func(i, j int) bool { return night[i].Hour < night[j].Hour })

	best := math.Inf(1)
	bestMedian := 0.0
	for i := range night {
		end := i + restingWindowSize
		if end > len(night) {
			end = len(night)
		}
		w := night[i:end]
		sum := 0.0
		vals := make([]float64, 0, len(w))
		for _, x := range w {
			sum += x.Avg
			vals = append(vals, x.Avg)
		}
		score := sum / float64(len(w))
		if score < best {
			best = score
			bestMedian = median(vals)
		}
	}
	return int(math.Round(bestMedian)), true
}

func median(vals []float64) float64 {
	sort.Float64s(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[mid]
	}
	return (vals[mid-1] + vals[mid]) / 2
}
