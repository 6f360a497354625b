package agent

import (
	"sort"

	"vitalink-data/internal/wire"
)

// Pending records drain oldest first; the serialized timestamps sort
// lexicographically in chronological order.

func sortByEndTs(items []wire.StepsEvent) {
	sort.Slice(items, func(i, j int) bool { return items[i].EndTs < items[j].EndTs })
}

func sortDistanceByEndTs(items []wire.DistanceEvent) {
	sort.Slice(items, func(i, j int) bool { return items[i].EndTs < items[j].EndTs })
}

func sortHrByTimeTs(items []wire.HrSample) {
	sort.Slice(items, func(i, j int) bool { return items[i].TimeTs < items[j].TimeTs })
}

func sortSpo2ByTimeTs(items []wire.Spo2Sample) {
	sort.Slice(items, func(i, j int) bool { return items[i].TimeTs < items[j].TimeTs })
}
