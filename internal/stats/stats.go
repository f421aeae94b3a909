package stats

import (
	"time"

	"github.com/mmenanno/inventory-browser/internal/items"
)

// Snapshot is an aggregate summary of the item collection at one point in
// time. Snapshots are values and are never modified after Compute returns.
type Snapshot struct {
	Total         int
	AveragePrice  float64
	CategoryCount int
	ComputedAt    time.Time
}

// Compute builds a snapshot from list. The average price of an empty
// collection is zero. Categories are compared exactly, case included.
func Compute(list []items.Item, at time.Time) Snapshot {
	snap := Snapshot{
		Total:      len(list),
		ComputedAt: at,
	}

	if len(list) == 0 {
		return snap
	}

	var sum float64
	categories := make(map[string]struct{})
	for _, item := range list {
		sum += item.Price
		categories[item.Category] = struct{}{}
	}

	snap.AveragePrice = sum / float64(len(list))
	snap.CategoryCount = len(categories)
	return snap
}
