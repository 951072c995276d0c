package snapshot

import (
	"sort"
	"sync"

	"github.com/sells-group/catalog-health/internal/freshness"
)

// OrgAggregator accumulates per-organization rollups. Add is safe for
// concurrent use; the assembler currently feeds it from a single
// collection point.
type OrgAggregator struct {
	mu      sync.Mutex
	rollups map[string]*OrgRollup
}

// NewOrgAggregator creates an empty aggregator.
func NewOrgAggregator() *OrgAggregator {
	return &OrgAggregator{rollups: make(map[string]*OrgRollup)}
}

// Add folds one dataset record into its organization's rollup, creating
// the rollup on first sighting.
func (a *OrgAggregator) Add(rec DatasetRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()

	org := rec.Organization
	roll, ok := a.rollups[org.ID]
	if !ok {
		roll = &OrgRollup{ID: org.ID, Name: org.Name, Title: org.Title}
		a.rollups[org.ID] = roll
	}

	roll.DatasetsTotal++
	switch rec.FreshnessBucket {
	case freshness.Green:
		roll.DatasetsGreen++
	case freshness.Yellow:
		roll.DatasetsYellow++
	case freshness.Red:
		roll.DatasetsRed++
	default:
		roll.DatasetsUnknown++
	}
	roll.ResourcesTotal += rec.ResourcesTotal
	roll.ResourcesBroken += rec.ResourcesBroken
	roll.ResourcesParseFailed += rec.ResourcesParseFailed
}

// Finalize returns the rollups ordered by descending dataset count,
// ties broken by ascending title.
func (a *OrgAggregator) Finalize() []OrgRollup {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]OrgRollup, 0, len(a.rollups))
	for _, roll := range a.rollups {
		out = append(out, *roll)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DatasetsTotal != out[j].DatasetsTotal {
			return out[i].DatasetsTotal > out[j].DatasetsTotal
		}
		return out[i].Title < out[j].Title
	})
	return out
}
