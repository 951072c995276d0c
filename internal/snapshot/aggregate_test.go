package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/catalog-health/internal/freshness"
)

func rec(orgID, orgTitle string, bucket freshness.Bucket, total, broken, parseFailed int) DatasetRecord {
	return DatasetRecord{
		Organization:         OrgIdentity{ID: orgID, Name: orgID, Title: orgTitle},
		FreshnessBucket:      bucket,
		ResourcesTotal:       total,
		ResourcesBroken:      broken,
		ResourcesParseFailed: parseFailed,
	}
}

func TestAggregator_FirstSighting(t *testing.T) {
	agg := NewOrgAggregator()
	agg.Add(rec("abc", "ABC", freshness.Yellow, 3, 1, 0))

	rollups := agg.Finalize()
	require.Len(t, rollups, 1)
	r := rollups[0]
	assert.Equal(t, "abc", r.ID)
	assert.Equal(t, 1, r.DatasetsTotal)
	assert.Equal(t, 0, r.DatasetsGreen)
	assert.Equal(t, 1, r.DatasetsYellow)
	assert.Equal(t, 0, r.DatasetsRed)
	assert.Equal(t, 0, r.DatasetsUnknown)
	assert.Equal(t, 3, r.ResourcesTotal)
	assert.Equal(t, 1, r.ResourcesBroken)
}

func TestAggregator_BucketCountersSumToTotal(t *testing.T) {
	agg := NewOrgAggregator()
	buckets := []freshness.Bucket{
		freshness.Green, freshness.Green, freshness.Yellow,
		freshness.Red, freshness.Unknown, freshness.Unknown,
	}
	for _, b := range buckets {
		agg.Add(rec("o1", "Org", b, 2, 0, 0))
	}

	rollups := agg.Finalize()
	require.Len(t, rollups, 1)
	r := rollups[0]
	assert.Equal(t, len(buckets), r.DatasetsTotal)
	assert.Equal(t, r.DatasetsTotal,
		r.DatasetsGreen+r.DatasetsYellow+r.DatasetsRed+r.DatasetsUnknown)
	assert.Equal(t, 12, r.ResourcesTotal)
}

func TestAggregator_FinalizeOrdering(t *testing.T) {
	agg := NewOrgAggregator()
	agg.Add(rec("small", "Zeta", freshness.Green, 0, 0, 0))
	for range 3 {
		agg.Add(rec("big", "Mid", freshness.Green, 0, 0, 0))
	}
	agg.Add(rec("tie-b", "Beta", freshness.Green, 0, 0, 0))
	agg.Add(rec("tie-a", "Alpha", freshness.Green, 0, 0, 0))

	rollups := agg.Finalize()
	require.Len(t, rollups, 4)
	assert.Equal(t, "big", rollups[0].ID)
	// Ties on datasets_total break by ascending title.
	assert.Equal(t, "Alpha", rollups[1].Title)
	assert.Equal(t, "Beta", rollups[2].Title)
	assert.Equal(t, "Zeta", rollups[3].Title)
}
