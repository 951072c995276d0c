package snapshot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/catalog-health/internal/ckan"
	"github.com/sells-group/catalog-health/internal/freshness"
	"github.com/sells-group/catalog-health/internal/probe"
)

var testNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func newTestProcessor(t *testing.T) *Processor {
	t.Helper()
	catalog := ckan.NewClient(ckan.Options{
		BaseURL: "https://catalog.example",
		APIPath: "/api/3/action",
		Timeout: 5 * time.Second,
	})
	prober := probe.NewProber(probe.Options{Timeout: 5 * time.Second})
	return NewProcessor(prober, catalog, 90, 365)
}

func TestProcess_StaleDataset(t *testing.T) {
	p := newTestProcessor(t)
	pkg := &ckan.Package{
		ID:               "uuid-1",
		Name:             "old-ds",
		Title:            "Old Dataset",
		MetadataModified: testNow.AddDate(0, 0, -400).Format(time.RFC3339),
		Organization:     &ckan.Organization{ID: "o1", Name: "org", Title: "Org"},
	}

	rec := p.Process(context.Background(), pkg, "old-ds", testNow)
	assert.Equal(t, freshness.Red, rec.FreshnessBucket)
	require.NotNil(t, rec.DaysSinceModified)
	assert.Equal(t, 400, *rec.DaysSinceModified)
	assert.Equal(t, "https://catalog.example/dataset/old-ds", rec.CatalogURL)
}

func TestProcess_LastModifiedPriorityOrder(t *testing.T) {
	p := newTestProcessor(t)
	pkg := &ckan.Package{
		Name:             "ds",
		MetadataModified: "garbage",
		MetadataCreated:  "2024-01-02T00:00:00",
		LastModified:     "2024-05-01T00:00:00",
	}

	rec := p.Process(context.Background(), pkg, "ds", testNow)
	// metadata_modified fails to parse, metadata_created wins even
	// though last_modified is newer.
	require.NotNil(t, rec.LastModified)
	assert.Equal(t, "2024-01-02T00:00:00Z", *rec.LastModified)
}

func TestProcess_ResourceTimestampFallback(t *testing.T) {
	p := newTestProcessor(t)
	pkg := &ckan.Package{
		Name: "ds",
		Resources: []ckan.Resource{
			{ID: "r1", Created: "2023-01-01T00:00:00"},
			{ID: "r2", LastModified: "2024-02-01T00:00:00"},
			{ID: "r3", LastModified: "not a date"},
		},
	}

	rec := p.Process(context.Background(), pkg, "ds", testNow)
	require.NotNil(t, rec.LastModified)
	assert.Equal(t, "2024-02-01T00:00:00Z", *rec.LastModified)
}

func TestProcess_NoTimestampsAnywhere(t *testing.T) {
	p := newTestProcessor(t)
	pkg := &ckan.Package{Name: "ds"}

	rec := p.Process(context.Background(), pkg, "ds", testNow)
	assert.Nil(t, rec.LastModified)
	assert.Nil(t, rec.DaysSinceModified)
	assert.Equal(t, freshness.Unknown, rec.FreshnessBucket)
}

func TestProcess_CountersAndFormats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/good.csv":
			w.Write([]byte("a,b\n1,2\n"))
		case "/bad.json":
			w.Write([]byte("{broken"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := newTestProcessor(t)
	pkg := &ckan.Package{
		Name: "ds",
		Resources: []ckan.Resource{
			{ID: "r1", Name: "good", URL: srv.URL + "/good.csv", Format: " CSV "},
			{ID: "r2", Name: "bad", URL: srv.URL + "/bad.json", Format: "JSON"},
			{ID: "r3", Name: "gone", URL: srv.URL + "/missing", Format: "csv"},
			{ID: "r4", Name: "nourl", Format: "XML"},
		},
	}

	rec := p.Process(context.Background(), pkg, "ds", testNow)
	assert.Equal(t, 4, rec.ResourcesTotal)
	assert.Equal(t, 3, rec.ResourcesBroken)
	assert.Equal(t, 1, rec.ResourcesParseFailed)
	assert.Equal(t, []string{"csv", "json", "xml"}, rec.Formats)

	// Invariant: parse_failed <= broken <= total.
	assert.LessOrEqual(t, rec.ResourcesParseFailed, rec.ResourcesBroken)
	assert.LessOrEqual(t, rec.ResourcesBroken, rec.ResourcesTotal)
}

func TestProcess_FallbackIdentity(t *testing.T) {
	p := newTestProcessor(t)
	rec := p.Process(context.Background(), &ckan.Package{}, "pkg-7", testNow)
	assert.Equal(t, "pkg-7", rec.ID)
	assert.Equal(t, "pkg-7", rec.Name)
	assert.Equal(t, "pkg-7", rec.Title)
	assert.Equal(t, "unknown", rec.Organization.ID)
	assert.Equal(t, "unknown", rec.Organization.Title)
}

func TestProcess_Idempotent(t *testing.T) {
	p := newTestProcessor(t)
	pkg := &ckan.Package{
		Name:             "ds",
		Title:            "DS",
		MetadataModified: "2024-05-20T00:00:00",
		Organization:     &ckan.Organization{ID: "o1", Name: "org", Title: "Org"},
		Resources:        []ckan.Resource{{ID: "r1", Format: "csv"}}, // missing url, no network
	}

	a := p.Process(context.Background(), pkg, "ds", testNow)
	b := p.Process(context.Background(), pkg, "ds", testNow)
	assert.Equal(t, a, b)
}
