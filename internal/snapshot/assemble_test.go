package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/catalog-health/internal/ckan"
	"github.com/sells-group/catalog-health/internal/probe"
)

// fakePortal serves a minimal CKAN Action API for three datasets, with
// dataset "b" permanently failing its package_show call.
func fakePortal(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/3/action/package_list", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success": true, "result": ["a", "b", "c"]}`)
	})
	mux.HandleFunc("/api/3/action/package_show", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if id == "b" {
			fmt.Fprint(w, `{"success": false, "error": {"message": "boom"}}`)
			return
		}
		resp := map[string]any{
			"success": true,
			"result": map[string]any{
				"id":                id + "-uuid",
				"name":              id,
				"title":             "Dataset " + id,
				"metadata_modified": "2024-05-25T00:00:00",
				"organization":      map[string]any{"id": "org-1", "name": "org", "title": "Org"},
				"resources": []any{
					map[string]any{"id": id + "-r1", "name": "res", "format": "csv"},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestAssembler(t *testing.T, baseURL string, workers int) *Assembler {
	t.Helper()
	catalog := ckan.NewClient(ckan.Options{
		BaseURL: baseURL,
		APIPath: "/api/3/action",
		Timeout: 5 * time.Second,
		Retries: 0,
	})
	prober := probe.NewProber(probe.Options{Client: catalog.HTTPClient()})
	proc := NewProcessor(prober, catalog, 90, 365)
	return NewAssembler(catalog, proc, AssemblerOptions{
		Workers:    workers,
		GreenDays:  90,
		YellowDays: 365,
	})
}

func TestRun_PartialFailureIsolation(t *testing.T) {
	srv := fakePortal(t)
	a := newTestAssembler(t, srv.URL, 1)

	snap, err := a.Run(context.Background(), testNow)
	require.NoError(t, err)

	// b failed, a and c survived.
	require.Len(t, snap.Datasets, 2)
	assert.Equal(t, "a", snap.Datasets[0].Name)
	assert.Equal(t, "c", snap.Datasets[1].Name)
	require.Len(t, snap.Errors, 1)
	assert.Equal(t, "b", snap.Errors[0].Dataset)
	assert.Contains(t, snap.Errors[0].Error, "success=false")

	assert.Equal(t, 2, snap.Summary.DatasetsTotal)
	assert.Equal(t, 1, snap.Summary.ErrorsTotal)
}

func TestRun_SummaryMatchesDatasets(t *testing.T) {
	srv := fakePortal(t)
	a := newTestAssembler(t, srv.URL, 1)

	snap, err := a.Run(context.Background(), testNow)
	require.NoError(t, err)

	s := snap.Summary
	assert.Equal(t, s.DatasetsTotal,
		s.DatasetsGreen+s.DatasetsYellow+s.DatasetsRed+s.DatasetsUnknown)

	var resTotal, resBroken int
	for _, d := range snap.Datasets {
		resTotal += d.ResourcesTotal
		resBroken += d.ResourcesBroken
	}
	assert.Equal(t, resTotal, s.ResourcesTotal)
	assert.Equal(t, resBroken, s.ResourcesBroken)

	// Both resources declare csv but have no URL: broken, not parse-failed.
	assert.Equal(t, 2, s.ResourcesTotal)
	assert.Equal(t, 2, s.ResourcesBroken)
	assert.Equal(t, 0, s.ResourcesParseFailed)
}

func TestRun_Meta(t *testing.T) {
	srv := fakePortal(t)
	a := newTestAssembler(t, srv.URL, 1)

	snap, err := a.Run(context.Background(), testNow)
	require.NoError(t, err)

	assert.Equal(t, srv.URL, snap.Meta.CKANBaseURL)
	assert.Equal(t, "/api/3/action", snap.Meta.CKANAPIPath)
	assert.Equal(t, 90, snap.Meta.FreshnessThresholdDays.GreenLT)
	assert.Equal(t, 365, snap.Meta.FreshnessThresholdDays.YellowLTE)
	assert.Equal(t, "2024-06-01T00:00:00Z", snap.Meta.GeneratedAt)
	assert.NotEmpty(t, snap.Meta.RunID)
}

func TestRun_WorkerPoolPreservesOrder(t *testing.T) {
	srv := fakePortal(t)
	a := newTestAssembler(t, srv.URL, 4)

	snap, err := a.Run(context.Background(), testNow)
	require.NoError(t, err)

	require.Len(t, snap.Datasets, 2)
	assert.Equal(t, "a", snap.Datasets[0].Name)
	assert.Equal(t, "c", snap.Datasets[1].Name)
}

func TestRun_MaxDatasets(t *testing.T) {
	srv := fakePortal(t)
	catalog := ckan.NewClient(ckan.Options{
		BaseURL: srv.URL,
		APIPath: "/api/3/action",
		Timeout: 5 * time.Second,
	})
	prober := probe.NewProber(probe.Options{Client: catalog.HTTPClient()})
	proc := NewProcessor(prober, catalog, 90, 365)
	a := NewAssembler(catalog, proc, AssemblerOptions{
		MaxDatasets: 1,
		Workers:     1,
		GreenDays:   90,
		YellowDays:  365,
	})

	snap, err := a.Run(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Summary.DatasetsTotal)
	assert.Equal(t, "a", snap.Datasets[0].Name)
}

func TestRun_ListingFailureIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	a := newTestAssembler(t, srv.URL, 1)
	_, err := a.Run(context.Background(), testNow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list datasets")
}
