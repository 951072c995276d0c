// Package snapshot builds the catalog health snapshot: it drives the
// prober over every dataset, aggregates per-organization rollups, and
// assembles the run's output document.
package snapshot

import (
	"github.com/sells-group/catalog-health/internal/freshness"
	"github.com/sells-group/catalog-health/internal/probe"
)

// OrgIdentity names a publishing organization.
type OrgIdentity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Title string `json:"title"`
}

// ResourceRecord is the snapshot view of one downloadable resource.
type ResourceRecord struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Format       string            `json:"format"`
	URL          *string           `json:"url"`
	LastModified *string           `json:"last_modified"`
	Check        probe.CheckResult `json:"check"`
}

// DatasetRecord is the normalized view of one catalog dataset. Created
// once per run and never mutated after assembly.
type DatasetRecord struct {
	ID                   string           `json:"id"`
	Name                 string           `json:"name"`
	Title                string           `json:"title"`
	Organization         OrgIdentity      `json:"organization"`
	LastModified         *string          `json:"last_modified"`
	DaysSinceModified    *int             `json:"days_since_modified"`
	FreshnessBucket      freshness.Bucket `json:"freshness_bucket"`
	ResourcesTotal       int              `json:"resources_total"`
	ResourcesBroken      int              `json:"resources_broken"`
	ResourcesParseFailed int              `json:"resources_parse_failed"`
	Formats              []string         `json:"formats"`
	Resources            []ResourceRecord `json:"resources"`
	CatalogURL           string           `json:"catalog_url"`
}

// OrgRollup accumulates counters for one organization. The four bucket
// counters always sum to DatasetsTotal.
type OrgRollup struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Title                string `json:"title"`
	DatasetsTotal        int    `json:"datasets_total"`
	DatasetsGreen        int    `json:"datasets_green"`
	DatasetsYellow       int    `json:"datasets_yellow"`
	DatasetsRed          int    `json:"datasets_red"`
	DatasetsUnknown      int    `json:"datasets_unknown"`
	ResourcesTotal       int    `json:"resources_total"`
	ResourcesBroken      int    `json:"resources_broken"`
	ResourcesParseFailed int    `json:"resources_parse_failed"`
}

// Thresholds reports the freshness thresholds used for the run.
type Thresholds struct {
	GreenLT   int `json:"green_lt"`
	YellowLTE int `json:"yellow_lte"`
}

// Meta identifies the run.
type Meta struct {
	GeneratedAt            string     `json:"generated_at"`
	RunID                  string     `json:"run_id"`
	CKANBaseURL            string     `json:"ckan_base_url"`
	CKANAPIPath            string     `json:"ckan_api_path"`
	FreshnessThresholdDays Thresholds `json:"freshness_thresholds_days"`
	Note                   string     `json:"note"`
}

// Summary holds global counters over the datasets actually included.
// Datasets that errored out contribute only to ErrorsTotal.
type Summary struct {
	DatasetsTotal        int `json:"datasets_total"`
	DatasetsGreen        int `json:"datasets_green"`
	DatasetsYellow       int `json:"datasets_yellow"`
	DatasetsRed          int `json:"datasets_red"`
	DatasetsUnknown      int `json:"datasets_unknown"`
	ResourcesTotal       int `json:"resources_total"`
	ResourcesBroken      int `json:"resources_broken"`
	ResourcesParseFailed int `json:"resources_parse_failed"`
	ErrorsTotal          int `json:"errors_total"`
}

// ProcessError records one dataset that failed before producing a record.
type ProcessError struct {
	Dataset string `json:"dataset"`
	Error   string `json:"error"`
}

// Snapshot is the full output document of one run.
type Snapshot struct {
	Meta          Meta            `json:"meta"`
	Summary       Summary         `json:"summary"`
	Organizations []OrgRollup     `json:"organizations"`
	Datasets      []DatasetRecord `json:"datasets"`
	Errors        []ProcessError  `json:"errors"`
}
