package snapshot

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/sells-group/catalog-health/internal/ckan"
	"github.com/sells-group/catalog-health/internal/freshness"
	"github.com/sells-group/catalog-health/internal/probe"
)

// datasetTimestampFields lists the dataset-level timestamp extractors
// tried in priority order for last-modified resolution. The order is
// load-bearing: the first field that parses wins.
var datasetTimestampFields = []func(*ckan.Package) string{
	func(p *ckan.Package) string { return p.MetadataModified },
	func(p *ckan.Package) string { return p.MetadataCreated },
	func(p *ckan.Package) string { return p.LastModified },
	func(p *ckan.Package) string { return p.Modified },
}

// Processor turns raw package metadata into a DatasetRecord, probing
// every resource along the way. It never fails on partial data.
type Processor struct {
	prober     *probe.Prober
	catalog    *ckan.Client
	greenDays  int
	yellowDays int
}

// NewProcessor creates a dataset processor. The catalog client is only
// used to derive the human-facing dataset page URL.
func NewProcessor(prober *probe.Prober, catalog *ckan.Client, greenDays, yellowDays int) *Processor {
	return &Processor{
		prober:     prober,
		catalog:    catalog,
		greenDays:  greenDays,
		yellowDays: yellowDays,
	}
}

// Process builds the DatasetRecord for one package. Resource probing
// failures are encoded in the per-resource check results, never raised.
func (p *Processor) Process(ctx context.Context, pkg *ckan.Package, id string, now time.Time) DatasetRecord {
	name := pkg.Name
	if name == "" {
		name = id
	}
	title := pkg.Title
	if title == "" {
		title = name
	}

	org := OrgIdentity{ID: "unknown", Name: "unknown", Title: "unknown"}
	if pkg.Organization != nil {
		if pkg.Organization.ID != "" {
			org.ID = pkg.Organization.ID
		}
		if pkg.Organization.Name != "" {
			org.Name = pkg.Organization.Name
		}
		org.Title = pkg.Organization.Title
		if org.Title == "" {
			org.Title = org.Name
		}
	}

	lastMod := datasetLastModified(pkg)
	days := freshness.AgeDays(lastMod, now)
	bucket := freshness.ClassifyAge(days, p.greenDays, p.yellowDays)

	rec := DatasetRecord{
		Name:              name,
		Title:             title,
		Organization:      org,
		LastModified:      isoOrNil(lastMod),
		DaysSinceModified: days,
		FreshnessBucket:   bucket,
		ResourcesTotal:    len(pkg.Resources),
		Formats:           collectFormats(pkg.Resources),
		Resources:         make([]ResourceRecord, 0, len(pkg.Resources)),
		CatalogURL:        p.catalog.DatasetURL(name),
	}
	rec.ID = pkg.ID
	if rec.ID == "" {
		rec.ID = name
	}

	for _, r := range pkg.Resources {
		rName := r.Name
		if rName == "" {
			rName = r.Description
		}
		if rName == "" {
			rName = r.ID
		}

		rLastMod := freshness.ParseTimestamp(firstNonEmpty(r.LastModified, r.MetadataModified))

		check := p.prober.Check(ctx, r.URL, r.Format)
		if !check.OK {
			rec.ResourcesBroken++
			if check.Error != nil && *check.Error == "parse_failed" {
				rec.ResourcesParseFailed++
			}
		}

		var rURL *string
		if r.URL != "" {
			u := r.URL
			rURL = &u
		}

		rec.Resources = append(rec.Resources, ResourceRecord{
			ID:           r.ID,
			Name:         rName,
			Format:       strings.TrimSpace(r.Format),
			URL:          rURL,
			LastModified: isoOrNil(rLastMod),
			Check:        check,
		})
	}

	return rec
}

// datasetLastModified prefers dataset-level timestamps in priority
// order, then falls back to the newest parseable resource timestamp.
func datasetLastModified(pkg *ckan.Package) *time.Time {
	for _, field := range datasetTimestampFields {
		if t := freshness.ParseTimestamp(field(pkg)); t != nil {
			return t
		}
	}

	var newest *time.Time
	for _, r := range pkg.Resources {
		t := freshness.ParseTimestamp(firstNonEmpty(r.LastModified, r.MetadataModified, r.Created))
		if t != nil && (newest == nil || t.After(*newest)) {
			newest = t
		}
	}
	return newest
}

// collectFormats returns the sorted, deduplicated, lower-cased set of
// non-empty declared formats.
func collectFormats(resources []ckan.Resource) []string {
	seen := make(map[string]struct{})
	for _, r := range resources {
		f := strings.ToLower(strings.TrimSpace(r.Format))
		if f == "" {
			continue
		}
		seen[f] = struct{}{}
	}
	formats := make([]string, 0, len(seen))
	for f := range seen {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func isoOrNil(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
