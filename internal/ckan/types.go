package ckan

// Organization is the publishing body attached to a package.
type Organization struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Title string `json:"title"`
}

// Resource is one downloadable file or link attached to a package.
// Timestamp fields are kept as raw strings; the catalog emits them in
// several ISO-ish shapes and parsing is the processor's concern.
type Resource struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	URL              string `json:"url"`
	Format           string `json:"format"`
	LastModified     string `json:"last_modified"`
	MetadataModified string `json:"metadata_modified"`
	Created          string `json:"created"`
}

// Package is the raw metadata of one catalog dataset as returned by the
// package_show action.
type Package struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	Title            string        `json:"title"`
	MetadataModified string        `json:"metadata_modified"`
	MetadataCreated  string        `json:"metadata_created"`
	LastModified     string        `json:"last_modified"`
	Modified         string        `json:"modified"`
	Organization     *Organization `json:"organization"`
	Resources        []Resource    `json:"resources"`
}
