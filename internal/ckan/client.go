// Package ckan is a read-only client for the CKAN Action API. It covers
// the two actions the snapshot pipeline needs: package_list and
// package_show. Transient failures (including success=false envelopes)
// are retried with linear backoff.
package ckan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/catalog-health/internal/resilience"
)

// Options configures the catalog client.
type Options struct {
	BaseURL   string // e.g. https://catalogodatos.gub.uy
	APIPath   string // e.g. /api/3/action
	UserAgent string
	Timeout   time.Duration
	Retries   int // retries after the first attempt
}

// Client talks to one CKAN portal. The underlying http.Client is shared
// across all calls for connection reuse.
type Client struct {
	httpc     *http.Client
	baseURL   string
	apiPath   string
	userAgent string
	retry     resilience.RetryConfig
}

// envelope is the CKAN Action API response wrapper. A false or absent
// success flag is treated as a failure even on HTTP 200.
type envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
}

// NewClient creates a catalog client. The http.Client it builds is also
// handed to the resource prober so the whole run shares one connection
// pool.
func NewClient(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 12 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "catalog-health/1.0"
	}
	retry := resilience.LinearRetryConfig(opts.Retries+1, 600*time.Millisecond)
	retry.OnRetry = resilience.RetryLogger("ckan.get")
	return &Client{
		httpc: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		apiPath:   strings.TrimRight(opts.APIPath, "/"),
		userAgent: opts.UserAgent,
		retry:     retry,
	}
}

// HTTPClient exposes the shared http.Client for sibling components.
func (c *Client) HTTPClient() *http.Client {
	return c.httpc
}

// BaseURL returns the portal base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIPath returns the Action API path without a trailing slash.
func (c *Client) APIPath() string {
	return c.apiPath
}

// DatasetURL returns the human-facing catalog page for a dataset name.
func (c *Client) DatasetURL(name string) string {
	return c.baseURL + "/dataset/" + name
}

func (c *Client) actionURL(action string, params url.Values) string {
	u := c.baseURL + c.apiPath + "/" + action
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// ListDatasets returns every dataset identifier published by the portal.
// CKAN emits identifiers as strings, but some portals return numeric ids;
// both are normalized to strings.
func (c *Client) ListDatasets(ctx context.Context) ([]string, error) {
	raw, err := c.getAction(ctx, "package_list", nil)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	var items []any
	if err := dec.Decode(&items); err != nil {
		return nil, eris.Wrap(err, "ckan: unexpected package_list result shape")
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			ids = append(ids, v)
		case json.Number:
			ids = append(ids, v.String())
		default:
			return nil, eris.Errorf("ckan: unexpected package id type %T", item)
		}
	}
	return ids, nil
}

// ShowDataset fetches the full metadata of one dataset.
func (c *Client) ShowDataset(ctx context.Context, id string) (*Package, error) {
	params := url.Values{"id": []string{id}}
	raw, err := c.getAction(ctx, "package_show", params)
	if err != nil {
		return nil, err
	}

	var pkg Package
	if err := json.Unmarshal(raw, &pkg); err != nil {
		return nil, eris.Wrapf(err, "ckan: decode package %s", id)
	}
	return &pkg, nil
}

// getAction performs one Action API GET with retries.
func (c *Client) getAction(ctx context.Context, action string, params url.Values) (json.RawMessage, error) {
	u := c.actionURL(action, params)
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (json.RawMessage, error) {
		return c.getJSON(ctx, u)
	})
}

func (c *Client) getJSON(ctx context.Context, u string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "ckan: create request for %s", u)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "ckan: GET %s", u)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("ckan: GET %s: status %d", u, resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrapf(err, "ckan: read body from %s", u), 0)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, eris.Wrapf(err, "ckan: decode envelope from %s", u)
	}
	if !env.Success {
		// The API reports failures in-band on HTTP 200. Treat as
		// transient so the retry budget applies to it too.
		return nil, resilience.NewTransientError(
			eris.New(fmt.Sprintf("ckan: success=false from %s", u)), 0)
	}
	return env.Result, nil
}
