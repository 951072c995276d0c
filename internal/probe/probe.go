// Package probe performs bounded reachability and structural checks on
// dataset resources. Every failure mode is captured in the CheckResult;
// Check never returns a Go error.
package probe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// MaxSampleBytes caps how much of a resource is read. Probing samples a
// prefix for structural plausibility, it never downloads the full file.
const MaxSampleBytes = 512 * 1024

// CheckResult is the outcome of probing one resource. Pointer fields are
// absent (JSON null) when not applicable: HTTPStatus on transport-level
// failure, ParseOK when the declared format has no structural check.
type CheckResult struct {
	OK         bool    `json:"ok"`
	HTTPStatus *int    `json:"http_status"`
	Error      *string `json:"error"`
	BytesRead  int     `json:"bytes_read"`
	ParseOK    *bool   `json:"parse_ok"`
	ParseError *string `json:"parse_error"`
	Checksum   *string `json:"checksum"`
}

// Prober samples resource URLs over a shared HTTP client.
type Prober struct {
	client         *http.Client
	userAgent      string
	csvSampleLines int
}

// Options configures a Prober. Client is required so the whole run shares
// one connection pool; Timeout is only applied when building a fallback
// client.
type Options struct {
	Client         *http.Client
	UserAgent      string
	Timeout        time.Duration
	CSVSampleLines int
}

// NewProber creates a resource prober.
func NewProber(opts Options) *Prober {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 12 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	lines := opts.CSVSampleLines
	if lines <= 0 {
		lines = 50
	}
	return &Prober{
		client:         client,
		userAgent:      opts.UserAgent,
		csvSampleLines: lines,
	}
}

// Check probes one resource URL with the declared format. The format is
// trimmed and matched case-insensitively; only csv and json get a
// structural check, anything else passes on transport alone.
func (p *Prober) Check(ctx context.Context, rawURL, format string) CheckResult {
	if strings.TrimSpace(rawURL) == "" {
		return failure("missing url")
	}

	status, sample, err := p.sample(ctx, rawURL)
	if err != nil {
		return failure(err.Error())
	}

	bytesRead := len(sample)

	if status < 200 || status >= 300 {
		res := failure(fmt.Sprintf("http_status_%d", status))
		res.HTTPStatus = &status
		res.BytesRead = bytesRead
		return res
	}

	res := CheckResult{
		OK:         true,
		HTTPStatus: &status,
		BytesRead:  bytesRead,
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		ok, parseErr := checkCSV(sample, p.csvSampleLines)
		res.ParseOK = &ok
		res.ParseError = parseErr
	case "json":
		ok, parseErr := checkJSON(sample)
		res.ParseOK = &ok
		res.ParseError = parseErr
	}

	if bytesRead > 0 {
		sum := sha256.Sum256(sample)
		checksum := hex.EncodeToString(sum[:])
		res.Checksum = &checksum
	}

	if res.ParseOK != nil && !*res.ParseOK {
		res.OK = false
		msg := "parse_failed"
		res.Error = &msg
	}

	return res
}

// sample issues a GET and reads at most MaxSampleBytes of the body. The
// body is read even on error statuses so partial bytes can be recorded,
// and is closed on every path.
func (p *Prober) sample(ctx context.Context, rawURL string) (status int, content []byte, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, err
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	content, err = io.ReadAll(io.LimitReader(resp.Body, MaxSampleBytes))
	if err != nil {
		// Keep the partial read observable through the error path.
		return 0, nil, err
	}
	return resp.StatusCode, content, nil
}

func failure(msg string) CheckResult {
	return CheckResult{OK: false, Error: &msg}
}
