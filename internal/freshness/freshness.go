// Package freshness classifies datasets by metadata age. Pure functions,
// no I/O; thresholds are passed in by the caller and constant for a run.
package freshness

import (
	"strings"
	"time"
)

// Bucket is a coarse staleness classification.
type Bucket string

const (
	Green   Bucket = "green"
	Yellow  Bucket = "yellow"
	Red     Bucket = "red"
	Unknown Bucket = "unknown"
)

// timestampLayouts lists the accepted shapes for catalog timestamps, tried
// in order. CKAN usually emits naive ISO 8601 with microseconds.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a free-form ISO-ish timestamp. Returns nil on any
// malformed input rather than an error. Timestamps without an explicit
// offset are normalized to UTC; sources reporting local time without an
// offset are therefore classified as if they were UTC.
func ParseTimestamp(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		t = t.UTC()
		return &t
	}
	return nil
}

// AgeDays returns the age of t relative to now in whole days, clamped at
// zero to protect against clock skew and future timestamps. Nil in, nil out.
func AgeDays(t *time.Time, now time.Time) *int {
	if t == nil {
		return nil
	}
	days := int(now.Sub(*t).Seconds()) / 86400
	if days < 0 {
		days = 0
	}
	return &days
}

// ClassifyAge maps an age in days onto a bucket: Unknown when age is nil,
// Green below greenLT, Yellow up to and including yellowLTE, Red beyond.
func ClassifyAge(age *int, greenLT, yellowLTE int) Bucket {
	if age == nil {
		return Unknown
	}
	if *age < greenLT {
		return Green
	}
	if *age <= yellowLTE {
		return Yellow
	}
	return Red
}
