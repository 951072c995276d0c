package freshness

import (
	"testing"
	"time"
)

func TestParseTimestamp_Formats(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"2024-03-01T10:30:00Z", "2024-03-01T10:30:00Z"},
		{"2024-03-01T10:30:00+02:00", "2024-03-01T08:30:00Z"},
		{"2024-03-01T10:30:00.123456", "2024-03-01T10:30:00Z"},
		{"2024-03-01 10:30:00", "2024-03-01T10:30:00Z"},
		{"2024-03-01", "2024-03-01T00:00:00Z"},
	}
	for _, c := range cases {
		got := ParseTimestamp(c.raw)
		if got == nil {
			t.Fatalf("ParseTimestamp(%q) = nil", c.raw)
		}
		if got.Truncate(time.Second).Format(time.RFC3339) != c.want {
			t.Errorf("ParseTimestamp(%q) = %s, want %s", c.raw, got.Format(time.RFC3339), c.want)
		}
	}
}

func TestParseTimestamp_Malformed(t *testing.T) {
	for _, raw := range []string{"", "  ", "not a date", "2024-13-45", "yesterday"} {
		if got := ParseTimestamp(raw); got != nil {
			t.Errorf("ParseTimestamp(%q) = %v, want nil", raw, got)
		}
	}
}

func TestAgeDays(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	if got := AgeDays(nil, now); got != nil {
		t.Errorf("AgeDays(nil) = %v, want nil", got)
	}

	past := now.AddDate(0, 0, -10)
	if got := AgeDays(&past, now); got == nil || *got != 10 {
		t.Errorf("AgeDays(-10d) = %v, want 10", got)
	}

	// Partial days floor.
	recent := now.Add(-36 * time.Hour)
	if got := AgeDays(&recent, now); got == nil || *got != 1 {
		t.Errorf("AgeDays(-36h) = %v, want 1", got)
	}

	// Future timestamps clamp to zero.
	future := now.Add(48 * time.Hour)
	if got := AgeDays(&future, now); got == nil || *got != 0 {
		t.Errorf("AgeDays(future) = %v, want 0", got)
	}
}

func TestClassifyAge(t *testing.T) {
	const green, yellow = 90, 365

	if got := ClassifyAge(nil, green, yellow); got != Unknown {
		t.Errorf("nil age = %s, want unknown", got)
	}

	cases := []struct {
		age  int
		want Bucket
	}{
		{0, Green},
		{89, Green},
		{90, Yellow},
		{365, Yellow},
		{366, Red},
		{400, Red},
	}
	for _, c := range cases {
		if got := ClassifyAge(&c.age, green, yellow); got != c.want {
			t.Errorf("ClassifyAge(%d) = %s, want %s", c.age, got, c.want)
		}
	}
}

// Every age maps to exactly one of the three known buckets.
func TestClassifyAge_Totality(t *testing.T) {
	for age := 0; age < 1000; age++ {
		a := age
		switch ClassifyAge(&a, 90, 365) {
		case Green, Yellow, Red:
		default:
			t.Fatalf("age %d produced no known bucket", age)
		}
	}
}
