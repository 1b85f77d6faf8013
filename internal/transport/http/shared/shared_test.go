package shared

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestParsePagination(t *testing.T) {
	cases := []struct {
		name   string
		url    string
		limit  int
		offset int
	}{
		{"defaults", "/items", 50, 0},
		{"explicit", "/items?limit=10&offset=30", 10, 30},
		{"capped", "/items?limit=9999", 200, 0},
		{"page wins over offset", "/items?limit=20&page=3&offset=5", 20, 40},
		{"garbage falls back", "/items?limit=abc&offset=-5", 50, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tc.url, nil)
			p := ParsePagination(r, 50, 200)
			if p.Limit != tc.limit || p.Offset != tc.offset {
				t.Fatalf("got limit=%d offset=%d, want limit=%d offset=%d", p.Limit, p.Offset, tc.limit, tc.offset)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	parsed, err := ParseDate("2025-03-07")
	if err != nil {
		t.Fatalf("parse date-only: %v", err)
	}
	if parsed.Year() != 2025 || parsed.Month() != time.March || parsed.Day() != 7 {
		t.Fatalf("unexpected date: %v", parsed)
	}

	parsed, err = ParseDate("2025-03-07T09:30:00Z")
	if err != nil {
		t.Fatalf("parse RFC3339: %v", err)
	}
	if parsed.Hour() != 9 {
		t.Fatalf("expected time portion kept, got %v", parsed)
	}

	if parsed, err := ParseDate(""); err != nil || !parsed.IsZero() {
		t.Fatalf("empty input must yield zero time, got %v / %v", parsed, err)
	}

	if _, err := ParseDate("07/03/2025"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
