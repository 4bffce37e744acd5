package schedule

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	ref := time.Date(2025, time.November, 20, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{"weekday long month", "Saturday, December 6", "2025-12-06", true},
		{"weekday short month", "Sat, Dec 6", "2025-12-06", true},
		{"ordinal", "Sunday 7th December", "2025-12-07", true},
		{"with year", "December 6, 2025", "2025-12-06", true},
		{"slash year", "12/06/2025", "2025-12-06", true},
		{"short slash year", "1/4/26", "2026-01-04", true},
		{"iso", "2026-02-01", "2026-02-01", true},
		{"sept", "Sept 24", "2025-09-24", true},
		{"older than two months is next season", "Sept 14", "2026-09-14", true},
		{"rolls into next year", "Wednesday, January 14", "2026-01-14", true},
		{"day first", "26 December", "2025-12-26", true},
		{"empty", "", "", false},
		{"garbage", "Matchweek 14", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.text, ref)
			if ok != tt.wantOK {
				t.Fatalf("ParseDate(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if s := got.Format("2006-01-02"); s != tt.want {
				t.Errorf("ParseDate(%q) = %s, want %s", tt.text, s, tt.want)
			}
		})
	}
}

func TestParseDate_PreviousYear(t *testing.T) {
	ref := time.Date(2026, time.January, 3, 0, 0, 0, 0, time.UTC)

	if got := DateKey("Tuesday, December 30", ref); got != "2025-12-30" {
		t.Errorf("DateKey = %q, want 2025-12-30", got)
	}
}

func TestParseDate_UpcomingSeason(t *testing.T) {
	ref := time.Date(2026, time.August, 15, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		text string
		want string
	}{
		{"Sunday, May 23", "2027-05-23"},
		{"Saturday, August 22", "2026-08-22"},
		{"Friday, July 3", "2026-07-03"},
		{"Monday, June 1", "2027-06-01"},
		{"Saturday, January 2", "2027-01-02"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := DateKey(tt.text, ref); got != tt.want {
				t.Errorf("DateKey(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestParseDate_LeapDay(t *testing.T) {
	if got := DateKey("February 29", time.Date(2027, time.December, 1, 0, 0, 0, 0, time.UTC)); got != "2028-02-29" {
		t.Errorf("DateKey = %q, want 2028-02-29", got)
	}
	// no February 29 between Nov 2024 and Nov 2025
	if _, ok := ParseDate("February 29", time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)); ok {
		t.Error("expected no date for Feb 29 outside a leap year window")
	}
}

func TestDateKey_Unparseable(t *testing.T) {
	if got := DateKey("TBD", time.Now()); got != "" {
		t.Errorf("DateKey(TBD) = %q, want empty", got)
	}
}
