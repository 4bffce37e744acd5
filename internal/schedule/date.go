package schedule

import (
	"regexp"
	"strings"
	"time"
)

var (
	ordinalRe = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)
	weekdayRe = regexp.MustCompile(`(?i)^(mon|tue|tues|wed|thu|thur|thurs|fri|sat|sun)[a-z]*\.?\s+`)
)

// recentMonths is how far back a yearless date may fall before it is read as next year's
const recentMonths = 2

// layouts that carry a year
var datedLayouts = []string{
	"January 2 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"1/2/2006",
	"1/2/06",
	"2006-01-02",
	"1.2.06",
}

// layouts without a year; the year is inferred from the reference time
var yearlessLayouts = []string{
	"January 2",
	"Jan 2",
	"2 January",
	"2 Jan",
	"1/2",
}

// ParseDate parses a schedule date header such as "Saturday, December 6",
// "Sat, Dec 6th", "December 6, 2025" or "12/06/2025".
//
// Schedule pages list upcoming games with a short tail of recent results, so text without a
// year lands in the twelve months starting recentMonths before ref: a December header scraped
// in January is last year, a May header scraped in August is next year.
// The returned time is midnight UTC. ok is false when nothing matched.
func ParseDate(text string, ref time.Time) (time.Time, bool) {
	clean := cleanDateText(text)
	if clean == "" {
		return time.Time{}, false
	}

	for _, layout := range datedLayouts {
		if t, err := time.Parse(layout, clean); err == nil {
			return t, true
		}
	}

	for _, layout := range yearlessLayouts {
		t, err := time.Parse(layout, clean)
		if err != nil {
			continue
		}
		return inferYear(t.Month(), t.Day(), ref)
	}

	return time.Time{}, false
}

// DateKey returns the ISO date for text, or "" when it cannot be parsed
func DateKey(text string, ref time.Time) string {
	t, ok := ParseDate(text, ref)
	if !ok {
		return ""
	}
	return t.Format("2006-01-02")
}

func cleanDateText(text string) string {
	s := strings.ReplaceAll(text, ",", " ")
	s = collapse(s)
	s = weekdayRe.ReplaceAllString(s, "")
	s = ordinalRe.ReplaceAllString(s, "$1")
	// Go only knows "Sep"
	s = strings.Replace(s, "Sept ", "Sep ", 1)
	return collapse(s)
}

// inferYear places month/day in the year window starting recentMonths before ref.
// ok is false for February 29 when no year in the window is a leap year.
func inferYear(month time.Month, day int, ref time.Time) (time.Time, bool) {
	if ref.IsZero() {
		ref = time.Now()
	}
	ref = ref.UTC()

	start := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, -recentMonths, 0)
	end := start.AddDate(1, 0, 0)
	for _, year := range []int{start.Year(), start.Year() + 1} {
		candidate := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		// Feb 29 rolls into March in non-leap years
		if candidate.Month() != month {
			continue
		}
		if !candidate.Before(start) && candidate.Before(end) {
			return candidate, true
		}
	}
	return time.Time{}, false
}
