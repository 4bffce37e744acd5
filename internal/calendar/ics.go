package calendar

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pfrederiksen/watchwherelive/internal/schedule"
)

// ErrNoDate is returned for games whose date header never parsed
var ErrNoDate = errors.New("game has no calendar date")

// game lengths including pre-game coverage
var durations = map[schedule.Sport]time.Duration{
	schedule.SportNBA: 150 * time.Minute,
	schedule.SportEPL: 120 * time.Minute,
}

const defaultDuration = 3 * time.Hour

// GenerateICS generates an iCalendar (.ics) document for a game. Times on the source
// pages are local to loc. A game without a tip-off time becomes an all-day entry.
func GenerateICS(g *schedule.GameRecord, loc *time.Location, now time.Time) (string, error) {
	day, err := time.ParseInLocation("2006-01-02", g.Date, loc)
	if err != nil {
		return "", fmt.Errorf("%s: %w", g.ID, ErrNoDate)
	}

	var ics strings.Builder

	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	ics.WriteString("PRODID:-//watchwherelive//schedule//EN\r\n")
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")
	ics.WriteString("BEGIN:VEVENT\r\n")

	ics.WriteString(fmt.Sprintf("UID:%s@watchwherelive\r\n", g.ID))
	ics.WriteString(fmt.Sprintf("DTSTAMP:%s\r\n", formatICSTime(now)))
	if !g.UpdatedAt.IsZero() {
		ics.WriteString(fmt.Sprintf("LAST-MODIFIED:%s\r\n", formatICSTime(g.UpdatedAt)))
	}

	if clock, ok := schedule.ParseClock(g.TimeText); ok {
		hour, _ := strconv.Atoi(clock[:2])
		minute, _ := strconv.Atoi(clock[2:])
		start := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc)
		end := start.Add(duration(g.Sport))
		ics.WriteString(fmt.Sprintf("DTSTART:%s\r\n", formatICSTime(start)))
		ics.WriteString(fmt.Sprintf("DTEND:%s\r\n", formatICSTime(end)))
	} else {
		ics.WriteString(fmt.Sprintf("DTSTART;VALUE=DATE:%s\r\n", day.Format("20060102")))
		ics.WriteString(fmt.Sprintf("DTEND;VALUE=DATE:%s\r\n", day.AddDate(0, 0, 1).Format("20060102")))
	}

	ics.WriteString(fmt.Sprintf("SUMMARY:%s\r\n", escapeICS(fmt.Sprintf("%s: %s", g.Sport, g.Matchup()))))
	ics.WriteString(fmt.Sprintf("DESCRIPTION:%s\r\n", escapeICS(describe(g))))
	if g.SourceURL != "" {
		ics.WriteString(fmt.Sprintf("URL:%s\r\n", g.SourceURL))
	}

	// regional listings are only final once a curator signed off
	if g.IsValidated {
		ics.WriteString("STATUS:CONFIRMED\r\n")
	} else {
		ics.WriteString("STATUS:TENTATIVE\r\n")
	}
	ics.WriteString("SEQUENCE:0\r\n")
	ics.WriteString("TRANSP:TRANSPARENT\r\n")

	ics.WriteString("END:VEVENT\r\n")
	ics.WriteString("END:VCALENDAR\r\n")

	return ics.String(), nil
}

func duration(sport schedule.Sport) time.Duration {
	if d, ok := durations[sport]; ok {
		return d
	}
	return defaultDuration
}

// describe lists national broadcasters, then regional channels by market
func describe(g *schedule.GameRecord) string {
	var lines []string
	if len(g.NationalBroadcasts) > 0 {
		lines = append(lines, "TV: "+strings.Join(g.NationalBroadcasts, ", "))
	}

	markets := make([]string, 0, len(g.RegionalBroadcastMap))
	for m := range g.RegionalBroadcastMap {
		markets = append(markets, m)
	}
	sort.Strings(markets)
	for _, m := range markets {
		lines = append(lines, fmt.Sprintf("%s: %s", m, g.RegionalBroadcastMap[m]))
	}

	if len(lines) == 0 {
		return g.DateText
	}
	return strings.Join(lines, "\n")
}

// formatICSTime formats a time.Time as an iCalendar datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	// Replace special characters according to RFC 5545
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
