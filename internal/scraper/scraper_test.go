package scraper

import (
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func loadFixture(t *testing.T, name string) *goquery.Document {
	t.Helper()
	data, err := os.ReadFile("../../testdata/fixtures/" + name)
	if err != nil {
		t.Fatalf("failed to load test fixture: %v", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(data)))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func docFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestParseNBA(t *testing.T) {
	page, err := ParseNBA(loadFixture(t, "nba_schedule.html"), "https://test.example.com")
	if err != nil {
		t.Fatalf("ParseNBA failed: %v", err)
	}

	if len(page.Candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d: %+v", len(page.Candidates), page.Candidates)
	}
	if len(page.Skipped) != 1 {
		t.Errorf("expected 1 skipped game, got %d", len(page.Skipped))
	}

	tests := []struct {
		name string
		got  Candidate
		want Candidate
	}{
		{
			name: "regular game",
			got:  page.Candidates[0],
			want: Candidate{
				Sport: "NBA", League: "nba", DateText: "Saturday, December 6", TimeText: "8:30 pm ET",
				AwayTeam: "Los Angeles Lakers", HomeTeam: "Boston Celtics",
				Broadcasts:   []string{"ABC", "LEAGUE PASS"},
				RegionalHint: "Spectrum SportsNet",
				SourceURL:    "https://test.example.com",
			},
		},
		{
			name: "nba cup game from figures",
			got:  page.Candidates[1],
			want: Candidate{
				Sport: "NBA", League: "nba", DateText: "Saturday, December 6", TimeText: "7:00 pm ET",
				AwayTeam: "Oklahoma City Thunder", HomeTeam: "San Antonio Spurs",
				Broadcasts: []string{"Prime Video"},
				SourceURL:  "https://test.example.com",
			},
		},
		{
			name: "second day",
			got:  page.Candidates[2],
			want: Candidate{
				Sport: "NBA", League: "nba", DateText: "Sunday, December 7", TimeText: "3:30 pm ET",
				AwayTeam: "New York Knicks", HomeTeam: "Miami Heat",
				Broadcasts: []string{"ESPN", "ESPN"},
				SourceURL:  "https://test.example.com",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !reflect.DeepEqual(tt.got, tt.want) {
				t.Errorf("candidate = %+v\nwant        %+v", tt.got, tt.want)
			}
		})
	}

	var perr *ParseError
	if !errors.As(page.Skipped[0], &perr) || perr.Context != "Saturday, December 6" {
		t.Errorf("skipped = %v", page.Skipped[0])
	}
}

func TestParseNBA_NoDays(t *testing.T) {
	_, err := ParseNBA(docFrom(t, "<html><body><p>Schedule unavailable</p></body></html>"), "u")
	if !errors.Is(err, ErrNoSchedule) {
		t.Errorf("error = %v, want ErrNoSchedule", err)
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Errorf("error %T is not *ParseError", err)
	}
}

func TestParseEPL(t *testing.T) {
	page, err := ParseEPL(loadFixture(t, "epl_schedule.html"), "https://test.example.com")
	if err != nil {
		t.Fatalf("ParseEPL failed: %v", err)
	}

	if len(page.Candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d: %+v", len(page.Candidates), page.Candidates)
	}
	if len(page.Skipped) != 1 {
		t.Errorf("expected 1 skipped game, got %d: %v", len(page.Skipped), page.Skipped)
	}

	first := page.Candidates[0]
	if first.AwayTeam != "Aston Villa" || first.HomeTeam != "Arsenal" {
		t.Errorf("teams = %q / %q", first.AwayTeam, first.HomeTeam)
	}
	if first.DateText != "Saturday, December 6, 2025" || first.TimeText != "7:30 AM" {
		t.Errorf("date/time = %q / %q", first.DateText, first.TimeText)
	}
	if want := []string{"USA Network", "Sling", "fubo", "Telemundo Online"}; !reflect.DeepEqual(first.Broadcasts, want) {
		t.Errorf("broadcasts = %q, want %q", first.Broadcasts, want)
	}

	second := page.Candidates[1]
	if second.AwayTeam != "Man Utd" || second.HomeTeam != "Wolves" {
		t.Errorf("'v' matchup parsed as %q / %q", second.AwayTeam, second.HomeTeam)
	}

	// the <p> between header and list is skipped over
	third := page.Candidates[2]
	if third.DateText != "Sunday, December 7, 2025" || third.AwayTeam != "Chelsea FC" || third.HomeTeam != "Spurs" {
		t.Errorf("third = %+v", third)
	}
}

func TestParseEPL_NoHeaders(t *testing.T) {
	_, err := ParseEPL(docFrom(t, "<html><body><ul><li>nothing</li></ul></body></html>"), "u")
	if !errors.Is(err, ErrNoSchedule) {
		t.Errorf("error = %v, want ErrNoSchedule", err)
	}
}

func TestEPLMatchupPattern(t *testing.T) {
	tests := []struct {
		title      string
		away, home string
		ok         bool
	}{
		{"Arsenal vs. Chelsea (Premier League)", "Arsenal", "Chelsea", true},
		{"Arsenal vs Chelsea (EPL)", "Arsenal", "Chelsea", true},
		{"Arsenal v Chelsea (EPL)", "Arsenal", "Chelsea", true},
		{"Aston Villa VS. Brighton & Hove Albion (EPL)", "Aston Villa", "Brighton & Hove Albion", true},
		{"Arsenal vs. Chelsea", "", "", false},
		{"Pre-match show (NBC)", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			m := eplMatchupRe.FindStringSubmatch(tt.title)
			if (m != nil) != tt.ok {
				t.Fatalf("match = %v, want %v", m != nil, tt.ok)
			}
			if m != nil && (m[1] != tt.away || m[2] != tt.home) {
				t.Errorf("got %q / %q, want %q / %q", m[1], m[2], tt.away, tt.home)
			}
		})
	}
}

func TestParsers(t *testing.T) {
	if got := Parsers(); !reflect.DeepEqual(got, []string{"epl", "nba"}) {
		t.Errorf("Parsers() = %v", got)
	}
	if _, ok := Parser("mlb"); ok {
		t.Error("unexpected parser for mlb")
	}
}
