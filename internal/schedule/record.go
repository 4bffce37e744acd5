package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Sport is the league tag a game belongs to
type Sport string

const (
	SportNBA Sport = "NBA"
	SportEPL Sport = "EPL"
)

// ParseSport upper-cases and trims a sport tag
func ParseSport(s string) Sport {
	return Sport(strings.ToUpper(strings.TrimSpace(s)))
}

// Known reports whether the sport is one the scrapers produce
func (s Sport) Known() bool {
	return s == SportNBA || s == SportEPL
}

// GameRecord is the persisted, canonical form of one scheduled game.
//
// Tier 1 fields are rewritten by every scrape. RegionalBroadcastMap and IsValidated are
// owned by the curator and only initialized by the scraper when the record is created.
type GameRecord struct {
	ID       string `json:"id"`
	Sport    Sport  `json:"sport"`
	League   string `json:"league,omitempty"`
	Date     string `json:"date,omitempty"` // YYYY-MM-DD when DateText could be parsed
	DateText string `json:"date_text"`
	TimeText string `json:"time_text,omitempty"`
	AwayTeam string `json:"away_team"`
	HomeTeam string `json:"home_team"`

	NationalBroadcasts []string `json:"national_broadcasts"`
	RegionalHint       string   `json:"regional_hint,omitempty"` // regional TV text shown on the source page
	SourceURL          string   `json:"source_url,omitempty"`

	RegionalBroadcastMap map[string]string `json:"regional_broadcast_map"`
	IsValidated          bool              `json:"is_validated"`

	FirstSeen time.Time `json:"first_seen"`
	UpdatedAt time.Time `json:"updated_at"` // last time a Tier 1 field changed
}

// Matchup returns the "Away @ Home" label used in listings
func (g *GameRecord) Matchup() string {
	return fmt.Sprintf("%s @ %s", g.AwayTeam, g.HomeTeam)
}

// Validate checks the fields a record cannot be persisted without
func (g *GameRecord) Validate() error {
	switch {
	case strings.TrimSpace(g.ID) == "":
		return missing("id")
	case strings.TrimSpace(string(g.Sport)) == "":
		return missing("sport")
	case strings.TrimSpace(g.AwayTeam) == "":
		return missing("away_team")
	case strings.TrimSpace(g.HomeTeam) == "":
		return missing("home_team")
	}
	return nil
}

// Clone returns a deep copy of the record
func (g *GameRecord) Clone() *GameRecord {
	if g == nil {
		return nil
	}
	c := *g
	c.NationalBroadcasts = append([]string{}, g.NationalBroadcasts...)
	c.RegionalBroadcastMap = copyMap(g.RegionalBroadcastMap)
	return &c
}

// HasTeam reports whether team plays in the game, ignoring case
func (g *GameRecord) HasTeam(team string) bool {
	return strings.EqualFold(g.HomeTeam, team) || strings.EqualFold(g.AwayTeam, team)
}

// SortRecords orders records by date, then ID
func SortRecords(records []*GameRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].Date != records[j].Date {
			return records[i].Date < records[j].Date
		}
		return records[i].ID < records[j].ID
	})
}

// DMARule maps a team's games in one TV market to a regional channel
type DMARule struct {
	ID          string    `json:"id"`
	DMACode     string    `json:"dma_code"`
	Team        string    `json:"team"`
	Sport       Sport     `json:"sport"`
	Channel     string    `json:"channel"`
	LastUpdated time.Time `json:"last_updated"`
}

// NewDMARule builds a rule with the market and sport upper-cased and the team and
// channel trimmed. All four inputs are required.
func NewDMARule(dmaCode, team, sport, channel string) (*DMARule, error) {
	rule := &DMARule{
		DMACode: strings.ToUpper(strings.TrimSpace(dmaCode)),
		Team:    strings.TrimSpace(team),
		Sport:   ParseSport(sport),
		Channel: strings.TrimSpace(channel),
	}
	switch {
	case rule.DMACode == "":
		return nil, missing("dma_code")
	case rule.Team == "":
		return nil, missing("team")
	case rule.Sport == "":
		return nil, missing("sport")
	case rule.Channel == "":
		return nil, missing("channel")
	}
	return rule, nil
}

// Key is the natural key rules are upserted by
func (r *DMARule) Key() string {
	return r.DMACode + "|" + strings.ToLower(r.Team) + "|" + string(r.Sport)
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
