package cli

import (
	"sort"
	"strings"
	"time"

	"github.com/pfrederiksen/watchwherelive/internal/schedule"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByDate  SortOrder = "date"
	SortBySport SortOrder = "sport"
	SortByTeam  SortOrder = "team"
)

func (o SortOrder) valid() bool {
	return o == SortByDate || o == SortBySport || o == SortByTeam
}

// sortGames sorts queued games based on the specified sort order
func sortGames(games []*schedule.GameRecord, order SortOrder) {
	now := time.Now()
	switch order {
	case SortByDate:
		sort.SliceStable(games, func(i, j int) bool {
			return compareByDate(games[i], games[j], now)
		})
	case SortBySport:
		sort.SliceStable(games, func(i, j int) bool {
			if games[i].Sport != games[j].Sport {
				return games[i].Sport < games[j].Sport
			}
			// If sports are equal, sort by date
			return compareByDate(games[i], games[j], now)
		})
	case SortByTeam:
		sort.SliceStable(games, func(i, j int) bool {
			a, b := strings.ToLower(games[i].HomeTeam), strings.ToLower(games[j].HomeTeam)
			if a != b {
				return a < b
			}
			return compareByDate(games[i], games[j], now)
		})
	}
}

// gameDate returns the ISO date when stored, else parses the raw header
func gameDate(g *schedule.GameRecord, ref time.Time) time.Time {
	if g.Date != "" {
		if t, err := time.Parse("2006-01-02", g.Date); err == nil {
			return t
		}
	}
	t, _ := schedule.ParseDate(g.DateText, ref)
	return t
}

// compareByDate reports whether game i should come before game j
func compareByDate(i, j *schedule.GameRecord, ref time.Time) bool {
	dateI := gameDate(i, ref)
	dateJ := gameDate(j, ref)

	// If both dates are valid, compare them
	if !dateI.IsZero() && !dateJ.IsZero() {
		if !dateI.Equal(dateJ) {
			return dateI.Before(dateJ)
		}
		return i.ID < j.ID
	}

	// If only one date is valid, put the valid one first
	if !dateI.IsZero() {
		return true
	}
	if !dateJ.IsZero() {
		return false
	}

	return i.ID < j.ID
}
