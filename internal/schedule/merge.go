package schedule

import (
	"fmt"
	"strings"
)

// Merge combines a freshly scraped candidate with the stored record for the same id.
//
// Tier 1 fields come from candidate. RegionalBroadcastMap, IsValidated and FirstSeen come
// from existing, or are initialized when existing is nil. Neither argument is modified.
func Merge(candidate, existing *GameRecord) (*GameRecord, error) {
	if candidate == nil {
		return nil, missing("record")
	}
	if err := candidate.Validate(); err != nil {
		return nil, err
	}
	if existing != nil && existing.ID != candidate.ID {
		return nil, &ValidationError{Field: "id", Reason: fmt.Sprintf("mismatch: %q vs stored %q", candidate.ID, existing.ID)}
	}

	merged := candidate.Clone()
	if merged.NationalBroadcasts == nil {
		merged.NationalBroadcasts = []string{}
	}

	if existing == nil {
		merged.RegionalBroadcastMap = map[string]string{}
		merged.IsValidated = false
		if merged.FirstSeen.IsZero() {
			merged.FirstSeen = merged.UpdatedAt
		}
		return merged, nil
	}

	merged.RegionalBroadcastMap = copyMap(existing.RegionalBroadcastMap)
	merged.IsValidated = existing.IsValidated
	merged.FirstSeen = existing.FirstSeen
	return merged, nil
}

// FieldChange describes one Tier 1 field that differs between two versions of a record
type FieldChange struct {
	Field    string `json:"field"` // "new" for a record that did not exist before
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

// Changes lists the Tier 1 differences between the stored and merged record.
// An empty result means persisting merged would be a no-op.
func Changes(existing, merged *GameRecord) []FieldChange {
	if existing == nil {
		return []FieldChange{{Field: "new", NewValue: merged.Matchup()}}
	}

	var changes []FieldChange
	add := func(field, old, cur string) {
		if old != cur {
			changes = append(changes, FieldChange{Field: field, OldValue: old, NewValue: cur})
		}
	}

	add("sport", string(existing.Sport), string(merged.Sport))
	add("league", existing.League, merged.League)
	add("date", existing.Date, merged.Date)
	add("date_text", existing.DateText, merged.DateText)
	add("time_text", existing.TimeText, merged.TimeText)
	add("away_team", existing.AwayTeam, merged.AwayTeam)
	add("home_team", existing.HomeTeam, merged.HomeTeam)
	add("national_broadcasts", strings.Join(existing.NationalBroadcasts, ", "), strings.Join(merged.NationalBroadcasts, ", "))
	add("regional_hint", existing.RegionalHint, merged.RegionalHint)
	add("source_url", existing.SourceURL, merged.SourceURL)

	return changes
}
