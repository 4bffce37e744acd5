package schedule

import (
	"errors"
	"testing"
)

func TestNewDMARule(t *testing.T) {
	rule, err := NewDMARule(" la-dma ", " Los Angeles Lakers ", "nba", " Spectrum SportsNet ")
	if err != nil {
		t.Fatalf("NewDMARule() error = %v", err)
	}
	if rule.DMACode != "LA-DMA" || rule.Team != "Los Angeles Lakers" || rule.Sport != SportNBA || rule.Channel != "Spectrum SportsNet" {
		t.Errorf("rule = %+v", rule)
	}
	if rule.Key() != "LA-DMA|los angeles lakers|NBA" {
		t.Errorf("Key() = %q", rule.Key())
	}
}

func TestNewDMARule_Missing(t *testing.T) {
	tests := []struct {
		name                      string
		dma, team, sport, channel string
		field                     string
	}{
		{"dma", "", "A", "NBA", "C", "dma_code"},
		{"team", "X", " ", "NBA", "C", "team"},
		{"sport", "X", "A", "", "C", "sport"},
		{"channel", "X", "A", "NBA", "", "channel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDMARule(tt.dma, tt.team, tt.sport, tt.channel)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v, want *ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestGameRecord_Clone(t *testing.T) {
	g := candidate()
	g.RegionalBroadcastMap = map[string]string{"LA": "Spectrum"}

	c := g.Clone()
	c.NationalBroadcasts[0] = "NBC"
	c.RegionalBroadcastMap["LA"] = "KCAL"

	if g.NationalBroadcasts[0] != "ABC" || g.RegionalBroadcastMap["LA"] != "Spectrum" {
		t.Error("Clone shares slices or maps with the original")
	}
}

func TestGameRecord_HasTeam(t *testing.T) {
	g := candidate()
	if !g.HasTeam("boston celtics") || !g.HasTeam("Los Angeles Lakers") {
		t.Error("HasTeam missed a participant")
	}
	if g.HasTeam("Miami Heat") {
		t.Error("HasTeam matched a non-participant")
	}
}

func TestSortRecords(t *testing.T) {
	records := []*GameRecord{
		{ID: "b", Date: "2025-12-07"},
		{ID: "c", Date: "2025-12-06"},
		{ID: "a", Date: "2025-12-06"},
	}
	SortRecords(records)
	if records[0].ID != "a" || records[1].ID != "c" || records[2].ID != "b" {
		t.Errorf("order = %s %s %s", records[0].ID, records[1].ID, records[2].ID)
	}
}
