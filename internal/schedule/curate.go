package schedule

import (
	"sort"
	"strings"
)

// SetRegional maps one market to a provider in the curator's regional map
func (g *GameRecord) SetRegional(market, provider string) error {
	market = strings.ToUpper(strings.TrimSpace(market))
	provider = strings.TrimSpace(provider)
	if market == "" {
		return missing("dma_code")
	}
	if provider == "" {
		return missing("channel")
	}
	if g.RegionalBroadcastMap == nil {
		g.RegionalBroadcastMap = map[string]string{}
	}
	g.RegionalBroadcastMap[market] = provider
	return nil
}

// MarkValidated merges regional into the curator map and marks the record validated
func (g *GameRecord) MarkValidated(regional map[string]string) error {
	for market, provider := range regional {
		if err := g.SetRegional(market, provider); err != nil {
			return err
		}
	}
	if g.RegionalBroadcastMap == nil {
		g.RegionalBroadcastMap = map[string]string{}
	}
	g.IsValidated = true
	return nil
}

// SortRules orders rules by sport, team, then market
func SortRules(rules []*DMARule) {
	sort.Slice(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]
		if a.Sport != b.Sport {
			return a.Sport < b.Sport
		}
		if !strings.EqualFold(a.Team, b.Team) {
			return strings.ToLower(a.Team) < strings.ToLower(b.Team)
		}
		return a.DMACode < b.DMACode
	})
}
