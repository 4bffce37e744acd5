package schedule

import "strings"

// DefaultTeamSuffixes are the organizational tokens stripped from the end of team names
var DefaultTeamSuffixes = []string{"FC", "AFC", "United", "City", "Town"}

// DefaultTeamAliases maps shorthand seen on schedule pages to canonical team names
var DefaultTeamAliases = map[string]string{
	"Spurs":                  "Tottenham Hotspur",
	"Man Utd":                "Manchester United",
	"Man United":             "Manchester United",
	"Man City":               "Manchester City",
	"Chelsea FC":             "Chelsea",
	"Liverpool FC":           "Liverpool",
	"Arsenal FC":             "Arsenal",
	"Brighton & Hove Albion": "Brighton",
	"Newcastle Utd":          "Newcastle United",
	"Wolves":                 "Wolverhampton Wanderers",
	"West Ham Utd":           "West Ham United",
	"Crystal Palace FC":      "Crystal Palace",
	"AFC Bournemouth":        "Bournemouth",
	"Nottingham Forest FC":   "Nottingham Forest",
	"Nott'm Forest":          "Nottingham Forest",
}

// TeamNormalizer canonicalizes raw team names against a fixed vocabulary.
//
// Normalize is idempotent: alias targets are resolved to names that normalize to themselves,
// and suffix tokens are dropped one at a time so "Manchester City FC" stops at "Manchester City"
// instead of degrading to "Manchester".
type TeamNormalizer struct {
	suffixes  map[string]struct{}
	aliases   map[string]string // lower-cased alias -> canonical
	canonical map[string]string // lower-cased canonical -> canonical
}

// NewTeamNormalizer creates a normalizer. Nil arguments fall back to the defaults.
func NewTeamNormalizer(suffixes []string, aliases map[string]string) *TeamNormalizer {
	if suffixes == nil {
		suffixes = DefaultTeamSuffixes
	}
	if aliases == nil {
		aliases = DefaultTeamAliases
	}

	n := &TeamNormalizer{
		suffixes:  make(map[string]struct{}, len(suffixes)),
		aliases:   make(map[string]string, len(aliases)),
		canonical: make(map[string]string, len(aliases)),
	}
	for _, s := range suffixes {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			n.suffixes[s] = struct{}{}
		}
	}
	for alias, name := range aliases {
		name = collapse(name)
		if name == "" {
			continue
		}
		n.aliases[strings.ToLower(collapse(alias))] = name
		n.canonical[strings.ToLower(name)] = name
	}
	n.resolveAliases()
	return n
}

// resolveAliases rewrites every alias target to its final name, so chained tables such as
// "Blues" -> "Chelsea FC" -> "Chelsea" map straight to "Chelsea".
func (n *TeamNormalizer) resolveAliases() {
	resolved := make(map[string]string, len(n.aliases))
	for alias, name := range n.aliases {
		resolved[alias] = n.fixedPoint(name)
	}

	n.aliases = resolved
	n.canonical = make(map[string]string, len(resolved))
	for _, name := range resolved {
		n.canonical[strings.ToLower(name)] = name
	}
}

// fixedPoint normalizes name until it stops changing. A cycle in the alias table resolves
// to its smallest member.
func (n *TeamNormalizer) fixedPoint(name string) string {
	var chain []string
	seen := make(map[string]int)
	for {
		if i, ok := seen[name]; ok {
			least := chain[i]
			for _, c := range chain[i+1:] {
				if c < least {
					least = c
				}
			}
			return least
		}
		seen[name] = len(chain)
		chain = append(chain, name)

		next := n.Normalize(name)
		if next == name {
			return name
		}
		name = next
	}
}

// Normalize returns the canonical form of a raw team name. Trailing suffix tokens are
// dropped one at a time, stopping at the first known name; at least one token is kept.
func (n *TeamNormalizer) Normalize(raw string) string {
	name := collapse(raw)
	if name == "" {
		return ""
	}

	tokens := strings.Fields(name)
	for {
		if canon, ok := n.lookup(strings.Join(tokens, " ")); ok {
			return canon
		}
		if len(tokens) == 1 || !n.isSuffix(tokens[len(tokens)-1]) {
			break
		}
		tokens = tokens[:len(tokens)-1]
	}
	return strings.Join(tokens, " ")
}

func (n *TeamNormalizer) lookup(name string) (string, bool) {
	key := strings.ToLower(name)
	if canon, ok := n.aliases[key]; ok {
		return canon, true
	}
	canon, ok := n.canonical[key]
	return canon, ok
}

func (n *TeamNormalizer) isSuffix(token string) bool {
	_, ok := n.suffixes[strings.ToLower(token)]
	return ok
}

// collapse trims and squeezes runs of whitespace to a single space
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
