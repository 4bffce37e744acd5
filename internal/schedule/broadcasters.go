package schedule

import (
	"sort"
	"strings"
)

// DefaultBroadcasterDenylist lists streaming aggregators and league packages that resell
// a feed rather than carry it as a primary broadcaster.
var DefaultBroadcasterDenylist = []string{
	"DirecTV Stream",
	"Sling",
	"fubo",
	"YouTube TV",
	"Hulu",
	"Paramount+",
	"LEAGUE PASS",
}

// DefaultBroadcasterSuffixes are decorative words stripped from the end of provider names
var DefaultBroadcasterSuffixes = []string{"Online", "streaming"}

// BroadcasterFilter turns raw provider strings into a sorted, de-duplicated list
type BroadcasterFilter struct {
	deny     map[string]struct{}
	suffixes []string
}

// NewBroadcasterFilter creates a filter. Nil arguments fall back to the defaults.
func NewBroadcasterFilter(denylist, suffixes []string) *BroadcasterFilter {
	if denylist == nil {
		denylist = DefaultBroadcasterDenylist
	}
	if suffixes == nil {
		suffixes = DefaultBroadcasterSuffixes
	}

	f := &BroadcasterFilter{deny: make(map[string]struct{}, len(denylist))}
	for _, d := range denylist {
		f.deny[strings.TrimSpace(d)] = struct{}{}
	}
	for _, s := range suffixes {
		if s = strings.TrimSpace(s); s != "" {
			f.suffixes = append(f.suffixes, s)
		}
	}
	return f
}

// Filter drops denylisted and empty entries, strips decorative suffixes, removes
// duplicates and sorts the result. The result is never nil.
func (f *BroadcasterFilter) Filter(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))

	for _, r := range raw {
		name := strings.TrimSpace(r)
		if f.denied(name) {
			continue
		}
		name = f.stripSuffixes(name)
		// a stripped name can still land on the denylist ("Sling Online")
		if name == "" || f.denied(name) {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}

	sort.Strings(out)
	return out
}

func (f *BroadcasterFilter) denied(name string) bool {
	_, ok := f.deny[name]
	return ok
}

func (f *BroadcasterFilter) stripSuffixes(name string) string {
	for {
		before := name
		for _, s := range f.suffixes {
			if len(name) < len(s) || !strings.EqualFold(name[len(name)-len(s):], s) {
				continue
			}
			rest := name[:len(name)-len(s)]
			// only whole words: "NBC Online" yes, "Crunchyrollstreaming" no
			if rest != "" && !strings.HasSuffix(rest, " ") {
				continue
			}
			name = strings.TrimSpace(rest)
		}
		if name == before {
			return name
		}
	}
}
