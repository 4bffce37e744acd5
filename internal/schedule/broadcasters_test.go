package schedule

import (
	"reflect"
	"sort"
	"testing"
)

func TestBroadcasterFilter_Filter(t *testing.T) {
	tests := []struct {
		name     string
		denylist []string
		raw      []string
		want     []string
	}{
		{
			name:     "dedupes strips and denies",
			denylist: []string{"Sling"},
			raw:      []string{"ESPN", "ESPN", "Sling", "NBC Online"},
			want:     []string{"ESPN", "NBC"},
		},
		{
			name: "default denylist",
			raw:  []string{"Peacock", "fubo", "YouTube TV", "USA Network", "LEAGUE PASS"},
			want: []string{"Peacock", "USA Network"},
		},
		{
			name: "denied after suffix strip",
			raw:  []string{"Sling Online", "Hulu streaming", "CBS"},
			want: []string{"CBS"},
		},
		{
			name: "suffix case-insensitive",
			raw:  []string{"NBC ONLINE", "Telemundo Streaming"},
			want: []string{"NBC", "Telemundo"},
		},
		{
			name: "suffix only as whole word",
			raw:  []string{"Crunchyrollstreaming"},
			want: []string{"Crunchyrollstreaming"},
		},
		{
			name: "empty entries dropped",
			raw:  []string{"", "  ", "Online"},
			want: []string{},
		},
		{
			name: "nil input",
			raw:  nil,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewBroadcasterFilter(tt.denylist, nil)
			got := f.Filter(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Filter(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestBroadcasterFilter_OutputProperties(t *testing.T) {
	f := NewBroadcasterFilter(nil, nil)
	raw := []string{"TNT", "ESPN", "Sling", "ABC", "ESPN", "truTV Online", "TNT", "Paramount+", "Max streaming"}

	got := f.Filter(raw)

	if !sort.StringsAreSorted(got) {
		t.Errorf("output not sorted: %q", got)
	}
	seen := map[string]bool{}
	for _, name := range got {
		if seen[name] {
			t.Errorf("duplicate %q in %q", name, got)
		}
		seen[name] = true
		for _, denied := range DefaultBroadcasterDenylist {
			if name == denied {
				t.Errorf("denylisted %q in output", name)
			}
		}
	}
}
