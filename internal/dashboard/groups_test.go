package dashboard

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/smileynet/flightdeck/internal/atc"
)

func pipelineWithGroups(names ...string) atc.Pipeline {
	p := atc.Pipeline{Name: "deploy", TeamName: "main"}
	for _, n := range names {
		p.Groups = append(p.Groups, atc.GroupConfig{Name: n})
	}
	return p
}

func TestDefaultGroups(t *testing.T) {
	tests := []struct {
		name     string
		pipeline atc.Pipeline
		want     []string
	}{
		{"first group wins", pipelineWithGroups("g1", "g2", "g3"), []string{"g1"}},
		{"ungrouped pipeline", pipelineWithGroups(), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := defaultGroups(tt.pipeline)
			if len(got) != len(tt.want) {
				t.Fatalf("defaultGroups() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("defaultGroups()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestActiveGroups(t *testing.T) {
	loaded := RemoteData{State: RemoteLoaded, Pipeline: pipelineWithGroups("g1", "g2")}

	tests := []struct {
		name     string
		selected []string
		data     RemoteData
		want     []string
	}{
		{"explicit selection wins", []string{"g2"}, loaded, []string{"g2"}},
		{"stale names kept verbatim", []string{"gone"}, loaded, []string{"gone"}},
		{"empty falls back to default", nil, loaded, []string{"g1"}},
		{"nothing before load", nil, RemoteData{State: RemoteLoading}, nil},
		{"nothing after failure", nil, RemoteData{State: RemoteFailed}, nil},
		{"ungrouped pipeline has no default", nil,
			RemoteData{State: RemoteLoaded, Pipeline: pipelineWithGroups()}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := activeGroups(tt.selected, tt.data)
			if len(got) != len(tt.want) {
				t.Fatalf("activeGroups() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("activeGroups()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestToggleGroup(t *testing.T) {
	p := pipelineWithGroups("g1", "g2", "g3")

	tests := []struct {
		name     string
		group    string
		selected []string
		want     []string
	}{
		{"toggling from empty keeps the default behind", "g2", nil, []string{"g2", "g1"}},
		{"re-toggling the implicit default yields itself", "g1", nil, []string{"g1"}},
		{"toggling off removes", "g1", []string{"g1"}, []string{}},
		{"toggling off preserves the rest", "g2", []string{"g1", "g2", "g3"}, []string{"g1", "g3"}},
		{"toggling on prepends", "g3", []string{"g1"}, []string{"g3", "g1"}},
		{"duplicates all removed", "g1", []string{"g1", "g2", "g1"}, []string{"g2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toggleGroup(tt.group, tt.selected, p)
			if len(got) != len(tt.want) {
				t.Fatalf("toggleGroup(%q, %v) = %v, want %v", tt.group, tt.selected, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("toggleGroup(%q, %v)[%d] = %q, want %q", tt.group, tt.selected, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestToggleGroup_Properties(t *testing.T) {
	p := pipelineWithGroups("g1", "g2", "g3", "g4")
	names := []string{"g1", "g2", "g3", "g4", "g5"}

	rapid.Check(t, func(t *rapid.T) {
		selected := rapid.SliceOfN(rapid.SampledFrom(names), 0, 6).Draw(t, "selected")
		group := rapid.SampledFrom(names).Draw(t, "group")

		got := toggleGroup(group, selected, p)

		// From empty, the toggled group leads and the defaults follow,
		// except that the default is not repeated when it was toggled.
		if len(selected) == 0 {
			want := []string{group}
			for _, d := range defaultGroups(p) {
				if d != group {
					want = append(want, d)
				}
			}
			if !equalStrings(got, want) {
				t.Fatalf("toggleGroup(%q, []) = %v, want %v", group, got, want)
			}
			return
		}

		// Membership of the toggled group flips.
		was := contains(selected, group)
		if was == contains(got, group) {
			t.Fatalf("toggling %q in %v did not flip membership: %v", group, selected, got)
		}

		// The other names keep their relative order.
		if !equalStrings(without(got, group), without(selected, group)) {
			t.Fatalf("toggling %q in %v disturbed the rest: %v", group, selected, got)
		}

		// Toggling on puts the group first.
		if !was && got[0] != group {
			t.Fatalf("toggling %q onto %v did not prepend: %v", group, selected, got)
		}
	})
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func without(list []string, s string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
