package dashboard

import "testing"

func TestSidebar_MergeTeams(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		incoming []string
		want     []string
	}{
		{"first fetch", nil, []string{"main", "ops"}, []string{"main", "ops"}},
		{"union keeps existing order", []string{"main", "ops"}, []string{"dev", "main"}, []string{"main", "ops", "dev"}},
		{"incoming duplicates dropped", nil, []string{"a", "a", "b"}, []string{"a", "b"}},
		{"empty fetch changes nothing", []string{"main"}, nil, []string{"main"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sidebarState{teams: tt.existing}
			s = s.mergeTeams(tt.incoming)
			if len(s.teams) != len(tt.want) {
				t.Fatalf("teams = %v, want %v", s.teams, tt.want)
			}
			for i := range tt.want {
				if s.teams[i] != tt.want[i] {
					t.Errorf("teams[%d] = %q, want %q", i, s.teams[i], tt.want[i])
				}
			}
		})
	}
}

func TestSidebar_ExpandTeamIsOneWay(t *testing.T) {
	s := sidebarState{}

	s = s.expandTeam()
	if !s.teamExpanded {
		t.Fatal("teamExpanded = false after expand, want true")
	}

	// Nothing on the type can lower the flag again.
	s = s.toggle()
	s = s.mergeTeams([]string{"main"})
	s = s.expandTeam()
	if !s.teamExpanded {
		t.Error("teamExpanded lost its latch")
	}
}

func TestSidebar_Toggle(t *testing.T) {
	s := sidebarState{}

	s = s.toggle()
	if !s.open {
		t.Fatal("open = false after toggle, want true")
	}
	s = s.toggle()
	if s.open {
		t.Error("open = true after second toggle, want false")
	}
}
