package dashboard

// sidebarState holds the team navigation drawer.
type sidebarState struct {
	teams        []string
	open         bool
	teamExpanded bool
}

// mergeTeams folds a fetched team list in, keeping first-seen order and
// dropping duplicates. Teams never disappear while the page lives; the
// list only grows.
func (s sidebarState) mergeTeams(names []string) sidebarState {
	seen := make(map[string]bool, len(s.teams)+len(names))
	merged := make([]string, 0, len(s.teams)+len(names))
	for _, t := range s.teams {
		if seen[t] {
			continue
		}
		seen[t] = true
		merged = append(merged, t)
	}
	for _, t := range names {
		if seen[t] {
			continue
		}
		seen[t] = true
		merged = append(merged, t)
	}
	s.teams = merged
	return s
}

// toggle flips the drawer open or closed.
func (s sidebarState) toggle() sidebarState {
	s.open = !s.open
	return s
}

// expandTeam latches the expanded flag. Nothing clears it while the
// page lives.
func (s sidebarState) expandTeam() sidebarState {
	s.teamExpanded = true
	return s
}
