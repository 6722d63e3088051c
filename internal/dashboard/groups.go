package dashboard

import "github.com/smileynet/flightdeck/internal/atc"

// defaultGroups returns the selection a pipeline shows when the
// location names none: the first configured group, or nothing for an
// ungrouped pipeline.
func defaultGroups(p atc.Pipeline) []string {
	if len(p.Groups) == 0 {
		return nil
	}
	return []string{p.Groups[0].Name}
}

// activeGroups resolves the selection in effect. An explicit selection
// wins; otherwise the loaded pipeline's default applies. Stale names
// are kept verbatim: the location is the source of truth even when the
// pipeline config has moved on.
func activeGroups(selected []string, data RemoteData) []string {
	if len(selected) > 0 {
		return selected
	}
	if data.State != RemoteLoaded {
		return nil
	}
	return defaultGroups(data.Pipeline)
}

// toggleGroup flips one group in the selection, preserving the order of
// the rest. Toggling a group on from the implicit default keeps the
// default groups visible behind it, so the first click adds rather than
// replaces.
func toggleGroup(group string, selected []string, p atc.Pipeline) []string {
	kept := make([]string, 0, len(selected))
	found := false
	for _, g := range selected {
		if g == group {
			found = true
			continue
		}
		kept = append(kept, g)
	}
	if found {
		return kept
	}
	if len(selected) == 0 {
		out := []string{group}
		for _, d := range defaultGroups(p) {
			if d != group {
				out = append(out, d)
			}
		}
		return out
	}
	return append([]string{group}, selected...)
}
