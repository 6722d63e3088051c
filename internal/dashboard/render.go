package dashboard

import (
	"bytes"

	tea "github.com/charmbracelet/bubbletea"
	json "github.com/goccy/go-json"

	"github.com/smileynet/flightdeck/internal/atc"
)

// maybeRender decides whether the data on hand warrants a new frame.
// It compares the would-be render input against the snapshots last sent
// and emits a render command only on change, so steady-state polls cost
// no layout work. Callers must use the returned model: the sent
// snapshots are recorded on it.
func (m Model) maybeRender() (Model, tea.Cmd) {
	if !m.haveJobs || !m.haveResources {
		return m, nil
	}
	jobs := m.fetchedJobs
	if active := activeGroups(m.selectedGroups, m.pipeline); len(active) > 0 {
		jobs = filterJobs(m.fetchedJobs, active)
	}
	if m.rendered && rawEqual(jobs, m.renderedJobs) && rawEqual(m.fetchedResources, m.renderedResources) {
		return m, nil
	}
	m.renderedJobs = jobs
	m.renderedResources = m.fetchedResources
	m.rendered = true
	return m, renderCmd(m.renderer, jobs, m.fetchedResources)
}

// filterJobs keeps the jobs whose group membership intersects active.
// Each document is probed individually; one that does not decode far
// enough to reveal its groups drops out of view instead of failing the
// page.
func filterJobs(jobs []json.RawMessage, active []string) []json.RawMessage {
	want := make(map[string]bool, len(active))
	for _, g := range active {
		want[g] = true
	}
	kept := make([]json.RawMessage, 0, len(jobs))
	for _, raw := range jobs {
		groups, err := atc.JobGroups(raw)
		if err != nil {
			continue
		}
		for _, g := range groups {
			if want[g] {
				kept = append(kept, raw)
				break
			}
		}
	}
	return kept
}

// rawEqual reports structural equality of two snapshots: same length,
// same bytes per item, same order.
func rawEqual(a, b []json.RawMessage) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !bytes.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func renderCmd(r Renderer, jobs, resources []json.RawMessage) tea.Cmd {
	if r == nil {
		return nil
	}
	return func() tea.Msg {
		return FrameMsg{Frame: r.Render(jobs, resources)}
	}
}
