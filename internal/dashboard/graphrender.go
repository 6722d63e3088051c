package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	json "github.com/goccy/go-json"

	"github.com/smileynet/flightdeck/internal/atc"
	"github.com/smileynet/flightdeck/internal/graph"
)

// GraphRenderer is the default Renderer: it decodes the raw snapshots,
// ranks the jobs into columns, and draws one status-colored box per
// job. Documents that do not decode are skipped.
type GraphRenderer struct{}

// Render draws the job graph. Resources contribute pin markers: a job
// input whose resource is pinned is flagged in the input line.
func (GraphRenderer) Render(jobs, resources []json.RawMessage) string {
	pinned := make(map[string]bool)
	for _, r := range atc.PinnedResources(resources) {
		pinned[r.Name] = true
	}

	decoded := make([]atc.Job, 0, len(jobs))
	for _, raw := range jobs {
		j, err := atc.DecodeJob(raw)
		if err != nil {
			continue
		}
		decoded = append(decoded, j)
	}

	layout := graph.Rank(decoded)
	if layout.JobCount() == 0 {
		return emptyGraphStyle.Render("no jobs to show")
	}

	cols := make([]string, 0, len(layout.Columns))
	for _, col := range layout.Columns {
		boxes := make([]string, 0, len(col))
		for _, j := range col {
			boxes = append(boxes, jobBox(j, pinned))
		}
		cols = append(cols, lipgloss.JoinVertical(lipgloss.Left, boxes...))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

// jobBox draws one job: a name box colored by display status, with an
// input line underneath when the job consumes resources.
func jobBox(j atc.Job, pinned map[string]bool) string {
	status := j.DisplayStatus()
	style := jobBoxStyle.Background(statusColor(status))
	if status == atc.StatusStarted {
		style = style.Bold(true)
	}
	lines := []string{style.Render(j.Name)}
	if in := inputLine(j, pinned); in != "" {
		lines = append(lines, jobInputStyle.Render(in))
	}
	lines = append(lines, "") // gap between rows
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// inputLine lists the resources a job consumes. Pinned resources get a
// marker so a stuck pipeline is visible from the graph.
func inputLine(j atc.Job, pinned map[string]bool) string {
	if len(j.Inputs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(j.Inputs))
	for _, in := range j.Inputs {
		name := in.Resource
		if name == "" {
			name = in.Name
		}
		if pinned[name] {
			name = "⚲" + name
		}
		parts = append(parts, name)
	}
	return "◂ " + strings.Join(parts, " ")
}
