package dashboard

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/smileynet/flightdeck/internal/atc"
)

// View draws the page: top bar, group tabs, the graph viewport beside
// the team drawer, a status line, and the help bar. The finished frame
// passes through the zone scanner so mouse hits can be resolved.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	page := lipgloss.JoinVertical(lipgloss.Left,
		m.topBarView(),
		m.groupBarView(),
		m.mainView(),
		m.statusView(),
		m.bottomView(),
	)
	return m.zones.Scan(page)
}

// topBarView draws the drawer toggle, the pipeline name, the pause
// button, the pin indicator, and (in the wide layout) the cluster
// version on the right.
func (m Model) topBarView() string {
	burger := m.zones.Mark(zoneSidebar, m.hoverStyle(zoneSidebar, topBarItemStyle).Render("≡"))
	name := topBarStyle.Render(m.locator.String())
	left := strings.Join([]string{burger, name, m.pauseButtonView(), m.pinButtonView()}, " ")
	if m.narrow {
		return topBarStyle.MaxWidth(m.width).Render(left)
	}
	right := versionStyle.Render(m.VersionLabel())
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return topBarStyle.MaxWidth(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// pauseButtonView shows the pipeline's run state and doubles as the
// pause button.
func (m Model) pauseButtonView() string {
	var label string
	switch {
	case m.togglePending:
		label = m.spin.View()
	case m.IsPaused():
		label = m.hoverStyle(zonePause, pausedStyle).Render("‖ paused")
	case m.pipeline.State == RemoteLoaded:
		label = m.hoverStyle(zonePause, topBarItemStyle).Render("▶ running")
	default:
		return ""
	}
	return m.zones.Mark(zonePause, label)
}

// pinButtonView shows how many resources are pinned and toggles the pin
// menu on click. Nothing pinned, nothing shown.
func (m Model) pinButtonView() string {
	n := len(m.PinnedResources())
	if n == 0 {
		return ""
	}
	label := m.hoverStyle(zonePin, pinMenuStyle).Render(fmt.Sprintf("⚲ %d", n))
	return m.zones.Mark(zonePin, label)
}

// groupBarView draws one numbered tab per configured group, active ones
// highlighted. Rendered as an empty row for ungrouped pipelines so the
// chrome height stays fixed.
func (m Model) groupBarView() string {
	if m.pipeline.State != RemoteLoaded || len(m.pipeline.Pipeline.Groups) == 0 {
		return ""
	}
	active := make(map[string]bool)
	for _, g := range m.ActiveGroups() {
		active[g] = true
	}
	tabs := make([]string, 0, len(m.pipeline.Pipeline.Groups))
	for i, g := range m.pipeline.Pipeline.Groups {
		style := groupStyle
		if active[g.Name] {
			style = groupActiveStyle
		}
		tab := m.hoverStyle(zoneGroup+g.Name, style).Render(fmt.Sprintf("%d:%s", i+1, g.Name))
		tabs = append(tabs, m.zones.Mark(zoneGroup+g.Name, tab))
	}
	return groupBarStyle.MaxWidth(m.width).Render(strings.Join(tabs, " "))
}

// mainView joins the team drawer and the graph area.
func (m Model) mainView() string {
	body := m.graphView()
	if !m.sidebar.open {
		return body
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.sidebarView(), body)
}

// graphView shows the rendered graph, or the page-level states that
// replace it: not found, and loading before the first frame.
func (m Model) graphView() string {
	switch m.pipeline.State {
	case RemoteFailed:
		return m.centered(notFoundStyle.Render("pipeline not found: " + m.locator.String()))
	case RemoteNotAsked, RemoteLoading:
		if !m.rendered {
			return m.centered(m.spin.View() + " loading " + m.locator.String())
		}
	}
	return m.graph.View()
}

func (m Model) centered(s string) string {
	return lipgloss.Place(m.graph.Width, m.contentHeight(), lipgloss.Center, lipgloss.Center, s)
}

// sidebarView draws the team drawer. The current team is tinted, and
// its row grows an expansion marker once any row has been clicked.
func (m Model) sidebarView() string {
	rows := []string{sidebarTitleStyle.Render("teams")}
	for _, t := range m.sidebar.teams {
		marker := "▸ "
		if m.sidebar.teamExpanded && t == m.locator.Team {
			marker = "▾ "
		}
		style := sidebarTeamStyle
		if t == m.locator.Team {
			style = sidebarCurrentStyle
		}
		label := m.hoverStyle(zoneTeam+t, style).Render(marker + t)
		rows = append(rows, m.zones.Mark(zoneTeam+t, label))
	}
	return sidebarStyle.
		Width(sidebarWidth).
		Height(m.contentHeight()).
		Render(strings.Join(rows, "\n"))
}

// statusView is the one-line strip under the graph: the turbulence
// banner outranks the pin menu, which outranks transient notices.
func (m Model) statusView() string {
	switch {
	case m.turbulence:
		return turbulenceStyle.MaxWidth(m.width).Render("experiencing turbulence; the data shown may be stale")
	case m.ShowPinMenu():
		parts := make([]string, 0, len(m.PinnedResources()))
		for _, r := range m.PinnedResources() {
			parts = append(parts, r.Name+"@"+pinnedVersionLabel(r))
		}
		return pinMenuStyle.MaxWidth(m.width).Render("pinned: " + strings.Join(parts, "  "))
	case m.notice != "":
		return noticeStyle.MaxWidth(m.width).Render(m.notice)
	}
	return ""
}

// bottomView draws the help bar with the status legend on the right.
// The whole row goes quiet after ten idle seconds.
func (m Model) bottomView() string {
	if m.idle.hidden {
		return ""
	}
	hv := m.help.View(m.keys)
	if m.narrow {
		return hv
	}
	legend := legendView()
	gap := m.width - lipgloss.Width(hv) - lipgloss.Width(legend)
	if gap < 1 {
		return hv
	}
	return hv + strings.Repeat(" ", gap) + legend
}

// legendView maps the status palette for the reader.
func legendView() string {
	order := []atc.BuildStatus{
		atc.StatusSucceeded,
		atc.StatusFailed,
		atc.StatusErrored,
		atc.StatusAborted,
		atc.StatusStarted,
		atc.StatusPaused,
	}
	parts := make([]string, 0, len(order))
	for _, s := range order {
		dot := lipgloss.NewStyle().Foreground(statusColor(s)).Render("●")
		parts = append(parts, dot+" "+string(s))
	}
	return strings.Join(parts, "  ")
}

// pinnedVersionLabel flattens a pinned version map for display, keys
// sorted for a stable label.
func pinnedVersionLabel(r atc.Resource) string {
	keys := make([]string, 0, len(r.PinnedVersion))
	for k := range r.PinnedVersion {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+":"+r.PinnedVersion[k])
	}
	return strings.Join(parts, ",")
}
