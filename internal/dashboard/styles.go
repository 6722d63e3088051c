package dashboard

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/smileynet/flightdeck/internal/atc"
)

// Layout constants.
const (
	// narrowWidth is the terminal pixel width below which the page
	// drops its wide chrome. 811 px is narrow; 812 px is not.
	narrowWidth = 812

	// sidebarWidth is the character width of the team drawer.
	sidebarWidth = 24

	// chromeRows is the fixed row count around the graph viewport:
	// top bar, group tabs, status line, help bar.
	chromeRows = 4
)

// Zone ids for mouse hit testing. Group and team zones append the
// group or team name to their prefix.
const (
	zonePause   = "pause"
	zoneSidebar = "sidebar"
	zonePin     = "pins"
	zoneGroup   = "group:"
	zoneTeam    = "team:"
)

// Build status colors, matching the web UI palette as closely as 256
// colors allow.
var statusColors = map[atc.BuildStatus]lipgloss.AdaptiveColor{
	atc.StatusSucceeded: {Light: "28", Dark: "40"},
	atc.StatusFailed:    {Light: "160", Dark: "196"},
	atc.StatusErrored:   {Light: "130", Dark: "208"},
	atc.StatusAborted:   {Light: "94", Dark: "137"},
	atc.StatusPending:   {Light: "245", Dark: "250"},
	atc.StatusStarted:   {Light: "100", Dark: "226"},
	atc.StatusPaused:    {Light: "27", Dark: "39"},
}

// statusColor returns the palette color for a status, gray for one the
// palette does not know.
func statusColor(s atc.BuildStatus) lipgloss.AdaptiveColor {
	if c, ok := statusColors[s]; ok {
		return c
	}
	return lipgloss.AdaptiveColor{Light: "240", Dark: "245"}
}

var (
	topBarStyle = lipgloss.NewStyle().Bold(true)

	topBarItemStyle = lipgloss.NewStyle()

	pausedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "27", Dark: "39"})

	versionStyle = lipgloss.NewStyle().Faint(true)

	groupBarStyle = lipgloss.NewStyle()

	groupStyle = lipgloss.NewStyle().Faint(true)

	groupActiveStyle = lipgloss.NewStyle().Bold(true).Underline(true)

	turbulenceStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "160", Dark: "203"})

	noticeStyle = lipgloss.NewStyle().Faint(true)

	pinMenuStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "27", Dark: "39"})

	notFoundStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "160", Dark: "196"})

	sidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(lipgloss.AdaptiveColor{Light: "240", Dark: "240"})

	sidebarTitleStyle = lipgloss.NewStyle().Bold(true)

	sidebarTeamStyle = lipgloss.NewStyle()

	sidebarCurrentStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "4", Dark: "12"})

	jobBoxStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("231"))

	jobInputStyle = lipgloss.NewStyle().Faint(true)

	emptyGraphStyle = lipgloss.NewStyle().Faint(true)
)

// hoverStyle brightens a chrome item while the pointer is over it.
func (m Model) hoverStyle(id string, base lipgloss.Style) lipgloss.Style {
	if m.hovered == id {
		return base.Underline(true)
	}
	return base
}
