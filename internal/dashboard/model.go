package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	json "github.com/goccy/go-json"
	zone "github.com/lrstanley/bubblezone"

	"github.com/smileynet/flightdeck/internal/atc"
	"github.com/smileynet/flightdeck/internal/term"
)

// Poll cadences. Pipeline data follows the five second beat the web UI
// uses; the cluster version only changes on upgrades and gets a slower
// clock.
const (
	pollEvery    = 5 * time.Second
	versionEvery = time.Minute
)

// Model is the pipeline page. All page state lives here, every
// mutation happens in Update, and commands carry the side effects.
type Model struct {
	// Identity. locator never changes for the lifetime of one page;
	// navigating to another pipeline rebuilds the Model.
	locator atc.PipelineLocator

	// Server data.
	pipeline         RemoteData
	fetchedJobs      []json.RawMessage
	fetchedResources []json.RawMessage
	haveJobs         bool // jobs have arrived at least once; an empty list still counts
	haveResources    bool
	version          string

	// Render bookkeeping: the snapshots last handed to the renderer,
	// compared by bytes only.
	renderedJobs      []json.RawMessage
	renderedResources []json.RawMessage
	rendered          bool

	// View state.
	selectedGroups []string // empty means the pipeline's default group
	togglePending  bool
	turbulence     bool
	authExpired    bool
	idle           idleTimer
	narrow         bool
	pixelWidth     int
	sidebar        sidebarState
	hovered        string // zone id under the pointer, "" when none
	pinMenuOpen    bool
	notice         string // transient status line, cleared on the next poll

	// Chrome.
	width, height int
	frame         string
	graph         viewport.Model
	spin          spinner.Model
	help          help.Model
	keys          pageKeys
	zones         *zone.Manager

	// Collaborators.
	fetcher  PipelineFetcher
	toggler  PauseToggler
	cluster  ClusterInfo
	renderer Renderer
	nav      Navigator
	clip     ClipboardWriter
	opener   URLOpener
	webURL   func(atc.PipelineLocator) string
	pixels   func(cols int) int
}

// Option configures a Model at construction.
type Option func(*Model)

// WithFetcher sets the pipeline data source.
func WithFetcher(f PipelineFetcher) Option { return func(m *Model) { m.fetcher = f } }

// WithPauseToggler sets the collaborator behind the pause button.
func WithPauseToggler(t PauseToggler) Option { return func(m *Model) { m.toggler = t } }

// WithClusterInfo sets the source for the version label and team list.
func WithClusterInfo(c ClusterInfo) Option { return func(m *Model) { m.cluster = c } }

// WithRenderer replaces the default graph renderer.
func WithRenderer(r Renderer) Option { return func(m *Model) { m.renderer = r } }

// WithNavigator sets the observer for page-initiated location changes.
func WithNavigator(n Navigator) Option { return func(m *Model) { m.nav = n } }

// WithClipboard enables the copy-URL key.
func WithClipboard(w ClipboardWriter) Option { return func(m *Model) { m.clip = w } }

// WithURLOpener enables the open-in-browser key.
func WithURLOpener(o URLOpener) Option { return func(m *Model) { m.opener = o } }

// WithWebURL supplies the browser-facing URL for a pipeline. Without it
// the copy and open keys are inert, as in a local preview.
func WithWebURL(fn func(atc.PipelineLocator) string) Option {
	return func(m *Model) { m.webURL = fn }
}

// WithPixelWidth replaces the terminal pixel-width probe.
func WithPixelWidth(fn func(cols int) int) Option { return func(m *Model) { m.pixels = fn } }

// WithSidebarOpen starts the team drawer open.
func WithSidebarOpen(open bool) Option { return func(m *Model) { m.sidebar.open = open } }

// NewModel builds the page for one pipeline. groups is the selection
// carried in by the location; empty means the pipeline's default.
func NewModel(loc atc.PipelineLocator, groups []string, opts ...Option) Model {
	m := baseModel(loc, groups)
	m.zones = zone.New()
	m.pixels = term.PixelWidth
	for _, opt := range opts {
		opt(&m)
	}
	if m.renderer == nil {
		m.renderer = GraphRenderer{}
	}
	return m
}

// baseModel is the per-pipeline zero state shared by NewModel and
// reinit. The metadata fetch counts as in flight from the first moment:
// activation always issues it.
func baseModel(loc atc.PipelineLocator, groups []string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		locator:        loc,
		pipeline:       RemoteData{State: RemoteLoading},
		selectedGroups: append([]string(nil), groups...),
		graph:          viewport.New(0, 0),
		spin:           sp,
		help:           help.New(),
		keys:           pageKeyMap(),
	}
}

// reinit rebuilds the page for a new pipeline, carrying over only what
// outlives a single pipeline: collaborators, terminal geometry, and the
// server-wide chrome (team drawer, version label). Everything the old
// pipeline owned starts over.
func (m Model) reinit(loc atc.PipelineLocator, groups []string) Model {
	next := baseModel(loc, groups)
	next.fetcher, next.toggler, next.cluster = m.fetcher, m.toggler, m.cluster
	next.renderer, next.nav, next.clip, next.opener = m.renderer, m.nav, m.clip, m.opener
	next.webURL, next.pixels, next.zones = m.webURL, m.pixels, m.zones
	next.width, next.height = m.width, m.height
	next.pixelWidth, next.narrow = m.pixelWidth, m.narrow
	next.help = m.help
	next.sidebar = m.sidebar
	next.version = m.version
	return next.resizeGraph()
}

// Init starts the activation fetches plus the three timers and the
// spinner. Order within the batch is not significant.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.activate(),
		idleTickCmd(),
		pollTickCmd(),
		versionTickCmd(),
		m.spin.Tick,
	)
}

// activate issues the fetches a fresh page needs: pipeline metadata,
// cluster version, a focus reset, a screen-size query, and the team
// list. Reinitialization after a pipeline change reuses it without
// restarting the timers.
func (m Model) activate() tea.Cmd {
	return tea.Batch(
		fetchPipelineCmd(m.fetcher, m.locator),
		fetchVersionCmd(m.cluster),
		resetFocusCmd(),
		tea.WindowSize(),
		fetchTeamsCmd(m.cluster),
	)
}

// Update is the single state transition. It is total: every message
// maps to a next model and a possibly-nil command, and unknown
// messages leave the model unchanged.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.applyResize(msg), nil

	case tea.KeyMsg:
		m.idle = idleTimer{}
		return m.handleKey(msg)

	case tea.MouseMsg:
		m.idle = idleTimer{}
		return m.handleMouse(msg)

	case PipelineFetchedMsg:
		return m.applyPipelineFetched(msg)

	case JobsFetchedMsg:
		return m.applyJobsFetched(msg)

	case ResourcesFetchedMsg:
		return m.applyResourcesFetched(msg)

	case VersionFetchedMsg:
		return m.applyVersionFetched(msg)

	case TeamsFetchedMsg:
		return m.applyTeamsFetched(msg)

	case PauseToggledMsg:
		return m.applyPauseToggled(msg)

	case LocationChangedMsg:
		return m.applyLocationChanged(msg)

	case RefreshMsg:
		m.notice = ""
		return m, tea.Batch(
			fetchPipelineCmd(m.fetcher, m.locator),
			fetchVersionCmd(m.cluster),
		)

	case FrameMsg:
		m.frame = msg.Frame
		m.graph.SetContent(msg.Frame)
		return m, nil

	case focusResetMsg:
		m.graph.GotoTop()
		return m, nil

	case LoginRequiredMsg:
		m.authExpired = true
		return m, tea.Quit

	case ClipboardWrittenMsg:
		if msg.Err != nil {
			m.notice = "copy failed: " + msg.Err.Error()
		} else {
			m.notice = "URL copied"
		}
		return m, nil

	case BrowserOpenedMsg:
		if msg.Err != nil {
			m.notice = "browser: " + msg.Err.Error()
		}
		return m, nil

	case pollTickMsg:
		m.notice = ""
		return m, tea.Batch(fetchPipelineCmd(m.fetcher, m.locator), pollTickCmd())

	case versionTickMsg:
		return m, tea.Batch(fetchVersionCmd(m.cluster), versionTickCmd())

	case idleTickMsg:
		m.idle = m.idle.advance()
		return m, idleTickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

// applyResize records terminal geometry and derives the narrow flag
// from the pixel width, falling back to a cell-width estimate when the
// terminal does not report pixels.
func (m Model) applyResize(msg tea.WindowSizeMsg) Model {
	m.width, m.height = msg.Width, msg.Height
	m.pixelWidth = m.pixels(msg.Width)
	m.narrow = m.pixelWidth < narrowWidth
	m.help.Width = msg.Width
	return m.resizeGraph()
}

// resizeGraph fits the graph viewport into whatever the chrome and the
// team drawer leave over.
func (m Model) resizeGraph() Model {
	w := m.width
	if m.sidebar.open {
		w -= sidebarWidth
	}
	if w < 0 {
		w = 0
	}
	m.graph.Width = w
	m.graph.Height = m.contentHeight()
	return m
}

// contentHeight is the height left for the graph viewport once the
// fixed chrome rows are taken.
func (m Model) contentHeight() int {
	h := m.height - chromeRows
	if h < 0 {
		return 0
	}
	return h
}

func (m Model) applyPipelineFetched(msg PipelineFetchedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		switch {
		case isStatus(msg.Err, http.StatusNotFound):
			m.pipeline = RemoteData{State: RemoteFailed, Err: msg.Err}
			return m, nil
		case isStatus(msg.Err, http.StatusUnauthorized):
			return m, loginRequiredCmd()
		default:
			m.turbulence = true
			return m.maybeRender()
		}
	}
	if m.pipeline.State == RemoteFailed {
		// A not-found page stays a not-found page.
		return m, nil
	}
	m.pipeline = RemoteData{State: RemoteLoaded, Pipeline: msg.Pipeline}
	return m, tea.Batch(
		fetchJobsCmd(m.fetcher, m.locator),
		fetchResourcesCmd(m.fetcher, m.locator),
	)
}

func (m Model) applyJobsFetched(msg JobsFetchedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		if isStatus(msg.Err, http.StatusUnauthorized) {
			return m, loginRequiredCmd()
		}
		// A failed fetch empties the list; the page renders empty under
		// the turbulence banner instead of keeping a stale graph.
		m.fetchedJobs = []json.RawMessage{}
		m.haveJobs = true
		m.turbulence = true
		return m.maybeRender()
	}
	m.fetchedJobs = msg.Jobs
	m.haveJobs = true
	m.turbulence = false
	return m.maybeRender()
}

func (m Model) applyResourcesFetched(msg ResourcesFetchedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		if isStatus(msg.Err, http.StatusUnauthorized) {
			return m, loginRequiredCmd()
		}
		m.fetchedResources = []json.RawMessage{}
		m.haveResources = true
		m.turbulence = true
		return m.maybeRender()
	}
	m.fetchedResources = msg.Resources
	m.haveResources = true
	m.turbulence = false
	return m.maybeRender()
}

func (m Model) applyVersionFetched(msg VersionFetchedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		// Keep showing the previous version under the banner.
		m.turbulence = true
		return m, nil
	}
	m.version = msg.Version
	m.turbulence = false
	return m, nil
}

func (m Model) applyTeamsFetched(msg TeamsFetchedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.turbulence = true
		return m, nil
	}
	m.sidebar = m.sidebar.mergeTeams(msg.Teams)
	return m, nil
}

// applyPauseToggled settles an in-flight pause request. Success flips
// the cached flag without a refetch; the next poll would confirm it
// anyway. Failure only releases the button.
func (m Model) applyPauseToggled(msg PauseToggledMsg) (tea.Model, tea.Cmd) {
	m.togglePending = false
	if msg.Err != nil {
		return m, nil
	}
	if m.pipeline.State == RemoteLoaded {
		m.pipeline.Pipeline.Paused = !m.pipeline.Pipeline.Paused
	}
	return m, nil
}

// applyLocationChanged routes the two kinds of location change: a new
// pipeline rebuilds the page through the constructor path, while a new
// group selection on the same pipeline re-renders in place and then
// snaps focus back, in that order.
func (m Model) applyLocationChanged(msg LocationChangedMsg) (tea.Model, tea.Cmd) {
	if msg.Locator != m.locator {
		next := m.reinit(msg.Locator, msg.Groups)
		return next, next.activate()
	}
	m.selectedGroups = append([]string(nil), msg.Groups...)
	next, cmd := m.maybeRender()
	if cmd == nil {
		return next, resetFocusCmd()
	}
	return next, tea.Sequence(cmd, resetFocusCmd())
}

// handleKey processes key input. Digits come first so the group
// bindings can cover a variable number of groups.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if n, exclusive, ok := digitKey(msg.String()); ok {
		return m.handleGroupDigit(n, exclusive)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Pause):
		return m.handlePauseToggle()
	case key.Matches(msg, m.keys.Sidebar):
		m.sidebar = m.sidebar.toggle()
		return m.resizeGraph(), nil
	case key.Matches(msg, m.keys.Focus):
		return m, resetFocusCmd()
	case key.Matches(msg, m.keys.Copy):
		return m, copyURLCmd(m.clip, m.pageURL())
	case key.Matches(msg, m.keys.Browse):
		return m, openURLCmd(m.opener, m.pageURL())
	case key.Matches(msg, m.keys.Refresh):
		m.notice = ""
		return m, tea.Batch(
			fetchPipelineCmd(m.fetcher, m.locator),
			fetchVersionCmd(m.cluster),
		)
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	// Everything else pans the graph.
	var cmd tea.Cmd
	m.graph, cmd = m.graph.Update(msg)
	return m, cmd
}

// shiftedDigits maps the shifted top-row keys back to their digit, for
// exclusive group selection.
var shiftedDigits = map[string]int{
	"!": 1, "@": 2, "#": 3, "$": 4, "%": 5, "^": 6, "&": 7, "*": 8, "(": 9,
}

func digitKey(s string) (n int, exclusive, ok bool) {
	if len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
		return int(s[0] - '0'), false, true
	}
	if n, ok := shiftedDigits[s]; ok {
		return n, true, true
	}
	return 0, false, false
}

func (m Model) handleGroupDigit(n int, exclusive bool) (tea.Model, tea.Cmd) {
	if m.pipeline.State != RemoteLoaded || n > len(m.pipeline.Pipeline.Groups) {
		return m, nil
	}
	return m.selectGroup(m.pipeline.Pipeline.Groups[n-1].Name, exclusive)
}

// selectGroup routes a group tab click (or its keyboard equivalent)
// through the location. exclusive replaces the whole selection, the way
// shift-click does in a browser.
func (m Model) selectGroup(name string, exclusive bool) (tea.Model, tea.Cmd) {
	if m.pipeline.State != RemoteLoaded {
		return m, nil
	}
	groups := []string{name}
	if !exclusive {
		groups = toggleGroup(name, m.selectedGroups, m.pipeline.Pipeline)
	}
	return m, navigateCmd(m.nav, m.locator, groups)
}

// handlePauseToggle starts a pause flip unless one is already in
// flight. The button stays down until PauseToggledMsg releases it.
func (m Model) handlePauseToggle() (tea.Model, tea.Cmd) {
	if m.toggler == nil || m.togglePending || m.pipeline.State != RemoteLoaded {
		return m, nil
	}
	m.togglePending = true
	return m, togglePauseCmd(m.toggler, m.locator, m.pipeline.Pipeline.Paused)
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action == tea.MouseActionMotion {
		m.hovered = m.zoneAt(msg)
		return m, nil
	}
	if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
		return m.handleClick(msg)
	}

	// Wheel events pan the graph.
	var cmd tea.Cmd
	m.graph, cmd = m.graph.Update(msg)
	return m, cmd
}

func (m Model) handleClick(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	id := m.zoneAt(msg)
	switch {
	case id == zonePause:
		return m.handlePauseToggle()
	case id == zoneSidebar:
		m.sidebar = m.sidebar.toggle()
		return m.resizeGraph(), nil
	case id == zonePin:
		m.pinMenuOpen = !m.pinMenuOpen
		return m, nil
	case strings.HasPrefix(id, zoneGroup):
		return m.selectGroup(strings.TrimPrefix(id, zoneGroup), msg.Shift)
	case strings.HasPrefix(id, zoneTeam):
		m.sidebar = m.sidebar.expandTeam()
		return m, nil
	}
	return m, nil
}

// zoneAt returns the id of the marked zone under the pointer, "" when
// the pointer is over none of them.
func (m Model) zoneAt(msg tea.MouseMsg) string {
	for _, id := range m.zoneIDs() {
		if m.zones.Get(id).InBounds(msg) {
			return id
		}
	}
	return ""
}

// zoneIDs lists every clickable zone the current state can draw.
func (m Model) zoneIDs() []string {
	ids := []string{zonePause, zoneSidebar, zonePin}
	if m.pipeline.State == RemoteLoaded {
		for _, g := range m.pipeline.Pipeline.Groups {
			ids = append(ids, zoneGroup+g.Name)
		}
	}
	if m.sidebar.open {
		for _, t := range m.sidebar.teams {
			ids = append(ids, zoneTeam+t)
		}
	}
	return ids
}

// pageURL is the browser-facing URL for this page, "" when the source
// has no web UI. Explicit group selections ride along as query
// parameters; the default selection keeps the URL bare.
func (m Model) pageURL() string {
	if m.webURL == nil {
		return ""
	}
	u := m.webURL(m.locator)
	if len(m.selectedGroups) == 0 {
		return u
	}
	q := url.Values{}
	for _, g := range m.selectedGroups {
		q.Add("group", g)
	}
	return u + "?" + q.Encode()
}

// isStatus reports whether err carries the given HTTP status. The check
// goes through an interface so this package needs no dependency on any
// particular client.
func isStatus(err error, code int) bool {
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		return sc.StatusCode() == code
	}
	return false
}

// --- Commands ---

func fetchPipelineCmd(f PipelineFetcher, loc atc.PipelineLocator) tea.Cmd {
	if f == nil {
		return nil
	}
	return func() tea.Msg {
		p, err := f.Pipeline(context.Background(), loc)
		return PipelineFetchedMsg{Pipeline: p, Err: err}
	}
}

func fetchJobsCmd(f PipelineFetcher, loc atc.PipelineLocator) tea.Cmd {
	if f == nil {
		return nil
	}
	return func() tea.Msg {
		jobs, err := f.Jobs(context.Background(), loc)
		return JobsFetchedMsg{Jobs: jobs, Err: err}
	}
}

func fetchResourcesCmd(f PipelineFetcher, loc atc.PipelineLocator) tea.Cmd {
	if f == nil {
		return nil
	}
	return func() tea.Msg {
		resources, err := f.Resources(context.Background(), loc)
		return ResourcesFetchedMsg{Resources: resources, Err: err}
	}
}

func fetchVersionCmd(c ClusterInfo) tea.Cmd {
	if c == nil {
		return nil
	}
	return func() tea.Msg {
		v, err := c.Version(context.Background())
		return VersionFetchedMsg{Version: v, Err: err}
	}
}

func fetchTeamsCmd(c ClusterInfo) tea.Cmd {
	if c == nil {
		return nil
	}
	return func() tea.Msg {
		teams, err := c.Teams(context.Background())
		return TeamsFetchedMsg{Teams: teams, Err: err}
	}
}

func togglePauseCmd(t PauseToggler, loc atc.PipelineLocator, paused bool) tea.Cmd {
	return func() tea.Msg {
		return PauseToggledMsg{Err: t.SetPaused(context.Background(), loc, !paused)}
	}
}

// navigateCmd publishes the new location and loops it back into the
// update cycle, the same round trip a browser history push makes.
func navigateCmd(nav Navigator, loc atc.PipelineLocator, groups []string) tea.Cmd {
	return func() tea.Msg {
		if nav != nil {
			nav.NavigateTo(loc, groups)
		}
		return LocationChangedMsg{Locator: loc, Groups: groups}
	}
}

func copyURLCmd(clip ClipboardWriter, url string) tea.Cmd {
	if clip == nil || url == "" {
		return nil
	}
	return func() tea.Msg {
		return ClipboardWrittenMsg{Err: clip.WriteString(url)}
	}
}

func openURLCmd(o URLOpener, url string) tea.Cmd {
	if o == nil || url == "" {
		return nil
	}
	return func() tea.Msg {
		return BrowserOpenedMsg{Err: o.Open(context.Background(), url)}
	}
}

func resetFocusCmd() tea.Cmd {
	return func() tea.Msg { return focusResetMsg{} }
}

func loginRequiredCmd() tea.Cmd {
	return func() tea.Msg { return LoginRequiredMsg{} }
}

func idleTickCmd() tea.Cmd {
	return tea.Tick(idleTickEvery, func(t time.Time) tea.Msg { return idleTickMsg(t) })
}

func pollTickCmd() tea.Cmd {
	return tea.Tick(pollEvery, func(t time.Time) tea.Msg { return pollTickMsg(t) })
}

func versionTickCmd() tea.Cmd {
	return tea.Tick(versionEvery, func(t time.Time) tea.Msg { return versionTickMsg(t) })
}
