package dashboard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	json "github.com/goccy/go-json"

	"github.com/smileynet/flightdeck/internal/atc"
)

// stripANSI removes ANSI escape sequences from a string.
func stripANSI(s string) string {
	var out []byte
	i := 0
	for i < len(s) {
		if s[i] == '\x1b' && i+1 < len(s) && s[i+1] == '[' {
			j := i + 2
			for j < len(s) && (s[j] < 'A' || s[j] > 'Z') && (s[j] < 'a' || s[j] > 'z') {
				j++
			}
			if j < len(s) {
				j++
			}
			i = j
		} else {
			out = append(out, s[i])
			i++
		}
	}
	return string(out)
}

// containsPlainText checks if s contains sub after stripping ANSI escapes.
func containsPlainText(s, sub string) bool {
	return strings.Contains(stripANSI(s), sub)
}

// execBatch executes a tea.Cmd, handling both single commands and batch
// commands. It returns all resulting messages. Spinner ticks are skipped
// to avoid infinite recursion.
func execBatch(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var msgs []tea.Msg
		for _, c := range batch {
			if c != nil {
				result := c()
				// Skip spinner ticks to avoid recursion.
				if _, isTick := result.(spinner.TickMsg); !isTick {
					msgs = append(msgs, result)
				}
			}
		}
		return msgs
	}
	return []tea.Msg{msg}
}

// apply runs a sequence of messages through Update, returning the final
// model and dropping the commands.
func apply(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		updated, _ := m.Update(msg)
		m = updated.(Model)
	}
	return m
}

// keyMsg builds the KeyMsg for a single printable key.
func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// rawJob builds a raw job document with the given name and groups.
func rawJob(name string, groups ...string) json.RawMessage {
	doc := map[string]any{"name": name}
	if len(groups) > 0 {
		doc["groups"] = groups
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return raw
}

// rawResource builds a raw resource document, pinned when version is
// non-empty.
func rawResource(name, version string) json.RawMessage {
	doc := map[string]any{"name": name, "type": "git"}
	if version != "" {
		doc["pinned_version"] = map[string]string{"ref": version}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return raw
}

// statusErr mimics a server error carrying an HTTP status.
type statusErr int

func (e statusErr) Error() string   { return fmt.Sprintf("server returned %d", int(e)) }
func (e statusErr) StatusCode() int { return int(e) }

// fakeFetcher serves scripted pipeline data and records call counts.
// The mutex matters in program tests, where the fan-out fetches run
// concurrently.
type fakeFetcher struct {
	mu           sync.Mutex
	pipeline     atc.Pipeline
	pipelineErr  error
	jobs         []json.RawMessage
	jobsErr      error
	resources    []json.RawMessage
	resourcesErr error

	pipelineCalls int
	lastLocator   atc.PipelineLocator
}

func (f *fakeFetcher) Pipeline(_ context.Context, loc atc.PipelineLocator) (atc.Pipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pipelineCalls++
	f.lastLocator = loc
	return f.pipeline, f.pipelineErr
}

func (f *fakeFetcher) Jobs(_ context.Context, loc atc.PipelineLocator) ([]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLocator = loc
	return f.jobs, f.jobsErr
}

func (f *fakeFetcher) Resources(_ context.Context, loc atc.PipelineLocator) ([]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLocator = loc
	return f.resources, f.resourcesErr
}

// fakeToggler records pause requests.
type fakeToggler struct {
	calls  int
	paused bool
	err    error
}

func (f *fakeToggler) SetPaused(_ context.Context, _ atc.PipelineLocator, paused bool) error {
	f.calls++
	f.paused = paused
	return f.err
}

// fakeCluster serves a scripted version and team list.
type fakeCluster struct {
	version    string
	versionErr error
	teams      []string
	teamsErr   error
}

func (f *fakeCluster) Version(context.Context) (string, error) { return f.version, f.versionErr }
func (f *fakeCluster) Teams(context.Context) ([]string, error) { return f.teams, f.teamsErr }

// recordingRenderer counts render calls and keeps the last input.
type recordingRenderer struct {
	calls         int
	lastJobs      []json.RawMessage
	lastResources []json.RawMessage
}

func (r *recordingRenderer) Render(jobs, resources []json.RawMessage) string {
	r.calls++
	r.lastJobs = jobs
	r.lastResources = resources
	return "frame"
}

// recordingNavigator keeps the last location pushed through it.
type recordingNavigator struct {
	calls   int
	locator atc.PipelineLocator
	groups  []string
}

func (n *recordingNavigator) NavigateTo(loc atc.PipelineLocator, groups []string) {
	n.calls++
	n.locator = loc
	n.groups = groups
}

// fakeClipboard records what was copied.
type fakeClipboard struct {
	text string
	err  error
}

func (f *fakeClipboard) WriteString(text string) error {
	f.text = text
	return f.err
}

// fakeOpener records the URL opened.
type fakeOpener struct {
	url string
	err error
}

func (f *fakeOpener) Open(_ context.Context, url string) error {
	f.url = url
	return f.err
}

// groupedPipeline is a two-group pipeline used across the tests.
func groupedPipeline() atc.Pipeline {
	return atc.Pipeline{
		ID:       1,
		Name:     "deploy",
		TeamName: "main",
		Groups: []atc.GroupConfig{
			{Name: "frontend", Jobs: []string{"js-build"}},
			{Name: "backend", Jobs: []string{"go-build"}},
		},
	}
}

func testLocator() atc.PipelineLocator {
	return atc.PipelineLocator{Team: "main", Pipeline: "deploy"}
}

// newPageModel builds a sized model with recording collaborators, for
// tests that drive Update directly.
func newPageModel(opts ...Option) Model {
	base := []Option{
		WithPixelWidth(func(cols int) int { return cols * 8 }),
	}
	m := NewModel(testLocator(), nil, append(base, opts...)...)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return updated.(Model)
}

// loadedModel is newPageModel after a successful pipeline, jobs, and
// resources round trip, with the frame applied.
func loadedModel(t *testing.T, r *recordingRenderer, opts ...Option) Model {
	t.Helper()
	m := newPageModel(append(opts, WithRenderer(r))...)
	m = apply(t, m, PipelineFetchedMsg{Pipeline: groupedPipeline()})

	updated, _ := m.Update(JobsFetchedMsg{Jobs: []json.RawMessage{
		rawJob("js-build", "frontend"),
		rawJob("go-build", "backend"),
	}})
	m = updated.(Model)

	updated, cmd := m.Update(ResourcesFetchedMsg{Resources: []json.RawMessage{
		rawResource("repo", ""),
	}})
	m = updated.(Model)

	for _, msg := range execBatch(t, cmd) {
		m = apply(t, m, msg)
	}
	return m
}
