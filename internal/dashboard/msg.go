// Package dashboard implements the pipeline page: a bubbletea model
// holding every piece of page state, a total Update mapping each
// message to the next state plus side-effect commands, and a View that
// draws the chrome around an externally rendered job graph.
//
// Job and resource snapshots stay raw ([]json.RawMessage) inside the
// model. The page core only ever probes single fields through the atc
// decode helpers; full decoding belongs to the renderer, so a malformed
// item degrades one box of the graph instead of the whole page.
package dashboard

import (
	"context"
	"time"

	json "github.com/goccy/go-json"

	"github.com/smileynet/flightdeck/internal/atc"
)

// RemoteState tags a RemoteData value.
type RemoteState int

const (
	RemoteNotAsked RemoteState = iota // Zero value; no fetch started.
	RemoteLoading                     // Fetch in flight.
	RemoteLoaded                      // Pipeline field is valid.
	RemoteFailed                      // Err field is valid; the page shows not-found.
)

// RemoteData tracks the pipeline metadata fetch through its lifecycle.
// Pipeline is meaningful only under RemoteLoaded and Err only under
// RemoteFailed; consumers branch on State, never on zero values.
type RemoteData struct {
	State    RemoteState
	Pipeline atc.Pipeline
	Err      error
}

// --- Consumer-side interfaces ---

// PipelineFetcher loads one pipeline's metadata and contents. Jobs and
// Resources return one raw JSON document per item, decoding deferred to
// the consumer.
type PipelineFetcher interface {
	Pipeline(ctx context.Context, loc atc.PipelineLocator) (atc.Pipeline, error)
	Jobs(ctx context.Context, loc atc.PipelineLocator) ([]json.RawMessage, error)
	Resources(ctx context.Context, loc atc.PipelineLocator) ([]json.RawMessage, error)
}

// PauseToggler flips a pipeline between paused and running.
type PauseToggler interface {
	SetPaused(ctx context.Context, loc atc.PipelineLocator, paused bool) error
}

// ClusterInfo reports server-wide facts shown in the page chrome.
type ClusterInfo interface {
	Version(ctx context.Context) (string, error)
	Teams(ctx context.Context) ([]string, error)
}

// Renderer draws the effective job and resource snapshots into a frame.
// A layout pass is expensive next to the update loop, which is why the
// model diffs snapshots and only calls Render on change.
type Renderer interface {
	Render(jobs, resources []json.RawMessage) string
}

// Navigator observes location changes the page itself initiates. Group
// toggles round-trip through the location instead of mutating the
// selection in place, so deep links stay honest.
type Navigator interface {
	NavigateTo(loc atc.PipelineLocator, groups []string)
}

// ClipboardWriter copies text to the system clipboard.
type ClipboardWriter interface {
	WriteString(text string) error
}

// URLOpener opens a URL in the user's browser.
type URLOpener interface {
	Open(ctx context.Context, url string) error
}

// --- tea.Msg types ---

// PipelineFetchedMsg carries the result of a pipeline metadata fetch.
// On success Model.Update fans out into jobs and resources fetches.
type PipelineFetchedMsg struct {
	Pipeline atc.Pipeline
	Err      error
}

// JobsFetchedMsg carries one raw document per job.
type JobsFetchedMsg struct {
	Jobs []json.RawMessage
	Err  error
}

// ResourcesFetchedMsg carries one raw document per resource.
type ResourcesFetchedMsg struct {
	Resources []json.RawMessage
	Err       error
}

// VersionFetchedMsg carries the cluster version string for the footer.
type VersionFetchedMsg struct {
	Version string
	Err     error
}

// TeamsFetchedMsg carries the team names visible to the current user.
type TeamsFetchedMsg struct {
	Teams []string
	Err   error
}

// PauseToggledMsg reports completion of a pause or unpause request.
type PauseToggledMsg struct {
	Err error
}

// LocationChangedMsg reports that the page location changed, either to
// a different pipeline or to a new group selection on the same one.
// Group toggles emit this through the Navigator round trip; a changed
// locator rebuilds the page from scratch.
type LocationChangedMsg struct {
	Locator atc.PipelineLocator
	Groups  []string
}

// RefreshMsg asks for an immediate re-fetch of pipeline data ahead of
// the regular poll. The r key and the preview file watcher both send it.
type RefreshMsg struct{}

// FrameMsg carries a freshly drawn graph frame from the renderer.
type FrameMsg struct {
	Frame string
}

// LoginRequiredMsg reports that the server rejected the session. The
// model quits on it; the caller decides what to tell the user.
type LoginRequiredMsg struct{}

// ClipboardWrittenMsg reports the outcome of a copy-URL request.
type ClipboardWrittenMsg struct {
	Err error
}

// BrowserOpenedMsg reports the outcome of an open-in-browser request.
type BrowserOpenedMsg struct {
	Err error
}

// focusResetMsg snaps the graph viewport back to its origin.
type focusResetMsg struct{}

// Timer ticks. Each handler reschedules its own timer, so a page that
// stops handling one stops its clock.
type (
	idleTickMsg    time.Time
	pollTickMsg    time.Time
	versionTickMsg time.Time
)
