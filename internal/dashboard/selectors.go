package dashboard

import "github.com/smileynet/flightdeck/internal/atc"

// Selectors: read-only derivations over the model, shared by the view
// and by embedding callers.

// Locator returns the pipeline this page shows.
func (m Model) Locator() atc.PipelineLocator { return m.locator }

// IsPaused reports whether the loaded pipeline is paused. An unloaded
// pipeline is not paused.
func (m Model) IsPaused() bool {
	return m.pipeline.State == RemoteLoaded && m.pipeline.Pipeline.Paused
}

// IsTurbulent reports whether the most recent fetch in some data
// category failed.
func (m Model) IsTurbulent() bool { return m.turbulence }

// AuthExpired reports whether the server rejected the session and the
// page shut down because of it.
func (m Model) AuthExpired() bool { return m.authExpired }

// ActiveGroups resolves the group selection currently in effect.
func (m Model) ActiveGroups() []string {
	return activeGroups(m.selectedGroups, m.pipeline)
}

// PinnedResources decodes the fetched resources and keeps the pinned
// ones. Documents that do not decode are skipped.
func (m Model) PinnedResources() []atc.Resource {
	return atc.PinnedResources(m.fetchedResources)
}

// ShowPinMenu reports whether the pin menu should draw: it was opened
// and there is something pinned to show.
func (m Model) ShowPinMenu() bool {
	return m.pinMenuOpen && len(m.PinnedResources()) > 0
}

// VersionLabel is the cluster version for the footer, "" until the
// first fetch lands.
func (m Model) VersionLabel() string {
	if m.version == "" {
		return ""
	}
	return "v" + m.version
}
