package dashboard

import (
	"bytes"
	"testing"
	"time"

	"github.com/charmbracelet/x/exp/teatest"
	json "github.com/goccy/go-json"

	"github.com/smileynet/flightdeck/internal/atc"
)

// TestProgram_LoadFilterQuit runs the page as a real program: activation
// fetches the pipeline and its content, the default group renders, a
// location change narrows the graph to the other group, and q quits.
func TestProgram_LoadFilterQuit(t *testing.T) {
	fetcher := &fakeFetcher{
		pipeline: groupedPipeline(),
		jobs: []json.RawMessage{
			rawJob("js-build", "frontend"),
			rawJob("go-build", "backend"),
		},
		resources: []json.RawMessage{rawResource("repo", "")},
	}
	m := NewModel(testLocator(), nil,
		WithFetcher(fetcher),
		WithClusterInfo(&fakeCluster{version: "7.8.1", teams: []string{"main"}}),
		WithPixelWidth(func(cols int) int { return cols * 8 }),
	)

	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(120, 40))

	// The default group is the first one, so only js-build is drawn.
	teatest.WaitFor(t, tm.Output(), func(b []byte) bool {
		return bytes.Contains(b, []byte("js-build"))
	}, teatest.WithDuration(3*time.Second))

	// Switching to the backend group brings go-build into view for the
	// first time.
	tm.Send(LocationChangedMsg{Locator: testLocator(), Groups: []string{"backend"}})
	teatest.WaitFor(t, tm.Output(), func(b []byte) bool {
		return bytes.Contains(b, []byte("go-build"))
	}, teatest.WithDuration(3*time.Second))

	tm.Send(keyMsg("q"))
	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))

	final := tm.FinalModel(t).(Model)
	if final.pipeline.State != RemoteLoaded {
		t.Errorf("final pipeline state = %v, want %v", final.pipeline.State, RemoteLoaded)
	}
	if got := final.ActiveGroups(); len(got) != 1 || got[0] != "backend" {
		t.Errorf("final active groups = %v, want [backend]", got)
	}
	if len(final.renderedJobs) != 1 {
		t.Fatalf("final rendered jobs = %d, want 1", len(final.renderedJobs))
	}
	if name, err := atc.JobName(final.renderedJobs[0]); err != nil || name != "go-build" {
		t.Errorf("final rendered job = %q (err %v), want %q", name, err, "go-build")
	}
	if final.AuthExpired() {
		t.Error("clean quit should not report an expired token")
	}
}

// TestProgram_NotFoundPage drives a missing pipeline end to end: the
// program settles on the not-found page and stays there.
func TestProgram_NotFoundPage(t *testing.T) {
	fetcher := &fakeFetcher{pipelineErr: statusErr(404)}
	m := NewModel(testLocator(), nil,
		WithFetcher(fetcher),
		WithPixelWidth(func(cols int) int { return cols * 8 }),
	)

	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(120, 40))

	teatest.WaitFor(t, tm.Output(), func(b []byte) bool {
		return bytes.Contains(b, []byte("pipeline not found"))
	}, teatest.WithDuration(3*time.Second))

	tm.Send(keyMsg("q"))
	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))

	final := tm.FinalModel(t).(Model)
	if final.pipeline.State != RemoteFailed {
		t.Errorf("final pipeline state = %v, want %v", final.pipeline.State, RemoteFailed)
	}
}
