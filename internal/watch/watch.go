// Package watch is the headless counterpart of the dashboard: a poll
// loop that prints finished-build transitions as lines instead of
// drawing a page. It runs when stdout is not a terminal.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	json "github.com/goccy/go-json"

	"github.com/smileynet/flightdeck/internal/atc"
	"github.com/smileynet/flightdeck/internal/eventlog"
	"github.com/smileynet/flightdeck/internal/format"
	"github.com/smileynet/flightdeck/internal/state"
)

// JobLister serves a pipeline's job listing as raw per-item snapshots.
// Defined here (the consumer) per Go convention: accept interfaces,
// return structs.
type JobLister interface {
	Jobs(ctx context.Context, loc atc.PipelineLocator) ([]json.RawMessage, error)
}

// SeenStore persists the last finished build observed per job, so a
// restarted watch does not replay transitions it already reported.
type SeenStore interface {
	Load(loc atc.PipelineLocator) (state.Seen, bool, error)
	Save(loc atc.PipelineLocator, seen state.Seen) error
}

// EventSink records transitions for other tooling to replay.
type EventSink interface {
	Append(e eventlog.Entry) error
}

const defaultInterval = 5 * time.Second

// Watcher polls one pipeline and announces each job's finished-build
// changes. Transient poll failures are logged and retried on the next
// tick; only cancellation and expired credentials end the loop.
type Watcher struct {
	jobs      JobLister
	locator   atc.PipelineLocator
	store     SeenStore
	events    EventSink
	formatter *format.Formatter
	out       io.Writer
	interval  time.Duration
	logger    *slog.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithStore sets the persistence for last-seen build IDs. Without one,
// every start replays the current state of the pipeline.
func WithStore(s SeenStore) Option {
	return func(w *Watcher) { w.store = s }
}

// WithEvents sets a sink that receives every announced transition.
func WithEvents(s EventSink) Option {
	return func(w *Watcher) { w.events = s }
}

// WithFormatter sets the output line format.
func WithFormatter(f *format.Formatter) Option {
	return func(w *Watcher) { w.formatter = f }
}

// WithOutput sets the destination for transition lines. Defaults to
// stdout.
func WithOutput(out io.Writer) Option {
	return func(w *Watcher) { w.out = out }
}

// WithInterval sets the poll cadence.
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithLogger sets the structured logger. Defaults to a discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// New creates a Watcher for the given pipeline.
func New(jobs JobLister, loc atc.PipelineLocator, opts ...Option) *Watcher {
	w := &Watcher{
		jobs:      jobs,
		locator:   loc,
		formatter: format.Default(),
		out:       os.Stdout,
		interval:  defaultInterval,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until ctx is cancelled, sweeping once immediately and then
// on every interval tick. It returns ctx.Err() on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	seen := w.loadSeen()
	prev := make(map[string]string)

	if err := w.step(ctx, seen, prev); err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.step(ctx, seen, prev); err != nil {
				return err
			}
		}
	}
}

// step runs one sweep and persists progress when anything was announced.
func (w *Watcher) step(ctx context.Context, seen state.Seen, prev map[string]string) error {
	announced, err := w.sweep(ctx, seen, prev)
	if err != nil {
		return err
	}
	if announced > 0 {
		w.saveSeen(seen)
	}
	return nil
}

// sweep fetches the job listing once and announces every finished build
// not seen before. Malformed job items are skipped, not fatal.
func (w *Watcher) sweep(ctx context.Context, seen state.Seen, prev map[string]string) (int, error) {
	raws, err := w.jobs.Jobs(ctx, w.locator)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		if isStatus(err, http.StatusUnauthorized) {
			return 0, fmt.Errorf("watch: %s: %w", w.locator, err)
		}
		w.logger.Warn("poll failed", "pipeline", w.locator.String(), "error", err)
		return 0, nil
	}

	announced := 0
	for _, raw := range raws {
		job, err := atc.DecodeJob(raw)
		if err != nil {
			w.logger.Debug("skipping malformed job item", "error", err)
			continue
		}
		b := job.FinishedBuild
		if b == nil || seen.Builds[job.Name] == b.ID {
			continue
		}

		w.announce(format.Transition{
			Team:     w.locator.Team,
			Pipeline: w.locator.Pipeline,
			Job:      job.Name,
			Build:    b.Name,
			BuildID:  b.ID,
			Status:   string(b.Status),
			Previous: prev[job.Name],
			When:     time.Now(),
		})
		seen.Builds[job.Name] = b.ID
		prev[job.Name] = string(b.Status)
		announced++
	}
	return announced, nil
}

// announce prints one transition line and records it in the event sink.
// Neither failure stops the watch.
func (w *Watcher) announce(tr format.Transition) {
	line, err := w.formatter.Format(tr)
	if err != nil {
		w.logger.Warn("formatting transition", "job", tr.Job, "error", err)
	} else {
		fmt.Fprintln(w.out, line)
	}

	if w.events == nil {
		return
	}
	if err := w.events.Append(eventlog.Entry{
		Time:     tr.When,
		Team:     tr.Team,
		Pipeline: tr.Pipeline,
		Job:      tr.Job,
		Build:    tr.Build,
		BuildID:  tr.BuildID,
		Status:   tr.Status,
		Previous: tr.Previous,
	}); err != nil {
		w.logger.Warn("appending event", "job", tr.Job, "error", err)
	}
}

// loadSeen reads persisted progress. A missing store or record means a
// fresh baseline; a corrupt record is logged and treated the same.
func (w *Watcher) loadSeen() state.Seen {
	if w.store == nil {
		return state.NewSeen()
	}
	seen, ok, err := w.store.Load(w.locator)
	if err != nil {
		w.logger.Warn("loading watch state", "pipeline", w.locator.String(), "error", err)
		return state.NewSeen()
	}
	if !ok {
		return state.NewSeen()
	}
	return seen
}

// saveSeen persists progress (best-effort).
func (w *Watcher) saveSeen(seen state.Seen) {
	if w.store == nil {
		return
	}
	if err := w.store.Save(w.locator, seen); err != nil {
		w.logger.Warn("saving watch state", "pipeline", w.locator.String(), "error", err)
	}
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
