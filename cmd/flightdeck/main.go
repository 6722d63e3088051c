package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	json "github.com/goccy/go-json"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	flightdeck "github.com/smileynet/flightdeck"
	"github.com/smileynet/flightdeck/internal/api"
	"github.com/smileynet/flightdeck/internal/atc"
	"github.com/smileynet/flightdeck/internal/browser"
	"github.com/smileynet/flightdeck/internal/config"
	"github.com/smileynet/flightdeck/internal/dashboard"
	"github.com/smileynet/flightdeck/internal/eventlog"
	"github.com/smileynet/flightdeck/internal/format"
	"github.com/smileynet/flightdeck/internal/local"
	"github.com/smileynet/flightdeck/internal/state"
	"github.com/smileynet/flightdeck/internal/target"
	"github.com/smileynet/flightdeck/internal/watch"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// CLI is the top-level command structure for flightdeck.
type CLI struct {
	Version kong.VersionFlag `help:"Show version." short:"V"`
	NoColor bool             `help:"Disable colored output."`

	View      ViewCmd      `cmd:"" default:"withargs" help:"Open the dashboard for a pipeline."`
	Watch     WatchCmd     `cmd:"" help:"Print build transitions as plain lines."`
	Preview   PreviewCmd   `cmd:"" help:"Render a pipeline from a local file, no server needed."`
	Pause     PauseCmd     `cmd:"" help:"Pause a pipeline."`
	Unpause   UnpauseCmd   `cmd:"" help:"Unpause a pipeline."`
	Pipelines PipelinesCmd `cmd:"" help:"List pipelines visible on the server."`
	Targets   TargetsCmd   `cmd:"" help:"Manage saved server targets."`
}

// serverFlags are shared by every command that talks to a CI server.
type serverFlags struct {
	Target   string `help:"Named target from targets.yml." short:"t"`
	URL      string `help:"Server URL, bypassing config and saved targets."`
	Insecure bool   `help:"Skip TLS certificate verification." short:"k"`
}

// loadConfig loads layered config from system, user, and project paths
// with env overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadLayered(
		"/etc/flightdeck/config.yaml",
		os.ExpandEnv("$HOME/.config/flightdeck/config.yaml"),
		".flightdeck.yaml",
	)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// targetStore opens the targets file at its conventional location.
func targetStore() (*target.Store, error) {
	path, err := target.DefaultPath()
	if err != nil {
		return nil, err
	}
	return target.NewStore(path), nil
}

// server is one resolved set of connection facts.
type server struct {
	url      string
	token    string
	team     string
	insecure bool
}

// fill merges a saved target under the flag- and env-provided values.
func (s server) fill(t target.Target) server {
	s.url = t.URL
	if s.token == "" {
		s.token = t.Token
	}
	s.team = t.Team
	s.insecure = s.insecure || t.Insecure
	return s
}

// resolveServer picks the server for one invocation. Precedence: the
// --url flag, then a named target (flag or config), then config
// server.url, then a sole saved target. A token in FLIGHTDECK_TOKEN
// always wins over a stored one, so a fresh login can override a stale
// targets file.
func resolveServer(cfg *config.Config, store *target.Store, flags serverFlags) (server, error) {
	s := server{token: os.Getenv("FLIGHTDECK_TOKEN"), insecure: flags.Insecure}

	if flags.URL != "" {
		s.url = flags.URL
		return s, nil
	}

	name := flags.Target
	if name == "" {
		name = cfg.Server.Target
	}
	if name != "" {
		if store == nil {
			return server{}, fmt.Errorf("target %q requested but no targets file is available", name)
		}
		t, err := store.Lookup(name)
		if err != nil {
			return server{}, err
		}
		return s.fill(t), nil
	}

	if cfg.Server.URL != "" {
		s.url = cfg.Server.URL
		return s, nil
	}

	// With exactly one saved target there is nothing to disambiguate.
	if store != nil {
		if targets, err := store.List(); err == nil && len(targets) == 1 {
			return s.fill(targets[0]), nil
		}
	}

	return server{}, errors.New("no server configured: pass --url, name a target with -t, or set server.url in config")
}

// buildClient resolves the server for flags and returns a ready API
// client plus the target's default team.
func buildClient(cfg *config.Config, flags serverFlags, logger *slog.Logger) (*api.Client, string, error) {
	store, _ := targetStore()
	srv, err := resolveServer(cfg, store, flags)
	if err != nil {
		return nil, "", err
	}
	opts := []api.Option{api.WithLogger(logger)}
	if srv.insecure {
		opts = append(opts, api.WithInsecure())
	}
	client, err := api.NewClient(srv.url, srv.token, opts...)
	if err != nil {
		return nil, "", err
	}
	return client, srv.team, nil
}

// buildLogger opens the configured log sink. The TUI owns the terminal,
// so logs never go to stdout; an empty path discards them.
func buildLogger(cfg config.Log) (*slog.Logger, func(), error) {
	if cfg.File == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	h := slog.NewTextHandler(f, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	return slog.New(h), func() { _ = f.Close() }, nil
}

func stdoutIsTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// clusterAdapter exposes the server identity endpoints in the shape the
// dashboard wants.
type clusterAdapter struct {
	client *api.Client
}

func (a *clusterAdapter) Version(ctx context.Context) (string, error) {
	info, err := a.client.Info(ctx)
	if err != nil {
		return "", err
	}
	return info.Version, nil
}

func (a *clusterAdapter) Teams(ctx context.Context) ([]string, error) {
	teams, err := a.client.Teams(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(teams))
	for _, t := range teams {
		names = append(names, t.Name)
	}
	return names, nil
}

// clipboardWriter adapts the system clipboard.
type clipboardWriter struct{}

func (clipboardWriter) WriteString(text string) error {
	return clipboard.WriteAll(text)
}

// ViewCmd opens the interactive dashboard for one pipeline.
type ViewCmd struct {
	serverFlags
	Pipeline string   `arg:"" help:"Pipeline to open, as TEAM/PIPELINE."`
	Group    []string `help:"Start with these groups selected." short:"g"`
	NoTUI    bool     `help:"Print transitions instead of drawing, even on a TTY."`
}

// Run wires real dependencies and launches the dashboard, or the
// headless watch loop when stdout is not a terminal.
func (v *ViewCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("view: %w", err)
	}
	loc, err := atc.ParsePipelineLocator(v.Pipeline)
	if err != nil {
		return fmt.Errorf("view: %w", err)
	}
	logger, closeLog, err := buildLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("view: %w", err)
	}
	defer closeLog()
	client, _, err := buildClient(cfg, v.serverFlags, logger)
	if err != nil {
		return fmt.Errorf("view: %w", err)
	}

	if v.NoTUI || !stdoutIsTTY() {
		return runWatch(client, loc, cfg, logger, "", "", 0)
	}

	m := dashboard.NewModel(loc, v.Group,
		dashboard.WithFetcher(client),
		dashboard.WithPauseToggler(client),
		dashboard.WithClusterInfo(&clusterAdapter{client: client}),
		dashboard.WithClipboard(clipboardWriter{}),
		dashboard.WithURLOpener(browser.NewOpener()),
		dashboard.WithWebURL(client.PipelineURL),
		dashboard.WithSidebarOpen(cfg.UI.SidebarOpen),
	)
	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	return runDashboard(prog)
}

// teaRunner abstracts program execution for testing.
type teaRunner interface {
	Run() (tea.Model, error)
}

// runDashboard executes the program and surfaces an expired session as
// a typed error so the exit code and message can say what to do.
func runDashboard(prog teaRunner) error {
	final, err := prog.Run()
	if err != nil {
		return fmt.Errorf("view: %w", err)
	}
	if m, ok := final.(dashboard.Model); ok && m.AuthExpired() {
		return errTokenExpired
	}
	return nil
}

// WatchCmd polls a pipeline and prints finished-build transitions.
type WatchCmd struct {
	serverFlags
	Pipeline string        `arg:"" help:"Pipeline to watch, as TEAM/PIPELINE."`
	Interval time.Duration `help:"Poll cadence. Defaults to watch.interval from config."`
	Format   string        `help:"Go template for transition lines."`
	Events   string        `help:"Append transitions to this JSONL file." type:"path"`
}

// Run executes the watch command.
func (c *WatchCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	loc, err := atc.ParsePipelineLocator(c.Pipeline)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	logger, closeLog, err := buildLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer closeLog()
	client, _, err := buildClient(cfg, c.serverFlags, logger)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	return runWatch(client, loc, cfg, logger, c.Format, c.Events, c.Interval)
}

// runWatch runs the headless transition loop until interrupted. Zero
// values for tmpl, eventsPath, and interval fall back to config.
func runWatch(client *api.Client, loc atc.PipelineLocator, cfg *config.Config, logger *slog.Logger, tmpl, eventsPath string, interval time.Duration) error {
	formatter, err := format.New(tmpl)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if interval <= 0 {
		interval = cfg.Watch.Interval
	}

	opts := []watch.Option{
		watch.WithFormatter(formatter),
		watch.WithInterval(interval),
		watch.WithLogger(logger),
	}

	// Last-seen builds are cache data; losing them only replays the
	// current pipeline state once.
	if dir, err := os.UserCacheDir(); err == nil {
		opts = append(opts, watch.WithStore(state.NewFileStore(filepath.Join(dir, "flightdeck", "watch"))))
	}

	if eventsPath == "" {
		eventsPath = cfg.Watch.EventLog
	}
	if eventsPath != "" {
		log, err := eventlog.Open(eventsPath)
		if err != nil {
			return fmt.Errorf("watch: %w", err)
		}
		defer func() { _ = log.Close() }()
		opts = append(opts, watch.WithEvents(log))
	}

	w := watch.New(client, loc, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// PreviewCmd renders a pipeline authored in a local YAML file.
type PreviewCmd struct {
	File   string   `arg:"" optional:"" help:"Pipeline file to preview." type:"existingfile"`
	Watch  bool     `help:"Re-render whenever the file changes."`
	Sample bool     `help:"Preview the embedded example pipeline instead of a file."`
	Group  []string `help:"Start with these groups selected." short:"g"`
}

// snapshotFetcher serves dashboard fetches from a local pipeline file,
// reloading on every call so a refresh picks up edits.
type snapshotFetcher struct {
	load func() (*local.Snapshot, error)
}

func (f *snapshotFetcher) Pipeline(context.Context, atc.PipelineLocator) (atc.Pipeline, error) {
	snap, err := f.load()
	if err != nil {
		return atc.Pipeline{}, err
	}
	return snap.Pipeline, nil
}

func (f *snapshotFetcher) Jobs(context.Context, atc.PipelineLocator) ([]json.RawMessage, error) {
	snap, err := f.load()
	if err != nil {
		return nil, err
	}
	return snap.Jobs, nil
}

func (f *snapshotFetcher) Resources(context.Context, atc.PipelineLocator) ([]json.RawMessage, error) {
	snap, err := f.load()
	if err != nil {
		return nil, err
	}
	return snap.Resources, nil
}

// Run executes the preview command.
func (p *PreviewCmd) Run() error {
	switch {
	case p.Sample && p.File != "":
		return errors.New("preview: FILE and --sample are mutually exclusive")
	case !p.Sample && p.File == "":
		return errors.New("preview: a FILE argument or --sample is required")
	case p.Watch && p.Sample:
		return errors.New("preview: --watch needs a FILE to watch")
	}
	if !stdoutIsTTY() {
		return errors.New("preview: stdout is not a terminal")
	}

	fetcher := &snapshotFetcher{load: func() (*local.Snapshot, error) {
		return local.Parse(flightdeck.SamplePipeline())
	}}
	if p.File != "" {
		path := p.File
		fetcher = &snapshotFetcher{load: func() (*local.Snapshot, error) {
			return local.Load(path)
		}}
	}

	// Load once up front so a broken file fails the command instead of
	// opening a page of turbulence.
	snap, err := fetcher.load()
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}

	m := dashboard.NewModel(snap.Pipeline.Locator(), p.Group,
		dashboard.WithFetcher(fetcher),
	)
	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	if p.Watch {
		lw, err := local.NewWatcher(p.File)
		if err != nil {
			return fmt.Errorf("preview: %w", err)
		}
		if err := lw.Start(); err != nil {
			return fmt.Errorf("preview: %w", err)
		}
		defer lw.Stop()

		done := make(chan struct{})
		defer close(done)
		go func() {
			for {
				select {
				case <-done:
					return
				case <-lw.Changed():
					prog.Send(dashboard.RefreshMsg{})
				}
			}
		}()
	}

	if _, err := prog.Run(); err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	return nil
}

// pauser abstracts the pause call for testing.
type pauser interface {
	SetPaused(ctx context.Context, loc atc.PipelineLocator, paused bool) error
}

// setPaused flips one pipeline's pause state and reports the outcome.
func setPaused(ctx context.Context, w io.Writer, client pauser, loc atc.PipelineLocator, paused bool) error {
	action := "unpause"
	if paused {
		action = "pause"
	}
	if err := client.SetPaused(ctx, loc, paused); err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	_, _ = fmt.Fprintf(w, "%sd %s\n", action, loc)
	return nil
}

// PauseCmd pauses a pipeline without opening the dashboard.
type PauseCmd struct {
	serverFlags
	Pipeline string `arg:"" help:"Pipeline to pause, as TEAM/PIPELINE."`
}

// Run executes the pause command.
func (c *PauseCmd) Run() error {
	return runSetPaused(c.serverFlags, c.Pipeline, true)
}

// UnpauseCmd unpauses a pipeline without opening the dashboard.
type UnpauseCmd struct {
	serverFlags
	Pipeline string `arg:"" help:"Pipeline to unpause, as TEAM/PIPELINE."`
}

// Run executes the unpause command.
func (c *UnpauseCmd) Run() error {
	return runSetPaused(c.serverFlags, c.Pipeline, false)
}

func runSetPaused(flags serverFlags, pipeline string, paused bool) error {
	action := "unpause"
	if paused {
		action = "pause"
	}
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	loc, err := atc.ParsePipelineLocator(pipeline)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	logger, closeLog, err := buildLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	defer closeLog()
	client, _, err := buildClient(cfg, flags, logger)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return setPaused(ctx, os.Stdout, client, loc, paused)
}

// pipelineLister abstracts the pipeline listing call for testing.
type pipelineLister interface {
	Pipelines(ctx context.Context, team string) ([]atc.Pipeline, error)
}

// printPipelines writes one tab-separated row per pipeline, for eyes
// and for scripts.
func printPipelines(ctx context.Context, w io.Writer, client pipelineLister, team string) error {
	pipelines, err := client.Pipelines(ctx, team)
	if err != nil {
		return fmt.Errorf("pipelines: %w", err)
	}

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "name\tteam\tpaused\tpublic")
	for _, p := range pipelines {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%v\t%v\n", p.Name, p.TeamName, p.Paused, p.Public)
	}
	return tw.Flush()
}

// PipelinesCmd lists the pipelines visible on the server.
type PipelinesCmd struct {
	serverFlags
	Team string `help:"Limit the listing to one team. Defaults to the target's team."`
}

// Run executes the pipelines command.
func (c *PipelinesCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("pipelines: %w", err)
	}
	logger, closeLog, err := buildLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("pipelines: %w", err)
	}
	defer closeLog()
	client, targetTeam, err := buildClient(cfg, c.serverFlags, logger)
	if err != nil {
		return fmt.Errorf("pipelines: %w", err)
	}
	team := c.Team
	if team == "" {
		team = targetTeam
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return printPipelines(ctx, os.Stdout, client, team)
}

// TargetsCmd manages the saved server entries in targets.yml.
type TargetsCmd struct {
	Save   TargetsSaveCmd   `cmd:"" help:"Save or update a target."`
	List   TargetsListCmd   `cmd:"" help:"List saved targets."`
	Delete TargetsDeleteCmd `cmd:"" help:"Delete a target."`
}

// TargetsSaveCmd saves one named server entry.
type TargetsSaveCmd struct {
	Name     string `arg:"" help:"Target name, e.g. prod."`
	URL      string `required:"" help:"Server URL."`
	Team     string `help:"Default team for this target."`
	Token    string `help:"Bearer token. Prefer FLIGHTDECK_TOKEN on shared machines."`
	Insecure bool   `help:"Skip TLS certificate verification for this target." short:"k"`
}

// Run executes the targets save command.
func (c *TargetsSaveCmd) Run() error {
	store, err := targetStore()
	if err != nil {
		return fmt.Errorf("targets save: %w", err)
	}
	t := target.Target{Name: c.Name, URL: c.URL, Team: c.Team, Token: c.Token, Insecure: c.Insecure}
	if err := store.Save(t); err != nil {
		return fmt.Errorf("targets save: %w", err)
	}
	fmt.Printf("saved target %s (%s)\n", c.Name, c.URL)
	return nil
}

// printTargets writes one row per saved target. Tokens are never
// printed, only whether one is set.
func printTargets(w io.Writer, targets []target.Target) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "name\turl\tteam\ttoken\tinsecure")
	for _, t := range targets {
		tok := ""
		if t.Token != "" {
			tok = "set"
		}
		insecure := ""
		if t.Insecure {
			insecure = "yes"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.Name, t.URL, t.Team, tok, insecure)
	}
	return tw.Flush()
}

// TargetsListCmd lists the saved server entries.
type TargetsListCmd struct{}

// Run executes the targets list command.
func (c *TargetsListCmd) Run() error {
	store, err := targetStore()
	if err != nil {
		return fmt.Errorf("targets list: %w", err)
	}
	targets, err := store.List()
	if err != nil {
		return fmt.Errorf("targets list: %w", err)
	}
	return printTargets(os.Stdout, targets)
}

// TargetsDeleteCmd removes a saved server entry.
type TargetsDeleteCmd struct {
	Name string `arg:"" help:"Target name to delete."`
}

// Run executes the targets delete command.
func (c *TargetsDeleteCmd) Run() error {
	store, err := targetStore()
	if err != nil {
		return fmt.Errorf("targets delete: %w", err)
	}
	if err := store.Delete(c.Name); err != nil {
		return fmt.Errorf("targets delete: %w", err)
	}
	fmt.Printf("deleted target %s\n", c.Name)
	return nil
}

// errTokenExpired marks an interactive session ended by the server
// rejecting our credentials.
var errTokenExpired = errors.New("session expired: save a fresh token with `flightdeck targets save` or set FLIGHTDECK_TOKEN")

// Exit codes.
const (
	exitSuccess = 0
	exitFailure = 1
	exitSetup   = 2
	exitAuth    = 3
)

// exitCode maps an error to the appropriate exit code.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	if errors.Is(err, errTokenExpired) {
		return exitAuth
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusUnauthorized {
			return exitAuth
		}
		return exitFailure
	}
	return exitSetup
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli, kong.Vars{"version": version + " " + commit + " " + date})
	if cli.NoColor || termenv.EnvNoColor() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	err := ctx.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(exitCode(err))
	}
}
