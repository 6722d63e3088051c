// Package atc defines the wire types of the CI server API and the
// decode boundary over raw job/resource snapshots.
package atc

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for caller-checkable conditions.
var (
	ErrBadLocator = errors.New("atc: locator must be TEAM/PIPELINE")
)

// PipelineLocator identifies one pipeline: team name plus pipeline name.
// It is immutable once constructed; a different locator means a different
// dashboard page.
type PipelineLocator struct {
	Team     string
	Pipeline string
}

// ParsePipelineLocator parses a "team/pipeline" argument.
func ParsePipelineLocator(s string) (PipelineLocator, error) {
	team, pipeline, ok := strings.Cut(s, "/")
	if !ok || team == "" || pipeline == "" {
		return PipelineLocator{}, fmt.Errorf("%w, got %q", ErrBadLocator, s)
	}
	if strings.Contains(pipeline, "/") {
		return PipelineLocator{}, fmt.Errorf("%w, got %q", ErrBadLocator, s)
	}
	return PipelineLocator{Team: team, Pipeline: pipeline}, nil
}

// String returns the canonical "team/pipeline" form.
func (l PipelineLocator) String() string {
	return l.Team + "/" + l.Pipeline
}

// IsZero reports whether the locator has not been set.
func (l PipelineLocator) IsZero() bool {
	return l.Team == "" && l.Pipeline == ""
}

// BuildStatus is the lifecycle state of a single build.
type BuildStatus string

const (
	StatusPending   BuildStatus = "pending"
	StatusStarted   BuildStatus = "started"
	StatusSucceeded BuildStatus = "succeeded"
	StatusFailed    BuildStatus = "failed"
	StatusErrored   BuildStatus = "errored"
	StatusAborted   BuildStatus = "aborted"
	StatusPaused    BuildStatus = "paused"
)

// Running reports whether the status describes a build still in progress.
func (s BuildStatus) Running() bool {
	return s == StatusPending || s == StatusStarted
}

// Pipeline is the metadata record for one pipeline.
type Pipeline struct {
	ID       int           `json:"id"`
	Name     string        `json:"name"`
	TeamName string        `json:"team_name"`
	Paused   bool          `json:"paused"`
	Public   bool          `json:"public"`
	Archived bool          `json:"archived"`
	Groups   []GroupConfig `json:"groups,omitempty"`
}

// Locator returns the pipeline's locator.
func (p Pipeline) Locator() PipelineLocator {
	return PipelineLocator{Team: p.TeamName, Pipeline: p.Name}
}

// GroupConfig names a subset of a pipeline's jobs and resources used to
// partition a large pipeline's view.
type GroupConfig struct {
	Name      string   `json:"name"`
	Jobs      []string `json:"jobs,omitempty"`
	Resources []string `json:"resources,omitempty"`
}

// Build is a single execution of a job.
type Build struct {
	ID        int         `json:"id"`
	Name      string      `json:"name"`
	Status    BuildStatus `json:"status"`
	StartTime int64       `json:"start_time,omitempty"`
	EndTime   int64       `json:"end_time,omitempty"`
}

// Job is one node of the pipeline graph.
type Job struct {
	ID            int         `json:"id"`
	Name          string      `json:"name"`
	TeamName      string      `json:"team_name"`
	PipelineName  string      `json:"pipeline_name"`
	Paused        bool        `json:"paused"`
	Groups        []string    `json:"groups,omitempty"`
	FinishedBuild *Build      `json:"finished_build,omitempty"`
	NextBuild     *Build      `json:"next_build,omitempty"`
	Inputs        []JobInput  `json:"inputs,omitempty"`
	Outputs       []JobOutput `json:"outputs,omitempty"`
}

// DisplayStatus derives the status shown for a job: the in-flight build wins,
// then the last finished build, then pending.
func (j Job) DisplayStatus() BuildStatus {
	if j.Paused {
		return StatusPaused
	}
	if j.NextBuild != nil {
		return j.NextBuild.Status
	}
	if j.FinishedBuild != nil {
		return j.FinishedBuild.Status
	}
	return StatusPending
}

// JobInput is a resource consumed by a job, with optional upstream
// passed-constraints that define graph edges.
type JobInput struct {
	Name     string   `json:"name"`
	Resource string   `json:"resource"`
	Passed   []string `json:"passed,omitempty"`
	Trigger  bool     `json:"trigger,omitempty"`
}

// JobOutput is a resource produced by a job.
type JobOutput struct {
	Name     string `json:"name"`
	Resource string `json:"resource"`
}

// Resource is an external input tracked by the pipeline.
type Resource struct {
	Name           string            `json:"name"`
	Type           string            `json:"type"`
	PinnedVersion  map[string]string `json:"pinned_version,omitempty"`
	PinComment     string            `json:"pin_comment,omitempty"`
	FailingToCheck bool              `json:"failing_to_check,omitempty"`
	LastChecked    int64             `json:"last_checked,omitempty"`
}

// Pinned reports whether the resource's version has been fixed rather than
// floating to latest.
func (r Resource) Pinned() bool {
	return len(r.PinnedVersion) > 0
}

// Info is the server identity record from /api/v1/info.
type Info struct {
	Version       string `json:"version"`
	WorkerVersion string `json:"worker_version"`
	ExternalURL   string `json:"external_url,omitempty"`
	ClusterName   string `json:"cluster_name,omitempty"`
}

// Team is a named tenant on the CI server.
type Team struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
