// Package local loads pipeline definitions from YAML files, producing
// the same API-shaped data a server would, so the dashboard can be
// previewed offline.
package local

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/smileynet/flightdeck/internal/atc"
)

// DefaultTeam is used when a local file names no team.
const DefaultTeam = "local"

// Snapshot is one pipeline's worth of API-shaped data. Jobs and
// resources are raw per-item snapshots, same as the HTTP client
// returns, so preview exercises the same decode paths.
type Snapshot struct {
	Pipeline  atc.Pipeline
	Jobs      []json.RawMessage
	Resources []json.RawMessage
}

// filePipeline is the authoring schema of a local pipeline file.
type filePipeline struct {
	Name      string         `yaml:"name"`
	Team      string         `yaml:"team"`
	Paused    bool           `yaml:"paused"`
	Groups    []fileGroup    `yaml:"groups"`
	Jobs      []fileJob      `yaml:"jobs"`
	Resources []fileResource `yaml:"resources"`
}

type fileGroup struct {
	Name      string   `yaml:"name"`
	Jobs      []string `yaml:"jobs"`
	Resources []string `yaml:"resources"`
}

type fileJob struct {
	Name    string      `yaml:"name"`
	Status  string      `yaml:"status"`  // last finished build status; empty means never built
	Running bool        `yaml:"running"` // simulate an in-flight build
	Paused  bool        `yaml:"paused"`
	Inputs  []fileInput `yaml:"inputs"`
}

type fileInput struct {
	Resource string   `yaml:"resource"`
	Passed   []string `yaml:"passed"`
	Trigger  bool     `yaml:"trigger"`
}

type fileResource struct {
	Name           string `yaml:"name"`
	Type           string `yaml:"type"`
	Pinned         string `yaml:"pinned"` // pinned version ref
	PinComment     string `yaml:"pin_comment"`
	FailingToCheck bool   `yaml:"failing_to_check"`
}

// Load reads and converts the pipeline file at path.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("local: reading %s: %w", path, err)
	}
	snap, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("local: %s: %w", path, err)
	}
	return snap, nil
}

// Parse converts pipeline YAML into a Snapshot. Unknown fields are
// rejected so schema typos surface instead of silently vanishing.
func Parse(data []byte) (*Snapshot, error) {
	var file filePipeline
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty pipeline file")
		}
		return nil, fmt.Errorf("parsing: %w", err)
	}

	if file.Name == "" {
		return nil, errors.New("pipeline name is required")
	}
	if file.Team == "" {
		file.Team = DefaultTeam
	}

	jobNames := make(map[string]bool, len(file.Jobs))
	for _, j := range file.Jobs {
		if j.Name == "" {
			return nil, errors.New("job name is required")
		}
		if jobNames[j.Name] {
			return nil, fmt.Errorf("duplicate job %q", j.Name)
		}
		jobNames[j.Name] = true
	}

	// The API reports group membership on each job; the authoring schema
	// lists jobs per group like a real pipeline config. Invert it here.
	groupsByJob := make(map[string][]string)
	var groups []atc.GroupConfig
	for _, g := range file.Groups {
		if g.Name == "" {
			return nil, errors.New("group name is required")
		}
		for _, jobName := range g.Jobs {
			if !jobNames[jobName] {
				return nil, fmt.Errorf("group %q references unknown job %q", g.Name, jobName)
			}
			groupsByJob[jobName] = append(groupsByJob[jobName], g.Name)
		}
		groups = append(groups, atc.GroupConfig{Name: g.Name, Jobs: g.Jobs, Resources: g.Resources})
	}

	pipeline := atc.Pipeline{
		ID:       1,
		Name:     file.Name,
		TeamName: file.Team,
		Paused:   file.Paused,
		Groups:   groups,
	}

	jobs := make([]json.RawMessage, 0, len(file.Jobs))
	for i, j := range file.Jobs {
		job, err := convertJob(i, j, pipeline, groupsByJob[j.Name])
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(job)
		if err != nil {
			return nil, fmt.Errorf("encoding job %q: %w", j.Name, err)
		}
		jobs = append(jobs, raw)
	}

	resources := make([]json.RawMessage, 0, len(file.Resources))
	for _, r := range file.Resources {
		if r.Name == "" {
			return nil, errors.New("resource name is required")
		}
		raw, err := json.Marshal(convertResource(r))
		if err != nil {
			return nil, fmt.Errorf("encoding resource %q: %w", r.Name, err)
		}
		resources = append(resources, raw)
	}

	return &Snapshot{Pipeline: pipeline, Jobs: jobs, Resources: resources}, nil
}

func convertJob(idx int, j fileJob, p atc.Pipeline, groups []string) (atc.Job, error) {
	job := atc.Job{
		ID:           idx + 1,
		Name:         j.Name,
		TeamName:     p.TeamName,
		PipelineName: p.Name,
		Paused:       j.Paused,
		Groups:       groups,
	}

	if j.Status != "" {
		status := atc.BuildStatus(j.Status)
		switch status {
		case atc.StatusSucceeded, atc.StatusFailed, atc.StatusErrored, atc.StatusAborted:
			job.FinishedBuild = &atc.Build{ID: idx*10 + 1, Name: "1", Status: status}
		default:
			return atc.Job{}, fmt.Errorf("job %q: status %q is not a finished build status", j.Name, j.Status)
		}
	}
	if j.Running {
		buildName := "1"
		if job.FinishedBuild != nil {
			buildName = "2"
		}
		job.NextBuild = &atc.Build{ID: idx*10 + 2, Name: buildName, Status: atc.StatusStarted}
	}

	for _, in := range j.Inputs {
		job.Inputs = append(job.Inputs, atc.JobInput{
			Name:     in.Resource,
			Resource: in.Resource,
			Passed:   in.Passed,
			Trigger:  in.Trigger,
		})
	}
	return job, nil
}

func convertResource(r fileResource) atc.Resource {
	res := atc.Resource{
		Name:           r.Name,
		Type:           r.Type,
		PinComment:     r.PinComment,
		FailingToCheck: r.FailingToCheck,
	}
	if r.Pinned != "" {
		res.PinnedVersion = map[string]string{"ref": r.Pinned}
	}
	return res
}
