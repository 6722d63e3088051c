package atc

import (
	"fmt"

	"github.com/goccy/go-json"
)

// The dashboard passes job and resource snapshots around as raw JSON items:
// the renderer owns the full schema, while the view-state core only ever
// probes the one field it needs. A malformed item is an item-level failure,
// never a batch-level one; callers skip it and keep going.

// DecodeJob decodes one raw job snapshot item into its full schema.
func DecodeJob(raw json.RawMessage) (Job, error) {
	var j Job
	if err := json.Unmarshal(raw, &j); err != nil {
		return Job{}, fmt.Errorf("atc: decoding job: %w", err)
	}
	return j, nil
}

// DecodeResource decodes one raw resource snapshot item into its full schema.
func DecodeResource(raw json.RawMessage) (Resource, error) {
	var r Resource
	if err := json.Unmarshal(raw, &r); err != nil {
		return Resource{}, fmt.Errorf("atc: decoding resource: %w", err)
	}
	return r, nil
}

// jobGroupsProbe extracts only the group membership of a job item.
type jobGroupsProbe struct {
	Groups []string `json:"groups"`
}

// JobGroups decodes just the group list of a raw job item.
func JobGroups(raw json.RawMessage) ([]string, error) {
	var probe jobGroupsProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("atc: decoding job groups: %w", err)
	}
	return probe.Groups, nil
}

// jobNameProbe extracts only the name of a job item.
type jobNameProbe struct {
	Name string `json:"name"`
}

// JobName decodes just the name of a raw job item.
func JobName(raw json.RawMessage) (string, error) {
	var probe jobNameProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		return "", fmt.Errorf("atc: decoding job name: %w", err)
	}
	return probe.Name, nil
}

// PinnedResources decodes raw resource items and returns those whose version
// is pinned. Malformed items are skipped.
func PinnedResources(raws []json.RawMessage) []Resource {
	var pinned []Resource
	for _, raw := range raws {
		r, err := DecodeResource(raw)
		if err != nil {
			continue
		}
		if r.Pinned() {
			pinned = append(pinned, r)
		}
	}
	return pinned
}
