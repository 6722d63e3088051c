// Package graph computes the column layout of a pipeline's job DAG.
package graph

import (
	"sort"

	"github.com/smileynet/flightdeck/internal/atc"
)

// Layout places jobs into columns, upstream work to the left. Column i+1
// holds jobs whose furthest passed-constraint ancestor sits in column i.
type Layout struct {
	Columns [][]atc.Job
}

// JobCount reports the total number of placed jobs.
func (l Layout) JobCount() int {
	n := 0
	for _, col := range l.Columns {
		n += len(col)
	}
	return n
}

// Rank assigns each job the column one past its furthest upstream
// dependency, longest-path style. Passed constraints naming jobs outside
// the given set are ignored: group filtering routinely hides upstream
// jobs, and the survivors still need a sensible layout. Jobs within a
// column are ordered by name. Cycles (invalid in a real pipeline) are
// capped rather than followed forever.
func Rank(jobs []atc.Job) Layout {
	if len(jobs) == 0 {
		return Layout{}
	}

	present := make(map[string]int, len(jobs))
	for i, j := range jobs {
		present[j.Name] = i
	}

	deps := make([][]int, len(jobs))
	for i, j := range jobs {
		for _, in := range j.Inputs {
			for _, dep := range in.Passed {
				if di, ok := present[dep]; ok && di != i {
					deps[i] = append(deps[i], di)
				}
			}
		}
	}

	rank := make([]int, len(jobs))
	maxRank := len(jobs) - 1
	for pass := 0; pass < len(jobs); pass++ {
		changed := false
		for i := range jobs {
			for _, di := range deps[i] {
				if r := rank[di] + 1; r > rank[i] && r <= maxRank {
					rank[i] = r
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}

	columns := 0
	for _, r := range rank {
		if r+1 > columns {
			columns = r + 1
		}
	}
	cols := make([][]atc.Job, columns)
	for i, j := range jobs {
		cols[rank[i]] = append(cols[rank[i]], j)
	}
	for _, col := range cols {
		sort.Slice(col, func(a, b int) bool { return col[a].Name < col[b].Name })
	}
	return Layout{Columns: cols}
}
