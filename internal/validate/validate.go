// Package validate checks stored story graphs for broken links and
// addressing violations.
package validate

import (
	"context"
	"fmt"
	"sort"
)

type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warning"
)

const (
	codeDanglingNext        = "dangling_next_node"
	codeDanglingRoot        = "dangling_root_node"
	codeAddressingMismatch  = "addressing_mismatch"
	codeMissingParent       = "missing_parent"
	codeDuplicateChoiceID   = "duplicate_choice_id"
	codeCoordinateCollision = "grid_coordinate_collision"
	codeUnreachableNode     = "unreachable_node"
)

type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Story    string   `json:"story,omitempty"`
	Node     string   `json:"node,omitempty"`
}

type Report struct {
	Issues []Issue `json:"issues"`
}

func (r *Report) Count(severity Severity) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == severity {
			n++
		}
	}
	return n
}

func (r *Report) HasErrors() bool {
	return r.Count(SeverityError) > 0
}

func Run(ctx context.Context, src Source) (*Report, error) {
	if src == nil {
		return nil, fmt.Errorf("graph source is required")
	}

	nodes, err := src.ListNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	stories, err := src.ListStories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}

	g := newGraph(nodes, stories)
	issues := make([]Issue, 0)
	issues = append(issues, g.checkAddressing()...)
	issues = append(issues, g.checkLinks()...)
	issues = append(issues, g.checkCoordinates()...)
	issues = append(issues, g.checkReachability()...)

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Severity != issues[j].Severity {
			return issues[i].Severity == SeverityError
		}
		return false
	})
	return &Report{Issues: issues}, nil
}
