package validate

import (
	"context"
	"fmt"

	"storynexus/internal/story"
)

// Source is the read side of a graph store.
type Source interface {
	ListNodes(ctx context.Context) ([]story.StoryNode, error)
	ListStories(ctx context.Context) ([]story.GameStory, error)
}

type graph struct {
	nodes   []story.StoryNode
	byID    map[string]*story.StoryNode
	stories map[string]*story.GameStory
	order   []string
}

func newGraph(nodes []story.StoryNode, stories []story.GameStory) *graph {
	g := &graph{
		nodes:   nodes,
		byID:    make(map[string]*story.StoryNode, len(nodes)),
		stories: make(map[string]*story.GameStory, len(stories)),
	}
	for i := range nodes {
		g.byID[nodes[i].ID] = &nodes[i]
	}
	for i := range stories {
		g.stories[stories[i].ID] = &stories[i]
		g.order = append(g.order, stories[i].ID)
	}
	return g
}

func (g *graph) checkAddressing() []Issue {
	var issues []Issue
	for _, n := range g.nodes {
		var want story.Topology
		if gs, ok := g.stories[n.StoryID]; ok {
			want = gs.Topology
		}
		switch {
		case n.Grid != nil && n.Tree != nil:
			issues = append(issues, nodeIssue(SeverityError, codeAddressingMismatch, n, "node carries both grid and tree addressing"))
		case n.Grid == nil && n.Tree == nil:
			issues = append(issues, nodeIssue(SeverityError, codeAddressingMismatch, n, "node carries no addressing"))
		case want != "" && n.Topology() != want:
			issues = append(issues, nodeIssue(SeverityError, codeAddressingMismatch, n,
				fmt.Sprintf("%s-addressed node in a %s story", n.Topology(), want)))
		}

		seen := make(map[string]bool, len(n.Choices))
		for _, c := range n.Choices {
			if seen[c.ID] {
				issues = append(issues, nodeIssue(SeverityError, codeDuplicateChoiceID, n,
					fmt.Sprintf("duplicate choice id %q", c.ID)))
			}
			seen[c.ID] = true
		}
	}
	return issues
}

func (g *graph) checkLinks() []Issue {
	var issues []Issue
	for _, n := range g.nodes {
		for _, c := range n.Choices {
			if c.NextNodeID != "" && g.byID[c.NextNodeID] == nil {
				issues = append(issues, nodeIssue(SeverityError, codeDanglingNext, n,
					fmt.Sprintf("choice %q points at missing node %q", c.ID, c.NextNodeID)))
			}
		}
		if parent := n.ParentID(); parent != "" && g.byID[parent] == nil {
			issues = append(issues, nodeIssue(SeverityError, codeMissingParent, n,
				fmt.Sprintf("parent node %q does not exist", parent)))
		}
	}
	for _, id := range g.order {
		gs := g.stories[id]
		if gs.RootNodeID != "" && g.byID[gs.RootNodeID] == nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Code:     codeDanglingRoot,
				Message:  fmt.Sprintf("root node %q does not exist", gs.RootNodeID),
				Story:    gs.ID,
			})
		}
	}
	return issues
}

func (g *graph) checkCoordinates() []Issue {
	type key struct {
		storyID string
		x, y    int
	}
	first := make(map[key]string)

	var issues []Issue
	for _, n := range g.nodes {
		if n.Grid == nil {
			continue
		}
		k := key{n.StoryID, n.Grid.X, n.Grid.Y}
		if other, ok := first[k]; ok {
			issues = append(issues, nodeIssue(SeverityError, codeCoordinateCollision, n,
				fmt.Sprintf("shares (%d, %d) with node %q", n.Grid.X, n.Grid.Y, other)))
			continue
		}
		first[k] = n.ID
	}
	return issues
}

// checkReachability walks choice links from each story root and warns about
// the story's nodes it never reaches.
func (g *graph) checkReachability() []Issue {
	var issues []Issue
	for _, id := range g.order {
		gs := g.stories[id]
		if gs.RootNodeID == "" || g.byID[gs.RootNodeID] == nil {
			continue
		}

		reached := map[string]bool{gs.RootNodeID: true}
		queue := []string{gs.RootNodeID}
		for len(queue) > 0 {
			n := g.byID[queue[0]]
			queue = queue[1:]
			for _, c := range n.Choices {
				if c.NextNodeID == "" || reached[c.NextNodeID] || g.byID[c.NextNodeID] == nil {
					continue
				}
				reached[c.NextNodeID] = true
				queue = append(queue, c.NextNodeID)
			}
		}

		for _, n := range g.nodes {
			if n.StoryID == gs.ID && !reached[n.ID] {
				issues = append(issues, nodeIssue(SeverityWarn, codeUnreachableNode, n, "node is unreachable from the story root"))
			}
		}
	}
	return issues
}

func nodeIssue(severity Severity, code string, n story.StoryNode, message string) Issue {
	return Issue{
		Severity: severity,
		Code:     code,
		Message:  message,
		Story:    n.StoryID,
		Node:     n.ID,
	}
}
