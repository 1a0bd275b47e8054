package validate

import (
	"context"
	"errors"
	"testing"

	"storynexus/internal/story"
)

type mockSource struct {
	nodes   []story.StoryNode
	stories []story.GameStory
	err     error
}

func (m *mockSource) ListNodes(ctx context.Context) ([]story.StoryNode, error) {
	return m.nodes, m.err
}

func (m *mockSource) ListStories(ctx context.Context) ([]story.GameStory, error) {
	return m.stories, nil
}

func treeNode(id, storyID, parent string, choices ...story.Choice) story.StoryNode {
	n := story.NewTreeNode(storyID, parent, id, choices)
	n.ID = id
	return *n
}

func gridNode(id, storyID string, x, y int, choices ...story.Choice) story.StoryNode {
	n := story.NewGridNode(storyID, x, y, "plain", id, choices)
	n.ID = id
	return *n
}

func codes(r *Report) map[string]int {
	out := make(map[string]int)
	for _, issue := range r.Issues {
		out[issue.Code]++
	}
	return out
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("clean tree", func(t *testing.T) {
		src := &mockSource{
			stories: []story.GameStory{{ID: "s", Topology: story.TopologyTree, RootNodeID: "a"}},
			nodes: []story.StoryNode{
				treeNode("a", "s", "", story.Choice{ID: "1", NextNodeID: "b"}, story.Choice{ID: "2"}),
				treeNode("b", "s", "a", story.Choice{ID: "1"}),
			},
		}
		report, err := Run(ctx, src)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if len(report.Issues) != 0 {
			t.Fatalf("expected no issues, got %#v", report.Issues)
		}
	})

	t.Run("broken tree", func(t *testing.T) {
		src := &mockSource{
			stories: []story.GameStory{{ID: "s", Topology: story.TopologyTree, RootNodeID: "a"}},
			nodes: []story.StoryNode{
				treeNode("a", "s", "", story.Choice{ID: "1", NextNodeID: "ghost"}, story.Choice{ID: "1"}),
				treeNode("orphan", "s", "missing"),
				gridNode("g", "s", 0, 0),
			},
		}
		report, err := Run(ctx, src)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		got := codes(report)
		want := map[string]int{
			codeDanglingNext:       1,
			codeDuplicateChoiceID:  1,
			codeMissingParent:      1,
			codeAddressingMismatch: 1,
			codeUnreachableNode:    2,
		}
		for code, n := range want {
			if got[code] != n {
				t.Errorf("%s: got %d issues, want %d", code, got[code], n)
			}
		}
		if !report.HasErrors() || report.Count(SeverityWarn) != 2 {
			t.Errorf("unexpected severity counts: %#v", report.Issues)
		}
		if report.Issues[len(report.Issues)-1].Severity != SeverityWarn {
			t.Errorf("expected errors before warnings")
		}
	})

	t.Run("grid collision and dangling root", func(t *testing.T) {
		src := &mockSource{
			stories: []story.GameStory{
				{ID: "g", Topology: story.TopologyGrid, RootNodeID: "n1"},
				{ID: "h", Topology: story.TopologyGrid, RootNodeID: "gone"},
			},
			nodes: []story.StoryNode{
				gridNode("n1", "g", 0, 0, story.Choice{ID: "east", NextNodeID: "n2"}),
				gridNode("n2", "g", 0, 0),
				gridNode("n3", "h", 0, 0),
			},
		}
		report, err := Run(ctx, src)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		got := codes(report)
		if got[codeCoordinateCollision] != 1 || got[codeDanglingRoot] != 1 {
			t.Fatalf("unexpected issues: %#v", report.Issues)
		}
		if got[codeUnreachableNode] != 0 {
			t.Fatalf("unexpected reachability issues: %#v", report.Issues)
		}
	})

	t.Run("source errors", func(t *testing.T) {
		if _, err := Run(ctx, &mockSource{err: errors.New("boom")}); err == nil {
			t.Fatalf("expected error")
		}
		if _, err := Run(ctx, nil); err == nil {
			t.Fatalf("expected error for nil source")
		}
	})
}
