package worldgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"storynexus/internal/generation"
	"storynexus/internal/parser"
	"storynexus/internal/store/memory"
	"storynexus/internal/story"
)

type fakeGenerator struct {
	outlineCalls int
	gridInputs   []generation.GridNodeInput
	treeInputs   []generation.TreeNodeInput
	failAt       int // 1-based node call that fails; 0 never fails
}

func (f *fakeGenerator) Outline(ctx context.Context, info generation.GameInfo) (*story.Outline, error) {
	f.outlineCalls++
	return &story.Outline{
		Title:           info.Genre + " story",
		MainPlot:        "plot",
		KeyCharacters:   []story.Character{},
		MajorStoryBeats: []string{},
	}, nil
}

func (f *fakeGenerator) WorldDetails(ctx context.Context, outline story.Outline, nodeCount int) (*story.WorldDetails, error) {
	return &story.WorldDetails{Locations: []story.Location{{Name: "Base"}}}, nil
}

func (f *fakeGenerator) node() (*parser.NodeContent, error) {
	n := len(f.gridInputs) + len(f.treeInputs)
	if f.failAt == n {
		return nil, errors.New("service unavailable")
	}
	return &parser.NodeContent{
		Content: fmt.Sprintf("node %d", n),
		Terrain: "plain",
		Choices: []story.Choice{{ID: "1", Text: "left"}, {ID: "2", Text: "right"}},
	}, nil
}

func (f *fakeGenerator) GridNode(ctx context.Context, in generation.GridNodeInput) (*parser.NodeContent, error) {
	f.gridInputs = append(f.gridInputs, in)
	return f.node()
}

func (f *fakeGenerator) TreeNode(ctx context.Context, in generation.TreeNodeInput) (*parser.NodeContent, error) {
	f.treeInputs = append(f.treeInputs, in)
	return f.node()
}

var testOutline = &story.Outline{
	Title:           "Red Sands",
	MainPlot:        "Settle Mars",
	KeyCharacters:   []story.Character{{Name: "Rachel"}},
	MajorStoryBeats: []string{"Launch"},
}

func choiceTarget(t *testing.T, n *story.StoryNode, id string) string {
	t.Helper()
	c, ok := n.ChoiceByID(id)
	if !ok {
		t.Fatalf("node %s has no %q choice", n.ID, id)
	}
	return c.NextNodeID
}

func TestGrid(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	gen := &fakeGenerator{}

	var progress []Progress
	res, err := NewOrchestrator(db, gen, nil).Run(ctx, Request{
		Outline:  testOutline,
		Topology: story.TopologyGrid,
		GridSize: 2,
	}, nil, func(p Progress) { progress = append(progress, p) })
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	nodes, err := db.ListNodes(ctx)
	if err != nil {
		t.Fatalf("list nodes: %v", err)
	}
	if len(nodes) != 4 || len(res.NodeIDs) != 4 {
		t.Fatalf("expected 4 nodes, got %d", len(nodes))
	}

	at := make(map[[2]int]*story.StoryNode)
	for i := range nodes {
		n := &nodes[i]
		if n.Grid == nil || n.Tree != nil {
			t.Fatalf("node %s is not grid addressed", n.ID)
		}
		at[[2]int{n.Grid.X, n.Grid.Y}] = n
	}

	origin := at[[2]int{0, 0}]
	if got := choiceTarget(t, origin, "east"); got != at[[2]int{1, 0}].ID {
		t.Errorf("(0,0) east = %q, want (1,0)", got)
	}
	if got := choiceTarget(t, origin, "south"); got != at[[2]int{0, 1}].ID {
		t.Errorf("(0,0) south = %q, want (0,1)", got)
	}
	if got := choiceTarget(t, origin, "west"); got != "" {
		t.Errorf("(0,0) west = %q, want edge", got)
	}
	corner := at[[2]int{1, 1}]
	if choiceTarget(t, corner, "east") != "" || choiceTarget(t, corner, "south") != "" {
		t.Errorf("(1,1) east/south should be edges")
	}
	if got := choiceTarget(t, corner, "north"); got != at[[2]int{1, 0}].ID {
		t.Errorf("(1,1) north = %q, want (1,0)", got)
	}
	if len(corner.Choices) != 6 {
		t.Errorf("expected generated choices plus four travel choices, got %d", len(corner.Choices))
	}
	if err := corner.CheckAddressing(story.TopologyGrid); err != nil {
		t.Errorf("linked node invalid: %v", err)
	}

	gs, err := db.GetStory(ctx, res.StoryID)
	if err != nil {
		t.Fatalf("get story: %v", err)
	}
	if gs.RootNodeID != origin.ID || gs.Topology != story.TopologyGrid || gs.GridSize != 2 {
		t.Fatalf("unexpected story: %#v", gs)
	}
	if _, err := db.WorldDetailsForStory(ctx, res.StoryID); err != nil {
		t.Fatalf("world details not stored: %v", err)
	}

	if got := len(gen.gridInputs[3].Neighbors); got != 3 {
		t.Errorf("(1,1) saw %d neighbors, want 3", got)
	}
	if got := len(gen.gridInputs[0].Neighbors); got != 0 {
		t.Errorf("(0,0) saw %d neighbors, want 0", got)
	}
	for _, in := range gen.gridInputs {
		if in.Outline.Title != "Red Sands" {
			t.Fatalf("request not anchored with outline")
		}
	}
	if gen.outlineCalls != 0 {
		t.Errorf("outline generated although one was given")
	}

	if len(progress) != 4 {
		t.Fatalf("expected 4 progress reports, got %d", len(progress))
	}
	for i, p := range progress {
		if p.NodesCreated != i+1 || p.TotalBudget != 4 {
			t.Fatalf("unexpected progress %d: %#v", i, p)
		}
	}
}

func TestTree(t *testing.T) {
	ctx := context.Background()

	t.Run("budget bounds the node count", func(t *testing.T) {
		db := memory.New()
		gen := &fakeGenerator{}
		res, err := NewOrchestrator(db, gen, nil).Run(ctx, Request{
			Info:                    generation.GameInfo{Genre: "Fantasy"},
			Topology:                story.TopologyTree,
			NodeBudget:              3,
			MaxDepth:                5,
			ContinuationProbability: 1,
			Seed:                    7,
		}, nil, nil)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if gen.outlineCalls != 1 {
			t.Errorf("expected outline to be generated")
		}

		nodes, err := db.ListNodes(ctx)
		if err != nil {
			t.Fatalf("list nodes: %v", err)
		}
		if len(nodes) != 3 {
			t.Fatalf("expected 3 nodes, got %d", len(nodes))
		}

		root, err := db.GetNode(ctx, res.RootNodeID)
		if err != nil {
			t.Fatalf("get root: %v", err)
		}
		if root.ParentID() != "" || root.Tree == nil {
			t.Fatalf("unexpected root: %#v", root)
		}
		first := choiceTarget(t, root, "1")
		if first == "" {
			t.Fatalf("first root choice not expanded")
		}
		if got := choiceTarget(t, root, "2"); got != "" {
			t.Fatalf("unexpanded root choice points at %q", got)
		}

		child, err := db.GetNode(ctx, first)
		if err != nil {
			t.Fatalf("get child: %v", err)
		}
		if child.ParentID() != root.ID {
			t.Fatalf("child parent = %q, want root", child.ParentID())
		}
		if gen.treeInputs[1].Parent == nil || gen.treeInputs[1].Parent.ChoiceText != "left" || gen.treeInputs[1].Depth != 1 {
			t.Fatalf("unexpected child request: %#v", gen.treeInputs[1])
		}
	})

	t.Run("max depth bounds the tree", func(t *testing.T) {
		db := memory.New()
		gen := &fakeGenerator{}
		_, err := NewOrchestrator(db, gen, nil).Run(ctx, Request{
			Outline:                 testOutline,
			Topology:                story.TopologyTree,
			Size:                    story.SizeQuick,
			MaxDepth:                1,
			ContinuationProbability: 1,
		}, nil, nil)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		nodes, _ := db.ListNodes(ctx)
		if len(nodes) != 3 {
			t.Fatalf("expected root plus two children, got %d", len(nodes))
		}
		for _, in := range gen.treeInputs {
			if in.Depth > 1 {
				t.Fatalf("generated beyond max depth: %d", in.Depth)
			}
		}
	})

	t.Run("zero probability yields only the root", func(t *testing.T) {
		db := memory.New()
		_, err := NewOrchestrator(db, &fakeGenerator{}, nil).Run(ctx, Request{
			Outline:  testOutline,
			Topology: story.TopologyTree,
			Size:     story.SizeQuick,
			MaxDepth: 4,
		}, nil, nil)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		nodes, _ := db.ListNodes(ctx)
		if len(nodes) != 1 {
			t.Fatalf("expected only the root, got %d", len(nodes))
		}
	})
}

func TestStop(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	stop := &StopSignal{}

	res, err := NewOrchestrator(db, &fakeGenerator{}, nil).Run(ctx, Request{
		Outline:  testOutline,
		Topology: story.TopologyGrid,
		GridSize: 3,
	}, stop, func(p Progress) {
		if p.NodesCreated == 2 {
			stop.Stop()
		}
	})
	if !errors.Is(err, story.ErrGenerationStopped) {
		t.Fatalf("expected ErrGenerationStopped, got %v", err)
	}
	nodes, _ := db.ListNodes(ctx)
	if len(nodes) != 2 || len(res.NodeIDs) != 2 {
		t.Fatalf("expected 2 committed nodes, got %d", len(nodes))
	}
	if res.RootNodeID == "" {
		t.Fatalf("partial result lost its root")
	}
}

func TestStopBeforeStart(t *testing.T) {
	stop := &StopSignal{}
	stop.Stop()
	db := memory.New()
	_, err := NewOrchestrator(db, &fakeGenerator{}, nil).Run(context.Background(), Request{
		Outline:  testOutline,
		Topology: story.TopologyTree,
		Size:     story.SizeQuick,
	}, stop, nil)
	if !errors.Is(err, story.ErrGenerationStopped) {
		t.Fatalf("expected ErrGenerationStopped, got %v", err)
	}
	if stories, _ := db.ListStories(context.Background()); len(stories) != 0 {
		t.Fatalf("story created after stop")
	}
}

func TestNodeFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("grid failure names the coordinate", func(t *testing.T) {
		db := memory.New()
		_, err := NewOrchestrator(db, &fakeGenerator{failAt: 3}, nil).Run(ctx, Request{
			Outline:  testOutline,
			Topology: story.TopologyGrid,
			GridSize: 2,
		}, nil, nil)
		if err == nil || !strings.Contains(err.Error(), "(0, 1)") {
			t.Fatalf("expected error naming (0, 1), got %v", err)
		}
		nodes, _ := db.ListNodes(ctx)
		if len(nodes) != 2 {
			t.Fatalf("expected prior commits to remain, got %d nodes", len(nodes))
		}
	})

	t.Run("tree failure names the depth", func(t *testing.T) {
		db := memory.New()
		_, err := NewOrchestrator(db, &fakeGenerator{failAt: 2}, nil).Run(ctx, Request{
			Outline:                 testOutline,
			Topology:                story.TopologyTree,
			Size:                    story.SizeQuick,
			MaxDepth:                3,
			ContinuationProbability: 1,
		}, nil, nil)
		if err == nil || !strings.Contains(err.Error(), "depth 1") {
			t.Fatalf("expected error naming depth 1, got %v", err)
		}
	})
}

func TestInvalidRequest(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		req  Request
	}{
		{name: "unknown topology", req: Request{Outline: testOutline, Topology: "ring"}},
		{name: "empty grid", req: Request{Outline: testOutline, Topology: story.TopologyGrid}},
		{name: "unknown size", req: Request{Outline: testOutline, Topology: story.TopologyTree, Size: "Gigantic"}},
		{name: "outline without title", req: Request{Outline: &story.Outline{MainPlot: "x"}, Topology: story.TopologyGrid, GridSize: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewOrchestrator(memory.New(), &fakeGenerator{}, nil).Run(ctx, tt.req, nil, nil); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
