package worldgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"storynexus/internal/generation"
	"storynexus/internal/store/memory"
	"storynexus/internal/story"
)

// scriptedService answers world detail requests with a fixed world and
// node requests with reply, called with the 1-based node call number.
type scriptedService struct {
	nodeCalls int
	prompts   []string
	reply     func(call int) (string, error)
}

func (s *scriptedService) Generate(ctx context.Context, req generation.Request) (*generation.Response, error) {
	text := `{"locations": [{"name": "Base", "description": "dome", "pointsOfInterest": ["airlock"]}], "environments": []}`
	if strings.Contains(req.UserPrompt, "story node") {
		s.nodeCalls++
		s.prompts = append(s.prompts, req.SystemPrompt)
		var err error
		if text, err = s.reply(s.nodeCalls); err != nil {
			return nil, err
		}
	}
	return &generation.Response{Choices: []generation.ResponseChoice{{Message: generation.Message{Content: text}}}}, nil
}

func nodeReply(call int) (string, error) {
	return fmt.Sprintf("```json\n{\"content\": \"scene %d\", \"terrain\": \"dunes\", \"choices\": [{\"id\": \"1\", \"text\": \"onward\"}, {\"id\": \"2\", \"text\": \"rest\"}]}\n```", call), nil
}

func TestRunWithGenerator(t *testing.T) {
	ctx := context.Background()

	t.Run("grid renders neighbor prompts", func(t *testing.T) {
		db := memory.New()
		svc := &scriptedService{reply: nodeReply}
		res, err := NewOrchestrator(db, generation.NewGenerator(svc), nil).Run(ctx, Request{
			Outline:  testOutline,
			Topology: story.TopologyGrid,
			GridSize: 2,
		}, nil, nil)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if len(res.NodeIDs) != 4 || svc.nodeCalls != 4 {
			t.Fatalf("expected 4 nodes from 4 calls, got %d from %d", len(res.NodeIDs), svc.nodeCalls)
		}
		if !strings.Contains(svc.prompts[1], "WEST: Terrain: dunes, Content: scene 1") {
			t.Errorf("(1,0) prompt missing its west neighbor:\n%s", svc.prompts[1])
		}
		if !strings.Contains(svc.prompts[3], "NORTHWEST: Terrain: dunes") {
			t.Errorf("(1,1) prompt missing its northwest neighbor:\n%s", svc.prompts[3])
		}
		root, err := db.GetNode(ctx, res.RootNodeID)
		if err != nil {
			t.Fatalf("get root: %v", err)
		}
		if root.Content != "scene 1" || root.Grid == nil || root.Grid.Terrain != "dunes" {
			t.Fatalf("unexpected root: %#v", root)
		}
	})

	t.Run("tree renders parent prompts", func(t *testing.T) {
		db := memory.New()
		svc := &scriptedService{reply: nodeReply}
		res, err := NewOrchestrator(db, generation.NewGenerator(svc), nil).Run(ctx, Request{
			Outline:                 testOutline,
			Topology:                story.TopologyTree,
			NodeBudget:              3,
			MaxDepth:                2,
			ContinuationProbability: 1,
			Seed:                    3,
		}, nil, nil)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if len(res.NodeIDs) != 3 {
			t.Fatalf("expected 3 nodes, got %d", len(res.NodeIDs))
		}
		if !strings.Contains(svc.prompts[1], "The player chose: onward") {
			t.Errorf("child prompt missing the parent choice:\n%s", svc.prompts[1])
		}
	})

	t.Run("unparseable node aborts and keeps earlier nodes", func(t *testing.T) {
		db := memory.New()
		svc := &scriptedService{reply: func(call int) (string, error) {
			if call == 3 {
				return "I cannot write that scene.", nil
			}
			return nodeReply(call)
		}}
		res, err := NewOrchestrator(db, generation.NewGenerator(svc), nil).Run(ctx, Request{
			Outline:  testOutline,
			Topology: story.TopologyGrid,
			GridSize: 2,
		}, nil, nil)
		if !errors.Is(err, story.ErrParseFailure) {
			t.Fatalf("expected ErrParseFailure, got %v", err)
		}
		nodes, _ := db.ListNodes(ctx)
		if len(nodes) != 2 || len(res.NodeIDs) != 2 {
			t.Fatalf("expected 2 kept nodes, got %d", len(nodes))
		}
		if res.RootNodeID == "" {
			t.Fatalf("partial result lost its root")
		}
	})

	t.Run("transport failure aborts the tree", func(t *testing.T) {
		db := memory.New()
		svc := &scriptedService{reply: func(call int) (string, error) {
			if call == 2 {
				return "", &generation.TransportError{StatusCode: 503}
			}
			return nodeReply(call)
		}}
		_, err := NewOrchestrator(db, generation.NewGenerator(svc), nil).Run(ctx, Request{
			Outline:                 testOutline,
			Topology:                story.TopologyTree,
			NodeBudget:              4,
			MaxDepth:                2,
			ContinuationProbability: 1,
			Seed:                    3,
		}, nil, nil)
		if !errors.Is(err, story.ErrTransport) {
			t.Fatalf("expected ErrTransport, got %v", err)
		}
		nodes, _ := db.ListNodes(ctx)
		if len(nodes) != 1 {
			t.Fatalf("expected only the root to remain, got %d", len(nodes))
		}
	})
}
