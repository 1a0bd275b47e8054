package worldgen

import (
	"context"
	"fmt"

	"storynexus/internal/generation"
	"storynexus/internal/story"
)

// expansion is a pending child: the choice on parent it will hang from.
type expansion struct {
	parentID string
	choiceID string
	depth    int
}

func (r *run) tree(ctx context.Context) error {
	rng := newRand(r.req.Seed)
	remaining := r.budget
	nodes := make(map[string]*story.StoryNode)
	var stack []expansion

	push := func(node *story.StoryNode, depth int) {
		if depth+1 > r.req.MaxDepth {
			return
		}
		for i := len(node.Choices) - 1; i >= 0; i-- {
			if rng.Float64() < r.req.ContinuationProbability {
				stack = append(stack, expansion{parentID: node.ID, choiceID: node.Choices[i].ID, depth: depth + 1})
			}
		}
	}

	if r.stop.Stopped() {
		return story.ErrGenerationStopped
	}
	content, err := r.gen.TreeNode(ctx, generation.TreeNodeInput{
		Outline:  r.story.Outline,
		World:    r.world,
		MaxDepth: r.req.MaxDepth,
	})
	if err != nil {
		return fmt.Errorf("generating node at depth 0: %w", err)
	}
	root := story.NewTreeNode(r.story.ID, "", content.Content, content.Choices)
	if _, err := r.commit(ctx, root); err != nil {
		return fmt.Errorf("generating node at depth 0: %w", err)
	}
	nodes[root.ID] = root
	remaining--
	push(root, 0)

	for len(stack) > 0 && remaining > 0 {
		next := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if r.stop.Stopped() {
			return story.ErrGenerationStopped
		}

		parent := nodes[next.parentID]
		choice, _ := parent.ChoiceByID(next.choiceID)
		content, err := r.gen.TreeNode(ctx, generation.TreeNodeInput{
			Outline:  r.story.Outline,
			World:    r.world,
			Parent:   &generation.ParentScene{Content: parent.Content, ChoiceText: choice.Text},
			Depth:    next.depth,
			MaxDepth: r.req.MaxDepth,
		})
		if err != nil {
			return fmt.Errorf("generating node at depth %d: %w", next.depth, err)
		}

		child := story.NewTreeNode(r.story.ID, parent.ID, content.Content, content.Choices)
		if _, err := r.commit(ctx, child); err != nil {
			return fmt.Errorf("generating node at depth %d: %w", next.depth, err)
		}
		nodes[child.ID] = child
		remaining--

		if err := r.link(ctx, parent, next.choiceID, child.ID); err != nil {
			return err
		}
		push(child, next.depth)
	}
	return nil
}

func (r *run) link(ctx context.Context, parent *story.StoryNode, choiceID, childID string) error {
	for i := range parent.Choices {
		if parent.Choices[i].ID == choiceID {
			parent.Choices[i].NextNodeID = childID
		}
	}
	if err := r.store.PatchNode(ctx, parent.ID, story.NodePatch{Choices: &parent.Choices}); err != nil {
		return fmt.Errorf("linking node %s to parent %s: %w", childID, parent.ID, err)
	}
	return nil
}
