package worldgen

import (
	"context"
	"fmt"

	"storynexus/internal/generation"
	"storynexus/internal/story"
)

type offset struct {
	dir    generation.Direction
	dx, dy int
}

// y grows southward; row 0 is the northern edge.
var neighborOffsets = []offset{
	{generation.North, 0, -1},
	{generation.NorthEast, 1, -1},
	{generation.East, 1, 0},
	{generation.SouthEast, 1, 1},
	{generation.South, 0, 1},
	{generation.SouthWest, -1, 1},
	{generation.West, -1, 0},
	{generation.NorthWest, -1, -1},
}

// travelOffsets are the linked directions, in the order their choices are
// appended.
var travelOffsets = []offset{
	{generation.East, 1, 0},
	{generation.South, 0, 1},
	{generation.West, -1, 0},
	{generation.North, 0, -1},
}

type cell struct{ x, y int }

func (r *run) grid(ctx context.Context) error {
	n := r.req.GridSize
	nodes := make(map[cell]*story.StoryNode, n*n)

	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			if r.stop.Stopped() {
				return story.ErrGenerationStopped
			}

			content, err := r.gen.GridNode(ctx, generation.GridNodeInput{
				Outline:   r.story.Outline,
				World:     r.world,
				Neighbors: neighbors(nodes, x, y),
				Position:  generation.Position{X: x, Y: y, Width: n, Height: n},
			})
			if err != nil {
				return fmt.Errorf("generating node at (%d, %d): %w", x, y, err)
			}

			node := story.NewGridNode(r.story.ID, x, y, content.Terrain, content.Content, content.Choices)
			if _, err := r.commit(ctx, node); err != nil {
				return fmt.Errorf("generating node at (%d, %d): %w", x, y, err)
			}
			nodes[cell{x, y}] = node
		}
	}

	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			node := nodes[cell{x, y}]
			choices := linkTravel(node.Choices, func(dx, dy int) string {
				if neighbor, ok := nodes[cell{x + dx, y + dy}]; ok {
					return neighbor.ID
				}
				return ""
			})
			if err := r.store.PatchNode(ctx, node.ID, story.NodePatch{Choices: &choices}); err != nil {
				return fmt.Errorf("linking node at (%d, %d): %w", x, y, err)
			}
			node.Choices = choices
		}
	}
	return nil
}

func neighbors(nodes map[cell]*story.StoryNode, x, y int) []generation.Neighbor {
	var out []generation.Neighbor
	for _, off := range neighborOffsets {
		node, ok := nodes[cell{x + off.dx, y + off.dy}]
		if !ok {
			continue
		}
		terrain := ""
		if node.Grid != nil {
			terrain = node.Grid.Terrain
		}
		out = append(out, generation.Neighbor{Direction: off.dir, Terrain: terrain, Content: node.Content})
	}
	return out
}

// linkTravel points each direction's choice at the neighbor returned by
// target, appending a plain travel choice when the node has none for that
// direction. An empty target marks the grid edge.
func linkTravel(choices []story.Choice, target func(dx, dy int) string) []story.Choice {
	out := append([]story.Choice(nil), choices...)
	for _, off := range travelOffsets {
		id := string(off.dir)
		next := target(off.dx, off.dy)

		found := false
		for i := range out {
			if out[i].ID == id {
				out[i].NextNodeID = next
				found = true
			}
		}
		if !found {
			out = append(out, story.Choice{ID: id, Text: "Travel " + id, NextNodeID: next})
		}
	}
	return out
}
