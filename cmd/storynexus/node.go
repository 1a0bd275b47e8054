package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"storynexus/internal/store"
	"storynexus/internal/story"
)

func nodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Create, inspect and edit story nodes",
	}
	cmd.AddCommand(nodeCreateCmd())
	cmd.AddCommand(nodeGetCmd())
	cmd.AddCommand(nodeListCmd())
	cmd.AddCommand(nodeUpdateCmd())
	cmd.AddCommand(nodeDeleteCmd())
	return cmd
}

func nodeCreateCmd() *cobra.Command {
	var storyID, content, parent, terrain string
	var x, y int
	var grid bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a tree node, or a grid node with --grid",
		RunE: func(cmd *cobra.Command, args []string) error {
			var node *story.StoryNode
			if grid {
				node = story.NewGridNode(storyID, x, y, terrain, content, nil)
			} else {
				node = story.NewTreeNode(storyID, parent, content, nil)
			}
			return withStore(func(ctx context.Context, db storeHandle) error {
				var topology story.Topology
				if storyID != "" {
					gs, err := db.GetStory(ctx, storyID)
					if err != nil {
						return err
					}
					topology = gs.Topology
				}
				if err := node.CheckAddressing(topology); err != nil {
					return err
				}
				id, err := db.InsertNode(ctx, node)
				if err != nil {
					return err
				}
				fmt.Fprintln(os.Stdout, id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&storyID, "story", "", "Owning story")
	cmd.Flags().StringVar(&content, "content", "", "Node content")
	cmd.Flags().StringVar(&parent, "parent", "", "Parent node for tree nodes")
	cmd.Flags().BoolVar(&grid, "grid", false, "Create a grid-addressed node")
	cmd.Flags().IntVar(&x, "x", 0, "Grid column")
	cmd.Flags().IntVar(&y, "y", 0, "Grid row")
	cmd.Flags().StringVar(&terrain, "terrain", "", "Grid terrain")
	return cmd
}

func nodeGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Display a node and its choices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, db storeHandle) error {
				node, err := db.GetNode(ctx, args[0])
				if err != nil {
					return err
				}
				printNode(node)
				return nil
			})
		},
	}
}

func nodeListCmd() *cobra.Command {
	var storyID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List nodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, db storeHandle) error {
				nodes, err := db.ListNodes(ctx)
				if err != nil {
					return err
				}
				count := 0
				for _, n := range nodes {
					if storyID != "" && n.StoryID != storyID {
						continue
					}
					count++
					fmt.Fprintf(os.Stdout, "%s  %s  %d choices  %s\n", n.ID, addressOf(&n), len(n.Choices), truncate(n.Content, 60))
				}
				if count == 0 {
					fmt.Fprintln(os.Stdout, "No nodes found.")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&storyID, "story", "", "Restrict to one story")
	return cmd
}

func nodeUpdateCmd() *cobra.Command {
	var content string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace a node's content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("content") {
				return fmt.Errorf("--content is required")
			}
			return withStore(func(ctx context.Context, db storeHandle) error {
				return db.PatchNode(ctx, args[0], story.NodePatch{Content: &content})
			})
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "New content")
	return cmd
}

func nodeDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, db storeHandle) error {
				if err := db.DeleteNode(ctx, args[0]); err != nil {
					return err
				}
				unlinked, err := store.UnlinkNode(ctx, db, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "Deleted %s, cleared links from %d nodes.\n", args[0], unlinked)
				return nil
			})
		},
	}
}

func printNode(n *story.StoryNode) {
	fmt.Fprintf(os.Stdout, "ID: %s\n", n.ID)
	if n.StoryID != "" {
		fmt.Fprintf(os.Stdout, "Story: %s\n", n.StoryID)
	}
	fmt.Fprintf(os.Stdout, "Address: %s\n", addressOf(n))
	fmt.Fprintf(os.Stdout, "Visits: %d\n", n.VisitCount)
	fmt.Fprintf(os.Stdout, "\n%s\n", n.Content)
	if len(n.Choices) == 0 {
		return
	}
	fmt.Fprintln(os.Stdout, "\nChoices:")
	for _, c := range n.Choices {
		next := c.NextNodeID
		if next == "" {
			next = "(stay)"
		}
		fmt.Fprintf(os.Stdout, "  [%s] %s -> %s\n", c.ID, c.Text, next)
		for _, effect := range c.Consequences {
			rec := story.Record(effect)
			if rec.Value != nil {
				fmt.Fprintf(os.Stdout, "      %s %s %v\n", rec.Type, rec.Target, rec.Value)
			} else {
				fmt.Fprintf(os.Stdout, "      %s %s\n", rec.Type, rec.Target)
			}
		}
	}
}

func addressOf(n *story.StoryNode) string {
	switch {
	case n.Grid != nil:
		return fmt.Sprintf("grid(%d,%d %s)", n.Grid.X, n.Grid.Y, n.Grid.Terrain)
	case n.Tree != nil && n.Tree.ParentNodeID == "":
		return "tree(root)"
	case n.Tree != nil:
		return "tree(parent " + n.Tree.ParentNodeID + ")"
	default:
		return "unaddressed"
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
