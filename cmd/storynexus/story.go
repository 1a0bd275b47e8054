package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"storynexus/internal/story"
)

func storyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "story",
		Short: "Inspect stored stories",
	}
	cmd.AddCommand(storyListCmd())
	cmd.AddCommand(storyGetCmd())
	return cmd
}

func storyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, db storeHandle) error {
				stories, err := db.ListStories(ctx)
				if err != nil {
					return err
				}
				if len(stories) == 0 {
					fmt.Fprintln(os.Stdout, "No stories found.")
					return nil
				}
				for _, gs := range stories {
					fmt.Fprintf(os.Stdout, "%s  %-4s  %-8s  %s\n", gs.ID, gs.Topology, gs.Size, gs.Outline.Title)
				}
				return nil
			})
		},
	}
}

func storyGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Display a story outline and its world details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, db storeHandle) error {
				gs, err := db.GetStory(ctx, args[0])
				if err != nil {
					return err
				}
				world, err := db.WorldDetailsForStory(ctx, gs.ID)
				if err != nil && !errors.Is(err, story.ErrNotFound) {
					return err
				}
				printStory(gs, world)
				return nil
			})
		},
	}
}

func printStory(gs *story.GameStory, world *story.WorldDetails) {
	fmt.Fprintf(os.Stdout, "ID: %s\n", gs.ID)
	fmt.Fprintf(os.Stdout, "Title: %s\n", gs.Outline.Title)
	fmt.Fprintf(os.Stdout, "Topology: %s\n", gs.Topology)
	if gs.Topology == story.TopologyGrid {
		fmt.Fprintf(os.Stdout, "Grid: %dx%d\n", gs.GridSize, gs.GridSize)
	} else {
		fmt.Fprintf(os.Stdout, "Size: %s\n", gs.Size)
	}
	fmt.Fprintf(os.Stdout, "Root node: %s\n", gs.RootNodeID)
	fmt.Fprintf(os.Stdout, "\n%s\n", gs.Outline.MainPlot)

	if len(gs.Outline.KeyCharacters) > 0 {
		fmt.Fprintln(os.Stdout, "\nCharacters:")
		for _, c := range gs.Outline.KeyCharacters {
			fmt.Fprintf(os.Stdout, "  - %s: %s\n", c.Name, c.Description)
		}
	}
	if len(gs.Outline.MajorStoryBeats) > 0 {
		fmt.Fprintln(os.Stdout, "\nBeats:")
		for i, beat := range gs.Outline.MajorStoryBeats {
			fmt.Fprintf(os.Stdout, "  %d. %s\n", i+1, beat)
		}
	}
	if world == nil {
		return
	}
	if len(world.Locations) > 0 {
		fmt.Fprintln(os.Stdout, "\nLocations:")
		for _, loc := range world.Locations {
			fmt.Fprintf(os.Stdout, "  - %s: %s\n", loc.Name, loc.Description)
		}
	}
	if len(world.Environments) > 0 {
		fmt.Fprintln(os.Stdout, "\nEnvironments:")
		for _, env := range world.Environments {
			fmt.Fprintf(os.Stdout, "  - %s: %s\n", env.Type, env.Description)
		}
	}
}
