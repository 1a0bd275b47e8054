package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"storynexus/internal/alignment"
	"storynexus/internal/story"
)

func playerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player",
		Short: "Create and inspect players",
	}
	cmd.AddCommand(playerCreateCmd())
	cmd.AddCommand(playerGetCmd())
	cmd.AddCommand(playerAlignCmd())
	return cmd
}

func playerCreateCmd() *cobra.Command {
	var name, description string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a player with neutral political alignment",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("--name is required")
			}
			return withStore(func(ctx context.Context, db storeHandle) error {
				id, err := db.InsertPlayer(ctx, story.NewPlayer(name, description, time.Now()))
				if err != nil {
					return err
				}
				fmt.Fprintln(os.Stdout, id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Player name")
	cmd.Flags().StringVar(&description, "description", "", "Player description")
	return cmd
}

func playerGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Display a player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, db storeHandle) error {
				player, err := db.GetPlayer(ctx, args[0])
				if err != nil {
					return err
				}
				printPlayer(player)
				return nil
			})
		},
	}
}

func playerAlignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "align <id> <axis=delta>...",
		Short: "Apply political axis deltas to a player",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			changes, err := parseChanges(args[1:])
			if err != nil {
				return err
			}
			return withStore(func(ctx context.Context, db storeHandle) error {
				player, err := alignment.NewAggregator(db).Update(ctx, args[0], changes)
				if err != nil {
					return err
				}
				printPlayer(player)
				return nil
			})
		},
	}
}

func parseChanges(args []string) (map[string]float64, error) {
	changes := make(map[string]float64, len(args))
	for _, arg := range args {
		axis, raw, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("expected axis=delta, got %q", arg)
		}
		if !story.IsAxis(axis) {
			return nil, fmt.Errorf("unknown political axis %q", axis)
		}
		delta, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing delta for %s: %w", axis, err)
		}
		changes[axis] = delta
	}
	return changes, nil
}

func printPlayer(p *story.Player) {
	fmt.Fprintf(os.Stdout, "ID: %s\n", p.ID)
	fmt.Fprintf(os.Stdout, "Name: %s\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(os.Stdout, "Description: %s\n", p.Description)
	}
	if len(p.Inventory) > 0 {
		fmt.Fprintf(os.Stdout, "Inventory: %s\n", strings.Join(p.Inventory, ", "))
	}
	if len(p.Stats) > 0 {
		keys := make([]string, 0, len(p.Stats))
		for k := range p.Stats {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintln(os.Stdout, "Stats:")
		for _, k := range keys {
			fmt.Fprintf(os.Stdout, "  %s: %g\n", k, p.Stats[k])
		}
	}

	overall := p.PoliticalAlignment.OverallAlignment
	fmt.Fprintf(os.Stdout, "Overall alignment: %.2f %s\n", overall, alignment.Color(overall))
	fmt.Fprintln(os.Stdout, "Axes:")
	for _, axis := range story.Axes {
		fmt.Fprintf(os.Stdout, "  %-28s %6.2f\n", axis, p.PoliticalAlignment.Values[axis])
	}
	fmt.Fprintf(os.Stdout, "History entries: %d\n", len(p.AlignmentHistory))
}
