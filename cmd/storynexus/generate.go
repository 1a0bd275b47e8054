package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"storynexus/internal/generation"
	"storynexus/internal/story"
	"storynexus/internal/worldgen"
)

type generateOptions struct {
	genre          string
	theme          string
	additionalInfo string
	topology       string
	size           string
	gridSize       int
	maxDepth       int
	probability    float64
	seed           int64
}

func generateCmd() *cobra.Command {
	var opts generateOptions
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a story, its world details and its node graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.genre == "" {
				return fmt.Errorf("--genre is required")
			}
			return runGenerate(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.genre, "genre", "", "Story genre")
	cmd.Flags().StringVar(&opts.theme, "theme", "", "Story theme")
	cmd.Flags().StringVar(&opts.additionalInfo, "info", "", "Additional guidance for the outline")
	cmd.Flags().StringVar(&opts.topology, "topology", "", "grid or tree (default from config)")
	cmd.Flags().StringVar(&opts.size, "size", "", "Story size for tree worlds (default from config)")
	cmd.Flags().IntVar(&opts.gridSize, "grid-size", 0, "Grid side length (default from config)")
	cmd.Flags().IntVar(&opts.maxDepth, "max-depth", 0, "Maximum tree depth (default from config)")
	cmd.Flags().Float64Var(&opts.probability, "continuation", -1, "Chance each tree choice gets a child (default from config)")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "Seed for tree branching")
	return cmd
}

func runGenerate(cmd *cobra.Command, opts generateOptions) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openStore(ctx, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	gen, closeGen, err := openGenerator(ctx, cfg.Generation)
	if err != nil {
		return err
	}
	defer closeGen()

	w := cfg.World
	topologyName, sizeName := w.Topology, w.Size
	if opts.topology != "" {
		topologyName = opts.topology
	}
	if opts.size != "" {
		sizeName = opts.size
	}
	topology, err := story.ParseTopology(topologyName)
	if err != nil {
		return err
	}
	size, err := story.ParseStorySize(sizeName)
	if err != nil {
		return err
	}
	req := worldgen.Request{
		Info: generation.GameInfo{
			Genre:          opts.genre,
			Theme:          opts.theme,
			AdditionalInfo: opts.additionalInfo,
		},
		Topology:                topology,
		GridSize:                w.GridSize,
		Size:                    size,
		MaxDepth:                w.MaxDepth,
		ContinuationProbability: w.ContinuationProbability,
		Seed:                    opts.seed,
	}
	if opts.gridSize > 0 {
		req.GridSize = opts.gridSize
	}
	if opts.maxDepth > 0 {
		req.MaxDepth = opts.maxDepth
	}
	if opts.probability >= 0 {
		req.ContinuationProbability = opts.probability
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	stop := &worldgen.StopSignal{}
	interrupts := make(chan os.Signal, 2)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)
	go func() {
		select {
		case <-interrupts:
		case <-ctx.Done():
			return
		}
		logger.Printf("stopping after the node in progress; interrupt again to abort")
		stop.Stop()
		select {
		case <-interrupts:
			cancel()
		case <-ctx.Done():
		}
	}()

	orch := worldgen.NewOrchestrator(db, gen, logger)
	res, err := orch.Run(ctx, req, stop, func(p worldgen.Progress) {
		logger.Printf("generated %d/%d nodes", p.NodesCreated, p.TotalBudget)
	})
	if res != nil {
		fmt.Fprintf(os.Stdout, "Story:         %s\n", res.StoryID)
		fmt.Fprintf(os.Stdout, "World details: %s\n", res.WorldDetailsID)
		fmt.Fprintf(os.Stdout, "Root node:     %s\n", res.RootNodeID)
		fmt.Fprintf(os.Stdout, "Nodes created: %d\n", len(res.NodeIDs))
	}
	if errors.Is(err, story.ErrGenerationStopped) {
		fmt.Fprintln(os.Stdout, "Generation stopped; committed nodes were kept.")
		return nil
	}
	return err
}
