package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"storynexus/internal/ingest"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [paths...]",
		Short: "Import hand-authored YAML stories into the store",
		RunE:  runImport,
	}
	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	paths := args
	if len(paths) == 0 {
		paths = cfg.Stories.Paths
	}
	if len(paths) == 0 {
		return fmt.Errorf("no story paths given and none configured")
	}

	db, err := openStore(ctx, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	result, err := ingest.Run(ctx, paths, db, ingest.Options{Exclude: cfg.Stories.Exclude})
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, "Import complete.")
	fmt.Fprintf(os.Stdout, "  Stories created: %d\n", result.StoriesCreated)
	fmt.Fprintf(os.Stdout, "  Nodes created:   %d\n", result.NodesCreated)
	fmt.Fprintf(os.Stdout, "  Links resolved:  %d\n", result.LinksResolved)
	fmt.Fprintf(os.Stdout, "  Files skipped:   %d\n", result.FilesSkipped)
	for _, id := range result.StoryIDs {
		fmt.Fprintf(os.Stdout, "  - %s\n", id)
	}

	if len(result.Errors) > 0 {
		fmt.Fprintf(os.Stdout, "\nErrors (%d):\n", len(result.Errors))
		for _, item := range result.Errors {
			fmt.Fprintf(os.Stdout, "  - %v\n", item)
		}
		return fmt.Errorf("import completed with errors")
	}

	return nil
}
