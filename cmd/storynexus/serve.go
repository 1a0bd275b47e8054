package main

import (
	"context"
	"log"
	"os"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"storynexus/internal/mcp"
	"storynexus/internal/worldgen"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		RunE:  runServe,
	}
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openStore(ctx, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	// stdout carries the protocol, so diagnostics go to stderr.
	logger := log.New(os.Stderr, "storynexus: ", log.LstdFlags)

	var world *worldgen.Orchestrator
	gen, closeGen, err := openGenerator(ctx, cfg.Generation)
	if err != nil {
		logger.Printf("generation disabled: %v", err)
	} else {
		world = worldgen.NewOrchestrator(db, gen, logger)
	}
	defer closeGen()

	server := mcp.NewServer(db, world, cfg.World, version)
	return server.Run(ctx, &sdk.StdioTransport{})
}
