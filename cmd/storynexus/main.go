package main

import (
	"os"

	"github.com/spf13/cobra"

	"storynexus/internal/config"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:          "storynexus",
		Short:        "Branching narrative story graphs with generated worlds",
		SilenceUsage: true,
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Project config file")
	root.AddCommand(initCmd())
	root.AddCommand(generateCmd())
	root.AddCommand(importCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(playCmd())
	root.AddCommand(storyCmd())
	root.AddCommand(nodeCmd())
	root.AddCommand(playerCmd())
	root.AddCommand(sessionCmd())
	root.AddCommand(versionCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
