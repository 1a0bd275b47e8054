package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"storynexus/internal/config"
)

func initCmd() *cobra.Command {
	var projectName string
	var dsn string
	var provider string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a new storynexus project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(projectName) == "" {
				return fmt.Errorf("--name is required")
			}
			return runInit(projectName, dsn, provider)
		},
	}
	cmd.Flags().StringVar(&projectName, "name", "", "Project name")
	cmd.Flags().StringVar(&dsn, "dsn", config.DefaultDSN, "Database DSN (memory://, sqlite://, postgres://)")
	cmd.Flags().StringVar(&provider, "provider", config.ProviderChat, "Generation provider (chat or gemini)")
	return cmd
}

func runInit(projectName, dsn, provider string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("%s already exists", configPath)
	}

	cfg := &config.ProjectConfig{
		Project:    projectName,
		Version:    1,
		Database:   config.DatabaseConfig{DSN: dsn},
		Generation: config.GenerationConfig{Provider: provider},
		Stories:    config.StoriesConfig{Paths: []string{"./stories/"}},
	}
	cfg = config.WithDefaults(cfg)
	if err := config.Validate(cfg); err != nil {
		return err
	}
	contents, err := config.Render(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll("stories", 0o755); err != nil {
		return fmt.Errorf("creating stories directory: %w", err)
	}
	if err := os.WriteFile(configPath, contents, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", configPath, err)
	}
	fmt.Fprintf(os.Stdout, "Wrote %s.\n", configPath)
	return nil
}
