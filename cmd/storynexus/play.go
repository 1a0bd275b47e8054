package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"storynexus/internal/story"
	"storynexus/internal/tui"
)

func playCmd() *cobra.Command {
	var sessionID, playerName, storyID string
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a session in the terminal",
		Long:  "Resume --session, or start a new one for --player at the root of --story.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(sessionID, playerName, storyID)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Session to resume")
	cmd.Flags().StringVar(&playerName, "player", "", "Name of a new player")
	cmd.Flags().StringVar(&storyID, "story", "", "Story to start at its root node")
	return cmd
}

func runPlay(sessionID, playerName, storyID string) error {
	ctx := context.Background()

	if sessionID == "" && (playerName == "" || storyID == "") {
		return fmt.Errorf("either --session or both --player and --story are required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openStore(ctx, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	machine := newMachine(db)
	if sessionID == "" {
		gs, err := db.GetStory(ctx, storyID)
		if err != nil {
			return err
		}
		if gs.RootNodeID == "" {
			return fmt.Errorf("story %s has no root node", storyID)
		}
		playerID, err := db.InsertPlayer(ctx, story.NewPlayer(playerName, "", time.Now()))
		if err != nil {
			return err
		}
		sessionID, err = machine.Create(ctx, playerID, gs.RootNodeID, gs.Outline.Title)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Started session %s.\n", sessionID)
	}

	return tui.Run(db, machine, sessionID)
}
