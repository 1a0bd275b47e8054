package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"storynexus/internal/story"
)

func sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Create sessions and move them through a story",
	}
	cmd.AddCommand(sessionCreateCmd())
	cmd.AddCommand(sessionGetCmd())
	cmd.AddCommand(sessionChooseCmd())
	cmd.AddCommand(sessionBackCmd())
	return cmd
}

func sessionCreateCmd() *cobra.Command {
	var playerID, startID, title string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Start a session for a player at a node",
		RunE: func(cmd *cobra.Command, args []string) error {
			if playerID == "" || startID == "" {
				return fmt.Errorf("--player and --start are required")
			}
			return withStore(func(ctx context.Context, db storeHandle) error {
				id, err := newMachine(db).Create(ctx, playerID, startID, title)
				if err != nil {
					return err
				}
				fmt.Fprintln(os.Stdout, id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&playerID, "player", "", "Player id")
	cmd.Flags().StringVar(&startID, "start", "", "Starting node id")
	cmd.Flags().StringVar(&title, "title", "", "Session title")
	return cmd
}

func sessionGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Display a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, db storeHandle) error {
				sess, err := db.GetSession(ctx, args[0])
				if err != nil {
					return err
				}
				printSession(sess)
				return nil
			})
		},
	}
}

func sessionChooseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "choose <session> <choice>",
		Short: "Take a choice on the session's current node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, db storeHandle) error {
				sess, err := newMachine(db).MakeChoice(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return printPosition(ctx, db, sess)
			})
		},
	}
}

func sessionBackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "back <session>",
		Short: "Return the session to the current node's parent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, db storeHandle) error {
				sess, err := newMachine(db).GoBack(ctx, args[0])
				if err != nil {
					return err
				}
				return printPosition(ctx, db, sess)
			})
		},
	}
}

func printPosition(ctx context.Context, db storeHandle, sess *story.Session) error {
	node, err := db.GetNode(ctx, sess.CurrentNodeID)
	if err != nil {
		return err
	}
	printNode(node)
	return nil
}

func printSession(s *story.Session) {
	fmt.Fprintf(os.Stdout, "ID: %s\n", s.ID)
	if s.Title != "" {
		fmt.Fprintf(os.Stdout, "Title: %s\n", s.Title)
	}
	fmt.Fprintf(os.Stdout, "Player: %s\n", s.PlayerID)
	fmt.Fprintf(os.Stdout, "Current node: %s\n", s.CurrentNodeID)
	fmt.Fprintf(os.Stdout, "Visited: %s\n", strings.Join(s.VisitedNodes, " -> "))
	if len(s.Flags) == 0 {
		return
	}
	keys := make([]string, 0, len(s.Flags))
	for k := range s.Flags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintln(os.Stdout, "Flags:")
	for _, k := range keys {
		fmt.Fprintf(os.Stdout, "  %s: %t\n", k, s.Flags[k])
	}
}
