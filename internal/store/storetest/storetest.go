// Package storetest holds the behavioural contract every store.Store
// backend must satisfy.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"storynexus/internal/store"
	"storynexus/internal/story"
)

// Run exercises newStore against the store contract. newStore must return
// an empty, schema-ready store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("nodes", func(t *testing.T) { testNodes(t, newStore(t)) })
	t.Run("players", func(t *testing.T) { testPlayers(t, newStore(t)) })
	t.Run("sessions", func(t *testing.T) { testSessions(t, newStore(t)) })
	t.Run("stories", func(t *testing.T) { testStories(t, newStore(t)) })
}

func testNodes(t *testing.T, db store.Store) {
	ctx := context.Background()

	if _, err := db.GetNode(ctx, "missing"); !errors.Is(err, story.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	first := story.NewTreeNode("story-1", "", "The gate", []story.Choice{
		{ID: "1", Text: "Knock", Consequences: story.Consequences{story.SetFlag{Target: "knocked", Value: true}}},
		{ID: "2", Text: "Leave", Consequences: story.Consequences{story.AlterStat{Target: "courage", Value: -1}}},
	})
	firstID, err := db.InsertNode(ctx, first)
	if err != nil {
		t.Fatalf("insert node: %v", err)
	}
	if firstID == "" {
		t.Fatalf("expected assigned id")
	}

	second := story.NewGridNode("story-2", 1, 2, "marsh", "A bog", nil)
	secondID, err := db.InsertNode(ctx, second)
	if err != nil {
		t.Fatalf("insert node: %v", err)
	}

	got, err := db.GetNode(ctx, firstID)
	if err != nil {
		t.Fatalf("get node: %v", err)
	}
	if got.ID != firstID || got.Content != "The gate" || got.Tree == nil || got.Grid != nil {
		t.Fatalf("unexpected node: %#v", got)
	}
	if len(got.Choices) != 2 || len(got.Choices[0].Consequences) != 1 {
		t.Fatalf("unexpected choices: %#v", got.Choices)
	}
	if flag, ok := got.Choices[0].Consequences[0].(story.SetFlag); !ok || !flag.Value {
		t.Fatalf("setFlag not preserved: %#v", got.Choices[0].Consequences[0])
	}

	choices := got.Choices
	choices[0].NextNodeID = secondID
	visits := 4
	if err := db.PatchNode(ctx, firstID, story.NodePatch{Choices: &choices, VisitCount: &visits}); err != nil {
		t.Fatalf("patch node: %v", err)
	}
	patched, err := db.GetNode(ctx, firstID)
	if err != nil {
		t.Fatalf("get patched node: %v", err)
	}
	if patched.Choices[0].NextNodeID != secondID || patched.VisitCount != 4 || patched.Content != "The gate" {
		t.Fatalf("unexpected patched node: %#v", patched)
	}

	if err := db.PatchNode(ctx, "missing", story.NodePatch{VisitCount: &visits}); !errors.Is(err, story.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on patch, got %v", err)
	}

	all, err := db.ListNodes(ctx)
	if err != nil {
		t.Fatalf("list nodes: %v", err)
	}
	again, err := db.ListNodes(ctx)
	if err != nil {
		t.Fatalf("list nodes: %v", err)
	}
	if len(all) != 2 || all[0].ID != firstID || all[1].ID != secondID {
		t.Fatalf("unexpected node listing: %#v", all)
	}
	if len(again) != len(all) || again[0].ID != all[0].ID || again[1].ID != all[1].ID {
		t.Fatalf("listing not idempotent")
	}

	if err := db.DeleteNode(ctx, secondID); err != nil {
		t.Fatalf("delete node: %v", err)
	}
	if _, err := db.GetNode(ctx, secondID); !errors.Is(err, story.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := db.DeleteNode(ctx, secondID); !errors.Is(err, story.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func testPlayers(t *testing.T, db store.Store) {
	ctx := context.Background()

	id, err := db.InsertPlayer(ctx, story.NewPlayer("Ada", "tester", time.UnixMilli(1000)))
	if err != nil {
		t.Fatalf("insert player: %v", err)
	}

	inventory := []string{"torch", "torch"}
	stats := map[string]float64{"health": 7}
	if err := db.PatchPlayer(ctx, id, story.PlayerPatch{Inventory: &inventory, Stats: &stats}); err != nil {
		t.Fatalf("patch player: %v", err)
	}

	got, err := db.GetPlayer(ctx, id)
	if err != nil {
		t.Fatalf("get player: %v", err)
	}
	if got.Name != "Ada" || len(got.Inventory) != 2 || got.Stats["health"] != 7 {
		t.Fatalf("unexpected player: %#v", got)
	}
	if got.PoliticalAlignment.Values["laborRights"] != story.AxisStart {
		t.Fatalf("alignment not preserved: %#v", got.PoliticalAlignment)
	}
	if len(got.AlignmentHistory) != 1 || got.AlignmentHistory[0].Timestamp != 1000 {
		t.Fatalf("history not preserved: %#v", got.AlignmentHistory)
	}

	if _, err := db.GetPlayer(ctx, "missing"); !errors.Is(err, story.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := db.PatchPlayer(ctx, "missing", story.PlayerPatch{}); !errors.Is(err, story.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on patch, got %v", err)
	}
}

func testSessions(t *testing.T, db store.Store) {
	ctx := context.Background()

	id, err := db.InsertSession(ctx, story.NewSession("player-1", "node-a", "Run"))
	if err != nil {
		t.Fatalf("insert session: %v", err)
	}

	current := "node-b"
	visited := []string{"node-a", "node-b"}
	flags := map[string]bool{"lit": true}
	if err := db.PatchSession(ctx, id, story.SessionPatch{CurrentNodeID: &current, VisitedNodes: &visited, Flags: &flags}); err != nil {
		t.Fatalf("patch session: %v", err)
	}

	got, err := db.GetSession(ctx, id)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.CurrentNodeID != "node-b" || len(got.VisitedNodes) != 2 || !got.Flags["lit"] {
		t.Fatalf("unexpected session: %#v", got)
	}
	if got.Version != story.SessionVersion || got.Title != "Run" || got.PlayerID != "player-1" {
		t.Fatalf("unexpected session metadata: %#v", got)
	}

	if _, err := db.GetSession(ctx, "missing"); !errors.Is(err, story.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testStories(t *testing.T, db store.Store) {
	ctx := context.Background()

	gs := &story.GameStory{
		Outline: story.Outline{
			Title:           "Red Sands",
			MainPlot:        "Settle Mars",
			KeyCharacters:   []story.Character{{Name: "Rachel", Description: "scientist"}},
			MajorStoryBeats: []string{"Launch", "Landing"},
		},
		Size:     story.SizeShort,
		Topology: story.TopologyTree,
	}
	id, err := db.InsertStory(ctx, gs)
	if err != nil {
		t.Fatalf("insert story: %v", err)
	}

	root := "root-node"
	if err := db.PatchStory(ctx, id, story.StoryPatch{RootNodeID: &root}); err != nil {
		t.Fatalf("patch story: %v", err)
	}
	got, err := db.GetStory(ctx, id)
	if err != nil {
		t.Fatalf("get story: %v", err)
	}
	if got.RootNodeID != root || got.Outline.Title != "Red Sands" || got.Topology != story.TopologyTree {
		t.Fatalf("unexpected story: %#v", got)
	}

	stories, err := db.ListStories(ctx)
	if err != nil {
		t.Fatalf("list stories: %v", err)
	}
	if len(stories) != 1 || stories[0].ID != id {
		t.Fatalf("unexpected stories: %#v", stories)
	}

	if _, err := db.WorldDetailsForStory(ctx, id); !errors.Is(err, story.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before insert, got %v", err)
	}
	details := &story.WorldDetails{
		StoryID:      id,
		Locations:    []story.Location{{Name: "Olympus", Description: "volcano", PointsOfInterest: []string{"caldera"}}},
		Environments: []story.Environment{{Type: "desert", Description: "red dust"}},
	}
	if _, err := db.InsertWorldDetails(ctx, details); err != nil {
		t.Fatalf("insert world details: %v", err)
	}
	world, err := db.WorldDetailsForStory(ctx, id)
	if err != nil {
		t.Fatalf("world details: %v", err)
	}
	if len(world.Locations) != 1 || world.Locations[0].PointsOfInterest[0] != "caldera" {
		t.Fatalf("unexpected world details: %#v", world)
	}
}
