package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"storynexus/internal/alignment"
	"storynexus/internal/consequence"
	"storynexus/internal/session"
	"storynexus/internal/store/memory"
	"storynexus/internal/story"
)

// drive feeds msg to m and resolves the returned command once, the way the
// program loop would for a single asynchronous load.
func drive(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(model)
	if cmd == nil {
		return m
	}
	if out := cmd(); out != nil {
		if _, quit := out.(tea.QuitMsg); quit {
			return m
		}
		next, _ = m.Update(out)
		m = next.(model)
	}
	return m
}

func testNow() time.Time {
	return time.UnixMilli(1700000000000)
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(t *testing.T) (model, string, string) {
	t.Helper()
	ctx := context.Background()
	db := memory.New()

	hall, err := db.InsertNode(ctx, story.NewTreeNode("", "", "The hall is quiet.", nil))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	gate, err := db.InsertNode(ctx, story.NewTreeNode("", "", "You stand at the gate.", []story.Choice{
		{ID: "1", Text: "Enter", NextNodeID: hall, Consequences: story.Consequences{story.AddItem{Target: "key"}}},
		{ID: "2", Text: "Wait"},
	}))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := db.PatchNode(ctx, hall, story.NodePatch{Tree: &story.TreeAddress{ParentNodeID: gate}}); err != nil {
		t.Fatalf("patch: %v", err)
	}
	playerID, err := db.InsertPlayer(ctx, story.NewPlayer("Ada", "", testNow()))
	if err != nil {
		t.Fatalf("insert player: %v", err)
	}

	aligner := alignment.NewAggregator(db)
	machine := session.NewMachine(db, consequence.NewEngine(db, aligner))
	sessionID, err := machine.Create(ctx, playerID, gate, "Gatehouse")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	m := NewModel(db, machine, sessionID)
	m = drive(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	next, _ := m.Update(m.Init()())
	return next.(model), gate, hall
}

func TestPlay(t *testing.T) {
	m, gate, hall := newTestModel(t)
	if m.state != statePlaying || m.node.ID != gate {
		t.Fatalf("expected to start at the gate, got state %v node %v", m.state, m.node)
	}
	if view := m.View(); !strings.Contains(view, "1. Enter") || !strings.Contains(view, "2. Wait (stay)") {
		t.Fatalf("choices not rendered:\n%s", view)
	}

	t.Run("staying shows a notice", func(t *testing.T) {
		stayed := drive(t, m, key("2"))
		if stayed.node.ID != gate || stayed.notice == "" {
			t.Fatalf("expected to stay with a notice, got node %s notice %q", stayed.node.ID, stayed.notice)
		}
	})

	t.Run("number key takes the choice", func(t *testing.T) {
		m = drive(t, m, key("1"))
		if m.node.ID != hall {
			t.Fatalf("node = %s, want hall", m.node.ID)
		}
		if len(m.player.Inventory) != 1 || m.player.Inventory[0] != "key" {
			t.Fatalf("inventory = %v", m.player.Inventory)
		}
		if !strings.Contains(m.View(), "- key") {
			t.Fatalf("inventory not rendered")
		}
	})

	t.Run("b goes back", func(t *testing.T) {
		m = drive(t, m, key("b"))
		if m.node.ID != gate {
			t.Fatalf("node = %s, want gate", m.node.ID)
		}
		if got := len(m.session.VisitedNodes); got != 3 {
			t.Fatalf("visited = %d, want 3", got)
		}
	})

	t.Run("going back from the root is a notice", func(t *testing.T) {
		m = drive(t, m, key("b"))
		if m.state != statePlaying || m.notice == "" {
			t.Fatalf("expected a notice, got state %v notice %q", m.state, m.notice)
		}
	})

	t.Run("cursor and enter", func(t *testing.T) {
		m = drive(t, m, tea.KeyMsg{Type: tea.KeyDown})
		if m.cursor != 1 {
			t.Fatalf("cursor = %d, want 1", m.cursor)
		}
		m = drive(t, m, tea.KeyMsg{Type: tea.KeyUp})
		m = drive(t, m, tea.KeyMsg{Type: tea.KeyEnter})
		if m.node.ID != hall {
			t.Fatalf("node = %s, want hall", m.node.ID)
		}
	})
}

func TestChoiceIndex(t *testing.T) {
	tests := []struct {
		key   string
		count int
		want  int
		ok    bool
	}{
		{key: "1", count: 2, want: 0, ok: true},
		{key: "2", count: 2, want: 1, ok: true},
		{key: "3", count: 2, want: 2, ok: false},
		{key: "0", count: 2, ok: false},
		{key: "x", count: 2, ok: false},
		{key: "10", count: 12, ok: false},
	}
	for _, tt := range tests {
		got, ok := choiceIndex(tt.key, tt.count)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("choiceIndex(%q, %d) = %d, %v", tt.key, tt.count, got, ok)
		}
	}
}
