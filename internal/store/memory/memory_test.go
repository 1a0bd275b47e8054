package memory

import (
	"context"
	"testing"

	"storynexus/internal/store"
	"storynexus/internal/store/storetest"
	"storynexus/internal/story"
)

func TestContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New() })
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	db := New()
	id, err := db.InsertNode(ctx, story.NewTreeNode("", "", "x", []story.Choice{{ID: "1"}}))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	node, err := db.GetNode(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	node.Choices[0].NextNodeID = "elsewhere"

	again, err := db.GetNode(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if again.Choices[0].NextNodeID != "" {
		t.Fatalf("stored node mutated through returned copy")
	}
}
