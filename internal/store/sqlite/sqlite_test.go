package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"storynexus/internal/store"
	"storynexus/internal/store/storetest"
)

func TestContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		dsn := "sqlite://" + filepath.Join(t.TempDir(), "story.db")
		client, err := New(ctx, dsn)
		if err != nil {
			t.Fatalf("opening sqlite: %v", err)
		}
		t.Cleanup(func() { client.Close(ctx) })
		if err := client.EnsureSchema(ctx); err != nil {
			t.Fatalf("ensuring schema: %v", err)
		}
		return client
	})
}

func TestEnsureSchemaIsRepeatable(t *testing.T) {
	ctx := context.Background()
	client, err := New(ctx, "sqlite://:memory:")
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	defer client.Close(ctx)

	for i := 0; i < 2; i++ {
		if err := client.EnsureSchema(ctx); err != nil {
			t.Fatalf("ensure schema pass %d: %v", i+1, err)
		}
	}
}

func TestParseDSN(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "relative path", input: "sqlite://story.db", want: "./story.db"},
		{name: "dot relative path", input: "sqlite://./data/story.db", want: "./data/story.db"},
		{name: "absolute path", input: "sqlite:///var/lib/story.db", want: "/var/lib/story.db"},
		{name: "query preserved", input: "sqlite://story.db?cache=shared", want: "./story.db?cache=shared"},
		{name: "escaped path", input: "sqlite://my%20story.db", want: "./my story.db"},
		{name: "memory", input: "sqlite://:memory:", want: ":memory:"},
		{name: "wrong scheme", input: "postgres://localhost/db", wantErr: true},
		{name: "empty path", input: "sqlite://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDSN(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("parseDSN(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
