//go:build integration

package postgres

import (
	"context"
	"os"
	"testing"

	"storynexus/internal/store"
	"storynexus/internal/store/storetest"
)

func TestContract(t *testing.T) {
	dsn := os.Getenv("STORYNEXUS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("STORYNEXUS_TEST_POSTGRES_DSN not set")
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		client, err := New(ctx, dsn)
		if err != nil {
			t.Fatalf("connecting to postgres: %v", err)
		}
		t.Cleanup(func() { client.Close(ctx) })

		if err := client.EnsureSchema(ctx); err != nil {
			t.Fatalf("ensuring schema: %v", err)
		}
		for _, table := range []string{tableNodes, tablePlayers, tableSessions, tableStories, tableWorlds} {
			if _, err := client.pool.Exec(ctx, "TRUNCATE "+table); err != nil {
				t.Fatalf("truncating %s: %v", table, err)
			}
		}
		return client
	})
}
