package postgres

import (
	"context"
	"fmt"
)

const (
	tableNodes    = "story_nodes"
	tablePlayers  = "players"
	tableSessions = "game_sessions"
	tableStories  = "game_stories"
	tableWorlds   = "world_details"
)

// EnsureSchema runs all DDL in one call, which PostgreSQL executes as an
// implicit transaction.
func (c *Client) EnsureSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS story_nodes (
    seq      BIGINT GENERATED ALWAYS AS IDENTITY,
    id       TEXT PRIMARY KEY,
    story_id TEXT NOT NULL DEFAULT '',
    data     JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS players (
    seq  BIGINT GENERATED ALWAYS AS IDENTITY,
    id   TEXT PRIMARY KEY,
    data JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS game_sessions (
    seq  BIGINT GENERATED ALWAYS AS IDENTITY,
    id   TEXT PRIMARY KEY,
    data JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS game_stories (
    seq  BIGINT GENERATED ALWAYS AS IDENTITY,
    id   TEXT PRIMARY KEY,
    data JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS world_details (
    seq      BIGINT GENERATED ALWAYS AS IDENTITY,
    id       TEXT PRIMARY KEY,
    story_id TEXT NOT NULL,
    data     JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_story_nodes_seq ON story_nodes (seq);
CREATE INDEX IF NOT EXISTS idx_story_nodes_story ON story_nodes (story_id);
CREATE INDEX IF NOT EXISTS idx_game_stories_seq ON game_stories (seq);
CREATE INDEX IF NOT EXISTS idx_world_details_story ON world_details (story_id, seq);
`
	if _, err := c.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}
