package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"storynexus/internal/store"
	"storynexus/internal/story"
)

func (c *Client) GetNode(ctx context.Context, id string) (*story.StoryNode, error) {
	return getDoc[story.StoryNode](ctx, c.pool, tableNodes, "story node", id)
}

func (c *Client) InsertNode(ctx context.Context, node *story.StoryNode) (string, error) {
	doc := node.Clone()
	doc.ID = store.AssignID(doc.ID)
	if err := c.insertDoc(ctx, tableNodes, "story node", doc.ID, doc.StoryID, doc); err != nil {
		return "", err
	}
	return doc.ID, nil
}

func (c *Client) PatchNode(ctx context.Context, id string, patch story.NodePatch) error {
	return patchDoc(ctx, c.pool, tableNodes, "story node", id, patch.Apply)
}

func (c *Client) DeleteNode(ctx context.Context, id string) error {
	return c.deleteDoc(ctx, tableNodes, "story node", id)
}

func (c *Client) ListNodes(ctx context.Context) ([]story.StoryNode, error) {
	return listDocs[story.StoryNode](ctx, c.pool, tableNodes, "story nodes")
}

func (c *Client) GetPlayer(ctx context.Context, id string) (*story.Player, error) {
	return getDoc[story.Player](ctx, c.pool, tablePlayers, "player", id)
}

func (c *Client) InsertPlayer(ctx context.Context, player *story.Player) (string, error) {
	doc := player.Clone()
	doc.ID = store.AssignID(doc.ID)
	if err := c.insertDoc(ctx, tablePlayers, "player", doc.ID, "", doc); err != nil {
		return "", err
	}
	return doc.ID, nil
}

func (c *Client) PatchPlayer(ctx context.Context, id string, patch story.PlayerPatch) error {
	return patchDoc(ctx, c.pool, tablePlayers, "player", id, patch.Apply)
}

func (c *Client) GetSession(ctx context.Context, id string) (*story.Session, error) {
	return getDoc[story.Session](ctx, c.pool, tableSessions, "game session", id)
}

func (c *Client) InsertSession(ctx context.Context, sess *story.Session) (string, error) {
	doc := sess.Clone()
	doc.ID = store.AssignID(doc.ID)
	if err := c.insertDoc(ctx, tableSessions, "game session", doc.ID, "", doc); err != nil {
		return "", err
	}
	return doc.ID, nil
}

func (c *Client) PatchSession(ctx context.Context, id string, patch story.SessionPatch) error {
	return patchDoc(ctx, c.pool, tableSessions, "game session", id, patch.Apply)
}

func (c *Client) GetStory(ctx context.Context, id string) (*story.GameStory, error) {
	return getDoc[story.GameStory](ctx, c.pool, tableStories, "game story", id)
}

func (c *Client) InsertStory(ctx context.Context, gs *story.GameStory) (string, error) {
	doc := gs.Clone()
	doc.ID = store.AssignID(doc.ID)
	if err := c.insertDoc(ctx, tableStories, "game story", doc.ID, "", doc); err != nil {
		return "", err
	}
	return doc.ID, nil
}

func (c *Client) PatchStory(ctx context.Context, id string, patch story.StoryPatch) error {
	return patchDoc(ctx, c.pool, tableStories, "game story", id, patch.Apply)
}

func (c *Client) ListStories(ctx context.Context) ([]story.GameStory, error) {
	return listDocs[story.GameStory](ctx, c.pool, tableStories, "game stories")
}

func (c *Client) InsertWorldDetails(ctx context.Context, details *story.WorldDetails) (string, error) {
	doc := details.Clone()
	doc.ID = store.AssignID(doc.ID)
	if err := c.insertDoc(ctx, tableWorlds, "world details", doc.ID, doc.StoryID, doc); err != nil {
		return "", err
	}
	return doc.ID, nil
}

func (c *Client) WorldDetailsForStory(ctx context.Context, storyID string) (*story.WorldDetails, error) {
	var raw []byte
	err := c.pool.QueryRow(ctx,
		"SELECT data FROM world_details WHERE story_id = $1 ORDER BY seq DESC LIMIT 1", storyID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("world details for story", storyID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading world details: %w", err)
	}
	return decodeDoc[story.WorldDetails]("world details", raw)
}
