package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storynexus/internal/store"
	"storynexus/internal/story"
)

func (c *Client) GetNode(ctx context.Context, id string) (*story.StoryNode, error) {
	return loadDoc[story.StoryNode](ctx, c.db, tableNodes, "story node", id)
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
	return patchDoc(ctx, c.db, tableNodes, "story node", id, patch.Apply)
}

func (c *Client) DeleteNode(ctx context.Context, id string) error {
	return c.deleteDoc(ctx, tableNodes, "story node", id)
}

func (c *Client) ListNodes(ctx context.Context) ([]story.StoryNode, error) {
	return listDocs[story.StoryNode](ctx, c.db, tableNodes, "story nodes")
}

func (c *Client) GetPlayer(ctx context.Context, id string) (*story.Player, error) {
	return loadDoc[story.Player](ctx, c.db, tablePlayers, "player", id)
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
	return patchDoc(ctx, c.db, tablePlayers, "player", id, patch.Apply)
}

func (c *Client) GetSession(ctx context.Context, id string) (*story.Session, error) {
	return loadDoc[story.Session](ctx, c.db, tableSessions, "game session", id)
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
	return patchDoc(ctx, c.db, tableSessions, "game session", id, patch.Apply)
}

func (c *Client) GetStory(ctx context.Context, id string) (*story.GameStory, error) {
	return loadDoc[story.GameStory](ctx, c.db, tableStories, "game story", id)
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
	return patchDoc(ctx, c.db, tableStories, "game story", id, patch.Apply)
}

func (c *Client) ListStories(ctx context.Context) ([]story.GameStory, error) {
	return listDocs[story.GameStory](ctx, c.db, tableStories, "game stories")
}

func (c *Client) InsertWorldDetails(ctx context.Context, details *story.WorldDetails) (string, error) {
	doc := details.Clone()
	doc.ID = store.AssignID(doc.ID)
	if err := c.insertDoc(ctx, tableWorlds, "world details", doc.ID, doc.StoryID, doc); err != nil {
		return "", err
	}
	return doc.ID, nil
}

// WorldDetailsForStory returns the most recently inserted details for storyID.
func (c *Client) WorldDetailsForStory(ctx context.Context, storyID string) (*story.WorldDetails, error) {
	var raw string
	err := c.db.QueryRowContext(ctx,
		"SELECT data FROM world_details WHERE story_id = ? ORDER BY seq DESC LIMIT 1", storyID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("world details for story", storyID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading world details: %w", err)
	}
	return decodeDoc[story.WorldDetails]("world details", raw)
}
