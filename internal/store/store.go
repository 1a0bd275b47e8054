package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"storynexus/internal/story"
)

// Store is keyed CRUD over the five story collections. Each call is atomic;
// nothing is transactional across calls. Missing records are reported with
// story.ErrNotFound.
type Store interface {
	Close(ctx context.Context) error
	EnsureSchema(ctx context.Context) error

	NodeStore
	PlayerStore
	SessionStore
	StoryStore
}

type NodeStore interface {
	GetNode(ctx context.Context, id string) (*story.StoryNode, error)
	InsertNode(ctx context.Context, node *story.StoryNode) (string, error)
	PatchNode(ctx context.Context, id string, patch story.NodePatch) error
	DeleteNode(ctx context.Context, id string) error
	ListNodes(ctx context.Context) ([]story.StoryNode, error)
}

type PlayerStore interface {
	GetPlayer(ctx context.Context, id string) (*story.Player, error)
	InsertPlayer(ctx context.Context, player *story.Player) (string, error)
	PatchPlayer(ctx context.Context, id string, patch story.PlayerPatch) error
}

type SessionStore interface {
	GetSession(ctx context.Context, id string) (*story.Session, error)
	InsertSession(ctx context.Context, session *story.Session) (string, error)
	PatchSession(ctx context.Context, id string, patch story.SessionPatch) error
}

type StoryStore interface {
	GetStory(ctx context.Context, id string) (*story.GameStory, error)
	InsertStory(ctx context.Context, gs *story.GameStory) (string, error)
	PatchStory(ctx context.Context, id string, patch story.StoryPatch) error
	ListStories(ctx context.Context) ([]story.GameStory, error)

	InsertWorldDetails(ctx context.Context, details *story.WorldDetails) (string, error)
	WorldDetailsForStory(ctx context.Context, storyID string) (*story.WorldDetails, error)
}

// UnlinkNode clears every choice that leads to id and reports how many
// nodes changed. Tree children keep their parent pointer.
func UnlinkNode(ctx context.Context, db NodeStore, id string) (int, error) {
	nodes, err := db.ListNodes(ctx)
	if err != nil {
		return 0, err
	}
	changed := 0
	for i := range nodes {
		choices := append([]story.Choice(nil), nodes[i].Choices...)
		hit := false
		for j := range choices {
			if choices[j].NextNodeID == id {
				choices[j].NextNodeID = ""
				hit = true
			}
		}
		if !hit {
			continue
		}
		if err := db.PatchNode(ctx, nodes[i].ID, story.NodePatch{Choices: &choices}); err != nil {
			return changed, fmt.Errorf("unlinking node %s: %w", nodes[i].ID, err)
		}
		changed++
	}
	return changed, nil
}

// NewID returns a fresh record identifier.
func NewID() string {
	return uuid.NewString()
}

// AssignID returns id, or a fresh identifier when id is empty.
func AssignID(id string) string {
	if id == "" {
		return NewID()
	}
	return id
}
