// Package memory is an in-process Store used by tests and the memory://
// DSN. Records are deep-copied on the way in and out.
package memory

import (
	"context"
	"fmt"
	"sync"

	"storynexus/internal/store"
	"storynexus/internal/story"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu        sync.Mutex
	nodes     map[string]*story.StoryNode
	nodeOrder []string
	players   map[string]*story.Player
	sessions  map[string]*story.Session
	stories   map[string]*story.GameStory
	storyIDs  []string
	worlds    map[string]*story.WorldDetails
}

func New() *Store {
	return &Store{
		nodes:    make(map[string]*story.StoryNode),
		players:  make(map[string]*story.Player),
		sessions: make(map[string]*story.Session),
		stories:  make(map[string]*story.GameStory),
		worlds:   make(map[string]*story.WorldDetails),
	}
}

func (s *Store) Close(ctx context.Context) error        { return nil }
func (s *Store) EnsureSchema(ctx context.Context) error { return nil }

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, story.ErrNotFound)
}

func (s *Store) GetNode(ctx context.Context, id string) (*story.StoryNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	node, ok := s.nodes[id]
	if !ok {
		return nil, notFound("story node", id)
	}
	return node.Clone(), nil
}

func (s *Store) InsertNode(ctx context.Context, node *story.StoryNode) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := node.Clone()
	stored.ID = store.AssignID(stored.ID)
	if _, exists := s.nodes[stored.ID]; exists {
		return "", fmt.Errorf("inserting story node: duplicate id %q", stored.ID)
	}
	s.nodes[stored.ID] = stored
	s.nodeOrder = append(s.nodeOrder, stored.ID)
	return stored.ID, nil
}

func (s *Store) PatchNode(ctx context.Context, id string, patch story.NodePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	node, ok := s.nodes[id]
	if !ok {
		return notFound("story node", id)
	}
	patch.Apply(node)
	return nil
}

func (s *Store) DeleteNode(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[id]; !ok {
		return notFound("story node", id)
	}
	delete(s.nodes, id)
	for i, existing := range s.nodeOrder {
		if existing == id {
			s.nodeOrder = append(s.nodeOrder[:i], s.nodeOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) ListNodes(ctx context.Context) ([]story.StoryNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nodes := make([]story.StoryNode, 0, len(s.nodeOrder))
	for _, id := range s.nodeOrder {
		nodes = append(nodes, *s.nodes[id].Clone())
	}
	return nodes, nil
}

func (s *Store) GetPlayer(ctx context.Context, id string) (*story.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	player, ok := s.players[id]
	if !ok {
		return nil, notFound("player", id)
	}
	return player.Clone(), nil
}

func (s *Store) InsertPlayer(ctx context.Context, player *story.Player) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := player.Clone()
	stored.ID = store.AssignID(stored.ID)
	s.players[stored.ID] = stored
	return stored.ID, nil
}

func (s *Store) PatchPlayer(ctx context.Context, id string, patch story.PlayerPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	player, ok := s.players[id]
	if !ok {
		return notFound("player", id)
	}
	patch.Apply(player)
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*story.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, notFound("game session", id)
	}
	return sess.Clone(), nil
}

func (s *Store) InsertSession(ctx context.Context, sess *story.Session) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := sess.Clone()
	stored.ID = store.AssignID(stored.ID)
	s.sessions[stored.ID] = stored
	return stored.ID, nil
}

func (s *Store) PatchSession(ctx context.Context, id string, patch story.SessionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return notFound("game session", id)
	}
	patch.Apply(sess)
	return nil
}

func (s *Store) GetStory(ctx context.Context, id string) (*story.GameStory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.stories[id]
	if !ok {
		return nil, notFound("game story", id)
	}
	return gs.Clone(), nil
}

func (s *Store) InsertStory(ctx context.Context, gs *story.GameStory) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := gs.Clone()
	stored.ID = store.AssignID(stored.ID)
	s.stories[stored.ID] = stored
	s.storyIDs = append(s.storyIDs, stored.ID)
	return stored.ID, nil
}

func (s *Store) PatchStory(ctx context.Context, id string, patch story.StoryPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.stories[id]
	if !ok {
		return notFound("game story", id)
	}
	patch.Apply(gs)
	return nil
}

func (s *Store) ListStories(ctx context.Context) ([]story.GameStory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]story.GameStory, 0, len(s.storyIDs))
	for _, id := range s.storyIDs {
		out = append(out, *s.stories[id].Clone())
	}
	return out, nil
}

func (s *Store) InsertWorldDetails(ctx context.Context, details *story.WorldDetails) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := details.Clone()
	stored.ID = store.AssignID(stored.ID)
	s.worlds[stored.StoryID] = stored
	return stored.ID, nil
}

func (s *Store) WorldDetailsForStory(ctx context.Context, storyID string) (*story.WorldDetails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	details, ok := s.worlds[storyID]
	if !ok {
		return nil, notFound("world details for story", storyID)
	}
	return details.Clone(), nil
}
