// Package session moves a player through a story graph one choice at a
// time.
package session

import (
	"context"
	"fmt"

	"storynexus/internal/consequence"
	"storynexus/internal/store"
	"storynexus/internal/story"
)

type Store interface {
	store.NodeStore
	store.PlayerStore
	store.SessionStore
}

// Machine has one state, Active(currentNodeID). Calls on the same session
// are not serialized; the last write wins.
type Machine struct {
	store   Store
	effects *consequence.Engine
}

func NewMachine(s Store, effects *consequence.Engine) *Machine {
	return &Machine{store: s, effects: effects}
}

// Create starts a session for playerID at startingNodeID.
func (m *Machine) Create(ctx context.Context, playerID, startingNodeID, title string) (string, error) {
	if _, err := m.store.GetPlayer(ctx, playerID); err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	if _, err := m.store.GetNode(ctx, startingNodeID); err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	id, err := m.store.InsertSession(ctx, story.NewSession(playerID, startingNodeID, title))
	if err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	return id, nil
}

// MakeChoice applies the chosen option's consequences and, when the choice
// leads somewhere, moves the session there. A choice without a target
// applies its effects and leaves the session in place.
func (m *Machine) MakeChoice(ctx context.Context, sessionID, choiceID string) (*story.Session, error) {
	sess, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("making choice: %w", err)
	}
	current, err := m.store.GetNode(ctx, sess.CurrentNodeID)
	if err != nil {
		return nil, fmt.Errorf("making choice: loading current node: %w", err)
	}

	choice, ok := current.ChoiceByID(choiceID)
	if !ok {
		return nil, fmt.Errorf("%w: %q on node %q", story.ErrInvalidChoice, choiceID, current.ID)
	}

	var next *story.StoryNode
	if choice.NextNodeID != "" {
		next, err = m.store.GetNode(ctx, choice.NextNodeID)
		if err != nil {
			return nil, fmt.Errorf("making choice: loading next node: %w", err)
		}
	}

	if err := m.effects.Apply(ctx, sess, choice.Consequences); err != nil {
		return nil, fmt.Errorf("making choice: %w", err)
	}

	if next == nil {
		return sess, nil
	}
	if err := m.enter(ctx, sess, next); err != nil {
		return nil, fmt.Errorf("making choice: %w", err)
	}
	return sess, nil
}

// GoBack returns to the current node's tree parent. Re-entering the parent
// records another visit.
func (m *Machine) GoBack(ctx context.Context, sessionID string) (*story.Session, error) {
	sess, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("going back: %w", err)
	}
	current, err := m.store.GetNode(ctx, sess.CurrentNodeID)
	if err != nil {
		return nil, fmt.Errorf("going back: loading current node: %w", err)
	}

	parentID := current.ParentID()
	if parentID == "" {
		return nil, fmt.Errorf("%w: node %q", story.ErrCannotGoBack, current.ID)
	}
	parent, err := m.store.GetNode(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("going back: loading parent node: %w", err)
	}

	if err := m.enter(ctx, sess, parent); err != nil {
		return nil, fmt.Errorf("going back: %w", err)
	}
	return sess, nil
}

func (m *Machine) enter(ctx context.Context, sess *story.Session, node *story.StoryNode) error {
	sess.CurrentNodeID = node.ID
	sess.VisitedNodes = append(sess.VisitedNodes, node.ID)
	if err := m.store.PatchSession(ctx, sess.ID, story.SessionPatch{
		CurrentNodeID: &sess.CurrentNodeID,
		VisitedNodes:  &sess.VisitedNodes,
	}); err != nil {
		return fmt.Errorf("moving session: %w", err)
	}

	visits := node.VisitCount + 1
	if err := m.store.PatchNode(ctx, node.ID, story.NodePatch{VisitCount: &visits}); err != nil {
		return fmt.Errorf("recording visit: %w", err)
	}
	return nil
}
