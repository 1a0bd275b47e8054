// Package consequence applies the effects attached to a choice to the
// player and session that took it.
package consequence

import (
	"context"
	"fmt"

	"storynexus/internal/alignment"
	"storynexus/internal/store"
	"storynexus/internal/story"
)

type Store interface {
	store.PlayerStore
	store.SessionStore
}

type Engine struct {
	store     Store
	alignment *alignment.Aggregator
}

func NewEngine(s Store, agg *alignment.Aggregator) *Engine {
	return &Engine{store: s, alignment: agg}
}

// Apply runs effects strictly in order. Session flag changes are applied to
// sess as well as persisted, so later effects and callers observe them.
// Each effect is persisted on its own; a failure leaves earlier effects in
// place.
func (e *Engine) Apply(ctx context.Context, sess *story.Session, effects story.Consequences) error {
	var player *story.Player
	loadPlayer := func() error {
		if player != nil {
			return nil
		}
		p, err := e.store.GetPlayer(ctx, sess.PlayerID)
		if err != nil {
			return fmt.Errorf("loading player: %w", err)
		}
		player = p
		return nil
	}

	for _, effect := range effects {
		switch c := effect.(type) {
		case story.AddItem:
			if err := loadPlayer(); err != nil {
				return err
			}
			player.Inventory = append(player.Inventory, c.Target)
			if err := e.store.PatchPlayer(ctx, player.ID, story.PlayerPatch{Inventory: &player.Inventory}); err != nil {
				return fmt.Errorf("adding item %q: %w", c.Target, err)
			}

		case story.RemoveItem:
			if err := loadPlayer(); err != nil {
				return err
			}
			kept := make([]string, 0, len(player.Inventory))
			for _, item := range player.Inventory {
				if item != c.Target {
					kept = append(kept, item)
				}
			}
			player.Inventory = kept
			if err := e.store.PatchPlayer(ctx, player.ID, story.PlayerPatch{Inventory: &player.Inventory}); err != nil {
				return fmt.Errorf("removing item %q: %w", c.Target, err)
			}

		case story.SetFlag:
			if sess.Flags == nil {
				sess.Flags = map[string]bool{}
			}
			sess.Flags[c.Target] = c.Value
			if err := e.store.PatchSession(ctx, sess.ID, story.SessionPatch{Flags: &sess.Flags}); err != nil {
				return fmt.Errorf("setting flag %q: %w", c.Target, err)
			}

		case story.AlterStat:
			if err := loadPlayer(); err != nil {
				return err
			}
			if player.Stats == nil {
				player.Stats = map[string]float64{}
			}
			player.Stats[c.Target] += c.Value
			if err := e.store.PatchPlayer(ctx, player.ID, story.PlayerPatch{Stats: &player.Stats}); err != nil {
				return fmt.Errorf("altering stat %q: %w", c.Target, err)
			}

		case story.ChangePoliticalValue:
			if _, err := e.alignment.Update(ctx, sess.PlayerID, map[string]float64{c.Target: c.Value}); err != nil {
				return fmt.Errorf("changing political value %q: %w", c.Target, err)
			}
		}
	}
	return nil
}
