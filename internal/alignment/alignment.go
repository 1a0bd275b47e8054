// Package alignment maintains a player's position on the fixed political
// axes and the running overall score derived from it.
package alignment

import (
	"context"
	"fmt"
	"math"
	"time"

	"storynexus/internal/store"
	"storynexus/internal/story"
)

// Apply adds each delta to its axis, clamped to the axis range, and moves
// the overall score by the mean of the applied deltas. Keys that are not
// axes are ignored and do not count toward the mean. The input is not
// modified.
func Apply(current story.PoliticalAlignment, changes map[string]float64) (story.PoliticalAlignment, float64) {
	values := make(map[string]float64, len(story.Axes))
	for _, axis := range story.Axes {
		v, ok := current.Values[axis]
		if !ok {
			v = story.AxisStart
		}
		values[axis] = v
	}

	var sum float64
	var applied int
	for key, delta := range changes {
		if !story.IsAxis(key) {
			continue
		}
		values[key] = clamp(values[key]+delta, story.AxisMin, story.AxisMax)
		sum += delta
		applied++
	}

	var average float64
	if applied > 0 {
		average = sum / float64(applied)
	}

	return story.PoliticalAlignment{
		Values:           values,
		OverallAlignment: clamp(current.OverallAlignment+average, story.OverallMin, story.OverallMax),
	}, average
}

// Color maps an overall score onto a red/blue gradient.
func Color(overall float64) string {
	r, b := channels(overall)
	return fmt.Sprintf("rgb(%d, 0, %d)", r, b)
}

// HexColor is Color in #rrggbb form.
func HexColor(overall float64) string {
	r, b := channels(overall)
	return fmt.Sprintf("#%02x00%02x", r, b)
}

func channels(overall float64) (int, int) {
	r := clamp(math.Round(128+1.28*overall), 0, 255)
	b := clamp(math.Round(128-1.28*overall), 0, 255)
	return int(r), int(b)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

type Aggregator struct {
	players store.PlayerStore
	now     func() time.Time
}

func NewAggregator(players store.PlayerStore) *Aggregator {
	return &Aggregator{players: players, now: time.Now}
}

// WithClock replaces the time source used to stamp history entries.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// Update applies changes to the player's alignment and appends exactly one
// history entry carrying the new overall score.
func (a *Aggregator) Update(ctx context.Context, playerID string, changes map[string]float64) (*story.Player, error) {
	player, err := a.players.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("loading player: %w", err)
	}

	next, _ := Apply(player.PoliticalAlignment, changes)
	history := append(player.AlignmentHistory, story.AlignmentPoint{
		Timestamp: a.now().UnixMilli(),
		Alignment: next.OverallAlignment,
	})

	if err := a.players.PatchPlayer(ctx, playerID, story.PlayerPatch{
		PoliticalAlignment: &next,
		AlignmentHistory:   &history,
	}); err != nil {
		return nil, fmt.Errorf("updating political alignment: %w", err)
	}

	player.PoliticalAlignment = next
	player.AlignmentHistory = history
	return player, nil
}
