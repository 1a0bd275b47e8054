// Package worldgen builds a complete story graph from an outline by asking
// the generation service for one node at a time.
package worldgen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"sync/atomic"
	"time"

	"storynexus/internal/generation"
	"storynexus/internal/parser"
	"storynexus/internal/store"
	"storynexus/internal/story"
)

type Store interface {
	store.NodeStore
	store.StoryStore
}

// Generator produces the pieces of a world. *generation.Generator is the
// production implementation.
type Generator interface {
	Outline(ctx context.Context, info generation.GameInfo) (*story.Outline, error)
	WorldDetails(ctx context.Context, outline story.Outline, nodeCount int) (*story.WorldDetails, error)
	GridNode(ctx context.Context, in generation.GridNodeInput) (*parser.NodeContent, error)
	TreeNode(ctx context.Context, in generation.TreeNodeInput) (*parser.NodeContent, error)
}

var _ Generator = (*generation.Generator)(nil)

// StopSignal asks a running generation to stop before its next node. A nil
// signal never stops.
type StopSignal struct {
	stopped atomic.Bool
}

func (s *StopSignal) Stop() {
	s.stopped.Store(true)
}

func (s *StopSignal) Stopped() bool {
	return s != nil && s.stopped.Load()
}

type Progress struct {
	NodesCreated int
	TotalBudget  int
}

type ProgressFunc func(Progress)

type Request struct {
	// Outline is used as given when set; otherwise one is generated from Info.
	Outline *story.Outline
	Info    generation.GameInfo

	Topology story.Topology
	GridSize int
	Size     story.StorySize

	// NodeBudget overrides the tree budget derived from Size when positive.
	NodeBudget int
	MaxDepth   int

	// ContinuationProbability is the chance each choice of a tree node
	// gets a child.
	ContinuationProbability float64

	// Seed drives tree branching; zero picks a time based seed.
	Seed int64
}

type Result struct {
	StoryID        string
	WorldDetailsID string
	RootNodeID     string
	NodeIDs        []string
}

type Orchestrator struct {
	store  Store
	gen    Generator
	logger *log.Logger
}

func NewOrchestrator(s Store, gen Generator, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Orchestrator{store: s, gen: gen, logger: logger}
}

// Run generates a story, its world details and its node graph. Calls to the
// generator are strictly sequential. When stop is set the run ends with
// story.ErrGenerationStopped; on that or any other error the returned
// result describes what was committed, which is left in place.
func (o *Orchestrator) Run(ctx context.Context, req Request, stop *StopSignal, progress ProgressFunc) (*Result, error) {
	if progress == nil {
		progress = func(Progress) {}
	}

	budget, err := nodeBudget(req)
	if err != nil {
		return nil, err
	}

	if stop.Stopped() {
		return &Result{}, story.ErrGenerationStopped
	}
	outline, err := o.outline(ctx, req)
	if err != nil {
		return nil, err
	}

	gs := &story.GameStory{
		Outline:  *outline,
		Size:     req.Size,
		Topology: req.Topology,
	}
	if req.Topology == story.TopologyGrid {
		gs.GridSize = req.GridSize
	}
	storyID, err := o.store.InsertStory(ctx, gs)
	if err != nil {
		return nil, fmt.Errorf("inserting game story: %w", err)
	}
	gs.ID = storyID
	res := &Result{StoryID: storyID}
	o.logger.Printf("worldgen: story %s %q (%s, %d nodes)", storyID, outline.Title, req.Topology, budget)

	if stop.Stopped() {
		return res, story.ErrGenerationStopped
	}
	world, err := o.gen.WorldDetails(ctx, *outline, budget)
	if err != nil {
		return res, err
	}
	world.StoryID = storyID
	if res.WorldDetailsID, err = o.store.InsertWorldDetails(ctx, world); err != nil {
		return res, fmt.Errorf("inserting world details: %w", err)
	}

	r := &run{
		Orchestrator: o,
		req:          req,
		story:        gs,
		world:        world,
		stop:         stop,
		progress:     progress,
		budget:       budget,
		res:          res,
	}
	switch req.Topology {
	case story.TopologyGrid:
		err = r.grid(ctx)
	default:
		err = r.tree(ctx)
	}
	if errors.Is(err, story.ErrGenerationStopped) {
		o.logger.Printf("worldgen: story %s stopped after %d nodes", storyID, len(res.NodeIDs))
	}
	return res, err
}

func nodeBudget(req Request) (int, error) {
	switch req.Topology {
	case story.TopologyGrid:
		if req.GridSize <= 0 {
			return 0, fmt.Errorf("grid size must be positive, got %d", req.GridSize)
		}
		return req.GridSize * req.GridSize, nil
	case story.TopologyTree:
		budget := req.NodeBudget
		if budget <= 0 {
			budget = req.Size.NodeBudget()
		}
		if budget <= 0 {
			return 0, fmt.Errorf("unknown story size %q", req.Size)
		}
		if req.MaxDepth < 0 {
			return 0, fmt.Errorf("max depth must not be negative, got %d", req.MaxDepth)
		}
		return budget, nil
	default:
		return 0, fmt.Errorf("unknown topology %q", req.Topology)
	}
}

func (o *Orchestrator) outline(ctx context.Context, req Request) (*story.Outline, error) {
	outline := req.Outline
	if outline == nil {
		generated, err := o.gen.Outline(ctx, req.Info)
		if err != nil {
			return nil, err
		}
		outline = generated
	}
	if err := checkOutline(outline); err != nil {
		return nil, err
	}
	return outline, nil
}

func checkOutline(o *story.Outline) error {
	switch {
	case o.Title == "":
		return errors.New("outline missing title")
	case o.MainPlot == "":
		return errors.New("outline missing main plot")
	case o.KeyCharacters == nil:
		return errors.New("outline missing key characters")
	case o.MajorStoryBeats == nil:
		return errors.New("outline missing major story beats")
	}
	return nil
}

// run holds the state of one Orchestrator.Run call.
type run struct {
	*Orchestrator
	req      Request
	story    *story.GameStory
	world    *story.WorldDetails
	stop     *StopSignal
	progress ProgressFunc
	budget   int
	res      *Result
}

func (r *run) commit(ctx context.Context, node *story.StoryNode) (string, error) {
	id, err := r.store.InsertNode(ctx, node)
	if err != nil {
		return "", fmt.Errorf("inserting story node: %w", err)
	}
	node.ID = id
	r.res.NodeIDs = append(r.res.NodeIDs, id)

	if r.res.RootNodeID == "" {
		r.res.RootNodeID = id
		if err := r.store.PatchStory(ctx, r.story.ID, story.StoryPatch{RootNodeID: &id}); err != nil {
			return "", fmt.Errorf("setting story root: %w", err)
		}
	}

	r.progress(Progress{NodesCreated: len(r.res.NodeIDs), TotalBudget: r.budget})
	return id, nil
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
