package mcp

import (
	"context"
	"sync"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"storynexus/internal/alignment"
	"storynexus/internal/config"
	"storynexus/internal/consequence"
	"storynexus/internal/session"
	"storynexus/internal/store"
	"storynexus/internal/worldgen"
)

type Server struct {
	db       store.Store
	aligner  *alignment.Aggregator
	sessions *session.Machine
	world    *worldgen.Orchestrator
	defaults config.WorldConfig
	now      func() time.Time
	mcp      *sdk.Server

	mu   sync.Mutex
	runs map[string]*worldgen.StopSignal
}

// NewServer exposes db over MCP. world may be nil, in which case the
// generation tools report that no generation service is configured.
func NewServer(db store.Store, world *worldgen.Orchestrator, defaults config.WorldConfig, version string) *Server {
	aligner := alignment.NewAggregator(db)
	s := &Server{
		db:       db,
		aligner:  aligner,
		sessions: session.NewMachine(db, consequence.NewEngine(db, aligner)),
		world:    world,
		defaults: defaults,
		now:      time.Now,
		runs:     make(map[string]*worldgen.StopSignal),
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "storynexus",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
