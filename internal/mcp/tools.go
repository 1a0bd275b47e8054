package mcp

import (
	"context"
	"errors"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"storynexus/internal/generation"
	"storynexus/internal/store"
	"storynexus/internal/story"
	"storynexus/internal/validate"
	"storynexus/internal/worldgen"
)

type CreateNodeInput struct {
	StoryID string        `json:"storyId,omitempty" jsonschema:"owning story, empty for a free-standing node"`
	Content string        `json:"content" jsonschema:"narrative text of the node"`
	Choices []ChoiceInput `json:"choices,omitempty" jsonschema:"ordered choices"`
	Grid    *GridInput    `json:"grid,omitempty" jsonschema:"grid addressing; exclusive with tree"`
	Tree    *TreeInput    `json:"tree,omitempty" jsonschema:"tree addressing; exclusive with grid"`
}

type UpdateNodeInput struct {
	ID         string         `json:"id" jsonschema:"node id"`
	Content    *string        `json:"content,omitempty" jsonschema:"replacement content"`
	Choices    *[]ChoiceInput `json:"choices,omitempty" jsonschema:"replacement choices"`
	VisitCount *int           `json:"visitCount,omitempty" jsonschema:"replacement visit count"`
}

type NodeIDInput struct {
	ID string `json:"id" jsonschema:"node id"`
}

type ListNodesInput struct {
	StoryID string `json:"storyId,omitempty" jsonschema:"restrict to one story"`
}

type DeleteNodeOutput struct {
	ID       string `json:"id"`
	Deleted  bool   `json:"deleted"`
	Unlinked int    `json:"unlinked"`
}

type CreatePlayerInput struct {
	Name        string `json:"name" jsonschema:"player name"`
	Description string `json:"description,omitempty" jsonschema:"player description"`
}

type PlayerIDInput struct {
	ID string `json:"id" jsonschema:"player id"`
}

type CreateSessionInput struct {
	PlayerID       string `json:"playerId" jsonschema:"player the session belongs to"`
	StartingNodeID string `json:"startingNodeId" jsonschema:"node the session starts at"`
	Title          string `json:"title,omitempty" jsonschema:"session title"`
}

type SessionIDInput struct {
	ID string `json:"id" jsonschema:"session id"`
}

type MakeChoiceInput struct {
	SessionID string `json:"sessionId" jsonschema:"session id"`
	ChoiceID  string `json:"choiceId" jsonschema:"choice on the current node"`
}

type GoBackInput struct {
	SessionID string `json:"sessionId" jsonschema:"session id"`
}

type MoveOutput struct {
	Session SessionOutput `json:"session"`
	Node    NodeOutput    `json:"node"`
}

type UpdateAlignmentInput struct {
	PlayerID string             `json:"playerId" jsonschema:"player id"`
	Changes  map[string]float64 `json:"changes" jsonschema:"deltas keyed by political axis"`
}

type GenerateWorldInput struct {
	RunID          string `json:"runId,omitempty" jsonschema:"caller chosen id usable with stopGeneration"`
	Genre          string `json:"genre" jsonschema:"story genre"`
	Theme          string `json:"theme,omitempty" jsonschema:"story theme"`
	AdditionalInfo string `json:"additionalInfo,omitempty" jsonschema:"extra guidance for the outline"`

	Topology                string   `json:"topology,omitempty" jsonschema:"grid or tree"`
	Size                    string   `json:"size,omitempty" jsonschema:"Quick, Short, Normal, Long, Extended, Huge or Epic"`
	GridSize                int      `json:"gridSize,omitempty" jsonschema:"grid side length"`
	MaxDepth                int      `json:"maxDepth,omitempty" jsonschema:"maximum tree depth"`
	ContinuationProbability *float64 `json:"continuationProbability,omitempty" jsonschema:"chance each tree choice gets a child"`
	Seed                    int64    `json:"seed,omitempty" jsonschema:"seed for tree branching"`
}

type StopGenerationInput struct {
	RunID string `json:"runId" jsonschema:"id of a running generateWorld call"`
}

type StopGenerationOutput struct {
	RunID   string `json:"runId"`
	Running bool   `json:"running"`
}

type ValidateGraphInput struct{}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "createNode",
		Description: "Create a story node with grid or tree addressing",
	}, s.handleCreateNode)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "updateNode",
		Description: "Overwrite fields of a story node",
	}, s.handleUpdateNode)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "deleteNode",
		Description: "Delete a story node and clear choices that led to it; child nodes keep their parent id",
	}, s.handleDeleteNode)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "getNode",
		Description: "Retrieve a story node",
	}, s.handleGetNode)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "getAllNodes",
		Description: "List story nodes, optionally for one story",
	}, s.handleGetAllNodes)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "createPlayer",
		Description: "Create a player with neutral political alignment",
	}, s.handleCreatePlayer)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "getPlayer",
		Description: "Retrieve a player",
	}, s.handleGetPlayer)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "createSession",
		Description: "Start a session for a player at a node",
	}, s.handleCreateSession)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "getSession",
		Description: "Retrieve a session",
	}, s.handleGetSession)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "makeChoice",
		Description: "Take a choice on the session's current node",
	}, s.handleMakeChoice)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "goBack",
		Description: "Return the session to the current node's parent",
	}, s.handleGoBack)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "updatePoliticalAlignment",
		Description: "Apply political axis deltas to a player",
	}, s.handleUpdateAlignment)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "generateWorld",
		Description: "Generate a story, its world details and its node graph",
	}, s.handleGenerateWorld)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "stopGeneration",
		Description: "Ask a running generateWorld call to stop before its next node",
	}, s.handleStopGeneration)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "validateGraph",
		Description: "Check stored story graphs for broken links and addressing violations",
	}, s.handleValidateGraph)
}

func (s *Server) handleCreateNode(ctx context.Context, req *sdk.CallToolRequest, input CreateNodeInput) (*sdk.CallToolResult, NodeOutput, error) {
	node := &story.StoryNode{
		StoryID: input.StoryID,
		Content: input.Content,
		Choices: choicesFromInput(input.Choices),
	}
	if input.Grid != nil {
		node.Grid = &story.GridAddress{X: input.Grid.X, Y: input.Grid.Y, Terrain: input.Grid.Terrain}
	}
	if input.Tree != nil {
		node.Tree = &story.TreeAddress{ParentNodeID: input.Tree.ParentNodeID}
	}

	var topology story.Topology
	if input.StoryID != "" {
		gs, err := s.db.GetStory(ctx, input.StoryID)
		if err != nil {
			return nil, NodeOutput{}, err
		}
		topology = gs.Topology
	}
	if err := node.CheckAddressing(topology); err != nil {
		return nil, NodeOutput{}, err
	}
	if err := s.checkLinks(ctx, node.Choices); err != nil {
		return nil, NodeOutput{}, err
	}
	if parent := node.ParentID(); parent != "" {
		if _, err := s.db.GetNode(ctx, parent); err != nil {
			return nil, NodeOutput{}, fmt.Errorf("parent node: %w", err)
		}
	}

	id, err := s.db.InsertNode(ctx, node)
	if err != nil {
		return nil, NodeOutput{}, err
	}
	node.ID = id
	return nil, nodeOutputFromStory(node), nil
}

func (s *Server) handleUpdateNode(ctx context.Context, req *sdk.CallToolRequest, input UpdateNodeInput) (*sdk.CallToolResult, NodeOutput, error) {
	if input.ID == "" {
		return nil, NodeOutput{}, fmt.Errorf("id is required")
	}
	patch := story.NodePatch{Content: input.Content, VisitCount: input.VisitCount}
	if input.Choices != nil {
		choices := choicesFromInput(*input.Choices)
		shape := story.StoryNode{Choices: choices, Tree: &story.TreeAddress{}}
		if err := shape.CheckAddressing(""); err != nil {
			return nil, NodeOutput{}, err
		}
		if err := s.checkLinks(ctx, choices); err != nil {
			return nil, NodeOutput{}, err
		}
		patch.Choices = &choices
	}
	if err := s.db.PatchNode(ctx, input.ID, patch); err != nil {
		return nil, NodeOutput{}, err
	}
	node, err := s.db.GetNode(ctx, input.ID)
	if err != nil {
		return nil, NodeOutput{}, err
	}
	return nil, nodeOutputFromStory(node), nil
}

func (s *Server) handleDeleteNode(ctx context.Context, req *sdk.CallToolRequest, input NodeIDInput) (*sdk.CallToolResult, DeleteNodeOutput, error) {
	if input.ID == "" {
		return nil, DeleteNodeOutput{}, fmt.Errorf("id is required")
	}
	if err := s.db.DeleteNode(ctx, input.ID); err != nil {
		return nil, DeleteNodeOutput{}, err
	}
	unlinked, err := store.UnlinkNode(ctx, s.db, input.ID)
	if err != nil {
		return nil, DeleteNodeOutput{}, fmt.Errorf("clearing links to %s: %w", input.ID, err)
	}
	return nil, DeleteNodeOutput{ID: input.ID, Deleted: true, Unlinked: unlinked}, nil
}

// checkLinks requires every non-empty NextNodeID to name a stored node.
func (s *Server) checkLinks(ctx context.Context, choices []story.Choice) error {
	for _, c := range choices {
		if c.NextNodeID == "" {
			continue
		}
		if _, err := s.db.GetNode(ctx, c.NextNodeID); err != nil {
			return fmt.Errorf("choice %q next node: %w", c.ID, err)
		}
	}
	return nil
}

func (s *Server) handleGetNode(ctx context.Context, req *sdk.CallToolRequest, input NodeIDInput) (*sdk.CallToolResult, NodeOutput, error) {
	if input.ID == "" {
		return nil, NodeOutput{}, fmt.Errorf("id is required")
	}
	node, err := s.db.GetNode(ctx, input.ID)
	if err != nil {
		return nil, NodeOutput{}, err
	}
	return nil, nodeOutputFromStory(node), nil
}

func (s *Server) handleGetAllNodes(ctx context.Context, req *sdk.CallToolRequest, input ListNodesInput) (*sdk.CallToolResult, NodeListOutput, error) {
	nodes, err := s.db.ListNodes(ctx)
	if err != nil {
		return nil, NodeListOutput{}, err
	}
	output := make([]NodeOutput, 0, len(nodes))
	for i := range nodes {
		if input.StoryID != "" && nodes[i].StoryID != input.StoryID {
			continue
		}
		output = append(output, nodeOutputFromStory(&nodes[i]))
	}
	return nil, NodeListOutput{Nodes: output}, nil
}

func (s *Server) handleCreatePlayer(ctx context.Context, req *sdk.CallToolRequest, input CreatePlayerInput) (*sdk.CallToolResult, PlayerOutput, error) {
	if input.Name == "" {
		return nil, PlayerOutput{}, fmt.Errorf("name is required")
	}
	player := story.NewPlayer(input.Name, input.Description, s.now())
	id, err := s.db.InsertPlayer(ctx, player)
	if err != nil {
		return nil, PlayerOutput{}, err
	}
	player.ID = id
	return nil, playerOutputFromStory(player), nil
}

func (s *Server) handleGetPlayer(ctx context.Context, req *sdk.CallToolRequest, input PlayerIDInput) (*sdk.CallToolResult, PlayerOutput, error) {
	if input.ID == "" {
		return nil, PlayerOutput{}, fmt.Errorf("id is required")
	}
	player, err := s.db.GetPlayer(ctx, input.ID)
	if err != nil {
		return nil, PlayerOutput{}, err
	}
	return nil, playerOutputFromStory(player), nil
}

func (s *Server) handleCreateSession(ctx context.Context, req *sdk.CallToolRequest, input CreateSessionInput) (*sdk.CallToolResult, SessionOutput, error) {
	if input.PlayerID == "" || input.StartingNodeID == "" {
		return nil, SessionOutput{}, fmt.Errorf("playerId and startingNodeId are required")
	}
	id, err := s.sessions.Create(ctx, input.PlayerID, input.StartingNodeID, input.Title)
	if err != nil {
		return nil, SessionOutput{}, err
	}
	sess, err := s.db.GetSession(ctx, id)
	if err != nil {
		return nil, SessionOutput{}, err
	}
	return nil, sessionOutputFromStory(sess), nil
}

func (s *Server) handleGetSession(ctx context.Context, req *sdk.CallToolRequest, input SessionIDInput) (*sdk.CallToolResult, SessionOutput, error) {
	if input.ID == "" {
		return nil, SessionOutput{}, fmt.Errorf("id is required")
	}
	sess, err := s.db.GetSession(ctx, input.ID)
	if err != nil {
		return nil, SessionOutput{}, err
	}
	return nil, sessionOutputFromStory(sess), nil
}

func (s *Server) handleMakeChoice(ctx context.Context, req *sdk.CallToolRequest, input MakeChoiceInput) (*sdk.CallToolResult, MoveOutput, error) {
	if input.SessionID == "" || input.ChoiceID == "" {
		return nil, MoveOutput{}, fmt.Errorf("sessionId and choiceId are required")
	}
	sess, err := s.sessions.MakeChoice(ctx, input.SessionID, input.ChoiceID)
	if err != nil {
		return nil, MoveOutput{}, err
	}
	return s.moveOutput(ctx, sess)
}

func (s *Server) handleGoBack(ctx context.Context, req *sdk.CallToolRequest, input GoBackInput) (*sdk.CallToolResult, MoveOutput, error) {
	if input.SessionID == "" {
		return nil, MoveOutput{}, fmt.Errorf("sessionId is required")
	}
	sess, err := s.sessions.GoBack(ctx, input.SessionID)
	if err != nil {
		return nil, MoveOutput{}, err
	}
	return s.moveOutput(ctx, sess)
}

func (s *Server) moveOutput(ctx context.Context, sess *story.Session) (*sdk.CallToolResult, MoveOutput, error) {
	node, err := s.db.GetNode(ctx, sess.CurrentNodeID)
	if err != nil {
		return nil, MoveOutput{}, err
	}
	return nil, MoveOutput{Session: sessionOutputFromStory(sess), Node: nodeOutputFromStory(node)}, nil
}

func (s *Server) handleUpdateAlignment(ctx context.Context, req *sdk.CallToolRequest, input UpdateAlignmentInput) (*sdk.CallToolResult, PlayerOutput, error) {
	if input.PlayerID == "" {
		return nil, PlayerOutput{}, fmt.Errorf("playerId is required")
	}
	player, err := s.aligner.Update(ctx, input.PlayerID, input.Changes)
	if err != nil {
		return nil, PlayerOutput{}, err
	}
	return nil, playerOutputFromStory(player), nil
}

func (s *Server) handleGenerateWorld(ctx context.Context, req *sdk.CallToolRequest, input GenerateWorldInput) (*sdk.CallToolResult, GenerateWorldOutput, error) {
	if s.world == nil {
		return nil, GenerateWorldOutput{}, fmt.Errorf("no generation service is configured")
	}
	if input.Genre == "" {
		return nil, GenerateWorldOutput{}, fmt.Errorf("genre is required")
	}
	wreq, err := s.worldRequest(input)
	if err != nil {
		return nil, GenerateWorldOutput{}, err
	}

	runID := store.AssignID(input.RunID)
	stop, err := s.startRun(runID)
	if err != nil {
		return nil, GenerateWorldOutput{}, err
	}
	defer s.finishRun(runID)

	res, err := s.world.Run(ctx, wreq, stop, nil)
	output := generateOutputFromResult(runID, res)
	if errors.Is(err, story.ErrGenerationStopped) {
		output.Stopped = true
		return nil, output, nil
	}
	if err != nil {
		return nil, GenerateWorldOutput{}, err
	}
	return nil, output, nil
}

func (s *Server) worldRequest(input GenerateWorldInput) (worldgen.Request, error) {
	d := s.defaults
	topologyName := d.Topology
	if input.Topology != "" {
		topologyName = input.Topology
	}
	topology, err := story.ParseTopology(topologyName)
	if err != nil {
		return worldgen.Request{}, err
	}
	sizeName := d.Size
	if input.Size != "" {
		sizeName = input.Size
	}
	size, err := story.ParseStorySize(sizeName)
	if err != nil {
		return worldgen.Request{}, err
	}

	wreq := worldgen.Request{
		Info: generation.GameInfo{
			Genre:          input.Genre,
			Theme:          input.Theme,
			AdditionalInfo: input.AdditionalInfo,
		},
		Topology:                topology,
		GridSize:                d.GridSize,
		Size:                    size,
		MaxDepth:                d.MaxDepth,
		ContinuationProbability: d.ContinuationProbability,
		Seed:                    input.Seed,
	}
	if input.GridSize > 0 {
		wreq.GridSize = input.GridSize
	}
	if input.MaxDepth > 0 {
		wreq.MaxDepth = input.MaxDepth
	}
	if input.ContinuationProbability != nil {
		wreq.ContinuationProbability = *input.ContinuationProbability
	}
	return wreq, nil
}

func (s *Server) startRun(runID string) (*worldgen.StopSignal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[runID]; exists {
		return nil, fmt.Errorf("generation run %q is already in progress", runID)
	}
	stop := &worldgen.StopSignal{}
	s.runs[runID] = stop
	return stop, nil
}

func (s *Server) finishRun(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, runID)
}

func (s *Server) handleStopGeneration(ctx context.Context, req *sdk.CallToolRequest, input StopGenerationInput) (*sdk.CallToolResult, StopGenerationOutput, error) {
	if input.RunID == "" {
		return nil, StopGenerationOutput{}, fmt.Errorf("runId is required")
	}
	s.mu.Lock()
	stop, ok := s.runs[input.RunID]
	s.mu.Unlock()
	if ok {
		stop.Stop()
	}
	return nil, StopGenerationOutput{RunID: input.RunID, Running: ok}, nil
}

func (s *Server) handleValidateGraph(ctx context.Context, req *sdk.CallToolRequest, input ValidateGraphInput) (*sdk.CallToolResult, ValidateGraphOutput, error) {
	report, err := validate.Run(ctx, s.db)
	if err != nil {
		return nil, ValidateGraphOutput{}, err
	}
	issues := report.Issues
	if issues == nil {
		issues = []validate.Issue{}
	}
	return nil, ValidateGraphOutput{
		Errors:   report.Count(validate.SeverityError),
		Warnings: report.Count(validate.SeverityWarn),
		Issues:   issues,
	}, nil
}
