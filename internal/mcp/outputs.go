package mcp

import (
	"storynexus/internal/alignment"
	"storynexus/internal/story"
	"storynexus/internal/validate"
	"storynexus/internal/worldgen"
)

type ChoiceInput struct {
	ID           string                    `json:"id" jsonschema:"choice id, unique within the node"`
	Text         string                    `json:"text" jsonschema:"text shown to the player"`
	Consequences []story.ConsequenceRecord `json:"consequences,omitempty" jsonschema:"effects applied when the choice is taken"`
	NextNodeID   string                    `json:"nextNodeId,omitempty" jsonschema:"node the choice leads to"`
}

type GridInput struct {
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Terrain string `json:"terrain,omitempty"`
}

type TreeInput struct {
	ParentNodeID string `json:"parentNodeId,omitempty" jsonschema:"parent node, empty for a root"`
}

type ChoiceOutput struct {
	ID           string                    `json:"id"`
	Text         string                    `json:"text"`
	Consequences []story.ConsequenceRecord `json:"consequences"`
	NextNodeID   string                    `json:"nextNodeId,omitempty"`
}

type NodeOutput struct {
	ID         string         `json:"id"`
	StoryID    string         `json:"storyId,omitempty"`
	Content    string         `json:"content"`
	Choices    []ChoiceOutput `json:"choices"`
	VisitCount int            `json:"visitCount"`
	Grid       *GridInput     `json:"grid,omitempty"`
	Tree       *TreeInput     `json:"tree,omitempty"`
}

type NodeListOutput struct {
	Nodes []NodeOutput `json:"nodes"`
}

type AlignmentPointOutput struct {
	Timestamp int64   `json:"timestamp"`
	Alignment float64 `json:"alignment"`
}

type PlayerOutput struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	Description      string                 `json:"description"`
	Inventory        []string               `json:"inventory"`
	Stats            map[string]float64     `json:"stats"`
	Values           map[string]float64     `json:"values"`
	OverallAlignment float64                `json:"overallAlignment"`
	AlignmentColor   string                 `json:"alignmentColor"`
	AlignmentHistory []AlignmentPointOutput `json:"alignmentHistory"`
}

type SessionOutput struct {
	ID            string          `json:"id"`
	PlayerID      string          `json:"playerId"`
	CurrentNodeID string          `json:"currentNodeId"`
	Flags         map[string]bool `json:"flags"`
	VisitedNodes  []string        `json:"visitedNodes"`
	Title         string          `json:"title"`
	Version       string          `json:"version"`
}

type GenerateWorldOutput struct {
	RunID          string   `json:"runId"`
	StoryID        string   `json:"storyId"`
	WorldDetailsID string   `json:"worldDetailsId,omitempty"`
	RootNodeID     string   `json:"rootNodeId,omitempty"`
	NodeIDs        []string `json:"nodeIds"`
	Stopped        bool     `json:"stopped"`
}

type ValidateGraphOutput struct {
	Errors   int              `json:"errors"`
	Warnings int              `json:"warnings"`
	Issues   []validate.Issue `json:"issues"`
}

func choicesFromInput(in []ChoiceInput) []story.Choice {
	out := make([]story.Choice, 0, len(in))
	for _, c := range in {
		out = append(out, story.Choice{
			ID:           c.ID,
			Text:         c.Text,
			Consequences: story.ConsequencesFromRecords(c.Consequences),
			NextNodeID:   c.NextNodeID,
		})
	}
	return out
}

func nodeOutputFromStory(n *story.StoryNode) NodeOutput {
	out := NodeOutput{
		ID:         n.ID,
		StoryID:    n.StoryID,
		Content:    n.Content,
		Choices:    make([]ChoiceOutput, 0, len(n.Choices)),
		VisitCount: n.VisitCount,
	}
	for _, c := range n.Choices {
		records := make([]story.ConsequenceRecord, 0, len(c.Consequences))
		for _, effect := range c.Consequences {
			records = append(records, story.Record(effect))
		}
		out.Choices = append(out.Choices, ChoiceOutput{
			ID:           c.ID,
			Text:         c.Text,
			Consequences: records,
			NextNodeID:   c.NextNodeID,
		})
	}
	if n.Grid != nil {
		out.Grid = &GridInput{X: n.Grid.X, Y: n.Grid.Y, Terrain: n.Grid.Terrain}
	}
	if n.Tree != nil {
		out.Tree = &TreeInput{ParentNodeID: n.Tree.ParentNodeID}
	}
	return out
}

func playerOutputFromStory(p *story.Player) PlayerOutput {
	out := PlayerOutput{
		ID:               p.ID,
		Name:             p.Name,
		Description:      p.Description,
		Inventory:        append([]string{}, p.Inventory...),
		Stats:            make(map[string]float64, len(p.Stats)),
		Values:           make(map[string]float64, len(p.PoliticalAlignment.Values)),
		OverallAlignment: p.PoliticalAlignment.OverallAlignment,
		AlignmentColor:   alignment.Color(p.PoliticalAlignment.OverallAlignment),
		AlignmentHistory: make([]AlignmentPointOutput, 0, len(p.AlignmentHistory)),
	}
	for k, v := range p.Stats {
		out.Stats[k] = v
	}
	for k, v := range p.PoliticalAlignment.Values {
		out.Values[k] = v
	}
	for _, point := range p.AlignmentHistory {
		out.AlignmentHistory = append(out.AlignmentHistory, AlignmentPointOutput{
			Timestamp: point.Timestamp,
			Alignment: point.Alignment,
		})
	}
	return out
}

func sessionOutputFromStory(s *story.Session) SessionOutput {
	out := SessionOutput{
		ID:            s.ID,
		PlayerID:      s.PlayerID,
		CurrentNodeID: s.CurrentNodeID,
		Flags:         make(map[string]bool, len(s.Flags)),
		VisitedNodes:  append([]string{}, s.VisitedNodes...),
		Title:         s.Title,
		Version:       s.Version,
	}
	for k, v := range s.Flags {
		out.Flags[k] = v
	}
	return out
}

func generateOutputFromResult(runID string, res *worldgen.Result) GenerateWorldOutput {
	out := GenerateWorldOutput{RunID: runID, NodeIDs: []string{}}
	if res == nil {
		return out
	}
	out.StoryID = res.StoryID
	out.WorldDetailsID = res.WorldDetailsID
	out.RootNodeID = res.RootNodeID
	out.NodeIDs = append(out.NodeIDs, res.NodeIDs...)
	return out
}
