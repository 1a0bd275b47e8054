package story

import (
	"fmt"
	"strings"
	"time"
)

type Topology string

const (
	TopologyGrid Topology = "grid"
	TopologyTree Topology = "tree"
)

// ParseTopology accepts "grid" or "tree", case-insensitively.
func ParseTopology(value string) (Topology, error) {
	switch Topology(strings.ToLower(strings.TrimSpace(value))) {
	case TopologyGrid:
		return TopologyGrid, nil
	case TopologyTree:
		return TopologyTree, nil
	default:
		return "", fmt.Errorf("unknown topology %q: expected grid or tree", value)
	}
}

const SessionVersion = "1.0.0"

type Choice struct {
	ID           string       `json:"id"`
	Text         string       `json:"text"`
	Consequences Consequences `json:"consequences"`
	NextNodeID   string       `json:"nextNodeId,omitempty"`
}

type GridAddress struct {
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Terrain string `json:"terrain"`
}

type TreeAddress struct {
	ParentNodeID string `json:"parentNodeId,omitempty"`
}

type StoryNode struct {
	ID         string       `json:"id"`
	StoryID    string       `json:"storyId,omitempty"`
	Content    string       `json:"content"`
	Choices    []Choice     `json:"choices"`
	VisitCount int          `json:"visitCount"`
	Grid       *GridAddress `json:"grid,omitempty"`
	Tree       *TreeAddress `json:"tree,omitempty"`
}

func NewGridNode(storyID string, x, y int, terrain, content string, choices []Choice) *StoryNode {
	return &StoryNode{
		StoryID: storyID,
		Content: content,
		Choices: choices,
		Grid:    &GridAddress{X: x, Y: y, Terrain: terrain},
	}
}

func NewTreeNode(storyID, parentNodeID, content string, choices []Choice) *StoryNode {
	return &StoryNode{
		StoryID: storyID,
		Content: content,
		Choices: choices,
		Tree:    &TreeAddress{ParentNodeID: parentNodeID},
	}
}

// Topology reports the addressing scheme the node carries, or "" when it
// carries none.
func (n *StoryNode) Topology() Topology {
	switch {
	case n.Grid != nil && n.Tree == nil:
		return TopologyGrid
	case n.Tree != nil && n.Grid == nil:
		return TopologyTree
	default:
		return ""
	}
}

// ParentID returns the tree parent, or "" for grid nodes and roots.
func (n *StoryNode) ParentID() string {
	if n.Tree == nil {
		return ""
	}
	return n.Tree.ParentNodeID
}

// CheckAddressing verifies the node carries exactly one addressing scheme
// and, when topology is set, that it is the expected one.
func (n *StoryNode) CheckAddressing(topology Topology) error {
	if n.Grid != nil && n.Tree != nil {
		return fmt.Errorf("%w: node carries both grid and tree addressing", ErrInvalidNode)
	}
	if n.Grid == nil && n.Tree == nil {
		return fmt.Errorf("%w: node carries no addressing", ErrInvalidNode)
	}
	if topology != "" && n.Topology() != topology {
		return fmt.Errorf("%w: node is %s-addressed in a %s story", ErrInvalidNode, n.Topology(), topology)
	}
	for i, choice := range n.Choices {
		for _, other := range n.Choices[:i] {
			if other.ID == choice.ID {
				return fmt.Errorf("%w: duplicate choice id %q", ErrInvalidNode, choice.ID)
			}
		}
	}
	return nil
}

// ChoiceByID returns the choice with the given id.
func (n *StoryNode) ChoiceByID(id string) (Choice, bool) {
	for _, c := range n.Choices {
		if c.ID == id {
			return c, true
		}
	}
	return Choice{}, false
}

func (n *StoryNode) Clone() *StoryNode {
	out := *n
	out.Choices = cloneChoices(n.Choices)
	if n.Grid != nil {
		grid := *n.Grid
		out.Grid = &grid
	}
	if n.Tree != nil {
		tree := *n.Tree
		out.Tree = &tree
	}
	return &out
}

func cloneChoices(choices []Choice) []Choice {
	if choices == nil {
		return nil
	}
	out := make([]Choice, len(choices))
	for i, c := range choices {
		out[i] = c
		out[i].Consequences = append(Consequences(nil), c.Consequences...)
	}
	return out
}

type Player struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	Description        string             `json:"description"`
	Inventory          []string           `json:"inventory"`
	Stats              map[string]float64 `json:"stats"`
	PoliticalAlignment PoliticalAlignment `json:"politicalAlignment"`
	AlignmentHistory   []AlignmentPoint   `json:"alignmentHistory"`
}

// NewPlayer returns a player with an empty inventory, default alignment and
// a single neutral history entry stamped at now.
func NewPlayer(name, description string, now time.Time) *Player {
	return &Player{
		Name:               name,
		Description:        description,
		Inventory:          []string{},
		Stats:              map[string]float64{},
		PoliticalAlignment: DefaultAlignment(),
		AlignmentHistory:   []AlignmentPoint{{Timestamp: now.UnixMilli(), Alignment: 0}},
	}
}

func (p *Player) Clone() *Player {
	out := *p
	out.Inventory = append([]string(nil), p.Inventory...)
	out.Stats = make(map[string]float64, len(p.Stats))
	for k, v := range p.Stats {
		out.Stats[k] = v
	}
	out.PoliticalAlignment = p.PoliticalAlignment.clone()
	out.AlignmentHistory = append([]AlignmentPoint(nil), p.AlignmentHistory...)
	return &out
}

type Session struct {
	ID            string          `json:"id"`
	PlayerID      string          `json:"playerId"`
	CurrentNodeID string          `json:"currentNodeId"`
	Flags         map[string]bool `json:"flags"`
	VisitedNodes  []string        `json:"visitedNodes"`
	Title         string          `json:"title"`
	Version       string          `json:"version"`
}

func NewSession(playerID, startingNodeID, title string) *Session {
	return &Session{
		PlayerID:      playerID,
		CurrentNodeID: startingNodeID,
		Flags:         map[string]bool{},
		VisitedNodes:  []string{startingNodeID},
		Title:         title,
		Version:       SessionVersion,
	}
}

func (s *Session) Clone() *Session {
	out := *s
	out.Flags = make(map[string]bool, len(s.Flags))
	for k, v := range s.Flags {
		out.Flags[k] = v
	}
	out.VisitedNodes = append([]string(nil), s.VisitedNodes...)
	return &out
}

type Character struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

type Outline struct {
	Title           string      `json:"title" yaml:"title"`
	MainPlot        string      `json:"mainPlot" yaml:"main_plot"`
	KeyCharacters   []Character `json:"keyCharacters" yaml:"key_characters"`
	MajorStoryBeats []string    `json:"majorStoryBeats" yaml:"major_story_beats"`
}

type GameStory struct {
	ID         string    `json:"id"`
	Outline    Outline   `json:"outline"`
	Size       StorySize `json:"size"`
	Topology   Topology  `json:"topology"`
	GridSize   int       `json:"gridSize,omitempty"`
	RootNodeID string    `json:"rootNodeId,omitempty"`
}

func (g *GameStory) Clone() *GameStory {
	out := *g
	out.Outline.KeyCharacters = append([]Character(nil), g.Outline.KeyCharacters...)
	out.Outline.MajorStoryBeats = append([]string(nil), g.Outline.MajorStoryBeats...)
	return &out
}

type Location struct {
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	PointsOfInterest []string `json:"pointsOfInterest"`
}

type Environment struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

type WorldDetails struct {
	ID           string        `json:"id"`
	StoryID      string        `json:"storyId"`
	Locations    []Location    `json:"locations"`
	Environments []Environment `json:"environments"`
}

func (w *WorldDetails) Clone() *WorldDetails {
	out := *w
	out.Locations = make([]Location, len(w.Locations))
	for i, loc := range w.Locations {
		out.Locations[i] = loc
		out.Locations[i].PointsOfInterest = append([]string(nil), loc.PointsOfInterest...)
	}
	out.Environments = append([]Environment(nil), w.Environments...)
	return &out
}
