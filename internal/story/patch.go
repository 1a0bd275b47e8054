package story

// Patches carry the fields to overwrite; nil fields are left untouched.

type NodePatch struct {
	Content    *string
	Choices    *[]Choice
	VisitCount *int
	Grid       *GridAddress
	Tree       *TreeAddress
}

func (p NodePatch) Apply(n *StoryNode) {
	if p.Content != nil {
		n.Content = *p.Content
	}
	if p.Choices != nil {
		n.Choices = cloneChoices(*p.Choices)
	}
	if p.VisitCount != nil {
		n.VisitCount = *p.VisitCount
	}
	if p.Grid != nil {
		grid := *p.Grid
		n.Grid = &grid
	}
	if p.Tree != nil {
		tree := *p.Tree
		n.Tree = &tree
	}
}

type PlayerPatch struct {
	Name               *string
	Description        *string
	Inventory          *[]string
	Stats              *map[string]float64
	PoliticalAlignment *PoliticalAlignment
	AlignmentHistory   *[]AlignmentPoint
}

func (p PlayerPatch) Apply(pl *Player) {
	if p.Name != nil {
		pl.Name = *p.Name
	}
	if p.Description != nil {
		pl.Description = *p.Description
	}
	if p.Inventory != nil {
		pl.Inventory = append([]string{}, (*p.Inventory)...)
	}
	if p.Stats != nil {
		stats := make(map[string]float64, len(*p.Stats))
		for k, v := range *p.Stats {
			stats[k] = v
		}
		pl.Stats = stats
	}
	if p.PoliticalAlignment != nil {
		pl.PoliticalAlignment = p.PoliticalAlignment.clone()
	}
	if p.AlignmentHistory != nil {
		pl.AlignmentHistory = append([]AlignmentPoint{}, (*p.AlignmentHistory)...)
	}
}

type SessionPatch struct {
	CurrentNodeID *string
	Flags         *map[string]bool
	VisitedNodes  *[]string
}

func (p SessionPatch) Apply(s *Session) {
	if p.CurrentNodeID != nil {
		s.CurrentNodeID = *p.CurrentNodeID
	}
	if p.Flags != nil {
		flags := make(map[string]bool, len(*p.Flags))
		for k, v := range *p.Flags {
			flags[k] = v
		}
		s.Flags = flags
	}
	if p.VisitedNodes != nil {
		s.VisitedNodes = append([]string{}, (*p.VisitedNodes)...)
	}
}

type StoryPatch struct {
	RootNodeID *string
	Outline    *Outline
}

func (p StoryPatch) Apply(g *GameStory) {
	if p.RootNodeID != nil {
		g.RootNodeID = *p.RootNodeID
	}
	if p.Outline != nil {
		g.Outline = *p.Outline
	}
}
