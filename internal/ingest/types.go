package ingest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"storynexus/internal/story"
)

// StoryFile is a hand-authored story. Nodes refer to each other by key;
// keys are replaced by store ids on import.
type StoryFile struct {
	story.Outline `yaml:",inline"`

	Topology string     `yaml:"topology"`
	Size     string     `yaml:"size"`
	GridSize int        `yaml:"grid_size"`
	Root     string     `yaml:"root"`
	Nodes    []NodeSpec `yaml:"nodes"`
}

type NodeSpec struct {
	Key     string       `yaml:"key"`
	Content string       `yaml:"content"`
	Parent  string       `yaml:"parent"`
	X       *int         `yaml:"x"`
	Y       *int         `yaml:"y"`
	Terrain string       `yaml:"terrain"`
	Choices []ChoiceSpec `yaml:"choices"`
}

type ChoiceSpec struct {
	ID           string                    `yaml:"id"`
	Text         string                    `yaml:"text"`
	Next         string                    `yaml:"next"`
	Consequences []story.ConsequenceRecord `yaml:"consequences"`
}

func parseFile(path string) (*StoryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sf StoryFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	return &sf, nil
}

// plan is a checked story file ready to be written.
type plan struct {
	story *story.GameStory
	nodes []*story.StoryNode
	keys  []string
	// links[i] maps choice id to the key it leads to for nodes[i].
	links   []map[string]string
	parents []string
	root    string
}

func (sf *StoryFile) plan() (*plan, error) {
	if sf.Title == "" {
		return nil, fmt.Errorf("story missing title")
	}
	topology, err := story.ParseTopology(sf.Topology)
	if err != nil {
		return nil, err
	}
	size := story.SizeNormal
	if sf.Size != "" {
		if size, err = story.ParseStorySize(sf.Size); err != nil {
			return nil, err
		}
	}
	if len(sf.Nodes) == 0 {
		return nil, fmt.Errorf("story has no nodes")
	}

	p := &plan{story: &story.GameStory{Outline: sf.Outline, Size: size, Topology: topology}}
	if topology == story.TopologyGrid {
		p.story.GridSize = sf.GridSize
	}

	index := make(map[string]int, len(sf.Nodes))
	for i, spec := range sf.Nodes {
		if spec.Key == "" {
			return nil, fmt.Errorf("node %d missing key", i+1)
		}
		if _, dup := index[spec.Key]; dup {
			return nil, fmt.Errorf("duplicate node key %q", spec.Key)
		}
		index[spec.Key] = i
	}

	for _, spec := range sf.Nodes {
		choices := make([]story.Choice, 0, len(spec.Choices))
		links := make(map[string]string)
		for j, cs := range spec.Choices {
			id := cs.ID
			if id == "" {
				id = fmt.Sprint(j + 1)
			}
			if cs.Next != "" {
				if _, ok := index[cs.Next]; !ok {
					return nil, fmt.Errorf("node %q choice %q leads to unknown key %q", spec.Key, id, cs.Next)
				}
				links[id] = cs.Next
			}
			choices = append(choices, story.Choice{
				ID:           id,
				Text:         cs.Text,
				Consequences: story.ConsequencesFromRecords(cs.Consequences),
			})
		}

		var node *story.StoryNode
		switch topology {
		case story.TopologyGrid:
			if spec.X == nil || spec.Y == nil {
				return nil, fmt.Errorf("grid node %q needs x and y", spec.Key)
			}
			if spec.Parent != "" {
				return nil, fmt.Errorf("grid node %q cannot have a parent", spec.Key)
			}
			node = story.NewGridNode("", *spec.X, *spec.Y, spec.Terrain, spec.Content, choices)
		default:
			if spec.X != nil || spec.Y != nil {
				return nil, fmt.Errorf("tree node %q cannot have coordinates", spec.Key)
			}
			if spec.Parent != "" {
				if _, ok := index[spec.Parent]; !ok {
					return nil, fmt.Errorf("node %q has unknown parent %q", spec.Key, spec.Parent)
				}
			}
			node = story.NewTreeNode("", "", spec.Content, choices)
		}
		if err := node.CheckAddressing(topology); err != nil {
			return nil, fmt.Errorf("node %q: %w", spec.Key, err)
		}

		p.nodes = append(p.nodes, node)
		p.keys = append(p.keys, spec.Key)
		p.links = append(p.links, links)
		p.parents = append(p.parents, spec.Parent)
	}

	p.root = sf.Root
	if p.root == "" {
		p.root = sf.Nodes[0].Key
	}
	if _, ok := index[p.root]; !ok {
		return nil, fmt.Errorf("unknown root key %q", p.root)
	}
	return p, nil
}
