package parser

import (
	"encoding/json"
	"fmt"
	"strconv"

	"storynexus/internal/story"
)

func DecodeOutline(text string) (*story.Outline, error) {
	obj, err := Extract(text)
	if err != nil {
		return nil, err
	}
	if err := require("outline", obj, "title", "mainPlot", "keyCharacters", "majorStoryBeats"); err != nil {
		return nil, err
	}
	var outline story.Outline
	if err := reshape("outline", obj, &outline); err != nil {
		return nil, err
	}
	return &outline, nil
}

func DecodeWorldDetails(text string) (*story.WorldDetails, error) {
	obj, err := Extract(text)
	if err != nil {
		return nil, err
	}
	if err := require("world details", obj, "locations", "environments"); err != nil {
		return nil, err
	}
	var details story.WorldDetails
	if err := reshape("world details", obj, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// NodeContent is the generated body of a story node before it is placed
// in a graph.
type NodeContent struct {
	Content string
	Terrain string
	Choices []story.Choice
}

type rawChoice struct {
	ID           any             `json:"id"`
	Text         any             `json:"text"`
	Consequences json.RawMessage `json:"consequences"`
}

// DecodeNode requires content and choices. Non-string content is kept as
// its JSON encoding. Choice ids that are missing or repeat an earlier id
// are replaced by the choice's 1-based position. Links in generated output
// are ignored.
func DecodeNode(text string) (*NodeContent, error) {
	obj, err := Extract(text)
	if err != nil {
		return nil, err
	}
	if err := require("story node", obj, "content", "choices"); err != nil {
		return nil, err
	}

	rawChoices, ok := obj["choices"].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: story node choices must be a list", story.ErrParseFailure)
	}
	data, err := json.Marshal(rawChoices)
	if err != nil {
		return nil, fmt.Errorf("re-encoding story node choices: %w", err)
	}
	var choices []rawChoice
	if err := json.Unmarshal(data, &choices); err != nil {
		return nil, fmt.Errorf("%w: decoding story node choices: %v", story.ErrParseFailure, err)
	}

	node := &NodeContent{
		Content: stringify(obj["content"]),
		Choices: make([]story.Choice, 0, len(choices)),
	}
	if terrain, ok := obj["terrain"]; ok && terrain != nil {
		node.Terrain = stringify(terrain)
	}

	seen := make(map[string]bool, len(choices))
	for i, rc := range choices {
		id := ""
		if rc.ID != nil {
			id = stringify(rc.ID)
		}
		if id == "" || seen[id] {
			pos := i + 1
			for seen[strconv.Itoa(pos)] {
				pos += len(choices)
			}
			id = strconv.Itoa(pos)
		}
		seen[id] = true

		var consequences story.Consequences
		if len(rc.Consequences) > 0 {
			if err := json.Unmarshal(rc.Consequences, &consequences); err != nil {
				consequences = nil
			}
		}

		text := ""
		if rc.Text != nil {
			text = stringify(rc.Text)
		}
		node.Choices = append(node.Choices, story.Choice{
			ID:           id,
			Text:         text,
			Consequences: consequences,
		})
	}
	return node, nil
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}
