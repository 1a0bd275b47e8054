package generation

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"storynexus/internal/story"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(template.New("prompts").Funcs(template.FuncMap{
	"add":   func(a, b int) int { return a + b },
	"join":  strings.Join,
	"upper": func(d Direction) string { return strings.ToUpper(string(d)) },
}).ParseFS(promptFS, "prompts/*.tmpl"))

// GameInfo seeds outline generation.
type GameInfo struct {
	Genre          string
	Theme          string
	AdditionalInfo string
}

type Direction string

const (
	North     Direction = "north"
	NorthEast Direction = "northeast"
	East      Direction = "east"
	SouthEast Direction = "southeast"
	South     Direction = "south"
	SouthWest Direction = "southwest"
	West      Direction = "west"
	NorthWest Direction = "northwest"
)

// Neighbor summarizes an already generated grid node next to the one being
// generated.
type Neighbor struct {
	Direction Direction
	Terrain   string
	Content   string
}

type Position struct {
	X, Y          int
	Width, Height int
}

type GridNodeInput struct {
	Outline   story.Outline
	World     *story.WorldDetails
	Neighbors []Neighbor
	Position  Position
}

// ParentScene is the node and choice a tree node continues from.
type ParentScene struct {
	Content    string
	ChoiceText string
}

type TreeNodeInput struct {
	Outline  story.Outline
	World    *story.WorldDetails
	Parent   *ParentScene
	Depth    int
	MaxDepth int
}

func render(name string, data any, user string) (Request, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return Request{}, fmt.Errorf("rendering %s prompt: %w", name, err)
	}
	return Request{SystemPrompt: strings.TrimSpace(buf.String()), UserPrompt: user}, nil
}

func OutlinePrompt(info GameInfo) (Request, error) {
	return render("outline.tmpl", info, "Generate game story")
}

func WorldDetailsPrompt(outline story.Outline, nodeCount int) (Request, error) {
	return render("world_details.tmpl", struct {
		Outline   story.Outline
		NodeCount int
	}{outline, nodeCount}, "Generate world details")
}

func GridNodePrompt(in GridNodeInput) (Request, error) {
	return render("grid_node.tmpl", in, "Generate story node")
}

func TreeNodePrompt(in TreeNodeInput) (Request, error) {
	return render("tree_node.tmpl", in, "Generate story node")
}
