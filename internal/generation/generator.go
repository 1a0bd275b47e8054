package generation

import (
	"context"
	"fmt"

	"storynexus/internal/parser"
	"storynexus/internal/story"
)

// Generator renders prompts, calls the service and decodes the results.
type Generator struct {
	svc Service
}

func NewGenerator(svc Service) *Generator {
	return &Generator{svc: svc}
}

func (g *Generator) call(ctx context.Context, req Request) (string, error) {
	resp, err := g.svc.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Text()
}

func (g *Generator) Outline(ctx context.Context, info GameInfo) (*story.Outline, error) {
	req, err := OutlinePrompt(info)
	if err != nil {
		return nil, err
	}
	text, err := g.call(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to generate game story: %w", err)
	}
	outline, err := parser.DecodeOutline(text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate game story: %w", err)
	}
	return outline, nil
}

func (g *Generator) WorldDetails(ctx context.Context, outline story.Outline, nodeCount int) (*story.WorldDetails, error) {
	req, err := WorldDetailsPrompt(outline, nodeCount)
	if err != nil {
		return nil, err
	}
	text, err := g.call(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to generate world details: %w", err)
	}
	details, err := parser.DecodeWorldDetails(text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate world details: %w", err)
	}
	return details, nil
}

func (g *Generator) GridNode(ctx context.Context, in GridNodeInput) (*parser.NodeContent, error) {
	req, err := GridNodePrompt(in)
	if err != nil {
		return nil, err
	}
	return g.node(ctx, req)
}

func (g *Generator) TreeNode(ctx context.Context, in TreeNodeInput) (*parser.NodeContent, error) {
	req, err := TreeNodePrompt(in)
	if err != nil {
		return nil, err
	}
	return g.node(ctx, req)
}

func (g *Generator) node(ctx context.Context, req Request) (*parser.NodeContent, error) {
	text, err := g.call(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to generate story node: %w", err)
	}
	node, err := parser.DecodeNode(text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate story node: %w", err)
	}
	return node, nil
}
