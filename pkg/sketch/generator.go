package sketch

import (
	"context"
	"fmt"
)

// TextClient is the transport to the generation collaborator; the
// production implementation is pkg/genai.
type TextClient interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// GeminiGenerator turns descriptions and repair requests into prompts
// and parses the collaborator's structured responses.
type GeminiGenerator struct {
	client TextClient
}

func NewGeminiGenerator(client TextClient) *GeminiGenerator {
	return &GeminiGenerator{client: client}
}

func (g *GeminiGenerator) Generate(ctx context.Context, description string) (*Artifact, error) {
	raw, err := g.client.GenerateJSON(ctx, generationPrompt(description))
	if err != nil {
		return nil, fmt.Errorf("generation request: %w", err)
	}
	return ParseArtifact(raw)
}

func (g *GeminiGenerator) Repair(ctx context.Context, req RepairRequest) (*Artifact, error) {
	raw, err := g.client.GenerateJSON(ctx, repairPrompt(req))
	if err != nil {
		return nil, fmt.Errorf("repair request: %w", err)
	}
	return ParseArtifact(raw)
}
