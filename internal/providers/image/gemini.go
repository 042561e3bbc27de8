package image

import (
	"context"

	"reelforge/internal/providers/genai"
)

type GeminiGenerator struct {
	client *genai.Client
}

func NewGeminiGenerator(client *genai.Client) *GeminiGenerator {
	return &GeminiGenerator{client: client}
}

func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) (*Asset, error) {
	asset, err := g.client.GenerateImage(ctx, genai.ImageRequest{
		Prompt:    req.Prompt,
		Model:     req.Model,
		Style:     req.Style,
		RequestID: req.RequestID,
	})
	if err != nil {
		return nil, err
	}
	return &Asset{Format: asset.Format, Data: asset.Data}, nil
}

var _ Generator = (*GeminiGenerator)(nil)
