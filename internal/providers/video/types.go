package video

import "context"

// GenerateRequest describes a normalized clip request. Image carries the
// prerequisite still the engine animates.
type GenerateRequest struct {
	Prompt    string
	Image     []byte
	RequestID string
}

// Asset represents a generated clip.
type Asset struct {
	Format string
	Length int
	Data   []byte
}

// Generator is the contract implemented by all video providers.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*Asset, error)
}
