package image

import "context"

// GenerateRequest describes a normalized request passed to any image provider.
// Model and Style come from the owning project's batch key; batches reuse one
// request shape per item so the engine keeps the model resident.
type GenerateRequest struct {
	Prompt    string
	Model     string
	Style     string
	RequestID string
}

// Asset represents a generated image.
type Asset struct {
	Format string
	Data   []byte
}

// Generator is the contract implemented by all image providers.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*Asset, error)
}
