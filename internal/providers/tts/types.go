package tts

import "context"

// GenerateRequest describes a normalized narration request.
type GenerateRequest struct {
	Text      string
	Voice     string
	RequestID string
}

// Asset represents synthesized narration audio.
type Asset struct {
	Format string
	Data   []byte
}

// Generator is the contract implemented by all speech providers.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*Asset, error)
}
