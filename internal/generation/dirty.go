package generation

import (
	"context"
	"fmt"

	"reelforge/internal/domain"
	"reelforge/internal/infra"
)

// Tracker mutates per-medium dirty flags. Explicit marks go through MarkDirty;
// implicit marks ride along sentence edits inside
// SentenceRepository.UpdateContent, which sets the dependent flags in the same
// statement as the edit.
type Tracker struct {
	sentences domain.SentenceRepository
	logger    infra.Logger
}

// NewTracker constructs a dirty tracker over the sentence store.
func NewTracker(sentences domain.SentenceRepository, logger infra.Logger) *Tracker {
	return &Tracker{sentences: sentences, logger: logger}
}

// MarkDirty flags every sentence in scope as stale for the medium and returns
// how many were marked. An empty scope is a no-op, not an error.
func (t *Tracker) MarkDirty(ctx context.Context, medium domain.Medium, scope domain.DirtyScope) (int64, error) {
	if !domain.ValidMedium(medium) {
		return 0, fmt.Errorf("%w: unknown medium %q", domain.ErrValidation, medium)
	}
	if scope.ProjectID == "" && scope.SectionID == "" {
		return 0, fmt.Errorf("%w: dirty scope requires a project or section", domain.ErrValidation)
	}
	marked, err := t.sentences.MarkDirty(ctx, medium, scope)
	if err != nil {
		return 0, fmt.Errorf("mark dirty: %w", err)
	}
	t.logger.Debug().
		Str("medium", string(medium)).
		Str("project_id", scope.ProjectID).
		Str("section_id", scope.SectionID).
		Int64("marked", marked).
		Msg("dirty flags set")
	return marked, nil
}

// UpdateContent applies a partial sentence edit. The repository marks the
// dependent media dirty atomically with the edit (domain.DependentMedia).
func (t *Tracker) UpdateContent(ctx context.Context, sentenceID string, patch domain.ContentPatch) (*domain.Sentence, error) {
	if patch.Text == nil && patch.ImagePrompt == nil && patch.VideoPrompt == nil {
		return nil, fmt.Errorf("%w: empty patch", domain.ErrValidation)
	}
	return t.sentences.UpdateContent(ctx, sentenceID, patch)
}
