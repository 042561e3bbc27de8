package generation

import (
	"context"
	"fmt"

	"reelforge/internal/domain"
)

// CancelReason is the synthetic error message written onto cancelled jobs.
const CancelReason = "Cancelled by user"

// CancelAll fails every queued job of the given types for the project. Jobs
// already running finish naturally; the handler contract offers no
// preemption. An empty type list means every generation family.
func (s *Service) CancelAll(ctx context.Context, projectID string, types []domain.JobType) (int64, error) {
	if len(types) == 0 {
		types = domain.GenerationJobTypes()
	}
	for _, t := range types {
		if !domain.ValidJobType(t) {
			return 0, fmt.Errorf("%w: unknown job type %q", domain.ErrValidation, t)
		}
	}
	cancelled, err := s.jobs.CancelQueued(ctx, projectID, types, CancelReason)
	if err != nil {
		return 0, fmt.Errorf("cancel queued jobs: %w", err)
	}
	if cancelled > 0 {
		// Sentences whose only job was just cancelled would stay generating
		// forever; flip them back so retry and the UI see an honest state.
		if _, err := s.sentences.ResetGenerating(ctx, projectID); err != nil {
			s.logger.Warn().Err(err).Str("project_id", projectID).Msg("reset stranded sentences failed")
		}
	}
	s.logger.Info().
		Str("project_id", projectID).
		Int64("cancelled", cancelled).
		Msg("queued jobs cancelled")
	return cancelled, nil
}

// RetryFailed resets failed sentences in scope to pending and re-dispatches
// exactly one job per sentence for the medium still missing, image before
// video when both are. An empty sentenceIDs slice retries the whole project.
func (s *Service) RetryFailed(ctx context.Context, projectID string, sentenceIDs []string) (*BulkResult, error) {
	reset, err := s.sentences.ResetFailed(ctx, projectID, sentenceIDs)
	if err != nil {
		return nil, fmt.Errorf("reset failed sentences: %w", err)
	}
	if len(reset) == 0 {
		return &BulkResult{Queued: 0, Message: "No failed sentences to retry"}, nil
	}

	queued := 0
	for i := range reset {
		medium, ok := missingMedium(&reset[i])
		if !ok {
			continue
		}
		if _, err := s.submitItem(ctx, projectID, &reset[i], medium); err != nil {
			return nil, err
		}
		if err := s.sentences.SetStatus(ctx, reset[i].ID, domain.SentenceStatusGenerating); err != nil {
			s.logger.Warn().Err(err).Str("sentence_id", reset[i].ID).Msg("mark sentence generating failed")
		}
		queued++
	}

	s.logger.Info().
		Str("project_id", projectID).
		Int("reset", len(reset)).
		Int("queued", queued).
		Msg("failed sentences retried")
	return &BulkResult{Queued: queued}, nil
}

// missingMedium picks the single medium a retry should regenerate, in
// image -> video -> audio priority so a video retry never outruns its image.
func missingMedium(s *domain.Sentence) (domain.Medium, bool) {
	switch {
	case EligibleImage(s):
		return domain.MediumImage, true
	case EligibleVideo(s):
		return domain.MediumVideo, true
	case EligibleAudio(s):
		return domain.MediumAudio, true
	}
	return "", false
}
