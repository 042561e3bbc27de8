package generation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"reelforge/internal/domain"
	"reelforge/internal/infra"
)

// Service orchestrates generation submission: eligibility, batch planning,
// job creation and dispatch. It never executes work itself; execution
// handlers pick jobs up asynchronously through the job store.
type Service struct {
	projects  domain.ProjectRepository
	sentences domain.SentenceRepository
	jobs      domain.JobRepository
	disp      Dispatcher
	logger    infra.Logger
}

// NewService wires the orchestration core.
func NewService(
	projects domain.ProjectRepository,
	sentences domain.SentenceRepository,
	jobs domain.JobRepository,
	disp Dispatcher,
	logger infra.Logger,
) *Service {
	return &Service{
		projects:  projects,
		sentences: sentences,
		jobs:      jobs,
		disp:      disp,
		logger:    logger,
	}
}

// BulkResult reports the outcome of a bulk submission. Queued zero with a
// message is a success ("already up to date"), never an error.
type BulkResult struct {
	Queued  int    `json:"queued"`
	Batches int    `json:"batches,omitempty"`
	Message string `json:"message,omitempty"`
}

// GenerateAll submits every eligible sentence of the project for the medium.
// With force, dirty flags are first flipped for every candidate with a
// non-empty source so regeneration reaches up-to-date artifacts too.
func (s *Service) GenerateAll(ctx context.Context, projectID string, medium domain.Medium, force bool) (*BulkResult, error) {
	if !domain.ValidMedium(medium) {
		return nil, fmt.Errorf("%w: unknown medium %q", domain.ErrValidation, medium)
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	sections, err := s.projects.ListSections(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if len(sections) == 0 {
		return nil, fmt.Errorf("%w: project has no sections", domain.ErrValidation)
	}

	sentences, err := s.sentences.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if force {
		ids := ForceCandidates(sentences, medium)
		if err := s.sentences.MarkDirtyByIDs(ctx, medium, ids); err != nil {
			return nil, fmt.Errorf("force mark dirty: %w", err)
		}
		applyForce(sentences, medium, ids)
	}

	eligible := FilterEligible(sentences, medium)
	if len(eligible) == 0 {
		return &BulkResult{Queued: 0, Message: upToDateMessage(medium)}, nil
	}

	var batches int
	switch medium {
	case domain.MediumImage:
		plans := PlanImageBatches(eligible, project.ImageModel, project.ImageStyle)
		for _, plan := range plans {
			if err := s.submitBatch(ctx, projectID, plan); err != nil {
				return nil, err
			}
		}
		batches = len(plans)
	default:
		for i := range eligible {
			if _, err := s.submitItem(ctx, projectID, &eligible[i], medium); err != nil {
				return nil, err
			}
		}
	}

	for i := range eligible {
		if err := s.sentences.SetStatus(ctx, eligible[i].ID, domain.SentenceStatusGenerating); err != nil {
			s.logger.Warn().Err(err).Str("sentence_id", eligible[i].ID).Msg("mark sentence generating failed")
		}
	}

	s.logger.Info().
		Str("project_id", projectID).
		Str("medium", string(medium)).
		Bool("force", force).
		Int("queued", len(eligible)).
		Int("batches", batches).
		Msg("bulk generation queued")

	return &BulkResult{Queued: len(eligible), Batches: batches}, nil
}

// GenerateOne submits a single sentence for the medium. It force-marks the
// sentence dirty so explicit regeneration always proceeds, but rejects
// sentences missing the medium's input (and video without its image) with
// ErrValidation, and sentences with a job already in flight with
// ErrAlreadyInFlight.
func (s *Service) GenerateOne(ctx context.Context, sentenceID string, medium domain.Medium) (string, error) {
	if !domain.ValidMedium(medium) {
		return "", fmt.Errorf("%w: unknown medium %q", domain.ErrValidation, medium)
	}

	sentence, err := s.sentences.GetByID(ctx, sentenceID)
	if err != nil {
		return "", err
	}
	if sentence.Source(medium) == "" {
		return "", fmt.Errorf("%w: sentence has no %s input", domain.ErrValidation, medium)
	}
	if medium == domain.MediumVideo && sentence.ImageFile == "" {
		return "", fmt.Errorf("%w: video generation requires an existing image", domain.ErrValidation)
	}

	active, err := s.jobs.CountActiveForSentence(ctx, sentenceID, domain.JobTypeForMedium(medium))
	if err != nil {
		return "", err
	}
	if active > 0 {
		return "", domain.ErrAlreadyInFlight
	}

	if err := s.sentences.MarkDirtyByIDs(ctx, medium, []string{sentenceID}); err != nil {
		return "", fmt.Errorf("force mark dirty: %w", err)
	}

	projectID, err := s.projectIDForSentence(ctx, sentence)
	if err != nil {
		return "", err
	}
	jobID, err := s.submitItem(ctx, projectID, sentence, medium)
	if err != nil {
		return "", err
	}
	if err := s.sentences.SetStatus(ctx, sentenceID, domain.SentenceStatusGenerating); err != nil {
		s.logger.Warn().Err(err).Str("sentence_id", sentenceID).Msg("mark sentence generating failed")
	}
	return jobID, nil
}

// submitItem creates one per-sentence job and dispatches it. The insert
// always happens before the dispatch so a handler racing the HTTP response
// still finds its row.
func (s *Service) submitItem(ctx context.Context, projectID string, sentence *domain.Sentence, medium domain.Medium) (string, error) {
	var payload any
	switch medium {
	case domain.MediumAudio:
		payload = AudioPayload{SentenceID: sentence.ID, Text: sentence.Source(domain.MediumAudio)}
	case domain.MediumImage:
		project, err := s.projects.GetByID(ctx, projectID)
		if err != nil {
			return "", err
		}
		payload = ImagePayload{
			SentenceID: sentence.ID,
			Prompt:     sentence.Source(domain.MediumImage),
			ModelID:    project.ImageModel,
			StyleID:    project.ImageStyle,
		}
	case domain.MediumVideo:
		payload = VideoPayload{
			SentenceID: sentence.ID,
			Prompt:     sentence.Source(domain.MediumVideo),
			ImageFile:  sentence.ImageFile,
		}
	}
	job := &domain.Job{
		ID:         uuid.NewString(),
		SentenceID: sentence.ID,
		ProjectID:  projectID,
		Type:       domain.JobTypeForMedium(medium),
		TotalSteps: 1,
	}
	return job.ID, s.createAndDispatch(ctx, job, payload)
}

// submitBatch creates one image_batch job for the plan and dispatches it.
func (s *Service) submitBatch(ctx context.Context, projectID string, plan BatchPlan) error {
	job := &domain.Job{
		ID:         uuid.NewString(),
		ProjectID:  projectID,
		Type:       domain.JobTypeImageBatch,
		TotalSteps: len(plan.Items),
	}
	payload := BatchPayload{ModelID: plan.Key.ModelID, StyleID: plan.Key.StyleID, Items: plan.Items}
	return s.createAndDispatch(ctx, job, payload)
}

func (s *Service) createAndDispatch(ctx context.Context, job *domain.Job, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode job payload: %w", err)
	}
	job.Payload = raw
	if err := s.jobs.Create(ctx, job); err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return s.disp.Dispatch(ctx, Event{JobID: job.ID, Type: job.Type})
}

func (s *Service) projectIDForSentence(ctx context.Context, sentence *domain.Sentence) (string, error) {
	return s.projects.ProjectIDForSection(ctx, sentence.SectionID)
}

func upToDateMessage(medium domain.Medium) string {
	switch medium {
	case domain.MediumAudio:
		return "All narration audio already up to date"
	case domain.MediumImage:
		return "All images already up to date"
	case domain.MediumVideo:
		return "No eligible sentences for video generation"
	}
	return "Nothing to generate"
}
