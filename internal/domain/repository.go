package domain

import "context"

// DirtyScope selects the sentences a dirty mark applies to: a whole project,
// or a single section when SectionID is set.
type DirtyScope struct {
	ProjectID string
	SectionID string
}

// ContentPatch carries a partial sentence edit. Nil fields are untouched.
// Implementations must set the dependent dirty flags (DependentMedia) in the
// same statement as the edit so no reader observes a changed prompt with a
// stale flag.
type ContentPatch struct {
	Text        *string
	ImagePrompt *string
	VideoPrompt *string
}

// ProjectRepository defines access methods for projects and their outline.
type ProjectRepository interface {
	GetByID(ctx context.Context, id string) (*Project, error)
	ListSections(ctx context.Context, projectID string) ([]Section, error)
	ProjectIDForSection(ctx context.Context, sectionID string) (string, error)
}

// SentenceRepository defines persistence for sentences and their dirty flags.
type SentenceRepository interface {
	GetByID(ctx context.Context, id string) (*Sentence, error)
	ListByProject(ctx context.Context, projectID string) ([]Sentence, error)
	MarkDirty(ctx context.Context, medium Medium, scope DirtyScope) (int64, error)
	MarkDirtyByIDs(ctx context.Context, medium Medium, ids []string) error
	UpdateContent(ctx context.Context, id string, patch ContentPatch) (*Sentence, error)
	SetStatus(ctx context.Context, id string, status SentenceStatus) error
	// SetArtifact records a completed artifact: writes the reference, clears
	// the medium's dirty flag and marks the sentence completed. It must be
	// idempotent (last-writer-wins) since completion events can replay.
	SetArtifact(ctx context.Context, id string, medium Medium, file string) error
	// ResetFailed flips failed sentences in scope back to pending and returns
	// the affected rows. An empty ids slice means the whole project.
	ResetFailed(ctx context.Context, projectID string, ids []string) ([]Sentence, error)
	// ResetGenerating flips generating sentences with no active job back to
	// pending, so cancellation does not strand rows in a state no job will
	// ever resolve. A still-running handler overwrites the status on
	// completion either way.
	ResetGenerating(ctx context.Context, projectID string) (int64, error)
}

// JobRepository exclusively owns generation job rows.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, id string) (*Job, error)
	ListByProject(ctx context.Context, projectID string) ([]Job, error)
	// ClaimNext atomically moves the oldest queued job to running and returns
	// it, or ErrNotFound when the queue is empty.
	ClaimNext(ctx context.Context) (*Job, error)
	MarkCompleted(ctx context.Context, id, resultFile string) error
	// MarkFailed transitions queued or running jobs to failed; it is a no-op
	// on terminal rows.
	MarkFailed(ctx context.Context, id, reason string) error
	UpdateProgress(ctx context.Context, id string, progress, currentStep int, stepName string) error
	// CancelQueued fails every queued job of the given types for the project
	// with the supplied reason and returns how many rows changed.
	CancelQueued(ctx context.Context, projectID string, types []JobType, reason string) (int64, error)
	CountActiveForSentence(ctx context.Context, sentenceID string, t JobType) (int, error)
}
