package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"reelforge/internal/domain"
	"reelforge/internal/infra"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

const jobColumns = `
id, sentence_id, project_id, job_type, status, progress,
error_message, result_file, payload,
total_steps, current_step, step_name,
started_at, completed_at, created_at`

func scanJob(row interface{ Scan(dest ...any) error }) (*domain.Job, error) {
	var j domain.Job
	var sentenceID *string
	err := row.Scan(
		&j.ID,
		&sentenceID,
		&j.ProjectID,
		&j.Type,
		&j.Status,
		&j.Progress,
		&j.ErrorMessage,
		&j.ResultFile,
		&j.Payload,
		&j.TotalSteps,
		&j.CurrentStep,
		&j.StepName,
		&j.StartedAt,
		&j.CompletedAt,
		&j.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if sentenceID != nil {
		j.SentenceID = *sentenceID
	}
	return &j, nil
}

func nullableID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

// Create inserts a new queued job row.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	query := `
INSERT INTO generation_jobs (id, sentence_id, project_id, job_type, status, payload, total_steps, step_name)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`
	payload := job.Payload
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		nullableID(job.SentenceID),
		job.ProjectID,
		job.Type,
		domain.JobStatusQueued,
		payload,
		job.TotalSteps,
		job.StepName,
	)
	return err
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM generation_jobs WHERE id = $1;`
	j, err := scanJob(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return j, nil
}

// ListByProject returns every job of the project, newest last.
func (r *JobRepositoryPG) ListByProject(ctx context.Context, projectID string) ([]domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM generation_jobs WHERE project_id = $1 ORDER BY created_at;`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

// ClaimNext atomically moves the oldest queued job to running. Skip-locked so
// concurrent workers never claim the same row.
func (r *JobRepositoryPG) ClaimNext(ctx context.Context) (*domain.Job, error) {
	query := `
WITH next_job AS (
    SELECT id
    FROM generation_jobs
    WHERE status = 'queued'
    ORDER BY created_at ASC
    FOR UPDATE SKIP LOCKED
    LIMIT 1
)
UPDATE generation_jobs j
SET status = 'running', started_at = NOW()
WHERE j.id IN (SELECT id FROM next_job)
RETURNING ` + jobColumns + `;
`
	j, err := scanJob(r.pool.QueryRow(ctx, query))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return j, nil
}

// MarkCompleted finishes a running job with its result reference.
func (r *JobRepositoryPG) MarkCompleted(ctx context.Context, id, resultFile string) error {
	query := `
UPDATE generation_jobs
SET status = 'completed', progress = 100, result_file = $2, completed_at = NOW()
WHERE id = $1 AND status = 'running';
`
	_, err := r.pool.Exec(ctx, query, id, resultFile)
	return err
}

// MarkFailed transitions queued or running jobs to failed. The status guard
// makes it a no-op on terminal rows.
func (r *JobRepositoryPG) MarkFailed(ctx context.Context, id, reason string) error {
	query := `
UPDATE generation_jobs
SET status = 'failed', error_message = $2, completed_at = NOW()
WHERE id = $1 AND status IN ('queued', 'running');
`
	_, err := r.pool.Exec(ctx, query, id, reason)
	return err
}

// UpdateProgress records step metadata for a running job.
func (r *JobRepositoryPG) UpdateProgress(ctx context.Context, id string, progress, currentStep int, stepName string) error {
	query := `
UPDATE generation_jobs
SET progress = $2, current_step = $3, step_name = $4
WHERE id = $1 AND status = 'running';
`
	_, err := r.pool.Exec(ctx, query, id, progress, currentStep, stepName)
	return err
}

// CancelQueued fails every queued job of the given types for the project.
// Running jobs are left to finish naturally.
func (r *JobRepositoryPG) CancelQueued(ctx context.Context, projectID string, types []domain.JobType, reason string) (int64, error) {
	query := `
UPDATE generation_jobs
SET status = 'failed', error_message = $3, completed_at = NOW()
WHERE project_id = $1 AND status = 'queued' AND job_type = ANY($2);
`
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}
	tag, err := r.pool.Exec(ctx, query, projectID, names, reason)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CountActiveForSentence counts queued/running jobs of the type for a sentence.
func (r *JobRepositoryPG) CountActiveForSentence(ctx context.Context, sentenceID string, t domain.JobType) (int, error) {
	query := `
SELECT COUNT(*) FROM generation_jobs
WHERE sentence_id = $1 AND job_type = $2 AND status IN ('queued', 'running');
`
	var count int
	if err := r.pool.QueryRow(ctx, query, sentenceID, t).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
