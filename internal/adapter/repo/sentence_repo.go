package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"reelforge/internal/domain"
	"reelforge/internal/infra"
)

// SentenceRepositoryPG implements domain.SentenceRepository.
type SentenceRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewSentenceRepository creates a new sentence repository backed by PostgreSQL.
func NewSentenceRepository(pool *pgxpool.Pool) *SentenceRepositoryPG {
	return &SentenceRepositoryPG{pool: pool}
}

const sentenceColumns = `
id, section_id, position, text, image_prompt, video_prompt,
audio_file, image_file, video_file,
is_audio_dirty, is_image_dirty, is_video_dirty,
status, created_at, updated_at`

func scanSentence(row interface{ Scan(dest ...any) error }) (*domain.Sentence, error) {
	var s domain.Sentence
	err := row.Scan(
		&s.ID,
		&s.SectionID,
		&s.Position,
		&s.Text,
		&s.ImagePrompt,
		&s.VideoPrompt,
		&s.AudioFile,
		&s.ImageFile,
		&s.VideoFile,
		&s.AudioDirty,
		&s.ImageDirty,
		&s.VideoDirty,
		&s.Status,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByID fetches a sentence by its identifier.
func (r *SentenceRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Sentence, error) {
	query := `SELECT ` + sentenceColumns + ` FROM sentences WHERE id = $1;`
	s, err := scanSentence(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// ListByProject returns every sentence of the project in outline order.
func (r *SentenceRepositoryPG) ListByProject(ctx context.Context, projectID string) ([]domain.Sentence, error) {
	query := `
SELECT s.id, s.section_id, s.position, s.text, s.image_prompt, s.video_prompt,
       s.audio_file, s.image_file, s.video_file,
       s.is_audio_dirty, s.is_image_dirty, s.is_video_dirty,
       s.status, s.created_at, s.updated_at
FROM sentences s
JOIN sections sec ON sec.id = s.section_id
WHERE sec.project_id = $1
ORDER BY sec.position, s.position, s.created_at;
`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sentences []domain.Sentence
	for rows.Next() {
		s, err := scanSentence(rows)
		if err != nil {
			return nil, err
		}
		sentences = append(sentences, *s)
	}
	return sentences, rows.Err()
}

func dirtyColumn(medium domain.Medium) (string, error) {
	switch medium {
	case domain.MediumAudio:
		return "is_audio_dirty", nil
	case domain.MediumImage:
		return "is_image_dirty", nil
	case domain.MediumVideo:
		return "is_video_dirty", nil
	}
	return "", fmt.Errorf("%w: unknown medium %q", domain.ErrValidation, medium)
}

// MarkDirty flags every sentence in scope as stale for the medium. Zero
// affected rows is a no-op, not an error.
func (r *SentenceRepositoryPG) MarkDirty(ctx context.Context, medium domain.Medium, scope domain.DirtyScope) (int64, error) {
	col, err := dirtyColumn(medium)
	if err != nil {
		return 0, err
	}
	if scope.SectionID != "" {
		query := `UPDATE sentences SET ` + col + ` = TRUE, updated_at = NOW() WHERE section_id = $1;`
		tag, err := r.pool.Exec(ctx, query, scope.SectionID)
		if err != nil {
			return 0, err
		}
		return tag.RowsAffected(), nil
	}
	query := `
UPDATE sentences SET ` + col + ` = TRUE, updated_at = NOW()
WHERE section_id IN (SELECT id FROM sections WHERE project_id = $1);
`
	tag, err := r.pool.Exec(ctx, query, scope.ProjectID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// MarkDirtyByIDs flags the listed sentences as stale for the medium.
func (r *SentenceRepositoryPG) MarkDirtyByIDs(ctx context.Context, medium domain.Medium, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	col, err := dirtyColumn(medium)
	if err != nil {
		return err
	}
	query := `UPDATE sentences SET ` + col + ` = TRUE, updated_at = NOW() WHERE id = ANY($1);`
	_, err = r.pool.Exec(ctx, query, ids)
	return err
}

// UpdateContent applies a partial edit and sets the dependent dirty flags in
// the same statement, so the edit and its invalidation are atomic.
func (r *SentenceRepositoryPG) UpdateContent(ctx context.Context, id string, patch domain.ContentPatch) (*domain.Sentence, error) {
	query := `
UPDATE sentences SET
    text           = COALESCE($2, text),
    image_prompt   = COALESCE($3, image_prompt),
    video_prompt   = COALESCE($4, video_prompt),
    is_audio_dirty = is_audio_dirty OR $2 IS NOT NULL,
    is_image_dirty = is_image_dirty OR $2 IS NOT NULL OR $3 IS NOT NULL,
    is_video_dirty = is_video_dirty OR $2 IS NOT NULL OR $3 IS NOT NULL OR $4 IS NOT NULL,
    updated_at     = NOW()
WHERE id = $1
RETURNING ` + sentenceColumns + `;
`
	s, err := scanSentence(r.pool.QueryRow(ctx, query, id, patch.Text, patch.ImagePrompt, patch.VideoPrompt))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// SetStatus updates the sentence generation status.
func (r *SentenceRepositoryPG) SetStatus(ctx context.Context, id string, status domain.SentenceStatus) error {
	query := `UPDATE sentences SET status = $2, updated_at = NOW() WHERE id = $1;`
	_, err := r.pool.Exec(ctx, query, id, status)
	return err
}

// SetArtifact records a completed artifact: reference written, dirty flag
// cleared, sentence marked completed. Last-writer-wins; replays are no-op
// overwrites with identical content.
func (r *SentenceRepositoryPG) SetArtifact(ctx context.Context, id string, medium domain.Medium, file string) error {
	var query string
	switch medium {
	case domain.MediumAudio:
		query = `UPDATE sentences SET audio_file = $2, is_audio_dirty = FALSE, status = 'completed', updated_at = NOW() WHERE id = $1;`
	case domain.MediumImage:
		query = `UPDATE sentences SET image_file = $2, is_image_dirty = FALSE, status = 'completed', updated_at = NOW() WHERE id = $1;`
	case domain.MediumVideo:
		query = `UPDATE sentences SET video_file = $2, is_video_dirty = FALSE, status = 'completed', updated_at = NOW() WHERE id = $1;`
	default:
		return fmt.Errorf("%w: unknown medium %q", domain.ErrValidation, medium)
	}
	_, err := r.pool.Exec(ctx, query, id, file)
	return err
}

// ResetFailed flips failed sentences in scope back to pending and returns the
// affected rows in outline order.
func (r *SentenceRepositoryPG) ResetFailed(ctx context.Context, projectID string, ids []string) ([]domain.Sentence, error) {
	query := `
UPDATE sentences s SET status = 'pending', updated_at = NOW()
FROM sections sec
WHERE sec.id = s.section_id
  AND sec.project_id = $1
  AND s.status = 'failed'
  AND (cardinality($2::uuid[]) = 0 OR s.id = ANY($2::uuid[]))
RETURNING s.id, s.section_id, s.position, s.text, s.image_prompt, s.video_prompt,
          s.audio_file, s.image_file, s.video_file,
          s.is_audio_dirty, s.is_image_dirty, s.is_video_dirty,
          s.status, s.created_at, s.updated_at;
`
	if ids == nil {
		ids = []string{}
	}
	rows, err := r.pool.Query(ctx, query, projectID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sentences []domain.Sentence
	for rows.Next() {
		s, err := scanSentence(rows)
		if err != nil {
			return nil, err
		}
		sentences = append(sentences, *s)
	}
	return sentences, rows.Err()
}

// ResetGenerating flips generating sentences with no queued or running job
// back to pending. Cancellation leaves such rows behind; without the reset no
// job would ever resolve them.
func (r *SentenceRepositoryPG) ResetGenerating(ctx context.Context, projectID string) (int64, error) {
	query := `
UPDATE sentences s SET status = 'pending', updated_at = NOW()
FROM sections sec
WHERE sec.id = s.section_id
  AND sec.project_id = $1
  AND s.status = 'generating'
  AND NOT EXISTS (
      SELECT 1 FROM generation_jobs j
      WHERE j.sentence_id = s.id AND j.status IN ('queued', 'running')
  );
`
	tag, err := r.pool.Exec(ctx, query, projectID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ domain.SentenceRepository = (*SentenceRepositoryPG)(nil)
