package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"reelforge/internal/domain"
	"reelforge/internal/infra"
)

// ProjectRepositoryPG implements domain.ProjectRepository.
type ProjectRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewProjectRepository creates a new project repository backed by PostgreSQL.
func NewProjectRepository(pool *pgxpool.Pool) *ProjectRepositoryPG {
	return &ProjectRepositoryPG{pool: pool}
}

// GetByID fetches a project by its identifier.
func (r *ProjectRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	query := `
SELECT id, title, image_model, image_style, status, created_at, updated_at
FROM projects
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, id)
	var p domain.Project
	if err := row.Scan(&p.ID, &p.Title, &p.ImageModel, &p.ImageStyle, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListSections returns the project's sections in outline order.
func (r *ProjectRepositoryPG) ListSections(ctx context.Context, projectID string) ([]domain.Section, error) {
	query := `
SELECT id, project_id, title, position, created_at, updated_at
FROM sections
WHERE project_id = $1
ORDER BY position, created_at;
`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sections []domain.Section
	for rows.Next() {
		var s domain.Section
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.Title, &s.Position, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		sections = append(sections, s)
	}
	return sections, rows.Err()
}

// ProjectIDForSection resolves the owning project of a section.
func (r *ProjectRepositoryPG) ProjectIDForSection(ctx context.Context, sectionID string) (string, error) {
	var projectID string
	err := r.pool.QueryRow(ctx, `SELECT project_id FROM sections WHERE id = $1;`, sectionID).Scan(&projectID)
	if err != nil {
		if infra.IsNoRows(err) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return projectID, nil
}

var _ domain.ProjectRepository = (*ProjectRepositoryPG)(nil)
