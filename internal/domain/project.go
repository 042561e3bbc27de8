package domain

import "time"

// ProjectStatus enumerates authoring lifecycle states for a project.
type ProjectStatus string

const (
	ProjectStatusDraft      ProjectStatus = "draft"
	ProjectStatusGenerating ProjectStatus = "generating"
	ProjectStatusCompleted  ProjectStatus = "completed"
)

// Project is the top-level authoring unit. ImageModel and ImageStyle select
// the diffusion model/style pair used when planning image batches.
type Project struct {
	ID         string
	Title      string
	ImageModel string
	ImageStyle string
	Status     ProjectStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Section groups ordered sentences inside a project.
type Section struct {
	ID        string
	ProjectID string
	Title     string
	Position  int
	CreatedAt time.Time
	UpdatedAt time.Time
}
