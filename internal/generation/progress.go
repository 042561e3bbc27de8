package generation

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"reelforge/internal/domain"
)

// snapshotTTL bounds how stale an aggregate snapshot may be. Consumers of the
// push stream must tolerate up to one tick of staleness anyway, so serving a
// cached snapshot inside the same window is free.
const snapshotTTL = 2 * time.Second

// Aggregator computes per-job and per-project progress by reading the job
// store. Both read paths (poll and push) go through it so the progress math
// never diverges.
type Aggregator struct {
	projects  domain.ProjectRepository
	sentences domain.SentenceRepository
	jobs      domain.JobRepository
	cache     *gocache.Cache
}

// NewAggregator constructs the shared progress read model.
func NewAggregator(projects domain.ProjectRepository, sentences domain.SentenceRepository, jobs domain.JobRepository) *Aggregator {
	return &Aggregator{
		projects:  projects,
		sentences: sentences,
		jobs:      jobs,
		cache:     gocache.New(snapshotTTL, time.Minute),
	}
}

// JobStatus is the poll path: the current row for one job, uncached so a 2s
// poll interval always sees fresh state.
func (a *Aggregator) JobStatus(ctx context.Context, jobID string) (*domain.Job, error) {
	return a.jobs.GetByID(ctx, jobID)
}

// SectionProgress reports one outline entry in a snapshot.
type SectionProgress struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Snapshot is the aggregate progress of a project, recomputed on a fixed
// tick. Failed jobs count toward processed work but are reported separately
// so completion percentage and failure rate stay independently observable.
type Snapshot struct {
	ProjectID      string            `json:"project_id"`
	CurrentSection int               `json:"current_section"`
	TotalSections  int               `json:"total_sections"`
	Sections       []SectionProgress `json:"sections"`
	Percent        float64           `json:"percent"`
	TotalJobs      int               `json:"total_jobs"`
	QueuedCount    int               `json:"queued_count"`
	RunningCount   int               `json:"running_count"`
	CompletedCount int               `json:"completed_count"`
	FailedCount    int               `json:"failed_count"`
	Done           bool              `json:"done"`
}

// ProjectSnapshot recomputes (or serves a cached) aggregate for the project.
func (a *Aggregator) ProjectSnapshot(ctx context.Context, projectID string) (*Snapshot, error) {
	if cached, ok := a.cache.Get(snapshotKey(projectID)); ok {
		return cached.(*Snapshot), nil
	}

	sections, err := a.projects.ListSections(ctx, projectID)
	if err != nil {
		return nil, err
	}
	sentences, err := a.sentences.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	jobs, err := a.jobs.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		ProjectID:     projectID,
		TotalSections: len(sections),
		TotalJobs:     len(jobs),
	}
	for i := range jobs {
		switch jobs[i].Status {
		case domain.JobStatusQueued:
			snap.QueuedCount++
		case domain.JobStatusRunning:
			snap.RunningCount++
		case domain.JobStatusCompleted:
			snap.CompletedCount++
		case domain.JobStatusFailed:
			snap.FailedCount++
		}
	}
	if snap.TotalJobs > 0 {
		snap.Percent = 100 * float64(snap.CompletedCount) / float64(snap.TotalJobs)
		snap.Done = snap.QueuedCount == 0 && snap.RunningCount == 0
	}

	completedBySection := make(map[string]bool, len(sections))
	counted := make(map[string]int, len(sections))
	for i := range sentences {
		sec := sentences[i].SectionID
		counted[sec]++
		if counted[sec] == 1 {
			completedBySection[sec] = true
		}
		if sentences[i].Status != domain.SentenceStatusCompleted {
			completedBySection[sec] = false
		}
	}

	snap.CurrentSection = len(sections)
	for i := range sections {
		done := counted[sections[i].ID] > 0 && completedBySection[sections[i].ID]
		snap.Sections = append(snap.Sections, SectionProgress{Title: sections[i].Title, Completed: done})
		if !done && snap.CurrentSection == len(sections) {
			snap.CurrentSection = i + 1
		}
	}

	a.cache.Set(snapshotKey(projectID), snap, snapshotTTL)
	return snap, nil
}

func snapshotKey(projectID string) string {
	return "snapshot:" + projectID
}
