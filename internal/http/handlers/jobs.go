package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"reelforge/internal/domain"
)

type jobResponse struct {
	ID           string `json:"id"`
	SentenceID   string `json:"sentence_id,omitempty"`
	ProjectID    string `json:"project_id"`
	JobType      string `json:"job_type"`
	Status       string `json:"status"`
	Progress     int    `json:"progress"`
	ErrorMessage string `json:"error_message,omitempty"`
	ResultFile   string `json:"result_file,omitempty"`
	TotalSteps   int    `json:"total_steps"`
	CurrentStep  int    `json:"current_step"`
	StepName     string `json:"step_name,omitempty"`
	StartedAt    any    `json:"started_at"`
	CompletedAt  any    `json:"completed_at"`
	CreatedAt    any    `json:"created_at"`
}

// JobStatus is the poll path: the current row for one job.
func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := a.Progress.JobStatus(r.Context(), jobID)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, jobResponse{
		ID:           job.ID,
		SentenceID:   job.SentenceID,
		ProjectID:    job.ProjectID,
		JobType:      string(job.Type),
		Status:       string(job.Status),
		Progress:     job.Progress,
		ErrorMessage: job.ErrorMessage,
		ResultFile:   job.ResultFile,
		TotalSteps:   job.TotalSteps,
		CurrentStep:  job.CurrentStep,
		StepName:     job.StepName,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
		CreatedAt:    job.CreatedAt,
	})
}

type cancelRequest struct {
	JobTypes []string `json:"job_types"`
}

// CancelAll fails every queued job of the given types for the project;
// running jobs finish naturally.
func (a *App) CancelAll(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "project_id")

	var req cancelRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
			return
		}
	}
	types := make([]domain.JobType, 0, len(req.JobTypes))
	for _, t := range req.JobTypes {
		types = append(types, domain.JobType(t))
	}

	cancelled, err := a.Service.CancelAll(r.Context(), projectID, types)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]int64{"cancelled": cancelled})
}

type retryRequest struct {
	SentenceIDs []string `json:"sentence_ids"`
}

// RetryFailed resets failed sentences and re-dispatches one job per sentence.
func (a *App) RetryFailed(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "project_id")

	var req retryRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
			return
		}
	}

	result, err := a.Service.RetryFailed(r.Context(), projectID, req.SentenceIDs)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, result)
}

// SceneStats reports artifact coverage counts for a project.
func (a *App) SceneStats(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "project_id")
	stats, err := a.Progress.SceneStats(r.Context(), projectID)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, stats)
}
