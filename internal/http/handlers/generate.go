package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"reelforge/internal/domain"
)

type generateAllRequest struct {
	Force bool `json:"force"`
}

type generateAllResponse struct {
	Queued  int    `json:"queued"`
	Batches int    `json:"batches,omitempty"`
	Message string `json:"message,omitempty"`
}

// GenerateAll queues every eligible sentence of a project for one medium.
// Zero eligible sentences is a success with an explanatory message, so a bulk
// action never hard-fails because everything is already up to date.
func (a *App) GenerateAll(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "project_id")
	medium := mediumParam(r)
	if medium == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "unknown medium")
		return
	}

	var req generateAllRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
			return
		}
	}

	result, err := a.Service.GenerateAll(r.Context(), projectID, medium, req.Force)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusAccepted, generateAllResponse{
		Queued:  result.Queued,
		Batches: result.Batches,
		Message: result.Message,
	})
}

type generateOneResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// GenerateOne queues a single sentence for one medium.
func (a *App) GenerateOne(w http.ResponseWriter, r *http.Request) {
	sentenceID := chi.URLParam(r, "sentence_id")
	medium := mediumParam(r)
	if medium == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "unknown medium")
		return
	}

	jobID, err := a.Service.GenerateOne(r.Context(), sentenceID, medium)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusAccepted, generateOneResponse{JobID: jobID, Status: string(domain.JobStatusQueued)})
}

// mediumParam normalizes the {medium} route segment. The route uses plural
// segments for the bulk endpoints ("images") and singular for per-sentence
// ones; accept both.
func mediumParam(r *http.Request) domain.Medium {
	switch chi.URLParam(r, "medium") {
	case "audio":
		return domain.MediumAudio
	case "image", "images":
		return domain.MediumImage
	case "video", "videos":
		return domain.MediumVideo
	}
	return ""
}
