package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"reelforge/internal/domain"
	"reelforge/internal/generation"
	"reelforge/internal/infra"
)

// GenerationService is the submission surface the handlers depend on.
type GenerationService interface {
	GenerateAll(ctx context.Context, projectID string, medium domain.Medium, force bool) (*generation.BulkResult, error)
	GenerateOne(ctx context.Context, sentenceID string, medium domain.Medium) (string, error)
	CancelAll(ctx context.Context, projectID string, types []domain.JobType) (int64, error)
	RetryFailed(ctx context.Context, projectID string, sentenceIDs []string) (*generation.BulkResult, error)
}

// DirtyTracker is the dirty-flag surface the handlers depend on.
type DirtyTracker interface {
	MarkDirty(ctx context.Context, medium domain.Medium, scope domain.DirtyScope) (int64, error)
	UpdateContent(ctx context.Context, sentenceID string, patch domain.ContentPatch) (*domain.Sentence, error)
}

// ProgressReader is the read-only progress surface shared by poll and stats.
type ProgressReader interface {
	JobStatus(ctx context.Context, jobID string) (*domain.Job, error)
	ProjectSnapshot(ctx context.Context, projectID string) (*generation.Snapshot, error)
	SceneStats(ctx context.Context, projectID string) (*generation.SceneStats, error)
}

// Streamer hands out per-project progress subscriptions.
type Streamer interface {
	Subscribe(projectID string) (<-chan generation.StreamEvent, func())
}

// App bundles the handler dependencies.
type App struct {
	Logger   infra.Logger
	Service  GenerationService
	Tracker  DirtyTracker
	Progress ProgressReader
	Stream   Streamer

	upgrader websocket.Upgrader
}

// NewApp constructs the handler container.
func NewApp(logger infra.Logger, service GenerationService, tracker DirtyTracker, progress ProgressReader, stream Streamer) *App {
	return &App{
		Logger:   logger,
		Service:  service,
		Tracker:  tracker,
		Progress: progress,
		Stream:   stream,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, tag, message string) {
	a.json(w, code, map[string]any{"error": map[string]string{"code": tag, "message": message}})
}

// fail maps domain sentinels onto HTTP responses. Execution-time errors never
// reach here; they are only observable through polling and streaming.
func (a *App) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrValidation):
		a.error(w, http.StatusUnprocessableEntity, "ineligible", err.Error())
	case errors.Is(err, domain.ErrAlreadyInFlight):
		a.error(w, http.StatusConflict, "already_in_flight", "a job for this sentence and medium is already queued or running")
	default:
		a.Logger.Error().Err(err).Msg("request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
