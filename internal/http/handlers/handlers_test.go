package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"reelforge/internal/domain"
	"reelforge/internal/generation"
)

type stubService struct {
	generateAllFn func(ctx context.Context, projectID string, medium domain.Medium, force bool) (*generation.BulkResult, error)
	generateOneFn func(ctx context.Context, sentenceID string, medium domain.Medium) (string, error)
	cancelAllFn   func(ctx context.Context, projectID string, types []domain.JobType) (int64, error)
	retryFn       func(ctx context.Context, projectID string, sentenceIDs []string) (*generation.BulkResult, error)
}

func (s *stubService) GenerateAll(ctx context.Context, projectID string, medium domain.Medium, force bool) (*generation.BulkResult, error) {
	return s.generateAllFn(ctx, projectID, medium, force)
}

func (s *stubService) GenerateOne(ctx context.Context, sentenceID string, medium domain.Medium) (string, error) {
	return s.generateOneFn(ctx, sentenceID, medium)
}

func (s *stubService) CancelAll(ctx context.Context, projectID string, types []domain.JobType) (int64, error) {
	return s.cancelAllFn(ctx, projectID, types)
}

func (s *stubService) RetryFailed(ctx context.Context, projectID string, sentenceIDs []string) (*generation.BulkResult, error) {
	return s.retryFn(ctx, projectID, sentenceIDs)
}

type stubTracker struct {
	markDirtyFn     func(ctx context.Context, medium domain.Medium, scope domain.DirtyScope) (int64, error)
	updateContentFn func(ctx context.Context, sentenceID string, patch domain.ContentPatch) (*domain.Sentence, error)
}

func (s *stubTracker) MarkDirty(ctx context.Context, medium domain.Medium, scope domain.DirtyScope) (int64, error) {
	return s.markDirtyFn(ctx, medium, scope)
}

func (s *stubTracker) UpdateContent(ctx context.Context, sentenceID string, patch domain.ContentPatch) (*domain.Sentence, error) {
	return s.updateContentFn(ctx, sentenceID, patch)
}

type stubProgress struct {
	jobStatusFn func(ctx context.Context, jobID string) (*domain.Job, error)
	snapshotFn  func(ctx context.Context, projectID string) (*generation.Snapshot, error)
	statsFn     func(ctx context.Context, projectID string) (*generation.SceneStats, error)
}

func (s *stubProgress) JobStatus(ctx context.Context, jobID string) (*domain.Job, error) {
	return s.jobStatusFn(ctx, jobID)
}

func (s *stubProgress) ProjectSnapshot(ctx context.Context, projectID string) (*generation.Snapshot, error) {
	return s.snapshotFn(ctx, projectID)
}

func (s *stubProgress) SceneStats(ctx context.Context, projectID string) (*generation.SceneStats, error) {
	return s.statsFn(ctx, projectID)
}

type stubStream struct {
	events []generation.StreamEvent
}

func (s *stubStream) Subscribe(_ string) (<-chan generation.StreamEvent, func()) {
	ch := make(chan generation.StreamEvent, len(s.events))
	for _, ev := range s.events {
		ch <- ev
	}
	return ch, func() {}
}

func newTestApp(service GenerationService, tracker DirtyTracker, progress ProgressReader, stream Streamer) *App {
	return NewApp(zerolog.New(io.Discard), service, tracker, progress, stream)
}

func newTestRouter(app *App) http.Handler {
	r := chi.NewRouter()
	r.Get("/v1/healthz", app.Health)
	r.Route("/v1/projects/{project_id}", func(r chi.Router) {
		r.Post("/generate/{medium}", app.GenerateAll)
		r.Post("/dirty", app.MarkDirty)
		r.Post("/cancel", app.CancelAll)
		r.Post("/retry", app.RetryFailed)
		r.Get("/stats", app.SceneStats)
		r.Get("/ws", app.ProgressWS)
	})
	r.Route("/v1/sentences/{sentence_id}", func(r chi.Router) {
		r.Patch("/", app.UpdateSentence)
		r.Post("/generate/{medium}", app.GenerateOne)
	})
	r.Get("/v1/jobs/{job_id}", app.JobStatus)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode[map[string]map[string]string](t, rec)
	return body["error"]["code"]
}

func TestHealth(t *testing.T) {
	app := newTestApp(nil, nil, nil, nil)
	rec := do(t, newTestRouter(app), http.MethodGet, "/v1/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestGenerateAllAccepted(t *testing.T) {
	var gotMedium domain.Medium
	var gotForce bool
	service := &stubService{
		generateAllFn: func(_ context.Context, projectID string, medium domain.Medium, force bool) (*generation.BulkResult, error) {
			if projectID != "p1" {
				t.Fatalf("projectID = %q, want p1", projectID)
			}
			gotMedium, gotForce = medium, force
			return &generation.BulkResult{Queued: 5, Batches: 1}, nil
		},
	}
	app := newTestApp(service, nil, nil, nil)

	rec := do(t, newTestRouter(app), http.MethodPost, "/v1/projects/p1/generate/images", `{"force":true}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if gotMedium != domain.MediumImage || !gotForce {
		t.Fatalf("service called with medium=%q force=%v", gotMedium, gotForce)
	}
	body := decode[generateAllResponse](t, rec)
	if body.Queued != 5 || body.Batches != 1 {
		t.Fatalf("body = %+v", body)
	}
}

func TestGenerateAllNothingToDo(t *testing.T) {
	service := &stubService{
		generateAllFn: func(_ context.Context, _ string, _ domain.Medium, _ bool) (*generation.BulkResult, error) {
			return &generation.BulkResult{Queued: 0, Message: "All images already up to date"}, nil
		},
	}
	app := newTestApp(service, nil, nil, nil)

	rec := do(t, newTestRouter(app), http.MethodPost, "/v1/projects/p1/generate/images", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (zero queued is still a success)", rec.Code)
	}
	body := decode[generateAllResponse](t, rec)
	if body.Queued != 0 || body.Message == "" {
		t.Fatalf("body = %+v", body)
	}
}

func TestGenerateAllUnknownMedium(t *testing.T) {
	app := newTestApp(&stubService{}, nil, nil, nil)
	rec := do(t, newTestRouter(app), http.MethodPost, "/v1/projects/p1/generate/gifs", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGenerateOneAccepted(t *testing.T) {
	service := &stubService{
		generateOneFn: func(_ context.Context, sentenceID string, medium domain.Medium) (string, error) {
			if sentenceID != "s1" || medium != domain.MediumVideo {
				t.Fatalf("called with %q %q", sentenceID, medium)
			}
			return "job-1", nil
		},
	}
	app := newTestApp(service, nil, nil, nil)

	rec := do(t, newTestRouter(app), http.MethodPost, "/v1/sentences/s1/generate/video", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	body := decode[generateOneResponse](t, rec)
	if body.JobID != "job-1" || body.Status != "queued" {
		t.Fatalf("body = %+v", body)
	}
}

func TestGenerateOneConflict(t *testing.T) {
	service := &stubService{
		generateOneFn: func(_ context.Context, _ string, _ domain.Medium) (string, error) {
			return "", domain.ErrAlreadyInFlight
		},
	}
	app := newTestApp(service, nil, nil, nil)

	rec := do(t, newTestRouter(app), http.MethodPost, "/v1/sentences/s1/generate/image", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if code := errorCode(t, rec); code != "already_in_flight" {
		t.Fatalf("error code = %q", code)
	}
}

func TestGenerateOneIneligible(t *testing.T) {
	service := &stubService{
		generateOneFn: func(_ context.Context, _ string, _ domain.Medium) (string, error) {
			return "", domain.ErrValidation
		},
	}
	app := newTestApp(service, nil, nil, nil)

	rec := do(t, newTestRouter(app), http.MethodPost, "/v1/sentences/s1/generate/video", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if code := errorCode(t, rec); code != "ineligible" {
		t.Fatalf("error code = %q", code)
	}
}

func TestJobStatus(t *testing.T) {
	progress := &stubProgress{
		jobStatusFn: func(_ context.Context, jobID string) (*domain.Job, error) {
			if jobID != "job-1" {
				return nil, domain.ErrNotFound
			}
			return &domain.Job{
				ID:          "job-1",
				SentenceID:  "s1",
				ProjectID:   "p1",
				Type:        domain.JobTypeImage,
				Status:      domain.JobStatusRunning,
				Progress:    40,
				TotalSteps:  1,
				CurrentStep: 1,
				StepName:    "a roman legion marching",
				CreatedAt:   time.Now(),
			}, nil
		},
	}
	app := newTestApp(nil, nil, progress, nil)
	router := newTestRouter(app)

	rec := do(t, router, http.MethodGet, "/v1/jobs/job-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decode[map[string]any](t, rec)
	if body["status"] != "running" || body["progress"] != float64(40) {
		t.Fatalf("body = %v", body)
	}

	rec = do(t, router, http.MethodGet, "/v1/jobs/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCancelAll(t *testing.T) {
	service := &stubService{
		cancelAllFn: func(_ context.Context, projectID string, types []domain.JobType) (int64, error) {
			if projectID != "p1" {
				t.Fatalf("projectID = %q", projectID)
			}
			if len(types) != 1 || types[0] != domain.JobTypeImageBatch {
				t.Fatalf("types = %v", types)
			}
			return 3, nil
		},
	}
	app := newTestApp(service, nil, nil, nil)

	rec := do(t, newTestRouter(app), http.MethodPost, "/v1/projects/p1/cancel", `{"job_types":["image_batch"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decode[map[string]int64](t, rec)
	if body["cancelled"] != 3 {
		t.Fatalf("body = %v", body)
	}
}

func TestRetryFailed(t *testing.T) {
	service := &stubService{
		retryFn: func(_ context.Context, _ string, sentenceIDs []string) (*generation.BulkResult, error) {
			if len(sentenceIDs) != 2 {
				t.Fatalf("sentenceIDs = %v", sentenceIDs)
			}
			return &generation.BulkResult{Queued: 2}, nil
		},
	}
	app := newTestApp(service, nil, nil, nil)

	rec := do(t, newTestRouter(app), http.MethodPost, "/v1/projects/p1/retry", `{"sentence_ids":["s1","s2"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decode[generation.BulkResult](t, rec)
	if body.Queued != 2 {
		t.Fatalf("body = %+v", body)
	}
}

func TestSceneStats(t *testing.T) {
	progress := &stubProgress{
		statsFn: func(_ context.Context, _ string) (*generation.SceneStats, error) {
			return &generation.SceneStats{Total: 10, WithImages: 6, WithVideos: 2, NeedingImages: 4, NeedingVideos: 4}, nil
		},
	}
	app := newTestApp(nil, nil, progress, nil)

	rec := do(t, newTestRouter(app), http.MethodGet, "/v1/projects/p1/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decode[generation.SceneStats](t, rec)
	if body.Total != 10 || body.NeedingImages != 4 {
		t.Fatalf("body = %+v", body)
	}
}

func TestUpdateSentence(t *testing.T) {
	tracker := &stubTracker{
		updateContentFn: func(_ context.Context, sentenceID string, patch domain.ContentPatch) (*domain.Sentence, error) {
			if sentenceID != "s1" {
				t.Fatalf("sentenceID = %q", sentenceID)
			}
			if patch.Text != nil || patch.VideoPrompt != nil || patch.ImagePrompt == nil {
				t.Fatalf("patch = %+v, want image prompt only", patch)
			}
			return &domain.Sentence{
				ID:          "s1",
				SectionID:   "sec-1",
				Text:        "unchanged",
				ImagePrompt: *patch.ImagePrompt,
				ImageDirty:  true,
				VideoDirty:  true,
				Status:      domain.SentenceStatusPending,
			}, nil
		},
	}
	app := newTestApp(nil, tracker, nil, nil)

	rec := do(t, newTestRouter(app), http.MethodPatch, "/v1/sentences/s1/", `{"image_prompt":"new prompt"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decode[map[string]any](t, rec)
	if body["is_image_dirty"] != true || body["is_video_dirty"] != true || body["is_audio_dirty"] != false {
		t.Fatalf("dirty flags = %v", body)
	}
}

func TestUpdateSentenceBadJSON(t *testing.T) {
	app := newTestApp(nil, &stubTracker{}, nil, nil)
	rec := do(t, newTestRouter(app), http.MethodPatch, "/v1/sentences/s1/", `{"text":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestMarkDirty(t *testing.T) {
	tracker := &stubTracker{
		markDirtyFn: func(_ context.Context, medium domain.Medium, scope domain.DirtyScope) (int64, error) {
			if medium != domain.MediumImage {
				t.Fatalf("medium = %q", medium)
			}
			if scope.ProjectID != "p1" || scope.SectionID != "sec-2" {
				t.Fatalf("scope = %+v", scope)
			}
			return 7, nil
		},
	}
	app := newTestApp(nil, tracker, nil, nil)

	rec := do(t, newTestRouter(app), http.MethodPost, "/v1/projects/p1/dirty", `{"medium":"image","section_id":"sec-2"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decode[map[string]int64](t, rec)
	if body["marked"] != 7 {
		t.Fatalf("body = %v", body)
	}
}
