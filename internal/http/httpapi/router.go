package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"reelforge/internal/http/handlers"
	"reelforge/internal/infra"
	"reelforge/internal/middleware"
)

// NewRouter assembles the API surface. Submission endpoints answer 202 with a
// job reference; execution outcomes are only observable through the job poll,
// the websocket stream and scene stats.
func NewRouter(app *handlers.App, cfg *infra.Config, logger infra.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
		middleware.CORS([]string{"http://localhost:3000", "http://localhost:5173"}),
		middleware.RateLimit(cfg.RateLimitPerMin, time.Minute),
	)

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
