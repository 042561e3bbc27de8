package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"reelforge/internal/adapter/repo"
	"reelforge/internal/domain"
	"reelforge/internal/generation"
	"reelforge/internal/infra"
	"reelforge/internal/providers/genai"
	imageprovider "reelforge/internal/providers/image"
	"reelforge/internal/providers/tts"
	videoprovider "reelforge/internal/providers/video"
	"reelforge/internal/storage"
)

type jobWorker struct {
	jobs      domain.JobRepository
	sentences domain.SentenceRepository
	tts       tts.Generator
	images    imageprovider.Generator
	videos    videoprovider.Generator
	store     *storage.FileStore
	logger    infra.Logger
	poll      time.Duration
	wake      <-chan struct{}
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	fileStore, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	client, err := genai.NewClient(genai.Options{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure generation client")
	}
	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		logger.Warn().Str("model", client.Model()).Msg("worker: api key missing, using synthetic asset generation")
	}

	wake := make(chan struct{}, 1)
	worker := &jobWorker{
		jobs:      repo.NewJobRepository(pool),
		sentences: repo.NewSentenceRepository(pool),
		tts:       tts.NewGeminiGenerator(client),
		images:    imageprovider.NewGeminiGenerator(client),
		videos:    videoprovider.NewGeminiGenerator(client),
		store:     fileStore,
		logger:    logger,
		poll:      cfg.WorkerPoll,
		wake:      wake,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		listenForDispatch(gctx, pool, wake, logger)
		return nil
	})
	for i := 0; i < cfg.WorkerConcurrency; i++ {
		g.Go(func() error { return worker.Run(gctx) })
	}

	logger.Info().Int("concurrency", cfg.WorkerConcurrency).Msg("worker: started")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

// listenForDispatch subscribes to the dispatch channel and nudges the claim
// loops. Losing a notification is fine; the loops poll anyway.
func listenForDispatch(ctx context.Context, pool *pgxpool.Pool, wake chan<- struct{}, logger infra.Logger) {
	for ctx.Err() == nil {
		conn, err := pool.Acquire(ctx)
		if err != nil {
			sleepCtx(ctx, time.Second)
			continue
		}
		if _, err := conn.Exec(ctx, "LISTEN "+generation.NotifyChannel); err != nil {
			conn.Release()
			logger.Warn().Err(err).Msg("worker: listen failed, relying on poll")
			sleepCtx(ctx, 5*time.Second)
			continue
		}
		for {
			if _, err := conn.Conn().WaitForNotification(ctx); err != nil {
				break
			}
			select {
			case wake <- struct{}{}:
			default:
			}
		}
		conn.Release()
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// Run claims and executes jobs until the context ends.
func (w *jobWorker) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		job, err := w.jobs.ClaimNext(ctx)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				w.logger.Error().Err(err).Msg("worker: failed to claim job")
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-w.wake:
			case <-time.After(w.poll):
			}
			continue
		}

		w.handleJob(ctx, job)
	}
}

func (w *jobWorker) handleJob(ctx context.Context, job *domain.Job) {
	w.logger.Info().Str("job_id", job.ID).Str("job_type", string(job.Type)).Msg("worker: picked job")

	result, err := w.execute(ctx, job)
	if err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: job failed")
		if markErr := w.jobs.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
			w.logger.Error().Err(markErr).Str("job_id", job.ID).Msg("worker: mark failed errored")
		}
		if job.SentenceID != "" {
			if stErr := w.sentences.SetStatus(ctx, job.SentenceID, domain.SentenceStatusFailed); stErr != nil {
				w.logger.Error().Err(stErr).Str("sentence_id", job.SentenceID).Msg("worker: mark sentence failed errored")
			}
		}
		return
	}
	if err := w.jobs.MarkCompleted(ctx, job.ID, result); err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: mark completed errored")
	}
}

// execute runs one job and returns its result reference. The job type enum is
// closed; script families are owned by an external collaborator, so claiming
// one here is a configuration error surfaced on the job row.
func (w *jobWorker) execute(ctx context.Context, job *domain.Job) (string, error) {
	switch job.Type {
	case domain.JobTypeAudio:
		return w.processAudio(ctx, job)
	case domain.JobTypeImage:
		return w.processImage(ctx, job)
	case domain.JobTypeImageBatch:
		return w.processBatch(ctx, job)
	case domain.JobTypeVideo:
		return w.processVideo(ctx, job)
	case domain.JobTypeScript, domain.JobTypeScriptLong:
		return "", fmt.Errorf("job type %q is handled by the script service", job.Type)
	default:
		return "", fmt.Errorf("unsupported job type %q", job.Type)
	}
}

func (w *jobWorker) processAudio(ctx context.Context, job *domain.Job) (string, error) {
	var payload generation.AudioPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return "", fmt.Errorf("decode audio payload: %w", err)
	}
	asset, err := w.tts.Generate(ctx, tts.GenerateRequest{Text: payload.Text, RequestID: job.ID})
	if err != nil {
		return "", fmt.Errorf("audio synthesis: %w", err)
	}
	key, err := w.persist(ctx, job.ProjectID, payload.SentenceID, asset.Format, asset.Data)
	if err != nil {
		return "", err
	}
	if err := w.sentences.SetArtifact(ctx, payload.SentenceID, domain.MediumAudio, key); err != nil {
		return "", fmt.Errorf("write back audio artifact: %w", err)
	}
	return key, nil
}

func (w *jobWorker) processImage(ctx context.Context, job *domain.Job) (string, error) {
	var payload generation.ImagePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return "", fmt.Errorf("decode image payload: %w", err)
	}
	key, err := w.generateImageItem(ctx, job, payload.SentenceID, payload.Prompt, payload.ModelID, payload.StyleID)
	if err != nil {
		return "", err
	}
	return key, nil
}

func (w *jobWorker) generateImageItem(ctx context.Context, job *domain.Job, sentenceID, prompt, model, style string) (string, error) {
	asset, err := w.images.Generate(ctx, imageprovider.GenerateRequest{
		Prompt:    prompt,
		Model:     model,
		Style:     style,
		RequestID: job.ID,
	})
	if err != nil {
		return "", fmt.Errorf("image generation: %w", err)
	}
	key, err := w.persist(ctx, job.ProjectID, sentenceID, asset.Format, asset.Data)
	if err != nil {
		return "", err
	}
	if err := w.sentences.SetArtifact(ctx, sentenceID, domain.MediumImage, key); err != nil {
		return "", fmt.Errorf("write back image artifact: %w", err)
	}
	return key, nil
}

// processBatch runs the batch items in payload order against one resident
// model. Partial failure is first-class: failed items mark their sentence
// failed and the batch keeps going; the batch job itself fails only when
// every item does.
func (w *jobWorker) processBatch(ctx context.Context, job *domain.Job) (string, error) {
	var payload generation.BatchPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return "", fmt.Errorf("decode batch payload: %w", err)
	}
	if len(payload.Items) == 0 {
		return "", errors.New("empty batch payload")
	}

	var lastKey string
	var firstErr error
	failed := 0
	for i, item := range payload.Items {
		progress := (i * 100) / len(payload.Items)
		if err := w.jobs.UpdateProgress(ctx, job.ID, progress, i+1, truncateStep(item.Prompt)); err != nil {
			w.logger.Warn().Err(err).Str("job_id", job.ID).Msg("worker: progress update failed")
		}

		key, err := w.generateImageItem(ctx, job, item.SentenceID, item.Prompt, payload.ModelID, payload.StyleID)
		if err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			w.logger.Error().Err(err).
				Str("job_id", job.ID).
				Str("sentence_id", item.SentenceID).
				Msg("worker: batch item failed")
			if stErr := w.sentences.SetStatus(ctx, item.SentenceID, domain.SentenceStatusFailed); stErr != nil {
				w.logger.Error().Err(stErr).Str("sentence_id", item.SentenceID).Msg("worker: mark sentence failed errored")
			}
			continue
		}
		lastKey = key
	}

	if failed == len(payload.Items) {
		return "", fmt.Errorf("all %d batch items failed: %w", failed, firstErr)
	}
	return lastKey, nil
}

func (w *jobWorker) processVideo(ctx context.Context, job *domain.Job) (string, error) {
	var payload generation.VideoPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return "", fmt.Errorf("decode video payload: %w", err)
	}

	conditioning, err := w.store.Read(ctx, payload.ImageFile)
	if err != nil {
		return "", fmt.Errorf("load prerequisite image %q: %w", payload.ImageFile, err)
	}

	asset, err := w.videos.Generate(ctx, videoprovider.GenerateRequest{
		Prompt:    payload.Prompt,
		Image:     conditioning,
		RequestID: job.ID,
	})
	if err != nil {
		return "", fmt.Errorf("video generation: %w", err)
	}
	key, err := w.persist(ctx, job.ProjectID, payload.SentenceID, asset.Format, asset.Data)
	if err != nil {
		return "", err
	}
	if err := w.sentences.SetArtifact(ctx, payload.SentenceID, domain.MediumVideo, key); err != nil {
		return "", fmt.Errorf("write back video artifact: %w", err)
	}
	return key, nil
}

func (w *jobWorker) persist(ctx context.Context, projectID, sentenceID, mime string, data []byte) (string, error) {
	key := storageKey(projectID, sentenceID, mime)
	saved, err := w.store.Write(ctx, key, data)
	if err != nil {
		return "", fmt.Errorf("persist artifact: %w", err)
	}
	return saved, nil
}

func storageKey(projectID, sentenceID, mime string) string {
	category := "images"
	switch {
	case strings.HasPrefix(mime, "audio/"):
		category = "audio"
	case strings.HasPrefix(mime, "video/"):
		category = "videos"
	}
	return fmt.Sprintf("projects/%s/%s/%s%s", projectID, category, sentenceID, extensionForMIME(mime))
}

func extensionForMIME(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "video/mp4":
		return ".mp4"
	default:
		return ".bin"
	}
}

func truncateStep(prompt string) string {
	const max = 48
	prompt = strings.TrimSpace(prompt)
	if len(prompt) <= max {
		return prompt
	}
	// Back off to a rune boundary so the step name stays valid UTF-8.
	cut := max
	for cut > 0 && !utf8.RuneStart(prompt[cut]) {
		cut--
	}
	return prompt[:cut]
}
