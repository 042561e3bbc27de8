package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"reelforge/internal/adapter/repo"
	"reelforge/internal/generation"
	"reelforge/internal/http/handlers"
	"reelforge/internal/http/httpapi"
	"reelforge/internal/infra"
)

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
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	projects := repo.NewProjectRepository(pool)
	sentences := repo.NewSentenceRepository(pool)
	jobs := repo.NewJobRepository(pool)

	dispatcher := generation.NewNotifyDispatcher(pool, logger)
	service := generation.NewService(projects, sentences, jobs, dispatcher, logger)
	tracker := generation.NewTracker(sentences, logger)
	aggregator := generation.NewAggregator(projects, sentences, jobs)
	broadcaster := generation.NewBroadcaster(aggregator, cfg.StreamInterval, logger)
	go broadcaster.Run(ctx)

	app := handlers.NewApp(logger, service, tracker, aggregator, broadcaster)
	router := httpapi.NewRouter(app, cfg, logger)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
