package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/studyforge/quizgen-backend/internal/app"
	"github.com/studyforge/quizgen-backend/internal/clients/openai"
	httpserver "github.com/studyforge/quizgen-backend/internal/http"
	httpH "github.com/studyforge/quizgen-backend/internal/http/handlers"
	"github.com/studyforge/quizgen-backend/internal/ingestion/extractor"
	"github.com/studyforge/quizgen-backend/internal/ingestion/pipeline"
	"github.com/studyforge/quizgen-backend/internal/ingestion/sampler"
	"github.com/studyforge/quizgen-backend/internal/pkg/logger"
	"github.com/studyforge/quizgen-backend/internal/platform/localmedia"
	"github.com/studyforge/quizgen-backend/internal/services"
	"github.com/studyforge/quizgen-backend/internal/session"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Loading configuration...")
	cfg, err := app.LoadConfig(log)
	if err != nil {
		log.Fatal("Config load failed", "error", err)
	}

	// Clients
	log.Info("Wiring clients...")
	media := localmedia.New(log, localmedia.Options{WorkRoot: cfg.WorkRoot})
	if err := media.AssertReady(context.Background()); err != nil {
		log.Warn("Media tools not fully ready; extraction of some kinds will fail", "error", err)
	}

	ai, err := openai.NewClient(log, openai.Settings{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		QuizModel:   cfg.QuizModel,
		SpeechModel: cfg.SpeechModel,
		Temperature: cfg.Temperature,
		Timeout:     cfg.OpenAITimeout,
	})
	if err != nil {
		log.Fatal("OpenAI client init failed", "error", err)
	}

	// Ingestion
	log.Info("Wiring ingestion...")
	ex, err := extractor.New(log, media, ai, cfg.OCRLanguage)
	if err != nil {
		log.Fatal("Extractor init failed", "error", err)
	}
	smp, err := sampler.New(log, media, sampler.Options{
		IntervalSec: cfg.FrameIntervalSec,
		Width:       cfg.FrameWidth,
		Height:      cfg.FrameHeight,
	})
	if err != nil {
		log.Fatal("Sampler init failed", "error", err)
	}
	pl, err := pipeline.New(log, ex, smp)
	if err != nil {
		log.Fatal("Pipeline init failed", "error", err)
	}

	// Session + service
	log.Info("Wiring session...")
	manager, err := session.NewManager(log)
	if err != nil {
		log.Fatal("Session manager init failed", "error", err)
	}
	study, err := services.NewStudyService(log, manager, pl, ai, media)
	if err != nil {
		log.Fatal("Study service init failed", "error", err)
	}

	// HTTP
	server := httpserver.NewServer(httpserver.RouterConfig{
		Log:            log,
		SessionHandler: httpH.NewSessionHandler(log, study, cfg.SheetFontPath),
		HealthHandler:  httpH.NewHealthHandler(),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		errCh <- server.Run(cfg.HTTPAddr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", "error", err)
		}
	case sig := <-stop:
		log.Info("Shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Warn("Graceful shutdown failed", "error", err)
		}
	}
}
