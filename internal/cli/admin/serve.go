package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/quizforge/internal/api/handlers"
	"github.com/cloo-solutions/quizforge/internal/cache"
	"github.com/cloo-solutions/quizforge/internal/gemini"
	"github.com/cloo-solutions/quizforge/internal/jobs"
	"github.com/cloo-solutions/quizforge/internal/repository"
	"github.com/cloo-solutions/quizforge/internal/server"
	"github.com/cloo-solutions/quizforge/internal/service"
	"github.com/cloo-solutions/quizforge/internal/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the quizforge API server and the embedding worker",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides QUIZFORGE_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Duration("worker-interval", 10*time.Second, "Embedding job poll interval")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	a, err := newApp(ctx, !noMigrate)
	if err != nil {
		return err
	}
	defer a.Close()
	log := a.log

	if a.cfg.SentryDSN != "" {
		// 10% sampling in production, everything in development
		sampleRate := 0.1
		if a.cfg.Environment == "development" {
			sampleRate = 1.0
		}
		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              a.cfg.SentryDSN,
			Environment:      a.cfg.Environment,
			TracesSampleRate: sampleRate,
			Debug:            a.cfg.Debug,
		}, log)
		if err != nil {
			log.Warn("telemetry init failed, continuing without tracing", zap.Error(err))
		} else {
			defer shutdownTelemetry()
		}
	}

	if port, _ := cmd.Flags().GetString("port"); port != "" {
		a.cfg.Port = port
	}

	if !a.cfg.HasGemini() {
		return errors.New("QUIZFORGE_GEMINI_API_KEY is required to serve quiz generation")
	}
	generator, err := gemini.NewClient(ctx, a.cfg.GeminiAPIKey, a.cfg.GeminiModel, a.pipeline, log)
	if err != nil {
		return fmt.Errorf("failed to create gemini client: %w", err)
	}

	var profileStore service.ProfileStore
	if a.cfg.HasRedis() {
		rdb, err := cache.NewRedis(ctx, a.cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer rdb.Close()
		profileStore = repository.NewLearnerProfileRepository(rdb.Client)
		log.Info("learner profiles stored in redis")
	} else {
		profileStore = service.NewMemoryProfileStore()
		log.Warn("redis not configured, learner profiles kept in memory")
	}
	profiles := service.NewProfileService(profileStore, a.pipeline)

	embedder := service.NewFragmentEmbedder(a.embeddings, a.fragments)
	interval, _ := cmd.Flags().GetDuration("worker-interval")
	worker := jobs.NewWorker(jobs.NewEmbeddingWorker(a.jobs, embedder, log), interval, log)
	go worker.Start(ctx)
	log.Info("embedding worker started", zap.Duration("interval", interval))

	quizzes := service.NewQuizService(service.QuizServiceDeps{
		Embeddings: a.embeddings,
		Generator:  generator,
		Courses:    a.fragments,
		Profiles:   profiles,
	}, a.pipeline, log)
	fragments := service.NewFragmentService(a.fragments, a.fragments, a.embeddings, profiles, a.pipeline, log)

	auth := service.NewKeyAuthService(a.cfg.APIKeyList())
	if !auth.Enabled() {
		log.Warn("QUIZFORGE_API_KEYS is empty, API authentication disabled")
	}

	router := server.NewRouter(server.RouterConfig{
		AuthValidator:   auth,
		Logger:          log.Named("http"),
		CORSOrigins:     a.cfg.CORSOriginList(),
		QuizHandler:     handlers.NewQuizHandler(quizzes, a.pipeline.DefaultQuestions, server.MaxUploadBytes),
		CourseHandler:   handlers.NewCourseHandler(a.ingestion(), fragments, server.MaxUploadBytes),
		FragmentHandler: handlers.NewFragmentHandler(fragments),
		LearnerHandler:  handlers.NewLearnerHandler(profiles),
	})

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("port", a.cfg.Port), zap.String("model", generator.Model()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		worker.Stop()
		return fmt.Errorf("server failed: %w", err)
	}
	log.Info("shutting down")

	worker.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exited")
	return nil
}
