package admin

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/quizforge/internal/config"
	"github.com/cloo-solutions/quizforge/internal/database"
	"github.com/cloo-solutions/quizforge/internal/extract"
	"github.com/cloo-solutions/quizforge/internal/logger"
	"github.com/cloo-solutions/quizforge/internal/openai"
	"github.com/cloo-solutions/quizforge/internal/repository"
	"github.com/cloo-solutions/quizforge/internal/service"
	"github.com/cloo-solutions/quizforge/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const migrationsSource = "file://migrations"

// app holds the infrastructure shared by serve, ingest and reembed.
type app struct {
	cfg        *config.Config
	pipeline   config.Pipeline
	log        *zap.Logger
	pool       *pgxpool.Pool
	fragments  *repository.FragmentRepository
	jobs       *repository.EmbeddingJobRepository
	blobs      service.BlobStore
	embeddings *service.EmbeddingService
}

func newApp(ctx context.Context, migrate bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.LogMode, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	pipeline, err := cfg.LoadPipeline()
	if err != nil {
		return nil, fmt.Errorf("invalid pipeline configuration: %w", err)
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL, MaxConns: cfg.DatabaseMaxConns})
	if err != nil {
		return nil, err
	}
	log.Info("connected to database")

	if migrate {
		if err := database.Migrate(cfg.DatabaseURL, migrationsSource, log); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	a := &app{
		cfg:       cfg,
		pipeline:  pipeline,
		log:       log,
		pool:      pool,
		fragments: repository.NewFragmentRepository(pool),
		jobs:      repository.NewEmbeddingJobRepository(pool),
	}

	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Info("blob storage ready", zap.String("bucket", cfg.S3Bucket))
		a.blobs = s3Client
	} else {
		log.Warn("S3 not configured, uploaded files are not retained")
	}

	var embeddingClient service.EmbeddingClient
	if cfg.HasOpenAI() {
		embeddingClient = openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			EmbeddingModel:      cfg.EmbeddingModel,
			EmbeddingDimensions: pipeline.EmbeddingDimensions,
		})
	} else {
		log.Warn("OpenAI not configured, embeddings use the deterministic fallback")
	}
	a.embeddings = service.NewEmbeddingService(embeddingClient, pipeline, log)

	return a, nil
}

func (a *app) ingestion() *service.IngestionService {
	extractor := extract.New(extract.Config{MaxPages: a.pipeline.MaxPages, MinLineChars: a.pipeline.MinLineChars}, a.log)
	return service.NewIngestionService(repository.NewTxRunner(a.pool), a.blobs, extractor, a.pipeline, a.log)
}

func (a *app) Close() {
	a.pool.Close()
	_ = a.log.Sync()
}
