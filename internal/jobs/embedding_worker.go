package jobs

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/quizforge/internal/domain"
	"github.com/cloo-solutions/quizforge/internal/logger"
	"go.uber.org/zap"
)

// MaxRetries is the number of attempts before a job is marked failed.
const MaxRetries = 3

// EmbeddingJobRepository claims and updates embedding jobs.
type EmbeddingJobRepository interface {
	// GetPendingJobs claims pending jobs so no other worker picks them up.
	GetPendingJobs(ctx context.Context) ([]*domain.EmbeddingJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status domain.EmbeddingJobStatus, errMsg string) error
	IncrementRetries(ctx context.Context, jobID string) error
}

// FragmentEmbedder embeds and stores one fragment. *service.FragmentEmbedder satisfies it.
type FragmentEmbedder interface {
	GenerateEmbedding(ctx context.Context, fragmentID string) error
}

// EmbeddingWorker processes embedding jobs
type EmbeddingWorker struct {
	repo     EmbeddingJobRepository
	embedder FragmentEmbedder
	logger   *zap.Logger
}

func NewEmbeddingWorker(repo EmbeddingJobRepository, embedder FragmentEmbedder, log *zap.Logger) *EmbeddingWorker {
	return &EmbeddingWorker{
		repo:     repo,
		embedder: embedder,
		logger:   logger.OrNop(log).Named("embedding_worker"),
	}
}

// ProcessJobs implements JobProcessor. A failing job does not stop the batch.
func (w *EmbeddingWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.repo.GetPendingJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch pending jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil
	}

	w.logger.Info("processing embedding jobs", zap.Int("count", len(jobs)))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			w.logger.Error("embedding job bookkeeping failed", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	return nil
}

func (w *EmbeddingWorker) processJob(ctx context.Context, job *domain.EmbeddingJob) error {
	if job.FragmentID == "" {
		return w.repo.UpdateJobStatus(ctx, job.ID, domain.EmbeddingJobStatusFailed, "job has no fragment_id")
	}

	if err := w.embedder.GenerateEmbedding(ctx, job.FragmentID); err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.EmbeddingJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	w.logger.Debug("embedding job completed", zap.String("job_id", job.ID), zap.String("fragment_id", job.FragmentID))
	return nil
}

// handleJobFailure puts the job back to pending, or marks it failed on the last attempt.
func (w *EmbeddingWorker) handleJobFailure(ctx context.Context, job *domain.EmbeddingJob, jobErr error) error {
	attempt := job.Retries + 1

	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	if attempt >= MaxRetries {
		w.logger.Warn("embedding job failed permanently",
			zap.String("job_id", job.ID),
			zap.String("fragment_id", job.FragmentID),
			zap.Int32("attempt", attempt),
			zap.Error(jobErr),
		)
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.EmbeddingJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	w.logger.Warn("embedding job will be retried",
		zap.String("job_id", job.ID),
		zap.Int32("attempt", attempt),
		zap.Int("max_retries", MaxRetries),
		zap.Error(jobErr),
	)
	errMsg := fmt.Sprintf("retry %d: %v", attempt, jobErr)
	if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.EmbeddingJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}
	return nil
}
