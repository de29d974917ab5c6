package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloo-solutions/quizforge/internal/config"
	"github.com/cloo-solutions/quizforge/internal/domain"
	"github.com/cloo-solutions/quizforge/internal/logger"
	"github.com/cloo-solutions/quizforge/internal/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FragmentRepositoryInterface defines the repository interface for fragment persistence
type FragmentRepositoryInterface interface {
	Create(ctx context.Context, f *domain.KnowledgeFragment) error
	IDsByCourse(ctx context.Context, courseID string) ([]string, error)
}

// CourseFileRepositoryInterface defines the repository interface for course file records
type CourseFileRepositoryInterface interface {
	Create(ctx context.Context, f *domain.CourseFile) error
}

// EmbeddingJobRepositoryInterface defines the repository interface for embedding job persistence
type EmbeddingJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.EmbeddingJob) error
}

// BlobStore stores uploaded files by key.
type BlobStore interface {
	Store(ctx context.Context, key string, data []byte, contentType string) error
	Load(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// IngestInput is one uploaded course document.
type IngestInput struct {
	CourseID string
	Filename string
	MimeType string
	Data     []byte
	Tags     []string
}

type IngestResult struct {
	File      *domain.CourseFile
	Fragments []*domain.KnowledgeFragment
}

// IngestionService turns uploaded documents into stored fragments queued for embedding.
type IngestionService struct {
	tx        TxRunner
	blobs     BlobStore
	extractor TextExtractor
	chunk     config.Chunk
	uuidGen   UUIDGenerator
	logger    *zap.Logger
}

// NewIngestionService creates an IngestionService. blobs may be nil, in which case
// the original file is not kept.
func NewIngestionService(tx TxRunner, blobs BlobStore, extractor TextExtractor, pipeline config.Pipeline, log *zap.Logger) *IngestionService {
	return NewIngestionServiceWithUUIDGen(tx, blobs, extractor, pipeline, log, &DefaultUUIDGenerator{})
}

func NewIngestionServiceWithUUIDGen(tx TxRunner, blobs BlobStore, extractor TextExtractor, pipeline config.Pipeline, log *zap.Logger, uuidGen UUIDGenerator) *IngestionService {
	return &IngestionService{
		tx:        tx,
		blobs:     blobs,
		extractor: extractor,
		chunk:     pipeline.Chunk,
		uuidGen:   uuidGen,
		logger:    logger.OrNop(log).Named("ingest"),
	}
}

// IngestFile stores the blob, extracts and chunks the text, then records the course
// file, its fragments and one embedding job per fragment in a single transaction.
func (s *IngestionService) IngestFile(ctx context.Context, input IngestInput) (*IngestResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.IngestFile", telemetry.SpanAttributes{
		CourseID:  input.CourseID,
		Operation: "ingest",
	})
	defer span.End()

	if strings.TrimSpace(input.CourseID) == "" || strings.TrimSpace(input.Filename) == "" {
		return nil, domain.ErrMissingRequiredField
	}
	if len(input.Data) == 0 {
		return nil, domain.ErrEmptyContent
	}

	now := time.Now().UTC()
	fileID := s.uuidGen.NewString()
	filename := filepath.Base(input.Filename)

	var storageKey string
	if s.blobs != nil {
		storageKey = fmt.Sprintf("courses/%s/%s-%s", input.CourseID, fileID, filename)
		if err := s.blobs.Store(ctx, storageKey, input.Data, input.MimeType); err != nil {
			span.SetError(err)
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to store course file", err)
		}
	}

	extracted := s.extractor.Extract(filename, input.MimeType, input.Data)
	if extracted.Degraded {
		s.logger.Warn("extraction degraded, storing placeholder",
			zap.String("course_id", input.CourseID),
			zap.String("filename", filename),
			zap.Error(extracted.Cause),
		)
	}

	chunks := chunkText(extracted.Text, s.chunk)
	fragments := make([]*domain.KnowledgeFragment, 0, len(chunks))
	for _, chunk := range chunks {
		fragments = append(fragments, domain.NewKnowledgeFragment(s.uuidGen.NewString(), input.CourseID, titleFromFilename(filename), chunk, input.Tags, now))
	}

	file := &domain.CourseFile{
		ID:         fileID,
		CourseID:   input.CourseID,
		Filename:   filename,
		MimeType:   input.MimeType,
		SizeBytes:  int64(len(input.Data)),
		StorageKey: storageKey,
		Degraded:   extracted.Degraded,
		Fragments:  len(fragments),
		CreatedAt:  now,
	}
	if err := domain.ValidateCourseFile(file); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid course file", err)
	}

	err := s.tx.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.CourseFiles().Create(ctx, file); err != nil {
			return err
		}
		for _, f := range fragments {
			if err := repos.Fragments().Create(ctx, f); err != nil {
				return err
			}
			job := domain.NewEmbeddingJob(s.uuidGen.NewString(), f.ID, domain.EmbeddingJobStatusPending, 0, "", now, nil)
			if err := repos.EmbeddingJobs().Create(ctx, job); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.SetError(err)
		if storageKey != "" {
			if delErr := s.blobs.Delete(ctx, storageKey); delErr != nil {
				s.logger.Warn("failed to remove orphaned blob", zap.String("key", storageKey), zap.Error(delErr))
			}
		}
		return nil, fmt.Errorf("failed to save course file: %w", err)
	}

	s.logger.Info("course file ingested",
		zap.String("course_id", input.CourseID),
		zap.String("file_id", fileID),
		zap.Int("fragments", len(fragments)),
		zap.Bool("degraded", extracted.Degraded),
	)
	return &IngestResult{File: file, Fragments: fragments}, nil
}

// Reembed queues an embedding job for every fragment of a course and returns the count.
func (s *IngestionService) Reembed(ctx context.Context, courseID string) (int, error) {
	if strings.TrimSpace(courseID) == "" {
		return 0, domain.ErrMissingRequiredField
	}

	now := time.Now().UTC()
	queued := 0
	err := s.tx.WithTx(ctx, func(repos TxRepositories) error {
		ids, err := repos.Fragments().IDsByCourse(ctx, courseID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			job := domain.NewEmbeddingJob(s.uuidGen.NewString(), id, domain.EmbeddingJobStatusPending, 0, "", now, nil)
			if err := repos.EmbeddingJobs().Create(ctx, job); err != nil {
				return err
			}
			queued++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to queue embedding jobs: %w", err)
	}
	return queued, nil
}
