package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloo-solutions/quizforge/internal/config"
	"github.com/cloo-solutions/quizforge/internal/domain"
	"github.com/cloo-solutions/quizforge/internal/extract"
	"github.com/cloo-solutions/quizforge/internal/logger"
	"github.com/cloo-solutions/quizforge/internal/quiz"
	"github.com/cloo-solutions/quizforge/internal/telemetry"
	"go.uber.org/zap"
)

// Generator sends a prompt to the language model. *gemini.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, prompt string, questionCount int) (string, error)
}

// TextExtractor reads uploaded files. *extract.Extractor satisfies it.
type TextExtractor interface {
	Extract(filename, mimeType string, data []byte) extract.Result
}

// CourseFragmentStore is the persisted fragment store of ingested courses.
type CourseFragmentStore interface {
	FragmentStore
	FirstByCourse(ctx context.Context, courseID string, limit int) ([]*domain.KnowledgeFragment, error)
}

// LearnerProfiles is the profile surface quiz generation needs.
type LearnerProfiles interface {
	Get(ctx context.Context, userID string) (*domain.LearnerProfile, error)
	AddInterest(ctx context.Context, userID, topic string) (*domain.LearnerProfile, error)
}

// QuizServiceDeps wires the collaborators of QuizService. Courses and Profiles may be nil.
type QuizServiceDeps struct {
	Extractor  TextExtractor
	Embeddings *EmbeddingService
	Generator  Generator
	Courses    CourseFragmentStore
	Profiles   LearnerProfiles
}

// QuizService runs the generation pipeline: retrieve, prompt, generate, parse,
// normalize, validate. The Safe variants replace any failure with the fallback quiz.
type QuizService struct {
	pipeline   config.Pipeline
	extractor  TextExtractor
	embeddings *EmbeddingService
	generator  Generator
	courses    CourseFragmentStore
	profiles   LearnerProfiles
	prompts    *PromptBuilder
	assembler  *quiz.Assembler
	logger     *zap.Logger
}

func NewQuizService(deps QuizServiceDeps, pipeline config.Pipeline, log *zap.Logger) *QuizService {
	log = logger.OrNop(log)
	if deps.Embeddings == nil {
		deps.Embeddings = NewEmbeddingService(nil, pipeline, log)
	}
	if deps.Extractor == nil {
		deps.Extractor = extract.New(extract.Config{MaxPages: pipeline.MaxPages, MinLineChars: pipeline.MinLineChars}, log)
	}
	return &QuizService{
		pipeline:   pipeline,
		extractor:  deps.Extractor,
		embeddings: deps.Embeddings,
		generator:  deps.Generator,
		courses:    deps.Courses,
		profiles:   deps.Profiles,
		prompts:    NewPromptBuilder(pipeline),
		assembler:  quiz.NewAssembler(pipeline, log),
		logger:     log.Named("quiz"),
	}
}

// generation is one pipeline run over either pasted content or a course.
type generation struct {
	title    string
	count    int
	content  string
	courseID string
	profile  *domain.LearnerProfile
}

// GenerateQuiz builds a quiz from raw content. Pipeline failures are returned unchanged.
func (s *QuizService) GenerateQuiz(ctx context.Context, content, title string, count int) (*domain.GeneratedQuiz, error) {
	q, _, err := s.run(ctx, generation{title: title, count: count, content: content})
	return q, err
}

// GenerateQuizSafe never fails: errors yield the fallback quiz with Outcome degraded.
func (s *QuizService) GenerateQuizSafe(ctx context.Context, content, title string, count int) *domain.QuizResult {
	return s.safe(ctx, generation{title: title, count: count, content: content})
}

func (s *QuizService) GenerateQuizFromFile(ctx context.Context, filename, mimeType string, data []byte, count int) (*domain.GeneratedQuiz, error) {
	gen := s.fileGeneration(filename, mimeType, data, count)
	q, _, err := s.run(ctx, gen)
	return q, err
}

func (s *QuizService) GenerateQuizFromFileSafe(ctx context.Context, filename, mimeType string, data []byte, count int) *domain.QuizResult {
	return s.safe(ctx, s.fileGeneration(filename, mimeType, data, count))
}

// GenerateQuizFromCourseFiles builds a quiz of the default size from a course's ingested material.
func (s *QuizService) GenerateQuizFromCourseFiles(ctx context.Context, courseID, title string) (*domain.GeneratedQuiz, error) {
	q, _, err := s.run(ctx, generation{title: title, count: s.pipeline.DefaultQuestions, courseID: courseID})
	return q, err
}

func (s *QuizService) GenerateQuizFromCourseFilesSafe(ctx context.Context, courseID, title string) *domain.QuizResult {
	return s.safe(ctx, generation{title: title, count: s.pipeline.DefaultQuestions, courseID: courseID})
}

// GenerateForLearner generates with the learner's profile and, after a generated
// outcome, records the topic as an interest.
func (s *QuizService) GenerateForLearner(ctx context.Context, req domain.GenerationRequest) *domain.QuizResult {
	result := s.safe(ctx, s.learnerGeneration(ctx, req))
	if !result.Degraded() {
		s.recordInterest(ctx, req)
	}
	return result
}

// GenerateForLearnerStrict is GenerateForLearner without the fallback: pipeline
// failures are returned unchanged.
func (s *QuizService) GenerateForLearnerStrict(ctx context.Context, req domain.GenerationRequest) (*domain.GeneratedQuiz, error) {
	q, _, err := s.run(ctx, s.learnerGeneration(ctx, req))
	if err != nil {
		return nil, err
	}
	s.recordInterest(ctx, req)
	return q, nil
}

func (s *QuizService) learnerGeneration(ctx context.Context, req domain.GenerationRequest) generation {
	gen := generation{
		title:    req.Title,
		count:    req.QuestionCount,
		content:  req.Content,
		courseID: req.CourseID,
	}
	if gen.count == 0 {
		gen.count = s.pipeline.DefaultQuestions
	}

	if req.LearnerID != "" && s.profiles != nil {
		profile, err := s.profiles.Get(ctx, req.LearnerID)
		if err != nil {
			s.logger.Warn("failed to load learner profile, generating without it",
				zap.String("learner_id", req.LearnerID), zap.Error(err))
		} else {
			gen.profile = profile
		}
	}
	return gen
}

func (s *QuizService) recordInterest(ctx context.Context, req domain.GenerationRequest) {
	if req.LearnerID == "" || s.profiles == nil {
		return
	}
	if _, err := s.profiles.AddInterest(ctx, req.LearnerID, req.Title); err != nil {
		s.logger.Warn("failed to record learner interest",
			zap.String("learner_id", req.LearnerID), zap.Error(err))
	}
}

func (s *QuizService) fileGeneration(filename, mimeType string, data []byte, count int) generation {
	res := s.extractor.Extract(filename, mimeType, data)
	if res.Degraded {
		s.logger.Warn("extraction degraded, generating from placeholder",
			zap.String("filename", filename),
			zap.String("mime_type", mimeType),
			zap.Error(res.Cause),
		)
	}
	return generation{title: titleFromFilename(filename), count: count, content: res.Text}
}

func (s *QuizService) safe(ctx context.Context, gen generation) *domain.QuizResult {
	start := time.Now()
	q, stats, err := s.run(ctx, gen)
	if err == nil {
		return &domain.QuizResult{
			Quiz:     q,
			Outcome:  domain.QuizOutcomeGenerated,
			Stats:    stats,
			Duration: time.Since(start),
		}
	}

	count := s.pipeline.ClampQuestions(gen.count)
	s.logger.Warn("quiz generation degraded to fallback",
		zap.String("title", gen.title),
		zap.String("course_id", gen.courseID),
		zap.Int("requested", gen.count),
		zap.Error(err),
	)
	telemetry.CaptureError(ctx, err)

	stats.Requested = gen.count
	return &domain.QuizResult{
		Quiz:     quiz.Fallback(gen.title, count),
		Outcome:  domain.QuizOutcomeDegraded,
		Cause:    err,
		Stats:    stats,
		Duration: time.Since(start),
	}
}

func (s *QuizService) run(ctx context.Context, gen generation) (*domain.GeneratedQuiz, domain.GenerationStats, error) {
	stats := domain.GenerationStats{Requested: gen.count}

	if strings.TrimSpace(gen.title) == "" {
		return nil, stats, domain.ErrMissingRequiredField
	}
	if gen.count < s.pipeline.MinQuestions || gen.count > s.pipeline.MaxQuestions {
		return nil, stats, domain.ErrInvalidQuestionCount
	}

	ctx, span := telemetry.StartSpan(ctx, "quiz.generate", telemetry.SpanAttributes{
		CourseID:  gen.courseID,
		LearnerID: learnerID(gen.profile),
		Operation: "generate",
	})
	defer span.End()

	fragments, err := s.retrieve(ctx, gen)
	if err != nil {
		span.SetError(err)
		return nil, stats, err
	}
	stats.Fragments = len(fragments)

	prompt := s.prompts.Build(PromptInput{
		Title:         gen.title,
		CourseID:      gen.courseID,
		QuestionCount: gen.count,
		Profile:       gen.profile,
		Fragments:     fragments,
	})

	raw, err := s.generator.Generate(ctx, prompt, gen.count)
	if err != nil {
		span.SetError(err)
		return nil, stats, fmt.Errorf("generation failed: %w", err)
	}

	q, assembled, err := s.assembler.Assemble(raw, gen.title, gen.count)
	assembled.Fragments = stats.Fragments
	if err != nil {
		span.SetError(err)
		return nil, assembled, fmt.Errorf("model response rejected: %w", err)
	}

	s.logger.Info("quiz generated",
		zap.String("title", gen.title),
		zap.Int("requested", gen.count),
		zap.Int("valid", assembled.Valid),
		zap.Int("invalid", assembled.Invalid),
		zap.Int("fragments", assembled.Fragments),
	)
	return q, assembled, nil
}

// retrieve selects the fragments for the prompt. Pasted content is chunked into a
// throwaway in-memory store; course material comes from the persisted store.
func (s *QuizService) retrieve(ctx context.Context, gen generation) ([]domain.ScoredFragment, error) {
	limit := s.pipeline.RetrieveLimit

	if gen.courseID == "" || gen.content != "" {
		if strings.TrimSpace(gen.content) == "" {
			return nil, domain.ErrEmptyContent
		}
		store := NewMemoryFragmentStore(s.embeddings)
		now := time.Now().UTC()
		for i, chunk := range chunkText(gen.content, s.pipeline.Chunk) {
			store.Add(domain.NewKnowledgeFragment(fmt.Sprintf("content-%03d", i+1), gen.courseID, gen.title, chunk, nil, now))
		}

		found, err := NewRetriever(store, s.embeddings, s.pipeline, s.logger).Search(ctx, SearchInput{
			Query:   gen.title,
			Profile: gen.profile,
			Limit:   limit,
		})
		if err != nil {
			return nil, err
		}
		if len(found) > 0 {
			return found, nil
		}
		return scoreless(store.List("", limit)), nil
	}

	if s.courses == nil {
		return nil, domain.NewDomainError(domain.ErrCodeUnavailable, "course material store not configured")
	}

	found, err := NewRetriever(s.courses, s.embeddings, s.pipeline, s.logger).Search(ctx, SearchInput{
		Query:    gen.title,
		CourseID: gen.courseID,
		Profile:  gen.profile,
		Limit:    limit,
	})
	if err != nil {
		return nil, err
	}
	if len(found) > 0 {
		return found, nil
	}

	first, err := s.courses.FirstByCourse(ctx, gen.courseID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list course fragments: %w", err)
	}
	if len(first) == 0 {
		return nil, domain.ErrCourseHasNoContent
	}
	return scoreless(first), nil
}

func scoreless(fragments []*domain.KnowledgeFragment) []domain.ScoredFragment {
	out := make([]domain.ScoredFragment, len(fragments))
	for i, f := range fragments {
		out[i] = domain.ScoredFragment{Fragment: f}
	}
	return out
}

func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	title := strings.TrimSuffix(base, filepath.Ext(base))
	title = strings.NewReplacer("_", " ", "-", " ").Replace(title)
	if strings.TrimSpace(title) == "" || title == "." {
		return "Course material"
	}
	return strings.TrimSpace(title)
}

func learnerID(p *domain.LearnerProfile) string {
	if p == nil {
		return ""
	}
	return p.UserID
}
