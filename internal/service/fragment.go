package service

import (
	"context"
	"strings"

	"github.com/cloo-solutions/quizforge/internal/config"
	"github.com/cloo-solutions/quizforge/internal/domain"
	"github.com/cloo-solutions/quizforge/internal/logger"
	"github.com/cloo-solutions/quizforge/internal/pagination"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// FragmentPageResult is one page of course fragments.
type FragmentPageResult = pagination.PageResult[*domain.KnowledgeFragment]

// FragmentListRepository defines the paginated listing of course fragments.
type FragmentListRepository interface {
	ListByCourseWithCursor(ctx context.Context, courseID string, cursor *pagination.Cursor, limit int) (*FragmentPageResult, error)
}

type ListFragmentsInput struct {
	CourseID string
	Cursor   string
	Limit    int
}

type SearchFragmentsInput struct {
	Query     string
	CourseID  string
	LearnerID string
	Limit     int
}

// FragmentService lists and searches stored course fragments.
type FragmentService struct {
	list      FragmentListRepository
	retriever *Retriever
	profiles  LearnerProfiles
	logger    *zap.Logger
}

func NewFragmentService(list FragmentListRepository, store FragmentStore, embeddings Embedder, profiles LearnerProfiles, pipeline config.Pipeline, log *zap.Logger) *FragmentService {
	log = logger.OrNop(log)
	return &FragmentService{
		list:      list,
		retriever: NewRetriever(store, embeddings, pipeline, log),
		profiles:  profiles,
		logger:    log.Named("fragments"),
	}
}

func (s *FragmentService) List(ctx context.Context, input ListFragmentsInput) (*FragmentPageResult, error) {
	if strings.TrimSpace(input.CourseID) == "" {
		return nil, domain.ErrMissingRequiredField
	}

	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}

	return s.list.ListByCourseWithCursor(ctx, input.CourseID, cursor, pagination.ClampLimit(input.Limit, defaultListLimit, maxListLimit))
}

// Search runs the hybrid retriever, boosted by the learner's interests when LearnerID is set.
func (s *FragmentService) Search(ctx context.Context, input SearchFragmentsInput) ([]domain.ScoredFragment, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, domain.ErrMissingRequiredField
	}

	var profile *domain.LearnerProfile
	if input.LearnerID != "" && s.profiles != nil {
		p, err := s.profiles.Get(ctx, input.LearnerID)
		if err != nil {
			s.logger.Warn("failed to load learner profile for search", zap.String("learner_id", input.LearnerID), zap.Error(err))
		} else {
			profile = p
		}
	}

	return s.retriever.Search(ctx, SearchInput{
		Query:    input.Query,
		CourseID: input.CourseID,
		Profile:  profile,
		Limit:    input.Limit,
	})
}
