package quiz

import (
	"strings"

	"github.com/cloo-solutions/quizforge/internal/config"
	"github.com/cloo-solutions/quizforge/internal/domain"
	"github.com/cloo-solutions/quizforge/internal/logger"
	"go.uber.org/zap"
)

// Assembler runs parse, normalize and validate over one model response.
type Assembler struct {
	parser     *Parser
	normalizer *Normalizer
	validator  *Validator
	logger     *zap.Logger
}

func NewAssembler(p config.Pipeline, log *zap.Logger) *Assembler {
	return &Assembler{
		parser:     MustNewParser(),
		normalizer: NewNormalizer(p),
		validator:  NewValidator(p),
		logger:     logger.OrNop(log).Named("quiz"),
	}
}

// Assemble turns raw model output into a quiz of at most requested questions.
// Stats are filled even when an error is returned.
func (a *Assembler) Assemble(raw, title string, requested int) (*domain.GeneratedQuiz, domain.GenerationStats, error) {
	stats := domain.GenerationStats{Requested: requested}

	env, err := a.parser.Parse(raw)
	if err != nil {
		return nil, stats, err
	}
	stats.Parsed = env.Elements

	questions, diags := a.normalizer.NormalizeAll(env.Questions)
	diags = append(env.Diagnostics, diags...)
	for _, d := range diags {
		a.logger.Debug("question field diagnostic",
			zap.Int("index", d.Index),
			zap.String("field", d.Field),
			zap.String("message", d.Message),
		)
	}

	dropped := env.Elements - len(questions)
	report, err := a.validator.Validate(questions, dropped, requested)
	stats.Invalid = report.Invalid
	stats.Valid = len(report.Valid)
	if err != nil {
		return nil, stats, err
	}

	quizTitle := title
	if quizTitle == "" && !ContainsPlaceholder(env.Title) {
		quizTitle = env.Title
	}
	description := env.Description
	if ContainsPlaceholder(description) {
		description = ""
	}

	return &domain.GeneratedQuiz{
		Title:       strings.TrimSpace(quizTitle),
		Description: description,
		Questions:   report.Valid,
	}, stats, nil
}
