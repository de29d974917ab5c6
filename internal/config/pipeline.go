package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// StoredEmbeddingDimensions is the width of knowledge_fragments.embedding in the schema migrations.
const StoredEmbeddingDimensions = 1536

// Pipeline holds the tuning values of the quiz generation pipeline.
type Pipeline struct {
	// Generation token budget: min(TokenBase + TokenPerQuestion*n, TokenMax).
	TokenBase        int32   `yaml:"token_base"`
	TokenPerQuestion int32   `yaml:"token_per_question"`
	TokenMax         int32   `yaml:"token_max"`
	Temperature      float32 `yaml:"temperature"`

	GenerationTimeout time.Duration `yaml:"generation_timeout"`
	EmbeddingTimeout  time.Duration `yaml:"embedding_timeout"`

	CacheCapacity       int `yaml:"cache_capacity"`
	EmbedMaxChars       int `yaml:"embed_max_chars"`
	EmbeddingDimensions int `yaml:"embedding_dimensions"`

	FragmentMaxChars int `yaml:"fragment_max_chars"`
	MinQuestionChars int `yaml:"min_question_chars"`

	// Batch is rejected when invalid/total exceeds this ratio.
	AcceptanceThreshold float64 `yaml:"acceptance_threshold"`

	RetrieveLimit       int     `yaml:"retrieve_limit"`
	KeywordMinResults   int     `yaml:"keyword_min_results"`
	TagMinResults       int     `yaml:"tag_min_results"`
	PopularityThreshold int     `yaml:"popularity_threshold"`
	InterestBoost       float64 `yaml:"interest_boost"`
	PopularityBoost     float64 `yaml:"popularity_boost"`
	MaxInterests        int     `yaml:"max_interests"`

	MaxPages     int `yaml:"max_pages"`
	MinLineChars int `yaml:"min_line_chars"`

	MinQuestions     int `yaml:"min_questions"`
	MaxQuestions     int `yaml:"max_questions"`
	DefaultQuestions int `yaml:"default_questions"`

	Distribution Distribution `yaml:"distribution"`
	Chunk        Chunk        `yaml:"chunk"`
}

// Distribution is the target share of each question type in a batch.
type Distribution struct {
	SingleChoice   float64 `yaml:"single_choice"`
	MultipleChoice float64 `yaml:"multiple_choice"`
	TrueFalse      float64 `yaml:"true_false"`
}

type Chunk struct {
	MaxChars  int `yaml:"max_chars"`
	MinChars  int `yaml:"min_chars"`
	Overlap   int `yaml:"overlap"`
	MaxChunks int `yaml:"max_chunks"`
}

func DefaultPipeline() Pipeline {
	return Pipeline{
		TokenBase:           10000,
		TokenPerQuestion:    300,
		TokenMax:            30000,
		Temperature:         0.3,
		GenerationTimeout:   60 * time.Second,
		EmbeddingTimeout:    10 * time.Second,
		CacheCapacity:       1000,
		EmbedMaxChars:       500,
		EmbeddingDimensions: StoredEmbeddingDimensions,
		FragmentMaxChars:    3000,
		MinQuestionChars:    10,
		AcceptanceThreshold: 0.5,
		RetrieveLimit:       5,
		KeywordMinResults:   3,
		TagMinResults:       2,
		PopularityThreshold: 10,
		InterestBoost:       0.15,
		PopularityBoost:     0.05,
		MaxInterests:        10,
		MaxPages:            20,
		MinLineChars:        3,
		MinQuestions:        1,
		MaxQuestions:        50,
		DefaultQuestions:    10,
		Distribution: Distribution{
			SingleChoice:   0.90,
			MultipleChoice: 0.05,
			TrueFalse:      0.05,
		},
		Chunk: Chunk{
			MaxChars:  3000,
			MinChars:  800,
			Overlap:   200,
			MaxChunks: 40,
		},
	}
}

// LoadPipelineFile decodes a YAML file over base. Keys absent from the file keep base values.
func LoadPipelineFile(path string, base Pipeline) (Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("failed to read pipeline file: %w", err)
	}

	p := base
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Pipeline{}, fmt.Errorf("failed to parse pipeline file: %w", err)
	}

	if err := p.Validate(); err != nil {
		return Pipeline{}, err
	}
	return p, nil
}

func (p Pipeline) Validate() error {
	switch {
	case p.TokenBase <= 0 || p.TokenPerQuestion < 0 || p.TokenMax < p.TokenBase:
		return fmt.Errorf("pipeline token budget is invalid: base=%d per_question=%d max=%d", p.TokenBase, p.TokenPerQuestion, p.TokenMax)
	case p.Temperature < 0 || p.Temperature > 2:
		return fmt.Errorf("pipeline temperature must be within [0, 2]")
	case p.CacheCapacity <= 0:
		return fmt.Errorf("pipeline cache_capacity must be positive")
	case p.EmbedMaxChars <= 0 || p.FragmentMaxChars <= 0:
		return fmt.Errorf("pipeline truncation lengths must be positive")
	case p.EmbeddingDimensions != StoredEmbeddingDimensions:
		return fmt.Errorf("pipeline embedding_dimensions must be %d to match the fragment store, got %d", StoredEmbeddingDimensions, p.EmbeddingDimensions)
	case p.AcceptanceThreshold <= 0 || p.AcceptanceThreshold > 1:
		return fmt.Errorf("pipeline acceptance_threshold must be within (0, 1]")
	case p.RetrieveLimit <= 0:
		return fmt.Errorf("pipeline retrieve_limit must be positive")
	case p.MinQuestions < 1 || p.MaxQuestions < p.MinQuestions:
		return fmt.Errorf("pipeline question bounds are invalid: min=%d max=%d", p.MinQuestions, p.MaxQuestions)
	case p.DefaultQuestions < p.MinQuestions || p.DefaultQuestions > p.MaxQuestions:
		return fmt.Errorf("pipeline default_questions must be within question bounds")
	case p.GenerationTimeout < 0 || p.EmbeddingTimeout < 0:
		return fmt.Errorf("pipeline timeouts cannot be negative")
	case p.Chunk.MaxChars <= 0 || p.Chunk.MinChars > p.Chunk.MaxChars:
		return fmt.Errorf("pipeline chunk sizes are invalid")
	}

	sum := p.Distribution.SingleChoice + p.Distribution.MultipleChoice + p.Distribution.TrueFalse
	if math.Abs(sum-1) > 0.01 {
		return fmt.Errorf("pipeline distribution must sum to 1, got %.2f", sum)
	}
	return nil
}

// MaxOutputTokens returns the generation budget for n questions.
func (p Pipeline) MaxOutputTokens(n int) int32 {
	if n < 0 {
		n = 0
	}
	budget := int64(p.TokenBase) + int64(p.TokenPerQuestion)*int64(n)
	if budget > int64(p.TokenMax) {
		return p.TokenMax
	}
	return int32(budget)
}

// ClampQuestions bounds n to [MinQuestions, MaxQuestions].
func (p Pipeline) ClampQuestions(n int) int {
	if n < p.MinQuestions {
		return p.MinQuestions
	}
	if n > p.MaxQuestions {
		return p.MaxQuestions
	}
	return n
}
