package quiz

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloo-solutions/quizforge/internal/domain"
	"github.com/xeipuuv/gojsonschema"
)

var (
	ErrNoJSONObject = errors.New("no JSON object found in response")
	ErrEnvelope     = errors.New("response does not match the quiz envelope")
)

const envelopeSchema = `{
	"type": "object",
	"required": ["questions"],
	"properties": {
		"questions": {"type": "array", "minItems": 1}
	}
}`

// Envelope is the decoded model output before normalization.
type Envelope struct {
	Title       string
	Description string
	Questions   []map[string]any
	Diagnostics []Diagnostic
	// Elements counts every entry of the questions array, objects or not.
	Elements int
}

// Parser extracts the quiz envelope from free-form model output.
type Parser struct {
	schema *gojsonschema.Schema
}

func NewParser() (*Parser, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(envelopeSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile envelope schema: %w", err)
	}
	return &Parser{schema: schema}, nil
}

// MustNewParser panics if the embedded schema does not compile.
func MustNewParser() *Parser {
	p, err := NewParser()
	if err != nil {
		panic(err)
	}
	return p
}

// Parse returns *domain.MalformedResponseError when no usable envelope can be read.
func (p *Parser) Parse(raw string) (*Envelope, error) {
	text := StripFences(raw)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < 0 || end < start {
		return nil, domain.NewMalformedResponseError(raw, ErrNoJSONObject)
	}
	body := text[start : end+1]

	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, domain.NewMalformedResponseError(body, fmt.Errorf("invalid JSON: %w", err))
	}

	result, err := p.schema.Validate(gojsonschema.NewBytesLoader([]byte(body)))
	if err != nil {
		return nil, domain.NewMalformedResponseError(body, fmt.Errorf("schema check failed: %w", err))
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, re := range result.Errors() {
			details = append(details, re.String())
		}
		return nil, domain.NewMalformedResponseError(body, ErrEnvelope, details...)
	}

	items, _ := doc["questions"].([]any)
	env := &Envelope{Elements: len(items)}
	env.Title, _ = firstString(doc, []string{"title"})
	env.Description, _ = firstString(doc, []string{"description"})

	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			env.Diagnostics = append(env.Diagnostics, Diagnostic{
				Index:   i,
				Field:   "question",
				Message: fmt.Sprintf("expected an object, got %s", jsonKind(item)),
			})
			continue
		}
		env.Questions = append(env.Questions, obj)
	}

	return env, nil
}

// StripFences removes a leading ```lang line and a trailing ``` from s.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if nl := strings.Index(s, "\n"); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	}
	return fmt.Sprintf("%T", v)
}
