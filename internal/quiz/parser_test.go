package quiz

import (
	"testing"

	"github.com/cloo-solutions/quizforge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bareResponse = `{"title":"Networks","questions":[{"text":"What does 'deep' refer to in deep learning?","type":"SINGLE_CHOICE","options":["Network depth","Training time","Dataset size","Model name"],"correctAnswer":"Network depth"}]}`

func TestParser_Parse_BareJSON(t *testing.T) {
	env, err := MustNewParser().Parse(bareResponse)

	require.NoError(t, err)
	assert.Equal(t, "Networks", env.Title)
	assert.Equal(t, 1, env.Elements)
	require.Len(t, env.Questions, 1)
	assert.Equal(t, "Network depth", env.Questions[0]["correctAnswer"])
}

func TestParser_Parse_FencedWithProseMatchesBare(t *testing.T) {
	p := MustNewParser()
	wrapped := "Sure! Here is your quiz:\n```json\n" + bareResponse + "\n```\nLet me know if you need more."

	bare, err := p.Parse(bareResponse)
	require.NoError(t, err)
	fenced, err := p.Parse(wrapped)
	require.NoError(t, err)

	assert.Equal(t, bare, fenced)
}

func TestParser_Parse_NoObject(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"prose", "I cannot help with that."},
		{"reversed braces", "} oops {"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MustNewParser().Parse(tt.raw)

			var malformed *domain.MalformedResponseError
			require.ErrorAs(t, err, &malformed)
			assert.ErrorIs(t, err, ErrNoJSONObject)
		})
	}
}

func TestParser_Parse_InvalidJSON(t *testing.T) {
	_, err := MustNewParser().Parse(`{"questions": [ {"text": "unterminated }`)

	var malformed *domain.MalformedResponseError
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, malformed.Fragment, `"questions"`)
}

func TestParser_Parse_FragmentIsCapped(t *testing.T) {
	long := "{" + string(make([]byte, 2000)) + "}"

	_, err := MustNewParser().Parse(long)

	var malformed *domain.MalformedResponseError
	require.ErrorAs(t, err, &malformed)
	assert.LessOrEqual(t, len([]rune(malformed.Fragment)), domain.MaxFragmentRunes)
}

func TestParser_Parse_EnvelopeViolations(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing questions", `{"title":"x"}`},
		{"questions not array", `{"questions":"none"}`},
		{"empty questions", `{"questions":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MustNewParser().Parse(tt.raw)

			var malformed *domain.MalformedResponseError
			require.ErrorAs(t, err, &malformed)
			assert.ErrorIs(t, err, ErrEnvelope)
			assert.NotEmpty(t, malformed.Details)
		})
	}
}

func TestParser_Parse_NonObjectElementsAreDiagnosed(t *testing.T) {
	env, err := MustNewParser().Parse(`{"questions":["just a string", {"text":"A real question here?"}, 42]}`)

	require.NoError(t, err)
	assert.Equal(t, 3, env.Elements)
	assert.Len(t, env.Questions, 1)
	require.Len(t, env.Diagnostics, 2)
	assert.Equal(t, 0, env.Diagnostics[0].Index)
	assert.Contains(t, env.Diagnostics[0].Message, "string")
	assert.Equal(t, 2, env.Diagnostics[1].Index)
	assert.Contains(t, env.Diagnostics[1].Message, "number")
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripFences("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, StripFences(`  {"a":1}  `))
}
