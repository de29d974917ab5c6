package client

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "qzf_a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2"

type recordedRequest struct {
	Method      string
	Path        string
	RawQuery    string
	Auth        string
	ContentType string
	Body        []byte
}

func newTestServer(t *testing.T, status int, data any) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests = append(requests, recordedRequest{
			Method:      r.Method,
			Path:        r.URL.Path,
			RawQuery:    r.URL.RawQuery,
			Auth:        r.Header.Get("Authorization"),
			ContentType: r.Header.Get("Content-Type"),
			Body:        body,
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status >= 400 {
			_ = json.NewEncoder(w).Encode(map[string]any{"error": data})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func runCommand(t *testing.T, sub *cobra.Command, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	if os.Getenv(envConfigDir) == "" {
		isolateProfile(t)
	}
	root := &cobra.Command{Use: "quizforge", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().Bool("output", false, "Output as JSON")
	root.PersistentFlags().String("api-key", "", "API key")
	root.PersistentFlags().String("api-url", "", "API base URL")
	root.AddCommand(sub)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(append(args, "--api-key", testKey, "--api-url", srv.URL))
	err := root.Execute()
	return out.String(), err
}

var sampleQuiz = QuizResponse{
	Title:   "Deep learning",
	Outcome: "generated",
	Questions: []Question{{
		Text:          "Backpropagation computes gradients.",
		Type:          "TRUE_FALSE",
		Options:       []string{"Vrai", "Faux"},
		CorrectAnswer: "Vrai",
	}},
}

func TestGenerate_FromText(t *testing.T) {
	srv, requests := newTestServer(t, http.StatusOK, sampleQuiz)

	out, err := runCommand(t, GenerateCmd(), srv, "generate", "--text", "Neural networks", "--title", "Deep learning", "--count", "3")
	require.NoError(t, err)

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, "/quizzes/generate", req.Path)
	assert.Equal(t, "Bearer "+testKey, req.Auth)
	assert.JSONEq(t, `{"title":"Deep learning","content":"Neural networks","count":3}`, string(req.Body))
	assert.Contains(t, out, "1. [TRUE_FALSE] Backpropagation computes gradients.")
	assert.Contains(t, out, "Answer: Vrai")
}

func TestGenerate_SafeUsesSafeEndpoint(t *testing.T) {
	degraded := sampleQuiz
	degraded.Outcome = "degraded"
	degraded.Cause = "gemini service unreachable"
	srv, requests := newTestServer(t, http.StatusOK, degraded)

	out, err := runCommand(t, GenerateCmd(), srv, "generate", "--text", "x", "--title", "T", "--safe")
	require.NoError(t, err)

	assert.Equal(t, "/quizzes/generate/safe", (*requests)[0].Path)
	assert.Contains(t, out, "fallback questions returned (gemini service unreachable)")
}

func TestGenerate_FromFile(t *testing.T) {
	srv, requests := newTestServer(t, http.StatusOK, sampleQuiz)
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("Gradient descent."), 0o600))

	_, err := runCommand(t, GenerateCmd(), srv, "generate", "--file", path, "--count", "4", "--output")
	require.NoError(t, err)

	req := (*requests)[0]
	assert.Equal(t, "/quizzes/generate/file", req.Path)
	assert.True(t, strings.HasPrefix(req.ContentType, "multipart/form-data"))
	assert.Contains(t, string(req.Body), "Gradient descent.")
	assert.Contains(t, string(req.Body), `name="count"`)
}

func TestGenerate_RequiresExactlyOneSource(t *testing.T) {
	srv, requests := newTestServer(t, http.StatusOK, sampleQuiz)

	_, err := runCommand(t, GenerateCmd(), srv, "generate", "--title", "T")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one of --file or --text")
	assert.Empty(t, *requests)
}

func TestGenerate_APIErrorDetails(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusUnprocessableEntity, "quiz rejected: 4 of 5 questions invalid")

	_, err := runCommand(t, GenerateCmd(), srv, "generate", "--text", "x", "--title", "T")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
}

func TestCourseGenerate_SendsLearner(t *testing.T) {
	srv, requests := newTestServer(t, http.StatusOK, sampleQuiz)

	_, err := runCommand(t, CourseCmd(), srv, "course", "generate", "course-1", "--title", "Optimizers", "--learner", "l-7")
	require.NoError(t, err)

	req := (*requests)[0]
	assert.Equal(t, "/courses/course-1/quizzes/generate", req.Path)
	assert.JSONEq(t, `{"title":"Optimizers","learner_id":"l-7"}`, string(req.Body))
}

func TestCourseGenerate_DefaultsToProfileLearner(t *testing.T) {
	isolateProfile(t)
	require.NoError(t, SaveProfile(&Profile{APIURL: defaultAPIURL, Learner: "learner-9"}))
	srv, requests := newTestServer(t, http.StatusOK, sampleQuiz)

	_, err := runCommand(t, CourseCmd(), srv, "course", "generate", "course-1", "--title", "Optimizers", "--count", "3")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Optimizers","count":3,"learner_id":"learner-9"}`, string((*requests)[0].Body))

	_, err = runCommand(t, CourseCmd(), srv, "course", "generate", "course-1", "--title", "Optimizers", "--learner", "l-7")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Optimizers","learner_id":"l-7"}`, string((*requests)[1].Body))
}

func TestCourseUpload(t *testing.T) {
	srv, requests := newTestServer(t, http.StatusCreated, CourseFile{ID: "file-1", Filename: "notes.txt", Fragments: 2})
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("Adam optimizer."), 0o600))

	out, err := runCommand(t, CourseCmd(), srv, "course", "upload", "course-1", path, "--tag", "ml", "--tag", "optim")
	require.NoError(t, err)

	req := (*requests)[0]
	assert.Equal(t, "/courses/course-1/files", req.Path)
	assert.Contains(t, string(req.Body), "ml,optim")
	assert.Contains(t, out, "Fragments: 2")
}

func TestCourseFragments_Pagination(t *testing.T) {
	srv, requests := newTestServer(t, http.StatusOK, FragmentPage{
		Items:   []Fragment{{ID: "f1", Content: "Adam", Embedded: true}},
		Cursor:  "next",
		HasMore: true,
	})

	out, err := runCommand(t, CourseCmd(), srv, "course", "fragments", "course-1", "--limit", "1", "--cursor", "abc")
	require.NoError(t, err)

	req := (*requests)[0]
	assert.Equal(t, "/courses/course-1/fragments", req.Path)
	assert.Equal(t, "cursor=abc&limit=1", req.RawQuery)
	assert.Contains(t, out, "embedded")
	assert.Contains(t, out, "--cursor next")
}

func TestSearch(t *testing.T) {
	srv, requests := newTestServer(t, http.StatusOK, SearchResponse{
		Results: []Fragment{{ID: "f1", SourceTitle: "Deep learning", Content: "Backpropagation", Score: 0.9}},
		Count:   1,
	})

	out, err := runCommand(t, SearchCmd(), srv, "search", "backprop", "--course", "c1", "--learner", "l1")
	require.NoError(t, err)

	assert.JSONEq(t, `{"query":"backprop","course_id":"c1","learner_id":"l1"}`, string((*requests)[0].Body))
	assert.Contains(t, out, "1. Deep learning (0.90)")
}

func TestLearnerCommands(t *testing.T) {
	profile := LearnerProfile{UserID: "l1", Level: "EXPERT", Interests: []string{"transformers"}}

	tests := []struct {
		name   string
		args   []string
		method string
		path   string
		body   string
	}{
		{name: "show", args: []string{"learner", "show", "l1"}, method: http.MethodGet, path: "/learners/l1"},
		{name: "level", args: []string{"learner", "level", "l1", "expert"}, method: http.MethodPut, path: "/learners/l1/level", body: `{"level":"expert"}`},
		{name: "weakness", args: []string{"learner", "weakness", "l1", "regularization"}, method: http.MethodPost, path: "/learners/l1/weaknesses", body: `{"topic":"regularization"}`},
		{name: "interest", args: []string{"learner", "interest", "l1", "transformers"}, method: http.MethodPost, path: "/learners/l1/interests", body: `{"topic":"transformers"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, requests := newTestServer(t, http.StatusOK, profile)

			out, err := runCommand(t, LearnerCmd(), srv, tt.args...)
			require.NoError(t, err)

			req := (*requests)[0]
			assert.Equal(t, tt.method, req.Method)
			assert.Equal(t, tt.path, req.Path)
			if tt.body != "" {
				assert.JSONEq(t, tt.body, string(req.Body))
			}
			assert.Contains(t, out, "Level: EXPERT")
			assert.Contains(t, out, "Weaknesses: (none)")
		})
	}
}
