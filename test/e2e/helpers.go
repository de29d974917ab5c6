//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/quizforge/internal/api/handlers"
	"github.com/cloo-solutions/quizforge/internal/config"
	"github.com/cloo-solutions/quizforge/internal/extract"
	"github.com/cloo-solutions/quizforge/internal/jobs"
	"github.com/cloo-solutions/quizforge/internal/repository"
	"github.com/cloo-solutions/quizforge/internal/server"
	"github.com/cloo-solutions/quizforge/internal/service"
	"github.com/cloo-solutions/quizforge/internal/storage"
	"github.com/cloo-solutions/quizforge/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap/zaptest"
)

// apiToken is the only key the e2e server accepts.
const apiToken = "qzf_e2e0e2e0e2e0e2e0e2e0e2e0e2e0e2e0e2e0e2e0e2e0e2e0e2e0e2e0e2e0e2e0"

// brokenMarker makes the stub generator answer with text that is not JSON.
const brokenMarker = "broken-generation-marker"

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	S3Client     *storage.S3Client
	Embeddings   *jobs.EmbeddingWorker
	ServerURL    string
	ServerCloser func()
	BinaryDir    string
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with containers and server
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "test-courses",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	env := &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		RustFSC:    s3C,
		Pool:       pool,
		S3Client:   s3Client,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
	env.startServer(port)

	return env
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// ProcessEmbeddings runs one pass of the embedding worker.
func (e *E2ETestEnv) ProcessEmbeddings() {
	if err := e.Embeddings.ProcessJobs(e.Ctx); err != nil {
		e.T.Fatalf("failed to process embedding jobs: %v", err)
	}
}

// BuildBinaries builds the quizforge client binary
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "quizforge-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "quizforge"), "./cmd/quizforge")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build quizforge: %v\n%s", err, out)
	}
}

// RunQuizforge runs the quizforge CLI command
func (e *E2ETestEnv) RunQuizforge(args ...string) (string, error) {
	return e.RunQuizforgeWithInput("", args...)
}

// RunQuizforgeWithInput runs the quizforge CLI command with stdin input
func (e *E2ETestEnv) RunQuizforgeWithInput(input string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "quizforge"), args...)
	cmd.Dir = e.T.TempDir()
	cmd.Stdin = strings.NewReader(input)
	cmd.Env = append(os.Environ(),
		"HOME="+cmd.Dir,
		"QUIZFORGE_CONFIG_DIR="+cmd.Dir,
		fmt.Sprintf("QUIZFORGE_API_KEY=%s", apiToken),
		fmt.Sprintf("QUIZFORGE_API_URL=%s", e.ServerURL),
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	Status int
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, error) {
	return e.doRequest(http.MethodGet, path, nil, "", authToken)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body any, authToken string) (*APIResponse, error) {
	return e.doJSON(http.MethodPost, path, body, authToken)
}

// Put performs a PUT request
func (e *E2ETestEnv) Put(path string, body any, authToken string) (*APIResponse, error) {
	return e.doJSON(http.MethodPut, path, body, authToken)
}

// Upload posts a multipart form with the document under "file".
func (e *E2ETestEnv) Upload(path, filename string, content []byte, fields map[string]string, authToken string) (*APIResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return e.doRequest(http.MethodPost, path, &buf, writer.FormDataContentType(), authToken)
}

func (e *E2ETestEnv) doJSON(method, path string, body any, authToken string) (*APIResponse, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal body: %w", err)
	}
	return e.doRequest(method, path, bytes.NewReader(jsonData), "application/json", authToken)
}

func (e *E2ETestEnv) doRequest(method, path string, body io.Reader, contentType, authToken string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(e.Ctx, method, e.ServerURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{Status: resp.StatusCode}
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, apiResp); err != nil {
			return nil, fmt.Errorf("failed to parse response (status %d): %s", resp.StatusCode, respBody)
		}
	}
	return apiResp, nil
}

// stubGenerator answers with one TRUE_FALSE question per requested slot.
type stubGenerator struct{}

func (stubGenerator) Generate(ctx context.Context, prompt string, questionCount int) (string, error) {
	if strings.Contains(prompt, brokenMarker) {
		return "I cannot produce a quiz for this content.", nil
	}
	questions := make([]string, 0, questionCount)
	for i := range questionCount {
		questions = append(questions, fmt.Sprintf(
			`{"text":"Statement %d about the course is correct.","type":"TRUE_FALSE","options":["Vrai","Faux"],"correctAnswer":"Vrai"}`, i+1))
	}
	return `{"title":"E2E quiz","description":"generated","questions":[` + strings.Join(questions, ",") + `]}`, nil
}

func (e *E2ETestEnv) startServer(port int) {
	log := zaptest.NewLogger(e.T)
	pipeline := config.DefaultPipeline()

	fragmentRepo := repository.NewFragmentRepository(e.Pool)
	embeddings := service.NewEmbeddingService(nil, pipeline, log)
	profiles := service.NewProfileService(service.NewMemoryProfileStore(), pipeline)

	extractor := extract.New(extract.Config{MaxPages: pipeline.MaxPages, MinLineChars: pipeline.MinLineChars}, log)
	ingestion := service.NewIngestionService(repository.NewTxRunner(e.Pool), e.S3Client, extractor, pipeline, log)

	quizzes := service.NewQuizService(service.QuizServiceDeps{
		Extractor:  extractor,
		Embeddings: embeddings,
		Generator:  stubGenerator{},
		Courses:    fragmentRepo,
		Profiles:   profiles,
	}, pipeline, log)
	fragments := service.NewFragmentService(fragmentRepo, fragmentRepo, embeddings, profiles, pipeline, log)

	e.Embeddings = jobs.NewEmbeddingWorker(
		repository.NewEmbeddingJobRepository(e.Pool),
		service.NewFragmentEmbedder(embeddings, fragmentRepo),
		log,
	)

	router := server.NewRouter(server.RouterConfig{
		AuthValidator:   service.NewKeyAuthService([]string{apiToken}),
		Logger:          log,
		QuizHandler:     handlers.NewQuizHandler(quizzes, pipeline.DefaultQuestions, server.MaxUploadBytes),
		CourseHandler:   handlers.NewCourseHandler(ingestion, fragments, server.MaxUploadBytes),
		FragmentHandler: handlers.NewFragmentHandler(fragments),
		LearnerHandler:  handlers.NewLearnerHandler(profiles),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			e.T.Logf("server error: %v", err)
		}
	}()

	e.ServerURL = fmt.Sprintf("http://localhost:%d", port)
	e.ServerCloser = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
	waitForServer(e.T, e.ServerURL+"/health", 10*time.Second)
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not become ready within %v", timeout)
}

func getFreePort() (int, error) {
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, err
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}
