package server

import (
	"net/http"

	"github.com/cloo-solutions/quizforge/internal/api"
	"github.com/cloo-solutions/quizforge/internal/api/handlers"
	"github.com/cloo-solutions/quizforge/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

const (
	// MaxUploadBytes bounds multipart document uploads.
	MaxUploadBytes int64 = 25 << 20
	// MaxJSONBytes bounds every other body, pasted lecture text included.
	MaxJSONBytes int64 = 4 << 20
)

type RouterConfig struct {
	AuthValidator   middleware.AuthValidator
	Logger          *zap.Logger
	CORSOrigins     []string
	QuizHandler     *handlers.QuizHandler
	CourseHandler   *handlers.CourseHandler
	FragmentHandler *handlers.FragmentHandler
	LearnerHandler  *handlers.LearnerHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(middleware.MaxBodyBytes(middleware.BodyLimits{JSON: MaxJSONBytes, Multipart: MaxUploadBytes}, cfg.Logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Route("/quizzes/generate", func(r chi.Router) {
			r.Post("/", cfg.QuizHandler.Generate)
			r.Post("/safe", cfg.QuizHandler.GenerateSafe)
			r.Post("/file", cfg.QuizHandler.GenerateFromFile)
		})

		r.Route("/courses/{courseID}", func(r chi.Router) {
			r.Post("/quizzes/generate", cfg.QuizHandler.GenerateForCourse)
			r.Post("/files", cfg.CourseHandler.Upload)
			r.Get("/fragments", cfg.CourseHandler.ListFragments)
		})

		r.Post("/fragments/search", cfg.FragmentHandler.Search)

		r.Route("/learners/{learnerID}", func(r chi.Router) {
			r.Get("/", cfg.LearnerHandler.Get)
			r.Put("/level", cfg.LearnerHandler.SetLevel)
			r.Post("/weaknesses", cfg.LearnerHandler.AddWeakness)
			r.Post("/interests", cfg.LearnerHandler.AddInterest)
		})
	})

	return r
}
