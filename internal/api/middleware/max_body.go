package middleware

import (
	"fmt"
	"mime"
	"net/http"

	"github.com/cloo-solutions/quizforge/internal/api"
	"go.uber.org/zap"
)

// BodyLimits caps request bodies by kind. Document uploads are far larger than
// the JSON generation and learner requests, so they get their own budget.
type BodyLimits struct {
	JSON      int64
	Multipart int64
}

func (l BodyLimits) forRequest(r *http.Request) int64 {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return l.Multipart
	}
	return l.JSON
}

// MaxBodyBytes rejects bodies whose declared length exceeds the limit and wraps
// the rest in http.MaxBytesReader so chunked bodies are cut off as well.
// A zero limit disables the check for that kind.
func MaxBodyBytes(limits BodyLimits, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limit := limits.forRequest(r)
			if limit <= 0 || r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > limit {
				logger.Warn("request body over limit",
					zap.String("path", r.URL.Path),
					zap.Int64("content_length", r.ContentLength),
					zap.Int64("limit", limit),
					zap.String("request_id", GetRequestID(r.Context())),
				)
				api.Error(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", limit))
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
