package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/handlecheck/internal/domain"
	apimw "github.com/hamed0406/handlecheck/internal/httpapi/middleware"
)

// Checker is the part of checker.Service the API needs.
type Checker interface {
	CheckOn(ctx context.Context, username string, ids ...string) (*domain.Report, error)
	Platforms() []*domain.Platform
}

type Server struct {
	Logger  *zap.Logger
	Checker Checker
	// CatalogVersion is reported by /api/platforms.
	CatalogVersion string
	// RequestTimeout bounds one availability check; 0 = no extra bound.
	RequestTimeout time.Duration
}

func NewServer(l *zap.Logger, c Checker, catalogVersion string) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	return &Server{Logger: l, Checker: c, CatalogVersion: catalogVersion, RequestTimeout: 60 * time.Second}
}

// Router builds the HTTP routes. Empty origins allow any origin.
// Rate limiting applies per client IP to the check endpoints only.
func (s *Server) Router(keys apimw.Keys, origins []string, pubRPM, pubBurst int) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.accessLog)
	if len(origins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(apimw.RequireAny(keys))
		r.Get("/api/platforms", s.handlePlatforms)

		r.Group(func(r chi.Router) {
			r.Use(apimw.RateLimit(pubRPM, pubBurst))
			r.Post("/checkUsername", s.handleCheckBody)
			r.Get("/api/check/{username}", s.handleCheckPath)
		})
	})

	r.With(apimw.RequireAdmin(keys)).Get("/api/admin/catalog", s.handleCatalogRules)

	return r
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.Logger.Info("http_request",
			zap.String("request_id", chimw.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
