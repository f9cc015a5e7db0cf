package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hamed0406/handlecheck/internal/catalog"
	"github.com/hamed0406/handlecheck/internal/checker"
	"github.com/hamed0406/handlecheck/internal/domain"
)

type checkPayload struct {
	Username  string   `json:"username"`
	Platforms []string `json:"platforms,omitempty"`
}

// handleCheckBody serves POST /checkUsername with {"username": "..."}.
func (s *Server) handleCheckBody(w http.ResponseWriter, r *http.Request) {
	var p checkPayload
	dec := json.NewDecoder(io.LimitReader(r.Body, 4<<10))
	if err := dec.Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	s.check(w, r, p.Username, p.Platforms)
}

// handleCheckPath serves GET /api/check/{username}?platform=a,b.
func (s *Server) handleCheckPath(w http.ResponseWriter, r *http.Request) {
	var ids []string
	for _, v := range r.URL.Query()["platform"] {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	s.check(w, r, chi.URLParam(r, "username"), ids)
}

func (s *Server) check(w http.ResponseWriter, r *http.Request, username string, ids []string) {
	ctx := r.Context()
	if s.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.RequestTimeout)
		defer cancel()
	}

	rep, err := s.Checker.CheckOn(ctx, username, ids...)
	switch {
	case errors.Is(err, checker.ErrInvalidUsername):
		writeError(w, http.StatusBadRequest, "invalid username")
		return
	case errors.Is(err, catalog.ErrUnknownPlatform):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.Logger.Error("check_failed", zap.String("username", username), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "check failed")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

type platformInfo struct {
	ID       string              `json:"id"`
	Name     string              `json:"name"`
	Homepage string              `json:"homepage,omitempty"`
	Kind     domain.StrategyKind `json:"kind"`
}

func (s *Server) handlePlatforms(w http.ResponseWriter, r *http.Request) {
	ps := s.Checker.Platforms()
	out := make([]platformInfo, 0, len(ps))
	for _, p := range ps {
		out = append(out, platformInfo{ID: p.ID, Name: p.Name, Homepage: p.Homepage, Kind: p.Kind})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"catalog_version": s.CatalogVersion,
		"platforms":       out,
	})
}

type platformRules struct {
	platformInfo
	URLTemplate     string              `json:"url_template"`
	TimeoutMS       int64               `json:"timeout_ms"`
	Rules           domain.Rules        `json:"rules"`
	API             *domain.APISpec     `json:"api,omitempty"`
	BrowserFallback bool                `json:"browser_fallback,omitempty"`
	TokenFallback   domain.StrategyKind `json:"token_fallback,omitempty"`
}

// handleCatalogRules exposes the full detection rules for operators.
func (s *Server) handleCatalogRules(w http.ResponseWriter, r *http.Request) {
	ps := s.Checker.Platforms()
	out := make([]platformRules, 0, len(ps))
	for _, p := range ps {
		api := p.API
		if api != nil && len(api.Headers) > 0 {
			cp := *api
			cp.Headers = nil // may carry credentials
			api = &cp
		}
		out = append(out, platformRules{
			platformInfo:    platformInfo{ID: p.ID, Name: p.Name, Homepage: p.Homepage, Kind: p.Kind},
			URLTemplate:     p.URLTemplate,
			TimeoutMS:       p.Timeout.Milliseconds(),
			Rules:           p.Rules,
			API:             api,
			BrowserFallback: p.BrowserFallback,
			TokenFallback:   p.TokenFallback,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"catalog_version": s.CatalogVersion,
		"platforms":       out,
	})
}
