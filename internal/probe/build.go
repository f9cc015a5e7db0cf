package probe

import (
	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"

	"github.com/hamed0406/handlecheck/internal/browser"
	"github.com/hamed0406/handlecheck/internal/domain"
)

// Deps are the transports strategies are built from.
type Deps struct {
	Fetcher *Fetcher
	Browser browser.Navigator // anonymous browser; nil disables browser probes
	GitHub  *github.Client    // nil when no token is configured
	Log     *zap.Logger
}

// Build picks the strategy for p from its declared kind. The result is
// panic-safe.
func Build(p *domain.Platform, d Deps) Strategy {
	return Guard(build(p, p.Kind, d), d.Log)
}

func build(p *domain.Platform, kind domain.StrategyKind, d Deps) Strategy {
	switch kind {
	case domain.StatusCode:
		return &StatusCodeProbe{Fetcher: d.Fetcher, Log: d.Log}
	case domain.ContentMatch:
		return &ContentMatchProbe{Fetcher: d.Fetcher, Log: d.Log}
	case domain.StructuredAPI:
		var s Strategy
		switch {
		case p.API != nil && p.API.Client == "github" && d.GitHub != nil:
			s = &GitHubProbe{Client: d.GitHub}
		case p.API != nil && p.API.Client != "":
			// Client needs a token we do not have; scrape instead.
			fk := p.TokenFallback
			if fk == "" {
				fk = domain.StatusCode
			}
			return build(p, fk, d)
		default:
			s = &StructuredAPIProbe{Fetcher: d.Fetcher, Log: d.Log}
		}
		if p.BrowserFallback && d.Browser != nil {
			return &Fallback{
				Primary:       s,
				Secondary:     &NavigateProbe{Browser: d.Browser, Log: d.Log},
				PrimaryBudget: p.Timeout / 3,
			}
		}
		return s
	case domain.BrowserNavigation:
		if d.Browser == nil {
			return unavailable{kind: kind, reason: "browser probing disabled"}
		}
		return &NavigateProbe{Browser: d.Browser, Log: d.Log}
	case domain.AuthenticatedBrowserNavigation:
		return &SessionProbe{Log: d.Log}
	}
	return unavailable{kind: kind, reason: "unsupported strategy " + string(kind)}
}
