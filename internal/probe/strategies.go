package probe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/hamed0406/handlecheck/internal/browser"
	"github.com/hamed0406/handlecheck/internal/classify"
	"github.com/hamed0406/handlecheck/internal/domain"
)

// StatusCodeProbe issues one request to the profile URL and looks only at
// the status.
type StatusCodeProbe struct {
	Fetcher *Fetcher
	Log     *zap.Logger
}

func (p *StatusCodeProbe) Kind() domain.StrategyKind { return domain.StatusCode }

func (p *StatusCodeProbe) Probe(ctx context.Context, t Target) domain.Outcome {
	method := t.Platform.Rules.Method
	if method == "" {
		method = http.MethodHead
	}
	obs := p.Fetcher.Fetch(ctx, Request{Method: method, URL: t.Platform.ProfileURL(t.Username)})
	return observed(p.Log, t, obs, classify.StatusCode(obs, t.Platform.Rules))
}

// ContentMatchProbe fetches the profile page and scans it for not-found markers.
type ContentMatchProbe struct {
	Fetcher *Fetcher
	Log     *zap.Logger
}

func (p *ContentMatchProbe) Kind() domain.StrategyKind { return domain.ContentMatch }

func (p *ContentMatchProbe) Probe(ctx context.Context, t Target) domain.Outcome {
	obs := p.Fetcher.Fetch(ctx, Request{
		Method:   http.MethodGet,
		URL:      t.Platform.ProfileURL(t.Username),
		Headers:  map[string]string{"Accept": "text/html,application/xhtml+xml"},
		ReadBody: true,
	})
	return observed(p.Log, t, obs, classify.ContentMatch(obs, t.Platform.Rules))
}

// StructuredAPIProbe queries a JSON endpoint with a definite existence field.
type StructuredAPIProbe struct {
	Fetcher *Fetcher
	Log     *zap.Logger
}

func (p *StructuredAPIProbe) Kind() domain.StrategyKind { return domain.StructuredAPI }

func (p *StructuredAPIProbe) Probe(ctx context.Context, t Target) domain.Outcome {
	api := t.Platform.API
	if api == nil {
		return domain.Undetermined(domain.CauseInternal, "platform has no api definition")
	}
	headers := map[string]string{"Accept": "application/json"}
	for k, v := range api.Headers {
		headers[k] = v
	}
	obs := p.Fetcher.Fetch(ctx, Request{
		Method:   api.Method,
		URL:      renderURL(api.URL, t.Username),
		Body:     renderJSON(api.Body, t.Username),
		Headers:  headers,
		ReadBody: true,
	})
	return observed(p.Log, t, obs, classify.StructuredAPI(obs, t.Platform.Rules, api))
}

// NavigateProbe renders the profile page in an anonymous browser tab.
type NavigateProbe struct {
	Browser browser.Navigator
	Log     *zap.Logger
}

func (p *NavigateProbe) Kind() domain.StrategyKind { return domain.BrowserNavigation }

func (p *NavigateProbe) Probe(ctx context.Context, t Target) domain.Outcome {
	if p.Browser == nil {
		return domain.Undetermined(domain.CauseInternal, "no browser configured")
	}
	profile := t.Platform.ProfileURL(t.Username)
	page, err := p.Browser.Navigate(ctx, profile)
	obs := pageObservation(profile, page, err)
	return observed(p.Log, t, obs, classify.Rendered(obs, t.Platform.Rules))
}

// SessionProbe renders the profile page in the request's authenticated
// session. It never authenticates: a session that is not Ready yields
// Unknown/auth without any navigation.
type SessionProbe struct {
	Log *zap.Logger
}

func (p *SessionProbe) Kind() domain.StrategyKind { return domain.AuthenticatedBrowserNavigation }

func (p *SessionProbe) Probe(ctx context.Context, t Target) domain.Outcome {
	if t.Session == nil {
		return domain.Undetermined(domain.CauseAuth, "no authenticated session for this request")
	}
	if err := t.Session.Await(ctx); err != nil {
		if ctx.Err() != nil {
			return domain.Undetermined(domain.CauseTimeout, "waiting for session: "+err.Error())
		}
		return domain.Undetermined(domain.CauseAuth, err.Error())
	}
	profile := t.Platform.ProfileURL(t.Username)
	page, err := t.Session.Navigate(ctx, profile)
	obs := pageObservation(profile, page, err)
	return observed(p.Log, t, obs, classify.Rendered(obs, t.Platform.Rules))
}

// unavailable stands in for a strategy whose dependencies are not configured.
type unavailable struct {
	kind   domain.StrategyKind
	reason string
}

func (u unavailable) Kind() domain.StrategyKind { return u.kind }

func (u unavailable) Probe(context.Context, Target) domain.Outcome {
	return domain.Undetermined(domain.CauseInternal, u.reason)
}

func pageObservation(requested string, p browser.Page, err error) domain.Observation {
	return domain.Observation{
		Rendered:  true,
		Requested: requested,
		FinalURL:  p.URL,
		Title:     p.Title,
		Body:      []byte(p.HTML),
		Err:       err,
	}
}

// renderURL substitutes the username, query-escaping it when the
// placeholder sits in the query string.
func renderURL(tmpl, username string) string {
	i := strings.Index(tmpl, domain.UsernamePlaceholder)
	if i < 0 {
		return tmpl
	}
	esc := url.PathEscape(username)
	if q := strings.Index(tmpl, "?"); q >= 0 && q < i {
		esc = url.QueryEscape(username)
	}
	return strings.ReplaceAll(tmpl, domain.UsernamePlaceholder, esc)
}

// renderJSON substitutes the username into a JSON body template as the
// contents of a string literal.
func renderJSON(tmpl, username string) string {
	if tmpl == "" {
		return ""
	}
	b, _ := json.Marshal(username)
	return strings.ReplaceAll(tmpl, domain.UsernamePlaceholder, string(b[1:len(b)-1]))
}
