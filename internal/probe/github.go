package probe

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/hamed0406/handlecheck/internal/classify"
	"github.com/hamed0406/handlecheck/internal/domain"
)

// NewGitHubClient returns an authenticated GitHub REST client, or nil when
// token is empty. baseURL overrides the API endpoint (tests, GHES).
func NewGitHubClient(token, baseURL string) (*github.Client, error) {
	if token == "" {
		return nil, nil
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	c := github.NewClient(oauth2.NewClient(context.Background(), ts))
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, err
		}
		if u.Path == "" || u.Path[len(u.Path)-1] != '/' {
			u.Path += "/"
		}
		c.BaseURL = u
	}
	return c, nil
}

// GitHubProbe is the structured-API strategy for GitHub, answered by the
// users endpoint: 404 means the login is free.
type GitHubProbe struct {
	Client *github.Client
}

func (p *GitHubProbe) Kind() domain.StrategyKind { return domain.StructuredAPI }

func (p *GitHubProbe) Probe(ctx context.Context, t Target) domain.Outcome {
	user, _, err := p.Client.Users.Get(ctx, t.Username)
	if err != nil {
		var rle *github.RateLimitError
		if errors.As(err, &rle) {
			return domain.Undetermined(domain.CauseAmbiguous, "github rate limited")
		}
		var abuse *github.AbuseRateLimitError
		if errors.As(err, &abuse) {
			return domain.Undetermined(domain.CauseAmbiguous, "github secondary rate limit")
		}
		var er *github.ErrorResponse
		if errors.As(err, &er) && er.Response != nil {
			if er.Response.StatusCode == http.StatusNotFound {
				return domain.Missing("github users api 404")
			}
			return domain.Undetermined(domain.CauseAmbiguous, er.Error())
		}
		return classify.TransportFailure(err)
	}
	if user.GetLogin() == "" {
		return domain.Undetermined(domain.CauseAmbiguous, "github returned a user without login")
	}
	return domain.Found("github " + user.GetType() + " " + user.GetLogin())
}
