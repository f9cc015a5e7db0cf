package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// StrategyKind names the detection method used for a platform.
type StrategyKind string

const (
	StatusCode                     StrategyKind = "status_code"
	ContentMatch                   StrategyKind = "content_match"
	StructuredAPI                  StrategyKind = "structured_api"
	BrowserNavigation              StrategyKind = "browser_navigation"
	AuthenticatedBrowserNavigation StrategyKind = "authenticated_browser_navigation"
)

func (k StrategyKind) Valid() bool {
	switch k {
	case StatusCode, ContentMatch, StructuredAPI, BrowserNavigation, AuthenticatedBrowserNavigation:
		return true
	}
	return false
}

// UsernamePlaceholder is substituted into URL and body templates.
const UsernamePlaceholder = "{username}"

// Rules are the per-platform tables the classifier matches against.
type Rules struct {
	Method           string   `json:"method,omitempty"`
	NotFoundStatus   []int    `json:"not_found_status,omitempty"`
	AmbiguousStatus  []int    `json:"ambiguous_status,omitempty"`
	NotFoundPaths    []string `json:"not_found_paths,omitempty"`
	NotFoundPhrases  []string `json:"not_found_phrases,omitempty"`
	ChallengePhrases []string `json:"challenge_phrases,omitempty"`
	ExistsPhrases    []string `json:"exists_phrases,omitempty"`
}

// APISpec describes a structured (JSON) existence query.
type APISpec struct {
	Client       string            `json:"client,omitempty"` // "" for plain HTTP, "github" for the GitHub REST client
	Method       string            `json:"method,omitempty"`
	URL          string            `json:"url"`
	Body         string            `json:"body,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	Field        string            `json:"field"`                   // gjson path of the existence field
	RequirePath  string            `json:"require_path,omitempty"`  // gjson path that must be present for the payload to count as well-formed
	SuccessToken string            `json:"success_token,omitempty"` // when set, Field must equal this value for Exists
}

// Platform is one immutable catalog entry.
type Platform struct {
	ID              string
	Name            string
	Homepage        string
	URLTemplate     string
	Kind            StrategyKind
	Timeout         time.Duration
	Rules           Rules
	API             *APISpec
	BrowserFallback bool         // retry a failed API call by rendering the profile page
	TokenFallback   StrategyKind // kind used when the API client needs a token that is missing
}

// ProfileURL renders the platform's URL template for username.
func (p *Platform) ProfileURL(username string) string {
	return strings.ReplaceAll(p.URLTemplate, UsernamePlaceholder, url.PathEscape(username))
}

// RequiresSession reports whether the platform depends on the authenticated session.
func (p *Platform) RequiresSession() bool {
	return p.Kind == AuthenticatedBrowserNavigation
}

func (p *Platform) String() string { return fmt.Sprintf("%s(%s)", p.ID, p.Kind) }

// LoginFlow is how the authenticated browser session signs in.
type LoginFlow struct {
	LoginURL         string
	UsernameSelector string
	PasswordSelector string
	SubmitSelector   string
	LandingURL       string // prefix the post-login location must match
	Timeout          time.Duration
}
