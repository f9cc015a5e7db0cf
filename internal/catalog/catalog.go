// Package catalog loads the ordered, immutable set of platforms to probe.
//
// The detection tables (not-found statuses, redirect paths, phrases) are
// versioned data in platforms.toml rather than code so they can be refreshed
// when a site changes its markup.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/hamed0406/handlecheck/internal/domain"
)

//go:embed platforms.toml
var defaultData []byte

const (
	defaultTimeout        = 8 * time.Second
	defaultBrowserTimeout = 25 * time.Second
	defaultLoginTimeout   = 30 * time.Second
)

var (
	ErrEmpty           = errors.New("catalog: no platforms defined")
	ErrUnknownPlatform = errors.New("catalog: unknown platform")
)

type Catalog struct {
	version   string
	platforms []*domain.Platform
	byID      map[string]*domain.Platform
	session   domain.LoginFlow
}

// file mirrors platforms.toml.
type file struct {
	Version  string `toml:"version"`
	Defaults struct {
		Timeout          string   `toml:"timeout"`
		BrowserTimeout   string   `toml:"browser_timeout"`
		ChallengePhrases []string `toml:"challenge_phrases"`
	} `toml:"defaults"`
	Session struct {
		LoginURL         string `toml:"login_url"`
		UsernameSelector string `toml:"username_selector"`
		PasswordSelector string `toml:"password_selector"`
		SubmitSelector   string `toml:"submit_selector"`
		LandingURL       string `toml:"landing_url"`
		Timeout          string `toml:"timeout"`
	} `toml:"session"`
	Platforms []platformEntry `toml:"platform"`
}

type platformEntry struct {
	ID               string    `toml:"id"`
	Name             string    `toml:"name"`
	Homepage         string    `toml:"homepage"`
	URL              string    `toml:"url"`
	Kind             string    `toml:"kind"`
	Timeout          string    `toml:"timeout"`
	Method           string    `toml:"method"`
	NotFoundStatus   []int     `toml:"not_found_status"`
	AmbiguousStatus  []int     `toml:"ambiguous_status"`
	NotFoundPaths    []string  `toml:"not_found_paths"`
	NotFoundPhrases  []string  `toml:"not_found_phrases"`
	ExistsPhrases    []string  `toml:"exists_phrases"`
	ChallengePhrases []string  `toml:"challenge_phrases"`
	BrowserFallback  bool      `toml:"browser_fallback"`
	TokenFallback    string    `toml:"token_fallback"`
	API              *apiEntry `toml:"api"`
}

type apiEntry struct {
	Client       string            `toml:"client"`
	Method       string            `toml:"method"`
	URL          string            `toml:"url"`
	Body         string            `toml:"body"`
	Headers      map[string]string `toml:"headers"`
	Field        string            `toml:"field"`
	RequirePath  string            `toml:"require_path"`
	SuccessToken string            `toml:"success_token"`
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(defaultData)
}

// Load reads a catalog from path, or the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a TOML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if _, err := toml.Decode(string(data), &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(f.Platforms) == 0 {
		return nil, ErrEmpty
	}

	timeout, err := parseDuration(f.Defaults.Timeout, defaultTimeout)
	if err != nil {
		return nil, fmt.Errorf("defaults.timeout: %w", err)
	}
	browserTimeout, err := parseDuration(f.Defaults.BrowserTimeout, defaultBrowserTimeout)
	if err != nil {
		return nil, fmt.Errorf("defaults.browser_timeout: %w", err)
	}
	loginTimeout, err := parseDuration(f.Session.Timeout, defaultLoginTimeout)
	if err != nil {
		return nil, fmt.Errorf("session.timeout: %w", err)
	}

	c := &Catalog{
		version: f.Version,
		byID:    make(map[string]*domain.Platform, len(f.Platforms)),
		session: domain.LoginFlow{
			LoginURL:         f.Session.LoginURL,
			UsernameSelector: f.Session.UsernameSelector,
			PasswordSelector: f.Session.PasswordSelector,
			SubmitSelector:   f.Session.SubmitSelector,
			LandingURL:       f.Session.LandingURL,
			Timeout:          loginTimeout,
		},
	}

	for i, e := range f.Platforms {
		p, err := e.build(timeout, browserTimeout, f.Defaults.ChallengePhrases)
		if err != nil {
			return nil, fmt.Errorf("platform #%d (%s): %w", i+1, e.ID, err)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("platform %q defined twice", p.ID)
		}
		if p.RequiresSession() && c.session.LoginURL == "" {
			return nil, fmt.Errorf("platform %q needs a [session] login flow", p.ID)
		}
		c.byID[p.ID] = p
		c.platforms = append(c.platforms, p)
	}
	return c, nil
}

func (e platformEntry) build(timeout, browserTimeout time.Duration, challenge []string) (*domain.Platform, error) {
	id := strings.TrimSpace(e.ID)
	if id == "" {
		return nil, errors.New("missing id")
	}
	if !strings.Contains(e.URL, domain.UsernamePlaceholder) {
		return nil, fmt.Errorf("url %q lacks %s", e.URL, domain.UsernamePlaceholder)
	}
	kind := domain.StrategyKind(e.Kind)
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown kind %q", e.Kind)
	}

	def := timeout
	if kind == domain.BrowserNavigation || kind == domain.AuthenticatedBrowserNavigation || e.BrowserFallback {
		def = browserTimeout
	}
	t, err := parseDuration(e.Timeout, def)
	if err != nil {
		return nil, fmt.Errorf("timeout: %w", err)
	}

	p := &domain.Platform{
		ID:              id,
		Name:            e.Name,
		Homepage:        e.Homepage,
		URLTemplate:     e.URL,
		Kind:            kind,
		Timeout:         t,
		BrowserFallback: e.BrowserFallback,
		Rules: domain.Rules{
			Method:           strings.ToUpper(e.Method),
			NotFoundStatus:   e.NotFoundStatus,
			AmbiguousStatus:  e.AmbiguousStatus,
			NotFoundPaths:    e.NotFoundPaths,
			NotFoundPhrases:  e.NotFoundPhrases,
			ExistsPhrases:    e.ExistsPhrases,
			ChallengePhrases: append(append([]string(nil), challenge...), e.ChallengePhrases...),
		},
	}
	if p.Name == "" {
		p.Name = id
	}

	if e.TokenFallback != "" {
		fk := domain.StrategyKind(e.TokenFallback)
		if !fk.Valid() || fk == domain.StructuredAPI {
			return nil, fmt.Errorf("invalid token_fallback %q", e.TokenFallback)
		}
		p.TokenFallback = fk
	}

	if kind == domain.StructuredAPI {
		if e.API == nil {
			return nil, errors.New("structured_api requires an [api] table")
		}
		a := e.API
		if a.Client == "" {
			if a.URL == "" || a.Field == "" {
				return nil, errors.New("api needs url and field")
			}
		}
		method := strings.ToUpper(a.Method)
		if method == "" {
			method = "GET"
		}
		p.API = &domain.APISpec{
			Client:       a.Client,
			Method:       method,
			URL:          a.URL,
			Body:         a.Body,
			Headers:      a.Headers,
			Field:        a.Field,
			RequirePath:  a.RequirePath,
			SuccessToken: a.SuccessToken,
		}
	}
	return p, nil
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", s)
	}
	return d, nil
}

// Platforms returns the entries in declared order. Callers must not modify them.
func (c *Catalog) Platforms() []*domain.Platform {
	return c.platforms
}

func (c *Catalog) Len() int { return len(c.platforms) }

func (c *Catalog) Version() string { return c.version }

func (c *Catalog) Lookup(id string) (*domain.Platform, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// Session returns the login flow used by authenticated platforms.
func (c *Catalog) Session() domain.LoginFlow { return c.session }

// NeedsSession reports whether any platform requires the authenticated session.
func (c *Catalog) NeedsSession() bool {
	for _, p := range c.platforms {
		if p.RequiresSession() {
			return true
		}
	}
	return false
}

// Subset returns a catalog restricted to ids, keeping declared order.
// An empty list returns c itself.
func (c *Catalog) Subset(ids ...string) (*Catalog, error) {
	if len(ids) == 0 {
		return c, nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := c.byID[id]; !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownPlatform, id)
		}
		want[id] = true
	}
	sub := &Catalog{
		version: c.version,
		byID:    make(map[string]*domain.Platform, len(want)),
		session: c.session,
	}
	for _, p := range c.platforms {
		if want[p.ID] {
			sub.platforms = append(sub.platforms, p)
			sub.byID[p.ID] = p
		}
	}
	return sub, nil
}

// WithPlatforms returns a catalog with the same version and login flow whose
// entries are replaced by platforms, e.g. copies with adjusted timeouts.
func (c *Catalog) WithPlatforms(platforms []*domain.Platform) *Catalog {
	out := &Catalog{
		version:   c.version,
		platforms: platforms,
		byID:      make(map[string]*domain.Platform, len(platforms)),
		session:   c.session,
	}
	for _, p := range platforms {
		out.byID[p.ID] = p
	}
	return out
}
