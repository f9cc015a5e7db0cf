// Package checker is the single entry point outer surfaces call: validate a
// handle, probe every configured platform, and return the report.
package checker

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/handlecheck/internal/browser"
	"github.com/hamed0406/handlecheck/internal/catalog"
	"github.com/hamed0406/handlecheck/internal/config"
	"github.com/hamed0406/handlecheck/internal/domain"
	"github.com/hamed0406/handlecheck/internal/fanout"
	"github.com/hamed0406/handlecheck/internal/notify"
	"github.com/hamed0406/handlecheck/internal/probe"
	"github.com/hamed0406/handlecheck/internal/report"
	"github.com/hamed0406/handlecheck/internal/session"
)

var ErrInvalidUsername = errors.New("invalid username")

var usernameRE = regexp.MustCompile(`^[A-Za-z0-9._-]{1,39}$`)

// ValidateUsername trims s and checks it is a plausible handle: 1 to 39
// letters, digits, dots, underscores or hyphens.
func ValidateUsername(s string) (string, error) {
	u := strings.TrimSpace(s)
	if u == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidUsername)
	}
	if !usernameRE.MatchString(u) {
		return "", fmt.Errorf("%w: %q", ErrInvalidUsername, u)
	}
	return u, nil
}

type Service struct {
	log     *zap.Logger
	catalog *catalog.Catalog
	orch    *fanout.Orchestrator
	now     func() time.Time
	closers []func() error
}

// NewService builds a Service from its parts. It is what New ends up calling
// and what tests use with fake strategies.
func NewService(cat *catalog.Catalog, orch *fanout.Orchestrator, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{log: log, catalog: cat, orch: orch, now: time.Now}
}

// New wires the production stack described by cfg: the catalog, the HTTP
// fetcher, the GitHub client, a lazily started anonymous Chrome and a
// per-request authenticated session.
func New(cfg config.Config, log *zap.Logger) (*Service, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cat, err := loadCatalog(cfg.CatalogFile)
	if err != nil {
		return nil, err
	}
	platforms := cat.Platforms()
	if cfg.ProbeTimeout > 0 {
		platforms = withTimeout(platforms, cfg.ProbeTimeout)
	}

	gh, err := probe.NewGitHubClient(cfg.GitHubToken, "")
	if err != nil {
		return nil, fmt.Errorf("github client: %w", err)
	}

	bopts := browser.DefaultOptions()
	bopts.ExecPath = cfg.ChromePath
	bopts.Headless = cfg.ChromeHeadless
	if cfg.UserAgent != "" {
		bopts.UserAgent = cfg.UserAgent
	}
	anon := browser.NewLazy(browser.Launch(bopts, log.Named("browser")))

	deps := probe.Deps{
		Fetcher: probe.NewFetcher(30*time.Second, cfg.UserAgent, cfg.MaxBodyBytes),
		Browser: anon,
		GitHub:  gh,
		Log:     log.Named("probe"),
	}
	strategies := make(map[string]probe.Strategy, len(platforms))
	for _, p := range platforms {
		strategies[p.ID] = probe.Build(p, deps)
	}

	alerter := notify.NewAlerter(notifierFor(cfg), notify.AlerterConfig{
		AlertOnRecovery: true,
		Cooldown:        cfg.AlertCooldown,
	}, log)

	flow := cat.Session()
	if cfg.LoginTimeout > 0 {
		flow.Timeout = cfg.LoginTimeout
	}
	scfg := session.Config{
		Credentials: browser.Credentials{Login: cfg.SessionLogin, Password: cfg.SessionPassword},
		Flow:        flow,
	}
	newSession := func() fanout.Session {
		m := session.New(scfg, browser.Launch(bopts, log.Named("session_browser")), log.Named("session"))
		m.OnFailure = func(err error) {
			alerter.Observe(context.Background(), "authenticated session", false, err.Error())
		}
		m.OnReady = func() {
			alerter.Observe(context.Background(), "authenticated session", true, "login succeeded")
		}
		return m
	}

	orch := fanout.New(log.Named("fanout"), strategies, newSession, cfg.MaxConcurrent)
	s := NewService(cat.WithPlatforms(platforms), orch, log)
	s.closers = append(s.closers, anon.Close)

	log.Info("checker_ready",
		zap.String("catalog_version", cat.Version()),
		zap.Int("platforms", cat.Len()),
		zap.Bool("github_api", gh != nil),
		zap.Bool("session_credentials", !scfg.Credentials.Empty()),
	)
	return s, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.Load(path)
}

func notifierFor(cfg config.Config) notify.Notifier {
	if s := notify.NewSlack(cfg.SlackWebhookURL); s != nil {
		return s
	}
	return notify.Nop{}
}

// withTimeout returns copies of platforms sharing one timeout.
func withTimeout(platforms []*domain.Platform, d time.Duration) []*domain.Platform {
	out := make([]*domain.Platform, len(platforms))
	for i, p := range platforms {
		cp := *p
		cp.Timeout = d
		out[i] = &cp
	}
	return out
}

func (s *Service) Catalog() *catalog.Catalog { return s.catalog }

// Platforms lists the configured platforms in report order.
func (s *Service) Platforms() []*domain.Platform { return s.catalog.Platforms() }

// Check probes every configured platform for username. The only error is
// ErrInvalidUsername; probe failures are reported as Unknown entries.
func (s *Service) Check(ctx context.Context, username string) (*domain.Report, error) {
	return s.CheckOn(ctx, username)
}

// CheckOn is Check restricted to the given platform ids (all when empty).
func (s *Service) CheckOn(ctx context.Context, username string, ids ...string) (*domain.Report, error) {
	u, err := ValidateUsername(username)
	if err != nil {
		return nil, err
	}
	cat, err := s.catalog.Subset(ids...)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	platforms := cat.Platforms()
	outcomes := s.orch.Run(ctx, platforms, u)
	r := report.Build(u, cat.Version(), platforms, outcomes, s.now())

	sum := report.Summarize(r)
	s.log.Info("check_done",
		zap.String("report_id", r.ID),
		zap.String("username", u),
		zap.Int("exists", sum.Exists),
		zap.Int("not_found", sum.NotFound),
		zap.Int("unknown", sum.Unknown),
		zap.Duration("took", time.Since(start)),
	)
	return r, nil
}

// Close releases the shared browser.
func (s *Service) Close() error {
	var err error
	for _, c := range s.closers {
		err = multierr.Append(err, c())
	}
	return err
}
