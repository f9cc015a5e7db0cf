// Package fanout runs every platform's probe for one username concurrently
// and gathers one outcome per platform.
package fanout

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/handlecheck/internal/domain"
	"github.com/hamed0406/handlecheck/internal/probe"
)

const defaultTimeout = 10 * time.Second

// Session is the per-request authenticated browser as the orchestrator
// drives it. *session.Manager implements it.
type Session interface {
	probe.Session
	Begin(ctx context.Context)
	Close() error
}

type Orchestrator struct {
	Logger     *zap.Logger
	Strategies map[string]probe.Strategy // keyed by platform id
	// NewSession creates the request's session. Nil means authenticated
	// platforms always report Unknown/auth.
	NewSession     func() Session
	MaxConcurrency int // 0 = unbounded
}

func New(logger *zap.Logger, strategies map[string]probe.Strategy, newSession func() Session, maxConcurrency int) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxConcurrency < 0 {
		maxConcurrency = 0
	}
	return &Orchestrator{
		Logger:         logger,
		Strategies:     strategies,
		NewSession:     newSession,
		MaxConcurrency: maxConcurrency,
	}
}

// Run probes every platform and returns outcomes aligned with platforms.
// It always returns len(platforms) outcomes: a probe that fails, panics or
// overruns its timeout degrades only its own entry.
func (o *Orchestrator) Run(ctx context.Context, platforms []*domain.Platform, username string) []domain.Outcome {
	outcomes := make([]domain.Outcome, len(platforms))

	var sess Session
	if o.NewSession != nil && needsSession(platforms) {
		sess = o.NewSession()
		sess.Begin(ctx)
		defer func() {
			if err := sess.Close(); err != nil {
				o.Logger.Warn("session_close_error", zap.Error(err))
			}
		}()
	}

	var g errgroup.Group
	if o.MaxConcurrency > 0 {
		g.SetLimit(o.MaxConcurrency)
	}
	for i, p := range platforms {
		i, p := i, p
		g.Go(func() error {
			outcomes[i] = o.probeOne(ctx, p, username, sess)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (o *Orchestrator) probeOne(ctx context.Context, p *domain.Platform, username string, sess Session) domain.Outcome {
	s, ok := o.Strategies[p.ID]
	if !ok {
		return domain.Undetermined(domain.CauseInternal, "no strategy for "+p.ID)
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	t := probe.Target{Platform: p, Username: username}
	if sess != nil && p.RequiresSession() {
		t.Session = sess
	}

	start := time.Now()
	// A strategy that ignores cancellation is abandoned at the deadline; its
	// late result lands in the buffer and is dropped.
	res := make(chan domain.Outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				res <- domain.Undetermined(domain.CauseInternal, fmt.Sprintf("panic: %v", r))
			}
		}()
		res <- s.Probe(pctx, t)
	}()

	var out domain.Outcome
	select {
	case out = <-res:
	case <-pctx.Done():
		out = domain.Undetermined(domain.CauseTimeout, fmt.Sprintf("no answer within %s", timeout))
	}
	if out.Latency == 0 {
		out.Latency = time.Since(start)
	}

	o.Logger.Debug("probe_done",
		zap.String("platform", p.ID),
		zap.String("kind", string(s.Kind())),
		zap.Stringer("verdict", out.Verdict),
		zap.String("cause", string(out.Cause)),
		zap.String("detail", out.Detail),
		zap.Duration("latency", out.Latency),
	)
	return out
}

func needsSession(platforms []*domain.Platform) bool {
	for _, p := range platforms {
		if p.RequiresSession() {
			return true
		}
	}
	return false
}
