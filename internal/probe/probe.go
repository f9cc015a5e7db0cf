// Package probe holds one Strategy per detection method. A strategy performs
// the outbound call for a platform and hands the observation to classify.
package probe

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/handlecheck/internal/browser"
	"github.com/hamed0406/handlecheck/internal/domain"
)

// Target is one probe: a platform and the handle to look for.
type Target struct {
	Platform *domain.Platform
	Username string
	// Session is the request's authenticated browser; nil when the request
	// has none.
	Session Session
}

// Session is the view of the authenticated browser a strategy may use.
type Session interface {
	Await(ctx context.Context) error
	Navigate(ctx context.Context, url string) (browser.Page, error)
}

// Strategy probes one platform. Probe must not return errors or panic past
// its boundary; every failure is reported as an Unknown outcome.
type Strategy interface {
	Kind() domain.StrategyKind
	Probe(ctx context.Context, t Target) domain.Outcome
}

// Guard wraps s so a panic inside it becomes Unknown/internal and the
// outcome carries its latency.
func Guard(s Strategy, log *zap.Logger) Strategy {
	if log == nil {
		log = zap.NewNop()
	}
	return guarded{inner: s, log: log}
}

type guarded struct {
	inner Strategy
	log   *zap.Logger
}

func (g guarded) Kind() domain.StrategyKind { return g.inner.Kind() }

func (g guarded) Probe(ctx context.Context, t Target) (out domain.Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			g.log.Error("probe_panic",
				zap.String("platform", t.Platform.ID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			out = domain.Undetermined(domain.CauseInternal, fmt.Sprintf("panic: %v", r))
		}
		out.Latency = time.Since(start)
	}()
	return g.inner.Probe(ctx, t)
}

// observed logs outcomes the classifier could not decide, together with the
// raw observation, then returns out unchanged.
func observed(log *zap.Logger, t Target, obs domain.Observation, out domain.Outcome) domain.Outcome {
	if log == nil || out.Verdict != domain.Unknown || out.Cause != domain.CauseAmbiguous {
		return out
	}
	log.Warn("classification_ambiguous",
		zap.String("platform", t.Platform.ID),
		zap.String("username", t.Username),
		zap.Int("status", obs.Status),
		zap.String("final_url", obs.FinalURL),
		zap.String("title", obs.Title),
		zap.Bool("truncated", obs.Truncated),
		zap.String("body_excerpt", excerpt(obs.Body, 512)),
		zap.String("detail", out.Detail),
	)
	return out
}

func excerpt(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
