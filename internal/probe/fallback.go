package probe

import (
	"context"
	"time"

	"github.com/hamed0406/handlecheck/internal/domain"
)

// Fallback runs Secondary only when Primary failed outright (transport
// error or timeout). A parseable-but-unexpected primary answer is final.
type Fallback struct {
	Primary   Strategy
	Secondary Strategy
	// PrimaryBudget caps the primary call so the secondary still has time
	// inside the platform deadline. Zero means no cap.
	PrimaryBudget time.Duration
}

func (f *Fallback) Kind() domain.StrategyKind { return f.Primary.Kind() }

func (f *Fallback) Probe(ctx context.Context, t Target) domain.Outcome {
	pctx := ctx
	if f.PrimaryBudget > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, f.PrimaryBudget)
		defer cancel()
	}
	out := f.Primary.Probe(pctx, t)
	if out.Verdict != domain.Unknown || !out.Cause.Outright() || ctx.Err() != nil {
		return out
	}
	sec := f.Secondary.Probe(ctx, t)
	sec.Detail = "fallback (" + out.Detail + "): " + sec.Detail
	return sec
}
