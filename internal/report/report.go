// Package report assembles per-platform outcomes into the AvailabilityReport
// returned to callers.
package report

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hamed0406/handlecheck/internal/domain"
)

// Build returns the report for username. outcomes must be aligned with
// platforms; entries keep the platforms' order. A missing outcome is
// recorded as Unknown/internal rather than dropped, so every configured
// platform appears exactly once.
func Build(username, catalogVersion string, platforms []*domain.Platform, outcomes []domain.Outcome, now time.Time) *domain.Report {
	r := &domain.Report{
		ID:             uuid.NewString(),
		Username:       username,
		CatalogVersion: catalogVersion,
		CheckedAt:      now.UTC(),
		Entries:        make([]domain.Entry, 0, len(platforms)),
	}
	for i, p := range platforms {
		var o domain.Outcome
		if i < len(outcomes) {
			o = outcomes[i]
		} else {
			o = domain.Undetermined(domain.CauseInternal, fmt.Sprintf("no outcome recorded for %s", p.ID))
		}
		r.Entries = append(r.Entries, entry(p, username, o))
	}
	return r
}

func entry(p *domain.Platform, username string, o domain.Outcome) domain.Entry {
	if o.Verdict == domain.Unknown && o.Cause == "" {
		o.Cause = domain.CauseAmbiguous
	}
	if o.Verdict != domain.Unknown {
		o.Cause = ""
	}
	name := p.Name
	if name == "" {
		name = p.ID
	}
	return domain.Entry{
		Platform:  p.ID,
		Name:      name,
		URL:       p.ProfileURL(username),
		Available: o.Verdict.Available(),
		Verdict:   o.Verdict,
		Cause:     o.Cause,
		Detail:    o.Detail,
		LatencyMS: float64(o.Latency.Microseconds()) / 1000,
	}
}

// Summary counts entries per verdict.
type Summary struct {
	Exists   int `json:"exists"`
	NotFound int `json:"not_found"`
	Unknown  int `json:"unknown"`
}

func Summarize(r *domain.Report) Summary {
	var s Summary
	for _, e := range r.Entries {
		switch e.Verdict {
		case domain.Exists:
			s.Exists++
		case domain.NotFound:
			s.NotFound++
		default:
			s.Unknown++
		}
	}
	return s
}
