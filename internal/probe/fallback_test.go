package probe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hamed0406/handlecheck/internal/domain"
)

// fake strategy you can control
type fakeStrategy struct {
	out   domain.Outcome
	calls int
	wait  bool // block until ctx ends, then report a timeout
}

func (f *fakeStrategy) Kind() domain.StrategyKind { return domain.StructuredAPI }

func (f *fakeStrategy) Probe(ctx context.Context, _ Target) domain.Outcome {
	f.calls++
	if f.wait {
		<-ctx.Done()
		return domain.Undetermined(domain.CauseTimeout, ctx.Err().Error())
	}
	return f.out
}

func TestFallback_FiresOnlyOnOutrightFailure(t *testing.T) {
	p := &domain.Platform{ID: "leetcode"}
	cases := []struct {
		name      string
		primary   domain.Outcome
		wantCalls int
		want      domain.Verdict
	}{
		{"transport error", domain.Undetermined(domain.CauseTransport, "refused"), 1, domain.Exists},
		{"timeout", domain.Undetermined(domain.CauseTimeout, "deadline"), 1, domain.Exists},
		{"unexpected payload", domain.Undetermined(domain.CauseAmbiguous, "payload lacks data"), 0, domain.Unknown},
		{"not found", domain.Missing("null"), 0, domain.NotFound},
		{"exists", domain.Found("present"), 0, domain.Exists},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			sec := &fakeStrategy{out: domain.Found("rendered")}
			fb := &Fallback{Primary: &fakeStrategy{out: c.primary}, Secondary: sec}
			out := fb.Probe(context.Background(), Target{Platform: p, Username: "u"})
			assert.Equal(t, c.wantCalls, sec.calls)
			assert.Equal(t, c.want, out.Verdict)
		})
	}
}

func TestFallback_PrimaryBudgetLeavesRoomForSecondary(t *testing.T) {
	sec := &fakeStrategy{out: domain.Missing("rendered 404")}
	fb := &Fallback{
		Primary:       &fakeStrategy{wait: true},
		Secondary:     sec,
		PrimaryBudget: 20 * time.Millisecond,
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	out := fb.Probe(ctx, Target{Platform: &domain.Platform{ID: "leetcode"}, Username: "u"})
	assert.Equal(t, 1, sec.calls)
	assert.Equal(t, domain.NotFound, out.Verdict)
	assert.Contains(t, out.Detail, "fallback")
	assert.Equal(t, domain.StructuredAPI, fb.Kind())
}
