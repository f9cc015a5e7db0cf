package report

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamed0406/handlecheck/internal/domain"
)

func platforms() []*domain.Platform {
	return []*domain.Platform{
		{ID: "github", Name: "GitHub", URLTemplate: "https://github.com/{username}"},
		{ID: "devto", Name: "DEV", URLTemplate: "https://dev.to/{username}"},
		{ID: "linkedin", URLTemplate: "https://www.linkedin.com/in/{username}/"},
	}
}

func TestBuild_OrderAndPolarity(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.FixedZone("CEST", 7200))
	outcomes := []domain.Outcome{
		{Verdict: domain.Exists, Detail: "200", Latency: 1500 * time.Microsecond},
		domain.Missing("status 404"),
		domain.Undetermined(domain.CauseAuth, "login rejected"),
	}
	r := Build("octocat", "2025.06.2", platforms(), outcomes, now)

	_, err := uuid.Parse(r.ID)
	require.NoError(t, err)
	assert.Equal(t, "octocat", r.Username)
	assert.Equal(t, "2025.06.2", r.CatalogVersion)
	assert.Equal(t, time.UTC, r.CheckedAt.Location())
	assert.True(t, r.CheckedAt.Equal(now))

	require.Len(t, r.Entries, 3)
	assert.Equal(t, []string{"github", "devto", "linkedin"},
		[]string{r.Entries[0].Platform, r.Entries[1].Platform, r.Entries[2].Platform})

	require.NotNil(t, r.Entries[0].Available)
	assert.False(t, *r.Entries[0].Available)
	assert.Equal(t, 1.5, r.Entries[0].LatencyMS)
	assert.Equal(t, "https://github.com/octocat", r.Entries[0].URL)

	require.NotNil(t, r.Entries[1].Available)
	assert.True(t, *r.Entries[1].Available)

	assert.Nil(t, r.Entries[2].Available)
	assert.Equal(t, domain.CauseAuth, r.Entries[2].Cause)
	assert.Equal(t, "linkedin", r.Entries[2].Name)
}

func TestBuild_MissingOutcomeStillListed(t *testing.T) {
	r := Build("octocat", "v", platforms(), []domain.Outcome{domain.Missing("404")}, time.Now())
	require.Len(t, r.Entries, 3)
	assert.Equal(t, domain.Unknown, r.Entries[2].Verdict)
	assert.Equal(t, domain.CauseInternal, r.Entries[2].Cause)
}

func TestBuild_CauseOnlyOnUnknown(t *testing.T) {
	outcomes := []domain.Outcome{
		{Verdict: domain.Exists, Cause: domain.CauseTransport},
		{Verdict: domain.NotFound},
		{Verdict: domain.Unknown},
	}
	r := Build("x", "v", platforms(), outcomes, time.Now())
	assert.Empty(t, r.Entries[0].Cause)
	assert.Equal(t, domain.CauseAmbiguous, r.Entries[2].Cause)
}

func TestBuild_JSONShape(t *testing.T) {
	outcomes := []domain.Outcome{domain.Found("200"), domain.Missing("404"), domain.Undetermined(domain.CauseTimeout, "slow")}
	r := Build("octocat", "v1", platforms(), outcomes, time.Now())

	b, err := json.Marshal(r)
	require.NoError(t, err)

	var got struct {
		Username  string `json:"username"`
		Platforms map[string]struct {
			Available *bool  `json:"available"`
			Verdict   string `json:"verdict"`
			Cause     string `json:"cause"`
		} `json:"platforms"`
	}
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "octocat", got.Username)
	assert.Equal(t, "exists", got.Platforms["github"].Verdict)
	assert.Equal(t, "not_found", got.Platforms["devto"].Verdict)
	assert.Nil(t, got.Platforms["linkedin"].Available)
	assert.Equal(t, "timeout", got.Platforms["linkedin"].Cause)
}

func TestSummarize(t *testing.T) {
	outcomes := []domain.Outcome{domain.Found("200"), domain.Missing("404"), domain.Undetermined(domain.CauseTimeout, "slow")}
	s := Summarize(Build("x", "v", platforms(), outcomes, time.Now()))
	assert.Equal(t, Summary{Exists: 1, NotFound: 1, Unknown: 1}, s)
}
