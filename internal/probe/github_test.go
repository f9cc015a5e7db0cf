package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamed0406/handlecheck/internal/domain"
)

func TestGitHubProbe(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/users/octocat":
			w.Write([]byte(`{"login":"octocat","type":"User"}`))
		case "/users/flaky":
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"message":"bad gateway"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"Not Found"}`))
		}
	}))
	defer s.Close()

	c, err := NewGitHubClient("tok", s.URL)
	require.NoError(t, err)
	require.NotNil(t, c)

	p := &domain.Platform{ID: "github"}
	probe := &GitHubProbe{Client: c}

	assert.Equal(t, domain.Exists, probe.Probe(context.Background(), target(p, "octocat")).Verdict)
	assert.Equal(t, domain.NotFound, probe.Probe(context.Background(), target(p, "ghost-handle")).Verdict)

	out := probe.Probe(context.Background(), target(p, "flaky"))
	assert.Equal(t, domain.Unknown, out.Verdict)
	assert.NotEmpty(t, out.Cause)
}

func TestNewGitHubClient_NoToken(t *testing.T) {
	c, err := NewGitHubClient("", "")
	assert.NoError(t, err)
	assert.Nil(t, c)
}
