package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/handlecheck/internal/catalog"
	"github.com/hamed0406/handlecheck/internal/checker"
	"github.com/hamed0406/handlecheck/internal/domain"
	apimw "github.com/hamed0406/handlecheck/internal/httpapi/middleware"
	"github.com/hamed0406/handlecheck/internal/report"
)

// ---- test helpers ----

type fakeChecker struct {
	mu       sync.Mutex
	platform []*domain.Platform
	calls    int
	lastIDs  []string
}

func (f *fakeChecker) Platforms() []*domain.Platform { return f.platform }

func (f *fakeChecker) CheckOn(_ context.Context, username string, ids ...string) (*domain.Report, error) {
	u, err := checker.ValidateUsername(username)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.calls++
	f.lastIDs = ids
	f.mu.Unlock()

	ps := f.platform
	if len(ids) > 0 {
		ps = nil
		for _, id := range ids {
			found := false
			for _, p := range f.platform {
				if p.ID == id {
					ps = append(ps, p)
					found = true
				}
			}
			if !found {
				return nil, fmt.Errorf("%w %q", catalog.ErrUnknownPlatform, id)
			}
		}
	}
	outcomes := []domain.Outcome{
		domain.Found("200"),
		domain.Missing("404"),
		domain.Undetermined(domain.CauseAuth, "session failed"),
	}
	return report.Build(u, "test", ps, outcomes[:len(ps)], time.Now()), nil
}

func newFake() *fakeChecker {
	return &fakeChecker{platform: []*domain.Platform{
		{ID: "github", Name: "GitHub", URLTemplate: "https://github.com/{username}", Kind: domain.StructuredAPI,
			API: &domain.APISpec{Client: "github", URL: "https://api.github.com/users/{username}", Headers: map[string]string{"Authorization": "secret"}}},
		{ID: "npm", Name: "npm", URLTemplate: "https://www.npmjs.com/~{username}", Kind: domain.StatusCode},
		{ID: "linkedin", Name: "LinkedIn", URLTemplate: "https://www.linkedin.com/in/{username}/", Kind: domain.AuthenticatedBrowserNavigation},
	}}
}

func setupRouter(t *testing.T, chk Checker) http.Handler {
	t.Helper()
	srv := NewServer(zap.NewNop(), chk, "test")

	keys := apimw.Keys{
		Public: []string{"pub_test"},
		Admin:  []string{"adm_test"},
	}

	// very high rate limits to avoid flakiness in tests
	return srv.Router(keys, nil, 10_000, 10_000)
}

func do(t *testing.T, h http.Handler, method, path, key string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type reportBody struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	CatalogVersion string `json:"catalog_version"`
	Platforms      map[string]struct {
		Available *bool  `json:"available"`
		Verdict   string `json:"verdict"`
		Cause     string `json:"cause"`
		URL       string `json:"url"`
	} `json:"platforms"`
}

// ---- tests ----

func TestCheckUsername_OK(t *testing.T) {
	h := setupRouter(t, newFake())

	rec := do(t, h, http.MethodPost, "/checkUsername", "pub_test", []byte(`{"username":"octocat"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body)
	}
	var got reportBody
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Username != "octocat" || got.ID == "" || len(got.Platforms) != 3 {
		t.Fatalf("unexpected report: %+v", got)
	}
	gh := got.Platforms["github"]
	if gh.Verdict != "exists" || gh.Available == nil || *gh.Available {
		t.Fatalf("github entry wrong: %+v", gh)
	}
	if npm := got.Platforms["npm"]; npm.Available == nil || !*npm.Available {
		t.Fatalf("npm should be available: %+v", npm)
	}
	if li := got.Platforms["linkedin"]; li.Available != nil || li.Cause != "auth" {
		t.Fatalf("linkedin should be unknown/auth: %+v", li)
	}
}

func TestCheckUsername_BadInput(t *testing.T) {
	h := setupRouter(t, newFake())

	cases := []struct {
		name string
		body string
	}{
		{"not json", `username=octocat`},
		{"empty", `{"username":""}`},
		{"spaces", `{"username":"two words"}`},
		{"too long", `{"username":"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"}`},
		{"unknown platform", `{"username":"octocat","platforms":["myspace"]}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/checkUsername", "pub_test", []byte(c.body))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("want 400, got %d", rec.Code)
			}
		})
	}
}

func TestCheckPath_WithPlatformFilter(t *testing.T) {
	fake := newFake()
	h := setupRouter(t, fake)

	rec := do(t, h, http.MethodGet, "/api/check/octocat?platform=npm,github", "pub_test", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body)
	}
	var got reportBody
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Platforms) != 2 {
		t.Fatalf("want 2 platforms, got %d", len(got.Platforms))
	}
	if len(fake.lastIDs) != 2 || fake.lastIDs[0] != "npm" {
		t.Fatalf("filter not forwarded: %v", fake.lastIDs)
	}
}

func TestAuthAndPlatformListing(t *testing.T) {
	fake := newFake()
	h := setupRouter(t, fake)

	if rec := do(t, h, http.MethodGet, "/api/check/octocat", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401 without key, got %d", rec.Code)
	}
	if fake.calls != 0 {
		t.Fatalf("checker must not run for unauthorized requests")
	}

	rec := do(t, h, http.MethodGet, "/api/platforms", "pub_test", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	var list struct {
		CatalogVersion string `json:"catalog_version"`
		Platforms      []struct {
			ID   string `json:"id"`
			Kind string `json:"kind"`
		} `json:"platforms"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.CatalogVersion != "test" || len(list.Platforms) != 3 || list.Platforms[2].Kind != "authenticated_browser_navigation" {
		t.Fatalf("unexpected listing: %+v", list)
	}
}

func TestAdminCatalogRules(t *testing.T) {
	h := setupRouter(t, newFake())

	if rec := do(t, h, http.MethodGet, "/api/admin/catalog", "pub_test", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("public key should get 403, got %d", rec.Code)
	}
	rec := do(t, h, http.MethodGet, "/api/admin/catalog", "adm_test", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("secret")) {
		t.Fatalf("API headers leaked: %s", rec.Body)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte(`"url_template":"https://github.com/{username}"`)) {
		t.Fatalf("rules missing: %s", rec.Body)
	}
}
