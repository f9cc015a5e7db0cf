package probe

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/hamed0406/handlecheck/internal/domain"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"
	DefaultMaxBody   = 2 << 20
)

// Fetcher performs exactly one HTTP exchange per call and reports it as an
// Observation. It never returns an error; transport failures land in
// Observation.Err.
type Fetcher struct {
	Client    *http.Client
	UserAgent string
	MaxBody   int64
}

func NewFetcher(timeout time.Duration, userAgent string, maxBody int64) *Fetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if maxBody <= 0 {
		maxBody = DefaultMaxBody
	}
	return &Fetcher{
		Client:    &http.Client{Timeout: timeout},
		UserAgent: userAgent,
		MaxBody:   maxBody,
	}
}

type Request struct {
	Method   string
	URL      string
	Body     string
	Headers  map[string]string
	ReadBody bool
}

func (f *Fetcher) Fetch(ctx context.Context, r Request) domain.Observation {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if r.Body != "" {
		body = strings.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.URL, body)
	if err != nil {
		return domain.Observation{Err: err}
	}
	req.Header.Set("User-Agent", f.UserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	// Cookies live only for this exchange and its redirects.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	client := *f.Client
	client.Jar = jar

	resp, err := client.Do(req)
	if err != nil {
		return domain.Observation{Err: err}
	}
	defer resp.Body.Close()

	obs := domain.Observation{
		Status:    resp.StatusCode,
		Requested: r.URL,
		FinalURL:  resp.Request.URL.String(),
	}
	if !r.ReadBody || method == http.MethodHead {
		return obs
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, f.MaxBody+1))
	if err != nil {
		// Keep what arrived; a cut-off body is ambiguous, not a transport failure.
		obs.Truncated = true
	}
	if int64(len(b)) > f.MaxBody {
		b = b[:f.MaxBody]
		obs.Truncated = true
	}
	obs.Body = b
	return obs
}
