package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

var imageBlockPatterns = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.svg", "*.ico",
	"*.mp4", "*.webm", "*.woff", "*.woff2",
}

// renderedExpr holds once the document has loaded and the app has put some
// visible text into the body. SPA shells ship an empty body and fill it in
// after their bundles run.
const renderedExpr = `document.readyState === "complete" && document.body !== null && document.body.innerText.trim().length > 0`

// Chrome is a chromedp-backed Browser. Each Navigate opens its own tab so
// concurrent probes never share a page.
type Chrome struct {
	opts   Options
	log    *zap.Logger
	ctx    context.Context // browser context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// Launch returns a Launcher that starts Chrome with opts.
func Launch(opts Options, log *zap.Logger) Launcher {
	return func(ctx context.Context) (Browser, error) {
		return StartChrome(ctx, opts, log)
	}
}

// StartChrome allocates a Chrome process and connects to it.
func StartChrome(ctx context.Context, opts Options, log *zap.Logger) (*Chrome, error) {
	if log == nil {
		log = zap.NewNop()
	}
	alloc := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if opts.Headless {
		alloc = append(alloc, chromedp.Headless)
	} else {
		alloc = append(alloc, chromedp.Flag("headless", false))
	}
	if opts.ExecPath != "" {
		alloc = append(alloc, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.UserAgent != "" {
		alloc = append(alloc, chromedp.UserAgent(opts.UserAgent))
	}
	alloc = append(alloc,
		chromedp.WindowSize(1366, 768),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)

	// The browser outlives the launching call, so it hangs off Background
	// and is torn down only by Close.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), alloc...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	cancel := func() {
		browserCancel()
		allocCancel()
	}

	start := opts.StartTimeout
	if start <= 0 {
		start = 15 * time.Second
	}
	startCtx, startCancel := context.WithTimeout(ctx, start)
	defer startCancel()

	errc := make(chan error, 1)
	go func() { errc <- chromedp.Run(browserCtx) }()
	select {
	case err := <-errc:
		if err != nil {
			cancel()
			log.Error("chrome_start_failed", zap.Error(err))
			return nil, fmt.Errorf("start chrome: %w", err)
		}
	case <-startCtx.Done():
		cancel()
		return nil, fmt.Errorf("start chrome: %w", startCtx.Err())
	}

	log.Info("chrome_started", zap.Bool("headless", opts.Headless), zap.String("binary", opts.ExecPath))
	return &Chrome{opts: opts, log: log, ctx: browserCtx, cancel: cancel}, nil
}

// tab opens a new target bound to ctx's deadline. The returned cancel closes it.
func (c *Chrome) tab(ctx context.Context) (context.Context, context.CancelFunc, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, nil, ErrClosed
	}
	tabCtx, tabCancel := chromedp.NewContext(c.ctx)
	stop := context.AfterFunc(ctx, tabCancel)
	if dl, ok := ctx.Deadline(); ok {
		var dlCancel context.CancelFunc
		tabCtx, dlCancel = context.WithDeadline(tabCtx, dl)
		return tabCtx, func() { stop(); dlCancel(); tabCancel() }, nil
	}
	return tabCtx, func() { stop(); tabCancel() }, nil
}

func (c *Chrome) Navigate(ctx context.Context, url string) (Page, error) {
	tabCtx, done, err := c.tab(ctx)
	if err != nil {
		return Page{}, err
	}
	defer done()
	return c.navigate(tabCtx, url)
}

func (c *Chrome) navigate(ctx context.Context, url string) (Page, error) {
	var p Page
	actions := []chromedp.Action{}
	if c.opts.BlockImages {
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			return network.SetBlockedURLS(imageBlockPatterns).Do(ctx)
		}))
	}
	actions = append(actions,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(c.waitRendered),
		chromedp.Location(&p.URL),
		chromedp.Title(&p.Title),
		chromedp.OuterHTML("html", &p.HTML, chromedp.ByQuery),
	)
	if err := chromedp.Run(ctx, actions...); err != nil {
		if c.lost(err) {
			return Page{}, fmt.Errorf("navigate %s: %w: %w", url, ErrDisconnected, err)
		}
		return Page{}, fmt.Errorf("navigate %s: %w", url, err)
	}
	return p, nil
}

// waitRendered gives client-side rendering up to RenderTimeout to fill the
// body. A page that never renders is still captured; the classifier decides
// what an empty shell means.
func (c *Chrome) waitRendered(ctx context.Context) error {
	timeout := c.opts.RenderTimeout
	if timeout <= 0 {
		return nil
	}
	err := chromedp.Poll(renderedExpr, nil,
		chromedp.WithPollingTimeout(timeout),
		chromedp.WithPollingInterval(200*time.Millisecond),
	).Do(ctx)
	if err != nil && ctx.Err() == nil && errors.Is(err, chromedp.ErrPollingTimeout) {
		c.log.Debug("render_wait_expired", zap.Duration("timeout", timeout))
		return nil
	}
	return err
}

// lost reports whether err means the browser itself is gone rather than the
// page failing to load.
func (c *Chrome) lost(err error) bool {
	if c.ctx.Err() != nil {
		return true
	}
	return errors.Is(err, chromedp.ErrChannelClosed) ||
		errors.Is(err, chromedp.ErrInvalidContext) ||
		errors.Is(err, chromedp.ErrInvalidTarget)
}

// Login fills in the form and waits until the browser leaves the login page.
// Later Navigate calls reuse the cookies the login set.
func (c *Chrome) Login(ctx context.Context, form LoginForm, creds Credentials) (string, error) {
	tabCtx, done, err := c.tab(ctx)
	if err != nil {
		return "", err
	}
	defer done()

	err = chromedp.Run(tabCtx,
		chromedp.Navigate(form.URL),
		chromedp.WaitVisible(form.UsernameSelector, chromedp.ByQuery),
		chromedp.SendKeys(form.UsernameSelector, creds.Login, chromedp.ByQuery),
		chromedp.SendKeys(form.PasswordSelector, creds.Password, chromedp.ByQuery),
		chromedp.Click(form.SubmitSelector, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("submit login: %w", err)
	}

	settle := c.opts.SettleTimeout
	if settle <= 0 {
		settle = 20 * time.Second
	}
	return waitForLocationChange(tabCtx, form.URL, settle)
}

// waitForLocationChange polls the tab location until it differs from from.
func waitForLocationChange(ctx context.Context, from string, timeout time.Duration) (string, error) {
	deadline := time.After(timeout)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	var loc string
	for {
		select {
		case <-ctx.Done():
			return loc, ctx.Err()
		case <-deadline:
			return loc, nil
		case <-ticker.C:
			if err := chromedp.Run(ctx, chromedp.Location(&loc)); err != nil {
				continue
			}
			if loc != "" && !strings.HasPrefix(loc, from) {
				return loc, nil
			}
		}
	}
}

// Close terminates the browser process. Subsequent calls are no-ops.
func (c *Chrome) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(c.ctx, 5*time.Second)
	defer cancel()
	err := chromedp.Cancel(ctx)
	c.cancel()
	c.log.Info("chrome_closed")
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("close chrome: %w", err)
	}
	return nil
}
