// Package session owns the single authenticated browser used by platforms
// that hide profiles behind a login. One Manager serves one aggregate request.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/handlecheck/internal/browser"
	"github.com/hamed0406/handlecheck/internal/domain"
)

type State int

const (
	Uninitialized State = iota
	Authenticating
	Ready
	Failed
	Closed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Authenticating:
		return "authenticating"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	ErrNoCredentials     = errors.New("session: no credentials configured")
	ErrNotReady          = errors.New("session: not ready")
	ErrUnexpectedLanding = errors.New("session: login did not reach the landing page")
)

type Config struct {
	Credentials browser.Credentials
	Flow        domain.LoginFlow
}

type Manager struct {
	cfg    Config
	launch browser.Launcher
	log    *zap.Logger

	// OnFailure and OnReady, when set, are called once when authentication
	// settles.
	OnFailure func(error)
	OnReady   func()

	mu      sync.Mutex
	state   State
	err     error
	br      browser.Browser
	begun   bool
	cancel  context.CancelFunc
	settled chan struct{}

	closeOnce sync.Once
	closeErr  error
}

func New(cfg Config, launch browser.Launcher, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Flow.Timeout <= 0 {
		cfg.Flow.Timeout = 30 * time.Second
	}
	return &Manager{
		cfg:     cfg,
		launch:  launch,
		log:     log,
		settled: make(chan struct{}),
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err returns why the session failed, if it did.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Begin starts authentication in the background and returns immediately.
// It only acts on an Uninitialized session; later calls are ignored.
// Authentication is bounded by the login flow timeout and by ctx.
func (m *Manager) Begin(ctx context.Context) {
	m.mu.Lock()
	if m.state != Uninitialized || m.begun {
		m.mu.Unlock()
		return
	}
	m.begun = true
	m.state = Authenticating
	if m.cfg.Credentials.Empty() {
		m.mu.Unlock()
		m.settle(nil, ErrNoCredentials)
		close(m.settled)
		return
	}
	actx, cancel := context.WithTimeout(ctx, m.cfg.Flow.Timeout)
	m.cancel = cancel
	m.mu.Unlock()

	m.log.Info("session_authenticating", zap.String("login_url", m.cfg.Flow.LoginURL))
	go m.authenticate(actx, cancel)
}

func (m *Manager) authenticate(ctx context.Context, cancel context.CancelFunc) {
	defer close(m.settled)
	defer cancel()

	b, err := m.launch(ctx)
	if err != nil {
		m.settle(nil, fmt.Errorf("session: launch browser: %w", err))
		return
	}
	form := browser.LoginForm{
		URL:              m.cfg.Flow.LoginURL,
		UsernameSelector: m.cfg.Flow.UsernameSelector,
		PasswordSelector: m.cfg.Flow.PasswordSelector,
		SubmitSelector:   m.cfg.Flow.SubmitSelector,
	}
	loc, err := b.Login(ctx, form, m.cfg.Credentials)
	if err != nil {
		m.settle(b, fmt.Errorf("session: login: %w", err))
		return
	}
	if landing := m.cfg.Flow.LandingURL; landing != "" && !strings.HasPrefix(loc, landing) {
		m.settle(b, fmt.Errorf("%w: landed on %q", ErrUnexpectedLanding, loc))
		return
	}
	m.settle(b, nil)
}

// settle records the end of authentication. The browser is kept even on
// failure so Close can release it.
func (m *Manager) settle(b browser.Browser, err error) {
	m.mu.Lock()
	m.br = b
	if err != nil {
		m.state = Failed
		m.err = err
	} else {
		m.state = Ready
	}
	onFailure, onReady := m.OnFailure, m.OnReady
	m.mu.Unlock()

	if err != nil {
		m.log.Warn("session_failed", zap.Error(err))
		if onFailure != nil {
			onFailure(err)
		}
		return
	}
	m.log.Info("session_ready")
	if onReady != nil {
		onReady()
	}
}

// Await blocks until authentication settles or ctx ends. It never starts or
// restarts authentication: an Uninitialized, Failed or Closed session returns
// an error wrapping ErrNotReady straight away.
func (m *Manager) Await(ctx context.Context) error {
	m.mu.Lock()
	st, begun := m.state, m.begun
	m.mu.Unlock()

	switch {
	case st == Closed:
		return fmt.Errorf("%w: %w", ErrNotReady, browser.ErrClosed)
	case !begun:
		return fmt.Errorf("%w: authentication never started", ErrNotReady)
	}

	select {
	case <-m.settled:
	case <-ctx.Done():
		return ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case Ready:
		return nil
	case Failed:
		return fmt.Errorf("%w: %w", ErrNotReady, m.err)
	default:
		return fmt.Errorf("%w: %s", ErrNotReady, m.state)
	}
}

// Navigate renders url in the authenticated browser. Only a Ready session
// navigates.
func (m *Manager) Navigate(ctx context.Context, url string) (browser.Page, error) {
	m.mu.Lock()
	st, b := m.state, m.br
	m.mu.Unlock()
	if st != Ready || b == nil {
		return browser.Page{}, fmt.Errorf("%w: %s", ErrNotReady, st)
	}
	return b.Navigate(ctx, url)
}

// Close cancels any in-flight authentication, waits for it to stop, and
// releases the browser. The browser is closed at most once no matter how
// many times Close is called.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		cancel, begun := m.cancel, m.begun
		m.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if begun {
			<-m.settled
		}

		m.mu.Lock()
		b := m.br
		prev := m.state
		m.br = nil
		m.state = Closed
		m.mu.Unlock()

		if b != nil {
			m.closeErr = b.Close()
		}
		m.log.Info("session_closed", zap.Stringer("from", prev), zap.Error(m.closeErr))
	})
	return m.closeErr
}
