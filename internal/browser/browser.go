// Package browser drives headless Chrome for probes that need a rendered page.
package browser

import (
	"context"
	"errors"
	"time"
)

var (
	ErrClosed = errors.New("browser: closed")
	// ErrDisconnected marks a navigation that failed because the browser
	// process or its connection went away. The browser must be relaunched.
	ErrDisconnected = errors.New("browser: disconnected")
)

// Page is what a navigation leaves behind.
type Page struct {
	URL   string // location after redirects and client-side routing
	Title string
	HTML  string
}

// Navigator renders a URL.
type Navigator interface {
	Navigate(ctx context.Context, url string) (Page, error)
}

// Credentials are opaque login values supplied at process start.
type Credentials struct {
	Login    string
	Password string
}

func (c Credentials) Empty() bool { return c.Login == "" || c.Password == "" }

// LoginForm names the selectors a login submission fills in.
type LoginForm struct {
	URL              string
	UsernameSelector string
	PasswordSelector string
	SubmitSelector   string
}

// Browser is one launched browser process.
type Browser interface {
	Navigator
	// Login submits the form and returns the location the browser settled on.
	Login(ctx context.Context, form LoginForm, creds Credentials) (string, error)
	Close() error
}

// Launcher starts a browser process.
type Launcher func(ctx context.Context) (Browser, error)

// Options configure Chrome.
type Options struct {
	ExecPath      string
	Headless      bool
	UserAgent     string
	BlockImages   bool
	StartTimeout  time.Duration
	SettleTimeout time.Duration // how long Login waits for the post-submit redirect
	RenderTimeout time.Duration // how long Navigate waits for client-side rendering
}

func DefaultOptions() Options {
	return Options{
		Headless:      true,
		BlockImages:   true,
		StartTimeout:  15 * time.Second,
		SettleTimeout: 20 * time.Second,
		RenderTimeout: 8 * time.Second,
	}
}
