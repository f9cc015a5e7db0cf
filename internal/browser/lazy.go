package browser

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/multierr"
)

// Lazy is an anonymous Navigator that launches its browser on first use and
// keeps it for the life of the process. A failed launch is retried on the
// next call rather than cached, and a browser that disconnects is dropped so
// the next call starts a fresh one.
type Lazy struct {
	launch Launcher

	mu       sync.Mutex
	b        Browser
	starting chan struct{} // non-nil while a launch is in flight
	closed   bool
}

func NewLazy(launch Launcher) *Lazy {
	return &Lazy{launch: launch}
}

// get returns the running browser, launching one if needed. The launch runs
// without the lock held; concurrent callers wait for it or for their ctx.
func (l *Lazy) get(ctx context.Context) (Browser, error) {
	for {
		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			return nil, ErrClosed
		}
		if l.b != nil {
			b := l.b
			l.mu.Unlock()
			return b, nil
		}
		if wait := l.starting; wait != nil {
			l.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		done := make(chan struct{})
		l.starting = done
		l.mu.Unlock()

		b, err := l.launch(ctx)

		l.mu.Lock()
		l.starting = nil
		close(done)
		if err != nil {
			l.mu.Unlock()
			return nil, err
		}
		if l.closed {
			l.mu.Unlock()
			return nil, multierr.Append(ErrClosed, b.Close())
		}
		l.b = b
		l.mu.Unlock()
		return b, nil
	}
}

func (l *Lazy) Navigate(ctx context.Context, url string) (Page, error) {
	b, err := l.get(ctx)
	if err != nil {
		return Page{}, err
	}
	p, err := b.Navigate(ctx, url)
	if errors.Is(err, ErrDisconnected) {
		l.drop(b)
	}
	return p, err
}

// drop forgets b if it is still the cached browser and releases it.
func (l *Lazy) drop(b Browser) {
	l.mu.Lock()
	if l.b != b {
		l.mu.Unlock()
		return
	}
	l.b = nil
	l.mu.Unlock()
	_ = b.Close()
}

// Started reports whether a browser is currently running.
func (l *Lazy) Started() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b != nil
}

func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	if l.b == nil {
		return nil
	}
	var err error
	multierr.AppendInto(&err, l.b.Close())
	l.b = nil
	return err
}
