package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBrowser struct {
	closes  int
	crashed bool
}

func (s *stubBrowser) Navigate(_ context.Context, url string) (Page, error) {
	if s.crashed {
		return Page{}, fmt.Errorf("navigate %s: %w", url, ErrDisconnected)
	}
	return Page{URL: url, Title: "stub"}, nil
}

func (s *stubBrowser) Login(context.Context, LoginForm, Credentials) (string, error) {
	return "", nil
}

func (s *stubBrowser) Close() error {
	s.closes++
	return nil
}

func TestLazy_LaunchesOnceOnFirstUse(t *testing.T) {
	launches := 0
	b := &stubBrowser{}
	l := NewLazy(func(context.Context) (Browser, error) {
		launches++
		return b, nil
	})
	assert.False(t, l.Started())

	for i := 0; i < 3; i++ {
		p, err := l.Navigate(context.Background(), "https://x.test/a")
		require.NoError(t, err)
		assert.Equal(t, "https://x.test/a", p.URL)
	}
	assert.Equal(t, 1, launches)
	assert.True(t, l.Started())

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	assert.Equal(t, 1, b.closes)

	_, err := l.Navigate(context.Background(), "https://x.test/b")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestLazy_RetriesFailedLaunch(t *testing.T) {
	calls := 0
	l := NewLazy(func(context.Context) (Browser, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("no chrome")
		}
		return &stubBrowser{}, nil
	})
	_, err := l.Navigate(context.Background(), "https://x.test")
	assert.Error(t, err)
	_, err = l.Navigate(context.Background(), "https://x.test")
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestLazy_RelaunchesAfterDisconnect(t *testing.T) {
	var launched []*stubBrowser
	l := NewLazy(func(context.Context) (Browser, error) {
		b := &stubBrowser{}
		launched = append(launched, b)
		return b, nil
	})
	_, err := l.Navigate(context.Background(), "https://x.test/a")
	require.NoError(t, err)
	require.Len(t, launched, 1)

	launched[0].crashed = true
	_, err = l.Navigate(context.Background(), "https://x.test/a")
	assert.ErrorIs(t, err, ErrDisconnected)
	assert.False(t, l.Started())
	assert.Equal(t, 1, launched[0].closes)

	p, err := l.Navigate(context.Background(), "https://x.test/b")
	require.NoError(t, err)
	assert.Equal(t, "https://x.test/b", p.URL)
	assert.Len(t, launched, 2)
}

func TestLazy_ConcurrentCallersShareOneLaunch(t *testing.T) {
	var launches atomic.Int32
	release := make(chan struct{})
	l := NewLazy(func(context.Context) (Browser, error) {
		launches.Add(1)
		<-release
		return &stubBrowser{}, nil
	})

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Navigate(context.Background(), "https://x.test")
			errs <- err
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), launches.Load())
}

func TestLazy_WaiterHonoursContextDuringSlowLaunch(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	l := NewLazy(func(context.Context) (Browser, error) {
		<-release
		return &stubBrowser{}, nil
	})
	go func() { _, _ = l.Navigate(context.Background(), "https://x.test") }()
	require.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return l.starting != nil
	}, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := l.Navigate(ctx, "https://x.test")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, l.Started(), "Started does not block on the launch")
}

func TestLazy_CloseDuringLaunchReleasesBrowser(t *testing.T) {
	release := make(chan struct{})
	b := &stubBrowser{}
	l := NewLazy(func(context.Context) (Browser, error) {
		<-release
		return b, nil
	})
	errc := make(chan error, 1)
	go func() {
		_, err := l.Navigate(context.Background(), "https://x.test")
		errc <- err
	}()
	require.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return l.starting != nil
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, l.Close())
	close(release)
	assert.ErrorIs(t, <-errc, ErrClosed)
	assert.Equal(t, 1, b.closes)
}

func TestCredentials_Empty(t *testing.T) {
	assert.True(t, Credentials{}.Empty())
	assert.True(t, Credentials{Login: "a"}.Empty())
	assert.False(t, Credentials{Login: "a", Password: "b"}.Empty())
}
