package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSlack_PostsBlocks(t *testing.T) {
	var got slackMessage
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Write([]byte("ok"))
	}))
	defer ts.Close()

	s := NewSlack(ts.URL)
	if s == nil {
		t.Fatal("expected slack client")
	}
	s.Source = "worker-1"
	s.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	if err := s.Send(context.Background(), "Session DOWN", "login rejected"); err != nil {
		t.Fatalf("send err: %v", err)
	}
	if got.Text != "Session DOWN: login rejected" {
		t.Fatalf("fallback text = %q", got.Text)
	}
	if len(got.Blocks) != 3 {
		t.Fatalf("blocks = %d, want 3", len(got.Blocks))
	}
	if b := got.Blocks[0]; b.Type != "header" || b.Text == nil || b.Text.Text != "Session DOWN" {
		t.Fatalf("header block = %+v", b)
	}
	if b := got.Blocks[1]; b.Type != "section" || b.Text == nil || b.Text.Text != "login rejected" {
		t.Fatalf("section block = %+v", b)
	}
	footer := got.Blocks[2].Elements
	if len(footer) != 1 || footer[0].Text != "handlecheck on worker-1 at 2025-06-01T12:00:00Z" {
		t.Fatalf("context block = %+v", footer)
	}
}

func TestSlack_LongTitleIsCut(t *testing.T) {
	s := &Slack{}
	m := s.message(strings.Repeat("x", 400), "y")
	if n := len([]rune(m.Blocks[0].Text.Text)); n != slackHeaderMax {
		t.Fatalf("header runes = %d, want %d", n, slackHeaderMax)
	}
	if !strings.HasPrefix(m.Text, strings.Repeat("x", 400)) {
		t.Fatal("fallback text keeps the full title")
	}
}

func TestSlack_Non2xxCarriesReason(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("invalid_blocks\n"))
	}))
	defer ts.Close()

	err := NewSlack(ts.URL).Send(context.Background(), "X", "Y")
	if err == nil || !strings.Contains(err.Error(), "400") || !strings.Contains(err.Error(), "invalid_blocks") {
		t.Fatalf("expected status and reason, got %v", err)
	}
}

func TestSlack_Non2xxWithoutBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer ts.Close()

	err := NewSlack(ts.URL).Send(context.Background(), "X", "Y")
	if err == nil || err.Error() != "slack: status 500" {
		t.Fatalf("got %v", err)
	}
}

func TestSlack_Disabled(t *testing.T) {
	s := NewSlack("")
	if s != nil {
		t.Fatalf("expected nil client for empty webhook")
	}
	if err := s.Send(context.Background(), "X", "Y"); !errors.Is(err, ErrSlackDisabled) {
		t.Fatalf("expected ErrSlackDisabled, got %v", err)
	}
}
