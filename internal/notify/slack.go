package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

var ErrSlackDisabled = errors.New("slack disabled")

// Slack posts alerts to an incoming webhook as Block Kit messages.
type Slack struct {
	Webhook string
	Client  *http.Client
	// Source names the instance raising the alert; shown under the message.
	Source string

	now func() time.Time
}

// NewSlack returns nil when webhook is empty. Source defaults to the host name.
func NewSlack(webhook string) *Slack {
	if webhook == "" {
		return nil
	}
	host, _ := os.Hostname()
	return &Slack{
		Webhook: webhook,
		Client:  &http.Client{Timeout: 10 * time.Second},
		Source:  host,
		now:     time.Now,
	}
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackMessage struct {
	Text   string       `json:"text"` // notification fallback
	Blocks []slackBlock `json:"blocks"`
}

// Slack rejects header text longer than this.
const slackHeaderMax = 150

func (s *Slack) message(title, text string) slackMessage {
	header := title
	if r := []rune(header); len(r) > slackHeaderMax {
		header = string(r[:slackHeaderMax-1]) + "…"
	}
	footer := "handlecheck"
	if s.Source != "" {
		footer += " on " + s.Source
	}
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	footer += " at " + now().UTC().Format(time.RFC3339)

	return slackMessage{
		Text: title + ": " + text,
		Blocks: []slackBlock{
			{Type: "header", Text: &slackText{Type: "plain_text", Text: header}},
			{Type: "section", Text: &slackText{Type: "mrkdwn", Text: text}},
			{Type: "context", Elements: []slackText{{Type: "mrkdwn", Text: footer}}},
		},
	}
}

func (s *Slack) Send(ctx context.Context, title, text string) error {
	if s == nil || s.Webhook == "" {
		return ErrSlackDisabled
	}
	body, err := json.Marshal(s.message(title, text))
	if err != nil {
		return fmt.Errorf("slack: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Webhook, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("slack: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 == 2 {
		return nil
	}
	// Webhooks explain rejections in a short plain-text body.
	reason, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	if msg := strings.TrimSpace(string(reason)); msg != "" {
		return fmt.Errorf("slack: status %d: %s", resp.StatusCode, msg)
	}
	return fmt.Errorf("slack: status %d", resp.StatusCode)
}
