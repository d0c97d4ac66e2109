package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

var (
	// ErrEmptyURL is returned when the webhook has no target.
	ErrEmptyURL = errors.New("notify: empty webhook url")
	// ErrRejected is returned when the webhook answers with a non-2xx status.
	ErrRejected = errors.New("notify: webhook rejected message")
)

// Webhook posts run messages as JSON. The body carries a one-line text
// summary for chat integrations next to the structured message.
type Webhook struct {
	url      string
	client   *http.Client
	attempts int
	backoff  time.Duration
}

// WebhookOption configures a Webhook.
type WebhookOption func(*Webhook)

// WithWebhookClient overrides the HTTP client.
func WithWebhookClient(client *http.Client) WebhookOption {
	return func(w *Webhook) {
		if client != nil {
			w.client = client
		}
	}
}

// WithAttempts sets how many times delivery is tried on transport errors and
// 5xx answers.
func WithAttempts(attempts int, backoff time.Duration) WebhookOption {
	return func(w *Webhook) {
		if attempts > 0 {
			w.attempts = attempts
		}
		if backoff >= 0 {
			w.backoff = backoff
		}
	}
}

type webhookBody struct {
	Text string     `json:"text"`
	Run  RunMessage `json:"run"`
}

// NewWebhook constructs a webhook notifier.
func NewWebhook(url string, opts ...WebhookOption) (*Webhook, error) {
	if strings.TrimSpace(url) == "" {
		return nil, ErrEmptyURL
	}
	w := &Webhook{
		url:      url,
		client:   &http.Client{Timeout: 10 * time.Second},
		attempts: 3,
		backoff:  time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Notify delivers msg, retrying retryable failures.
func (w *Webhook) Notify(ctx context.Context, msg RunMessage) error {
	body, err := json.Marshal(webhookBody{Text: Summary(msg), Run: msg})
	if err != nil {
		return err
	}
	var errs *multierror.Error
	for attempt := 1; attempt <= w.attempts; attempt++ {
		retry, err := w.post(ctx, body)
		if err == nil {
			return nil
		}
		errs = multierror.Append(errs, fmt.Errorf("attempt %d: %w", attempt, err))
		if !retry || attempt == w.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return multierror.Append(errs, ctx.Err())
		case <-time.After(w.backoff * time.Duration(attempt)):
		}
	}
	return errs.ErrorOrNil()
}

func (w *Webhook) post(ctx context.Context, body []byte) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return ctx.Err() == nil, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()
	if resp.StatusCode/100 != 2 {
		return resp.StatusCode >= 500, fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}
	return false, nil
}

// Summary renders msg on one line, diagnostic stages sorted by name.
func Summary(msg RunMessage) string {
	parts := []string{fmt.Sprintf("surplus run %s", msg.RunID)}
	if msg.Trigger != "" {
		parts[0] += " (" + msg.Trigger + ")"
	}
	parts = append(parts, fmt.Sprintf("rows=%d countries=%d diagnostics=%d", msg.Rows, len(msg.Countries), msg.Diagnostics))
	if len(msg.Reasons) > 0 {
		stages := make([]string, 0, len(msg.Reasons))
		for stage := range msg.Reasons {
			stages = append(stages, stage)
		}
		sort.Strings(stages)
		for i, stage := range stages {
			stages[i] = fmt.Sprintf("%s=%d", stage, msg.Reasons[stage])
		}
		parts = append(parts, "["+strings.Join(stages, " ")+"]")
	}
	if len(msg.Omitted) > 0 {
		parts = append(parts, "omitted="+strings.Join(msg.Omitted, ","))
	}
	if msg.ReportURL != "" {
		parts = append(parts, "report="+msg.ReportURL)
	}
	return strings.Join(parts, " ")
}
