package notify

import "context"

// RunMessage is the notification payload for a run with diagnostics.
type RunMessage struct {
	RunID       string            `json:"run_id"`
	Trigger     string            `json:"trigger"`
	Rows        int               `json:"rows"`
	Countries   []string          `json:"countries"`
	Omitted     []string          `json:"omitted,omitempty"`
	Diagnostics int               `json:"diagnostics"`
	Reasons     map[string]int    `json:"reasons,omitempty"`
	ReportURL   string            `json:"report_url,omitempty"`
	Meta        map[string]string `json:"meta,omitempty"`
}

// Notifier sends run notifications.
type Notifier interface {
	Notify(ctx context.Context, msg RunMessage) error
}
