package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/flowrig/flowrig/model"
	"github.com/flowrig/flowrig/systemapi"
)

// recorder wraps the caller's system api for the lifetime of one execution,
// capturing free-text logs and notifications into the eventual ExecutionResult
// while forwarding every call. Subflow results are merged into the parent's
// recorder so a top-level result carries the whole nested run.
type recorder struct {
	api           systemapi.API
	logs          []string
	notifications []model.Notification
}

var _ systemapi.API = new(recorder)

func newRecorder(api systemapi.API) *recorder {
	return &recorder{api: api}
}

func (r *recorder) Log(level string, msg string) {
	if level == "" {
		level = "info"
	}
	r.logs = append(r.logs, fmt.Sprintf("[%s] %s", level, msg))
	r.api.Log(level, msg)
}

func (r *recorder) Notify(ctx context.Context, message string, severity string) error {
	if severity == "" {
		severity = "info"
	}
	r.notifications = append(r.notifications, model.Notification{
		Message:   message,
		Severity:  severity,
		Timestamp: time.Now(),
	})
	return r.api.Notify(ctx, message, severity)
}

func (r *recorder) Chat(ctx context.Context, prompt string, options map[string]any) (string, error) {
	return r.api.Chat(ctx, prompt, options)
}

func (r *recorder) Say(ctx context.Context, text string, options map[string]any) error {
	return r.api.Say(ctx, text, options)
}

func (r *recorder) merge(res *model.ExecutionResult) {
	r.logs = append(r.logs, res.Logs...)
	r.notifications = append(r.notifications, res.Notifications...)
}
