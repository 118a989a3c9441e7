package systemapi

import "context"

// API is the boundary node logic and sandboxed scripts use to reach the outside
// world: logging, user notifications, AI chat and speech. All calls may block;
// implementations honor ctx cancellation.
type API interface {
	Log(level string, msg string)
	Notify(ctx context.Context, message string, severity string) error
	Chat(ctx context.Context, prompt string, options map[string]any) (string, error)
	Say(ctx context.Context, text string, options map[string]any) error
}

// Speaker turns text into audible speech.
type Speaker interface {
	Say(ctx context.Context, text string) error
}
