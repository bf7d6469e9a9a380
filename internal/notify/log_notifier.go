package notify

import (
	"context"
	"log/slog"

	"github.com/phrazzld/tasktracker-api/internal/redact"
)

// LogNotifier writes notifications to the structured log instead of sending
// them. It is the default transport for local development.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("component", "log_notifier")}
}

// Notify logs n and never fails.
func (l *LogNotifier) Notify(ctx context.Context, n Notification) error {
	l.logger.InfoContext(ctx, "notification",
		"address", redact.Email(n.Address),
		"subject", n.Subject,
		"message", n.Message)
	return nil
}
