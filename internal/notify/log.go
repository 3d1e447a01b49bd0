package notify

import (
	"context"

	"codegate/pkg/models"
)

// Logger matches the application logger.
type Logger interface {
	Info(msg string, args ...interface{})
}

// LogNotifier records deliveries to the log instead of sending them.
// Used when no SMTP transport is configured, e.g. in development.
type LogNotifier struct {
	logger Logger
}

// NewLogNotifier creates a new LogNotifier.
func NewLogNotifier(logger Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// DeliverDailyCode logs that a code would have been delivered. The code
// value itself is not logged.
func (n *LogNotifier) DeliverDailyCode(ctx context.Context, name, email string, code *models.DailyCode) error {
	n.logger.Info("daily code delivery (no SMTP configured)", "account", name, "email", email, "day", code.Day)
	return nil
}
