package notify

import (
	"context"

	"github.com/Freeeeeet/tutor_scheduler/internal/metrics"
	"go.uber.org/zap"
)

// LogNotifier пишет уведомления в лог; используется без SENDGRID_API_KEY
type LogNotifier struct {
	logger *zap.Logger
}

var _ Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(_ context.Context, msg Message) error {
	n.logger.Info("Notification",
		zap.String("to", msg.To),
		zap.String("reply_to", msg.ReplyTo),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	metrics.NotificationResult("log", nil)
	return nil
}
