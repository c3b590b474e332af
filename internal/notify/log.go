package notify

import (
	"context"

	"github.com/devflowhub/engine/pkg/logger"
	"go.uber.org/zap"
)

// LogNotifier writes notifications to the application log instead of sending them.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (LogNotifier) Send(ctx context.Context, msg Message) error {
	logger.L().Info("notification (log only)", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}
