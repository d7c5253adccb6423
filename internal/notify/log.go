package notify

import (
	"context"

	"go.uber.org/zap"
)

// Log writes messages to the logger. Used when no chat channel is configured
// so alerts still leave a trace.
type Log struct {
	Logger *zap.Logger
}

func (l Log) Send(_ context.Context, text string) error {
	if l.Logger != nil {
		l.Logger.Info("notification", zap.String("text", text))
	}
	return nil
}
