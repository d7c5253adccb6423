package notify

import (
	"context"

	"github.com/hamed0406/downwatch/internal/domain"
)

// Notifier delivers one human-readable message to the configured recipient.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// CommandSource returns inbound chat messages at or after cursor.
// A nil cursor means "whatever the platform still holds".
type CommandSource interface {
	Fetch(ctx context.Context, cursor *int64) ([]domain.Command, error)
}

type Multi []Notifier

func (m Multi) Send(ctx context.Context, text string) error {
	var firstErr error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, text); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
