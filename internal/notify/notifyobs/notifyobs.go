package notifyobs

import (
	"context"
	"time"

	"regime-signal-bot/internal/logger"
	"regime-signal-bot/internal/notify"
	"regime-signal-bot/internal/trace"
)

type observableNotifier struct {
	notifier notify.Notifier
}

var _ notify.Notifier = (*observableNotifier)(nil)

// Wrap adds a span and structured logs around every Send.
func Wrap(n notify.Notifier) notify.Notifier {
	return &observableNotifier{notifier: n}
}

func (on *observableNotifier) Send(ctx context.Context, text string) error {
	ctx, span := trace.StartSpan(ctx, "notify.Send")
	defer span.End()

	start := time.Now()
	logger.DebugSkip(ctx, 1, "Sending message", "length", len(text))

	if err := on.notifier.Send(ctx, text); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to send message", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return err
	}

	logger.DebugSkip(ctx, 1, "Message sent", "duration_ms", time.Since(start).Milliseconds())
	return nil
}
