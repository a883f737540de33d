package middleware

import (
	"context"
	"log/slog"

	"venuebook/internal/app/commands"
	"venuebook/internal/app/outbox"
)

// OutboxFlush flushes events recorded by a command once it returns. The
// command's effects are already applied remotely, so a failed flush is logged
// and left to the next flush rather than reported to the caller.
func OutboxFlush(box outbox.Outbox, logger *slog.Logger) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := nextFn(ctx, cmd)
			if flushErr := box.Flush(ctx); flushErr != nil {
				logger.ErrorContext(ctx, "outbox flush failed",
					slog.String("key", cmd.Key()),
					slog.Any("err", flushErr))
			}
			return res, err
		})
	}
}
