package schedule

import (
	"context"
	"log/slog"
	"time"
)

// Job is a periodic maintenance task.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context, now time.Time) (int, error)
}

// Every runs job on its interval until ctx is done. Results are logged when
// the job touched something or failed.
func Every(ctx context.Context, job Job, logger *slog.Logger) {
	if job.Interval <= 0 || job.Run == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := job.Run(ctx, now)
			if err != nil {
				logger.WarnContext(ctx, "scheduled job failed", slog.String("job", job.Name), slog.Any("err", err))
				continue
			}
			if n > 0 {
				logger.InfoContext(ctx, "scheduled job done", slog.String("job", job.Name), slog.Int("affected", n))
			}
		}
	}
}
