package river

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
)

// NoticeWorker processes ledger notice jobs from the River queue.
type NoticeWorker struct {
	river.WorkerDefaults[NoticeJobArgs]
}

// Work logs a single notice.
func (w *NoticeWorker) Work(ctx context.Context, job *river.Job[NoticeJobArgs]) error {
	attrs := []any{
		"event", job.Args.Event,
		"actor", job.Args.Actor,
		"job_id", job.ID,
		"attempt", job.Attempt,
	}
	if job.Args.TenantID != 0 {
		attrs = append(attrs, "tenant_id", job.Args.TenantID)
	}
	if job.Args.Subject != "" {
		attrs = append(attrs, "subject", job.Args.Subject)
	}
	if job.Args.Amount != 0 {
		attrs = append(attrs, "amount", job.Args.Amount)
	}

	slog.InfoContext(ctx, "ledger notice", attrs...)
	return nil
}
