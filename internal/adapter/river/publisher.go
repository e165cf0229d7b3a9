package river

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/certiq/internal/adapter/sqlite"
	"github.com/neomorfeo/certiq/internal/domain"
)

// Compile-time check: Publisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*Publisher)(nil)

// NoticeJobArgs carries a committed ledger notice to the worker. River stores
// it as JSON in its job table.
type NoticeJobArgs struct {
	Event      string    `json:"event"`
	TenantID   uint16    `json:"tenant_id,omitempty"`
	Actor      string    `json:"actor"`
	Subject    string    `json:"subject,omitempty"`
	Amount     uint64    `json:"amount,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (NoticeJobArgs) Kind() string { return "ledger.notice" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Publisher implements domain.EventPublisher by enqueuing River jobs.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish enqueues a notice. Inside a ledger transaction the job is inserted
// in that transaction, so it is only visible once the operation commits.
func (p *Publisher) Publish(ctx context.Context, notice domain.Notice) error {
	args := NoticeJobArgs{
		Event:      string(notice.Event),
		TenantID:   uint16(notice.TenantID),
		Actor:      string(notice.Actor),
		Subject:    string(notice.Subject),
		Amount:     notice.Amount,
		OccurredAt: notice.OccurredAt,
	}

	var err error
	if tx, ok := sqlite.TxFrom(ctx); ok {
		_, err = p.client.InsertTx(ctx, tx, args, nil)
	} else {
		_, err = p.client.Insert(ctx, args, nil)
	}
	if err != nil {
		return fmt.Errorf("enqueuing notice job: %w", err)
	}
	return nil
}
