package repo

import (
	"context"
	"time"

	"github.com/LeventeLantos/sms-dispatch/internal/model"
)

// ListQueuedLimit caps how many queued rows the delivery worker sees per poll.
const ListQueuedLimit = 100

type MessageRepository interface {
	// InsertQueued stores new rows; the store assigns id and created_at.
	InsertQueued(ctx context.Context, msgs []model.Message) error
	// ListQueued returns queued rows, oldest first.
	ListQueued(ctx context.Context, limit int) ([]model.Message, error)
	RetryCount(ctx context.Context, id string) (int, error)
	MarkSent(ctx context.Context, id string) error
	SetStatus(ctx context.Context, id string, status model.Status, retryCount int) error
	// ListSince returns rows created at or after since, newest first.
	ListSince(ctx context.Context, since time.Time, limit int) ([]model.Message, error)
}
