package model

import "time"

type Status string

const (
	Queued Status = "queued"
	Sent   Status = "sent"
	Failed Status = "failed"
)

// MaxRetries is the retry_count at which a message stops being retried.
const MaxRetries = 3

// Message is one row of the sms_queue table.
type Message struct {
	ID         string    `db:"id" json:"id"`
	Phone      string    `db:"phone" json:"phone"`
	Message    string    `db:"message" json:"message"`
	Status     Status    `db:"status" json:"status"`
	RetryCount int       `db:"retry_count" json:"retry_count"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// NextAfterFailure returns the status and retry count a message moves to
// after its delivery was reported as failed.
func NextAfterFailure(retryCount int) (Status, int) {
	next := retryCount + 1
	if next >= MaxRetries {
		return Failed, next
	}
	return Queued, next
}

// Retryable reports whether a failed message still has retry budget left.
func (m Message) Retryable() bool {
	return m.RetryCount < MaxRetries
}
