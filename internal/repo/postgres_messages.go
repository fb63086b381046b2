package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/LeventeLantos/sms-dispatch/internal/model"
)

var _ MessageRepository = (*PostgresMessageRepo)(nil)

type PostgresMessageRepo struct {
	db *sqlx.DB
}

func NewPostgresMessageRepo(db *sqlx.DB) *PostgresMessageRepo {
	return &PostgresMessageRepo{db: db}
}

const messageColumns = `id::text AS id, phone, message, status, retry_count, created_at`

func (r *PostgresMessageRepo) InsertQueued(ctx context.Context, msgs []model.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	rows := make([]model.Message, len(msgs))
	for i, m := range msgs {
		rows[i] = m
		if rows[i].Status == "" {
			rows[i].Status = model.Queued
		}
	}

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO sms_queue (phone, message, status)
		VALUES (:phone, :message, :status)
	`, rows)
	return err
}

func (r *PostgresMessageRepo) ListQueued(ctx context.Context, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = ListQueuedLimit
	}

	out := []model.Message{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+messageColumns+`
		FROM sms_queue
		WHERE status = 'queued'
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	return out, err
}

func (r *PostgresMessageRepo) RetryCount(ctx context.Context, id string) (int, error) {
	if err := checkID(id); err != nil {
		return 0, err
	}

	var n int
	err := r.db.GetContext(ctx, &n, `SELECT retry_count FROM sms_queue WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("message %s not found", id)
	}
	return n, err
}

func (r *PostgresMessageRepo) MarkSent(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `UPDATE sms_queue SET status = 'sent' WHERE id = $1`, id)
	return err
}

func (r *PostgresMessageRepo) SetStatus(ctx context.Context, id string, status model.Status, retryCount int) error {
	if err := checkID(id); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE sms_queue
		SET status = $2, retry_count = $3
		WHERE id = $1
	`, id, string(status), retryCount)
	return err
}

func (r *PostgresMessageRepo) ListSince(ctx context.Context, since time.Time, limit int) ([]model.Message, error) {
	out := []model.Message{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+messageColumns+`
		FROM sms_queue
		WHERE created_at >= $1
		ORDER BY created_at DESC
		LIMIT $2
	`, since.UTC(), limit)
	return out, err
}

// checkID rejects ids the uuid column would refuse, without a round trip.
func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid input syntax for type uuid: %q", id)
	}
	return nil
}
