package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/supabase-community/postgrest-go"

	"github.com/LeventeLantos/sms-dispatch/internal/model"
)

var _ MessageRepository = (*SupabaseMessageRepo)(nil)

const (
	smsQueueTable = "sms_queue"
	selectColumns = "id,phone,message,status,retry_count,created_at"
)

// SupabaseMessageRepo talks to the sms_queue table through the hosted
// PostgREST endpoint using the service role key.
type SupabaseMessageRepo struct {
	client *postgrest.Client
}

func NewSupabaseMessageRepo(baseURL, serviceRoleKey string) *SupabaseMessageRepo {
	client := postgrest.NewClient(baseURL+"/rest/v1", "public", map[string]string{
		"apikey": serviceRoleKey,
	}).SetAuthToken(serviceRoleKey)
	return &SupabaseMessageRepo{client: client}
}

type insertRow struct {
	Phone   string       `json:"phone"`
	Message string       `json:"message"`
	Status  model.Status `json:"status"`
}

func (r *SupabaseMessageRepo) InsertQueued(ctx context.Context, msgs []model.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	rows := make([]insertRow, 0, len(msgs))
	for _, m := range msgs {
		status := m.Status
		if status == "" {
			status = model.Queued
		}
		rows = append(rows, insertRow{Phone: m.Phone, Message: m.Message, Status: status})
	}

	q := r.client.From(smsQueueTable).Insert(rows, false, "", "minimal", "")
	return execute(ctx, q, nil)
}

func (r *SupabaseMessageRepo) ListQueued(ctx context.Context, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = ListQueuedLimit
	}

	q := r.client.From(smsQueueTable).
		Select(selectColumns, "", false).
		Eq("status", string(model.Queued)).
		Order("created_at", &postgrest.OrderOpts{Ascending: true}).
		Limit(limit, "")

	out := []model.Message{}
	if err := execute(ctx, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SupabaseMessageRepo) RetryCount(ctx context.Context, id string) (int, error) {
	// Single makes PostgREST fail unless exactly one row matches.
	q := r.client.From(smsQueueTable).
		Select("retry_count", "", false).
		Eq("id", id).
		Single()

	var row struct {
		RetryCount int `json:"retry_count"`
	}
	if err := execute(ctx, q, &row); err != nil {
		return 0, err
	}
	return row.RetryCount, nil
}

func (r *SupabaseMessageRepo) MarkSent(ctx context.Context, id string) error {
	q := r.client.From(smsQueueTable).
		Update(map[string]any{"status": model.Sent}, "minimal", "").
		Eq("id", id)
	return execute(ctx, q, nil)
}

func (r *SupabaseMessageRepo) SetStatus(ctx context.Context, id string, status model.Status, retryCount int) error {
	q := r.client.From(smsQueueTable).
		Update(map[string]any{"status": status, "retry_count": retryCount}, "minimal", "").
		Eq("id", id)
	return execute(ctx, q, nil)
}

func (r *SupabaseMessageRepo) ListSince(ctx context.Context, since time.Time, limit int) ([]model.Message, error) {
	q := r.client.From(smsQueueTable).
		Select(selectColumns, "", false).
		Gte("created_at", since.UTC().Format(time.RFC3339Nano)).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(limit, "")

	out := []model.Message{}
	if err := execute(ctx, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// execute runs q and decodes the body into out when out is non-nil. The
// builder has no per-request context, so a done ctx is checked up front.
func execute(ctx context.Context, q *postgrest.FilterBuilder, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, _, err := q.Execute()
	if err != nil {
		return storeError(err)
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode json: %w body=%q", err, string(body))
	}
	return nil
}

// storeError drops the "(CODE) " prefix postgrest-go puts in front of the
// PostgREST message, so callers see the same text the REST API returned.
func storeError(err error) error {
	msg := err.Error()
	if strings.HasPrefix(msg, "(") {
		if _, rest, ok := strings.Cut(msg, ") "); ok && rest != "" {
			return errors.New(rest)
		}
	}
	return err
}
