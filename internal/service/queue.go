package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/LeventeLantos/sms-dispatch/internal/metrics"
	"github.com/LeventeLantos/sms-dispatch/internal/model"
	"github.com/LeventeLantos/sms-dispatch/internal/repo"
)

var (
	ErrMissingPhone = errors.New("missing phone number")
	ErrMissingID    = errors.New("missing message id")
	// ErrFormat wraps anything that went wrong before rows reached the store.
	ErrFormat = errors.New("formatting sms")
)

type EventFormatter interface {
	Format(ctx context.Context, e model.Event) (string, error)
}

// ConfirmResult is the outcome of a delivery report. RetryCount is only set
// for failure reports.
type ConfirmResult struct {
	Status     model.Status `json:"status"`
	RetryCount *int         `json:"retry_count,omitempty"`
}

type QueueService struct {
	repo        repo.MessageRepository
	formatter   EventFormatter
	copyNumbers []string
	metrics     *metrics.Metrics
	now         func() time.Time
}

func NewQueueService(r repo.MessageRepository, f EventFormatter, copyNumbers []string) *QueueService {
	return &QueueService{
		repo:        r,
		formatter:   f,
		copyNumbers: copyNumbers,
		now:         time.Now,
	}
}

func (s *QueueService) WithMetrics(m *metrics.Metrics) *QueueService {
	s.metrics = m
	return s
}

func (s *QueueService) WithClock(now func() time.Time) *QueueService {
	s.now = now
	return s
}

// Ingest formats the event once and queues it for the event's phone and
// every copy number. It returns the number of rows written.
func (s *QueueService) Ingest(ctx context.Context, e model.Event) (int, error) {
	phone := e.Phone()
	if phone == "" {
		return 0, ErrMissingPhone
	}

	text, err := s.formatter.Format(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	rows := make([]model.Message, 0, 1+len(s.copyNumbers))
	rows = append(rows, model.Message{Phone: phone, Message: text, Status: model.Queued})
	for _, copyTo := range s.copyNumbers {
		rows = append(rows, model.Message{Phone: copyTo, Message: text, Status: model.Queued})
	}

	if err := s.repo.InsertQueued(ctx, rows); err != nil {
		return 0, err
	}

	if s.metrics != nil {
		s.metrics.Queued.Add(float64(len(rows)))
	}
	slog.Info("sms queued", "rows", len(rows))
	return len(rows), nil
}

func (s *QueueService) ListQueued(ctx context.Context) ([]model.Message, error) {
	msgs, err := s.repo.ListQueued(ctx, repo.ListQueuedLimit)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return msgs, nil
}

// Confirm applies a delivery report: success marks the row sent, failure
// bumps retry_count and fails the row once it reaches model.MaxRetries.
func (s *QueueService) Confirm(ctx context.Context, id string, success bool) (ConfirmResult, error) {
	if id == "" {
		return ConfirmResult{}, ErrMissingID
	}

	current, err := s.repo.RetryCount(ctx, id)
	if err != nil {
		return ConfirmResult{}, err
	}

	if success {
		if err := s.repo.MarkSent(ctx, id); err != nil {
			return ConfirmResult{}, err
		}
		s.recordConfirmation(model.Sent)
		return ConfirmResult{Status: model.Sent}, nil
	}

	status, retryCount := model.NextAfterFailure(current)
	if err := s.repo.SetStatus(ctx, id, status, retryCount); err != nil {
		return ConfirmResult{}, err
	}

	if status == model.Failed {
		slog.Warn("sms exhausted retries", "id", id, "retry_count", retryCount)
	}
	s.recordConfirmation(status)
	return ConfirmResult{Status: status, RetryCount: &retryCount}, nil
}

// Resend puts a message back in the queue with a fresh retry budget.
func (s *QueueService) Resend(ctx context.Context, id string) (model.Status, error) {
	if id == "" {
		return "", ErrMissingID
	}

	if err := s.repo.SetStatus(ctx, id, model.Queued, 0); err != nil {
		return "", err
	}

	if s.metrics != nil {
		s.metrics.Resends.Inc()
	}
	return model.Queued, nil
}

// Dashboard reads the last week of rows. Store errors are logged and yield
// an empty dashboard.
func (s *QueueService) Dashboard(ctx context.Context) model.Dashboard {
	now := s.now()

	msgs, err := s.repo.ListSince(ctx, now.AddDate(0, 0, -(DashboardDays-1)), DashboardRowLimit)
	if err != nil {
		slog.Error("dashboard query failed", "error", err)
		return BuildDashboard(nil, now)
	}
	return BuildDashboard(msgs, now)
}

func (s *QueueService) recordConfirmation(status model.Status) {
	if s.metrics != nil {
		s.metrics.Confirmations.WithLabelValues(string(status)).Inc()
	}
}
