package repo

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestCheckID(t *testing.T) {
	if err := checkID(uuid.NewString()); err != nil {
		t.Fatalf("expected valid uuid to pass, got %v", err)
	}

	err := checkID("42")
	if err == nil {
		t.Fatalf("expected error for non-uuid id")
	}
	if !strings.Contains(err.Error(), "uuid") {
		t.Fatalf("expected uuid error, got %v", err)
	}
}

func TestPostgres_RejectsMalformedIDBeforeQuery(t *testing.T) {
	// nil db: any query attempt would panic, so reaching the error proves the short circuit.
	r := NewPostgresMessageRepo(nil)
	ctx := context.Background()

	if _, err := r.RetryCount(ctx, "nope"); err == nil {
		t.Fatalf("RetryCount: expected error")
	}
	if err := r.MarkSent(ctx, "nope"); err == nil {
		t.Fatalf("MarkSent: expected error")
	}
	if err := r.SetStatus(ctx, "nope", "queued", 0); err == nil {
		t.Fatalf("SetStatus: expected error")
	}
}

func TestPostgres_InsertQueuedEmptyIsNoop(t *testing.T) {
	r := NewPostgresMessageRepo(nil)
	if err := r.InsertQueued(context.Background(), nil); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
