package repo

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeventeLantos/sms-dispatch/internal/model"
)

type capturedRequest struct {
	Method string
	Path   string
	Query  map[string]string
	Header http.Header
	Body   []byte
}

func newRESTServer(t *testing.T, status int, response string) (*httptest.Server, *capturedRequest) {
	t.Helper()

	var got capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Method = r.Method
		got.Path = r.URL.Path
		got.Query = map[string]string{}
		for k, v := range r.URL.Query() {
			got.Query[k] = v[0]
		}
		got.Header = r.Header.Clone()
		got.Body, _ = io.ReadAll(r.Body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestSupabase_InsertQueued(t *testing.T) {
	t.Parallel()

	srv, got := newRESTServer(t, http.StatusCreated, "")
	r := NewSupabaseMessageRepo(srv.URL, "service-key")

	err := r.InsertQueued(context.Background(), []model.Message{
		{Phone: "0711", Message: "hi"},
		{Phone: "0720363215", Message: "hi", Status: model.Queued},
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/rest/v1/sms_queue", got.Path)
	assert.Equal(t, "service-key", got.Header.Get("apikey"))
	assert.Equal(t, "Bearer service-key", got.Header.Get("Authorization"))
	assert.Equal(t, "return=minimal", got.Header.Get("Prefer"))

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(got.Body, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "0711", rows[0]["phone"])
	assert.Equal(t, "queued", rows[0]["status"])
	assert.Equal(t, "0720363215", rows[1]["phone"])
}

func TestSupabase_ListQueued(t *testing.T) {
	t.Parallel()

	id := uuid.NewString()
	srv, got := newRESTServer(t, http.StatusOK, `[{"id":"`+id+`","phone":"0711","message":"hi","status":"queued","retry_count":1,"created_at":"2026-10-18T08:00:00+00:00"}]`)
	r := NewSupabaseMessageRepo(srv.URL, "k")

	msgs, err := r.ListQueued(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, id, msgs[0].ID)
	assert.Equal(t, model.Queued, msgs[0].Status)
	assert.Equal(t, 1, msgs[0].RetryCount)

	assert.Equal(t, "eq.queued", got.Query["status"])
	assert.True(t, strings.HasPrefix(got.Query["order"], "created_at.asc"), got.Query["order"])
	assert.Equal(t, "id,phone,message,status,retry_count,created_at", got.Query["select"])
	assert.Equal(t, "100", got.Query["limit"])
}

func TestSupabase_ListQueued_EmptyIsNotNil(t *testing.T) {
	t.Parallel()

	srv, _ := newRESTServer(t, http.StatusOK, `[]`)
	r := NewSupabaseMessageRepo(srv.URL, "k")

	msgs, err := r.ListQueued(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
}

func TestSupabase_RetryCount(t *testing.T) {
	t.Parallel()

	srv, got := newRESTServer(t, http.StatusOK, `{"retry_count":2}`)
	r := NewSupabaseMessageRepo(srv.URL, "k")

	n, err := r.RetryCount(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "eq.abc", got.Query["id"])
	assert.Contains(t, got.Header.Values("Accept"), "application/vnd.pgrst.object+json")
}

func TestSupabase_RetryCount_ErrorCarriesStoreMessage(t *testing.T) {
	t.Parallel()

	srv, _ := newRESTServer(t, http.StatusNotAcceptable, `{"code":"PGRST116","message":"JSON object requested, multiple (or no) rows returned"}`)
	r := NewSupabaseMessageRepo(srv.URL, "k")

	_, err := r.RetryCount(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JSON object requested, multiple (or no) rows returned")
}

func TestStoreError_StripsCodePrefix(t *testing.T) {
	t.Parallel()

	err := storeError(errors.New("(42P01) relation \"sms_queue\" does not exist"))
	assert.Equal(t, `relation "sms_queue" does not exist`, err.Error())

	plain := errors.New("dial tcp: connection refused")
	assert.Same(t, plain, storeError(plain))
}

func TestSupabase_SetStatus(t *testing.T) {
	t.Parallel()

	srv, got := newRESTServer(t, http.StatusNoContent, "")
	r := NewSupabaseMessageRepo(srv.URL, "k")

	require.NoError(t, r.SetStatus(context.Background(), "abc", model.Failed, 3))

	assert.Equal(t, http.MethodPatch, got.Method)
	assert.Equal(t, "eq.abc", got.Query["id"])
	assert.JSONEq(t, `{"status":"failed","retry_count":3}`, string(got.Body))
}

func TestSupabase_MarkSent(t *testing.T) {
	t.Parallel()

	srv, got := newRESTServer(t, http.StatusNoContent, "")
	r := NewSupabaseMessageRepo(srv.URL, "k")

	require.NoError(t, r.MarkSent(context.Background(), "abc"))
	assert.JSONEq(t, `{"status":"sent"}`, string(got.Body))
}

func TestSupabase_ListSince(t *testing.T) {
	t.Parallel()

	srv, got := newRESTServer(t, http.StatusOK, `[]`)
	r := NewSupabaseMessageRepo(srv.URL, "k")

	since := time.Date(2026, 10, 13, 9, 30, 0, 0, time.UTC)
	_, err := r.ListSince(context.Background(), since, 500)
	require.NoError(t, err)

	assert.Equal(t, "gte.2026-10-13T09:30:00Z", got.Query["created_at"])
	assert.True(t, strings.HasPrefix(got.Query["order"], "created_at.desc"), got.Query["order"])
	assert.Equal(t, "500", got.Query["limit"])
}

func TestSupabase_UnexpectedStatusWithoutJSON(t *testing.T) {
	t.Parallel()

	srv, _ := newRESTServer(t, http.StatusBadGateway, "upstream down")
	r := NewSupabaseMessageRepo(srv.URL, "k")

	require.Error(t, r.MarkSent(context.Background(), "abc"))
}

func TestSupabase_CancelledContextSkipsRequest(t *testing.T) {
	t.Parallel()

	srv, got := newRESTServer(t, http.StatusOK, `[]`)
	r := NewSupabaseMessageRepo(srv.URL, "k")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.ListQueued(ctx, 10)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, got.Method)
}
