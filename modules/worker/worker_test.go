package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memQueue - 테스트용 큐 (LPUSH / RPOP 순서)
type memQueue struct {
	mu    sync.Mutex
	items []string
	err   error
}

func (q *memQueue) Push(ctx context.Context, jobID string) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return 0, q.err
	}
	q.items = append([]string{jobID}, q.items...)
	return int64(len(q.items)), nil
}

func (q *memQueue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	q.mu.Lock()
	if n := len(q.items); n > 0 {
		job := q.items[n-1]
		q.items = q.items[:n-1]
		q.mu.Unlock()
		return job, nil
	}
	q.mu.Unlock()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(10 * time.Millisecond):
		return "", nil
	}
}

func (q *memQueue) Remove(ctx context.Context, jobID string) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var removed int64
	kept := q.items[:0]
	for _, item := range q.items {
		if item == jobID {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	q.items = kept
	return removed, nil
}

func TestProcessRoutesByKind(t *testing.T) {
	w := NewWorker(&memQueue{})
	var got []string
	w.Handle(KindReminder, func(ctx context.Context, jobID string) error {
		got = append(got, jobID)
		return nil
	})

	require.NoError(t, w.Process(context.Background(), "reminder:1"))
	assert.Equal(t, []string{"reminder:1"}, got)

	assert.Error(t, w.Process(context.Background(), "video:1"))
	assert.Error(t, w.Process(context.Background(), "reminder"))
	assert.False(t, w.CanHandle(":x"))
	assert.True(t, w.CanHandle("reminder:abc"))
}

func TestProcessWrapsHandlerError(t *testing.T) {
	w := NewWorker(&memQueue{})
	boom := errors.New("boom")
	w.Handle(KindReminder, func(ctx context.Context, jobID string) error { return boom })

	err := w.Process(context.Background(), "reminder:1")
	assert.ErrorIs(t, err, boom)
}

func TestRunDrainsQueueUntilCancelled(t *testing.T) {
	q := &memQueue{}
	w := NewWorker(q)

	var mu sync.Mutex
	seen := map[string]bool{}
	w.Handle(KindReminder, func(ctx context.Context, jobID string) error {
		mu.Lock()
		seen[jobID] = true
		mu.Unlock()
		return nil
	})

	for _, id := range []string{"reminder:a", "reminder:b", "unknown:c"} {
		_, err := q.Push(context.Background(), id)
		require.NoError(t, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen["reminder:a"] && seen["reminder:b"]
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func newTestRouter(q Queue) *mux.Router {
	w := NewWorker(q)
	w.Handle(KindReminder, func(ctx context.Context, jobID string) error { return nil })

	r := mux.NewRouter()
	NewEnqueueHandler(q, w).RegisterRoutes(r)
	NewCancelHandler(q).RegisterRoutes(r)
	return r
}

func TestEnqueueHandler(t *testing.T) {
	q := &memQueue{}
	r := newTestRouter(q)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/enqueue", strings.NewReader(`{"job_id":"reminder:manual"}`)))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp struct {
		Success bool            `json:"success"`
		Data    EnqueueResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "reminder:manual", resp.Data.JobID)
	assert.Equal(t, QueueKey, resp.Data.Queue)
	assert.Equal(t, int64(1), resp.Data.QueuePosition)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/enqueue", strings.NewReader(`{"job_id":"render:1"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/enqueue", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunRemindersEnqueuesReminderJob(t *testing.T) {
	q := &memQueue{}
	r := newTestRouter(q)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reminders/run", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Len(t, q.items, 1)
	assert.True(t, strings.HasPrefix(q.items[0], "reminder:"))
}

func TestEnqueueRedisFailureIs502(t *testing.T) {
	q := &memQueue{err: errors.New("connection refused")}
	r := newTestRouter(q)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reminders/run", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestCancelQueuedJob(t *testing.T) {
	q := &memQueue{}
	r := newTestRouter(q)
	_, err := q.Push(context.Background(), "reminder:x")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/jobs/reminder:x/cancel", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, q.items)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/jobs/reminder:x/cancel", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
