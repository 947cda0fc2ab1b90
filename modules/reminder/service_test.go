package reminder

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"persona-studio-server/modules/common/database"
	"persona-studio-server/modules/common/model"
	"persona-studio-server/modules/notify"
)

type webhook struct {
	mu      sync.Mutex
	queries []url.Values
	status  int
}

func (h *webhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.queries = append(h.queries, r.URL.Query())
	status := h.status
	h.mu.Unlock()
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
}

func seed(t *testing.T, store *database.MemoryStore, id, approval string, reminders int) {
	t.Helper()
	_, err := store.InsertContent(context.Background(), &model.ContentItem{
		ID:             id,
		Influencer:     "kaira",
		Topic:          "Topic " + id,
		ScheduledDate:  "2025-06-01",
		ContentType:    model.ContentTypeReel,
		Priority:       2,
		Status:         model.StatusPendingApproval,
		ApprovalStatus: approval,
		ReminderCount:  reminders,
	})
	require.NoError(t, err)
}

func newService(t *testing.T, hook *webhook) (*Service, *database.MemoryStore) {
	t.Helper()
	srv := httptest.NewServer(hook)
	t.Cleanup(srv.Close)

	store := database.NewMemoryStore()
	store.AddProfile(model.Profile{ID: "a1", FullName: "Jane", Email: "jane@example.com", Role: model.RoleAdmin})
	store.AddProfile(model.Profile{ID: "u1", FullName: "Tom", Email: "tom@example.com"})

	d := notify.NewDispatcher(store, notify.Options{AdminWebhook: srv.URL})
	return NewService(store, d), store
}

func TestSendRemindersIncrementsEachPendingItem(t *testing.T) {
	hook := &webhook{}
	svc, store := newService(t, hook)

	const n = 4
	for i := 0; i < n; i++ {
		seed(t, store, fmt.Sprintf("p%d", i), model.ApprovalPending, i)
	}
	seed(t, store, "done", model.ApprovalApproved, 0)
	seed(t, store, "plain", model.ApprovalNotRequired, 0)

	summary, err := svc.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Summary{Pending: n, Notified: n, Updated: n}, summary)
	assert.Len(t, hook.queries, n)

	for i := 0; i < n; i++ {
		item, err := store.GetContent(context.Background(), fmt.Sprintf("p%d", i))
		require.NoError(t, err)
		assert.Equal(t, i+1, item.ReminderCount)
		assert.NotNil(t, item.LastReminderSentAt)
	}

	for _, id := range []string{"done", "plain"} {
		item, err := store.GetContent(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, 0, item.ReminderCount)
		assert.Nil(t, item.LastReminderSentAt)
	}
}

func TestReminderPayloadCarriesNextCount(t *testing.T) {
	hook := &webhook{}
	svc, store := newService(t, hook)
	seed(t, store, "p1", model.ApprovalPending, 2)

	_, err := svc.SendReminders(context.Background())
	require.NoError(t, err)

	require.Len(t, hook.queries, 1)
	q := hook.queries[0]
	assert.Equal(t, "3", q.Get("reminderCount"))
	assert.Equal(t, "p1", q.Get("scriptId"))
	assert.Equal(t, "Jane", q.Get("adminNames"))
	assert.Equal(t, "jane@example.com", q.Get("adminEmails"))
}

func TestRepeatedRunsAreNotDeduplicated(t *testing.T) {
	hook := &webhook{}
	svc, store := newService(t, hook)
	seed(t, store, "p1", model.ApprovalPending, 0)

	for i := 0; i < 3; i++ {
		_, err := svc.SendReminders(context.Background())
		require.NoError(t, err)
	}

	item, err := store.GetContent(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, item.ReminderCount)
	assert.Len(t, hook.queries, 3)
}

func TestWebhookFailureStillPersists(t *testing.T) {
	hook := &webhook{status: http.StatusBadGateway}
	svc, store := newService(t, hook)
	seed(t, store, "p1", model.ApprovalPending, 0)
	seed(t, store, "p2", model.ApprovalPending, 0)

	summary, err := svc.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Summary{Pending: 2, Notified: 0, Updated: 2, Failed: 2}, summary)
	assert.Len(t, hook.queries, 2)

	item, err := store.GetContent(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, item.ReminderCount)
}

func TestNoPendingItems(t *testing.T) {
	hook := &webhook{}
	svc, _ := newService(t, hook)

	summary, err := svc.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Summary{}, summary)
	assert.Empty(t, hook.queries)
}
