package content

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"persona-studio-server/modules/common/apperr"
	"persona-studio-server/modules/common/auth"
	"persona-studio-server/modules/common/database"
	"persona-studio-server/modules/common/model"
	"persona-studio-server/modules/notify"
	"persona-studio-server/modules/persona"
	"persona-studio-server/modules/realtime"
)

type fakeNotifier struct {
	mu      sync.Mutex
	pending []notify.AdminPending
	team    []notify.TeamStatus
	err     error
}

func (f *fakeNotifier) NotifyAdminsPending(ctx context.Context, evt notify.AdminPending) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, evt)
	return f.err
}

func (f *fakeNotifier) NotifyTeamStatus(ctx context.Context, evt notify.TeamStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.team = append(f.team, evt)
	return f.err
}

type capturePublisher struct {
	events []realtime.Event
}

func (c *capturePublisher) Publish(evt realtime.Event) {
	c.events = append(c.events, evt)
}

// denyStore - RLS 로 쓰기가 막힌 상황 (row 는 보이지만 0건 영향)
type denyStore struct {
	*database.MemoryStore
}

func (d denyStore) UpdateContent(ctx context.Context, id string, fields model.Fields) (int, error) {
	return 0, nil
}

func (d denyStore) DeleteContent(ctx context.Context, id string) (int, error) {
	return 0, nil
}

var (
	editor = auth.Session{UserID: "u1", Influencer: "kaira"}
	admin  = auth.Session{UserID: "a1", Influencer: "kaira"}
)

func newTestService(t *testing.T) (*Service, *database.MemoryStore, *fakeNotifier) {
	t.Helper()
	store := database.NewMemoryStore()
	store.AddProfile(model.Profile{ID: "a1", FullName: "Jane", Email: "jane@example.com", Role: model.RoleAdmin})
	store.AddProfile(model.Profile{ID: "u1", FullName: "Tom", Email: "tom@example.com", Role: "editor"})
	n := &fakeNotifier{}
	s := NewService(store, n, persona.DefaultRegistry(), nil)
	s.runNotify = runInline
	return s, store, n
}

func runInline(ctx context.Context, fn func(ctx context.Context)) {
	fn(ctx)
}

func createPending(t *testing.T, s *Service) *model.ContentItem {
	t.Helper()
	item, err := s.Create(context.Background(), editor, CreateInput{
		Topic:         "Launch teaser",
		ScheduledDate: "2025-06-01",
		ScriptContent: model.StrPtr("hello world"),
	})
	require.NoError(t, err)
	item, err = s.SubmitForApproval(context.Background(), editor, item.ID, false)
	require.NoError(t, err)
	return item
}

func TestCreateValidation(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := s.Create(ctx, editor, CreateInput{Topic: "  ", ScheduledDate: "2025-06-01"})
	assert.ErrorIs(t, err, apperr.Validation)

	_, err = s.Create(ctx, editor, CreateInput{Topic: "x", ScheduledDate: "06/01/2025"})
	assert.ErrorIs(t, err, apperr.Validation)

	_, err = s.Create(ctx, editor, CreateInput{Topic: "x", ScheduledDate: "2025-06-01", Influencer: "nobody"})
	assert.ErrorIs(t, err, apperr.Validation)

	_, err = s.Create(ctx, editor, CreateInput{Topic: "x", ScheduledDate: "2025-06-01", ContentType: "podcast"})
	assert.ErrorIs(t, err, apperr.Validation)
}

func TestCreateDefaults(t *testing.T) {
	s, _, n := newTestService(t)

	item, err := s.Create(context.Background(), editor, CreateInput{Topic: "Morning routine", ScheduledDate: "2025-06-02"})
	require.NoError(t, err)

	assert.Equal(t, "kaira", item.Influencer)
	assert.Equal(t, "u1", item.UserID)
	assert.Equal(t, model.StatusPlanned, item.Status)
	assert.Equal(t, model.ApprovalNotRequired, item.ApprovalStatus)
	assert.Equal(t, model.ContentTypeReel, item.ContentType)
	assert.Equal(t, 2, item.Priority)
	assert.Empty(t, n.pending)
}

func TestCreateNeedsApprovalNotifiesAdmins(t *testing.T) {
	s, _, n := newTestService(t)

	item, err := s.Create(context.Background(), editor, CreateInput{
		Influencer: "Aisha", Topic: "Collab", ScheduledDate: "2025-06-03", NeedsApproval: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "aisha", item.Influencer)
	assert.Equal(t, model.ApprovalPending, item.ApprovalStatus)
	assert.Equal(t, model.StatusPendingApproval, item.Status)
	require.NotNil(t, item.SubmittedForApprovalAt)
	require.Len(t, n.pending, 1)
	assert.Equal(t, item.ID, n.pending[0].ScriptID)
}

func TestSubmitRequiresScriptUnlessForced(t *testing.T) {
	s, _, n := newTestService(t)
	ctx := context.Background()

	item, err := s.Create(ctx, editor, CreateInput{Topic: "No script yet", ScheduledDate: "2025-06-01"})
	require.NoError(t, err)

	_, err = s.SubmitForApproval(ctx, editor, item.ID, false)
	assert.ErrorIs(t, err, apperr.Validation)
	assert.Empty(t, n.pending)

	submitted, err := s.SubmitForApproval(ctx, editor, item.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalPending, submitted.ApprovalStatus)
	assert.Len(t, n.pending, 1)
}

func TestSubmitUnknownItem(t *testing.T) {
	s, _, _ := newTestService(t)
	_, err := s.SubmitForApproval(context.Background(), editor, "missing", true)
	assert.ErrorIs(t, err, apperr.NotFound)
}

func TestRejectRemarksTooShort(t *testing.T) {
	s, store, n := newTestService(t)
	item := createPending(t, s)

	for _, remarks := range []string{"", "short", "123456789", "   nine ch   ", "\t\n"} {
		_, err := s.Reject(context.Background(), admin, item.ID, remarks)
		assert.ErrorIs(t, err, apperr.Validation, "remarks %q", remarks)
	}

	got, err := store.GetContent(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalPending, got.ApprovalStatus)
	assert.Nil(t, got.AdminRemarks)
	assert.Empty(t, n.team)
}

func TestRejectStoresRemarksAndNotifiesTeam(t *testing.T) {
	s, _, n := newTestService(t)
	item := createPending(t, s)

	rejected, err := s.Reject(context.Background(), admin, item.ID, "  Hook is too long, please trim  ")
	require.NoError(t, err)

	assert.Equal(t, model.ApprovalRejected, rejected.ApprovalStatus)
	assert.Equal(t, model.StatusPendingApproval, rejected.Status)
	require.NotNil(t, rejected.AdminRemarks)
	assert.Equal(t, "Hook is too long, please trim", *rejected.AdminRemarks)
	require.NotNil(t, rejected.ApprovedBy)
	assert.Equal(t, "a1", *rejected.ApprovedBy)

	require.Len(t, n.team, 1)
	assert.Equal(t, model.ApprovalRejected, n.team[0].Status)
	assert.Equal(t, "Jane", n.team[0].ApprovedBy)
}

func TestApproveRequiresAdmin(t *testing.T) {
	s, _, _ := newTestService(t)
	item := createPending(t, s)

	_, err := s.Approve(context.Background(), editor, item.ID, "")
	assert.ErrorIs(t, err, apperr.PermissionDenied)

	_, err = s.Approve(context.Background(), auth.Session{UserID: "ghost"}, item.ID, "")
	assert.ErrorIs(t, err, apperr.PermissionDenied)

	_, err = s.Approve(context.Background(), auth.Session{}, item.ID, "")
	assert.ErrorIs(t, err, apperr.Unauthorized)
}

func TestDecisionsOnlyFromPending(t *testing.T) {
	s, store, n := newTestService(t)
	ctx := context.Background()

	notRequired, err := s.Create(ctx, editor, CreateInput{Topic: "Plain", ScheduledDate: "2025-06-01"})
	require.NoError(t, err)

	approved := createPending(t, s)
	_, err = s.Approve(ctx, admin, approved.ID, "")
	require.NoError(t, err)

	rejected := createPending(t, s)
	_, err = s.Reject(ctx, admin, rejected.ID, "Needs a stronger hook")
	require.NoError(t, err)

	teamCalls := len(n.team)
	for _, id := range []string{notRequired.ID, approved.ID, rejected.ID} {
		before, err := store.GetContent(ctx, id)
		require.NoError(t, err)

		_, err = s.Approve(ctx, admin, id, "again")
		assert.ErrorIs(t, err, apperr.InvalidTransition)
		_, err = s.Reject(ctx, admin, id, "second opinion here")
		assert.ErrorIs(t, err, apperr.InvalidTransition)

		after, err := store.GetContent(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, before.ApprovalStatus, after.ApprovalStatus)
		assert.Equal(t, before.AdminRemarks, after.AdminRemarks)
	}
	assert.Equal(t, teamCalls, len(n.team))
}

func TestResubmitAfterRejectionStartsNewCycle(t *testing.T) {
	s, _, n := newTestService(t)
	ctx := context.Background()
	item := createPending(t, s)

	_, err := s.Reject(ctx, admin, item.ID, "Rewrite the ending please")
	require.NoError(t, err)

	again, err := s.SubmitForApproval(ctx, editor, item.ID, false)
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalPending, again.ApprovalStatus)
	assert.Len(t, n.pending, 2)

	_, err = s.Approve(ctx, admin, item.ID, "")
	assert.NoError(t, err)
}

func TestNotificationFailureKeepsStateChange(t *testing.T) {
	s, store, n := newTestService(t)
	n.err = apperr.New(apperr.KindNotificationDispatch, "notify", "webhook returned 500")
	item := createPending(t, s)

	_, err := s.Approve(context.Background(), admin, item.ID, "ok")
	require.NoError(t, err)

	got, err := store.GetContent(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalApproved, got.ApprovalStatus)
}

func TestDeletePermissionVersusNotFound(t *testing.T) {
	s, store, _ := newTestService(t)
	ctx := context.Background()

	item, err := s.Create(ctx, editor, CreateInput{Topic: "To delete", ScheduledDate: "2025-06-01"})
	require.NoError(t, err)

	denied := NewService(denyStore{store}, nil, persona.DefaultRegistry(), nil)
	err = denied.Delete(ctx, editor, item.ID)
	assert.ErrorIs(t, err, apperr.PermissionDenied)

	_, err = denied.Reschedule(ctx, editor, item.ID, "2025-07-01")
	assert.ErrorIs(t, err, apperr.PermissionDenied)

	err = s.Delete(ctx, editor, "missing")
	assert.ErrorIs(t, err, apperr.NotFound)

	require.NoError(t, s.Delete(ctx, editor, item.ID))
	_, err = store.GetContent(ctx, item.ID)
	assert.True(t, errors.Is(err, apperr.NotFound))
}

func TestRescheduleAndMoveKeepStatus(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	item := createPending(t, s)

	moved, err := s.Move(ctx, editor, item.ID, "2025-06-15")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-15", moved.ScheduledDate)
	assert.Equal(t, item.ApprovalStatus, moved.ApprovalStatus)
	assert.Equal(t, item.Status, moved.Status)

	_, err = s.Reschedule(ctx, editor, item.ID, "not-a-date")
	assert.ErrorIs(t, err, apperr.Validation)
}

func TestSetStatus(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	item, err := s.Create(ctx, editor, CreateInput{Topic: "Status", ScheduledDate: "2025-06-01"})
	require.NoError(t, err)

	updated, err := s.SetStatus(ctx, editor, item.ID, model.StatusInProduction)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProduction, updated.Status)

	_, err = s.SetStatus(ctx, editor, item.ID, model.StatusApproved)
	assert.ErrorIs(t, err, apperr.Validation)
	_, err = s.SetStatus(ctx, editor, item.ID, "archived")
	assert.ErrorIs(t, err, apperr.Validation)
}

func TestListFiltersByPersonaAndRange(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	for _, in := range []CreateInput{
		{Topic: "a", ScheduledDate: "2025-06-01"},
		{Topic: "b", ScheduledDate: "2025-06-20"},
		{Topic: "c", ScheduledDate: "2025-07-02"},
		{Topic: "d", ScheduledDate: "2025-06-05", Influencer: "bailey"},
	} {
		_, err := s.Create(ctx, editor, in)
		require.NoError(t, err)
	}

	items, err := s.List(ctx, editor, model.ContentFilter{From: "2025-06-01", To: "2025-06-30"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].Topic)
	assert.Equal(t, "b", items[1].Topic)

	items, err = s.List(ctx, editor, model.ContentFilter{Influencer: "Bailey"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "d", items[0].Topic)
}

func TestUpdate(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	item, err := s.Create(ctx, editor, CreateInput{Topic: "Draft", ScheduledDate: "2025-06-01"})
	require.NoError(t, err)

	updated, err := s.Update(ctx, editor, item.ID, UpdateInput{
		Topic:         model.StrPtr("Final topic"),
		ScriptContent: model.StrPtr(strings.Repeat("word ", 10)),
	})
	require.NoError(t, err)
	assert.Equal(t, "Final topic", updated.Topic)
	assert.True(t, updated.HasScript())

	_, err = s.Update(ctx, editor, item.ID, UpdateInput{})
	assert.ErrorIs(t, err, apperr.Validation)
}

func TestEventsArePublished(t *testing.T) {
	store := database.NewMemoryStore()
	pub := &capturePublisher{}
	s := NewService(store, nil, persona.DefaultRegistry(), pub)
	ctx := context.Background()

	item, err := s.Create(ctx, editor, CreateInput{Topic: "Events", ScheduledDate: "2025-06-01"})
	require.NoError(t, err)
	_, err = s.Move(ctx, editor, item.ID, "2025-06-02")
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, editor, item.ID))

	require.Len(t, pub.events, 3)
	assert.Equal(t, realtime.EventContentCreated, pub.events[0].Type)
	assert.Equal(t, realtime.EventContentUpdated, pub.events[1].Type)
	assert.Equal(t, realtime.EventContentDeleted, pub.events[2].Type)
	assert.Equal(t, "kaira", pub.events[2].Influencer)
}

func TestDeleteEventUsesItemPersona(t *testing.T) {
	store := database.NewMemoryStore()
	pub := &capturePublisher{}
	s := NewService(store, nil, persona.DefaultRegistry(), pub)
	ctx := context.Background()

	item, err := s.Create(ctx, editor, CreateInput{Topic: "Bailey post", ScheduledDate: "2025-06-01", Influencer: "bailey"})
	require.NoError(t, err)

	// X-Influencer 헤더 없이 삭제
	require.NoError(t, s.Delete(ctx, auth.Session{UserID: editor.UserID}, item.ID))

	last := pub.events[len(pub.events)-1]
	assert.Equal(t, realtime.EventContentDeleted, last.Type)
	assert.Equal(t, "bailey", last.Influencer)
}

func TestWritesAreScopedToOwnerOrAdmin(t *testing.T) {
	s, store, n := newTestService(t)
	store.AddProfile(model.Profile{ID: "u2", FullName: "Bob", Email: "bob@example.com", Role: "editor"})
	other := auth.Session{UserID: "u2", Influencer: "kaira"}
	ctx := context.Background()

	item, err := s.Create(ctx, editor, CreateInput{
		Topic: "Alice's reel", ScheduledDate: "2025-06-01", ScriptContent: model.StrPtr("hello world"),
	})
	require.NoError(t, err)

	_, err = s.Update(ctx, other, item.ID, UpdateInput{Topic: model.StrPtr("hijacked")})
	assert.ErrorIs(t, err, apperr.PermissionDenied)
	_, err = s.SubmitForApproval(ctx, other, item.ID, false)
	assert.ErrorIs(t, err, apperr.PermissionDenied)
	_, err = s.Reschedule(ctx, other, item.ID, "2025-07-01")
	assert.ErrorIs(t, err, apperr.PermissionDenied)
	_, err = s.Move(ctx, other, item.ID, "2025-07-01")
	assert.ErrorIs(t, err, apperr.PermissionDenied)
	_, err = s.SetStatus(ctx, other, item.ID, model.StatusCancelled)
	assert.ErrorIs(t, err, apperr.PermissionDenied)
	assert.ErrorIs(t, s.Delete(ctx, other, item.ID), apperr.PermissionDenied)

	got, err := store.GetContent(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice's reel", got.Topic)
	assert.Equal(t, "2025-06-01", got.ScheduledDate)
	assert.Equal(t, model.StatusPlanned, got.Status)
	assert.Empty(t, n.pending)

	// admin 은 다른 사용자의 항목도 수정 가능
	moved, err := s.Move(ctx, admin, item.ID, "2025-06-10")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-10", moved.ScheduledDate)

	_, err = s.Update(ctx, auth.Session{}, item.ID, UpdateInput{Topic: model.StrPtr("anon")})
	assert.ErrorIs(t, err, apperr.Unauthorized)
}

func TestNotificationOutlivesRequestContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	runDetached(ctx, func(ctx context.Context) {
		_, hasDeadline := ctx.Deadline()
		if !hasDeadline {
			done <- errors.New("notification context has no timeout")
			return
		}
		done <- ctx.Err()
	})

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("notification did not run")
	}
}
