package content

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"persona-studio-server/modules/common/access"
	"persona-studio-server/modules/common/apperr"
	"persona-studio-server/modules/common/auth"
	"persona-studio-server/modules/common/database"
	"persona-studio-server/modules/common/model"
	"persona-studio-server/modules/notify"
	"persona-studio-server/modules/persona"
	"persona-studio-server/modules/realtime"
)

// Service - 캘린더 항목 CRUD + 승인 상태 머신
//
//	planned ──submit──▶ pending_approval(pending) ──approve──▶ approved
//	                                              └─reject───▶ rejected (approval_status)
//	rejected/approved ──submit──▶ 새로운 pending 사이클
//
// 상태 변경이 저장된 뒤에만 알림을 보내며, 알림 실패는 상태 변경을 되돌리지 않는다.
// 수정/삭제는 작성자 본인 또는 admin 만 가능하다.
type Service struct {
	store     database.Store
	notifier  notify.Notifier
	personas  *persona.Registry
	publisher realtime.Publisher
	now       func() time.Time
	runNotify func(ctx context.Context, fn func(ctx context.Context))
}

// notifyTimeout - 요청 종료와 무관하게 알림 1회(webhook + email)에 주는 시간
const notifyTimeout = 60 * time.Second

// runDetached - 요청 context 취소와 분리된 goroutine 에서 알림 실행
func runDetached(ctx context.Context, fn func(ctx context.Context)) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	go func() {
		defer cancel()
		fn(ctx)
	}()
}

// NewService - Service 생성 (notifier/publisher 는 nil 허용)
func NewService(store database.Store, notifier notify.Notifier, personas *persona.Registry, publisher realtime.Publisher) *Service {
	if publisher == nil {
		publisher = realtime.NopPublisher{}
	}
	return &Service{
		store:     store,
		notifier:  notifier,
		personas:  personas,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
		runNotify: runDetached,
	}
}

// Get - 단건 조회
func (s *Service) Get(ctx context.Context, id string) (*model.ContentItem, error) {
	return s.store.GetContent(ctx, id)
}

// List - 캘린더 조회
func (s *Service) List(ctx context.Context, sess auth.Session, filter model.ContentFilter) ([]model.ContentItem, error) {
	if filter.Influencer == "" {
		filter.Influencer = sess.Influencer
	}
	if filter.Influencer != "" {
		p, err := s.personas.Get(filter.Influencer)
		if err != nil {
			return nil, err
		}
		filter.Influencer = p.Key
	}
	for _, d := range []string{filter.From, filter.To} {
		if d != "" {
			if err := validateDate("content.List", d); err != nil {
				return nil, err
			}
		}
	}
	return s.store.ListContent(ctx, filter)
}

// Create - 캘린더 항목 생성. NeedsApproval 이면 pending 상태로 생성하고 관리자 알림
func (s *Service) Create(ctx context.Context, sess auth.Session, in CreateInput) (*model.ContentItem, error) {
	const op = "content.Create"

	topic := strings.TrimSpace(in.Topic)
	if topic == "" {
		return nil, apperr.Validationf(op, "topic is required")
	}
	if err := validateDate(op, in.ScheduledDate); err != nil {
		return nil, err
	}

	influencer := in.Influencer
	if influencer == "" {
		influencer = sess.Influencer
	}
	p, err := s.personas.Get(influencer)
	if err != nil {
		return nil, err
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType = model.ContentTypeReel
	}
	if !validContentType(contentType) {
		return nil, apperr.Validationf(op, "invalid content_type: %s", contentType)
	}

	priority := in.Priority
	if priority == 0 {
		priority = 2
	}
	if priority < 1 || priority > 3 {
		return nil, apperr.Validationf(op, "priority must be between 1 and 3")
	}

	now := s.now()
	item := &model.ContentItem{
		ID:               uuid.New().String(),
		UserID:           sess.UserID,
		Influencer:       p.Key,
		Topic:            topic,
		ScheduledDate:    in.ScheduledDate,
		Category:         in.Category,
		ContentType:      contentType,
		Priority:         priority,
		ScriptContent:    in.ScriptContent,
		Notes:            in.Notes,
		InspirationLinks: in.InspirationLinks,
		Status:           model.StatusPlanned,
		ApprovalStatus:   model.ApprovalNotRequired,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if in.NeedsApproval {
		item.Status = model.StatusPendingApproval
		item.ApprovalStatus = model.ApprovalPending
		item.SubmittedForApprovalAt = &now
	}

	created, err := s.store.InsertContent(ctx, item)
	if err != nil {
		return nil, upstream(op, err)
	}

	log.Printf("✅ [Content] Created %s for %s on %s (approval: %s)", created.ID, created.Influencer, created.ScheduledDate, created.ApprovalStatus)
	s.publish(realtime.EventContentCreated, created)

	if created.ApprovalStatus == model.ApprovalPending {
		s.notifyAdmins(ctx, created, 0)
	}
	return created, nil
}

// Update - 편집 (상태 변화 없음)
func (s *Service) Update(ctx context.Context, sess auth.Session, id string, in UpdateInput) (*model.ContentItem, error) {
	const op = "content.Update"

	fields := model.Fields{}
	if in.Topic != nil {
		topic := strings.TrimSpace(*in.Topic)
		if topic == "" {
			return nil, apperr.Validationf(op, "topic is required")
		}
		fields["topic"] = topic
	}
	if in.Category != nil {
		fields["category"] = *in.Category
	}
	if in.ContentType != nil {
		if !validContentType(*in.ContentType) {
			return nil, apperr.Validationf(op, "invalid content_type: %s", *in.ContentType)
		}
		fields["content_type"] = *in.ContentType
	}
	if in.Priority != nil {
		if *in.Priority < 1 || *in.Priority > 3 {
			return nil, apperr.Validationf(op, "priority must be between 1 and 3")
		}
		fields["priority"] = *in.Priority
	}
	if in.ScriptContent != nil {
		fields["script_content"] = *in.ScriptContent
	}
	if in.Notes != nil {
		fields["notes"] = *in.Notes
	}
	if in.InspirationLinks != nil {
		fields["inspiration_links"] = *in.InspirationLinks
	}
	if len(fields) == 0 {
		return nil, apperr.Validationf(op, "nothing to update")
	}

	if _, err := s.loadForWrite(ctx, op, sess, id); err != nil {
		return nil, err
	}
	return s.mutate(ctx, op, id, fields, realtime.EventContentUpdated)
}

// SubmitForApproval - 승인 요청. 스크립트가 있거나 force 일 때만 허용
func (s *Service) SubmitForApproval(ctx context.Context, sess auth.Session, id string, force bool) (*model.ContentItem, error) {
	const op = "content.SubmitForApproval"

	item, err := s.loadForWrite(ctx, op, sess, id)
	if err != nil {
		return nil, err
	}
	if !item.HasScript() && !force {
		return nil, apperr.Validationf(op, "script_content is required before submitting for approval")
	}

	now := s.now()
	updated, err := s.mutate(ctx, op, id, model.Fields{
		"approval_status":           model.ApprovalPending,
		"submitted_for_approval_at": now,
		"status":                    model.StatusPendingApproval,
	}, realtime.EventContentUpdated)
	if err != nil {
		return nil, err
	}

	log.Printf("📝 [Content] %s submitted for approval by %s", id, sess.UserID)
	s.notifyAdmins(ctx, updated, 0)
	return updated, nil
}

// Approve - 관리자 승인 (pending 일 때만)
func (s *Service) Approve(ctx context.Context, sess auth.Session, id string, remarks string) (*model.ContentItem, error) {
	const op = "content.Approve"

	approver, err := access.RequireAdmin(ctx, s.store, op, sess)
	if err != nil {
		return nil, err
	}

	item, err := s.store.GetContent(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.ApprovalStatus != model.ApprovalPending {
		return nil, apperr.New(apperr.KindInvalidTransition, op, "content is not pending approval (approval_status="+item.ApprovalStatus+")")
	}

	var remarksValue interface{}
	if trimmed := strings.TrimSpace(remarks); trimmed != "" {
		remarksValue = trimmed
	}

	updated, err := s.mutate(ctx, op, id, model.Fields{
		"approval_status": model.ApprovalApproved,
		"status":          model.StatusApproved,
		"approved_by":     approver.ID,
		"approved_at":     s.now(),
		"admin_remarks":   remarksValue,
	}, realtime.EventContentUpdated)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ [Content] %s approved by %s", id, approver.DisplayName())
	s.notifyTeam(ctx, updated, model.ApprovalApproved, approver, strings.TrimSpace(remarks))
	return updated, nil
}

// Reject - 관리자 반려. 사유는 공백 제외 10자 이상이어야 하며 I/O 전에 검증한다
func (s *Service) Reject(ctx context.Context, sess auth.Session, id string, remarks string) (*model.ContentItem, error) {
	const op = "content.Reject"

	trimmed := strings.TrimSpace(remarks)
	if utf8.RuneCountInString(trimmed) < MinRejectRemarks {
		return nil, apperr.Validationf(op, "rejection remarks must be at least %d characters", MinRejectRemarks)
	}

	approver, err := access.RequireAdmin(ctx, s.store, op, sess)
	if err != nil {
		return nil, err
	}

	item, err := s.store.GetContent(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.ApprovalStatus != model.ApprovalPending {
		return nil, apperr.New(apperr.KindInvalidTransition, op, "content is not pending approval (approval_status="+item.ApprovalStatus+")")
	}

	updated, err := s.mutate(ctx, op, id, model.Fields{
		"approval_status": model.ApprovalRejected,
		"approved_by":     approver.ID,
		"approved_at":     s.now(),
		"admin_remarks":   trimmed,
	}, realtime.EventContentUpdated)
	if err != nil {
		return nil, err
	}

	log.Printf("🚫 [Content] %s rejected by %s", id, approver.DisplayName())
	s.notifyTeam(ctx, updated, model.ApprovalRejected, approver, trimmed)
	return updated, nil
}

// Reschedule - scheduled_date 변경 (상태 변화 없음)
func (s *Service) Reschedule(ctx context.Context, sess auth.Session, id, newDate string) (*model.ContentItem, error) {
	return s.schedule(ctx, "content.Reschedule", sess, id, newDate)
}

// Move - 캘린더 드래그 이동 (Reschedule 과 동일)
func (s *Service) Move(ctx context.Context, sess auth.Session, id, newDate string) (*model.ContentItem, error) {
	return s.schedule(ctx, "content.Move", sess, id, newDate)
}

func (s *Service) schedule(ctx context.Context, op string, sess auth.Session, id, newDate string) (*model.ContentItem, error) {
	if err := validateDate(op, newDate); err != nil {
		return nil, err
	}
	if _, err := s.loadForWrite(ctx, op, sess, id); err != nil {
		return nil, err
	}
	return s.mutate(ctx, op, id, model.Fields{"scheduled_date": newDate}, realtime.EventContentUpdated)
}

// SetStatus - 제작 단계 상태 변경 (승인 관련 상태는 워크플로우로만 변경)
func (s *Service) SetStatus(ctx context.Context, sess auth.Session, id, status string) (*model.ContentItem, error) {
	const op = "content.SetStatus"

	switch status {
	case model.StatusPlanned, model.StatusScriptReady, model.StatusInProduction, model.StatusPublished, model.StatusCancelled:
	case model.StatusApproved, model.StatusPendingApproval:
		return nil, apperr.Validationf(op, "status %s is set by the approval workflow", status)
	default:
		return nil, apperr.Validationf(op, "unknown status: %s", status)
	}

	if _, err := s.loadForWrite(ctx, op, sess, id); err != nil {
		return nil, err
	}
	return s.mutate(ctx, op, id, model.Fields{"status": status}, realtime.EventContentUpdated)
}

// Delete - 삭제. 0건 삭제 시 row 가 보이면 권한 거부, 아니면 NotFound
func (s *Service) Delete(ctx context.Context, sess auth.Session, id string) error {
	const op = "content.Delete"

	item, err := s.loadForWrite(ctx, op, sess, id)
	if err != nil {
		return err
	}

	n, err := s.store.DeleteContent(ctx, id)
	if err != nil {
		return upstream(op, err)
	}

	if n == 0 {
		if _, getErr := s.store.GetContent(ctx, id); getErr == nil {
			return apperr.New(apperr.KindPermissionDenied, op, "not allowed to delete this content")
		} else if errors.Is(getErr, apperr.NotFound) {
			return apperr.NotFoundf(op, "content not found: %s", id)
		} else {
			return upstream(op, getErr)
		}
	}

	log.Printf("🗑️ [Content] %s deleted by %s", id, sess.UserID)
	s.publisher.Publish(realtime.Event{Type: realtime.EventContentDeleted, Influencer: item.Influencer, ContentID: id})
	return nil
}

// mutate - 업데이트 후 최신 row 반환. 0건이면 권한/존재 여부로 분류
func (s *Service) mutate(ctx context.Context, op, id string, fields model.Fields, event string) (*model.ContentItem, error) {
	n, err := s.store.UpdateContent(ctx, id, fields)
	if err != nil {
		return nil, upstream(op, err)
	}
	if n == 0 {
		if _, getErr := s.store.GetContent(ctx, id); getErr == nil {
			return nil, apperr.New(apperr.KindPermissionDenied, op, "not allowed to modify this content")
		} else if errors.Is(getErr, apperr.NotFound) {
			return nil, apperr.NotFoundf(op, "content not found: %s", id)
		} else {
			return nil, upstream(op, getErr)
		}
	}

	updated, err := s.store.GetContent(ctx, id)
	if err != nil {
		return nil, upstream(op, err)
	}
	s.publish(event, updated)
	return updated, nil
}

// loadForWrite - 항목 조회 후 작성자/admin 권한 확인
func (s *Service) loadForWrite(ctx context.Context, op string, sess auth.Session, id string) (*model.ContentItem, error) {
	item, err := s.store.GetContent(ctx, id)
	if err != nil {
		return nil, upstream(op, err)
	}
	if err := access.CanModify(ctx, s.store, op, sess, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) notifyAdmins(ctx context.Context, item *model.ContentItem, reminderCount int) {
	if s.notifier == nil {
		return
	}
	evt := notify.AdminPending{
		ScriptID:      item.ID,
		Influencer:    item.Influencer,
		ScheduledDate: item.ScheduledDate,
		Topic:         item.Topic,
		ReminderCount: reminderCount,
	}
	s.runNotify(ctx, func(ctx context.Context) {
		if err := s.notifier.NotifyAdminsPending(ctx, evt); err != nil {
			log.Printf("⚠️ [Content] Admin notification for %s failed, state change kept: %v", evt.ScriptID, err)
		}
	})
}

func (s *Service) notifyTeam(ctx context.Context, item *model.ContentItem, status string, approver *model.Profile, remarks string) {
	if s.notifier == nil {
		return
	}
	evt := notify.TeamStatus{
		Status:     status,
		ScriptID:   item.ID,
		Influencer: item.Influencer,
		ApprovedBy: approver.DisplayName(),
		Remarks:    remarks,
	}
	s.runNotify(ctx, func(ctx context.Context) {
		if err := s.notifier.NotifyTeamStatus(ctx, evt); err != nil {
			log.Printf("⚠️ [Content] Team notification for %s failed, state change kept: %v", evt.ScriptID, err)
		}
	})
}

func (s *Service) publish(eventType string, item *model.ContentItem) {
	evt := realtime.Event{
		Type:           eventType,
		Influencer:     item.Influencer,
		ContentID:      item.ID,
		Status:         item.Status,
		ApprovalStatus: item.ApprovalStatus,
	}
	if item.VideoStatus != nil {
		evt.VideoStatus = *item.VideoStatus
	}
	s.publisher.Publish(evt)
}

func validateDate(op, date string) error {
	if strings.TrimSpace(date) == "" {
		return apperr.Validationf(op, "scheduled_date is required")
	}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return apperr.Validationf(op, "scheduled_date must be YYYY-MM-DD: %s", date)
	}
	return nil
}

func validContentType(t string) bool {
	switch t {
	case model.ContentTypeReel, model.ContentTypeStory, model.ContentTypeCarousel:
		return true
	}
	return false
}

// upstream - 이미 분류된 에러는 유지, 나머지는 UpstreamError
func upstream(op string, err error) error {
	if apperr.KindOf(err) != apperr.KindInternal {
		return err
	}
	return apperr.Wrap(apperr.KindUpstream, op, err)
}
