package reminder

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"persona-studio-server/modules/common/apperr"
	"persona-studio-server/modules/common/database"
	"persona-studio-server/modules/common/model"
	"persona-studio-server/modules/notify"
)

// Summary - 리마인더 배치 결과
type Summary struct {
	Pending  int `json:"pending"`
	Notified int `json:"notified"`
	Updated  int `json:"updated"`
	Failed   int `json:"failed"`
}

// Service - 승인 대기 항목 리마인더 배치
type Service struct {
	store    database.Store
	notifier notify.BatchNotifier
	now      func() time.Time
}

// NewService - Service 생성
func NewService(store database.Store, notifier notify.BatchNotifier) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SendReminders - pending 항목마다 관리자 알림 재발송 + reminder_count 증가
// 실행마다 1씩 증가하며 연속 실행에 대한 중복 제거는 하지 않는다
func (s *Service) SendReminders(ctx context.Context) (*Summary, error) {
	const op = "reminder.SendReminders"

	items, err := s.store.ListContent(ctx, model.ContentFilter{ApprovalStatus: model.ApprovalPending})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, op, err)
	}

	summary := &Summary{Pending: len(items)}
	if len(items) == 0 {
		log.Println("📭 [Reminder] No pending approvals")
		return summary, nil
	}

	// 관리자 목록은 배치당 한 번만 조회
	admins, err := s.notifier.Admins(ctx)
	if err != nil {
		log.Printf("⚠️ [Reminder] Failed to load admins, reminders will be sent without recipients: %v", err)
	}

	log.Printf("⏰ [Reminder] Sending reminders for %d pending items to %d admins", len(items), len(admins))

	for _, item := range items {
		next := item.ReminderCount + 1
		failed := false

		err := s.notifier.SendAdminPending(ctx, admins, notify.AdminPending{
			ScriptID:      item.ID,
			Influencer:    item.Influencer,
			ScheduledDate: item.ScheduledDate,
			Topic:         item.Topic,
			ReminderCount: next,
		})
		if err != nil {
			log.Printf("⚠️ [Reminder] Notification for %s failed: %v", item.ID, err)
			failed = true
		} else {
			summary.Notified++
		}

		n, err := s.store.UpdateContent(ctx, item.ID, model.Fields{
			"reminder_count":        next,
			"last_reminder_sent_at": s.now(),
		})
		switch {
		case err != nil:
			log.Printf("❌ [Reminder] Failed to update %s: %v", item.ID, err)
			failed = true
		case n == 0:
			log.Printf("⚠️ [Reminder] %s was not updated (removed or not writable)", item.ID)
			failed = true
		default:
			summary.Updated++
		}

		if failed {
			summary.Failed++
		}
	}

	log.Printf("✅ [Reminder] Done - pending: %d, notified: %d, updated: %d, failed: %d",
		summary.Pending, summary.Notified, summary.Updated, summary.Failed)
	return summary, nil
}
