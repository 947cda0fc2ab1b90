package notify

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"persona-studio-server/modules/common/model"
)

// AdminPending - 관리자 승인 대기 알림
type AdminPending struct {
	ScriptID      string
	Influencer    string
	ScheduledDate string
	Topic         string
	ReminderCount int // 0 이면 최초 제출
}

// TeamStatus - 승인/반려 결과 팀 알림
type TeamStatus struct {
	Status     string // approved, rejected
	ScriptID   string
	Influencer string
	ApprovedBy string
	Remarks    string
}

// Notifier - 워크플로우 서비스가 사용하는 알림 인터페이스
type Notifier interface {
	NotifyAdminsPending(ctx context.Context, evt AdminPending) error
	NotifyTeamStatus(ctx context.Context, evt TeamStatus) error
}

// BatchNotifier - 수신자를 한 번만 조회하는 배치(리마인더)용
type BatchNotifier interface {
	Admins(ctx context.Context) ([]model.Profile, error)
	SendAdminPending(ctx context.Context, admins []model.Profile, evt AdminPending) error
}

// SplitRecipients - admins = role==admin, team = role!=admin
func SplitRecipients(profiles []model.Profile) (admins, team []model.Profile) {
	for _, p := range profiles {
		if p.IsAdmin() {
			admins = append(admins, p)
		} else {
			team = append(team, p)
		}
	}
	return admins, team
}

// AdminPendingParams - 관리자 알림 webhook 쿼리 파라미터
func AdminPendingParams(admins []model.Profile, evt AdminPending) url.Values {
	names, emails := namesAndEmails(admins)

	q := url.Values{}
	q.Set("adminNames", names)
	q.Set("adminEmails", emails)
	q.Set("scriptId", evt.ScriptID)
	q.Set("influencer", evt.Influencer)
	q.Set("scheduledDate", evt.ScheduledDate)
	q.Set("topic", evt.Topic)
	if evt.ReminderCount > 0 {
		q.Set("reminderCount", strconv.Itoa(evt.ReminderCount))
	}
	return q
}

// TeamStatusParams - 팀 알림 webhook 쿼리 파라미터
func TeamStatusParams(team []model.Profile, evt TeamStatus) url.Values {
	_, emails := namesAndEmails(team)

	q := url.Values{}
	q.Set("status", evt.Status)
	q.Set("scriptId", evt.ScriptID)
	q.Set("influencer", evt.Influencer)
	q.Set("approvedBy", evt.ApprovedBy)
	q.Set("remarks", evt.Remarks)
	q.Set("teamEmails", emails)
	return q
}

func namesAndEmails(profiles []model.Profile) (string, string) {
	names := make([]string, 0, len(profiles))
	emails := make([]string, 0, len(profiles))
	for _, p := range profiles {
		names = append(names, p.DisplayName())
		if p.Email != "" {
			emails = append(emails, p.Email)
		}
	}
	return strings.Join(names, ","), strings.Join(emails, ",")
}

func emailsOf(profiles []model.Profile) []string {
	out := []string{}
	for _, p := range profiles {
		if p.Email != "" {
			out = append(out, p.Email)
		}
	}
	return out
}
