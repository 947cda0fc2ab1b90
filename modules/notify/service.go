package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"persona-studio-server/modules/common/apperr"
	"persona-studio-server/modules/common/database"
	"persona-studio-server/modules/common/logger"
	"persona-studio-server/modules/common/model"
)

var logNotify = logger.With("notify")

// Dispatcher - 알림 webhook (+ 선택적 이메일) 발송기
// 호출당 1회 시도, 재시도/큐 없음. 실패는 로그만 남기고 호출자에게 에러로 알려준다.
type Dispatcher struct {
	store        database.Store
	adminWebhook string
	teamWebhook  string
	httpClient   *http.Client
	email        *EmailChannel
}

// Options - Dispatcher 설정
type Options struct {
	AdminWebhook string
	TeamWebhook  string
	Timeout      time.Duration
	Email        *EmailChannel // nil 이면 이메일 미사용
}

// NewDispatcher - Dispatcher 생성
func NewDispatcher(store database.Store, opts Options) *Dispatcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{
		store:        store,
		adminWebhook: opts.AdminWebhook,
		teamWebhook:  opts.TeamWebhook,
		httpClient:   &http.Client{Timeout: timeout},
		email:        opts.Email,
	}
}

// Recipients - profiles 에서 관리자 / 팀 분리
func (d *Dispatcher) Recipients(ctx context.Context) (admins, team []model.Profile, err error) {
	profiles, err := d.store.ListProfiles(ctx)
	if err != nil {
		return nil, nil, err
	}
	admins, team = SplitRecipients(profiles)
	return admins, team, nil
}

// Admins - 관리자 목록
func (d *Dispatcher) Admins(ctx context.Context) ([]model.Profile, error) {
	admins, _, err := d.Recipients(ctx)
	return admins, err
}

// NotifyAdminsPending - 승인 대기 알림 (수신자 조회 포함)
func (d *Dispatcher) NotifyAdminsPending(ctx context.Context, evt AdminPending) error {
	admins, err := d.Admins(ctx)
	if err != nil {
		logNotify.WithError(err).Warn("⚠️ Failed to resolve admin recipients")
		return apperr.Wrap(apperr.KindNotificationDispatch, "notify.NotifyAdminsPending", err)
	}
	return d.SendAdminPending(ctx, admins, evt)
}

// SendAdminPending - 이미 조회된 관리자 목록으로 승인 대기 알림
func (d *Dispatcher) SendAdminPending(ctx context.Context, admins []model.Profile, evt AdminPending) error {
	err := d.call(ctx, "admin_pending", d.adminWebhook, AdminPendingParams(admins, evt))

	if d.email != nil {
		subject, body := adminPendingEmail(evt)
		if mailErr := d.email.Send(emailsOf(admins), subject, body); mailErr != nil {
			logNotify.WithError(mailErr).WithField("scriptId", evt.ScriptID).Warn("⚠️ Admin email failed")
		}
	}

	if err == nil {
		logNotify.WithField("scriptId", evt.ScriptID).WithField("reminderCount", evt.ReminderCount).
			Infof("📨 Admin pending notification sent to %d admins", len(admins))
	}
	return err
}

// NotifyTeamStatus - 승인/반려 결과 팀 알림
func (d *Dispatcher) NotifyTeamStatus(ctx context.Context, evt TeamStatus) error {
	_, team, err := d.Recipients(ctx)
	if err != nil {
		logNotify.WithError(err).Warn("⚠️ Failed to resolve team recipients")
		return apperr.Wrap(apperr.KindNotificationDispatch, "notify.NotifyTeamStatus", err)
	}

	err = d.call(ctx, "team_status", d.teamWebhook, TeamStatusParams(team, evt))

	if d.email != nil {
		subject, body := teamStatusEmail(evt)
		if mailErr := d.email.Send(emailsOf(team), subject, body); mailErr != nil {
			logNotify.WithError(mailErr).WithField("scriptId", evt.ScriptID).Warn("⚠️ Team email failed")
		}
	}

	if err == nil {
		logNotify.WithField("scriptId", evt.ScriptID).Infof("📨 Team notified: %s", evt.Status)
	}
	return err
}

// call - webhook GET (non-2xx / 네트워크 오류 → NotificationDispatchError)
func (d *Dispatcher) call(ctx context.Context, kind, endpoint string, params url.Values) error {
	if endpoint == "" {
		logNotify.Debugf("%s webhook not configured, skipping", kind)
		return nil
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return d.fail(kind, fmt.Errorf("invalid webhook url: %w", err))
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return d.fail(kind, fmt.Errorf("failed to create request: %w", err))
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return d.fail(kind, fmt.Errorf("failed to call webhook: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return d.fail(kind, fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(body)))
	}
	return nil
}

func (d *Dispatcher) fail(kind string, err error) error {
	logNotify.WithError(err).WithField("kind", kind).Warn("⚠️ Notification dispatch failed")
	return apperr.Wrap(apperr.KindNotificationDispatch, "notify."+kind, err)
}

var (
	_ Notifier      = (*Dispatcher)(nil)
	_ BatchNotifier = (*Dispatcher)(nil)
)
