package notify

import (
	"fmt"
	"html"

	"gopkg.in/gomail.v2"
)

// EmailChannel - SMTP 이메일 채널 (SMTP_HOST 설정 시에만 사용)
type EmailChannel struct {
	dialer *gomail.Dialer
	from   string
}

// NewEmailChannel - EmailChannel 생성
func NewEmailChannel(host string, port int, username, password, from string) *EmailChannel {
	return &EmailChannel{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

// Send - 수신자 전원에게 한 통씩 발송 (수신자 없으면 no-op)
func (e *EmailChannel) Send(to []string, subject, body string) error {
	if len(to) == 0 {
		return nil
	}

	msgs := make([]*gomail.Message, 0, len(to))
	for _, rcpt := range to {
		msg := gomail.NewMessage()
		msg.SetHeader("From", e.from)
		msg.SetHeader("To", rcpt)
		msg.SetHeader("Subject", subject)
		msg.SetBody("text/html", body)
		msgs = append(msgs, msg)
	}

	return e.dialer.DialAndSend(msgs...)
}

func adminPendingEmail(evt AdminPending) (string, string) {
	subject := fmt.Sprintf("[%s] Script pending approval: %s", evt.Influencer, evt.Topic)
	if evt.ReminderCount > 0 {
		subject = fmt.Sprintf("[%s] Reminder #%d - script pending approval: %s", evt.Influencer, evt.ReminderCount, evt.Topic)
	}
	body := fmt.Sprintf(
		"<p>A script for <b>%s</b> is waiting for review.</p><p>Topic: %s<br>Scheduled: %s<br>Script ID: %s</p>",
		html.EscapeString(evt.Influencer),
		html.EscapeString(evt.Topic),
		html.EscapeString(evt.ScheduledDate),
		html.EscapeString(evt.ScriptID),
	)
	return subject, body
}

func teamStatusEmail(evt TeamStatus) (string, string) {
	subject := fmt.Sprintf("[%s] Script %s", evt.Influencer, evt.Status)
	body := fmt.Sprintf(
		"<p>Script %s was <b>%s</b> by %s.</p><p>Remarks: %s</p>",
		html.EscapeString(evt.ScriptID),
		html.EscapeString(evt.Status),
		html.EscapeString(evt.ApprovedBy),
		html.EscapeString(evt.Remarks),
	)
	return subject, body
}
