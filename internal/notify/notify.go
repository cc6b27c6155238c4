// Package notify отправляет уведомления о заявках: e-mail через SendGrid,
// сообщения в Telegram или запись в лог.
package notify

import "context"

// Message уведомление; To зависит от канала: e-mail или chat id
type Message struct {
	Subject string
	Body    string
	To      string
	ReplyTo string
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}
