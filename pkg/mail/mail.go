package mail

import (
	"firestocks/conf"

	"github.com/go-mail/mail"
)

// SMTP发信，预测到价/止损的站外通知用

type Sender interface {
	Send(to, subject, htmlBody string) error
}

type smtpSender struct {
	dialer *mail.Dialer
	from   string
}

func NewSender(cfg conf.EmailConfig) Sender {
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &smtpSender{
		dialer: d,
		from:   cfg.Sender,
	}
}

func (s *smtpSender) Send(to, subject, htmlBody string) error {
	m := mail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)
	return s.dialer.DialAndSend(m)
}
