package mailer

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/boutiqueapp/boutique/config"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

var ErrMailDisabled = errors.New("mail delivery is disabled")

const bulkWorkers = 8

// Mailer sends HTML mail over SMTP.
type Mailer struct {
	cfg  config.MailConfig
	send func(*gomail.Message) error
}

func New(cfg config.MailConfig) *Mailer {
	m := &Mailer{cfg: cfg}
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	m.send = func(msg *gomail.Message) error {
		return dialer.DialAndSend(msg)
	}
	return m
}

func (m *Mailer) Enabled() bool {
	return m != nil && m.cfg.Enabled && m.cfg.Host != ""
}

func (m *Mailer) newMessage(to, subject, html string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)
	return msg
}

// Send delivers a single message.
func (m *Mailer) Send(to, subject, html string) error {
	if !m.Enabled() {
		return ErrMailDisabled
	}
	if err := m.send(m.newMessage(to, subject, html)); err != nil {
		return errors.Wrapf(err, "send mail to %s", to)
	}
	return nil
}

// SendBulk delivers the same message to every recipient through a worker pool.
func (m *Mailer) SendBulk(ctx context.Context, recipients []string, subject, html string) (sent, failed int, err error) {
	if !m.Enabled() {
		return 0, 0, ErrMailDisabled
	}
	pool, err := ants.NewPool(bulkWorkers)
	if err != nil {
		return 0, 0, errors.Wrap(err, "create mail pool")
	}
	defer pool.Release()

	var okCount, failCount int64
	var wg sync.WaitGroup
	for _, to := range recipients {
		if ctx.Err() != nil {
			atomic.AddInt64(&failCount, 1)
			continue
		}
		to := to
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if err := m.send(m.newMessage(to, subject, html)); err != nil {
				atomic.AddInt64(&failCount, 1)
				zap.L().Warn("newsletter delivery failed",
					zap.String("namespace", "mailer"),
					zap.String("to", to),
					zap.Error(err))
				return
			}
			atomic.AddInt64(&okCount, 1)
		})
		if submitErr != nil {
			wg.Done()
			atomic.AddInt64(&failCount, 1)
		}
	}
	wg.Wait()
	return int(okCount), int(failCount), ctx.Err()
}
