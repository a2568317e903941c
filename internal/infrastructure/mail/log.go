package mail

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/gympoint/academy-hub/internal/domain/notification"
)

// LogTransport renders mails and writes them to the logger instead of
// sending them. It backs MAIL_DRIVER=log in development.
type LogTransport struct {
	from     notification.Address
	renderer *Renderer
	log      *zap.Logger

	mu   sync.Mutex
	sent []SentMail
}

// SentMail is a mail accepted by LogTransport.
type SentMail struct {
	Mail     notification.Mail
	Rendered Rendered
}

var _ notification.Mailer = (*LogTransport)(nil)

// NewLogTransport creates a LogTransport.
func NewLogTransport(from notification.Address, renderer *Renderer, log *zap.Logger) *LogTransport {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogTransport{from: from, renderer: renderer, log: log.Named("mail")}
}

// Send implements notification.Mailer.
func (t *LogTransport) Send(ctx context.Context, m notification.Mail) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := t.renderer.Render(m.Template, m.Context)
	if err != nil {
		return notification.Permanent(err)
	}

	t.mu.Lock()
	t.sent = append(t.sent, SentMail{Mail: m, Rendered: body})
	t.mu.Unlock()

	t.log.Info("mail",
		zap.String("from", t.from.String()),
		zap.String("to", m.To.String()),
		zap.String("subject", m.Subject),
		zap.String("template", m.Template),
		zap.String("body", body.Text),
	)
	return nil
}

// Sent returns the mails accepted so far.
func (t *LogTransport) Sent() []SentMail {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]SentMail, len(t.sent))
	copy(out, t.sent)
	return out
}
