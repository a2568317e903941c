package mail

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/gympoint/academy-hub/internal/domain/notification"
)

const (
	// DefaultSendgridHost is the public SendGrid API.
	DefaultSendgridHost = "https://api.sendgrid.com"

	sendgridEndpoint = "/v3/mail/send"
)

// SendgridConfig configures SendgridTransport.
type SendgridConfig struct {
	APIKey    string
	Host      string
	FromName  string
	FromEmail string
}

// SendgridTransport delivers mails through the SendGrid v3 API.
type SendgridTransport struct {
	key      string
	host     string
	from     *sgmail.Email
	renderer *Renderer
	log      *zap.Logger
}

var _ notification.Mailer = (*SendgridTransport)(nil)

// NewSendgridTransport creates a SendGrid transport.
func NewSendgridTransport(cfg SendgridConfig, renderer *Renderer, log *zap.Logger) (*SendgridTransport, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("mail: sendgrid API key is required")
	}
	if cfg.Host == "" {
		cfg.Host = DefaultSendgridHost
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &SendgridTransport{
		key:      cfg.APIKey,
		host:     cfg.Host,
		from:     sgmail.NewEmail(cfg.FromName, cfg.FromEmail),
		renderer: renderer,
		log:      log.Named("sendgrid"),
	}, nil
}

// Send implements notification.Mailer. Rate limiting and server errors are
// returned as retryable; other rejections are permanent.
func (t *SendgridTransport) Send(ctx context.Context, m notification.Mail) error {
	body, err := t.renderer.Render(m.Template, m.Context)
	if err != nil {
		return notification.Permanent(err)
	}

	req := sendgrid.GetRequest(t.key, sendgridEndpoint, t.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(t.prepare(m, body))

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid: request failed: %w", err)
	}

	switch {
	case res.StatusCode < http.StatusBadRequest:
		t.log.Debug("mail accepted",
			zap.String("to", m.To.Email),
			zap.String("template", m.Template),
			zap.Int("status", res.StatusCode),
		)
		return nil
	case res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("sendgrid: status %d: %s", res.StatusCode, res.Body)
	default:
		return notification.Permanent(fmt.Errorf("sendgrid: rejected with status %d: %s", res.StatusCode, res.Body))
	}
}

func (t *SendgridTransport) prepare(m notification.Mail, body Rendered) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = m.Subject
	p.AddTos(sgmail.NewEmail(m.To.Name, m.To.Email))

	msg := sgmail.NewV3Mail()
	msg.SetFrom(t.from)
	msg.AddPersonalizations(p)

	if body.Text != "" {
		msg.AddContent(sgmail.NewContent("text/plain", body.Text))
	}
	if body.HTML != "" {
		msg.AddContent(sgmail.NewContent("text/html", body.HTML))
	}
	return msg
}
