package email

import (
	"context"
	"fmt"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendgridSendPath = "/v3/mail/send"

// sendgridClient is the Sender backed by the SendGrid v3 mail API. With a
// TemplateID it sends a dynamic template; otherwise the locally rendered
// text and HTML bodies.
type sendgridClient struct {
	apiKey  string
	host    string
	cfg     Config
	timeout time.Duration
}

// NewSendGridClient returns a Sender that delivers email via SendGrid. An
// empty host selects the public API.
func NewSendGridClient(apiKey, host string, cfg Config, timeout time.Duration) Sender {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &sendgridClient{
		apiKey:  apiKey,
		host:    host,
		cfg:     cfg,
		timeout: timeout,
	}
}

func (c *sendgridClient) SendAuditResults(ctx context.Context, p AuditResultsParams) Result {
	msg, err := c.buildMessage(p)
	if err != nil {
		return failed(err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// sendgrid.Client stores the body on itself, so each send gets its own.
	req := sendgrid.GetRequest(c.apiKey, sendgridSendPath, c.host)
	req.Method = "POST"
	client := &sendgrid.Client{Request: req}

	resp, err := client.SendWithContext(ctx, msg)
	if err != nil {
		return failed(fmt.Errorf("email: sendgrid request: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failed(fmt.Errorf("email: sendgrid status %d: %.200s", resp.StatusCode, resp.Body))
	}

	id := DefaultMessageID
	if ids := resp.Headers["X-Message-Id"]; len(ids) > 0 && ids[0] != "" {
		id = ids[0]
	}
	return Result{Success: true, MessageID: id}
}

func (c *sendgridClient) buildMessage(p AuditResultsParams) (*mail.SGMailV3, error) {
	from := mail.NewEmail(c.cfg.FromName, c.cfg.FromAddr)
	to := mail.NewEmail(p.CompanyName, p.To)

	msg := mail.NewV3Mail()
	msg.SetFrom(from)

	pers := mail.NewPersonalization()
	pers.AddTos(to)

	if c.cfg.TemplateID != "" {
		msg.SetTemplateID(c.cfg.TemplateID)
		for k, v := range TemplateData(p, c.cfg.CTAURL) {
			pers.SetDynamicTemplateData(k, v)
		}
		msg.AddPersonalizations(pers)
		return msg, nil
	}

	subject, text, html, err := Render(p, c.cfg.CTAURL)
	if err != nil {
		return nil, err
	}
	msg.Subject = subject
	msg.AddPersonalizations(pers)
	msg.AddContent(
		mail.NewContent("text/plain", text),
		mail.NewContent("text/html", html),
	)
	return msg, nil
}
