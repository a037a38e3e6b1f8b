// Package notify delivers candidate notifications by email.
package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	"strings"

	mail "github.com/go-mail/mail/v2"

	"github.com/jonathan/hiring-pipeline/internal/logging"
	"github.com/jonathan/hiring-pipeline/internal/pipeline"
	"github.com/jonathan/hiring-pipeline/internal/types"
)

//go:embed templates/*.html
var templateFiles embed.FS

const defaultSMTPPort = 587

// SMTPConfig holds the outgoing mail server settings.
type SMTPConfig struct {
	Host          string
	Port          int
	User          string
	Pass          string
	From          string // e.g. "Hiring Team <no-reply@example.com>"
	SkipTLSVerify bool
}

// Configured reports whether enough is set to send mail.
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.From != ""
}

// Sender sends composed messages. *mail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*mail.Message) error
}

// Mailer implements pipeline.Notifier over SMTP.
type Mailer struct {
	from      string
	sender    Sender
	templates map[types.NotificationType]*template.Template
	log       *logging.Logger
}

var _ pipeline.Notifier = (*Mailer)(nil)

// NewMailer creates a Mailer that dials the configured SMTP server with
// mandatory STARTTLS.
func NewMailer(cfg SMTPConfig, log *logging.Logger) (*Mailer, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("smtp not configured (smtp_host/smtp_from)")
	}
	port := cfg.Port
	if port == 0 {
		port = defaultSMTPPort
	}

	d := mail.NewDialer(cfg.Host, port, cfg.User, cfg.Pass)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: cfg.SkipTLSVerify, //nolint:gosec // opt-in for local relays
	}

	return NewMailerWithSender(cfg.From, d, log)
}

// NewMailerWithSender creates a Mailer that hands messages to sender.
func NewMailerWithSender(from string, sender Sender, log *logging.Logger) (*Mailer, error) {
	if log == nil {
		log = logging.NewNop()
	}
	tmpls, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	return &Mailer{
		from:      from,
		sender:    sender,
		templates: tmpls,
		log:       log.With("component", "mailer"),
	}, nil
}

// Notify renders and sends the notification. The recipient and subject come
// from the recipient_email and subject template params.
func (m *Mailer) Notify(ctx context.Context, req pipeline.NotificationRequest) pipeline.NotificationResponse {
	if err := ctx.Err(); err != nil {
		return pipeline.NotificationResponse{Error: err.Error()}
	}

	to := strings.TrimSpace(req.TemplateParams["recipient_email"])
	if to == "" {
		return pipeline.NotificationResponse{Error: "recipient_email is required"}
	}
	subject := req.TemplateParams["subject"]
	if subject == "" {
		subject = pipeline.NotificationSubject(req.NotificationType)
	}

	body, err := m.Render(req.NotificationType, req.TemplateParams)
	if err != nil {
		return pipeline.NotificationResponse{Error: err.Error()}
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := m.sender.DialAndSend(msg); err != nil {
		m.log.Warn("smtp send failed", "application_id", req.ApplicationID, "type", req.NotificationType, "error", err)
		return pipeline.NotificationResponse{Error: fmt.Sprintf("failed to send mail: %v", err)}
	}

	m.log.Info("notification sent", "application_id", req.ApplicationID, "type", req.NotificationType)
	return pipeline.NotificationResponse{Success: true}
}

// Render executes the HTML template for ntype.
func (m *Mailer) Render(ntype types.NotificationType, params map[string]string) (string, error) {
	tmpl, ok := m.templates[ntype]
	if !ok {
		return "", fmt.Errorf("no template for notification type %q", ntype)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", params); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", ntype, err)
	}
	return buf.String(), nil
}

var notificationTypes = []types.NotificationType{
	types.NotificationBCQInvitation,
	types.NotificationInterviewScheduled,
	types.NotificationInterviewRescheduled,
	types.NotificationInterviewCancelled,
	types.NotificationDecisionHired,
	types.NotificationDecisionRejected,
}

func loadTemplates() (map[types.NotificationType]*template.Template, error) {
	out := make(map[types.NotificationType]*template.Template, len(notificationTypes))
	for _, nt := range notificationTypes {
		tmpl, err := template.ParseFS(templateFiles, "templates/layout.html", "templates/"+string(nt)+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", nt, err)
		}
		out[nt] = tmpl
	}
	return out, nil
}

// LogNotifier records notifications in the log without delivering them. It is
// used when no SMTP server is configured.
type LogNotifier struct {
	log *logging.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log *logging.Logger) *LogNotifier {
	if log == nil {
		log = logging.NewNop()
	}
	return &LogNotifier{log: log.With("component", "notifier")}
}

// NotDeliveredMessage is the delivery error LogNotifier reports for every request.
const NotDeliveredMessage = "not delivered: SMTP not configured"

// Notify logs the request and reports it as undelivered, so the notification
// log records a failed attempt.
func (n *LogNotifier) Notify(_ context.Context, req pipeline.NotificationRequest) pipeline.NotificationResponse {
	n.log.Info("notification (not delivered)",
		"application_id", req.ApplicationID,
		"type", req.NotificationType,
		"recipient", req.TemplateParams["recipient_email"],
	)
	return pipeline.NotificationResponse{Error: NotDeliveredMessage}
}
