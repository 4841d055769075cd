package crisis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/fred-backend/internal/jobs/runtime"
	"github.com/yungbote/fred-backend/internal/platform/logger"
	"github.com/yungbote/fred-backend/internal/platform/sendgrid"
)

type AlerterDeps struct {
	Log *logger.Logger
	// Mail is nil when SendGrid is not configured.
	Mail       sendgrid.Client
	Recipients []string
}

// Alerter e-mails on-call operators about high-severity flags.
type Alerter struct {
	log        *logger.Logger
	mail       sendgrid.Client
	recipients []sendgrid.EmailAddress
}

func NewAlerter(deps AlerterDeps) *Alerter {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	var to []sendgrid.EmailAddress
	for _, r := range deps.Recipients {
		if r = strings.TrimSpace(r); r != "" {
			to = append(to, sendgrid.EmailAddress{Email: r})
		}
	}
	return &Alerter{log: log.With("service", "CrisisAlerter"), mail: deps.Mail, recipients: to}
}

func (a *Alerter) Enabled() bool { return a.mail != nil && len(a.recipients) > 0 }

func (a *Alerter) Type() string { return TaskAlert }

func (a *Alerter) Run(ctx context.Context, task runtime.Task) error {
	p, ok := task.Payload.(AlertTask)
	if !ok {
		return fmt.Errorf("crisis alert: unexpected payload %T", task.Payload)
	}
	if !a.Enabled() {
		a.log.Debug("crisis alert skipped, mail not configured", "flag_id", p.FlagID.String())
		return nil
	}
	res, err := a.mail.Send(ctx, sendgrid.SendEmailRequest{
		To:         a.recipients,
		Subject:    fmt.Sprintf("[FRED] %s severity crisis flag", p.Severity),
		Text:       alertBody(p),
		Categories: []string{"crisis-alert"},
	})
	if err != nil {
		return fmt.Errorf("crisis alert %s: %w", p.FlagID, err)
	}
	a.log.Info("crisis alert sent", "flag_id", p.FlagID.String(), "message_id", res.MessageID)
	return nil
}

func alertBody(p AlertTask) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A crisis flag needs review.\n\n")
	fmt.Fprintf(&b, "Flag: %s\n", p.FlagID)
	fmt.Fprintf(&b, "Severity: %s\n", p.Severity)
	fmt.Fprintf(&b, "Raised: %s\n", p.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Indicators:\n")
	for _, ind := range p.Indicators {
		fmt.Fprintf(&b, "  - %s\n", ind)
	}
	b.WriteString("\nOpen the operator queue to handle it.\n")
	return b.String()
}
