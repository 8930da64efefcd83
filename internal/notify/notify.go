package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/betacomagency/shopee-ads-scheduler/internal/domain"
	"github.com/resend/resend-go/v2"
)

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender logs alerts instead of sending them — used in ENV=local.
type LogSender struct {
	logger *slog.Logger
}

func (s *LogSender) Send(_ context.Context, to, subject, body string) error {
	s.logger.Info("run alert (local dev)", "to", to, "subject", subject, "body", body)
	return nil
}

// ResendSender sends alerts via the Resend API — used in staging/production.
type ResendSender struct {
	client *resend.Client
	from   string
}

func (s *ResendSender) Send(ctx context.Context, to, subject, body string) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    body,
	}
	_, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// NewSender returns a LogSender for ENV=local, ResendSender otherwise.
func NewSender(env, apiKey, from string, logger *slog.Logger) Sender {
	if env == "local" {
		return &LogSender{logger: logger}
	}
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

// RunAlerter emails an operator when a run finishes above the failure
// threshold. Satisfies the orchestrator's Notifier.
type RunAlerter struct {
	sender Sender
	to     string
	logger *slog.Logger
}

func NewRunAlerter(sender Sender, to string, logger *slog.Logger) *RunAlerter {
	return &RunAlerter{sender: sender, to: to, logger: logger.With("component", "alerter")}
}

func (a *RunAlerter) RunCompleted(ctx context.Context, summary domain.RunSummary) {
	if a.to == "" {
		return
	}

	subject := fmt.Sprintf("Ads budget run %s: %d of %d schedules failed",
		summary.RunID, summary.Failed, summary.Processed)
	body := fmt.Sprintf(
		"<p>Run <b>%s</b> finished in %dms.</p><p>Processed: %d<br>Succeeded: %d<br>Failed: %d<br>Skipped: %d</p>",
		summary.RunID, summary.DurationMS,
		summary.Processed, summary.Succeeded, summary.Failed, summary.Skipped,
	)

	if err := a.sender.Send(ctx, a.to, subject, body); err != nil {
		a.logger.Error("send run alert", "run_id", summary.RunID, "error", err)
	}
}
