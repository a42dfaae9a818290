package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"blazeoffice/metrics"
	"blazeoffice/models"
)

// SendOutcome is the per-recipient line of a bulk send.
type SendOutcome struct {
	Email       string `json:"email"`
	TemplateKey string `json:"template_key"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
}

// BulkResult tallies a bulk send. Failures are counted and skipped.
type BulkResult struct {
	Total    int           `json:"total"`
	Sent     int           `json:"sent"`
	Failed   int           `json:"failed"`
	Skipped  int           `json:"skipped,omitempty"`
	Failures []SendOutcome `json:"failures,omitempty"`
}

func (b *BulkResult) add(o SendOutcome) {
	b.Total++
	if o.Status == models.SendSent {
		b.Sent++
		return
	}
	b.Failed++
	b.Failures = append(b.Failures, o)
}

// Dispatcher renders, paces, delivers and logs outgoing email.
type Dispatcher struct {
	mailer    Mailer
	templates *TemplateCatalog
	logs      map[string]EmailLogStore
	limiter   *rate.Limiter
	log       *zap.Logger
}

// NewDispatcher paces sends with the limiter; a nil limiter means no pacing.
func NewDispatcher(mailer Mailer, templates *TemplateCatalog, logs map[string]EmailLogStore, limiter *rate.Limiter, log *zap.Logger) *Dispatcher {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Dispatcher{mailer: mailer, templates: templates, logs: logs, limiter: limiter, log: log}
}

func (d *Dispatcher) Templates() *TemplateCatalog {
	return d.templates
}

// SentSet loads the pairs already delivered to an audience. An audience
// without a send log has an empty set.
func (d *Dispatcher) SentSet(ctx context.Context, audience string) (SentSet, error) {
	sent := SentSet{}
	store, ok := d.logs[audience]
	if !ok {
		return sent, nil
	}
	pairs, err := store.SentPairs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s send log: %w", audience, err)
	}
	for _, p := range pairs {
		sent.Add(p.Email, p.TemplateKey)
	}
	return sent, nil
}

// SendTemplate delivers one template and records the attempt in the
// audience's send log. The returned outcome is filled in either way.
func (d *Dispatcher) SendTemplate(ctx context.Context, audience, to, templateKey string, vars map[string]string) (SendOutcome, error) {
	outcome := SendOutcome{Email: to, TemplateKey: templateKey, Status: models.SendSent}

	rendered, err := d.templates.Render(templateKey, to, vars)
	if err == nil {
		err = d.deliver(ctx, Email{To: to, Subject: rendered.Subject, Text: rendered.Text, HTML: rendered.HTML})
	}
	if err != nil {
		outcome.Status = models.SendFailed
		outcome.Error = err.Error()
	}
	metrics.EmailsSent.WithLabelValues(templateKey, outcome.Status).Inc()

	if store, ok := d.logs[audience]; ok {
		entry := &models.EmailLog{Email: to, TemplateKey: templateKey, Status: outcome.Status}
		if outcome.Error != "" {
			entry.Error = &outcome.Error
		}
		if logErr := store.Record(ctx, entry); logErr != nil {
			d.log.Error("Failed to record email log",
				zap.Error(logErr),
				zap.String("email", to),
				zap.String("template", templateKey))
		}
	}

	if err != nil {
		d.log.Warn("Email send failed",
			zap.Error(err),
			zap.String("email", to),
			zap.String("template", templateKey))
		return outcome, err
	}
	return outcome, nil
}

// SendRaw delivers an ad-hoc message (admin broadcasts). It is not logged
// per template.
func (d *Dispatcher) SendRaw(ctx context.Context, to, subject, text, html string) (SendOutcome, error) {
	outcome := SendOutcome{Email: to, TemplateKey: "broadcast", Status: models.SendSent}
	if err := d.deliver(ctx, Email{To: to, Subject: subject, Text: text, HTML: html}); err != nil {
		outcome.Status = models.SendFailed
		outcome.Error = err.Error()
		metrics.EmailsSent.WithLabelValues("broadcast", models.SendFailed).Inc()
		return outcome, err
	}
	metrics.EmailsSent.WithLabelValues("broadcast", models.SendSent).Inc()
	return outcome, nil
}

func (d *Dispatcher) deliver(ctx context.Context, e Email) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("send pacing: %w", err)
	}
	return d.mailer.Send(ctx, e)
}
