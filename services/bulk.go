package services

import (
	"context"
	"fmt"
	htmltemplate "html/template"
	"strings"
	"sync"

	"go.uber.org/zap"

	"blazeoffice/models"
)

const (
	templateReminder = "commitment_reminder"
	templateApology  = "commitment_apology"
)

type BroadcastRequest struct {
	Audience    string
	To          []string
	Subject     string
	Body        string
	TemplateKey string
}

// BulkMailer runs the admin-triggered mailings. Only one bulk send runs
// at a time; a single failed recipient never aborts the batch.
type BulkMailer struct {
	signups     SignupStore
	commitments CommitmentStore
	dispatcher  *Dispatcher
	siteURL     string
	log         *zap.Logger

	mu sync.Mutex
}

func NewBulkMailer(signups SignupStore, commitments CommitmentStore, dispatcher *Dispatcher, siteURL string, log *zap.Logger) *BulkMailer {
	return &BulkMailer{
		signups:     signups,
		commitments: commitments,
		dispatcher:  dispatcher,
		siteURL:     siteURL,
		log:         log,
	}
}

// commitmentGroup is every commitment held by one address.
type commitmentGroup struct {
	email string
	items []models.Commitment
}

func groupByEmail(rows []models.Commitment) []commitmentGroup {
	index := map[string]int{}
	var out []commitmentGroup
	for _, c := range rows {
		key := strings.ToLower(c.Email)
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, commitmentGroup{email: c.Email})
		}
		out[i].items = append(out[i].items, c)
	}
	return out
}

// totals sums a group so one email covers several commitments.
func (g commitmentGroup) totals() models.Commitment {
	sum := g.items[0]
	for _, c := range g.items[1:] {
		sum.IntendedAmountUSD += c.IntendedAmountUSD
		sum.EstimatedTokens += c.EstimatedTokens
	}
	return sum
}

// Reminder mails unconverted commitments that have not had a reminder,
// optionally restricted to emails, and flags them as reminded.
func (b *BulkMailer) Reminder(ctx context.Context, emails []string, templateKey string) (*BulkResult, error) {
	if templateKey == "" {
		templateKey = templateReminder
	}
	if !b.dispatcher.Templates().Has(templateKey) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, templateKey)
	}
	if !b.mu.TryLock() {
		return nil, ErrBulkInProgress
	}
	defer b.mu.Unlock()

	normalized := make([]string, 0, len(emails))
	for _, e := range emails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			normalized = append(normalized, e)
		}
	}
	rows, err := b.commitments.ForReminder(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("load commitments for reminder: %w", err)
	}
	sent, err := b.dispatcher.SentSet(ctx, models.AudienceCommitment)
	if err != nil {
		return nil, err
	}

	result := &BulkResult{}
	for _, g := range groupByEmail(rows) {
		if ctx.Err() != nil {
			break
		}
		// Already delivered by the drip or an earlier mailing.
		if sent.Has(g.email, templateKey) {
			result.Skipped++
			b.flagReminded(ctx, g)
			continue
		}
		outcome, err := b.dispatcher.SendTemplate(ctx, models.AudienceCommitment, g.email, templateKey, CommitmentVars(g.totals(), ""))
		result.add(outcome)
		if err != nil {
			continue
		}
		sent.Add(g.email, templateKey)
		b.flagReminded(ctx, g)
	}
	b.log.Info("Reminder mailing finished",
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped))
	return result, ctx.Err()
}

// Apology mails every commitment holder not yet apologised to.
func (b *BulkMailer) Apology(ctx context.Context) (*BulkResult, error) {
	if !b.mu.TryLock() {
		return nil, ErrBulkInProgress
	}
	defer b.mu.Unlock()

	rows, err := b.commitments.ForApology(ctx)
	if err != nil {
		return nil, fmt.Errorf("load commitments for apology: %w", err)
	}
	sent, err := b.dispatcher.SentSet(ctx, models.AudienceCommitment)
	if err != nil {
		return nil, err
	}

	result := &BulkResult{}
	for _, g := range groupByEmail(rows) {
		if ctx.Err() != nil {
			break
		}
		if sent.Has(g.email, templateApology) {
			result.Skipped++
			b.flagApologised(ctx, g)
			continue
		}
		outcome, err := b.dispatcher.SendTemplate(ctx, models.AudienceCommitment, g.email, templateApology, CommitmentVars(g.totals(), ""))
		result.add(outcome)
		if err != nil {
			continue
		}
		sent.Add(g.email, templateApology)
		b.flagApologised(ctx, g)
	}
	b.log.Info("Apology mailing finished",
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped))
	return result, ctx.Err()
}

func (b *BulkMailer) flagReminded(ctx context.Context, g commitmentGroup) {
	for _, c := range g.items {
		if err := b.commitments.MarkReminderSent(ctx, c.ID); err != nil {
			b.log.Error("Failed to flag reminder", zap.Int64("commitment_id", c.ID), zap.Error(err))
		}
	}
}

func (b *BulkMailer) flagApologised(ctx context.Context, g commitmentGroup) {
	for _, c := range g.items {
		if err := b.commitments.MarkApologySent(ctx, c.ID); err != nil {
			b.log.Error("Failed to flag apology", zap.Int64("commitment_id", c.ID), zap.Error(err))
		}
	}
}

type broadcastTarget struct {
	email string
	vars  map[string]string
}

// Broadcast sends either a catalog template or a free-form subject/body
// to an explicit list or to a whole audience.
func (b *BulkMailer) Broadcast(ctx context.Context, req BroadcastRequest) (*BulkResult, error) {
	if err := validateBroadcast(req, b.dispatcher.Templates()); err != nil {
		return nil, err
	}
	if !b.mu.TryLock() {
		return nil, ErrBulkInProgress
	}
	defer b.mu.Unlock()

	targets, err := b.targets(ctx, req)
	if err != nil {
		return nil, err
	}

	var html string
	if req.TemplateKey == "" {
		html = plainToHTML(req.Body)
	}

	result := &BulkResult{}
	for _, t := range targets {
		if ctx.Err() != nil {
			break
		}
		var outcome SendOutcome
		if req.TemplateKey != "" {
			// Explicit lists have no audience log.
			logAudience := req.Audience
			if len(req.To) > 0 {
				logAudience = ""
			}
			outcome, _ = b.dispatcher.SendTemplate(ctx, logAudience, t.email, req.TemplateKey, t.vars)
		} else {
			outcome, _ = b.dispatcher.SendRaw(ctx, t.email, req.Subject, req.Body, html)
		}
		result.add(outcome)
	}
	b.log.Info("Broadcast finished",
		zap.String("audience", req.Audience),
		zap.Int("recipients", len(targets)),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed))
	return result, ctx.Err()
}

func validateBroadcast(req BroadcastRequest, templates *TemplateCatalog) error {
	if len(req.To) == 0 && req.Audience != models.AudienceWaitlist && req.Audience != models.AudienceCommitment {
		return fmt.Errorf("%w: audience or recipients required", ErrInvalidInput)
	}
	if req.TemplateKey != "" {
		if !templates.Has(req.TemplateKey) {
			return fmt.Errorf("%w: %s", ErrUnknownTemplate, req.TemplateKey)
		}
		return nil
	}
	if strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.Body) == "" {
		return fmt.Errorf("%w: subject and body are required", ErrInvalidInput)
	}
	return nil
}

func (b *BulkMailer) targets(ctx context.Context, req BroadcastRequest) ([]broadcastTarget, error) {
	var out []broadcastTarget
	seen := map[string]bool{}
	add := func(email string, vars map[string]string) {
		key := strings.ToLower(email)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, broadcastTarget{email: email, vars: vars})
	}

	if len(req.To) > 0 {
		for _, raw := range req.To {
			email, err := NormalizeEmail(raw)
			if err != nil {
				b.log.Warn("Skipping invalid broadcast address", zap.String("email", raw))
				continue
			}
			add(email, nil)
		}
		return out, nil
	}

	switch req.Audience {
	case models.AudienceWaitlist:
		signups, err := b.signups.Active(ctx)
		if err != nil {
			return nil, fmt.Errorf("load signups: %w", err)
		}
		for _, s := range signups {
			add(s.Email, SignupVars(b.siteURL, s))
		}
	case models.AudienceCommitment:
		rows, err := b.commitments.Pending(ctx)
		if err != nil {
			return nil, fmt.Errorf("load commitments: %w", err)
		}
		for _, g := range groupByEmail(rows) {
			add(g.email, CommitmentVars(g.totals(), ""))
		}
	}
	return out, nil
}

// plainToHTML escapes a plain-text body and keeps its paragraphs.
func plainToHTML(body string) string {
	var b strings.Builder
	for _, para := range strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(htmltemplate.HTMLEscapeString(para), "\n", "<br>"))
		b.WriteString("</p>\n")
	}
	return b.String()
}
