package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"blazeoffice/metrics"
	"blazeoffice/models"
)

var (
	ErrRunInProgress   = errors.New("campaign run already in progress")
	ErrUnknownAudience = errors.New("unknown campaign audience")
)

type RunResult struct {
	Audience   string        `json:"audience"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Recipients int           `json:"recipients"`
	Due        int           `json:"due"`
	Sent       int           `json:"sent"`
	Failed     int           `json:"failed"`
	Sends      []SendOutcome `json:"sends"`
}

// CampaignRunner executes one pass of a drip sequence: select who is due,
// send, record. Runs for the same audience never overlap in this process.
type CampaignRunner struct {
	campaigns       CampaignStore
	signups         SignupStore
	commitments     CommitmentStore
	dispatcher      *Dispatcher
	siteURL         string
	maxPerRecipient int
	now             func() time.Time
	log             *zap.Logger

	locks map[string]*sync.Mutex
}

func NewCampaignRunner(
	campaigns CampaignStore,
	signups SignupStore,
	commitments CommitmentStore,
	dispatcher *Dispatcher,
	siteURL string,
	maxPerRecipient int,
	log *zap.Logger,
) *CampaignRunner {
	return &CampaignRunner{
		campaigns:       campaigns,
		signups:         signups,
		commitments:     commitments,
		dispatcher:      dispatcher,
		siteURL:         strings.TrimRight(siteURL, "/"),
		maxPerRecipient: maxPerRecipient,
		now:             time.Now,
		log:             log,
		locks: map[string]*sync.Mutex{
			models.AudienceWaitlist:   {},
			models.AudienceCommitment: {},
		},
	}
}

func (r *CampaignRunner) Run(ctx context.Context, audience string) (*RunResult, error) {
	lock, ok := r.locks[audience]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAudience, audience)
	}
	if !lock.TryLock() {
		metrics.CampaignRuns.WithLabelValues(audience, "skipped").Inc()
		return nil, ErrRunInProgress
	}
	defer lock.Unlock()

	result, err := r.run(ctx, audience)
	if err != nil {
		metrics.CampaignRuns.WithLabelValues(audience, "error").Inc()
		return nil, err
	}
	metrics.CampaignRuns.WithLabelValues(audience, "ok").Inc()
	return result, nil
}

func (r *CampaignRunner) run(ctx context.Context, audience string) (*RunResult, error) {
	result := &RunResult{Audience: audience, StartedAt: r.now(), Sends: []SendOutcome{}}

	steps, err := r.campaigns.Active(ctx, audience)
	if err != nil {
		return nil, fmt.Errorf("load campaign steps: %w", err)
	}

	set, err := r.recipients(ctx, audience)
	if err != nil {
		return nil, err
	}
	recipients := set.list
	result.Recipients = len(recipients)

	sent, err := r.dispatcher.SentSet(ctx, audience)
	if err != nil {
		return nil, err
	}

	due := SelectDue(r.now(), recipients, steps, sent, r.maxPerRecipient)
	result.Due = len(due)

	r.log.Info("Campaign run started",
		zap.String("audience", audience),
		zap.Int("steps", len(steps)),
		zap.Int("recipients", len(recipients)),
		zap.Int("due", len(due)))

	for _, d := range due {
		if err := ctx.Err(); err != nil {
			r.log.Warn("Campaign run cancelled", zap.String("audience", audience), zap.Error(err))
			break
		}
		key := strings.ToLower(d.Email)
		outcome, err := r.dispatcher.SendTemplate(ctx, audience, d.Email, d.TemplateKey, set.vars[key])
		result.Sends = append(result.Sends, outcome)
		if err != nil {
			result.Failed++
			continue
		}
		sent.Add(d.Email, d.TemplateKey)
		result.Sent++
		if audience == models.AudienceCommitment && d.TemplateKey == templateReminder {
			r.flagReminded(ctx, set.commitmentIDs[key])
		}
	}

	result.FinishedAt = r.now()
	r.log.Info("Campaign run finished",
		zap.String("audience", audience),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed))
	return result, nil
}

// recipientSet is one audience's recipients with their template variables
// and, for commitments, the rows behind each address.
type recipientSet struct {
	list          []Recipient
	vars          map[string]map[string]string
	commitmentIDs map[string][]int64
}

func (r *CampaignRunner) recipients(ctx context.Context, audience string) (*recipientSet, error) {
	set := &recipientSet{vars: map[string]map[string]string{}, commitmentIDs: map[string][]int64{}}

	if audience == models.AudienceWaitlist {
		signups, err := r.signups.Active(ctx)
		if err != nil {
			return nil, fmt.Errorf("load signups: %w", err)
		}
		for _, s := range signups {
			set.vars[strings.ToLower(s.Email)] = SignupVars(r.siteURL, s)
		}
		set.list = SignupRecipients(signups)
		return set, nil
	}

	commitments, err := r.commitments.Pending(ctx)
	if err != nil {
		return nil, fmt.Errorf("load commitments: %w", err)
	}
	for _, c := range commitments {
		key := strings.ToLower(c.Email)
		if _, ok := set.vars[key]; !ok {
			set.vars[key] = CommitmentVars(c, "")
		}
		set.commitmentIDs[key] = append(set.commitmentIDs[key], c.ID)
	}
	set.list = CommitmentRecipients(commitments)
	return set, nil
}

// flagReminded marks commitments whose holder got the reminder template so
// the bulk reminder leaves them alone.
func (r *CampaignRunner) flagReminded(ctx context.Context, ids []int64) {
	for _, id := range ids {
		if err := r.commitments.MarkReminderSent(ctx, id); err != nil {
			r.log.Error("Failed to flag reminder", zap.Int64("commitment_id", id), zap.Error(err))
		}
	}
}

// SignupVars are the template variables for a waitlist email.
func SignupVars(siteURL string, s models.Signup) map[string]string {
	return map[string]string{
		"referral_code":  s.ReferralCode,
		"referral_link":  ReferralLink(siteURL, s.ReferralCode),
		"referral_count": strconv.Itoa(s.ReferralCount),
	}
}

// CommitmentVars are the template variables for a commitment email.
func CommitmentVars(c models.Commitment, tierName string) map[string]string {
	vars := map[string]string{
		"amount": strconv.FormatFloat(c.IntendedAmountUSD, 'f', 2, 64),
		"tokens": FormatTokens(c.EstimatedTokens),
		"tier":   strconv.Itoa(c.Tier),
	}
	if tierName != "" {
		vars["tier_name"] = tierName
	} else {
		vars["tier_name"] = "Tier " + strconv.Itoa(c.Tier)
	}
	return vars
}

func ReferralLink(siteURL, code string) string {
	return strings.TrimRight(siteURL, "/") + "/?ref=" + code
}

// FormatTokens rounds to whole tokens with thousands separators.
func FormatTokens(v float64) string {
	s := strconv.FormatFloat(v, 'f', 0, 64)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, ch := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(ch)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
