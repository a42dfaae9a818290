package services

import (
	"sort"
	"strings"
	"time"

	"blazeoffice/models"
)

// Recipient is someone a drip sequence runs against, anchored at Since.
type Recipient struct {
	Email string
	Since time.Time
}

type SendKey struct {
	Email       string
	TemplateKey string
}

// SentSet holds the (email, template) pairs already delivered.
type SentSet map[SendKey]struct{}

func (s SentSet) Has(email, templateKey string) bool {
	_, ok := s[SendKey{Email: strings.ToLower(email), TemplateKey: templateKey}]
	return ok
}

func (s SentSet) Add(email, templateKey string) {
	s[SendKey{Email: strings.ToLower(email), TemplateKey: templateKey}] = struct{}{}
}

type DueSend struct {
	Email       string `json:"email"`
	TemplateKey string `json:"template_key"`
	Sequence    int    `json:"sequence"`
}

// IsDue reports whether the step's offset has elapsed for the recipient and
// the template has not been delivered to them yet.
func IsDue(now time.Time, r Recipient, step models.EmailCampaign, sent SentSet) bool {
	if now.Sub(r.Since) < step.Offset() {
		return false
	}
	return !sent.Has(r.Email, step.TemplateKey)
}

// SelectDue returns every due (recipient, step) pair, grouped by recipient in
// input order and by sequence within a recipient. maxPerRecipient > 0 keeps
// only the earliest that many steps per recipient.
func SelectDue(now time.Time, recipients []Recipient, steps []models.EmailCampaign, sent SentSet, maxPerRecipient int) []DueSend {
	ordered := make([]models.EmailCampaign, 0, len(steps))
	for _, s := range steps {
		if s.IsActive {
			ordered = append(ordered, s)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Sequence < ordered[j].Sequence })

	var due []DueSend
	seen := make(map[string]struct{}, len(recipients))
	for _, r := range recipients {
		key := strings.ToLower(r.Email)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		picked := 0
		for _, step := range ordered {
			if maxPerRecipient > 0 && picked >= maxPerRecipient {
				break
			}
			if !IsDue(now, r, step, sent) {
				continue
			}
			due = append(due, DueSend{Email: r.Email, TemplateKey: step.TemplateKey, Sequence: step.Sequence})
			picked++
		}
	}
	return due
}

// SignupRecipients maps unpaused signups to drip recipients.
func SignupRecipients(signups []models.Signup) []Recipient {
	out := make([]Recipient, 0, len(signups))
	for _, s := range signups {
		if s.Paused {
			continue
		}
		out = append(out, Recipient{Email: s.Email, Since: s.CreatedAt})
	}
	return out
}

// CommitmentRecipients maps unconverted commitments to recipients. An address
// with several commitments is anchored at its earliest one.
func CommitmentRecipients(commitments []models.Commitment) []Recipient {
	index := map[string]int{}
	var out []Recipient
	for _, c := range commitments {
		if c.Converted {
			continue
		}
		key := strings.ToLower(c.Email)
		if i, ok := index[key]; ok {
			if c.CreatedAt.Before(out[i].Since) {
				out[i].Since = c.CreatedAt
			}
			continue
		}
		index[key] = len(out)
		out = append(out, Recipient{Email: c.Email, Since: c.CreatedAt})
	}
	return out
}
