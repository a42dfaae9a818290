package services

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"

	"blazeoffice/models"
	"blazeoffice/repository"
)

type memSignups struct {
	mu    sync.Mutex
	rows  []models.Signup
	takes map[string]bool
}

func (m *memSignups) Create(_ context.Context, s *models.Signup) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.Email == s.Email {
			return false, nil
		}
		if r.ReferralCode == s.ReferralCode {
			return false, repository.ErrDuplicateCode
		}
	}
	s.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, *s)
	return true, nil
}

func (m *memSignups) GetByEmail(_ context.Context, email string) (*models.Signup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.Email == email {
			cp := r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memSignups) GetByCode(_ context.Context, code string) (*models.Signup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.ReferralCode == code {
			cp := r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memSignups) CodeExists(_ context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.takes[code] {
		return true, nil
	}
	for _, r := range m.rows {
		if r.ReferralCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *memSignups) IncrementReferrals(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ReferralCode == code {
			m.rows[i].ReferralCount++
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memSignups) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows), nil
}

func (m *memSignups) Position(_ context.Context, id int64) (int, error) {
	return int(id), nil
}

func (m *memSignups) List(_ context.Context, offset, limit int, search string) ([]models.Signup, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Signup
	for _, r := range m.rows {
		if search == "" || strings.Contains(r.Email, search) {
			out = append(out, r)
		}
	}
	total := len(out)
	if offset > len(out) {
		offset = len(out)
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], total, nil
}

func (m *memSignups) SetPaused(_ context.Context, id int64, paused bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows[i].Paused = paused
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memSignups) Active(context.Context) ([]models.Signup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Signup
	for _, r := range m.rows {
		if !r.Paused {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memSignups) Emails(ctx context.Context) ([]string, error) {
	active, _ := m.Active(ctx)
	var out []string
	for _, r := range active {
		out = append(out, r.Email)
	}
	return out, nil
}

func (m *memSignups) Referrers(_ context.Context, limit int) ([]models.Signup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Signup
	for _, r := range m.rows {
		if r.ReferralCount > 0 {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ReferralCount > out[j].ReferralCount })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memCommitments struct {
	mu   sync.Mutex
	rows []models.Commitment
}

func (m *memCommitments) Create(_ context.Context, c *models.Commitment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, *c)
	return nil
}

func (m *memCommitments) List(context.Context) ([]models.Commitment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Commitment(nil), m.rows...), nil
}

func (m *memCommitments) update(id int64, fn func(c *models.Commitment)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id {
			fn(&m.rows[i])
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memCommitments) filter(fn func(c models.Commitment) bool) []models.Commitment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Commitment
	for _, c := range m.rows {
		if fn(c) {
			out = append(out, c)
		}
	}
	return out
}

func (m *memCommitments) SetConverted(_ context.Context, id int64, converted bool) error {
	return m.update(id, func(c *models.Commitment) { c.Converted = converted })
}

func (m *memCommitments) Pending(context.Context) ([]models.Commitment, error) {
	return m.filter(func(c models.Commitment) bool { return !c.Converted }), nil
}

func (m *memCommitments) ForReminder(_ context.Context, emails []string) ([]models.Commitment, error) {
	want := map[string]bool{}
	for _, e := range emails {
		want[e] = true
	}
	return m.filter(func(c models.Commitment) bool {
		return !c.Converted && !c.ReminderSent && (len(want) == 0 || want[c.Email])
	}), nil
}

func (m *memCommitments) ForApology(context.Context) ([]models.Commitment, error) {
	return m.filter(func(c models.Commitment) bool { return !c.ApologySent }), nil
}

func (m *memCommitments) MarkReminderSent(_ context.Context, id int64) error {
	return m.update(id, func(c *models.Commitment) { c.ReminderSent = true })
}

func (m *memCommitments) MarkApologySent(_ context.Context, id int64) error {
	return m.update(id, func(c *models.Commitment) { c.ApologySent = true })
}

func (m *memCommitments) MissingCountry(context.Context) ([]models.Commitment, error) {
	return m.filter(func(c models.Commitment) bool { return c.CountryCode == nil && c.IPAddress != nil }), nil
}

func (m *memCommitments) SetCountry(_ context.Context, id int64, code string) error {
	return m.update(id, func(c *models.Commitment) { c.CountryCode = &code })
}

func (m *memCommitments) BuyerCount(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	for _, c := range m.rows {
		seen[c.Email] = true
	}
	return len(seen), nil
}

type memCampaigns struct {
	steps []models.EmailCampaign
}

func (m *memCampaigns) List(_ context.Context, audience string) ([]models.EmailCampaign, error) {
	var out []models.EmailCampaign
	for _, s := range m.steps {
		if audience == "" || s.Audience == audience {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memCampaigns) Active(ctx context.Context, audience string) ([]models.EmailCampaign, error) {
	all, _ := m.List(ctx, audience)
	var out []models.EmailCampaign
	for _, s := range all {
		if s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memCampaigns) SetActive(_ context.Context, id int64, active bool) error {
	for i := range m.steps {
		if m.steps[i].ID == id {
			m.steps[i].IsActive = active
			return nil
		}
	}
	return repository.ErrNotFound
}

type memLogs struct {
	mu   sync.Mutex
	rows []models.EmailLog
}

func (m *memLogs) Record(_ context.Context, l *models.EmailLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.Status == models.SendSent {
		for _, r := range m.rows {
			if r.Status == models.SendSent && r.Email == l.Email && r.TemplateKey == l.TemplateKey {
				return nil
			}
		}
	}
	m.rows = append(m.rows, *l)
	return nil
}

func (m *memLogs) SentPairs(context.Context) ([]repository.SentPair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.SentPair
	for _, r := range m.rows {
		if r.Status == models.SendSent {
			out = append(out, repository.SentPair{Email: r.Email, TemplateKey: r.TemplateKey})
		}
	}
	return out, nil
}

func (m *memLogs) Recent(_ context.Context, limit int) ([]models.EmailLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.rows) {
		limit = len(m.rows)
	}
	return append([]models.EmailLog(nil), m.rows[:limit]...), nil
}

func (m *memLogs) StatusCounts(context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int{models.SendSent: 0, models.SendFailed: 0}
	for _, r := range m.rows {
		out[r.Status]++
	}
	return out, nil
}

func (m *memLogs) count(status string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.rows {
		if r.Status == status {
			n++
		}
	}
	return n
}

type recordingMailer struct {
	mu      sync.Mutex
	sent    []Email
	failFor map[string]bool
}

func (m *recordingMailer) Send(_ context.Context, e Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[e.To] {
		return errors.New("mailbox unavailable")
	}
	m.sent = append(m.sent, e)
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type recordingNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (n *recordingNotifier) Notify(_ context.Context, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = append(n.texts, text)
}

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingPublisher) Publish(_ context.Context, key string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return nil
}

type memPricing struct {
	tiers []models.PricingTier
}

func (m *memPricing) List(context.Context) ([]models.PricingTier, error) {
	return append([]models.PricingTier(nil), m.tiers...), nil
}

func (m *memPricing) Activate(_ context.Context, id int64) error {
	found := false
	for i := range m.tiers {
		if m.tiers[i].ID == id {
			found = true
		}
	}
	if !found {
		return repository.ErrNotFound
	}
	for i := range m.tiers {
		m.tiers[i].IsActive = m.tiers[i].ID == id
	}
	return nil
}

func seededTiers() []models.PricingTier {
	return []models.PricingTier{
		{ID: 1, TierNumber: 1, Name: "Founders", MinBuyers: 1, MaxBuyers: 100, PricePerToken: 0.0015, BonusPercentage: 50, IsActive: true},
		{ID: 2, TierNumber: 2, Name: "Early Birds", MinBuyers: 101, MaxBuyers: 250, PricePerToken: 0.002, BonusPercentage: 30},
		{ID: 3, TierNumber: 3, Name: "Pioneers", MinBuyers: 251, MaxBuyers: 500, PricePerToken: 0.0025, BonusPercentage: 15},
		{ID: 4, TierNumber: 4, Name: "Public", MinBuyers: 501, MaxBuyers: 1000000, PricePerToken: 0.003, BonusPercentage: 0},
	}
}

type memContacts struct {
	rows []models.ContactMessage
}

func (m *memContacts) Create(_ context.Context, msg *models.ContactMessage) error {
	msg.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, *msg)
	return nil
}

func (m *memContacts) List(_ context.Context, status string) ([]models.ContactMessage, error) {
	var out []models.ContactMessage
	for _, r := range m.rows {
		if status == "" || r.Status == status {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memContacts) UpdateStatus(_ context.Context, id int64, status string) error {
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows[i].Status = status
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memContacts) Delete(_ context.Context, id int64) error {
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type memRewards struct {
	rows []models.RewardTier
}

func (m *memRewards) List(context.Context) ([]models.RewardTier, error) {
	return m.rows, nil
}

func seededRewards() []models.RewardTier {
	return []models.RewardTier{
		{ID: 1, MinRank: 1, MaxRank: 1, Badge: "Diamond", Color: "#b9f2ff", BonusTokens: 50000},
		{ID: 2, MinRank: 2, MaxRank: 3, Badge: "Platinum", Color: "#e5e4e2", BonusTokens: 25000},
		{ID: 3, MinRank: 4, MaxRank: 10, Badge: "Gold", Color: "#ffd700", BonusTokens: 10000},
	}
}

// memCache is an in-process Cache that round-trips through JSON like Redis.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	hits int
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}}
}

func (c *memCache) Get(_ context.Context, key string, dst interface{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return false
	}
	c.hits++
	return json.Unmarshal(raw, dst) == nil
}

func (c *memCache) Set(_ context.Context, key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, _ := json.Marshal(value)
	c.data[key] = raw
}

func (c *memCache) Delete(_ context.Context, keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
}
