package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"blazeoffice/models"
)

type bulkFixture struct {
	signups     *memSignups
	commitments *memCommitments
	logs        *memLogs
	mailer      *recordingMailer
	bulk        *BulkMailer
}

func newBulkFixture(t *testing.T) *bulkFixture {
	t.Helper()
	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	f := &bulkFixture{
		signups: &memSignups{rows: []models.Signup{
			{ID: 1, Email: "w1@x.io", ReferralCode: "AAAAAAAA", CreatedAt: created},
			{ID: 2, Email: "w2@x.io", ReferralCode: "BBBBBBBB", CreatedAt: created},
			{ID: 3, Email: "paused@x.io", ReferralCode: "CCCCCCCC", Paused: true, CreatedAt: created},
		}},
		commitments: &memCommitments{rows: []models.Commitment{
			{ID: 1, Email: "c1@x.io", IntendedAmountUSD: 100, EstimatedTokens: 100000, Tier: 1, CreatedAt: created},
			{ID: 2, Email: "c1@x.io", IntendedAmountUSD: 200, EstimatedTokens: 200000, Tier: 1, CreatedAt: created},
			{ID: 3, Email: "c2@x.io", IntendedAmountUSD: 300, Tier: 1, ReminderSent: true, CreatedAt: created},
			{ID: 4, Email: "c3@x.io", IntendedAmountUSD: 400, Tier: 1, Converted: true, CreatedAt: created},
		}},
		logs:   &memLogs{},
		mailer: &recordingMailer{failFor: map[string]bool{}},
	}
	logs := map[string]EmailLogStore{models.AudienceCommitment: f.logs}
	f.bulk = NewBulkMailer(f.signups, f.commitments, newTestDispatcher(t, f.mailer, logs), testSiteURL, zap.NewNop())
	return f
}

func TestReminderGroupsByEmailAndFlags(t *testing.T) {
	f := newBulkFixture(t)

	res, err := f.bulk.Reminder(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Equal(t, BulkResult{Total: 1, Sent: 1}, *res)
	require.Equal(t, 1, f.mailer.count())
	assert.Equal(t, "c1@x.io", f.mailer.sent[0].To)
	assert.Contains(t, f.mailer.sent[0].Text, "$300.00")

	for _, c := range f.commitments.rows[:2] {
		assert.True(t, c.ReminderSent)
	}

	again, err := f.bulk.Reminder(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Zero(t, again.Total)
}

func TestReminderFailureIsCountedAndNotFlagged(t *testing.T) {
	f := newBulkFixture(t)
	f.mailer.failFor["c1@x.io"] = true

	res, err := f.bulk.Reminder(context.Background(), []string{" C1@x.io "}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Failures, 1)
	assert.False(t, f.commitments.rows[0].ReminderSent)
}

func TestReminderUnknownTemplate(t *testing.T) {
	f := newBulkFixture(t)
	_, err := f.bulk.Reminder(context.Background(), nil, "nope")
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestApologyOncePerAddress(t *testing.T) {
	f := newBulkFixture(t)

	res, err := f.bulk.Apology(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 3, res.Sent)
	for _, c := range f.commitments.rows {
		assert.True(t, c.ApologySent)
	}

	again, err := f.bulk.Apology(context.Background())
	require.NoError(t, err)
	assert.Zero(t, again.Total)
}

func TestBroadcastToAudience(t *testing.T) {
	f := newBulkFixture(t)

	res, err := f.bulk.Broadcast(context.Background(), BroadcastRequest{
		Audience: models.AudienceWaitlist,
		Subject:  "News",
		Body:     "Line one\nLine <two>\n\nSecond paragraph",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sent)
	require.Equal(t, 2, f.mailer.count())
	assert.Equal(t, "<p>Line one<br>Line &lt;two&gt;</p>\n<p>Second paragraph</p>\n", f.mailer.sent[0].HTML)
}

func TestBroadcastTemplateToExplicitList(t *testing.T) {
	f := newBulkFixture(t)

	res, err := f.bulk.Broadcast(context.Background(), BroadcastRequest{
		To:          []string{"a@x.io", "A@x.io", "not-an-email"},
		TemplateKey: "presale_open",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Zero(t, f.logs.count(models.SendSent))
}

func TestBroadcastValidation(t *testing.T) {
	f := newBulkFixture(t)

	_, err := f.bulk.Broadcast(context.Background(), BroadcastRequest{Subject: "s", Body: "b"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.bulk.Broadcast(context.Background(), BroadcastRequest{Audience: models.AudienceWaitlist, Subject: "s"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.bulk.Broadcast(context.Background(), BroadcastRequest{Audience: models.AudienceWaitlist, TemplateKey: "nope"})
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestBulkRejectsConcurrentRuns(t *testing.T) {
	f := newBulkFixture(t)
	f.bulk.mu.Lock()
	defer f.bulk.mu.Unlock()

	_, err := f.bulk.Apology(context.Background())
	assert.ErrorIs(t, err, ErrBulkInProgress)
}
