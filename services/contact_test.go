package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"blazeoffice/models"
	"blazeoffice/repository"
)

func newContactFixture(t *testing.T) (*ContactService, *memContacts, *recordingMailer, *recordingNotifier) {
	t.Helper()
	store := &memContacts{}
	mailer := &recordingMailer{}
	notifier := &recordingNotifier{}
	svc := NewContactService(store, newTestDispatcher(t, mailer, nil), notifier, nil, zap.NewNop())
	return svc, store, mailer, notifier
}

func TestContactSubmit(t *testing.T) {
	svc, store, mailer, notifier := newContactFixture(t)

	msg, err := svc.Submit(context.Background(), ContactRequest{
		Name:    " Ann ",
		Email:   "Ann@X.io",
		Subject: "Partnership",
		Message: "Hello there",
	})
	require.NoError(t, err)
	assert.Equal(t, models.MessageNew, msg.Status)
	assert.Equal(t, "Ann", msg.Name)
	assert.Len(t, store.rows, 1)

	require.Equal(t, 1, mailer.count())
	assert.Equal(t, "ann@x.io", mailer.sent[0].To)
	assert.Contains(t, mailer.sent[0].Text, "Partnership")
	require.Len(t, notifier.texts, 1)
	assert.Contains(t, notifier.texts[0], "Partnership")
}

func TestContactSubmitValidation(t *testing.T) {
	svc, store, _, _ := newContactFixture(t)

	cases := []ContactRequest{
		{Email: "a@x.io", Subject: "s", Message: "m"},
		{Name: "n", Email: "a@x.io", Message: "m"},
		{Name: "n", Email: "a@x.io", Subject: "s", Message: "   "},
		{Name: "n", Email: "a@x.io", Subject: "s", Message: strings.Repeat("x", maxMessageLength+1)},
	}
	for _, c := range cases {
		_, err := svc.Submit(context.Background(), c)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}

	_, err := svc.Submit(context.Background(), ContactRequest{Name: "n", Email: "bad", Subject: "s", Message: "m"})
	assert.ErrorIs(t, err, ErrInvalidEmail)
	assert.Empty(t, store.rows)
}

func TestContactTriage(t *testing.T) {
	svc, store, _, _ := newContactFixture(t)
	store.rows = []models.ContactMessage{
		{ID: 1, Status: models.MessageNew},
		{ID: 2, Status: models.MessageRead},
	}

	require.NoError(t, svc.UpdateStatus(context.Background(), 1, models.MessageReplied))
	assert.ErrorIs(t, svc.UpdateStatus(context.Background(), 1, "archived"), ErrInvalidStatus)
	assert.ErrorIs(t, svc.UpdateStatus(context.Background(), 99, models.MessageRead), repository.ErrNotFound)

	replied, err := svc.List(context.Background(), models.MessageReplied)
	require.NoError(t, err)
	require.Len(t, replied, 1)
	assert.Equal(t, int64(1), replied[0].ID)

	_, err = svc.List(context.Background(), "bogus")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	require.NoError(t, svc.Delete(context.Background(), 2))
	all, err := svc.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
