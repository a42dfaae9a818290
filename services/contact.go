package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"blazeoffice/models"
)

const (
	maxNameLength    = 120
	maxSubjectLength = 200
	maxMessageLength = 5000
)

type ContactRequest struct {
	Name    string
	Email   string
	Subject string
	Message string
}

// ContactService stores contact-form messages and drives their triage.
type ContactService struct {
	messages   ContactStore
	dispatcher *Dispatcher
	notifier   Notifier
	events     EventPublisher
	log        *zap.Logger
}

func NewContactService(messages ContactStore, dispatcher *Dispatcher, notifier Notifier, events EventPublisher, log *zap.Logger) *ContactService {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	if events == nil {
		events = NoopPublisher{}
	}
	return &ContactService{messages: messages, dispatcher: dispatcher, notifier: notifier, events: events, log: log}
}

func (s *ContactService) Submit(ctx context.Context, req ContactRequest) (*models.ContactMessage, error) {
	email, err := NormalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	msg := &models.ContactMessage{
		Name:    strings.TrimSpace(req.Name),
		Email:   email,
		Subject: strings.TrimSpace(req.Subject),
		Message: strings.TrimSpace(req.Message),
		Status:  models.MessageNew,
	}
	if err := validateContact(msg); err != nil {
		return nil, err
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("create contact message: %w", err)
	}
	s.log.Info("Contact message received", zap.Int64("id", msg.ID))

	s.notifier.Notify(ctx, contactNotice(msg.Name, msg.Email, msg.Subject))
	if s.dispatcher != nil {
		// Auto-replies are not part of any sequence and are not logged.
		_, _ = s.dispatcher.SendTemplate(ctx, "", msg.Email, "contact_received", map[string]string{
			"name":    msg.Name,
			"subject": msg.Subject,
		})
	}
	publishBestEffort(ctx, s.events, s.log, EventContactReceived, map[string]interface{}{
		"id":      msg.ID,
		"subject": msg.Subject,
	})
	return msg, nil
}

func validateContact(m *models.ContactMessage) error {
	switch {
	case m.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	case m.Subject == "":
		return fmt.Errorf("%w: subject is required", ErrInvalidInput)
	case m.Message == "":
		return fmt.Errorf("%w: message is required", ErrInvalidInput)
	case utf8.RuneCountInString(m.Name) > maxNameLength:
		return fmt.Errorf("%w: name is too long", ErrInvalidInput)
	case utf8.RuneCountInString(m.Subject) > maxSubjectLength:
		return fmt.Errorf("%w: subject is too long", ErrInvalidInput)
	case utf8.RuneCountInString(m.Message) > maxMessageLength:
		return fmt.Errorf("%w: message is too long", ErrInvalidInput)
	}
	return nil
}

// List returns messages, optionally filtered by status.
func (s *ContactService) List(ctx context.Context, status string) ([]models.ContactMessage, error) {
	if status != "" && !models.IsValidMessageStatus(status) {
		return nil, ErrInvalidStatus
	}
	rows, err := s.messages.List(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list contact messages: %w", err)
	}
	if rows == nil {
		rows = []models.ContactMessage{}
	}
	return rows, nil
}

func (s *ContactService) UpdateStatus(ctx context.Context, id int64, status string) error {
	if !models.IsValidMessageStatus(status) {
		return ErrInvalidStatus
	}
	return s.messages.UpdateStatus(ctx, id, status)
}

func (s *ContactService) Delete(ctx context.Context, id int64) error {
	return s.messages.Delete(ctx, id)
}
