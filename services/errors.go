package services

import "errors"

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrInvalidStatus   = errors.New("invalid message status")
	ErrUnknownTemplate = errors.New("unknown email template")
	ErrBulkInProgress  = errors.New("bulk send already in progress")
	ErrChatDisabled    = errors.New("chat is not configured")
	ErrGeoLookupFailed = errors.New("geo lookup failed")
)
