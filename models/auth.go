package models

import (
	"time"
)

type Admin struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}
