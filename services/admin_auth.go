package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"blazeoffice/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrAuthNotConfigured  = errors.New("admin login is not configured")
)

const adminTokenIssuer = "blaze-backoffice"

type adminClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// AdminAuth checks dashboard logins against an email allowlist and a
// shared bcrypt password hash, and issues HS256 session tokens.
type AdminAuth struct {
	admins       map[string]bool
	passwordHash []byte
	secret       []byte
	ttl          time.Duration
	now          func() time.Time
}

func NewAdminAuth(admins []string, passwordHash, secret string, ttl time.Duration) *AdminAuth {
	set := make(map[string]bool, len(admins))
	for _, a := range admins {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			set[a] = true
		}
	}
	return &AdminAuth{
		admins:       set,
		passwordHash: []byte(passwordHash),
		secret:       []byte(secret),
		ttl:          ttl,
		now:          time.Now,
	}
}

func (a *AdminAuth) configured() bool {
	return len(a.admins) > 0 && len(a.passwordHash) > 0 && len(a.secret) > 0
}

// Login returns a signed token for an allowlisted admin with the right
// password. Unknown emails and wrong passwords are indistinguishable.
func (a *AdminAuth) Login(email, password string) (string, *models.Admin, error) {
	if !a.configured() {
		return "", nil, ErrAuthNotConfigured
	}
	email = strings.ToLower(strings.TrimSpace(email))
	pwErr := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password))
	if !a.admins[email] || pwErr != nil {
		return "", nil, ErrInvalidCredentials
	}
	return a.Issue(email)
}

func (a *AdminAuth) Issue(email string) (string, *models.Admin, error) {
	now := a.now()
	admin := &models.Admin{Email: email, ExpiresAt: now.Add(a.ttl)}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, adminClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    adminTokenIssuer,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(admin.ExpiresAt),
		},
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign admin token: %w", err)
	}
	return signed, admin, nil
}

// Verify parses a token and checks that its subject is still an admin.
func (a *AdminAuth) Verify(tokenString string) (*models.Admin, error) {
	if !a.configured() {
		return nil, ErrAuthNotConfigured
	}
	claims := &adminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	},
		jwt.WithIssuer(adminTokenIssuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if !a.admins[strings.ToLower(claims.Email)] {
		return nil, ErrInvalidToken
	}
	admin := &models.Admin{Email: claims.Email}
	if claims.ExpiresAt != nil {
		admin.ExpiresAt = claims.ExpiresAt.Time
	}
	return admin, nil
}

// HashPassword produces the value for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
