package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

const (
	referralCodeLength  = 8
	referralCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeAttempts     = 10
)

var (
	ErrCodeSpaceExhausted = errors.New("could not generate a unique referral code")

	referralCodePattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)
)

// GenerateReferralCode returns a random code from [A-Z0-9].
func GenerateReferralCode() (string, error) {
	b := make([]byte, referralCodeLength)
	max := big.NewInt(int64(len(referralCodeCharset)))
	for i := range b {
		num, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = referralCodeCharset[num.Int64()]
	}
	return string(b), nil
}

// NormalizeReferralCode upper-cases and validates a user supplied code.
// Anything that is not a well-formed code comes back empty.
func NormalizeReferralCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !referralCodePattern.MatchString(code) {
		return ""
	}
	return code
}

// uniqueReferralCode draws codes until one is not taken.
func uniqueReferralCode(ctx context.Context, store SignupStore) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := GenerateReferralCode()
		if err != nil {
			return "", fmt.Errorf("generate referral code: %w", err)
		}
		taken, err := store.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check referral code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}
