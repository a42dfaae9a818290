package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"blazeoffice/services"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestHashPassword(t *testing.T) {
	out, err := execute(t, "hash-password", "correct horse")
	require.NoError(t, err)

	hash := strings.TrimSpace(out)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("correct horse")))
}

func TestHashPasswordTooShort(t *testing.T) {
	_, err := execute(t, "hash-password", "short")
	assert.ErrorIs(t, err, services.ErrInvalidInput)
}

func TestMigrateRejectsUnknownDirection(t *testing.T) {
	_, err := execute(t, "migrate", "sideways")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sideways")
}

func TestCampaignRunRejectsUnknownAudience(t *testing.T) {
	_, err := execute(t, "campaign", "run", "--audience", "newsletter")
	assert.ErrorIs(t, err, services.ErrUnknownAudience)
}
