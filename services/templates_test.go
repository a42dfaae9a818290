package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTemplatesCoverSeededCampaigns(t *testing.T) {
	catalog, err := LoadDefaultTemplates(testSiteURL)
	require.NoError(t, err)

	for _, key := range []string{
		"welcome", "why_blaze", "referral_push", "presale_teaser", "presale_open",
		"commitment_confirmation", "commitment_reminder", "commitment_last_call",
		"commitment_apology", "contact_received",
	} {
		assert.True(t, catalog.Has(key), "missing template %s", key)
	}
}

func TestRenderSubstitutesVars(t *testing.T) {
	catalog, err := LoadDefaultTemplates(testSiteURL)
	require.NoError(t, err)

	out, err := catalog.Render("welcome", "jo@x.io", map[string]string{
		"referral_link": "https://blaze.test/?ref=ABCD1234",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, out.Subject)
	assert.Contains(t, out.Text, "https://blaze.test/?ref=ABCD1234")
	assert.Contains(t, out.HTML, `href="https://blaze.test/?ref=ABCD1234"`)
}

func TestRenderMissingVarsAreBlank(t *testing.T) {
	catalog, err := LoadDefaultTemplates(testSiteURL)
	require.NoError(t, err)

	out, err := catalog.Render("referral_push", "jo@x.io", nil)
	require.NoError(t, err)
	assert.NotContains(t, out.Text, "<no value>")
	assert.Contains(t, out.Text, testSiteURL+"/leaderboard")
}

func TestRenderEscapesHTML(t *testing.T) {
	catalog, err := ParseTemplates([]byte(`
note:
  subject: "Hi {{.Vars.name}}"
  text: "Hello {{.Vars.name}}"
  html: "<p>Hello {{.Vars.name}}</p>"
`), testSiteURL)
	require.NoError(t, err)

	out, err := catalog.Render("note", "a@x.io", map[string]string{"name": "<script>"})
	require.NoError(t, err)
	assert.Equal(t, "Hello <script>", out.Text)
	assert.Equal(t, "<p>Hello &lt;script&gt;</p>", out.HTML)
}

func TestParseTemplatesRejectsIncompleteEntries(t *testing.T) {
	_, err := ParseTemplates([]byte("broken:\n  subject: only a subject\n"), testSiteURL)
	assert.Error(t, err)

	_, err = ParseTemplates([]byte("bad:\n  subject: x\n  text: \"{{.Vars\"\n"), testSiteURL)
	assert.Error(t, err)
}

func TestRenderUnknownTemplate(t *testing.T) {
	catalog, err := LoadDefaultTemplates(testSiteURL)
	require.NoError(t, err)
	_, err = catalog.Render("nope", "a@x.io", nil)
	assert.Error(t, err)
}
