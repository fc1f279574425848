package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailsOrderingAndDedup(t *testing.T) {
	p := &Page{
		MailtoEmails: []string{"info@coolrunningair.com"},
		SchemaEmails: []string{"office@coolrunningair.com", "info@coolrunningair.com"},
		BodyText:     "Reach John at john.smith@coolrunningair.com or info@coolrunningair.com today",
	}
	got := Emails(p)
	require.Len(t, got, 3)
	assert.Equal(t, EmailMatch{Email: "info@coolrunningair.com", Source: EmailSourceMailto}, got[0])
	assert.Equal(t, EmailMatch{Email: "office@coolrunningair.com", Source: EmailSourceSchema}, got[1])
	assert.Equal(t, EmailMatch{Email: "john.smith@coolrunningair.com", Source: EmailSourceText}, got[2])
}

func TestEmailsDenylist(t *testing.T) {
	p := &Page{
		MailtoEmails: []string{"noreply@coolrunningair.com", "test@example.com"},
		BodyText:     "logo@2x.png icon@site.css support@wixpress.com real@coolrunningair.com",
	}
	got := Emails(p)
	require.Len(t, got, 1)
	assert.Equal(t, "real@coolrunningair.com", got[0].Email)
}

func TestDeniedEmail(t *testing.T) {
	denied := []string{
		"no-reply@company.com",
		"donotreply@company.com",
		"test@company.com",
		"someone@example.com",
		"user@yourdomain.com",
		"pic@assets.site.png",
		"abuse@company.com",
		"4f2a9c8e1b3d5f6a@sentry.io",
	}
	for _, e := range denied {
		assert.True(t, DeniedEmail(e), e)
	}
	allowed := []string{"info@coolrunningair.com", "jane.doe@acme.net"}
	for _, e := range allowed {
		assert.False(t, DeniedEmail(e), e)
	}
}

func TestEmailClassification(t *testing.T) {
	assert.True(t, RoleBased("info@x.com"))
	assert.True(t, RoleBased("sales@x.com"))
	assert.False(t, RoleBased("jane@x.com"))

	assert.True(t, PersonLike("jane.doe@x.com"))
	assert.True(t, PersonLike("j_smith@x.com"))
	assert.True(t, PersonLike("maria@x.com"))
	assert.False(t, PersonLike("info@x.com"))
	assert.False(t, PersonLike("a@x.com"))
}

func TestGuessEmails(t *testing.T) {
	got := GuessEmails("coolrunningair.com")
	require.NotEmpty(t, got)
	assert.Equal(t, "info@coolrunningair.com", got[0].Email)
	for _, m := range got {
		assert.Equal(t, EmailSourceGuess, m.Source)
	}
}

func TestEmailDomain(t *testing.T) {
	assert.Equal(t, "coolrunningair.com", EmailDomain("Info@CoolRunningAir.com"))
	assert.Equal(t, "", EmailDomain("not-an-email"))
}
