package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayID(t *testing.T) {
	pw := NewAppPasswordCredential("alice@gmail.com", "pw", 0)
	assert.Equal(t, "alice@gmail.com", pw.DisplayID())

	oauth := NewOAuth2Credential(&ClientSecret{ClientID: "client-1"}, "s.json", 1)
	assert.Equal(t, "client-1", oauth.DisplayID())

	oauth.SetAuthenticated("carol@gmail.com")
	assert.Equal(t, "carol@gmail.com", oauth.DisplayID())
	assert.Equal(t, CredentialAuthenticated, oauth.Status)

	assert.Equal(t, "unknown", (&Credential{}).DisplayID())
}

func TestSetAuthenticated_KeepsKnownEmail(t *testing.T) {
	cred := NewAppPasswordCredential("alice@gmail.com", "pw", 0)
	cred.SetAuthenticated("")
	assert.Equal(t, "alice@gmail.com", cred.Email)
	assert.Equal(t, CredentialAuthenticated, cred.Status)
}

func TestResultSummary(t *testing.T) {
	ok := SuccessResult("a@gmail.com", AuthAppPassword, 3, 1, 0)
	assert.Equal(t, "a@gmail.com: 3 inbox, 1 sent", ok.Summary())
	assert.Equal(t, 4, ok.TotalMessages())

	bad := FailureResult("b@gmail.com", AuthOAuth2, "login rejected", 0)
	assert.Equal(t, "b@gmail.com: login rejected", bad.Summary())
}
