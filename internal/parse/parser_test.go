package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailcheck/internal/model"
)

func TestText_ValidLines(t *testing.T) {
	var out Output
	New().Text("alice@gmail.com:secret1\nbob@gmail.com:secret2\n", &out)

	require.Len(t, out.Credentials, 2)
	assert.Empty(t, out.Failures)

	assert.Equal(t, "alice@gmail.com", out.Credentials[0].Email)
	assert.Equal(t, "secret1", out.Credentials[0].Password)
	assert.Equal(t, model.AuthAppPassword, out.Credentials[0].Kind)
	assert.Equal(t, model.CredentialPending, out.Credentials[0].Status)
	assert.Equal(t, 0, out.Credentials[0].Position)
	assert.Equal(t, 1, out.Credentials[1].Position)
}

func TestText_PasswordMayContainColons(t *testing.T) {
	var out Output
	New().Text("alice@gmail.com:pa:ss:word", &out)

	require.Len(t, out.Credentials, 1)
	assert.Equal(t, "pa:ss:word", out.Credentials[0].Password)
}

func TestText_SkipsBlankLinesWithoutPositions(t *testing.T) {
	var out Output
	New().Text("\n\nalice@gmail.com:x\n\n  \nbob@gmail.com:y\n", &out)

	require.Len(t, out.Credentials, 2)
	assert.Equal(t, 0, out.Credentials[0].Position)
	assert.Equal(t, 1, out.Credentials[1].Position)
}

func TestText_MalformedLinesBecomeFailures(t *testing.T) {
	var out Output
	New().Text("no-colon-here\nalice@gmail.com:ok\nnot-an-email:pw\n:pw\n", &out)

	require.Len(t, out.Credentials, 1)
	require.Len(t, out.Failures, 3)

	assert.Equal(t, "no-colon-here", out.Failures[0].Raw)
	assert.Equal(t, 0, out.Failures[0].Position)
	assert.Equal(t, model.AuthAppPassword, out.Failures[0].Kind)

	// Valid line in the middle keeps its place in the combined order.
	assert.Equal(t, 1, out.Credentials[0].Position)
	assert.Equal(t, 2, out.Failures[1].Position)
	assert.Equal(t, 3, out.Failures[2].Position)
	assert.Equal(t, 4, out.Total())
}

const validSecret = `{
  "installed": {
    "client_id": "1234.apps.googleusercontent.com",
    "client_secret": "shhh",
    "auth_uri": "https://accounts.google.com/o/oauth2/auth",
    "token_uri": "https://oauth2.googleapis.com/token",
    "redirect_uris": ["http://localhost"]
  }
}`

func TestFile_ValidClientSecret(t *testing.T) {
	var out Output
	New().File("client_secret.json", []byte(validSecret), &out)

	require.Len(t, out.Credentials, 1)
	assert.Empty(t, out.Failures)

	cred := out.Credentials[0]
	assert.Equal(t, model.AuthOAuth2, cred.Kind)
	assert.Empty(t, cred.Email)
	assert.Equal(t, "client_secret.json", cred.SourceFile)
	require.NotNil(t, cred.Secret)
	assert.Equal(t, "1234.apps.googleusercontent.com", cred.Secret.ClientID)
}

func TestFile_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		reason string
	}{
		{
			name:   "not json",
			data:   "{{{",
			reason: "invalid JSON",
		},
		{
			name:   "missing installed section",
			data:   `{"web": {"client_id": "x"}}`,
			reason: `missing "installed" section`,
		},
		{
			name: "missing client_secret",
			data: `{"installed": {
				"client_id": "x",
				"auth_uri": "https://a",
				"token_uri": "https://t",
				"redirect_uris": ["http://localhost"]}}`,
			reason: "missing client_secret",
		},
		{
			name: "no loopback redirect",
			data: `{"installed": {
				"client_id": "x",
				"client_secret": "y",
				"auth_uri": "https://a",
				"token_uri": "https://t",
				"redirect_uris": ["https://example.com/callback"]}}`,
			reason: "no loopback redirect",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out Output
			New().File("bad.json", []byte(tt.data), &out)

			assert.Empty(t, out.Credentials)
			require.Len(t, out.Failures, 1)
			assert.Equal(t, model.AuthOAuth2, out.Failures[0].Kind)
			assert.Equal(t, "bad.json", out.Failures[0].Raw)
			assert.Contains(t, out.Failures[0].Reason, tt.reason)
		})
	}
}

func TestMixedInputSharesOneOrder(t *testing.T) {
	p := New()
	var out Output

	p.Text("alice@gmail.com:pw\nbroken\n", &out)
	p.File("client_secret.json", []byte(validSecret), &out)

	assert.Equal(t, 3, out.Total())
	assert.Equal(t, 0, out.Credentials[0].Position)
	assert.Equal(t, 1, out.Failures[0].Position)
	assert.Equal(t, 2, out.Credentials[1].Position)
}
