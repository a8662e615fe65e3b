package auth

import "github.com/emersion/go-sasl"

// xoauth2Client implements the SASL XOAUTH2 mechanism for go-sasl. Gmail
// accepts XOAUTH2 but not the standardized OAUTHBEARER, so go-sasl's
// built-in client cannot be used.
type xoauth2Client struct {
	username string
	token    string
}

// NewXOAuth2 returns a sasl.Client that presents the given bearer token
// for the account.
func NewXOAuth2(username, token string) sasl.Client {
	return &xoauth2Client{username: username, token: token}
}

// Start returns the mechanism name and the XOAUTH2 initial response:
// "user=<user>\x01auth=Bearer <token>\x01\x01".
func (c *xoauth2Client) Start() (string, []byte, error) {
	ir := []byte("user=" + c.username + "\x01auth=Bearer " + c.token + "\x01\x01")
	return "XOAUTH2", ir, nil
}

// Next handles the error challenge the server sends on rejection. XOAUTH2
// expects an empty response, after which the server fails the command.
func (c *xoauth2Client) Next(_ []byte) ([]byte, error) {
	return []byte{}, nil
}
