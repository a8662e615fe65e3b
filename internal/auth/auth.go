// Package auth produces authenticated IMAP sessions from credentials.
//
// Two authenticator variants exist behind one interface: app-password LOGIN
// and OAuth2 SASL XOAUTH2. Adding a further kind means adding a variant,
// never touching callers.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/mailcheck/internal/model"
)

// AuthError indicates that authentication failed for a credential: a
// rejected login, a missing or unrefreshable token, or a connection that
// could not be established within the timeout.
type AuthError struct {
	Kind    model.AuthKind
	Email   string
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed (%s) for %s: %s", e.Kind, e.Email, e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// Activity describes the newest message found in a mailbox.
type Activity struct {
	From    string
	Subject string
	Date    time.Time
}

// Session is an open, authenticated mail connection. Implementations are
// not safe for concurrent use; each credential check owns its own session.
type Session interface {
	// MessageCount returns the number of messages in the named mailbox.
	MessageCount(mailbox string) (int, error)

	// LatestMessage fetches the newest message's header section from the
	// named mailbox. Returns nil for an empty mailbox.
	LatestMessage(mailbox string) (*Activity, error)

	// Close logs out and closes the connection.
	Close() error
}

// Authenticator turns a credential into an open authenticated session or a
// typed failure. This is the single extension point for new auth kinds.
type Authenticator interface {
	// Kind returns the credential kind this authenticator handles.
	Kind() model.AuthKind

	// Authenticate opens a session for the credential. On success the
	// credential is marked authenticated (and, for OAuth2, its email is
	// filled in). The caller owns the returned session.
	Authenticate(ctx context.Context, cred *model.Credential) (Session, error)
}
