package auth

import (
	"context"
	"fmt"

	"github.com/nhle/mailcheck/internal/logging"
	"github.com/nhle/mailcheck/internal/model"
)

// PasswordAuthenticator logs in with the account email and an app password
// over a fresh TLS connection.
type PasswordAuthenticator struct {
	cfg model.IMAPConfig
	log logging.Logger
}

// NewPasswordAuthenticator creates the app-password variant.
func NewPasswordAuthenticator(cfg model.IMAPConfig, log logging.Logger) *PasswordAuthenticator {
	return &PasswordAuthenticator{cfg: cfg, log: log}
}

// Kind returns the credential kind this authenticator handles.
func (a *PasswordAuthenticator) Kind() model.AuthKind {
	return model.AuthAppPassword
}

// Authenticate dials the IMAP endpoint and issues LOGIN. No retries: a
// failed attempt is reported once.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, cred *model.Credential) (Session, error) {
	if cred.Kind != model.AuthAppPassword {
		return nil, fmt.Errorf("password authenticator given %s credential", cred.Kind)
	}

	client, err := dialTLS(a.cfg.Host, a.cfg.Port, a.cfg.DialTimeout())
	if err != nil {
		cred.SetFailed()
		return nil, &AuthError{
			Kind:    model.AuthAppPassword,
			Email:   cred.Email,
			Message: fmt.Sprintf("connection failed: %v", err),
			Err:     err,
		}
	}

	if err := client.Login(cred.Email, cred.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		cred.SetFailed()
		a.log.Debug(ctx, "login rejected", "email", cred.Email)
		return nil, &AuthError{
			Kind:    model.AuthAppPassword,
			Email:   cred.Email,
			Message: fmt.Sprintf("login rejected: %v", err),
			Err:     err,
		}
	}

	cred.SetAuthenticated("")
	a.log.Debug(ctx, "login accepted", "email", cred.Email)

	return &imapSession{client: client}, nil
}
