package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/nhle/mailcheck/internal/logging"
	"github.com/nhle/mailcheck/internal/model"
)

// mailScope grants full IMAP access; the OIDC scopes let the authorize flow
// discover the account email without a separate Google API client.
var oauthScopes = []string{"https://mail.google.com/", "openid", "email"}

const defaultUserinfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// OAuth2Authenticator authenticates with a stored OAuth2 token via SASL
// XOAUTH2. It never prompts: a credential whose client ID has no stored
// token fails with an AuthError telling the operator to run the authorize
// flow first, so a batch can never block on interactive consent.
type OAuth2Authenticator struct {
	cfg    model.IMAPConfig
	tokens TokenStore
	log    logging.Logger

	// userinfoURL is overridable in tests.
	userinfoURL string
}

// NewOAuth2Authenticator creates the OAuth2 variant.
func NewOAuth2Authenticator(cfg model.IMAPConfig, tokens TokenStore, log logging.Logger) *OAuth2Authenticator {
	return &OAuth2Authenticator{
		cfg:         cfg,
		tokens:      tokens,
		log:         log,
		userinfoURL: defaultUserinfoURL,
	}
}

// Kind returns the credential kind this authenticator handles.
func (a *OAuth2Authenticator) Kind() model.AuthKind {
	return model.AuthOAuth2
}

// oauthConfig builds the x/oauth2 config from a parsed client secret.
func oauthConfig(secret *model.ClientSecret) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     secret.ClientID,
		ClientSecret: secret.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  secret.AuthURI,
			TokenURL: secret.TokenURI,
		},
		Scopes: oauthScopes,
	}
}

// Authenticate loads the stored token for the credential's client ID,
// refreshes it if expired, resolves the account email, and logs in with
// SASL XOAUTH2.
func (a *OAuth2Authenticator) Authenticate(ctx context.Context, cred *model.Credential) (Session, error) {
	if cred.Kind != model.AuthOAuth2 || cred.Secret == nil {
		return nil, fmt.Errorf("oauth2 authenticator given %s credential", cred.Kind)
	}

	clientID := cred.Secret.ClientID

	stored, err := a.tokens.Load(clientID)
	if err != nil {
		cred.SetFailed()
		if errors.Is(err, ErrNoToken) {
			return nil, &AuthError{
				Kind:    model.AuthOAuth2,
				Email:   cred.DisplayID(),
				Message: "no stored token for this client; run `mailcheck authorize` first",
				Err:     err,
			}
		}
		return nil, &AuthError{
			Kind:    model.AuthOAuth2,
			Email:   cred.DisplayID(),
			Message: fmt.Sprintf("loading stored token: %v", err),
			Err:     err,
		}
	}

	// TokenSource refreshes through the token URI when the access token has
	// expired; persist the refreshed token so the next run skips the round-trip.
	source := oauthConfig(cred.Secret).TokenSource(ctx, stored)
	tok, err := source.Token()
	if err != nil {
		cred.SetFailed()
		return nil, &AuthError{
			Kind:    model.AuthOAuth2,
			Email:   cred.DisplayID(),
			Message: fmt.Sprintf("token refresh failed: %v", err),
			Err:     err,
		}
	}
	if tok.AccessToken != stored.AccessToken {
		if err := a.tokens.Save(clientID, tok); err != nil {
			a.log.Warn(ctx, "persisting refreshed token failed", "client_id", clientID, "error", err)
		}
	}

	email := cred.Email
	if email == "" {
		email, err = a.lookupEmail(ctx, tok)
		if err != nil {
			cred.SetFailed()
			return nil, &AuthError{
				Kind:    model.AuthOAuth2,
				Email:   cred.DisplayID(),
				Message: fmt.Sprintf("resolving account email: %v", err),
				Err:     err,
			}
		}
	}

	client, err := dialTLS(a.cfg.Host, a.cfg.Port, a.cfg.DialTimeout())
	if err != nil {
		cred.SetFailed()
		return nil, &AuthError{
			Kind:    model.AuthOAuth2,
			Email:   email,
			Message: fmt.Sprintf("connection failed: %v", err),
			Err:     err,
		}
	}

	if err := client.Authenticate(NewXOAuth2(email, tok.AccessToken)); err != nil {
		_ = client.Logout().Wait()
		cred.SetFailed()
		return nil, &AuthError{
			Kind:    model.AuthOAuth2,
			Email:   email,
			Message: fmt.Sprintf("XOAUTH2 rejected: %v", err),
			Err:     err,
		}
	}

	cred.SetAuthenticated(email)
	a.log.Debug(ctx, "xoauth2 accepted", "email", email, "client_id", clientID)

	return &imapSession{client: client}, nil
}

// lookupEmail resolves the account address from the OIDC userinfo endpoint.
func (a *OAuth2Authenticator) lookupEmail(ctx context.Context, tok *oauth2.Token) (string, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(tok))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.userinfoURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("userinfo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("userinfo request returned %s", resp.Status)
	}

	var info struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("decoding userinfo: %w", err)
	}
	if info.Email == "" {
		return "", fmt.Errorf("userinfo response has no email")
	}
	return info.Email, nil
}
