package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/nhle/mailcheck/internal/logging"
	"github.com/nhle/mailcheck/internal/model"
)

// memTokenStore is an in-memory TokenStore for tests.
type memTokenStore struct {
	tokens map[string]*oauth2.Token
	saves  int
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{tokens: map[string]*oauth2.Token{}}
}

func (s *memTokenStore) Load(clientID string) (*oauth2.Token, error) {
	tok, ok := s.tokens[clientID]
	if !ok {
		return nil, ErrNoToken
	}
	return tok, nil
}

func (s *memTokenStore) Save(clientID string, tok *oauth2.Token) error {
	s.saves++
	s.tokens[clientID] = tok
	return nil
}

func (s *memTokenStore) Delete(clientID string) error {
	delete(s.tokens, clientID)
	return nil
}

func oauthCredential() *model.Credential {
	return model.NewOAuth2Credential(&model.ClientSecret{
		ClientID:     "client-1",
		ClientSecret: "shhh",
		AuthURI:      "https://accounts.google.com/o/oauth2/auth",
		TokenURI:     "https://oauth2.googleapis.com/token",
		RedirectURIs: []string{"http://localhost"},
	}, "client_secret.json", 0)
}

func TestOAuth2_NoStoredTokenFailsWithoutPrompting(t *testing.T) {
	a := NewOAuth2Authenticator(model.IMAPConfig{}, newMemTokenStore(), logging.Nop())

	cred := oauthCredential()
	session, err := a.Authenticate(context.Background(), cred)

	assert.Nil(t, session)
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
	assert.True(t, errors.Is(err, ErrNoToken))
	assert.Contains(t, err.Error(), "mailcheck authorize")
	assert.Equal(t, model.CredentialFailed, cred.Status)
}

func TestOAuth2_WrongCredentialKindRejected(t *testing.T) {
	a := NewOAuth2Authenticator(model.IMAPConfig{}, newMemTokenStore(), logging.Nop())

	_, err := a.Authenticate(context.Background(),
		model.NewAppPasswordCredential("a@gmail.com", "pw", 0))
	require.Error(t, err)
	assert.False(t, IsAuthError(err))
}

func TestOAuth2_EmailDiscoveredFromUserinfo(t *testing.T) {
	userinfo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer ya29.valid", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"email": "carol@gmail.com"}`)
	}))
	defer userinfo.Close()

	store := newMemTokenStore()
	store.tokens["client-1"] = &oauth2.Token{
		AccessToken: "ya29.valid",
		Expiry:      time.Now().Add(time.Hour),
	}

	// No IMAP endpoint is available in tests; the dial failure after email
	// discovery proves the userinfo step ran and succeeded.
	a := NewOAuth2Authenticator(
		model.IMAPConfig{Host: "127.0.0.1", Port: "1", DialTimeoutSec: 1},
		store, logging.Nop(),
	)
	a.userinfoURL = userinfo.URL

	cred := oauthCredential()
	_, err := a.Authenticate(context.Background(), cred)
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
	assert.Contains(t, err.Error(), "connection failed")
	assert.Contains(t, err.Error(), "carol@gmail.com")
}

func TestOAuth2_UserinfoFailureIsAuthError(t *testing.T) {
	userinfo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer userinfo.Close()

	store := newMemTokenStore()
	store.tokens["client-1"] = &oauth2.Token{
		AccessToken: "ya29.valid",
		Expiry:      time.Now().Add(time.Hour),
	}

	a := NewOAuth2Authenticator(model.IMAPConfig{}, store, logging.Nop())
	a.userinfoURL = userinfo.URL

	_, err := a.Authenticate(context.Background(), oauthCredential())
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
	assert.Contains(t, err.Error(), "resolving account email")
}

func TestAuthError_Message(t *testing.T) {
	err := &AuthError{
		Kind:    model.AuthAppPassword,
		Email:   "a@gmail.com",
		Message: "LOGIN rejected",
		Err:     errors.New("NO invalid credentials"),
	}
	assert.Equal(t, "authentication failed (app_password) for a@gmail.com: LOGIN rejected", err.Error())
	assert.True(t, IsAuthError(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsAuthError(errors.New("plain")))
}
