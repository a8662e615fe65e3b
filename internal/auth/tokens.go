package auth

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/99designs/keyring"
	"golang.org/x/oauth2"
)

const keyringService = "mailcheck"

// ErrNoToken is returned when no token has been stored for a client ID.
var ErrNoToken = errors.New("no stored token")

// TokenStore persists OAuth2 tokens between the one-time authorize flow and
// later batch runs, keyed by OAuth2 client ID.
type TokenStore interface {
	Load(clientID string) (*oauth2.Token, error)
	Save(clientID string, tok *oauth2.Token) error
	Delete(clientID string) error
}

// KeyringTokenStore stores tokens in the OS keyring.
type KeyringTokenStore struct{}

// NewKeyringTokenStore creates a keyring-backed token store.
func NewKeyringTokenStore() *KeyringTokenStore {
	return &KeyringTokenStore{}
}

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: keyringService,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/mailcheck/tokens",
		FilePasswordFunc:         keyring.FixedStringPrompt("mailcheck-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Load retrieves the token stored for clientID. Returns ErrNoToken when
// none exists.
func (s *KeyringTokenStore) Load(clientID string) (*oauth2.Token, error) {
	ring, err := openKeyring()
	if err != nil {
		return nil, err
	}

	item, err := ring.Get(clientID)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("getting token for %q: %w", clientID, err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(item.Data, &tok); err != nil {
		return nil, fmt.Errorf("decoding stored token for %q: %w", clientID, err)
	}
	return &tok, nil
}

// Save stores the token for clientID.
func (s *KeyringTokenStore) Save(clientID string, tok *oauth2.Token) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encoding token for %q: %w", clientID, err)
	}

	if err := ring.Set(keyring.Item{Key: clientID, Data: data}); err != nil {
		return fmt.Errorf("storing token for %q: %w", clientID, err)
	}
	return nil
}

// Delete removes the token stored for clientID.
func (s *KeyringTokenStore) Delete(clientID string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	if err := ring.Remove(clientID); err != nil {
		return fmt.Errorf("deleting token for %q: %w", clientID, err)
	}
	return nil
}
