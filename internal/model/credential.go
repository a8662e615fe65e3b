package model

import "time"

// AuthKind identifies how a credential authenticates against the mail server.
type AuthKind string

const (
	AuthAppPassword AuthKind = "app_password"
	AuthOAuth2      AuthKind = "oauth2"
)

// CredentialStatus tracks a credential through the processing pipeline.
type CredentialStatus string

const (
	CredentialPending       CredentialStatus = "pending"
	CredentialAuthenticated CredentialStatus = "authenticated"
	CredentialFailed        CredentialStatus = "failed"
)

// ClientSecret is the "installed application" section of an OAuth2 client
// secret file as issued by the Google Cloud console.
type ClientSecret struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	AuthURI      string   `json:"auth_uri"`
	TokenURI     string   `json:"token_uri"`
	RedirectURIs []string `json:"redirect_uris"`
}

// Credential is a single account check requested by the user. It is created
// by the parser, mutated by the authenticator, and discarded once the
// corresponding Result exists.
type Credential struct {
	Kind   AuthKind
	Status CredentialStatus

	// Email is the account address. Empty for OAuth2 credentials until the
	// authenticator discovers it from the token.
	Email string

	// Password holds the app password for AuthAppPassword credentials.
	Password string

	// Secret holds the parsed client secret for AuthOAuth2 credentials.
	Secret *ClientSecret

	// SourceFile is the uploaded file name an OAuth2 credential came from.
	SourceFile string

	// Position is the credential's zero-based place in the combined input,
	// used to restore input order after concurrent processing.
	Position int

	CreatedAt time.Time
}

// NewAppPasswordCredential creates a pending password credential.
func NewAppPasswordCredential(email, password string, position int) *Credential {
	return &Credential{
		Kind:      AuthAppPassword,
		Status:    CredentialPending,
		Email:     email,
		Password:  password,
		Position:  position,
		CreatedAt: time.Now(),
	}
}

// NewOAuth2Credential creates a pending OAuth2 credential from a parsed
// client secret. The account email is unknown until authentication.
func NewOAuth2Credential(secret *ClientSecret, sourceFile string, position int) *Credential {
	return &Credential{
		Kind:       AuthOAuth2,
		Status:     CredentialPending,
		Secret:     secret,
		SourceFile: sourceFile,
		Position:   position,
		CreatedAt:  time.Now(),
	}
}

// DisplayID returns the identifier shown for this credential in progress
// output: the email when known, otherwise the OAuth2 client ID.
func (c *Credential) DisplayID() string {
	if c.Email != "" {
		return c.Email
	}
	if c.Kind == AuthOAuth2 && c.Secret != nil && c.Secret.ClientID != "" {
		return c.Secret.ClientID
	}
	return "unknown"
}

// SetAuthenticated marks the credential authenticated, recording the
// discovered email for OAuth2 credentials.
func (c *Credential) SetAuthenticated(email string) {
	c.Status = CredentialAuthenticated
	if email != "" {
		c.Email = email
	}
}

// SetFailed marks the credential failed.
func (c *Credential) SetFailed() {
	c.Status = CredentialFailed
}
