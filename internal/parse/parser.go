// Package parse turns raw credential input into uniform Credential records.
//
// Two input shapes are supported: multi-line "email:password" text and
// OAuth2 client secret JSON files. Malformed input never aborts parsing;
// each bad line or file is recorded as a Failure carrying enough of the
// original input to appear in the report.
package parse

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nhle/mailcheck/internal/model"
)

// Failure records one piece of input that could not be turned into a
// credential. It surfaces in the final report as a failed row.
type Failure struct {
	// Kind is the credential kind the input was meant to produce.
	Kind model.AuthKind

	// Raw is the offending line, or the file name for file-level failures.
	Raw string

	// Reason is a human-readable description of what was wrong.
	Reason string

	// Position is the zero-based slot the entry would have occupied in the
	// combined input order.
	Position int
}

// Output is the ordered outcome of parsing one batch of input.
type Output struct {
	Credentials []*model.Credential
	Failures    []Failure
}

// Total returns the number of input entries, valid or not.
func (o Output) Total() int {
	return len(o.Credentials) + len(o.Failures)
}

// next returns the next position in the combined input order.
func (o Output) next() int {
	return o.Total()
}

// clientSecretFile matches the layout of a client secret JSON download.
// Only the installed-application variant is recognized.
type clientSecretFile struct {
	Installed *model.ClientSecret `json:"installed"`
}

// Parser builds credentials from text and uploaded files.
type Parser struct{}

// New creates a Parser.
func New() *Parser {
	return &Parser{}
}

// Text parses multi-line "email:password" input, appending to out. Each
// non-empty line is split on the first colon; the password may itself
// contain colons. Lines with no colon or an empty or implausible email are
// recorded as failures and skipped.
func (p *Parser) Text(text string, out *Output) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		email, password, found := strings.Cut(line, ":")
		email = strings.TrimSpace(email)

		if !found {
			out.Failures = append(out.Failures, Failure{
				Kind:     model.AuthAppPassword,
				Raw:      line,
				Reason:   "expected email:password",
				Position: out.next(),
			})
			continue
		}
		if email == "" || !strings.Contains(email, "@") {
			out.Failures = append(out.Failures, Failure{
				Kind:     model.AuthAppPassword,
				Raw:      line,
				Reason:   fmt.Sprintf("%q is not an email address", email),
				Position: out.next(),
			})
			continue
		}

		out.Credentials = append(out.Credentials,
			model.NewAppPasswordCredential(email, strings.TrimSpace(password), out.next()))
	}
}

// File parses one OAuth2 client secret file, appending to out. A file that
// is not JSON, lacks the "installed" section, or is missing required fields
// is recorded as a failure; no token exchange is ever attempted for it.
func (p *Parser) File(name string, data []byte, out *Output) {
	var file clientSecretFile
	if err := json.Unmarshal(data, &file); err != nil {
		out.Failures = append(out.Failures, Failure{
			Kind:     model.AuthOAuth2,
			Raw:      name,
			Reason:   fmt.Sprintf("invalid JSON: %v", err),
			Position: out.next(),
		})
		return
	}

	if err := validateClientSecret(file.Installed); err != nil {
		out.Failures = append(out.Failures, Failure{
			Kind:     model.AuthOAuth2,
			Raw:      name,
			Reason:   err.Error(),
			Position: out.next(),
		})
		return
	}

	out.Credentials = append(out.Credentials,
		model.NewOAuth2Credential(file.Installed, name, out.next()))
}

// validateClientSecret checks the fields the OAuth2 flow depends on.
func validateClientSecret(cs *model.ClientSecret) error {
	if cs == nil {
		return fmt.Errorf("missing \"installed\" section in client secret")
	}

	switch {
	case cs.ClientID == "":
		return fmt.Errorf("client secret missing client_id")
	case cs.ClientSecret == "":
		return fmt.Errorf("client secret missing client_secret")
	case cs.AuthURI == "":
		return fmt.Errorf("client secret missing auth_uri")
	case cs.TokenURI == "":
		return fmt.Errorf("client secret missing token_uri")
	}

	for _, uri := range cs.RedirectURIs {
		if strings.HasPrefix(uri, "http://localhost") ||
			strings.HasPrefix(uri, "http://127.0.0.1") {
			return nil
		}
	}
	return fmt.Errorf("client secret has no loopback redirect URI")
}
