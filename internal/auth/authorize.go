package auth

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/nhle/mailcheck/internal/model"
)

// Authorize runs the one-time interactive authorization-code flow for a
// client secret and stores the obtained token in the token store, keyed by
// client ID. Batch runs never call this: they only consume stored tokens.
//
// The flow listens on an ephemeral loopback port, prints the consent URL to
// out, waits for the redirect, and exchanges the code. Returns the account
// email resolved from the new token.
func Authorize(ctx context.Context, secret *model.ClientSecret, tokens TokenStore, out io.Writer) (string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("starting loopback listener: %w", err)
	}
	defer listener.Close()

	conf := oauthConfig(secret)
	conf.RedirectURL = fmt.Sprintf("http://%s/", listener.Addr().String())

	state := uuid.NewString()
	authURL := conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)

	fmt.Fprintf(out, "Open this URL in a browser and approve access:\n\n  %s\n\n", authURL)
	fmt.Fprintf(out, "Waiting for the redirect on %s ...\n", conf.RedirectURL)

	code, err := waitForCode(ctx, listener, state)
	if err != nil {
		return "", err
	}

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchanging authorization code: %w", err)
	}

	if err := tokens.Save(secret.ClientID, tok); err != nil {
		return "", err
	}

	a := &OAuth2Authenticator{userinfoURL: defaultUserinfoURL}
	email, err := a.lookupEmail(ctx, tok)
	if err != nil {
		// The token is stored and usable; the email just could not be shown.
		return "", nil
	}
	return email, nil
}

// waitForCode serves a single redirect request on the listener and returns
// the authorization code once the state matches.
func waitForCode(ctx context.Context, listener net.Listener, state string) (string, error) {
	type outcome struct {
		code string
		err  error
	}
	done := make(chan outcome, 1)

	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("code") == "" && q.Get("error") == "" {
				// Browsers probe the loopback server for favicons and the
				// like; only the actual redirect settles the flow.
				http.NotFound(w, r)
				return
			}
			if q.Get("state") != state {
				http.Error(w, "state mismatch", http.StatusBadRequest)
				done <- outcome{err: fmt.Errorf("authorization state mismatch")}
				return
			}
			if errMsg := q.Get("error"); errMsg != "" {
				http.Error(w, "authorization denied", http.StatusBadRequest)
				done <- outcome{err: fmt.Errorf("authorization denied: %s", errMsg)}
				return
			}
			fmt.Fprintln(w, "Authorization received. You can close this window.")
			done <- outcome{code: q.Get("code")}
		}),
	}

	go func() { _ = server.Serve(listener) }()
	defer server.Close()

	select {
	case o := <-done:
		return o.code, o.err
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for authorization: %w", ctx.Err())
	}
}
