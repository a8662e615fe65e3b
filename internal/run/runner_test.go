package run

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailcheck/internal/auth"
	"github.com/nhle/mailcheck/internal/count"
	"github.com/nhle/mailcheck/internal/logging"
	"github.com/nhle/mailcheck/internal/model"
	"github.com/nhle/mailcheck/internal/parse"
)

// fakeSession returns fixed counts for the inbox and sent folders.
type fakeSession struct {
	inbox, sent int
}

func (s *fakeSession) MessageCount(mailbox string) (int, error) {
	if mailbox == count.InboxFolder {
		return s.inbox, nil
	}
	return s.sent, nil
}

func (s *fakeSession) LatestMessage(string) (*auth.Activity, error) { return nil, nil }
func (s *fakeSession) Close() error                                 { return nil }

// fakeAuthenticator authenticates everything except emails listed in reject,
// while tracking how many checks overlap.
type fakeAuthenticator struct {
	kind   model.AuthKind
	reject map[string]bool
	delay  time.Duration

	mu      sync.Mutex
	active  int
	maxSeen int
}

func (a *fakeAuthenticator) Kind() model.AuthKind { return a.kind }

func (a *fakeAuthenticator) Authenticate(_ context.Context, cred *model.Credential) (auth.Session, error) {
	a.mu.Lock()
	a.active++
	if a.active > a.maxSeen {
		a.maxSeen = a.active
	}
	a.mu.Unlock()

	if a.delay > 0 {
		time.Sleep(a.delay)
	}

	a.mu.Lock()
	a.active--
	a.mu.Unlock()

	if a.reject[cred.DisplayID()] {
		cred.SetFailed()
		return nil, errors.New("authentication failed: invalid credentials")
	}
	cred.SetAuthenticated(cred.Email)
	return &fakeSession{inbox: 10, sent: 4}, nil
}

func testRunner(auths []auth.Authenticator, workers int) *Runner {
	counter := count.New(
		model.IMAPConfig{SentFolders: []string{"[Gmail]/Sent Mail"}},
		model.CheckConfig{},
		logging.Nop(),
	)
	return New(auths, counter, workers, logging.Nop())
}

func passwordInput(n int) parse.Output {
	var out parse.Output
	for i := 0; i < n; i++ {
		out.Credentials = append(out.Credentials,
			model.NewAppPasswordCredential(fmt.Sprintf("user%d@gmail.com", i), "pw", i))
	}
	return out
}

func TestRun_OneResultPerInputInOrder(t *testing.T) {
	input := passwordInput(5)
	input.Failures = append(input.Failures, parse.Failure{
		Kind:     model.AuthAppPassword,
		Raw:      "garbage-line",
		Reason:   "expected email:password",
		Position: 5,
	})

	r := testRunner([]auth.Authenticator{
		&fakeAuthenticator{kind: model.AuthAppPassword},
	}, 3)

	results := r.Run(context.Background(), input)
	require.Len(t, results, 6)
	for i, res := range results {
		assert.Equal(t, i, res.Position)
	}

	assert.True(t, results[0].IsSuccess())
	assert.Equal(t, 10, results[0].InboxCount)
	assert.Equal(t, 4, results[0].SentCount)

	last := results[5]
	assert.Equal(t, model.ResultFailed, last.Status)
	assert.Equal(t, "garbage-line", last.Email)
	assert.Contains(t, last.ErrorMessage, "parse error")
}

func TestRun_FailedCredentialDoesNotAbortBatch(t *testing.T) {
	input := passwordInput(3)
	r := testRunner([]auth.Authenticator{
		&fakeAuthenticator{
			kind:   model.AuthAppPassword,
			reject: map[string]bool{"user1@gmail.com": true},
		},
	}, 2)

	results := r.Run(context.Background(), input)
	require.Len(t, results, 3)

	assert.True(t, results[0].IsSuccess())
	assert.False(t, results[1].IsSuccess())
	assert.Contains(t, results[1].ErrorMessage, "authentication failed")
	assert.True(t, results[2].IsSuccess())
}

func TestRun_PasswordConcurrencyIsBounded(t *testing.T) {
	authn := &fakeAuthenticator{kind: model.AuthAppPassword, delay: 20 * time.Millisecond}
	r := testRunner([]auth.Authenticator{authn}, 2)

	results := r.Run(context.Background(), passwordInput(6))
	require.Len(t, results, 6)
	assert.LessOrEqual(t, authn.maxSeen, 2)
	assert.GreaterOrEqual(t, authn.maxSeen, 1)
}

func TestRun_OAuthIsSerialized(t *testing.T) {
	authn := &fakeAuthenticator{kind: model.AuthOAuth2, delay: 15 * time.Millisecond}
	r := testRunner([]auth.Authenticator{authn}, 8)

	var input parse.Output
	for i := 0; i < 4; i++ {
		input.Credentials = append(input.Credentials, model.NewOAuth2Credential(
			&model.ClientSecret{ClientID: fmt.Sprintf("client-%d", i)},
			fmt.Sprintf("secret%d.json", i), i))
	}

	results := r.Run(context.Background(), input)
	require.Len(t, results, 4)
	assert.Equal(t, 1, authn.maxSeen)
}

func TestRun_MixedKindsKeepInputOrder(t *testing.T) {
	var input parse.Output
	input.Credentials = append(input.Credentials,
		model.NewAppPasswordCredential("a@gmail.com", "pw", 0),
		model.NewOAuth2Credential(&model.ClientSecret{ClientID: "c1"}, "s.json", 1),
		model.NewAppPasswordCredential("b@gmail.com", "pw", 2),
	)

	r := testRunner([]auth.Authenticator{
		&fakeAuthenticator{kind: model.AuthAppPassword},
		&fakeAuthenticator{kind: model.AuthOAuth2},
	}, 4)

	results := r.Run(context.Background(), input)
	require.Len(t, results, 3)
	assert.Equal(t, "a@gmail.com", results[0].Email)
	assert.Equal(t, model.AuthOAuth2, results[1].AuthKind)
	assert.Equal(t, "b@gmail.com", results[2].Email)
}

func TestRun_CanceledContextStillYieldsAllResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := testRunner([]auth.Authenticator{
		&fakeAuthenticator{kind: model.AuthAppPassword},
	}, 2)

	results := r.Run(ctx, passwordInput(4))
	require.Len(t, results, 4)
	for _, res := range results {
		assert.Equal(t, model.ResultFailed, res.Status)
		assert.Contains(t, res.ErrorMessage, "canceled before processing")
	}
}

func TestRun_UnknownKindFails(t *testing.T) {
	r := testRunner(nil, 1)

	results := r.Run(context.Background(), passwordInput(1))
	require.Len(t, results, 1)
	assert.Contains(t, results[0].ErrorMessage, "unsupported auth kind")
}

func TestStart_DeliversProgressThenDone(t *testing.T) {
	r := testRunner([]auth.Authenticator{
		&fakeAuthenticator{kind: model.AuthAppPassword},
	}, 1)

	cmd := r.Start(context.Background(), passwordInput(2))
	require.NotNil(t, cmd)

	deadline := time.After(5 * time.Second)
	var done DoneMsg
	for {
		gotDone := false
		select {
		case <-deadline:
			t.Fatal("no DoneMsg before deadline")
		default:
		}

		switch msg := cmd().(type) {
		case ProgressMsg:
			assert.Equal(t, 2, msg.Total)
			assert.LessOrEqual(t, msg.Completed, 2)
		case DoneMsg:
			done = msg
			gotDone = true
		default:
			t.Fatalf("unexpected message type %T", msg)
		}
		if gotDone {
			break
		}
		cmd = r.WaitForEvent()
	}

	require.Len(t, done.Results, 2)
	assert.Equal(t, 2, done.Summary.Succeeded)
}
