package auth

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type codeOutcome struct {
	code string
	err  error
}

func startWaitForCode(t *testing.T, state string) (string, chan codeOutcome) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	got := make(chan codeOutcome, 1)
	go func() {
		code, err := waitForCode(context.Background(), listener, state)
		got <- codeOutcome{code: code, err: err}
	}()

	return "http://" + listener.Addr().String(), got
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func TestWaitForCode_IgnoresStrayRequests(t *testing.T) {
	base, got := startWaitForCode(t, "state-123")

	// A favicon probe must not settle the flow.
	resp := get(t, base+"/favicon.ico")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	select {
	case o := <-got:
		t.Fatalf("flow settled on a stray request: %+v", o)
	case <-time.After(100 * time.Millisecond):
	}

	resp = get(t, base+"/?state=state-123&code=4/abc")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	select {
	case o := <-got:
		require.NoError(t, o.err)
		assert.Equal(t, "4/abc", o.code)
	case <-time.After(2 * time.Second):
		t.Fatal("redirect did not settle the flow")
	}
}

func TestWaitForCode_StateMismatch(t *testing.T) {
	base, got := startWaitForCode(t, "state-123")

	resp := get(t, base+"/?state=wrong&code=4/abc")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	select {
	case o := <-got:
		require.Error(t, o.err)
		assert.Contains(t, o.err.Error(), "state mismatch")
	case <-time.After(2 * time.Second):
		t.Fatal("mismatch did not settle the flow")
	}
}

func TestWaitForCode_Denied(t *testing.T) {
	base, got := startWaitForCode(t, "state-123")

	get(t, base+"/?state=state-123&error=access_denied")

	select {
	case o := <-got:
		require.Error(t, o.err)
		assert.Contains(t, o.err.Error(), "access_denied")
	case <-time.After(2 * time.Second):
		t.Fatal("denial did not settle the flow")
	}
}

func TestWaitForCode_ContextCanceled(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = waitForCode(ctx, listener, "state-123")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
