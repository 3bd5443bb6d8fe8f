package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	token        string
	tokenErr     error
	tokenCalls   int
	sessionID    string
	sessionErr   error
	sessionCalls int
	gotToken     string
}

func (f *fakeAPI) RequestToken(context.Context) (string, error) {
	f.tokenCalls++
	return f.token, f.tokenErr
}

func (f *fakeAPI) CreateSession(_ context.Context, requestToken string) (string, error) {
	f.sessionCalls++
	f.gotToken = requestToken
	return f.sessionID, f.sessionErr
}

type fakeSlot struct {
	id       string
	saveErr  error
	clearErr error
}

func (f *fakeSlot) SessionID() (string, error) { return f.id, nil }
func (f *fakeSlot) SaveSessionID(id string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.id = id
	return nil
}
func (f *fakeSlot) ClearSessionID() error {
	if f.clearErr != nil {
		return f.clearErr
	}
	f.id = ""
	return nil
}

func TestBeginIssuesTokenOnce(t *testing.T) {
	api := &fakeAPI{token: "tok-1"}
	m := NewManager(api, &fakeSlot{}, "http://127.0.0.1:8080/auth/callback")

	redirect, err := m.Begin(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, api.tokenCalls)
	assert.Equal(t, "tok-1", m.RequestToken())
	assert.Equal(t, AwaitingApproval, m.State())
	assert.Contains(t, redirect, "/tok-1?")
	assert.Contains(t, redirect, "redirect_to=http%3A%2F%2F127.0.0.1%3A8080%2Fauth%2Fcallback")

	// A second Begin reuses the pending token.
	_, err = m.Begin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, api.tokenCalls)
}

func TestBeginFailureStaysAnonymous(t *testing.T) {
	api := &fakeAPI{tokenErr: errors.New("remote down")}
	m := NewManager(api, &fakeSlot{}, "http://localhost/cb")

	_, err := m.Begin(context.Background())
	require.Error(t, err)
	assert.Equal(t, Anonymous, m.State())
	assert.Empty(t, m.RequestToken())
}

func TestCompleteApproved(t *testing.T) {
	api := &fakeAPI{token: "tok-1", sessionID: "sess-9"}
	slot := &fakeSlot{}
	m := NewManager(api, slot, "http://localhost/cb")
	_, err := m.Begin(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.Complete(context.Background(), "tok-1", "true"))

	assert.True(t, m.IsAuthenticated())
	assert.Equal(t, "sess-9", m.SessionID())
	assert.Equal(t, "sess-9", slot.id, "session id must be persisted")
	assert.Empty(t, m.RequestToken(), "request token is cleared after exchange")
	assert.Equal(t, "tok-1", api.gotToken)
}

func TestCompleteDeniedCombinations(t *testing.T) {
	cases := []struct {
		name     string
		token    string
		approved string
	}{
		{"missing token", "", "true"},
		{"explicit denial", "tok-1", "false"},
		{"missing flag", "tok-1", ""},
		{"non-literal flag", "tok-1", "TRUE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := &fakeAPI{sessionID: "sess-9"}
			m := NewManager(api, &fakeSlot{}, "http://localhost/cb")

			err := m.Complete(context.Background(), tc.token, tc.approved)

			assert.ErrorIs(t, err, ErrCallbackDenied)
			assert.False(t, m.IsAuthenticated())
			assert.Equal(t, 0, api.sessionCalls, "no exchange without approval")
		})
	}
}

func TestCompleteExchangeFailure(t *testing.T) {
	api := &fakeAPI{sessionErr: errors.New("token expired")}
	m := NewManager(api, &fakeSlot{}, "http://localhost/cb")

	err := m.Complete(context.Background(), "tok-1", "true")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCallbackDenied)
	assert.False(t, m.IsAuthenticated())
}

func TestSignOutAlwaysResets(t *testing.T) {
	api := &fakeAPI{token: "tok-1", sessionID: "sess-9"}
	slot := &fakeSlot{}
	m := NewManager(api, slot, "http://localhost/cb")
	_, _ = m.Begin(context.Background())
	require.NoError(t, m.Complete(context.Background(), "tok-1", "true"))
	require.True(t, m.IsAuthenticated())

	m.SignOut()

	assert.Equal(t, Anonymous, m.State())
	assert.Empty(t, m.SessionID())
	assert.Empty(t, m.RequestToken())
	assert.Empty(t, slot.id, "durable slot must be cleared")

	// Idempotent, even with a failing slot.
	slot.clearErr = errors.New("disk gone")
	m.SignOut()
	assert.Equal(t, Anonymous, m.State())
}

func TestRehydrationFromSlot(t *testing.T) {
	slot := &fakeSlot{id: "sess-persisted"}
	m := NewManager(&fakeAPI{}, slot, "http://localhost/cb")

	// No liveness check: a persisted id alone means authenticated.
	assert.True(t, m.IsAuthenticated())
	assert.Equal(t, "sess-persisted", m.SessionID())
}

func TestRehydrationEmptySlot(t *testing.T) {
	m := NewManager(&fakeAPI{}, &fakeSlot{}, "http://localhost/cb")
	assert.False(t, m.IsAuthenticated())
	assert.Equal(t, Anonymous, m.State())
}

func TestPersistFailureKeepsInMemorySession(t *testing.T) {
	api := &fakeAPI{sessionID: "sess-9"}
	slot := &fakeSlot{saveErr: errors.New("readonly fs")}
	m := NewManager(api, slot, "http://localhost/cb")

	require.NoError(t, m.Complete(context.Background(), "tok-1", "true"))
	assert.True(t, m.IsAuthenticated(), "session stays usable; it just won't survive a restart")
}
