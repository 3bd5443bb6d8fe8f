// Package session manages the delegated TMDB sign-in handshake.
//
// The flow has three remote-visible steps: a request token is issued, the
// user approves it on the hosted TMDB page (a full navigation away from
// this application), and the approved token is exchanged for a session
// identifier. Only the session identifier is persisted; it survives
// restarts through the database slot.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultApprovalURL is the hosted TMDB approval page. The request token is
// appended to the path; the callback URL rides in the redirect_to param.
const DefaultApprovalURL = "https://www.themoviedb.org/authenticate"

// ErrCallbackDenied is returned by Complete when the callback parameters do
// not amount to an approval. The manager's state is left unchanged; the
// caller shows a terminal error and the user retries by signing in again.
var ErrCallbackDenied = errors.New("session: authorization was not approved or request token is missing")

// State is the position in the sign-in handshake.
type State int

const (
	Anonymous State = iota
	TokenRequested
	AwaitingApproval
	Authenticated
)

func (s State) String() string {
	switch s {
	case TokenRequested:
		return "token_requested"
	case AwaitingApproval:
		return "awaiting_approval"
	case Authenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// API is the slice of the TMDB client the manager needs.
type API interface {
	RequestToken(ctx context.Context) (string, error)
	CreateSession(ctx context.Context, requestToken string) (string, error)
}

// Slot is the durable single-value cell holding the session identifier.
type Slot interface {
	SessionID() (string, error)
	SaveSessionID(id string) error
	ClearSessionID() error
}

// Manager owns the in-memory session and its persisted copy. All
// transitions are serialized behind one mutex.
type Manager struct {
	api         API
	slot        Slot
	approvalURL string
	callbackURL string

	mu           sync.Mutex
	state        State
	requestToken string
	sessionID    string
}

// NewManager creates a Manager and rehydrates it from the durable slot: a
// persisted session id makes the manager Authenticated immediately, with
// no liveness check against the remote API. A revoked session is only
// discovered when a later authenticated call fails.
func NewManager(api API, slot Slot, callbackURL string) *Manager {
	m := &Manager{
		api:         api,
		slot:        slot,
		approvalURL: DefaultApprovalURL,
		callbackURL: callbackURL,
	}
	id, err := slot.SessionID()
	if err != nil {
		logrus.WithError(err).Warn("session: could not read persisted session id")
		return m
	}
	if id != "" {
		m.sessionID = id
		m.state = Authenticated
		logrus.Info("session: restored persisted session")
	}
	return m
}

// SetApprovalURL overrides the hosted approval page root. Used by tests.
func (m *Manager) SetApprovalURL(u string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.approvalURL = u
}

// Begin starts the handshake: it issues a request token (reusing one that
// is already pending) and returns the hosted approval URL to redirect the
// browser to. On failure the manager stays Anonymous.
func (m *Manager) Begin(ctx context.Context) (string, error) {
	m.mu.Lock()
	token := m.requestToken
	m.mu.Unlock()

	if token == "" {
		issued, err := m.api.RequestToken(ctx)
		if err != nil {
			return "", fmt.Errorf("begin sign-in: %w", err)
		}
		token = issued

		m.mu.Lock()
		m.requestToken = token
		m.state = TokenRequested
		m.mu.Unlock()
	}

	m.mu.Lock()
	m.state = AwaitingApproval
	redirect := fmt.Sprintf("%s/%s?redirect_to=%s", m.approvalURL, token, url.QueryEscape(m.callbackURL))
	m.mu.Unlock()

	return redirect, nil
}

// Complete finishes the handshake from the callback parameters. Only the
// exact pair (non-empty token, approved == "true") exchanges the token for
// a session id; the id is persisted and the manager becomes Authenticated.
// Any other combination returns ErrCallbackDenied without changing state.
func (m *Manager) Complete(ctx context.Context, requestToken, approved string) error {
	if requestToken == "" || approved != "true" {
		return ErrCallbackDenied
	}

	id, err := m.api.CreateSession(ctx, requestToken)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	m.mu.Lock()
	m.requestToken = ""
	m.sessionID = id
	m.state = Authenticated
	m.mu.Unlock()

	// A persist failure leaves the in-memory session usable; it just won't
	// survive a restart.
	if err := m.slot.SaveSessionID(id); err != nil {
		logrus.WithError(err).Error("session: could not persist session id")
	}
	return nil
}

// SignOut resets the session to empty/unauthenticated and clears the
// durable slot. It is idempotent and never fails; slot errors are logged.
func (m *Manager) SignOut() {
	m.mu.Lock()
	m.requestToken = ""
	m.sessionID = ""
	m.state = Anonymous
	m.mu.Unlock()

	if err := m.slot.ClearSessionID(); err != nil {
		logrus.WithError(err).Error("session: could not clear persisted session id")
	}
}

// State returns the current handshake state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SessionID returns the session identifier, or an empty string when not
// authenticated.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// RequestToken returns the pending request token, if any.
func (m *Manager) RequestToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestToken
}

// IsAuthenticated reports whether a session identifier exists.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == Authenticated && m.sessionID != ""
}
