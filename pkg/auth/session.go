// Package auth holds the remote connectivity state of the process: whether a
// Google account is signed in and the token source used by remote calls.
package auth

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/timekeeper/pkg/model"
	"github.com/m-mizutani/timekeeper/pkg/utils/logging"
	"golang.org/x/oauth2"
)

type Status int

const (
	StatusSignedOut Status = iota
	StatusSignedIn
)

func (s Status) String() string {
	switch s {
	case StatusSignedIn:
		return "signed-in"
	default:
		return "signed-out"
	}
}

// TokenProvider obtains and revokes user tokens. adapter.OAuth implements it.
type TokenProvider interface {
	// Cached returns a stored token source without user interaction
	Cached(ctx context.Context) (oauth2.TokenSource, bool, error)
	// Consent runs the interactive consent flow
	Consent(ctx context.Context) (oauth2.TokenSource, error)
	// Profile fetches the signed-in user's profile
	Profile(ctx context.Context, ts oauth2.TokenSource) (*model.UserProfile, error)
	// Revoke invalidates the token and forgets it
	Revoke(ctx context.Context, ts oauth2.TokenSource) error
}

// SignInResult is the terminal result of a sign-in attempt. Exactly one of
// Profile and Err is set.
type SignInResult struct {
	Profile *model.UserProfile
	Err     error
}

// Session is the auth context passed to remote operations. It is created once
// per process.
type Session struct {
	provider TokenProvider

	mu      sync.RWMutex
	status  Status
	ts      oauth2.TokenSource
	profile *model.UserProfile
}

// New creates a signed-out session. A nil provider yields a session whose
// sign-in always fails with ErrAuthNotReady.
func New(provider TokenProvider) *Session {
	return &Session{provider: provider}
}

// Status returns the current connectivity state
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Profile returns the signed-in user, or nil when signed out
func (s *Session) Profile() *model.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// Ready returns ErrAuthNotReady unless the session is signed in
func (s *Session) Ready() error {
	if s.Status() != StatusSignedIn {
		return goerr.Wrap(model.ErrAuthNotReady, "sign in to Google before using remote storage")
	}
	return nil
}

// Token implements oauth2.TokenSource so remote clients can be built before
// sign-in completes.
func (s *Session) Token() (*oauth2.Token, error) {
	s.mu.RLock()
	ts := s.ts
	s.mu.RUnlock()

	if ts == nil {
		return nil, goerr.Wrap(model.ErrAuthNotReady, "no token available")
	}
	return ts.Token()
}

// Restore signs in silently from a stored token. It reports whether the
// session is now signed in.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	if s.provider == nil {
		return false, nil
	}

	ts, ok, err := s.provider.Cached(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	profile, err := s.provider.Profile(ctx, ts)
	if err != nil {
		logging.From(ctx).Warn("stored token could not be used", "error", err)
		return false, nil
	}

	s.signedIn(ts, profile)
	return true, nil
}

// SignIn starts the interactive consent flow. The returned channel delivers
// exactly one result and is then closed.
func (s *Session) SignIn(ctx context.Context) <-chan SignInResult {
	ch := make(chan SignInResult, 1)

	if s.provider == nil {
		ch <- SignInResult{Err: goerr.Wrap(model.ErrAuthNotReady, "google sign-in is not configured")}
		close(ch)
		return ch
	}

	go func() {
		defer close(ch)

		ts, err := s.provider.Consent(ctx)
		if err != nil {
			ch <- SignInResult{Err: goerr.Wrap(err, "failed to complete consent")}
			return
		}

		profile, err := s.provider.Profile(ctx, ts)
		if err != nil {
			ch <- SignInResult{Err: goerr.Wrap(err, "failed to get user profile")}
			return
		}

		s.signedIn(ts, profile)
		logging.From(ctx).Info("signed in", "name", profile.Name)
		ch <- SignInResult{Profile: profile}
	}()

	return ch
}

func (s *Session) signedIn(ts oauth2.TokenSource, profile *model.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ts = ts
	s.profile = profile
	s.status = StatusSignedIn
}

// SignOut revokes the token. The session is signed out even when the revoke
// call fails.
func (s *Session) SignOut(ctx context.Context) error {
	s.mu.Lock()
	ts := s.ts
	s.ts = nil
	s.profile = nil
	s.status = StatusSignedOut
	s.mu.Unlock()

	if s.provider == nil || ts == nil {
		return nil
	}
	if err := s.provider.Revoke(ctx, ts); err != nil {
		return goerr.Wrap(err, "failed to revoke token")
	}
	return nil
}
