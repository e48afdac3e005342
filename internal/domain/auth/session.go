package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"skirent/internal/domain/user"
)

var (
	ErrTokenRequired   = errors.New("auth: token is required")
	ErrUserRequired    = errors.New("auth: user is required")
	ErrTTLInvalid      = errors.New("auth: ttl must be positive")
	ErrSessionNotFound = errors.New("auth: session not found")
)

// Token is an opaque bearer token. The value itself is the session key;
// nothing is encoded inside it.
type Token string

// Session ties a token to a user for a bounded time. Roles are copied in
// at login so requests do not hit the user store on every call.
type Session struct {
	Token     Token
	UserID    user.ID
	Roles     []user.Role
	CreatedAt time.Time
	ExpiresAt time.Time
}

type CreateSessionParams struct {
	Token  Token
	UserID user.ID
	Roles  []user.Role
	TTL    time.Duration
	Now    time.Time
}

func (p CreateSessionParams) validate() (Token, error) {
	token := Token(strings.TrimSpace(string(p.Token)))
	switch {
	case token == "":
		return "", ErrTokenRequired
	case strings.TrimSpace(string(p.UserID)) == "":
		return "", ErrUserRequired
	case p.TTL <= 0:
		return "", ErrTTLInvalid
	}
	return token, nil
}

// NewSession validates the params and stamps the expiry. Times are
// normalized to UTC so Expired comparisons stay location-free.
func NewSession(params CreateSessionParams) (*Session, error) {
	token, err := params.validate()
	if err != nil {
		return nil, err
	}
	issued := params.Now
	if issued.IsZero() {
		issued = time.Now()
	}
	issued = issued.UTC()
	return &Session{
		Token:     token,
		UserID:    params.UserID,
		Roles:     append([]user.Role(nil), params.Roles...),
		CreatedAt: issued,
		ExpiresAt: issued.Add(params.TTL),
	}, nil
}

// Expired reports whether the session is past its expiry at the given
// instant. A zero instant means now.
func (s *Session) Expired(at time.Time) bool {
	if at.IsZero() {
		at = time.Now()
	}
	return !s.ExpiresAt.After(at.UTC())
}

// SessionStore persists sessions. DeleteByUser backs the logout-everywhere
// flow and admin-driven deactivation.
type SessionStore interface {
	Save(ctx context.Context, session *Session) error
	Get(ctx context.Context, token Token) (*Session, error)
	Delete(ctx context.Context, token Token) error
	DeleteByUser(ctx context.Context, userID user.ID) error
}
