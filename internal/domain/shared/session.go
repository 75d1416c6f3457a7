package shared

import (
	"fmt"

	"github.com/google/uuid"
)

// SessionKind distinguishes signed-in customers from guests
type SessionKind string

const (
	SessionAuthenticated SessionKind = "authenticated"
	SessionGuest         SessionKind = "guest"
)

// MaxGuestSessionIDLength bounds client-supplied guest session ids
const MaxGuestSessionIDLength = 128

// Session identifies who a cart, order or recently-viewed list belongs to.
// It is resolved once per request at the HTTP boundary.
type Session struct {
	kind      SessionKind
	userID    uuid.UUID
	sessionID string
}

// Authenticated returns a session for a signed-in user
func Authenticated(userID uuid.UUID) Session {
	return Session{kind: SessionAuthenticated, userID: userID}
}

// Guest returns a session for an anonymous visitor identified by a client-held id
func Guest(sessionID string) (Session, error) {
	if sessionID == "" {
		return Session{}, NewDomainError("SESSION_REQUIRED", "Guest session id is required")
	}
	if len(sessionID) > MaxGuestSessionIDLength {
		return Session{}, NewDomainError("INVALID_SESSION", fmt.Sprintf("Guest session id exceeds %d characters", MaxGuestSessionIDLength))
	}
	return Session{kind: SessionGuest, sessionID: sessionID}, nil
}

// Kind returns the session kind
func (s Session) Kind() SessionKind {
	return s.kind
}

// IsZero reports whether the session was never resolved
func (s Session) IsZero() bool {
	return s.kind == ""
}

// IsAuthenticated reports whether the session belongs to a signed-in user
func (s Session) IsAuthenticated() bool {
	return s.kind == SessionAuthenticated
}

// IsGuest reports whether the session belongs to a guest
func (s Session) IsGuest() bool {
	return s.kind == SessionGuest
}

// UserID returns the user id; uuid.Nil for guests
func (s Session) UserID() uuid.UUID {
	return s.userID
}

// SessionID returns the guest session id; empty for authenticated sessions
func (s Session) SessionID() string {
	return s.sessionID
}

// OwnerKey returns a stable key for the session owner, used in cache keys and logs
func (s Session) OwnerKey() string {
	switch s.kind {
	case SessionAuthenticated:
		return "user:" + s.userID.String()
	case SessionGuest:
		return "guest:" + s.sessionID
	default:
		return "anonymous"
	}
}

// String implements fmt.Stringer
func (s Session) String() string {
	return s.OwnerKey()
}
