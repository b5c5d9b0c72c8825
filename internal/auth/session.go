package auth

import (
	"context"
	"strings"

	"cgm/internal/db"
)

// contextKey prevents collisions with other context values.
type contextKey string

const sessionKey contextKey = "cgm:session"

// UserSession is the authoritative identity resolved from the user record.
// It lives for a single request and is never cached.
type UserSession struct {
	ID             string   `json:"id"`
	Email          string   `json:"email"`
	Role           Role     `json:"role"`
	AssignedStates []string `json:"assignedStates"`
}

// HasState reports whether state is among the assigned case states.
func (s *UserSession) HasState(state string) bool {
	if s == nil {
		return false
	}
	for _, st := range s.AssignedStates {
		if st == state {
			return true
		}
	}
	return false
}

func sessionFromUser(u db.User) *UserSession {
	return &UserSession{
		ID:             u.ID.String(),
		Email:          u.Email,
		Role:           Role(u.Role),
		AssignedStates: normalizeStates(u.AssignedStates),
	}
}

// normalizeStates trims, drops blanks and duplicates, and keeps first-seen
// order. The result is never nil.
func normalizeStates(states []string) []string {
	out := make([]string, 0, len(states))
	seen := make(map[string]struct{}, len(states))
	for _, st := range states {
		st = strings.TrimSpace(st)
		if st == "" {
			continue
		}
		if _, dup := seen[st]; dup {
			continue
		}
		seen[st] = struct{}{}
		out = append(out, st)
	}
	return out
}

// WithSession stores the session on the request context.
func WithSession(ctx context.Context, s *UserSession) context.Context {
	if s == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext retrieves the authoritative session from context, when available.
func SessionFromContext(ctx context.Context) (*UserSession, bool) {
	s, ok := ctx.Value(sessionKey).(*UserSession)
	return s, ok
}
