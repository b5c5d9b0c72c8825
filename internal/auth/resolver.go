package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cgm/internal/db"
	"cgm/internal/metrics"
)

const defaultLookupTimeout = 3 * time.Second

// ErrSessionUnavailable means the user record could not be read. The caller
// has no session for this request but the cookie itself may still be good.
var ErrSessionUnavailable = errors.New("session lookup unavailable")

// UserLookup fetches the authoritative user record by id.
type UserLookup interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (db.User, error)
}

// SessionAuthorizer resolves the authoritative session for a request. Every
// privileged operation goes through it; the cookie alone is never enough.
type SessionAuthorizer interface {
	SessionFromRequest(r *http.Request) *UserSession
}

// Resolver joins the cookie payload against the user record.
type Resolver struct {
	cookies *CookieStore
	users   UserLookup
	timeout time.Duration
	log     *zap.Logger
}

func NewResolver(cookies *CookieStore, users UserLookup, timeout time.Duration, log *zap.Logger) *Resolver {
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{cookies: cookies, users: users, timeout: timeout, log: log}
}

// SessionFromRequest implements SessionAuthorizer.
func (r *Resolver) SessionFromRequest(req *http.Request) *UserSession {
	return r.Resolve(req.Context(), r.cookies.Get(req))
}

// Authenticate is SessionFromRequest for callers that must tell an outage
// apart from a missing or stale identity. It returns (nil, nil) when the
// request carries no usable identity and wraps ErrSessionUnavailable when
// the lookup failed.
func (r *Resolver) Authenticate(req *http.Request) (*UserSession, error) {
	return r.resolve(req.Context(), r.cookies.Get(req))
}

// Resolve returns the session for payload, or nil when there is no payload,
// the user no longer exists, or the lookup fails. Failures are logged and
// never returned: a broken lookup means no access.
func (r *Resolver) Resolve(ctx context.Context, payload *CookieSessionPayload) *UserSession {
	session, _ := r.resolve(ctx, payload)
	return session
}

func (r *Resolver) resolve(ctx context.Context, payload *CookieSessionPayload) (*UserSession, error) {
	if payload == nil {
		metrics.SessionResolutions.WithLabelValues(metrics.OutcomeNoCookie).Inc()
		return nil, nil
	}

	id, err := uuid.Parse(payload.ID)
	if err != nil {
		r.log.Info("session cookie carries a malformed user id")
		metrics.SessionResolutions.WithLabelValues(metrics.OutcomeStale).Inc()
		return nil, nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	user, err := r.users.GetUserByID(lookupCtx, id)
	switch {
	case errors.Is(err, db.ErrUserNotFound):
		r.log.Info("session cookie references unknown user", zap.String("user_id", id.String()))
		metrics.SessionResolutions.WithLabelValues(metrics.OutcomeStale).Inc()
		return nil, nil
	case err != nil:
		r.log.Warn("session lookup failed", zap.String("user_id", id.String()), zap.Error(err))
		metrics.SessionResolutions.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}

	metrics.SessionResolutions.WithLabelValues(metrics.OutcomeResolved).Inc()
	return sessionFromUser(user), nil
}
