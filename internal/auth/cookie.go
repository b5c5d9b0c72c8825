package auth

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultCookieName = "cgm_session"
	DefaultCookieTTL  = 24 * time.Hour
)

// CookieSessionPayload is the identity claim kept in the browser. It is not
// signed: handlers must re-resolve it against the system of record before
// any privileged action.
type CookieSessionPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// SessionPresenceChecker answers whether a request carries a well-formed
// session cookie. Implementations must not touch the system of record.
type SessionPresenceChecker interface {
	HasSession(r *http.Request) bool
}

// CookieStore reads and writes the session cookie.
type CookieStore struct {
	name   string
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewCookieStore(name string, ttl time.Duration, secure bool) *CookieStore {
	if name == "" {
		name = DefaultCookieName
	}
	if ttl <= 0 {
		ttl = DefaultCookieTTL
	}
	return &CookieStore{name: name, ttl: ttl, secure: secure, now: time.Now}
}

func (c *CookieStore) Name() string { return c.name }

// Set writes payload to the response as an HttpOnly cookie on path /.
func (c *CookieStore) Set(w http.ResponseWriter, payload CookieSessionPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    url.QueryEscape(string(raw)),
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(c.ttl / time.Second),
		Expires:  c.now().Add(c.ttl),
	})
	return nil
}

// Get returns the payload carried by r, or nil when the cookie is absent or
// cannot be decoded.
func (c *CookieStore) Get(r *http.Request) *CookieSessionPayload {
	cookie, err := r.Cookie(c.name)
	if err != nil || cookie.Value == "" {
		return nil
	}
	return decodePayload(cookie.Value)
}

// HasSession implements SessionPresenceChecker.
func (c *CookieStore) HasSession(r *http.Request) bool {
	return c.Get(r) != nil
}

// Delete expires the session cookie.
func (c *CookieStore) Delete(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}

func decodePayload(value string) *CookieSessionPayload {
	raw, err := url.QueryUnescape(value)
	if err != nil {
		return nil
	}

	var payload CookieSessionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil
	}
	payload.ID = strings.TrimSpace(payload.ID)
	if payload.ID == "" {
		return nil
	}
	return &payload
}
