package gatekeeper

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cgm/internal/auth"
)

var testProtected = []string{"/dashboard", "/casos", "/usuarios", "/clientes/:path*"}

func TestClassify(t *testing.T) {
	table := NewTable("/login", testProtected)

	tests := []struct {
		path string
		want PathClass
	}{
		{"/login", PublicPath},
		{"/login/", PublicPath},
		{"/login/reset", UnmatchedPath},
		{"/dashboard", ProtectedPath},
		{"/dashboard/", ProtectedPath},
		{"/dashboard/analista", ProtectedPath},
		{"/dashboards", UnmatchedPath},
		{"/casos/123/editar", ProtectedPath},
		{"/clientes", ProtectedPath},
		{"/clientes/9/casos/3", ProtectedPath},
		{"/clientesx", UnmatchedPath},
		{"/", UnmatchedPath},
		{"/api/casos", UnmatchedPath},
		{"/healthz", UnmatchedPath},
		{"/Dashboard", UnmatchedPath},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, table.Classify(tt.path))
		})
	}
}

func TestClassifyRootWildcard(t *testing.T) {
	table := NewTable("/login", []string{"/:path*"})
	assert.Equal(t, ProtectedPath, table.Classify("/"))
	assert.Equal(t, ProtectedPath, table.Classify("/anything/below"))
	assert.Equal(t, PublicPath, table.Classify("/login"))
}

func TestEntries(t *testing.T) {
	table := NewTable("/login", []string{" /casos/ ", "", "/clientes/:path*"})
	assert.Equal(t, []string{"/casos", "/clientes/:path*"}, table.Entries())
}

func TestDecide(t *testing.T) {
	g := New(NewTable("/login", testProtected), nil, "/login", "/dashboard", nil)

	tests := []struct {
		name       string
		path       string
		hasSession bool
		want       Decision
	}{
		{"login with session", "/login", true, Decision{PublicPath, RedirectToLanding, "/dashboard"}},
		{"login without session", "/login", false, Decision{PublicPath, Allow, ""}},
		{"protected without session", "/usuarios", false, Decision{ProtectedPath, RedirectToLogin, "/login"}},
		{"protected with session", "/usuarios", true, Decision{ProtectedPath, Allow, ""}},
		{"unmatched without session", "/public/info", false, Decision{UnmatchedPath, Allow, ""}},
		{"unmatched with session", "/public/info", true, Decision{UnmatchedPath, Allow, ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.Decide(tt.path, tt.hasSession))
		})
	}
}

type presence bool

func (p presence) HasSession(*http.Request) bool { return bool(p) }

func serve(t *testing.T, checker auth.SessionPresenceChecker, req *http.Request) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})
	g := New(NewTable("/login", testProtected), checker, "/login", "/dashboard", nil)
	rec := httptest.NewRecorder()
	g.Middleware(next).ServeHTTP(rec, req)
	return rec, reached
}

func TestMiddlewareRedirectsToLogin(t *testing.T) {
	rec, reached := serve(t, presence(false), httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.False(t, reached)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestMiddlewareRedirectsAwayFromLogin(t *testing.T) {
	rec, reached := serve(t, presence(true), httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.False(t, reached)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

func TestMiddlewareRedirectsFormPostsWithSeeOther(t *testing.T) {
	rec, reached := serve(t, presence(true), httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.False(t, reached)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	rec, reached = serve(t, presence(false), httptest.NewRequest(http.MethodPost, "/casos/7", nil))
	assert.False(t, reached)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec, _ = serve(t, presence(true), httptest.NewRequest(http.MethodHead, "/login", nil))
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
}

func TestMiddlewareNeverRedirectsUnmatched(t *testing.T) {
	for _, path := range []string{"/", "/healthz", "/api/usuarios", "/static/app.css", "/loginx"} {
		for _, has := range []bool{true, false} {
			rec, reached := serve(t, presence(has), httptest.NewRequest(http.MethodGet, path, nil))
			assert.True(t, reached, "path %s session %v", path, has)
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	}
}

func TestMiddlewareUsesCookiePresenceOnly(t *testing.T) {
	cookies := auth.NewCookieStore("cgm_session", time.Hour, false)

	seed := httptest.NewRecorder()
	// The id does not exist anywhere: the gatekeeper must not care.
	require.NoError(t, cookies.Set(seed, auth.CookieSessionPayload{ID: "00000000-0000-0000-0000-000000000000", Email: "x@example.com"}))

	req := httptest.NewRequest(http.MethodGet, "/usuarios", nil)
	for _, c := range seed.Result().Cookies() {
		req.AddCookie(c)
	}
	rec, reached := serve(t, cookies, req)
	assert.True(t, reached)
	assert.Equal(t, http.StatusOK, rec.Code)

	malformed := httptest.NewRequest(http.MethodGet, "/usuarios", nil)
	malformed.AddCookie(&http.Cookie{Name: "cgm_session", Value: url.QueryEscape(`{"id":`)})
	rec, reached = serve(t, cookies, malformed)
	assert.False(t, reached)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
}
