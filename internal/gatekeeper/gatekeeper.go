// Package gatekeeper is the coarse perimeter filter that runs before routing.
// It only looks at whether a well-formed session cookie is present and never
// consults the user record; role checks belong to the handlers.
package gatekeeper

import (
	"net/http"

	"go.uber.org/zap"

	"cgm/internal/auth"
	"cgm/internal/metrics"
)

// Action is what the gatekeeper does with a request.
type Action int

const (
	Allow Action = iota
	RedirectToLogin
	RedirectToLanding
)

func (a Action) String() string {
	switch a {
	case RedirectToLogin:
		return "redirect_login"
	case RedirectToLanding:
		return "redirect_landing"
	default:
		return "allow"
	}
}

type Decision struct {
	Class    PathClass
	Action   Action
	Location string
}

type Gatekeeper struct {
	table       *Table
	checker     auth.SessionPresenceChecker
	loginPath   string
	landingPath string
	log         *zap.Logger
}

func New(table *Table, checker auth.SessionPresenceChecker, loginPath, landingPath string, log *zap.Logger) *Gatekeeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gatekeeper{
		table:       table,
		checker:     checker,
		loginPath:   normalize(loginPath),
		landingPath: normalize(landingPath),
		log:         log,
	}
}

// Decide applies the transition table for a path and session presence.
func (g *Gatekeeper) Decide(path string, hasSession bool) Decision {
	class := g.table.Classify(path)
	d := Decision{Class: class, Action: Allow}

	switch class {
	case PublicPath:
		if hasSession {
			d.Action = RedirectToLanding
			d.Location = g.landingPath
		}
	case ProtectedPath:
		if !hasSession {
			d.Action = RedirectToLogin
			d.Location = g.loginPath
		}
	}
	return d
}

// Middleware redirects when Decide says so and passes the request through
// untouched otherwise. GET and HEAD get 307; other methods get 303 so the
// browser follows with a GET instead of replaying the body.
func (g *Gatekeeper) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := g.Decide(r.URL.Path, g.checker.HasSession(r))
		metrics.GatekeeperDecisions.WithLabelValues(d.Class.String(), d.Action.String()).Inc()

		if d.Action == Allow {
			next.ServeHTTP(w, r)
			return
		}

		g.log.Debug("gatekeeper redirect",
			zap.String("path", r.URL.Path),
			zap.String("class", d.Class.String()),
			zap.String("location", d.Location),
		)
		http.Redirect(w, r, d.Location, redirectStatus(r.Method))
	})
}

func redirectStatus(method string) int {
	if method == http.MethodGet || method == http.MethodHead {
		return http.StatusTemporaryRedirect
	}
	return http.StatusSeeOther
}
