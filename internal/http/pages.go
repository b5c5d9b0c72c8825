package http

import (
	"net/http"

	"go.uber.org/zap"

	"cgm/internal/auth"
	"cgm/internal/policy"
)

type pageView struct {
	Title     string
	Operation policy.Operation
	Session   *auth.UserSession
	Scope     policy.Scope
}

type deniedView struct {
	Title       string
	Session     *auth.UserSession
	LandingPath string
}

type unavailableView struct {
	Title string
}

type scopeResponse struct {
	Operation policy.Operation `json:"operation"`
	Role      auth.Role        `json:"role"`
	Scope     policy.Scope     `json:"scope"`
}

// requirePage resolves the session and checks op before a page renders.
// A missing or stale identity clears the cookie so the gatekeeper cannot
// bounce the browser back to the landing page. A lookup outage keeps the
// cookie and answers 503 for this request only.
func (s *Server) requirePage(op policy.Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := s.deps.Sessions.Authenticate(r)
			if err != nil {
				w.Header().Set("Retry-After", "5")
				s.render(w, http.StatusServiceUnavailable, "unavailable", unavailableView{
					Title: "Servicio no disponible",
				})
				return
			}
			switch s.deps.Policies.Authorize(op, session) {
			case policy.Unauthenticated:
				s.deps.Cookies.Delete(w)
				http.Redirect(w, r, s.cfg.LoginPath, http.StatusTemporaryRedirect)
				return
			case policy.Forbidden:
				s.log.Info("page access denied",
					zap.String("operation", string(op)),
					zap.String("user_id", session.ID),
					zap.String("role", string(session.Role)),
				)
				s.render(w, http.StatusForbidden, "denied", deniedView{
					Title:       "Acceso denegado",
					Session:     session,
					LandingPath: s.cfg.DefaultLandingPath,
				})
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), session)))
		})
	}
}

// requireAPI is requirePage for JSON endpoints.
func (s *Server) requireAPI(op policy.Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := s.deps.Sessions.SessionFromRequest(r)
			switch s.deps.Policies.Authorize(op, session) {
			case policy.Unauthenticated:
				s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
				return
			case policy.Forbidden:
				s.writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), session)))
		})
	}
}

func (s *Server) handlePage(op policy.Operation, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := auth.SessionFromContext(r.Context())
		s.render(w, http.StatusOK, "page", pageView{
			Title:     title,
			Operation: op,
			Session:   session,
			Scope:     policy.ScopeFor(session),
		})
	}
}

func (s *Server) handleScope(op policy.Operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := auth.SessionFromContext(r.Context())
		s.writeJSON(w, http.StatusOK, scopeResponse{
			Operation: op,
			Role:      auth.RoleOf(session),
			Scope:     policy.ScopeFor(session),
		})
	}
}
