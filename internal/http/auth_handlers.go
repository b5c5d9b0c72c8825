package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"cgm/internal/auth"
	"cgm/internal/notify"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool              `json:"success"`
	User    *auth.UserSession `json:"user,omitempty"`
	Error   string            `json:"error,omitempty"`
}

type sessionResponse struct {
	Authenticated bool              `json:"authenticated"`
	Role          auth.Role         `json:"role"`
	User          *auth.UserSession `json:"user,omitempty"`
}

type loginView struct {
	Title     string
	Error     string
	Email     string
	LoginPath string
}

func (s *Server) loginRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "ip:" + peerAddress(r)
		if !s.limiter.Allow(key, time.Now()) {
			w.Header().Set("Retry-After", "1")
			if strings.HasPrefix(r.URL.Path, "/api/") {
				s.writeJSON(w, http.StatusTooManyRequests, loginResponse{Error: "too many login attempts"})
				return
			}
			s.renderLogin(w, http.StatusTooManyRequests, loginView{Error: "Demasiados intentos. Espere un momento."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleLogin is the JSON login endpoint. It accepts a JSON body or a form.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
			s.writeJSON(w, http.StatusBadRequest, loginResponse{Error: "invalid request body"})
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			s.writeJSON(w, http.StatusBadRequest, loginResponse{Error: "invalid request body"})
			return
		}
		req.Email = r.PostFormValue("email")
		req.Password = r.PostFormValue("password")
	}

	session, status, err := s.login(w, r, req)
	if err != nil {
		s.writeJSON(w, status, loginResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, loginResponse{Success: true, User: session})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.deps.Cookies.Delete(w)
	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleSession reports the authoritative session. Callers without one get
// the guest role.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	session := s.deps.Sessions.SessionFromRequest(r)
	s.writeJSON(w, http.StatusOK, sessionResponse{
		Authenticated: session != nil,
		Role:          auth.RoleOf(session),
		User:          session,
	})
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.renderLogin(w, http.StatusOK, loginView{})
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderLogin(w, http.StatusBadRequest, loginView{Error: "Solicitud inválida."})
		return
	}
	req := loginRequest{Email: r.PostFormValue("email"), Password: r.PostFormValue("password")}

	if _, status, err := s.login(w, r, req); err != nil {
		msg := "Correo o contraseña incorrectos."
		if status == http.StatusServiceUnavailable {
			msg = "El servicio no está disponible. Intente más tarde."
		}
		s.renderLogin(w, status, loginView{Error: msg, Email: req.Email})
		return
	}
	http.Redirect(w, r, s.cfg.DefaultLandingPath, http.StatusSeeOther)
}

func (s *Server) handleLogoutForm(w http.ResponseWriter, r *http.Request) {
	s.deps.Cookies.Delete(w)
	http.Redirect(w, r, s.cfg.LoginPath, http.StatusSeeOther)
}

// login verifies credentials, sets the cookie and returns the resolved
// session. On failure it returns the status code to answer with.
func (s *Server) login(w http.ResponseWriter, r *http.Request, req loginRequest) (*auth.UserSession, int, error) {
	payload, err := s.deps.Auth.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrMissingCredentials), errors.Is(err, auth.ErrInvalidCredentials):
		return nil, http.StatusUnauthorized, err
	case err != nil:
		s.log.Error("login failed", zap.Error(err))
		return nil, http.StatusServiceUnavailable, errors.New("login unavailable")
	}

	session := s.deps.Sessions.Resolve(r.Context(), payload)
	if session == nil {
		return nil, http.StatusServiceUnavailable, errors.New("login unavailable")
	}

	if err := s.deps.Cookies.Set(w, *payload); err != nil {
		s.log.Error("set session cookie", zap.Error(err))
		return nil, http.StatusInternalServerError, errors.New("could not create session")
	}

	if _, err := s.deps.Bus.Publish(session.ID, notify.Notification{
		Kind:  notify.KindSuccess,
		Title: "Sesión iniciada",
	}); err != nil {
		s.log.Debug("welcome notification dropped", zap.Error(err))
	}
	return session, http.StatusOK, nil
}

func (s *Server) renderLogin(w http.ResponseWriter, status int, view loginView) {
	view.Title = "Iniciar sesión"
	view.LoginPath = s.cfg.LoginPath
	s.render(w, status, "login", view)
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.log.Error("render template", zap.String("template", name), zap.Error(err))
	}
}
