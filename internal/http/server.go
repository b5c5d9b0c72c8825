package http

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"cgm/internal/auth"
	"cgm/internal/config"
	"cgm/internal/gatekeeper"
	"cgm/internal/notify"
	"cgm/internal/policy"
)

//go:embed templates/*.html
var templateFS embed.FS

// Pinger reports whether the system of record is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SessionResolver resolves sessions from requests and from a freshly issued
// cookie payload. Authenticate reports lookup outages as an error.
type SessionResolver interface {
	auth.SessionAuthorizer
	Authenticate(r *http.Request) (*auth.UserSession, error)
	Resolve(ctx context.Context, payload *auth.CookieSessionPayload) *auth.UserSession
}

// Deps are the collaborators the server routes requests to.
type Deps struct {
	DB       Pinger
	Cookies  *auth.CookieStore
	Sessions SessionResolver
	Auth     *auth.Service
	Policies *policy.Table
	Gate     *gatekeeper.Gatekeeper
	Bus      *notify.Bus
}

type Server struct {
	cfg       config.Config
	router    chi.Router
	http      *http.Server
	deps      Deps
	templates *template.Template
	limiter   *rateLimiter
	upgrader  websocket.Upgrader
	log       *zap.Logger
}

func NewServer(cfg config.Config, deps Deps, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if deps.Cookies == nil || deps.Sessions == nil || deps.Auth == nil || deps.Policies == nil || deps.Gate == nil || deps.Bus == nil {
		return nil, errors.New("http server: missing dependency")
	}

	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	router := chi.NewRouter()
	router.Use(rememberPeer)
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(log))
	router.Use(middleware.Recoverer)

	origin := strings.TrimSuffix(cfg.FrontendURL, "/")
	if origin == "" {
		origin = "http://localhost:3000"
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{origin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Use(deps.Gate.Middleware)

	server := &Server{
		cfg:       cfg,
		router:    router,
		deps:      deps,
		templates: tmpl,
		limiter:   newRateLimiter(cfg.LoginRateLimitRPS),
		log:       log,
	}
	server.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     server.checkOrigin,
	}
	server.http = &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	server.registerRoutes()
	return server, nil
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Get(s.cfg.LoginPath, s.handleLoginPage)
	s.router.With(s.loginRateLimit).Post(s.cfg.LoginPath, s.handleLoginForm)
	s.router.Post("/logout", s.handleLogoutForm)

	pages := []struct {
		pattern string
		op      policy.Operation
		title   string
	}{
		{"/dashboard", policy.OpDashboard, "Panel principal"},
		{"/perfil", policy.OpPerfil, "Mi perfil"},
		{"/casos", policy.OpCasos, "Casos"},
		{"/casos/*", policy.OpCasos, "Caso"},
		{"/clientes", policy.OpClientes, "Clientes"},
		{"/clientes/{clientID}", policy.OpClientes, "Cliente"},
		{"/clientes/{clientID}/*", policy.OpClientes, "Cliente"},
		{"/usuarios", policy.OpUsuarios, "Usuarios"},
		{"/pagos", policy.OpPagos, "Pagos"},
		{"/baremos", policy.OpBaremos, "Baremos"},
		{"/aseguradoras", policy.OpAseguradoras, "Aseguradoras"},
		{"/auditoria", policy.OpAuditoria, "Auditoría médica"},
		{"/reportes", policy.OpReportes, "Reportes"},
	}
	for _, p := range pages {
		s.router.With(s.requirePage(p.op)).Get(p.pattern, s.handlePage(p.op, p.title))
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(s.loginRateLimit).Post("/login", s.handleLogin)
			r.Post("/logout", s.handleLogout)
			r.Get("/session", s.handleSession)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Use(s.requireAPI(policy.OpDashboard))
			r.Get("/", s.handleNotifications)
			r.Get("/ws", s.handleNotificationsWS)
			r.Post("/{notificationID}/dismiss", s.handleDismissNotification)
		})

		for _, op := range []policy.Operation{
			policy.OpDashboard, policy.OpPerfil, policy.OpCasos, policy.OpClientes,
			policy.OpUsuarios, policy.OpPagos, policy.OpBaremos, policy.OpAseguradoras,
			policy.OpAuditoria, policy.OpReportes,
		} {
			r.With(s.requireAPI(op)).Get("/"+string(op), s.handleScope(op))
		}
	})
}

// Handler exposes the routed handler, including the gatekeeper.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ok"
	if s.deps.DB != nil {
		if err := s.deps.DB.Ping(ctx); err != nil {
			s.log.Warn("health check ping failed", zap.Error(err))
			status = "degraded"
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if strings.EqualFold(origin, strings.TrimSuffix(s.cfg.FrontendURL, "/")) {
		return true
	}
	host := strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://")
	return strings.EqualFold(host, r.Host)
}

func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	s.writeJSON(w, code, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) Start() error {
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
