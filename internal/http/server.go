package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"tracker/internal/auth"
	"tracker/internal/core"
	applog "tracker/internal/log"
	"tracker/internal/middleware/security"
	"tracker/internal/middleware/trace"
	"tracker/internal/services"
	"tracker/internal/session"
	appweb "tracker/web"
)

// DefaultStoreTimeout bounds each store call made while serving a request.
const DefaultStoreTimeout = 7 * time.Second

// TransactionService is what the handlers need from the service layer.
// *services.TransactionService satisfies it.
type TransactionService interface {
	Record(ctx context.Context, tx core.NewTransaction) (int64, error)
	Overview(ctx context.Context) (services.Overview, error)
	Remove(ctx context.Context, id int64) error
	Ready(ctx context.Context) error
}

// Options wires the server dependencies.
type Options struct {
	Addr         string
	Service      TransactionService
	Gate         *auth.Gate
	Sessions     *session.Manager
	Logger       *applog.Logger
	StoreTimeout time.Duration
}

type Server struct {
	http.Server
	templates    *template.Template
	svc          TransactionService
	gate         *auth.Gate
	sessions     *session.Manager
	logger       *applog.Logger
	storeTimeout time.Duration
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	timeout := opts.StoreTimeout
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}

	mux := http.NewServeMux()
	s := &Server{
		svc:          opts.Service,
		gate:         opts.Gate,
		sessions:     opts.Sessions,
		logger:       logger.WithComponent(applog.ComponentHTTP),
		storeTimeout: timeout,
	}

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.WarnContext(context.Background(), "Failed parsing templates", applog.FieldError, err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.WarnContext(context.Background(), "Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.Handle("/login", s.withSession(http.HandlerFunc(s.handleLogin)))
	mux.Handle("/logout", s.withSession(http.HandlerFunc(s.handleLogout)))
	mux.Handle("/", s.withSession(s.requireAuth(http.HandlerFunc(s.handleIndex))))
	mux.Handle("/transactions", s.withSession(s.requireAuth(http.HandlerFunc(s.handleCreateTransaction))))
	mux.Handle("/transactions/delete", s.withSession(s.requireAuth(http.HandlerFunc(s.handleDeleteTransaction))))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(logger, clientIP)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           tracer.Middleware(headers.Middleware(mux)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// withSession loads the browser session into the request context.
func (s *Server) withSession(next http.Handler) http.Handler {
	return s.sessions.Middleware(next)
}

// requireAuth stops every gated handler until the session has passed the
// access gate. Page loads are sent to the login form; form posts get a 401.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := session.FromContext(r.Context())
		if auth.Allowed(sess) {
			next.ServeHTTP(w, r)
			return
		}
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			redirect(w, r, "/login")
			return
		}
		s.render(w, r, http.StatusUnauthorized, "login.html", loginView{Error: "Please log in to continue."})
	})
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.svc.Ready(ctx); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
