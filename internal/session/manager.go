package session

import (
	"context"
	"net/http"
	"time"
)

type contextKey struct{}

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// Manager binds Store entries to browser cookies.
type Manager struct {
	store  *Store
	cookie CookieConfig
}

func NewManager(store *Store, cookie CookieConfig) *Manager {
	if cookie.Name == "" {
		cookie.Name = "tracker_session"
	}
	return &Manager{store: store, cookie: cookie}
}

// Store exposes the underlying session table.
func (m *Manager) Store() *Store {
	return m.store
}

// Load returns the session named by the request cookie, starting a new one
// when the cookie is missing or stale.
func (m *Manager) Load(w http.ResponseWriter, r *http.Request) *Session {
	if c, err := r.Cookie(m.cookie.Name); err == nil && c.Value != "" {
		if sess, ok := m.store.Get(c.Value); ok {
			return &sess
		}
	}
	sess := m.store.Create()
	m.writeCookie(w, sess.ID)
	return &sess
}

// Save persists changes made to sess during the request.
func (m *Manager) Save(sess *Session) {
	m.store.Save(*sess)
}

// Renew swaps the session to a new ID, used when its privilege changes.
func (m *Manager) Renew(w http.ResponseWriter, sess *Session) {
	*sess = m.store.Rotate(*sess)
	m.writeCookie(w, sess.ID)
}

// End destroys the session and expires the cookie.
func (m *Manager) End(w http.ResponseWriter, sess *Session) {
	m.store.Destroy(sess.ID)
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Middleware loads the session into the request context for every request.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := m.Load(w, r)
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), sess)))
	})
}

func (m *Manager) writeCookie(w http.ResponseWriter, id string) {
	c := &http.Cookie{
		Name:     m.cookie.Name,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if m.cookie.MaxAge > 0 {
		c.MaxAge = int(m.cookie.MaxAge.Seconds())
	}
	http.SetCookie(w, c)
}

// NewContext returns a copy of ctx carrying sess.
func NewContext(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

// FromContext returns the session carried by ctx, or nil.
func FromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(contextKey{}).(*Session)
	return sess
}
