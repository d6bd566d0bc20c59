package handlers

import (
	"net/http"

	"sales-kpi-dashboard/internal/config"
	"sales-kpi-dashboard/internal/observability"
	"sales-kpi-dashboard/internal/services"
)

// SessionManager maps the session cookie onto the in-memory session store.
type SessionManager struct {
	store      *services.SessionStore
	cookieName string
	secure     bool
}

func NewSessionManager(store *services.SessionStore, cfg config.SessionConfig) *SessionManager {
	return &SessionManager{
		store:      store,
		cookieName: cfg.CookieName,
		secure:     cfg.CookieSecure,
	}
}

// Resolve returns the caller's session, creating one and setting the cookie
// when the request carries no known session id. It must run before anything
// is written to w. The returned request carries the session id for logging.
func (m *SessionManager) Resolve(w http.ResponseWriter, r *http.Request) (*services.Session, *http.Request) {
	var id string
	if c, err := r.Cookie(m.cookieName); err == nil {
		id = c.Value
	}

	sess, created := m.store.GetOrCreate(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     m.cookieName,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			Secure:   m.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess, r.WithContext(observability.WithSessionID(r.Context(), sess.ID))
}

func (m *SessionManager) Count() int {
	return m.store.Len()
}
