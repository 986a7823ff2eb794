package www

import (
	"errors"
	"log"
	"net/http"
	"slices"

	"github.com/gorilla/sessions"

	"parttracker/store"
	"parttracker/tracking"
)

const sessionName = "parttracker-session"

func newSessionStore(secret string) *sessions.CookieStore {
	if secret == "" {
		secret = "parttracker-default-secret-change-me"
	}
	s := sessions.NewCookieStore([]byte(secret))
	s.Options.HttpOnly = true
	s.Options.Secure = false // shop-floor terminals use plain HTTP
	s.Options.SameSite = http.SameSiteLaxMode
	return s
}

// currentUser loads the session's user so permission changes apply immediately.
func (h *Handlers) currentUser(r *http.Request) *store.User {
	session, err := h.sessions.Get(r, sessionName)
	if err != nil {
		return nil
	}
	id, ok := session.Values["user_id"].(int64)
	if !ok || id == 0 {
		return nil
	}
	u, err := h.engine.Tracking().GetUser(r.Context(), id)
	if err != nil {
		return nil
	}
	return u
}

// actor returns the logged-in user's actor, or the anonymous actor.
func (h *Handlers) actor(r *http.Request) tracking.Actor {
	if u := h.currentUser(r); u != nil {
		return tracking.ActorFor(u)
	}
	return tracking.Actor{}
}

func (h *Handlers) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.currentUser(r) == nil {
			h.jsonError(w, "login required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requirePerm admits actors holding any of perms.
func (h *Handlers) requirePerm(perms ...tracking.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a := h.actor(r)
			if !slices.ContainsFunc(perms, a.Can) {
				h.jsonError(w, tracking.ErrPermission.Error(), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")

	user, err := h.engine.Tracking().Authenticate(r.Context(), username, password)
	if err != nil {
		if !errors.Is(err, tracking.ErrBadCredentials) {
			log.Printf("auth: login %q: %v", username, err)
		}
		h.writeErr(w, err)
		return
	}

	session, _ := h.sessions.Get(r, sessionName)
	session.Values["user_id"] = user.ID
	session.Values["username"] = user.Username
	if err := session.Save(r, w); err != nil {
		log.Printf("auth: session save error: %v", err)
	}
	h.jsonOK(w, user)
}

func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if u := h.currentUser(r); u != nil {
		if err := h.engine.Tracking().Logout(r.Context(), tracking.ActorFor(u)); err != nil {
			log.Printf("auth: logout %s: %v", u.Username, err)
		}
	}
	session, _ := h.sessions.Get(r, sessionName)
	delete(session.Values, "user_id")
	delete(session.Values, "username")
	session.Save(r, w)
	h.jsonOK(w, map[string]string{"status": "ok"})
}

func (h *Handlers) apiMe(w http.ResponseWriter, r *http.Request) {
	u := h.currentUser(r)
	if u == nil {
		h.jsonOK(w, map[string]any{"authenticated": false})
		return
	}
	h.jsonOK(w, map[string]any{"authenticated": true, "user": u})
}
