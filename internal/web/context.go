package web

import (
	"context"
	"net/http"
	"time"

	"github.com/JonMunkholm/vizboard/internal/core"
	"github.com/JonMunkholm/vizboard/internal/logging"
)

type sessionKey struct{}

func withSession(ctx context.Context, sess *core.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// sessionFrom returns the session attached by withSessionCookie.
func sessionFrom(ctx context.Context) *core.Session {
	sess, _ := ctx.Value(sessionKey{}).(*core.Session)
	return sess
}

// withSessionCookie resolves the visitor's session from the cookie, creating
// one when the cookie is missing or names an evicted session, and attaches it
// to the request context and log attributes.
func (s *Server) withSessionCookie(next http.Handler) http.Handler {
	name := s.cfg.Session.CookieName
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(name); err == nil {
			id = c.Value
		}

		sess := s.service.EnsureSession(id)
		if sess.ID != id {
			http.SetCookie(w, &http.Cookie{
				Name:     name,
				Value:    sess.ID,
				Path:     "/",
				MaxAge:   int(s.cfg.Session.TTL / time.Second),
				HttpOnly: true,
				Secure:   s.cfg.Session.SecureCookie,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := withSession(r.Context(), sess)
		ctx = logging.ContextWithAttrs(ctx, "session_id", sess.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
