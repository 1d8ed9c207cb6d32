package session

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"MarketID/pkg/kit"
)

const (
	HeaderToken = "X-Session-Token"
	CookieName  = "sid"

	// SharedID is the single cart owner used when sessions are disabled.
	SharedID = "shared"
)

type ctxKey struct{}

func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// Middleware resolves the session of every request. The token is read
// from "Authorization: Bearer" first, then X-Session-Token, then the sid
// cookie. Requests without a valid one (missing, expired, or signed with
// another secret) get a fresh session. The current token is always echoed
// in X-Session-Token.
func Middleware(m *Manager, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := kit.BearerToken(r)
			if !ok {
				token = r.Header.Get(HeaderToken)
				ok = token != ""
			}
			if !ok {
				if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
					token, ok = c.Value, true
				}
			}

			var id string
			if ok {
				sid, claims, err := m.Parse(token)
				if err != nil {
					// Expired or foreign tokens start over with an empty cart.
					log.Debug("session token rejected, issuing a new one", zap.Error(err))
					ok = false
				} else {
					id = sid
					if fresh, renewed, err := m.Refresh(id, claims); err != nil {
						log.Warn("session refresh failed", zap.Error(err))
					} else if renewed {
						token = fresh
					}
				}
			}
			if !ok {
				sid, fresh, err := m.Issue()
				if err != nil {
					log.Error("session issue failed", zap.Error(err))
					kit.WriteFault(w, r, "Error starting session", err)
					return
				}
				id, token = sid, fresh
			}

			w.Header().Set(HeaderToken, token)
			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    token,
				Path:     "/",
				MaxAge:   int(m.TTL().Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})

			next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
		})
	}
}

// Shared puts every request in the same session, reproducing a single
// process-wide cart.
func Shared(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithID(r.Context(), SharedID)))
	})
}
