package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mercavia/tienda-backend/pkg/config"
	"github.com/mercavia/tienda-backend/pkg/logger"
)

type guestSessionStore interface {
	TouchGuestSession(ctx context.Context, sessionID string, ttl time.Duration) error
	GuestSessionExists(ctx context.Context, sessionID string) (bool, error)
}

// GuestSession gives anonymous visitors a cookie-backed cart session. An
// existing cookie is refreshed in Redis on every request so active carts
// outlive the TTL; a missing cookie is minted on the spot. A cookie whose
// session Redis no longer knows (expired, or retired after a cart merge) is
// replaced rather than revived, so clients cannot fix their own session ids.
// Failures to touch Redis never block the request.
func GuestSession(cfg config.SessionConfig, store guestSessionStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			sessionID := ""
			if cookie, err := r.Cookie(cfg.GuestCookieName); err == nil {
				if _, parseErr := uuid.Parse(cookie.Value); parseErr == nil {
					sessionID = cookie.Value
				}
			}

			if sessionID != "" && store != nil {
				// On a lookup error keep the presented id; the request
				// must not fail because Redis blinked.
				if live, err := store.GuestSessionExists(ctx, sessionID); err == nil && !live {
					sessionID = ""
				}
			}

			if sessionID == "" {
				sessionID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.GuestCookieName,
					Value:    sessionID,
					Path:     "/",
					MaxAge:   int(cfg.GuestTTL.Seconds()),
					HttpOnly: true,
					Secure:   cfg.CookieSecure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			if store != nil {
				if err := store.TouchGuestSession(ctx, sessionID, cfg.GuestTTL); err != nil && logg != nil {
					logCtx := logg.WithSessionID(ctx, sessionID)
					logg.Warn(logCtx, "guest session touch failed")
				}
			}

			ctx = WithGuestSession(ctx, sessionID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
