package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kurokana/SiTeJo-Web/internal/identity"
	"github.com/kurokana/SiTeJo-Web/internal/utils"
)

const SessionCookie = "session"

// WithAuth resolves the caller from the session cookie or a bearer
// token. Requests without valid credentials pass through anonymous.
func WithAuth(log zerolog.Logger, secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				tok        string
				fromCookie bool
			)
			if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
				tok = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
			} else if c, err := r.Cookie(SessionCookie); err == nil {
				tok, fromCookie = c.Value, true
			}

			if tok == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := utils.ParseJWT(secret, tok)
			if err != nil {
				log.Debug().Err(err).Msg("rejected session token")
				if fromCookie {
					// stop the browser from sending a broken cookie
					ClearSession(w)
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := identity.WithIdentity(r.Context(), identity.Identity{
				ID: claims.UserID, Name: claims.Name, Role: claims.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func SetSession(w http.ResponseWriter, token string, maxAge int, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

func ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
