package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/kurokana/SiTeJo-Web/internal/identity"
	"github.com/kurokana/SiTeJo-Web/internal/models"
	"github.com/kurokana/SiTeJo-Web/internal/utils"
)

const secret = "test-secret"

func token(t *testing.T, role models.Role) string {
	t.Helper()
	tok, err := utils.SignJWT(secret, models.User{ID: "u-" + string(role), Name: "n", Role: role}, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func protected(roles ...models.Role) http.Handler {
	r := chi.NewRouter()
	r.Use(WithAuth(zerolog.Nop(), secret))
	r.With(RequireAuth).Get("/any", func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.CurrentUser(r.Context())
		w.Write([]byte(id.ID))
	})
	r.With(RequireRoles(roles...)).Get("/role", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

func TestAuthGate(t *testing.T) {
	h := protected(models.RoleAdmin)
	cases := []struct {
		name   string
		path   string
		setup  func(*http.Request)
		status int
	}{
		{"anonymous", "/any", func(*http.Request) {}, http.StatusUnauthorized},
		{"bearer", "/any", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token(t, models.RoleStudent)) }, http.StatusOK},
		{"cookie", "/any", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookie, Value: token(t, models.RoleLecturer)}) }, http.StatusOK},
		{"garbage", "/any", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"role anonymous", "/role", func(*http.Request) {}, http.StatusUnauthorized},
		{"role denied", "/role", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token(t, models.RoleStudent)) }, http.StatusForbidden},
		{"role allowed", "/role", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token(t, models.RoleAdmin)) }, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			tc.setup(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.status, rec.Body.String())
			}
		})
	}
}

func TestBrokenCookieCleared(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/any", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "expired"})
	rec := httptest.NewRecorder()
	protected().ServeHTTP(rec, req)

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("broken session cookie not cleared")
	}
}

func TestRecoverer(t *testing.T) {
	h := Recoverer(zerolog.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRoutePatternLabel(t *testing.T) {
	r := chi.NewRouter()
	var got string
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req)
			got = routePattern(req)
		})
	})
	r.Post("/api/tickets/{id}/approve", func(http.ResponseWriter, *http.Request) {})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/tickets/5f1c/approve", nil))
	if got != "/api/tickets/{id}/approve" {
		t.Fatalf("pattern = %q", got)
	}
}
