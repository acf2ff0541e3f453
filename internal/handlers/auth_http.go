package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/kurokana/SiTeJo-Web/internal/identity"
	"github.com/kurokana/SiTeJo-Web/internal/middleware"
	"github.com/kurokana/SiTeJo-Web/internal/service"
	"github.com/kurokana/SiTeJo-Web/internal/utils"
)

type AuthHTTP struct {
	svc          *service.AuthService
	log          zerolog.Logger
	secureCookie bool
}

func NewAuthHTTP(s *service.AuthService, log zerolog.Logger, secureCookie bool) *AuthHTTP {
	return &AuthHTTP{svc: s, log: log, secureCookie: secureCookie}
}

// POST /api/auth/register
func (h *AuthHTTP) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.Registration
		if err := utils.Decode(r, &in); err != nil {
			utils.Fail(w, h.log, err)
			return
		}
		u, err := h.svc.Register(r.Context(), in)
		if err != nil {
			utils.Fail(w, h.log, err)
			return
		}
		utils.JSON(w, http.StatusCreated, u)
	}
}

// POST /api/auth/login
// Sets the httpOnly session cookie and returns the token for API clients.
func (h *AuthHTTP) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := utils.Decode(r, &in); err != nil {
			utils.Fail(w, h.log, err)
			return
		}

		token, u, err := h.svc.Login(r.Context(), in.Email, in.Password)
		if errors.Is(err, service.ErrInvalidCredentials) {
			utils.Error(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if err != nil {
			utils.Fail(w, h.log, err)
			return
		}

		middleware.SetSession(w, token, int(h.svc.TTL().Seconds()), h.secureCookie)
		utils.JSON(w, http.StatusOK, map[string]any{"token": token, "user": u})
	}
}

// POST /api/auth/logout
func (h *AuthHTTP) Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.ClearSession(w)
		utils.Message(w, http.StatusOK, "logged out")
	}
}

// GET /api/auth/me
func (h *AuthHTTP) Me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.CurrentUser(r.Context())
		u, err := h.svc.Me(r.Context(), id.ID)
		if err != nil {
			utils.Fail(w, h.log, err)
			return
		}
		utils.JSON(w, http.StatusOK, u)
	}
}

// PUT /api/auth/me
func (h *AuthHTTP) UpdateMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.ProfileInput
		if err := utils.Decode(r, &in); err != nil {
			utils.Fail(w, h.log, err)
			return
		}
		id, _ := identity.CurrentUser(r.Context())
		u, err := h.svc.UpdateProfile(r.Context(), id.ID, in)
		if err != nil {
			utils.Fail(w, h.log, err)
			return
		}
		utils.JSON(w, http.StatusOK, u)
	}
}

// PUT /api/auth/change-password
func (h *AuthHTTP) ChangePassword() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Current string `json:"current_password"`
			New     string `json:"new_password"`
		}
		if err := utils.Decode(r, &in); err != nil {
			utils.Fail(w, h.log, err)
			return
		}
		id, _ := identity.CurrentUser(r.Context())
		if err := h.svc.ChangePassword(r.Context(), id.ID, in.Current, in.New); err != nil {
			utils.Fail(w, h.log, err)
			return
		}
		utils.Message(w, http.StatusOK, "password changed")
	}
}
