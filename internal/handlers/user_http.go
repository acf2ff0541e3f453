package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/kurokana/SiTeJo-Web/internal/apperr"
	"github.com/kurokana/SiTeJo-Web/internal/models"
	"github.com/kurokana/SiTeJo-Web/internal/repository"
	"github.com/kurokana/SiTeJo-Web/internal/service"
	"github.com/kurokana/SiTeJo-Web/internal/utils"
)

type UserHTTP struct {
	svc       *service.UserService
	lecturers *service.LecturerDirectory
	log       zerolog.Logger
}

func NewUserHTTP(svc *service.UserService, lecturers *service.LecturerDirectory, log zerolog.Logger) *UserHTTP {
	return &UserHTTP{svc: svc, lecturers: lecturers, log: log}
}

// GET /api/users?search=&role=&active=&page=&per_page=
func (h *UserHTTP) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f := repository.UserFilter{
			Search:  utils.QueryString(q, "search"),
			Active:  utils.QueryBool(q, "active"),
			Page:    utils.QueryInt(q, "page", 1),
			PerPage: utils.QueryInt(q, "per_page", repository.DefaultPerPage),
		}
		if v := utils.QueryString(q, "role"); v != "" {
			role, ok := models.ParseRole(v)
			if !ok {
				utils.Fail(w, h.log, apperr.Field("role", "unknown role"))
				return
			}
			f.Role = role
		}
		items, page, err := h.svc.List(r.Context(), f)
		if err != nil {
			utils.Fail(w, h.log, err)
			return
		}
		utils.JSON(w, http.StatusOK, listResponse[models.User]{Items: items, Pagination: page})
	}
}

// POST /api/users
func (h *UserHTTP) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.NewUser
		if err := utils.Decode(r, &in); err != nil {
			utils.Fail(w, h.log, err)
			return
		}
		u, err := h.svc.Create(r.Context(), in)
		if err != nil {
			utils.Fail(w, h.log, err)
			return
		}
		utils.JSON(w, http.StatusCreated, u)
	}
}

// GET /api/users/{id}
func (h *UserHTTP) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			utils.Fail(w, h.log, err)
			return
		}
		utils.JSON(w, http.StatusOK, u)
	}
}

// PUT /api/users/{id}
func (h *UserHTTP) Update() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.ProfileInput
		if err := utils.Decode(r, &in); err != nil {
			utils.Fail(w, h.log, err)
			return
		}
		u, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), in)
		if err != nil {
			utils.Fail(w, h.log, err)
			return
		}
		utils.JSON(w, http.StatusOK, u)
	}
}

// PATCH /api/users/{id}/role
func (h *UserHTTP) UpdateRole() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Role string `json:"role"`
		}
		if err := utils.Decode(r, &in); err != nil {
			utils.Fail(w, h.log, err)
			return
		}
		u, err := h.svc.ChangeRole(r.Context(), actor(r), chi.URLParam(r, "id"), in.Role)
		if err != nil {
			utils.Fail(w, h.log, err)
			return
		}
		utils.JSON(w, http.StatusOK, u)
	}
}

// PATCH /api/users/{id}/active
func (h *UserHTTP) SetActive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Active *bool `json:"active"`
		}
		if err := utils.Decode(r, &in); err != nil {
			utils.Fail(w, h.log, err)
			return
		}
		if in.Active == nil {
			utils.Fail(w, h.log, apperr.Field("active", "active is required"))
			return
		}
		u, err := h.svc.SetActive(r.Context(), actor(r), chi.URLParam(r, "id"), *in.Active)
		if err != nil {
			utils.Fail(w, h.log, err)
			return
		}
		utils.JSON(w, http.StatusOK, u)
	}
}

// DELETE /api/users/{id}
func (h *UserHTTP) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.svc.Delete(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
			utils.Fail(w, h.log, err)
			return
		}
		utils.Message(w, http.StatusOK, "user deleted")
	}
}

// GET /api/lecturers
func (h *UserHTTP) Lecturers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := h.lecturers.List(r.Context())
		if err != nil {
			utils.Fail(w, h.log, err)
			return
		}
		utils.JSON(w, http.StatusOK, list)
	}
}
