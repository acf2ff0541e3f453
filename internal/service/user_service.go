package service

import (
	"context"
	"strings"

	"github.com/kurokana/SiTeJo-Web/internal/apperr"
	"github.com/kurokana/SiTeJo-Web/internal/lifecycle"
	"github.com/kurokana/SiTeJo-Web/internal/models"
	"github.com/kurokana/SiTeJo-Web/internal/repository"
	"github.com/kurokana/SiTeJo-Web/internal/utils"
)

// UserService is the admin's account management.
type UserService struct {
	users     repository.UserRepository
	lecturers *LecturerDirectory
}

func NewUserService(users repository.UserRepository, lecturers *LecturerDirectory) *UserService {
	return &UserService{users: users, lecturers: lecturers}
}

func (s *UserService) List(ctx context.Context, f repository.UserFilter) ([]models.User, repository.Pagination, error) {
	f = f.Normalize()
	items, total, err := s.users.List(ctx, f)
	if err != nil {
		return nil, repository.Pagination{}, err
	}
	return items, repository.NewPagination(f.Page, f.PerPage, total), nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// NewUser is an admin-provisioned account. Its Role shadows the
// embedded RequestedRole in JSON.
type NewUser struct {
	Registration
	Role string `json:"role"`
}

func (s *UserService) Create(ctx context.Context, in NewUser) (*models.User, error) {
	role, ok := models.ParseRole(in.Role)
	if !ok {
		return nil, apperr.Field("role", "unknown role")
	}
	u := &models.User{
		Name:       strings.TrimSpace(in.Name),
		Email:      normalizeEmail(in.Email),
		Role:       role,
		Identifier: strings.TrimSpace(in.Identifier),
		Phone:      strings.TrimSpace(in.Phone),
		Active:     true,
	}
	if err := validateAccount(u, in.Password, in.PasswordConfirmation); err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Repository(err, "hash password")
	}
	if err := s.users.Create(ctx, u, hash); err != nil {
		return nil, err
	}
	s.changed(u.Role)
	return u, nil
}

// EnsureAdmin creates the bootstrap admin unless the email is already
// registered. It reports whether an account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	_, _, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	switch {
	case err == nil:
		return false, nil
	case !apperr.IsKind(err, apperr.KindNotFound):
		return false, err
	}
	_, err = s.Create(ctx, NewUser{
		Registration: Registration{Name: "Administrator", Email: email, Password: password},
		Role:         string(models.RoleAdmin),
	})
	return err == nil, err
}

func (s *UserService) Update(ctx context.Context, id string, in ProfileInput) (*models.User, error) {
	upd, err := in.update()
	if err != nil {
		return nil, err
	}
	u, err := s.users.UpdateProfile(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	s.changed(u.Role)
	return u, nil
}

func (s *UserService) ChangeRole(ctx context.Context, actor lifecycle.Actor, id, role string) (*models.User, error) {
	r, ok := models.ParseRole(role)
	if !ok {
		return nil, apperr.Field("role", "unknown role")
	}
	if id == actor.ID && r != models.RoleAdmin {
		return nil, apperr.Validation("admins cannot demote themselves")
	}
	u, err := s.users.UpdateRole(ctx, id, r)
	if err != nil {
		return nil, err
	}
	s.lecturers.Invalidate()
	return u, nil
}

func (s *UserService) SetActive(ctx context.Context, actor lifecycle.Actor, id string, active bool) (*models.User, error) {
	if id == actor.ID && !active {
		return nil, apperr.Validation("admins cannot deactivate themselves")
	}
	u, err := s.users.SetActive(ctx, id, active)
	if err != nil {
		return nil, err
	}
	s.changed(u.Role)
	return u, nil
}

func (s *UserService) Delete(ctx context.Context, actor lifecycle.Actor, id string) error {
	if id == actor.ID {
		return apperr.Validation("admins cannot delete themselves")
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.lecturers.Invalidate()
	return nil
}

func (s *UserService) changed(r models.Role) {
	if r == models.RoleLecturer {
		s.lecturers.Invalidate()
	}
}
