package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/kurokana/SiTeJo-Web/internal/apperr"
	"github.com/kurokana/SiTeJo-Web/internal/models"
	"github.com/kurokana/SiTeJo-Web/internal/repository"
	"github.com/kurokana/SiTeJo-Web/internal/utils"
)

// ErrInvalidCredentials is answered with 401 rather than an apperr kind.
var ErrInvalidCredentials = errors.New("invalid credentials")

const minPasswordLen = 8

type AuthService struct {
	users         repository.UserRepository
	sessionSecret string
	sessionTTL    time.Duration
}

func NewAuthService(users repository.UserRepository, sessionSecret string, ttl time.Duration) *AuthService {
	return &AuthService{users: users, sessionSecret: sessionSecret, sessionTTL: ttl}
}

type Registration struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Identifier string `json:"nim_nip"`
	Phone      string `json:"phone"`

	// Optional; checked against Password when present.
	PasswordConfirmation string `json:"password_confirmation"`
	// Optional; self-registration only accepts the student role.
	RequestedRole string `json:"role"`
}

// Register creates a student account. Other roles are provisioned by
// an admin.
func (a *AuthService) Register(ctx context.Context, in Registration) (*models.User, error) {
	if in.RequestedRole != "" {
		if r, ok := models.ParseRole(in.RequestedRole); !ok || r != models.RoleStudent {
			return nil, apperr.Field("role", "self-registration is for students only")
		}
	}
	u := &models.User{
		Name:       strings.TrimSpace(in.Name),
		Email:      normalizeEmail(in.Email),
		Role:       models.RoleStudent,
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
	if err := a.users.Create(ctx, u, hash); err != nil {
		return nil, err
	}
	return u, nil
}

func (a *AuthService) Login(ctx context.Context, email, password string) (token string, user *models.User, err error) {
	u, hash, err := a.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !utils.CheckPassword(hash, password) {
		return "", nil, ErrInvalidCredentials
	}
	if !u.Active {
		return "", nil, apperr.Unauthorized("account is disabled")
	}
	tok, err := utils.SignJWT(a.sessionSecret, *u, a.sessionTTL)
	if err != nil {
		return "", nil, apperr.Repository(err, "sign session")
	}
	return tok, u, nil
}

func (a *AuthService) TTL() time.Duration { return a.sessionTTL }

func (a *AuthService) Me(ctx context.Context, id string) (*models.User, error) {
	return a.users.GetByID(ctx, id)
}

type ProfileInput struct {
	Name       *string `json:"name"`
	Email      *string `json:"email"`
	Identifier *string `json:"nim_nip"`
	Phone      *string `json:"phone"`
}

func (p ProfileInput) update() (repository.ProfileUpdate, error) {
	var out repository.ProfileUpdate
	fields := map[string][]string{}
	if p.Name != nil {
		v := strings.TrimSpace(*p.Name)
		if v == "" {
			fields["name"] = []string{"name must not be empty"}
		}
		out.Name = &v
	}
	if p.Email != nil {
		v := normalizeEmail(*p.Email)
		if _, err := mail.ParseAddress(v); err != nil {
			fields["email"] = []string{"email is invalid"}
		}
		out.Email = &v
	}
	if p.Identifier != nil {
		v := strings.TrimSpace(*p.Identifier)
		out.Identifier = &v
	}
	if p.Phone != nil {
		v := strings.TrimSpace(*p.Phone)
		out.Phone = &v
	}
	if len(fields) > 0 {
		return out, &apperr.Error{Kind: apperr.KindValidation, Message: "invalid profile", Fields: fields}
	}
	return out, nil
}

func (a *AuthService) UpdateProfile(ctx context.Context, id string, in ProfileInput) (*models.User, error) {
	upd, err := in.update()
	if err != nil {
		return nil, err
	}
	return a.users.UpdateProfile(ctx, id, upd)
}

func (a *AuthService) ChangePassword(ctx context.Context, id, current, next string) error {
	u, err := a.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	_, hash, err := a.users.GetByEmail(ctx, u.Email)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(hash, current) {
		return apperr.Field("current_password", "current password is incorrect")
	}
	if len(next) < minPasswordLen {
		return apperr.Field("new_password", "password must be at least 8 characters")
	}
	h, err := utils.HashPassword(next)
	if err != nil {
		return apperr.Repository(err, "hash password")
	}
	return a.users.UpdatePasswordHash(ctx, id, h)
}

func validateAccount(u *models.User, password, confirmation string) error {
	fields := map[string][]string{}
	if u.Name == "" {
		fields["name"] = []string{"name is required"}
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		fields["email"] = []string{"email is invalid"}
	}
	if len(password) < minPasswordLen {
		fields["password"] = []string{"password must be at least 8 characters"}
	}
	if confirmation != "" && confirmation != password {
		fields["password_confirmation"] = []string{"passwords do not match"}
	}
	if !u.Role.Valid() {
		fields["role"] = []string{"unknown role"}
	}
	if len(fields) > 0 {
		return &apperr.Error{Kind: apperr.KindValidation, Message: "invalid account", Fields: fields}
	}
	return nil
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
