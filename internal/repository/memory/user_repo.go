package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/kurokana/SiTeJo-Web/internal/apperr"
	"github.com/kurokana/SiTeJo-Web/internal/models"
	"github.com/kurokana/SiTeJo-Web/internal/repository"
)

type UserRepo struct{ s *Store }

var _ repository.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) Create(_ context.Context, u *models.User, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.emailTaken(u.Email, "") {
		return apperr.Field("email", "email is already registered")
	}
	if u.ID == "" {
		u.ID = newID()
	}
	now := r.s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	r.s.users[u.ID] = &userRow{user: *u, hash: passwordHash}
	return nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*models.User, string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, row := range r.s.users {
		if strings.EqualFold(row.user.Email, email) {
			u := row.user
			return &u, row.hash, nil
		}
	}
	return nil, "", apperr.NotFound("user %s not found", email)
}

func (r *UserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	row, ok := r.s.users[id]
	if !ok {
		return nil, apperr.NotFound("user %s not found", id)
	}
	u := row.user
	return &u, nil
}

func (r *UserRepo) List(_ context.Context, f repository.UserFilter) ([]models.User, int, error) {
	f = f.Normalize()
	q := strings.ToLower(f.Search)
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var matched []models.User
	for _, row := range r.s.users {
		u := row.user
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.Active != nil && u.Active != *f.Active {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(u.Email), q) &&
			!strings.Contains(strings.ToLower(u.Name), q) &&
			!strings.Contains(strings.ToLower(u.Identifier), q) {
			continue
		}
		matched = append(matched, u)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].UpdatedAt.Equal(matched[j].UpdatedAt) {
			return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
		}
		return matched[i].Email < matched[j].Email
	})

	total := len(matched)
	from := f.Offset()
	if from > total {
		from = total
	}
	to := from + f.PerPage
	if to > total {
		to = total
	}
	return append([]models.User{}, matched[from:to]...), total, nil
}

func (r *UserRepo) ListActiveByRole(_ context.Context, role models.Role) ([]models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.User{}
	for _, row := range r.s.users {
		if row.user.Role == role && row.user.Active {
			out = append(out, row.user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *UserRepo) UpdateProfile(_ context.Context, id string, p repository.ProfileUpdate) (*models.User, error) {
	return r.update(id, func(u *models.User) error {
		if p.Email != nil {
			if r.s.emailTaken(*p.Email, id) {
				return apperr.Field("email", "email is already registered")
			}
			u.Email = *p.Email
		}
		if p.Name != nil {
			u.Name = *p.Name
		}
		if p.Identifier != nil {
			u.Identifier = *p.Identifier
		}
		if p.Phone != nil {
			u.Phone = *p.Phone
		}
		return nil
	})
}

func (r *UserRepo) UpdateRole(_ context.Context, id string, role models.Role) (*models.User, error) {
	return r.update(id, func(u *models.User) error {
		u.Role = role
		return nil
	})
}

func (r *UserRepo) SetActive(_ context.Context, id string, active bool) (*models.User, error) {
	return r.update(id, func(u *models.User) error {
		u.Active = active
		return nil
	})
}

func (r *UserRepo) UpdatePasswordHash(_ context.Context, id, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.users[id]
	if !ok {
		return apperr.NotFound("user %s not found", id)
	}
	row.hash = passwordHash
	row.user.UpdatedAt = r.s.now()
	return nil
}

func (r *UserRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return apperr.NotFound("user %s not found", id)
	}
	for _, t := range r.s.tickets {
		if t.StudentID == id || t.LecturerID == id {
			return apperr.Validation("user %s is still referenced by tickets", id)
		}
	}
	delete(r.s.users, id)
	return nil
}

func (r *UserRepo) update(id string, fn func(*models.User) error) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.users[id]
	if !ok {
		return nil, apperr.NotFound("user %s not found", id)
	}
	u := row.user
	if err := fn(&u); err != nil {
		return nil, err
	}
	u.UpdatedAt = r.s.now()
	row.user = u
	return &u, nil
}

// emailTaken must be called with mu held.
func (s *Store) emailTaken(email, exceptID string) bool {
	for id, row := range s.users {
		if id != exceptID && strings.EqualFold(row.user.Email, email) {
			return true
		}
	}
	return false
}
