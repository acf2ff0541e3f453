package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kurokana/SiTeJo-Web/internal/apperr"
	"github.com/kurokana/SiTeJo-Web/internal/models"
	"github.com/kurokana/SiTeJo-Web/internal/repository"
)

type UserRepo struct{ db *pgxpool.Pool }

func NewUserRepo(db *pgxpool.Pool) *UserRepo { return &UserRepo{db: db} }

var _ repository.UserRepository = (*UserRepo)(nil)

const userColumns = `id, email, name, role, nim_nip, phone, active, created_at, updated_at`

func scanUser(row pgx.Row, extra ...any) (*models.User, error) {
	var u models.User
	dest := append([]any{
		&u.ID, &u.Email, &u.Name, &u.Role, &u.Identifier, &u.Phone, &u.Active, &u.CreatedAt, &u.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create stores u with its bcrypt hash and fills the generated fields.
func (r *UserRepo) Create(ctx context.Context, u *models.User, passwordHash string) error {
	created, err := scanUser(r.db.QueryRow(ctx, `
		INSERT INTO users (email, name, role, nim_nip, phone, active, password_h)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING `+userColumns,
		u.Email, u.Name, u.Role, u.Identifier, u.Phone, u.Active, passwordHash))
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return apperr.Field("email", "email is already registered")
		}
		return apperr.Repository(err, "insert user")
	}
	*u = *created
	return nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, string, error) {
	var ph string
	u, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+`, password_h FROM users WHERE lower(email) = lower($1)`, email), &ph)
	if err != nil {
		return nil, "", notFoundOr(err, "user", email)
	}
	return u, ph, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, "user", id)
	}
	return u, nil
}

// List returns a filtered page of users and the total count.
func (r *UserRepo) List(ctx context.Context, f repository.UserFilter) ([]models.User, int, error) {
	f = f.Normalize()
	clauses := []string{"1=1"}
	args := []any{}

	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := itoa(len(args))
		clauses = append(clauses, "(email ILIKE $"+n+" OR name ILIKE $"+n+" OR nim_nip ILIKE $"+n+")")
	}
	if f.Role != "" {
		args = append(args, f.Role)
		clauses = append(clauses, "role = $"+itoa(len(args)))
	}
	if f.Active != nil {
		args = append(args, *f.Active)
		clauses = append(clauses, "active = $"+itoa(len(args)))
	}
	where := strings.Join(clauses, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Repository(err, "count users")
	}

	args = append(args, f.PerPage, f.Offset())
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM users
		WHERE %s
		ORDER BY updated_at DESC, email
		LIMIT $%d OFFSET $%d`, userColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, apperr.Repository(err, "list users")
	}
	defer rows.Close()

	out := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, apperr.Repository(err, "scan user")
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Repository(err, "list users")
	}
	return out, total, nil
}

func (r *UserRepo) ListActiveByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE role = $1 AND active ORDER BY name`, role)
	if err != nil {
		return nil, apperr.Repository(err, "list users by role")
	}
	defer rows.Close()

	out := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, apperr.Repository(err, "scan user")
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Repository(err, "list users by role")
	}
	return out, nil
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id string, p repository.ProfileUpdate) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `
		UPDATE users SET
			name = COALESCE($1, name),
			email = COALESCE($2, email),
			nim_nip = COALESCE($3, nim_nip),
			phone = COALESCE($4, phone),
			updated_at = now()
		WHERE id = $5
		RETURNING `+userColumns,
		p.Name, p.Email, p.Identifier, p.Phone, id))
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return nil, apperr.Field("email", "email is already registered")
		}
		return nil, notFoundOr(err, "user", id)
	}
	return u, nil
}

func (r *UserRepo) UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `
		UPDATE users SET role = $1, updated_at = now()
		WHERE id = $2
		RETURNING `+userColumns, role, id))
	if err != nil {
		return nil, notFoundOr(err, "user", id)
	}
	return u, nil
}

func (r *UserRepo) SetActive(ctx context.Context, id string, active bool) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `
		UPDATE users SET active = $1, updated_at = now()
		WHERE id = $2
		RETURNING `+userColumns, active, id))
	if err != nil {
		return nil, notFoundOr(err, "user", id)
	}
	return u, nil
}

func (r *UserRepo) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	ct, err := r.db.Exec(ctx, `
		UPDATE users SET password_h = $1, updated_at = now()
		WHERE id = $2`, passwordHash, id)
	if err != nil {
		return notFoundOr(err, "user", id)
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("user %s not found", id)
	}
	return nil
}

func (r *UserRepo) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		if pgCode(err) == codeForeignKeyViolation {
			return apperr.Validation("user %s is still referenced by tickets", id)
		}
		return notFoundOr(err, "user", id)
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("user %s not found", id)
	}
	return nil
}
