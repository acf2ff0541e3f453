package repository

import (
	"context"

	"github.com/kurokana/SiTeJo-Web/internal/lifecycle"
	"github.com/kurokana/SiTeJo-Web/internal/models"
)

// TicketRepository persists tickets. Missing tickets yield an
// apperr NotFound error; backend failures an apperr RepositoryError.
type TicketRepository interface {
	Get(ctx context.Context, id string) (*models.Ticket, error)
	List(ctx context.Context, f TicketFilter) ([]models.Ticket, int, error)
	Create(ctx context.Context, t *models.Ticket) error
	// Apply stores p atomically, only if the ticket is still in
	// p.ExpectedStatus. A moved status yields InvalidTransition.
	Apply(ctx context.Context, id string, p lifecycle.Patch) (*models.Ticket, error)
	Delete(ctx context.Context, id string, expected models.Status) error
	Statistics(ctx context.Context, f TicketFilter) (models.Statistics, error)
}

type DocumentRepository interface {
	ListByTicket(ctx context.Context, ticketID string) ([]models.Document, error)
	Get(ctx context.Context, id string) (*models.Document, error)
	Create(ctx context.Context, d *models.Document) error
	Delete(ctx context.Context, id string) error
}

type UserRepository interface {
	Create(ctx context.Context, u *models.User, passwordHash string) error
	GetByEmail(ctx context.Context, email string) (*models.User, string /*passwordHash*/, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, f UserFilter) ([]models.User, int, error)
	ListActiveByRole(ctx context.Context, role models.Role) ([]models.User, error)
	UpdateProfile(ctx context.Context, id string, p ProfileUpdate) (*models.User, error)
	UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error)
	SetActive(ctx context.Context, id string, active bool) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
}

// ProfileUpdate holds the user fields an update may touch; nil leaves
// a field unchanged.
type ProfileUpdate struct {
	Name       *string
	Email      *string
	Identifier *string
	Phone      *string
}
