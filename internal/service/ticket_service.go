package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/kurokana/SiTeJo-Web/internal/apperr"
	"github.com/kurokana/SiTeJo-Web/internal/lifecycle"
	"github.com/kurokana/SiTeJo-Web/internal/models"
	"github.com/kurokana/SiTeJo-Web/internal/repository"
	"github.com/kurokana/SiTeJo-Web/internal/storage"
)

// TicketService runs the lifecycle against the repositories. Reads are
// scoped: students see their own tickets, lecturers the ones assigned
// to them, admins everything.
type TicketService struct {
	tickets repository.TicketRepository
	docs    repository.DocumentRepository
	users   repository.UserRepository
	blobs   *storage.FileStore
	log     zerolog.Logger
	now     func() time.Time
}

func NewTicketService(
	tickets repository.TicketRepository,
	docs repository.DocumentRepository,
	users repository.UserRepository,
	blobs *storage.FileStore,
	log zerolog.Logger,
) *TicketService {
	return &TicketService{tickets: tickets, docs: docs, users: users, blobs: blobs, log: log, now: time.Now}
}

func (s *TicketService) Create(ctx context.Context, actor lifecycle.Actor, d lifecycle.Draft) (*models.Ticket, error) {
	t, err := lifecycle.Open(actor, d, s.now().UTC())
	if err != nil {
		return nil, err
	}
	lecturer, err := s.users.GetByID(ctx, t.LecturerID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.Field("lecturer_id", "unknown lecturer")
		}
		return nil, err
	}
	if lecturer.Role != models.RoleLecturer || !lecturer.Active {
		return nil, apperr.Field("lecturer_id", "assignee must be an active lecturer")
	}
	if err := s.tickets.Create(ctx, &t); err != nil {
		return nil, err
	}
	s.log.Info().Str("ticket", t.ID).Str("number", t.Number).Str("student", actor.ID).Msg("ticket created")
	return &t, nil
}

// Get returns the ticket if actor may see it; otherwise NotFound.
func (s *TicketService) Get(ctx context.Context, actor lifecycle.Actor, id string) (*models.Ticket, error) {
	t, err := s.tickets.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visible(actor, t) {
		return nil, apperr.NotFound("ticket %s not found", id)
	}
	return t, nil
}

func (s *TicketService) List(ctx context.Context, actor lifecycle.Actor, f repository.TicketFilter) ([]models.Ticket, repository.Pagination, error) {
	f, err := scope(actor, f)
	if err != nil {
		return nil, repository.Pagination{}, err
	}
	f = f.Normalize()
	items, total, err := s.tickets.List(ctx, f)
	if err != nil {
		return nil, repository.Pagination{}, err
	}
	return items, repository.NewPagination(f.Page, f.PerPage, total), nil
}

func (s *TicketService) Statistics(ctx context.Context, actor lifecycle.Actor, f repository.TicketFilter) (models.Statistics, error) {
	f, err := scope(actor, f)
	if err != nil {
		return models.Statistics{}, err
	}
	return s.tickets.Statistics(ctx, f)
}

// Transition decides action for actor and stores the result. The write
// is conditional on the status the decision was made against.
func (s *TicketService) Transition(ctx context.Context, actor lifecycle.Actor, id string, action lifecycle.Action, p lifecycle.Payload) (t *models.Ticket, err error) {
	defer func() { transitionsTotal.WithLabelValues(string(action), outcome(err)).Inc() }()

	current, err := s.tickets.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	patch, err := lifecycle.Decide(*current, actor, action, p, s.now().UTC())
	if err != nil {
		return nil, err
	}

	if patch.Delete {
		return nil, s.delete(ctx, current, patch)
	}
	t, err = s.tickets.Apply(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("ticket", id).Str("action", string(action)).
		Str("from", string(patch.ExpectedStatus)).Str("to", string(t.Status)).
		Str("actor", actor.ID).Msg("ticket transition")
	return t, nil
}

// delete removes the row, then the blobs of its documents.
func (s *TicketService) delete(ctx context.Context, t *models.Ticket, patch lifecycle.Patch) error {
	docs, err := s.docs.ListByTicket(ctx, t.ID)
	if err != nil {
		return err
	}
	if _, err := s.tickets.Apply(ctx, t.ID, patch); err != nil {
		return err
	}
	for _, d := range docs {
		if err := s.blobs.Delete(d.StoragePath); err != nil {
			s.log.Warn().Err(err).Str("document", d.ID).Msg("orphaned document blob")
		}
	}
	s.log.Info().Str("ticket", t.ID).Int("documents", len(docs)).Msg("ticket deleted")
	return nil
}

func visible(actor lifecycle.Actor, t *models.Ticket) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleLecturer:
		return actor.ID != "" && t.LecturerID == actor.ID
	case models.RoleStudent:
		return actor.ID != "" && t.StudentID == actor.ID
	default:
		return false
	}
}

func scope(actor lifecycle.Actor, f repository.TicketFilter) (repository.TicketFilter, error) {
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleLecturer:
		f.LecturerID = actor.ID
	case models.RoleStudent:
		f.StudentID = actor.ID
	default:
		return f, apperr.Unauthorized("role %q may not list tickets", actor.Role)
	}
	return f, nil
}
