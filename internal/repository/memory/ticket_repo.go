package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/kurokana/SiTeJo-Web/internal/apperr"
	"github.com/kurokana/SiTeJo-Web/internal/lifecycle"
	"github.com/kurokana/SiTeJo-Web/internal/models"
	"github.com/kurokana/SiTeJo-Web/internal/repository"
)

type TicketRepo struct{ s *Store }

var _ repository.TicketRepository = (*TicketRepo)(nil)

func (r *TicketRepo) Get(_ context.Context, id string) (*models.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tickets[id]
	if !ok {
		return nil, apperr.NotFound("ticket %s not found", id)
	}
	out := r.s.withPeople(t)
	return &out, nil
}

func (r *TicketRepo) List(_ context.Context, f repository.TicketFilter) ([]models.Ticket, int, error) {
	f = f.Normalize()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := r.s.filter(f)
	sortTickets(matched, f.Sort, f.Order)

	total := len(matched)
	from := f.Offset()
	if from > total {
		from = total
	}
	to := from + f.PerPage
	if to > total {
		to = total
	}
	out := make([]models.Ticket, 0, to-from)
	for _, t := range matched[from:to] {
		out = append(out, r.s.withPeople(t))
	}
	return out, total, nil
}

func (r *TicketRepo) Create(_ context.Context, t *models.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[t.StudentID]; !ok {
		return apperr.Field("student_id", "unknown student")
	}
	if _, ok := r.s.users[t.LecturerID]; !ok {
		return apperr.Field("lecturer_id", "unknown lecturer")
	}
	if t.ID == "" {
		t.ID = newID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = r.s.now()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	if t.Status == "" {
		t.Status = models.StatusPending
	}
	t.Number = r.s.nextNumber(t.CreatedAt)

	stored := *t
	stored.Student, stored.Lecturer = nil, nil
	r.s.tickets[t.ID] = &stored
	t.Student = r.s.summary(t.StudentID)
	t.Lecturer = r.s.summary(t.LecturerID)
	return nil
}

func (r *TicketRepo) Apply(_ context.Context, id string, p lifecycle.Patch) (*models.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[id]
	if !ok {
		return nil, apperr.NotFound("ticket %s not found", id)
	}
	if t.Status != p.ExpectedStatus {
		return nil, apperr.InvalidTransition("ticket %s moved to %q", id, t.Status)
	}
	if p.Delete {
		r.s.dropTicket(id)
		return nil, nil
	}
	next := p.Apply(*t)
	*t = next
	out := r.s.withPeople(t)
	return &out, nil
}

func (r *TicketRepo) Delete(_ context.Context, id string, expected models.Status) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[id]
	if !ok {
		return apperr.NotFound("ticket %s not found", id)
	}
	if expected != "" && t.Status != expected {
		return apperr.InvalidTransition("ticket %s moved to %q", id, t.Status)
	}
	r.s.dropTicket(id)
	return nil
}

func (r *TicketRepo) Statistics(_ context.Context, f repository.TicketFilter) (models.Statistics, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	matched := r.s.filter(f.Normalize())
	tickets := make([]models.Ticket, len(matched))
	for i, t := range matched {
		tickets[i] = *t
	}
	return lifecycle.Aggregate(tickets), nil
}

// dropTicket removes a ticket and its documents; mu must be held.
func (s *Store) dropTicket(id string) {
	delete(s.tickets, id)
	for docID, d := range s.documents {
		if d.TicketID == id {
			delete(s.documents, docID)
		}
	}
}

// filter must be called with mu held.
func (s *Store) filter(f repository.TicketFilter) []*models.Ticket {
	q := strings.ToLower(f.Search)
	var out []*models.Ticket
	for _, t := range s.tickets {
		switch {
		case f.StudentID != "" && t.StudentID != f.StudentID,
			f.LecturerID != "" && t.LecturerID != f.LecturerID,
			f.Status != "" && t.Status != f.Status,
			f.Priority != "" && t.Priority != f.Priority,
			f.Type != "" && t.Type != f.Type:
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(t.Title), q) &&
			!strings.Contains(strings.ToLower(t.Description), q) &&
			!strings.Contains(strings.ToLower(t.Number), q) {
			continue
		}
		out = append(out, t)
	}
	return out
}

var priorityRank = map[models.Priority]int{
	models.PriorityLow:    1,
	models.PriorityMedium: 2,
	models.PriorityHigh:   3,
}

func sortTickets(ts []*models.Ticket, by, order string) {
	less := func(a, b *models.Ticket) bool {
		switch by {
		case "updated_at":
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.Before(b.UpdatedAt)
			}
		case "priority":
			if priorityRank[a.Priority] != priorityRank[b.Priority] {
				return priorityRank[a.Priority] < priorityRank[b.Priority]
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.Number < b.Number
	}
	sort.SliceStable(ts, func(i, j int) bool {
		if order == "asc" {
			return less(ts[i], ts[j])
		}
		return less(ts[j], ts[i])
	})
}
