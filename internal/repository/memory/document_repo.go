package memory

import (
	"context"
	"sort"

	"github.com/kurokana/SiTeJo-Web/internal/apperr"
	"github.com/kurokana/SiTeJo-Web/internal/models"
	"github.com/kurokana/SiTeJo-Web/internal/repository"
)

type DocumentRepo struct{ s *Store }

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

func (r *DocumentRepo) ListByTicket(_ context.Context, ticketID string) ([]models.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if _, ok := r.s.tickets[ticketID]; !ok {
		return nil, apperr.NotFound("ticket %s not found", ticketID)
	}
	out := []models.Document{}
	for _, d := range r.s.documents {
		if d.TicketID == ticketID {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *DocumentRepo) Get(_ context.Context, id string) (*models.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.documents[id]
	if !ok {
		return nil, apperr.NotFound("document %s not found", id)
	}
	out := *d
	return &out, nil
}

func (r *DocumentRepo) Create(_ context.Context, d *models.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[d.TicketID]; !ok {
		return apperr.NotFound("ticket %s not found", d.TicketID)
	}
	if d.ID == "" {
		d.ID = newID()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = r.s.now()
	}
	if d.DocumentType == "" {
		d.DocumentType = models.DefaultDocumentType
	}
	stored := *d
	r.s.documents[d.ID] = &stored
	return nil
}

func (r *DocumentRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.documents[id]; !ok {
		return apperr.NotFound("document %s not found", id)
	}
	delete(r.s.documents, id)
	return nil
}
