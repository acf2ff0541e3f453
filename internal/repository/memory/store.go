// Package memory keeps all portal data in process memory. It backs the
// API when STORE_DRIVER=memory and the service tests.
package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kurokana/SiTeJo-Web/internal/models"
)

type userRow struct {
	user models.User
	hash string
}

// Store is the shared state of the three in-memory repositories. All
// access goes through mu, so a ticket's conditional update and its
// status check happen as one step.
type Store struct {
	mu        sync.RWMutex
	users     map[string]*userRow
	tickets   map[string]*models.Ticket
	documents map[string]*models.Document
	seq       int
	now       func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:     map[string]*userRow{},
		tickets:   map[string]*models.Ticket{},
		documents: map[string]*models.Document{},
		now:       time.Now,
	}
}

func (s *Store) Tickets() *TicketRepo     { return &TicketRepo{s: s} }
func (s *Store) Documents() *DocumentRepo { return &DocumentRepo{s: s} }
func (s *Store) Users() *UserRepo         { return &UserRepo{s: s} }

func newID() string { return uuid.NewString() }

// nextNumber must be called with mu held.
func (s *Store) nextNumber(at time.Time) string {
	s.seq++
	return fmt.Sprintf("TKT-%s-%05d", at.UTC().Format("20060102"), s.seq)
}

// summary must be called with mu held.
func (s *Store) summary(id string) *models.UserSummary {
	row, ok := s.users[id]
	if !ok {
		return nil
	}
	sum := row.user.Summary()
	return &sum
}

// withPeople returns a copy of t with student and lecturer attached.
func (s *Store) withPeople(t *models.Ticket) models.Ticket {
	out := *t
	out.Student = s.summary(t.StudentID)
	out.Lecturer = s.summary(t.LecturerID)
	return out
}
