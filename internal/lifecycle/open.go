package lifecycle

import (
	"strings"
	"time"

	"github.com/kurokana/SiTeJo-Web/internal/apperr"
	"github.com/kurokana/SiTeJo-Web/internal/models"
)

// Draft is a ticket as submitted by a student.
type Draft struct {
	Title       string
	Description string
	Type        string
	Priority    string
	LecturerID  string
}

// Open validates a draft and returns the new pending ticket. The store
// assigns ID and Number.
func Open(actor Actor, d Draft, now time.Time) (models.Ticket, error) {
	if actor.Role != models.RoleStudent || actor.ID == "" {
		return models.Ticket{}, apperr.Unauthorized("only students may create tickets")
	}

	fields := map[string][]string{}
	title := strings.TrimSpace(d.Title)
	if title == "" {
		fields["title"] = []string{"title is required"}
	}
	desc := strings.TrimSpace(d.Description)
	if desc == "" {
		fields["description"] = []string{"description is required"}
	}

	typ := models.TypeRecommendationLetter
	if strings.TrimSpace(d.Type) != "" {
		v, ok := models.ParseTicketType(d.Type)
		if !ok {
			fields["type"] = []string{"unknown ticket type"}
		}
		typ = v
	}
	prio := models.PriorityMedium
	if strings.TrimSpace(d.Priority) != "" {
		v, ok := models.ParsePriority(d.Priority)
		if !ok {
			fields["priority"] = []string{"unknown priority"}
		}
		prio = v
	}
	lecturer := strings.TrimSpace(d.LecturerID)
	if lecturer == "" {
		fields["lecturer_id"] = []string{"a lecturer must be chosen"}
	}
	if len(fields) > 0 {
		return models.Ticket{}, &apperr.Error{Kind: apperr.KindValidation, Message: "invalid ticket", Fields: fields}
	}

	return models.Ticket{
		Title:       title,
		Description: desc,
		Type:        typ,
		Priority:    prio,
		Status:      models.StatusPending,
		StudentID:   actor.ID,
		LecturerID:  lecturer,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
