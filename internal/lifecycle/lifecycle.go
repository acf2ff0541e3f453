// Package lifecycle decides which ticket actions are legal for which
// actor and what each one changes. It performs no I/O; callers fetch
// the ticket, call Decide, and hand the resulting Patch to a repository
// that applies it conditionally on Patch.ExpectedStatus.
package lifecycle

import (
	"strings"
	"time"

	"github.com/kurokana/SiTeJo-Web/internal/apperr"
	"github.com/kurokana/SiTeJo-Web/internal/models"
)

type Action string

const (
	ActionReview         Action = "review"
	ActionApprove        Action = "approve"
	ActionReject         Action = "reject"
	ActionComplete       Action = "complete"
	ActionEdit           Action = "edit"
	ActionAttachDocument Action = "attach-document"
	ActionRemoveDocument Action = "remove-document"
	ActionDelete         Action = "delete"
)

// Actions lists every action in the order the API reports them.
var Actions = []Action{
	ActionReview, ActionApprove, ActionReject, ActionComplete,
	ActionEdit, ActionAttachDocument, ActionRemoveDocument, ActionDelete,
}

// Actor is the authenticated caller.
type Actor struct {
	ID   string
	Role models.Role
}

// Payload carries the optional inputs of an action. Edit fields are nil
// when untouched.
type Payload struct {
	Notes  string
	Reason string

	Title       *string
	Description *string
	Type        *string
	Priority    *string
}

// Patch is the outcome of a legal decision. Nil fields are left as-is.
type Patch struct {
	Action         Action
	ExpectedStatus models.Status
	At             time.Time

	Status          *models.Status
	Title           *string
	Description     *string
	Type            *models.TicketType
	Priority        *models.Priority
	LecturerNotes   *string
	RejectionReason *string
	AdminNotes      *string
	AdminID         *string
	ReviewedAt      *time.Time
	CompletedAt     *time.Time

	// Delete removes the ticket and its documents.
	Delete bool
}

// Changes reports whether applying p modifies the stored ticket.
func (p Patch) Changes() bool {
	return p.Delete || p.Status != nil || p.Title != nil || p.Description != nil ||
		p.Type != nil || p.Priority != nil || p.LecturerNotes != nil ||
		p.RejectionReason != nil || p.AdminNotes != nil || p.AdminID != nil ||
		p.ReviewedAt != nil || p.CompletedAt != nil
}

// Apply returns a copy of t with the patch applied.
func (p Patch) Apply(t models.Ticket) models.Ticket {
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.LecturerNotes != nil {
		t.LecturerNotes = *p.LecturerNotes
	}
	if p.RejectionReason != nil {
		t.RejectionReason = *p.RejectionReason
	}
	if p.AdminNotes != nil {
		t.AdminNotes = *p.AdminNotes
	}
	if p.AdminID != nil {
		t.AdminID = *p.AdminID
	}
	if p.ReviewedAt != nil {
		at := *p.ReviewedAt
		t.ReviewedAt = &at
	}
	if p.CompletedAt != nil {
		at := *p.CompletedAt
		t.CompletedAt = &at
	}
	if p.Changes() && !p.At.IsZero() {
		t.UpdatedAt = p.At
	}
	return t
}

type owner int

const (
	ownerNone owner = iota
	ownerAssignedLecturer
	ownerCreatingStudent
)

type rule struct {
	role  models.Role
	owner owner
	from  []models.Status
}

var editable = []models.Status{models.StatusPending, models.StatusRejected}

var rules = map[Action]rule{
	ActionReview:         {models.RoleLecturer, ownerAssignedLecturer, []models.Status{models.StatusPending}},
	ActionApprove:        {models.RoleLecturer, ownerAssignedLecturer, []models.Status{models.StatusPending, models.StatusInReview}},
	ActionReject:         {models.RoleLecturer, ownerAssignedLecturer, []models.Status{models.StatusPending, models.StatusInReview}},
	ActionComplete:       {models.RoleAdmin, ownerNone, []models.Status{models.StatusApproved}},
	ActionEdit:           {models.RoleStudent, ownerCreatingStudent, editable},
	ActionAttachDocument: {models.RoleStudent, ownerCreatingStudent, editable},
	ActionRemoveDocument: {models.RoleStudent, ownerCreatingStudent, editable},
	ActionDelete:         {models.RoleAdmin, ownerNone, models.Statuses},
}

// ParseAction maps a wire name to an Action.
func ParseAction(s string) (Action, bool) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	_, ok := rules[a]
	return a, ok
}

// Decide validates action by actor against t and returns the patch to
// apply. Checks run in a fixed order: known action, actor role,
// ownership, source status, then payload guards. t is never modified.
func Decide(t models.Ticket, actor Actor, action Action, p Payload, now time.Time) (Patch, error) {
	r, ok := rules[action]
	if !ok {
		return Patch{}, apperr.Validation("unknown action %q", action)
	}
	if err := authorize(t, actor, action, r); err != nil {
		return Patch{}, err
	}
	if !contains(r.from, t.Status) {
		return Patch{}, apperr.InvalidTransition("cannot %s a ticket in status %q", action, t.Status)
	}

	patch := Patch{Action: action, ExpectedStatus: t.Status, At: now}
	switch action {
	case ActionReview:
		patch.Status = statusPtr(models.StatusInReview)
		patch.ReviewedAt = firstReview(t, now)
		patch.LecturerNotes = notes(p.Notes)
	case ActionApprove:
		patch.Status = statusPtr(models.StatusApproved)
		patch.ReviewedAt = firstReview(t, now)
		patch.LecturerNotes = notes(p.Notes)
	case ActionReject:
		reason := strings.TrimSpace(p.Reason)
		if reason == "" {
			return Patch{}, apperr.Field("reason", "rejection reason is required")
		}
		patch.Status = statusPtr(models.StatusRejected)
		patch.ReviewedAt = firstReview(t, now)
		patch.RejectionReason = &reason
		// A rejected ticket carries the reason only.
		if t.LecturerNotes != "" {
			cleared := ""
			patch.LecturerNotes = &cleared
		}
	case ActionComplete:
		at := now
		patch.Status = statusPtr(models.StatusCompleted)
		patch.CompletedAt = &at
		patch.AdminNotes = notes(p.Notes)
		id := actor.ID
		patch.AdminID = &id
	case ActionEdit:
		if err := edit(&patch, p); err != nil {
			return Patch{}, err
		}
	case ActionAttachDocument, ActionRemoveDocument:
		// Authorisation only; the ticket row is untouched.
	case ActionDelete:
		patch.Delete = true
	}
	return patch, nil
}

// Allowed lists the actions actor may attempt on t, ignoring payload
// guards.
func Allowed(t models.Ticket, actor Actor) []Action {
	out := make([]Action, 0, 2)
	for _, a := range Actions {
		r := rules[a]
		if authorize(t, actor, a, r) != nil || !contains(r.from, t.Status) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func authorize(t models.Ticket, actor Actor, action Action, r rule) error {
	if actor.Role != r.role {
		return apperr.Unauthorized("role %q may not %s tickets", actor.Role, action)
	}
	switch r.owner {
	case ownerAssignedLecturer:
		if actor.ID == "" || t.LecturerID != actor.ID {
			return apperr.Unauthorized("only the assigned lecturer may %s this ticket", action)
		}
	case ownerCreatingStudent:
		if actor.ID == "" || t.StudentID != actor.ID {
			return apperr.Unauthorized("only the ticket's creator may %s it", action)
		}
	case ownerNone:
	}
	return nil
}

func edit(patch *Patch, p Payload) error {
	fields := map[string][]string{}
	if p.Title != nil {
		v := strings.TrimSpace(*p.Title)
		if v == "" {
			fields["title"] = append(fields["title"], "title must not be empty")
		}
		patch.Title = &v
	}
	if p.Description != nil {
		v := strings.TrimSpace(*p.Description)
		if v == "" {
			fields["description"] = append(fields["description"], "description must not be empty")
		}
		patch.Description = &v
	}
	if p.Type != nil {
		v, ok := models.ParseTicketType(*p.Type)
		if !ok {
			fields["type"] = append(fields["type"], "unknown ticket type")
		}
		patch.Type = &v
	}
	if p.Priority != nil {
		v, ok := models.ParsePriority(*p.Priority)
		if !ok {
			fields["priority"] = append(fields["priority"], "unknown priority")
		}
		patch.Priority = &v
	}
	if len(fields) > 0 {
		return &apperr.Error{Kind: apperr.KindValidation, Message: "invalid ticket changes", Fields: fields}
	}
	if !patch.Changes() {
		return apperr.Validation("nothing to update")
	}
	return nil
}

func firstReview(t models.Ticket, now time.Time) *time.Time {
	if t.ReviewedAt != nil {
		return nil
	}
	at := now
	return &at
}

// notes treats blank input as "no notes".
func notes(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func statusPtr(s models.Status) *models.Status { return &s }

func contains(set []models.Status, s models.Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
