package lifecycle

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/kurokana/SiTeJo-Web/internal/apperr"
	"github.com/kurokana/SiTeJo-Web/internal/models"
)

var (
	now      = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	student  = Actor{ID: "stu-1", Role: models.RoleStudent}
	other    = Actor{ID: "stu-2", Role: models.RoleStudent}
	lecturer = Actor{ID: "lec-1", Role: models.RoleLecturer}
	stranger = Actor{ID: "lec-2", Role: models.RoleLecturer}
	admin    = Actor{ID: "adm-1", Role: models.RoleAdmin}
)

func ticketIn(st models.Status) models.Ticket {
	created := now.Add(-48 * time.Hour)
	return models.Ticket{
		ID:          "t-1",
		Number:      "TKT-20260228-00001",
		Title:       "Recommendation for exchange",
		Description: "Needed for the spring exchange programme",
		Type:        models.TypeRecommendationLetter,
		Priority:    models.PriorityMedium,
		Status:      st,
		StudentID:   student.ID,
		LecturerID:  lecturer.ID,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func str(s string) *string { return &s }

func kind(t *testing.T, err error, want apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", want)
	}
	if got := apperr.KindOf(err); got != want {
		t.Fatalf("expected %s, got %s (%v)", want, got, err)
	}
}

func TestDecide_ApprovePending(t *testing.T) {
	tk := ticketIn(models.StatusPending)
	p, err := Decide(tk, lecturer, ActionApprove, Payload{Notes: "ok"}, now)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	got := p.Apply(tk)
	if got.Status != models.StatusApproved {
		t.Fatalf("status = %q, want approved", got.Status)
	}
	if got.LecturerNotes != "ok" {
		t.Fatalf("lecturer_notes = %q, want ok", got.LecturerNotes)
	}
	if got.ReviewedAt == nil || !got.ReviewedAt.Equal(now) {
		t.Fatalf("reviewed_at = %v, want %v", got.ReviewedAt, now)
	}
	if got.RejectionReason != "" {
		t.Fatalf("rejection_reason should stay empty, got %q", got.RejectionReason)
	}
	if p.ExpectedStatus != models.StatusPending {
		t.Fatalf("expected status = %q", p.ExpectedStatus)
	}
	if tk.Status != models.StatusPending {
		t.Fatal("Decide must not mutate its input")
	}
}

func TestDecide_RejectRequiresReason(t *testing.T) {
	for _, reason := range []string{"", "   ", "\t\n"} {
		tk := ticketIn(models.StatusPending)
		before := tk
		p, err := Decide(tk, lecturer, ActionReject, Payload{Reason: reason}, now)
		kind(t, err, apperr.KindValidation)
		if p.Changes() {
			t.Fatalf("failed decision returned a non-empty patch: %+v", p)
		}
		if !reflect.DeepEqual(tk, before) {
			t.Fatal("ticket changed after failed reject")
		}
		if apperr.FieldsOf(err)["reason"] == nil {
			t.Fatalf("expected field error on reason, got %v", apperr.FieldsOf(err))
		}
	}

	tk := ticketIn(models.StatusInReview)
	p, err := Decide(tk, lecturer, ActionReject, Payload{Reason: "  missing transcript "}, now)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	got := p.Apply(tk)
	if got.Status != models.StatusRejected || got.RejectionReason != "missing transcript" {
		t.Fatalf("got status=%q reason=%q", got.Status, got.RejectionReason)
	}
}

func TestDecide_ApproveNeedsLecturer(t *testing.T) {
	actors := []Actor{student, admin, {ID: "x", Role: ""}}
	for _, st := range models.Statuses {
		for _, a := range actors {
			_, err := Decide(ticketIn(st), a, ActionApprove, Payload{Notes: "fine"}, now)
			kind(t, err, apperr.KindUnauthorized)
		}
	}
}

func TestDecide_OnlyAssignedLecturer(t *testing.T) {
	for _, action := range []Action{ActionReview, ActionApprove, ActionReject} {
		_, err := Decide(ticketIn(models.StatusPending), stranger, action, Payload{Reason: "no"}, now)
		kind(t, err, apperr.KindUnauthorized)
	}
}

func TestDecide_TerminalStates(t *testing.T) {
	actorFor := map[Action]Actor{
		ActionReview:   lecturer,
		ActionApprove:  lecturer,
		ActionReject:   lecturer,
		ActionComplete: admin,
	}
	for _, st := range []models.Status{models.StatusCompleted, models.StatusRejected} {
		for action, actor := range actorFor {
			tk := ticketIn(st)
			for i := 0; i < 3; i++ {
				_, err := Decide(tk, actor, action, Payload{Notes: "n", Reason: "r"}, now)
				kind(t, err, apperr.KindInvalidTransition)
			}
		}
		if _, err := Decide(ticketIn(st), admin, ActionDelete, Payload{}, now); err != nil {
			t.Fatalf("admin delete from %s: %v", st, err)
		}
	}
	// completed tickets are no longer editable by their creator.
	_, err := Decide(ticketIn(models.StatusCompleted), student, ActionEdit, Payload{Title: str("x")}, now)
	kind(t, err, apperr.KindInvalidTransition)
}

func TestDecide_CompleteOnce(t *testing.T) {
	tk := ticketIn(models.StatusApproved)
	p, err := Decide(tk, admin, ActionComplete, Payload{Notes: "  "}, now)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	done := p.Apply(tk)
	if done.Status != models.StatusCompleted {
		t.Fatalf("status = %q", done.Status)
	}
	if done.CompletedAt == nil || !done.CompletedAt.Equal(now) {
		t.Fatalf("completed_at = %v", done.CompletedAt)
	}
	if done.AdminNotes != "" {
		t.Fatalf("blank notes should be dropped, got %q", done.AdminNotes)
	}
	if done.AdminID != admin.ID {
		t.Fatalf("admin_id = %q", done.AdminID)
	}

	_, err = Decide(done, admin, ActionComplete, Payload{}, now.Add(time.Minute))
	kind(t, err, apperr.KindInvalidTransition)
}

func TestDecide_EditRejectedByOwner(t *testing.T) {
	tk := ticketIn(models.StatusRejected)
	tk.RejectionReason = "incomplete"
	p, err := Decide(tk, student, ActionEdit, Payload{Description: str("Now with transcript attached")}, now)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	got := p.Apply(tk)
	if got.Description != "Now with transcript attached" {
		t.Fatalf("description = %q", got.Description)
	}
	if got.Status != models.StatusRejected {
		t.Fatalf("status = %q, want rejected", got.Status)
	}
	if !got.UpdatedAt.Equal(now) {
		t.Fatalf("updated_at = %v", got.UpdatedAt)
	}
}

func TestDecide_EditGuards(t *testing.T) {
	cases := []struct {
		name  string
		actor Actor
		st    models.Status
		p     Payload
		want  apperr.Kind
	}{
		{"other student", other, models.StatusPending, Payload{Title: str("x")}, apperr.KindUnauthorized},
		{"lecturer", lecturer, models.StatusPending, Payload{Title: str("x")}, apperr.KindUnauthorized},
		{"in review", student, models.StatusInReview, Payload{Title: str("x")}, apperr.KindInvalidTransition},
		{"approved", student, models.StatusApproved, Payload{Title: str("x")}, apperr.KindInvalidTransition},
		{"blank title", student, models.StatusPending, Payload{Title: str("  ")}, apperr.KindValidation},
		{"bad type", student, models.StatusPending, Payload{Type: str("essay")}, apperr.KindValidation},
		{"bad priority", student, models.StatusPending, Payload{Priority: str("urgent")}, apperr.KindValidation},
		{"empty edit", student, models.StatusPending, Payload{}, apperr.KindValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decide(ticketIn(tc.st), tc.actor, ActionEdit, tc.p, now)
			kind(t, err, tc.want)
		})
	}
}

func TestDecide_ReviewKeepsFirstReviewTime(t *testing.T) {
	tk := ticketIn(models.StatusPending)
	p, err := Decide(tk, lecturer, ActionReview, Payload{}, now)
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	reviewed := p.Apply(tk)
	if reviewed.Status != models.StatusInReview || reviewed.ReviewedAt == nil {
		t.Fatalf("after review: %+v", reviewed)
	}

	later := now.Add(2 * time.Hour)
	p, err = Decide(reviewed, lecturer, ActionApprove, Payload{}, later)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if p.ReviewedAt != nil {
		t.Fatal("approve after review must not move reviewed_at")
	}
	approved := p.Apply(reviewed)
	if !approved.ReviewedAt.Equal(now) {
		t.Fatalf("reviewed_at = %v, want %v", approved.ReviewedAt, now)
	}
	if approved.LecturerNotes != "" {
		t.Fatalf("blank approve notes should be dropped, got %q", approved.LecturerNotes)
	}

	if _, err := Decide(reviewed, lecturer, ActionReview, Payload{}, later); !apperr.IsKind(err, apperr.KindInvalidTransition) {
		t.Fatalf("second review: %v", err)
	}
}

func TestDecide_ReviewThenRejectClearsNotes(t *testing.T) {
	tk := ticketIn(models.StatusPending)
	p, err := Decide(tk, lecturer, ActionReview, Payload{Notes: "looks fine so far"}, now)
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	reviewed := p.Apply(tk)
	if reviewed.LecturerNotes != "looks fine so far" {
		t.Fatalf("review notes = %q", reviewed.LecturerNotes)
	}

	p, err = Decide(reviewed, lecturer, ActionReject, Payload{Reason: "missing transcript"}, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	rejected := p.Apply(reviewed)
	if rejected.Status != models.StatusRejected || rejected.RejectionReason != "missing transcript" {
		t.Fatalf("after reject: status=%q reason=%q", rejected.Status, rejected.RejectionReason)
	}
	if rejected.LecturerNotes != "" {
		t.Fatalf("rejected ticket kept lecturer_notes %q", rejected.LecturerNotes)
	}

	// Nothing to clear when the ticket never carried notes.
	p, err = Decide(ticketIn(models.StatusPending), lecturer, ActionReject, Payload{Reason: "x"}, now)
	if err != nil {
		t.Fatalf("reject pending: %v", err)
	}
	if p.LecturerNotes != nil {
		t.Fatalf("reject without prior notes touched lecturer_notes: %q", *p.LecturerNotes)
	}
}

func TestDecide_Documents(t *testing.T) {
	for _, action := range []Action{ActionAttachDocument, ActionRemoveDocument} {
		p, err := Decide(ticketIn(models.StatusPending), student, action, Payload{}, now)
		if err != nil {
			t.Fatalf("%s: %v", action, err)
		}
		if p.Changes() {
			t.Fatalf("%s should not change the ticket: %+v", action, p)
		}
		_, err = Decide(ticketIn(models.StatusApproved), student, action, Payload{}, now)
		kind(t, err, apperr.KindInvalidTransition)
		_, err = Decide(ticketIn(models.StatusPending), admin, action, Payload{}, now)
		kind(t, err, apperr.KindUnauthorized)
	}
}

func TestDecide_DeleteAdminOnly(t *testing.T) {
	for _, st := range models.Statuses {
		p, err := Decide(ticketIn(st), admin, ActionDelete, Payload{}, now)
		if err != nil || !p.Delete {
			t.Fatalf("delete from %s: patch=%+v err=%v", st, p, err)
		}
		_, err = Decide(ticketIn(st), student, ActionDelete, Payload{}, now)
		kind(t, err, apperr.KindUnauthorized)
	}
}

func TestDecide_UnknownAction(t *testing.T) {
	_, err := Decide(ticketIn(models.StatusPending), admin, Action("archive"), Payload{}, now)
	kind(t, err, apperr.KindValidation)
}

func TestAllowed(t *testing.T) {
	cases := []struct {
		st    models.Status
		actor Actor
		want  []Action
	}{
		{models.StatusPending, lecturer, []Action{ActionReview, ActionApprove, ActionReject}},
		{models.StatusInReview, lecturer, []Action{ActionApprove, ActionReject}},
		{models.StatusPending, stranger, []Action{}},
		{models.StatusApproved, admin, []Action{ActionComplete, ActionDelete}},
		{models.StatusCompleted, admin, []Action{ActionDelete}},
		{models.StatusRejected, student, []Action{ActionEdit, ActionAttachDocument, ActionRemoveDocument}},
		{models.StatusApproved, student, []Action{}},
	}
	for _, tc := range cases {
		got := Allowed(ticketIn(tc.st), tc.actor)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Allowed(%s, %s) = %v, want %v", tc.st, tc.actor.Role, got, tc.want)
		}
	}
}

func TestParseAction(t *testing.T) {
	if a, ok := ParseAction(" Approve "); !ok || a != ActionApprove {
		t.Fatalf("ParseAction(Approve) = %q, %v", a, ok)
	}
	if _, ok := ParseAction("archive"); ok {
		t.Fatal("archive should not parse")
	}
}

func TestOpen(t *testing.T) {
	tk, err := Open(student, Draft{
		Title:       " Research permit ",
		Description: "Lab access for thesis",
		Type:        "izin-penelitian",
		LecturerID:  lecturer.ID,
	}, now)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if tk.Status != models.StatusPending || tk.Priority != models.PriorityMedium || tk.Type != models.TypePermissionRequest {
		t.Fatalf("unexpected ticket: %+v", tk)
	}
	if tk.Title != "Research permit" || tk.StudentID != student.ID || !tk.CreatedAt.Equal(now) {
		t.Fatalf("unexpected ticket: %+v", tk)
	}

	_, err = Open(lecturer, Draft{Title: "x", Description: "y", LecturerID: lecturer.ID}, now)
	kind(t, err, apperr.KindUnauthorized)

	_, err = Open(student, Draft{Priority: "critical"}, now)
	kind(t, err, apperr.KindValidation)
	fields := apperr.FieldsOf(err)
	for _, f := range []string{"title", "description", "priority", "lecturer_id"} {
		if fields[f] == nil {
			t.Errorf("missing field error for %s: %v", f, fields)
		}
	}

	var e *apperr.Error
	if !errors.As(err, &e) {
		t.Fatal("expected *apperr.Error")
	}
}
