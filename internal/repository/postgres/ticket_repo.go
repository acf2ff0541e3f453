package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kurokana/SiTeJo-Web/internal/apperr"
	"github.com/kurokana/SiTeJo-Web/internal/lifecycle"
	"github.com/kurokana/SiTeJo-Web/internal/models"
	"github.com/kurokana/SiTeJo-Web/internal/repository"
)

type TicketRepo struct{ db *pgxpool.Pool }

func NewTicketRepo(db *pgxpool.Pool) *TicketRepo { return &TicketRepo{db: db} }

var _ repository.TicketRepository = (*TicketRepo)(nil)

const ticketColumns = `
	t.id, t.ticket_number, t.title, t.description, t.type, t.priority, t.status,
	t.student_id, t.lecturer_id, COALESCE(t.admin_id::text, ''),
	t.lecturer_notes, t.rejection_reason, t.admin_notes,
	t.created_at, t.updated_at, t.reviewed_at, t.completed_at,
	s.name, s.email, s.nim_nip, l.name, l.email, l.nim_nip`

const ticketFrom = `
	FROM tickets t
	JOIN users s ON s.id = t.student_id
	JOIN users l ON l.id = t.lecturer_id`

func scanTicket(row pgx.Row) (*models.Ticket, error) {
	var (
		t        models.Ticket
		student  models.UserSummary
		lecturer models.UserSummary
	)
	err := row.Scan(
		&t.ID, &t.Number, &t.Title, &t.Description, &t.Type, &t.Priority, &t.Status,
		&t.StudentID, &t.LecturerID, &t.AdminID,
		&t.LecturerNotes, &t.RejectionReason, &t.AdminNotes,
		&t.CreatedAt, &t.UpdatedAt, &t.ReviewedAt, &t.CompletedAt,
		&student.Name, &student.Email, &student.Identifier,
		&lecturer.Name, &lecturer.Email, &lecturer.Identifier,
	)
	if err != nil {
		return nil, err
	}
	student.ID, lecturer.ID = t.StudentID, t.LecturerID
	t.Student, t.Lecturer = &student, &lecturer
	return &t, nil
}

func (r *TicketRepo) Get(ctx context.Context, id string) (*models.Ticket, error) {
	t, err := scanTicket(r.db.QueryRow(ctx, `SELECT `+ticketColumns+ticketFrom+` WHERE t.id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, "ticket", id)
	}
	return t, nil
}

// List returns a page of tickets and the total matching f.
func (r *TicketRepo) List(ctx context.Context, f repository.TicketFilter) ([]models.Ticket, int, error) {
	f = f.Normalize()
	whereSQL, args := buildTicketWhere(f)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tickets t `+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Repository(err, "count tickets")
	}

	sql := fmt.Sprintf(`SELECT %s %s %s ORDER BY %s %s, t.ticket_number %s LIMIT $%d OFFSET $%d`,
		ticketColumns, ticketFrom, whereSQL, sortExpr(f.Sort), f.Order, f.Order, len(args)+1, len(args)+2)
	args = append(args, f.PerPage, f.Offset())

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, apperr.Repository(err, "list tickets")
	}
	defer rows.Close()

	out := []models.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, 0, apperr.Repository(err, "scan ticket")
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Repository(err, "list tickets")
	}
	return out, total, nil
}

// Create inserts t; the database assigns id and ticket number.
func (r *TicketRepo) Create(ctx context.Context, t *models.Ticket) error {
	status := t.Status
	if status == "" {
		status = models.StatusPending
	}
	var id string
	err := r.db.QueryRow(ctx, `
		INSERT INTO tickets (title, description, type, priority, status, student_id, lecturer_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,COALESCE($8, now()),COALESCE($8, now()))
		RETURNING id`,
		t.Title, t.Description, t.Type, t.Priority, status, t.StudentID, t.LecturerID, nullTime(t.CreatedAt),
	).Scan(&id)
	if err != nil {
		switch pgCode(err) {
		case codeForeignKeyViolation:
			if strings.Contains(pgConstraint(err), "student") {
				return apperr.Field("student_id", "unknown student")
			}
			return apperr.Field("lecturer_id", "unknown lecturer")
		case codeInvalidText:
			return apperr.Field("lecturer_id", "unknown lecturer")
		}
		return apperr.Repository(err, "insert ticket")
	}
	stored, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	*t = *stored
	return nil
}

// Apply runs the patch as one UPDATE guarded by the expected status, so
// two racing transitions cannot both succeed.
func (r *TicketRepo) Apply(ctx context.Context, id string, p lifecycle.Patch) (*models.Ticket, error) {
	if p.Delete {
		return nil, r.Delete(ctx, id, p.ExpectedStatus)
	}

	sets, args := patchSets(p)
	if len(sets) == 0 {
		if err := r.checkStatus(ctx, id, p.ExpectedStatus); err != nil {
			return nil, err
		}
		return r.Get(ctx, id)
	}
	args = append(args, id, p.ExpectedStatus)
	sql := `UPDATE tickets SET ` + strings.Join(sets, ", ") +
		` WHERE id = $` + itoa(len(args)-1) + ` AND status = $` + itoa(len(args))

	ct, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return nil, notFoundOr(err, "ticket", id)
	}
	if ct.RowsAffected() == 0 {
		return nil, r.checkStatus(ctx, id, p.ExpectedStatus)
	}
	return r.Get(ctx, id)
}

// Delete removes the ticket if it is still in expected status; an empty
// expected status deletes unconditionally. Documents cascade.
func (r *TicketRepo) Delete(ctx context.Context, id string, expected models.Status) error {
	sql := `DELETE FROM tickets WHERE id = $1`
	args := []any{id}
	if expected != "" {
		sql += ` AND status = $2`
		args = append(args, expected)
	}
	ct, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return notFoundOr(err, "ticket", id)
	}
	if ct.RowsAffected() == 0 {
		return r.checkStatus(ctx, id, expected)
	}
	return nil
}

func (r *TicketRepo) Statistics(ctx context.Context, f repository.TicketFilter) (models.Statistics, error) {
	whereSQL, args := buildTicketWhere(f.Normalize())
	rows, err := r.db.Query(ctx,
		`SELECT t.status, t.priority, COUNT(*) FROM tickets t `+whereSQL+` GROUP BY t.status, t.priority`, args...)
	if err != nil {
		return models.Statistics{}, apperr.Repository(err, "ticket statistics")
	}
	defer rows.Close()

	st := models.NewStatistics()
	for rows.Next() {
		var (
			status   models.Status
			priority models.Priority
			n        int
		)
		if err := rows.Scan(&status, &priority, &n); err != nil {
			return models.Statistics{}, apperr.Repository(err, "scan statistics")
		}
		st.Add(status, priority, n)
	}
	if err := rows.Err(); err != nil {
		return models.Statistics{}, apperr.Repository(err, "ticket statistics")
	}
	return st, nil
}

// checkStatus explains a conditional write that touched no rows.
func (r *TicketRepo) checkStatus(ctx context.Context, id string, expected models.Status) error {
	var current models.Status
	if err := r.db.QueryRow(ctx, `SELECT status FROM tickets WHERE id = $1`, id).Scan(&current); err != nil {
		return notFoundOr(err, "ticket", id)
	}
	if expected != "" && current != expected {
		return apperr.InvalidTransition("ticket %s moved to %q", id, current)
	}
	return nil
}

func patchSets(p lifecycle.Patch) ([]string, []any) {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+" = $"+itoa(len(args)))
	}
	if p.Status != nil {
		set("status", *p.Status)
	}
	if p.Title != nil {
		set("title", *p.Title)
	}
	if p.Description != nil {
		set("description", *p.Description)
	}
	if p.Type != nil {
		set("type", *p.Type)
	}
	if p.Priority != nil {
		set("priority", *p.Priority)
	}
	if p.LecturerNotes != nil {
		set("lecturer_notes", *p.LecturerNotes)
	}
	if p.RejectionReason != nil {
		set("rejection_reason", *p.RejectionReason)
	}
	if p.AdminNotes != nil {
		set("admin_notes", *p.AdminNotes)
	}
	if p.AdminID != nil {
		set("admin_id", nullIfEmpty(*p.AdminID))
	}
	if p.ReviewedAt != nil {
		set("reviewed_at", *p.ReviewedAt)
	}
	if p.CompletedAt != nil {
		set("completed_at", *p.CompletedAt)
	}
	if len(sets) > 0 {
		if p.At.IsZero() {
			sets = append(sets, "updated_at = now()")
		} else {
			set("updated_at", p.At)
		}
	}
	return sets, args
}

// buildTicketWhere composes the WHERE clause and args for f.
func buildTicketWhere(f repository.TicketFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	eq := func(col string, v any) {
		args = append(args, v)
		clauses = append(clauses, col+" = $"+itoa(len(args)))
	}
	if f.StudentID != "" {
		eq("t.student_id::text", f.StudentID)
	}
	if f.LecturerID != "" {
		eq("t.lecturer_id::text", f.LecturerID)
	}
	if f.Status != "" {
		eq("t.status", f.Status)
	}
	if f.Priority != "" {
		eq("t.priority", f.Priority)
	}
	if f.Type != "" {
		eq("t.type", f.Type)
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := itoa(len(args))
		clauses = append(clauses, "(t.title ILIKE $"+n+" OR t.description ILIKE $"+n+" OR t.ticket_number ILIKE $"+n+")")
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func sortExpr(col string) string {
	if col == "priority" {
		return "CASE t.priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END"
	}
	return "t." + col
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
