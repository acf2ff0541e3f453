package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kurokana/SiTeJo-Web/internal/apperr"
	"github.com/kurokana/SiTeJo-Web/internal/models"
	"github.com/kurokana/SiTeJo-Web/internal/repository"
)

type DocumentRepo struct{ db *pgxpool.Pool }

func NewDocumentRepo(db *pgxpool.Pool) *DocumentRepo { return &DocumentRepo{db: db} }

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

const documentColumns = `id, ticket_id, file_name, size, document_type, content_type, checksum, storage_path, uploaded_by, created_at`

func scanDocument(row pgx.Row) (*models.Document, error) {
	var d models.Document
	if err := row.Scan(&d.ID, &d.TicketID, &d.FileName, &d.Size, &d.DocumentType,
		&d.ContentType, &d.Checksum, &d.StoragePath, &d.UploadedBy, &d.CreatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DocumentRepo) ListByTicket(ctx context.Context, ticketID string) ([]models.Document, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tickets WHERE id = $1)`, ticketID).Scan(&exists); err != nil {
		return nil, notFoundOr(err, "ticket", ticketID)
	}
	if !exists {
		return nil, apperr.NotFound("ticket %s not found", ticketID)
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE ticket_id = $1 ORDER BY created_at`, ticketID)
	if err != nil {
		return nil, apperr.Repository(err, "list documents")
	}
	defer rows.Close()

	out := []models.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, apperr.Repository(err, "scan document")
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Repository(err, "list documents")
	}
	return out, nil
}

func (r *DocumentRepo) Get(ctx context.Context, id string) (*models.Document, error) {
	d, err := scanDocument(r.db.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, "document", id)
	}
	return d, nil
}

func (r *DocumentRepo) Create(ctx context.Context, d *models.Document) error {
	docType := d.DocumentType
	if docType == "" {
		docType = models.DefaultDocumentType
	}
	created, err := scanDocument(r.db.QueryRow(ctx, `
		INSERT INTO documents (ticket_id, file_name, size, document_type, content_type, checksum, storage_path, uploaded_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING `+documentColumns,
		d.TicketID, d.FileName, d.Size, docType, d.ContentType, d.Checksum, d.StoragePath, d.UploadedBy))
	if err != nil {
		if pgCode(err) == codeForeignKeyViolation {
			return apperr.NotFound("ticket %s not found", d.TicketID)
		}
		return apperr.Repository(err, "insert document")
	}
	*d = *created
	return nil
}

func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return notFoundOr(err, "document", id)
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("document %s not found", id)
	}
	return nil
}
