package service

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kurokana/SiTeJo-Web/internal/apperr"
	"github.com/kurokana/SiTeJo-Web/internal/lifecycle"
	"github.com/kurokana/SiTeJo-Web/internal/models"
	"github.com/kurokana/SiTeJo-Web/internal/repository"
	"github.com/kurokana/SiTeJo-Web/internal/storage"
)

type DocumentService struct {
	tickets *TicketService
	docs    repository.DocumentRepository
	blobs   *storage.FileStore
	log     zerolog.Logger
}

func NewDocumentService(tickets *TicketService, docs repository.DocumentRepository, blobs *storage.FileStore, log zerolog.Logger) *DocumentService {
	return &DocumentService{tickets: tickets, docs: docs, blobs: blobs, log: log}
}

func (s *DocumentService) List(ctx context.Context, actor lifecycle.Actor, ticketID string) ([]models.Document, error) {
	if _, err := s.tickets.Get(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	return s.docs.ListByTicket(ctx, ticketID)
}

type Upload struct {
	FileName     string
	ContentType  string
	DocumentType string
	Body         io.Reader
}

// Upload attaches a file to a ticket the actor owns while it is still
// editable. The blob is removed again if the row cannot be stored.
func (s *DocumentService) Upload(ctx context.Context, actor lifecycle.Actor, ticketID string, up Upload) (d *models.Document, err error) {
	defer func() { transitionsTotal.WithLabelValues(string(lifecycle.ActionAttachDocument), outcome(err)).Inc() }()

	name := filepath.Base(strings.TrimSpace(up.FileName))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, apperr.Field("file", "file name is required")
	}
	t, err := s.tickets.tickets.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if _, err := lifecycle.Decide(*t, actor, lifecycle.ActionAttachDocument, lifecycle.Payload{}, s.tickets.now()); err != nil {
		return nil, err
	}

	res, err := s.blobs.Save(up.Body)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, apperr.Field("file", "file exceeds the upload limit")
		}
		return nil, apperr.Repository(err, "store document")
	}

	docType := strings.TrimSpace(up.DocumentType)
	if docType == "" {
		docType = models.DefaultDocumentType
	}
	contentType := strings.TrimSpace(up.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	d = &models.Document{
		TicketID:     ticketID,
		FileName:     name,
		Size:         res.Size,
		DocumentType: docType,
		ContentType:  contentType,
		Checksum:     res.Checksum,
		StoragePath:  res.StoragePath,
		UploadedBy:   actor.ID,
	}
	if err := s.docs.Create(ctx, d); err != nil {
		s.dropBlob(res.StoragePath)
		return nil, err
	}
	// A delete that listed documents before this row existed cascades
	// the row but never sees the blob.
	if _, err := s.tickets.tickets.Get(ctx, ticketID); apperr.IsKind(err, apperr.KindNotFound) {
		s.dropBlob(res.StoragePath)
		return nil, err
	}
	s.log.Info().Str("ticket", ticketID).Str("document", d.ID).Int64("size", d.Size).Msg("document uploaded")
	return d, nil
}

func (s *DocumentService) dropBlob(path string) {
	if err := s.blobs.Delete(path); err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("orphaned document blob")
	}
}

// Open returns a visible document and its content. The caller closes
// the reader.
func (s *DocumentService) Open(ctx context.Context, actor lifecycle.Actor, docID string) (*models.Document, io.ReadCloser, error) {
	d, err := s.docs.Get(ctx, docID)
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.tickets.Get(ctx, actor, d.TicketID); err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, nil, apperr.NotFound("document %s not found", docID)
		}
		return nil, nil, err
	}
	f, err := s.blobs.Open(d.StoragePath)
	if err != nil {
		return nil, nil, err
	}
	return d, f, nil
}

func (s *DocumentService) Delete(ctx context.Context, actor lifecycle.Actor, docID string) (err error) {
	defer func() { transitionsTotal.WithLabelValues(string(lifecycle.ActionRemoveDocument), outcome(err)).Inc() }()

	d, err := s.docs.Get(ctx, docID)
	if err != nil {
		return err
	}
	t, err := s.tickets.tickets.Get(ctx, d.TicketID)
	if err != nil {
		return err
	}
	if _, err := lifecycle.Decide(*t, actor, lifecycle.ActionRemoveDocument, lifecycle.Payload{}, s.tickets.now()); err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, docID); err != nil {
		return err
	}
	if err := s.blobs.Delete(d.StoragePath); err != nil {
		s.log.Warn().Err(err).Str("document", docID).Msg("orphaned document blob")
	}
	return nil
}
