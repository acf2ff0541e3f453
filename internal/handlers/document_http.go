package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/kurokana/SiTeJo-Web/internal/apperr"
	"github.com/kurokana/SiTeJo-Web/internal/service"
	"github.com/kurokana/SiTeJo-Web/internal/utils"
)

// multipart overhead allowed on top of the file itself
const formOverhead = 1 << 20

type DocumentHTTP struct {
	svc      *service.DocumentService
	log      zerolog.Logger
	maxBytes int64
}

func NewDocumentHTTP(svc *service.DocumentService, log zerolog.Logger, maxBytes int64) *DocumentHTTP {
	return &DocumentHTTP{svc: svc, log: log, maxBytes: maxBytes}
}

// GET /api/tickets/{id}/documents
func (h *DocumentHTTP) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := h.svc.List(r.Context(), actor(r), chi.URLParam(r, "id"))
		if err != nil {
			utils.Fail(w, h.log, err)
			return
		}
		utils.JSON(w, http.StatusOK, docs)
	}
}

// POST /api/tickets/{id}/documents (multipart: file, document_type)
func (h *DocumentHTTP) Upload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+formOverhead)
		if err := r.ParseMultipartForm(formOverhead); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				utils.Fail(w, h.log, apperr.Field("file", "file exceeds the upload limit"))
				return
			}
			utils.Fail(w, h.log, apperr.Field("file", "expected a multipart form"))
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("file")
		if err != nil {
			utils.Fail(w, h.log, apperr.Field("file", "file is required"))
			return
		}
		defer file.Close()

		docType := r.FormValue("document_type")
		if docType == "" {
			// older web forms send the camelCase name
			docType = r.FormValue("documentsType")
		}
		d, err := h.svc.Upload(r.Context(), actor(r), chi.URLParam(r, "id"), service.Upload{
			FileName:     header.Filename,
			ContentType:  header.Header.Get("Content-Type"),
			DocumentType: docType,
			Body:         file,
		})
		if err != nil {
			utils.Fail(w, h.log, err)
			return
		}
		utils.JSON(w, http.StatusCreated, d)
	}
}

// GET /api/documents/{id}/download
func (h *DocumentHTTP) Download() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, body, err := h.svc.Open(r.Context(), actor(r), chi.URLParam(r, "id"))
		if err != nil {
			utils.Fail(w, h.log, err)
			return
		}
		defer body.Close()

		w.Header().Set("Content-Type", d.ContentType)
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": d.FileName}))
		w.Header().Set("X-Checksum-Blake3", d.Checksum)
		if rs, ok := body.(io.ReadSeeker); ok {
			http.ServeContent(w, r, d.FileName, d.CreatedAt, rs)
			return
		}
		w.Header().Set("Content-Length", strconv.FormatInt(d.Size, 10))
		w.Header().Set("Last-Modified", d.CreatedAt.UTC().Format(time.RFC1123))
		if _, err := io.Copy(w, body); err != nil {
			h.log.Warn().Err(err).Str("document", d.ID).Msg("download interrupted")
		}
	}
}

// DELETE /api/documents/{id}
func (h *DocumentHTTP) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.svc.Delete(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
			utils.Fail(w, h.log, err)
			return
		}
		utils.Message(w, http.StatusOK, "document deleted")
	}
}
