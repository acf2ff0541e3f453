package client

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/zeebo/blake3"

	"github.com/kurokana/SiTeJo-Web/internal/models"
)

func (c *Client) ListDocuments(ctx context.Context, ticketID string) ([]models.Document, error) {
	var out []models.Document
	if err := c.do(ctx, http.MethodGet, ticketPath(ticketID, "documents"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Upload streams body as a multipart form without buffering the file.
func (c *Client) Upload(ctx context.Context, ticketID, fileName, documentType string, body io.Reader) (*models.Document, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := func() error {
			if documentType != "" {
				if err := mw.WriteField("document_type", documentType); err != nil {
					return err
				}
			}
			part, err := mw.CreateFormFile("file", fileName)
			if err != nil {
				return err
			}
			if _, err := io.Copy(part, body); err != nil {
				return err
			}
			return mw.Close()
		}()
		pw.CloseWithError(err)
	}()

	req, err := c.newRequest(ctx, http.MethodPost, ticketPath(ticketID, "documents"), pr)
	if err != nil {
		pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var d models.Document
	if err := c.send(req, &d); err != nil {
		pr.CloseWithError(err)
		return nil, err
	}
	return &d, nil
}

// Downloaded describes a file written by Download.
type Downloaded struct {
	FileName string
	Size     int64
	Checksum string
}

// Download copies the document into w and verifies the BLAKE3 checksum
// the server advertises.
func (c *Client) Download(ctx context.Context, docID string, w io.Writer) (*Downloaded, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/documents/"+url.PathEscape(docID)+"/download", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", docID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decode(resp, nil)
	}

	out := &Downloaded{Checksum: resp.Header.Get("X-Checksum-Blake3")}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		out.FileName = params["filename"]
	}

	h := blake3.New()
	n, err := io.Copy(io.MultiWriter(w, h), resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", docID, err)
	}
	out.Size = n
	if sum := hex.EncodeToString(h.Sum(nil)); out.Checksum != "" && sum != out.Checksum {
		return nil, fmt.Errorf("download %s: checksum mismatch (got %s, want %s)", docID, sum, out.Checksum)
	}
	return out, nil
}

func (c *Client) DeleteDocument(ctx context.Context, docID string) error {
	return c.do(ctx, http.MethodDelete, "/api/documents/"+url.PathEscape(docID), nil, nil)
}
