package utils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/kurokana/SiTeJo-Web/internal/apperr"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool                `json:"success"`
	Data    any                 `json:"data,omitempty"`
	Message string              `json:"message,omitempty"`
	Code    apperr.Kind         `json:"code,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, Envelope{Success: true, Data: data})
}

// Message replies with a success envelope that only carries a message.
func Message(w http.ResponseWriter, status int, msg string) {
	write(w, status, Envelope{Success: true, Message: msg})
}

// Error replies with a plain failure for conditions outside the
// apperr kinds, such as bad JSON or a missing session.
func Error(w http.ResponseWriter, status int, msg string) {
	write(w, status, Envelope{Success: false, Message: msg})
}

// Fail maps err to its status code and envelope. Repository errors are
// logged and answered with a generic message.
func Fail(w http.ResponseWriter, l zerolog.Logger, err error) {
	kind := apperr.KindOf(err)
	status := StatusFor(kind)
	msg := err.Error()
	if kind == apperr.KindRepository {
		l.Error().Err(err).Msg("request failed")
		msg = "internal server error"
	}
	write(w, status, Envelope{Success: false, Message: msg, Code: kind, Errors: apperr.FieldsOf(err)})
}

func StatusFor(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity
	case apperr.KindInvalidTransition:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindUnauthorized:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

var errEmptyBody = apperr.Validation("request body is empty")

// Decode reads a JSON body into v, rejecting unknown fields and
// trailing data.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return apperr.Validation("invalid json: %v", err)
	}
	if dec.More() {
		return apperr.Validation("invalid json: trailing data")
	}
	return nil
}

// DecodeOptional is Decode for bodies that may be absent.
func DecodeOptional(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := Decode(r, v); err != nil && err != errEmptyBody {
		return err
	}
	return nil
}

func write(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
