// Package client is a typed Go client for the SiTeJo REST API. Error
// envelopes are decoded back into apperr kinds so callers can switch on
// apperr.KindOf exactly as the server does.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kurokana/SiTeJo-Web/internal/apperr"
	"github.com/kurokana/SiTeJo-Web/internal/lifecycle"
	"github.com/kurokana/SiTeJo-Web/internal/models"
	"github.com/kurokana/SiTeJo-Web/internal/repository"
)

// ErrUnauthenticated is returned when the server answers 401.
var ErrUnauthenticated = errors.New("not authenticated")

// Ticket is a ticket as the API returns it.
type Ticket struct {
	models.Ticket
	AllowedActions []lifecycle.Action `json:"allowed_actions"`
}

type TicketList struct {
	Items      []Ticket              `json:"items"`
	Pagination repository.Pagination `json:"pagination"`
}

type Session struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

type Client struct {
	base  string
	token string
	http  *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the traced default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   60 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Token returns the bearer token in use, set by WithToken or Login.
func (c *Client) Token() string { return c.token }

type envelope struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Message string              `json:"message"`
	Code    apperr.Kind         `json:"code"`
	Errors  map[string][]string `json:"errors"`
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// do sends in as JSON (when non-nil) and decodes the envelope's data
// into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	return decode(resp, out)
}

func decode(resp *http.Response, out any) error {
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthenticated
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("unexpected %d response: %s", resp.StatusCode, truncate(raw))
	}
	if resp.StatusCode >= 400 || !env.Success {
		return remoteError(resp.StatusCode, env)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func remoteError(status int, env envelope) error {
	kind := env.Code
	if kind == "" {
		switch status {
		case http.StatusUnprocessableEntity, http.StatusBadRequest:
			kind = apperr.KindValidation
		case http.StatusConflict:
			kind = apperr.KindInvalidTransition
		case http.StatusNotFound:
			kind = apperr.KindNotFound
		case http.StatusForbidden:
			kind = apperr.KindUnauthorized
		default:
			kind = apperr.KindRepository
		}
	}
	msg := env.Message
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &apperr.Error{Kind: kind, Message: msg, Fields: env.Errors}
}

func truncate(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}

// Login stores the returned token on c for subsequent calls.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	in := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", in, &s); err != nil {
		return nil, err
	}
	c.token = s.Token
	return &s, nil
}

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) Lecturers(ctx context.Context) ([]models.UserSummary, error) {
	var out []models.UserSummary
	if err := c.do(ctx, http.MethodGet, "/api/lecturers", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Statistics(ctx context.Context) (*models.Statistics, error) {
	var s models.Statistics
	if err := c.do(ctx, http.MethodGet, "/api/tickets/statistics", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func ticketPath(id string, suffix ...string) string {
	p := "/api/tickets/" + url.PathEscape(id)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}
