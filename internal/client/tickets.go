package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kurokana/SiTeJo-Web/internal/apperr"
	"github.com/kurokana/SiTeJo-Web/internal/lifecycle"
)

// ListOptions mirrors the query parameters of GET /api/tickets. Zero
// values are omitted.
type ListOptions struct {
	Status   string
	Priority string
	Type     string
	Search   string
	Page     int
	PerPage  int
	Sort     string
	Order    string
}

func (o ListOptions) query() string {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("status", o.Status)
	set("priority", o.Priority)
	set("type", o.Type)
	set("search", o.Search)
	set("sort", o.Sort)
	set("order", o.Order)
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(o.PerPage))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func (c *Client) ListTickets(ctx context.Context, o ListOptions) (*TicketList, error) {
	var out TicketList
	if err := c.do(ctx, http.MethodGet, "/api/tickets"+o.query(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetTicket(ctx context.Context, id string) (*Ticket, error) {
	var t Ticket
	if err := c.do(ctx, http.MethodGet, ticketPath(id), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

type NewTicket struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type,omitempty"`
	Priority    string `json:"priority,omitempty"`
	LecturerID  string `json:"lecturer_id"`
}

func (c *Client) CreateTicket(ctx context.Context, in NewTicket) (*Ticket, error) {
	var t Ticket
	if err := c.do(ctx, http.MethodPost, "/api/tickets", in, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// TicketEdit holds the fields to change; nil fields are left alone.
type TicketEdit struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Type        *string `json:"type,omitempty"`
	Priority    *string `json:"priority,omitempty"`
}

func (c *Client) EditTicket(ctx context.Context, id string, in TicketEdit) (*Ticket, error) {
	var t Ticket
	if err := c.do(ctx, http.MethodPut, ticketPath(id), in, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Transition runs one of the workflow actions (review, approve, reject,
// complete).
func (c *Client) Transition(ctx context.Context, id string, action lifecycle.Action, p lifecycle.Payload) (*Ticket, error) {
	switch action {
	case lifecycle.ActionReview, lifecycle.ActionApprove, lifecycle.ActionReject, lifecycle.ActionComplete:
	default:
		return nil, apperr.Validation("action %q has no transition endpoint", action)
	}
	in := struct {
		Notes  string `json:"notes,omitempty"`
		Reason string `json:"reason,omitempty"`
	}{p.Notes, p.Reason}
	var t Ticket
	if err := c.do(ctx, http.MethodPost, ticketPath(id, string(action)), in, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) DeleteTicket(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, ticketPath(id), nil, nil)
}
