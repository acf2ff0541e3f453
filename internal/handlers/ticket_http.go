package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/kurokana/SiTeJo-Web/internal/apperr"
	"github.com/kurokana/SiTeJo-Web/internal/identity"
	"github.com/kurokana/SiTeJo-Web/internal/lifecycle"
	"github.com/kurokana/SiTeJo-Web/internal/models"
	"github.com/kurokana/SiTeJo-Web/internal/repository"
	"github.com/kurokana/SiTeJo-Web/internal/service"
	"github.com/kurokana/SiTeJo-Web/internal/utils"
)

type TicketHTTP struct {
	svc *service.TicketService
	log zerolog.Logger
}

func NewTicketHTTP(svc *service.TicketService, log zerolog.Logger) *TicketHTTP {
	return &TicketHTTP{svc: svc, log: log}
}

// TicketView is a ticket plus the actions the caller may take on it.
type TicketView struct {
	models.Ticket
	AllowedActions []lifecycle.Action `json:"allowed_actions"`
}

func view(t *models.Ticket, actor lifecycle.Actor) TicketView {
	return TicketView{Ticket: *t, AllowedActions: lifecycle.Allowed(*t, actor)}
}

type listResponse[T any] struct {
	Items      []T                   `json:"items"`
	Pagination repository.Pagination `json:"pagination"`
}

func actor(r *http.Request) lifecycle.Actor {
	id, _ := identity.CurrentUser(r.Context())
	return id.Actor()
}

// GET /api/tickets?status=&priority=&type=&search=&page=&per_page=&sort=&order=
func (h *TicketHTTP) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := ticketFilter(r)
		if err != nil {
			utils.Fail(w, h.log, err)
			return
		}
		a := actor(r)
		items, page, err := h.svc.List(r.Context(), a, f)
		if err != nil {
			utils.Fail(w, h.log, err)
			return
		}
		views := make([]TicketView, len(items))
		for i := range items {
			views[i] = view(&items[i], a)
		}
		utils.JSON(w, http.StatusOK, listResponse[TicketView]{Items: views, Pagination: page})
	}
}

// POST /api/tickets
func (h *TicketHTTP) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Type        string `json:"type"`
			Priority    string `json:"priority"`
			LecturerID  string `json:"lecturer_id"`
		}
		if err := utils.Decode(r, &in); err != nil {
			utils.Fail(w, h.log, err)
			return
		}
		a := actor(r)
		t, err := h.svc.Create(r.Context(), a, lifecycle.Draft{
			Title: in.Title, Description: in.Description, Type: in.Type,
			Priority: in.Priority, LecturerID: in.LecturerID,
		})
		if err != nil {
			utils.Fail(w, h.log, err)
			return
		}
		utils.JSON(w, http.StatusCreated, view(t, a))
	}
}

// GET /api/tickets/{id}
func (h *TicketHTTP) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a := actor(r)
		t, err := h.svc.Get(r.Context(), a, chi.URLParam(r, "id"))
		if err != nil {
			utils.Fail(w, h.log, err)
			return
		}
		utils.JSON(w, http.StatusOK, view(t, a))
	}
}

// PUT /api/tickets/{id}
func (h *TicketHTTP) Update() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Title       *string `json:"title"`
			Description *string `json:"description"`
			Type        *string `json:"type"`
			Priority    *string `json:"priority"`
		}
		if err := utils.Decode(r, &in); err != nil {
			utils.Fail(w, h.log, err)
			return
		}
		h.transition(w, r, lifecycle.ActionEdit, lifecycle.Payload{
			Title: in.Title, Description: in.Description, Type: in.Type, Priority: in.Priority,
		})
	}
}

// DELETE /api/tickets/{id}
func (h *TicketHTTP) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := h.svc.Transition(r.Context(), actor(r), chi.URLParam(r, "id"), lifecycle.ActionDelete, lifecycle.Payload{}); err != nil {
			utils.Fail(w, h.log, err)
			return
		}
		utils.Message(w, http.StatusOK, "ticket deleted")
	}
}

// POST /api/tickets/{id}/{review,approve,reject,complete}
// Body is optional: {"notes": "..."} or {"reason": "..."}.
func (h *TicketHTTP) Transition(action lifecycle.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Notes  string `json:"notes"`
			Reason string `json:"reason"`
		}
		if err := utils.DecodeOptional(r, &in); err != nil {
			utils.Fail(w, h.log, err)
			return
		}
		h.transition(w, r, action, lifecycle.Payload{Notes: in.Notes, Reason: in.Reason})
	}
}

func (h *TicketHTTP) transition(w http.ResponseWriter, r *http.Request, action lifecycle.Action, p lifecycle.Payload) {
	a := actor(r)
	t, err := h.svc.Transition(r.Context(), a, chi.URLParam(r, "id"), action, p)
	if err != nil {
		utils.Fail(w, h.log, err)
		return
	}
	utils.JSON(w, http.StatusOK, view(t, a))
}

func ticketFilter(r *http.Request) (repository.TicketFilter, error) {
	q := r.URL.Query()
	f := repository.TicketFilter{
		Search:  utils.QueryString(q, "search"),
		Page:    utils.QueryInt(q, "page", 1),
		PerPage: utils.QueryInt(q, "per_page", repository.DefaultPerPage),
		Sort:    q.Get("sort"),
		Order:   q.Get("order"),
	}
	if f.Search == "" {
		f.Search = utils.QueryString(q, "q")
	}
	fields := map[string][]string{}
	if v := utils.QueryString(q, "status"); v != "" {
		st, ok := models.ParseStatus(v)
		if !ok {
			fields["status"] = []string{"unknown status"}
		}
		f.Status = st
	}
	if v := utils.QueryString(q, "priority"); v != "" {
		p, ok := models.ParsePriority(v)
		if !ok {
			fields["priority"] = []string{"unknown priority"}
		}
		f.Priority = p
	}
	if v := utils.QueryString(q, "type"); v != "" {
		t, ok := models.ParseTicketType(v)
		if !ok {
			fields["type"] = []string{"unknown ticket type"}
		}
		f.Type = t
	}
	if len(fields) > 0 {
		return f, &apperr.Error{Kind: apperr.KindValidation, Message: "invalid filter", Fields: fields}
	}
	return f, nil
}
